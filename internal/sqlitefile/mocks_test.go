package sqlitefile

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPager is a mock type for the Pager type
type MockPager struct {
	mock.Mock
}

// ReadPage provides a mock function with given fields: _a0, _a1
func (_m *MockPager) ReadPage(_a0 context.Context, _a1 PageNumber) ([]byte, error) {
	ret := _m.Called(_a0, _a1)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, PageNumber) []byte); ok {
		r0 = rf(_a0, _a1)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, PageNumber) error); ok {
		r1 = rf(_a0, _a1)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetHeader provides a mock function with given fields: _a0
func (_m *MockPager) GetHeader(_a0 context.Context) DatabaseHeader {
	ret := _m.Called(_a0)

	return ret.Get(0).(DatabaseHeader)
}

// TotalPages provides a mock function with given fields:
func (_m *MockPager) TotalPages() uint32 {
	ret := _m.Called()

	return ret.Get(0).(uint32)
}

// Close provides a mock function with given fields:
func (_m *MockPager) Close() error {
	ret := _m.Called()

	return ret.Error(0)
}
