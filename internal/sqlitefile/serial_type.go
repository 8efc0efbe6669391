package sqlitefile

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/RichardKnop/liteinspect/pkg/bitwise"
)

// StorageClass is the kind of value a serial type describes.
type StorageClass int

const (
	Null StorageClass = iota + 1
	Int8
	Int16
	Int24
	Int32
	Int48
	Int64
	Float64
	Zero
	One
	Blob
	Text
)

func (c StorageClass) String() string {
	switch c {
	case Null:
		return "NULL"
	case Int8:
		return "INT8"
	case Int16:
		return "INT16"
	case Int24:
		return "INT24"
	case Int32:
		return "INT32"
	case Int48:
		return "INT48"
	case Int64:
		return "INT64"
	case Float64:
		return "FLOAT64"
	case Zero:
		return "ZERO"
	case One:
		return "ONE"
	case Blob:
		return "BLOB"
	case Text:
		return "TEXT"
	default:
		return "StorageClass(" + strconv.Itoa(int(c)) + ")"
	}
}

// IsInteger is true for every class that decodes to an integer, including
// the zero-length ZERO and ONE constants.
func (c StorageClass) IsInteger() bool {
	switch c {
	case Int8, Int16, Int24, Int32, Int48, Int64, Zero, One:
		return true
	default:
		return false
	}
}

// SerialType is a decoded record header entry. Length is only meaningful
// for Blob and Text.
type SerialType struct {
	Class  StorageClass
	Length uint64
}

// DecodeSerialType maps a serial type code to its storage class. Codes 10
// and 11 are reserved and rejected.
func DecodeSerialType(code uint64) (SerialType, error) {
	switch code {
	case 0:
		return SerialType{Class: Null}, nil
	case 1:
		return SerialType{Class: Int8}, nil
	case 2:
		return SerialType{Class: Int16}, nil
	case 3:
		return SerialType{Class: Int24}, nil
	case 4:
		return SerialType{Class: Int32}, nil
	case 5:
		return SerialType{Class: Int48}, nil
	case 6:
		return SerialType{Class: Int64}, nil
	case 7:
		return SerialType{Class: Float64}, nil
	case 8:
		return SerialType{Class: Zero}, nil
	case 9:
		return SerialType{Class: One}, nil
	}

	if code >= 12 && code%2 == 0 {
		return SerialType{Class: Blob, Length: (code - 12) / 2}, nil
	}
	if code >= 13 && code%2 == 1 {
		return SerialType{Class: Text, Length: (code - 13) / 2}, nil
	}

	return SerialType{}, fmt.Errorf("%w: %d", ErrInvalidSerialType, code)
}

// Len returns the number of body bytes a value of this type occupies.
func (s SerialType) Len() uint64 {
	switch s.Class {
	case Null, Zero, One:
		return 0
	case Int8:
		return 1
	case Int16:
		return 2
	case Int24:
		return 3
	case Int32:
		return 4
	case Int48:
		return 6
	case Int64, Float64:
		return 8
	case Blob, Text:
		return s.Length
	default:
		return 0
	}
}

func (s SerialType) String() string {
	if s.Class == Blob || s.Class == Text {
		return fmt.Sprintf("%s(%d)", s.Class, s.Length)
	}
	return s.Class.String()
}

// ColumnValue is a single decoded column. Value holds:
//
//	Null           nil
//	Int8           uint8
//	Int16          uint16
//	Int24, Int32   uint32
//	Int48, Int64   uint64
//	Float64        float64
//	Zero, One      int64
//	Blob           []byte
//	Text           string
//
// Fixed width integers keep the raw big-endian bits; use Int64 for the
// signed interpretation.
type ColumnValue struct {
	Type  SerialType
	Value any
}

// DecodeColumnValue decodes exactly st.Len() bytes of buf starting at offset.
func DecodeColumnValue(buf []byte, st SerialType, offset int) (ColumnValue, error) {
	size := st.Len()
	if offset < 0 || offset > len(buf) || size > uint64(len(buf)-offset) {
		return ColumnValue{}, fmt.Errorf("%w: %s column at offset %d overruns %d byte buffer", ErrCorruptPage, st, offset, len(buf))
	}
	data := buf[offset : offset+int(size)]

	aValue := ColumnValue{Type: st}
	switch st.Class {
	case Null:
		aValue.Value = nil
	case Int8:
		aValue.Value = data[0]
	case Int16:
		aValue.Value = binary.BigEndian.Uint16(data)
	case Int24:
		var padded [4]byte
		copy(padded[1:], data)
		aValue.Value = binary.BigEndian.Uint32(padded[:])
	case Int32:
		aValue.Value = binary.BigEndian.Uint32(data)
	case Int48:
		var padded [8]byte
		copy(padded[2:], data)
		aValue.Value = binary.BigEndian.Uint64(padded[:])
	case Int64:
		aValue.Value = binary.BigEndian.Uint64(data)
	case Float64:
		aValue.Value = math.Float64frombits(binary.BigEndian.Uint64(data))
	case Zero:
		aValue.Value = int64(0)
	case One:
		aValue.Value = int64(1)
	case Blob:
		blob := make([]byte, len(data))
		copy(blob, data)
		aValue.Value = blob
	case Text:
		if !utf8.Valid(data) {
			return ColumnValue{}, fmt.Errorf("%w: %s column at offset %d", ErrInvalidUTF8, st, offset)
		}
		aValue.Value = string(data)
	default:
		return ColumnValue{}, fmt.Errorf("%w: storage class %s", ErrInvalidSerialType, st.Class)
	}

	return aValue, nil
}

func (v ColumnValue) IsNull() bool {
	return v.Type.Class == Null
}

// Int64 returns the signed integer value for integer classes, sign
// extending each width the way SQLite stores two's complement integers.
func (v ColumnValue) Int64() (int64, bool) {
	switch v.Type.Class {
	case Int8:
		return bitwise.SignExtend(uint64(v.Value.(uint8)), 8), true
	case Int16:
		return bitwise.SignExtend(uint64(v.Value.(uint16)), 16), true
	case Int24:
		return bitwise.SignExtend(uint64(v.Value.(uint32)), 24), true
	case Int32:
		return bitwise.SignExtend(uint64(v.Value.(uint32)), 32), true
	case Int48:
		return bitwise.SignExtend(v.Value.(uint64), 48), true
	case Int64:
		return int64(v.Value.(uint64)), true
	case Zero, One:
		return v.Value.(int64), true
	default:
		return 0, false
	}
}

func (v ColumnValue) Text() (string, bool) {
	if v.Type.Class != Text {
		return "", false
	}
	return v.Value.(string), true
}

func (v ColumnValue) String() string {
	switch v.Type.Class {
	case Null:
		return "NULL"
	case Float64:
		return strconv.FormatFloat(v.Value.(float64), 'g', -1, 64)
	case Blob:
		return fmt.Sprintf("x'%x'", v.Value.([]byte))
	case Text:
		return v.Value.(string)
	}
	if v.Type.Class.IsInteger() {
		n, _ := v.Int64()
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%v", v.Value)
}
