package sqlitefile

import (
	"fmt"

	"github.com/RichardKnop/liteinspect/pkg/bitwise"
)

// MaxVarintLen is the longest possible varint encoding.
const MaxVarintLen = 9

// DecodeVarint decodes the variable-length integer starting at offset and
// returns its value and the number of bytes consumed (1 to 9).
//
// The first eight bytes contribute their low seven bits, most significant
// first, and the high bit flags a continuation. A ninth byte contributes
// all eight of its bits and always terminates the encoding.
func DecodeVarint(buf []byte, offset int) (uint64, int, error) {
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: negative offset %d", ErrTruncatedVarint, offset)
	}

	var result uint64
	for i := 0; i < MaxVarintLen-1; i++ {
		if offset+i >= len(buf) {
			return 0, 0, fmt.Errorf("%w: buffer ends after %d bytes at offset %d", ErrTruncatedVarint, i, offset)
		}
		b := buf[offset+i]
		result = result<<7 | uint64(bitwise.LowBits(b, 7))
		if !bitwise.IsSet(b, 7) {
			return result, i + 1, nil
		}
	}

	last := offset + MaxVarintLen - 1
	if last >= len(buf) {
		return 0, 0, fmt.Errorf("%w: missing ninth byte at offset %d", ErrTruncatedVarint, offset)
	}
	result = result<<8 | uint64(buf[last])

	return result, MaxVarintLen, nil
}
