package bitwise

// Unsigned is any unsigned integer type the helpers operate on.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// IsSet reports whether bit k (0 = least significant) of n is 1.
func IsSet[T Unsigned](n T, k int) bool {
	return n&(T(1)<<k) > 0
}

// LowBits keeps the k least significant bits of n and clears the rest.
func LowBits[T Unsigned](n T, k int) T {
	return n & (T(1)<<k - 1)
}

// SignExtend interprets the low width bits of n as a two's complement
// integer and widens it to int64.
func SignExtend(n uint64, width int) int64 {
	shift := 64 - width
	return int64(n<<shift) >> shift
}
