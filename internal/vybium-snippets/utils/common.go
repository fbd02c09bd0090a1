package utils

import "github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

// U32Limit is the first value that does not fit in a u32
const U32Limit uint64 = 1 << 32

// IsU32 reports whether the word holds a value below 2^32
func IsU32(x field.Element) bool {
	return x.Value() < U32Limit
}

// IsPowerOfTwo checks if a number is a power of 2
func IsPowerOfTwo(n uint64) bool {
	return n > 0 && (n&(n-1)) == 0
}

// SplitU64 returns the high and low u32 limbs of a 64-bit value
func SplitU64(x uint64) (hi, lo uint32) {
	return uint32(x >> 32), uint32(x)
}

// JoinU64 is the inverse of SplitU64
func JoinU64(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}
