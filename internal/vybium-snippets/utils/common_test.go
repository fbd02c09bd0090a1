package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// TestIsU32 tests the u32 range check
func TestIsU32(t *testing.T) {
	assert.True(t, IsU32(field.New(0)))
	assert.True(t, IsU32(field.New(U32Limit-1)))
	assert.False(t, IsU32(field.New(U32Limit)))
}

// TestIsPowerOfTwo tests the IsPowerOfTwo function
func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        uint64
		expected bool
	}{
		{0, false},
		{1, true},
		{2, true},
		{3, false},
		{1 << 40, true},
		{1<<40 + 1, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsPowerOfTwo(tt.n), "IsPowerOfTwo(%d)", tt.n)
	}
}

// TestSplitJoinU64 tests the limb helpers
func TestSplitJoinU64(t *testing.T) {
	hi, lo := SplitU64(0x1234_5678_9ABC_DEF0)
	assert.Equal(t, uint32(0x1234_5678), hi)
	assert.Equal(t, uint32(0x9ABC_DEF0), lo)
	assert.Equal(t, uint64(0x1234_5678_9ABC_DEF0), JoinU64(hi, lo))
}
