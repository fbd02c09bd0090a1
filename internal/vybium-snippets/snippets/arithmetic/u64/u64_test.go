package u64

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/oracle/oracletest"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
)

func all() []snippet.Snippet {
	return []snippet.Snippet{
		Incr{}, Decr{}, Eq{}, Lt{}, Add{}, PopCount{},
		ShiftRight{}, Log2Floor{}, Pow2{},
	}
}

func TestU64Snippets(t *testing.T) {
	for _, s := range all() {
		t.Run(s.Entrypoint(), func(t *testing.T) {
			oracletest.Run(t, s)
		})
	}
}

func topU64(t *testing.T, stack []field.Element) uint64 {
	t.Helper()
	v, err := datatype.DecodeU64(stack[len(stack)-2:])
	require.NoError(t, err)
	return v
}

func TestIncrCarry(t *testing.T) {
	outcome := oracletest.Verify(t, Incr{}, u64Stack(twoToThe32-1))
	assert.Equal(t, twoToThe32, topU64(t, outcome.Stack))
}

func TestDecrBorrow(t *testing.T) {
	outcome := oracletest.Verify(t, Decr{}, u64Stack(twoToThe32))
	assert.Equal(t, twoToThe32-1, topU64(t, outcome.Stack))
}

func TestLtOrder(t *testing.T) {
	tests := []struct {
		lhs, rhs uint64
		want     uint64
	}{
		{1, 2, 1},
		{2, 1, 0},
		{5, 5, 0},
		{twoToThe32, twoToThe32 - 1, 0},
		{twoToThe32 - 1, twoToThe32, 1},
	}

	for _, tt := range tests {
		outcome := oracletest.Verify(t, Lt{}, u64Stack(tt.lhs, tt.rhs))
		assert.Equal(t, tt.want, outcome.Stack[len(outcome.Stack)-1].Value(), "%d < %d", tt.lhs, tt.rhs)
	}
}

func TestShiftRightAcrossLimbs(t *testing.T) {
	outcome := oracletest.Verify(t, ShiftRight{}, shiftState(0xDEADBEEF_00000000, 36))
	assert.Equal(t, uint64(0xDEADBEE), topU64(t, outcome.Stack))
}
