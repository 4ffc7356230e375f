package brick

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantValueRange(t *testing.T) {
	v := NewU8([]uint8{10, 200, 5, 90})
	lo, hi := v.ValueRange()
	assert.Equal(t, 5.0, lo)
	assert.Equal(t, 200.0, hi)

	f := NewF32([]float32{-1.5, 2.5, 0})
	lo, hi = f.ValueRange()
	assert.Equal(t, -1.5, lo)
	assert.Equal(t, 2.5, hi)
}

func TestVariantKindAccessors(t *testing.T) {
	v := NewI16([]int16{1, -2, 3})
	_, ok := v.U8()
	assert.False(t, ok)

	data, ok := v.I16()
	assert.True(t, ok)
	assert.Equal(t, []int16{1, -2, 3}, data)
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, uint64(6), v.ByteSize())
}
