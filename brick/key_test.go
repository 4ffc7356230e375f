package brick

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyEncodeDecodeRoundTrip(t *testing.T) {
	keys := []Key{
		NewKey(0, 0, 0),
		NewKey(1, 2, 3),
		NewKey(0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFFFFFFFFFF),
	}
	for _, k := range keys {
		got := DecodeKey(k.Encode())
		assert.Equal(t, k, got)
	}
}

func TestKeyLess(t *testing.T) {
	a := NewKey(0, 0, 5)
	b := NewKey(0, 1, 0)
	c := NewKey(1, 0, 0)

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
}
