package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArena(t *testing.T) {
	t.Run("reuses released slots with a new generation", func(t *testing.T) {
		var ar arena

		a := &Action{}
		h := ar.alloc(a)
		assert.Same(t, a, ar.get(h))
		assert.Equal(t, 1, ar.live)

		ar.release(h)
		assert.Nil(t, ar.get(h))
		assert.Equal(t, 0, ar.live)

		b := &Action{}
		h2 := ar.alloc(b)
		assert.Equal(t, h.index, h2.index)
		assert.NotEqual(t, h.gen, h2.gen)
		assert.Nil(t, ar.get(h))
		assert.Same(t, b, ar.get(h2))
	})

	t.Run("releasing twice is harmless", func(t *testing.T) {
		var ar arena

		h := ar.alloc(&Action{})
		ar.release(h)
		ar.release(h)

		assert.Equal(t, 0, ar.live)
		assert.Len(t, ar.free, 1)
	})

	t.Run("unknown handles resolve to nil", func(t *testing.T) {
		var ar arena
		assert.Nil(t, ar.get(Handle{index: 3, gen: 1}))
	})
}
