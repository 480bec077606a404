package vm

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestStack(t *testing.T) {
	var s Stack

	_, err := s.Pop()
	assert.True(t, errors.Is(err, ErrStackUnderflow))

	for i := 0; i < StackSize; i++ {
		assert.NoError(t, s.Push(uint16(0x200+2*i)))
	}
	assert.Equal(t, StackSize, s.Len())

	err = s.Push(0x300)
	assert.True(t, errors.Is(err, ErrStackOverflow))
	assert.Equal(t, StackSize, s.Len())

	for i := StackSize - 1; i >= 0; i-- {
		addr, err := s.Pop()
		assert.NoError(t, err)
		assert.Equal(t, uint16(0x200+2*i), addr)
	}

	_, err = s.Pop()
	assert.True(t, errors.Is(err, ErrStackUnderflow))
}
