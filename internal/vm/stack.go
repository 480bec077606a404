package vm

import "fmt"

// Stack holds subroutine return addresses.
type Stack struct {
	entries [StackSize]uint16
	sp      int
}

func (s *Stack) Push(addr uint16) error {
	if s.sp == len(s.entries) {
		return fmt.Errorf("%w: depth %d", ErrStackOverflow, s.sp)
	}
	s.entries[s.sp] = addr
	s.sp++
	return nil
}

func (s *Stack) Pop() (uint16, error) {
	if s.sp == 0 {
		return 0, ErrStackUnderflow
	}
	s.sp--
	return s.entries[s.sp], nil
}

func (s *Stack) Len() int {
	return s.sp
}

func (s *Stack) Reset() {
	*s = Stack{}
}
