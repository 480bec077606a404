package vm

import "errors"

var (
	ErrAddress        = errors.New("address out of range")
	ErrMemoryOverflow = errors.New("memory overflow")
	ErrIllegalOpcode  = errors.New("illegal opcode")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrInvalidValue   = errors.New("invalid value")
	ErrCoordinate     = errors.New("coordinate out of range")
)
