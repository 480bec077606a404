package vm

import "fmt"

// 16 glyphs, 5 bytes each, one per hexadecimal digit.
var chip8Font = []uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the flat 4K address space. Every access is bounds checked.
type Memory struct {
	data [MemorySize]uint8
}

// Reset zeroes the address space and writes the font block at 0x000.
func (m *Memory) Reset() {
	m.data = [MemorySize]uint8{}
	copy(m.data[FontStart:], chip8Font)
}

func (m *Memory) Byte(addr int) (uint8, error) {
	if !validAddr(addr) {
		return 0, addrError(addr)
	}
	return m.data[addr], nil
}

func (m *Memory) SetByte(addr int, v uint8) error {
	if !validAddr(addr) {
		return addrError(addr)
	}
	m.data[addr] = v
	return nil
}

// Load copies data into memory starting at start. Nothing is written when
// the whole range does not fit.
func (m *Memory) Load(start int, data []byte) error {
	if !validAddr(start) {
		return addrError(start)
	}
	if start+len(data) > MemorySize {
		return fmt.Errorf("%w: %d bytes at 0x%04x exceed %d bytes of memory",
			ErrMemoryOverflow, len(data), start, MemorySize)
	}
	copy(m.data[start:], data)
	return nil
}

// Word reads a big-endian 16-bit word. The low byte must be addressable too,
// so the last byte of memory cannot start a word.
func (m *Memory) Word(addr int) (uint16, error) {
	if !validAddr(addr) || !validAddr(addr+1) {
		return 0, addrError(addr)
	}
	return uint16(m.data[addr])<<8 | uint16(m.data[addr+1]), nil
}

// Slice returns a copy of length bytes starting at addr.
func (m *Memory) Slice(addr, length int) ([]byte, error) {
	if !validAddr(addr) || length < 0 || addr+length > MemorySize {
		return nil, fmt.Errorf("%w: range 0x%04x+%d", ErrAddress, addr, length)
	}
	out := make([]byte, length)
	copy(out, m.data[addr:addr+length])
	return out, nil
}

func validAddr(addr int) bool {
	return addr >= 0 && addr < MemorySize
}

func addrError(addr int) error {
	return fmt.Errorf("%w: 0x%04x", ErrAddress, addr)
}
