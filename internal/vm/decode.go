package vm

import "fmt"

// Op identifies exactly one instruction handler.
type Op uint8

const (
	OpUnknown Op = iota
	OpSys             // 0NNN
	OpCls             // 00E0
	OpRts             // 00EE
	OpJmp             // 1NNN
	OpJsr             // 2NNN
	OpSkipEqImm       // 3XNN
	OpSkipNeImm       // 4XNN
	OpSkipEqReg       // 5XY0
	OpMovImm          // 6XNN
	OpAddImm          // 7XNN
	OpMovReg          // 8XY0
	OpOr              // 8XY1
	OpAnd             // 8XY2
	OpXor             // 8XY3
	OpAddReg          // 8XY4
	OpSub             // 8XY5
	OpShr             // 8XY6
	OpRsb             // 8XY7
	OpShl             // 8XYE
	OpSkipNeReg       // 9XY0
	OpMvi             // ANNN
	OpJmi             // BNNN
	OpRand            // CXNN
	OpSprite          // DXYN
	OpSkipPressed     // EX9E
	OpSkipNotPressed  // EXA1
	OpGetDelay        // FX07
	OpWaitKey         // FX0A
	OpSetDelay        // FX15
	OpSetSound        // FX18
	OpAddIndex        // FX1E
	OpFont            // FX29
	OpBCD             // FX33
	OpStore           // FX55
	OpLoad            // FX65
)

var opNames = [...]string{
	OpUnknown:        "unknown",
	OpSys:            "sys",
	OpCls:            "cls",
	OpRts:            "rts",
	OpJmp:            "jmp",
	OpJsr:            "jsr",
	OpSkipEqImm:      "skeq",
	OpSkipNeImm:      "skne",
	OpSkipEqReg:      "skeq",
	OpMovImm:         "mov",
	OpAddImm:         "add",
	OpMovReg:         "mov",
	OpOr:             "or",
	OpAnd:            "and",
	OpXor:            "xor",
	OpAddReg:         "add",
	OpSub:            "sub",
	OpShr:            "shr",
	OpRsb:            "rsb",
	OpShl:            "shl",
	OpSkipNeReg:      "skne",
	OpMvi:            "mvi",
	OpJmi:            "jmi",
	OpRand:           "rand",
	OpSprite:         "sprite",
	OpSkipPressed:    "skpr",
	OpSkipNotPressed: "skup",
	OpGetDelay:       "gdelay",
	OpWaitKey:        "key",
	OpSetDelay:       "sdelay",
	OpSetSound:       "ssound",
	OpAddIndex:       "adi",
	OpFont:           "font",
	OpBCD:            "bcd",
	OpStore:          "str",
	OpLoad:           "ldr",
}

// Name is the instruction mnemonic.
func (op Op) Name() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return opNames[OpUnknown]
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Op       Op
	Word     uint16
	Operands []uint16
}

// Decode splits an instruction word into its opcode and operands. It never
// fails: a word that matches no instruction decodes to OpUnknown.
func Decode(word uint16) Instruction {
	addr := word & 0x0FFF
	x := (word & 0x0F00) >> 8
	y := (word & 0x00F0) >> 4
	n := word & 0x000F
	kk := word & 0x00FF

	withAddr := func(op Op) Instruction { return Instruction{Op: op, Word: word, Operands: []uint16{addr}} }
	withImm := func(op Op) Instruction { return Instruction{Op: op, Word: word, Operands: []uint16{x, kk}} }
	withRegs := func(op Op) Instruction { return Instruction{Op: op, Word: word, Operands: []uint16{x, y}} }
	withReg := func(op Op) Instruction { return Instruction{Op: op, Word: word, Operands: []uint16{x}} }

	switch word & 0xF000 {
	case 0x0000:
		switch word {
		case 0x00E0:
			return withAddr(OpCls)
		case 0x00EE:
			return withAddr(OpRts)
		}
		return withAddr(OpSys)

	case 0x1000:
		return withAddr(OpJmp)

	case 0x2000:
		return withAddr(OpJsr)

	case 0x3000:
		return withImm(OpSkipEqImm)

	case 0x4000:
		return withImm(OpSkipNeImm)

	case 0x5000:
		if n == 0 {
			return withRegs(OpSkipEqReg)
		}

	case 0x6000:
		return withImm(OpMovImm)

	case 0x7000:
		return withImm(OpAddImm)

	case 0x8000:
		switch n {
		case 0x0:
			return withRegs(OpMovReg)
		case 0x1:
			return withRegs(OpOr)
		case 0x2:
			return withRegs(OpAnd)
		case 0x3:
			return withRegs(OpXor)
		case 0x4:
			return withRegs(OpAddReg)
		case 0x5:
			return withRegs(OpSub)
		case 0x6:
			return withRegs(OpShr)
		case 0x7:
			return withRegs(OpRsb)
		case 0xE:
			return withRegs(OpShl)
		}

	case 0x9000:
		if n == 0 {
			return withRegs(OpSkipNeReg)
		}

	case 0xA000:
		return withAddr(OpMvi)

	case 0xB000:
		return withAddr(OpJmi)

	case 0xC000:
		return withImm(OpRand)

	case 0xD000:
		return Instruction{Op: OpSprite, Word: word, Operands: []uint16{x, y, n}}

	case 0xE000:
		switch kk {
		case 0x9E:
			return withReg(OpSkipPressed)
		case 0xA1:
			return withReg(OpSkipNotPressed)
		}

	case 0xF000:
		switch kk {
		case 0x07:
			return withReg(OpGetDelay)
		case 0x0A:
			return withReg(OpWaitKey)
		case 0x15:
			return withReg(OpSetDelay)
		case 0x18:
			return withReg(OpSetSound)
		case 0x1E:
			return withReg(OpAddIndex)
		case 0x29:
			return withReg(OpFont)
		case 0x33:
			return withReg(OpBCD)
		case 0x55:
			return withReg(OpStore)
		case 0x65:
			return withReg(OpLoad)
		}
	}

	return Instruction{Op: OpUnknown, Word: word}
}

// String renders the instruction in assembler syntax.
func (in Instruction) String() string {
	name := in.Op.Name()
	ops := in.Operands

	switch in.Op {
	case OpCls, OpRts:
		return name
	case OpSys, OpJmp, OpJsr, OpMvi, OpJmi:
		return fmt.Sprintf("%s 0x%04x", name, ops[0])
	case OpSkipEqImm, OpSkipNeImm, OpMovImm, OpAddImm:
		return fmt.Sprintf("%s v%x, %d", name, ops[0], ops[1])
	case OpRand:
		return fmt.Sprintf("%s v%x, 0x%02x", name, ops[0], ops[1])
	case OpSprite:
		return fmt.Sprintf("%s v%x, v%x, %d", name, ops[0], ops[1], ops[2])
	case OpSkipEqReg, OpSkipNeReg, OpMovReg, OpOr, OpAnd, OpXor, OpAddReg, OpSub, OpRsb:
		return fmt.Sprintf("%s v%x, v%x", name, ops[0], ops[1])
	case OpShr, OpShl:
		return fmt.Sprintf("%s v%x", name, ops[0])
	case OpStore, OpLoad:
		return fmt.Sprintf("%s v0-v%x", name, ops[0])
	case OpUnknown:
		return fmt.Sprintf("%s 0x%04X", name, in.Word)
	default:
		return fmt.Sprintf("%s v%x", name, ops[0])
	}
}
