package vm

import (
	"context"
	"fmt"
	"log/slog"
)

// flow tells executeOpcode how to move the program counter after a handler.
type flow uint8

const (
	flowNext flow = iota // advance to the next instruction
	flowSkip             // skip the next instruction
	flowJump             // handler already set PC
	flowWait             // stay on this instruction
)

func (vm *VM) executeOpcode() error {
	pc := vm.regs.PC

	word, err := vm.memory.Word(int(pc))
	if err != nil {
		return fmt.Errorf("fetch at 0x%04x: %w", pc, err)
	}

	instr := Decode(word)

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", pc),
			"opcode", fmt.Sprintf("0x%04x", word),
			"instr", instr.String(),
		)
	}

	f, err := vm.execute(instr)
	if err != nil {
		return fmt.Errorf("exec 0x%04x at 0x%04x: %w", word, pc, err)
	}

	switch f {
	case flowNext:
		vm.regs.PC = (pc + InstructionSize) & addrMask
	case flowSkip:
		vm.regs.PC = (pc + 2*InstructionSize) & addrMask
	}

	return nil
}

func (vm *VM) execute(instr Instruction) (flow, error) {
	ops := instr.Operands
	r := &vm.regs

	switch instr.Op {
	// 00E0	cls	Clear the screen
	case OpCls:
		vm.display.Clear()
		vm.drawFlag = true
		return flowNext, nil

	// 00EE	rts	return from subroutine call
	case OpRts:
		addr, err := vm.stack.Pop()
		if err != nil {
			return flowJump, err
		}
		r.PC = addr
		return flowJump, nil

	// 1xxx	jmp xxx	jump to address xxx
	case OpJmp:
		r.PC = ops[0]
		return flowJump, nil

	// 2xxx	jsr xxx	jump to subroutine at address xxx
	case OpJsr:
		if err := vm.stack.Push((r.PC + InstructionSize) & addrMask); err != nil {
			return flowJump, err
		}
		r.PC = ops[0]
		return flowJump, nil

	// 3rxx	skeq vr,xx	skip if register r = constant
	case OpSkipEqImm:
		return skipIf(r.V[ops[0]] == uint8(ops[1])), nil

	// 4rxx	skne vr,xx	skip if register r <> constant
	case OpSkipNeImm:
		return skipIf(r.V[ops[0]] != uint8(ops[1])), nil

	// 5ry0	skeq vr,vy	skip if register r = register y
	case OpSkipEqReg:
		return skipIf(r.V[ops[0]] == r.V[ops[1]]), nil

	// 9ry0	skne vr,vy	skip if register r <> register y
	case OpSkipNeReg:
		return skipIf(r.V[ops[0]] != r.V[ops[1]]), nil

	// 6rxx	mov vr,xx	move constant to register r
	case OpMovImm:
		r.V[ops[0]] = uint8(ops[1])
		return flowNext, nil

	// 7rxx	add vr,xx	add constant to register r	No carry generated
	case OpAddImm:
		r.V[ops[0]] += uint8(ops[1])
		return flowNext, nil

	// 8ry0	mov vr,vy	move register vy into vr
	case OpMovReg:
		r.V[ops[0]] = r.V[ops[1]]
		return flowNext, nil

	// 8ry1	or rx,ry	or register vy into register vx
	case OpOr:
		r.V[ops[0]] |= r.V[ops[1]]
		vm.logicFlag()
		return flowNext, nil

	// 8ry2	and rx,ry	and register vy into register vx
	case OpAnd:
		r.V[ops[0]] &= r.V[ops[1]]
		vm.logicFlag()
		return flowNext, nil

	// 8ry3	xor rx,ry	exclusive or register ry into register rx
	case OpXor:
		r.V[ops[0]] ^= r.V[ops[1]]
		vm.logicFlag()
		return flowNext, nil

	// 8ry4	add vr,vy	add register vy to vr,carry in vf
	case OpAddReg:
		sum := uint16(r.V[ops[0]]) + uint16(r.V[ops[1]])
		r.V[ops[0]] = uint8(sum)
		r.setFlag(sum > 0xFF)
		return flowNext, nil

	// 8ry5	sub vr,vy	subtract register vy from vr,vf set to 1 if no borrow
	case OpSub:
		x, y := r.V[ops[0]], r.V[ops[1]]
		r.V[ops[0]] = x - y
		r.setFlag(x >= y)
		return flowNext, nil

	// 8ry7	rsb vr,vy	subtract register vr from register vy, result in vr
	case OpRsb:
		x, y := r.V[ops[0]], r.V[ops[1]]
		r.V[ops[0]] = y - x
		r.setFlag(y >= x)
		return flowNext, nil

	// 8ry6	shr vr	shift register vr right, bit 0 goes into register vf
	case OpShr:
		src := vm.shiftSource(ops)
		r.V[ops[0]] = src >> 1
		r.V[flagRegister] = src & 0x1
		return flowNext, nil

	// 8rye	shl vr	shift register vr left, bit 7 goes into register vf
	case OpShl:
		src := vm.shiftSource(ops)
		r.V[ops[0]] = src << 1
		r.V[flagRegister] = src >> 7
		return flowNext, nil

	// axxx	mvi xxx	Load index register with constant xxx
	case OpMvi:
		r.I = ops[0]
		return flowNext, nil

	// bxxx	jmi xxx	Jump to address xxx+register v0
	case OpJmi:
		offset := r.V[0]
		if vm.quirks.JumpUsesVX {
			offset = r.V[ops[0]>>8]
		}
		r.PC = (ops[0] + uint16(offset)) & addrMask
		return flowJump, nil

	// crxx	rand vr,xx	vr = random number masked by xx
	case OpRand:
		r.V[ops[0]] = uint8(vm.random.Uint32()) & uint8(ops[1])
		return flowNext, nil

	// drys	sprite rx,ry,s	Draw sprite at screen location rx,ry height s
	case OpSprite:
		return flowNext, vm.sprite(ops[0], ops[1], ops[2])

	// ek9e	skpr k	skip if key (register rk) pressed
	case OpSkipPressed:
		return skipIf(vm.input.isHeld(r.V[ops[0]])), nil

	// eka1	skup k	skip if key (register rk) not pressed
	case OpSkipNotPressed:
		return skipIf(!vm.input.isHeld(r.V[ops[0]])), nil

	// fr07	gdelay vr	get delay timer into vr
	case OpGetDelay:
		r.V[ops[0]] = r.Delay
		return flowNext, nil

	// fr0a	key vr	wait for for keypress,put key in register vr
	case OpWaitKey:
		if key, ok := vm.input.takePressed(); ok {
			r.V[ops[0]] = uint8(key)
			return flowNext, nil
		}
		vm.input.waiting = true
		vm.waitRegister = ops[0]
		return flowWait, nil

	// fr15	sdelay vr	set the delay timer to vr
	case OpSetDelay:
		r.Delay = r.V[ops[0]]
		return flowNext, nil

	// fr18	ssound vr	set the sound timer to vr
	case OpSetSound:
		r.Sound = r.V[ops[0]]
		return flowNext, nil

	// fr1e	adi vr	add register vr to the index register
	case OpAddIndex:
		vm.addIndex(r.V[ops[0]])
		return flowNext, nil

	// fr29	font vr	point I to the sprite for hexadecimal character in vr
	case OpFont:
		r.I = FontStart + uint16(r.V[ops[0]])*FontGlyphSize
		return flowNext, nil

	// fr33	bcd vr	store the bcd representation of register vr at location I,I+1,I+2
	case OpBCD:
		return flowNext, vm.storeBCD(r.V[ops[0]])

	// fr55	str v0-vr	store registers v0-vr at location I onwards
	case OpStore:
		return flowNext, vm.storeRegisters(ops[0])

	// fr65	ldr v0-vr	load registers v0-vr from location I onwards
	case OpLoad:
		return flowNext, vm.loadRegisters(ops[0])

	case OpSys:
		return flowWait, fmt.Errorf("%w: machine code call %s", ErrIllegalOpcode, instr)
	}

	return flowWait, fmt.Errorf("%w: 0x%04X", ErrIllegalOpcode, instr.Word)
}

func skipIf(cond bool) flow {
	if cond {
		return flowSkip
	}
	return flowNext
}

func (vm *VM) logicFlag() {
	if vm.quirks.LogicResetsFlag {
		vm.regs.V[flagRegister] = 0
	}
}

func (vm *VM) shiftSource(ops []uint16) uint8 {
	if vm.quirks.ShiftUsesVY {
		return vm.regs.V[ops[1]]
	}
	return vm.regs.V[ops[0]]
}

func (vm *VM) addIndex(v uint8) {
	sum := uint32(vm.regs.I) + uint32(v)

	if vm.quirks.IndexOverflowFlag {
		vm.regs.setFlag(sum > addrMask)
	}

	if vm.quirks.IndexWrap {
		sum &= addrMask
	}
	vm.regs.I = uint16(sum)
}

// sprite draws the n-byte sprite at I. Sprites are 8 pixels wide, XOR drawn
// and wrap around the screen. VF reports whether a lit pixel was cleared.
func (vm *VM) sprite(vX, vY, n uint16) error {
	rows, err := vm.memory.Slice(int(vm.regs.I), int(n))
	if err != nil {
		return fmt.Errorf("read sprite: %w", err)
	}

	x, y := int(vm.regs.V[vX]), int(vm.regs.V[vY])
	collided := vm.display.DrawSprite(x, y, rows)

	vm.regs.setFlag(collided)
	vm.drawFlag = true
	return nil
}

func (vm *VM) storeBCD(v uint8) error {
	digits, err := StoreBCD(int(v))
	if err != nil {
		return err
	}

	for i, d := range digits {
		if err := vm.memory.SetByte(int(vm.regs.I)+i, d); err != nil {
			return err
		}
	}
	return nil
}

// StoreBCD splits v into its hundreds, tens and ones digits.
func StoreBCD(v int) ([3]uint8, error) {
	if v < 0 || v > 0xFF {
		return [3]uint8{}, fmt.Errorf("%w: bcd of %d", ErrInvalidValue, v)
	}
	return [3]uint8{uint8(v / 100), uint8(v / 10 % 10), uint8(v % 10)}, nil
}

func (vm *VM) storeRegisters(n uint16) error {
	for i := uint16(0); i <= n; i++ {
		if err := vm.memory.SetByte(int(vm.regs.I)+int(i), vm.regs.V[i]); err != nil {
			return err
		}
	}

	// The COSMAC VIP interpreter left I = I + X + 1 behind.
	if vm.quirks.LoadStoreIncrementsIndex {
		vm.regs.I += n + 1
	}
	return nil
}

func (vm *VM) loadRegisters(n uint16) error {
	for i := uint16(0); i <= n; i++ {
		v, err := vm.memory.Byte(int(vm.regs.I) + int(i))
		if err != nil {
			return err
		}
		vm.regs.V[i] = v
	}

	if vm.quirks.LoadStoreIncrementsIndex {
		vm.regs.I += n + 1
	}
	return nil
}
