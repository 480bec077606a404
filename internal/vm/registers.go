package vm

// Registers is the CPU register file.
type Registers struct {
	V [RegisterCount]uint8 // V registers (V0-VF), VF doubles as the flag register

	I  uint16 // Index register
	PC uint16 // Program counter

	Delay uint8 // Delay timer
	Sound uint8 // Sound timer
}

const flagRegister = 0x0F

func (r *Registers) reset() {
	*r = Registers{
		I:  ProgramStart,
		PC: ProgramStart,
	}
}

// tick counts both timers down, stopping at zero.
func (r *Registers) tick() {
	if r.Delay > 0 {
		r.Delay--
	}
	if r.Sound > 0 {
		r.Sound--
	}
}

func (r *Registers) setFlag(set bool) {
	if set {
		r.V[flagRegister] = 1
	} else {
		r.V[flagRegister] = 0
	}
}
