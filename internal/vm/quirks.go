package vm

// Quirks selects between behaviours that historical CHIP-8 interpreters
// disagree on.
type Quirks struct {
	// 8XY6/8XYE shift VY and store the result in VX.
	ShiftUsesVY bool `json:"shift_uses_vy"`
	// FX1E sets VF when I+VX leaves the 12-bit address space.
	IndexOverflowFlag bool `json:"index_overflow_flag"`
	// FX1E wraps I modulo 4096.
	IndexWrap bool `json:"index_wrap"`
	// FX55/FX65 leave I pointing past the last register transferred.
	LoadStoreIncrementsIndex bool `json:"load_store_increments_index"`
	// BXNN jumps to XNN+VX instead of NNN+V0.
	JumpUsesVX bool `json:"jump_uses_vx"`
	// 8XY1, 8XY2 and 8XY3 reset VF.
	LogicResetsFlag bool `json:"logic_resets_flag"`
}

func DefaultQuirks() Quirks {
	return Quirks{
		IndexOverflowFlag: true,
		IndexWrap:         true,
	}
}
