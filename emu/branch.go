package emu

// BranchUnit implements control transfers for the emulator.
type BranchUnit struct {
	e *Emulator
}

// NewBranchUnit creates a new BranchUnit attached to the given emulator.
func NewBranchUnit(e *Emulator) *BranchUnit {
	return &BranchUnit{e: e}
}

// B branches to target. The refill is charged when the instruction retires.
func (b *BranchUnit) B(target uint32) {
	b.e.branchTo(target)
}

// BL saves the return address in LR, then branches to target.
func (b *BranchUnit) BL(target, ret uint32) {
	b.e.regFile.Set(LR, ret)
	b.e.branchTo(target)
}

// BX branches to the address in a register; bit 0 selects the Thumb state.
func (b *BranchUnit) BX(addr uint32) {
	b.e.regFile.PutFlag(FlagT, addr&1 != 0)
	b.e.branchTo(addr)
}
