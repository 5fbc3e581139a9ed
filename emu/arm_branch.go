package emu

import "github.com/sarchlab/gbasim/insts"

func armBranch(c insts.Class) armHandler {
	if c.Link {
		return func(e *Emulator, instr uint32) {
			pc := e.regFile.Get(PC)
			offset := uint32(int32(instr<<8) >> 6)
			e.branchUnit.BL(pc+offset, pc-4)
		}
	}
	return func(e *Emulator, instr uint32) {
		offset := uint32(int32(instr<<8) >> 6)
		e.branchUnit.B(e.regFile.Get(PC) + offset)
	}
}

func armBX(e *Emulator, instr uint32) {
	e.branchUnit.BX(e.regFile.Get(instr & 0xF))
}

func armSWI(e *Emulator, _ uint32) {
	e.swi()
}
