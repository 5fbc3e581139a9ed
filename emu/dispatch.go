package emu

import "github.com/sarchlab/gbasim/insts"

type armHandler func(e *Emulator, instr uint32)

type thumbHandler func(e *Emulator, instr uint16)

// armTable is indexed by bits 27-20 and 7-4 of the instruction word.
var armTable [256 * 16]armHandler

// thumbTable is indexed by bits 15-8 of the instruction.
var thumbTable [16 * 16]thumbHandler

func init() {
	for row := uint32(0); row < 256; row++ {
		for col := uint32(0); col < 16; col++ {
			armTable[row<<4|col] = newARMHandler(insts.ClassifyARM(row, col))
		}
	}
	for row := uint32(0); row < 16; row++ {
		for col := uint32(0); col < 16; col++ {
			thumbTable[row<<4|col] = newThumbHandler(insts.ClassifyThumb(row, col), col)
		}
	}
}

func newARMHandler(c insts.Class) armHandler {
	switch c.Format {
	case insts.FormatDataProc:
		return armDataProc(c)
	case insts.FormatPSR:
		if c.Op == insts.OpMRS {
			return armMRS(c)
		}
		return armMSR(c)
	case insts.FormatMultiply:
		return armMultiply(c)
	case insts.FormatMultiplyLong:
		return armMultiplyLong(c)
	case insts.FormatSwap:
		return armSwap(c)
	case insts.FormatBranchExchange:
		return armBX
	case insts.FormatTransfer:
		return armTransfer(c)
	case insts.FormatHalfTransfer:
		return armHalfTransfer(c)
	case insts.FormatBlock:
		return armBlock(c)
	case insts.FormatBranch:
		return armBranch(c)
	case insts.FormatSWI:
		return armSWI
	default:
		return armUndefined
	}
}

func newThumbHandler(c insts.Class, col uint32) thumbHandler {
	switch c.Format {
	case insts.FormatThumbShift:
		return thumbShift(c)
	case insts.FormatThumbAddSub:
		return thumbAddSub(c)
	case insts.FormatThumbImm8:
		return thumbImm8(c, col&7)
	case insts.FormatThumbALU:
		return thumbALU
	case insts.FormatThumbHiReg:
		return thumbHiReg(c)
	case insts.FormatThumbBX:
		return thumbBX
	case insts.FormatThumbPCLoad:
		return thumbPCLoad(col & 7)
	case insts.FormatThumbRegOffset:
		return thumbRegOffset(c)
	case insts.FormatThumbImmOffset, insts.FormatThumbHalfImm:
		return thumbImmOffset(c)
	case insts.FormatThumbSPRelative:
		return thumbSPRelative(c, col&7)
	case insts.FormatThumbLoadAddress:
		return thumbLoadAddress(c, col&7)
	case insts.FormatThumbAdjustSP:
		return thumbAdjustSP
	case insts.FormatThumbPushPop:
		return thumbPushPop(c)
	case insts.FormatThumbMultiple:
		return thumbMultiple(c, col&7)
	case insts.FormatThumbCondBranch:
		return thumbCondBranch(Cond(col))
	case insts.FormatThumbSWI:
		return thumbSWI
	case insts.FormatThumbBranch:
		return thumbBranch
	case insts.FormatThumbLongBranch:
		if c.Op == insts.OpBLPrefix {
			return thumbBLPrefix
		}
		return thumbBLSuffix
	default:
		return thumbUndefined
	}
}

func armUndefined(e *Emulator, instr uint32) {
	e.undefined(instr)
}

func thumbUndefined(e *Emulator, instr uint16) {
	e.undefined(uint32(instr))
}
