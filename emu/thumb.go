package emu

import "github.com/sarchlab/gbasim/insts"

// Thumb handlers see r15 four bytes ahead of the executing instruction.

func lo3(instr uint16, shift uint) uint32 {
	return uint32(instr>>shift) & 7
}

func thumbShift(c insts.Class) thumbHandler {
	st := ShiftLSL
	switch c.Op {
	case insts.OpLSR:
		st = ShiftLSR
	case insts.OpASR:
		st = ShiftASR
	}

	return func(e *Emulator, instr uint16) {
		amount := uint32(instr>>6) & 0x1F
		v, carry := ShiftImm(st, e.regFile.Get(lo3(instr, 3)), amount, e.regFile.GetFlag(FlagC))
		e.alu.MOV(0, v, carry, true)
		e.regFile.Set(lo3(instr, 0), v)
	}
}

func thumbAddSub(c insts.Class) thumbHandler {
	sub := c.Op == insts.OpSUB
	imm := c.Operand == insts.OperandImm

	return func(e *Emulator, instr uint16) {
		op1 := e.regFile.Get(lo3(instr, 3))
		op2 := lo3(instr, 6)
		if !imm {
			op2 = e.regFile.Get(op2)
		}

		var result uint32
		if sub {
			result = e.alu.SUB(op1, op2, false, true)
		} else {
			result = e.alu.ADD(op1, op2, false, true)
		}
		e.regFile.Set(lo3(instr, 0), result)
	}
}

func thumbImm8(c insts.Class, rd uint32) thumbHandler {
	switch c.Op {
	case insts.OpMOV:
		return func(e *Emulator, instr uint16) {
			e.regFile.Set(rd, e.alu.MOV(0, uint32(instr&0xFF), e.regFile.GetFlag(FlagC), true))
		}
	case insts.OpCMP:
		return func(e *Emulator, instr uint16) {
			e.alu.CMP(e.regFile.Get(rd), uint32(instr&0xFF))
		}
	case insts.OpADD:
		return func(e *Emulator, instr uint16) {
			e.regFile.Set(rd, e.alu.ADD(e.regFile.Get(rd), uint32(instr&0xFF), false, true))
		}
	default:
		return func(e *Emulator, instr uint16) {
			e.regFile.Set(rd, e.alu.SUB(e.regFile.Get(rd), uint32(instr&0xFF), false, true))
		}
	}
}

// thumbALUHandlers is the ALU group sub-table, in the layout of
// insts.ThumbALU.
var thumbALUHandlers [4][4]func(e *Emulator, rd, rs uint32)

func init() {
	for i := range insts.ThumbALU {
		for j, op := range insts.ThumbALU[i] {
			thumbALUHandlers[i][j] = newThumbALUOp(op)
		}
	}
}

func thumbALU(e *Emulator, instr uint16) {
	thumbALUHandlers[(instr>>8)&3][(instr>>6)&3](e, lo3(instr, 0), lo3(instr, 3))
}

func thumbShiftReg(st ShiftType) func(e *Emulator, rd, rs uint32) {
	return func(e *Emulator, rd, rs uint32) {
		e.clock.Internal(1)
		v, carry := ShiftReg(st, e.regFile.Get(rd), e.regFile.Get(rs), e.regFile.GetFlag(FlagC))
		e.alu.MOV(0, v, carry, true)
		e.regFile.Set(rd, v)
	}
}

func thumbALUStore(op aluOp) func(e *Emulator, rd, rs uint32) {
	return func(e *Emulator, rd, rs uint32) {
		carry := e.regFile.GetFlag(FlagC)
		e.regFile.Set(rd, op(e.alu, e.regFile.Get(rd), e.regFile.Get(rs), carry, true))
	}
}

func thumbALUTest(op aluOp) func(e *Emulator, rd, rs uint32) {
	return func(e *Emulator, rd, rs uint32) {
		op(e.alu, e.regFile.Get(rd), e.regFile.Get(rs), e.regFile.GetFlag(FlagC), true)
	}
}

func newThumbALUOp(op insts.Op) func(e *Emulator, rd, rs uint32) {
	switch op {
	case insts.OpLSL:
		return thumbShiftReg(ShiftLSL)
	case insts.OpLSR:
		return thumbShiftReg(ShiftLSR)
	case insts.OpASR:
		return thumbShiftReg(ShiftASR)
	case insts.OpROR:
		return thumbShiftReg(ShiftROR)
	case insts.OpNEG:
		return func(e *Emulator, rd, rs uint32) {
			e.regFile.Set(rd, e.alu.SUB(0, e.regFile.Get(rs), false, true))
		}
	case insts.OpMUL:
		return func(e *Emulator, rd, rs uint32) {
			op1 := e.regFile.Get(rd)
			e.clock.Internal(MultiplyCycles(op1, true))
			e.regFile.Set(rd, e.alu.MUL(op1, e.regFile.Get(rs), true))
		}
	case insts.OpTST, insts.OpCMP, insts.OpCMN:
		return thumbALUTest(aluOps[op])
	default:
		return thumbALUStore(aluOps[op])
	}
}

func thumbHiReg(c insts.Class) thumbHandler {
	op := c.Op
	return func(e *Emulator, instr uint16) {
		rd := uint32(instr&7) | uint32(instr>>4)&8
		rs := uint32(instr>>3) & 0xF
		v := e.regFile.Get(rs)

		switch op {
		case insts.OpADD:
			e.writeReg(rd, e.regFile.Get(rd)+v)
		case insts.OpCMP:
			e.alu.CMP(e.regFile.Get(rd), v)
		default:
			e.writeReg(rd, v)
		}
	}
}

func thumbBX(e *Emulator, instr uint16) {
	e.branchUnit.BX(e.regFile.Get(uint32(instr>>3) & 0xF))
}

func thumbCondBranch(cond Cond) thumbHandler {
	return func(e *Emulator, instr uint16) {
		if !e.regFile.CheckCondition(cond) {
			return
		}
		offset := uint32(int32(int8(instr)) << 1)
		e.branchUnit.B(e.regFile.Get(PC) + offset)
	}
}

func thumbBranch(e *Emulator, instr uint16) {
	offset := uint32(int32(uint32(instr)<<21) >> 20)
	e.branchUnit.B(e.regFile.Get(PC) + offset)
}

// thumbBLPrefix stages the upper half of a long branch offset in LR.
func thumbBLPrefix(e *Emulator, instr uint16) {
	offset := uint32(int32(uint32(instr)<<21) >> 9)
	e.regFile.Set(LR, e.regFile.Get(PC)+offset)
}

// thumbBLSuffix completes a long branch: the target is LR plus the lower
// half of the offset, and LR receives the return address with bit 0 set.
func thumbBLSuffix(e *Emulator, instr uint16) {
	target := e.regFile.Get(LR) + uint32(instr&0x7FF)<<1
	e.branchUnit.BL(target, (e.regFile.Get(PC)-2)|1)
}

func thumbSWI(e *Emulator, _ uint16) {
	e.swi()
}

func thumbAdjustSP(e *Emulator, instr uint16) {
	offset := uint32(instr&0x7F) << 2
	sp := e.regFile.Get(SP)
	if instr&0x80 != 0 {
		e.regFile.Set(SP, sp-offset)
	} else {
		e.regFile.Set(SP, sp+offset)
	}
}

func thumbLoadAddress(c insts.Class, rd uint32) thumbHandler {
	if c.SP {
		return func(e *Emulator, instr uint16) {
			e.regFile.Set(rd, e.regFile.Get(SP)+uint32(instr&0xFF)<<2)
		}
	}
	return func(e *Emulator, instr uint16) {
		e.regFile.Set(rd, e.regFile.Get(PC)&^3+uint32(instr&0xFF)<<2)
	}
}
