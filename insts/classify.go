package insts

// ARMRow returns the row index of an ARM word (bits 27-20).
func ARMRow(word uint32) uint32 { return (word >> 20) & 0xFF }

// ARMCol returns the column index of an ARM word (bits 7-4).
func ARMCol(word uint32) uint32 { return (word >> 4) & 0xF }

// ThumbRow returns the row index of a Thumb halfword (bits 15-12).
func ThumbRow(half uint16) uint32 { return uint32(half>>12) & 0xF }

// ThumbCol returns the column index of a Thumb halfword (bits 11-8).
func ThumbCol(half uint16) uint32 { return uint32(half>>8) & 0xF }

// ClassifyARM returns the class of the ARM table slot (row, col).
func ClassifyARM(row, col uint32) Class {
	row &= 0xFF
	col &= 0xF

	switch row >> 5 {
	case 0b000:
		return classifyRegisterGroup(row, col)
	case 0b001:
		return classifyImmediateGroup(row)
	case 0b010:
		return transferClass(row, OperandImm, 0)
	case 0b011:
		if col&1 != 0 {
			return Undefined
		}
		return transferClass(row, OperandRegImmShift, uint8(col>>1)&3)
	case 0b100:
		op := OpSTM
		if row&1 != 0 {
			op = OpLDM
		}
		return Class{
			Op:        op,
			Format:    FormatBlock,
			Pre:       row&0x10 != 0,
			Up:        row&0x08 != 0,
			S:         row&0x04 != 0,
			Writeback: row&0x02 != 0,
			Load:      row&0x01 != 0,
		}
	case 0b101:
		if row&0x10 != 0 {
			return Class{Op: OpBL, Format: FormatBranch, Link: true}
		}
		return Class{Op: OpB, Format: FormatBranch}
	case 0b110:
		return Class{Op: OpCoprocessor, Format: FormatCoprocessor}
	default:
		if row&0x10 != 0 {
			return Class{Op: OpSWI, Format: FormatSWI}
		}
		return Class{Op: OpCoprocessor, Format: FormatCoprocessor}
	}
}

// classifyRegisterGroup handles bits 27-25 = 000: data processing with a
// register operand, multiplies, swaps, halfword transfers and the
// miscellaneous TST/TEQ/CMP/CMN-without-S space.
func classifyRegisterGroup(row, col uint32) Class {
	if col&0x9 == 0x9 {
		if col == 0x9 {
			return classifyMultiplySwap(row)
		}
		return classifyHalfword(row, col)
	}

	// Test ops without S encode PSR transfers and BX.
	if row&0x19 == 0x10 {
		return classifyMisc(row, col)
	}

	c := Class{
		Op:     DataOp(row >> 1),
		Format: FormatDataProc,
		S:      row&1 != 0,
		Shift:  uint8(col>>1) & 3,
	}
	if col&1 != 0 {
		c.Operand = OperandRegRegShift
	} else {
		c.Operand = OperandRegImmShift
	}
	return c
}

func classifyMultiplySwap(row uint32) Class {
	switch {
	case row <= 0x03:
		op := OpMUL
		if row&0x02 != 0 {
			op = OpMLA
		}
		return Class{Op: op, Format: FormatMultiply, S: row&1 != 0}
	case row >= 0x08 && row <= 0x0F:
		ops := [4]Op{OpUMULL, OpUMLAL, OpSMULL, OpSMLAL}
		return Class{
			Op:     ops[(row>>1)&3],
			Format: FormatMultiplyLong,
			S:      row&1 != 0,
		}
	case row == 0x10:
		return Class{Op: OpSWP, Format: FormatSwap}
	case row == 0x14:
		return Class{Op: OpSWPB, Format: FormatSwap}
	default:
		return Undefined
	}
}

func classifyHalfword(row, col uint32) Class {
	load := row&0x01 != 0
	var op Op
	switch (col >> 1) & 3 {
	case 1:
		op = OpSTRH
		if load {
			op = OpLDRH
		}
	case 2:
		if !load {
			return Undefined
		}
		op = OpLDRSB
	default:
		if !load {
			return Undefined
		}
		op = OpLDRSH
	}

	operand := OperandRegImmShift
	if row&0x04 != 0 {
		operand = OperandImm
	}
	return Class{
		Op:        op,
		Format:    FormatHalfTransfer,
		Operand:   operand,
		Pre:       row&0x10 != 0,
		Up:        row&0x08 != 0,
		Writeback: row&0x02 != 0,
		Load:      load,
	}
}

func classifyMisc(row, col uint32) Class {
	spsr := row&0x04 != 0
	switch {
	case col == 0 && row&0x02 == 0:
		return Class{Op: OpMRS, Format: FormatPSR, S: spsr}
	case col == 0:
		return Class{Op: OpMSR, Format: FormatPSR, S: spsr, Operand: OperandRegImmShift}
	case col == 1 && row == 0x12:
		return Class{Op: OpBX, Format: FormatBranchExchange}
	default:
		return Undefined
	}
}

func classifyImmediateGroup(row uint32) Class {
	if row&0x19 == 0x10 {
		if row&0x02 == 0 {
			return Undefined
		}
		return Class{Op: OpMSR, Format: FormatPSR, S: row&0x04 != 0, Operand: OperandImm}
	}
	return Class{
		Op:      DataOp(row >> 1),
		Format:  FormatDataProc,
		Operand: OperandImm,
		S:       row&1 != 0,
	}
}

func transferClass(row uint32, operand OperandForm, shift uint8) Class {
	load := row&0x01 != 0
	byteWide := row&0x04 != 0

	var op Op
	switch {
	case load && byteWide:
		op = OpLDRB
	case load:
		op = OpLDR
	case byteWide:
		op = OpSTRB
	default:
		op = OpSTR
	}

	return Class{
		Op:        op,
		Format:    FormatTransfer,
		Operand:   operand,
		Shift:     shift,
		Pre:       row&0x10 != 0,
		Up:        row&0x08 != 0,
		Writeback: row&0x02 != 0,
		Load:      load,
	}
}

// ThumbALU is the ALU sub-table, indexed by bits 9-8 and 7-6 of the
// instruction.
var ThumbALU = [4][4]Op{
	{OpAND, OpEOR, OpLSL, OpLSR},
	{OpASR, OpADC, OpSBC, OpROR},
	{OpTST, OpNEG, OpCMP, OpCMN},
	{OpORR, OpMUL, OpBIC, OpMVN},
}

// ThumbALUOp returns the ALU operation of a Thumb ALU-group halfword.
func ThumbALUOp(half uint16) Op {
	return ThumbALU[(half>>8)&3][(half>>6)&3]
}

// ClassifyThumb returns the class of the Thumb table slot (row, col). For the
// ALU group the returned Op is OpUndefined; use ThumbALUOp to resolve it.
func ClassifyThumb(row, col uint32) Class {
	row &= 0xF
	col &= 0xF
	hi := col&0x8 != 0

	switch row {
	case 0x0:
		if hi {
			return Class{Op: OpLSR, Format: FormatThumbShift}
		}
		return Class{Op: OpLSL, Format: FormatThumbShift}
	case 0x1:
		if !hi {
			return Class{Op: OpASR, Format: FormatThumbShift}
		}
		c := Class{Op: OpADD, Format: FormatThumbAddSub, Operand: OperandRegImmShift}
		if col&0x2 != 0 {
			c.Op = OpSUB
		}
		if col&0x4 != 0 {
			c.Operand = OperandImm
		}
		return c
	case 0x2:
		if hi {
			return Class{Op: OpCMP, Format: FormatThumbImm8, S: true}
		}
		return Class{Op: OpMOV, Format: FormatThumbImm8, S: true}
	case 0x3:
		if hi {
			return Class{Op: OpSUB, Format: FormatThumbImm8, S: true}
		}
		return Class{Op: OpADD, Format: FormatThumbImm8, S: true}
	case 0x4:
		return classifyThumbRow4(col)
	case 0x5:
		ops := [8]Op{OpSTR, OpSTRH, OpSTRB, OpLDRSB, OpLDR, OpLDRH, OpLDRB, OpLDRSH}
		op := ops[col>>1]
		return Class{Op: op, Format: FormatThumbRegOffset, Load: hi || op == OpLDRSB}
	case 0x6:
		return thumbLoadStore(OpSTR, OpLDR, FormatThumbImmOffset, hi)
	case 0x7:
		return thumbLoadStore(OpSTRB, OpLDRB, FormatThumbImmOffset, hi)
	case 0x8:
		return thumbLoadStore(OpSTRH, OpLDRH, FormatThumbHalfImm, hi)
	case 0x9:
		c := thumbLoadStore(OpSTR, OpLDR, FormatThumbSPRelative, hi)
		c.SP = true
		return c
	case 0xA:
		return Class{Op: OpADD, Format: FormatThumbLoadAddress, SP: hi}
	case 0xB:
		return classifyThumbRowB(col)
	case 0xC:
		if hi {
			return Class{Op: OpLDM, Format: FormatThumbMultiple, Load: true, Writeback: true, Up: true}
		}
		return Class{Op: OpSTM, Format: FormatThumbMultiple, Writeback: true, Up: true}
	case 0xD:
		switch col {
		case 0xE:
			return Undefined
		case 0xF:
			return Class{Op: OpSWI, Format: FormatThumbSWI}
		default:
			return Class{Op: OpBCond, Format: FormatThumbCondBranch}
		}
	case 0xE:
		if hi {
			return Undefined
		}
		return Class{Op: OpB, Format: FormatThumbBranch}
	default:
		if hi {
			return Class{Op: OpBLSuffix, Format: FormatThumbLongBranch, Link: true}
		}
		return Class{Op: OpBLPrefix, Format: FormatThumbLongBranch}
	}
}

func thumbLoadStore(store, load Op, f Format, isLoad bool) Class {
	if isLoad {
		return Class{Op: load, Format: f, Load: true}
	}
	return Class{Op: store, Format: f}
}

func classifyThumbRow4(col uint32) Class {
	switch {
	case col < 4:
		return Class{Op: OpUndefined, Format: FormatThumbALU, S: true}
	case col == 4:
		return Class{Op: OpADD, Format: FormatThumbHiReg}
	case col == 5:
		return Class{Op: OpCMP, Format: FormatThumbHiReg, S: true}
	case col == 6:
		return Class{Op: OpMOV, Format: FormatThumbHiReg}
	case col == 7:
		return Class{Op: OpBX, Format: FormatThumbBX}
	default:
		return Class{Op: OpLDR, Format: FormatThumbPCLoad, Load: true}
	}
}

func classifyThumbRowB(col uint32) Class {
	switch col {
	case 0x0:
		return Class{Op: OpADD, Format: FormatThumbAdjustSP, SP: true}
	case 0x4:
		return Class{Op: OpPUSH, Format: FormatThumbPushPop}
	case 0x5:
		return Class{Op: OpPUSH, Format: FormatThumbPushPop, Link: true}
	case 0xC:
		return Class{Op: OpPOP, Format: FormatThumbPushPop, Load: true}
	case 0xD:
		return Class{Op: OpPOP, Format: FormatThumbPushPop, Load: true, Link: true}
	default:
		return Undefined
	}
}
