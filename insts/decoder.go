package insts

import (
	"fmt"
	"math/bits"
	"strings"
)

// Decoder decodes ARM and Thumb machine code into instructions.
type Decoder struct {
	arm   [256 * 16]Class
	thumb [16 * 16]Class
}

// NewDecoder creates a decoder with precomputed class tables.
func NewDecoder() *Decoder {
	d := &Decoder{}
	for row := uint32(0); row < 256; row++ {
		for col := uint32(0); col < 16; col++ {
			d.arm[row<<4|col] = ClassifyARM(row, col)
		}
	}
	for row := uint32(0); row < 16; row++ {
		for col := uint32(0); col < 16; col++ {
			d.thumb[row<<4|col] = ClassifyThumb(row, col)
		}
	}
	return d
}

// DecodeARM decodes a 32-bit ARM instruction word.
func (d *Decoder) DecodeARM(word uint32) *Instruction {
	inst := &Instruction{
		Class: d.arm[ARMRow(word)<<4|ARMCol(word)],
		Word:  word,
		Cond:  uint8(word >> 28),
	}

	rd := uint8(word>>12) & 0xF
	rn := uint8(word>>16) & 0xF
	rs := uint8(word>>8) & 0xF
	rm := uint8(word) & 0xF

	switch inst.Format {
	case FormatDataProc:
		inst.Rd, inst.Rn, inst.Rs, inst.Rm = rd, rn, rs, rm
		if inst.Operand == OperandImm {
			inst.Imm = bits.RotateLeft32(word&0xFF, -int((word>>8)&0xF)*2)
		} else {
			inst.Imm = (word >> 7) & 0x1F
		}
	case FormatPSR:
		inst.Rd, inst.Rm = rd, rm
		inst.PSRMask = uint8(word>>16) & 0xF
		if inst.Operand == OperandImm {
			inst.Imm = bits.RotateLeft32(word&0xFF, -int((word>>8)&0xF)*2)
		}
	case FormatMultiply:
		inst.Rd, inst.Rn, inst.Rs, inst.Rm = rn, rd, rs, rm
	case FormatMultiplyLong:
		inst.RdHi, inst.RdLo, inst.Rs, inst.Rm = rn, rd, rs, rm
	case FormatSwap:
		inst.Rd, inst.Rn, inst.Rm = rd, rn, rm
	case FormatBranchExchange:
		inst.Rm = rm
	case FormatTransfer:
		inst.Rd, inst.Rn, inst.Rm = rd, rn, rm
		if inst.Operand == OperandImm {
			inst.Imm = word & 0xFFF
		} else {
			inst.Imm = (word >> 7) & 0x1F
		}
	case FormatHalfTransfer:
		inst.Rd, inst.Rn, inst.Rm = rd, rn, rm
		if inst.Operand == OperandImm {
			inst.Imm = (word>>4)&0xF0 | word&0xF
		}
	case FormatBlock:
		inst.Rn = rn
		inst.RegList = uint16(word)
	case FormatBranch:
		inst.Offset = int32(word<<8) >> 6
	case FormatSWI:
		inst.Imm = word & 0xFFFFFF
	}

	return inst
}

// DecodeThumb decodes a 16-bit Thumb instruction.
func (d *Decoder) DecodeThumb(half uint16) *Instruction {
	inst := &Instruction{
		Class: d.thumb[ThumbRow(half)<<4|ThumbCol(half)],
		Word:  uint32(half),
		Thumb: true,
		Cond:  0xE,
	}

	h := uint32(half)
	lo3 := uint8(h) & 7
	mid3 := uint8(h>>3) & 7
	hi3 := uint8(h>>8) & 7

	switch inst.Format {
	case FormatThumbShift:
		inst.Rd, inst.Rm = lo3, mid3
		inst.Imm = (h >> 6) & 0x1F
	case FormatThumbAddSub:
		inst.Rd, inst.Rn = lo3, mid3
		inst.Rm = uint8(h>>6) & 7
		inst.Imm = (h >> 6) & 7
	case FormatThumbImm8:
		inst.Rd, inst.Rn = hi3, hi3
		inst.Imm = h & 0xFF
	case FormatThumbALU:
		inst.Op = ThumbALUOp(half)
		inst.Rd, inst.Rn, inst.Rm = lo3, lo3, mid3
	case FormatThumbHiReg:
		inst.Rd = lo3 | uint8(h>>4)&8
		inst.Rn = inst.Rd
		inst.Rm = uint8(h>>3) & 0xF
	case FormatThumbBX:
		inst.Rm = uint8(h>>3) & 0xF
	case FormatThumbPCLoad:
		inst.Rd = hi3
		inst.Rn = 15
		inst.Imm = (h & 0xFF) << 2
	case FormatThumbRegOffset:
		inst.Rd, inst.Rn = lo3, mid3
		inst.Rm = uint8(h>>6) & 7
	case FormatThumbImmOffset:
		inst.Rd, inst.Rn = lo3, mid3
		inst.Imm = (h >> 6) & 0x1F
		if inst.Op == OpSTR || inst.Op == OpLDR {
			inst.Imm <<= 2
		}
	case FormatThumbHalfImm:
		inst.Rd, inst.Rn = lo3, mid3
		inst.Imm = ((h >> 6) & 0x1F) << 1
	case FormatThumbSPRelative:
		inst.Rd = hi3
		inst.Rn = 13
		inst.Imm = (h & 0xFF) << 2
	case FormatThumbLoadAddress:
		inst.Rd = hi3
		inst.Rn = 15
		if inst.SP {
			inst.Rn = 13
		}
		inst.Imm = (h & 0xFF) << 2
	case FormatThumbAdjustSP:
		inst.Rd, inst.Rn = 13, 13
		inst.Offset = int32((h & 0x7F) << 2)
		if h&0x80 != 0 {
			inst.Offset = -inst.Offset
		}
	case FormatThumbPushPop:
		inst.Rn = 13
		inst.RegList = uint16(h & 0xFF)
		if inst.Link && inst.Op == OpPUSH {
			inst.RegList |= 1 << 14
		} else if inst.Link {
			inst.RegList |= 1 << 15
		}
	case FormatThumbMultiple:
		inst.Rn = hi3
		inst.RegList = uint16(h & 0xFF)
	case FormatThumbCondBranch:
		inst.Cond = uint8(h>>8) & 0xF
		inst.Offset = int32(int8(h)) << 1
	case FormatThumbSWI:
		inst.Imm = h & 0xFF
	case FormatThumbBranch:
		inst.Offset = int32(h<<21) >> 20
	case FormatThumbLongBranch:
		if inst.Op == OpBLPrefix {
			inst.Offset = int32(h<<21) >> 9
		} else {
			inst.Offset = int32((h & 0x7FF) << 1)
		}
	}

	return inst
}

var opNames = map[Op]string{
	OpAND: "and", OpEOR: "eor", OpSUB: "sub", OpRSB: "rsb",
	OpADD: "add", OpADC: "adc", OpSBC: "sbc", OpRSC: "rsc",
	OpTST: "tst", OpTEQ: "teq", OpCMP: "cmp", OpCMN: "cmn",
	OpORR: "orr", OpMOV: "mov", OpBIC: "bic", OpMVN: "mvn",
	OpUndefined: "undefined", OpMRS: "mrs", OpMSR: "msr",
	OpMUL: "mul", OpMLA: "mla", OpUMULL: "umull", OpUMLAL: "umlal",
	OpSMULL: "smull", OpSMLAL: "smlal", OpSWP: "swp", OpSWPB: "swpb",
	OpBX: "bx", OpLDR: "ldr", OpSTR: "str", OpLDRB: "ldrb", OpSTRB: "strb",
	OpLDRH: "ldrh", OpSTRH: "strh", OpLDRSB: "ldrsb", OpLDRSH: "ldrsh",
	OpLDM: "ldm", OpSTM: "stm", OpB: "b", OpBL: "bl", OpSWI: "swi",
	OpCoprocessor: "cop", OpLSL: "lsl", OpLSR: "lsr", OpASR: "asr",
	OpROR: "ror", OpNEG: "neg", OpPUSH: "push", OpPOP: "pop",
	OpBCond: "b", OpBLPrefix: "bl.hi", OpBLSuffix: "bl.lo",
}

// String returns the mnemonic of the operation.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint16(o))
}

var condNames = [16]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "", "nv",
}

var shiftNames = [4]string{"lsl", "lsr", "asr", "ror"}

func reg(r uint8) string {
	switch r {
	case 13:
		return "sp"
	case 14:
		return "lr"
	case 15:
		return "pc"
	default:
		return fmt.Sprintf("r%d", r)
	}
}

func regList(list uint16) string {
	var parts []string
	for r := uint8(0); r < 16; r++ {
		if list&(1<<r) != 0 {
			parts = append(parts, reg(r))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// String renders a short disassembly of the instruction. Branch targets are
// shown as offsets from the PC value the instruction observes.
func (i *Instruction) String() string {
	mn := i.Op.String() + condNames[i.Cond&0xF]
	if i.S && i.Op.IsDataProcessing() && !i.Op.IsTest() && !i.Thumb {
		mn += "s"
	}

	switch i.Format {
	case FormatDataProc:
		return mn + " " + i.dataOperands()
	case FormatPSR:
		psr := "cpsr"
		if i.S {
			psr = "spsr"
		}
		if i.Op == OpMRS {
			return fmt.Sprintf("%s %s, %s", mn, reg(i.Rd), psr)
		}
		if i.Operand == OperandImm {
			return fmt.Sprintf("%s %s_%x, #0x%x", mn, psr, i.PSRMask, i.Imm)
		}
		return fmt.Sprintf("%s %s_%x, %s", mn, psr, i.PSRMask, reg(i.Rm))
	case FormatMultiply:
		if i.Op == OpMLA {
			return fmt.Sprintf("%s %s, %s, %s, %s", mn, reg(i.Rd), reg(i.Rm), reg(i.Rs), reg(i.Rn))
		}
		return fmt.Sprintf("%s %s, %s, %s", mn, reg(i.Rd), reg(i.Rm), reg(i.Rs))
	case FormatMultiplyLong:
		return fmt.Sprintf("%s %s, %s, %s, %s", mn, reg(i.RdLo), reg(i.RdHi), reg(i.Rm), reg(i.Rs))
	case FormatSwap:
		return fmt.Sprintf("%s %s, %s, [%s]", mn, reg(i.Rd), reg(i.Rm), reg(i.Rn))
	case FormatBranchExchange, FormatThumbBX:
		return fmt.Sprintf("%s %s", mn, reg(i.Rm))
	case FormatTransfer, FormatHalfTransfer:
		return fmt.Sprintf("%s %s, %s", mn, reg(i.Rd), i.address())
	case FormatBlock:
		mode := map[[2]bool]string{{false, false}: "da", {false, true}: "ia", {true, false}: "db", {true, true}: "ib"}[[2]bool{i.Pre, i.Up}]
		wb := ""
		if i.Writeback {
			wb = "!"
		}
		hat := ""
		if i.S {
			hat = "^"
		}
		return fmt.Sprintf("%s%s %s%s, %s%s", mn, mode, reg(i.Rn), wb, regList(i.RegList), hat)
	case FormatBranch, FormatThumbBranch, FormatThumbCondBranch:
		return fmt.Sprintf("%s %+d", mn, i.Offset)
	case FormatSWI, FormatThumbSWI:
		return fmt.Sprintf("%s 0x%x", mn, i.Imm)
	case FormatThumbLongBranch:
		return fmt.Sprintf("%s %+d", mn, i.Offset)
	case FormatThumbShift:
		return fmt.Sprintf("%s %s, %s, #%d", mn, reg(i.Rd), reg(i.Rm), i.Imm)
	case FormatThumbAddSub:
		if i.Operand == OperandImm {
			return fmt.Sprintf("%s %s, %s, #%d", mn, reg(i.Rd), reg(i.Rn), i.Imm)
		}
		return fmt.Sprintf("%s %s, %s, %s", mn, reg(i.Rd), reg(i.Rn), reg(i.Rm))
	case FormatThumbImm8:
		return fmt.Sprintf("%s %s, #0x%x", mn, reg(i.Rd), i.Imm)
	case FormatThumbALU, FormatThumbHiReg:
		return fmt.Sprintf("%s %s, %s", mn, reg(i.Rd), reg(i.Rm))
	case FormatThumbPCLoad, FormatThumbSPRelative:
		return fmt.Sprintf("%s %s, [%s, #0x%x]", mn, reg(i.Rd), reg(i.Rn), i.Imm)
	case FormatThumbRegOffset:
		return fmt.Sprintf("%s %s, [%s, %s]", mn, reg(i.Rd), reg(i.Rn), reg(i.Rm))
	case FormatThumbImmOffset, FormatThumbHalfImm:
		return fmt.Sprintf("%s %s, [%s, #0x%x]", mn, reg(i.Rd), reg(i.Rn), i.Imm)
	case FormatThumbLoadAddress:
		return fmt.Sprintf("%s %s, %s, #0x%x", mn, reg(i.Rd), reg(i.Rn), i.Imm)
	case FormatThumbAdjustSP:
		return fmt.Sprintf("%s sp, #%d", mn, i.Offset)
	case FormatThumbPushPop:
		return fmt.Sprintf("%s %s", mn, regList(i.RegList))
	case FormatThumbMultiple:
		return fmt.Sprintf("%sia %s!, %s", mn, reg(i.Rn), regList(i.RegList))
	default:
		return fmt.Sprintf("%s 0x%08x", mn, i.Word)
	}
}

func (i *Instruction) operand2() string {
	switch i.Operand {
	case OperandImm:
		return fmt.Sprintf("#0x%x", i.Imm)
	case OperandRegRegShift:
		return fmt.Sprintf("%s, %s %s", reg(i.Rm), shiftNames[i.Shift], reg(i.Rs))
	default:
		if i.Imm == 0 && i.Shift == 0 {
			return reg(i.Rm)
		}
		return fmt.Sprintf("%s, %s #%d", reg(i.Rm), shiftNames[i.Shift], i.Imm)
	}
}

func (i *Instruction) dataOperands() string {
	switch {
	case i.Op.IsTest():
		return reg(i.Rn) + ", " + i.operand2()
	case i.Op == OpMOV || i.Op == OpMVN:
		return reg(i.Rd) + ", " + i.operand2()
	default:
		return reg(i.Rd) + ", " + reg(i.Rn) + ", " + i.operand2()
	}
}

func (i *Instruction) address() string {
	sign := "-"
	if i.Up {
		sign = ""
	}

	var off string
	if i.Operand == OperandImm {
		off = fmt.Sprintf("#%s0x%x", sign, i.Imm)
	} else if i.Format == FormatTransfer && (i.Imm != 0 || i.Shift != 0) {
		off = fmt.Sprintf("%s%s, %s #%d", sign, reg(i.Rm), shiftNames[i.Shift], i.Imm)
	} else {
		off = sign + reg(i.Rm)
	}

	if i.Pre {
		wb := ""
		if i.Writeback {
			wb = "!"
		}
		return fmt.Sprintf("[%s, %s]%s", reg(i.Rn), off, wb)
	}
	return fmt.Sprintf("[%s], %s", reg(i.Rn), off)
}
