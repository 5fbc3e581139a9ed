// Package insts provides ARM7TDMI instruction definitions and decoding.
//
// Both instruction sets are classified from two bit-fields of the encoding,
// which lets an interpreter build flat dispatch tables:
//   - ARM: row = bits 27-20, col = bits 7-4 (256 x 16 slots)
//   - Thumb: row = bits 15-12, col = bits 11-8 (16 x 16 slots), with the
//     ALU group further split by bits 9-6 (4 x 4 slots)
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.DecodeARM(0xE2810004) // ADD r0, r1, #4
//	fmt.Println(inst) // add r0, r1, #0x4
package insts

// Op represents an ARM7TDMI operation.
type Op uint16

// Operations. The sixteen data-processing operations come first, in the
// order of their 4-bit opcode.
const (
	OpAND Op = iota
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN

	OpUndefined
	OpMRS
	OpMSR
	OpMUL
	OpMLA
	OpUMULL
	OpUMLAL
	OpSMULL
	OpSMLAL
	OpSWP
	OpSWPB
	OpBX
	OpLDR
	OpSTR
	OpLDRB
	OpSTRB
	OpLDRH
	OpSTRH
	OpLDRSB
	OpLDRSH
	OpLDM
	OpSTM
	OpB
	OpBL
	OpSWI
	OpCoprocessor

	// Thumb-only operations.
	OpLSL
	OpLSR
	OpASR
	OpROR
	OpNEG
	OpPUSH
	OpPOP
	OpBCond
	OpBLPrefix
	OpBLSuffix
)

// DataOp returns the data-processing operation for a 4-bit opcode.
func DataOp(opcode uint32) Op {
	return Op(opcode & 0xF)
}

// IsDataProcessing reports whether o is one of the sixteen ALU operations.
func (o Op) IsDataProcessing() bool {
	return o <= OpMVN
}

// IsTest reports whether o only updates flags (TST, TEQ, CMP, CMN).
func (o Op) IsTest() bool {
	return o >= OpTST && o <= OpCMN
}

// IsLogical reports whether o takes its carry from the shifter.
func (o Op) IsLogical() bool {
	switch o {
	case OpAND, OpEOR, OpTST, OpTEQ, OpORR, OpMOV, OpBIC, OpMVN:
		return true
	default:
		return false
	}
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUndefined Format = iota

	// ARM formats.
	FormatDataProc       // Data processing
	FormatPSR            // MRS / MSR
	FormatMultiply       // MUL / MLA
	FormatMultiplyLong   // UMULL / UMLAL / SMULL / SMLAL
	FormatSwap           // SWP / SWPB
	FormatBranchExchange // BX
	FormatTransfer       // LDR / STR / LDRB / STRB
	FormatHalfTransfer   // LDRH / STRH / LDRSB / LDRSH
	FormatBlock          // LDM / STM
	FormatBranch         // B / BL
	FormatSWI            // Software interrupt
	FormatCoprocessor    // CDP / LDC / STC / MCR / MRC

	// Thumb formats.
	FormatThumbShift       // LSL / LSR / ASR by immediate
	FormatThumbAddSub      // ADD / SUB register or imm3
	FormatThumbImm8        // MOV / CMP / ADD / SUB imm8
	FormatThumbALU         // ALU group
	FormatThumbHiReg       // ADD / CMP / MOV high registers
	FormatThumbBX          // BX
	FormatThumbPCLoad      // LDR rd, [pc, #imm8]
	FormatThumbRegOffset   // load/store with register offset
	FormatThumbImmOffset   // load/store word or byte with imm5 offset
	FormatThumbHalfImm     // load/store halfword with imm5 offset
	FormatThumbSPRelative  // load/store relative to SP
	FormatThumbLoadAddress // ADD rd, pc/sp, #imm8
	FormatThumbAdjustSP    // ADD sp, #+-imm7
	FormatThumbPushPop     // PUSH / POP
	FormatThumbMultiple    // STMIA / LDMIA
	FormatThumbCondBranch  // B<cond>
	FormatThumbSWI         // Software interrupt
	FormatThumbBranch      // B
	FormatThumbLongBranch  // BL prefix / suffix
)

// OperandForm selects how the second operand of a data-processing
// instruction or the offset of a transfer is formed.
type OperandForm uint8

// Operand forms.
const (
	OperandImm         OperandForm = iota // rotated immediate or immediate offset
	OperandRegImmShift                    // register shifted by an immediate
	OperandRegRegShift                    // register shifted by a register
)

// Class is the static part of an instruction: everything that is fixed by
// the two dispatch bit-fields.
type Class struct {
	Op      Op
	Format  Format
	Operand OperandForm
	Shift   uint8 // 0 LSL, 1 LSR, 2 ASR, 3 ROR

	S         bool // set flags, user bank / PSR restore for LDM/STM, PSR = SPSR for MRS/MSR
	Pre       bool
	Up        bool
	Writeback bool
	Load      bool
	Link      bool // BL, PUSH lr, POP pc
	SP        bool // Thumb: SP instead of PC as base
}

// Undefined is the class of all unallocated encodings.
var Undefined = Class{Op: OpUndefined, Format: FormatUndefined}

// Instruction represents a decoded instruction.
type Instruction struct {
	Class

	Word  uint32
	Thumb bool
	Cond  uint8

	Rd, Rn, Rs, Rm uint8
	RdHi, RdLo     uint8

	// Imm holds the decoded immediate: the rotated value for data
	// processing, the byte offset for transfers, the shift amount for
	// shifted registers and the comment field for SWI.
	Imm uint32

	// Offset is the signed branch offset in bytes, relative to the PC
	// value seen by the instruction.
	Offset int32

	RegList uint16
	// PSRMask is the MSR field mask (bits 19-16).
	PSRMask uint8
}
