package emu

// ALU implements ARM7TDMI arithmetic and logic operations.
// Each operation returns its result and, when setFlags is true, updates the
// condition flags in the connected register file.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// AND performs bitwise AND: op1 & op2
func (a *ALU) AND(op1, op2 uint32, carry, setFlags bool) uint32 {
	result := op1 & op2
	if setFlags {
		a.setLogicFlags(result, carry)
	}
	return result
}

// EOR performs bitwise exclusive OR: op1 ^ op2
func (a *ALU) EOR(op1, op2 uint32, carry, setFlags bool) uint32 {
	result := op1 ^ op2
	if setFlags {
		a.setLogicFlags(result, carry)
	}
	return result
}

// ORR performs bitwise OR: op1 | op2
func (a *ALU) ORR(op1, op2 uint32, carry, setFlags bool) uint32 {
	result := op1 | op2
	if setFlags {
		a.setLogicFlags(result, carry)
	}
	return result
}

// BIC performs bit clear: op1 &^ op2
func (a *ALU) BIC(op1, op2 uint32, carry, setFlags bool) uint32 {
	result := op1 &^ op2
	if setFlags {
		a.setLogicFlags(result, carry)
	}
	return result
}

// MOV passes op2 through.
func (a *ALU) MOV(_, op2 uint32, carry, setFlags bool) uint32 {
	if setFlags {
		a.setLogicFlags(op2, carry)
	}
	return op2
}

// MVN performs bitwise NOT: ^op2
func (a *ALU) MVN(_, op2 uint32, carry, setFlags bool) uint32 {
	result := ^op2
	if setFlags {
		a.setLogicFlags(result, carry)
	}
	return result
}

// ADD performs addition: op1 + op2
func (a *ALU) ADD(op1, op2 uint32, _, setFlags bool) uint32 {
	return a.addWithCarry(op1, op2, 0, setFlags)
}

// ADC performs addition with carry: op1 + op2 + C
func (a *ALU) ADC(op1, op2 uint32, _, setFlags bool) uint32 {
	return a.addWithCarry(op1, op2, a.carryIn(), setFlags)
}

// SUB performs subtraction: op1 - op2
func (a *ALU) SUB(op1, op2 uint32, _, setFlags bool) uint32 {
	return a.addWithCarry(op1, ^op2, 1, setFlags)
}

// SBC performs subtraction with carry: op1 - op2 - !C
func (a *ALU) SBC(op1, op2 uint32, _, setFlags bool) uint32 {
	return a.addWithCarry(op1, ^op2, a.carryIn(), setFlags)
}

// RSB performs reverse subtraction: op2 - op1
func (a *ALU) RSB(op1, op2 uint32, _, setFlags bool) uint32 {
	return a.addWithCarry(op2, ^op1, 1, setFlags)
}

// RSC performs reverse subtraction with carry: op2 - op1 - !C
func (a *ALU) RSC(op1, op2 uint32, _, setFlags bool) uint32 {
	return a.addWithCarry(op2, ^op1, a.carryIn(), setFlags)
}

// addWithCarry computes op1 + op2 + carryIn on 33 bits. For subtraction the
// caller passes the complement of the subtrahend, which makes C the inverse
// of the borrow.
func (a *ALU) addWithCarry(op1, op2, carryIn uint32, setFlags bool) uint32 {
	wide := uint64(op1) + uint64(op2) + uint64(carryIn)
	result := uint32(wide)
	if setFlags {
		a.regFile.setNZ(result)
		a.regFile.PutFlag(FlagC, wide>>32 != 0)
		a.regFile.PutFlag(FlagV, (^(op1^op2)&(op1^result))&0x80000000 != 0)
	}
	return result
}

// TST sets flags from op1 & op2.
func (a *ALU) TST(op1, op2 uint32, carry bool) {
	a.AND(op1, op2, carry, true)
}

// TEQ sets flags from op1 ^ op2.
func (a *ALU) TEQ(op1, op2 uint32, carry bool) {
	a.EOR(op1, op2, carry, true)
}

// CMP sets flags from op1 - op2.
func (a *ALU) CMP(op1, op2 uint32) {
	a.SUB(op1, op2, false, true)
}

// CMN sets flags from op1 + op2.
func (a *ALU) CMN(op1, op2 uint32) {
	a.ADD(op1, op2, false, true)
}

func (a *ALU) carryIn() uint32 {
	if a.regFile.GetFlag(FlagC) {
		return 1
	}
	return 0
}

// setLogicFlags sets N and Z from the result and C from the shifter carry-out.
// V is unaffected.
func (a *ALU) setLogicFlags(result uint32, carry bool) {
	a.regFile.setNZ(result)
	a.regFile.PutFlag(FlagC, carry)
}

// MUL performs a 32-bit multiply: op1 * op2
func (a *ALU) MUL(op1, op2 uint32, setFlags bool) uint32 {
	result := op1 * op2
	if setFlags {
		a.regFile.setNZ(result)
	}
	return result
}

// MLA performs a 32-bit multiply-accumulate: op1 * op2 + acc
func (a *ALU) MLA(op1, op2, acc uint32, setFlags bool) uint32 {
	result := op1*op2 + acc
	if setFlags {
		a.regFile.setNZ(result)
	}
	return result
}

// UMULL performs an unsigned 64-bit multiply and returns the hi and lo words.
func (a *ALU) UMULL(op1, op2 uint32, setFlags bool) (hi, lo uint32) {
	return a.split64(uint64(op1)*uint64(op2), setFlags)
}

// UMLAL performs an unsigned 64-bit multiply-accumulate onto accHi:accLo.
func (a *ALU) UMLAL(op1, op2, accHi, accLo uint32, setFlags bool) (hi, lo uint32) {
	acc := uint64(accHi)<<32 | uint64(accLo)
	return a.split64(uint64(op1)*uint64(op2)+acc, setFlags)
}

// SMULL performs a signed 64-bit multiply. Operands are sign-extended to 64
// bits before multiplying.
func (a *ALU) SMULL(op1, op2 uint32, setFlags bool) (hi, lo uint32) {
	product := int64(int32(op1)) * int64(int32(op2))
	return a.split64(uint64(product), setFlags)
}

// SMLAL performs a signed 64-bit multiply-accumulate onto accHi:accLo.
func (a *ALU) SMLAL(op1, op2, accHi, accLo uint32, setFlags bool) (hi, lo uint32) {
	product := int64(int32(op1)) * int64(int32(op2))
	acc := uint64(accHi)<<32 | uint64(accLo)
	return a.split64(uint64(product)+acc, setFlags)
}

func (a *ALU) split64(result uint64, setFlags bool) (hi, lo uint32) {
	if setFlags {
		a.regFile.setNZ64(result)
	}
	return uint32(result >> 32), uint32(result)
}

// MultiplyCycles returns the internal cycles (m) the multiplier array needs
// for the given rs operand. With signed set, leading all-ones bytes also
// terminate early.
func MultiplyCycles(rs uint32, signed bool) uint64 {
	check := func(mask uint32) bool {
		v := rs & mask
		return v == 0 || (signed && v == mask)
	}
	switch {
	case check(0xFFFFFF00):
		return 1
	case check(0xFFFF0000):
		return 2
	case check(0xFF000000):
		return 3
	default:
		return 4
	}
}
