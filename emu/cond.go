package emu

// Cond represents an ARM condition code.
type Cond uint32

// ARM condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always
	CondNV Cond = 0b1111 // Never (reserved on ARMv4)
)

// condTable holds, per condition code, a 16-bit set of the NZCV nibbles for
// which the condition passes.
var condTable [16]uint16

func init() {
	for cond := Cond(0); cond < 16; cond++ {
		for nzcv := uint32(0); nzcv < 16; nzcv++ {
			if evalCondition(cond, nzcv) {
				condTable[cond] |= 1 << nzcv
			}
		}
	}
}

// evalCondition evaluates a condition code against an NZCV nibble.
func evalCondition(cond Cond, nzcv uint32) bool {
	n := nzcv&8 != 0
	z := nzcv&4 != 0
	c := nzcv&2 != 0
	v := nzcv&1 != 0

	switch cond {
	case CondEQ:
		return z
	case CondNE:
		return !z
	case CondCS:
		return c
	case CondCC:
		return !c
	case CondMI:
		return n
	case CondPL:
		return !n
	case CondVS:
		return v
	case CondVC:
		return !v
	case CondHI:
		return c && !z
	case CondLS:
		return !c || z
	case CondGE:
		return n == v
	case CondLT:
		return n != v
	case CondGT:
		return !z && n == v
	case CondLE:
		return z || n != v
	case CondAL:
		return true
	default:
		return false
	}
}

// CheckCondition evaluates a condition code against the current CPSR flags.
func (r *RegFile) CheckCondition(cond Cond) bool {
	return condTable[cond&0xF]&(1<<(r.CPSR>>28)) != 0
}
