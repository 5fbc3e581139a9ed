package emu

import "math/bits"

// ShiftType selects one of the four barrel shifter operations.
type ShiftType uint32

// Barrel shifter operations, in encoding order.
const (
	ShiftLSL ShiftType = 0 // Logical shift left
	ShiftLSR ShiftType = 1 // Logical shift right
	ShiftASR ShiftType = 2 // Arithmetic shift right
	ShiftROR ShiftType = 3 // Rotate right (RRX when the immediate is 0)
)

// ShiftImm applies an immediate-encoded shift. An amount of 0 has the special
// meanings of the immediate form: LSL #0 passes through, LSR #0 and ASR #0
// shift by 32, ROR #0 is RRX.
func ShiftImm(st ShiftType, value, amount uint32, carry bool) (uint32, bool) {
	amount &= 0x1F

	switch st {
	case ShiftLSL:
		if amount == 0 {
			return value, carry
		}
		return value << amount, value&(1<<(32-amount)) != 0

	case ShiftLSR:
		if amount == 0 {
			return 0, value&0x80000000 != 0
		}
		return value >> amount, value&(1<<(amount-1)) != 0

	case ShiftASR:
		if amount == 0 {
			return asrFill(value)
		}
		return uint32(int32(value) >> amount), value&(1<<(amount-1)) != 0

	default:
		if amount == 0 {
			return rrx(value, carry)
		}
		return bits.RotateLeft32(value, -int(amount)), value&(1<<(amount-1)) != 0
	}
}

// ShiftReg applies a register-specified shift. Only the bottom byte of the
// amount register is used; an amount of 0 leaves value and carry untouched.
func ShiftReg(st ShiftType, value, amount uint32, carry bool) (uint32, bool) {
	amount &= 0xFF
	if amount == 0 {
		return value, carry
	}

	switch st {
	case ShiftLSL:
		switch {
		case amount < 32:
			return value << amount, value&(1<<(32-amount)) != 0
		case amount == 32:
			return 0, value&1 != 0
		default:
			return 0, false
		}

	case ShiftLSR:
		switch {
		case amount < 32:
			return value >> amount, value&(1<<(amount-1)) != 0
		case amount == 32:
			return 0, value&0x80000000 != 0
		default:
			return 0, false
		}

	case ShiftASR:
		if amount >= 32 {
			return asrFill(value)
		}
		return uint32(int32(value) >> amount), value&(1<<(amount-1)) != 0

	default:
		amount &= 0x1F
		if amount == 0 {
			return value, value&0x80000000 != 0
		}
		return bits.RotateLeft32(value, -int(amount)), value&(1<<(amount-1)) != 0
	}
}

// asrFill is an arithmetic shift by 32 or more.
func asrFill(value uint32) (uint32, bool) {
	if value&0x80000000 != 0 {
		return 0xFFFFFFFF, true
	}
	return 0, false
}

func rrx(value uint32, carry bool) (uint32, bool) {
	var in uint32
	if carry {
		in = 1 << 31
	}
	return in | value>>1, value&1 != 0
}

// RotateImm decodes a data-processing immediate: imm8 rotated right by twice
// the 4-bit rotate field. The carry-out is bit 31 of the result when the
// rotation is non-zero.
func RotateImm(imm8, rot uint32, carry bool) (uint32, bool) {
	rot = (rot & 0xF) * 2
	if rot == 0 {
		return imm8 & 0xFF, carry
	}
	v := bits.RotateLeft32(imm8&0xFF, -int(rot))
	return v, v&0x80000000 != 0
}
