package emu

import (
	"math/bits"

	"github.com/sarchlab/gbasim/insts"
)

// LoadStoreUnit implements the data side of the bus: every access goes to
// memory and charges the clock.
type LoadStoreUnit struct {
	memory *Memory
	clock  *Clock
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// memory and clock.
func NewLoadStoreUnit(memory *Memory, clock *Clock) *LoadStoreUnit {
	return &LoadStoreUnit{
		memory: memory,
		clock:  clock,
	}
}

// LDR loads a word. A misaligned address rotates the aligned word so that
// the addressed byte ends up in the low byte.
func (lsu *LoadStoreUnit) LDR(addr uint32) uint32 {
	lsu.clock.DataAccess32NonSeq(addr)
	return bits.RotateLeft32(lsu.memory.Read32(addr&^3), -int(addr&3)*8)
}

// LDRB loads a byte with zero extension.
func (lsu *LoadStoreUnit) LDRB(addr uint32) uint32 {
	lsu.clock.DataAccess8NonSeq(addr)
	return uint32(lsu.memory.Read8(addr))
}

// LDRSB loads a byte with sign extension.
func (lsu *LoadStoreUnit) LDRSB(addr uint32) uint32 {
	lsu.clock.DataAccess8NonSeq(addr)
	return uint32(int32(int8(lsu.memory.Read8(addr))))
}

// LDRH loads a halfword with zero extension. A misaligned address rotates
// the aligned halfword by 8 bits.
func (lsu *LoadStoreUnit) LDRH(addr uint32) uint32 {
	lsu.clock.DataAccess16NonSeq(addr)
	v := uint32(lsu.memory.Read16(addr &^ 1))
	return bits.RotateLeft32(v, -int(addr&1)*8)
}

// LDRSH loads a halfword with sign extension. A misaligned address loads
// the sign-extended byte instead.
func (lsu *LoadStoreUnit) LDRSH(addr uint32) uint32 {
	lsu.clock.DataAccess16NonSeq(addr)
	if addr&1 != 0 {
		return uint32(int32(int8(lsu.memory.Read8(addr))))
	}
	return uint32(int32(int16(lsu.memory.Read16(addr))))
}

// STR stores a word at the word-aligned address.
func (lsu *LoadStoreUnit) STR(addr, value uint32) {
	lsu.clock.DataAccess32NonSeq(addr)
	lsu.memory.Write32(addr&^3, value)
}

// STRB stores the low byte of value.
func (lsu *LoadStoreUnit) STRB(addr, value uint32) {
	lsu.clock.DataAccess8NonSeq(addr)
	lsu.memory.Write8(addr, uint8(value))
}

// STRH stores the low halfword of value at the halfword-aligned address.
func (lsu *LoadStoreUnit) STRH(addr, value uint32) {
	lsu.clock.DataAccess16NonSeq(addr)
	lsu.memory.Write16(addr&^1, uint16(value))
}

// Load performs the load of the given operation, including the internal
// cycle that moves the value into the register file.
func (lsu *LoadStoreUnit) Load(op insts.Op, addr uint32) uint32 {
	var v uint32
	switch op {
	case insts.OpLDRB:
		v = lsu.LDRB(addr)
	case insts.OpLDRH:
		v = lsu.LDRH(addr)
	case insts.OpLDRSB:
		v = lsu.LDRSB(addr)
	case insts.OpLDRSH:
		v = lsu.LDRSH(addr)
	default:
		v = lsu.LDR(addr)
	}
	lsu.clock.Internal(1)
	return v
}

// Store performs the store of the given operation.
func (lsu *LoadStoreUnit) Store(op insts.Op, addr, value uint32) {
	switch op {
	case insts.OpSTRB:
		lsu.STRB(addr, value)
	case insts.OpSTRH:
		lsu.STRH(addr, value)
	default:
		lsu.STR(addr, value)
	}
}

// LoadMultiple reads one word of a block transfer. Only the first access of
// a block is non-sequential.
func (lsu *LoadStoreUnit) LoadMultiple(addr uint32, first bool) uint32 {
	if first {
		lsu.clock.DataAccess32NonSeq(addr)
	} else {
		lsu.clock.DataAccess32Seq(addr)
	}
	return lsu.memory.Read32(addr &^ 3)
}

// StoreMultiple writes one word of a block transfer.
func (lsu *LoadStoreUnit) StoreMultiple(addr, value uint32, first bool) {
	if first {
		lsu.clock.DataAccess32NonSeq(addr)
	} else {
		lsu.clock.DataAccess32Seq(addr)
	}
	lsu.memory.Write32(addr&^3, value)
}
