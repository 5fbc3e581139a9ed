package emu

import "github.com/sarchlab/gbasim/insts"

// transferOffset returns the unsigned offset of a single data transfer.
type transferOffset func(e *Emulator, instr uint32) uint32

func armTransferOffset(c insts.Class) transferOffset {
	if c.Operand == insts.OperandImm {
		return func(_ *Emulator, instr uint32) uint32 {
			return instr & 0xFFF
		}
	}

	st := ShiftType(c.Shift)
	return func(e *Emulator, instr uint32) uint32 {
		v, _ := ShiftImm(st, e.regFile.Get(instr&0xF), (instr>>7)&0x1F, e.regFile.GetFlag(FlagC))
		return v
	}
}

func armHalfOffset(c insts.Class) transferOffset {
	if c.Operand == insts.OperandImm {
		return func(_ *Emulator, instr uint32) uint32 {
			return (instr>>4)&0xF0 | instr&0xF
		}
	}
	return func(e *Emulator, instr uint32) uint32 {
		return e.regFile.Get(instr & 0xF)
	}
}

// transferAddress returns the address to access and the base value to write
// back.
func transferAddress(base, offset uint32, pre, up bool) (addr, wb uint32) {
	if up {
		wb = base + offset
	} else {
		wb = base - offset
	}
	if pre {
		return wb, wb
	}
	return base, wb
}

func armTransfer(c insts.Class) armHandler {
	offset := armTransferOffset(c)
	pre, up, load, op := c.Pre, c.Up, c.Load, c.Op
	// Post-indexed transfers always write back.
	writeback := c.Writeback || !c.Pre

	return func(e *Emulator, instr uint32) {
		rd := (instr >> 12) & 0xF
		rn := (instr >> 16) & 0xF
		addr, wb := transferAddress(e.regFile.Get(rn), offset(e, instr), pre, up)

		if load {
			v := e.lsu.Load(op, addr)
			if writeback && rn != rd {
				e.regFile.Set(rn, wb)
			}
			e.writeReg(rd, v)
			return
		}

		v := e.regFile.Get(rd)
		if rd == PC {
			v += 4
		}
		e.lsu.Store(op, addr, v)
		if writeback {
			e.regFile.Set(rn, wb)
		}
	}
}

func armHalfTransfer(c insts.Class) armHandler {
	offset := armHalfOffset(c)
	pre, up, load, op := c.Pre, c.Up, c.Load, c.Op
	writeback := c.Writeback || !c.Pre

	return func(e *Emulator, instr uint32) {
		rd := (instr >> 12) & 0xF
		rn := (instr >> 16) & 0xF
		addr, wb := transferAddress(e.regFile.Get(rn), offset(e, instr), pre, up)

		if load {
			v := e.lsu.Load(op, addr)
			if writeback && rn != rd {
				e.regFile.Set(rn, wb)
			}
			e.writeReg(rd, v)
			return
		}

		v := e.regFile.Get(rd)
		if rd == PC {
			v += 4
		}
		e.lsu.STRH(addr, v)
		if writeback {
			e.regFile.Set(rn, wb)
		}
	}
}

func armSwap(c insts.Class) armHandler {
	byteWide := c.Op == insts.OpSWPB

	return func(e *Emulator, instr uint32) {
		rd := (instr >> 12) & 0xF
		addr := e.regFile.Get((instr >> 16) & 0xF)
		src := e.regFile.Get(instr & 0xF)

		var old uint32
		if byteWide {
			old = e.lsu.LDRB(addr)
			e.lsu.STRB(addr, src)
		} else {
			old = e.lsu.LDR(addr)
			e.lsu.STR(addr, src)
		}
		e.clock.Internal(1)
		e.regFile.Set(rd, old)
	}
}
