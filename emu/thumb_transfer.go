package emu

import (
	"math/bits"

	"github.com/sarchlab/gbasim/insts"
)

func thumbPCLoad(rd uint32) thumbHandler {
	return func(e *Emulator, instr uint16) {
		addr := e.regFile.Get(PC)&^3 + uint32(instr&0xFF)<<2
		e.regFile.Set(rd, e.lsu.Load(insts.OpLDR, addr))
	}
}

func thumbRegOffset(c insts.Class) thumbHandler {
	op, load := c.Op, c.Load
	return func(e *Emulator, instr uint16) {
		rd := lo3(instr, 0)
		addr := e.regFile.Get(lo3(instr, 3)) + e.regFile.Get(lo3(instr, 6))
		if load {
			e.regFile.Set(rd, e.lsu.Load(op, addr))
			return
		}
		e.lsu.Store(op, addr, e.regFile.Get(rd))
	}
}

func thumbImmOffset(c insts.Class) thumbHandler {
	op, load := c.Op, c.Load

	var scale uint
	switch op {
	case insts.OpLDR, insts.OpSTR:
		scale = 2
	case insts.OpLDRH, insts.OpSTRH:
		scale = 1
	}

	return func(e *Emulator, instr uint16) {
		rd := lo3(instr, 0)
		addr := e.regFile.Get(lo3(instr, 3)) + (uint32(instr>>6)&0x1F)<<scale
		if load {
			e.regFile.Set(rd, e.lsu.Load(op, addr))
			return
		}
		e.lsu.Store(op, addr, e.regFile.Get(rd))
	}
}

func thumbSPRelative(c insts.Class, rd uint32) thumbHandler {
	load := c.Load
	return func(e *Emulator, instr uint16) {
		addr := e.regFile.Get(SP) + uint32(instr&0xFF)<<2
		if load {
			e.regFile.Set(rd, e.lsu.Load(insts.OpLDR, addr))
			return
		}
		e.lsu.Store(insts.OpSTR, addr, e.regFile.Get(rd))
	}
}

// thumbTransferList moves the registers of list to or from ascending
// addresses starting at addr. A loaded r15 branches.
func (e *Emulator) thumbTransferList(list uint16, addr uint32, load bool) {
	first := true
	for r := uint32(0); r < 16; r++ {
		if list&(1<<r) == 0 {
			continue
		}

		if load {
			v := e.lsu.LoadMultiple(addr, first)
			if r == PC {
				e.branchTo(v)
			} else {
				e.regFile.Set(r, v)
			}
		} else {
			e.lsu.StoreMultiple(addr, e.regFile.Get(r), first)
		}
		first = false
		addr += 4
	}
	if load {
		e.clock.Internal(1)
	}
}

func thumbPushPop(c insts.Class) thumbHandler {
	var extra uint16
	if c.Link {
		extra = 1 << LR
		if c.Load {
			extra = 1 << PC
		}
	}

	if c.Load {
		return func(e *Emulator, instr uint16) {
			list := instr&0xFF | extra
			sp := e.regFile.Get(SP)
			e.regFile.Set(SP, sp+uint32(bits.OnesCount16(list))*4)
			e.thumbTransferList(list, sp, true)
		}
	}
	return func(e *Emulator, instr uint16) {
		list := instr&0xFF | extra
		sp := e.regFile.Get(SP) - uint32(bits.OnesCount16(list))*4
		e.thumbTransferList(list, sp, false)
		e.regFile.Set(SP, sp)
	}
}

func thumbMultiple(c insts.Class, rb uint32) thumbHandler {
	load := c.Load
	return func(e *Emulator, instr uint16) {
		list := instr & 0xFF
		base := e.regFile.Get(rb)
		wb := base + uint32(bits.OnesCount16(list))*4
		if list == 0 {
			list = 1 << PC
			wb = base + 0x40
		}

		if load {
			if list&(1<<rb) == 0 {
				e.regFile.Set(rb, wb)
			}
			e.thumbTransferList(list, base, true)
			return
		}

		first := true
		addr := base
		for r := uint32(0); r < 16; r++ {
			if list&(1<<r) == 0 {
				continue
			}
			v := e.regFile.Get(r)
			if r == PC {
				v += 2
			}
			e.lsu.StoreMultiple(addr, v, first)
			if first {
				e.regFile.Set(rb, wb)
			}
			first = false
			addr += 4
		}
	}
}
