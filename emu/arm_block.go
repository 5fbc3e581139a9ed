package emu

import (
	"math/bits"

	"github.com/sarchlab/gbasim/insts"
)

// blockRange returns the lowest address a block transfer touches and the
// written-back base. The registers are always transferred in ascending
// order from the lowest address. An empty list transfers r15 and moves the
// base by 0x40.
func blockRange(base uint32, list uint16, pre, up bool) (start, wb uint32) {
	size := uint32(bits.OnesCount16(list)) * 4
	if list == 0 {
		size = 0x40
	}

	if up {
		wb = base + size
		start = base
		if pre {
			start += 4
		}
		return start, wb
	}

	wb = base - size
	start = wb
	if !pre {
		start += 4
	}
	return start, wb
}

func armBlock(c insts.Class) armHandler {
	if c.Load {
		return armLDM(c)
	}
	return armSTM(c)
}

func armLDM(c insts.Class) armHandler {
	pre, up, s, writeback := c.Pre, c.Up, c.S, c.Writeback

	return func(e *Emulator, instr uint32) {
		rn := (instr >> 16) & 0xF
		list := uint16(instr)
		addr, wb := blockRange(e.regFile.Get(rn), list, pre, up)
		if list == 0 {
			list = 1 << PC
		}

		loadsPC := list&(1<<PC) != 0
		userBank := s && !loadsPC

		// Loaded values win over the written-back base.
		if writeback && list&(1<<rn) == 0 {
			e.regFile.Set(rn, wb)
		}

		first := true
		for r := uint32(0); r < 16; r++ {
			if list&(1<<r) == 0 {
				continue
			}

			v := e.lsu.LoadMultiple(addr, first)
			first = false

			switch {
			case r == PC:
				e.branchTo(v)
			case userBank:
				e.regFile.SetUser(r, v)
			default:
				e.regFile.Set(r, v)
			}
			addr += 4
		}
		e.clock.Internal(1)

		if s && loadsPC {
			e.restoreCPSR()
		}
	}
}

func armSTM(c insts.Class) armHandler {
	pre, up, s, writeback := c.Pre, c.Up, c.S, c.Writeback

	return func(e *Emulator, instr uint32) {
		rn := (instr >> 16) & 0xF
		list := uint16(instr)
		addr, wb := blockRange(e.regFile.Get(rn), list, pre, up)
		if list == 0 {
			list = 1 << PC
		}

		first := true
		for r := uint32(0); r < 16; r++ {
			if list&(1<<r) == 0 {
				continue
			}

			var v uint32
			if s {
				v = e.regFile.GetUser(r)
			} else {
				v = e.regFile.Get(r)
			}
			if r == PC {
				v += 4
			}

			e.lsu.StoreMultiple(addr, v, first)
			// The base is written back after the first transfer, so only
			// a base that comes first in the list is stored unmodified.
			if first && writeback {
				e.regFile.Set(rn, wb)
			}
			first = false
			addr += 4
		}
	}
}
