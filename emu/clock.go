package emu

import "github.com/sarchlab/gbasim/timing/latency"

// Clock counts CPU cycles. Every classified bus access and every internal
// cycle advances it, together with the timer and audio counters that the
// peripheral scheduler drains.
type Clock struct {
	Cycles uint64

	timerCycles uint64
	audioCycles uint64

	table *latency.Table
}

// NewClock creates a clock that prices accesses with the given cost table.
func NewClock(table *latency.Table) *Clock {
	return &Clock{table: table}
}

// Table returns the cost table.
func (c *Clock) Table() *latency.Table {
	return c.table
}

// Internal advances the clock by n internal cycles.
func (c *Clock) Internal(n uint64) {
	c.Cycles += n
	c.timerCycles += n
	c.audioCycles += n
}

// TakeTimerCycles returns the cycles elapsed since the last call.
func (c *Clock) TakeTimerCycles() uint64 {
	n := c.timerCycles
	c.timerCycles = 0
	return n
}

// TakeAudioCycles returns the cycles elapsed since the last call.
func (c *Clock) TakeAudioCycles() uint64 {
	n := c.audioCycles
	c.audioCycles = 0
	return n
}

func (c *Clock) seq(addr uint32, w latency.Width) {
	c.Internal(uint64(c.table.Seq(addr, w)))
}

func (c *Clock) nonSeq(addr uint32, w latency.Width) {
	c.Internal(uint64(c.table.NonSeq(addr, w)))
}

// DataAccess8Seq charges a sequential byte data access.
func (c *Clock) DataAccess8Seq(addr uint32) { c.seq(addr, latency.Width8) }

// DataAccess8NonSeq charges a non-sequential byte data access.
func (c *Clock) DataAccess8NonSeq(addr uint32) { c.nonSeq(addr, latency.Width8) }

// DataAccess16Seq charges a sequential halfword data access.
func (c *Clock) DataAccess16Seq(addr uint32) { c.seq(addr, latency.Width16) }

// DataAccess16NonSeq charges a non-sequential halfword data access.
func (c *Clock) DataAccess16NonSeq(addr uint32) { c.nonSeq(addr, latency.Width16) }

// DataAccess32Seq charges a sequential word data access.
func (c *Clock) DataAccess32Seq(addr uint32) { c.seq(addr, latency.Width32) }

// DataAccess32NonSeq charges a non-sequential word data access.
func (c *Clock) DataAccess32NonSeq(addr uint32) { c.nonSeq(addr, latency.Width32) }

// CodeAccess16Seq charges a sequential Thumb fetch.
func (c *Clock) CodeAccess16Seq(addr uint32) { c.seq(addr, latency.Width16) }

// CodeAccess16NonSeq charges a non-sequential Thumb fetch.
func (c *Clock) CodeAccess16NonSeq(addr uint32) { c.nonSeq(addr, latency.Width16) }

// CodeAccess32Seq charges a sequential ARM fetch.
func (c *Clock) CodeAccess32Seq(addr uint32) { c.seq(addr, latency.Width32) }

// CodeAccess32NonSeq charges a non-sequential ARM fetch.
func (c *Clock) CodeAccess32NonSeq(addr uint32) { c.nonSeq(addr, latency.Width32) }

// PrefetchARM charges the fetch of the next ARM instruction.
func (c *Clock) PrefetchARM(pc uint32) { c.CodeAccess32Seq(pc) }

// PrefetchThumb charges the fetch of the next Thumb instruction.
func (c *Clock) PrefetchThumb(pc uint32) { c.CodeAccess16Seq(pc) }

// BranchedARM charges the pipeline refill after a branch in ARM state.
func (c *Clock) BranchedARM(target uint32) {
	c.CodeAccess32NonSeq(target)
	c.CodeAccess32Seq(target + 4)
}

// BranchedThumb charges the pipeline refill after a branch in Thumb state.
func (c *Clock) BranchedThumb(target uint32) {
	c.CodeAccess16NonSeq(target)
	c.CodeAccess16Seq(target + 2)
}

// Reset zeroes all counters. The cost table is kept.
func (c *Clock) Reset() {
	c.Cycles = 0
	c.timerCycles = 0
	c.audioCycles = 0
}
