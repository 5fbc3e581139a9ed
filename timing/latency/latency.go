// Package latency provides the bus cost model for cycle-accurate simulation.
//
// Costs are indexed by the memory area (address bits 31-24), the access
// width and whether the access is sequential. Game-pak and SRAM costs are
// derived from the WAITCNT register and can be re-derived at run time.
package latency

// Width selects the access width column of a cost entry.
type Width int

// Access widths.
const (
	Width8 Width = iota
	Width16
	Width32
)

// NumAreas is the number of address areas with a dedicated cost entry.
const NumAreas = 15

// Area numbers (address bits 31-24) with fixed roles.
const (
	AreaBIOS    = 0x0
	AreaEWRAM   = 0x2
	AreaIWRAM   = 0x3
	AreaIO      = 0x4
	AreaPalette = 0x5
	AreaVRAM    = 0x6
	AreaOAM     = 0x7
	AreaWS0     = 0x8
	AreaWS1     = 0xA
	AreaWS2     = 0xC
	AreaSRAM    = 0xE
)

// RegionCost holds the sequential and non-sequential costs of one area for
// 8, 16 and 32-bit accesses.
type RegionCost struct {
	Seq    [3]uint32
	NonSeq [3]uint32
}

func flat(c uint32) RegionCost {
	return RegionCost{Seq: [3]uint32{c, c, c}, NonSeq: [3]uint32{c, c, c}}
}

func widened(c uint32) RegionCost {
	return RegionCost{
		Seq:    [3]uint32{c, c, c * 2},
		NonSeq: [3]uint32{c, c, c * 2},
	}
}

// firstAccess is the game-pak first-access wait state table.
var firstAccess = [4]uint32{4, 3, 2, 8}

// Table provides access cost lookups.
type Table struct {
	config  *TimingConfig
	costs   [NumAreas]RegionCost
	waitcnt uint16
}

// NewTable creates a new cost table with default timing values.
func NewTable() *Table {
	return NewTableWithConfig(DefaultTimingConfig())
}

// NewTableWithConfig creates a new cost table with a custom configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	t := &Table{config: config}
	t.Reset()
	return t
}

// Reset restores the fixed area costs and applies the configured WAITCNT.
func (t *Table) Reset() {
	t.costs = [NumAreas]RegionCost{}
	t.costs[AreaBIOS] = flat(1)
	t.costs[AreaEWRAM] = widened(1 + t.config.EWRAMWaitStates)
	t.costs[AreaIWRAM] = flat(1)
	t.costs[AreaIO] = flat(1)
	t.costs[AreaPalette] = widened(1)
	t.costs[AreaVRAM] = flat(1)
	t.costs[AreaOAM] = flat(1)
	t.SetupWaitstates(t.config.WaitControl)
}

// SetupWaitstates derives the SRAM and the three game-pak wait state windows
// from a WAITCNT value.
func (t *Table) SetupWaitstates(waitcnt uint16) {
	t.waitcnt = waitcnt

	sram := firstAccess[waitcnt&0x3] + 1
	t.costs[AreaSRAM] = flat(sram)

	t.gamePak(AreaWS0, firstAccess[(waitcnt>>2)&0x3], waitcnt&(1<<4) != 0, 2)
	t.gamePak(AreaWS1, firstAccess[(waitcnt>>5)&0x3], waitcnt&(1<<7) != 0, 4)
	t.gamePak(AreaWS2, firstAccess[(waitcnt>>8)&0x3], waitcnt&(1<<10) != 0, 8)
}

// gamePak fills a pair of areas for one wait state window. A 32-bit access
// is split into two 16-bit bus cycles.
func (t *Table) gamePak(area int, n uint32, fastSeq bool, slowSeq uint32) {
	seq := slowSeq
	if fastSeq {
		seq = 1
	}

	cost := RegionCost{
		Seq:    [3]uint32{seq + 1, seq + 1, seq * 2},
		NonSeq: [3]uint32{n + 1, n + 1, (n + 1) + (seq + 1)},
	}
	t.costs[area] = cost
	t.costs[area+1] = cost
}

// WaitControl returns the WAITCNT value the game-pak costs were derived from.
func (t *Table) WaitControl() uint16 {
	return t.waitcnt
}

// Seq returns the cost of a sequential access at addr.
func (t *Table) Seq(addr uint32, w Width) uint32 {
	area := addr >> 24
	if area >= NumAreas {
		return t.config.UnmappedCost
	}
	return t.costs[area].Seq[w]
}

// NonSeq returns the cost of a non-sequential access at addr.
func (t *Table) NonSeq(addr uint32, w Width) uint32 {
	area := addr >> 24
	if area >= NumAreas {
		return t.config.UnmappedCost
	}
	return t.costs[area].NonSeq[w]
}

// Area returns the cost entry of an area.
func (t *Table) Area(area int) RegionCost {
	return t.costs[area]
}

// Costs returns a copy of the whole cost table.
func (t *Table) Costs() [NumAreas]RegionCost {
	return t.costs
}

// SetCosts replaces the whole cost table.
func (t *Table) SetCosts(costs [NumAreas]RegionCost, waitcnt uint16) {
	t.costs = costs
	t.waitcnt = waitcnt
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
