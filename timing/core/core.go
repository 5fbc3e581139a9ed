// Package core drives the interpreter in cycle budgets and collects
// execution statistics.
package core

import (
	"errors"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/timing/cache"
)

// Display timing.
const (
	CyclesPerLine  = 1232
	LinesPerFrame  = 228
	CyclesPerFrame = CyclesPerLine * LinesPerFrame
)

// ErrCycleLimit is returned by RunUntilHalt when the limit elapses first.
var ErrCycleLimit = errors.New("cycle limit reached before halt")

// Stats holds performance statistics for the core.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	Frames       uint64

	Branches   uint64
	Exceptions uint64
	IRQs       uint64
	Undefined  uint64
	Halts      uint64
	// HaltedCycles is the part of Cycles spent with the CPU halted.
	HaltedCycles uint64

	Fetch cache.Statistics
}

// CPI returns the average number of cycles per executed instruction,
// excluding halted cycles.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles-s.HaltedCycles) / float64(s.Instructions)
}

// Option configures a Core.
type Option func(*Core)

// WithEmulatorOptions passes options through to the emulator. The core
// always installs itself as the emulator's event sink.
func WithEmulatorOptions(opts ...emu.EmulatorOption) Option {
	return func(c *Core) {
		c.emuOpts = append(c.emuOpts, opts...)
	}
}

// WithEventSink forwards every event to sink after the core has counted it.
func WithEventSink(sink emu.EventSink) Option {
	return func(c *Core) {
		c.sink = sink
	}
}

// WithFetchCache profiles instruction fetches through a cache model.
func WithFetchCache(config cache.Config) Option {
	return func(c *Core) {
		c.fetchConfig = &config
	}
}

// WithVBlank raises the VBlank interrupt at the end of every frame run by
// RunFrames.
func WithVBlank() Option {
	return func(c *Core) {
		c.vblank = true
	}
}

// Core wraps an emulator.
type Core struct {
	emu   *emu.Emulator
	fetch *cache.Cache
	sink  emu.EventSink

	emuOpts     []emu.EmulatorOption
	fetchConfig *cache.Config
	vblank      bool

	stats Stats
}

// NewCore creates a core and its emulator.
func NewCore(opts ...Option) *Core {
	c := &Core{}
	for _, opt := range opts {
		opt(c)
	}

	c.emu = emu.NewEmulator(append(c.emuOpts, emu.WithEventSink(c))...)
	if c.fetchConfig != nil {
		c.fetch = cache.New(*c.fetchConfig, cache.NewMemoryBacking(c.emu.Memory()))
	}
	return c
}

// Emulator returns the wrapped emulator.
func (c *Core) Emulator() *emu.Emulator {
	return c.emu
}

// FetchCache returns the fetch profiling cache, or nil if none is
// configured.
func (c *Core) FetchCache() *cache.Cache {
	return c.fetch
}

// Emit counts an event and forwards it.
func (c *Core) Emit(ev emu.Event) {
	switch ev.Kind {
	case emu.EventExecute:
		if c.fetch != nil {
			size := 4
			if ev.Thumb {
				size = 2
			}
			c.fetch.Read(ev.Addr, size)
		}
	case emu.EventBranch:
		c.stats.Branches++
	case emu.EventException:
		c.stats.Exceptions++
		if ev.Target == emu.VectorIRQ {
			c.stats.IRQs++
		}
	case emu.EventUndefined:
		c.stats.Undefined++
	case emu.EventHalt:
		c.stats.Halts++
	}

	if c.sink != nil {
		c.sink.Emit(ev)
	}
}

// RunCycles executes until at least budget cycles have elapsed. It stops
// early on the first execution error.
func (c *Core) RunCycles(budget uint64) error {
	clock := c.emu.Clock()
	end := clock.Cycles + budget
	for clock.Cycles < end {
		result := c.emu.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			c.stats.HaltedCycles += result.Cycles
		}
	}
	return nil
}

// RunUntilHalt executes until the CPU halts or stops. A limit of 0 means
// no cycle limit.
func (c *Core) RunUntilHalt(limit uint64) error {
	clock := c.emu.Clock()
	end := clock.Cycles + limit
	for !c.emu.Halted() {
		if limit > 0 && clock.Cycles >= end {
			return ErrCycleLimit
		}
		if result := c.emu.Step(); result.Err != nil {
			return result.Err
		}
	}
	return nil
}

// RunFrames executes n display frames.
func (c *Core) RunFrames(n int) error {
	for i := 0; i < n; i++ {
		if err := c.RunCycles(CyclesPerFrame); err != nil {
			return err
		}
		c.stats.Frames++
		if c.vblank {
			c.emu.RaiseInterrupt(emu.IRQVBlank)
		}
	}
	return nil
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.stats
	s.Cycles = c.emu.Clock().Cycles
	s.Instructions = c.emu.InstructionCount()
	if c.fetch != nil {
		s.Fetch = c.fetch.Stats()
	}
	return s
}

// Reset resets the emulator, the statistics and the fetch cache.
func (c *Core) Reset() {
	c.emu.Reset()
	c.stats = Stats{}
	if c.fetch != nil {
		c.fetch.Reset()
	}
}
