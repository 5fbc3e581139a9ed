// Package emu provides functional ARM7TDMI emulation.
package emu

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbasim/insts"
	"github.com/sarchlab/gbasim/timing/latency"
)

// Exception vectors.
const (
	VectorReset     = 0x00
	VectorUndefined = 0x04
	VectorSWI       = 0x08
	VectorIRQ       = 0x18
)

// ErrMaxInstructions is reported by Step once the instruction limit is hit.
var ErrMaxInstructions = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if the CPU was halted or stopped and no instruction ran.
	Halted bool

	// Cycles is the number of cycles the step consumed.
	Cycles uint64

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes ARM7TDMI instructions against the system bus.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	clock   *Clock
	table   *latency.Table
	decoder *insts.Decoder

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	sink   EventSink
	logger *logrus.Logger
	bios   []byte

	// Execution state
	exec             uint32 // address of the instruction being executed
	branched         bool
	inStep           bool
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithEventSink installs an observer for execution events.
func WithEventSink(sink EventSink) EmulatorOption {
	return func(e *Emulator) {
		e.sink = sink
	}
}

// WithTimingTable sets the bus cost table.
func WithTimingTable(table *latency.Table) EmulatorOption {
	return func(e *Emulator) {
		e.table = table
	}
}

// WithBIOS installs a BIOS image. Without one the emulator starts directly
// at the cartridge entry point in system mode.
func WithBIOS(bios []byte) EmulatorOption {
	return func(e *Emulator) {
		e.bios = bios
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *logrus.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// NewEmulator creates a new ARM7TDMI emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		logger:  logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.table == nil {
		e.table = latency.NewTable()
	}
	e.clock = NewClock(e.table)
	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.memory, e.clock)
	e.branchUnit = NewBranchUnit(e)
	e.memory.Subscribe(IOListenerFunc(e.onIOWrite))

	e.Reset()
	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Clock returns the emulator's cycle counter.
func (e *Emulator) Clock() *Clock {
	return e.clock
}

// Decoder returns the instruction decoder used for tracing.
func (e *Emulator) Decoder() *insts.Decoder {
	return e.decoder
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadROM installs a cartridge image.
func (e *Emulator) LoadROM(rom []byte) {
	e.memory.LoadROM(rom)
}

// Reset returns the CPU, the memory (except BIOS and cartridge) and the clock
// to their power-on state.
func (e *Emulator) Reset() {
	e.memory.Reset()
	if e.bios != nil {
		e.memory.LoadBIOS(e.bios)
	}
	e.regFile.Reset(e.bios == nil)
	e.table.Reset()
	e.clock.Reset()
	e.memory.SetReg16(RegWAITCNT, e.table.WaitControl())

	e.branched = false
	e.inStep = false
	e.instructionCount = 0
}

// Halted reports whether the CPU is halted or stopped.
func (e *Emulator) Halted() bool {
	io := e.memory.IO()
	return io.Halted || io.Stopped
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	start := e.clock.Cycles
	e.serviceIRQ()

	if e.Halted() {
		e.clock.Internal(1)
		return StepResult{Halted: true, Cycles: e.clock.Cycles - start}
	}

	e.inStep = true
	if e.regFile.Thumb() {
		e.stepThumb()
	} else {
		e.stepARM()
	}
	e.inStep = false
	e.instructionCount++

	return StepResult{Cycles: e.clock.Cycles - start}
}

// Run executes instructions until the cycle counter has advanced by at
// least budget cycles or an error occurs.
func (e *Emulator) Run(budget uint64) error {
	end := e.clock.Cycles + budget
	for e.clock.Cycles < end {
		if result := e.Step(); result.Err != nil {
			return result.Err
		}
	}
	return nil
}

func (e *Emulator) stepARM() {
	exec := e.regFile.PC()
	instr := e.memory.Read32(exec)

	e.exec = exec
	e.branched = false
	e.regFile.SetPC(exec + 8)
	e.clock.PrefetchARM(exec + 8)

	if e.regFile.CheckCondition(Cond(instr >> 28)) {
		if e.sink != nil {
			e.emit(Event{Kind: EventExecute, Addr: exec, Instr: instr})
		}
		armTable[insts.ARMRow(instr)<<4|insts.ARMCol(instr)](e, instr)
	}

	e.finish(exec + 4)
}

func (e *Emulator) stepThumb() {
	exec := e.regFile.PC()
	instr := e.memory.Read16(exec)

	e.exec = exec
	e.branched = false
	e.regFile.SetPC(exec + 4)
	e.clock.PrefetchThumb(exec + 4)

	if e.sink != nil {
		e.emit(Event{Kind: EventExecute, Addr: exec, Instr: uint32(instr), Thumb: true})
	}
	thumbTable[instr>>8](e, instr)

	e.finish(exec + 2)
}

// finish leaves R15 at the address of the next instruction. After a branch
// the target is aligned for the state the CPU ended up in and the pipeline
// refill is charged.
func (e *Emulator) finish(next uint32) {
	if !e.branched {
		e.regFile.SetPC(next)
		return
	}
	e.flushPipeline()
}

func (e *Emulator) flushPipeline() {
	e.branched = false

	target := e.regFile.PC()
	thumb := e.regFile.Thumb()
	if thumb {
		target &^= 1
		e.clock.BranchedThumb(target)
	} else {
		target &^= 3
		e.clock.BranchedARM(target)
	}
	e.regFile.SetPC(target)

	if e.sink != nil {
		e.emit(Event{Kind: EventBranch, Addr: e.exec, Target: target, Thumb: thumb})
	}
}

// branchTo redirects execution. The new PC takes effect once the current
// instruction completes.
func (e *Emulator) branchTo(addr uint32) {
	e.regFile.SetPC(addr)
	e.branched = true
}

// writeReg writes a register; writes to r15 branch.
func (e *Emulator) writeReg(reg, value uint32) {
	if reg == PC {
		e.branchTo(value)
		return
	}
	e.regFile.Set(reg, value)
}

// restoreCPSR copies the SPSR into the CPSR. Modes without an SPSR keep
// their CPSR.
func (e *Emulator) restoreCPSR() {
	if err := e.regFile.LoadCPSR(); err != nil {
		e.logger.WithFields(logrus.Fields{
			"addr": e.exec,
			"mode": e.regFile.Mode().String(),
		}).Debug("status restore without saved status register")
	}
}

func (e *Emulator) emit(ev Event) {
	ev.Mode = e.regFile.Mode()
	ev.Cycles = e.clock.Cycles
	e.sink.Emit(ev)
}

func (e *Emulator) onIOWrite(ev IOEvent) {
	if ev.Change.Has(ChangeWaitControl) {
		e.table.SetupWaitstates(e.memory.Reg16(RegWAITCNT))
	}
	if ev.Change.Has(ChangeHalt|ChangeStop) && e.sink != nil {
		e.emit(Event{Kind: EventHalt, Addr: e.exec, Instr: ev.Value})
	}
}
