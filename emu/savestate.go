package emu

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/sarchlab/gbasim/timing/latency"
)

// StateVersion is the current save-state format version.
const StateVersion = 1

var stateMagic = [4]byte{'G', 'B', 'S', 'T'}

// Save-state errors. Use errors.Cause to match them.
var (
	ErrStateMagic   = errors.New("not a save state")
	ErrStateVersion = errors.New("unsupported save state version")
)

type stateHeader struct {
	Magic   [4]byte
	Version uint32
}

type cpuState struct {
	R     [NumPhysicalRegs]uint32
	CPSR  uint32
	SPSRs [5]uint32

	Cycles       uint64
	TimerCycles  uint64
	AudioCycles  uint64
	Instructions uint64

	WaitControl uint16
	Costs       [latency.NumAreas]latency.RegionCost
}

type savedState struct {
	cpu      cpuState
	internal []byte
	sram     []byte
	io       IORegisters
}

// SaveState writes the complete machine state, except the BIOS and the
// cartridge ROM, to w.
func (e *Emulator) SaveState(w io.Writer) error {
	header := stateHeader{Magic: stateMagic, Version: StateVersion}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return errors.Wrap(err, "write state header")
	}

	cpu := cpuState{
		R:            e.regFile.R,
		CPSR:         e.regFile.CPSR,
		SPSRs:        e.regFile.SPSRs,
		Cycles:       e.clock.Cycles,
		TimerCycles:  e.clock.timerCycles,
		AudioCycles:  e.clock.audioCycles,
		Instructions: e.instructionCount,
		WaitControl:  e.table.WaitControl(),
		Costs:        e.table.Costs(),
	}
	if err := binary.Write(w, binary.LittleEndian, &cpu); err != nil {
		return errors.Wrap(err, "write cpu state")
	}

	if _, err := w.Write(e.memory.internal[RegionBIOS.Size:]); err != nil {
		return errors.Wrap(err, "write memory")
	}
	if _, err := w.Write(e.memory.sram); err != nil {
		return errors.Wrap(err, "write sram")
	}
	if err := binary.Write(w, binary.LittleEndian, &e.memory.io); err != nil {
		return errors.Wrap(err, "write io state")
	}

	return nil
}

// LoadState restores a state written by SaveState. The emulator is left
// untouched if the stream is invalid or truncated.
func (e *Emulator) LoadState(r io.Reader) error {
	var header stateHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return errors.Wrap(err, "read state header")
	}
	if header.Magic != stateMagic {
		return errors.Wrapf(ErrStateMagic, "magic %q", header.Magic[:])
	}
	if header.Version != StateVersion {
		return errors.Wrapf(ErrStateVersion, "version %d", header.Version)
	}

	s := savedState{
		internal: make([]byte, InternalSize-RegionBIOS.Size),
		sram:     make([]byte, SRAMSize),
	}
	if err := binary.Read(r, binary.LittleEndian, &s.cpu); err != nil {
		return errors.Wrap(err, "read cpu state")
	}
	if _, err := io.ReadFull(r, s.internal); err != nil {
		return errors.Wrap(err, "read memory")
	}
	if _, err := io.ReadFull(r, s.sram); err != nil {
		return errors.Wrap(err, "read sram")
	}
	if err := binary.Read(r, binary.LittleEndian, &s.io); err != nil {
		return errors.Wrap(err, "read io state")
	}

	e.commitState(&s)
	return nil
}

func (e *Emulator) commitState(s *savedState) {
	e.regFile.R = s.cpu.R
	e.regFile.CPSR = s.cpu.CPSR
	e.regFile.SPSRs = s.cpu.SPSRs

	e.clock.Cycles = s.cpu.Cycles
	e.clock.timerCycles = s.cpu.TimerCycles
	e.clock.audioCycles = s.cpu.AudioCycles
	e.instructionCount = s.cpu.Instructions
	e.table.SetCosts(s.cpu.Costs, s.cpu.WaitControl)

	copy(e.memory.internal[RegionBIOS.Size:], s.internal)
	copy(e.memory.sram, s.sram)
	e.memory.io = s.io
	e.memory.pending = 0

	e.branched = false
}
