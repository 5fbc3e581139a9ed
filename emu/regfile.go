package emu

import (
	"errors"
	"fmt"
)

// Mode is the 5-bit processor mode held in the low bits of the CPSR.
type Mode uint32

// ARM7TDMI processor modes.
const (
	ModeUSR Mode = 0x10 // User
	ModeFIQ Mode = 0x11 // Fast interrupt
	ModeIRQ Mode = 0x12 // Interrupt
	ModeSVC Mode = 0x13 // Supervisor
	ModeABT Mode = 0x17 // Abort
	ModeUND Mode = 0x1B // Undefined
	ModeSYS Mode = 0x1F // System
)

// String returns the conventional three-letter mode name.
func (m Mode) String() string {
	switch m {
	case ModeUSR:
		return "usr"
	case ModeFIQ:
		return "fiq"
	case ModeIRQ:
		return "irq"
	case ModeSVC:
		return "svc"
	case ModeABT:
		return "abt"
	case ModeUND:
		return "und"
	case ModeSYS:
		return "sys"
	default:
		return fmt.Sprintf("mode(0x%02X)", uint32(m))
	}
}

// Flag is a bit position in the status word.
type Flag uint32

// Status word bits.
const (
	FlagN Flag = 31 // Negative
	FlagZ Flag = 30 // Zero
	FlagC Flag = 29 // Carry
	FlagV Flag = 28 // Overflow
	FlagI Flag = 7  // IRQ disable
	FlagF Flag = 6  // FIQ disable
	FlagT Flag = 5  // Thumb state
)

const (
	modeMask  = 0x1F
	flagsMask = 0xF0000000

	// NumPhysicalRegs is the number of physical general-purpose registers.
	NumPhysicalRegs = 31

	// PC is the logical index of the program counter.
	PC = 15
	// LR is the logical index of the link register.
	LR = 14
	// SP is the logical index of the stack pointer.
	SP = 13
)

// ErrNoSPSR is returned when a saved status register is requested in a mode
// that has none (user or system).
var ErrNoSPSR = errors.New("mode has no saved status register")

// RegFile represents the ARM7TDMI register file.
//
// Physical layout: 0-15 are the user/system registers, 16-22 are r8-r14 for
// FIQ, 23-24 r13-r14 for SVC, 25-26 for ABT, 27-28 for IRQ, 29-30 for UND.
type RegFile struct {
	// R holds all physical registers.
	R [NumPhysicalRegs]uint32

	// CPSR is the current program status register.
	CPSR uint32

	// SPSRs holds the saved status registers for FIQ, SVC, ABT, IRQ and UND.
	SPSRs [5]uint32
}

// physical maps a logical register in the given mode to its physical slot.
func physical(mode Mode, reg uint32) uint32 {
	switch mode {
	case ModeFIQ:
		if reg >= 8 && reg <= 14 {
			return reg + 8
		}
	case ModeSVC:
		if reg == 13 || reg == 14 {
			return reg + 10
		}
	case ModeABT:
		if reg == 13 || reg == 14 {
			return reg + 12
		}
	case ModeIRQ:
		if reg == 13 || reg == 14 {
			return reg + 14
		}
	case ModeUND:
		if reg == 13 || reg == 14 {
			return reg + 16
		}
	}
	return reg
}

// spsrIndex returns the SPSR slot for a mode.
func spsrIndex(mode Mode) (int, error) {
	switch mode {
	case ModeFIQ:
		return 0, nil
	case ModeSVC:
		return 1, nil
	case ModeABT:
		return 2, nil
	case ModeIRQ:
		return 3, nil
	case ModeUND:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrNoSPSR, mode)
	}
}

// Mode returns the current processor mode.
func (r *RegFile) Mode() Mode {
	return Mode(r.CPSR & modeMask)
}

// SetMode switches the current processor mode. Banked registers follow.
func (r *RegFile) SetMode(mode Mode) {
	r.CPSR = (r.CPSR &^ modeMask) | uint32(mode)&modeMask
}

// Privileged reports whether the current mode is not user mode.
func (r *RegFile) Privileged() bool {
	return r.Mode() != ModeUSR
}

// Get reads a logical register (0-15) through the current mode's bank.
// The program counter is returned raw; pipeline lookahead is applied by the
// emulator while an instruction executes.
func (r *RegFile) Get(reg uint32) uint32 {
	return r.R[physical(r.Mode(), reg&0xF)]
}

// Set writes a logical register (0-15) through the current mode's bank.
func (r *RegFile) Set(reg uint32, value uint32) {
	r.R[physical(r.Mode(), reg&0xF)] = value
}

// GetUser reads a register from the user bank regardless of the current mode.
func (r *RegFile) GetUser(reg uint32) uint32 {
	return r.R[reg&0xF]
}

// SetUser writes a register in the user bank regardless of the current mode.
func (r *RegFile) SetUser(reg uint32, value uint32) {
	r.R[reg&0xF] = value
}

// PC returns the raw program counter.
func (r *RegFile) PC() uint32 {
	return r.R[PC]
}

// SetPC writes the raw program counter.
func (r *RegFile) SetPC(value uint32) {
	r.R[PC] = value
}

// WriteCPSR replaces the whole status word.
func (r *RegFile) WriteCPSR(value uint32) {
	r.CPSR = value
}

// WriteCPSRFlags replaces only the N, Z, C and V bits.
func (r *RegFile) WriteCPSRFlags(value uint32) {
	r.CPSR = (r.CPSR &^ flagsMask) | (value & flagsMask)
}

// SPSR returns the saved status register of the current mode.
func (r *RegFile) SPSR() (uint32, error) {
	idx, err := spsrIndex(r.Mode())
	if err != nil {
		return 0, err
	}
	return r.SPSRs[idx], nil
}

// SetSPSR writes the saved status register of the current mode.
func (r *RegFile) SetSPSR(value uint32) error {
	idx, err := spsrIndex(r.Mode())
	if err != nil {
		return err
	}
	r.SPSRs[idx] = value
	return nil
}

// SaveCPSR copies the CPSR into the current mode's SPSR.
func (r *RegFile) SaveCPSR() error {
	return r.SetSPSR(r.CPSR)
}

// LoadCPSR copies the current mode's SPSR into the CPSR.
func (r *RegFile) LoadCPSR() error {
	spsr, err := r.SPSR()
	if err != nil {
		return err
	}
	r.CPSR = spsr
	return nil
}

// GetFlag reports whether a status bit is set.
func (r *RegFile) GetFlag(f Flag) bool {
	return r.CPSR&(1<<f) != 0
}

// SetFlag sets a status bit.
func (r *RegFile) SetFlag(f Flag) {
	r.CPSR |= 1 << f
}

// ClearFlag clears a status bit.
func (r *RegFile) ClearFlag(f Flag) {
	r.CPSR &^= 1 << f
}

// PutFlag sets or clears a status bit.
func (r *RegFile) PutFlag(f Flag, set bool) {
	if set {
		r.SetFlag(f)
	} else {
		r.ClearFlag(f)
	}
}

// Thumb reports whether the Thumb decode table is active.
func (r *RegFile) Thumb() bool {
	return r.GetFlag(FlagT)
}

// setNZ updates N and Z from a 32-bit result.
func (r *RegFile) setNZ(result uint32) {
	r.PutFlag(FlagN, result&0x80000000 != 0)
	r.PutFlag(FlagZ, result == 0)
}

// setNZ64 updates N and Z from a 64-bit result.
func (r *RegFile) setNZ64(result uint64) {
	r.PutFlag(FlagN, result&(1<<63) != 0)
	r.PutFlag(FlagZ, result == 0)
}

// Reset values used when no BIOS is present.
const (
	ResetSPUser       = 0x03007F00
	ResetSPIRQ        = 0x03007FA0
	ResetSPSupervisor = 0x03007FE0
	ResetEntryROM     = 0x08000000
)

// Reset clears all registers. With skipBIOS the register file is left in the
// state the BIOS hands to a cartridge: system mode, stacks set up, PC at the
// start of ROM. Otherwise the processor starts in supervisor mode at the
// reset vector with interrupts masked.
func (r *RegFile) Reset(skipBIOS bool) {
	*r = RegFile{}

	if !skipBIOS {
		r.CPSR = uint32(ModeSVC) | 1<<FlagI | 1<<FlagF
		return
	}

	r.CPSR = uint32(ModeIRQ)
	r.Set(SP, ResetSPIRQ)
	r.CPSR = uint32(ModeSVC)
	r.Set(SP, ResetSPSupervisor)
	r.CPSR = uint32(ModeSYS)
	r.Set(SP, ResetSPUser)
	r.SetPC(ResetEntryROM)
}
