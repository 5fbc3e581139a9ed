// Package loader reads cartridge images, ARM executables and BIOS images.
package loader

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/sarchlab/gbasim/emu"
)

// MaxROMSize is the size of one cartridge wait state window.
const MaxROMSize = romWindow

// BIOSSize is the size of the BIOS region.
const BIOSSize = 0x4000

var elfMagic = []byte{0x7F, 'E', 'L', 'F'}

// Program is a loaded cartridge.
type Program struct {
	// ROM is the cartridge image mapped at 0x08000000.
	ROM []byte
	// EntryPoint is the address execution starts at when no BIOS runs.
	// Bit 0 selects Thumb state.
	EntryPoint uint32
	// Header is nil for executables whose image has no cartridge header.
	Header *Header
	// Preload lists work RAM contents to install before starting.
	Preload []Segment
}

// Options controls how images are accepted.
type Options struct {
	// SkipChecksum accepts cartridges whose header checksum does not match.
	SkipChecksum bool
}

// LoadROM loads a cartridge image or an ARM ELF executable, validating the
// cartridge header checksum.
func LoadROM(path string) (*Program, error) {
	return LoadROMWithOptions(path, Options{})
}

// LoadROMWithOptions loads a cartridge image or an ARM ELF executable.
func LoadROMWithOptions(path string, opts Options) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ROM file: %w", err)
	}
	return ParseROM(data, opts)
}

// ParseROM builds a program from an in-memory image.
func ParseROM(data []byte, opts Options) (*Program, error) {
	if bytes.HasPrefix(data, elfMagic) {
		prog, err := loadELF(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if len(prog.ROM) >= HeaderSize {
			prog.Header, _ = ParseHeader(prog.ROM)
		}
		return prog, nil
	}

	if len(data) > MaxROMSize {
		return nil, fmt.Errorf("ROM image is %d bytes, larger than %d", len(data), MaxROMSize)
	}

	header, err := ParseHeader(data)
	switch {
	case errors.Cause(err) == ErrChecksum && opts.SkipChecksum:
	case err != nil:
		return nil, fmt.Errorf("invalid cartridge header: %w", err)
	}

	return &Program{
		ROM:        data,
		EntryPoint: emu.ROMStart,
		Header:     header,
	}, nil
}

// LoadBIOS reads a BIOS image.
func LoadBIOS(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read BIOS file: %w", err)
	}
	if len(data) == 0 || len(data) > BIOSSize {
		return nil, fmt.Errorf("BIOS image is %d bytes, expected 1 to %d", len(data), BIOSSize)
	}
	return data, nil
}

// Install loads the cartridge and the preload segments into e. Memory is
// cleared by Emulator.Reset, so Install must run after any reset.
func (p *Program) Install(e *emu.Emulator) {
	e.LoadROM(p.ROM)

	mem := e.Memory()
	for _, seg := range p.Preload {
		for i := uint32(0); i < seg.MemSize; i++ {
			var b uint8
			if int(i) < len(seg.Data) {
				b = seg.Data[i]
			}
			mem.Write8(seg.Addr+i, b)
		}
	}
}

// Start points the CPU at the entry point. It is used when no BIOS runs.
func (p *Program) Start(e *emu.Emulator) {
	rf := e.RegFile()
	rf.PutFlag(emu.FlagT, p.EntryPoint&1 != 0)
	rf.SetPC(p.EntryPoint &^ 1)
}
