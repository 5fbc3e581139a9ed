package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/sarchlab/gbasim/emu"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// romWindow is the size of one cartridge wait state window.
const romWindow = 0x02000000

// Segment is a block of RAM the program expects to be initialized before it
// starts.
type Segment struct {
	Addr uint32
	Data []byte
	// MemSize is the size in memory; bytes past len(Data) are zeroed.
	MemSize uint32
	Flags   SegmentFlags
}

func segmentFlags(f elf.ProgFlag) SegmentFlags {
	var flags SegmentFlags
	if f&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if f&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if f&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}
	return flags
}

func inRAM(addr, size uint32) bool {
	for _, r := range []emu.Region{emu.RegionEWRAM, emu.RegionIWRAM} {
		if addr >= r.Start && addr-r.Start+size <= r.Size {
			return true
		}
	}
	return false
}

// loadELF lays out a 32-bit ARM executable. Segments linked into the first
// cartridge window form the ROM image; segments linked into work RAM are
// returned as preload segments.
func loadELF(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}
	if f.Machine != elf.EM_ARM {
		return nil, fmt.Errorf("not an ARM ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{EntryPoint: uint32(f.Entry)}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD || phdr.Memsz == 0 {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		addr := uint32(phdr.Vaddr)
		size := uint32(phdr.Memsz)
		switch {
		case addr >= emu.ROMStart && addr-emu.ROMStart+size <= romWindow:
			prog.placeROM(addr-emu.ROMStart, data)
		case inRAM(addr, size):
			prog.Preload = append(prog.Preload, Segment{
				Addr:    addr,
				Data:    data,
				MemSize: size,
				Flags:   segmentFlags(phdr.Flags),
			})
		default:
			return nil, fmt.Errorf("segment at 0x%x (%d bytes) is outside ROM and work RAM", addr, size)
		}
	}

	return prog, nil
}

func (p *Program) placeROM(off uint32, data []byte) {
	end := int(off) + len(data)
	if end > len(p.ROM) {
		grown := make([]byte, end)
		copy(grown, p.ROM)
		p.ROM = grown
	}
	copy(p.ROM[off:], data)
}
