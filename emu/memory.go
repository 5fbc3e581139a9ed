package emu

// Region describes one block of the flat internal buffer and the bus
// addresses that map onto it.
type Region struct {
	Name   string
	Start  uint32 // first bus address
	End    uint32 // last bus address, inclusive
	Size   uint32 // bytes of backing storage
	Local  uint32 // offset of the backing storage in the internal buffer
	Mirror uint32 // mirror period, 0 when not mirrored
}

// Memory regions backed by the internal buffer.
var (
	RegionBIOS    = Region{Name: "bios", Start: 0x00000000, End: 0x00003FFF, Size: 0x4000, Local: 0x00000}
	RegionEWRAM   = Region{Name: "ewram", Start: 0x02000000, End: 0x02FFFFFF, Size: 0x40000, Local: 0x04000, Mirror: 0x40000}
	RegionIWRAM   = Region{Name: "iwram", Start: 0x03000000, End: 0x03FFFFFF, Size: 0x8000, Local: 0x44000, Mirror: 0x8000}
	RegionIO      = Region{Name: "io", Start: 0x04000000, End: 0x04000804, Size: 0x805, Local: 0x4C000}
	RegionPalette = Region{Name: "palette", Start: 0x05000000, End: 0x05FFFFFF, Size: 0x400, Local: 0x4C805, Mirror: 0x400}
	RegionVRAM    = Region{Name: "vram", Start: 0x06000000, End: 0x06FFFFFF, Size: 0x18000, Local: 0x4CC05, Mirror: 0x20000}
	RegionOAM     = Region{Name: "oam", Start: 0x07000000, End: 0x07FFFFFF, Size: 0x400, Local: 0x64C05, Mirror: 0x400}
)

// InternalSize is the size of the flat internal buffer.
const InternalSize = 0x65005

// Cartridge bus windows.
const (
	ROMStart  = 0x08000000
	ROMEnd    = 0x0DFFFFFF
	SRAMStart = 0x0E000000
	SRAMEnd   = 0x0E00FFFF
	SRAMSize  = 0x10000

	// romWindowMask folds the three 32 MiB wait state windows onto the
	// cartridge image.
	romWindowMask = 0x01FFFFFF

	// ioHookEnd is the last address whose writes are reported to the I/O
	// registers.
	ioHookEnd = 0x04000803
)

// IOEvent describes one write into the I/O window.
type IOEvent struct {
	Addr   uint32
	Value  uint32
	Width  int // 8, 16 or 32
	Change IOChange
}

// IOListener is notified after every write into the I/O window.
type IOListener interface {
	IOWritten(ev IOEvent)
}

// IOListenerFunc adapts a function to the IOListener interface.
type IOListenerFunc func(ev IOEvent)

// IOWritten calls f(ev).
func (f IOListenerFunc) IOWritten(ev IOEvent) {
	f(ev)
}

// Memory is the system bus: the internal buffer holding BIOS, work RAM, I/O,
// palette, VRAM and OAM, plus the cartridge ROM and SRAM.
type Memory struct {
	internal []byte
	rom      []byte
	sram     []byte

	io        IORegisters
	pending   IOChange
	listeners []IOListener
}

// NewMemory creates an empty address space.
func NewMemory() *Memory {
	return &Memory{
		internal: make([]byte, InternalSize),
		sram:     make([]byte, SRAMSize),
	}
}

// Transform maps a bus address onto the internal buffer. ok is false when the
// address is not backed by the internal buffer (cartridge, unmapped, or the
// unused part of the I/O page).
func (m *Memory) Transform(addr uint32) (index int, writable bool, ok bool) {
	switch addr >> 24 {
	case 0x00:
		if addr <= RegionBIOS.End {
			return int(RegionBIOS.Local + addr), false, true
		}
	case 0x02:
		return int(RegionEWRAM.Local + addr%RegionEWRAM.Mirror), true, true
	case 0x03:
		return int(RegionIWRAM.Local + addr%RegionIWRAM.Mirror), true, true
	case 0x04:
		if addr&0xFFFC == 0x0800 {
			return int(RegionIO.Local + 0x800 + addr&3), true, true
		}
		if addr <= RegionIO.End {
			return int(RegionIO.Local + addr - RegionIO.Start), true, true
		}
	case 0x05:
		return int(RegionPalette.Local + addr%RegionPalette.Mirror), true, true
	case 0x06:
		off := addr % RegionVRAM.Mirror
		if off >= RegionVRAM.Size {
			off -= 0x8000
		}
		return int(RegionVRAM.Local + off), true, true
	case 0x07:
		return int(RegionOAM.Local + addr%RegionOAM.Mirror), true, true
	}
	return 0, false, false
}

func (m *Memory) read8(addr uint32) uint8 {
	switch {
	case addr >= ROMStart && addr <= ROMEnd:
		idx := (addr - ROMStart) & romWindowMask
		if int(idx) >= len(m.rom) {
			return 0
		}
		return m.rom[idx]
	case addr >= SRAMStart && addr <= SRAMEnd:
		return m.sram[addr-SRAMStart]
	}

	idx, _, ok := m.Transform(addr)
	if !ok {
		return 0
	}
	return m.internal[idx]
}

func (m *Memory) write8(addr uint32, value uint8) {
	switch {
	case addr >= ROMStart && addr <= ROMEnd:
		return
	case addr >= SRAMStart && addr <= SRAMEnd:
		m.sram[addr-SRAMStart] = value
		return
	}

	idx, writable, ok := m.Transform(addr)
	if !ok || !writable {
		return
	}

	// Writing a 1 to an IF bit acknowledges the interrupt.
	if addr == 0x04000000+RegIF || addr == 0x04000000+RegIF+1 {
		m.internal[idx] &^= value
		return
	}
	m.internal[idx] = value
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) uint8 {
	return m.read8(addr)
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint32) uint16 {
	return uint16(m.read8(addr)) | uint16(m.read8(addr+1))<<8
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) uint32 {
	return uint32(m.read8(addr)) |
		uint32(m.read8(addr+1))<<8 |
		uint32(m.read8(addr+2))<<16 |
		uint32(m.read8(addr+3))<<24
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	m.write8(addr, value)
	if inIOHook(addr) {
		m.notify(addr, uint32(value), 8, m.io.OnWrite8(addr, value, m.ioBytes()))
	}
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) {
	m.write8(addr, uint8(value))
	m.write8(addr+1, uint8(value>>8))
	if inIOHook(addr) {
		m.notify(addr, uint32(value), 16, m.io.OnWrite16(addr, value))
	}
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.write8(addr, uint8(value))
	m.write8(addr+1, uint8(value>>8))
	m.write8(addr+2, uint8(value>>16))
	m.write8(addr+3, uint8(value>>24))
	if inIOHook(addr) {
		m.notify(addr, value, 32, m.io.OnWrite32(addr, value))
	}
}

func inIOHook(addr uint32) bool {
	return addr >= RegionIO.Start && addr <= ioHookEnd
}

func (m *Memory) notify(addr, value uint32, width int, change IOChange) {
	m.pending |= change
	if len(m.listeners) == 0 {
		return
	}

	ev := IOEvent{Addr: addr, Value: value, Width: width, Change: change}
	for _, l := range m.listeners {
		l.IOWritten(ev)
	}
}

// Subscribe registers a listener for I/O writes.
func (m *Memory) Subscribe(l IOListener) {
	m.listeners = append(m.listeners, l)
}

// PendingIO returns the accumulated I/O changes without clearing them.
func (m *Memory) PendingIO() IOChange {
	return m.pending
}

// TakePendingIO returns the accumulated I/O changes and clears them.
func (m *Memory) TakePendingIO() IOChange {
	c := m.pending
	m.pending = 0
	return c
}

// IO returns the decoded peripheral state.
func (m *Memory) IO() *IORegisters {
	return &m.io
}

func (m *Memory) ioBytes() []byte {
	return m.internal[RegionIO.Local : RegionIO.Local+RegionIO.Size]
}

// DirectRead8 reads a byte from the internal buffer.
func (m *Memory) DirectRead8(index int) uint8 {
	return m.internal[index]
}

// DirectRead16 reads a halfword from the internal buffer.
func (m *Memory) DirectRead16(index int) uint16 {
	return uint16(m.internal[index]) | uint16(m.internal[index+1])<<8
}

// DirectRead32 reads a word from the internal buffer.
func (m *Memory) DirectRead32(index int) uint32 {
	return uint32(m.DirectRead16(index)) | uint32(m.DirectRead16(index+2))<<16
}

// DirectWrite8 writes a byte into the internal buffer, bypassing side effects.
func (m *Memory) DirectWrite8(index int, value uint8) {
	m.internal[index] = value
}

// DirectWrite16 writes a halfword into the internal buffer.
func (m *Memory) DirectWrite16(index int, value uint16) {
	m.internal[index] = uint8(value)
	m.internal[index+1] = uint8(value >> 8)
}

// DirectWrite32 writes a word into the internal buffer.
func (m *Memory) DirectWrite32(index int, value uint32) {
	m.DirectWrite16(index, uint16(value))
	m.DirectWrite16(index+2, uint16(value>>16))
}

// Reg16 reads an I/O register by its offset in the I/O window.
func (m *Memory) Reg16(off uint32) uint16 {
	return m.DirectRead16(int(RegionIO.Local + off))
}

// SetReg16 writes an I/O register by offset without triggering the hook.
func (m *Memory) SetReg16(off uint32, value uint16) {
	m.DirectWrite16(int(RegionIO.Local+off), value)
}

// Reg8 reads a byte-sized I/O register by offset.
func (m *Memory) Reg8(off uint32) uint8 {
	return m.DirectRead8(int(RegionIO.Local + off))
}

// LoadBIOS copies a BIOS image into the BIOS region. Images larger than the
// region are truncated.
func (m *Memory) LoadBIOS(data []byte) {
	bios := m.internal[RegionBIOS.Local : RegionBIOS.Local+RegionBIOS.Size]
	clear(bios)
	copy(bios, data)
}

// LoadROM installs a cartridge image. The slice is retained.
func (m *Memory) LoadROM(data []byte) {
	m.rom = data
}

// ROM returns the installed cartridge image.
func (m *Memory) ROM() []byte {
	return m.rom
}

// LoadSRAM restores the cartridge save memory.
func (m *Memory) LoadSRAM(data []byte) {
	clear(m.sram)
	copy(m.sram, data)
}

// SRAM returns the cartridge save memory.
func (m *Memory) SRAM() []byte {
	return m.sram
}

// Reset clears every region except the BIOS and the cartridge, and the
// decoded I/O state.
func (m *Memory) Reset() {
	clear(m.internal[RegionBIOS.Size:])
	m.io = IORegisters{}
	m.pending = 0
}
