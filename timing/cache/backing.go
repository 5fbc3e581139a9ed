package cache

import (
	"github.com/sarchlab/gbasim/emu"
)

// MemoryBacking reads and writes lines through the emulator's bus view, so
// mirrors and unmapped areas behave as they do for the CPU.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking creates a new MemoryBacking adapter.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read fetches size bytes starting at addr.
func (m *MemoryBacking) Read(addr uint32, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = m.memory.Read8(addr + uint32(i))
	}
	return data
}

// Write stores data starting at addr.
func (m *MemoryBacking) Write(addr uint32, data []byte) {
	for i, b := range data {
		m.memory.Write8(addr+uint32(i), b)
	}
}
