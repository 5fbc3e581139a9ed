// Package cache models a set-associative cache in front of the system bus.
//
// The console has no instruction cache. The model is used to measure the
// locality of the code a cartridge executes: how much of the fetch stream
// would be served by a small line buffer, and which regions miss.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles, including the bus refill
	MissLatency uint64
}

// DefaultFetchConfig returns the configuration used to profile instruction
// fetches: 4 KiB, 4-way, 32-byte lines. The miss latency is a full
// non-sequential game-pak word plus seven sequential words at the boot
// WAITCNT.
func DefaultFetchConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 4,
		BlockSize:     32,
		HitLatency:    1,
		MissLatency:   6 + 7*2,
	}
}

// DefaultDataConfig returns a configuration for profiling data accesses to
// EWRAM.
func DefaultDataConfig() Config {
	return Config{
		Size:          8 * 1024,
		Associativity: 4,
		BlockSize:     16,
		HitLatency:    1,
		MissLatency:   6 + 3*6,
	}
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	Hit     bool
	Latency uint64
	// Data is the value read, little-endian.
	Data uint32
	// Evicted is true if a valid line was replaced.
	Evicted     bool
	EvictedAddr uint32
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns the fraction of accesses that hit. It is 0 before the
// first access.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	Read(addr uint32, size int) []byte
	Write(addr uint32, data []byte)
}

// Cache is a write-back, write-allocate cache built on the Akita directory.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	stats   Statistics
	backing BackingStore
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) lineAddr(addr uint32) uint64 {
	size := uint64(c.config.BlockSize)
	return uint64(addr) / size * size
}

func (c *Cache) lookup(addr uint32) *akitacache.Block {
	block := c.directory.Lookup(0, c.lineAddr(addr))
	if block == nil || !block.IsValid {
		return nil
	}
	return block
}

// Read performs a read of size bytes (1, 2 or 4) at addr.
func (c *Cache) Read(addr uint32, size int) AccessResult {
	c.stats.Reads++

	if block := c.lookup(addr); block != nil {
		c.stats.Hits++
		c.directory.Visit(block)

		line := c.dataStore[c.blockIndex(block)]
		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    extractData(line, c.offset(addr), size),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, false, 0)
}

// Write performs a write of size bytes at addr.
func (c *Cache) Write(addr uint32, size int, data uint32) AccessResult {
	c.stats.Writes++

	if block := c.lookup(addr); block != nil {
		c.stats.Hits++
		c.directory.Visit(block)

		storeData(c.dataStore[c.blockIndex(block)], c.offset(addr), size, data)
		block.IsDirty = true

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, true, data)
}

func (c *Cache) offset(addr uint32) int {
	return int(addr % uint32(c.config.BlockSize))
}

func (c *Cache) handleMiss(addr uint32, size int, isWrite bool, writeData uint32) AccessResult {
	result := AccessResult{Latency: c.config.MissLatency}

	lineAddr := c.lineAddr(addr)
	victim := c.directory.FindVictim(lineAddr)
	if victim == nil {
		return result
	}

	line := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(uint32(victim.Tag), line)
		}
	}

	if c.backing != nil {
		copy(line, c.backing.Read(uint32(lineAddr), c.config.BlockSize))
	} else {
		clear(line)
	}

	// The tag holds the line-aligned address.
	victim.Tag = lineAddr
	victim.IsValid = true
	victim.IsDirty = false

	if isWrite {
		storeData(line, c.offset(addr), size, writeData)
		victim.IsDirty = true
	} else {
		result.Data = extractData(line, c.offset(addr), size)
	}

	c.directory.Visit(victim)

	return result
}

// Contains reports whether the line holding addr is cached.
func (c *Cache) Contains(addr uint32) bool {
	return c.lookup(addr) != nil
}

// Invalidate drops the line holding addr without writing it back.
func (c *Cache) Invalidate(addr uint32) {
	if block := c.lookup(addr); block != nil {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty lines and invalidates every line.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				c.backing.Write(uint32(block.Tag), c.dataStore[c.blockIndex(block)])
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all lines without writeback and clears the statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

func extractData(data []byte, offset int, size int) uint32 {
	if offset+size > len(data) {
		return 0
	}

	var result uint32
	for i := 0; i < size; i++ {
		result |= uint32(data[offset+i]) << (i * 8)
	}
	return result
}

func storeData(data []byte, offset int, size int, value uint32) {
	if offset+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[offset+i] = byte(value >> (i * 8))
	}
}
