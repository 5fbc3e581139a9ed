package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/loader"
)

// elfSegment describes one PT_LOAD program header.
type elfSegment struct {
	addr    uint32
	data    []byte
	memSize uint32
	flags   uint32
}

// buildELF32 creates a little-endian ELF32 executable with the given
// machine type and PT_LOAD segments.
func buildELF32(machine uint16, entry uint32, segs ...elfSegment) []byte {
	const ehSize, phSize = 52, 32

	header := make([]byte, ehSize)
	copy(header[0:4], []byte{0x7F, 'E', 'L', 'F'})
	header[4] = 1 // 32-bit
	header[5] = 1 // little endian
	header[6] = 1 // version
	binary.LittleEndian.PutUint16(header[16:18], 2) // executable
	binary.LittleEndian.PutUint16(header[18:20], machine)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], entry)
	binary.LittleEndian.PutUint32(header[28:32], ehSize) // phoff
	binary.LittleEndian.PutUint16(header[40:42], ehSize)
	binary.LittleEndian.PutUint16(header[42:44], phSize)
	binary.LittleEndian.PutUint16(header[44:46], uint16(len(segs)))
	binary.LittleEndian.PutUint16(header[46:48], 40)

	out := header
	offset := uint32(ehSize + phSize*len(segs))
	var payload []byte
	for _, s := range segs {
		ph := make([]byte, phSize)
		memSize := s.memSize
		if memSize == 0 {
			memSize = uint32(len(s.data))
		}
		binary.LittleEndian.PutUint32(ph[0:4], 1) // PT_LOAD
		binary.LittleEndian.PutUint32(ph[4:8], offset)
		binary.LittleEndian.PutUint32(ph[8:12], s.addr)
		binary.LittleEndian.PutUint32(ph[12:16], s.addr)
		binary.LittleEndian.PutUint32(ph[16:20], uint32(len(s.data)))
		binary.LittleEndian.PutUint32(ph[20:24], memSize)
		binary.LittleEndian.PutUint32(ph[24:28], s.flags)
		binary.LittleEndian.PutUint32(ph[28:32], 4)
		out = append(out, ph...)
		payload = append(payload, s.data...)
		offset += uint32(len(s.data))
	}
	return append(out, payload...)
}

const (
	emARM   = 40
	emX8664 = 62
	pfRX    = 0x5
	pfRW    = 0x6
)

var _ = Describe("ELF loading", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	load := func(data []byte) (*loader.Program, error) {
		path := filepath.Join(dir, "prog.elf")
		Expect(os.WriteFile(path, data, 0o644)).To(Succeed())
		return loader.LoadROM(path)
	}

	code := []byte{
		0x05, 0x00, 0xA0, 0xE3, // mov r0, #5
		0xFE, 0xFF, 0xFF, 0xEA, // b .
	}

	It("should lay out ROM segments and take the entry point", func() {
		prog, err := load(buildELF32(emARM, 0x08000100,
			elfSegment{addr: 0x08000100, data: code, flags: pfRX}))

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.EntryPoint).To(Equal(uint32(0x08000100)))
		Expect(prog.ROM).To(HaveLen(0x108))
		Expect(prog.ROM[0x100:]).To(Equal(code))
		Expect(prog.Header).NotTo(BeNil())
	})

	It("should collect work RAM segments with their BSS", func() {
		data := []byte{1, 2, 3, 4}
		prog, err := load(buildELF32(emARM, 0x08000000,
			elfSegment{addr: 0x08000000, data: code, flags: pfRX},
			elfSegment{addr: 0x03000000, data: data, memSize: 0x100, flags: pfRW},
			elfSegment{addr: 0x02000000, memSize: 0x40, flags: pfRW},
		))

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.ROM).To(Equal(code))
		Expect(prog.Header).To(BeNil())
		Expect(prog.Preload).To(HaveLen(2))

		iwram := prog.Preload[0]
		Expect(iwram.Addr).To(Equal(uint32(0x03000000)))
		Expect(iwram.Data).To(Equal(data))
		Expect(iwram.MemSize).To(Equal(uint32(0x100)))
		Expect(iwram.Flags & loader.SegmentFlagWrite).NotTo(BeZero())
		Expect(iwram.Flags & loader.SegmentFlagExecute).To(BeZero())

		Expect(prog.Preload[1].Data).To(BeEmpty())
	})

	It("should run the loaded program", func() {
		prog, err := load(buildELF32(emARM, 0x08000000,
			elfSegment{addr: 0x08000000, data: code, flags: pfRX}))
		Expect(err).NotTo(HaveOccurred())

		e := newEmulator()
		prog.Install(e)
		prog.Start(e)
		e.Step()

		Expect(e.RegFile().Get(0)).To(Equal(uint32(5)))
	})

	It("should reject segments outside ROM and work RAM", func() {
		_, err := load(buildELF32(emARM, 0x08000000,
			elfSegment{addr: 0x06000000, data: code, flags: pfRW}))

		Expect(err).To(MatchError(ContainSubstring("outside ROM and work RAM")))
	})

	It("should reject RAM segments that overflow the region", func() {
		_, err := load(buildELF32(emARM, 0x08000000,
			elfSegment{addr: 0x03007FF0, memSize: 0x20, flags: pfRW}))

		Expect(err).To(HaveOccurred())
	})

	It("should reject other machines", func() {
		_, err := load(buildELF32(emX8664, 0))

		Expect(err).To(MatchError(ContainSubstring("not an ARM")))
	})

	It("should reject 64-bit files", func() {
		data := buildELF32(emARM, 0)
		data[4] = 2

		_, err := load(data)
		Expect(err).To(HaveOccurred())
	})

	It("should accept executables without loadable segments", func() {
		prog, err := load(buildELF32(emARM, 0x08000000))

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.ROM).To(BeEmpty())
		Expect(prog.EntryPoint).To(Equal(uint32(emu.ROMStart)))
	})
})
