package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	Describe("little-endian access", func() {
		It("should compose halfwords and words from bytes", func() {
			memory.Write32(0x02000000, 0xDEADBEEF)

			Expect(memory.Read8(0x02000000)).To(Equal(uint8(0xEF)))
			Expect(memory.Read8(0x02000003)).To(Equal(uint8(0xDE)))
			Expect(memory.Read16(0x02000002)).To(Equal(uint16(0xDEAD)))
			Expect(memory.Read32(0x02000000)).To(Equal(uint32(0xDEADBEEF)))
		})
	})

	DescribeTable("mirroring",
		func(base, mirror uint32) {
			memory.Write32(base, 0x12345678)

			Expect(memory.Read32(mirror)).To(Equal(uint32(0x12345678)))
			memory.Write16(mirror+4, 0xBEEF)
			Expect(memory.Read16(base + 4)).To(Equal(uint16(0xBEEF)))
		},
		Entry("EWRAM every 256 KiB", uint32(0x02000100), uint32(0x02040100)),
		Entry("EWRAM across the whole area", uint32(0x02000100), uint32(0x02FC0100)),
		Entry("IWRAM every 32 KiB", uint32(0x03000100), uint32(0x03008100)),
		Entry("IWRAM at the top of the area", uint32(0x03007FF0), uint32(0x03FFFFF0)),
		Entry("palette every 1 KiB", uint32(0x05000010), uint32(0x05000410)),
		Entry("OAM every 1 KiB", uint32(0x07000010), uint32(0x07000810)),
		Entry("VRAM every 128 KiB", uint32(0x06000010), uint32(0x06020010)),
		Entry("VRAM tail onto the upper 32 KiB", uint32(0x06010010), uint32(0x06018010)),
		Entry("VRAM tail in a later mirror", uint32(0x06010010), uint32(0x06038010)),
	)

	Describe("Transform", func() {
		It("should map the VRAM tail back by 32 KiB", func() {
			tail, writable, ok := memory.Transform(0x0601FFFC)
			Expect(ok).To(BeTrue())
			Expect(writable).To(BeTrue())

			upper, _, _ := memory.Transform(0x06017FFC)
			Expect(tail).To(Equal(upper))
		})

		It("should mark the BIOS read-only", func() {
			idx, writable, ok := memory.Transform(0x00000100)

			Expect(ok).To(BeTrue())
			Expect(writable).To(BeFalse())
			Expect(idx).To(Equal(0x100))
		})

		It("should not map the cartridge or unused space", func() {
			for _, addr := range []uint32{0x00004000, 0x01000000, 0x04000900, 0x08000000, 0x10000000} {
				_, _, ok := memory.Transform(addr)
				Expect(ok).To(BeFalse(), "addr 0x%08X", addr)
			}
		})

		It("should mirror the memory control register through the I/O page", func() {
			a, _, _ := memory.Transform(0x04000800)
			b, _, ok := memory.Transform(0x04010800)

			Expect(ok).To(BeTrue())
			Expect(a).To(Equal(b))
		})
	})

	Describe("permissive regions", func() {
		It("should read 0 and discard writes outside known regions", func() {
			memory.Write32(0x10000000, 0xFFFFFFFF)
			memory.Write32(0x04000900, 0xFFFFFFFF)

			Expect(memory.Read32(0x10000000)).To(BeZero())
			Expect(memory.Read32(0x04000900)).To(BeZero())
			Expect(memory.Read32(0x00004000)).To(BeZero())
		})

		It("should keep the BIOS read-only", func() {
			memory.LoadBIOS([]byte{1, 2, 3, 4})
			memory.Write32(0, 0xFFFFFFFF)

			Expect(memory.Read32(0)).To(Equal(uint32(0x04030201)))
		})

		It("should discard ROM writes and read 0 past the image", func() {
			memory.LoadROM([]byte{0x11, 0x22, 0x33, 0x44})
			memory.Write8(0x08000000, 0xFF)

			Expect(memory.Read32(0x08000000)).To(Equal(uint32(0x44332211)))
			Expect(memory.Read32(0x08000004)).To(BeZero())
		})

		It("should expose the image in every wait state window", func() {
			memory.LoadROM([]byte{0xAA, 0xBB})

			Expect(memory.Read16(0x0A000000)).To(Equal(uint16(0xBBAA)))
			Expect(memory.Read16(0x0C000000)).To(Equal(uint16(0xBBAA)))
		})

		It("should store SRAM bytes", func() {
			memory.Write8(0x0E000010, 0x5A)

			Expect(memory.Read8(0x0E000010)).To(Equal(uint8(0x5A)))
			Expect(memory.SRAM()[0x10]).To(Equal(uint8(0x5A)))
		})
	})

	Describe("I/O registers", func() {
		It("should clear IF bits written as 1", func() {
			memory.SetReg16(emu.RegIF, 0x0105)
			memory.Write16(0x04000202, 0x0001)
			Expect(memory.Reg16(emu.RegIF)).To(Equal(uint16(0x0104)))

			memory.Write8(0x04000203, 0x01)
			Expect(memory.Reg16(emu.RegIF)).To(Equal(uint16(0x0004)))
		})

		It("should store other registers normally", func() {
			memory.Write16(0x04000200, 0x0003)

			Expect(memory.Reg16(emu.RegIE)).To(Equal(uint16(0x0003)))
		})

		It("should notify listeners with the decoded change", func() {
			var events []emu.IOEvent
			memory.Subscribe(emu.IOListenerFunc(func(ev emu.IOEvent) {
				events = append(events, ev)
			}))

			memory.Write16(0x04000204, 0x4000)

			Expect(events).To(HaveLen(1))
			Expect(events[0].Addr).To(Equal(uint32(0x04000204)))
			Expect(events[0].Width).To(Equal(16))
			Expect(events[0].Change.Has(emu.ChangeWaitControl)).To(BeTrue())
			Expect(memory.TakePendingIO().Has(emu.ChangeWaitControl)).To(BeTrue())
			Expect(memory.PendingIO()).To(BeZero())
		})

		It("should not notify for writes outside the I/O window", func() {
			called := false
			memory.Subscribe(emu.IOListenerFunc(func(emu.IOEvent) { called = true }))

			memory.Write32(0x03000000, 1)

			Expect(called).To(BeFalse())
		})

		It("should halt on a HALTCNT byte write", func() {
			memory.Write8(0x04000301, 0x00)

			Expect(memory.IO().Halted).To(BeTrue())
			Expect(memory.PendingIO().Has(emu.ChangeHalt)).To(BeTrue())

			memory.IO().Wake()
			Expect(memory.IO().Halted).To(BeFalse())
		})

		It("should stop when HALTCNT bit 7 is set", func() {
			memory.Write16(0x04000300, 0x8000)

			Expect(memory.IO().Stopped).To(BeTrue())
			Expect(memory.IO().Halted).To(BeFalse())
		})

		It("should decode DMA control", func() {
			memory.Write16(0x04000000+emu.RegDMA3CNTH, 0x8400|2<<5|1<<7)

			dma := memory.IO().DMA[3]
			Expect(dma.Enabled).To(BeTrue())
			Expect(dma.Word).To(BeTrue())
			Expect(dma.DestInc).To(BeZero())
			Expect(dma.SourceInc).To(Equal(int32(-4)))
		})

		It("should decode timer control from byte writes", func() {
			memory.Write8(0x04000106, 0xC1)

			timer := memory.IO().Timers[1]
			Expect(timer.Operate).To(BeTrue())
			Expect(timer.IRQ).To(BeTrue())
			Expect(timer.Prescaler).To(Equal(uint32(6)))
		})

		It("should sign-extend the affine reference points", func() {
			memory.Write32(0x04000000+emu.RegBG2X, 0x08000000)

			Expect(memory.IO().BG2X).To(Equal(uint32(0xF8000000)))
		})
	})

	Describe("Reset", func() {
		It("should clear RAM but keep the BIOS and cartridge", func() {
			memory.LoadBIOS([]byte{0xAA})
			memory.LoadROM([]byte{0xBB})
			memory.Write8(0x03000000, 0xCC)
			memory.Write8(0x04000301, 0)

			memory.Reset()

			Expect(memory.Read8(0)).To(Equal(uint8(0xAA)))
			Expect(memory.Read8(0x08000000)).To(Equal(uint8(0xBB)))
			Expect(memory.Read8(0x03000000)).To(BeZero())
			Expect(memory.IO().Halted).To(BeFalse())
		})
	})
})
