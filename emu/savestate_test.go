package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/sarchlab/gbasim/emu"
)

var _ = Describe("Save states", func() {
	var (
		e   *emu.Emulator
		rom []byte
	)

	BeforeEach(func() {
		rom = armROM(
			0xE3A00005, // mov r0, #5
			0xE2800001, // add r0, r0, #1
			0xEAFFFFFD, // b 0x08000004
		)
		e = newTestEmulator(rom)
	})

	It("should restore registers, memory and timing", func() {
		step(e, 2)
		e.Memory().Write32(0x03000010, 0xCAFEBABE)
		e.Memory().Write8(0x0E000003, 0x42)
		e.Memory().Write16(0x04000204, 0)

		var buf bytes.Buffer
		Expect(e.SaveState(&buf)).To(Succeed())
		cycles := e.Clock().Cycles

		step(e, 4)
		e.Memory().Write32(0x03000010, 0)
		e.Memory().Write16(0x04000204, 0x4317)

		Expect(e.LoadState(&buf)).To(Succeed())
		Expect(e.RegFile().Get(0)).To(Equal(uint32(6)))
		Expect(e.RegFile().PC()).To(Equal(uint32(0x08000008)))
		Expect(e.Clock().Cycles).To(Equal(cycles))
		Expect(e.InstructionCount()).To(Equal(uint64(2)))
		Expect(e.Memory().Read32(0x03000010)).To(Equal(uint32(0xCAFEBABE)))
		Expect(e.Memory().Read8(0x0E000003)).To(Equal(uint8(0x42)))
		Expect(e.Clock().Table().WaitControl()).To(Equal(uint16(0)))
	})

	It("should reject a stream with the wrong magic", func() {
		err := e.LoadState(bytes.NewReader([]byte("NOPE\x01\x00\x00\x00")))

		Expect(err).To(HaveOccurred())
		Expect(errors.Cause(err)).To(Equal(emu.ErrStateMagic))
	})

	It("should reject an unknown version", func() {
		var buf bytes.Buffer
		Expect(e.SaveState(&buf)).To(Succeed())
		data := buf.Bytes()
		data[4] = 99

		err := e.LoadState(bytes.NewReader(data))
		Expect(errors.Cause(err)).To(Equal(emu.ErrStateVersion))
	})

	It("should leave the machine untouched on a truncated stream", func() {
		var buf bytes.Buffer
		Expect(e.SaveState(&buf)).To(Succeed())
		data := buf.Bytes()[:buf.Len()/2]

		step(e, 2)
		Expect(e.LoadState(bytes.NewReader(data))).NotTo(Succeed())

		Expect(e.RegFile().Get(0)).To(Equal(uint32(6)))
		Expect(e.InstructionCount()).To(Equal(uint64(2)))
	})
})
