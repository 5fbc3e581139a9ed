package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/emu"
)

var _ = Describe("Barrel shifter", func() {
	type shiftCase struct {
		st     emu.ShiftType
		value  uint32
		amount uint32
		carry  bool
		result uint32
		out    bool
	}

	DescribeTable("immediate shifts",
		func(c shiftCase) {
			v, carry := emu.ShiftImm(c.st, c.value, c.amount, c.carry)
			Expect(v).To(Equal(c.result))
			Expect(carry).To(Equal(c.out))
		},
		Entry("LSL #0 passes through with the old carry",
			shiftCase{emu.ShiftLSL, 0x80000001, 0, true, 0x80000001, true}),
		Entry("LSL #1 shifts bit 31 into carry",
			shiftCase{emu.ShiftLSL, 0x80000001, 1, false, 0x00000002, true}),
		Entry("LSR #0 means LSR #32",
			shiftCase{emu.ShiftLSR, 0x80000000, 0, false, 0, true}),
		Entry("LSR #4",
			shiftCase{emu.ShiftLSR, 0x000000F8, 4, false, 0x0000000F, true}),
		Entry("ASR #0 of a negative value fills with ones",
			shiftCase{emu.ShiftASR, 0x80000000, 0, false, 0xFFFFFFFF, true}),
		Entry("ASR #0 of a positive value fills with zeros",
			shiftCase{emu.ShiftASR, 0x7FFFFFFF, 0, true, 0, false}),
		Entry("ASR #4 keeps the sign",
			shiftCase{emu.ShiftASR, 0xF0000000, 4, false, 0xFF000000, false}),
		Entry("ROR #0 is RRX with carry in",
			shiftCase{emu.ShiftROR, 0x00000003, 0, true, 0x80000001, true}),
		Entry("ROR #0 is RRX without carry in",
			shiftCase{emu.ShiftROR, 0x00000002, 0, false, 0x00000001, false}),
		Entry("ROR #8",
			shiftCase{emu.ShiftROR, 0x000000AB, 8, false, 0xAB000000, true}),
	)

	DescribeTable("register shifts",
		func(c shiftCase) {
			v, carry := emu.ShiftReg(c.st, c.value, c.amount, c.carry)
			Expect(v).To(Equal(c.result))
			Expect(carry).To(Equal(c.out))
		},
		Entry("amount 0 leaves value and carry",
			shiftCase{emu.ShiftLSR, 0x12345678, 0, true, 0x12345678, true}),
		Entry("only the bottom byte counts",
			shiftCase{emu.ShiftLSL, 0x12345678, 0x100, false, 0x12345678, false}),
		Entry("LSL 32 gives carry from bit 0",
			shiftCase{emu.ShiftLSL, 0x00000001, 32, false, 0, true}),
		Entry("LSL 33 clears carry",
			shiftCase{emu.ShiftLSL, 0xFFFFFFFF, 33, true, 0, false}),
		Entry("LSR 32 gives carry from bit 31",
			shiftCase{emu.ShiftLSR, 0x80000000, 32, false, 0, true}),
		Entry("LSR 40 clears carry",
			shiftCase{emu.ShiftLSR, 0xFFFFFFFF, 40, true, 0, false}),
		Entry("ASR 200 of a negative value",
			shiftCase{emu.ShiftASR, 0x80000000, 200, false, 0xFFFFFFFF, true}),
		Entry("ROR 32 keeps the value with carry from bit 31",
			shiftCase{emu.ShiftROR, 0x80000001, 32, false, 0x80000001, true}),
		Entry("ROR 36 rotates by 4",
			shiftCase{emu.ShiftROR, 0x0000000F, 36, false, 0xF0000000, true}),
	)

	Describe("RotateImm", func() {
		It("should rotate 0xFF right by 8", func() {
			v, carry := emu.RotateImm(0xFF, 4, false)

			Expect(v).To(Equal(uint32(0xFF000000)))
			Expect(carry).To(BeTrue())
		})

		It("should keep the carry without rotation", func() {
			v, carry := emu.RotateImm(0x80, 0, true)

			Expect(v).To(Equal(uint32(0x80)))
			Expect(carry).To(BeTrue())
		})

		It("should wrap the low bits around", func() {
			v, carry := emu.RotateImm(0x3F, 1, true)

			Expect(v).To(Equal(uint32(0xC000000F)))
			Expect(carry).To(BeTrue())
		})
	})
})
