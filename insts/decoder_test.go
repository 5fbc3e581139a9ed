package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("ARM fields", func() {
		It("should rotate data-processing immediates", func() {
			inst := decoder.DecodeARM(0xE3A01301)

			Expect(inst.Op).To(Equal(insts.OpMOV))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(uint32(0x04000000)))
		})

		It("should map multiply operands", func() {
			inst := decoder.DecodeARM(0xE0223190)

			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rn).To(Equal(uint8(3)))
			Expect(inst.Rs).To(Equal(uint8(1)))
			Expect(inst.Rm).To(Equal(uint8(0)))
		})

		It("should split the halfword immediate", func() {
			inst := decoder.DecodeARM(0xE1C120B4)

			Expect(inst.Op).To(Equal(insts.OpSTRH))
			Expect(inst.Imm).To(Equal(uint32(0x04)))
		})

		It("should sign-extend branch offsets", func() {
			Expect(decoder.DecodeARM(0xEAFFFFFE).Offset).To(Equal(int32(-8)))
			Expect(decoder.DecodeARM(0xEB000001).Offset).To(Equal(int32(4)))
		})

		It("should keep the condition", func() {
			Expect(decoder.DecodeARM(0x11A00001).Cond).To(Equal(uint8(1)))
		})
	})

	Describe("Thumb fields", func() {
		It("should resolve the ALU operation", func() {
			inst := decoder.DecodeThumb(0x424B)

			Expect(inst.Op).To(Equal(insts.OpNEG))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rm).To(Equal(uint8(1)))
		})

		It("should extend high register numbers", func() {
			inst := decoder.DecodeThumb(0x4688)

			Expect(inst.Rd).To(Equal(uint8(8)))
			Expect(inst.Rm).To(Equal(uint8(1)))
		})

		It("should scale offsets", func() {
			Expect(decoder.DecodeThumb(0x684B).Imm).To(Equal(uint32(4)))
			Expect(decoder.DecodeThumb(0x890C).Imm).To(Equal(uint32(8)))
			Expect(decoder.DecodeThumb(0x720A).Imm).To(Equal(uint32(8)))
			Expect(decoder.DecodeThumb(0x9201).Imm).To(Equal(uint32(4)))
		})

		It("should sign SP adjustments", func() {
			Expect(decoder.DecodeThumb(0xB082).Offset).To(Equal(int32(-8)))
			Expect(decoder.DecodeThumb(0xB002).Offset).To(Equal(int32(8)))
		})

		It("should add the implied register to push and pop", func() {
			Expect(decoder.DecodeThumb(0xB506).RegList).To(Equal(uint16(0x4006)))
			Expect(decoder.DecodeThumb(0xBD00).RegList).To(Equal(uint16(0x8000)))
		})

		It("should decode branch offsets", func() {
			Expect(decoder.DecodeThumb(0xD1FC).Offset).To(Equal(int32(-8)))
			Expect(decoder.DecodeThumb(0xE7FE).Offset).To(Equal(int32(-4)))
			Expect(decoder.DecodeThumb(0xF7FF).Offset).To(Equal(int32(-4096)))
			Expect(decoder.DecodeThumb(0xF80A).Offset).To(Equal(int32(20)))
		})
	})

	DescribeTable("ARM disassembly",
		func(word uint32, text string) {
			Expect(decoder.DecodeARM(word).String()).To(Equal(text))
		},
		Entry(nil, uint32(0xE0802001), "add r2, r0, r1"),
		Entry(nil, uint32(0xE3A01301), "mov r1, #0x4000000"),
		Entry(nil, uint32(0x11A00001), "movne r0, r1"),
		Entry(nil, uint32(0xE1B0F00E), "movs pc, lr"),
		Entry(nil, uint32(0xE1500001), "cmp r0, r1"),
		Entry(nil, uint32(0xE1A00102), "mov r0, r2, lsl #2"),
		Entry(nil, uint32(0xE1A00312), "mov r0, r2, lsl r3"),
		Entry(nil, uint32(0xE10F0000), "mrs r0, cpsr"),
		Entry(nil, uint32(0xE328F20F), "msr cpsr_8, #0xf0000000"),
		Entry(nil, uint32(0xE0223190), "mla r2, r0, r1, r3"),
		Entry(nil, uint32(0xE0832190), "umull r2, r3, r0, r1"),
		Entry(nil, uint32(0xE1020091), "swp r0, r1, [r2]"),
		Entry(nil, uint32(0xE12FFF10), "bx r0"),
		Entry(nil, uint32(0xE5C10001), "strb r0, [r1, #0x1]"),
		Entry(nil, uint32(0xE7113102), "ldr r3, [r1, -r2, lsl #2]"),
		Entry(nil, uint32(0xE4912004), "ldr r2, [r1], #0x4"),
		Entry(nil, uint32(0xE1D120B0), "ldrh r2, [r1, #0x0]"),
		Entry(nil, uint32(0xE18100B2), "strh r0, [r1, r2]"),
		Entry(nil, uint32(0xE92D4000), "stmdb sp!, {lr}"),
		Entry(nil, uint32(0xE8D18000), "ldmia r1, {pc}^"),
		Entry(nil, uint32(0xEB000001), "bl +4"),
		Entry(nil, uint32(0xEF00002A), "swi 0x2a"),
		Entry(nil, uint32(0xEE000010), "cop 0xee000010"),
	)

	DescribeTable("Thumb disassembly",
		func(half uint16, text string) {
			Expect(decoder.DecodeThumb(half).String()).To(Equal(text))
		},
		Entry(nil, uint16(0x0083), "lsl r3, r0, #2"),
		Entry(nil, uint16(0x1842), "add r2, r0, r1"),
		Entry(nil, uint16(0x1CC5), "add r5, r0, #3"),
		Entry(nil, uint16(0x2105), "mov r1, #0x5"),
		Entry(nil, uint16(0x4348), "mul r0, r1"),
		Entry(nil, uint16(0x4688), "mov r8, r1"),
		Entry(nil, uint16(0x4770), "bx lr"),
		Entry(nil, uint16(0x4800), "ldr r0, [pc, #0x0]"),
		Entry(nil, uint16(0x5653), "ldrsb r3, [r2, r1]"),
		Entry(nil, uint16(0x890C), "ldrh r4, [r1, #0x8]"),
		Entry(nil, uint16(0x9201), "str r2, [sp, #0x4]"),
		Entry(nil, uint16(0xAC01), "add r4, sp, #0x4"),
		Entry(nil, uint16(0xB082), "add sp, #-8"),
		Entry(nil, uint16(0xB506), "push {r1, r2, lr}"),
		Entry(nil, uint16(0xC830), "ldmia r0!, {r4, r5}"),
		Entry(nil, uint16(0xD1FC), "bne -8"),
		Entry(nil, uint16(0xDF00), "swi 0x0"),
		Entry(nil, uint16(0xF000), "bl.hi +0"),
	)
})
