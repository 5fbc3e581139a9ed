package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gbasim/emu"
)

var _ = Describe("Emulator", func() {
	var (
		e   *emu.Emulator
		reg func(r uint32) uint32
	)

	load := func(words ...uint32) {
		e = newTestEmulator(armROM(words...))
	}

	BeforeEach(func() {
		reg = func(r uint32) uint32 { return e.RegFile().Get(r) }
	})

	Describe("NewEmulator", func() {
		It("should start at the cartridge entry without a BIOS", func() {
			load()

			Expect(e.RegFile().PC()).To(Equal(uint32(0x08000000)))
			Expect(e.RegFile().Mode()).To(Equal(emu.ModeSYS))
			Expect(e.Memory().Reg16(emu.RegWAITCNT)).To(Equal(uint16(0x4317)))
			Expect(e.Clock().Cycles).To(BeZero())
		})

		It("should start at the reset vector with a BIOS", func() {
			e = emu.NewEmulator(emu.WithBIOS([]byte{0xFE, 0xFF, 0xFF, 0xEA}), emu.WithLogger(quietLogger()))

			Expect(e.RegFile().PC()).To(BeZero())
			Expect(e.RegFile().Mode()).To(Equal(emu.ModeSVC))
			Expect(e.Memory().Read32(0)).To(Equal(uint32(0xEAFFFFFE)))
		})
	})

	Describe("data processing", func() {
		It("should execute immediate operations", func() {
			load(
				0xE3A00005, // mov r0, #5
				0xE3A01003, // mov r1, #3
				0xE0802001, // add r2, r0, r1
				0xE0513000, // subs r3, r1, r0
			)
			step(e, 4)

			Expect(reg(2)).To(Equal(uint32(8)))
			Expect(reg(3)).To(Equal(uint32(0xFFFFFFFE)))
			Expect(e.RegFile().GetFlag(emu.FlagN)).To(BeTrue())
			Expect(e.RegFile().GetFlag(emu.FlagC)).To(BeFalse())
			Expect(e.RegFile().PC()).To(Equal(uint32(0x08000010)))
			Expect(e.InstructionCount()).To(Equal(uint64(4)))
		})

		It("should charge one sequential fetch per instruction", func() {
			load(0xE3A00005)

			result := e.Step()

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Halted).To(BeFalse())
			Expect(result.Cycles).To(Equal(uint64(2)))
		})

		It("should read r15 eight bytes ahead", func() {
			load(0xE1A0000F) // mov r0, pc
			e.Step()

			Expect(reg(0)).To(Equal(uint32(0x08000008)))
		})

		It("should read r15 twelve bytes ahead with a register shift", func() {
			load(
				0xE3A01000, // mov r1, #0
				0xE3A02000, // mov r2, #0
				0xE08F0211, // add r0, pc, r1, lsl r2
			)
			step(e, 2)
			result := e.Step()

			Expect(reg(0)).To(Equal(uint32(0x08000014)))
			Expect(result.Cycles).To(Equal(uint64(3)))
		})

		It("should apply shifter carry to logical operations", func() {
			load(
				0xE3A00001, // mov r0, #1
				0xE1B000A0, // movs r0, r0, lsr #1
			)
			step(e, 2)

			Expect(reg(0)).To(BeZero())
			Expect(e.RegFile().GetFlag(emu.FlagZ)).To(BeTrue())
			Expect(e.RegFile().GetFlag(emu.FlagC)).To(BeTrue())
		})

		It("should not write the result of test operations", func() {
			load(
				0xE3A00005, // mov r0, #5
				0xE3500005, // cmp r0, #5
			)
			step(e, 2)

			Expect(reg(0)).To(Equal(uint32(5)))
			Expect(e.RegFile().GetFlag(emu.FlagZ)).To(BeTrue())
			Expect(e.RegFile().GetFlag(emu.FlagC)).To(BeTrue())
		})

		It("should skip instructions whose condition fails", func() {
			load(
				0xE3B00000, // movs r0, #0
				0x03A04001, // moveq r4, #1
				0x13A05001, // movne r5, #1
			)
			step(e, 2)
			result := e.Step()

			Expect(reg(4)).To(Equal(uint32(1)))
			Expect(reg(5)).To(BeZero())
			Expect(result.Cycles).To(Equal(uint64(2)))
			Expect(e.RegFile().PC()).To(Equal(uint32(0x0800000C)))
		})

		It("should branch when writing r15", func() {
			load(
				0xE3A00402, // mov r0, #0x02000000
				0xE280000B, // add r0, r0, #11
				0xE1A0F000, // mov pc, r0
			)
			step(e, 3)

			Expect(e.RegFile().PC()).To(Equal(uint32(0x02000008)))
		})
	})

	Describe("PSR transfer", func() {
		It("should read the CPSR", func() {
			load(0xE10F0000) // mrs r0, cpsr
			e.Step()

			Expect(reg(0)).To(Equal(uint32(emu.ModeSYS)))
		})

		It("should read the CPSR for SPSR in system mode", func() {
			load(0xE14F0000) // mrs r0, spsr
			e.Step()

			Expect(reg(0)).To(Equal(uint32(emu.ModeSYS)))
		})

		It("should write the flags from an immediate", func() {
			load(0xE328F20F) // msr cpsr_f, #0xF0000000
			e.Step()

			Expect(e.RegFile().CPSR).To(Equal(uint32(0xF0000000) | uint32(emu.ModeSYS)))
		})

		It("should switch modes from a privileged mode", func() {
			load(
				0xE3A01012, // mov r1, #0x12
				0xE121F001, // msr cpsr_c, r1
			)
			step(e, 2)

			Expect(e.RegFile().Mode()).To(Equal(emu.ModeIRQ))
		})

		It("should ignore control writes in user mode", func() {
			load(
				0xE3A01012, // mov r1, #0x12
				0xE121F001, // msr cpsr_c, r1
			)
			e.RegFile().SetMode(emu.ModeUSR)
			step(e, 2)

			Expect(e.RegFile().Mode()).To(Equal(emu.ModeUSR))
		})

		It("should write the SPSR of an exception mode", func() {
			load(
				0xE3A01010, // mov r1, #0x10
				0xE161F001, // msr spsr_c, r1
				0xE14F2000, // mrs r2, spsr
			)
			e.RegFile().SetMode(emu.ModeIRQ)
			step(e, 3)

			Expect(reg(2)).To(Equal(uint32(emu.ModeUSR)))
		})
	})

	Describe("multiply", func() {
		It("should multiply and charge the multiplier cycles", func() {
			load(
				0xE3A00006, // mov r0, #6
				0xE3A01007, // mov r1, #7
				0xE0020190, // mul r2, r0, r1
			)
			step(e, 2)
			result := e.Step()

			Expect(reg(2)).To(Equal(uint32(42)))
			Expect(result.Cycles).To(Equal(uint64(3)))
		})

		It("should accumulate with MLA", func() {
			load(
				0xE3A00006, // mov r0, #6
				0xE3A01007, // mov r1, #7
				0xE3A03002, // mov r3, #2
				0xE0223190, // mla r2, r0, r1, r3
			)
			step(e, 4)

			Expect(reg(2)).To(Equal(uint32(44)))
		})

		It("should widen signed operands in SMULL", func() {
			load(
				0xE3E00000, // mvn r0, #0
				0xE3E01000, // mvn r1, #0
				0xE0C32190, // smull r2, r3, r0, r1
			)
			step(e, 3)

			Expect(reg(2)).To(Equal(uint32(1)))
			Expect(reg(3)).To(BeZero())
		})

		It("should not sign-extend in UMULL", func() {
			load(
				0xE3E00000, // mvn r0, #0
				0xE3A01002, // mov r1, #2
				0xE0832190, // umull r2, r3, r0, r1
			)
			step(e, 3)

			Expect(reg(2)).To(Equal(uint32(0xFFFFFFFE)))
			Expect(reg(3)).To(Equal(uint32(1)))
		})
	})

	Describe("branches", func() {
		It("should branch and refill the pipeline", func() {
			load(0xEA000001) // b +12
			result := e.Step()

			Expect(e.RegFile().PC()).To(Equal(uint32(0x0800000C)))
			Expect(result.Cycles).To(Equal(uint64(2 + 6 + 2)))
		})

		It("should branch backwards", func() {
			load(0xEAFFFFFE) // b .
			step(e, 3)

			Expect(e.RegFile().PC()).To(Equal(uint32(0x08000000)))
		})

		It("should link with BL", func() {
			load(0xEB000001) // bl +12
			e.Step()

			Expect(e.RegFile().PC()).To(Equal(uint32(0x0800000C)))
			Expect(reg(emu.LR)).To(Equal(uint32(0x08000004)))
		})

		It("should switch to Thumb with BX", func() {
			load(
				0xE28F0001, // add r0, pc, #1
				0xE12FFF10, // bx r0
			)
			e.Step()
			result := e.Step()

			Expect(e.RegFile().Thumb()).To(BeTrue())
			Expect(e.RegFile().PC()).To(Equal(uint32(0x08000008)))
			Expect(result.Cycles).To(Equal(uint64(2 + 4 + 2)))
		})

		It("should emit branch events", func() {
			rec := &eventRecorder{}
			e = newTestEmulator(armROM(0xEA000001), emu.WithEventSink(rec))
			e.Step()

			Expect(rec.kinds()).To(Equal([]emu.EventKind{emu.EventExecute, emu.EventBranch}))
			Expect(rec.events[1].Target).To(Equal(uint32(0x0800000C)))
			Expect(rec.events[1].Addr).To(Equal(uint32(0x08000000)))
		})
	})

	Describe("run control", func() {
		It("should stop at the instruction limit", func() {
			e = newTestEmulator(armROM(0xEAFFFFFE), emu.WithMaxInstructions(2))

			Expect(e.Step().Err).NotTo(HaveOccurred())
			Expect(e.Step().Err).NotTo(HaveOccurred())
			Expect(e.Step().Err).To(MatchError(emu.ErrMaxInstructions))
			Expect(e.Run(100)).To(MatchError(emu.ErrMaxInstructions))
		})

		It("should run for a cycle budget", func() {
			load(0xEAFFFFFE) // b .

			Expect(e.Run(100)).To(Succeed())
			Expect(e.Clock().Cycles).To(BeNumerically(">=", 100))
			Expect(e.Clock().Cycles).To(BeNumerically("<", 110))
			Expect(e.InstructionCount()).To(Equal(uint64(10)))
		})

		It("should return to power-on state on Reset", func() {
			load(0xE3A00005, 0xEAFFFFFE)
			step(e, 2)

			e.Reset()

			Expect(e.RegFile().PC()).To(Equal(uint32(0x08000000)))
			Expect(reg(0)).To(BeZero())
			Expect(e.InstructionCount()).To(BeZero())
			Expect(e.Memory().Read32(0x08000000)).To(Equal(uint32(0xE3A00005)))
		})
	})

	Describe("wait state control", func() {
		It("should reprice the cartridge bus when WAITCNT is written", func() {
			load(0xE3A00005)
			e.Memory().Write16(0x04000204, 0x0000)

			Expect(e.Clock().Table().WaitControl()).To(BeZero())
			Expect(e.Step().Cycles).To(Equal(uint64(4)))
		})

		It("should reprice from a program store", func() {
			load(
				0xE3A01301, // mov r1, #0x04000000
				0xE2811C02, // add r1, r1, #0x200
				0xE3A00000, // mov r0, #0
				0xE1C100B4, // strh r0, [r1, #4]
			)
			step(e, 4)

			Expect(e.Clock().Table().WaitControl()).To(BeZero())
		})
	})
})
