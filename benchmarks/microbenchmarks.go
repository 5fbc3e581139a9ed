package benchmarks

import (
	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/insts"
)

const (
	iwramBase = 0x03000000
	ewramBase = 0x02000000
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific part of the bus or core timing.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticLoop(),
		thumbLoop(),
		multiplyChain(),
		functionCalls(),
		wordCopy("iwram_copy", "64-word copy inside IWRAM - zero wait state data bus", iwramBase),
		wordCopy("ewram_copy", "64-word copy inside EWRAM - 16-bit bus with wait states", ewramBase),
		blockCopy(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticLoop(),
		thumbLoop(),
		wordCopy("iwram_copy", "64-word copy inside IWRAM - zero wait state data bus", iwramBase),
	}
}

func armProgram(body ...uint32) []byte {
	return BuildProgram(append(body, EncodeHalt()...)...)
}

// fillWords writes the values 0..n-1 as words starting at base.
func fillWords(base uint32, n int) func(e *emu.Emulator) {
	return func(e *emu.Emulator) {
		mem := e.Memory()
		for i := 0; i < n; i++ {
			mem.Write32(base+uint32(i)*4, uint32(i))
		}
	}
}

// 1. Arithmetic loop - ALU work plus a taken branch per iteration
func arithmeticLoop() Benchmark {
	return Benchmark{
		Name:        "arithmetic_loop",
		Description: "100 iterations of add/subs/bne from ROM - sequential fetch and refill cost",
		Program: armProgram(
			EncodeMOVImm(0, 0),             // 0x00
			EncodeMOVImm(1, 100),           // 0x04
			EncodeADDImm(0, 0, 3),          // 0x08 loop
			EncodeSUBSImm(1, 1, 1),         // 0x0C
			EncodeB(emu.CondNE, 0x08-0x10), // 0x10
		),
		ExpectedExit: 300,
	}
}

// 2. Thumb loop - the same loop with 16-bit fetches
func thumbLoop() Benchmark {
	body := []uint16{
		ThumbMOVImm(0, 0),             // 0x00
		ThumbMOVImm(1, 100),           // 0x02
		ThumbADDImm(0, 3),             // 0x04 loop
		ThumbSUBImm(1, 1),             // 0x06
		ThumbB(emu.CondNE, 0x04-0x08), // 0x08
	}
	return Benchmark{
		Name:         "thumb_loop",
		Description:  "100 iterations of add/sub/bne in Thumb state - half-width fetches",
		Program:      BuildThumbProgram(append(body, ThumbHalt()...)...),
		Thumb:        true,
		ExpectedExit: 300,
	}
}

// 3. Multiply chain - multiplier early termination
func multiplyChain() Benchmark {
	return Benchmark{
		Name:        "multiply_chain",
		Description: "r0 = 3^10 through dependent MULs - multiplier internal cycles",
		Program: armProgram(
			EncodeMOVImm(0, 1),             // 0x00
			EncodeMOVImm(2, 3),             // 0x04
			EncodeMOVImm(1, 10),            // 0x08
			EncodeMUL(3, 0, 2),             // 0x0C loop
			EncodeMOVReg(0, 3),             // 0x10
			EncodeSUBSImm(1, 1, 1),         // 0x14
			EncodeB(emu.CondNE, 0x0C-0x18), // 0x18
		),
		ExpectedExit: 59049,
	}
}

// 4. Function calls - BL and BX LR pairs
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "50 BL/BX LR round trips - two pipeline refills per call",
		Program: BuildProgram(
			EncodeMOVImm(0, 0),             // 0x00
			EncodeMOVImm(1, 50),            // 0x04
			EncodeBL(0x24-0x08),            // 0x08 loop
			EncodeSUBSImm(1, 1, 1),         // 0x0C
			EncodeB(emu.CondNE, 0x08-0x10), // 0x10
			EncodeHalt()[0],                // 0x14
			EncodeHalt()[1],                // 0x18
			EncodeHalt()[2],                // 0x1C
			EncodeB(emu.CondAL, 0),         // 0x20
			EncodeADDImm(0, 0, 2),          // 0x24 callee
			EncodeBX(14),                   // 0x28
		),
		ExpectedExit: 100,
	}
}

// 5/6. Word copy - data bus cost of one memory region
func wordCopy(name, description string, base uint32) Benchmark {
	return Benchmark{
		Name:        name,
		Description: description,
		Setup:       fillWords(base, 64),
		Program: armProgram(
			EncodeDataImm(insts.OpMOV, 2, 0, uint8(base>>24), 4, false), // 0x00 r2 = base
			EncodeDataImm(insts.OpADD, 3, 2, 0x01, 11, false),           // 0x04 r3 = base + 0x400
			EncodeMOVImm(1, 64),                                         // 0x08
			EncodeLDRPost(4, 2, 4),                                      // 0x0C loop
			EncodeSTRPost(4, 3, 4),                                      // 0x10
			EncodeSUBSImm(1, 1, 1),                                      // 0x14
			EncodeB(emu.CondNE, 0x0C-0x18),                              // 0x18
			EncodeMOVReg(0, 4),                                          // 0x1C
		),
		ExpectedExit: 63,
	}
}

// 7. Block copy - LDM/STM with sequential data accesses
func blockCopy() Benchmark {
	return Benchmark{
		Name:        "block_copy",
		Description: "16 LDMIA/STMIA pairs of 8 registers inside IWRAM - sequential data bursts",
		Setup:       fillWords(iwramBase, 128),
		Program: armProgram(
			EncodeDataImm(insts.OpMOV, 8, 0, 0x03, 4, false),  // 0x00 r8 = iwram
			EncodeDataImm(insts.OpADD, 9, 8, 0x01, 11, false), // 0x04 r9 = r8 + 0x400
			EncodeMOVImm(10, 16),                              // 0x08
			EncodeLDMIA(8, 0x00FF),                            // 0x0C loop
			EncodeSTMIA(9, 0x00FF),                            // 0x10
			EncodeSUBSImm(10, 10, 1),                          // 0x14
			EncodeB(emu.CondNE, 0x0C-0x18),                    // 0x18
		),
		ExpectedExit: 120,
	}
}
