// Validate the interpreter hot path - measures allocations in instruction
// dispatch and in the tracing decoder
package main

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbasim/benchmarks"
	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/insts"
)

type measurement struct {
	ops     int
	elapsed time.Duration
	mallocs uint64
	bytes   uint64
}

func measure(ops int, f func()) measurement {
	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	f()
	elapsed := time.Since(start)

	runtime.ReadMemStats(&m2)
	return measurement{
		ops:     ops,
		elapsed: elapsed,
		mallocs: m2.Mallocs - m1.Mallocs,
		bytes:   m2.TotalAlloc - m1.TotalAlloc,
	}
}

func (m measurement) print(title string) {
	fmt.Printf("%s\n", title)
	fmt.Printf("  Operations: %d\n", m.ops)
	fmt.Printf("  Time elapsed: %v\n", m.elapsed)
	fmt.Printf("  Operations per second: %.0f\n", float64(m.ops)/m.elapsed.Seconds())
	fmt.Printf("  Allocations: %d\n", m.mallocs)
	fmt.Printf("  Allocations per operation: %.3f\n", float64(m.mallocs)/float64(m.ops))
	fmt.Printf("  Bytes per operation: %.1f\n", float64(m.bytes)/float64(m.ops))
}

// stepLoop runs a counted ARM loop that never terminates.
func stepLoop(iterations int) measurement {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	e := emu.NewEmulator(emu.WithLogger(logger))
	e.LoadROM(benchmarks.BuildProgram(
		benchmarks.EncodeADDImm(0, 0, 3),
		benchmarks.EncodeSUBSImm(1, 1, 1),
		benchmarks.EncodeB(emu.CondAL, -8),
	))

	// Warm up
	for i := 0; i < 1000; i++ {
		e.Step()
	}

	return measure(iterations, func() {
		for i := 0; i < iterations; i++ {
			e.Step()
		}
	})
}

func decodeLoop(iterations int) measurement {
	decoder := insts.NewDecoder()
	words := []uint32{
		0xE0802001, // add r2, r0, r1
		0xE2511001, // subs r1, r1, #1
		0xE4924004, // ldr r4, [r2], #4
		0xE8B800FF, // ldmia r8!, {r0-r7}
	}
	halves := []uint16{0x3003, 0xD1FC, 0x707F, 0xB500}

	return measure(iterations*8, func() {
		for i := 0; i < iterations; i++ {
			for _, w := range words {
				decoder.DecodeARM(w)
			}
			for _, h := range halves {
				decoder.DecodeThumb(h)
			}
		}
	})
}

func main() {
	step := stepLoop(1000000)
	decode := decodeLoop(100000)

	fmt.Printf("Interpreter Hot Path Validation Results:\n")
	fmt.Printf("========================================\n")
	step.print("Step:")
	decode.print("Decode (tracing only):")

	if step.mallocs == 0 {
		fmt.Printf("\n✅ SUCCESS: Zero allocations in the step loop.\n")
	} else if float64(step.mallocs)/float64(step.ops) < 0.1 {
		fmt.Printf("\n✅ GOOD: Low allocation rate (< 0.1 per step)\n")
	} else {
		fmt.Printf("\n⚠️  WARNING: High allocation rate detected in the step loop\n")
	}
}
