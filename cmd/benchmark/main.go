// Command benchmark runs the gbasim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv            Output results in CSV format (default: human-readable)
//	-json           Output a JSON report
//	-no-fetch-cache Disable fetch locality profiling
//	-waitcnt        WAITCNT value to program before each run (-1 keeps the boot value)
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Compare against the slowest cartridge bus setting
//	go run ./cmd/benchmark -waitcnt 0 -csv > slow.csv
//
// The results can be compared against cycle counts measured on hardware
// to calibrate the bus timing model.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/gbasim/benchmarks"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output a JSON report")
	noFetchCache := flag.Bool("no-fetch-cache", false, "Disable fetch locality profiling")
	waitcnt := flag.Int("waitcnt", -1, "WAITCNT value to program before each run (-1 keeps the boot value)")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.EnableFetchCache = !*noFetchCache
	config.Output = os.Stdout
	if *waitcnt >= 0 {
		w := uint16(*waitcnt)
		config.WaitControl = &w
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())

	text := !*csvOutput && !*jsonOutput
	if text {
		fmt.Println("gbasim Timing Benchmark Harness")
		fmt.Println("===============================")
		fmt.Printf("Fetch cache: %v\n", config.EnableFetchCache)
		if config.WaitControl != nil {
			fmt.Printf("WAITCNT: 0x%04X\n", *config.WaitControl)
		}
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)

		fmt.Println("=== Summary ===")
		fmt.Println("")
		fmt.Println("Expected characteristics:")
		fmt.Println("- arithmetic_loop: one N+S refill per taken branch")
		fmt.Println("- thumb_loop: cheaper sequential fetches than the ARM loop")
		fmt.Println("- multiply_chain: multiplier cycles grow with the operand")
		fmt.Println("- function_calls: two refills per call")
		fmt.Println("- iwram_copy vs ewram_copy: data bus wait states")
		fmt.Println("- block_copy: sequential LDM/STM bursts")
	}

	for _, r := range results {
		if r.Error != "" {
			os.Exit(1)
		}
	}
}
