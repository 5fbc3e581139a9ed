// Package benchmarks provides timing benchmark infrastructure for gbasim
// calibration.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/insts"
	"github.com/sarchlab/gbasim/loader"
	"github.com/sarchlab/gbasim/timing/cache"
	"github.com/sarchlab/gbasim/timing/core"
)

// BenchmarkResult holds the results of a single benchmark run.
type BenchmarkResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Timing metrics
	SimulatedCycles     uint64  `json:"simulated_cycles"`
	InstructionsRetired uint64  `json:"instructions_retired"`
	CPI                 float64 `json:"cpi"`

	// Control flow
	Branches   uint64 `json:"branches"`
	Exceptions uint64 `json:"exceptions"`

	// Fetch locality
	FetchHits   uint64 `json:"fetch_hits,omitempty"`
	FetchMisses uint64 `json:"fetch_misses,omitempty"`

	// ExitCode is r0 once the program halts.
	ExitCode uint32 `json:"exit_code"`
	Error    string `json:"error,omitempty"`

	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a benchmark program. Programs are placed at the start of
// the cartridge and end by writing HALTCNT.
type Benchmark struct {
	Name        string
	Description string

	// Setup prepares memory before the program starts.
	Setup func(e *emu.Emulator)

	Program []byte
	Thumb   bool

	ExpectedExit uint32
}

// HarnessConfig holds configuration for the benchmark harness.
type HarnessConfig struct {
	// EnableFetchCache profiles instruction fetches through the cache model.
	EnableFetchCache bool
	FetchCacheConfig cache.Config

	// MaxCycles bounds each run; 0 means no limit.
	MaxCycles uint64

	// WaitControl, if set, is written to WAITCNT before Setup runs.
	WaitControl *uint16

	Output  io.Writer
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableFetchCache: true,
		FetchCacheConfig: cache.DefaultFetchConfig(),
		MaxCycles:        10_000_000,
		Output:           os.Stdout,
		Verbose:          false,
	}
}

// Harness runs benchmarks and collects timing data.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
	results    []BenchmarkResult
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	return &Harness{
		config:     config,
		benchmarks: make([]Benchmark, 0),
		results:    make([]BenchmarkResult, 0),
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll runs all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	h.results = make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		h.results = append(h.results, result)

		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "  %s: %d cycles, %d insts, CPI=%.3f\n",
				result.Name, result.SimulatedCycles, result.InstructionsRetired, result.CPI)
		}
	}

	return h.results
}

func (h *Harness) newCore() *core.Core {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	opts := []core.Option{core.WithEmulatorOptions(emu.WithLogger(logger))}
	if h.config.EnableFetchCache {
		opts = append(opts, core.WithFetchCache(h.config.FetchCacheConfig))
	}
	return core.NewCore(opts...)
}

func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	c := h.newCore()
	e := c.Emulator()

	entry := uint32(emu.ROMStart)
	if bench.Thumb {
		entry |= 1
	}
	prog := &loader.Program{ROM: bench.Program, EntryPoint: entry}
	prog.Install(e)

	if h.config.WaitControl != nil {
		e.Memory().Write16(emu.RegionIO.Start+emu.RegWAITCNT, *h.config.WaitControl)
	}
	if bench.Setup != nil {
		bench.Setup(e)
	}
	prog.Start(e)

	start := time.Now()
	err := c.RunUntilHalt(h.config.MaxCycles)
	wall := time.Since(start)

	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		Branches:            stats.Branches,
		Exceptions:          stats.Exceptions,
		FetchHits:           stats.Fetch.Hits,
		FetchMisses:         stats.Fetch.Misses,
		ExitCode:            e.RegFile().Get(0),
		WallTime:            wall,
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// PrintResults prints benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintf(h.config.Output, "\n=== gbasim Timing Benchmark Results ===\n\n")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Cycles: %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI: %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Branches: %d\n", r.Branches)

		if h.config.EnableFetchCache {
			total := r.FetchHits + r.FetchMisses
			if total > 0 {
				_, _ = fmt.Fprintf(h.config.Output, "  Fetch: %d hits, %d misses (%.1f%% hit rate)\n",
					r.FetchHits, r.FetchMisses, float64(r.FetchHits)/float64(total)*100)
			}
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Exit Code: %d\n", r.ExitCode)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n\n", r.WallTime)
	}
}

// PrintCSV prints results in CSV format for analysis.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintf(h.config.Output,
		"name,cycles,instructions,cpi,branches,exceptions,fetch_hits,fetch_misses,exit_code\n")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.4f,%d,%d,%d,%d,%d\n",
			r.Name, r.SimulatedCycles, r.InstructionsRetired, r.CPI,
			r.Branches, r.Exceptions, r.FetchHits, r.FetchMisses, r.ExitCode)
	}
}

// BenchmarkReport is the top-level JSON report.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Config   BenchmarkConfig   `json:"config"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata describes when and where a report was produced.
type ReportMetadata struct {
	Simulator string    `json:"simulator"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// BenchmarkConfig records the harness configuration of a report.
type BenchmarkConfig struct {
	FetchCacheEnabled bool   `json:"fetch_cache_enabled"`
	FetchCacheSize    int    `json:"fetch_cache_size,omitempty"`
	WaitControl       string `json:"waitcnt,omitempty"`
}

// ReportSummary aggregates the results of a report.
type ReportSummary struct {
	TotalBenchmarks   int     `json:"total_benchmarks"`
	Failed            int     `json:"failed"`
	TotalCycles       uint64  `json:"total_cycles"`
	TotalInstructions uint64  `json:"total_instructions"`
	AverageCPI        float64 `json:"average_cpi"`
}

// Report builds the JSON report for results.
func (h *Harness) Report(results []BenchmarkResult) BenchmarkReport {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Simulator: "gbasim",
			Version:   "0.1.0",
			Timestamp: time.Now(),
		},
		Config: BenchmarkConfig{
			FetchCacheEnabled: h.config.EnableFetchCache,
		},
		Results: results,
	}
	if h.config.EnableFetchCache {
		report.Config.FetchCacheSize = h.config.FetchCacheConfig.Size
	}
	if h.config.WaitControl != nil {
		report.Config.WaitControl = fmt.Sprintf("0x%04x", *h.config.WaitControl)
	}

	var cpiSum float64
	for _, r := range results {
		report.Summary.TotalBenchmarks++
		if r.Error != "" {
			report.Summary.Failed++
		}
		report.Summary.TotalCycles += r.SimulatedCycles
		report.Summary.TotalInstructions += r.InstructionsRetired
		cpiSum += r.CPI
	}
	if n := len(results); n > 0 {
		report.Summary.AverageCPI = cpiSum / float64(n)
	}
	return report
}

// PrintJSON prints the report for results as indented JSON.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(h.Report(results))
}

// BuildProgram creates a cartridge image from ARM instruction words.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 0, len(instrs)*4)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint32(program, inst)
	}
	return program
}

// BuildThumbProgram creates a cartridge image from Thumb instructions.
func BuildThumbProgram(instrs ...uint16) []byte {
	program := make([]byte, 0, len(instrs)*2)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint16(program, inst)
	}
	return program
}

// ARM encoding helpers. All instructions are unconditional unless a
// condition is taken.

const condAL = uint32(emu.CondAL) << 28

// EncodeDataImm encodes a data-processing instruction with an immediate
// operand of imm8 rotated right by 2*rot.
func EncodeDataImm(op insts.Op, rd, rn uint8, imm8 uint8, rot uint8, setFlags bool) uint32 {
	inst := condAL | 1<<25 | uint32(op)<<21
	if setFlags {
		inst |= 1 << 20
	}
	inst |= uint32(rn&0xF) << 16
	inst |= uint32(rd&0xF) << 12
	inst |= uint32(rot&0xF) << 8
	inst |= uint32(imm8)
	return inst
}

// EncodeDataReg encodes a data-processing instruction with an unshifted
// register operand.
func EncodeDataReg(op insts.Op, rd, rn, rm uint8, setFlags bool) uint32 {
	inst := condAL | uint32(op)<<21
	if setFlags {
		inst |= 1 << 20
	}
	inst |= uint32(rn&0xF) << 16
	inst |= uint32(rd&0xF) << 12
	inst |= uint32(rm & 0xF)
	return inst
}

// EncodeMOVImm encodes MOV rd, #imm8.
func EncodeMOVImm(rd uint8, imm uint8) uint32 {
	return EncodeDataImm(insts.OpMOV, rd, 0, imm, 0, false)
}

// EncodeMOVReg encodes MOV rd, rm.
func EncodeMOVReg(rd, rm uint8) uint32 {
	return EncodeDataReg(insts.OpMOV, rd, 0, rm, false)
}

// EncodeADDImm encodes ADD rd, rn, #imm8.
func EncodeADDImm(rd, rn uint8, imm uint8) uint32 {
	return EncodeDataImm(insts.OpADD, rd, rn, imm, 0, false)
}

// EncodeSUBSImm encodes SUBS rd, rn, #imm8.
func EncodeSUBSImm(rd, rn uint8, imm uint8) uint32 {
	return EncodeDataImm(insts.OpSUB, rd, rn, imm, 0, true)
}

// EncodeMUL encodes MUL rd, rm, rs.
func EncodeMUL(rd, rm, rs uint8) uint32 {
	return condAL | 0x90 | uint32(rd&0xF)<<16 | uint32(rs&0xF)<<8 | uint32(rm&0xF)
}

// EncodeB encodes a conditional branch. offset is the byte distance from the
// branch itself to the target.
func EncodeB(cond emu.Cond, offset int32) uint32 {
	return uint32(cond)<<28 | 0x0A000000 | uint32((offset-8)>>2)&0xFFFFFF
}

// EncodeBL encodes a branch with link.
func EncodeBL(offset int32) uint32 {
	return condAL | 0x0B000000 | uint32((offset-8)>>2)&0xFFFFFF
}

// EncodeBX encodes BX rm.
func EncodeBX(rm uint8) uint32 {
	return condAL | 0x012FFF10 | uint32(rm&0xF)
}

// EncodeLDRPost encodes LDR rd, [rn], #imm.
func EncodeLDRPost(rd, rn uint8, imm uint16) uint32 {
	return condAL | 0x04900000 | uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | uint32(imm&0xFFF)
}

// EncodeSTRPost encodes STR rd, [rn], #imm.
func EncodeSTRPost(rd, rn uint8, imm uint16) uint32 {
	return condAL | 0x04800000 | uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | uint32(imm&0xFFF)
}

// EncodeSTRBImm encodes STRB rd, [rn, #imm].
func EncodeSTRBImm(rd, rn uint8, imm uint16) uint32 {
	return condAL | 0x05C00000 | uint32(rn&0xF)<<16 | uint32(rd&0xF)<<12 | uint32(imm&0xFFF)
}

// EncodeLDMIA encodes LDMIA rn!, {list}.
func EncodeLDMIA(rn uint8, list uint16) uint32 {
	return condAL | 0x08B00000 | uint32(rn&0xF)<<16 | uint32(list)
}

// EncodeSTMIA encodes STMIA rn!, {list}.
func EncodeSTMIA(rn uint8, list uint16) uint32 {
	return condAL | 0x08A00000 | uint32(rn&0xF)<<16 | uint32(list)
}

// EncodeHalt returns the ARM sequence that halts the CPU through HALTCNT.
// It clobbers r12.
func EncodeHalt() []uint32 {
	return []uint32{
		EncodeDataImm(insts.OpMOV, 12, 0, 0x01, 3, false),   // mov r12, #0x04000000
		EncodeDataImm(insts.OpADD, 12, 12, 0x03, 12, false), // add r12, r12, #0x300
		EncodeSTRBImm(12, 12, 1),                            // strb r12, [r12, #1]
	}
}

// Thumb encoding helpers.

// ThumbMOVImm encodes MOV rd, #imm8.
func ThumbMOVImm(rd uint8, imm uint8) uint16 {
	return 0x2000 | uint16(rd&7)<<8 | uint16(imm)
}

// ThumbADDImm encodes ADD rd, #imm8.
func ThumbADDImm(rd uint8, imm uint8) uint16 {
	return 0x3000 | uint16(rd&7)<<8 | uint16(imm)
}

// ThumbSUBImm encodes SUB rd, #imm8.
func ThumbSUBImm(rd uint8, imm uint8) uint16 {
	return 0x3800 | uint16(rd&7)<<8 | uint16(imm)
}

// ThumbLSLImm encodes LSL rd, rs, #imm5.
func ThumbLSLImm(rd, rs uint8, imm uint8) uint16 {
	return uint16(imm&0x1F)<<6 | uint16(rs&7)<<3 | uint16(rd&7)
}

// ThumbADDReg encodes ADD rd, rn, rm.
func ThumbADDReg(rd, rn, rm uint8) uint16 {
	return 0x1800 | uint16(rm&7)<<6 | uint16(rn&7)<<3 | uint16(rd&7)
}

// ThumbSTRBImm encodes STRB rd, [rb, #imm5].
func ThumbSTRBImm(rd, rb uint8, imm uint8) uint16 {
	return 0x7000 | uint16(imm&0x1F)<<6 | uint16(rb&7)<<3 | uint16(rd&7)
}

// ThumbB encodes a conditional branch. offset is the byte distance from the
// branch itself to the target.
func ThumbB(cond emu.Cond, offset int32) uint16 {
	return 0xD000 | uint16(cond&0xF)<<8 | uint16(uint8((offset-4)>>1))
}

// ThumbHalt returns the Thumb sequence that halts the CPU through HALTCNT.
// It clobbers r6 and r7.
func ThumbHalt() []uint16 {
	return []uint16{
		ThumbMOVImm(7, 1),
		ThumbLSLImm(7, 7, 26), // r7 = 0x04000000
		ThumbMOVImm(6, 3),
		ThumbLSLImm(6, 6, 8),
		ThumbADDReg(7, 7, 6), // r7 = 0x04000300
		ThumbSTRBImm(7, 7, 1),
	}
}
