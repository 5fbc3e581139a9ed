// Package main provides a profiling wrapper for gbasim to identify
// performance bottlenecks in the interpreter.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/loader"
	"github.com/sarchlab/gbasim/timing/cache"
	"github.com/sarchlab/gbasim/timing/core"
)

var (
	mode        = flag.String("mode", "cpu", "profile to record: cpu, mem, block, mutex or trace")
	profileDir  = flag.String("dir", ".", "directory to write the profile to")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	frames      = flag.Int("frames", 600, "max display frames to run")
	instruction = flag.Uint64("max-instr", 0, "max instructions to execute (0 = unlimited)")
	fetchCache  = flag.Bool("fetch-cache", false, "include the fetch locality model in the profile")
)

func profileMode(name string) (func(*profile.Profile), error) {
	switch name {
	case "cpu":
		return profile.CPUProfile, nil
	case "mem":
		return profile.MemProfile, nil
	case "block":
		return profile.BlockProfile, nil
	case "mutex":
		return profile.MutexProfile, nil
	case "trace":
		return profile.TraceProfile, nil
	}
	return nil, fmt.Errorf("unknown profile mode %q", name)
}

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <cartridge.gba|program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	pm, err := profileMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.LoadROMWithOptions(programPath, loader.Options{SkipChecksum: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)

	c := newCore()
	prog.Install(c.Emulator())
	prog.Start(c.Emulator())

	stop := profile.Start(pm, profile.ProfilePath(*profileDir), profile.NoShutdownHook)
	start := time.Now()
	ran, runErr := runFrames(c, start)
	elapsed := time.Since(start)
	stop.Stop()

	stats := c.Stats()

	fmt.Printf("\nProfiling Results:\n")
	if runErr != nil && !errors.Is(runErr, emu.ErrMaxInstructions) {
		fmt.Printf("Stopped by error: %v\n", runErr)
	}
	fmt.Printf("Frames: %d\n", ran)
	fmt.Printf("Instructions executed: %d\n", stats.Instructions)
	fmt.Printf("Cycles simulated: %d\n", stats.Cycles)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if stats.Instructions > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(stats.Instructions)/elapsed.Seconds())
	}
	if ran > 0 {
		fmt.Printf("Speed: %.1f%% of hardware\n",
			100*float64(stats.Cycles)/float64(core.CyclesPerFrame*60)/elapsed.Seconds())
	}
}

func newCore() *core.Core {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	emuOpts := []emu.EmulatorOption{emu.WithLogger(logger)}
	if *instruction > 0 {
		emuOpts = append(emuOpts, emu.WithMaxInstructions(*instruction))
	}

	opts := []core.Option{core.WithEmulatorOptions(emuOpts...), core.WithVBlank()}
	if *fetchCache {
		opts = append(opts, core.WithFetchCache(cache.DefaultFetchConfig()))
	}
	return core.NewCore(opts...)
}

// runFrames runs whole frames until the frame limit, the time limit or an
// error stops it.
func runFrames(c *core.Core, start time.Time) (int, error) {
	for i := 0; i < *frames; i++ {
		if time.Since(start) > *duration {
			fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
			return i, nil
		}
		if err := c.RunFrames(1); err != nil {
			return i, err
		}
	}
	return *frames, nil
}
