// Package main provides the entry point for gbasim.
// gbasim is a cycle-counting ARM7TDMI simulator for Game Boy Advance
// cartridges.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/loader"
	"github.com/sarchlab/gbasim/timing/cache"
	"github.com/sarchlab/gbasim/timing/core"
	"github.com/sarchlab/gbasim/timing/latency"
)

type options struct {
	bios         string
	configPath   string
	maxInstr     uint64
	cycles       uint64
	frames       int
	vblank       bool
	fetchCache   bool
	skipChecksum bool
	saveState    string
	loadState    string
	verbose      bool
	trace        bool
	logFormat    string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gbasim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.bios, "bios", "", "BIOS image to boot through (default: start at the cartridge entry)")
	fs.StringVar(&opts.configPath, "timing-config", "", "Path to timing configuration JSON file")
	fs.Uint64Var(&opts.maxInstr, "max-instr", 0, "Max instructions to execute (0 = unlimited)")
	fs.Uint64Var(&opts.cycles, "cycles", 0, "Cycles to run; overrides -frames when set")
	fs.IntVar(&opts.frames, "frames", 60, "Display frames to run")
	fs.BoolVar(&opts.vblank, "vblank", true, "Raise the VBlank interrupt at the end of every frame")
	fs.BoolVar(&opts.fetchCache, "fetch-cache", false, "Profile instruction fetch locality")
	fs.BoolVar(&opts.skipChecksum, "skip-checksum", false, "Accept cartridges with a bad header checksum")
	fs.StringVar(&opts.saveState, "save-state", "", "Write the machine state to this file after the run")
	fs.StringVar(&opts.loadState, "load-state", "", "Restore the machine state from this file before the run")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.BoolVar(&opts.trace, "trace", false, "Log every executed instruction")
	fs.StringVar(&opts.logFormat, "log-format", "auto", "Log format: auto, text or json")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: gbasim [options] <cartridge.gba|program.elf>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	logger := newLogger(stderr, opts)
	if err := simulate(fs.Arg(0), opts, logger, stdout); err != nil {
		logger.WithError(err).Error("simulation failed")
		return 1
	}
	return 0
}

func newLogger(w io.Writer, opts options) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	switch {
	case opts.trace:
		logger.SetLevel(logrus.TraceLevel)
	case opts.verbose:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if useJSON(w, opts.logFormat) {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// useJSON picks structured logs unless w is an interactive terminal.
func useJSON(w io.Writer, format string) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}
	f, ok := w.(*os.File)
	return !ok || !term.IsTerminal(int(f.Fd()))
}

func simulate(path string, opts options, logger *logrus.Logger, stdout io.Writer) error {
	prog, err := loader.LoadROMWithOptions(path, loader.Options{SkipChecksum: opts.skipChecksum})
	if err != nil {
		return err
	}

	fields := logrus.Fields{
		"path":  path,
		"size":  len(prog.ROM),
		"entry": fmt.Sprintf("0x%08X", prog.EntryPoint),
	}
	if prog.Header != nil {
		fields["title"] = prog.Header.Title
		fields["code"] = prog.Header.GameCode
	}
	logger.WithFields(fields).Info("loaded cartridge")

	c, err := newCore(opts, logger)
	if err != nil {
		return err
	}

	e := c.Emulator()
	prog.Install(e)
	if opts.bios == "" {
		prog.Start(e)
	}

	if opts.loadState != "" {
		if err := restoreState(e, opts.loadState); err != nil {
			return err
		}
		logger.WithField("path", opts.loadState).Info("restored state")
	}

	if err := execute(c, opts); err != nil {
		if errors.Cause(err) != emu.ErrMaxInstructions {
			return err
		}
		logger.WithField("limit", opts.maxInstr).Info("instruction limit reached")
	}

	printStats(stdout, path, c.Stats(), opts.fetchCache)

	if opts.saveState != "" {
		if err := writeState(e, opts.saveState); err != nil {
			return err
		}
		logger.WithField("path", opts.saveState).Info("saved state")
	}
	return nil
}

func newCore(opts options, logger *logrus.Logger) (*core.Core, error) {
	emuOpts := []emu.EmulatorOption{emu.WithLogger(logger)}

	if opts.maxInstr > 0 {
		emuOpts = append(emuOpts, emu.WithMaxInstructions(opts.maxInstr))
	}

	if opts.configPath != "" {
		config, err := latency.LoadConfig(opts.configPath)
		if err != nil {
			return nil, errors.Wrap(err, "load timing config")
		}
		emuOpts = append(emuOpts, emu.WithTimingTable(latency.NewTableWithConfig(config)))
	}

	if opts.bios != "" {
		bios, err := loader.LoadBIOS(opts.bios)
		if err != nil {
			return nil, err
		}
		emuOpts = append(emuOpts, emu.WithBIOS(bios))
	}

	coreOpts := []core.Option{core.WithEmulatorOptions(emuOpts...)}
	if opts.fetchCache {
		coreOpts = append(coreOpts, core.WithFetchCache(cache.DefaultFetchConfig()))
	}
	if opts.vblank {
		coreOpts = append(coreOpts, core.WithVBlank())
	}
	if opts.trace || opts.verbose {
		coreOpts = append(coreOpts, core.WithEventSink(emu.NewLogSink(logger)))
	}
	return core.NewCore(coreOpts...), nil
}

func execute(c *core.Core, opts options) error {
	if opts.cycles > 0 {
		return c.RunCycles(opts.cycles)
	}
	return c.RunFrames(opts.frames)
}

func restoreState(e *emu.Emulator, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open state file")
	}
	defer func() { _ = f.Close() }()

	return errors.Wrapf(e.LoadState(f), "load state from %s", path)
}

func writeState(e *emu.Emulator, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create state file")
	}

	if err := e.SaveState(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "save state to %s", path)
	}
	return f.Close()
}

func printStats(w io.Writer, path string, stats core.Stats, fetch bool) {
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Program: %s\n", path)
	_, _ = fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	_, _ = fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	_, _ = fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	_, _ = fmt.Fprintf(w, "Frames: %d\n", stats.Frames)
	_, _ = fmt.Fprintf(w, "\n")

	total := stats.Cycles
	if total == 0 {
		total = 1
	}
	active := stats.Cycles - stats.HaltedCycles
	_, _ = fmt.Fprintf(w, "Breakdown:\n")
	_, _ = fmt.Fprintf(w, "  Executing: %8d cycles (%5.1f%%)\n",
		active, 100.0*float64(active)/float64(total))
	_, _ = fmt.Fprintf(w, "  Halted:    %8d cycles (%5.1f%%)\n",
		stats.HaltedCycles, 100.0*float64(stats.HaltedCycles)/float64(total))
	_, _ = fmt.Fprintf(w, "\n")

	_, _ = fmt.Fprintf(w, "Events:\n")
	_, _ = fmt.Fprintf(w, "  Branches:   %d\n", stats.Branches)
	_, _ = fmt.Fprintf(w, "  Exceptions: %d\n", stats.Exceptions)
	_, _ = fmt.Fprintf(w, "  IRQs:       %d\n", stats.IRQs)
	_, _ = fmt.Fprintf(w, "  Undefined:  %d\n", stats.Undefined)
	_, _ = fmt.Fprintf(w, "  Halts:      %d\n", stats.Halts)

	if fetch {
		_, _ = fmt.Fprintf(w, "\n")
		_, _ = fmt.Fprintf(w, "Fetch Locality:\n")
		_, _ = fmt.Fprintf(w, "  Hits:     %d\n", stats.Fetch.Hits)
		_, _ = fmt.Fprintf(w, "  Misses:   %d\n", stats.Fetch.Misses)
		_, _ = fmt.Fprintf(w, "  Hit Rate: %.1f%%\n", 100.0*stats.Fetch.HitRate())
	}
}
