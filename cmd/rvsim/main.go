// Command rvsim assembles, links, and runs one or more RV32I assembly
// files, owning the whole pipeline from source text to a retired
// instruction count and exit code.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rv32i-toolkit/rvsim/asm"
	"github.com/rv32i-toolkit/rvsim/config"
	"github.com/rv32i-toolkit/rvsim/emu"
	"github.com/rv32i-toolkit/rvsim/link"
	"github.com/rv32i-toolkit/rvsim/profile"
)

var (
	configPath = flag.String("config", "", "path to a JSON config file overriding the defaults")
	timeout    = flag.Uint64("timeout", config.DefaultTimeout, "retired-instruction budget (0 = unlimited)")
	memSize    = flag.Uint64("memory", config.DefaultMemorySize, "guest address space size in bytes")
	debugTrace = flag.Bool("debug", false, "print a per-instruction disassembly trace")
	detail     = flag.Bool("detail", false, "print an instruction-fetch cache profile after running")
	quiet      = flag.Bool("quiet", false, "discard the guest program's stdout-equivalent output")
	verbose    = flag.Bool("v", false, "print build and run diagnostics")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: rvsim [options] <file.s> [file2.s ...]\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rvsim: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "rvsim: %v\n", err)
		os.Exit(1)
	}

	exitCode, err := run(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rvsim: %v\n", err)
		os.Exit(1)
	}
	os.Exit(int(exitCode))
}

func buildConfig() (*config.Config, error) {
	if *configPath != "" {
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg.AssemblyFiles = flag.Args()
		return cfg, nil
	}

	return config.New(
		config.WithAssemblyFiles(flag.Args()),
		config.WithTimeout(*timeout),
		config.WithMemorySize(*memSize),
		config.WithOption(config.OptDebug, *debugTrace),
		config.WithOption(config.OptDetail, *detail),
		config.WithOption(config.OptQuiet, *quiet),
	), nil
}

// run assembles and links cfg.AssemblyFiles, then interprets the linked
// image to completion. It returns the guest's exit code on success. A
// build-time error is returned unwrapped so main can print it and exit
// non-zero; a run-time trap is printed to the device's panic sink and
// reported as exit code 1 with a nil error.
func run(cfg *config.Config) (int32, error) {
	files := make([]*asm.File, len(cfg.AssemblyFiles))
	for i, path := range cfg.AssemblyFiles {
		src, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		f, err := asm.Assemble(path, i, string(src))
		if err != nil {
			return 0, err
		}
		files[i] = f
	}

	mem := emu.NewMemory(uint32(cfg.MemorySize))
	dev := buildDevice(cfg)

	libcBase, heapStart, heapEnd, err := reserveHeapAndLibc(cfg)
	if err != nil {
		return 0, err
	}
	libc := emu.NewLibc(libcBase, mem, dev, heapStart, heapEnd)

	img, err := link.Link(files, cfg.SectionBases, libc.Symbols())
	if err != nil {
		return 0, err
	}
	// Keep the heap clear of a .bss that runs past the default slack.
	if bssEnd := img.Bases.Bss + img.BssSize; bssEnd > heapStart {
		heapStart = (bssEnd + 7) &^ 7
		if heapStart >= heapEnd {
			return 0, fmt.Errorf("memory size %d leaves no room for a heap above .bss", cfg.MemorySize)
		}
		libc = emu.NewLibc(libcBase, mem, dev, heapStart, heapEnd)
	}

	if err := mem.LoadImage(img.Bases.Text, img.Text); err != nil {
		return 0, err
	}
	if err := mem.LoadImage(img.Bases.Data, img.Data); err != nil {
		return 0, err
	}
	if err := mem.LoadImage(img.Bases.Rodata, img.Rodata); err != nil {
		return 0, err
	}

	rf := emu.NewRegisterFile(img.Symbols["main"], cfg.Timeout)
	icache := emu.NewICache(mem, img.Bases.Text, uint32(len(img.Text)))

	opts := []emu.InterpreterOption{emu.WithDebugTrace(cfg.Options[config.OptDebug])}
	if cfg.Options[config.OptDetail] {
		opts = append(opts, emu.WithFetchHistory(true))
	}
	interp := emu.NewInterpreter(rf, mem, icache, libc, dev, opts...)

	result := interp.Run()

	if *verbose {
		rf.PrintDetails(os.Stderr, true)
	}
	if cfg.Options[config.OptDetail] {
		p := profile.NewFetchProfiler(profile.DefaultConfig())
		p.Replay(interp.FetchHistory())
		p.Report(os.Stderr)
	}

	if result.Err != nil {
		fmt.Fprintln(dev.Panic, result.Err.(*emu.FailToInterpret).What(rf))
		return 1, nil
	}
	return result.ExitCode, nil
}

func buildDevice(cfg *config.Config) *emu.Device {
	if cfg.Options[config.OptQuiet] {
		return emu.NewDevice(io.Discard, os.Stderr, os.Stderr, os.Stdin)
	}
	return emu.NewDevice(os.Stdout, os.Stderr, os.Stderr, os.Stdin)
}

// reserveHeapAndLibc places the libc sentinel table above the highest
// section base a program could plausibly use, and gives the heap the
// remaining space up to it. It fails loudly rather than silently
// truncating the heap to zero.
func reserveHeapAndLibc(cfg *config.Config) (libcBase, heapStart, heapEnd uint32, err error) {
	highest := cfg.SectionBases.Bss
	if cfg.SectionBases.Rodata > highest {
		highest = cfg.SectionBases.Rodata
	}
	if cfg.SectionBases.Data > highest {
		highest = cfg.SectionBases.Data
	}
	if cfg.SectionBases.Text > highest {
		highest = cfg.SectionBases.Text
	}

	reserved := uint32(4 * len(emu.LibcName))
	memSize := uint32(cfg.MemorySize)
	if memSize < reserved || memSize-reserved <= highest {
		return 0, 0, 0, fmt.Errorf("memory size %d is too small to fit the linked sections and the libc table", cfg.MemorySize)
	}

	libcBase = memSize - reserved
	heapEnd = libcBase
	heapStart = (highest + 0x1000 + 7) &^ 7 // leave slack above the highest section base, 8-byte aligned
	if heapStart >= heapEnd {
		return 0, 0, 0, fmt.Errorf("memory size %d leaves no room for a heap", cfg.MemorySize)
	}
	return libcBase, heapStart, heapEnd, nil
}
