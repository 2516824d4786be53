// Package main provides the tinygpu command line interface.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/tinygpu/gpu"
	"github.com/sarchlab/tinygpu/insts"
	"github.com/sarchlab/tinygpu/kernels"
	"github.com/sarchlab/tinygpu/loader"
)

var (
	demo       = flag.String("demo", "", "Run a built-in sample kernel (matadd, matmul)")
	configPath = flag.String("config", "", "Path to device configuration JSON file")
	threads    = flag.Int("threads", -1, "Override the kernel thread count")
	maxCycles  = flag.Uint64("cycles", 100000, "Cycle budget (0 for unlimited)")
	dumpFrom   = flag.Int("dump", 0, "First data memory address to dump")
	dumpLen    = flag.Int("dump-len", 32, "Number of data memory bytes to dump")
	verbose    = flag.Bool("v", false, "Verbose output with execution tracing")
)

func main() {
	flag.Parse()

	if *demo == "" && flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: tinygpu [options] <kernel image>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := gpu.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = gpu.LoadConfig(*configPath)
		if err != nil {
			fatalf("%v", err)
		}
	}

	program, data, threadCount := loadKernel()
	if *threads >= 0 {
		threadCount = *threads
	}

	opts := []gpu.Option{gpu.WithMaxCycles(*maxCycles)}
	if *verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		opts = append(opts, gpu.WithLogger(logger))
	}

	device, err := gpu.New(cfg, opts...)
	if err != nil {
		fatalf("%v", err)
	}
	if err := device.LoadProgram(program); err != nil {
		fatalf("%v", err)
	}
	if err := device.WriteData(0, data); err != nil {
		fatalf("%v", err)
	}
	if err := device.SetThreadCount(threadCount); err != nil {
		fatalf("%v", err)
	}

	if *verbose {
		disassemble(program)
	}

	engine := sim.NewSerialEngine()
	comp := gpu.NewComponent("GPU", engine, 1*sim.GHz, device)

	device.Start()
	comp.TickNow()
	if err := engine.Run(); err != nil {
		fatalf("%v", err)
	}

	if !device.Done() {
		fatalf("kernel did not complete within %d cycles", *maxCycles)
	}

	report(device)
	if len(device.Faults()) > 0 {
		os.Exit(1)
	}
}

// loadKernel returns the program, initial data, and thread count from either
// the demo kernel or the kernel image argument.
func loadKernel() ([]uint16, []uint8, int) {
	if *demo != "" {
		k, ok := kernels.ByName(*demo)
		if !ok {
			fatalf("unknown demo kernel %q", *demo)
		}
		return k.Program, k.Data, k.Threads
	}

	prog, err := loader.Load(flag.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}
	return prog.Words, prog.Data, prog.Threads
}

func disassemble(program []uint16) {
	decoder := insts.NewDecoder()
	fmt.Println("Program:")
	for pc, word := range program {
		fmt.Printf("  %3d: %04X  %s\n", pc, word, decoder.Decode(word))
	}
	fmt.Println()
}

func report(device *gpu.Device) {
	stats := device.Stats()
	fmt.Printf("Cycles:        %d\n", stats.Cycles)
	fmt.Printf("Instructions:  %d\n", stats.Instructions)
	fmt.Printf("Blocks:        %d\n", stats.Blocks)
	fmt.Printf("Fetches:       %d\n", stats.ProgramReads)
	fmt.Printf("Data reads:    %d\n", stats.DataReads)
	fmt.Printf("Data writes:   %d\n", stats.DataWrites)

	for _, f := range device.Faults() {
		fmt.Printf("Fault:         %s\n", f)
	}

	fmt.Printf("\nData memory [%d, %d):\n", *dumpFrom, *dumpFrom+*dumpLen)
	for i := 0; i < *dumpLen; i++ {
		addr := *dumpFrom + i
		if addr > 255 {
			break
		}
		if i%8 == 0 {
			fmt.Printf("  %3d:", addr)
		}
		fmt.Printf(" %3d", device.ReadData(uint8(addr)))
		if i%8 == 7 {
			fmt.Println()
		}
	}
	fmt.Println()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tinygpu: "+format+"\n", args...)
	os.Exit(1)
}
