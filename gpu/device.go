// Package gpu wires the dispatcher, the compute cores, and the memory
// subsystem into a complete SIMD GPU device.
package gpu

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/tinygpu/timing/core"
	"github.com/sarchlab/tinygpu/timing/dispatch"
	"github.com/sarchlab/tinygpu/timing/fetch"
	"github.com/sarchlab/tinygpu/timing/lsu"
	"github.com/sarchlab/tinygpu/timing/memctrl"
)

// Stats holds aggregated performance statistics for a device.
type Stats struct {
	// Cycles is the number of cycles since the kernel started.
	Cycles uint64
	// Instructions is the number of instructions retired across all cores.
	Instructions uint64
	// Blocks is the number of thread blocks executed.
	Blocks uint64
	// ProgramReads is the number of instruction fetches serviced.
	ProgramReads uint64
	// DataReads and DataWrites are the data memory transactions serviced.
	DataReads  uint64
	DataWrites uint64
	// Faults is the number of blocks that ended abnormally.
	Faults uint64
}

// Device is a complete GPU: a dispatcher feeding thread blocks to NumCores
// compute cores, whose fetchers and per-lane load/store units contend for
// the program and data memory controllers. All components advance together
// on a shared clock tick.
type Device struct {
	cfg Config

	progMem  *memctrl.Memory[uint16]
	dataMem  *memctrl.Memory[uint8]
	progCtrl *memctrl.Controller[uint16]
	dataCtrl *memctrl.Controller[uint8]

	cores      []*core.Core
	dispatcher *dispatch.Dispatcher

	// threadCount is the device control register: the kernel's total
	// thread count, written once before start.
	threadCount int

	started   bool
	cycles    uint64
	maxCycles uint64

	log *slog.Logger
}

// Option is a functional option for configuring a Device.
type Option func(*Device)

// WithLogger sets a structured logger, propagated to all components.
func WithLogger(log *slog.Logger) Option {
	return func(d *Device) {
		d.log = log
	}
}

// WithMaxCycles limits a kernel to the given number of cycles; Tick stops
// making progress once the budget is exhausted. 0 means no limit.
func WithMaxCycles(n uint64) Option {
	return func(d *Device) {
		d.maxCycles = n
	}
}

// New creates a device from the given configuration.
func New(cfg Config, opts ...Option) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Device{cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}

	d.progMem = memctrl.NewMemory[uint16](cfg.MemorySize, cfg.ProgramLatency)
	d.dataMem = memctrl.NewMemory[uint8](cfg.MemorySize, cfg.DataLatency)

	// One program port per core's fetcher; one data port per (core, lane)
	// load/store unit.
	d.progCtrl = memctrl.NewController(memctrl.Config{
		Consumers: cfg.NumCores,
		Channels:  cfg.ProgramChannels,
	}, d.progMem)
	d.dataCtrl = memctrl.NewController(memctrl.Config{
		Consumers:   cfg.NumCores * cfg.ThreadsPerBlock,
		Channels:    cfg.DataChannels,
		WriteEnable: true,
	}, d.dataMem)

	d.cores = make([]*core.Core, cfg.NumCores)
	dispatchCores := make([]dispatch.Core, cfg.NumCores)
	for i := range d.cores {
		fetcher := fetch.NewFetcher(d.progCtrl.ConsumerPort(i))

		lsus := make([]*lsu.LoadStoreUnit, cfg.ThreadsPerBlock)
		for j := range lsus {
			lsus[j] = lsu.New(d.dataCtrl.ConsumerPort(i*cfg.ThreadsPerBlock + j))
		}

		var coreOpts []core.Option
		if d.log != nil {
			coreOpts = append(coreOpts, core.WithLogger(d.log))
		}
		d.cores[i] = core.New(i, fetcher, lsus, coreOpts...)
		dispatchCores[i] = d.cores[i]
	}

	var dispatchOpts []dispatch.Option
	if d.log != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithLogger(d.log))
	}
	d.dispatcher = dispatch.New(dispatchCores, cfg.ThreadsPerBlock, dispatchOpts...)

	return d, nil
}

// Config returns the device configuration.
func (d *Device) Config() Config {
	return d.cfg
}

// LoadProgram copies the kernel's instruction words into program memory
// starting at address 0.
func (d *Device) LoadProgram(words []uint16) error {
	if len(words) > d.progMem.Size() {
		return fmt.Errorf("gpu: program of %d words exceeds memory size %d",
			len(words), d.progMem.Size())
	}
	for i, w := range words {
		d.progMem.Store(uint8(i), w)
	}
	return nil
}

// WriteData copies bytes into data memory starting at addr.
func (d *Device) WriteData(addr uint8, values []uint8) error {
	if int(addr)+len(values) > d.dataMem.Size() {
		return fmt.Errorf("gpu: %d bytes at %d exceed memory size %d",
			len(values), addr, d.dataMem.Size())
	}
	for i, v := range values {
		d.dataMem.Store(addr+uint8(i), v)
	}
	return nil
}

// ReadData returns the byte at addr in data memory.
func (d *Device) ReadData(addr uint8) uint8 {
	return d.dataMem.Load(addr)
}

// SetThreadCount writes the device control register: the kernel's total
// thread count. Must be set before Start.
func (d *Device) SetThreadCount(n int) error {
	if n < 0 || n > 255 {
		return fmt.Errorf("gpu: thread count %d out of range [0, 255]", n)
	}
	d.threadCount = n
	return nil
}

// Start launches the configured kernel.
func (d *Device) Start() {
	d.started = true
	d.cycles = 0
	d.dispatcher.Start(d.threadCount)
	if d.log != nil {
		d.log.Info("gpu: kernel started",
			"threads", d.threadCount, "blocks", d.dispatcher.BlockCount())
	}
}

// Done reports whether the whole kernel completed: every block assigned and
// every core that was given a block reported done.
func (d *Device) Done() bool {
	return d.started && d.dispatcher.Done()
}

// Tick advances the device one clock cycle and reports whether it made
// progress. It returns false once the kernel has completed, no kernel is
// running, or the cycle budget is exhausted.
func (d *Device) Tick() bool {
	if !d.started || d.Done() {
		return false
	}
	if d.maxCycles > 0 && d.cycles >= d.maxCycles {
		return false
	}
	d.cycles++

	d.dispatcher.Tick()
	for _, c := range d.cores {
		c.Tick()
	}
	d.progCtrl.Tick()
	d.progMem.Tick()
	d.dataCtrl.Tick()
	d.dataMem.Tick()

	return true
}

// Run ticks the device until the kernel completes. It fails if the cycle
// budget set by WithMaxCycles runs out first.
func (d *Device) Run() error {
	if !d.started {
		return fmt.Errorf("gpu: run before start")
	}
	for d.Tick() {
	}
	if !d.Done() {
		return fmt.Errorf("gpu: kernel did not complete within %d cycles", d.cycles)
	}
	if d.log != nil {
		d.log.Info("gpu: kernel done", "cycles", d.cycles)
	}
	return nil
}

// Core returns core i, for inspecting registers, faults, and statistics.
func (d *Device) Core(i int) *core.Core {
	return d.cores[i]
}

// Faults returns every fault raised by the device's cores, including those
// of blocks that ran before a core was reassigned.
func (d *Device) Faults() []core.Fault {
	var faults []core.Fault
	for _, c := range d.cores {
		faults = append(faults, c.Faults()...)
	}
	return faults
}

// Stats returns aggregated statistics for the device.
func (d *Device) Stats() Stats {
	s := Stats{
		Cycles:       d.cycles,
		ProgramReads: d.progCtrl.Stats().Reads,
		DataReads:    d.dataCtrl.Stats().Reads,
		DataWrites:   d.dataCtrl.Stats().Writes,
	}
	for _, c := range d.cores {
		cs := c.Stats()
		s.Instructions += cs.Instructions
		s.Blocks += cs.Blocks
		s.Faults += cs.Faults
	}
	return s
}
