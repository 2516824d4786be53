// Package dispatch assigns kernel thread blocks to idle compute cores.
package dispatch

import (
	"fmt"
	"log/slog"
)

// Core is the dispatcher's view of a compute core.
type Core interface {
	// Start assigns a thread block to the core.
	Start(blockID uint8, threadCount int)
	// Done reports whether the last assigned block has completed. It must
	// stay set until the next Start.
	Done() bool
}

// Dispatcher splits a kernel into sequential thread blocks and hands them to
// idle cores. The final block may be partial. A core that reports done
// becomes assignable again exactly one cycle later.
type Dispatcher struct {
	cores           []Core
	threadsPerBlock int

	totalThreads int
	blockCount   int
	nextBlock    int
	blocksDone   int

	running []bool

	active bool
	done   bool

	log *slog.Logger
}

// Option is a functional option for configuring a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a structured logger for dispatch tracing.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// New creates a dispatcher over the given cores.
func New(cores []Core, threadsPerBlock int, opts ...Option) *Dispatcher {
	if len(cores) == 0 {
		panic("dispatch: need at least one core")
	}
	if threadsPerBlock <= 0 {
		panic("dispatch: threads per block must be positive")
	}

	d := &Dispatcher{
		cores:           cores,
		threadsPerBlock: threadsPerBlock,
		running:         make([]bool, len(cores)),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Start launches a kernel of threadCount scalar threads. The block count is
// the ceiling of threadCount over the block size; a zero-thread kernel
// completes on the next tick without dispatching anything.
func (d *Dispatcher) Start(threadCount int) {
	if threadCount < 0 {
		panic("dispatch: negative thread count")
	}

	d.totalThreads = threadCount
	d.blockCount = (threadCount + d.threadsPerBlock - 1) / d.threadsPerBlock
	// Block IDs are 8 bits wide.
	if d.blockCount > 256 {
		panic(fmt.Sprintf("dispatch: %d threads need %d blocks, at most 256 fit",
			threadCount, d.blockCount))
	}
	d.nextBlock = 0
	d.blocksDone = 0
	for i := range d.cores {
		d.running[i] = false
	}
	d.active = true
	d.done = false

	if d.log != nil {
		d.log.Debug("dispatch: kernel started",
			"threads", threadCount, "blocks", d.blockCount)
	}
}

// Tick makes at most one dispatch decision per core slot: it retires cores
// whose block completed and assigns the next block to each idle core while
// blocks remain. Retiring and assigning are exclusive, so a core that
// reports done is assignable again exactly one cycle later.
func (d *Dispatcher) Tick() {
	if !d.active {
		return
	}

	for i, c := range d.cores {
		switch {
		case d.running[i] && c.Done():
			d.running[i] = false
			d.blocksDone++
			if d.log != nil {
				d.log.Debug("dispatch: block retired",
					"core", i, "done", d.blocksDone, "total", d.blockCount)
			}

		case !d.running[i] && d.nextBlock < d.blockCount:
			threads := min(d.threadsPerBlock,
				d.totalThreads-d.nextBlock*d.threadsPerBlock)
			c.Start(uint8(d.nextBlock), threads)
			d.running[i] = true
			d.nextBlock++
		}
	}

	if d.nextBlock == d.blockCount && d.blocksDone == d.blockCount {
		d.active = false
		d.done = true
		if d.log != nil {
			d.log.Debug("dispatch: kernel done", "blocks", d.blockCount)
		}
	}
}

// Done reports whether every block has been assigned and every core that was
// given a block has reported completion. It deasserts when a new kernel
// starts.
func (d *Dispatcher) Done() bool {
	return d.done
}

// Active reports whether a kernel is being dispatched.
func (d *Dispatcher) Active() bool {
	return d.active
}

// BlockCount returns the number of blocks of the current kernel.
func (d *Dispatcher) BlockCount() int {
	return d.blockCount
}
