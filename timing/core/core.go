// Package core implements the SIMD compute core: a strict fetch/execute loop
// over a shared program counter, applied in lockstep to every active lane of
// the assigned thread block.
package core

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/tinygpu/emu"
	"github.com/sarchlab/tinygpu/insts"
	"github.com/sarchlab/tinygpu/timing/fetch"
	"github.com/sarchlab/tinygpu/timing/lsu"
)

// State is the core's execution state.
type State int

// Core states.
const (
	// StateIdle means no block is assigned.
	StateIdle State = iota
	// StateFetching means a fetch request is in flight.
	StateFetching
	// StateExecuting means the current instruction is being applied to the
	// active lanes; memory instructions stay here until every active
	// lane's transaction is acknowledged.
	StateExecuting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateFetching:
		return "Fetching"
	case StateExecuting:
		return "Executing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Fault is a fatal per-core condition. A faulting core halts its block and
// reports done; other cores are unaffected.
type Fault int

// Fault kinds.
const (
	// FaultNone means the block ran to RET.
	FaultNone Fault = iota
	// FaultInvalidOpcode means an unassigned opcode was decoded. The core
	// performs a fail-safe halt rather than treating it as a NOP.
	FaultInvalidOpcode
	// FaultBranchDivergence means the active lanes disagreed on a
	// conditional branch. This model requires convergence; divergence
	// halts the block instead of picking a majority outcome.
	FaultBranchDivergence
)

// String returns the fault name.
func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultInvalidOpcode:
		return "invalid opcode"
	case FaultBranchDivergence:
		return "branch divergence"
	}
	return fmt.Sprintf("Fault(%d)", int(f))
}

// Stats holds performance statistics for one core.
type Stats struct {
	// Cycles is the number of non-idle cycles.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Blocks is the number of thread blocks executed.
	Blocks uint64
	// Faults is the number of blocks that ended abnormally.
	Faults uint64
}

// lane is one thread's execution context within the core.
type lane struct {
	regs   emu.RegFile
	flags  insts.Flags
	lsu    *lsu.LoadStoreUnit
	active bool
}

// Core executes one thread block at a time. All active lanes advance in
// lockstep over a single program counter; no instruction begins before the
// previous one's register, PC, and memory effects are committed.
type Core struct {
	id      int
	decoder *insts.Decoder
	alu     *emu.ALU
	fetcher *fetch.Fetcher
	lanes   []lane

	state       State
	pc          uint8
	inst        insts.Instruction
	blockID     uint8
	threadCount int
	fetchIssued bool
	memIssued   bool

	done   bool
	fault  Fault
	faults []Fault

	log   *slog.Logger
	stats Stats
}

// Option is a functional option for configuring a Core.
type Option func(*Core)

// WithLogger sets a structured logger for execution tracing.
func WithLogger(log *slog.Logger) Option {
	return func(c *Core) {
		c.log = log
	}
}

// New creates a core with one SIMD lane per load/store unit.
func New(id int, fetcher *fetch.Fetcher, lsus []*lsu.LoadStoreUnit, opts ...Option) *Core {
	if len(lsus) == 0 {
		panic("core: need at least one lane")
	}

	c := &Core{
		id:      id,
		decoder: insts.NewDecoder(),
		alu:     emu.NewALU(),
		fetcher: fetcher,
		lanes:   make([]lane, len(lsus)),
	}
	for i := range c.lanes {
		c.lanes[i].lsu = lsus[i]
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start assigns a thread block and begins executing it from PC 0.
// threadCount lanes become active; the rest never mutate state or issue
// memory requests for the lifetime of the block.
func (c *Core) Start(blockID uint8, threadCount int) {
	if c.state != StateIdle {
		panic(fmt.Sprintf("core %d: start while in state %s", c.id, c.state))
	}
	if threadCount < 1 || threadCount > len(c.lanes) {
		panic(fmt.Sprintf("core %d: thread count %d out of range [1, %d]",
			c.id, threadCount, len(c.lanes)))
	}

	c.blockID = blockID
	c.threadCount = threadCount
	for i := range c.lanes {
		l := &c.lanes[i]
		l.active = i < threadCount
		l.flags = 0
		l.regs.Reset(blockID, uint8(threadCount), uint8(i))
	}

	c.pc = 0
	c.done = false
	c.fault = FaultNone
	c.fetchIssued = false
	c.state = StateFetching
	c.stats.Blocks++

	if c.log != nil {
		c.log.Debug("core: block assigned",
			"core", c.id, "block", blockID, "threads", threadCount)
	}
}

// Tick advances the core one cycle.
func (c *Core) Tick() {
	if c.state == StateIdle {
		return
	}
	c.stats.Cycles++

	switch c.state {
	case StateFetching:
		c.tickFetch()
	case StateExecuting:
		c.tickExecute()
	}
}

func (c *Core) tickFetch() {
	if !c.fetchIssued {
		c.fetcher.Fetch(c.pc)
		c.fetchIssued = true
	}

	c.fetcher.Tick()
	if !c.fetcher.Ready() {
		return
	}
	c.fetchIssued = false

	c.inst = c.decoder.Decode(c.fetcher.Word())
	if !c.inst.Op.Valid() {
		c.halt(FaultInvalidOpcode)
		return
	}

	c.memIssued = false
	c.state = StateExecuting
}

func (c *Core) tickExecute() {
	switch op := c.inst.Op; op {
	case insts.OpNOP:
		c.retire(c.pc + 1)

	case insts.OpCMP:
		for i := range c.activeLanes() {
			l := &c.lanes[i]
			l.flags = c.alu.Compare(l.regs.Read(c.inst.Rs), l.regs.Read(c.inst.Rt))
		}
		c.retire(c.pc + 1)

	case insts.OpADD, insts.OpSUB, insts.OpMUL, insts.OpDIV:
		for i := range c.activeLanes() {
			l := &c.lanes[i]
			result := c.alu.Execute(op, l.regs.Read(c.inst.Rs), l.regs.Read(c.inst.Rt))
			l.regs.Write(c.inst.Rd, result)
		}
		c.retire(c.pc + 1)

	case insts.OpCONST:
		for i := range c.activeLanes() {
			c.lanes[i].regs.Write(c.inst.Rd, c.inst.Imm)
		}
		c.retire(c.pc + 1)

	case insts.OpBRNZP:
		c.executeBranch()

	case insts.OpLDR, insts.OpSTR:
		c.tickMemory()

	case insts.OpRET:
		c.stats.Instructions++
		c.complete()
	}
}

// executeBranch applies the convergence policy: the branch is taken only if
// every active lane agrees; lanes disagreeing is a fault, not a vote.
func (c *Core) executeBranch() {
	taken, active := 0, 0
	for i := range c.activeLanes() {
		active++
		if c.inst.Cond&c.lanes[i].flags != 0 {
			taken++
		}
	}

	switch {
	case taken != 0 && taken != active:
		c.halt(FaultBranchDivergence)
	case taken == active && active > 0:
		c.retire(c.inst.Imm)
	default:
		c.retire(c.pc + 1)
	}
}

// tickMemory issues every active lane's transaction once, then holds the
// core until all of them are acknowledged (the lane barrier of LDR/STR).
func (c *Core) tickMemory() {
	if !c.memIssued {
		for i := range c.activeLanes() {
			l := &c.lanes[i]
			addr := l.regs.Read(c.inst.Rs)
			if c.inst.Op == insts.OpLDR {
				l.lsu.Load(addr)
			} else {
				l.lsu.Store(addr, l.regs.Read(c.inst.Rt))
			}
		}
		c.memIssued = true
	}

	allDone := true
	for i := range c.activeLanes() {
		l := &c.lanes[i]
		l.lsu.Tick()
		if !l.lsu.Done() {
			allDone = false
		}
	}
	if !allDone {
		return
	}

	for i := range c.activeLanes() {
		l := &c.lanes[i]
		if c.inst.Op == insts.OpLDR {
			l.regs.Write(c.inst.Rd, l.lsu.Data())
		}
		l.lsu.Ack()
	}
	c.retire(c.pc + 1)
}

// activeLanes returns the number of lanes participating in the current
// block; lanes [0, n) are exactly the active ones.
func (c *Core) activeLanes() int {
	return c.threadCount
}

// retire commits the current instruction and moves the PC to next.
func (c *Core) retire(next uint8) {
	c.stats.Instructions++
	c.pc = next
	c.state = StateFetching
}

// halt performs a fail-safe halt with the given fault. The fault is latched
// in the core's fault log, which the next Start does not erase.
func (c *Core) halt(f Fault) {
	c.fault = f
	c.faults = append(c.faults, f)
	c.stats.Faults++
	if c.log != nil {
		c.log.Warn("core: fault",
			"core", c.id, "block", c.blockID, "pc", c.pc, "fault", f.String())
	}
	c.complete()
}

// complete asserts done and returns the core to idle.
func (c *Core) complete() {
	c.done = true
	c.state = StateIdle
	if c.log != nil {
		c.log.Debug("core: block done", "core", c.id, "block", c.blockID)
	}
}

// ID returns the core's index within the device.
func (c *Core) ID() int {
	return c.id
}

// State returns the core's current execution state.
func (c *Core) State() State {
	return c.state
}

// Done reports whether the last assigned block has completed. It stays set
// until the next Start.
func (c *Core) Done() bool {
	return c.done
}

// Fault returns the fatal condition that ended the last block, or FaultNone.
// Start clears it; use Faults for faults of earlier blocks.
func (c *Core) Fault() Fault {
	return c.fault
}

// Faults returns every fault the core has raised, in block order.
func (c *Core) Faults() []Fault {
	return c.faults
}

// PC returns the shared program counter.
func (c *Core) PC() uint8 {
	return c.pc
}

// Reg returns register reg of the given lane.
func (c *Core) Reg(lane int, reg uint8) uint8 {
	return c.lanes[lane].regs.Read(reg)
}

// Flags returns the NZP flags of the given lane.
func (c *Core) Flags(lane int) insts.Flags {
	return c.lanes[lane].flags
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}
