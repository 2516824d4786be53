// Package lsu provides the per-lane load/store unit.
package lsu

import "github.com/sarchlab/tinygpu/timing/memctrl"

// LoadStoreUnit performs one data memory transaction at a time on behalf of
// a single SIMD lane. Like the fetcher, it is a single-request valid/ready
// client: a new transaction may only start after the previous one was
// acknowledged and consumed.
type LoadStoreUnit struct {
	port *memctrl.Port[uint8]

	busy bool
	done bool
	data uint8
}

// New creates a load/store unit over the given data memory port.
func New(port *memctrl.Port[uint8]) *LoadStoreUnit {
	return &LoadStoreUnit{port: port}
}

// Load issues a read of mem[addr].
func (l *LoadStoreUnit) Load(addr uint8) {
	l.submit(memctrl.Request[uint8]{Address: addr})
}

// Store issues a write of value to mem[addr].
func (l *LoadStoreUnit) Store(addr, value uint8) {
	l.submit(memctrl.Request[uint8]{Address: addr, IsWrite: true, Data: value})
}

func (l *LoadStoreUnit) submit(req memctrl.Request[uint8]) {
	if l.busy || l.done {
		panic("lsu: transaction while another is outstanding")
	}
	l.busy = true
	l.port.Submit(req)
}

// Tick polls the handshake for the in-flight transaction. A completed
// transaction stays visible through Done until Ack is called, which lets the
// core hold early-finishing lanes at the instruction barrier.
func (l *LoadStoreUnit) Tick() {
	if !l.busy {
		return
	}
	if data, ok := l.port.Response(); ok {
		l.data = data
		l.done = true
		l.busy = false
	}
}

// Idle reports whether no transaction is outstanding or unacknowledged.
func (l *LoadStoreUnit) Idle() bool {
	return !l.busy && !l.done
}

// Done reports whether the last transaction has completed.
func (l *LoadStoreUnit) Done() bool {
	return l.done
}

// Data returns the loaded byte of a completed load.
func (l *LoadStoreUnit) Data() uint8 {
	return l.data
}

// Ack consumes the completed transaction, returning the unit to idle.
func (l *LoadStoreUnit) Ack() {
	l.done = false
}
