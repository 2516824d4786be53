// Package fetch provides the instruction fetch unit.
package fetch

import "github.com/sarchlab/tinygpu/timing/memctrl"

// Fetcher retrieves one instruction word at a time from program memory
// through its controller port. It is a single-request valid/ready client:
// only one fetch may be in flight.
type Fetcher struct {
	port *memctrl.Port[uint16]

	busy  bool
	ready bool
	word  uint16
}

// NewFetcher creates a fetcher over the given program memory port.
func NewFetcher(port *memctrl.Port[uint16]) *Fetcher {
	return &Fetcher{port: port}
}

// Fetch issues a read of the instruction at pc.
func (f *Fetcher) Fetch(pc uint8) {
	if f.busy {
		panic("fetch: fetch while a request is in flight")
	}
	f.busy = true
	f.ready = false
	f.port.Submit(memctrl.Request[uint16]{Address: pc})
}

// Tick polls the handshake for the in-flight fetch.
func (f *Fetcher) Tick() {
	if !f.busy {
		return
	}
	if word, ok := f.port.Response(); ok {
		f.word = word
		f.ready = true
		f.busy = false
	}
}

// Ready reports whether the last issued fetch has completed.
func (f *Fetcher) Ready() bool {
	return f.ready
}

// Word returns the fetched instruction word. Valid once Ready reports true;
// issuing the next fetch clears it.
func (f *Fetcher) Word() uint16 {
	return f.word
}
