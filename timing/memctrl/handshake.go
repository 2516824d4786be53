// Package memctrl models the shared memory subsystem: single-slot valid/ready
// ports, the round-robin controller that multiplexes consumer ports onto
// physical memory channels, and a latency-configurable backing memory.
//
// The type parameter T is the data word carried by a memory: uint16 for
// program memory, uint8 for data memory.
package memctrl

// Request is a single memory transaction presented on a port.
type Request[T any] struct {
	// Address is the memory address (8-bit address space).
	Address uint8
	// IsWrite selects a write transaction.
	IsWrite bool
	// Data is the value to store when IsWrite is set.
	Data T
}

// Port is a single-slot valid/ready handshake between one requester and a
// controller. The requester submits one request and holds it until the
// response arrives; the servicing side completes it once the transaction
// commits. A port carries at most one transaction at a time.
type Port[T any] struct {
	valid bool
	req   Request[T]
	done  bool
	data  T
}

// Submit asserts valid with the given request. It panics if a transaction is
// already outstanding: requesters are single-request clients and must consume
// the previous response first.
func (p *Port[T]) Submit(req Request[T]) {
	if p.valid || p.done {
		panic("memctrl: submit on a busy port")
	}
	p.req = req
	p.valid = true
}

// Busy reports whether a request is in flight or a response is unconsumed.
func (p *Port[T]) Busy() bool {
	return p.valid || p.done
}

// Response returns the completed transaction's data and consumes it,
// returning the port to idle. ok is false while the request is still in
// flight or no request was made.
func (p *Port[T]) Response() (data T, ok bool) {
	if !p.done {
		var zero T
		return zero, false
	}
	p.done = false
	return p.data, true
}

// pending reports whether the port holds an unserviced request.
func (p *Port[T]) pending() bool {
	return p.valid
}

// request returns the outstanding request.
func (p *Port[T]) request() Request[T] {
	return p.req
}

// complete acknowledges the outstanding request: valid drops, the response
// becomes readable.
func (p *Port[T]) complete(data T) {
	p.valid = false
	p.done = true
	p.data = data
}
