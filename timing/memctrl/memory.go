package memctrl

// Memory is a backing store servicing the channel ports of one controller.
// Each channel holds at most one in-flight request; the memory acknowledges
// it after the configured access latency.
type Memory[T any] struct {
	data    []T
	latency int

	chans     []*Port[T]
	countdown []int // cycles left per channel; -1 when no request in flight
}

// NewMemory creates a memory with size words and the given access latency in
// cycles. A latency of 0 acknowledges a request on the same tick it is seen.
func NewMemory[T any](size, latency int) *Memory[T] {
	if latency < 0 {
		panic("memctrl: negative memory latency")
	}
	return &Memory[T]{
		data:    make([]T, size),
		latency: latency,
	}
}

// attach connects the controller's channel ports. Called once by the
// controller that owns this memory.
func (m *Memory[T]) attach(chans []*Port[T]) {
	m.chans = chans
	m.countdown = make([]int, len(chans))
	for i := range m.countdown {
		m.countdown[i] = -1
	}
}

// Tick advances the memory one cycle, acknowledging channel requests whose
// latency has elapsed.
func (m *Memory[T]) Tick() {
	for i, ch := range m.chans {
		if !ch.pending() {
			continue
		}
		if m.countdown[i] < 0 {
			m.countdown[i] = m.latency
		}
		if m.countdown[i] > 0 {
			m.countdown[i]--
			continue
		}
		m.countdown[i] = -1

		req := ch.request()
		if req.IsWrite {
			m.data[req.Address] = req.Data
			var zero T
			ch.complete(zero)
		} else {
			ch.complete(m.data[req.Address])
		}
	}
}

// Load reads a word directly, bypassing the channel handshake. Intended for
// initializing and inspecting memory contents outside the simulated cycle
// loop.
func (m *Memory[T]) Load(addr uint8) T {
	return m.data[addr]
}

// Store writes a word directly, bypassing the channel handshake.
func (m *Memory[T]) Store(addr uint8, value T) {
	m.data[addr] = value
}

// Size returns the number of words in the memory.
func (m *Memory[T]) Size() int {
	return len(m.data)
}
