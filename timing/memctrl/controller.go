package memctrl

import (
	"fmt"
	"log/slog"
)

// Config configures a Controller.
type Config struct {
	// Consumers is the number of requester ports.
	Consumers int
	// Channels is the number of physical memory channels.
	Channels int
	// WriteEnable enables the write path. Program memory controllers run
	// read-only; write requests submitted to a read-only controller are
	// never serviced.
	WriteEnable bool
}

// Stats holds transaction counts for a controller.
type Stats struct {
	// Reads is the number of read transactions serviced.
	Reads uint64
	// Writes is the number of write transactions serviced.
	Writes uint64
}

// channel is one physical memory channel: the port toward the backing memory
// and the consumer currently bound to it.
type channel[T any] struct {
	port     *Port[T]
	consumer int // -1 when idle
}

// Controller multiplexes consumer ports onto memory channels.
//
// Each idle channel scans the consumers starting from a persistent
// round-robin pointer and binds to the first one with a pending request. A
// consumer already bound to another channel is skipped, so no request is
// serviced twice. Once bound, the channel holds the request until the backing
// memory acknowledges it, returns the response to the consumer, and becomes
// eligible for rebinding in the same arbitration round. The pointer advances
// past the consumer just served, so no consumer starves while others are
// waiting and channels are free.
type Controller[T any] struct {
	cfg   Config
	mem   *Memory[T]
	ports []*Port[T]
	chans []*channel[T]
	rr    int

	log   *slog.Logger
	stats Stats
}

// ControllerOption is a functional option for configuring the Controller.
type ControllerOption[T any] func(*Controller[T])

// WithControllerLogger sets a structured logger for arbitration tracing.
func WithControllerLogger[T any](log *slog.Logger) ControllerOption[T] {
	return func(c *Controller[T]) {
		c.log = log
	}
}

// NewController creates a controller over the given backing memory and
// attaches one channel port per configured channel to it.
func NewController[T any](cfg Config, mem *Memory[T], opts ...ControllerOption[T]) *Controller[T] {
	if cfg.Consumers <= 0 || cfg.Channels <= 0 {
		panic(fmt.Sprintf(
			"memctrl: invalid controller shape %d consumers x %d channels",
			cfg.Consumers, cfg.Channels))
	}

	c := &Controller[T]{cfg: cfg, mem: mem}

	c.ports = make([]*Port[T], cfg.Consumers)
	for i := range c.ports {
		c.ports[i] = &Port[T]{}
	}

	memPorts := make([]*Port[T], cfg.Channels)
	c.chans = make([]*channel[T], cfg.Channels)
	for i := range c.chans {
		memPorts[i] = &Port[T]{}
		c.chans[i] = &channel[T]{port: memPorts[i], consumer: -1}
	}
	mem.attach(memPorts)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ConsumerPort returns requester port i. Consumers keep the pointer and
// submit requests on it.
func (c *Controller[T]) ConsumerPort(i int) *Port[T] {
	return c.ports[i]
}

// Stats returns the transaction counts so far.
func (c *Controller[T]) Stats() Stats {
	return c.stats
}

// Tick performs one arbitration round: completed channels hand their
// responses back to the bound consumers, then every free channel binds the
// next pending consumer in round-robin order and forwards its request to the
// backing memory.
func (c *Controller[T]) Tick() {
	for _, ch := range c.chans {
		if ch.consumer < 0 {
			continue
		}
		data, ok := ch.port.Response()
		if !ok {
			continue
		}

		req := c.ports[ch.consumer].request()
		if req.IsWrite {
			c.stats.Writes++
		} else {
			c.stats.Reads++
		}
		if c.log != nil {
			c.log.Debug("memctrl: request serviced",
				"consumer", ch.consumer,
				"address", req.Address,
				"write", req.IsWrite)
		}

		c.ports[ch.consumer].complete(data)
		c.rr = (ch.consumer + 1) % c.cfg.Consumers
		ch.consumer = -1
	}

	for _, ch := range c.chans {
		if ch.consumer >= 0 {
			continue
		}
		if i, ok := c.nextConsumer(); ok {
			ch.consumer = i
			ch.port.Submit(c.ports[i].request())
		}
	}
}

// nextConsumer scans from the round-robin pointer for the first consumer
// with a pending, serviceable request that is not already bound to a channel.
func (c *Controller[T]) nextConsumer() (int, bool) {
	for off := 0; off < c.cfg.Consumers; off++ {
		i := (c.rr + off) % c.cfg.Consumers
		p := c.ports[i]
		if !p.pending() || c.bound(i) {
			continue
		}
		if p.request().IsWrite && !c.cfg.WriteEnable {
			continue
		}
		return i, true
	}
	return 0, false
}

// bound reports whether consumer i is already bound to some channel.
func (c *Controller[T]) bound(i int) bool {
	for _, ch := range c.chans {
		if ch.consumer == i {
			return true
		}
	}
	return false
}
