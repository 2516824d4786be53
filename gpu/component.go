package gpu

import "github.com/sarchlab/akita/v4/sim"

// Component drives a Device from an Akita event engine. The device ticks
// once per engine tick until the kernel stops making progress.
type Component struct {
	*sim.TickingComponent

	device *Device
}

// NewComponent wraps the device as an Akita ticking component registered
// with the given engine.
func NewComponent(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	device *Device,
) *Component {
	c := &Component{device: device}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)
	return c
}

// Tick advances the device by one cycle.
func (c *Component) Tick() bool {
	return c.device.Tick()
}

// Device returns the wrapped device.
func (c *Component) Device() *Device {
	return c.device
}
