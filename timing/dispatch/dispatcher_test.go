package dispatch_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tinygpu/timing/dispatch"
)

// assignment records one block handed to a fake core.
type assignment struct {
	blockID uint8
	threads int
}

// fakeCore completes every assigned block after a fixed number of ticks.
type fakeCore struct {
	assignments []assignment
	done        bool
	ticksLeft   int
	runTicks    int
}

func newFakeCore(runTicks int) *fakeCore {
	return &fakeCore{runTicks: runTicks}
}

func (c *fakeCore) Start(blockID uint8, threadCount int) {
	c.assignments = append(c.assignments, assignment{blockID, threadCount})
	c.done = false
	c.ticksLeft = c.runTicks
}

func (c *fakeCore) Done() bool {
	return c.done
}

// tick simulates one cycle of block execution.
func (c *fakeCore) tick() {
	if c.done || c.ticksLeft == 0 {
		return
	}
	c.ticksLeft--
	if c.ticksLeft == 0 {
		c.done = true
	}
}

func runKernel(d *dispatch.Dispatcher, cores []*fakeCore, threads int) int {
	d.Start(threads)
	cycles := 0
	for !d.Done() {
		cycles++
		Expect(cycles).To(BeNumerically("<", 1000),
			"dispatcher did not finish")
		d.Tick()
		for _, c := range cores {
			c.tick()
		}
	}
	return cycles
}

var _ = Describe("Dispatcher", func() {
	newSetup := func(numCores, runTicks int) (*dispatch.Dispatcher, []*fakeCore) {
		cores := make([]*fakeCore, numCores)
		dispatchCores := make([]dispatch.Core, numCores)
		for i := range cores {
			cores[i] = newFakeCore(runTicks)
			dispatchCores[i] = cores[i]
		}
		return dispatch.New(dispatchCores, 4), cores
	}

	It("should split 10 threads into blocks of 4, 4, and 2", func() {
		d, cores := newSetup(2, 3)
		runKernel(d, cores, 10)

		var all []assignment
		for _, c := range cores {
			all = append(all, c.assignments...)
		}
		Expect(all).To(HaveLen(3))

		sizes := map[uint8]int{}
		for _, a := range all {
			sizes[a.blockID] = a.threads
		}
		Expect(sizes).To(Equal(map[uint8]int{0: 4, 1: 4, 2: 2}))
	})

	It("should assign sequential block ids", func() {
		d, cores := newSetup(1, 2)
		runKernel(d, cores, 12)

		Expect(cores[0].assignments).To(Equal([]assignment{
			{0, 4}, {1, 4}, {2, 4},
		}))
	})

	It("should only report done after every block completed", func() {
		d, cores := newSetup(2, 5)
		d.Start(10)

		Expect(d.BlockCount()).To(Equal(3))
		for i := 0; i < 3; i++ {
			d.Tick()
			for _, c := range cores {
				c.tick()
			}
			Expect(d.Done()).To(BeFalse(), "done asserted too early")
		}

		for !d.Done() {
			d.Tick()
			for _, c := range cores {
				c.tick()
			}
		}
		total := 0
		for _, c := range cores {
			total += len(c.assignments)
		}
		Expect(total).To(Equal(3))
	})

	It("should reassign a core one cycle after it reports done", func() {
		d, cores := newSetup(1, 1)
		c := cores[0]
		d.Start(8) // two blocks on one core

		d.Tick() // assigns block 0
		Expect(c.assignments).To(HaveLen(1))

		c.tick() // block 0 completes, done rises
		Expect(c.Done()).To(BeTrue())

		d.Tick() // dispatcher observes done; no new assignment this cycle
		Expect(c.assignments).To(HaveLen(1))

		d.Tick() // one cycle later the core is assignable again
		Expect(c.assignments).To(HaveLen(2))
		Expect(c.assignments[1].blockID).To(Equal(uint8(1)))
	})

	It("should complete a zero-thread kernel without dispatching", func() {
		d, cores := newSetup(2, 1)
		d.Start(0)

		Expect(d.Done()).To(BeFalse())
		d.Tick()
		Expect(d.Done()).To(BeTrue())
		for _, c := range cores {
			Expect(c.assignments).To(BeEmpty())
		}
	})

	It("should deassert done when a new kernel starts", func() {
		d, cores := newSetup(1, 1)
		runKernel(d, cores, 4)
		Expect(d.Done()).To(BeTrue())

		d.Start(4)
		Expect(d.Done()).To(BeFalse())
		Expect(d.Active()).To(BeTrue())
	})

	It("should reject kernels needing more blocks than ids exist", func() {
		cores := []dispatch.Core{newFakeCore(1)}
		d := dispatch.New(cores, 1)

		Expect(func() { d.Start(256) }).NotTo(Panic())
		Expect(func() { d.Start(257) }).To(Panic())
		Expect(func() { d.Start(-1) }).To(Panic())
	})

	It("should keep every core busy while blocks remain", func() {
		d, cores := newSetup(2, 2)
		d.Start(16) // four blocks on two cores

		d.Tick()
		Expect(cores[0].assignments).To(HaveLen(1))
		Expect(cores[1].assignments).To(HaveLen(1))
	})
})
