package gpu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tinygpu/gpu"
	"github.com/sarchlab/tinygpu/insts"
	"github.com/sarchlab/tinygpu/kernels"
	"github.com/sarchlab/tinygpu/timing/core"
)

// launch loads a kernel onto a fresh default device and runs it to
// completion.
func launch(program []uint16, data []uint8, threads int) *gpu.Device {
	device, err := gpu.New(gpu.DefaultConfig(), gpu.WithMaxCycles(1_000_000))
	Expect(err).NotTo(HaveOccurred())

	Expect(device.LoadProgram(program)).To(Succeed())
	if len(data) > 0 {
		Expect(device.WriteData(0, data)).To(Succeed())
	}
	Expect(device.SetThreadCount(threads)).To(Succeed())

	device.Start()
	Expect(device.Run()).To(Succeed())

	return device
}

var _ = Describe("Device", func() {
	It("should run a one-thread CONST kernel to completion", func() {
		device := launch([]uint16{
			insts.CONST(0, 5),
			insts.RET(),
		}, nil, 1)

		Expect(device.Done()).To(BeTrue())
		Expect(device.Core(0).Reg(0, 0)).To(Equal(uint8(5)))
		Expect(device.Faults()).To(BeEmpty())
	})

	It("should wrap 8-bit addition without an overflow flag", func() {
		device := launch([]uint16{
			insts.CONST(1, 250),
			insts.CONST(2, 10),
			insts.ADD(0, 1, 2),
			insts.RET(),
		}, nil, 1)

		Expect(device.Core(0).Reg(0, 0)).To(Equal(uint8(4)))
		Expect(device.Faults()).To(BeEmpty())
	})

	It("should execute blocks of a 10-thread kernel as 4+4+2", func() {
		// Each thread stores its global index to memory.
		device := launch([]uint16{
			insts.MUL(0, 13, 14),
			insts.ADD(0, 0, 15), // i
			insts.CONST(1, 64),
			insts.ADD(1, 1, 0), // addr = 64 + i
			insts.STR(1, 0),
			insts.RET(),
		}, nil, 10)

		Expect(device.Stats().Blocks).To(Equal(uint64(3)))
		for i := uint8(0); i < 10; i++ {
			Expect(device.ReadData(64 + i)).To(Equal(i))
		}
		Expect(device.ReadData(74)).To(BeZero())
		Expect(device.Stats().DataWrites).To(Equal(uint64(10)))
	})

	It("should surface invalid opcodes as faults without affecting other cores", func() {
		// 5 threads on 4-lane cores split into a 4-thread block 0 and a
		// 1-thread block 1. In block 0 no lane sees blockIdx > threadIdx, so
		// every lane falls through into the unassigned opcode; block 1's
		// single lane takes the branch and stores its marker.
		device := launch([]uint16{
			insts.CMP(13, 15),
			insts.BRNZP(insts.FlagP, 4),
			0xE000, // unassigned opcode
			insts.RET(),
			insts.CONST(1, 77),
			insts.CONST(2, 40),
			insts.STR(2, 1), // mem[40] = 77
			insts.RET(),
		}, nil, 5)

		Expect(device.Done()).To(BeTrue())
		Expect(device.Faults()).NotTo(BeEmpty())
		Expect(device.ReadData(40)).To(Equal(uint8(77)))
	})

	It("should keep a mid-kernel fault visible after the core is reassigned", func() {
		// One core, two blocks. Block 0 falls into the unassigned opcode;
		// block 1 runs clean on the same core afterwards.
		cfg := gpu.DefaultConfig()
		cfg.NumCores = 1
		device, err := gpu.New(cfg, gpu.WithMaxCycles(1_000_000))
		Expect(err).NotTo(HaveOccurred())

		Expect(device.LoadProgram([]uint16{
			insts.CONST(1, 1),
			insts.CMP(13, 1),
			insts.BRNZP(insts.FlagZ, 5), // block 1 skips the bad opcode
			0xA000,
			insts.RET(),
			insts.CONST(2, 60),
			insts.CONST(3, 9),
			insts.STR(2, 3), // mem[60] = 9
			insts.RET(),
		})).To(Succeed())
		Expect(device.SetThreadCount(8)).To(Succeed())

		device.Start()
		Expect(device.Run()).To(Succeed())

		Expect(device.Faults()).To(Equal([]core.Fault{core.FaultInvalidOpcode}))
		Expect(device.Stats().Faults).To(Equal(uint64(1)))
		Expect(device.Core(0).Fault()).To(Equal(core.FaultNone))
		Expect(device.ReadData(60)).To(Equal(uint8(9)))
	})

	It("should run the matadd sample kernel", func() {
		k := kernels.MatAdd()
		device := launch(k.Program, k.Data, k.Threads)

		Expect(device.Faults()).To(BeEmpty())
		for i, want := range k.Expected {
			Expect(device.ReadData(k.ResultAddr + uint8(i))).To(Equal(want),
				"C[%d]", i)
		}
	})

	It("should run the matmul sample kernel", func() {
		k := kernels.MatMul()
		device := launch(k.Program, k.Data, k.Threads)

		Expect(device.Faults()).To(BeEmpty())
		for i, want := range k.Expected {
			Expect(device.ReadData(k.ResultAddr + uint8(i))).To(Equal(want),
				"C[%d]", i)
		}
	})

	It("should complete a zero-thread kernel immediately", func() {
		device := launch([]uint16{insts.RET()}, nil, 0)

		Expect(device.Done()).To(BeTrue())
		Expect(device.Stats().Blocks).To(BeZero())
		Expect(device.Stats().Instructions).To(BeZero())
	})

	It("should stop at the cycle budget on a non-terminating kernel", func() {
		device, err := gpu.New(gpu.DefaultConfig(), gpu.WithMaxCycles(200))
		Expect(err).NotTo(HaveOccurred())

		// Zeroed memory decodes as NOP, so the PC wraps around forever.
		Expect(device.LoadProgram([]uint16{insts.NOP()})).To(Succeed())
		Expect(device.SetThreadCount(1)).To(Succeed())

		device.Start()
		Expect(device.Run()).To(MatchError(ContainSubstring("did not complete")))
		Expect(device.Done()).To(BeFalse())
	})

	It("should report statistics", func() {
		device := launch([]uint16{
			insts.CONST(0, 1),
			insts.RET(),
		}, nil, 1)

		stats := device.Stats()
		Expect(stats.Cycles).To(BeNumerically(">", 0))
		Expect(stats.Instructions).To(Equal(uint64(2)))
		Expect(stats.Blocks).To(Equal(uint64(1)))
		Expect(stats.ProgramReads).To(Equal(uint64(2)))
	})

	It("should reject out-of-range thread counts", func() {
		device, err := gpu.New(gpu.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(device.SetThreadCount(256)).NotTo(Succeed())
		Expect(device.SetThreadCount(-1)).NotTo(Succeed())
		Expect(device.SetThreadCount(255)).To(Succeed())
	})

	It("should reject oversized programs and data", func() {
		device, err := gpu.New(gpu.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		Expect(device.LoadProgram(make([]uint16, 257))).NotTo(Succeed())
		Expect(device.WriteData(250, make([]uint8, 10))).NotTo(Succeed())
	})

	It("should reject invalid configurations", func() {
		cfg := gpu.DefaultConfig()
		cfg.NumCores = 0
		_, err := gpu.New(cfg)
		Expect(err).To(HaveOccurred())

		cfg = gpu.DefaultConfig()
		cfg.MemorySize = 512
		_, err = gpu.New(cfg)
		Expect(err).To(HaveOccurred())
	})

	It("should run back-to-back kernels on one device", func() {
		device, err := gpu.New(gpu.DefaultConfig(), gpu.WithMaxCycles(100000))
		Expect(err).NotTo(HaveOccurred())

		Expect(device.LoadProgram([]uint16{
			insts.CONST(1, 50),
			insts.CONST(2, 9),
			insts.STR(1, 2),
			insts.RET(),
		})).To(Succeed())
		Expect(device.SetThreadCount(1)).To(Succeed())

		device.Start()
		Expect(device.Run()).To(Succeed())
		Expect(device.ReadData(50)).To(Equal(uint8(9)))

		// Second launch reuses the loaded program and memory contents.
		Expect(device.SetThreadCount(2)).To(Succeed())
		device.Start()
		Expect(device.Run()).To(Succeed())
		Expect(device.Done()).To(BeTrue())
	})

	It("should not fault lanes left inactive by a partial block", func() {
		device := launch([]uint16{
			insts.CONST(0, 3),
			insts.RET(),
		}, nil, 2)

		Expect(device.Core(0).Reg(0, 0)).To(Equal(uint8(3)))
		Expect(device.Core(0).Reg(1, 0)).To(Equal(uint8(3)))
		Expect(device.Core(0).Reg(2, 0)).To(BeZero())
		Expect(device.Core(0).Reg(3, 0)).To(BeZero())
	})
})
