// Package kernels provides sample machine-code kernels for the device, with
// their input data and expected results. They serve as executable examples
// and as end-to-end test programs.
package kernels

import "github.com/sarchlab/tinygpu/insts"

// Kernel is a runnable program image.
type Kernel struct {
	// Name identifies the kernel.
	Name string
	// Program is the machine code, loaded at program address 0.
	Program []uint16
	// Threads is the kernel's total thread count.
	Threads int
	// Data is the initial data memory image, loaded at address 0.
	Data []uint8
	// ResultAddr is where the kernel writes its output.
	ResultAddr uint8
	// Expected is the output the kernel must produce at ResultAddr.
	Expected []uint8
}

// MatAdd returns an 8-thread element-wise vector addition: each thread
// computes its global index i = blockIdx*blockDim + threadIdx and writes
// C[i] = A[i] + B[i]. A starts at 0, B at 8, C at 16.
func MatAdd() Kernel {
	const (
		baseA = 0
		baseB = 8
		baseC = 16
		n     = 8
	)

	program := []uint16{
		insts.MUL(0, 13, 14),  // R0 = blockIdx * blockDim
		insts.ADD(0, 0, 15),   // R0 = i = R0 + threadIdx
		insts.CONST(1, baseA), // R1 = &A
		insts.CONST(2, baseB), // R2 = &B
		insts.CONST(3, baseC), // R3 = &C
		insts.ADD(4, 1, 0),
		insts.LDR(4, 4), // R4 = A[i]
		insts.ADD(5, 2, 0),
		insts.LDR(5, 5),    // R5 = B[i]
		insts.ADD(6, 4, 5), // R6 = A[i] + B[i]
		insts.ADD(7, 3, 0),
		insts.STR(7, 6), // C[i] = R6
		insts.RET(),
	}

	data := make([]uint8, 2*n)
	expected := make([]uint8, n)
	for i := 0; i < n; i++ {
		data[baseA+i] = uint8(i)
		data[baseB+i] = uint8(i)
		expected[i] = uint8(2 * i)
	}

	return Kernel{
		Name:       "matadd",
		Program:    program,
		Threads:    n,
		Data:       data,
		ResultAddr: baseC,
		Expected:   expected,
	}
}

// MatMul returns a 4-thread 2x2 matrix multiplication: thread i computes
// row = i/N and col = i%N, then accumulates A[row][k]*B[k][col] over k in a
// CMP/BRnzp loop. A starts at 0, B at 4, C at 8. Every lane runs the same
// trip count, so the loop branch always converges.
func MatMul() Kernel {
	const (
		n     = 2
		baseA = 0
		baseB = n * n
		baseC = 2 * n * n
		loop  = 12 // first instruction of the k-loop body
	)

	program := []uint16{
		insts.CONST(1, 1),     // R1 = 1
		insts.CONST(2, n),     // R2 = N
		insts.CONST(3, baseA), // R3 = &A
		insts.CONST(4, baseB), // R4 = &B
		insts.CONST(5, baseC), // R5 = &C
		insts.MUL(0, 13, 14),
		insts.ADD(0, 0, 15), // R0 = i
		insts.DIV(6, 0, 2),  // R6 = row
		insts.MUL(7, 6, 2),
		insts.SUB(7, 0, 7), // R7 = col
		insts.CONST(8, 0),  // R8 = acc
		insts.CONST(9, 0),  // R9 = k
		// loop:
		insts.MUL(10, 6, 2),
		insts.ADD(10, 10, 9),
		insts.ADD(10, 10, 3),
		insts.LDR(10, 10), // R10 = A[row*N + k]
		insts.MUL(11, 9, 2),
		insts.ADD(11, 11, 7),
		insts.ADD(11, 11, 4),
		insts.LDR(11, 11), // R11 = B[k*N + col]
		insts.MUL(12, 10, 11),
		insts.ADD(8, 8, 12),
		insts.ADD(9, 9, 1), // k++
		insts.CMP(9, 2),
		insts.BRNZP(insts.FlagN, loop), // while k < N
		insts.ADD(9, 5, 0),
		insts.STR(9, 8), // C[i] = acc
		insts.RET(),
	}

	// A = [[1,2],[3,4]], B = [[1,2],[3,4]], C = A*B = [[7,10],[15,22]].
	data := []uint8{1, 2, 3, 4, 1, 2, 3, 4}
	expected := []uint8{7, 10, 15, 22}

	return Kernel{
		Name:       "matmul",
		Program:    program,
		Threads:    n * n,
		Data:       data,
		ResultAddr: baseC,
		Expected:   expected,
	}
}

// ByName returns the named sample kernel, or ok=false if it does not exist.
func ByName(name string) (Kernel, bool) {
	switch name {
	case "matadd":
		return MatAdd(), true
	case "matmul":
		return MatMul(), true
	}
	return Kernel{}, false
}
