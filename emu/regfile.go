// Package emu provides the functional building blocks of a compute core:
// per-lane register files and the per-lane ALU.
package emu

// Register file layout.
const (
	// NumRegs is the number of registers per lane.
	NumRegs = 16

	// RegBlockID holds the block index of the running block (read-only).
	RegBlockID = 13
	// RegBlockDim holds the thread count of the running block (read-only).
	RegBlockDim = 14
	// RegThreadID holds the lane's thread index within the block (read-only).
	RegThreadID = 15
)

// RegFile is one SIMD lane's register file: 13 general-purpose 8-bit
// registers (R0-R12) plus three read-only identity registers (R13-R15).
type RegFile struct {
	r [NumRegs]uint8
}

// Reset clears the general-purpose registers and installs the identity
// registers for a new block assignment.
func (r *RegFile) Reset(blockID, blockDim, threadID uint8) {
	r.r = [NumRegs]uint8{}
	r.r[RegBlockID] = blockID
	r.r[RegBlockDim] = blockDim
	r.r[RegThreadID] = threadID
}

// Read returns the value of register reg.
func (r *RegFile) Read(reg uint8) uint8 {
	return r.r[reg&0xF]
}

// Write stores value into register reg. Writes targeting the read-only
// identity registers (R13-R15) are silently dropped.
func (r *RegFile) Write(reg uint8, value uint8) {
	if reg >= RegBlockID {
		return
	}
	r.r[reg] = value
}
