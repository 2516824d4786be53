package emu

import "github.com/sarchlab/tinygpu/insts"

// ALU implements the per-lane 8-bit arithmetic and comparison operations.
// It is stateless; one instance is shared across all lanes of a core.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Execute computes a binary arithmetic operation over two 8-bit operands.
// Results wrap on overflow. Division by zero yields 0 without trapping.
func (a *ALU) Execute(op insts.Op, x, y uint8) uint8 {
	switch op {
	case insts.OpADD:
		return x + y
	case insts.OpSUB:
		return x - y
	case insts.OpMUL:
		return x * y
	case insts.OpDIV:
		if y == 0 {
			return 0
		}
		return x / y
	}
	panic("emu: not an arithmetic opcode: " + op.String())
}

// Compare returns the one-hot NZP flags for the sign of x - y. Operands are
// interpreted as 8-bit two's complement, so 200 compares as -56.
func (a *ALU) Compare(x, y uint8) insts.Flags {
	switch sx, sy := int8(x), int8(y); {
	case sx < sy:
		return insts.FlagN
	case sx == sy:
		return insts.FlagZ
	default:
		return insts.FlagP
	}
}
