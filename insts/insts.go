// Package insts provides instruction definitions, encoding, and decoding for
// the tiny SIMD GPU ISA.
package insts

import "fmt"

// Op represents an opcode. The value is the 4-bit encoding found in bits
// [15:12] of an instruction word.
type Op uint8

// Opcodes.
const (
	OpNOP   Op = 0b0000
	OpBRNZP Op = 0b0001
	OpCMP   Op = 0b0010
	OpADD   Op = 0b0011
	OpSUB   Op = 0b0100
	OpMUL   Op = 0b0101
	OpDIV   Op = 0b0110
	OpLDR   Op = 0b0111
	OpSTR   Op = 0b1000
	OpCONST Op = 0b1001
	OpRET   Op = 0b1111
)

// Valid reports whether the opcode is part of the ISA. Encodings 0b1010
// through 0b1110 are unassigned; cores treat them as a fail-safe halt.
func (o Op) Valid() bool {
	return o <= OpCONST || o == OpRET
}

// String returns the assembly mnemonic of the opcode.
func (o Op) String() string {
	switch o {
	case OpNOP:
		return "NOP"
	case OpBRNZP:
		return "BRnzp"
	case OpCMP:
		return "CMP"
	case OpADD:
		return "ADD"
	case OpSUB:
		return "SUB"
	case OpMUL:
		return "MUL"
	case OpDIV:
		return "DIV"
	case OpLDR:
		return "LDR"
	case OpSTR:
		return "STR"
	case OpCONST:
		return "CONST"
	case OpRET:
		return "RET"
	}
	return fmt.Sprintf("INVALID(%04b)", uint8(o))
}

// Flags holds the NZP condition flags. The same three bits serve as the
// one-hot result of a CMP and as the condition mask of a BRnzp.
type Flags uint8

// NZP flag bits.
const (
	FlagP Flags = 1 << 0 // positive
	FlagZ Flags = 1 << 1 // zero
	FlagN Flags = 1 << 2 // negative
)

// String returns the flags in "nzp" order, with dashes for clear bits.
func (f Flags) String() string {
	b := []byte{'-', '-', '-'}
	if f&FlagN != 0 {
		b[0] = 'n'
	}
	if f&FlagZ != 0 {
		b[1] = 'z'
	}
	if f&FlagP != 0 {
		b[2] = 'p'
	}
	return string(b)
}

// Instruction represents a decoded instruction.
type Instruction struct {
	Op Op // Operation code

	Rd uint8 // Destination register, bits [11:8]
	Rs uint8 // First source register, bits [7:4]
	Rt uint8 // Second source register, bits [3:0]

	Imm  uint8 // 8-bit immediate, bits [7:0]
	Cond Flags // NZP condition mask for BRnzp, bits [11:9]
}

// String returns the instruction in assembly form.
func (i Instruction) String() string {
	switch i.Op {
	case OpNOP, OpRET:
		return i.Op.String()
	case OpBRNZP:
		return fmt.Sprintf("BR%s #%d", i.Cond, i.Imm)
	case OpCMP:
		return fmt.Sprintf("CMP R%d, R%d", i.Rs, i.Rt)
	case OpADD, OpSUB, OpMUL, OpDIV:
		return fmt.Sprintf("%s R%d, R%d, R%d", i.Op, i.Rd, i.Rs, i.Rt)
	case OpLDR:
		return fmt.Sprintf("LDR R%d, R%d", i.Rd, i.Rs)
	case OpSTR:
		return fmt.Sprintf("STR R%d, R%d", i.Rs, i.Rt)
	case OpCONST:
		return fmt.Sprintf("CONST R%d, #%d", i.Rd, i.Imm)
	}
	return i.Op.String()
}
