package insts

// Encoding helpers for writing kernels as Go literals. Each function returns
// one 16-bit instruction word. Register arguments are masked to 4 bits.

// NOP encodes a no-operation.
func NOP() uint16 {
	return word(OpNOP, 0, 0, 0)
}

// BRNZP encodes a conditional branch to the absolute address target, taken
// when any flag in cond matches the lane's NZP flags.
func BRNZP(cond Flags, target uint8) uint16 {
	return uint16(OpBRNZP)<<12 | uint16(cond&0x7)<<9 | uint16(target)
}

// CMP encodes a flag-setting comparison of Rs against Rt.
func CMP(rs, rt uint8) uint16 {
	return word(OpCMP, 0, rs, rt)
}

// ADD encodes Rd = Rs + Rt.
func ADD(rd, rs, rt uint8) uint16 {
	return word(OpADD, rd, rs, rt)
}

// SUB encodes Rd = Rs - Rt.
func SUB(rd, rs, rt uint8) uint16 {
	return word(OpSUB, rd, rs, rt)
}

// MUL encodes Rd = Rs * Rt.
func MUL(rd, rs, rt uint8) uint16 {
	return word(OpMUL, rd, rs, rt)
}

// DIV encodes Rd = Rs / Rt (0 when Rt is 0).
func DIV(rd, rs, rt uint8) uint16 {
	return word(OpDIV, rd, rs, rt)
}

// LDR encodes a load of mem[Rs] into Rd.
func LDR(rd, rs uint8) uint16 {
	return word(OpLDR, rd, rs, 0)
}

// STR encodes a store of Rt to mem[Rs].
func STR(rs, rt uint8) uint16 {
	return word(OpSTR, 0, rs, rt)
}

// CONST encodes Rd = imm.
func CONST(rd, imm uint8) uint16 {
	return uint16(OpCONST)<<12 | uint16(rd&0xF)<<8 | uint16(imm)
}

// RET encodes the end-of-kernel halt.
func RET() uint16 {
	return word(OpRET, 0, 0, 0)
}

func word(op Op, rd, rs, rt uint8) uint16 {
	return uint16(op)<<12 | uint16(rd&0xF)<<8 | uint16(rs&0xF)<<4 | uint16(rt&0xF)
}
