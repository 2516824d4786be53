package insts

// Decoder decodes 16-bit instruction words.
//
// Decoding is a pure field extraction: unrecognized opcodes still produce an
// Instruction with all fields populated, and the caller decides how to treat
// them (compute cores halt on them).
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 16-bit instruction word.
func (d *Decoder) Decode(word uint16) Instruction {
	return Instruction{
		Op:   Op(word >> 12),
		Rd:   uint8(word>>8) & 0xF,
		Rs:   uint8(word>>4) & 0xF,
		Rt:   uint8(word) & 0xF,
		Imm:  uint8(word),
		Cond: Flags(word>>9) & 0x7,
	}
}
