package insts

import "fmt"

// Encode packs a decoded instruction back into its 32-bit machine word.
// It is the pure-function inverse of Decoder.Decode: pack(kind, fields) ->
// word, unpack(word) -> kind, with no shared mutable state between the two
// directions.
func Encode(inst *Instruction) (uint32, error) {
	switch inst.Format {
	case FormatR:
		return encodeR(inst), nil
	case FormatI:
		return encodeI(inst), nil
	case FormatS:
		return encodeS(inst), nil
	case FormatB:
		return encodeB(inst), nil
	case FormatU:
		return encodeU(inst), nil
	case FormatJ:
		return encodeJ(inst), nil
	case FormatSystem:
		return encodeSystem(inst), nil
	default:
		return 0, fmt.Errorf("insts: cannot encode instruction with unknown format (op=%v)", inst.Op)
	}
}

const opcodeOp = 0b0110011
const opcodeOpImm = 0b0010011
const opcodeLoad = 0b0000011
const opcodeStore = 0b0100011
const opcodeBranch = 0b1100011
const opcodeJAL = 0b1101111
const opcodeJALR = 0b1100111
const opcodeLUI = 0b0110111
const opcodeAUIPC = 0b0010111
const opcodeSystem = 0b1110011

type rFields struct {
	funct7 uint32
	funct3 uint32
}

var rTypeFields = map[Op]rFields{
	OpADD: {0b0000000, 0b000}, OpSUB: {0b0100000, 0b000},
	OpSLL: {0b0000000, 0b001}, OpSLT: {0b0000000, 0b010}, OpSLTU: {0b0000000, 0b011},
	OpXOR: {0b0000000, 0b100}, OpSRL: {0b0000000, 0b101}, OpSRA: {0b0100000, 0b101},
	OpOR: {0b0000000, 0b110}, OpAND: {0b0000000, 0b111},
}

func encodeR(inst *Instruction) uint32 {
	f := rTypeFields[inst.Op]
	return f.funct7<<25 | uint32(inst.Rs2)<<20 | uint32(inst.Rs1)<<15 |
		f.funct3<<12 | uint32(inst.Rd)<<7 | opcodeOp
}

var iTypeFunct3 = map[Op]uint32{
	OpJALR: 0b000,
	OpLB:   0b000, OpLH: 0b001, OpLW: 0b010, OpLBU: 0b100, OpLHU: 0b101,
	OpADDI: 0b000, OpSLTI: 0b010, OpSLTIU: 0b011, OpXORI: 0b100, OpORI: 0b110, OpANDI: 0b111,
	OpSLLI: 0b001, OpSRLI: 0b101, OpSRAI: 0b101,
}

func encodeI(inst *Instruction) uint32 {
	opcode := uint32(opcodeOpImm)
	switch inst.Op {
	case OpJALR:
		opcode = opcodeJALR
	case OpLB, OpLH, OpLW, OpLBU, OpLHU:
		opcode = opcodeLoad
	}

	f3 := iTypeFunct3[inst.Op]

	var imm12 uint32
	switch inst.Op {
	case OpSLLI:
		imm12 = uint32(inst.Shamt) & 0x1F
	case OpSRLI:
		imm12 = uint32(inst.Shamt) & 0x1F
	case OpSRAI:
		imm12 = (0b0100000 << 5) | (uint32(inst.Shamt) & 0x1F)
	default:
		imm12 = uint32(inst.Imm) & 0xFFF
	}

	return imm12<<20 | uint32(inst.Rs1)<<15 | f3<<12 | uint32(inst.Rd)<<7 | opcode
}

func encodeS(inst *Instruction) uint32 {
	var f3 uint32
	switch inst.Op {
	case OpSB:
		f3 = 0b000
	case OpSH:
		f3 = 0b001
	case OpSW:
		f3 = 0b010
	}
	imm := uint32(inst.Imm) & 0xFFF
	imm11_5 := (imm >> 5) & 0x7F
	imm4_0 := imm & 0x1F
	return imm11_5<<25 | uint32(inst.Rs2)<<20 | uint32(inst.Rs1)<<15 |
		f3<<12 | imm4_0<<7 | opcodeStore
}

func encodeB(inst *Instruction) uint32 {
	var f3 uint32
	switch inst.Op {
	case OpBEQ:
		f3 = 0b000
	case OpBNE:
		f3 = 0b001
	case OpBLT:
		f3 = 0b100
	case OpBGE:
		f3 = 0b101
	case OpBLTU:
		f3 = 0b110
	case OpBGEU:
		f3 = 0b111
	}
	imm := uint32(inst.Imm)
	imm12 := (imm >> 12) & 0x1
	imm11 := (imm >> 11) & 0x1
	imm10_5 := (imm >> 5) & 0x3F
	imm4_1 := (imm >> 1) & 0xF
	return imm12<<31 | imm10_5<<25 | uint32(inst.Rs2)<<20 | uint32(inst.Rs1)<<15 |
		f3<<12 | imm4_1<<8 | imm11<<7 | opcodeBranch
}

func encodeU(inst *Instruction) uint32 {
	opcode := uint32(opcodeLUI)
	if inst.Op == OpAUIPC {
		opcode = opcodeAUIPC
	}
	return uint32(inst.Imm)&0xFFFFF000 | uint32(inst.Rd)<<7 | opcode
}

func encodeJ(inst *Instruction) uint32 {
	imm := uint32(inst.Imm)
	imm20 := (imm >> 20) & 0x1
	imm19_12 := (imm >> 12) & 0xFF
	imm11 := (imm >> 11) & 0x1
	imm10_1 := (imm >> 1) & 0x3FF
	return imm20<<31 | imm10_1<<21 | imm11<<20 | imm19_12<<12 | uint32(inst.Rd)<<7 | opcodeJAL
}

func encodeSystem(inst *Instruction) uint32 {
	imm := uint32(0)
	if inst.Op == OpEBREAK {
		imm = 1
	}
	return imm<<20 | opcodeSystem
}
