// Package insts provides RV32I instruction definitions, decoding and encoding.
//
// This package implements the RV32I base integer instruction set: the six
// instruction formats (R, I, S, B, U, J) and every opcode/funct3/funct7
// combination the base ISA defines. It supports:
//   - Data processing (register-register and register-immediate)
//   - Loads and stores (byte/half/word, signed and unsigned)
//   - Control transfer: conditional branches, JAL, JALR
//   - LUI/AUIPC for building 32-bit constants and PC-relative addresses
//
// Usage:
//
//	dec := insts.NewDecoder()
//	inst := dec.Decode(0x00b50533) // add a0, a0, a1
//	word, err := insts.Encode(inst)
package insts

// Op represents an RV32I opcode/funct3/funct7 combination, i.e. a single
// concrete mnemonic (not a pseudo-instruction).
type Op uint16

// RV32I opcodes.
const (
	OpUnknown Op = iota

	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU

	OpSB
	OpSH
	OpSW

	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	OpECALL
	OpEBREAK
	OpFENCE
)

// Format represents an instruction encoding format.
type Format uint8

// RV32I instruction formats.
const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
	FormatSystem
)

// Instruction represents a decoded RV32I instruction.
type Instruction struct {
	Op     Op
	Format Format

	Rd  uint8
	Rs1 uint8
	Rs2 uint8

	// Imm holds the sign-extended immediate for I/S/B/J formats, or the
	// raw 20-bit field (already shifted into position) for U-type.
	Imm int32

	// Shamt is the shift amount for SLLI/SRLI/SRAI (bits [24:20], 0-31).
	Shamt uint8
}

// Mnemonic returns the canonical GNU-assembler mnemonic for an Op.
func (o Op) Mnemonic() string {
	if m, ok := mnemonics[o]; ok {
		return m
	}
	return "unknown"
}

var mnemonics = map[Op]string{
	OpLUI: "lui", OpAUIPC: "auipc", OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge", OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLBU: "lbu", OpLHU: "lhu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw",
	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori",
	OpORI: "ori", OpANDI: "andi", OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai",
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpECALL: "ecall", OpEBREAK: "ebreak", OpFENCE: "fence",
}

// FormatOf returns the encoding format for a given opcode.
func FormatOf(op Op) Format {
	switch op {
	case OpLUI, OpAUIPC:
		return FormatU
	case OpJAL:
		return FormatJ
	case OpJALR, OpLB, OpLH, OpLW, OpLBU, OpLHU,
		OpADDI, OpSLTI, OpSLTIU, OpXORI, OpORI, OpANDI, OpSLLI, OpSRLI, OpSRAI:
		return FormatI
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		return FormatB
	case OpSB, OpSH, OpSW:
		return FormatS
	case OpADD, OpSUB, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpSRA, OpOR, OpAND:
		return FormatR
	case OpECALL, OpEBREAK:
		return FormatSystem
	default:
		return FormatUnknown
	}
}

// signExtend sign-extends the low `bits` bits of v to a full int32.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
