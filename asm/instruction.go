package asm

import "github.com/rv32i-toolkit/rvsim/insts"

// Instruction is the symbolic instruction IR the linker later encodes: a
// concrete RV32I opcode with its register operands resolved but its
// immediate left as an unresolved expression. Pseudo-instructions never
// reach the linker in this form — they are expanded into one or more real
// Instructions during assembly (see pseudo.go).
type Instruction struct {
	Op     insts.Op
	Format insts.Format

	Rd, Rs1, Rs2 uint8

	// Imm carries the operand immediate for every format except shifts by
	// a constant shamt, where the amount is already a plain small integer
	// known at assembly time and stored in Shamt instead.
	Imm Immediate

	// Shamt is set instead of Imm for slli/srli/srai.
	Shamt   uint8
	HasImm  bool
	IsShift bool

	// SourceFile and SourceLine identify where this instruction came from,
	// for evaluator error context and for choosing the correct local
	// symbol table during link-time resolution (the linker needs to know
	// each instruction's originating file, per the symbol-table design
	// note, rather than recomputing it).
	SourceFile string
	SourceLine int
}
