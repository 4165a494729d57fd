// Package asm assembles one RISC-V assembly source file at a time into
// relocatable sections: a sequence of pending bytes/words/instructions per
// section plus the file's local symbol table and .globl declarations. It
// resolves nothing itself — labels stay section-relative offsets and
// operand expressions stay unevaluated — leaving symbol resolution,
// PC-relative encoding, and cross-file layout to the link package.
package asm

import (
	"strconv"
	"strings"

	"github.com/rv32i-toolkit/rvsim/insts"
)

// File is one source file's assembled-but-unlinked output.
type File struct {
	Name    string
	ID      int
	Text    *Buffer
	Data    *Buffer
	Rodata  *Buffer
	Bss     *Buffer
	Locals  map[string]*Symbol
	Globals map[string]bool
}

// Sections indexes a File's four buffers by kind, mirroring Buffer.Kind.
func (f *File) Sections() [4]*Buffer {
	return [4]*Buffer{Text: f.Text, Data: f.Data, Rodata: f.Rodata, Bss: f.Bss}
}

type assembler struct {
	file *File
	cur  SectionKind
	// sections indexed by SectionKind, aliasing the File's named buffers.
	sections [4]*Buffer
	// pcrelSeq numbers synthesized .Lpcrel_N labels for PC-relative
	// pseudo-instruction expansion, unique within the file.
	pcrelSeq int
}

func newFile(name string, id int) *File {
	f := &File{
		Name:    name,
		ID:      id,
		Text:    &Buffer{Kind: Text},
		Data:    &Buffer{Kind: Data},
		Rodata:  &Buffer{Kind: Rodata},
		Bss:     &Buffer{Kind: Bss},
		Locals:  make(map[string]*Symbol),
		Globals: make(map[string]bool),
	}
	return f
}

// Assemble parses and assembles one source file's text, returning its
// per-section item lists and local symbol table. id distinguishes this
// file from others in a multi-file link for local-symbol scoping.
func Assemble(fileName string, id int, src string) (*File, error) {
	f := newFile(fileName, id)
	a := &assembler{
		file:     f,
		cur:      Text,
		sections: [4]*Buffer{Text: f.Text, Data: f.Data, Rodata: f.Rodata, Bss: f.Bss},
	}

	lines := strings.Split(src, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		stmts, err := classifyStatements(fileName, lineNo, raw)
		if err != nil {
			return nil, err
		}
		for _, sl := range stmts {
			if err := a.bindLabels(sl); err != nil {
				return nil, err
			}
			switch sl.Kind {
			case LineEmpty:
				continue
			case LineDirective:
				if err := a.handleDirective(sl); err != nil {
					return nil, err
				}
			case LineInstruction:
				if err := a.handleInstruction(sl); err != nil {
					return nil, err
				}
			}
		}
	}
	return f, nil
}

func (a *assembler) buffer() *Buffer {
	return a.sections[a.cur]
}

func (a *assembler) bindLabels(sl *SourceLine) error {
	for _, name := range sl.Labels {
		if !isValidSymbolName(name) {
			return &FailToParse{File: sl.File, Line: sl.Line, Token: name, Message: "invalid label name"}
		}
		if _, exists := a.file.Locals[name]; exists {
			return &FailToParse{File: sl.File, Line: sl.Line, Token: name, Message: "duplicate label"}
		}
		a.file.Locals[name] = &Symbol{
			Name:    name,
			Section: a.cur,
			Offset:  a.buffer().Offset(),
		}
	}
	return nil
}

// newLocalLabel synthesizes a .Lpcrel_N local label bound to the current
// (section, offset), used to anchor a pseudo-instruction's addi/%pcrel_lo
// back to its own auipc.
func (a *assembler) newLocalLabel() string {
	name := ".Lpcrel_" + strconv.Itoa(a.pcrelSeq) + "_" + strconv.Itoa(a.file.ID)
	a.pcrelSeq++
	a.file.Locals[name] = &Symbol{Name: name, Section: a.cur, Offset: a.buffer().Offset()}
	return name
}

// mnemShape identifies which operand grammar a real mnemonic expects.
type mnemShape uint8

const (
	shapeR mnemShape = iota
	shapeIArith
	shapeIShift
	shapeILoad
	shapeJALR
	shapeS
	shapeB
	shapeU
	shapeJ
	shapeSystem
)

type mnemInfo struct {
	Op    insts.Op
	Shape mnemShape
}

var realMnemonics = map[string]mnemInfo{
	"lui":   {insts.OpLUI, shapeU},
	"auipc": {insts.OpAUIPC, shapeU},
	"jal":   {insts.OpJAL, shapeJ},
	"jalr":  {insts.OpJALR, shapeJALR},

	"beq":  {insts.OpBEQ, shapeB},
	"bne":  {insts.OpBNE, shapeB},
	"blt":  {insts.OpBLT, shapeB},
	"bge":  {insts.OpBGE, shapeB},
	"bltu": {insts.OpBLTU, shapeB},
	"bgeu": {insts.OpBGEU, shapeB},

	"lb":  {insts.OpLB, shapeILoad},
	"lh":  {insts.OpLH, shapeILoad},
	"lw":  {insts.OpLW, shapeILoad},
	"lbu": {insts.OpLBU, shapeILoad},
	"lhu": {insts.OpLHU, shapeILoad},

	"sb": {insts.OpSB, shapeS},
	"sh": {insts.OpSH, shapeS},
	"sw": {insts.OpSW, shapeS},

	"addi":  {insts.OpADDI, shapeIArith},
	"slti":  {insts.OpSLTI, shapeIArith},
	"sltiu": {insts.OpSLTIU, shapeIArith},
	"xori":  {insts.OpXORI, shapeIArith},
	"ori":   {insts.OpORI, shapeIArith},
	"andi":  {insts.OpANDI, shapeIArith},
	"slli":  {insts.OpSLLI, shapeIShift},
	"srli":  {insts.OpSRLI, shapeIShift},
	"srai":  {insts.OpSRAI, shapeIShift},

	"add":  {insts.OpADD, shapeR},
	"sub":  {insts.OpSUB, shapeR},
	"sll":  {insts.OpSLL, shapeR},
	"slt":  {insts.OpSLT, shapeR},
	"sltu": {insts.OpSLTU, shapeR},
	"xor":  {insts.OpXOR, shapeR},
	"srl":  {insts.OpSRL, shapeR},
	"sra":  {insts.OpSRA, shapeR},
	"or":   {insts.OpOR, shapeR},
	"and":  {insts.OpAND, shapeR},

	"ecall":  {insts.OpECALL, shapeSystem},
	"ebreak": {insts.OpEBREAK, shapeSystem},
	"fence":  {insts.OpFENCE, shapeSystem},
}

func (a *assembler) handleInstruction(sl *SourceLine) error {
	if expand, ok := pseudoTable[sl.Name]; ok {
		insns, err := expand(a, sl)
		if err != nil {
			return err
		}
		for _, inst := range insns {
			a.buffer().AppendInstruction(inst, sl.Line)
		}
		return nil
	}

	info, ok := realMnemonics[sl.Name]
	if !ok {
		return &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Name, Message: "unknown mnemonic"}
	}
	inst, err := a.parseRealInstruction(sl, info)
	if err != nil {
		return err
	}
	a.buffer().AppendInstruction(inst, sl.Line)
	return nil
}

func (a *assembler) parseRealInstruction(sl *SourceLine, info mnemInfo) (*Instruction, error) {
	ops := splitOperands(sl.Args)
	inst := &Instruction{Op: info.Op, Format: insts.FormatOf(info.Op), SourceFile: sl.File, SourceLine: sl.Line}

	need := func(n int) error {
		if len(ops) != n {
			return &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "wrong number of operands for " + sl.Name}
		}
		return nil
	}

	switch info.Shape {
	case shapeR:
		if err := need(3); err != nil {
			return nil, err
		}
		var err error
		if inst.Rd, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
			return nil, err
		}
		if inst.Rs1, err = parseRegister(sl.File, sl.Line, ops[1]); err != nil {
			return nil, err
		}
		if inst.Rs2, err = parseRegister(sl.File, sl.Line, ops[2]); err != nil {
			return nil, err
		}

	case shapeIArith:
		if err := need(3); err != nil {
			return nil, err
		}
		var err error
		if inst.Rd, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
			return nil, err
		}
		if inst.Rs1, err = parseRegister(sl.File, sl.Line, ops[1]); err != nil {
			return nil, err
		}
		if inst.Imm, err = parseExpr(sl.File, sl.Line, ops[2]); err != nil {
			return nil, err
		}
		inst.HasImm = true

	case shapeIShift:
		if err := need(3); err != nil {
			return nil, err
		}
		var err error
		if inst.Rd, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
			return nil, err
		}
		if inst.Rs1, err = parseRegister(sl.File, sl.Line, ops[1]); err != nil {
			return nil, err
		}
		shamt, err2 := strconv.Atoi(trimWhitespace(ops[2]))
		if err2 != nil || shamt < 0 || shamt > 31 {
			return nil, &FailToParse{File: sl.File, Line: sl.Line, Token: ops[2], Message: "shift amount must be 0-31"}
		}
		inst.Shamt = uint8(shamt)
		inst.IsShift = true

	case shapeILoad:
		if err := need(2); err != nil {
			return nil, err
		}
		var err error
		if inst.Rd, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
			return nil, err
		}
		if inst.Imm, inst.Rs1, err = parseMemoryOperand(sl.File, sl.Line, ops[1]); err != nil {
			return nil, err
		}
		inst.HasImm = true

	case shapeJALR:
		if err := need(2); err == nil {
			var err error
			if inst.Rd, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
				return nil, err
			}
			if inst.Imm, inst.Rs1, err = parseMemoryOperand(sl.File, sl.Line, ops[1]); err != nil {
				return nil, err
			}
			inst.HasImm = true
			return inst, nil
		}
		if err := need(3); err != nil {
			return nil, &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected rd, rs1, imm or rd, imm(rs1)"}
		}
		var err error
		if inst.Rd, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
			return nil, err
		}
		if inst.Rs1, err = parseRegister(sl.File, sl.Line, ops[1]); err != nil {
			return nil, err
		}
		if inst.Imm, err = parseExpr(sl.File, sl.Line, ops[2]); err != nil {
			return nil, err
		}
		inst.HasImm = true

	case shapeS:
		if err := need(2); err != nil {
			return nil, err
		}
		var err error
		if inst.Rs2, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
			return nil, err
		}
		if inst.Imm, inst.Rs1, err = parseMemoryOperand(sl.File, sl.Line, ops[1]); err != nil {
			return nil, err
		}
		inst.HasImm = true

	case shapeB:
		if err := need(3); err != nil {
			return nil, err
		}
		var err error
		if inst.Rs1, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
			return nil, err
		}
		if inst.Rs2, err = parseRegister(sl.File, sl.Line, ops[1]); err != nil {
			return nil, err
		}
		if inst.Imm, err = parseExpr(sl.File, sl.Line, ops[2]); err != nil {
			return nil, err
		}
		inst.HasImm = true

	case shapeU:
		if err := need(2); err != nil {
			return nil, err
		}
		var err error
		if inst.Rd, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
			return nil, err
		}
		if inst.Imm, err = parseExpr(sl.File, sl.Line, ops[1]); err != nil {
			return nil, err
		}
		inst.HasImm = true

	case shapeJ:
		if err := need(2); err != nil {
			return nil, err
		}
		var err error
		if inst.Rd, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
			return nil, err
		}
		if inst.Imm, err = parseExpr(sl.File, sl.Line, ops[1]); err != nil {
			return nil, err
		}
		inst.HasImm = true

	case shapeSystem:
		if err := need(0); err != nil {
			return nil, err
		}
	}

	return inst, nil
}
