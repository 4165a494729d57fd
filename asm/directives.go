package asm

import "strconv"

// handleDirective dispatches a directive line to its handler. Directives
// not in the minimum set (.file, .ident, .size, .type, .set) are the
// GNU-assembler no-ops/aliases a real .s file commonly carries; accepting
// and ignoring them lets unmodified toolchain output assemble here.
func (a *assembler) handleDirective(sl *SourceLine) error {
	switch sl.Name {
	case ".text":
		a.cur = Text
		return nil
	case ".data":
		a.cur = Data
		return nil
	case ".rodata":
		a.cur = Rodata
		return nil
	case ".bss":
		a.cur = Bss
		return nil

	case ".section":
		return a.handleSection(sl)

	case ".globl", ".global":
		return a.handleGlobl(sl)

	case ".align", ".p2align":
		return a.handleAlign(sl)

	case ".byte":
		return a.handleValueList(sl, 1)
	case ".half", ".2byte", ".short":
		return a.handleValueList(sl, 2)
	case ".word", ".4byte", ".long":
		return a.handleValueList(sl, 4)

	case ".asciz", ".string":
		return a.handleAscii(sl, true)
	case ".ascii":
		return a.handleAscii(sl, false)

	case ".zero", ".space":
		return a.handleZero(sl)

	case ".equ", ".set":
		return a.handleEqu(sl)

	case ".file", ".ident", ".size", ".type", ".local", ".comm", ".option", ".attribute":
		return nil

	default:
		return &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Name, Message: "unknown directive"}
	}
}

// handleSection dispatches GNU's `.section name[,flags...]` form to the
// same four fixed sections `.text`/`.data`/`.rodata`/`.bss` switch to;
// any trailing flag string (e.g. `"aw"`) is accepted and ignored since
// this toolchain has no notion of section attributes beyond the four
// kinds themselves.
func (a *assembler) handleSection(sl *SourceLine) error {
	ops := splitOperands(sl.Args)
	if len(ops) == 0 {
		return &FailToParse{File: sl.File, Line: sl.Line, Message: "expected a section name"}
	}
	name := trimWhitespace(ops[0])
	switch name {
	case ".text":
		a.cur = Text
	case ".data":
		a.cur = Data
	case ".rodata":
		a.cur = Rodata
	case ".bss":
		a.cur = Bss
	default:
		return &FailToParse{File: sl.File, Line: sl.Line, Token: name, Message: "unsupported section name"}
	}
	return nil
}

func (a *assembler) handleGlobl(sl *SourceLine) error {
	name := trimWhitespace(sl.Args)
	if name == "" || !isValidSymbolName(name) {
		return &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected a symbol name"}
	}
	a.file.Globals[name] = true
	return nil
}

func (a *assembler) handleAlign(sl *SourceLine) error {
	n, err := strconv.Atoi(trimWhitespace(sl.Args))
	if err != nil || n < 0 {
		return &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected a non-negative alignment exponent"}
	}
	a.sections[a.cur].AlignTo(uint32(n))
	return nil
}

func (a *assembler) handleValueList(sl *SourceLine, width uint32) error {
	operands := splitOperands(sl.Args)
	if len(operands) == 0 {
		return &FailToParse{File: sl.File, Line: sl.Line, Message: "expected at least one value"}
	}
	buf := a.sections[a.cur]
	for _, op := range operands {
		imm, err := parseExpr(sl.File, sl.Line, op)
		if err != nil {
			return err
		}
		buf.AppendWord(width, imm, sl.Line)
	}
	return nil
}

func (a *assembler) handleAscii(sl *SourceLine, nulTerminate bool) error {
	operands := splitOperands(sl.Args)
	if len(operands) == 0 {
		return &FailToParse{File: sl.File, Line: sl.Line, Message: "expected a string literal"}
	}
	buf := a.sections[a.cur]
	for _, op := range operands {
		bytes, err := decodeStringLiteral(sl.File, sl.Line, op)
		if err != nil {
			return err
		}
		if nulTerminate {
			bytes = append(bytes, 0)
		}
		buf.AppendBytes(bytes)
	}
	return nil
}

func (a *assembler) handleZero(sl *SourceLine) error {
	n, err := strconv.Atoi(trimWhitespace(sl.Args))
	if err != nil || n < 0 {
		return &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected a non-negative byte count"}
	}
	a.sections[a.cur].AppendZero(uint32(n))
	return nil
}

func (a *assembler) handleEqu(sl *SourceLine) error {
	operands := splitOperands(sl.Args)
	if len(operands) != 2 {
		return &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected name, expr"}
	}
	name := trimWhitespace(operands[0])
	if !isValidSymbolName(name) {
		return &FailToParse{File: sl.File, Line: sl.Line, Token: name, Message: "not a valid symbol name"}
	}
	if _, exists := a.file.Locals[name]; exists {
		return &FailToParse{File: sl.File, Line: sl.Line, Token: name, Message: "duplicate symbol"}
	}
	imm, err := parseExpr(sl.File, sl.Line, operands[1])
	if err != nil {
		return err
	}
	a.file.Locals[name] = &Symbol{Name: name, Equate: true, EquateExp: imm}
	return nil
}
