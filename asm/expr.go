package asm

import (
	"strconv"
	"strings"

	"github.com/rv32i-toolkit/rvsim/insts"
)

// parseExpr parses one operand-position expression: a relocation
// specifier wrapping a nested expression, or an additive sequence of
// integer/symbol terms.
func parseExpr(file string, line int, s string) (Immediate, error) {
	s = trimWhitespace(s)
	if s == "" {
		return Immediate{}, &FailToParse{File: file, Line: line, Message: "expected an expression"}
	}

	if rel, ok := relPrefix(s); ok {
		inner, err := extractParenBody(file, line, s[len(rel):])
		if err != nil {
			return Immediate{}, err
		}
		innerExpr, err := parseExpr(file, line, inner)
		if err != nil {
			return Immediate{}, err
		}
		return RelExpr(innerExpr, relKindFor(rel)), nil
	}

	return parseAdditive(file, line, s)
}

func relPrefix(s string) (string, bool) {
	for _, p := range []string{"%pcrel_hi", "%pcrel_lo", "%hi", "%lo"} {
		if strings.HasPrefix(s, p+"(") {
			return p, true
		}
	}
	return "", false
}

func relKindFor(prefix string) RelKind {
	switch prefix {
	case "%hi":
		return RelHI
	case "%lo":
		return RelLO
	case "%pcrel_hi":
		return RelPCRelHI
	case "%pcrel_lo":
		return RelPCRelLO
	default:
		return RelHI
	}
}

// extractParenBody expects s to begin with '(' and returns the balanced
// content inside the matching ')'; s must have nothing trailing after it.
func extractParenBody(file string, line int, s string) (string, error) {
	if len(s) == 0 || s[0] != '(' {
		return "", &FailToParse{File: file, Line: line, Token: s, Message: "expected '(' after relocation specifier"}
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if i != len(s)-1 {
					return "", &FailToParse{File: file, Line: line, Token: s, Message: "trailing text after relocation specifier"}
				}
				return s[1:i], nil
			}
		}
	}
	return "", &FailToParse{File: file, Line: line, Token: s, Message: "unbalanced parentheses"}
}

// parseAdditive splits s on top-level '+'/'-' and folds the terms into a
// Tree immediate, single terms collapsing to a bare Int/Sym immediate.
func parseAdditive(file string, line int, s string) (Immediate, error) {
	terms, err := splitAdditive(file, line, s)
	if err != nil {
		return Immediate{}, err
	}
	if len(terms) == 1 {
		return parseAtom(file, line, terms[0].text)
	}

	// Term.Op is the operator that folds the *next* term into the running
	// accumulator, so it comes from the operator preceding that next term;
	// the first term is added, and the last term's Op is always OpEnd.
	out := make([]Term, len(terms))
	for i, t := range terms {
		atom, err := parseAtom(file, line, t.text)
		if err != nil {
			return Immediate{}, err
		}
		op := OpEnd
		if i+1 < len(terms) {
			op = opForFold(terms[i+1].op)
		}
		out[i] = Term{Operand: atom, Op: op}
	}
	return TreeExpr(out), nil
}

func opForFold(op byte) TreeOp {
	if op == '-' {
		return OpSub
	}
	return OpAdd
}

type additiveTerm struct {
	text string
	op   byte // the operator preceding this term ('+' for the first term)
}

// splitAdditive splits on top-level '+' and '-', respecting parens (so
// %hi(a-b) isn't split) and a leading unary '-' on the first term.
func splitAdditive(file string, line int, s string) ([]additiveTerm, error) {
	var terms []additiveTerm
	depth := 0
	start := 0
	op := byte('+')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '+', '-':
			if depth == 0 && i > start {
				terms = append(terms, additiveTerm{text: trimWhitespace(s[start:i]), op: op})
				op = s[i]
				start = i + 1
			} else if depth == 0 && i == start {
				// leading sign on this term; keep it as part of the atom
				// unless it's the very first character (unary minus).
				if i != 0 {
					continue
				}
			}
		}
	}
	terms = append(terms, additiveTerm{text: trimWhitespace(s[start:]), op: op})
	for _, t := range terms {
		if t.text == "" {
			return nil, &FailToParse{File: file, Line: line, Token: s, Message: "empty term in expression"}
		}
	}
	return terms, nil
}

// parseAtom parses a single term: an integer literal, a character
// literal, or a symbol name.
func parseAtom(file string, line int, s string) (Immediate, error) {
	s = trimWhitespace(s)
	if v, ok := parseIntLiteral(s); ok {
		return Int32(v), nil
	}
	if isValidSymbolName(s) {
		return SymRef(s), nil
	}
	return Immediate{}, &FailToParse{File: file, Line: line, Token: s, Message: "not a valid integer or symbol"}
}

func isValidSymbolName(s string) bool {
	if s == "" {
		return false
	}
	if s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLabelChar(s[i]) {
			return false
		}
	}
	return true
}

// parseIntLiteral parses a decimal, 0x-hex, 0b-binary, or 'c' character
// literal, with an optional leading '-'.
func parseIntLiteral(s string) (int32, bool) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if len(s) >= 3 && s[0] == '\'' && s[len(s)-1] == '\'' {
		body := s[1 : len(s)-1]
		var c byte
		if body == `\n` {
			c = '\n'
		} else if body == `\t` {
			c = '\t'
		} else if body == `\r` {
			c = '\r'
		} else if body == `\0` {
			c = 0
		} else if body == `\\` {
			c = '\\'
		} else if len(body) == 1 {
			c = body[0]
		} else {
			return 0, false
		}
		v := int32(c)
		if neg {
			v = -v
		}
		return v, true
	}

	var v uint64
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 32)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		v, err = strconv.ParseUint(s[2:], 2, 32)
	default:
		if s == "" {
			return 0, false
		}
		for i := 0; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return 0, false
			}
		}
		v, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return 0, false
	}
	result := int32(uint32(v))
	if neg {
		result = -result
	}
	return result, true
}

// parseRegister resolves a register operand by name.
func parseRegister(file string, line int, s string) (uint8, error) {
	s = trimWhitespace(s)
	reg, ok := insts.LookupRegister(s)
	if !ok {
		return 0, &FailToParse{File: file, Line: line, Token: s, Message: "not a register name"}
	}
	return reg, nil
}

// parseMemoryOperand parses the `imm(reg)` addressing form used by loads
// and stores, e.g. `-4(sp)` or `0(a0)`.
func parseMemoryOperand(file string, line int, s string) (Immediate, uint8, error) {
	s = trimWhitespace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 || s[len(s)-1] != ')' {
		return Immediate{}, 0, &FailToParse{File: file, Line: line, Token: s, Message: "expected imm(reg) addressing form"}
	}
	immPart := trimWhitespace(s[:open])
	regPart := trimWhitespace(s[open+1 : len(s)-1])
	var imm Immediate
	if immPart == "" {
		imm = Int32(0)
	} else {
		var err error
		imm, err = parseExpr(file, line, immPart)
		if err != nil {
			return Immediate{}, 0, err
		}
	}
	reg, err := parseRegister(file, line, regPart)
	if err != nil {
		return Immediate{}, 0, err
	}
	return imm, reg, nil
}
