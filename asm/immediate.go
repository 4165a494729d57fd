// Package asm implements the lexer, parser, and per-file assembler for the
// curated GNU-style RV32I assembly dialect: it turns source text into a
// symbolic intermediate representation with unresolved immediate
// expressions, leaving section layout and symbol resolution to the link
// package.
package asm

import "fmt"

// Kind discriminates the four cases of the Immediate tagged union. It
// replaces the runtime-type-inspection hierarchy of the C++ original
// (IntImmediate/StrImmediate/TreeImmediate/RelImmediate) with a single
// exhaustively-matched struct, per the sum-type design note: evaluation
// is a switch, not a series of type assertions.
type Kind uint8

const (
	KindInt Kind = iota
	KindSym
	KindTree
	KindRel
)

// TreeOp is the operator joining one term of a Tree immediate to the
// running fold. The final term always carries OpEnd.
type TreeOp uint8

const (
	OpAdd TreeOp = iota
	OpSub
	OpEnd
)

// RelKind identifies which of the four GNU relocation specifiers wraps a
// Rel immediate's inner expression.
type RelKind uint8

const (
	RelHI RelKind = iota
	RelLO
	RelPCRelHI
	RelPCRelLO
)

func (k RelKind) String() string {
	switch k {
	case RelHI:
		return "%hi"
	case RelLO:
		return "%lo"
	case RelPCRelHI:
		return "%pcrel_hi"
	case RelPCRelLO:
		return "%pcrel_lo"
	default:
		return "%?"
	}
}

// Term is one entry of a Tree immediate: an operand, plus the operator Op
// that combines the following term into the running fold. The first term
// is always added to a zero accumulator.
type Term struct {
	Operand Immediate
	Op      TreeOp
}

// Immediate is the tagged union of unresolved constant expressions: a
// literal integer, a bare symbol reference, an additive tree of terms, or
// a relocation-specifier wrapper around an inner expression. Only the
// fields relevant to Kind are populated.
type Immediate struct {
	Kind Kind

	Int int32

	Sym string

	Tree []Term

	Inner   *Immediate
	RelKind RelKind
}

// Int32 builds a literal integer immediate.
func Int32(v int32) Immediate { return Immediate{Kind: KindInt, Int: v} }

// SymRef builds a bare symbol-reference immediate.
func SymRef(name string) Immediate { return Immediate{Kind: KindSym, Sym: name} }

// TreeExpr builds an additive-tree immediate from its terms; the caller
// must ensure the final term carries OpEnd.
func TreeExpr(terms []Term) Immediate { return Immediate{Kind: KindTree, Tree: terms} }

// RelExpr wraps inner in a relocation specifier.
func RelExpr(inner Immediate, kind RelKind) Immediate {
	return Immediate{Kind: KindRel, Inner: &inner, RelKind: kind}
}

func (imm Immediate) String() string {
	switch imm.Kind {
	case KindInt:
		return fmt.Sprintf("%d", imm.Int)
	case KindSym:
		return imm.Sym
	case KindTree:
		s := ""
		for i, t := range imm.Tree {
			s += t.Operand.String()
			if i < len(imm.Tree)-1 {
				switch t.Op {
				case OpAdd:
					s += " + "
				case OpSub:
					s += " - "
				}
			}
		}
		return s
	case KindRel:
		return fmt.Sprintf("%s(%s)", imm.RelKind, imm.Inner.String())
	default:
		return "<invalid immediate>"
	}
}
