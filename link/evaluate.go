package link

import (
	"fmt"

	"github.com/rv32i-toolkit/rvsim/asm"
	"github.com/rv32i-toolkit/rvsim/insts"
)

// instructionAt resolves the instruction anchored at an absolute address,
// used only to chase a %pcrel_lo label back to its defining auipc.
type instructionAt func(addr uint32) (*asm.Instruction, bool)

// Evaluator resolves an asm.Immediate to its final 32-bit value, given the
// global table, the local table of the immediate's originating file, and
// (for PC-relative forms) the address of the instruction the immediate
// belongs to. It is seeded fresh for every instruction operand: the
// (global, local, pc) triple spec.md requires evaluation to be a pure
// function of.
type Evaluator struct {
	global map[string]*resolvedSymbol
	local  map[string]*resolvedSymbol
	pc     uint32
	instAt instructionAt

	file string
	line int
}

// NewEvaluator builds an Evaluator for one instruction operand.
func NewEvaluator(global, local map[string]*resolvedSymbol, pc uint32, instAt instructionAt, file string, line int) *Evaluator {
	return &Evaluator{global: global, local: local, pc: pc, instAt: instAt, file: file, line: line}
}

func (e *Evaluator) lookup(name string) (*resolvedSymbol, bool) {
	if s, ok := e.local[name]; ok {
		return s, true
	}
	if s, ok := e.global[name]; ok {
		return s, true
	}
	return nil, false
}

// Eval evaluates imm to a 32-bit signed value. For symbols this is an
// absolute address; for Rel(HI/LO) forms it is the field-sized fragment
// the caller packs directly into the instruction encoding. The bare
// symbol "." resolves to e.pc, the address of the item being evaluated
// itself, rather than a symbol-table lookup.
func (e *Evaluator) Eval(imm asm.Immediate) (int32, error) {
	switch imm.Kind {
	case asm.KindInt:
		return imm.Int, nil

	case asm.KindSym:
		if imm.Sym == "." {
			return int32(e.pc), nil
		}
		sym, ok := e.lookup(imm.Sym)
		if !ok {
			return 0, &UnknownSymbol{Name: imm.Sym, File: e.file, Line: e.line}
		}
		if sym.Equate {
			return sym.Value, nil
		}
		return int32(sym.Address), nil

	case asm.KindTree:
		return e.evalTree(imm.Tree)

	case asm.KindRel:
		return e.evalRel(imm)

	default:
		return 0, fmt.Errorf("link: invalid immediate kind %d", imm.Kind)
	}
}

// evalTree folds left, matching the source-order fold: term i's Op field
// records the operator that combines term i+1 into the running
// accumulator (the first term is always implicitly added), mirroring the
// original evaluator's `last_op` one-iteration lag exactly.
func (e *Evaluator) evalTree(terms []asm.Term) (int32, error) {
	lastOp := asm.OpAdd
	var acc int32
	for _, t := range terms {
		v, err := e.Eval(t.Operand)
		if err != nil {
			return 0, err
		}
		switch lastOp {
		case asm.OpAdd:
			acc += v
		case asm.OpSub:
			acc -= v
		}
		lastOp = t.Op
	}
	return acc, nil
}

// evalRel implements the relocation specifiers. All four use GNU's
// rounded split so a hi/lo pair round-trips any 32-bit value even when the
// low 12 bits are negative once sign-extended; the PC-relative forms apply
// it to the offset from the anchoring auipc's own PC.
func (e *Evaluator) evalRel(imm asm.Immediate) (int32, error) {
	switch imm.RelKind {
	case asm.RelHI:
		v, err := e.Eval(*imm.Inner)
		if err != nil {
			return 0, err
		}
		return hiFieldRounded(v), nil

	case asm.RelLO:
		v, err := e.Eval(*imm.Inner)
		if err != nil {
			return 0, err
		}
		return loFieldRounded(v), nil

	case asm.RelPCRelHI:
		v, err := e.Eval(*imm.Inner)
		if err != nil {
			return 0, err
		}
		return hiFieldRounded(v - int32(e.pc)), nil

	case asm.RelPCRelLO:
		return e.evalPCRelLo(*imm.Inner)

	default:
		return 0, fmt.Errorf("link: invalid relocation kind %d", imm.RelKind)
	}
}

// evalPCRelLo implements the GNU convention that %pcrel_lo's operand
// names the label of the matching auipc rather than the original target
// symbol directly: the linker must chase that label to its defining
// instruction, recover the %pcrel_hi expression it carries, and compute
// the low bits of (target - auipc_pc) using the auipc's own PC.
func (e *Evaluator) evalPCRelLo(anchor asm.Immediate) (int32, error) {
	if anchor.Kind != asm.KindSym {
		return 0, fmt.Errorf("%s:%d: %%pcrel_lo operand must be a label", e.file, e.line)
	}
	sym, ok := e.lookup(anchor.Sym)
	if !ok {
		return 0, &UnknownSymbol{Name: anchor.Sym, File: e.file, Line: e.line}
	}
	if sym.Equate {
		return 0, fmt.Errorf("%s:%d: %%pcrel_lo operand %q is not an instruction label", e.file, e.line, anchor.Sym)
	}
	auipcPC := sym.Address

	inst, ok := e.instAt(auipcPC)
	if !ok || inst.Op != insts.OpAUIPC || inst.Imm.Kind != asm.KindRel || inst.Imm.RelKind != asm.RelPCRelHI {
		return 0, fmt.Errorf("%s:%d: %%pcrel_lo label %q does not name an auipc with a matching %%pcrel_hi", e.file, e.line, anchor.Sym)
	}

	auipcTable := e.local
	if inst.SourceFile != e.file {
		return 0, fmt.Errorf("%s:%d: %%pcrel_lo label %q crosses a file boundary", e.file, e.line, anchor.Sym)
	}
	sub := NewEvaluator(e.global, auipcTable, auipcPC, e.instAt, inst.SourceFile, inst.SourceLine)
	target, err := sub.Eval(*inst.Imm.Inner)
	if err != nil {
		return 0, err
	}
	return loFieldRounded(target - int32(auipcPC)), nil
}

// hiFieldRounded and loFieldRounded implement the GNU %hi/%lo rounding
// convention: the pair round-trips any 32-bit value, since lo is computed
// from the same rounding decision hi already made rather than a plain
// truncation.
func hiFieldRounded(v int32) int32 {
	uv := uint32(v)
	return int32((uv + 0x800) >> 12 & 0xFFFFF)
}

func loFieldRounded(v int32) int32 {
	uv := uint32(v)
	rounded := (uv + 0x800) &^ 0xFFF
	return int32(uv - rounded)
}
