package asm

import "github.com/rv32i-toolkit/rvsim/insts"

// pseudoExpander expands one pseudo-instruction line into one or more real
// Instructions. Expansion happens entirely during assembly: a
// PC-relative expansion (call, la) synthesizes a
// .Lpcrel_N local label bound to the auipc's own (section, offset),
// which is an ordinary local symbol the linker resolves like any other —
// so nothing about PC-relative pseudo-instructions needs to be deferred
// to link time, unlike a from-scratch linker that must expand them
// during encoding because it never sees the source text at all.
type pseudoExpander func(a *assembler, sl *SourceLine) ([]*Instruction, error)

var pseudoTable = map[string]pseudoExpander{
	"nop":  expandNop,
	"li":   expandLi,
	"mv":   expandMv,
	"not":  expandNot,
	"neg":  expandNeg,
	"seqz": expandSeqz,
	"snez": expandSnez,
	"j":    expandJ,
	"jr":   expandJr,
	"ret":  expandRet,
	"call": expandCall,
	"la":   expandLa,
	"beqz": expandBeqz,
	"bnez": expandBnez,
	"bgt":  expandBgt,
	"ble":  expandBle,
	"bgtu": expandBgtu,
	"bleu": expandBleu,
}

func mkInst(op insts.Op, sl *SourceLine) *Instruction {
	return &Instruction{Op: op, Format: insts.FormatOf(op), SourceFile: sl.File, SourceLine: sl.Line}
}

func regZero() uint8 { return 0 }

func expandNop(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	if trimWhitespace(sl.Args) != "" {
		return nil, &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "nop takes no operands"}
	}
	inst := mkInst(insts.OpADDI, sl)
	inst.HasImm = true
	inst.Imm = Int32(0)
	return []*Instruction{inst}, nil
}

// expandLi expands `li rd, imm`. A value that fits in a 12-bit signed
// immediate becomes a single addi; a larger value needs the upper 20
// bits loaded via lui, then the low 12 bits added in.
func expandLi(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	ops := splitOperands(sl.Args)
	if len(ops) != 2 {
		return nil, &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected rd, imm"}
	}
	rd, err := parseRegister(sl.File, sl.Line, ops[0])
	if err != nil {
		return nil, err
	}
	imm, err := parseExpr(sl.File, sl.Line, ops[1])
	if err != nil {
		return nil, err
	}

	if imm.Kind == KindInt && imm.Int >= -2048 && imm.Int <= 2047 {
		addi := mkInst(insts.OpADDI, sl)
		addi.Rd, addi.Rs1, addi.HasImm, addi.Imm = rd, regZero(), true, imm
		return []*Instruction{addi}, nil
	}

	lui := mkInst(insts.OpLUI, sl)
	lui.Rd, lui.HasImm, lui.Imm = rd, true, RelExpr(imm, RelHI)

	addi := mkInst(insts.OpADDI, sl)
	addi.Rd, addi.Rs1, addi.HasImm, addi.Imm = rd, rd, true, RelExpr(imm, RelLO)

	return []*Instruction{lui, addi}, nil
}

func unaryRegShape(sl *SourceLine) (rd, rs uint8, err error) {
	ops := splitOperands(sl.Args)
	if len(ops) != 2 {
		return 0, 0, &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected rd, rs"}
	}
	if rd, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
		return 0, 0, err
	}
	if rs, err = parseRegister(sl.File, sl.Line, ops[1]); err != nil {
		return 0, 0, err
	}
	return rd, rs, nil
}

func expandMv(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rd, rs, err := unaryRegShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpADDI, sl)
	inst.Rd, inst.Rs1, inst.HasImm, inst.Imm = rd, rs, true, Int32(0)
	return []*Instruction{inst}, nil
}

func expandNot(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rd, rs, err := unaryRegShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpXORI, sl)
	inst.Rd, inst.Rs1, inst.HasImm, inst.Imm = rd, rs, true, Int32(-1)
	return []*Instruction{inst}, nil
}

func expandNeg(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rd, rs, err := unaryRegShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpSUB, sl)
	inst.Rd, inst.Rs1, inst.Rs2 = rd, regZero(), rs
	return []*Instruction{inst}, nil
}

func expandSeqz(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rd, rs, err := unaryRegShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpSLTIU, sl)
	inst.Rd, inst.Rs1, inst.HasImm, inst.Imm = rd, rs, true, Int32(1)
	return []*Instruction{inst}, nil
}

func expandSnez(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rd, rs, err := unaryRegShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpSLTU, sl)
	inst.Rd, inst.Rs1, inst.Rs2 = rd, regZero(), rs
	return []*Instruction{inst}, nil
}

func expandJ(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	target, err := parseExpr(sl.File, sl.Line, sl.Args)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpJAL, sl)
	inst.Rd, inst.HasImm, inst.Imm = regZero(), true, target
	return []*Instruction{inst}, nil
}

func expandJr(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rs, err := parseRegister(sl.File, sl.Line, trimWhitespace(sl.Args))
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpJALR, sl)
	inst.Rd, inst.Rs1, inst.HasImm, inst.Imm = regZero(), rs, true, Int32(0)
	return []*Instruction{inst}, nil
}

func expandRet(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	if trimWhitespace(sl.Args) != "" {
		return nil, &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "ret takes no operands"}
	}
	ra, _ := insts.LookupRegister("ra")
	inst := mkInst(insts.OpJALR, sl)
	inst.Rd, inst.Rs1, inst.HasImm, inst.Imm = regZero(), ra, true, Int32(0)
	return []*Instruction{inst}, nil
}

// expandCall expands `call sym` into an auipc/jalr pair anchored by a
// synthesized local label, matching the la pattern but returning to the
// caller via `ra` instead of loading an address into it.
func expandCall(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	sym, err := parseExpr(sl.File, sl.Line, sl.Args)
	if err != nil {
		return nil, err
	}
	ra, _ := insts.LookupRegister("ra")
	label := a.newLocalLabel()

	auipc := mkInst(insts.OpAUIPC, sl)
	auipc.Rd, auipc.HasImm, auipc.Imm = ra, true, RelExpr(sym, RelPCRelHI)

	jalr := mkInst(insts.OpJALR, sl)
	jalr.Rd, jalr.Rs1, jalr.HasImm, jalr.Imm = ra, ra, true, RelExpr(SymRef(label), RelPCRelLO)

	return []*Instruction{auipc, jalr}, nil
}

func expandLa(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	ops := splitOperands(sl.Args)
	if len(ops) != 2 {
		return nil, &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected rd, sym"}
	}
	rd, err := parseRegister(sl.File, sl.Line, ops[0])
	if err != nil {
		return nil, err
	}
	sym, err := parseExpr(sl.File, sl.Line, ops[1])
	if err != nil {
		return nil, err
	}
	label := a.newLocalLabel()

	auipc := mkInst(insts.OpAUIPC, sl)
	auipc.Rd, auipc.HasImm, auipc.Imm = rd, true, RelExpr(sym, RelPCRelHI)

	addi := mkInst(insts.OpADDI, sl)
	addi.Rd, addi.Rs1, addi.HasImm, addi.Imm = rd, rd, true, RelExpr(SymRef(label), RelPCRelLO)

	return []*Instruction{auipc, addi}, nil
}

func branchZeroShape(sl *SourceLine) (rs uint8, target Immediate, err error) {
	ops := splitOperands(sl.Args)
	if len(ops) != 2 {
		return 0, Immediate{}, &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected rs, target"}
	}
	if rs, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
		return 0, Immediate{}, err
	}
	if target, err = parseExpr(sl.File, sl.Line, ops[1]); err != nil {
		return 0, Immediate{}, err
	}
	return rs, target, nil
}

func expandBeqz(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rs, target, err := branchZeroShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpBEQ, sl)
	inst.Rs1, inst.Rs2, inst.HasImm, inst.Imm = rs, regZero(), true, target
	return []*Instruction{inst}, nil
}

func expandBnez(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rs, target, err := branchZeroShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpBNE, sl)
	inst.Rs1, inst.Rs2, inst.HasImm, inst.Imm = rs, regZero(), true, target
	return []*Instruction{inst}, nil
}

func swappedBranchShape(sl *SourceLine) (rs1, rs2 uint8, target Immediate, err error) {
	ops := splitOperands(sl.Args)
	if len(ops) != 3 {
		return 0, 0, Immediate{}, &FailToParse{File: sl.File, Line: sl.Line, Token: sl.Args, Message: "expected rs1, rs2, target"}
	}
	if rs1, err = parseRegister(sl.File, sl.Line, ops[0]); err != nil {
		return 0, 0, Immediate{}, err
	}
	if rs2, err = parseRegister(sl.File, sl.Line, ops[1]); err != nil {
		return 0, 0, Immediate{}, err
	}
	if target, err = parseExpr(sl.File, sl.Line, ops[2]); err != nil {
		return 0, 0, Immediate{}, err
	}
	return rs2, rs1, target, nil // note: operands swapped for the underlying branch
}

func expandBgt(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rs1, rs2, target, err := swappedBranchShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpBLT, sl)
	inst.Rs1, inst.Rs2, inst.HasImm, inst.Imm = rs1, rs2, true, target
	return []*Instruction{inst}, nil
}

func expandBle(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rs1, rs2, target, err := swappedBranchShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpBGE, sl)
	inst.Rs1, inst.Rs2, inst.HasImm, inst.Imm = rs1, rs2, true, target
	return []*Instruction{inst}, nil
}

func expandBgtu(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rs1, rs2, target, err := swappedBranchShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpBLTU, sl)
	inst.Rs1, inst.Rs2, inst.HasImm, inst.Imm = rs1, rs2, true, target
	return []*Instruction{inst}, nil
}

func expandBleu(a *assembler, sl *SourceLine) ([]*Instruction, error) {
	rs1, rs2, target, err := swappedBranchShape(sl)
	if err != nil {
		return nil, err
	}
	inst := mkInst(insts.OpBGEU, sl)
	inst.Rs1, inst.Rs2, inst.HasImm, inst.Imm = rs1, rs2, true, target
	return []*Instruction{inst}, nil
}
