package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/rv32i-toolkit/rvsim/debug"
	"github.com/rv32i-toolkit/rvsim/insts"
)

// StepResult reports what happened on one trip through the interpreter
// loop: either it retired an instruction and should continue, or the
// guest halted (Exited), or a run-time trap ended the run (Err).
type StepResult struct {
	Exited   bool
	ExitCode int32
	Err      error
}

// Interpreter is the fetch-decode-execute loop tying together a register
// file, memory, the decoded-executable cache, and the libc shim. It
// mirrors the single-threaded, deterministic loop of the C++ backend:
// one instruction retires per call to Step, in program order, with no
// speculation or reordering.
type Interpreter struct {
	rf     *RegisterFile
	mem    *Memory
	icache *ICache
	alu    *ALU
	branch *BranchUnit
	libc   *Libc
	dev    *Device

	hint  Hint
	debug bool

	recordFetches bool
	fetchHistory  []uint32
}

// InterpreterOption configures an Interpreter at construction time.
type InterpreterOption func(*Interpreter)

// WithDebugTrace enables per-instruction pretty-printing to dev.Profile,
// matching the original's simulate_debug path.
func WithDebugTrace(enabled bool) InterpreterOption {
	return func(in *Interpreter) { in.debug = enabled }
}

// WithFetchHistory enables recording of every instruction-fetch PC in
// program order. It costs one append per retired instruction and is off
// by default; the profile package's --detail diagnostic is the only
// consumer. Recording never changes guest-visible behavior — it only
// observes the PCs the loop would have fetched anyway.
func WithFetchHistory(enabled bool) InterpreterOption {
	return func(in *Interpreter) { in.recordFetches = enabled }
}

// FetchHistory returns the PCs fetched so far, in program order. Empty
// unless WithFetchHistory(true) was passed at construction.
func (in *Interpreter) FetchHistory() []uint32 { return in.fetchHistory }

// NewInterpreter wires a register file, memory, instruction cache, libc
// shim, and console device into a runnable interpreter. If ra is still
// zero, it is pointed at the libc exit routine, so that returning from the
// entry routine ends the run with a0 as the exit code.
func NewInterpreter(rf *RegisterFile, mem *Memory, icache *ICache, libc *Libc, dev *Device, opts ...InterpreterOption) *Interpreter {
	if rf.ReadReg(1) == 0 {
		rf.WriteReg(1, libc.Symbols()["exit"])
	}
	in := &Interpreter{
		rf:     rf,
		mem:    mem,
		icache: icache,
		alu:    NewALU(rf),
		branch: NewBranchUnit(rf),
		libc:   libc,
		dev:    dev,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// RegisterFile exposes the interpreter's register file, for tests and the
// CLI's post-run diagnostics.
func (in *Interpreter) RegisterFile() *RegisterFile { return in.rf }

// Step retires at most one instruction: a libc call, or a decoded RV32I
// instruction. It returns false once the loop should stop.
func (in *Interpreter) Step() (bool, StepResult) {
	if !in.rf.Advance() {
		if in.rf.Halted() {
			return false, StepResult{Exited: true, ExitCode: in.rf.ExitCode()}
		}
		return false, StepResult{Err: &FailToInterpret{Kind: NotImplemented, Message: "instruction budget exhausted"}}
	}

	pc := in.rf.PC
	if in.recordFetches {
		in.fetchHistory = append(in.fetchHistory, pc)
	}
	if in.libc.Contains(pc) {
		if err := in.libc.Invoke(pc, in.rf); err != nil {
			return false, StepResult{Err: err}
		}
		if in.rf.Halted() {
			return false, StepResult{Exited: true, ExitCode: in.rf.ExitCode()}
		}
		in.rf.PC = in.rf.ReadReg(1) // ra: resume at the call site's return address
		in.hint = Hint{}
		return true, StepResult{}
	}

	inst, next, err := in.icache.Ifetch(pc, in.hint)
	if err != nil {
		return false, StepResult{Err: err}
	}
	in.hint = next

	if in.debug {
		fmt.Fprintf(in.dev.Profile, "0x%08x: %s\n", pc, debug.Pretty(inst))
	}

	newPC, err := in.execute(pc, inst)
	if err != nil {
		return false, StepResult{Err: err}
	}
	in.rf.PC = newPC
	return true, StepResult{}
}

// Run drives Step to completion and returns the terminal result.
func (in *Interpreter) Run() StepResult {
	for {
		cont, result := in.Step()
		if !cont {
			return result
		}
	}
}

// execute performs one decoded instruction's effect and returns the next
// program counter. Only control-flow instructions compute a target other
// than pc+4.
func (in *Interpreter) execute(pc uint32, inst *insts.Instruction) (uint32, error) {
	switch inst.Op {
	case insts.OpUnknown:
		return 0, &FailToInterpret{Kind: InsUnknown, Address: pc}

	case insts.OpLUI:
		in.rf.WriteReg(inst.Rd, uint32(inst.Imm))
		return pc + 4, nil
	case insts.OpAUIPC:
		in.rf.WriteReg(inst.Rd, pc+uint32(inst.Imm))
		return pc + 4, nil

	case insts.OpJAL:
		return in.branch.JAL(pc, inst.Rd, inst.Imm), nil
	case insts.OpJALR:
		return in.branch.JALR(pc, inst.Rd, inst.Rs1, inst.Imm), nil

	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU:
		if in.branch.Taken(branchOpFor(inst.Op), inst.Rs1, inst.Rs2) {
			return in.branch.Target(pc, inst.Imm), nil
		}
		return pc + 4, nil

	case insts.OpLB, insts.OpLBU, insts.OpLH, insts.OpLHU, insts.OpLW:
		if err := in.load(inst); err != nil {
			return 0, err
		}
		return pc + 4, nil
	case insts.OpSB, insts.OpSH, insts.OpSW:
		if err := in.store(inst); err != nil {
			return 0, err
		}
		return pc + 4, nil

	case insts.OpADDI:
		in.alu.ADDI(inst.Rd, inst.Rs1, inst.Imm)
		return pc + 4, nil
	case insts.OpSLTI:
		in.alu.SLTI(inst.Rd, inst.Rs1, inst.Imm)
		return pc + 4, nil
	case insts.OpSLTIU:
		in.alu.SLTIU(inst.Rd, inst.Rs1, inst.Imm)
		return pc + 4, nil
	case insts.OpXORI:
		in.alu.XORI(inst.Rd, inst.Rs1, inst.Imm)
		return pc + 4, nil
	case insts.OpORI:
		in.alu.ORI(inst.Rd, inst.Rs1, inst.Imm)
		return pc + 4, nil
	case insts.OpANDI:
		in.alu.ANDI(inst.Rd, inst.Rs1, inst.Imm)
		return pc + 4, nil
	case insts.OpSLLI:
		in.alu.SLLI(inst.Rd, inst.Rs1, inst.Shamt)
		return pc + 4, nil
	case insts.OpSRLI:
		in.alu.SRLI(inst.Rd, inst.Rs1, inst.Shamt)
		return pc + 4, nil
	case insts.OpSRAI:
		in.alu.SRAI(inst.Rd, inst.Rs1, inst.Shamt)
		return pc + 4, nil

	case insts.OpADD:
		in.alu.ADD(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil
	case insts.OpSUB:
		in.alu.SUB(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil
	case insts.OpSLL:
		in.alu.SLL(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil
	case insts.OpSLT:
		in.alu.SLT(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil
	case insts.OpSLTU:
		in.alu.SLTU(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil
	case insts.OpXOR:
		in.alu.XOR(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil
	case insts.OpSRL:
		in.alu.SRL(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil
	case insts.OpSRA:
		in.alu.SRA(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil
	case insts.OpOR:
		in.alu.OR(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil
	case insts.OpAND:
		in.alu.AND(inst.Rd, inst.Rs1, inst.Rs2)
		return pc + 4, nil

	case insts.OpFENCE:
		return pc + 4, nil // single-threaded interpreter: fence is a no-op
	case insts.OpECALL, insts.OpEBREAK:
		// Guest code reaches these only if it bypassed the `call` pseudo-op
		// convention; treat them as an unimplemented libc entry.
		return 0, &FailToInterpret{Kind: NotImplemented, Address: pc, Message: "ecall/ebreak outside the libc sentinel range"}

	default:
		return 0, &FailToInterpret{Kind: InsUnknown, Address: pc}
	}
}

func branchOpFor(op insts.Op) BranchOp {
	switch op {
	case insts.OpBEQ:
		return BEQ
	case insts.OpBNE:
		return BNE
	case insts.OpBLT:
		return BLT
	case insts.OpBGE:
		return BGE
	case insts.OpBLTU:
		return BLTU
	case insts.OpBGEU:
		return BGEU
	default:
		Unreachable("not a branch op: %v", op)
		return BEQ
	}
}

func (in *Interpreter) load(inst *insts.Instruction) error {
	addr := uint32(int32(in.rf.ReadReg(inst.Rs1)) + inst.Imm)
	switch inst.Op {
	case insts.OpLB:
		v, err := in.mem.LoadI8(addr)
		if err != nil {
			return err
		}
		in.rf.WriteReg(inst.Rd, uint32(v))
	case insts.OpLBU:
		v, err := in.mem.LoadU8(addr)
		if err != nil {
			return err
		}
		in.rf.WriteReg(inst.Rd, v)
	case insts.OpLH:
		v, err := in.mem.LoadI16(addr)
		if err != nil {
			return err
		}
		in.rf.WriteReg(inst.Rd, uint32(v))
	case insts.OpLHU:
		v, err := in.mem.LoadU16(addr)
		if err != nil {
			return err
		}
		in.rf.WriteReg(inst.Rd, v)
	case insts.OpLW:
		v, err := in.mem.LoadU32(addr)
		if err != nil {
			return err
		}
		in.rf.WriteReg(inst.Rd, v)
	default:
		Unreachable("not a load op: %v", inst.Op)
	}
	return nil
}

func (in *Interpreter) store(inst *insts.Instruction) error {
	addr := uint32(int32(in.rf.ReadReg(inst.Rs1)) + inst.Imm)
	v := in.rf.ReadReg(inst.Rs2)
	switch inst.Op {
	case insts.OpSB:
		return in.mem.StoreI8(addr, v)
	case insts.OpSH:
		return in.mem.StoreI16(addr, v)
	case insts.OpSW:
		return in.mem.StoreI32(addr, v)
	default:
		Unreachable("not a store op: %v", inst.Op)
		return nil
	}
}

// defaultDevice wires the console sinks to the process's own stdio,
// discarding profiling output unless a caller opts in.
func defaultDevice() *Device {
	return NewDevice(os.Stdout, io.Discard, os.Stderr, os.Stdin)
}
