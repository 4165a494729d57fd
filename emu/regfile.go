// Package emu provides the RV32I execution core: register file, memory,
// decoded-executable cache, and the interpreter loop that ties them
// together with the libc shim.
package emu

import (
	"fmt"
	"io"

	"github.com/rv32i-toolkit/rvsim/insts"
)

// RegisterFile represents the RV32I integer register file.
// It contains 32 general-purpose registers (x0-x31), the program counter,
// and a monotonic step counter.
type RegisterFile struct {
	// X holds general-purpose registers x0-x31. X[0] always reads as zero;
	// writes to it are silently discarded (enforced by WriteReg).
	X [32]uint32

	// PC is the program counter.
	PC uint32

	// step counts retired instructions. Advance decrements the remaining
	// timeout budget and returns false once the halt flag has been set by
	// libc's exit routine.
	step    uint64
	timeout uint64
	halted  bool
	exit    int32
}

// NewRegisterFile creates a register file seeded at entry with the given
// instruction-count timeout budget (0 means unlimited).
func NewRegisterFile(entry uint32, timeout uint64) *RegisterFile {
	return &RegisterFile{PC: entry, timeout: timeout}
}

// ReadReg reads a register value. x0 always reads as zero.
func (r *RegisterFile) ReadReg(reg uint8) uint32 {
	if reg == 0 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to x0 are silently
// discarded, per the RV32I convention that x0 is hardwired to zero.
func (r *RegisterFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 {
		return
	}
	r.X[reg] = value
}

// Halt sets the halt flag and records the exit code, causing the next call
// to Advance to return false. It is invoked exclusively by the libc `exit`
// routine.
func (r *RegisterFile) Halt(code int32) {
	r.halted = true
	r.exit = code
}

// ExitCode returns the code recorded by Halt (only meaningful once Halted).
func (r *RegisterFile) ExitCode() int32 { return r.exit }

// Halted reports whether the guest program has requested termination.
func (r *RegisterFile) Halted() bool { return r.halted }

// TimedOut reports whether the retired-instruction budget has been
// exhausted without the guest halting.
func (r *RegisterFile) TimedOut() bool {
	return !r.halted && r.timeout != 0 && r.step >= r.timeout
}

// Advance is called once per retired instruction. It returns false when the
// interpreter loop should stop: either the guest halted via libc exit, or
// the timeout budget has been exhausted.
func (r *RegisterFile) Advance() bool {
	if r.halted {
		return false
	}
	if r.timeout != 0 && r.step >= r.timeout {
		return false
	}
	r.step++
	return true
}

// Steps returns the number of instructions retired so far.
func (r *RegisterFile) Steps() uint64 { return r.step }

// PrintDetails writes a register-file summary to w. When verbose is false
// only the retired-instruction count is printed.
func (r *RegisterFile) PrintDetails(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "instructions retired: %d\n", r.step)
	if !verbose {
		return
	}
	fmt.Fprintf(w, "pc = 0x%08x\n", r.PC)
	for i := 0; i < 32; i++ {
		fmt.Fprintf(w, "  %-4s (x%-2d) = 0x%08x\n", insts.RegisterName(uint8(i)), i, r.X[i])
	}
}
