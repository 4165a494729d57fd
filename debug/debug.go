// Package debug renders decoded RV32I instructions back into
// assembler-style text, for the interpreter's --debug trace and for tools
// that want to show a disassembly alongside a fault report.
package debug

import (
	"fmt"

	"github.com/rv32i-toolkit/rvsim/insts"
)

// Pretty formats a decoded instruction the way the GNU assembler would
// print it: mnemonic followed by its operands in destination-first order.
func Pretty(inst *insts.Instruction) string {
	name := inst.Op.Mnemonic()
	switch inst.Format {
	case insts.FormatR:
		return fmt.Sprintf("%s %s, %s, %s", name, reg(inst.Rd), reg(inst.Rs1), reg(inst.Rs2))
	case insts.FormatI:
		switch inst.Op {
		case insts.OpSLLI, insts.OpSRLI, insts.OpSRAI:
			return fmt.Sprintf("%s %s, %s, %d", name, reg(inst.Rd), reg(inst.Rs1), inst.Shamt)
		case insts.OpJALR, insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU:
			return fmt.Sprintf("%s %s, %d(%s)", name, reg(inst.Rd), inst.Imm, reg(inst.Rs1))
		default:
			return fmt.Sprintf("%s %s, %s, %d", name, reg(inst.Rd), reg(inst.Rs1), inst.Imm)
		}
	case insts.FormatS:
		return fmt.Sprintf("%s %s, %d(%s)", name, reg(inst.Rs2), inst.Imm, reg(inst.Rs1))
	case insts.FormatB:
		return fmt.Sprintf("%s %s, %s, %d", name, reg(inst.Rs1), reg(inst.Rs2), inst.Imm)
	case insts.FormatU:
		return fmt.Sprintf("%s %s, %d", name, reg(inst.Rd), inst.Imm>>12)
	case insts.FormatJ:
		return fmt.Sprintf("%s %s, %d", name, reg(inst.Rd), inst.Imm)
	case insts.FormatSystem:
		return name
	default:
		return fmt.Sprintf("0x%08x (unknown)", inst.Op)
	}
}

func reg(r uint8) string {
	return insts.RegisterName(r)
}
