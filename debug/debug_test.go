package debug_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32i-toolkit/rvsim/debug"
	"github.com/rv32i-toolkit/rvsim/insts"
)

var _ = Describe("Pretty", func() {
	It("renders an R-type instruction destination-first", func() {
		inst := &insts.Instruction{Op: insts.OpADD, Format: insts.FormatR, Rd: 10, Rs1: 11, Rs2: 12}
		Expect(debug.Pretty(inst)).To(Equal("add a0, a1, a2"))
	})

	It("renders an I-type ALU instruction with its immediate", func() {
		inst := &insts.Instruction{Op: insts.OpADDI, Format: insts.FormatI, Rd: 10, Rs1: 10, Imm: -1}
		Expect(debug.Pretty(inst)).To(Equal("addi a0, a0, -1"))
	})

	It("renders a load using imm(reg) addressing", func() {
		inst := &insts.Instruction{Op: insts.OpLW, Format: insts.FormatI, Rd: 10, Rs1: 2, Imm: 4}
		Expect(debug.Pretty(inst)).To(Equal("lw a0, 4(sp)"))
	})

	It("renders a store using imm(reg) addressing", func() {
		inst := &insts.Instruction{Op: insts.OpSW, Format: insts.FormatS, Rs1: 2, Rs2: 10, Imm: -4}
		Expect(debug.Pretty(inst)).To(Equal("sw a0, -4(sp)"))
	})

	It("renders a branch with its byte-offset immediate", func() {
		inst := &insts.Instruction{Op: insts.OpBEQ, Format: insts.FormatB, Rs1: 0, Rs2: 0, Imm: 8}
		Expect(debug.Pretty(inst)).To(Equal("beq zero, zero, 8"))
	})

	It("renders a U-type instruction's immediate as its shifted-right upper bits", func() {
		inst := &insts.Instruction{Op: insts.OpLUI, Format: insts.FormatU, Rd: 5, Imm: 0x12345000}
		Expect(debug.Pretty(inst)).To(Equal("lui t0, 74565"))
	})

	It("renders a J-type instruction's immediate directly", func() {
		inst := &insts.Instruction{Op: insts.OpJAL, Format: insts.FormatJ, Rd: 1, Imm: 100}
		Expect(debug.Pretty(inst)).To(Equal("jal ra, 100"))
	})

	It("renders a system instruction with no operands", func() {
		inst := &insts.Instruction{Op: insts.OpECALL, Format: insts.FormatSystem}
		Expect(debug.Pretty(inst)).To(Equal("ecall"))
	})
})
