package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32i-toolkit/rvsim/emu"
)

var _ = Describe("ALU", func() {
	var rf *emu.RegisterFile
	var alu *emu.ALU

	BeforeEach(func() {
		rf = emu.NewRegisterFile(0, 0)
		alu = emu.NewALU(rf)
	})

	It("computes ADD", func() {
		rf.WriteReg(1, 3)
		rf.WriteReg(2, 4)
		alu.ADD(3, 1, 2)
		Expect(rf.ReadReg(3)).To(Equal(uint32(7)))
	})

	It("wraps SUB on unsigned underflow", func() {
		rf.WriteReg(1, 0)
		rf.WriteReg(2, 1)
		alu.SUB(3, 1, 2)
		Expect(rf.ReadReg(3)).To(Equal(uint32(0xffffffff)))
	})

	It("discards writes to x0", func() {
		rf.WriteReg(1, 5)
		alu.ADD(0, 1, 1)
		Expect(rf.ReadReg(0)).To(Equal(uint32(0)))
	})

	It("computes SLT with signed comparison", func() {
		rf.WriteReg(1, 0xffffffff) // -1
		rf.WriteReg(2, 1)
		alu.SLT(3, 1, 2)
		Expect(rf.ReadReg(3)).To(Equal(uint32(1)))
	})

	It("computes SLTU with unsigned comparison", func() {
		rf.WriteReg(1, 0xffffffff) // huge unsigned
		rf.WriteReg(2, 1)
		alu.SLTU(3, 1, 2)
		Expect(rf.ReadReg(3)).To(Equal(uint32(0)))
	})

	It("masks shift amounts to 5 bits", func() {
		rf.WriteReg(1, 1)
		alu.SLLI(2, 1, 40) // 40 & 0x1f == 8
		Expect(rf.ReadReg(2)).To(Equal(uint32(1 << 8)))
	})

	It("sign-extends on SRA", func() {
		rf.WriteReg(1, 0x80000000)
		alu.SRAI(2, 1, 4)
		Expect(rf.ReadReg(2)).To(Equal(uint32(0xf8000000)))
	})

	It("zero-fills on SRL", func() {
		rf.WriteReg(1, 0x80000000)
		alu.SRLI(2, 1, 4)
		Expect(rf.ReadReg(2)).To(Equal(uint32(0x08000000)))
	})
})
