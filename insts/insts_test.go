package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32i-toolkit/rvsim/insts"
)

var _ = Describe("Insts Package", func() {
	It("should have an Instruction type", func() {
		var i insts.Instruction
		Expect(i).To(BeZero())
	})

	It("should have a Decoder type", func() {
		decoder := insts.NewDecoder()
		Expect(decoder).ToNot(BeNil())
	})

	DescribeTable("Mnemonic",
		func(op insts.Op, want string) {
			Expect(op.Mnemonic()).To(Equal(want))
		},
		Entry("add", insts.OpADD, "add"),
		Entry("addi", insts.OpADDI, "addi"),
		Entry("jalr", insts.OpJALR, "jalr"),
		Entry("unknown", insts.OpUnknown, "unknown"),
	)

	DescribeTable("FormatOf",
		func(op insts.Op, want insts.Format) {
			Expect(insts.FormatOf(op)).To(Equal(want))
		},
		Entry("lui is U-type", insts.OpLUI, insts.FormatU),
		Entry("jal is J-type", insts.OpJAL, insts.FormatJ),
		Entry("beq is B-type", insts.OpBEQ, insts.FormatB),
		Entry("sw is S-type", insts.OpSW, insts.FormatS),
		Entry("add is R-type", insts.OpADD, insts.FormatR),
		Entry("addi is I-type", insts.OpADDI, insts.FormatI),
	)
})
