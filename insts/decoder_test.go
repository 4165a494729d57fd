package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32i-toolkit/rvsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("R-type", func() {
		It("should decode add x10, x11, x12", func() {
			word := uint32(0)<<25 | uint32(12)<<20 | uint32(11)<<15 | uint32(0)<<12 | uint32(10)<<7 | 0b0110011
			inst := decoder.Decode(word)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(11)))
			Expect(inst.Rs2).To(Equal(uint8(12)))
		})

		It("should decode sub distinctly from add via funct7", func() {
			word := uint32(0b0100000)<<25 | uint32(2)<<20 | uint32(1)<<15 | uint32(0)<<12 | uint32(0)<<7 | 0b0110011
			inst := decoder.Decode(word)
			Expect(inst.Op).To(Equal(insts.OpSUB))
		})

		It("should decode sra distinctly from srl via funct7", func() {
			word := uint32(0b0100000)<<25 | uint32(2)<<20 | uint32(1)<<15 | uint32(0b101)<<12 | uint32(0)<<7 | 0b0110011
			inst := decoder.Decode(word)
			Expect(inst.Op).To(Equal(insts.OpSRA))
		})
	})

	Describe("I-type", func() {
		It("should decode addi with a negative immediate", func() {
			neg1 := int32(-1)
			imm := uint32(neg1) & 0xFFF
			word := imm<<20 | uint32(1)<<15 | uint32(0)<<12 | uint32(2)<<7 | 0b0010011
			inst := decoder.Decode(word)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Imm).To(Equal(int32(-1)))
		})

		It("should decode slli with a shift amount, not a raw immediate", func() {
			word := uint32(5)<<20 | uint32(1)<<15 | uint32(0b001)<<12 | uint32(2)<<7 | 0b0010011
			inst := decoder.Decode(word)

			Expect(inst.Op).To(Equal(insts.OpSLLI))
			Expect(inst.Shamt).To(Equal(uint8(5)))
		})

		It("should decode lw", func() {
			imm := uint32(4)
			word := imm<<20 | uint32(2)<<15 | uint32(0b010)<<12 | uint32(3)<<7 | 0b0000011
			inst := decoder.Decode(word)

			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(4)))
		})
	})

	Describe("S-type", func() {
		It("should decode sw with a split immediate", func() {
			inst := &insts.Instruction{Op: insts.OpSW, Format: insts.FormatS, Rs1: 2, Rs2: 8, Imm: 12}
			word, err := insts.Encode(inst)
			Expect(err).ToNot(HaveOccurred())

			decoded := decoder.Decode(word)
			Expect(decoded.Op).To(Equal(insts.OpSW))
			Expect(decoded.Rs1).To(Equal(uint8(2)))
			Expect(decoded.Rs2).To(Equal(uint8(8)))
			Expect(decoded.Imm).To(Equal(int32(12)))
		})
	})

	Describe("B-type", func() {
		It("should round-trip a negative branch offset", func() {
			inst := &insts.Instruction{Op: insts.OpBLT, Format: insts.FormatB, Rs1: 5, Rs2: 6, Imm: -8}
			word, err := insts.Encode(inst)
			Expect(err).ToNot(HaveOccurred())

			decoded := decoder.Decode(word)
			Expect(decoded.Op).To(Equal(insts.OpBLT))
			Expect(decoded.Imm).To(Equal(int32(-8)))
		})
	})

	Describe("U-type", func() {
		It("should decode lui with the immediate already shifted into place", func() {
			word := uint32(0x12345)<<12 | uint32(1)<<7 | 0b0110111
			inst := decoder.Decode(word)

			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Imm).To(Equal(int32(0x12345000)))
		})
	})

	Describe("J-type", func() {
		It("should round-trip a large forward jal offset", func() {
			inst := &insts.Instruction{Op: insts.OpJAL, Format: insts.FormatJ, Rd: 1, Imm: 1 << 15}
			word, err := insts.Encode(inst)
			Expect(err).ToNot(HaveOccurred())

			decoded := decoder.Decode(word)
			Expect(decoded.Op).To(Equal(insts.OpJAL))
			Expect(decoded.Imm).To(Equal(int32(1 << 15)))
		})

		It("should round-trip a negative jal offset", func() {
			inst := &insts.Instruction{Op: insts.OpJAL, Format: insts.FormatJ, Rd: 0, Imm: -4}
			word, err := insts.Encode(inst)
			Expect(err).ToNot(HaveOccurred())

			decoded := decoder.Decode(word)
			Expect(decoded.Imm).To(Equal(int32(-4)))
		})
	})

	Describe("system instructions", func() {
		It("should distinguish ecall from ebreak", func() {
			Expect(decoder.Decode(0b1110011).Op).To(Equal(insts.OpECALL))
			Expect(decoder.Decode(uint32(1)<<20 | 0b1110011).Op).To(Equal(insts.OpEBREAK))
		})
	})

	Describe("unknown encodings", func() {
		It("should report OpUnknown for a reserved opcode", func() {
			inst := decoder.Decode(0b1111111)
			Expect(inst.Op).To(Equal(insts.OpUnknown))
		})
	})
})
