package asm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32i-toolkit/rvsim/asm"
	"github.com/rv32i-toolkit/rvsim/insts"
)

var _ = Describe("Assemble", func() {
	It("places a label at the current text offset", func() {
		f, err := asm.Assemble("f.s", 0, `
main:
	addi a0, a0, 1
loop:
	jal x0, loop
`)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Locals["main"].Offset).To(Equal(uint32(0)))
		Expect(f.Locals["loop"].Offset).To(Equal(uint32(4)))
		Expect(f.Text.Items).To(HaveLen(2))
	})

	It("promotes a symbol to global via .globl", func() {
		f, err := asm.Assemble("f.s", 0, ".globl main\nmain:\n\tret\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Globals).To(HaveKey("main"))
	})

	It("switches sections and tracks each one's own location counter", func() {
		f, err := asm.Assemble("f.s", 0, `
.data
x: .word 1
.bss
y: .zero 4
.text
main:
	lw a0, 0(a0)
`)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Locals["x"].Section).To(Equal(asm.Data))
		Expect(f.Locals["y"].Section).To(Equal(asm.Bss))
		Expect(f.Locals["main"].Section).To(Equal(asm.Text))
		Expect(f.Bss.Size).To(Equal(uint32(4)))
	})

	It("aligns a section with nop padding in text", func() {
		f, err := asm.Assemble("f.s", 0, `
.text
	addi x0, x0, 0
.align 3
here:
	addi x0, x0, 0
`)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Locals["here"].Offset).To(Equal(uint32(8)))
	})

	It("rejects a duplicate label", func() {
		_, err := asm.Assemble("f.s", 0, "foo:\n\tnop\nfoo:\n\tnop\n")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unknown mnemonic", func() {
		_, err := asm.Assemble("f.s", 0, "frobnicate a0, a1\n")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unknown directive", func() {
		_, err := asm.Assemble("f.s", 0, ".frobnicate\n")
		Expect(err).To(HaveOccurred())
	})

	It("decodes an .asciz string with a trailing NUL", func() {
		f, err := asm.Assemble("f.s", 0, `.rodata
msg: .asciz "hi"
`)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Rodata.Items).To(HaveLen(1))
		Expect(f.Rodata.Items[0].Bytes).To(Equal([]byte{'h', 'i', 0}))
	})

	It("expands li into a single addi for a small constant", func() {
		f, err := asm.Assemble("f.s", 0, "li a0, 5\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Text.Items).To(HaveLen(1))
		Expect(f.Text.Items[0].Inst.Op).To(Equal(insts.OpADDI))
	})

	It("expands li into lui+addi for a large constant", func() {
		f, err := asm.Assemble("f.s", 0, "li a0, 100000\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Text.Items).To(HaveLen(2))
		Expect(f.Text.Items[0].Inst.Op).To(Equal(insts.OpLUI))
		Expect(f.Text.Items[1].Inst.Op).To(Equal(insts.OpADDI))
	})

	It("expands la into a PC-relative auipc/addi pair anchored by a synthesized label", func() {
		f, err := asm.Assemble("f.s", 0, "la a0, msg\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Text.Items).To(HaveLen(2))
		auipc := f.Text.Items[0].Inst
		addi := f.Text.Items[1].Inst
		Expect(auipc.Op).To(Equal(insts.OpAUIPC))
		Expect(auipc.Imm.RelKind).To(Equal(asm.RelPCRelHI))
		Expect(addi.Op).To(Equal(insts.OpADDI))
		Expect(addi.Imm.RelKind).To(Equal(asm.RelPCRelLO))
		anchorLabel := addi.Imm.Inner.Sym
		Expect(f.Locals).To(HaveKey(anchorLabel))
		Expect(f.Locals[anchorLabel].Offset).To(Equal(uint32(0)))
	})

	It("expands bgt by swapping operands into blt", func() {
		f, err := asm.Assemble("f.s", 0, "bgt a0, a1, target\ntarget:\n\tnop\n")
		Expect(err).NotTo(HaveOccurred())
		inst := f.Text.Items[0].Inst
		Expect(inst.Op).To(Equal(insts.OpBLT))
		a0, _ := insts.LookupRegister("a0")
		a1, _ := insts.LookupRegister("a1")
		Expect(inst.Rs1).To(Equal(a1))
		Expect(inst.Rs2).To(Equal(a0))
	})

	It("parses a load using the imm(reg) addressing form", func() {
		f, err := asm.Assemble("f.s", 0, "lw a0, 4(sp)\n")
		Expect(err).NotTo(HaveOccurred())
		inst := f.Text.Items[0].Inst
		Expect(inst.Op).To(Equal(insts.OpLW))
		Expect(inst.Imm).To(Equal(asm.Int32(4)))
	})

	It("accepts GNU's .section spelling for the four fixed sections", func() {
		f, err := asm.Assemble("f.s", 0, `
.section .rodata
msg: .asciz "hi"
.section .text
main:
	ret
`)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Locals["msg"].Section).To(Equal(asm.Rodata))
		Expect(f.Locals["main"].Section).To(Equal(asm.Text))
	})

	It("assembles multiple ;-separated statements sharing one label and line", func() {
		f, err := asm.Assemble("f.s", 0, "main: li a0, 0; li a1, 1; ret\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Locals["main"].Offset).To(Equal(uint32(0)))
		Expect(f.Text.Items).To(HaveLen(3))
		Expect(f.Text.Items[0].Inst.Op).To(Equal(insts.OpADDI))
		Expect(f.Text.Items[2].Inst.Op).To(Equal(insts.OpJALR))
	})

	It("evaluates .equ as a deferred constant expression", func() {
		f, err := asm.Assemble("f.s", 0, ".equ SIZE, 4 + 4\n")
		Expect(err).NotTo(HaveOccurred())
		sym := f.Locals["SIZE"]
		Expect(sym.Equate).To(BeTrue())
		Expect(sym.EquateExp.Kind).To(Equal(asm.KindTree))
	})
})
