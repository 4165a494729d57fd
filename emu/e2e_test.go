package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32i-toolkit/rvsim/asm"
	"github.com/rv32i-toolkit/rvsim/emu"
	"github.com/rv32i-toolkit/rvsim/insts"
	"github.com/rv32i-toolkit/rvsim/link"
)

func regOf(name string) (uint8, bool) { return insts.LookupRegister(name) }

// buildAndRun assembles src as a single file, links it against the libc
// shim's predefined symbols, loads the result into a fresh guest address
// space, and runs it to completion. It returns the captured stdout-
// equivalent stream, the final register file, and the terminal result.
func buildAndRun(src string) (string, *emu.RegisterFile, emu.StepResult) {
	f, err := asm.Assemble("scenario.s", 0, src)
	Expect(err).NotTo(HaveOccurred())

	mem := emu.NewMemory(1 << 20)
	var out bytes.Buffer
	dev := emu.NewDevice(&out, &out, &out, nil)
	libc := emu.NewLibc(0x90000, mem, dev, 0x50000, 0x90000)

	img, err := link.Link([]*asm.File{f}, link.DefaultBases(), libc.Symbols())
	Expect(err).NotTo(HaveOccurred())

	Expect(mem.LoadImage(img.Bases.Text, img.Text)).To(Succeed())
	Expect(mem.LoadImage(img.Bases.Data, img.Data)).To(Succeed())
	Expect(mem.LoadImage(img.Bases.Rodata, img.Rodata)).To(Succeed())

	rf := emu.NewRegisterFile(img.Symbols["main"], 100000)
	icache := emu.NewICache(mem, img.Bases.Text, uint32(len(img.Text)))
	interp := emu.NewInterpreter(rf, mem, icache, libc, dev)

	result := interp.Run()
	return out.String(), rf, result
}

var _ = Describe("end-to-end scenarios", func() {
	It("prints hello world and exits 0", func() {
		out, _, result := buildAndRun(`
.section .rodata
msg: .asciz "hello\n"
.text
.globl main
main: la a0, msg; call puts; li a0, 0; ret
`)
		Expect(result.Exited).To(BeTrue())
		Expect(result.ExitCode).To(Equal(int32(0)))
		Expect(out).To(Equal("hello\n"))
	})

	It("computes a0 == 2 and keeps x0 == 0 through arithmetic and a self-add", func() {
		_, rf, result := buildAndRun(`
.globl main
main: li a0, 7; li a1, 5; sub a0, a0, a1; add x0, a0, a0; ret
`)
		Expect(result.Exited).To(BeTrue())
		a0, _ := regOf("a0")
		x0, _ := regOf("x0")
		Expect(rf.ReadReg(a0)).To(Equal(uint32(2)))
		Expect(rf.ReadReg(x0)).To(Equal(uint32(0)))
	})

	It("distinguishes signed and unsigned comparison of -1 and 1", func() {
		_, rf, result := buildAndRun(`
.globl main
main: li a0, -1; li a1, 1; sltu t0, a0, a1; slt t1, a0, a1; ret
`)
		Expect(result.Exited).To(BeTrue())
		t0, _ := regOf("t0")
		t1, _ := regOf("t1")
		Expect(rf.ReadReg(t0)).To(Equal(uint32(0)))
		Expect(rf.ReadReg(t1)).To(Equal(uint32(1)))
	})

	It("sums 1..10 via a branch loop and lands on 55", func() {
		_, rf, result := buildAndRun(`
.globl main
main:
	li a0, 0
	li t0, 1
loop:
	add a0, a0, t0
	addi t0, t0, 1
	li t1, 11
	blt t0, t1, loop
	ret
`)
		Expect(result.Exited).To(BeTrue())
		a0, _ := regOf("a0")
		Expect(rf.ReadReg(a0)).To(Equal(uint32(55)))
	})

	It("traps LoadMisAligned when a word load targets a non-4-byte address", func() {
		_, rf, result := buildAndRun(`
.globl main
main: li a0, 0x10001; lw a1, 0(a0); ret
`)
		Expect(result.Exited).To(BeFalse())
		Expect(result.Err).To(HaveOccurred())
		fault, ok := result.Err.(*emu.FailToInterpret)
		Expect(ok).To(BeTrue())
		Expect(fault.Kind).To(Equal(emu.LoadMisAligned))
		Expect(fault.Address).To(Equal(uint32(0x10001)))
		Expect(rf.PC).NotTo(Equal(uint32(0)))
	})

	It("resolves a PC-relative data word against its own address to 4", func() {
		f, err := asm.Assemble("scenario.s", 0, `
.data
ptr: .word target - .
target: .word 0
.text
.globl main
main: ret
`)
		Expect(err).NotTo(HaveOccurred())
		img, err := link.Link([]*asm.File{f}, link.DefaultBases(), nil)
		Expect(err).NotTo(HaveOccurred())

		mem := emu.NewMemory(1 << 20)
		Expect(mem.LoadImage(img.Bases.Data, img.Data)).To(Succeed())
		v, err := mem.LoadU32(img.Bases.Data)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(4)))
	})
})
