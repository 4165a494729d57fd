package emu_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32i-toolkit/rvsim/emu"
	"github.com/rv32i-toolkit/rvsim/insts"
)

// assembleAt encodes a tiny list of instructions directly into memory at
// base, without going through the assembler/linker pipeline. These
// tests exercise the interpreter loop itself: fetch, decode, execute,
// and the libc dispatch boundary.
func assembleAt(mem *emu.Memory, base uint32, program []insts.Instruction) {
	for i, inst := range program {
		word, err := insts.Encode(&inst)
		Expect(err).ToNot(HaveOccurred())
		Expect(mem.StoreI32(base+uint32(4*i), word)).To(Succeed())
	}
}

var _ = Describe("Interpreter", func() {
	const libcBase = 0x10000

	newRun := func(program []insts.Instruction, stdin string) (*emu.Interpreter, *bytes.Buffer) {
		mem := emu.NewMemory(1 << 20)
		assembleAt(mem, 0, program)
		icache := emu.NewICache(mem, 0, uint32(4*len(program)))
		rf := emu.NewRegisterFile(0, 100000)
		out := &bytes.Buffer{}
		dev := emu.NewDevice(out, out, out, strings.NewReader(stdin))
		libc := emu.NewLibc(libcBase, mem, dev, 0x20000, 0x30000)
		return emu.NewInterpreter(rf, mem, icache, libc, dev), out
	}

	It("adds two immediates and exits with the sum as status", func() {
		program := []insts.Instruction{
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 10, Rs1: 0, Imm: 2},
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 11, Rs1: 0, Imm: 3},
			{Op: insts.OpADD, Format: insts.FormatR, Rd: 10, Rs1: 10, Rs2: 11},
			{Op: insts.OpJAL, Format: insts.FormatJ, Rd: 1, Imm: int32(libcBase)}, // placeholder, overwritten below
		}
		mem := emu.NewMemory(1 << 20)
		assembleAt(mem, 0, program[:3])
		// jal ra, libcBase - 12 (pc-relative to the jal's own address, 12)
		jal, err := insts.Encode(&insts.Instruction{Op: insts.OpJAL, Format: insts.FormatJ, Rd: 1, Imm: int32(libcBase) - 12})
		Expect(err).ToNot(HaveOccurred())
		Expect(mem.StoreI32(12, jal)).To(Succeed())

		icache := emu.NewICache(mem, 0, 16)
		rf := emu.NewRegisterFile(0, 1000)
		out := &bytes.Buffer{}
		dev := emu.NewDevice(out, out, out, strings.NewReader(""))
		libc := emu.NewLibc(libcBase, mem, dev, 0x20000, 0x30000)
		interp := emu.NewInterpreter(rf, mem, icache, libc, dev)

		result := interp.Run()
		Expect(result.Err).ToNot(HaveOccurred())
		Expect(result.Exited).To(BeTrue())
		Expect(result.ExitCode).To(Equal(int32(5)))
	})

	It("hardwires x0 to zero even after an attempted write", func() {
		interp, _ := newRun([]insts.Instruction{
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 0, Rs1: 0, Imm: 42},
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 10, Rs1: 0, Imm: 0},
		}, "")
		_, res := interp.Step()
		Expect(res.Err).ToNot(HaveOccurred())
		_, res = interp.Step()
		Expect(res.Err).ToNot(HaveOccurred())
		Expect(interp.RegisterFile().ReadReg(10)).To(Equal(uint32(0)))
	})

	It("distinguishes signed and unsigned comparisons", func() {
		interp, _ := newRun([]insts.Instruction{
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 1, Rs1: 0, Imm: -1}, // x1 = 0xffffffff
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 2, Rs1: 0, Imm: 1},
			{Op: insts.OpSLT, Format: insts.FormatR, Rd: 3, Rs1: 1, Rs2: 2},
			{Op: insts.OpSLTU, Format: insts.FormatR, Rd: 4, Rs1: 1, Rs2: 2},
		}, "")
		for i := 0; i < 4; i++ {
			_, res := interp.Step()
			Expect(res.Err).ToNot(HaveOccurred())
		}
		Expect(interp.RegisterFile().ReadReg(3)).To(Equal(uint32(1))) // -1 < 1 signed
		Expect(interp.RegisterFile().ReadReg(4)).To(Equal(uint32(0))) // huge unsigned, not < 1
	})

	It("loops via a backward branch until a counter reaches zero", func() {
		// x1 = 3; loop: x1 -= 1; bne x1, x0, loop
		interp, _ := newRun([]insts.Instruction{
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 1, Rs1: 0, Imm: 3},
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 1, Rs1: 1, Imm: -1},
			{Op: insts.OpBNE, Format: insts.FormatB, Rs1: 1, Rs2: 0, Imm: -4},
		}, "")
		for i := 0; i < 7; i++ {
			_, res := interp.Step()
			Expect(res.Err).ToNot(HaveOccurred())
		}
		Expect(interp.RegisterFile().ReadReg(1)).To(Equal(uint32(0)))
		Expect(interp.RegisterFile().PC).To(Equal(uint32(12)))
	})

	It("traps a misaligned word load with LoadMisAligned", func() {
		interp, _ := newRun([]insts.Instruction{
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 1, Rs1: 0, Imm: 1},
			{Op: insts.OpLW, Format: insts.FormatI, Rd: 2, Rs1: 1, Imm: 0},
		}, "")
		_, res := interp.Step()
		Expect(res.Err).ToNot(HaveOccurred())
		_, res = interp.Step()
		Expect(res.Err).To(HaveOccurred())
		fault, ok := res.Err.(*emu.FailToInterpret)
		Expect(ok).To(BeTrue())
		Expect(fault.Kind).To(Equal(emu.LoadMisAligned))
	})

	It("routes a call landing in the libc sentinel range through the shim", func() {
		program := []insts.Instruction{
			{Op: insts.OpADDI, Format: insts.FormatI, Rd: 10, Rs1: 0, Imm: 'Q'},
		}
		mem := emu.NewMemory(1 << 20)
		assembleAt(mem, 0, program)
		jal, _ := insts.Encode(&insts.Instruction{Op: insts.OpJAL, Format: insts.FormatJ, Rd: 1, Imm: int32(libcBase + 4) - 4})
		Expect(mem.StoreI32(4, jal)).To(Succeed())

		icache := emu.NewICache(mem, 0, 8)
		rf := emu.NewRegisterFile(0, 1000)
		out := &bytes.Buffer{}
		dev := emu.NewDevice(out, out, out, strings.NewReader(""))
		libc := emu.NewLibc(libcBase, mem, dev, 0x20000, 0x30000)
		interp := emu.NewInterpreter(rf, mem, icache, libc, dev)

		_, res := interp.Step() // addi
		Expect(res.Err).ToNot(HaveOccurred())
		_, res = interp.Step() // jal to putchar's sentinel address
		Expect(res.Err).ToNot(HaveOccurred())
		_, res = interp.Step() // putchar runs when the sentinel PC is fetched
		Expect(res.Err).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal("Q"))
	})
})
