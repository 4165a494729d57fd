package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32i-toolkit/rvsim/emu"
)

var _ = Describe("Memory", func() {
	var mem *emu.Memory

	BeforeEach(func() {
		mem = emu.NewMemory(4096)
	})

	It("round-trips a word", func() {
		Expect(mem.StoreI32(0x100, 0xdeadbeef)).To(Succeed())
		v, err := mem.LoadU32(0x100)
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(uint32(0xdeadbeef)))
	})

	It("sign-extends a negative byte", func() {
		Expect(mem.StoreI8(0x10, 0xff)).To(Succeed())
		v, err := mem.LoadI8(0x10)
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(int32(-1)))
	})

	It("rejects a misaligned halfword load", func() {
		_, err := mem.LoadU16(0x101)
		Expect(err).To(HaveOccurred())
		var fault *emu.FailToInterpret
		Expect(err).To(BeAssignableToTypeOf(fault))
		Expect(err.(*emu.FailToInterpret).Kind).To(Equal(emu.LoadMisAligned))
	})

	It("rejects a misaligned word store", func() {
		err := mem.StoreI32(0x102, 1)
		Expect(err.(*emu.FailToInterpret).Kind).To(Equal(emu.StoreMisAligned))
	})

	It("rejects an out-of-bounds load", func() {
		_, err := mem.LoadU32(4092)
		Expect(err).ToNot(HaveOccurred())
		_, err = mem.LoadU32(4096)
		Expect(err.(*emu.FailToInterpret).Kind).To(Equal(emu.LoadOutOfBound))
	})

	It("rejects a misaligned instruction fetch", func() {
		_, err := mem.FetchCmd(2)
		Expect(err.(*emu.FailToInterpret).Kind).To(Equal(emu.InsMisAligned))
	})

	It("reads a NUL-terminated string", func() {
		Expect(mem.LoadImage(0x200, []byte("hi\x00trailing"))).To(Succeed())
		s, err := mem.CString(0x200)
		Expect(err).ToNot(HaveOccurred())
		Expect(s).To(Equal("hi"))
	})

	It("rejects an image that overruns the address space", func() {
		err := mem.LoadImage(4090, make([]byte, 16))
		Expect(err).To(HaveOccurred())
	})
})
