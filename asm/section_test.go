package asm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Buffer", func() {
	It("pads TEXT alignment with canonical nop words", func() {
		buf := &Buffer{Kind: Text}
		buf.AppendBytes([]byte{0x13, 0, 0, 0})
		buf.AlignTo(3) // align to 8 bytes
		Expect(buf.Offset()).To(Equal(uint32(8)))
		Expect(buf.Items).To(HaveLen(2))
		Expect(buf.Items[1].Bytes).To(Equal([]byte{0x13, 0, 0, 0}))
	})

	It("advances BSS size on alignment without writing bytes", func() {
		buf := &Buffer{Kind: Bss}
		buf.AppendZero(3)
		buf.AlignTo(2) // align to 4 bytes
		Expect(buf.Size).To(Equal(uint32(4)))
		Expect(buf.Items).To(BeEmpty())
	})

	It("pads DATA/RODATA alignment with zero bytes", func() {
		buf := &Buffer{Kind: Data}
		buf.AppendBytes([]byte{1, 2, 3})
		buf.AlignTo(2) // align to 4 bytes
		Expect(buf.Offset()).To(Equal(uint32(4)))
		Expect(buf.Items[len(buf.Items)-1].Bytes).To(Equal([]byte{0}))
	})

	It("computes item size for each item kind", func() {
		wordItem := Item{Kind: ItemWord, Width: 4}
		instItem := Item{Kind: ItemInstruction}
		bytesItem := Item{Kind: ItemBytes, Bytes: []byte{1, 2}}
		Expect(wordItem.Size()).To(Equal(uint32(4)))
		Expect(instItem.Size()).To(Equal(uint32(4)))
		Expect(bytesItem.Size()).To(Equal(uint32(2)))
	})
})
