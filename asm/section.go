package asm

// SectionKind is one of the four output sections. Sections are laid out
// non-overlapping in this order: text < data < rodata < bss.
type SectionKind uint8

const (
	Text SectionKind = iota
	Data
	Rodata
	Bss
)

func (k SectionKind) String() string {
	switch k {
	case Text:
		return ".text"
	case Data:
		return ".data"
	case Rodata:
		return ".rodata"
	case Bss:
		return ".bss"
	default:
		return ".?"
	}
}

// ItemKind discriminates the three shapes a section item can take: a
// fixed byte run whose value is already known, a deferred fixed-width
// value that needs an immediate evaluated at link time, or a pending
// instruction awaiting encoding.
type ItemKind uint8

const (
	ItemBytes ItemKind = iota
	ItemWord
	ItemInstruction
)

// Item is one entry of a section's content list. Its byte width is fixed
// at assembly time even when its value is not, so the location counter
// advances deterministically without needing to resolve any symbol.
type Item struct {
	Kind ItemKind

	// Bytes holds the literal content for ItemBytes.
	Bytes []byte

	// Width and Value describe an ItemWord: Width is 1, 2, or 4 bytes,
	// Value is the (possibly symbolic) expression to store little-endian.
	Width uint32
	Value Immediate

	// Inst describes an ItemInstruction.
	Inst *Instruction

	Line int
}

// Size reports how many bytes this item occupies in its section.
func (it *Item) Size() uint32 {
	switch it.Kind {
	case ItemBytes:
		return uint32(len(it.Bytes))
	case ItemWord:
		return it.Width
	case ItemInstruction:
		return 4
	default:
		return 0
	}
}

// Buffer accumulates one section's items (or, for Bss, just a running
// size) plus the strictest alignment any directive has requested.
type Buffer struct {
	Kind  SectionKind
	Items []Item

	// Size tracks Bss's reserved byte count; Bss carries no Items since it
	// stores no bytes, only size, per the data model.
	Size uint32

	Align uint32
}

// Offset returns the buffer's current location-counter value.
func (b *Buffer) Offset() uint32 {
	if b.Kind == Bss {
		return b.Size
	}
	var total uint32
	for i := range b.Items {
		total += b.Items[i].Size()
	}
	return total
}

func (b *Buffer) requireAlign(bytes uint32) {
	if bytes > b.Align {
		b.Align = bytes
	}
}

// AlignTo pads the buffer to a 2^n byte boundary. In Text, padding uses
// the canonical nop encoding (0x00000013) so a fetch that lands in pad
// bytes still decodes to something sane; other sections pad with zero.
// In Bss, per the Open Question decision recorded in DESIGN.md, alignment
// advances the size counter but writes no bytes.
func (b *Buffer) AlignTo(n uint32) {
	align := uint32(1) << n
	b.requireAlign(align)
	if b.Kind == Bss {
		b.Size = alignUp(b.Size, align)
		return
	}
	cur := b.Offset()
	target := alignUp(cur, align)
	pad := target - cur
	if pad == 0 {
		return
	}
	if b.Kind == Text {
		nops := pad / 4
		for i := uint32(0); i < nops; i++ {
			b.Items = append(b.Items, Item{Kind: ItemBytes, Bytes: []byte{0x13, 0, 0, 0}})
		}
		if rem := pad % 4; rem != 0 {
			b.Items = append(b.Items, Item{Kind: ItemBytes, Bytes: make([]byte, rem)})
		}
		return
	}
	b.Items = append(b.Items, Item{Kind: ItemBytes, Bytes: make([]byte, pad)})
}

func alignUp(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// AppendBytes appends a literal, fully-resolved byte run.
func (b *Buffer) AppendBytes(data []byte) {
	if b.Kind == Bss {
		b.Size += uint32(len(data))
		return
	}
	b.Items = append(b.Items, Item{Kind: ItemBytes, Bytes: data})
}

// AppendZero reserves n zero bytes, written eagerly outside Bss and
// tracked as pure size inside it.
func (b *Buffer) AppendZero(n uint32) {
	if b.Kind == Bss {
		b.Size += n
		return
	}
	b.Items = append(b.Items, Item{Kind: ItemBytes, Bytes: make([]byte, n)})
}

// AppendWord reserves width bytes for a value resolved at link time.
func (b *Buffer) AppendWord(width uint32, value Immediate, line int) {
	b.Items = append(b.Items, Item{Kind: ItemWord, Width: width, Value: value, Line: line})
}

// AppendInstruction reserves one 4-byte instruction slot.
func (b *Buffer) AppendInstruction(inst *Instruction, line int) {
	b.Items = append(b.Items, Item{Kind: ItemInstruction, Inst: inst, Line: line})
}
