package link

import "github.com/rv32i-toolkit/rvsim/asm"

// Image is the linker's final output: fully resolved and encoded section
// bytes, ready to be copied into interpreter memory, plus the global
// symbol table (the "position table" spec.md's memory model refers to).
type Image struct {
	Bases Bases

	Text, Data, Rodata []byte
	BssSize            uint32

	// Symbols maps every global (non-equate) symbol to its absolute
	// address, seeding the interpreter's entry point (Symbols["main"]).
	Symbols map[string]uint32
}

// Link assembles the files' independent section buffers into one program:
// section layout, symbol collection, immediate resolution, encoding, and
// validation, in that order, per spec.md's linker steps. externs seeds the
// global symbol table with predefined addresses (the libc shim's routine
// table) so guest code can call them without any file defining them; pass
// nil for a program that only exercises its own symbols.
func Link(files []*asm.File, bases Bases, externs map[string]uint32) (*Image, error) {
	img := layoutSections(files, bases, externs)

	if err := resolveEquates(files, img); err != nil {
		return nil, err
	}
	if err := collectGlobals(files, img); err != nil {
		return nil, err
	}

	instAt := buildInstAt(files, img)

	text := make([]byte, img.textSize)
	if err := encodeText(files, img, instAt, text); err != nil {
		return nil, err
	}

	data := make([]byte, img.dataSize)
	if err := encodeData(files, img.dataSpans, img, img.dataSize, asm.Data, data); err != nil {
		return nil, err
	}

	rodata := make([]byte, img.rodataSize)
	if err := encodeData(files, img.rodataSpans, img, img.rodataSize, asm.Rodata, rodata); err != nil {
		return nil, err
	}

	if err := validateNoOverlap(img); err != nil {
		return nil, err
	}

	entry, ok := img.global["main"]
	if !ok || entry.Equate {
		return nil, &MissingEntry{Name: "main"}
	}

	symbols := make(map[string]uint32, len(img.global))
	for name, sym := range img.global {
		if !sym.Equate {
			symbols[name] = sym.Address
		}
	}

	return &Image{
		Bases:   bases,
		Text:    text,
		Data:    data,
		Rodata:  rodata,
		BssSize: img.bssSize,
		Symbols: symbols,
	}, nil
}

type namedRange struct {
	name       string
	start, end uint32
}

// validateNoOverlap checks the four fixed-base sections don't intersect.
// With independent bases this can only happen if a caller supplies
// SectionBases too close together for the program's actual size.
func validateNoOverlap(img *image) error {
	ranges := []namedRange{
		{".text", img.bases.Text, img.bases.Text + img.textSize},
		{".data", img.bases.Data, img.bases.Data + img.dataSize},
		{".rodata", img.bases.Rodata, img.bases.Rodata + img.rodataSize},
		{".bss", img.bases.Bss, img.bases.Bss + img.bssSize},
	}
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if a.start < b.end && b.start < a.end {
				return &SectionOverlap{A: a.name, AStart: a.start, AEnd: a.end, B: b.name, BStart: b.start, BEnd: b.end}
			}
		}
	}
	return nil
}
