package link

import "github.com/rv32i-toolkit/rvsim/asm"

// Bases gives the starting address of each of the four output sections.
// Defaults are deterministic and generously spaced so a small program
// never spills one section into the next regardless of exact sizes.
type Bases struct {
	Text   uint32
	Data   uint32
	Rodata uint32
	Bss    uint32
}

// DefaultBases returns the toolchain's default section layout.
func DefaultBases() Bases {
	return Bases{Text: 0x10000, Data: 0x20000, Rodata: 0x30000, Bss: 0x40000}
}

// sectionSpan is one file's contribution to a section: where it starts
// (absolute address) within that section's concatenated layout.
type sectionSpan struct {
	file  *asm.File
	start uint32
}

// image is the linker's fully laid-out, but not yet immediate-resolved,
// view of the program: absolute section starts, per-file per-section
// spans, and the merged symbol tables every immediate is evaluated
// against.
type image struct {
	bases Bases

	textSpans, dataSpans, rodataSpans, bssSpans []sectionSpan
	textSize, dataSize, rodataSize, bssSize     uint32

	global map[string]*resolvedSymbol
	// locals is keyed by file, since two files may each define a local
	// symbol of the same name shadowing the global of that name only
	// within their own file.
	locals map[*asm.File]map[string]*resolvedSymbol
}

// layoutSections lays out every file's sections and seeds img.global with
// externs: predefined addresses (the libc shim's sentinel table) that
// resolve like any other global symbol without any file having to define
// them.
func layoutSections(files []*asm.File, bases Bases, externs map[string]uint32) *image {
	img := &image{
		bases:  bases,
		global: make(map[string]*resolvedSymbol),
		locals: make(map[*asm.File]map[string]*resolvedSymbol),
	}
	for name, addr := range externs {
		img.global[name] = &resolvedSymbol{Address: addr, File: "<builtin>"}
	}

	var textOff, dataOff, rodataOff, bssOff uint32
	for _, f := range files {
		img.textSpans = append(img.textSpans, sectionSpan{f, bases.Text + textOff})
		textOff += f.Text.Offset()
		img.dataSpans = append(img.dataSpans, sectionSpan{f, bases.Data + dataOff})
		dataOff += f.Data.Offset()
		img.rodataSpans = append(img.rodataSpans, sectionSpan{f, bases.Rodata + rodataOff})
		rodataOff += f.Rodata.Offset()
		img.bssSpans = append(img.bssSpans, sectionSpan{f, bases.Bss + bssOff})
		bssOff += f.Bss.Offset()
	}
	img.textSize, img.dataSize, img.rodataSize, img.bssSize = textOff, dataOff, rodataOff, bssOff

	for i, f := range files {
		img.locals[f] = map[string]*resolvedSymbol{}
		for name, sym := range f.Locals {
			if sym.Equate {
				continue
			}
			img.locals[f][name] = &resolvedSymbol{
				Address: img.spanStart(f, sym.Section, i) + sym.Offset,
			}
		}
	}
	return img
}

func (img *image) spanStart(f *asm.File, section asm.SectionKind, index int) uint32 {
	switch section {
	case asm.Text:
		return img.textSpans[index].start
	case asm.Data:
		return img.dataSpans[index].start
	case asm.Rodata:
		return img.rodataSpans[index].start
	case asm.Bss:
		return img.bssSpans[index].start
	default:
		return 0
	}
}

// resolveEquates evaluates every file's .equ symbols in dependency order,
// re-trying the worklist until it stops making progress; a name still
// unresolved at that point is either genuinely unknown or part of a
// cycle, either of which is reported as UnknownSymbol.
func resolveEquates(files []*asm.File, img *image) error {
	pending := make(map[*asm.File][]string)
	for _, f := range files {
		for name, sym := range f.Locals {
			if sym.Equate {
				pending[f] = append(pending[f], name)
			}
		}
	}

	for progress := true; progress; {
		progress = false
		for _, f := range files {
			remaining := pending[f][:0]
			for _, name := range pending[f] {
				sym := f.Locals[name]
				ev := NewEvaluator(img.global, img.locals[f], 0, nil, f.Name, 0)
				v, err := ev.Eval(sym.EquateExp)
				if err != nil {
					remaining = append(remaining, name)
					continue
				}
				img.locals[f][name] = &resolvedSymbol{Equate: true, Value: v}
				progress = true
			}
			pending[f] = remaining
		}
	}

	for _, f := range files {
		if len(pending[f]) > 0 {
			return &UnknownSymbol{Name: pending[f][0], File: f.Name}
		}
	}
	return nil
}

// collectGlobals promotes each file's .globl names into the shared global
// table, failing if the name isn't locally defined or was already
// promoted by another file (or already reserved by an extern, e.g. a
// libc routine name).
func collectGlobals(files []*asm.File, img *image) error {
	firstFile := make(map[string]string)
	for name, sym := range img.global {
		firstFile[name] = sym.File
	}
	for _, f := range files {
		for name := range f.Globals {
			local, ok := img.locals[f][name]
			if !ok {
				return &UnknownSymbol{Name: name, File: f.Name}
			}
			if prev, dup := firstFile[name]; dup {
				return &DuplicateGlobal{Name: name, FirstFile: prev, SecondFile: f.Name}
			}
			firstFile[name] = f.Name
			img.global[name] = local
		}
	}
	return nil
}
