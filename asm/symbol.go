package asm

// Visibility distinguishes a symbol visible only within its defining file
// from one promoted to the linker's global table by a .globl directive.
type Visibility uint8

const (
	Local Visibility = iota
	Global
)

// Symbol names a (section, offset) pair bound by a label or produced by
// .equ/.set. Its absolute address is known only once the linker assigns
// section.start; until then Offset is section-relative.
type Symbol struct {
	Name       string
	Section    SectionKind
	Offset     uint32
	Visibility Visibility

	// Equate is set for .equ/.set symbols: the symbol names a constant
	// expression rather than a (section, offset), and Section/Offset are
	// unused. The expression is evaluated lazily at link time so it can
	// reference symbols defined later in the file.
	Equate    bool
	EquateExp Immediate
}
