// Package link combines one or more assembled files into a single flat
// memory image: it collects symbols into a global table, lays out the
// four sections back to back, resolves every immediate expression
// (including the PC-relative %hi/%lo/%pcrel_hi/%pcrel_lo forms), encodes
// every instruction, and validates the result before handing it to the
// interpreter.
package link

import "fmt"

// UnknownSymbol is raised when an immediate expression references a name
// present in neither the local nor the global symbol table.
type UnknownSymbol struct {
	Name string
	File string
	Line int
}

func (e *UnknownSymbol) Error() string {
	return fmt.Sprintf("%s:%d: unknown symbol %q", e.File, e.Line, e.Name)
}

// DuplicateGlobal is raised when two files declare .globl on the same
// name, or a name is defined more than once within the global table.
type DuplicateGlobal struct {
	Name      string
	FirstFile string
	SecondFile string
}

func (e *DuplicateGlobal) Error() string {
	return fmt.Sprintf("duplicate global symbol %q (defined in %s and %s)", e.Name, e.FirstFile, e.SecondFile)
}

// ImmediateOutOfRange is raised when a resolved immediate does not fit
// the field width the instruction format allows.
type ImmediateOutOfRange struct {
	File  string
	Line  int
	Op    string
	Value int32
}

func (e *ImmediateOutOfRange) Error() string {
	return fmt.Sprintf("%s:%d: immediate %d out of range for %s", e.File, e.Line, e.Value, e.Op)
}

// UnalignedBranchTarget is raised when a branch or jump's resolved offset
// is not a multiple of two bytes.
type UnalignedBranchTarget struct {
	File   string
	Line   int
	Offset int32
}

func (e *UnalignedBranchTarget) Error() string {
	return fmt.Sprintf("%s:%d: branch target offset %d is not 2-byte aligned", e.File, e.Line, e.Offset)
}

// SectionOverlap is raised when two sections' assigned address ranges
// intersect, which should never happen given the fixed TEXT<DATA<RODATA<
// BSS layout order but is checked defensively.
type SectionOverlap struct {
	A, B           string
	AStart, AEnd   uint32
	BStart, BEnd   uint32
}

func (e *SectionOverlap) Error() string {
	return fmt.Sprintf("section %s [0x%x,0x%x) overlaps section %s [0x%x,0x%x)",
		e.A, e.AStart, e.AEnd, e.B, e.BStart, e.BEnd)
}

// MissingEntry is raised when the required entry symbol (main) is absent
// from the global table.
type MissingEntry struct {
	Name string
}

func (e *MissingEntry) Error() string {
	return fmt.Sprintf("missing required entry symbol %q", e.Name)
}
