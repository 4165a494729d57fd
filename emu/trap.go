package emu

import "fmt"

// ErrorKind enumerates every run-time fault the interpreter, memory,
// decoder, or libc shim can raise. Mirrors the C++ original's
// interpreter/exception.h Error enum one-for-one.
type ErrorKind uint8

const (
	LoadMisAligned ErrorKind = iota
	LoadOutOfBound

	StoreMisAligned
	StoreOutOfBound

	InsMisAligned
	InsOutOfBound
	InsUnknown

	LibcMisAligned
	LibcOutOfBound
	LibcError

	// DivideByZero is unreachable: RV32I has no division instructions
	// (the M extension is out of scope). Kept for symmetry with the
	// original taxonomy and so a future extension has a home for it.
	DivideByZero

	NotImplemented
)

func (k ErrorKind) String() string {
	switch k {
	case LoadMisAligned:
		return "LoadMisAligned"
	case LoadOutOfBound:
		return "LoadOutOfBound"
	case StoreMisAligned:
		return "StoreMisAligned"
	case StoreOutOfBound:
		return "StoreOutOfBound"
	case InsMisAligned:
		return "InsMisAligned"
	case InsOutOfBound:
		return "InsOutOfBound"
	case InsUnknown:
		return "InsUnknown"
	case LibcMisAligned:
		return "LibcMisAligned"
	case LibcOutOfBound:
		return "LibcOutOfBound"
	case LibcError:
		return "LibcError"
	case DivideByZero:
		return "DivideByZero"
	case NotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// FailToInterpret is the single run-time trap type. It carries enough
// context (address, alignment/width, libc index, message) to render a
// diagnostic naming the guest PC and the faulting register state.
type FailToInterpret struct {
	Kind ErrorKind

	// Address is the faulting address, when applicable.
	Address uint32
	// Width is the access width in bytes, when applicable.
	Width uint32
	// LibcIndex identifies the libc routine, for Libc* kinds.
	LibcIndex int
	// Message is an optional free-form detail (e.g. decoder/libc errors).
	Message string
}

func (e *FailToInterpret) Error() string {
	switch e.Kind {
	case LoadMisAligned, StoreMisAligned, InsMisAligned:
		return fmt.Sprintf("%s: address 0x%08x is not aligned to %d bytes", e.Kind, e.Address, e.Width)
	case LoadOutOfBound, StoreOutOfBound, InsOutOfBound:
		return fmt.Sprintf("%s: address 0x%08x (width %d) is out of bounds", e.Kind, e.Address, e.Width)
	case InsUnknown:
		return fmt.Sprintf("%s: no RV32I encoding matches the word at 0x%08x", e.Kind, e.Address)
	case LibcMisAligned, LibcOutOfBound, LibcError:
		if e.Message != "" {
			return fmt.Sprintf("%s (libc index %d): %s", e.Kind, e.LibcIndex, e.Message)
		}
		return fmt.Sprintf("%s (libc index %d)", e.Kind, e.LibcIndex)
	default:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Message)
		}
		return e.Kind.String()
	}
}

// What renders a full diagnostic naming the guest PC and register state,
// for printing to the panic sink at the interpreter loop boundary.
func (e *FailToInterpret) What(rf *RegisterFile) string {
	return fmt.Sprintf("fatal: %s\n  at guest pc = 0x%08x, retired %d instructions",
		e.Error(), rf.PC, rf.Steps())
}

// Unreachable denotes an impossible internal state. It panics with a
// distinctive prefix; tests should never provoke it.
func Unreachable(format string, args ...any) {
	panic("unreachable: " + fmt.Sprintf(format, args...))
}
