package link

// resolvedSymbol is a symbol once its section has been assigned a base
// address (or, for a .equ symbol, once its constant expression has been
// evaluated).
type resolvedSymbol struct {
	Address uint32
	Equate  bool
	Value   int32

	// File and Line identify the symbol's definition for error messages.
	File string
	Line int
}
