package asm

import "fmt"

// FailToParse is raised by the lexer/parser for any malformed line: an
// unterminated string, an unknown mnemonic or directive, a register name
// that doesn't exist, or an operand that doesn't fit any recognized
// operand form. It always carries enough source context to point a user
// at the offending line.
type FailToParse struct {
	File    string
	Line    int
	Token   string
	Message string
}

func (e *FailToParse) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s:%d: %s (near %q)", e.File, e.Line, e.Message, e.Token)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}
