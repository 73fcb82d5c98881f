package translate

import "fmt"

// Stages of the translation pass, as reported by Error.
const (
	StageParse        = "parse"
	StageMacros       = "macros"
	StageDeclarations = "declarations"
	StageTypes        = "types"
	StageFormat       = "format"
)

// Error is a translation failure. Decl names the C declaration involved, if any.
type Error struct {
	Stage string
	Decl  string
	Err   error
}

func (e *Error) Error() string {
	if e.Decl == "" {
		return fmt.Sprintf("translate (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("translate (%s) %s: %v", e.Stage, e.Decl, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UnsupportedTypeError reports a C type with no Go representation.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("type %s has no Go representation", e.Type)
}
