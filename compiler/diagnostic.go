package compiler

import "fmt"

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "unknown"
}

// Diagnostic is a problem found while assembling. Warnings describe lines
// that were recovered as noop.
type Diagnostic struct {
	Line     int
	Column   int
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Severity, d.Message)
}

// CompileError is a structural assembly failure. No program is produced.
type CompileError struct {
	Line   int // 0 when the failure is not tied to a line
	Column int
	Msg    string
}

func (e *CompileError) Error() string {
	if e.Line == 0 {
		return "compile error: " + e.Msg
	}
	return fmt.Sprintf("compile error at line %d: %s", e.Line, e.Msg)
}

// Diagnostic returns the error as an error-severity diagnostic.
func (e *CompileError) Diagnostic() Diagnostic {
	return Diagnostic{Line: e.Line, Column: e.Column, Severity: SeverityError, Message: e.Msg}
}
