package sema

import "fmt"

// Diagnostic is one collected analysis error. Line is 0 when no source
// line applies.
type Diagnostic struct {
	Message string
	Line    int
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}
