// diagnostics.go accumulates compiler diagnostics (errors and warnings)
// during a single compilation run and renders them the way the driver
// reports them to the user: "line:column: severity: message". A plain buffered slice
// suffices; one goroutine walks one syntax tree.

package util

import (
	"fmt"
	"strings"
)

// Severity classifies a Diagnostic as blocking compilation or merely advisory.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is one reported problem, tied to a source position.
type Diagnostic struct {
	Severity Severity
	Line     int
	Col      int
	Message  string
}

// String renders the diagnostic as "line:column: severity: message", where
// severity is "error" or "warning".
func (d Diagnostic) String() string {
	prefix := "error"
	if d.Severity == SeverityWarning {
		prefix = "warning"
	}
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Col, prefix, d.Message)
}

// Diagnostics buffers every Diagnostic reported during one compilation run.
type Diagnostics struct {
	entries []Diagnostic
}

// NewDiagnostics returns an empty diagnostics buffer with n pre-allocated slots.
func NewDiagnostics(n int) *Diagnostics {
	if n < 1 {
		n = 16
	}
	return &Diagnostics{entries: make([]Diagnostic, 0, n)}
}

// Errorf appends an error-level diagnostic at the given source position.
func (d *Diagnostics) Errorf(line, col int, format string, args ...interface{}) {
	d.entries = append(d.entries, Diagnostic{
		Severity: SeverityError,
		Line:     line,
		Col:      col,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Warnf appends a warning-level diagnostic at the given source position.
func (d *Diagnostics) Warnf(line, col int, format string, args ...interface{}) {
	d.entries = append(d.entries, Diagnostic{
		Severity: SeverityWarning,
		Line:     line,
		Col:      col,
		Message:  fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any error-level diagnostic has been recorded.
func (d *Diagnostics) HasErrors() bool {
	for _, e := range d.entries {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Len returns the total number of buffered diagnostics (errors and warnings).
func (d *Diagnostics) Len() int {
	return len(d.entries)
}

// All returns every buffered diagnostic in report order.
func (d *Diagnostics) All() []Diagnostic {
	return d.entries
}

// Error implements the error interface, rendering every buffered error-level
// diagnostic on its own line. Satisfies callers that want to treat an
// accumulated diagnostics buffer as a single Go error.
func (d *Diagnostics) Error() string {
	var sb strings.Builder
	first := true
	for _, e := range d.entries {
		if e.Severity != SeverityError {
			continue
		}
		if !first {
			sb.WriteByte('\n')
		}
		first = false
		sb.WriteString(e.String())
	}
	return sb.String()
}
