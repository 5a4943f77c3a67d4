package diagnostic

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic message
type Severity int

const (
	Error Severity = iota
	Warning
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is one problem found while parsing Pets text or reading a bundle
type Diagnostic struct {
	Severity Severity
	Message  string
	Line     int    // zero when the problem has no position
	Column   int
	Source   string // bundle file or other origin; optional
	Hint     string // optional suggestion
}

// String renders `error[source:3:10]: message`
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	var loc []string
	if d.Source != "" {
		loc = append(loc, d.Source)
	}
	if d.Line > 0 {
		loc = append(loc, fmt.Sprintf("%d:%d", d.Line, d.Column))
	}
	if len(loc) > 0 {
		b.WriteString("[" + strings.Join(loc, ":") + "]")
	}
	b.WriteString(": " + d.Message)
	if d.Hint != "" {
		b.WriteString("\n  hint: " + d.Hint)
	}
	return b.String()
}

// Diagnostics manages a collection of diagnostic messages
type Diagnostics struct {
	items []Diagnostic
}

// New creates a new empty Diagnostics collection
func New() *Diagnostics {
	return &Diagnostics{}
}

// Add appends a fully built diagnostic
func (d *Diagnostics) Add(item Diagnostic) {
	d.items = append(d.items, item)
}

// Errorf adds a positioned error
func (d *Diagnostics) Errorf(line, col int, format string, args ...any) {
	d.Add(Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), Line: line, Column: col})
}

// Warningf adds a positioned warning
func (d *Diagnostics) Warningf(line, col int, format string, args ...any) {
	d.Add(Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), Line: line, Column: col})
}

// ErrorInSource adds an error attributed to a source without a position
func (d *Diagnostics) ErrorInSource(source string, err error) {
	d.Add(Diagnostic{Severity: Error, Message: err.Error(), Source: source})
}

// WarningInSource adds a warning attributed to a source without a position
func (d *Diagnostics) WarningInSource(source, format string, args ...any) {
	d.Add(Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), Source: source})
}

// ErrorWithHint adds an error diagnostic with a suggestion
func (d *Diagnostics) ErrorWithHint(line, col int, msg, hint string) {
	d.Add(Diagnostic{Severity: Error, Message: msg, Line: line, Column: col, Hint: hint})
}

// Merge appends other's items, attributing unattributed ones to source
func (d *Diagnostics) Merge(source string, other *Diagnostics) {
	for _, item := range other.items {
		if item.Source == "" {
			item.Source = source
		}
		d.items = append(d.items, item)
	}
}

// HasErrors returns true if there are any error-level diagnostics
func (d *Diagnostics) HasErrors() bool {
	return d.ErrorCount() > 0
}

// Errors returns only the error-level diagnostics
func (d *Diagnostics) Errors() []Diagnostic {
	var errs []Diagnostic
	for _, item := range d.items {
		if item.Severity == Error {
			errs = append(errs, item)
		}
	}
	return errs
}

// All returns all diagnostics regardless of severity
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// ErrorCount returns the number of error-level diagnostics
func (d *Diagnostics) ErrorCount() int {
	return len(d.Errors())
}

// Format returns one rendered diagnostic per line
func (d *Diagnostics) Format() string {
	lines := make([]string, len(d.items))
	for i, item := range d.items {
		lines[i] = item.String()
	}
	return strings.Join(lines, "\n")
}

// Err returns nil when there are no errors, otherwise an error describing all of them
func (d *Diagnostics) Err() error {
	errs := d.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &ListError{Items: errs}
}

// ListError carries error-level diagnostics as a Go error
type ListError struct {
	Items []Diagnostic
}

func (e *ListError) Error() string {
	if len(e.Items) == 1 {
		return e.Items[0].String()
	}
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = item.String()
	}
	return fmt.Sprintf("%d errors:\n%s", len(e.Items), strings.Join(parts, "\n"))
}
