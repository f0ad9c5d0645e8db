// Package diagnostic provides error reporting for the resolver and the
// transform pipeline.
//
// User-facing problems (invalid shaders, bad pass configuration) are
// accumulated in a DiagnosticList and travel with the program that
// produced them. Broken invariants between compiler stages are raised as
// internal compiler errors with ICE.
package diagnostic

import (
	"fmt"
	"strings"
)

type Severity uint8

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	}
	return "unknown"
}

// Position is a point in the source. Line and Column start at 1.
type Position struct {
	Offset int
	Line   int
	Column int
}

type Range struct {
	Start, End Position
}

// Diagnostic is one message about the source or the pipeline
// configuration.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	Range    Range
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Range.Start.Line, d.Range.Start.Column, d.Severity, d.Message)
}

// DiagnosticList collects diagnostics against one source text.
type DiagnosticList struct {
	diagnostics []Diagnostic
	lines       *LineIndex
	errors      int
}

func NewDiagnosticList(source string) *DiagnosticList {
	return &DiagnosticList{lines: NewLineIndex(source)}
}

// Append copies the diagnostics of other into dl, keeping their ranges.
func (dl *DiagnosticList) Append(other *DiagnosticList) {
	if other == nil {
		return
	}
	for _, d := range other.diagnostics {
		dl.Add(d)
	}
}

func (dl *DiagnosticList) Add(d Diagnostic) {
	dl.diagnostics = append(dl.diagnostics, d)
	if d.Severity == Error {
		dl.errors++
	}
}

// AddError adds an uncoded error at the byte offset.
func (dl *DiagnosticList) AddError(offset int, message string) {
	dl.Add(Diagnostic{Severity: Error, Message: message, Range: dl.rangeAt(offset)})
}

// AddErrorWithCode adds an error with a code at the byte offset.
func (dl *DiagnosticList) AddErrorWithCode(offset int, code DiagnosticCode, message string) {
	dl.Add(Diagnostic{Severity: Error, Code: string(code), Message: message, Range: dl.rangeAt(offset)})
}

func (dl *DiagnosticList) Errorf(offset int, code DiagnosticCode, format string, args ...any) {
	dl.AddErrorWithCode(offset, code, fmt.Sprintf(format, args...))
}

func (dl *DiagnosticList) position(offset int) Position {
	line, col := dl.lines.ByteOffsetToLineColumn(offset)
	return Position{Offset: offset, Line: line + 1, Column: col + 1}
}

func (dl *DiagnosticList) rangeAt(offset int) Range {
	return Range{Start: dl.position(offset), End: dl.position(offset + 1)}
}

func (dl *DiagnosticList) HasErrors() bool           { return dl.errors > 0 }
func (dl *DiagnosticList) ErrorCount() int           { return dl.errors }
func (dl *DiagnosticList) Count() int                { return len(dl.diagnostics) }
func (dl *DiagnosticList) Diagnostics() []Diagnostic { return dl.diagnostics }

// Errors returns the error-level diagnostics.
func (dl *DiagnosticList) Errors() []Diagnostic {
	var errs []Diagnostic
	for _, d := range dl.diagnostics {
		if d.Severity == Error {
			errs = append(errs, d)
		}
	}
	return errs
}

// Format renders every diagnostic with the source line it points at:
//
//	2:9: error: undefined 'y' [E0100]
//	    let x = y;
//	            ^
func (dl *DiagnosticList) Format() string {
	var sb strings.Builder
	for _, d := range dl.diagnostics {
		fmt.Fprintf(&sb, "%s", d.Error())
		if d.Code != "" {
			fmt.Fprintf(&sb, " [%s]", d.Code)
		}
		sb.WriteByte('\n')
		if text := dl.lines.Line(d.Range.Start.Line - 1); text != "" {
			fmt.Fprintf(&sb, "    %s\n    %s^\n", text, strings.Repeat(" ", d.Range.Start.Column-1))
		}
	}
	return sb.String()
}

// DiagnosticCode identifies a class of diagnostic. The hundreds digit
// names the stage that reports it.
type DiagnosticCode string

// Parser
const (
	CodeUnexpectedToken DiagnosticCode = "E0001"
	CodeInvalidNumber   DiagnosticCode = "E0003"
)

// Name resolution
const (
	CodeUndefinedSymbol   DiagnosticCode = "E0100"
	CodeDuplicateSymbol   DiagnosticCode = "E0101"
	CodeRecursiveFunction DiagnosticCode = "E0103"
	CodeRecursiveType     DiagnosticCode = "E0104"
)

// Expressions and statements
const (
	CodeTypeMismatch      DiagnosticCode = "E0200"
	CodeInvalidOperand    DiagnosticCode = "E0201"
	CodeInvalidArgCount   DiagnosticCode = "E0202"
	CodeInvalidArgType    DiagnosticCode = "E0203"
	CodeNotCallable       DiagnosticCode = "E0204"
	CodeNotIndexable      DiagnosticCode = "E0205"
	CodeNoSuchMember      DiagnosticCode = "E0206"
	CodeInvalidReturn     DiagnosticCode = "E0207"
	CodeMissingReturn     DiagnosticCode = "E0208"
	CodeUnusedValue       DiagnosticCode = "E0209"
	CodeInvalidAssignment DiagnosticCode = "E0210"

	CodeBreakOutsideLoop    DiagnosticCode = "E0500"
	CodeContinueOutsideLoop DiagnosticCode = "E0501"
)

// Declarations
const (
	CodeMissingInitializer  DiagnosticCode = "E0300"
	CodeInvalidInitializer  DiagnosticCode = "E0301"
	CodeInvalidConstExpr    DiagnosticCode = "E0302"
	CodeInvalidOverride     DiagnosticCode = "E0303"
	CodeInvalidAddressSpace DiagnosticCode = "E0304"

	CodeMissingAttribute  DiagnosticCode = "E0402"
	CodeInvalidEntryPoint DiagnosticCode = "E0600"

	CodeInvalidWorkgroupVar DiagnosticCode = "E0800"
	CodeInvalidStorageVar   DiagnosticCode = "E0801"
	CodeMissingBinding      DiagnosticCode = "E0803"
)

// Transform configuration
const (
	CodeMissingTransformData DiagnosticCode = "E0900"
	CodeInvalidTransformData DiagnosticCode = "E0901"
)
