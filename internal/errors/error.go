package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryRouting  Category = "routing"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
	CategoryCompile  Category = "compile"
	CategoryAnalysis Category = "analysis"
	CategoryExport   Category = "export"
	CategoryManifest Category = "manifest"
	CategoryOffload  Category = "offload"
)

// Location represents a source code location.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// KilnError is a structured error with source location, suggestions, and documentation.
type KilnError struct {
	// Code is a unique error identifier (e.g., "E142").
	Code string

	// Category is the error type (routing, analysis, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the source code location where the error occurred.
	Location *Location

	// Context contains surrounding source code lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is code showing the correct approach.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *KilnError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *KilnError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds source location to the error.
func (e *KilnError) WithLocation(file string, line, column int) *KilnError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *KilnError) WithSuggestion(s string) *KilnError {
	e.Suggestion = s
	return e
}

// WithExample adds a code example to the error.
func (e *KilnError) WithExample(ex string) *KilnError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *KilnError) WithDetail(d string) *KilnError {
	e.Detail = d
	return e
}

// WithContext adds custom context lines to the error.
func (e *KilnError) WithContext(lines []string) *KilnError {
	e.Context = lines
	return e
}

// Wrap wraps another error.
func (e *KilnError) Wrap(err error) *KilnError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a KilnError from a registered error code.
func New(code string) *KilnError {
	template, ok := registry[code]
	if !ok {
		return &KilnError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &KilnError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new KilnError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *KilnError {
	return &KilnError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a KilnError.
func FromError(err error, code string) *KilnError {
	if err == nil {
		return nil
	}
	if ke, ok := err.(*KilnError); ok {
		return ke
	}
	return New(code).Wrap(err)
}

// IsCode reports whether err is, or wraps, a KilnError with the given code.
func IsCode(err error, code string) bool {
	var ke *KilnError
	return stderrors.As(err, &ke) && ke.Code == code
}

// listDetail renders an offending-item list as a Detail block, one item
// per line. Used by errors that must enumerate every violation at once.
func listDetail(intro string, items []string) string {
	var b strings.Builder
	b.WriteString(intro)
	for _, item := range items {
		b.WriteString("\n  - ")
		b.WriteString(item)
	}
	return b.String()
}

// NewList creates a KilnError from a registered code whose Detail enumerates
// every offending item, not just the first.
func NewList(code, intro string, items []string) *KilnError {
	return New(code).WithDetail(listDetail(intro, items))
}
