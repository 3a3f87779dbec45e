package errors

import (
	"fmt"
	"strings"

	"dil/internal/ast"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of an error
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// CompilerError represents a structured diagnostic with suggestions and context
type CompilerError struct {
	Level       ErrorLevel
	Code        string       // Error code like E0200
	Message     string       // Primary error message
	Position    ast.Position // Location in source
	Length      int          // Length of the problematic region
	Suggestions []Suggestion // Suggested fixes
	Notes       []string     // Additional context notes
	HelpText    string       // Help text for the error
}

func (e CompilerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s: %s", e.Position, e.Level, e.Message)
	}
	return fmt.Sprintf("%s: %s[%s]: %s", e.Position, e.Level, e.Code, e.Message)
}

// Suggestion represents a suggested fix
type Suggestion struct {
	Message     string
	Replacement string
}

// DiagnosticBuilder provides a fluent interface for assembling a CompilerError
type DiagnosticBuilder struct {
	err CompilerError
}

// NewDiagnostic starts an error-level diagnostic
func NewDiagnostic(code, message string, pos ast.Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

func (b *DiagnosticBuilder) WithLevel(level ErrorLevel) *DiagnosticBuilder {
	b.err.Level = level
	return b
}

func (b *DiagnosticBuilder) WithLength(length int) *DiagnosticBuilder {
	b.err.Length = length
	return b
}

func (b *DiagnosticBuilder) WithSuggestion(message string) *DiagnosticBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

func (b *DiagnosticBuilder) WithReplacement(message, replacement string) *DiagnosticBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message, Replacement: replacement})
	return b
}

func (b *DiagnosticBuilder) WithNote(note string) *DiagnosticBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *DiagnosticBuilder) WithHelp(help string) *DiagnosticBuilder {
	b.err.HelpText = help
	return b
}

func (b *DiagnosticBuilder) Build() CompilerError {
	return b.err
}

// ErrorReporter renders diagnostics against the source they refer to
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a new error reporter for a file
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// Report formats any error: CompilerErrors and LoweringErrors get source
// context, anything else is printed as a bare message.
func (er *ErrorReporter) Report(err error) string {
	switch e := err.(type) {
	case CompilerError:
		return er.FormatError(e)
	case *LoweringError:
		return er.FormatError(e.Diagnostic())
	default:
		return er.FormatError(CompilerError{Level: Error, Message: err.Error()})
	}
}

// FormatError formats a diagnostic with a source excerpt and caret marker
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var result strings.Builder

	levelColor := levelColor(err.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if err.Code != "" {
		result.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(string(err.Level)), err.Code, err.Message))
	} else {
		result.WriteString(fmt.Sprintf("%s: %s\n", levelColor(string(err.Level)), err.Message))
	}

	line := err.Position.Line
	width := lineNumberWidth(line)
	pad := strings.Repeat(" ", width)

	if line > 0 {
		result.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n", pad, dim("-->"), er.filename, line, err.Position.Column))
		result.WriteString(fmt.Sprintf("%s %s\n", pad, dim("|")))

		if line <= len(er.lines) {
			result.WriteString(fmt.Sprintf("%s %s %s\n", bold(fmt.Sprintf("%*d", width, line)), dim("|"), er.lines[line-1]))
			result.WriteString(fmt.Sprintf("%s %s %s\n", pad, dim("|"), marker(err.Position.Column, err.Length, levelColor)))
		}
	}

	for i, suggestion := range err.Suggestions {
		cyan := color.New(color.FgCyan).SprintFunc()
		if i == 0 {
			result.WriteString(fmt.Sprintf("%s %s: %s\n", pad, cyan("help"), suggestion.Message))
		} else {
			result.WriteString(fmt.Sprintf("%s       %s\n", pad, suggestion.Message))
		}
		if suggestion.Replacement != "" {
			result.WriteString(fmt.Sprintf("%s %s %s\n", pad, cyan("|"), cyan(suggestion.Replacement)))
		}
	}

	for _, note := range err.Notes {
		result.WriteString(fmt.Sprintf("%s %s %s %s\n", pad, dim("="), color.New(color.FgBlue).Sprint("note:"), note))
	}

	if err.HelpText != "" {
		result.WriteString(fmt.Sprintf("%s %s %s %s\n", pad, dim("="), color.New(color.FgGreen).Sprint("help:"), err.HelpText))
	}

	result.WriteString("\n")
	return result.String()
}

func levelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

func marker(column, length int, paint func(...interface{}) string) string {
	if length <= 0 {
		length = 1
	}
	return strings.Repeat(" ", max(0, column-1)) + paint(strings.Repeat("^", length))
}

func lineNumberWidth(line int) int {
	return max(3, len(fmt.Sprintf("%d", line)))
}
