package lsp

import (
	"context"
	"strings"

	"dil/internal/ast"
	"dil/internal/config"
	"dil/internal/driver"
	"dil/internal/errors"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const diagnosticSource = "dil"

// ConvertDiagnostics transforms compiler diagnostics into LSP diagnostics.
// Suggestions and notes are folded into the message since editors show a
// single block of text per diagnostic.
func ConvertDiagnostics(errs []errors.CompilerError) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0, len(errs))

	for _, err := range errs {
		line := uint32(max(err.Position.Line-1, 0)) // 0-based
		start := uint32(max(err.Position.Column-1, 0))
		length := uint32(max(err.Length, 1))

		diagnostic := protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: start},
				End:   protocol.Position{Line: line, Character: start + length},
			},
			Severity: ptrSeverity(severity(err.Level)),
			Source:   ptrString(diagnosticSource),
			Message:  message(err),
		}
		if err.Code != "" {
			diagnostic.Code = &protocol.IntegerOrString{Value: err.Code}
		}
		diagnostics = append(diagnostics, diagnostic)
	}

	return diagnostics
}

// LoweringDiagnostics lowers every function of lib and reports the failures.
// Symbol table errors are reported at the library position.
func LoweringDiagnostics(ctx context.Context, cfg *config.Config, lib *ast.Library) []protocol.Diagnostic {
	table, err := driver.NewTable(cfg, lib)
	if err != nil {
		return ConvertDiagnostics([]errors.CompilerError{asDiagnostic(err, lib.Pos)})
	}

	report, err := driver.New(table, nil, cfg).LowerAll(ctx)
	if err != nil {
		log.Warningf("lowering aborted: %s", err)
		return nil
	}

	var errs []errors.CompilerError
	for _, res := range report.Failures() {
		errs = append(errs, asDiagnostic(res.Err, lib.Pos))
	}
	return ConvertDiagnostics(errs)
}

func asDiagnostic(err error, fallback ast.Position) errors.CompilerError {
	if lerr, ok := errors.AsLowering(err); ok {
		return lerr.Diagnostic()
	}
	return errors.NewDiagnostic("", err.Error(), fallback).Build()
}

func message(err errors.CompilerError) string {
	var b strings.Builder
	b.WriteString(err.Message)
	for _, s := range err.Suggestions {
		b.WriteString("\n")
		b.WriteString(s.Message)
	}
	for _, note := range err.Notes {
		b.WriteString("\nnote: ")
		b.WriteString(note)
	}
	if err.HelpText != "" {
		b.WriteString("\nhelp: ")
		b.WriteString(err.HelpText)
	}
	return b.String()
}

func severity(level errors.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case errors.Warning:
		return protocol.DiagnosticSeverityWarning
	case errors.Note:
		return protocol.DiagnosticSeverityInformation
	case errors.Help:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
