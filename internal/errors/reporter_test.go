package errors

import (
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dil/internal/ast"
)

func init() {
	color.NoColor = true
}

func TestErrorReporterFormatsLoweringError(t *testing.T) {
	source := `procedure main() {
  return ::prnt("hi");
}`

	reporter := NewErrorReporter("main.dil", source)

	err := New(UnresolvedSymbol, ast.Position{Line: 2, Column: 10}, "no function '::prnt'")
	err.Function = "::main"
	err.Similar = []string{"print"}

	formatted := reporter.Report(err)

	assert.Contains(t, formatted, "error["+ErrorUnresolvedSymbol+"]: no function '::prnt'")
	assert.Contains(t, formatted, "main.dil:2:10")
	assert.Contains(t, formatted, `return ::prnt("hi");`)
	assert.Contains(t, formatted, "         ^")
	assert.Contains(t, formatted, "did you mean 'print'?")
	assert.Contains(t, formatted, "while lowering '::main'")
}

func TestReportPlainError(t *testing.T) {
	reporter := NewErrorReporter("x.dil", "")
	formatted := reporter.Report(fmt.Errorf("boom"))
	assert.Contains(t, formatted, "error: boom")
	assert.NotContains(t, formatted, "-->")
}

func TestFatalAndRecover(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Fatal(NotAConstant, ast.Position{Line: 3, Column: 1}, "'%s' is not constant", "x")
		return nil
	}

	err := run()
	require.Error(t, err)
	le, ok := AsLowering(err)
	require.True(t, ok)
	assert.Equal(t, NotAConstant, le.Kind)
	assert.Equal(t, ErrorNotAConstant, le.Code)
	assert.Equal(t, "3:1: not a constant: 'x' is not constant", le.Error())
}

func TestRecoverPropagatesForeignPanics(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		panic("not ours")
	}

	assert.PanicsWithValue(t, "not ours", func() { _ = run() })
}

func TestWithFunctionKeepsFirstTag(t *testing.T) {
	err := New(MalformedIR, ast.Position{}, "bad")
	WithFunction(err, "inner")
	WithFunction(err, "outer")
	assert.Equal(t, "inner", err.Function)
	assert.Equal(t, "malformed IR: bad (in inner)", err.Error())
}

func TestDiagnosticHelpPerKind(t *testing.T) {
	tests := []struct {
		kind Kind
		help string
	}{
		{NotAConstant, "constant expressions"},
		{InvalidConstantConstructor, "constant expressions"},
		{UnsupportedConstruct, "no lowering"},
		{UnresolvedSymbol, "manifests"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			diag := New(tt.kind, ast.Position{}, "msg").Diagnostic()
			assert.Equal(t, tt.kind.Code(), diag.Code)
			assert.Contains(t, diag.HelpText, tt.help)
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("abc", "abc"))
	assert.Equal(t, 1, levenshteinDistance("abc", "abd"))
	assert.Equal(t, 3, levenshteinDistance("", "abc"))
	assert.Equal(t, 2, levenshteinDistance("print", "prnit"))
}

func TestFindSimilarNames(t *testing.T) {
	similar := FindSimilarNames("prnt", []string{"print", "parse", "pr", "prnt"})
	assert.Equal(t, []string{"print"}, similar)
}

func TestErrorCategories(t *testing.T) {
	assert.Equal(t, "Reader", GetErrorCategory(ErrorSyntax))
	assert.Equal(t, "Symbols", GetErrorCategory(ErrorUnresolvedSymbol))
	assert.Equal(t, "Constants", GetErrorCategory(ErrorCyclicConstant))
	assert.Equal(t, "Lowering", GetErrorCategory(ErrorUnsupportedConstruct))
	assert.Equal(t, "Tooling", GetErrorCategory(ErrorInvalidConfig))
	assert.NotEqual(t, "Unknown error code", GetErrorDescription(ErrorMalformedIR))
}
