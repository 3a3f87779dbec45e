package grammar

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"dil/internal/ast"
	"dil/internal/errors"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var parser = participle.MustBuild[Program](
	participle.Lexer(DilLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(6),
)

// Parse parses source into a parse tree. Syntax errors are returned as an
// errors.CompilerError.
func Parse(filename, source string) (*Program, error) {
	program, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, syntaxError(filename, err)
	}
	return program, nil
}

func ParseFile(path string) (*Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(path, string(source))
}

// Read parses source and converts it into a library. All diagnostics are
// returned; the library is nil when there is at least one.
func Read(filename, source string) (*ast.Library, []errors.CompilerError) {
	program, err := Parse(filename, source)
	if err != nil {
		var diag errors.CompilerError
		if stderrors.As(err, &diag) {
			return nil, []errors.CompilerError{diag}
		}
		return nil, []errors.CompilerError{errors.NewDiagnostic(errors.ErrorSyntax, err.Error(), ast.Position{Filename: filename}).Build()}
	}
	lib, diags := Convert(program)
	if len(diags) > 0 {
		return nil, diags
	}
	return lib, nil
}

func syntaxError(filename string, err error) error {
	var pe participle.Error
	if !stderrors.As(err, &pe) {
		return errors.NewDiagnostic(errors.ErrorSyntax, err.Error(), ast.Position{Filename: filename}).Build()
	}
	b := errors.NewDiagnostic(errors.ErrorSyntax, pe.Message(), position(pe.Position()))
	var unexpected *participle.UnexpectedTokenError
	if stderrors.As(err, &unexpected) {
		b = b.WithLength(max(len(unexpected.Unexpected.Value), 1))
		if unexpected.Unexpected.EOF() {
			b = b.WithNote("the file ended in the middle of a declaration")
		} else if strings.HasPrefix(unexpected.Expect, `"`) {
			b = b.WithSuggestion(fmt.Sprintf("expected %s", unexpected.Expect))
		}
	}
	return b.Build()
}

func position(pos lexer.Position) ast.Position {
	return ast.Position{
		Filename: pos.Filename,
		Offset:   pos.Offset,
		Line:     pos.Line,
		Column:   pos.Column,
	}
}
