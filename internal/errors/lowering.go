package errors

import (
	"fmt"
	"strings"

	"dil/internal/ast"
)

// Kind classifies unrecoverable lowering failures.
type Kind int

const (
	MalformedIR Kind = iota
	UnresolvedSymbol
	UnsupportedConstruct
	NotAConstant
	InvalidConstantConstructor
)

func (k Kind) String() string {
	switch k {
	case MalformedIR:
		return "malformed IR"
	case UnresolvedSymbol:
		return "unresolved symbol"
	case UnsupportedConstruct:
		return "unsupported construct"
	case NotAConstant:
		return "not a constant"
	case InvalidConstantConstructor:
		return "invalid constant constructor"
	default:
		return "unknown"
	}
}

// Code returns the default error code for the kind.
func (k Kind) Code() string {
	switch k {
	case UnresolvedSymbol:
		return ErrorUnresolvedSymbol
	case UnsupportedConstruct:
		return ErrorUnsupportedConstruct
	case NotAConstant:
		return ErrorNotAConstant
	case InvalidConstantConstructor:
		return ErrorInvalidConstantConstructor
	default:
		return ErrorMalformedIR
	}
}

// LoweringError aborts lowering of one function. It is raised with Fatal and
// turned back into an ordinary error by Recover at the lowering entry point.
type LoweringError struct {
	Kind     Kind
	Code     string
	Message  string
	Position ast.Position
	Function string
	Similar  []string
}

func (e *LoweringError) Error() string {
	var b strings.Builder
	if e.Position.IsValid() {
		b.WriteString(e.Position.String() + ": ")
	}
	b.WriteString(e.Kind.String() + ": " + e.Message)
	if e.Function != "" {
		b.WriteString(" (in " + e.Function + ")")
	}
	return b.String()
}

// New builds a LoweringError without raising it.
func New(kind Kind, pos ast.Position, format string, args ...any) *LoweringError {
	return &LoweringError{
		Kind:     kind,
		Code:     kind.Code(),
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
	}
}

// Fatal raises a LoweringError. It never returns.
func Fatal(kind Kind, pos ast.Position, format string, args ...any) {
	panic(New(kind, pos, format, args...))
}

// Raise re-raises err unchanged when it is a LoweringError and wraps it as
// MalformedIR otherwise.
func Raise(err error) {
	if le, ok := AsLowering(err); ok {
		panic(le)
	}
	panic(New(MalformedIR, ast.Position{}, "%v", err))
}

// Recover converts a LoweringError panic into *errp. Other panics propagate.
// It must be deferred directly.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if le, ok := r.(*LoweringError); ok {
		*errp = le
		return
	}
	panic(r)
}

// AsLowering reports whether err is a LoweringError.
func AsLowering(err error) (*LoweringError, bool) {
	le, ok := err.(*LoweringError)
	return le, ok
}

// WithFunction tags err with the function being lowered, keeping the first tag.
func WithFunction(err error, name string) error {
	if le, ok := AsLowering(err); ok && le.Function == "" {
		le.Function = name
	}
	return err
}

// Diagnostic converts a LoweringError into a reportable CompilerError.
func (e *LoweringError) Diagnostic() CompilerError {
	builder := NewDiagnostic(e.Code, e.Message, e.Position)
	if e.Function != "" {
		builder = builder.WithNote(fmt.Sprintf("while lowering '%s'", e.Function))
	}

	switch e.Kind {
	case UnresolvedSymbol:
		if len(e.Similar) == 1 {
			builder = builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", e.Similar[0]))
		} else if len(e.Similar) > 1 {
			builder = builder.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", strings.Join(e.Similar, "', '")))
		}
		builder = builder.WithHelp("symbols come from the library and the loaded manifests")
	case NotAConstant, InvalidConstantConstructor:
		builder = builder.WithHelp("constant expressions may only use literals, const constructors, const collections and const fields")
	case UnsupportedConstruct:
		builder = builder.WithHelp("this construct has no lowering; rewrite it with supported statements")
	}
	return builder.Build()
}

// FindSimilarNames returns candidates within a small edit distance of target.
func FindSimilarNames(target string, candidates []string) []string {
	var similar []string

	for _, candidate := range candidates {
		if candidate != target && len(candidate) > 2 && levenshteinDistance(target, candidate) <= 2 {
			similar = append(similar, candidate)
		}
	}

	return similar
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
