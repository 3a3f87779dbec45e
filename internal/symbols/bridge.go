package symbols

import (
	"dil/internal/ast"
	"dil/internal/errors"
)

// Bridge is the read-only symbol view the lowering core works against.
// Resolve methods raise an UnresolvedSymbol fatal error instead of returning
// nil; Lookup methods return nil for absent symbols.
type Bridge interface {
	ResolveClass(name string) *Class
	ResolveField(ref ast.MemberRef) *Field
	ResolveFunction(ref ast.MemberRef) *Function
	ResolveConstructor(ref ast.MemberRef) *Function

	LookupField(ref ast.MemberRef) *Field
	LookupFunction(ref ast.MemberRef) *Function

	// ClosureFunction returns the descriptor for a nested function body,
	// creating it on first use. Descriptors are keyed by node identity.
	ClosureFunction(parent *Function, node *ast.FunctionNode, name string) *Function
	// ImplicitClosureFunction returns the descriptor of the closure a
	// tear-off of target evaluates to. There is one per target.
	ImplicitClosureFunction(target *Function) *Function

	// ReportFatalError never returns.
	ReportFatalError(kind errors.Kind, pos ast.Position, format string, args ...any)
}

// Core class and member names the lowering depends on.
const (
	ObjectClass         = "Object"
	ClosureClass        = "_Closure"
	ContextClass        = "_Context"
	ListClass           = "List"
	MapClass            = "Map"
	StringClass         = "String"
	AssertionErrorClass = "_AssertionError"

	ListFactory        = "_fromLiteral"
	MapFactory         = "_fromLiteral"
	InterpolateFn      = "_interpolate"
	InterpolateOneFn   = "_interpolateSingle"
	AssertionFactory   = "_create"
	IdenticalFn        = "identical"
	InstanceOfFn       = "_instanceOf"
	AsFn               = "_as"
	EqualsOperator     = "=="
	IdenticalIntrinsic = "identical"
)

var _ Bridge = (*Table)(nil)
