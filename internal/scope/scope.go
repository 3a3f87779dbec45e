// Package scope resolves the lexical scopes of a member body and decides
// which variables live in heap-allocated context frames.
package scope

import (
	"fmt"

	"dil/internal/ast"
	"dil/internal/constant"
)

// Variable is the lowering-time view of a declaration.
type Variable struct {
	Name string
	// Decl is nil for synthetic variables.
	Decl     *ast.VariableDeclaration
	Scope    *Scope
	Function *FunctionInfo

	// Captured variables live in the context frame of their scope.
	Captured bool
	// Level is the context level of the frame holding a captured variable.
	Level int
	// Index is the frame slot of a captured variable.
	Index int
	// Local is the stack slot the variable was declared in. Captured
	// parameters arrive there before the prologue copies them into the frame.
	Local int
}

func (v *Variable) IsSynthetic() bool { return v.Decl == nil }

func (v *Variable) String() string {
	if v.Captured {
		return fmt.Sprintf("%s@%d[%d]", v.Name, v.Level, v.Index)
	}
	return v.Name
}

// Scope is one lexical scope: a function, block, for header, for-in body or
// catch clause.
type Scope struct {
	Node     ast.Node
	Parent   *Scope
	Function *FunctionInfo
	// LoopDepth is the number of loops of the function enclosing the scope.
	// The initializers of a for statement are outside its loop.
	LoopDepth int

	Variables []*Variable

	// ContextVariables are the captured variables, in slot order.
	ContextVariables []*Variable
	// ContextLevel is the level of the innermost frame visible in the scope.
	// It is -1 when no frame exists.
	ContextLevel int

	// forced makes the scope own a frame even without captured variables,
	// so nested closures link through one frame per function.
	forced bool
	owns   bool
}

// HasContext reports whether entering the scope allocates a frame.
func (s *Scope) HasContext() bool { return s.owns }

// Lookup finds the variable of decl declared in s or one of its parents.
func (s *Scope) Lookup(decl *ast.VariableDeclaration) *Variable {
	for scope := s; scope != nil; scope = scope.Parent {
		for _, v := range scope.Variables {
			if v.Decl == decl {
				return v
			}
		}
	}
	return nil
}

// FunctionInfo collects the per-function results: parameters, the
// receiver and the synthetic variables the graph builder needs.
type FunctionInfo struct {
	Node   *ast.FunctionNode
	Name   string
	Scope  *Scope
	Parent *FunctionInfo
	Depth  int

	// This is set on the outermost function of members with a receiver.
	This       *Variable
	Parameters []*Variable

	// DefaultValues holds one constant per optional parameter when the
	// analyzer runs with an evaluator.
	DefaultValues []constant.Value

	ExpressionTemp *Variable
	CurrentContext *Variable
	// FinallyReturn is only allocated for functions that return from
	// inside a try-finally.
	FinallyReturn *Variable

	// Indexed by nesting depth of the corresponding construct.
	SwitchVariables       []*Variable
	ExceptionVariables    []*Variable
	StackTraceVariables   []*Variable
	CatchContextVariables []*Variable
	IteratorVariables     []*Variable

	// EntryContextLevel is the level of the frame the function receives:
	// the closure's context for closures, -1 otherwise.
	EntryContextLevel int
	// UsesContexts is true when any scope of the function owns a frame or
	// the function receives one.
	UsesContexts bool

	locals int
}

// Closure is a nested function found during analysis.
type Closure struct {
	Node *ast.FunctionNode
	Name string
	Info *FunctionInfo
}

// Result is the outcome of analyzing one member.
type Result struct {
	Root   ast.Node
	Member *FunctionInfo

	Closures []Closure

	variables map[*ast.VariableDeclaration]*Variable
	scopes    map[ast.Node]*Scope
	functions map[*ast.FunctionNode]*FunctionInfo
	order     []*Scope
}

// Variable returns the variable of decl, or nil.
func (r *Result) Variable(decl *ast.VariableDeclaration) *Variable {
	return r.variables[decl]
}

// Scope returns the scope introduced by node, or nil.
func (r *Result) Scope(node ast.Node) *Scope {
	return r.scopes[node]
}

// Function returns the info of a function node analyzed as part of the member.
func (r *Result) Function(node *ast.FunctionNode) *FunctionInfo {
	return r.functions[node]
}

// Scopes returns every scope in creation order.
func (r *Result) Scopes() []*Scope {
	return r.order
}
