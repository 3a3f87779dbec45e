package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dil/internal/ast"
	"dil/internal/constant"
	"dil/internal/errors"
	"dil/internal/symbols"
)

func block(stmts ...ast.Statement) *ast.Block { return &ast.Block{Statements: stmts} }

func get(decl *ast.VariableDeclaration) ast.Expr { return &ast.VariableGet{Variable: decl} }

func ret(e ast.Expr) *ast.ReturnStatement { return &ast.ReturnStatement{Expression: e} }

func closure(body ast.Statement, params ...*ast.VariableDeclaration) *ast.FunctionExpression {
	return &ast.FunctionExpression{Function: &ast.FunctionNode{Positional: params, RequiredCount: len(params), Body: body}}
}

func procedure(body ast.Statement, params ...*ast.VariableDeclaration) *ast.Procedure {
	return &ast.Procedure{
		Name:     "f",
		IsStatic: true,
		Function: &ast.FunctionNode{Positional: params, RequiredCount: len(params), Body: body},
	}
}

func analyze(t *testing.T, root ast.Node) *Result {
	t.Helper()
	result, err := NewAnalyzer(nil).Analyze(root, nil)
	require.NoError(t, err)
	return result
}

func TestLocalsStayOnStack(t *testing.T) {
	x := &ast.VariableDeclaration{Name: "x"}
	y := &ast.VariableDeclaration{Name: "y", Initializer: get(x)}
	proc := procedure(block(y, ret(get(y))), x)

	r := analyze(t, proc)
	assert.False(t, r.Variable(x).Captured)
	assert.False(t, r.Variable(y).Captured)
	assert.False(t, r.Member.UsesContexts)
	assert.Equal(t, -1, r.Member.EntryContextLevel)
	assert.Nil(t, r.Member.FinallyReturn)
	assert.Empty(t, r.Closures)

	for _, s := range r.Scopes() {
		assert.False(t, s.HasContext())
	}
}

func TestCaptureThreadsOneFramePerFunction(t *testing.T) {
	x := &ast.VariableDeclaration{Name: "x"}
	inner := closure(block(ret(get(x))))
	middle := closure(block(ret(inner)))
	proc := procedure(block(ret(middle)), x)

	r := analyze(t, proc)
	vx := r.Variable(x)
	require.True(t, vx.Captured)
	assert.Equal(t, 0, vx.Level)
	assert.Equal(t, 0, vx.Index)

	member := r.Member.Scope
	assert.True(t, member.HasContext())
	assert.Equal(t, 0, member.ContextLevel)

	require.Len(t, r.Closures, 2)
	innerInfo := r.Function(inner.Function)
	middleInfo := r.Function(middle.Function)
	require.NotNil(t, innerInfo)
	require.NotNil(t, middleInfo)

	assert.Equal(t, 1, middleInfo.Depth)
	assert.Equal(t, 2, innerInfo.Depth)
	assert.Equal(t, 0, middleInfo.EntryContextLevel)
	assert.Equal(t, 1, middleInfo.Scope.ContextLevel)
	assert.Equal(t, 1, innerInfo.EntryContextLevel)
	assert.Equal(t, 2, innerInfo.Scope.ContextLevel)

	// one hop per function boundary
	assert.Equal(t, innerInfo.Depth-r.Member.Depth, innerInfo.Scope.ContextLevel-vx.Level)
	assert.True(t, innerInfo.UsesContexts)

	// closures are listed innermost first
	assert.Same(t, inner.Function, r.Closures[0].Node)
	assert.Equal(t, "<closure 2>", r.Closures[0].Name)
}

func TestBlockScopedCapture(t *testing.T) {
	x := &ast.VariableDeclaration{Name: "x"}
	y := &ast.VariableDeclaration{Name: "y"}
	body := block(
		x,
		&ast.WhileStatement{
			Condition: &ast.BoolLiteral{Value: true},
			Body: block(
				y,
				&ast.ExpressionStatement{Expression: closure(block(ret(get(y))))},
			),
		},
	)
	r := analyze(t, procedure(body))

	assert.False(t, r.Variable(x).Captured)
	vy := r.Variable(y)
	assert.True(t, vy.Captured)
	assert.Equal(t, 0, vy.Level)
	assert.False(t, r.Member.Scope.HasContext())
	assert.True(t, vy.Scope.HasContext())
	assert.True(t, r.Member.UsesContexts)
}

func TestThisCapture(t *testing.T) {
	class := &ast.Class{Name: "A"}
	proc := &ast.Procedure{
		Name:  "m",
		Owner: class,
		Function: &ast.FunctionNode{Body: block(
			ret(closure(block(ret(&ast.ThisExpression{})))),
		)},
	}
	r := analyze(t, proc)
	require.NotNil(t, r.Member.This)
	assert.True(t, r.Member.This.Captured)
	assert.Equal(t, 0, r.Member.This.Level)

	static := procedure(block(ret(&ast.ThisExpression{})))
	_, err := NewAnalyzer(nil).Analyze(static, nil)
	le, ok := errors.AsLowering(err)
	require.True(t, ok)
	assert.Equal(t, errors.MalformedIR, le.Kind)
}

func TestSyntheticVariables(t *testing.T) {
	e := &ast.VariableDeclaration{Name: "e"}
	st := &ast.VariableDeclaration{Name: "st"}
	item := &ast.VariableDeclaration{Name: "item"}

	body := block(
		&ast.SwitchStatement{
			Expression: &ast.IntLiteral{Value: 1},
			Cases: []*ast.SwitchCase{{
				Expressions: []ast.Expr{&ast.IntLiteral{Value: 1}},
				Body: block(&ast.SwitchStatement{
					Expression: &ast.IntLiteral{Value: 2},
					Cases:      []*ast.SwitchCase{{IsDefault: true, Body: block()}},
				}),
			}},
		},
		&ast.TryFinally{
			Body: &ast.TryCatch{
				Body: block(ret(&ast.IntLiteral{Value: 1})),
				Catches: []*ast.Catch{{
					Exception:  e,
					StackTrace: st,
					Body:       block(&ast.ForInStatement{Variable: item, Iterable: &ast.ListLiteral{}, Body: block()}),
				}},
			},
			Finalizer: block(),
		},
	)
	r := analyze(t, procedure(body))
	info := r.Member

	require.Len(t, info.SwitchVariables, 2)
	assert.Equal(t, ":switch1", info.SwitchVariables[1].Name)
	require.NotNil(t, info.FinallyReturn)
	assert.Len(t, info.CatchContextVariables, 2)
	require.Len(t, info.ExceptionVariables, 1)
	assert.Len(t, info.StackTraceVariables, 1)
	assert.Len(t, info.IteratorVariables, 1)

	assert.NotNil(t, r.Variable(e))
	assert.NotNil(t, r.Variable(item))
	assert.NotNil(t, r.Scope(r.Variable(e).Scope.Node))
	assert.True(t, info.ExceptionVariables[0].IsSynthetic())
}

func TestForInitializersAreOutsideTheLoop(t *testing.T) {
	i := &ast.VariableDeclaration{Name: "i", Initializer: &ast.IntLiteral{Value: 0}}
	j := &ast.VariableDeclaration{Name: "j", Initializer: get(i)}
	innerBody := block()
	inner := &ast.ForStatement{Variables: []*ast.VariableDeclaration{j}, Body: innerBody}
	outerBody := block(inner)
	outer := &ast.ForStatement{Variables: []*ast.VariableDeclaration{i}, Body: outerBody}

	r := analyze(t, procedure(block(outer)))
	assert.Equal(t, 0, r.Scope(outer).LoopDepth)
	assert.Equal(t, 1, r.Scope(outerBody).LoopDepth)
	assert.Equal(t, 1, r.Scope(inner).LoopDepth)
	assert.Equal(t, 2, r.Scope(innerBody).LoopDepth)
}

func TestReturnOutsideFinallyHasNoPendingSlot(t *testing.T) {
	body := block(
		&ast.TryFinally{Body: block(), Finalizer: block()},
		ret(&ast.NullLiteral{}),
	)
	r := analyze(t, procedure(body))
	assert.Nil(t, r.Member.FinallyReturn)
}

func TestUseOutsideScopeIsMalformed(t *testing.T) {
	x := &ast.VariableDeclaration{Name: "x"}
	body := block(
		block(x),
		ret(get(x)),
	)
	_, err := NewAnalyzer(nil).Analyze(procedure(body), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable 'x' is used outside its scope")

	twice := block(x, x)
	_, err = NewAnalyzer(nil).Analyze(procedure(twice), nil)
	require.Error(t, err)
}

func TestConstructorInitializersSeeParameters(t *testing.T) {
	class := &ast.Class{Name: "A"}
	p := &ast.VariableDeclaration{Name: "p"}
	ctor := &ast.Constructor{
		Owner:    class,
		Function: &ast.FunctionNode{Positional: []*ast.VariableDeclaration{p}, RequiredCount: 1, Body: &ast.EmptyStatement{}},
		Initializers: []ast.Initializer{
			&ast.FieldInitializer{Field: "f", Value: closure(block(ret(get(p))))},
		},
	}
	r := analyze(t, ctor)
	assert.True(t, r.Variable(p).Captured)
	require.NotNil(t, r.Member.This)
	assert.Equal(t, "this", r.Member.This.Name)
}

func TestFieldInitializerRoot(t *testing.T) {
	class := &ast.Class{Name: "A"}
	field := &ast.Field{Name: "f", Owner: class, Initializer: closure(block(ret(&ast.ThisExpression{})))}
	r := analyze(t, field)
	assert.Nil(t, r.Member.Node)
	assert.True(t, r.Member.This.Captured)
	assert.Same(t, r.Member.Scope, r.Scope(field))
}

func TestDefaultValuesAreFolded(t *testing.T) {
	table, err := symbols.NewCoreTable()
	require.NoError(t, err)
	evaluator := constant.NewEvaluator(table, constant.NewPool())

	a := &ast.VariableDeclaration{Name: "a"}
	b := &ast.VariableDeclaration{Name: "b", Initializer: &ast.IntLiteral{Value: 3}}
	c := &ast.VariableDeclaration{Name: "c"}
	proc := &ast.Procedure{Name: "f", IsStatic: true, Function: &ast.FunctionNode{
		Positional: []*ast.VariableDeclaration{a, b}, RequiredCount: 1,
		Named: []*ast.VariableDeclaration{c},
		Body:  block(),
	}}

	r, err := NewAnalyzer(evaluator).Analyze(proc, nil)
	require.NoError(t, err)
	require.Len(t, r.Member.DefaultValues, 2)
	assert.Equal(t, "3", r.Member.DefaultValues[0].String())
	assert.Equal(t, "null", r.Member.DefaultValues[1].String())
	assert.Len(t, r.Member.Parameters, 3)
}

func TestAnalyzeNestedAgainstEnclosingScope(t *testing.T) {
	x := &ast.VariableDeclaration{Name: "x"}
	inner := closure(block(ret(get(x))))
	outer := analyze(t, procedure(block(ret(inner)), x))

	r, err := NewAnalyzer(nil).Analyze(inner.Function, outer.Member.Scope)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Member.Depth)
	assert.Equal(t, 0, r.Member.EntryContextLevel)
	assert.Equal(t, 1, r.Member.Scope.ContextLevel)
	assert.Nil(t, r.Variable(x))

	y := &ast.VariableDeclaration{Name: "y"}
	plain := analyze(t, procedure(block(), y))
	_, err = NewAnalyzer(nil).Analyze(&ast.FunctionNode{Body: ret(get(y))}, plain.Member.Scope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not captured")
}
