package constant

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dil/internal/ast"
	"dil/internal/errors"
	"dil/internal/symbols"
)

func intLit(v int64) *ast.IntLiteral { return &ast.IntLiteral{Value: v} }

func call(receiver ast.Expr, name string, args ...ast.Expr) *ast.MethodInvocation {
	return &ast.MethodInvocation{Receiver: receiver, Name: name, Arguments: &ast.Arguments{Positional: args}}
}

func newEvaluator(t *testing.T, lib *ast.Library) (*Evaluator, *symbols.Table) {
	t.Helper()
	table, err := symbols.NewCoreTable()
	require.NoError(t, err)
	if lib != nil {
		require.NoError(t, table.AddLibrary(lib))
	}
	return NewEvaluator(table, NewPool()), table
}

func TestListCanonicalization(t *testing.T) {
	e, _ := newEvaluator(t, nil)
	literal := func() ast.Expr {
		return &ast.ListLiteral{IsConst: true, Expressions: []ast.Expr{intLit(1), intLit(2), call(intLit(1), "+", intLit(0))}}
	}

	first, err := e.Evaluate(literal())
	require.NoError(t, err)
	list, ok := first.(*List)
	require.True(t, ok)
	require.Len(t, list.Elements, 3)
	assert.Same(t, list.Elements[0], list.Elements[2])
	assert.NotSame(t, list.Elements[0], list.Elements[1])

	second, err := e.Evaluate(literal())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "const [1, 2, 1]", first.String())
}

func TestPrimitiveFolding(t *testing.T) {
	e, _ := newEvaluator(t, nil)
	str := func(s string) ast.Expr { return &ast.StringLiteral{Value: s} }
	dbl := func(f float64) ast.Expr { return &ast.DoubleLiteral{Value: f} }
	tru := &ast.BoolLiteral{Value: true}
	fls := &ast.BoolLiteral{Value: false}

	tests := []struct {
		name     string
		expr     ast.Expr
		expected string
	}{
		{"int arithmetic", call(call(intLit(6), "*", intLit(7)), "-", intLit(2)), "40"},
		{"int division yields double", call(intLit(7), "/", intLit(2)), "3.5"},
		{"truncating division", call(intLit(-7), "~/", intLit(2)), "-3"},
		{"modulo is non-negative", call(intLit(-7), "%", intLit(3)), "2"},
		{"mixed arithmetic", call(intLit(1), "+", dbl(0.5)), "1.5"},
		{"double formatting", call(dbl(0.5), "*", intLit(2)), "1.0"},
		{"shift", call(intLit(1), "<<", intLit(4)), "16"},
		{"negation", call(intLit(5), "unary-"), "-5"},
		{"comparison", call(intLit(1), "<", intLit(2)), "true"},
		{"int equals double", call(intLit(1), "==", dbl(1)), "true"},
		{"string equality", call(str("a"), "==", str("a")), "true"},
		{"string plus", call(str("a"), "+", str("b")), `"ab"`},
		{"string length", &ast.PropertyGet{Receiver: str("héllo"), Name: "length"}, "5"},
		{"concatenation", &ast.StringConcatenation{Expressions: []ast.Expr{str("x="), intLit(1), str(" "), dbl(2), &ast.NullLiteral{}}}, `"x=1 2.0null"`},
		{"not", &ast.Not{Operand: fls}, "true"},
		{"and short-circuits", &ast.LogicalExpression{Left: fls, Operator: ast.LogicalAnd, Right: intLit(1)}, "false"},
		{"or", &ast.LogicalExpression{Left: fls, Operator: ast.LogicalOr, Right: tru}, "true"},
		{"if null", &ast.LogicalExpression{Left: &ast.NullLiteral{}, Operator: ast.IfNull, Right: intLit(3)}, "3"},
		{"conditional", &ast.ConditionalExpression{Condition: tru, Then: intLit(1), Otherwise: intLit(2)}, "1"},
		{"symbol", &ast.SymbolLiteral{Value: "foo"}, "#foo"},
		{"type", &ast.TypeLiteral{Class: "List"}, "type List"},
		{"map", &ast.MapLiteral{IsConst: true, Entries: []*ast.MapEntry{{Key: str("k"), Value: intLit(1)}}}, `const {"k": 1}`},
		{"identical", &ast.StaticInvocation{Target: ast.MemberRef{Name: "identical"}, Arguments: &ast.Arguments{Positional: []ast.Expr{intLit(1), call(intLit(0), "+", intLit(1))}}}, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Evaluate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v.String())
		})
	}
}

func TestNotAConstant(t *testing.T) {
	e, _ := newEvaluator(t, nil)
	local := &ast.VariableDeclaration{Name: "x"}

	tests := []struct {
		name string
		expr ast.Expr
		kind errors.Kind
	}{
		{"variable", &ast.VariableGet{Variable: local}, errors.NotAConstant},
		{"division by zero", call(intLit(1), "~/", intLit(0)), errors.NotAConstant},
		{"unknown operator", call(&ast.StringLiteral{Value: "a"}, "-", intLit(1)), errors.NotAConstant},
		{"print call", &ast.StaticInvocation{Target: ast.MemberRef{Name: "print"}, Arguments: &ast.Arguments{Positional: []ast.Expr{intLit(1)}}}, errors.NotAConstant},
		{"function expression", &ast.FunctionExpression{Function: &ast.FunctionNode{}}, errors.NotAConstant},
		{"duplicate map key", &ast.MapLiteral{Entries: []*ast.MapEntry{{Key: intLit(1), Value: intLit(1)}, {Key: intLit(1), Value: intLit(2)}}}, errors.NotAConstant},
		{"unresolved", &ast.StaticInvocation{Target: ast.MemberRef{Name: "nope"}}, errors.UnresolvedSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(tt.expr)
			le, ok := errors.AsLowering(err)
			require.True(t, ok, "expected a lowering error, got %v", err)
			assert.Equal(t, tt.kind, le.Kind)
		})
	}
}

func TestConstLocalVariable(t *testing.T) {
	e, _ := newEvaluator(t, nil)
	decl := &ast.VariableDeclaration{Name: "k", IsConst: true, Initializer: call(intLit(2), "*", intLit(21))}
	v, err := e.Evaluate(&ast.VariableGet{Variable: decl})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.(*Int).Value)
}

func pointLibrary() *ast.Library {
	x := &ast.VariableDeclaration{Name: "x"}
	y := &ast.VariableDeclaration{Name: "y", Initializer: intLit(0)}
	scale := &ast.VariableDeclaration{Name: "scale", Initializer: intLit(1)}

	point := &ast.Class{Name: "Point"}
	point.Fields = []*ast.Field{
		{Name: "x", Owner: point, IsFinal: true},
		{Name: "y", Owner: point, IsFinal: true},
		{Name: "tag", Owner: point, IsFinal: true, Initializer: &ast.StringLiteral{Value: "p"}},
	}
	point.Constructors = []*ast.Constructor{
		{
			Name: "", Owner: point, IsConst: true,
			Function: &ast.FunctionNode{
				Positional: []*ast.VariableDeclaration{x, y}, RequiredCount: 1,
				Named: []*ast.VariableDeclaration{scale},
				Body:  &ast.EmptyStatement{},
			},
			Initializers: []ast.Initializer{
				&ast.FieldInitializer{Field: "x", Value: call(&ast.VariableGet{Variable: x}, "*", &ast.VariableGet{Variable: scale})},
				&ast.FieldInitializer{Field: "y", Value: &ast.VariableGet{Variable: y}},
			},
		},
		{
			Name: "origin", Owner: point, IsConst: true,
			Function: &ast.FunctionNode{Body: &ast.EmptyStatement{}},
			Initializers: []ast.Initializer{
				&ast.RedirectingInitializer{Target: ast.MemberRef{Class: "Point", Name: ""}, Arguments: &ast.Arguments{Positional: []ast.Expr{intLit(0)}}},
			},
		},
		{
			Name: "mutable", Owner: point,
			Function: &ast.FunctionNode{Body: &ast.EmptyStatement{}},
		},
	}

	z := &ast.VariableDeclaration{Name: "z"}
	point3 := &ast.Class{Name: "Point3", Super: "Point"}
	point3.Fields = []*ast.Field{{Name: "z", Owner: point3, IsFinal: true}}
	point3.Constructors = []*ast.Constructor{{
		Name: "", Owner: point3, IsConst: true,
		Function: &ast.FunctionNode{Positional: []*ast.VariableDeclaration{z}, RequiredCount: 1, Body: &ast.Block{}},
		Initializers: []ast.Initializer{
			&ast.FieldInitializer{Field: "z", Value: &ast.VariableGet{Variable: z}},
			&ast.SuperInitializer{Target: ast.MemberRef{Class: "Point", Name: ""}, Arguments: &ast.Arguments{Positional: []ast.Expr{&ast.VariableGet{Variable: z}, intLit(2)}}},
		},
	}}

	return &ast.Library{
		Classes: []*ast.Class{point, point3},
		Fields: []*ast.Field{
			{Name: "a", IsStatic: true, IsConst: true, Initializer: &ast.StaticGet{Target: ast.MemberRef{Name: "b"}}},
			{Name: "b", IsStatic: true, IsConst: true, Initializer: call(intLit(20), "+", intLit(1))},
			{Name: "loop", IsStatic: true, IsConst: true, Initializer: &ast.StaticGet{Target: ast.MemberRef{Name: "loop"}}},
			{Name: "mutable", IsStatic: true, Initializer: intLit(1)},
		},
	}
}

func construct(class, name string, args []ast.Expr, named ...*ast.NamedExpression) *ast.ConstructorInvocation {
	return &ast.ConstructorInvocation{
		Target:    ast.MemberRef{Class: class, Name: name},
		Arguments: &ast.Arguments{Positional: args, Named: named},
		IsConst:   true,
	}
}

func TestConstConstructor(t *testing.T) {
	e, _ := newEvaluator(t, pointLibrary())

	v, err := e.Evaluate(construct("Point", "", []ast.Expr{intLit(3)}, &ast.NamedExpression{Name: "scale", Value: intLit(2)}))
	require.NoError(t, err)
	assert.Equal(t, `const Point{x: 6, y: 0, tag: "p"}`, v.String())

	again, err := e.Evaluate(construct("Point", "", []ast.Expr{intLit(6), intLit(0)}))
	require.NoError(t, err)
	assert.Same(t, v, again)

	origin, err := e.Evaluate(construct("Point", "origin", nil))
	require.NoError(t, err)
	assert.Equal(t, `const Point{x: 0, y: 0, tag: "p"}`, origin.String())

	p3, err := e.Evaluate(construct("Point3", "", []ast.Expr{intLit(5)}))
	require.NoError(t, err)
	assert.Equal(t, `const Point3{x: 5, y: 2, tag: "p", z: 5}`, p3.String())
}

func TestConstConstructorErrors(t *testing.T) {
	e, _ := newEvaluator(t, pointLibrary())

	tests := []struct {
		name string
		expr ast.Expr
	}{
		{"not const", construct("Point", "mutable", nil)},
		{"missing argument", construct("Point", "", nil)},
		{"unknown named argument", construct("Point", "", []ast.Expr{intLit(1)}, &ast.NamedExpression{Name: "w", Value: intLit(1)})},
		{"factory", construct("List", "_fromLiteral", []ast.Expr{intLit(1)})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(tt.expr)
			le, ok := errors.AsLowering(err)
			require.True(t, ok)
			assert.Equal(t, errors.InvalidConstantConstructor, le.Kind)
		})
	}
}

func TestStaticFieldMemoization(t *testing.T) {
	e, table := newEvaluator(t, pointLibrary())

	v, err := e.Evaluate(&ast.StaticGet{Target: ast.MemberRef{Name: "a"}})
	require.NoError(t, err)
	assert.Equal(t, "21", v.String())

	b := table.ResolveField(ast.MemberRef{Name: "b"})
	memo, ok := b.Memoized()
	require.True(t, ok)
	assert.Same(t, v, memo)

	_, err = e.Evaluate(&ast.StaticGet{Target: ast.MemberRef{Name: "mutable"}})
	require.Error(t, err)

	_, err = e.Evaluate(&ast.StaticGet{Target: ast.MemberRef{Name: "loop"}})
	le, ok := errors.AsLowering(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCyclicConstant, le.Code)
}

func TestConcurrentEvaluatorsShareMemoization(t *testing.T) {
	table, err := symbols.NewCoreTable()
	require.NoError(t, err)
	require.NoError(t, table.AddLibrary(pointLibrary()))
	pool := NewPool()

	results := make([]Value, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := NewEvaluator(table, pool)
			v, err := e.Evaluate(&ast.StaticGet{Target: ast.MemberRef{Name: "a"}})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	for _, v := range results[1:] {
		assert.Same(t, results[0], v)
	}
}

func TestPoolDistinguishesSignedZero(t *testing.T) {
	pool := NewPool()
	assert.NotSame(t, pool.Double(0), pool.Double(math.Copysign(0, -1)))
	assert.Same(t, pool.Int(7), pool.Int(7))
	assert.NotEqual(t, pool.Int(1).ID(), pool.Double(1).ID())
	assert.Equal(t, pool.List([]Value{pool.Int(1)}), pool.List([]Value{pool.Int(1)}))
}
