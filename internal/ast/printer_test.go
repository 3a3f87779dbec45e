package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcedureString(t *testing.T) {
	x := &VariableDeclaration{Name: "x"}
	y := &VariableDeclaration{Name: "y", Initializer: &IntLiteral{Value: 2}}
	z := &VariableDeclaration{Name: "z", Initializer: &NullLiteral{}}
	proc := &Procedure{
		Name: "main",
		Function: &FunctionNode{
			Positional:    []*VariableDeclaration{x, y},
			RequiredCount: 1,
			Named:         []*VariableDeclaration{z},
			Body: &Block{Statements: []Statement{
				&ReturnStatement{Expression: &MethodInvocation{
					Receiver:  &VariableGet{Variable: x},
					Name:      "+",
					Arguments: &Arguments{Positional: []Expr{&VariableGet{Variable: y}}},
				}},
			}},
		},
	}

	expected := "procedure main(x, [y = 2], {z = null}) {\n  return (x + y);\n}"
	assert.Equal(t, expected, proc.String())
}

func TestFieldString(t *testing.T) {
	owner := &Class{Name: "Point"}
	tests := []struct {
		field    *Field
		expected string
	}{
		{&Field{Name: "x", Owner: owner}, "field x;"},
		{&Field{Name: "origin", Owner: owner, IsStatic: true, IsConst: true, Initializer: &IntLiteral{Value: 0}}, "static const field origin = 0;"},
		{&Field{Name: "count", IsStatic: true, IsFinal: true}, "final field count;"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.field.String())
	}
}

func TestStatementString(t *testing.T) {
	loop := &LabeledStatement{Label: "L"}
	loop.Body = &WhileStatement{
		Condition: &BoolLiteral{Value: true},
		Body:      &BreakStatement{Target: loop},
	}
	assert.Equal(t, "L: while (true) break L;", loop.String())

	e := &VariableDeclaration{Name: "e"}
	try := &TryFinally{
		Body: &TryCatch{
			Body:    &Block{},
			Catches: []*Catch{{Guard: "Error", Exception: e, Body: &Block{}}},
		},
		Finalizer: &Block{},
	}
	assert.Equal(t, "try try {} on Error catch (e) {} finally {}", try.String())
}

func TestSwitchString(t *testing.T) {
	sw := &SwitchStatement{
		Expression: &IntLiteral{Value: 1},
		Cases: []*SwitchCase{
			{Expressions: []Expr{&IntLiteral{Value: 1}, &IntLiteral{Value: 2}}, Body: &Block{}},
			{Label: "D", IsDefault: true, Body: &Block{}},
		},
	}
	out := sw.String()
	assert.True(t, strings.HasPrefix(out, "switch (1) {"))
	assert.Contains(t, out, "case 1: case 2: {}")
	assert.Contains(t, out, "@D default: {}")
}

func TestLiteralString(t *testing.T) {
	assert.Equal(t, "1.0", (&DoubleLiteral{Value: 1}).String())
	assert.Equal(t, "2.5", (&DoubleLiteral{Value: 2.5}).String())
	assert.Equal(t, `"a\"b"`, (&StringLiteral{Value: `a"b`}).String())
	assert.Equal(t, "const [1, #sym]", (&ListLiteral{IsConst: true, Expressions: []Expr{&IntLiteral{Value: 1}, &SymbolLiteral{Value: "sym"}}}).String())
	assert.Equal(t, "new Point::origin()", (&ConstructorInvocation{Target: MemberRef{Class: "Point", Name: "origin"}, Arguments: &Arguments{}}).String())
	assert.Equal(t, "const Point(1)", (&ConstructorInvocation{Target: MemberRef{Class: "Point"}, IsConst: true, Arguments: &Arguments{Positional: []Expr{&IntLiteral{Value: 1}}}}).String())
}

func TestInspectVisitsNestedFunctions(t *testing.T) {
	inner := &FunctionExpression{Function: &FunctionNode{Body: &ReturnStatement{Expression: &NullLiteral{}}}}
	body := &Block{Statements: []Statement{
		&ExpressionStatement{Expression: inner},
		&IfStatement{Condition: &BoolLiteral{Value: true}, Then: &EmptyStatement{}},
	}}

	var types []NodeType
	Inspect(body, func(n Node) bool {
		types = append(types, n.NodeType())
		return true
	})

	assert.Equal(t, []NodeType{
		BLOCK, EXPRESSION_STATEMENT, FUNCTION_EXPRESSION, FUNCTION_NODE, RETURN_STATEMENT, NULL_LITERAL,
		IF_STATEMENT, BOOL_LITERAL, EMPTY_STATEMENT,
	}, types)
}

func TestNodeTypeString(t *testing.T) {
	assert.Equal(t, "TryFinally", TRY_FINALLY.String())
	assert.Equal(t, "Unknown", NodeType(-1).String())
}
