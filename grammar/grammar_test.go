package grammar_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dil/grammar"
	"dil/internal/ast"
	"dil/internal/config"
	"dil/internal/constant"
	"dil/internal/errors"
	"dil/internal/ir"
	"dil/internal/lower"
	"dil/internal/symbols"
)

func read(t *testing.T, source string) *ast.Library {
	t.Helper()
	lib, diags := grammar.Read("test.dil", source)
	require.Empty(t, diags)
	require.NotNil(t, lib)
	return lib
}

func readErrors(t *testing.T, source string) []errors.CompilerError {
	t.Helper()
	lib, diags := grammar.Read("test.dil", source)
	require.NotEmpty(t, diags)
	assert.Nil(t, lib)
	return diags
}

func procedure(t *testing.T, lib *ast.Library, name string) *ast.Procedure {
	t.Helper()
	for _, p := range lib.Procedures {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("procedure %s not found", name)
	return nil
}

func body(t *testing.T, lib *ast.Library, name string) []ast.Statement {
	t.Helper()
	b, ok := procedure(t, lib, name).Function.Body.(*ast.Block)
	require.True(t, ok)
	return b.Statements
}

func TestShapesExample(t *testing.T) {
	source, err := os.ReadFile("../examples/shapes.dil")
	require.NoError(t, err)
	lib := read(t, string(source))

	assert.Equal(t, "shapes", lib.Name)
	require.Len(t, lib.Classes, 2)
	assert.Len(t, lib.Fields, 1)
	assert.Len(t, lib.Procedures, 4)

	shape := lib.Classes[0]
	assert.Equal(t, "Shape", shape.Name)
	require.Len(t, shape.Fields, 1)
	assert.True(t, shape.Fields[0].IsStatic)
	assert.False(t, shape.Fields[0].IsFinal)

	point := lib.Classes[1]
	assert.Equal(t, "Point", point.Name)
	assert.Equal(t, "Shape", point.Super)
	assert.Len(t, point.Fields, 2)
	require.Len(t, point.Constructors, 2)
	require.Len(t, point.Procedures, 3)

	ctor := point.Constructors[0]
	assert.Equal(t, "", ctor.Name)
	require.Len(t, ctor.Initializers, 2)
	init, ok := ctor.Initializers[0].(*ast.FieldInitializer)
	require.True(t, ok)
	assert.Equal(t, "x", init.Field)
	get, ok := init.Value.(*ast.VariableGet)
	require.True(t, ok)
	assert.Same(t, ctor.Function.Positional[0], get.Variable)

	origin := point.Constructors[1]
	assert.Equal(t, "origin", origin.Name)
	redirect, ok := origin.Initializers[0].(*ast.RedirectingInitializer)
	require.True(t, ok)
	assert.Equal(t, ast.MemberRef{Class: "Point"}, redirect.Target)
	assert.Equal(t, 2, redirect.Arguments.Count())

	assert.Equal(t, ast.FactoryProcedure, point.Procedures[0].Kind)
	assert.Equal(t, ast.MethodProcedure, point.Procedures[1].Kind)
	assert.Equal(t, ast.GetterProcedure, point.Procedures[2].Kind)
	assert.Same(t, point, point.Procedures[2].Owner)

	limit := lib.Fields[0]
	assert.True(t, limit.IsConst)
	assert.Equal(t, int64(10), limit.Initializer.(*ast.IntLiteral).Value)
}

func TestLocalsBindToTheirDeclarations(t *testing.T) {
	lib := read(t, `
library t;
fun main(n) {
  var x = 1;
  var y = -1;
  x = x + n;
  return -x;
}
`)
	main := procedure(t, lib, "main")
	stmts := body(t, lib, "main")
	require.Len(t, stmts, 4)

	x := stmts[0].(*ast.VariableDeclaration)
	y := stmts[1].(*ast.VariableDeclaration)
	assert.Equal(t, int64(-1), y.Initializer.(*ast.IntLiteral).Value)

	set := stmts[2].(*ast.ExpressionStatement).Expression.(*ast.VariableSet)
	assert.Same(t, x, set.Variable)
	plus := set.Value.(*ast.MethodInvocation)
	assert.Equal(t, "+", plus.Name)
	assert.Same(t, x, plus.Receiver.(*ast.VariableGet).Variable)
	assert.Same(t, main.Function.Positional[0], plus.Arguments.Positional[0].(*ast.VariableGet).Variable)

	neg := stmts[3].(*ast.ReturnStatement).Expression.(*ast.MethodInvocation)
	assert.Equal(t, "unary-", neg.Name)
	assert.Equal(t, 0, neg.Arguments.Count())
}

func TestOperators(t *testing.T) {
	lib := read(t, `
library t;
fun main(a, b) {
  a != b;
  a === b;
  a ?? b;
  a is int;
  !a && b || a;
  a.Point::x = b;
  a[0] = b;
}
`)
	stmts := body(t, lib, "main")
	expr := func(i int) ast.Expr { return stmts[i].(*ast.ExpressionStatement).Expression }

	not := expr(0).(*ast.Not)
	assert.Equal(t, "==", not.Operand.(*ast.MethodInvocation).Name)

	identical := expr(1).(*ast.StaticInvocation)
	assert.Equal(t, ast.MemberRef{Name: symbols.IdenticalFn}, identical.Target)

	assert.Equal(t, ast.IfNull, expr(2).(*ast.LogicalExpression).Operator)
	assert.Equal(t, "int", expr(3).(*ast.IsExpression).Class)

	or := expr(4).(*ast.LogicalExpression)
	assert.Equal(t, ast.LogicalOr, or.Operator)
	and := or.Left.(*ast.LogicalExpression)
	assert.Equal(t, ast.LogicalAnd, and.Operator)
	assert.IsType(t, &ast.Not{}, and.Left)

	direct := expr(5).(*ast.DirectPropertySet)
	assert.Equal(t, ast.MemberRef{Class: "Point", Name: "x"}, direct.Target)

	index := expr(6).(*ast.MethodInvocation)
	assert.Equal(t, "[]=", index.Name)
	assert.Equal(t, 2, index.Arguments.Count())
}

func TestBreakAndContinueGetSyntheticLabels(t *testing.T) {
	lib := read(t, `
library t;
fun main() {
  var i = 0;
  while (true) {
    i = i + 1;
    if (i < 3) continue;
    break;
  }
}
`)
	stmts := body(t, lib, "main")
	require.Len(t, stmts, 2)

	outer, ok := stmts[1].(*ast.LabeledStatement)
	require.True(t, ok, "break wraps the loop in a label")
	loop := outer.Body.(*ast.WhileStatement)
	inner, ok := loop.Body.(*ast.LabeledStatement)
	require.True(t, ok, "continue wraps the body in a label")

	block := inner.Body.(*ast.Block)
	require.Len(t, block.Statements, 3)
	cont := block.Statements[1].(*ast.IfStatement).Then.(*ast.BreakStatement)
	assert.Same(t, inner, cont.Target)
	brk := block.Statements[2].(*ast.BreakStatement)
	assert.Same(t, outer, brk.Target)
	assert.NotEqual(t, outer.Label, inner.Label)
}

func TestLabeledLoops(t *testing.T) {
	lib := read(t, `
library t;
fun main(xs) {
  outer: for (var i = 0; i < 3; i = i + 1) {
    for (var x in xs) {
      if (x == i) continue outer;
      if (x) break outer;
    }
  }
}
`)
	stmts := body(t, lib, "main")
	require.Len(t, stmts, 1)

	labeled := stmts[0].(*ast.LabeledStatement)
	assert.Equal(t, "outer", labeled.Label)
	loop := labeled.Body.(*ast.ForStatement)
	require.Len(t, loop.Variables, 1)
	assert.Len(t, loop.Updates, 1)

	next := loop.Body.(*ast.LabeledStatement)
	forIn := next.Body.(*ast.Block).Statements[0].(*ast.ForInStatement)
	assert.Equal(t, "x", forIn.Variable.Name)

	inner := forIn.Body.(*ast.Block).Statements
	assert.Same(t, next, inner[0].(*ast.IfStatement).Then.(*ast.BreakStatement).Target)
	assert.Same(t, labeled, inner[1].(*ast.IfStatement).Then.(*ast.BreakStatement).Target)
}

func TestSwitchCases(t *testing.T) {
	source, err := os.ReadFile("../examples/shapes.dil")
	require.NoError(t, err)
	lib := read(t, string(source))
	stmts := body(t, lib, "classify")
	require.Len(t, stmts, 1)

	labeled := stmts[0].(*ast.LabeledStatement)
	sw := labeled.Body.(*ast.SwitchStatement)
	require.Len(t, sw.Cases, 3)
	assert.Len(t, sw.Cases[0].Expressions, 2)
	assert.Equal(t, "high", sw.Cases[1].Label)
	assert.True(t, sw.Cases[2].IsDefault)

	first := sw.Cases[0].Body.(*ast.Block).Statements
	require.Len(t, first, 2)
	assert.Same(t, sw.Cases[1], first[1].(*ast.ContinueSwitchStatement).Target)

	second := sw.Cases[1].Body.(*ast.Block).Statements
	assert.Same(t, labeled, second[1].(*ast.BreakStatement).Target)
}

func TestTryCatchFinally(t *testing.T) {
	lib := read(t, `
library t;
fun main() {
  try {
    print(1);
  } on Error catch (e, st) {
    print(e);
  } catch (e) {
    rethrow;
  } finally {
    print(2);
  }
}
`)
	stmts := body(t, lib, "main")
	tf := stmts[0].(*ast.TryFinally)
	tc := tf.Body.(*ast.TryCatch)
	require.Len(t, tc.Catches, 2)

	guarded := tc.Catches[0]
	assert.Equal(t, "Error", guarded.Guard)
	assert.Equal(t, "e", guarded.Exception.Name)
	assert.Equal(t, "st", guarded.StackTrace.Name)
	call := guarded.Body.(*ast.Block).Statements[0].(*ast.ExpressionStatement).Expression.(*ast.StaticInvocation)
	assert.Same(t, guarded.Exception, call.Arguments.Positional[0].(*ast.VariableGet).Variable)

	all := tc.Catches[1]
	assert.Empty(t, all.Guard)
	assert.Nil(t, all.StackTrace)
	assert.IsType(t, &ast.Rethrow{}, all.Body.(*ast.Block).Statements[0].(*ast.ExpressionStatement).Expression)
}

func TestStringInterpolation(t *testing.T) {
	lib := read(t, `
library t;
fun greet(name) => "hello ${name}!\n";
fun plain() => "a \"quoted\" \$word";
`)
	ret := procedure(t, lib, "greet").Function.Body.(*ast.ReturnStatement)
	concat := ret.Expression.(*ast.StringConcatenation)
	require.Len(t, concat.Expressions, 3)
	assert.Equal(t, "hello ", concat.Expressions[0].(*ast.StringLiteral).Value)
	assert.IsType(t, &ast.VariableGet{}, concat.Expressions[1])
	assert.Equal(t, "!\n", concat.Expressions[2].(*ast.StringLiteral).Value)

	plain := procedure(t, lib, "plain").Function.Body.(*ast.ReturnStatement)
	assert.Equal(t, `a "quoted" $word`, plain.Expression.(*ast.StringLiteral).Value)
}

func TestClosuresAndLet(t *testing.T) {
	lib := read(t, `
library t;
fun main() {
  var n = 0;
  fun inc(by, {step}) {
    n = n + by;
  }
  var f = fun (x) => let y = x in y * n;
  f(const [1, 2]);
  return inc;
}
`)
	stmts := body(t, lib, "main")
	n := stmts[0].(*ast.VariableDeclaration)

	decl := stmts[1].(*ast.FunctionDeclaration)
	assert.Equal(t, "inc", decl.Variable.Name)
	assert.Len(t, decl.Function.Positional, 1)
	assert.Equal(t, 1, decl.Function.RequiredCount)
	require.Len(t, decl.Function.Named, 1)
	assert.Equal(t, "step", decl.Function.Named[0].Name)
	inner := decl.Function.Body.(*ast.Block).Statements[0].(*ast.ExpressionStatement).Expression.(*ast.VariableSet)
	assert.Same(t, n, inner.Variable)

	f := stmts[2].(*ast.VariableDeclaration)
	fn := f.Initializer.(*ast.FunctionExpression)
	let := fn.Function.Body.(*ast.ReturnStatement).Expression.(*ast.Let)
	assert.Equal(t, "y", let.Variable.Name)
	times := let.Body.(*ast.MethodInvocation)
	assert.Same(t, let.Variable, times.Receiver.(*ast.VariableGet).Variable)

	call := stmts[3].(*ast.ExpressionStatement).Expression.(*ast.MethodInvocation)
	assert.Equal(t, "call", call.Name)
	assert.True(t, call.Arguments.Positional[0].(*ast.ListLiteral).IsConst)

	assert.Same(t, decl.Variable, stmts[4].(*ast.ReturnStatement).Expression.(*ast.VariableGet).Variable)
}

func TestStaticReferences(t *testing.T) {
	lib := read(t, `
library t;
var counter = 0;
class Box {
  static var size = 1;
  new();
}
fun main() {
  counter = Box.size;
  Box.size = 2;
  print(new Box());
  return Box;
}
`)
	stmts := body(t, lib, "main")

	set := stmts[0].(*ast.ExpressionStatement).Expression.(*ast.StaticSet)
	assert.Equal(t, ast.MemberRef{Name: "counter"}, set.Target)
	assert.Equal(t, ast.MemberRef{Class: "Box", Name: "size"}, set.Value.(*ast.StaticGet).Target)

	classSet := stmts[1].(*ast.ExpressionStatement).Expression.(*ast.StaticSet)
	assert.Equal(t, ast.MemberRef{Class: "Box", Name: "size"}, classSet.Target)

	call := stmts[2].(*ast.ExpressionStatement).Expression.(*ast.StaticInvocation)
	assert.Equal(t, "print", call.Target.Name)
	assert.IsType(t, &ast.ConstructorInvocation{}, call.Arguments.Positional[0])

	assert.Equal(t, "Box", stmts[3].(*ast.ReturnStatement).Expression.(*ast.TypeLiteral).Class)
}

func TestSyntaxError(t *testing.T) {
	diags := readErrors(t, `library t;
fun main() {
  var = 3;
}
`)
	require.Len(t, diags, 1)
	assert.Equal(t, errors.ErrorSyntax, diags[0].Code)
	assert.Equal(t, 3, diags[0].Position.Line)
	assert.Equal(t, "test.dil", diags[0].Position.Filename)
}

func TestUndeclaredIdentifierSuggestsLocal(t *testing.T) {
	diags := readErrors(t, `library t;
fun main() {
  var count = 1;
  print(cuont);
}
`)
	require.Len(t, diags, 1)
	assert.Equal(t, errors.ErrorUndeclaredIdentifier, diags[0].Code)
	assert.Equal(t, 4, diags[0].Position.Line)
	require.NotEmpty(t, diags[0].Suggestions)
	assert.Equal(t, "count", diags[0].Suggestions[0].Replacement)
}

func TestConversionErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   string
	}{
		{"break outside loop", "fun main() { break; }", errors.ErrorInvalidJumpTarget},
		{"continue outside loop", "fun main() { continue; }", errors.ErrorInvalidJumpTarget},
		{"unknown label", "fun main() { while (true) { break nowhere; } }", errors.ErrorInvalidJumpTarget},
		{"assign to final", "fun main() { final x = 1; x = 2; }", errors.ErrorInvalidDeclaration},
		{"redeclared local", "fun main() { var x; var x; }", errors.ErrorInvalidDeclaration},
		{"missing body", "fun main();", errors.ErrorInvalidDeclaration},
		{"external with body", "external fun main() {}", errors.ErrorInvalidDeclaration},
		{"top level constructor", "new();", errors.ErrorInvalidDeclaration},
		{"assign to undeclared", "fun main() { y = 1; }", errors.ErrorUndeclaredIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := readErrors(t, "library t;\n"+tt.source)
			assert.Equal(t, tt.code, diags[0].Code)
		})
	}
}

func TestExampleLowers(t *testing.T) {
	source, err := os.ReadFile("../examples/shapes.dil")
	require.NoError(t, err)
	lib := read(t, string(source))

	table, err := symbols.NewCoreTable()
	require.NoError(t, err)
	require.NoError(t, table.AddLibrary(lib))

	pool := constant.NewPool()
	for _, fn := range table.Functions() {
		if !fn.IsLowerable() {
			continue
		}
		g, err := lower.NewBuilder(table, pool, config.Default()).BuildGraph(fn)
		require.NoError(t, err, fn.QualifiedName())
		require.NotEmpty(t, g.Blocks)
	}

	main := table.LookupFunction(ast.MemberRef{Name: "main"})
	g, err := lower.NewBuilder(table, pool, config.Default()).BuildGraph(main)
	require.NoError(t, err)
	assert.Len(t, g.BackEdges, 1)
	assert.Equal(t, 1, g.TryIndexCount)
	assert.Len(t, g.Closures, 1)

	prints := 0
	g.Walk(func(_ ir.BlockEntry, i ir.Instruction) {
		if call, ok := i.(*ir.StaticCall); ok && call.Function.Name == "print" {
			prints++
		}
	})
	// one before the loop, three copies of the finalizer, one after
	assert.Equal(t, 5, prints)
}
