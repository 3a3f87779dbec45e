package lower

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dil/internal/ast"
	"dil/internal/constant"
	"dil/internal/ir"
	"dil/internal/symbols"
)

func instanceCalls(g *ir.Graph, name string) []*ir.InstanceCall {
	var out []*ir.InstanceCall
	for _, c := range collect[*ir.InstanceCall](g) {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// printBlock returns the block holding the print call with argument n.
func printBlock(t *testing.T, g *ir.Graph, n int64) ir.BlockEntry {
	t.Helper()
	for _, c := range collect[*ir.StaticCall](g) {
		if c.Function.Name != "print" {
			continue
		}
		push := c.Arguments[0].Definition.(*ir.PushArgument)
		if k, ok := push.Value.Definition.(*ir.Constant); ok {
			if i, ok := k.Value.(*constant.Int); ok && i.Value == n {
				return blockOf(g, c)
			}
		}
	}
	require.Failf(t, "print not found", "no print(%d)", n)
	return nil
}

func joins(g *ir.Graph) []*ir.JoinEntry {
	var out []*ir.JoinEntry
	for _, b := range g.Blocks {
		if j, ok := b.(*ir.JoinEntry); ok {
			out = append(out, j)
		}
	}
	return out
}

func TestIfWithBothArmsOpenJoins(t *testing.T) {
	p := param("p")
	f := newFixture(t, mainLibrary(block(
		&ast.IfStatement{Condition: get(p), Then: printStmt(num(1)), Otherwise: printStmt(num(2))},
		ret(num(0)),
	), p))
	g := f.buildMain()

	assert.Equal(t, 1, g.Count("Branch"))
	js := joins(g)
	require.Len(t, js, 1)
	assert.Len(t, js[0].Predecessors(), 2)
	assert.Equal(t, map[int64]int{1: 1, 2: 1}, printedInts(t, g))
}

func TestIfWithClosedArmDoesNotJoin(t *testing.T) {
	p := param("p")
	f := newFixture(t, mainLibrary(block(
		&ast.IfStatement{Condition: get(p), Then: ret(num(1))},
		ret(num(2)),
	), p))
	g := f.buildMain()

	assert.Empty(t, joins(g))
	assert.Equal(t, 2, g.Count("Return"))
}

func TestNegatedConditionFlipsTheBranch(t *testing.T) {
	p := param("p")
	f := newFixture(t, mainLibrary(block(
		&ast.IfStatement{Condition: &ast.Not{Operand: get(p)}, Then: ret(num(1))},
		ret(num(2)),
	), p))
	g := f.buildMain()

	branches := collect[*ir.Branch](g)
	require.Len(t, branches, 1)
	assert.Equal(t, ir.StrictNotEqual, branches[0].Kind)
	assert.Zero(t, g.Count("BooleanNegate"))
}

func TestWhileLoopHasOneBackEdge(t *testing.T) {
	p := param("p")
	f := newFixture(t, mainLibrary(block(
		&ast.WhileStatement{Condition: get(p), Body: printStmt(num(1))},
		ret(num(0)),
	), p))
	g := f.buildMain()

	require.Len(t, g.BackEdges, 1)
	header := g.BackEdges[0].To
	assert.Len(t, header.Predecessors(), 2)

	checks := collect[*ir.CheckStackOverflow](g)
	require.Len(t, checks, 2)
	assert.Equal(t, 0, checks[0].LoopDepth)
	assert.Equal(t, 1, checks[1].LoopDepth)
	assert.Same(t, header, blockOf(g, checks[1]))
}

func TestBreakOutOfInfiniteLoop(t *testing.T) {
	p := param("p")
	label := &ast.LabeledStatement{Label: "L"}
	label.Body = &ast.WhileStatement{
		Condition: boolean(true),
		Body:      block(&ast.IfStatement{Condition: get(p), Then: &ast.BreakStatement{Target: label}}),
	}
	f := newFixture(t, mainLibrary(block(label, ret(num(0))), p))
	g := f.buildMain()

	require.Len(t, g.BackEdges, 1)
	assert.Len(t, g.BackEdges[0].To.Predecessors(), 2)
	assert.Equal(t, 1, g.Count("Branch"))
	assert.Equal(t, 1, g.Count("Return"))
}

func TestLoopWithoutExitClosesTheFunction(t *testing.T) {
	f := newFixture(t, mainLibrary(block(&ast.WhileStatement{Condition: boolean(true), Body: printStmt(num(1))})))
	g := f.buildMain()

	assert.Len(t, g.BackEdges, 1)
	assert.Zero(t, g.Count("Return"))
}

func TestDoLoopRunsBodyBeforeCondition(t *testing.T) {
	p := param("p")
	f := newFixture(t, mainLibrary(block(
		&ast.DoStatement{Body: printStmt(num(1)), Condition: get(p)},
		ret(num(0)),
	), p))
	g := f.buildMain()

	require.Len(t, g.BackEdges, 1)
	assert.Equal(t, 1, g.Count("Branch"))
	assert.Equal(t, map[int64]int{1: 1}, printedInts(t, g))
}

func TestForLoopClonesCapturedLoopVariable(t *testing.T) {
	i := local("i", num(0))
	loop := &ast.ForStatement{
		Variables: []*ast.VariableDeclaration{i},
		Condition: &ast.MethodInvocation{Receiver: get(i), Name: "<", Arguments: &ast.Arguments{Positional: []ast.Expr{num(3)}}},
		Updates:   []ast.Expr{set(i, &ast.MethodInvocation{Receiver: get(i), Name: "+", Arguments: &ast.Arguments{Positional: []ast.Expr{num(1)}}})},
		Body:      do(closure(block(ret(get(i))))),
	}
	f := newFixture(t, mainLibrary(block(loop, ret(num(0)))))
	g := f.buildMain()

	assert.Len(t, g.BackEdges, 1)
	assert.Equal(t, 1, g.Count("AllocateContext"))
	assert.Equal(t, 1, g.Count("CloneContext"))
	assert.Len(t, instanceCalls(g, "<"), 1)
	assert.Len(t, instanceCalls(g, "+"), 1)
}

func TestNestedForLoopEntersFrameOutsideItsLoop(t *testing.T) {
	p := param("p")
	i := local("i", num(0))
	loop := &ast.ForStatement{
		Variables: []*ast.VariableDeclaration{i},
		Condition: get(p),
		Body:      do(closure(block(ret(get(i))))),
	}
	outer := &ast.WhileStatement{Condition: get(p), Body: block(loop)}
	f := newFixture(t, mainLibrary(block(outer, ret(num(0))), p))
	g := f.buildMain()

	assert.Equal(t, 1, g.Count("AllocateContext"))
	assert.Equal(t, 1, g.Count("CloneContext"))
	assert.Len(t, g.BackEdges, 2)

	var depths []int
	for _, c := range collect[*ir.CheckStackOverflow](g) {
		depths = append(depths, c.LoopDepth)
	}
	assert.ElementsMatch(t, []int{0, 1, 2}, depths)
}

func TestForInUsesTheIteratorProtocol(t *testing.T) {
	items := param("items")
	v := param("v")
	f := newFixture(t, mainLibrary(block(
		&ast.ForInStatement{Variable: v, Iterable: get(items), Body: printStmt(get(v))},
		ret(num(0)),
	), items))
	g := f.buildMain()

	assert.Len(t, instanceCalls(g, symbols.GetterName("iterator")), 1)
	assert.Len(t, instanceCalls(g, "moveNext"), 1)
	assert.Len(t, instanceCalls(g, symbols.GetterName("current")), 1)
	require.Len(t, g.BackEdges, 1)

	moveNext := instanceCalls(g, "moveNext")[0]
	assert.Same(t, g.BackEdges[0].To, blockOf(g, moveNext))
}

func TestSwitchSharesJoinsBetweenCases(t *testing.T) {
	p := param("p")
	label := &ast.LabeledStatement{Label: "L"}
	first := &ast.SwitchCase{Expressions: []ast.Expr{num(1), num(2)}, Body: &ast.BreakStatement{Target: label}}
	second := &ast.SwitchCase{Expressions: []ast.Expr{num(3)}, Body: block(
		printStmt(num(3)),
		&ast.ContinueSwitchStatement{Target: first},
	)}
	third := &ast.SwitchCase{IsDefault: true, Body: &ast.BreakStatement{Target: label}}
	label.Body = &ast.SwitchStatement{Expression: get(p), Cases: []*ast.SwitchCase{first, second, third}}

	f := newFixture(t, mainLibrary(block(label, ret(num(0))), p))
	g := f.buildMain()

	assert.Len(t, instanceCalls(g, symbols.EqualsOperator), 3)

	var preds []int
	for _, j := range joins(g) {
		preds = append(preds, len(j.Predecessors()))
	}
	assert.ElementsMatch(t, []int{3, 2}, preds)
	assert.Empty(t, g.BackEdges)
}

func TestSwitchFallsThroughToNextCase(t *testing.T) {
	p := param("p")
	sw := &ast.SwitchStatement{Expression: get(p), Cases: []*ast.SwitchCase{
		{Expressions: []ast.Expr{num(1)}, Body: printStmt(num(1))},
		{Expressions: []ast.Expr{num(2)}, Body: printStmt(num(2))},
	}}
	f := newFixture(t, mainLibrary(block(sw, ret(num(0))), p))
	g := f.buildMain()

	assert.Len(t, instanceCalls(g, symbols.EqualsOperator), 2)
	assert.Equal(t, map[int64]int{1: 1, 2: 1}, printedInts(t, g))
	assert.Equal(t, 1, g.Count("Return"))
}

func TestSwitchCaseReachedByFallthroughAndContinue(t *testing.T) {
	p := param("p")
	label := &ast.LabeledStatement{Label: "L"}
	target := &ast.SwitchCase{Expressions: []ast.Expr{num(2)}, Body: block(
		printStmt(num(2)),
		&ast.BreakStatement{Target: label},
	)}
	label.Body = &ast.SwitchStatement{Expression: get(p), Cases: []*ast.SwitchCase{
		{Expressions: []ast.Expr{num(1)}, Body: printStmt(num(1))},
		target,
		{Expressions: []ast.Expr{num(3)}, Body: block(
			printStmt(num(3)),
			&ast.ContinueSwitchStatement{Target: target},
		)},
	}}
	f := newFixture(t, mainLibrary(block(label, ret(num(0))), p))
	g := f.buildMain()

	assert.Equal(t, map[int64]int{1: 1, 2: 1, 3: 1}, printedInts(t, g))

	// fallthrough from case 1, the test of case 2 and the continue
	shared, ok := printBlock(t, g, 2).(*ir.JoinEntry)
	require.True(t, ok)
	assert.Len(t, shared.Predecessors(), 3)

	var preds []int
	for _, j := range joins(g) {
		preds = append(preds, len(j.Predecessors()))
	}
	assert.ElementsMatch(t, []int{3, 2}, preds)
}

func TestSwitchSharedBodyBreakWithDefault(t *testing.T) {
	p := param("p")
	label := &ast.LabeledStatement{Label: "L"}
	label.Body = &ast.SwitchStatement{Expression: get(p), Cases: []*ast.SwitchCase{
		{Expressions: []ast.Expr{num(1), num(2)}, Body: block(
			printStmt(num(1)),
			&ast.BreakStatement{Target: label},
		)},
		{IsDefault: true, Body: printStmt(num(2))},
	}}
	f := newFixture(t, mainLibrary(block(label, ret(num(0))), p))
	g := f.buildMain()

	assert.Len(t, instanceCalls(g, symbols.EqualsOperator), 2)
	require.Len(t, joins(g), 2)

	caseJoin, ok := printBlock(t, g, 1).(*ir.JoinEntry)
	require.True(t, ok)
	assert.Len(t, caseJoin.Predecessors(), 2)

	_, defaultJoined := printBlock(t, g, 2).(*ir.JoinEntry)
	assert.False(t, defaultJoined)

	returns := collect[*ir.Return](g)
	require.Len(t, returns, 1)
	breakJoin, ok := blockOf(g, returns[0]).(*ir.JoinEntry)
	require.True(t, ok)
	assert.Len(t, breakJoin.Predecessors(), 2)
}

func TestSwitchDefaultMustBeLast(t *testing.T) {
	p := param("p")
	sw := &ast.SwitchStatement{Expression: get(p), Cases: []*ast.SwitchCase{
		{IsDefault: true, Body: printStmt(num(1))},
		{Expressions: []ast.Expr{num(2)}, Body: printStmt(num(2))},
	}}
	f := newFixture(t, mainLibrary(block(sw, ret(num(0))), p))
	_, err := f.builder().BuildGraph(f.function("", "main"))
	assert.Error(t, err)
}

func TestReturnReplaysEveryFinalizer(t *testing.T) {
	for n := 1; n <= 3; n++ {
		t.Run(fmt.Sprintf("depth %d", n), func(t *testing.T) {
			var stmt ast.Statement = ret(num(0))
			for i := n; i >= 1; i-- {
				stmt = &ast.TryFinally{Body: block(stmt), Finalizer: block(printStmt(num(int64(i))))}
			}
			f := newFixture(t, mainLibrary(block(stmt)))
			g := f.buildMain()

			counts := printedInts(t, g)
			for i := 1; i <= n; i++ {
				assert.Equal(t, 2, counts[int64(i)], "finalizer %d", i)
			}
			assert.Equal(t, 1, g.Count("Return"))
			assert.Equal(t, n, g.Count("ReThrow"))
			assert.Len(t, g.Entry.Catches, n)
			assert.Equal(t, n, g.TryIndexCount)
		})
	}
}

func TestFinalizerRunsOnNormalExit(t *testing.T) {
	f := newFixture(t, mainLibrary(block(
		&ast.TryFinally{Body: block(printStmt(num(1))), Finalizer: block(printStmt(num(2)))},
		ret(num(0)),
	)))
	g := f.buildMain()

	assert.Equal(t, map[int64]int{1: 1, 2: 2}, printedInts(t, g))
	assert.Equal(t, 1, g.Count("ReThrow"))

	handlers := g.Entry.Catches
	require.Len(t, handlers, 1)
	assert.Empty(t, handlers[0].Guards)
	assert.Equal(t, ir.InvalidTryIndex, handlers[0].TryIndex())
	assert.Equal(t, 0, handlers[0].CatchTryIndex)
}

func TestBreakThroughFinalizer(t *testing.T) {
	p := param("p")
	label := &ast.LabeledStatement{Label: "L"}
	label.Body = &ast.WhileStatement{Condition: get(p), Body: &ast.TryFinally{
		Body:      block(&ast.BreakStatement{Target: label}),
		Finalizer: block(printStmt(num(7))),
	}}
	f := newFixture(t, mainLibrary(block(label, ret(num(0))), p))
	g := f.buildMain()

	// One copy on the break path and one in the handler.
	assert.Equal(t, map[int64]int{7: 2}, printedInts(t, g))
	assert.Empty(t, g.BackEdges)
}

func TestCatchGuardsAreTestedInOrder(t *testing.T) {
	e := param("e")
	try := &ast.TryCatch{
		Body: block(printStmt(num(1))),
		Catches: []*ast.Catch{
			{Guard: "Exception", Exception: e, Body: block(printStmt(get(e)))},
		},
	}
	f := newFixture(t, mainLibrary(block(try, ret(num(0)))))
	g := f.buildMain()

	require.Len(t, g.Entry.Catches, 1)
	handler := g.Entry.Catches[0]
	assert.Equal(t, []string{"Exception"}, handler.Guards)
	assert.Equal(t, 0, handler.CatchTryIndex)

	assert.Len(t, instanceCalls(g, symbols.InstanceOfFn), 1)
	// Unmatched exceptions are rethrown.
	assert.Equal(t, 1, g.Count("ReThrow"))

	var tried *ir.StaticCall
	for _, c := range collect[*ir.StaticCall](g) {
		push := c.Arguments[0].Definition.(*ir.PushArgument)
		if _, isConstant := push.Value.Definition.(*ir.Constant); isConstant {
			tried = c
		}
	}
	require.NotNil(t, tried)
	assert.Equal(t, 0, blockOf(g, tried).TryIndex())
}

func TestStatsCountGuardedCalls(t *testing.T) {
	try := &ast.TryCatch{
		Body:    block(printStmt(num(1))),
		Catches: []*ast.Catch{{Body: block()}},
	}
	f := newFixture(t, mainLibrary(block(try, printStmt(num(2)), ret(num(0)))))
	g := f.buildMain()

	stats := g.Stats()
	assert.Equal(t, 1, stats.Guarded)
	// the second print and the stack check sit outside the try
	assert.GreaterOrEqual(t, stats.Throwing, 3)
}

func TestCatchAllDoesNotRethrow(t *testing.T) {
	e, st := param("e"), param("st")
	try := &ast.TryCatch{
		Body: block(printStmt(num(1))),
		Catches: []*ast.Catch{
			{Exception: e, StackTrace: st, Body: block(printStmt(get(st)))},
		},
	}
	f := newFixture(t, mainLibrary(block(try, ret(num(0)))))
	g := f.buildMain()

	assert.Zero(t, g.Count("ReThrow"))
	assert.Empty(t, instanceCalls(g, symbols.InstanceOfFn))
	assert.Equal(t, 1, g.Count("Return"))
}

func TestRethrowInsideCatch(t *testing.T) {
	try := &ast.TryCatch{
		Body:    block(do(&ast.Throw{Value: num(1)})),
		Catches: []*ast.Catch{{Body: block(do(&ast.Rethrow{}))}},
	}
	f := newFixture(t, mainLibrary(block(try)))
	g := f.buildMain()

	assert.Equal(t, 1, g.Count("Throw"))
	rethrows := collect[*ir.ReThrow](g)
	require.Len(t, rethrows, 1)
	assert.Equal(t, 0, rethrows[0].CatchTryIndex)
	assert.Zero(t, g.Count("Return"))
}

func TestCatchAllMustBeLast(t *testing.T) {
	try := &ast.TryCatch{
		Body: block(printStmt(num(1))),
		Catches: []*ast.Catch{
			{Body: block()},
			{Guard: "Exception", Body: block()},
		},
	}
	f := newFixture(t, mainLibrary(block(try)))
	_, err := f.builder().BuildGraph(f.function("", "main"))
	assert.Error(t, err)
}

func TestAssertsFollowConfiguration(t *testing.T) {
	p := param("p")
	lib := func() *ast.Library {
		return mainLibrary(block(
			&ast.AssertStatement{Condition: get(p), Message: &ast.StringLiteral{Value: "boom"}},
			ret(num(0)),
		), p)
	}

	disabled := newFixture(t, lib())
	g := disabled.buildMain()
	assert.Zero(t, g.Count("Branch"))
	assert.Zero(t, g.Count("Throw"))

	enabled := newFixture(t, lib())
	enabled.cfg.EnableAsserts = true
	g = enabled.buildMain()
	assert.Equal(t, 1, g.Count("Branch"))
	assert.Equal(t, 1, g.Count("Throw"))

	calls := collect[*ir.StaticCall](g)
	require.Len(t, calls, 1)
	assert.Equal(t, symbols.FactoryName(symbols.AssertionErrorClass, symbols.AssertionFactory), calls[0].Function.Name)
}
