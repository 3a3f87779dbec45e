package lower

import (
	"dil/internal/ast"
	"dil/internal/errors"
	"dil/internal/ir"
	"dil/internal/symbols"
)

// translateStatement lowers stmt. The expression stack and the frame depth
// are the same before and after every statement.
func (b *Builder) translateStatement(stmt ast.Statement) ir.Fragment {
	if stmt == nil {
		return ir.Fragment{}
	}
	savedPos := b.pos
	b.pos = stmt.NodePos()
	defer func() { b.pos = savedPos }()

	depth := b.stackDepth()
	contextDepth := b.contextDepth

	f := b.visitStatement(stmt)

	if b.stackDepth() != depth {
		fatalf(stmt, errors.MalformedIR, "%s left %d values on the expression stack", stmt.NodeType(), b.stackDepth()-depth)
	}
	if b.contextDepth != contextDepth {
		fatalf(stmt, errors.MalformedIR, "%s changed the frame level from %d to %d", stmt.NodeType(), contextDepth, b.contextDepth)
	}
	if b.onStatement != nil {
		b.onStatement(stmt, b.stackDepth())
	}
	return f
}

func (b *Builder) visitStatement(stmt ast.Statement) ir.Fragment {
	switch stmt := stmt.(type) {
	case *ast.EmptyStatement:
		return ir.Fragment{}
	case *ast.InvalidStatement:
		fatalf(stmt, errors.MalformedIR, "invalid statement: %s", stmt.Message)
	case *ast.Block:
		return b.visitBlock(stmt)
	case *ast.ExpressionStatement:
		f := b.translateExpression(stmt.Expression)
		return f.Append(b.drop())
	case *ast.VariableDeclaration:
		return b.visitVariableDeclaration(stmt)
	case *ast.FunctionDeclaration:
		f := b.translateFunctionNode(stmt.Function, stmt.Variable.Name)
		f = f.Append(b.storeVariable(b.lookupVariable(stmt, stmt.Variable)))
		return f.Append(b.drop())
	case *ast.IfStatement:
		return b.visitIf(stmt)
	case *ast.WhileStatement:
		return b.visitWhile(stmt)
	case *ast.DoStatement:
		return b.visitDo(stmt)
	case *ast.ForStatement:
		return b.visitFor(stmt)
	case *ast.ForInStatement:
		return b.visitForIn(stmt)
	case *ast.LabeledStatement:
		return b.visitLabeled(stmt)
	case *ast.BreakStatement:
		destination, outerFinally, contextDepth := b.breakDestination(stmt)
		f := b.translateFinallyFinalizers(outerFinally, contextDepth)
		return f.Append(b.gotoJoin(destination))
	case *ast.SwitchStatement:
		return b.visitSwitch(stmt)
	case *ast.ContinueSwitchStatement:
		destination, outerFinally, contextDepth := b.continueDestination(stmt)
		f := b.translateFinallyFinalizers(outerFinally, contextDepth)
		return f.Append(b.gotoJoin(destination))
	case *ast.ReturnStatement:
		return b.visitReturn(stmt)
	case *ast.TryCatch:
		return b.visitTryCatch(stmt)
	case *ast.TryFinally:
		return b.visitTryFinally(stmt)
	case *ast.AssertStatement:
		return b.visitAssert(stmt)
	case *ast.YieldStatement:
		fatalf(stmt, errors.UnsupportedConstruct, "yield has no lowering")
	default:
		fatalf(stmt, errors.UnsupportedConstruct, "cannot lower %s", stmt.NodeType())
	}
	return ir.Fragment{}
}

// visitBlock skips statements after the block closes.
func (b *Builder) visitBlock(block *ast.Block) ir.Fragment {
	f := b.enterScope(block)
	for _, stmt := range block.Statements {
		if f.IsClosed() {
			break
		}
		f = f.Append(b.translateStatement(stmt))
	}
	return f.Append(b.exitScope(block))
}

func (b *Builder) visitVariableDeclaration(decl *ast.VariableDeclaration) ir.Fragment {
	v := b.lookupVariable(decl, decl)
	var f ir.Fragment
	switch {
	case decl.Initializer == nil:
		f = b.nullConstant()
	case decl.IsConst:
		f = b.constant(b.evaluator.MustEvaluate(decl.Initializer))
	default:
		f = b.translateExpression(decl.Initializer)
	}
	f = f.Append(b.storeVariable(v))
	return f.Append(b.drop())
}

func (b *Builder) visitIf(stmt *ast.IfStatement) ir.Fragment {
	f, negate := b.translateCondition(stmt.Condition)
	branch, thenEntry, otherwiseEntry := b.branchIfTrue(negate)
	f = f.Append(branch)

	then := fragmentFrom(thenEntry).Append(b.translateStatement(stmt.Then))
	otherwise := fragmentFrom(otherwiseEntry).Append(b.translateStatement(stmt.Otherwise))

	switch {
	case then.IsOpen() && otherwise.IsOpen():
		join := b.buildJoinEntry()
		then.Append(b.gotoJoin(join))
		otherwise.Append(b.gotoJoin(join))
		return ir.Fragment{Entry: f.Entry, Exit: join}
	case then.IsOpen():
		return ir.Fragment{Entry: f.Entry, Exit: then.Exit}
	case otherwise.IsOpen():
		return ir.Fragment{Entry: f.Entry, Exit: otherwise.Exit}
	default:
		return f.Closed()
	}
}

// isTrueLiteral reports loop conditions that never exit the loop.
func isTrueLiteral(cond ast.Expr) bool {
	if cond == nil {
		return true
	}
	lit, ok := cond.(*ast.BoolLiteral)
	return ok && lit.Value
}

// loopHeader closes body with a jump back to a fresh loop header and
// returns the jump into the loop. header runs at the top of every
// iteration, after the stack check.
func (b *Builder) loopHeader(body, header ir.Fragment) ir.Fragment {
	join := b.buildJoinEntry()
	body.Append(b.gotoJoin(join))
	fragmentFrom(join).Append(b.checkStackOverflow()).Append(header)
	return b.gotoJoin(join)
}

// loopForever repeats body with no exit test.
func (b *Builder) loopForever(body ir.Fragment) ir.Fragment {
	join := b.buildJoinEntry()
	fragmentFrom(join).Append(b.checkStackOverflow()).Append(body).Append(b.gotoJoin(join))
	return b.gotoJoin(join)
}

func (b *Builder) visitWhile(stmt *ast.WhileStatement) ir.Fragment {
	b.depth.loop++
	defer func() { b.depth.loop-- }()

	if isTrueLiteral(stmt.Condition) {
		body := b.translateStatement(stmt.Body)
		if body.IsClosed() {
			return body
		}
		return b.loopForever(body)
	}

	condition, negate := b.translateCondition(stmt.Condition)
	branch, bodyEntry, exit := b.branchIfTrue(negate)
	condition = condition.Append(branch)

	body := fragmentFrom(bodyEntry).Append(b.translateStatement(stmt.Body))
	entry := condition
	if body.IsOpen() {
		entry = b.loopHeader(body, condition)
	}
	return ir.Fragment{Entry: entry.Entry, Exit: exit}
}

func (b *Builder) visitDo(stmt *ast.DoStatement) ir.Fragment {
	b.depth.loop++
	defer func() { b.depth.loop-- }()

	body := b.translateStatement(stmt.Body)
	if body.IsClosed() {
		return body
	}
	if isTrueLiteral(stmt.Condition) {
		return b.loopForever(body)
	}

	condition, negate := b.translateCondition(stmt.Condition)
	branch, repeat, exit := b.branchIfTrue(negate)
	iteration := body.Append(condition).Append(branch)
	entry := b.loopHeader(fragmentFrom(repeat), iteration)
	return ir.Fragment{Entry: entry.Entry, Exit: exit}
}

func (b *Builder) visitFor(stmt *ast.ForStatement) ir.Fragment {
	s := b.result.Scope(stmt)
	perIteration := s != nil && s.HasContext()

	f := b.enterScope(stmt)
	for _, v := range stmt.Variables {
		f = f.Append(b.translateStatement(v))
	}

	b.depth.loop++
	forever := isTrueLiteral(stmt.Condition)
	var condition, body ir.Fragment
	var exit *ir.TargetEntry
	if !forever {
		var negate bool
		condition, negate = b.translateCondition(stmt.Condition)
		var branch ir.Fragment
		var bodyEntry *ir.TargetEntry
		branch, bodyEntry, exit = b.branchIfTrue(negate)
		condition = condition.Append(branch)
		body = fragmentFrom(bodyEntry)
	}
	body = body.Append(b.translateStatement(stmt.Body))

	if body.IsOpen() {
		if perIteration {
			body = body.Append(b.cloneCurrentContext())
		}
		for _, update := range stmt.Updates {
			body = body.Append(b.translateExpression(update))
			body = body.Append(b.drop())
		}
		if forever {
			f = f.Append(b.loopForever(body))
		} else {
			f = f.Append(b.loopHeader(body, condition))
		}
	} else if forever {
		f = f.Append(body)
	} else {
		f = f.Append(condition)
	}
	b.depth.loop--

	if exit != nil {
		f = ir.Fragment{Entry: f.Entry, Exit: exit}
	}
	return f.Append(b.exitScope(stmt))
}

func (b *Builder) visitForIn(stmt *ast.ForInStatement) ir.Fragment {
	iterator := b.info.IteratorVariables[b.depth.forIn]

	f := b.translateExpression(stmt.Iterable)
	f = f.Append(b.pushArgument())
	f = f.Append(b.instanceCall(symbols.GetterName("iterator"), 1, nil))
	f = f.Append(b.storeLocal(iterator))
	f = f.Append(b.drop())

	b.depth.forIn++
	b.depth.loop++
	defer func() {
		b.depth.loop--
		b.depth.forIn--
	}()

	condition := b.loadLocal(iterator)
	condition = condition.Append(b.pushArgument())
	condition = condition.Append(b.instanceCall("moveNext", 1, nil))
	branch, bodyEntry, exit := b.branchIfTrue(false)
	condition = condition.Append(branch)

	body := fragmentFrom(bodyEntry).Append(b.enterScope(stmt))
	body = body.Append(b.loadLocal(iterator))
	body = body.Append(b.pushArgument())
	body = body.Append(b.instanceCall(symbols.GetterName("current"), 1, nil))
	body = body.Append(b.storeVariable(b.lookupVariable(stmt, stmt.Variable)))
	body = body.Append(b.drop())
	body = body.Append(b.translateStatement(stmt.Body))
	body = body.Append(b.exitScope(stmt))

	if body.IsOpen() {
		join := b.buildJoinEntry()
		f = f.Append(b.gotoJoin(join))
		body.Append(b.gotoJoin(join))
		fragmentFrom(join).Append(b.checkStackOverflow()).Append(condition)
	} else {
		f = f.Append(condition)
	}
	return ir.Fragment{Entry: f.Entry, Exit: exit}
}

func (b *Builder) visitLabeled(stmt *ast.LabeledStatement) ir.Fragment {
	block, pop := b.pushBreakable(stmt)
	f := b.translateStatement(stmt.Body)
	pop()

	if !block.hadJumper() {
		return f
	}
	if f.IsOpen() {
		f = f.Append(b.gotoJoin(block.destination))
	}
	return ir.Fragment{Entry: f.Entry, Exit: block.destination}
}

func (b *Builder) visitReturn(stmt *ast.ReturnStatement) ir.Fragment {
	var f ir.Fragment
	if stmt.Expression == nil {
		f = b.nullConstant()
	} else {
		f = b.translateExpression(stmt.Expression)
	}
	if f.IsClosed() {
		b.pop()
		return f
	}
	if b.tryFinally == nil {
		return f.Append(b.returnValue())
	}

	pending := b.info.FinallyReturn
	if pending == nil {
		fatalf(stmt, errors.MalformedIR, "return inside a finally region has no pending value slot")
	}
	f = f.Append(b.storeLocal(pending))
	f = f.Append(b.drop())
	f = f.Append(b.translateFinallyFinalizers(nil, -1))
	if f.IsOpen() {
		f = f.Append(b.loadLocal(pending))
		f = f.Append(b.returnValue())
	}
	return f
}

func (b *Builder) visitAssert(stmt *ast.AssertStatement) ir.Fragment {
	if !b.cfg.EnableAsserts {
		return ir.Fragment{}
	}
	f, negate := b.translateCondition(stmt.Condition)
	branch, then, otherwise := b.branchIfTrue(negate)
	f = f.Append(branch)

	failure := fragmentFrom(otherwise)
	if stmt.Message != nil {
		failure = failure.Append(b.translateExpression(stmt.Message))
	} else {
		failure = failure.Append(b.nullConstant())
	}
	failure = failure.Append(b.pushArgument())
	create := b.bridge.ResolveConstructor(ast.MemberRef{Class: symbols.AssertionErrorClass, Name: symbols.AssertionFactory})
	failure = failure.Append(b.staticCall(create, 1, nil))
	failure.Append(b.throwException())
	b.drop()

	return ir.Fragment{Entry: f.Entry, Exit: then}
}
