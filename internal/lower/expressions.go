package lower

import (
	"slices"

	"dil/internal/ast"
	"dil/internal/errors"
	"dil/internal/ir"
	"dil/internal/symbols"
)

// translateExpression lowers expr, leaving exactly one value on the stack.
func (b *Builder) translateExpression(expr ast.Expr) ir.Fragment {
	if expr == nil {
		errors.Fatal(errors.MalformedIR, b.position(), "missing expression")
	}
	savedPos := b.pos
	b.pos = expr.NodePos()
	defer func() { b.pos = savedPos }()

	switch expr := expr.(type) {
	case *ast.InvalidExpression:
		fatalf(expr, errors.MalformedIR, "invalid expression: %s", expr.Message)

	case *ast.NullLiteral, *ast.BoolLiteral, *ast.IntLiteral, *ast.DoubleLiteral,
		*ast.StringLiteral, *ast.SymbolLiteral, *ast.TypeLiteral:
		return b.constant(b.evaluator.MustEvaluate(expr))

	case *ast.ThisExpression:
		if b.this == nil {
			fatalf(expr, errors.MalformedIR, "'this' used in a function without a receiver")
		}
		return b.loadVariable(b.this)

	case *ast.VariableGet:
		return b.loadVariable(b.lookupVariable(expr, expr.Variable))

	case *ast.VariableSet:
		f := b.translateExpression(expr.Value)
		return f.Append(b.storeVariable(b.lookupVariable(expr, expr.Variable)))

	case *ast.StaticGet:
		return b.visitStaticGet(expr)
	case *ast.StaticSet:
		return b.visitStaticSet(expr)

	case *ast.PropertyGet:
		f := b.translateExpression(expr.Receiver)
		f = f.Append(b.pushArgument())
		return f.Append(b.instanceCall(symbols.GetterName(expr.Name), 1, nil))

	case *ast.PropertySet:
		f := b.nullConstant()
		result := b.makeTemporary()
		f = f.Append(b.translateExpression(expr.Receiver))
		f = f.Append(b.pushArgument())
		f = f.Append(b.translateExpression(expr.Value))
		f = f.Append(b.storeLocal(result))
		f = f.Append(b.pushArgument())
		f = f.Append(b.instanceCall(symbols.SetterName(expr.Name), 2, nil))
		return f.Append(b.drop())

	case *ast.DirectPropertyGet:
		return b.visitDirectPropertyGet(expr)
	case *ast.DirectPropertySet:
		return b.visitDirectPropertySet(expr)

	case *ast.StaticInvocation:
		return b.visitStaticInvocation(expr)

	case *ast.MethodInvocation:
		f := b.translateExpression(expr.Receiver)
		f = f.Append(b.pushArgument())
		args, count := b.translateArguments(expr.Arguments)
		f = f.Append(args)
		return f.Append(b.instanceCall(expr.Name, count+1, expr.Arguments.Names()))

	case *ast.ConstructorInvocation:
		return b.visitConstructorInvocation(expr)

	case *ast.IsExpression:
		f := b.translateExpression(expr.Operand)
		f = f.Append(b.pushArgument())
		f = f.Append(b.constant(b.pool.Type(b.bridge.ResolveClass(expr.Class))))
		f = f.Append(b.pushArgument())
		f = f.Append(b.boolConstant(false))
		f = f.Append(b.pushArgument())
		return f.Append(b.instanceCall(symbols.InstanceOfFn, 3, nil))

	case *ast.AsExpression:
		f := b.translateExpression(expr.Operand)
		f = f.Append(b.pushArgument())
		f = f.Append(b.constant(b.pool.Type(b.bridge.ResolveClass(expr.Class))))
		f = f.Append(b.pushArgument())
		return f.Append(b.instanceCall(symbols.AsFn, 2, nil))

	case *ast.ConditionalExpression:
		return b.visitConditional(expr)
	case *ast.LogicalExpression:
		if expr.Operator == ast.IfNull {
			return b.visitIfNull(expr)
		}
		return b.visitLogical(expr)

	case *ast.Not:
		f := b.translateExpression(expr.Operand)
		return f.Append(b.booleanNegate())

	case *ast.StringConcatenation:
		return b.visitStringConcatenation(expr)

	case *ast.ListLiteral:
		if expr.IsConst {
			return b.constant(b.evaluator.MustEvaluate(expr))
		}
		return b.literalFactory(expr, symbols.ListClass, symbols.ListFactory, expr.Expressions)

	case *ast.MapLiteral:
		if expr.IsConst {
			return b.constant(b.evaluator.MustEvaluate(expr))
		}
		elements := make([]ast.Expr, 0, 2*len(expr.Entries))
		for _, entry := range expr.Entries {
			elements = append(elements, entry.Key, entry.Value)
		}
		return b.literalFactory(expr, symbols.MapClass, symbols.MapFactory, elements)

	case *ast.FunctionExpression:
		return b.translateFunctionNode(expr.Function, "")

	case *ast.Let:
		f := b.translateStatement(expr.Variable)
		return f.Append(b.translateExpression(expr.Body))

	case *ast.Throw:
		f := b.translateExpression(expr.Value)
		return f.Append(b.throwException())

	case *ast.Rethrow:
		if b.catchBlock == nil {
			fatalf(expr, errors.MalformedIR, "rethrow outside of a catch clause")
		}
		f := b.loadLocal(b.catchBlock.exception)
		f = f.Append(b.pushArgument())
		f = f.Append(b.loadLocal(b.catchBlock.stackTrace))
		f = f.Append(b.pushArgument())
		return f.Append(b.rethrowException(b.catchBlock.catchTryIndex))

	default:
		fatalf(expr, errors.UnsupportedConstruct, "cannot lower %s", expr.NodeType())
	}
	return ir.Fragment{}
}

// translateCondition lowers a condition, folding leading negations into the
// returned flag instead of emitting BooleanNegate.
func (b *Builder) translateCondition(expr ast.Expr) (ir.Fragment, bool) {
	if not, ok := expr.(*ast.Not); ok {
		f, negate := b.translateCondition(not.Operand)
		return f, !negate
	}
	return b.translateExpression(expr), false
}

// translateArguments pushes positional then named arguments.
func (b *Builder) translateArguments(args *ast.Arguments) (ir.Fragment, int) {
	var f ir.Fragment
	if args == nil {
		return f, 0
	}
	for _, arg := range args.Positional {
		f = f.Append(b.translateExpression(arg))
		f = f.Append(b.pushArgument())
	}
	for _, arg := range args.Named {
		f = f.Append(b.translateExpression(arg.Value))
		f = f.Append(b.pushArgument())
	}
	return f, args.Count()
}

// checkArguments rejects calls that do not match the callee's parameters.
func checkArguments(node ast.Node, fn *symbols.Function, args *ast.Arguments) {
	positional := 0
	if args != nil {
		positional = len(args.Positional)
	}
	if positional < fn.RequiredCount || positional > fn.PositionalCount {
		fatalf(node, errors.MalformedIR, "%s takes %d to %d positional arguments, got %d",
			fn.QualifiedName(), fn.RequiredCount, fn.PositionalCount, positional)
	}
	for _, name := range args.Names() {
		if !slices.Contains(fn.NamedParameters, name) {
			fatalf(node, errors.MalformedIR, "%s has no parameter named '%s'", fn.QualifiedName(), name)
		}
	}
}

// staticFieldValue loads a static field, running its initializer on first
// use. Constant fields are folded.
func (b *Builder) staticFieldValue(field *symbols.Field) ir.Fragment {
	if field.IsConst {
		return b.constant(b.evaluator.StaticField(field))
	}
	var f ir.Fragment
	if field.Initializer() != nil {
		f = b.initStaticField(field)
	}
	return f.Append(b.loadStaticField(field))
}

func (b *Builder) visitStaticGet(expr *ast.StaticGet) ir.Fragment {
	if field := b.bridge.LookupField(expr.Target); field != nil {
		if !field.IsStatic {
			fatalf(expr, errors.MalformedIR, "instance field %s read without a receiver", field.QualifiedName())
		}
		return b.staticFieldValue(field)
	}
	getter := ast.MemberRef{Class: expr.Target.Class, Name: symbols.GetterName(expr.Target.Name)}
	if fn := b.bridge.LookupFunction(getter); fn != nil {
		return b.staticCall(fn, 0, nil)
	}
	if fn := b.bridge.LookupFunction(expr.Target); fn != nil {
		return b.tearOff(expr, fn)
	}
	b.bridge.ResolveField(expr.Target)
	return ir.Fragment{}
}

// tearOff allocates a closure over the implicit closure of fn. It captures
// no frame.
func (b *Builder) tearOff(expr *ast.StaticGet, fn *symbols.Function) ir.Fragment {
	if fn.Kind != symbols.RegularFunction {
		fatalf(expr, errors.MalformedIR, "cannot tear off %s %s", fn.Kind, fn.QualifiedName())
	}
	if fn.HasReceiver() {
		fatalf(expr, errors.MalformedIR, "instance method %s torn off without a receiver", fn.QualifiedName())
	}
	closureFn := b.bridge.ImplicitClosureFunction(fn)
	if !slices.Contains(b.closures, closureFn) {
		b.closures = append(b.closures, closureFn)
	}

	f := b.allocateObject(b.bridge.ResolveClass(symbols.ClosureClass))
	closure := b.makeTemporary()
	f = f.Append(b.loadLocal(closure))
	f = f.Append(b.constant(b.pool.Function(closureFn)))
	f = f.Append(b.storeField(ir.ClosureFunction))
	f = f.Append(b.loadLocal(closure))
	f = f.Append(b.nullConstant())
	return f.Append(b.storeField(ir.ClosureContext))
}

func (b *Builder) visitStaticSet(expr *ast.StaticSet) ir.Fragment {
	if field := b.bridge.LookupField(expr.Target); field != nil {
		if !field.IsStatic || field.IsFinal {
			fatalf(expr, errors.MalformedIR, "cannot assign %s", field.QualifiedName())
		}
		f := b.translateExpression(expr.Value)
		value := b.makeTemporary()
		f = f.Append(b.loadLocal(value))
		return f.Append(b.storeStaticField(field))
	}

	setter := b.bridge.ResolveFunction(ast.MemberRef{Class: expr.Target.Class, Name: symbols.SetterName(expr.Target.Name)})
	f := b.translateExpression(expr.Value)
	value := b.makeTemporary()
	f = f.Append(b.loadLocal(value))
	f = f.Append(b.pushArgument())
	f = f.Append(b.staticCall(setter, 1, nil))
	return f.Append(b.drop())
}

// instanceField returns the stored field a direct access names, or nil
// when it names an accessor.
func (b *Builder) instanceField(ref ast.MemberRef) *symbols.Field {
	field := b.bridge.LookupField(ref)
	if field == nil || field.IsStatic {
		return nil
	}
	return field
}

func (b *Builder) visitDirectPropertyGet(expr *ast.DirectPropertyGet) ir.Fragment {
	f := b.translateExpression(expr.Receiver)
	if field := b.instanceField(expr.Target); field != nil {
		return f.Append(b.loadField(ir.FieldSlot(field)))
	}
	getter := b.bridge.ResolveFunction(ast.MemberRef{Class: expr.Target.Class, Name: symbols.GetterName(expr.Target.Name)})
	f = f.Append(b.pushArgument())
	return f.Append(b.staticCall(getter, 1, nil))
}

func (b *Builder) visitDirectPropertySet(expr *ast.DirectPropertySet) ir.Fragment {
	f := b.nullConstant()
	result := b.makeTemporary()
	f = f.Append(b.translateExpression(expr.Receiver))

	if field := b.instanceField(expr.Target); field != nil {
		f = f.Append(b.translateExpression(expr.Value))
		f = f.Append(b.storeLocal(result))
		return f.Append(b.storeField(ir.FieldSlot(field)))
	}

	setter := b.bridge.ResolveFunction(ast.MemberRef{Class: expr.Target.Class, Name: symbols.SetterName(expr.Target.Name)})
	f = f.Append(b.pushArgument())
	f = f.Append(b.translateExpression(expr.Value))
	f = f.Append(b.storeLocal(result))
	f = f.Append(b.pushArgument())
	f = f.Append(b.staticCall(setter, 2, nil))
	return f.Append(b.drop())
}

func (b *Builder) visitStaticInvocation(expr *ast.StaticInvocation) ir.Fragment {
	if expr.IsConst {
		return b.constant(b.evaluator.MustEvaluate(expr))
	}
	fn := b.bridge.ResolveFunction(expr.Target)
	checkArguments(expr, fn, expr.Arguments)

	if fn.Intrinsic == symbols.IdenticalIntrinsic && len(expr.Arguments.Positional) == 2 {
		f := b.translateExpression(expr.Arguments.Positional[0])
		f = f.Append(b.translateExpression(expr.Arguments.Positional[1]))
		return f.Append(b.strictCompare(false))
	}

	f, count := b.translateArguments(expr.Arguments)
	return f.Append(b.staticCall(fn, count, expr.Arguments.Names()))
}

func (b *Builder) visitConstructorInvocation(expr *ast.ConstructorInvocation) ir.Fragment {
	if expr.IsConst {
		return b.constant(b.evaluator.MustEvaluate(expr))
	}
	ctor := b.bridge.ResolveConstructor(expr.Target)
	checkArguments(expr, ctor, expr.Arguments)
	names := expr.Arguments.Names()

	if ctor.Kind == symbols.FactoryFunction {
		// Factories receive the type arguments first.
		f := b.nullConstant()
		f = f.Append(b.pushArgument())
		args, count := b.translateArguments(expr.Arguments)
		f = f.Append(args)
		return f.Append(b.staticCall(ctor, count+1, names))
	}

	f := b.allocateObject(ctor.Owner)
	instance := b.makeTemporary()
	f = f.Append(b.loadLocal(instance))
	f = f.Append(b.pushArgument())
	args, count := b.translateArguments(expr.Arguments)
	f = f.Append(args)
	f = f.Append(b.staticCall(ctor, count+1, names))
	return f.Append(b.drop())
}

// visitConditional merges both arms through the expression temporary.
func (b *Builder) visitConditional(expr *ast.ConditionalExpression) ir.Fragment {
	temp := b.info.ExpressionTemp
	f, negate := b.translateCondition(expr.Condition)
	branch, thenEntry, otherwiseEntry := b.branchIfTrue(negate)
	f = f.Append(branch)

	then := fragmentFrom(thenEntry).Append(b.translateExpression(expr.Then))
	then = then.Append(b.storeLocal(temp))
	then = then.Append(b.drop())

	otherwise := fragmentFrom(otherwiseEntry).Append(b.translateExpression(expr.Otherwise))
	otherwise = otherwise.Append(b.storeLocal(temp))
	otherwise = otherwise.Append(b.drop())

	join := b.buildJoinEntry()
	then.Append(b.gotoJoin(join))
	otherwise.Append(b.gotoJoin(join))
	return ir.Fragment{Entry: f.Entry, Exit: join}.Append(b.loadLocal(temp))
}

// visitLogical short-circuits && and ||. The right operand is normalized to
// a bool by comparing it with true.
func (b *Builder) visitLogical(expr *ast.LogicalExpression) ir.Fragment {
	temp := b.info.ExpressionTemp
	f, negate := b.translateCondition(expr.Left)
	branch, thenEntry, otherwiseEntry := b.branchIfTrue(negate)
	f = f.Append(branch)

	rightEntry, shortEntry := thenEntry, otherwiseEntry
	if expr.Operator == ast.LogicalOr {
		rightEntry, shortEntry = otherwiseEntry, thenEntry
	}

	right, negateRight := b.translateCondition(expr.Right)
	right = fragmentFrom(rightEntry).Append(right)
	right = right.Append(b.boolConstant(true))
	right = right.Append(b.strictCompare(negateRight))
	right = right.Append(b.storeLocal(temp))
	right = right.Append(b.drop())

	short := fragmentFrom(shortEntry).Append(b.boolConstant(expr.Operator == ast.LogicalOr))
	short = short.Append(b.storeLocal(temp))
	short = short.Append(b.drop())

	join := b.buildJoinEntry()
	right.Append(b.gotoJoin(join))
	short.Append(b.gotoJoin(join))
	return ir.Fragment{Entry: f.Entry, Exit: join}.Append(b.loadLocal(temp))
}

func (b *Builder) visitIfNull(expr *ast.LogicalExpression) ir.Fragment {
	temp := b.info.ExpressionTemp
	f := b.translateExpression(expr.Left)
	f = f.Append(b.storeLocal(temp))
	branch, isNull, notNull := b.branchIfNull(false)
	f = f.Append(branch)

	right := fragmentFrom(isNull).Append(b.translateExpression(expr.Right))
	right = right.Append(b.storeLocal(temp))
	right = right.Append(b.drop())

	join := b.buildJoinEntry()
	right.Append(b.gotoJoin(join))
	fragmentFrom(notNull).Append(b.gotoJoin(join))
	return ir.Fragment{Entry: f.Entry, Exit: join}.Append(b.loadLocal(temp))
}

func (b *Builder) visitStringConcatenation(expr *ast.StringConcatenation) ir.Fragment {
	if len(expr.Expressions) == 1 {
		single := b.bridge.ResolveFunction(ast.MemberRef{Class: symbols.StringClass, Name: symbols.InterpolateOneFn})
		f := b.translateExpression(expr.Expressions[0])
		f = f.Append(b.pushArgument())
		return f.Append(b.staticCall(single, 1, nil))
	}

	interpolate := b.bridge.ResolveFunction(ast.MemberRef{Class: symbols.StringClass, Name: symbols.InterpolateFn})
	f := b.buildArray(expr.Expressions)
	f = f.Append(b.pushArgument())
	return f.Append(b.staticCall(interpolate, 1, nil))
}

// buildArray allocates an array holding elements and leaves it on the stack.
func (b *Builder) buildArray(elements []ast.Expr) ir.Fragment {
	f := b.intConstant(len(elements))
	f = f.Append(b.createArray())
	array := b.makeTemporary()
	for i, element := range elements {
		f = f.Append(b.loadLocal(array))
		f = f.Append(b.intConstant(i))
		f = f.Append(b.translateExpression(element))
		f = f.Append(b.storeIndexed())
	}
	return f
}

// literalFactory builds a growable list or map through its literal factory.
func (b *Builder) literalFactory(expr ast.Expr, class, factory string, elements []ast.Expr) ir.Fragment {
	ctor := b.bridge.ResolveConstructor(ast.MemberRef{Class: class, Name: factory})
	if ctor.Kind != symbols.FactoryFunction {
		fatalf(expr, errors.MalformedIR, "%s is not a factory", ctor.QualifiedName())
	}
	f := b.nullConstant()
	f = f.Append(b.pushArgument())
	f = f.Append(b.buildArray(elements))
	f = f.Append(b.pushArgument())
	return f.Append(b.staticCall(ctor, 2, nil))
}

// translateFunctionNode allocates a closure for a nested function. The
// closure captures the current frame.
func (b *Builder) translateFunctionNode(node *ast.FunctionNode, name string) ir.Fragment {
	info := b.result.Function(node)
	if info == nil {
		fatalf(node, errors.MalformedIR, "nested function was not analyzed")
	}
	if name == "" {
		name = info.Name
	}
	fn := b.bridge.ClosureFunction(b.function, node, name)
	if !slices.Contains(b.closures, fn) {
		b.closures = append(b.closures, fn)
	}

	f := b.allocateObject(b.bridge.ResolveClass(symbols.ClosureClass))
	closure := b.makeTemporary()

	f = f.Append(b.loadLocal(closure))
	f = f.Append(b.constant(b.pool.Function(fn)))
	f = f.Append(b.storeField(ir.ClosureFunction))

	f = f.Append(b.loadLocal(closure))
	if b.contextDepth >= 0 {
		f = f.Append(b.loadLocal(b.info.CurrentContext))
	} else {
		f = f.Append(b.nullConstant())
	}
	return f.Append(b.storeField(ir.ClosureContext))
}
