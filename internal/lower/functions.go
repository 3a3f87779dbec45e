package lower

import (
	"fmt"

	"dil/internal/ast"
	"dil/internal/errors"
	"dil/internal/ir"
	"dil/internal/scope"
	"dil/internal/symbols"
)

// buildMember lowers a procedure, accessor, factory or constructor body.
func (b *Builder) buildMember(fn *symbols.Function) ir.Fragment {
	if fn.Node == nil || fn.Member == nil {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "%s has no body", fn.QualifiedName())
	}
	b.result = b.analyze(fn.Member)
	b.info = b.result.Member
	b.this = b.info.This
	b.graphEntry.Defaults = b.info.DefaultValues

	f := b.prologue(nil)
	if ctor := fn.Constructor(); ctor != nil {
		f = f.Append(b.constructorInitializers(fn, ctor))
	}
	return f.Append(b.body())
}

// buildClosure lowers a nested function. The enclosing member is analyzed
// again so the closure sees the same frame layout as its parent.
func (b *Builder) buildClosure(fn *symbols.Function) ir.Fragment {
	outer := fn.Outermost()
	if outer.Member == nil {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "closure %s has no enclosing member", fn.QualifiedName())
	}
	b.result = b.analyze(outer.Member)
	b.info = b.result.Function(fn.Node)
	if b.info == nil {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "closure %s is not nested in %s", fn.QualifiedName(), outer.QualifiedName())
	}
	b.this = b.result.Member.This
	b.graphEntry.Defaults = b.info.DefaultValues

	closure := &scope.Variable{Name: ":closure", Function: b.info, Local: -1}
	f := b.prologue(closure)
	return f.Append(b.body())
}

// buildImplicitClosure lowers the closure of a tear-off. It forwards its
// parameters to the target unchanged; the closure receiver is not read.
func (b *Builder) buildImplicitClosure(fn *symbols.Function) ir.Fragment {
	target := fn.Target
	if target == nil {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "implicit closure %s has no target", fn.QualifiedName())
	}
	if target.Node != nil && target.Member != nil {
		// optional parameters keep the target's defaults
		b.graphEntry.Defaults = b.analyze(target.Member).Member.DefaultValues
	}
	b.fieldFunction(fn)

	f := b.checkStackOverflow()
	count := fn.PositionalCount + len(fn.NamedParameters)
	names := make([]string, 0, count)
	for i := 0; i < fn.PositionalCount; i++ {
		names = append(names, fmt.Sprintf(":p%d", i))
	}
	names = append(names, fn.NamedParameters...)
	for i, name := range names {
		param := &scope.Variable{Name: name, Function: b.info, Local: i}
		f = f.Append(b.loadLocal(param))
		f = f.Append(b.pushArgument())
	}
	f = f.Append(b.staticCall(target, count, fn.NamedParameters))
	return f.Append(b.returnValue())
}

// prologue sets up the frame chain and moves captured parameters into it.
func (b *Builder) prologue(closure *scope.Variable) ir.Fragment {
	f := b.checkStackOverflow()
	if closure != nil && b.info.EntryContextLevel >= 0 {
		f = f.Append(b.loadLocal(closure))
		f = f.Append(b.loadField(ir.ClosureContext))
		f = f.Append(b.storeLocal(b.info.CurrentContext))
		f = f.Append(b.drop())
		b.contextDepth = b.info.EntryContextLevel
	}
	f = f.Append(b.enterScope(b.info.Node))

	params := make([]*scope.Variable, 0, len(b.info.Parameters)+1)
	if b.info.This != nil {
		params = append(params, b.info.This)
	}
	params = append(params, b.info.Parameters...)
	return f.Append(b.copyParameters(params))
}

// body translates the function body and returns null when it falls off
// the end.
func (b *Builder) body() ir.Fragment {
	f := b.translateStatement(b.info.Node.Body)
	if f.IsOpen() {
		f = f.Append(b.nullConstant())
		f = f.Append(b.returnValue())
	}
	return f
}

// constructorInitializers runs field initializers and then the initializer
// list. A redirecting constructor leaves fields to its target.
func (b *Builder) constructorInitializers(fn *symbols.Function, ctor *ast.Constructor) ir.Fragment {
	var f ir.Fragment
	class := fn.Owner
	redirecting := false
	explicitSuper := false
	for _, init := range ctor.Initializers {
		switch init.(type) {
		case *ast.RedirectingInitializer:
			redirecting = true
		case *ast.SuperInitializer:
			explicitSuper = true
		}
	}

	if !redirecting && class.Node != nil {
		for _, decl := range class.Node.Fields {
			if decl.IsStatic || decl.Initializer == nil {
				continue
			}
			field := b.bridge.ResolveField(ast.MemberRef{Class: class.Name, Name: decl.Name})
			f = f.Append(b.initializeField(field, decl.Initializer))
		}
	}

	for _, init := range ctor.Initializers {
		switch init := init.(type) {
		case *ast.FieldInitializer:
			field := b.bridge.ResolveField(ast.MemberRef{Class: class.Name, Name: init.Field})
			f = f.Append(b.initializeField(field, init.Value))
		case *ast.SuperInitializer:
			if class.Super == nil {
				fatalf(init, errors.MalformedIR, "%s has no superclass", class.Name)
			}
			target := b.bridge.ResolveConstructor(ast.MemberRef{Class: class.Super.Name, Name: init.Target.Name})
			f = f.Append(b.delegate(init, target, init.Arguments))
		case *ast.RedirectingInitializer:
			target := b.bridge.ResolveConstructor(ast.MemberRef{Class: class.Name, Name: init.Target.Name})
			f = f.Append(b.delegate(init, target, init.Arguments))
		}
	}

	if !redirecting && !explicitSuper && class.Super != nil && hasUnnamedConstructor(class.Super.Node) {
		target := b.bridge.ResolveConstructor(ast.MemberRef{Class: class.Super.Name})
		f = f.Append(b.delegate(ctor, target, nil))
	}
	return f
}

func hasUnnamedConstructor(class *ast.Class) bool {
	if class == nil {
		return false
	}
	for _, ctor := range class.Constructors {
		if ctor.Name == "" {
			return true
		}
	}
	return false
}

func (b *Builder) initializeField(field *symbols.Field, value ast.Expr) ir.Fragment {
	if field.IsStatic {
		errors.Fatal(errors.MalformedIR, b.position(), "%s is not an instance field", field.QualifiedName())
	}
	f := b.loadVariable(b.this)
	f = f.Append(b.translateExpression(value))
	return f.Append(b.storeField(ir.FieldSlot(field)))
}

// delegate calls another constructor on the same receiver.
func (b *Builder) delegate(node ast.Node, target *symbols.Function, args *ast.Arguments) ir.Fragment {
	if target.Kind != symbols.ConstructorFunction {
		fatalf(node, errors.MalformedIR, "%s is not a generative constructor", target.QualifiedName())
	}
	checkArguments(node, target, args)
	f := b.loadVariable(b.this)
	f = f.Append(b.pushArgument())
	arguments, count := b.translateArguments(args)
	f = f.Append(arguments)
	f = f.Append(b.staticCall(target, count+1, args.Names()))
	return f.Append(b.drop())
}

// fieldFunction gives accessors and initializers a minimal function record
// so shared helpers have somewhere to put temporaries.
func (b *Builder) fieldFunction(fn *symbols.Function) {
	b.info = &scope.FunctionInfo{Name: fn.Name, EntryContextLevel: -1}
	b.info.ExpressionTemp = &scope.Variable{Name: ":expr_temp", Function: b.info}
	b.info.CurrentContext = &scope.Variable{Name: ":current_context", Function: b.info}
}

func (b *Builder) accessorField(fn *symbols.Function) *symbols.Field {
	if fn.Field == nil {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "%s has no backing field", fn.QualifiedName())
	}
	return fn.Field
}

func (b *Builder) buildImplicitGetter(fn *symbols.Function) ir.Fragment {
	field := b.accessorField(fn)
	b.fieldFunction(fn)
	if field.IsStatic {
		f := b.staticFieldValue(field)
		return f.Append(b.returnValue())
	}
	b.this = &scope.Variable{Name: "this", Function: b.info, Local: 0}
	f := b.loadLocal(b.this)
	f = f.Append(b.loadField(ir.FieldSlot(field)))
	return f.Append(b.returnValue())
}

func (b *Builder) buildImplicitSetter(fn *symbols.Function) ir.Fragment {
	field := b.accessorField(fn)
	b.fieldFunction(fn)
	value := &scope.Variable{Name: "value", Function: b.info}

	var f ir.Fragment
	if field.IsStatic {
		value.Local = 0
		f = b.loadLocal(value)
		f = f.Append(b.storeStaticField(field))
	} else {
		b.this = &scope.Variable{Name: "this", Function: b.info, Local: 0}
		value.Local = 1
		f = b.loadLocal(b.this)
		f = f.Append(b.loadLocal(value))
		f = f.Append(b.storeField(ir.FieldSlot(field)))
	}
	f = f.Append(b.nullConstant())
	return f.Append(b.returnValue())
}

// buildStaticInitializer lowers the function that computes a static field
// on first access.
func (b *Builder) buildStaticInitializer(fn *symbols.Function) ir.Fragment {
	field := b.accessorField(fn)
	if field.Node == nil || field.Node.Initializer == nil {
		errors.Fatal(errors.MalformedIR, memberPos(fn), "%s has no initializer", field.QualifiedName())
	}
	if field.IsConst {
		b.fieldFunction(fn)
		f := b.constant(b.evaluator.StaticField(field))
		return f.Append(b.returnValue())
	}

	b.result = b.analyze(field.Node)
	b.info = b.result.Member
	f := b.checkStackOverflow()
	f = f.Append(b.enterScope(field.Node))
	f = f.Append(b.translateExpression(field.Node.Initializer))
	return f.Append(b.returnValue())
}
