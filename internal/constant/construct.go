package constant

import (
	"dil/internal/ast"
	"dil/internal/symbols"
)

// construct runs a const constructor symbolically: field initializers of
// each class, then its initializer list, following super and redirecting
// initializers on the same receiver.
func (e *Evaluator) construct(expr *ast.ConstructorInvocation) Value {
	ctor := e.bridge.ResolveConstructor(expr.Target)
	if ctor.Kind == symbols.FactoryFunction {
		invalidConstructor(expr, "factory '%s' cannot be invoked in a constant expression", ctor.Name)
	}
	positional, named := e.arguments(expr.Arguments)

	class := ctor.Owner
	fields := make([]Value, len(class.InstanceFields()))
	e.runConstructor(expr, ctor, fields, positional, named)

	for i, v := range fields {
		if v == nil {
			fields[i] = e.pool.Null()
		}
	}
	return e.pool.Instance(class, fields)
}

func (e *Evaluator) arguments(args *ast.Arguments) ([]Value, map[string]Value) {
	if args == nil {
		return nil, nil
	}
	positional := make([]Value, len(args.Positional))
	for i, arg := range args.Positional {
		positional[i] = e.MustEvaluate(arg)
	}
	var named map[string]Value
	if len(args.Named) > 0 {
		named = make(map[string]Value, len(args.Named))
		for _, arg := range args.Named {
			named[arg.Name] = e.MustEvaluate(arg.Value)
		}
	}
	return positional, named
}

func (e *Evaluator) runConstructor(site ast.Node, ctor *symbols.Function, fields []Value, positional []Value, named map[string]Value) {
	if !ctor.IsConst {
		invalidConstructor(site, "'%s' is not a const constructor", ctor.Name)
	}
	node := ctor.Constructor()
	if node == nil {
		// external const constructors of field-less core classes
		if len(ctor.Owner.InstanceFields()) > 0 {
			invalidConstructor(site, "external constructor '%s' cannot be evaluated", ctor.Name)
		}
		return
	}
	if !emptyBody(node.Function.Body) {
		invalidConstructor(node, "const constructor '%s' has a body", ctor.Name)
	}

	env := e.bind(site, ctor, node.Function, positional, named)
	saved := e.env
	defer func() { e.env = saved }()

	// field initializers cannot see parameters
	e.env = nil
	for _, field := range ctor.Owner.Fields() {
		if field.IsStatic || field.Initializer() == nil {
			continue
		}
		fields[field.Offset] = e.MustEvaluate(field.Initializer())
	}

	e.env = env
	chained := false
	for _, init := range node.Initializers {
		switch init := init.(type) {
		case *ast.FieldInitializer:
			field := e.bridge.ResolveField(ast.MemberRef{Class: ctor.Owner.Name, Name: init.Field})
			if field.IsStatic || field.Owner != ctor.Owner {
				invalidConstructor(init, "'%s' is not an instance field of %s", init.Field, ctor.Owner.Name)
			}
			fields[field.Offset] = e.MustEvaluate(init.Value)

		case *ast.SuperInitializer:
			chained = true
			target := e.bridge.ResolveConstructor(init.Target)
			args, namedArgs := e.arguments(init.Arguments)
			e.runConstructor(init, target, fields, args, namedArgs)

		case *ast.RedirectingInitializer:
			chained = true
			target := e.bridge.ResolveConstructor(init.Target)
			args, namedArgs := e.arguments(init.Arguments)
			e.runConstructor(init, target, fields, args, namedArgs)
		}
	}

	if !chained {
		e.runImplicitSuper(site, ctor, fields)
	}
}

// runImplicitSuper invokes the unnamed constructor of a declared superclass.
func (e *Evaluator) runImplicitSuper(site ast.Node, ctor *symbols.Function, fields []Value) {
	super := ctor.Owner.Super
	if super == nil || super.Node == nil {
		return
	}
	target := e.bridge.ResolveConstructor(ast.MemberRef{Class: super.Name, Name: ""})
	e.runConstructor(site, target, fields, nil, nil)
}

func (e *Evaluator) bind(site ast.Node, ctor *symbols.Function, fn *ast.FunctionNode, positional []Value, named map[string]Value) environment {
	if len(positional) < fn.RequiredCount || len(positional) > len(fn.Positional) {
		invalidConstructor(site, "'%s' expects %d to %d positional arguments, got %d",
			ctor.Name, fn.RequiredCount, len(fn.Positional), len(positional))
	}

	env := make(environment, fn.ParameterCount())
	for i, param := range fn.Positional {
		if i < len(positional) {
			env[param] = positional[i]
		} else {
			env[param] = e.defaultValue(param)
		}
	}

	used := 0
	for _, param := range fn.Named {
		if v, ok := named[param.Name]; ok {
			env[param] = v
			used++
		} else {
			env[param] = e.defaultValue(param)
		}
	}
	if used != len(named) {
		invalidConstructor(site, "'%s' was called with an unknown named argument", ctor.Name)
	}
	return env
}

func (e *Evaluator) defaultValue(param *ast.VariableDeclaration) Value {
	if param.Initializer == nil {
		return e.pool.Null()
	}
	saved := e.env
	e.env = nil
	defer func() { e.env = saved }()
	return e.MustEvaluate(param.Initializer)
}

func emptyBody(body ast.Statement) bool {
	switch body := body.(type) {
	case nil, *ast.EmptyStatement:
		return true
	case *ast.Block:
		for _, stmt := range body.Statements {
			if !emptyBody(stmt) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
