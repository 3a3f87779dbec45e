package constant

import (
	stderrors "errors"

	"github.com/tliron/commonlog"

	"dil/internal/ast"
	"dil/internal/errors"
	"dil/internal/symbols"
)

var log = commonlog.GetLogger("dil.constant")

type environment map[*ast.VariableDeclaration]Value

// Evaluator folds constant expressions. One evaluator belongs to one
// lowering; the pool and the symbol table behind the bridge are shared.
type Evaluator struct {
	bridge symbols.Bridge
	pool   *Pool

	// parameters of the constant constructor being run
	env environment
}

func NewEvaluator(bridge symbols.Bridge, pool *Pool) *Evaluator {
	return &Evaluator{bridge: bridge, pool: pool}
}

func (e *Evaluator) Pool() *Pool { return e.pool }

// Evaluate folds expr. Expressions outside the constant subset report a
// NotAConstant or InvalidConstantConstructor error.
func (e *Evaluator) Evaluate(expr ast.Expr) (value Value, err error) {
	defer errors.Recover(&err)
	return e.MustEvaluate(expr), nil
}

// MustEvaluate is Evaluate for callers that already run under errors.Recover.
func (e *Evaluator) MustEvaluate(expr ast.Expr) Value {
	switch expr := expr.(type) {
	case *ast.NullLiteral:
		return e.pool.Null()
	case *ast.BoolLiteral:
		return e.pool.Bool(expr.Value)
	case *ast.IntLiteral:
		return e.pool.Int(expr.Value)
	case *ast.DoubleLiteral:
		return e.pool.Double(expr.Value)
	case *ast.StringLiteral:
		return e.pool.String(expr.Value)
	case *ast.SymbolLiteral:
		return e.pool.Symbol(expr.Value)
	case *ast.TypeLiteral:
		return e.pool.Type(e.bridge.ResolveClass(expr.Class))

	case *ast.ListLiteral:
		elements := make([]Value, len(expr.Expressions))
		for i, element := range expr.Expressions {
			elements[i] = e.MustEvaluate(element)
		}
		return e.pool.List(elements)

	case *ast.MapLiteral:
		keys := make([]Value, len(expr.Entries))
		values := make([]Value, len(expr.Entries))
		for i, entry := range expr.Entries {
			keys[i] = e.MustEvaluate(entry.Key)
			values[i] = e.MustEvaluate(entry.Value)
			for j := 0; j < i; j++ {
				if keys[j] == keys[i] {
					notConstant(entry.Key, "duplicate key %s in constant map", keys[i])
				}
			}
		}
		return e.pool.Map(keys, values)

	case *ast.StringConcatenation:
		var text []byte
		for _, part := range expr.Expressions {
			s, ok := Text(e.MustEvaluate(part))
			if !ok {
				notConstant(part, "only primitive constants can be interpolated")
			}
			text = append(text, s...)
		}
		return e.pool.String(string(text))

	case *ast.VariableGet:
		if v, ok := e.env[expr.Variable]; ok {
			return v
		}
		if expr.Variable.IsConst && expr.Variable.Initializer != nil {
			return e.MustEvaluate(expr.Variable.Initializer)
		}
		notConstant(expr, "variable '%s' is not a constant", expr.Variable.Name)

	case *ast.StaticGet:
		field := e.bridge.LookupField(expr.Target)
		if field == nil || !field.IsConst {
			notConstant(expr, "'%s' is not a constant field", expr.Target)
		}
		return e.StaticField(field)

	case *ast.ConstructorInvocation:
		return e.construct(expr)

	case *ast.StaticInvocation:
		return e.invokeStatic(expr)

	case *ast.MethodInvocation:
		receiver := e.MustEvaluate(expr.Receiver)
		args := e.positional(expr, expr.Arguments)
		return e.dispatch(expr, receiver, expr.Name, args)

	case *ast.PropertyGet:
		receiver := e.MustEvaluate(expr.Receiver)
		if s, ok := receiver.(*String); ok && expr.Name == "length" {
			return e.pool.Int(int64(len([]rune(s.Value))))
		}
		notConstant(expr, "property '%s' of %s is not a constant", expr.Name, receiver.Kind())

	case *ast.Not:
		return e.pool.Bool(!e.boolean(expr.Operand))

	case *ast.LogicalExpression:
		switch expr.Operator {
		case ast.LogicalAnd:
			return e.pool.Bool(e.boolean(expr.Left) && e.boolean(expr.Right))
		case ast.LogicalOr:
			return e.pool.Bool(e.boolean(expr.Left) || e.boolean(expr.Right))
		default:
			left := e.MustEvaluate(expr.Left)
			if left.Kind() != NullKind {
				return left
			}
			return e.MustEvaluate(expr.Right)
		}

	case *ast.ConditionalExpression:
		if e.boolean(expr.Condition) {
			return e.MustEvaluate(expr.Then)
		}
		return e.MustEvaluate(expr.Otherwise)

	default:
		notConstant(expr, "%s is not a constant expression", expr.NodeType())
	}
	return nil
}

// StaticField returns the value of a const static field, evaluating its
// initializer at most once across all lowerings sharing the symbol table.
func (e *Evaluator) StaticField(field *symbols.Field) Value {
	value, err := field.Memoize(e, func() (result any, err error) {
		defer errors.Recover(&err)
		init := field.Initializer()
		if init == nil {
			pos := ast.Position{}
			if field.Node != nil {
				pos = field.Node.Pos
			}
			errors.Fatal(errors.NotAConstant, pos, "constant field '%s' has no initializer", field.QualifiedName())
		}

		saved := e.env
		e.env = nil
		defer func() { e.env = saved }()

		log.Debugf("evaluating %s", field.QualifiedName())
		return e.MustEvaluate(init), nil
	})
	if err != nil {
		if stderrors.Is(err, symbols.ErrCyclicInitializer) {
			cyclic := errors.New(errors.NotAConstant, fieldPos(field), "%v", err)
			cyclic.Code = errors.ErrorCyclicConstant
			panic(cyclic)
		}
		errors.Raise(err)
	}
	return value.(Value)
}

func fieldPos(field *symbols.Field) ast.Position {
	if field.Node != nil {
		return field.Node.Pos
	}
	return ast.Position{}
}

func (e *Evaluator) boolean(expr ast.Expr) bool {
	v, ok := e.MustEvaluate(expr).(*Bool)
	if !ok {
		notConstant(expr, "expected a constant bool")
	}
	return v.Value
}

func (e *Evaluator) positional(expr ast.Expr, args *ast.Arguments) []Value {
	if args == nil {
		return nil
	}
	if len(args.Named) > 0 {
		notConstant(expr, "named arguments are not supported here")
	}
	values := make([]Value, len(args.Positional))
	for i, arg := range args.Positional {
		values[i] = e.MustEvaluate(arg)
	}
	return values
}

func (e *Evaluator) invokeStatic(expr *ast.StaticInvocation) Value {
	fn := e.bridge.ResolveFunction(expr.Target)
	switch fn.Intrinsic {
	case symbols.IdenticalIntrinsic:
		args := e.positional(expr, expr.Arguments)
		if len(args) != 2 {
			notConstant(expr, "identical expects 2 arguments")
		}
		return e.pool.Bool(identical(args[0], args[1]))
	}
	notConstant(expr, "call to '%s' is not a constant expression", fn.QualifiedName())
	return nil
}

func identical(a, b Value) bool {
	return a == b
}

func notConstant(node ast.Node, format string, args ...any) {
	errors.Fatal(errors.NotAConstant, nodePos(node), format, args...)
}

func invalidConstructor(node ast.Node, format string, args ...any) {
	errors.Fatal(errors.InvalidConstantConstructor, nodePos(node), format, args...)
}

func nodePos(node ast.Node) ast.Position {
	if node == nil {
		return ast.Position{}
	}
	return node.NodePos()
}
