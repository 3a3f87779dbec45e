package scope

import (
	"fmt"

	"dil/internal/ast"
	"dil/internal/constant"
	"dil/internal/errors"
)

// depthState counts the constructs enclosing the current position within
// one function. It is reset for every nested function.
type depthState struct {
	loop     int
	try      int
	catch    int
	finally  int
	forIn    int
	switches int
}

// Analyzer walks a member once and produces its Result.
type Analyzer struct {
	evaluator *constant.Evaluator

	result    *Result
	scope     *Scope
	function  *FunctionInfo
	depth     depthState
	enclosing *Scope
	closures  int
}

// NewAnalyzer creates an analyzer. When evaluator is non-nil, default
// parameter values are folded during analysis.
func NewAnalyzer(evaluator *constant.Evaluator) *Analyzer {
	return &Analyzer{evaluator: evaluator}
}

// Analyze analyzes a Procedure, Constructor, Field or bare FunctionNode.
// enclosing, when non-nil, is a scope of an earlier analysis that the root
// is nested in; variables found there must already be captured.
func (a *Analyzer) Analyze(root ast.Node, enclosing *Scope) (result *Result, err error) {
	defer errors.Recover(&err)

	a.result = &Result{
		Root:      root,
		variables: make(map[*ast.VariableDeclaration]*Variable),
		scopes:    make(map[ast.Node]*Scope),
		functions: make(map[*ast.FunctionNode]*FunctionInfo),
	}
	a.scope = enclosing
	a.enclosing = enclosing
	a.function = nil
	a.depth = depthState{}
	a.closures = 0

	switch root := root.(type) {
	case *ast.Procedure:
		hasThis := root.Owner != nil && !root.IsStatic && root.Kind != ast.FactoryProcedure
		a.result.Member = a.visitFunction(root.Function, root.Name, hasThis, nil)

	case *ast.Constructor:
		a.result.Member = a.visitFunction(root.Function, root.Name, true, func() {
			if root.Owner != nil && !isRedirecting(root) {
				for _, field := range root.Owner.Fields {
					if !field.IsStatic && field.Initializer != nil {
						a.visitNode(field.Initializer)
					}
				}
			}
			for _, init := range root.Initializers {
				a.visitNode(init)
			}
		})

	case *ast.Field:
		a.result.Member = a.visitFieldInitializer(root)

	case *ast.FunctionNode:
		a.result.Member = a.visitFunction(root, "", false, nil)

	default:
		errors.Fatal(errors.MalformedIR, nodePos(root), "cannot analyze %s", root.NodeType())
	}

	a.allocate()
	return a.result, nil
}

func (a *Analyzer) enterFunction(node *ast.FunctionNode, scopeNode ast.Node, name string) (*FunctionInfo, func()) {
	info := &FunctionInfo{Node: node, Name: name, Parent: a.function}
	if a.function != nil {
		info.Depth = a.function.Depth + 1
	} else if a.enclosing != nil && a.enclosing.Function != nil {
		info.Depth = a.enclosing.Function.Depth + 1
	}
	if node != nil {
		a.result.functions[node] = info
	}

	savedFunction, savedDepth := a.function, a.depth
	a.function = info
	a.depth = depthState{}
	exitScope := a.enterScope(scopeNode)
	info.Scope = a.scope

	info.ExpressionTemp = a.synthetic(":expr_temp")
	info.CurrentContext = a.synthetic(":current_context")

	return info, func() {
		exitScope()
		a.function, a.depth = savedFunction, savedDepth
	}
}

func (a *Analyzer) visitFunction(node *ast.FunctionNode, name string, hasThis bool, initializers func()) *FunctionInfo {
	if node == nil {
		errors.Fatal(errors.MalformedIR, ast.Position{}, "function '%s' has no body", name)
	}
	info, exit := a.enterFunction(node, node, name)
	defer exit()

	if hasThis {
		info.This = a.declareSynthetic("this")
	}
	for _, param := range node.Positional {
		a.visitDefault(param)
		info.Parameters = append(info.Parameters, a.declare(param))
	}
	for _, param := range node.Named {
		a.visitDefault(param)
		info.Parameters = append(info.Parameters, a.declare(param))
	}
	if a.evaluator != nil {
		for _, param := range node.OptionalParameters() {
			if param.Initializer == nil {
				info.DefaultValues = append(info.DefaultValues, a.evaluator.Pool().Null())
				continue
			}
			info.DefaultValues = append(info.DefaultValues, a.evaluator.MustEvaluate(param.Initializer))
		}
	}

	if initializers != nil {
		initializers()
	}
	if node.Body != nil {
		a.visitNode(node.Body)
	}
	return info
}

// visitDefault checks default values; they are constants and cannot see
// other parameters.
func (a *Analyzer) visitDefault(param *ast.VariableDeclaration) {
	if param.Initializer != nil {
		a.visitNode(param.Initializer)
	}
}

func (a *Analyzer) visitFieldInitializer(field *ast.Field) *FunctionInfo {
	info, exit := a.enterFunction(nil, field, field.Name)
	defer exit()
	if field.Owner != nil && !field.IsStatic {
		info.This = a.declareSynthetic("this")
	}
	if field.Initializer != nil {
		a.visitNode(field.Initializer)
	}
	return info
}

func (a *Analyzer) visitNested(node *ast.FunctionNode, name string) {
	a.closures++
	if name == "" {
		name = fmt.Sprintf("<closure %d>", a.closures)
	}
	info := a.visitFunction(node, name, false, nil)
	a.result.Closures = append(a.result.Closures, Closure{Node: node, Name: name, Info: info})
}

func (a *Analyzer) enterScope(node ast.Node) func() {
	s := &Scope{Node: node, Parent: a.scope, Function: a.function, LoopDepth: a.depth.loop}
	a.result.scopes[node] = s
	a.result.order = append(a.result.order, s)
	a.scope = s
	return func() { a.scope = s.Parent }
}

func (a *Analyzer) declare(decl *ast.VariableDeclaration) *Variable {
	if _, exists := a.result.variables[decl]; exists {
		errors.Fatal(errors.MalformedIR, decl.Pos, "variable '%s' is declared twice", decl.Name)
	}
	v := a.newVariable(decl.Name, decl)
	a.result.variables[decl] = v
	return v
}

func (a *Analyzer) declareSynthetic(name string) *Variable {
	return a.newVariable(name, nil)
}

// synthetic creates a function-level variable that never appears in a
// scope's lookup chain.
func (a *Analyzer) synthetic(name string) *Variable {
	v := &Variable{Name: name, Scope: a.function.Scope, Function: a.function, Local: a.function.locals}
	a.function.locals++
	return v
}

func (a *Analyzer) newVariable(name string, decl *ast.VariableDeclaration) *Variable {
	v := &Variable{Name: name, Decl: decl, Scope: a.scope, Function: a.function, Local: a.function.locals}
	a.function.locals++
	a.scope.Variables = append(a.scope.Variables, v)
	return v
}

func slot(vars *[]*Variable, depth int, create func() *Variable) {
	for len(*vars) <= depth {
		*vars = append(*vars, nil)
	}
	if (*vars)[depth] == nil {
		(*vars)[depth] = create()
	}
}

func (a *Analyzer) addSwitchVariable() {
	depth := a.depth.switches
	slot(&a.function.SwitchVariables, depth, func() *Variable {
		return a.synthetic(fmt.Sprintf(":switch%d", depth))
	})
}

func (a *Analyzer) addTryVariables() {
	depth := a.depth.try
	slot(&a.function.CatchContextVariables, depth, func() *Variable {
		return a.synthetic(fmt.Sprintf(":catch_context%d", depth))
	})
}

func (a *Analyzer) addCatchVariables() {
	depth := a.depth.catch - 1
	slot(&a.function.ExceptionVariables, depth, func() *Variable {
		return a.synthetic(fmt.Sprintf(":exception%d", depth))
	})
	slot(&a.function.StackTraceVariables, depth, func() *Variable {
		return a.synthetic(fmt.Sprintf(":stack_trace%d", depth))
	})
}

func (a *Analyzer) addIteratorVariable() {
	depth := a.depth.forIn
	slot(&a.function.IteratorVariables, depth, func() *Variable {
		return a.synthetic(fmt.Sprintf(":iterator%d", depth))
	})
}

// use resolves a variable reference and captures it when it crosses a
// function boundary.
func (a *Analyzer) use(node ast.Node, decl *ast.VariableDeclaration) {
	v := a.scope.Lookup(decl)
	if v == nil {
		errors.Fatal(errors.MalformedIR, node.NodePos(), "variable '%s' is used outside its scope", decl.Name)
	}
	if a.result.variables[decl] == nil && !v.Captured {
		errors.Fatal(errors.MalformedIR, node.NodePos(), "variable '%s' of the enclosing function is not captured", decl.Name)
	}
	a.capture(v)
}

func (a *Analyzer) capture(v *Variable) {
	if v.Function == a.function {
		return
	}
	v.Captured = true
	for fn := a.function; fn != nil && fn != v.Function; fn = fn.Parent {
		fn.Scope.forced = true
	}
}

func (a *Analyzer) useThis(node ast.Node) {
	member := a.function
	for member.Parent != nil {
		member = member.Parent
	}
	if member.This == nil {
		errors.Fatal(errors.MalformedIR, node.NodePos(), "'this' used in a member without a receiver")
	}
	a.capture(member.This)
}

func (a *Analyzer) visitChildren(node ast.Node) {
	for _, child := range ast.Children(node) {
		a.visitNode(child)
	}
}

func (a *Analyzer) visitNode(node ast.Node) {
	switch node := node.(type) {
	case nil:
		return

	case *ast.VariableGet:
		a.use(node, node.Variable)
	case *ast.VariableSet:
		a.visitNode(node.Value)
		a.use(node, node.Variable)
	case *ast.ThisExpression:
		a.useThis(node)
	case *ast.FunctionExpression:
		a.visitNested(node.Function, "")
	case *ast.Let:
		a.visitNode(node.Variable.Initializer)
		a.declare(node.Variable)
		a.visitNode(node.Body)

	case *ast.Block:
		exit := a.enterScope(node)
		a.visitChildren(node)
		exit()

	case *ast.VariableDeclaration:
		a.visitNode(node.Initializer)
		a.declare(node)

	case *ast.FunctionDeclaration:
		a.declare(node.Variable)
		a.visitNested(node.Function, node.Variable.Name)

	case *ast.WhileStatement:
		a.depth.loop++
		a.visitChildren(node)
		a.depth.loop--

	case *ast.DoStatement:
		a.depth.loop++
		a.visitChildren(node)
		a.depth.loop--

	case *ast.ForStatement:
		exit := a.enterScope(node)
		for _, v := range node.Variables {
			a.visitNode(v)
		}
		a.depth.loop++
		a.visitNode(node.Condition)
		for _, update := range node.Updates {
			a.visitNode(update)
		}
		a.visitNode(node.Body)
		a.depth.loop--
		exit()

	case *ast.ForInStatement:
		a.visitNode(node.Iterable)
		a.addIteratorVariable()
		a.depth.forIn++
		a.depth.loop++
		exit := a.enterScope(node)
		a.declare(node.Variable)
		a.visitNode(node.Body)
		exit()
		a.depth.loop--
		a.depth.forIn--

	case *ast.SwitchStatement:
		a.visitNode(node.Expression)
		a.addSwitchVariable()
		a.depth.switches++
		for _, c := range node.Cases {
			a.visitChildren(c)
		}
		a.depth.switches--

	case *ast.ReturnStatement:
		a.visitNode(node.Expression)
		if a.depth.finally > 0 && a.function.FinallyReturn == nil {
			a.function.FinallyReturn = a.synthetic(":finally_ret_val")
		}

	case *ast.TryCatch:
		a.addTryVariables()
		a.depth.try++
		a.visitNode(node.Body)
		a.depth.try--

		a.depth.catch++
		a.addCatchVariables()
		for _, c := range node.Catches {
			exit := a.enterScope(c)
			if c.Exception != nil {
				a.declare(c.Exception)
			}
			if c.StackTrace != nil {
				a.declare(c.StackTrace)
			}
			a.visitNode(c.Body)
			exit()
		}
		a.depth.catch--

	case *ast.TryFinally:
		a.addTryVariables()
		a.depth.try++
		a.depth.finally++
		a.visitNode(node.Body)
		a.depth.finally--
		a.depth.try--

		a.depth.catch++
		a.addCatchVariables()
		a.visitNode(node.Finalizer)
		a.depth.catch--

	default:
		a.visitChildren(node)
	}
}

// isRedirecting reports whether ctor delegates to another constructor. Field
// initializers run in the target instead.
func isRedirecting(ctor *ast.Constructor) bool {
	for _, init := range ctor.Initializers {
		if _, ok := init.(*ast.RedirectingInitializer); ok {
			return true
		}
	}
	return false
}

func nodePos(node ast.Node) ast.Position {
	if node == nil {
		return ast.Position{}
	}
	return node.NodePos()
}
