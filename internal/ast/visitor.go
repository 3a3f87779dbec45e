package ast

// Inspect traverses the tree rooted at node in depth-first order. If fn
// returns false the children of that node are skipped.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range Children(node) {
		Inspect(child, fn)
	}
}

// Children returns the direct children of node in evaluation order.
func Children(node Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, n := range nodes {
			if !isNil(n) {
				out = append(out, n)
			}
		}
	}
	addExprs := func(exprs []Expr) {
		for _, e := range exprs {
			add(e)
		}
	}
	addArgs := func(args *Arguments) {
		if args == nil {
			return
		}
		addExprs(args.Positional)
		for _, n := range args.Named {
			add(n.Value)
		}
	}

	switch n := node.(type) {
	case *Library:
		for _, f := range n.Fields {
			add(f)
		}
		for _, p := range n.Procedures {
			add(p)
		}
		for _, c := range n.Classes {
			add(c)
		}
	case *Class:
		for _, f := range n.Fields {
			add(f)
		}
		for _, c := range n.Constructors {
			add(c)
		}
		for _, p := range n.Procedures {
			add(p)
		}
	case *Field:
		add(n.Initializer)
	case *Procedure:
		add(n.Function)
	case *Constructor:
		add(n.Function)
		for _, init := range n.Initializers {
			add(init)
		}
	case *FieldInitializer:
		add(n.Value)
	case *SuperInitializer:
		addArgs(n.Arguments)
	case *RedirectingInitializer:
		addArgs(n.Arguments)
	case *FunctionNode:
		for _, p := range n.Positional {
			add(p)
		}
		for _, p := range n.Named {
			add(p)
		}
		add(n.Body)
	case *Arguments:
		addArgs(n)

	case *VariableSet:
		add(n.Value)
	case *StaticSet:
		add(n.Value)
	case *PropertyGet:
		add(n.Receiver)
	case *PropertySet:
		add(n.Receiver, n.Value)
	case *DirectPropertyGet:
		add(n.Receiver)
	case *DirectPropertySet:
		add(n.Receiver, n.Value)
	case *StaticInvocation:
		addArgs(n.Arguments)
	case *MethodInvocation:
		add(n.Receiver)
		addArgs(n.Arguments)
	case *ConstructorInvocation:
		addArgs(n.Arguments)
	case *IsExpression:
		add(n.Operand)
	case *AsExpression:
		add(n.Operand)
	case *ConditionalExpression:
		add(n.Condition, n.Then, n.Otherwise)
	case *LogicalExpression:
		add(n.Left, n.Right)
	case *Not:
		add(n.Operand)
	case *StringConcatenation:
		addExprs(n.Expressions)
	case *ListLiteral:
		addExprs(n.Expressions)
	case *MapLiteral:
		for _, e := range n.Entries {
			add(e.Key, e.Value)
		}
	case *FunctionExpression:
		add(n.Function)
	case *Let:
		add(n.Variable, n.Body)
	case *Throw:
		add(n.Value)

	case *Block:
		for _, s := range n.Statements {
			add(s)
		}
	case *ExpressionStatement:
		add(n.Expression)
	case *VariableDeclaration:
		add(n.Initializer)
	case *FunctionDeclaration:
		add(n.Variable, n.Function)
	case *IfStatement:
		add(n.Condition, n.Then, n.Otherwise)
	case *WhileStatement:
		add(n.Condition, n.Body)
	case *DoStatement:
		add(n.Body, n.Condition)
	case *ForStatement:
		for _, v := range n.Variables {
			add(v)
		}
		add(n.Condition)
		addExprs(n.Updates)
		add(n.Body)
	case *ForInStatement:
		add(n.Iterable, n.Variable, n.Body)
	case *LabeledStatement:
		add(n.Body)
	case *SwitchStatement:
		add(n.Expression)
		for _, c := range n.Cases {
			add(c)
		}
	case *SwitchCase:
		addExprs(n.Expressions)
		add(n.Body)
	case *ReturnStatement:
		add(n.Expression)
	case *TryCatch:
		add(n.Body)
		for _, c := range n.Catches {
			add(c)
		}
	case *Catch:
		add(n.Exception, n.StackTrace, n.Body)
	case *TryFinally:
		add(n.Body, n.Finalizer)
	case *AssertStatement:
		add(n.Condition, n.Message)
	case *YieldStatement:
		add(n.Expression)
	}
	return out
}

// isNil catches typed nil pointers stored in interfaces.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *VariableDeclaration:
		return v == nil
	case *FunctionNode:
		return v == nil
	case *Block:
		return v == nil
	case *Arguments:
		return v == nil
	}
	return false
}
