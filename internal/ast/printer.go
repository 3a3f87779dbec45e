package ast

import (
	"fmt"
	"strconv"
	"strings"
)

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func (l *Library) String() string {
	var b strings.Builder

	if l.Name != "" {
		b.WriteString(fmt.Sprintf("library %s;\n", l.Name))
	}
	for _, f := range l.Fields {
		b.WriteString("\n" + f.String())
	}
	for _, p := range l.Procedures {
		b.WriteString("\n" + p.String())
	}
	for _, c := range l.Classes {
		b.WriteString("\n" + c.String())
	}
	return strings.TrimPrefix(b.String(), "\n")
}

func (c *Class) String() string {
	var b strings.Builder

	b.WriteString("class " + c.Name)
	if c.Super != "" {
		b.WriteString(" extends " + c.Super)
	}
	b.WriteString(" {\n")
	for _, f := range c.Fields {
		b.WriteString(indent(f.String()) + "\n")
	}
	for _, ctor := range c.Constructors {
		b.WriteString(indent(ctor.String()) + "\n")
	}
	for _, p := range c.Procedures {
		b.WriteString(indent(p.String()) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

func (f *Field) String() string {
	var b strings.Builder

	if f.IsStatic && f.Owner != nil {
		b.WriteString("static ")
	}
	if f.IsConst {
		b.WriteString("const ")
	} else if f.IsFinal {
		b.WriteString("final ")
	}
	b.WriteString("field " + f.Name)
	if f.Initializer != nil {
		b.WriteString(" = " + f.Initializer.String())
	}
	b.WriteString(";")
	return b.String()
}

func (p *Procedure) String() string {
	var b strings.Builder

	if p.IsStatic && p.Owner != nil && p.Kind != FactoryProcedure {
		b.WriteString("static ")
	}
	if p.IsExternal {
		b.WriteString("external ")
	}
	switch p.Kind {
	case GetterProcedure:
		b.WriteString("get " + p.Name)
	case SetterProcedure:
		b.WriteString("set " + p.Name + p.Function.parameterString())
	case FactoryProcedure:
		b.WriteString("factory " + p.Name + p.Function.parameterString())
	default:
		if p.Owner != nil {
			b.WriteString("method ")
		} else {
			b.WriteString("procedure ")
		}
		b.WriteString(p.Name + p.Function.parameterString())
	}
	b.WriteString(p.Function.bodyString())
	return b.String()
}

func (c *Constructor) String() string {
	var b strings.Builder

	if c.IsConst {
		b.WriteString("const ")
	}
	b.WriteString("constructor")
	if c.Name != "" {
		b.WriteString(" " + c.Name)
	}
	b.WriteString(c.Function.parameterString())
	if len(c.Initializers) > 0 {
		inits := make([]string, len(c.Initializers))
		for i, init := range c.Initializers {
			inits[i] = init.String()
		}
		b.WriteString(" : " + strings.Join(inits, ", "))
	}
	b.WriteString(c.Function.bodyString())
	return b.String()
}

func (f *FieldInitializer) String() string {
	return fmt.Sprintf("%s = %s", f.Field, f.Value.String())
}

func (s *SuperInitializer) String() string {
	if s.Target.Name == "" {
		return "super" + s.Arguments.String()
	}
	return "super." + s.Target.Name + s.Arguments.String()
}

func (r *RedirectingInitializer) String() string {
	if r.Target.Name == "" {
		return "this" + r.Arguments.String()
	}
	return "this." + r.Target.Name + r.Arguments.String()
}

func (f *FunctionNode) String() string {
	return f.parameterString() + f.bodyString()
}

func (f *FunctionNode) parameterString() string {
	var parts []string
	for i, p := range f.Positional {
		if i < f.RequiredCount {
			parts = append(parts, p.Name)
		}
	}
	if len(f.Positional) > f.RequiredCount {
		var optional []string
		for _, p := range f.Positional[f.RequiredCount:] {
			optional = append(optional, parameterString(p))
		}
		parts = append(parts, "["+strings.Join(optional, ", ")+"]")
	}
	if len(f.Named) > 0 {
		var named []string
		for _, p := range f.Named {
			named = append(named, parameterString(p))
		}
		parts = append(parts, "{"+strings.Join(named, ", ")+"}")
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func parameterString(p *VariableDeclaration) string {
	if p.Initializer == nil {
		return p.Name
	}
	return p.Name + " = " + p.Initializer.String()
}

func (f *FunctionNode) bodyString() string {
	if f.Body == nil {
		return ";"
	}
	return " " + f.Body.String()
}

func (a *Arguments) String() string {
	if a == nil {
		return "()"
	}
	parts := make([]string, 0, a.Count())
	for _, e := range a.Positional {
		parts = append(parts, e.String())
	}
	for _, n := range a.Named {
		parts = append(parts, n.Name+": "+n.Value.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (e *InvalidExpression) String() string {
	return fmt.Sprintf("invalid(%q)", e.Message)
}

func (*NullLiteral) String() string { return "null" }

func (e *BoolLiteral) String() string { return strconv.FormatBool(e.Value) }

func (e *IntLiteral) String() string { return strconv.FormatInt(e.Value, 10) }

func (e *DoubleLiteral) String() string {
	s := strconv.FormatFloat(e.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func (e *StringLiteral) String() string { return strconv.Quote(e.Value) }

func (e *SymbolLiteral) String() string { return "#" + e.Value }

func (e *TypeLiteral) String() string { return "type " + e.Class }

func (*ThisExpression) String() string { return "this" }

func (e *VariableGet) String() string { return e.Variable.Name }

func (e *VariableSet) String() string {
	return fmt.Sprintf("%s = %s", e.Variable.Name, e.Value.String())
}

func (e *StaticGet) String() string { return e.Target.String() }

func (e *StaticSet) String() string {
	return fmt.Sprintf("%s = %s", e.Target.String(), e.Value.String())
}

func (e *PropertyGet) String() string {
	return fmt.Sprintf("%s.%s", operand(e.Receiver), e.Name)
}

func (e *PropertySet) String() string {
	return fmt.Sprintf("%s.%s = %s", operand(e.Receiver), e.Name, e.Value.String())
}

func (e *DirectPropertyGet) String() string {
	return fmt.Sprintf("%s.%s", operand(e.Receiver), e.Target.String())
}

func (e *DirectPropertySet) String() string {
	return fmt.Sprintf("%s.%s = %s", operand(e.Receiver), e.Target.String(), e.Value.String())
}

func (e *StaticInvocation) String() string {
	prefix := ""
	if e.IsConst {
		prefix = "const "
	}
	return prefix + e.Target.String() + e.Arguments.String()
}

var binaryOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "~/": true, "%": true,
	"==": true, "<": true, ">": true, "<=": true, ">=": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true,
}

func (e *MethodInvocation) String() string {
	if binaryOperators[e.Name] && e.Arguments.Count() == 1 && len(e.Arguments.Positional) == 1 {
		return fmt.Sprintf("(%s %s %s)", e.Receiver.String(), e.Name, e.Arguments.Positional[0].String())
	}
	if e.Name == "unary-" && e.Arguments.Count() == 0 {
		return "-" + operand(e.Receiver)
	}
	return fmt.Sprintf("%s.%s%s", operand(e.Receiver), e.Name, e.Arguments.String())
}

func (e *ConstructorInvocation) String() string {
	keyword := "new "
	if e.IsConst {
		keyword = "const "
	}
	target := e.Target.Class
	if e.Target.Name != "" {
		target = e.Target.String()
	}
	return keyword + target + e.Arguments.String()
}

func (e *IsExpression) String() string {
	return fmt.Sprintf("(%s is %s)", e.Operand.String(), e.Class)
}

func (e *AsExpression) String() string {
	return fmt.Sprintf("(%s as %s)", e.Operand.String(), e.Class)
}

func (e *ConditionalExpression) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", e.Condition.String(), e.Then.String(), e.Otherwise.String())
}

func (e *LogicalExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Operator.String(), e.Right.String())
}

func (e *Not) String() string { return "!" + operand(e.Operand) }

func (e *StringConcatenation) String() string {
	return "concat(" + joinExprs(e.Expressions) + ")"
}

func (e *ListLiteral) String() string {
	prefix := ""
	if e.IsConst {
		prefix = "const "
	}
	return prefix + "[" + joinExprs(e.Expressions) + "]"
}

func (e *MapLiteral) String() string {
	prefix := ""
	if e.IsConst {
		prefix = "const "
	}
	entries := make([]string, len(e.Entries))
	for i, entry := range e.Entries {
		entries[i] = entry.Key.String() + ": " + entry.Value.String()
	}
	return prefix + "{" + strings.Join(entries, ", ") + "}"
}

func (e *FunctionExpression) String() string {
	return "fn " + e.Function.String()
}

func (e *Let) String() string {
	return fmt.Sprintf("(let %s = %s in %s)", e.Variable.Name, e.Variable.Initializer.String(), e.Body.String())
}

func (e *Throw) String() string { return "throw " + e.Value.String() }

func (*Rethrow) String() string { return "rethrow" }

// operand wraps expressions that would otherwise bind wrongly as a receiver.
func operand(e Expr) string {
	switch e.(type) {
	case *VariableSet, *StaticSet, *PropertySet, *DirectPropertySet, *Throw, *FunctionExpression:
		return "(" + e.String() + ")"
	}
	return e.String()
}

func (s *InvalidStatement) String() string {
	return fmt.Sprintf("invalid(%q);", s.Message)
}

func (*EmptyStatement) String() string { return ";" }

func (s *Block) String() string {
	if len(s.Statements) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	for _, stmt := range s.Statements {
		b.WriteString(indent(stmt.String()) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

func (s *ExpressionStatement) String() string {
	return s.Expression.String() + ";"
}

func (s *VariableDeclaration) String() string {
	keyword := "var"
	if s.IsConst {
		keyword = "const"
	} else if s.IsFinal {
		keyword = "final"
	}
	if s.Initializer == nil {
		return fmt.Sprintf("%s %s;", keyword, s.Name)
	}
	return fmt.Sprintf("%s %s = %s;", keyword, s.Name, s.Initializer.String())
}

func (s *FunctionDeclaration) String() string {
	return "function " + s.Variable.Name + s.Function.String()
}

func (s *IfStatement) String() string {
	str := fmt.Sprintf("if (%s) %s", s.Condition.String(), s.Then.String())
	if s.Otherwise != nil {
		str += " else " + s.Otherwise.String()
	}
	return str
}

func (s *WhileStatement) String() string {
	return fmt.Sprintf("while (%s) %s", s.Condition.String(), s.Body.String())
}

func (s *DoStatement) String() string {
	return fmt.Sprintf("do %s while (%s);", s.Body.String(), s.Condition.String())
}

func (s *ForStatement) String() string {
	vars := make([]string, len(s.Variables))
	for i, v := range s.Variables {
		vars[i] = strings.TrimSuffix(v.String(), ";")
	}
	cond := ""
	if s.Condition != nil {
		cond = " " + s.Condition.String()
	}
	updates := ""
	if len(s.Updates) > 0 {
		updates = " " + joinExprs(s.Updates)
	}
	return fmt.Sprintf("for (%s;%s;%s) %s", strings.Join(vars, ", "), cond, updates, s.Body.String())
}

func (s *ForInStatement) String() string {
	return fmt.Sprintf("for (var %s in %s) %s", s.Variable.Name, s.Iterable.String(), s.Body.String())
}

func (s *LabeledStatement) String() string {
	return s.Label + ": " + s.Body.String()
}

func (s *BreakStatement) String() string {
	return "break " + s.Target.Label + ";"
}

func (s *SwitchStatement) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("switch (%s) {\n", s.Expression.String()))
	for _, c := range s.Cases {
		b.WriteString(indent(c.String()) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

func (s *SwitchCase) String() string {
	var b strings.Builder
	if s.Label != "" {
		b.WriteString("@" + s.Label + " ")
	}
	for _, e := range s.Expressions {
		b.WriteString("case " + e.String() + ": ")
	}
	if s.IsDefault {
		b.WriteString("default: ")
	}
	b.WriteString(s.Body.String())
	return b.String()
}

func (s *ContinueSwitchStatement) String() string {
	return "continue " + s.Target.Label + ";"
}

func (s *ReturnStatement) String() string {
	if s.Expression == nil {
		return "return;"
	}
	return "return " + s.Expression.String() + ";"
}

func (s *TryCatch) String() string {
	var b strings.Builder
	b.WriteString("try " + s.Body.String())
	for _, c := range s.Catches {
		b.WriteString(" " + c.String())
	}
	return b.String()
}

func (s *Catch) String() string {
	var b strings.Builder
	if s.Guard != "" {
		b.WriteString("on " + s.Guard + " ")
	}
	b.WriteString("catch (" + s.Exception.Name)
	if s.StackTrace != nil {
		b.WriteString(", " + s.StackTrace.Name)
	}
	b.WriteString(") " + s.Body.String())
	return b.String()
}

func (s *TryFinally) String() string {
	return fmt.Sprintf("try %s finally %s", s.Body.String(), s.Finalizer.String())
}

func (s *AssertStatement) String() string {
	if s.Message == nil {
		return fmt.Sprintf("assert(%s);", s.Condition.String())
	}
	return fmt.Sprintf("assert(%s, %s);", s.Condition.String(), s.Message.String())
}

func (s *YieldStatement) String() string {
	return "yield " + s.Expression.String() + ";"
}
