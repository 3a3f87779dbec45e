package grammar

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"dil/internal/ast"
	"dil/internal/errors"
)

// Convert turns a parse tree into a library. Local variables are bound to
// their declarations, unlabeled break and continue get synthetic labels, and
// operators become method invocations on their left operand.
func Convert(program *Program) (*ast.Library, []errors.CompilerError) {
	c := &converter{
		classes: make(map[string]*ast.Class),
		members: make(map[string]bool),
	}
	lib := c.library(program)
	return lib, c.diagnostics
}

type converter struct {
	classes map[string]*ast.Class
	members map[string]bool

	env         *environment
	targets     []*jumpTarget
	loopLabel   string
	synthetic   int
	diagnostics []errors.CompilerError
}

type environment struct {
	parent *environment
	vars   map[string]*ast.VariableDeclaration
}

func (e *environment) lookup(name string) *ast.VariableDeclaration {
	for ; e != nil; e = e.parent {
		if v, ok := e.vars[name]; ok {
			return v
		}
	}
	return nil
}

// jumpTarget is a statement break or continue can leave. Labels are only
// materialized when a jump actually refers to them.
type jumpTarget struct {
	label    string // explicit label of a labeled statement
	loop     bool
	loopName string // label naming the loop for continue
	swtch    bool
	cases    map[string]*ast.SwitchCase

	breakTo    *ast.LabeledStatement
	continueTo *ast.LabeledStatement
}

func (c *converter) errorf(code string, pos ast.Position, format string, args ...any) {
	c.emit(errors.NewDiagnostic(code, fmt.Sprintf(format, args...), pos))
}

func (c *converter) emit(d *errors.DiagnosticBuilder) {
	c.diagnostics = append(c.diagnostics, d.Build())
}

func (c *converter) push() {
	c.env = &environment{parent: c.env, vars: make(map[string]*ast.VariableDeclaration)}
}

func (c *converter) pop() {
	c.env = c.env.parent
}

func (c *converter) declare(decl *ast.VariableDeclaration) {
	if _, exists := c.env.vars[decl.Name]; exists {
		c.errorf(errors.ErrorInvalidDeclaration, decl.Pos, "'%s' is already declared in this scope", decl.Name)
		return
	}
	c.env.vars[decl.Name] = decl
}

func (c *converter) label(kind string) string {
	c.synthetic++
	return fmt.Sprintf(":%s%d", kind, c.synthetic)
}

func (c *converter) library(p *Program) *ast.Library {
	lib := &ast.Library{Pos: position(p.Pos), Name: p.Name}
	for _, d := range p.Declarations {
		switch {
		case d.Class != nil:
			if _, exists := c.classes[d.Class.Name]; exists {
				c.errorf(errors.ErrorInvalidDeclaration, position(d.Class.Pos), "class %s is already declared", d.Class.Name)
				continue
			}
			c.classes[d.Class.Name] = &ast.Class{Pos: position(d.Class.Pos), Name: d.Class.Name, Super: d.Class.Super}
		case d.Member != nil:
			c.members[memberName(d.Member)] = true
		}
	}

	for _, d := range p.Declarations {
		switch {
		case d.Class != nil:
			class := c.classes[d.Class.Name]
			if class == nil || class.Pos != position(d.Class.Pos) {
				continue
			}
			for _, m := range d.Class.Members {
				c.member(lib, class, m)
			}
			lib.Classes = append(lib.Classes, class)
		case d.Member != nil:
			c.member(lib, nil, d.Member)
		}
	}
	return lib
}

func memberName(m *Member) string {
	switch {
	case m.Field != nil:
		return m.Field.Name
	case m.Procedure != nil:
		return m.Procedure.Name
	}
	return ""
}

func (c *converter) member(lib *ast.Library, owner *ast.Class, m *Member) {
	pos := position(m.Pos)
	switch {
	case m.Field != nil:
		if m.External {
			c.errorf(errors.ErrorInvalidDeclaration, pos, "field %s cannot be external", m.Field.Name)
		}
		c.push()
		field := &ast.Field{
			Pos:         position(m.Field.Pos),
			Name:        m.Field.Name,
			Owner:       owner,
			IsStatic:    m.Static,
			IsConst:     m.Field.Kind == "const",
			IsFinal:     m.Field.Kind == "final",
			Initializer: c.expr(m.Field.Value),
		}
		c.pop()
		if field.IsConst && field.Initializer == nil {
			c.errorf(errors.ErrorInvalidDeclaration, field.Pos, "const field %s needs an initializer", field.Name)
		}
		if owner != nil {
			owner.Fields = append(owner.Fields, field)
		} else {
			lib.Fields = append(lib.Fields, field)
		}

	case m.Procedure != nil:
		proc := c.procedure(owner, m)
		if proc == nil {
			return
		}
		if owner != nil {
			owner.Procedures = append(owner.Procedures, proc)
		} else {
			lib.Procedures = append(lib.Procedures, proc)
		}

	case m.Constructor != nil:
		if owner == nil {
			c.errorf(errors.ErrorInvalidDeclaration, pos, "constructors must be declared in a class")
			return
		}
		if m.Static || m.External {
			c.errorf(errors.ErrorInvalidDeclaration, pos, "constructors cannot be static or external")
		}
		owner.Constructors = append(owner.Constructors, c.constructor(owner, m.Constructor))
	}
}

func (c *converter) procedure(owner *ast.Class, m *Member) *ast.Procedure {
	g := m.Procedure
	pos := position(g.Pos)
	proc := &ast.Procedure{
		Pos:        pos,
		Name:       g.Name,
		Owner:      owner,
		IsStatic:   m.Static,
		IsExternal: m.External,
	}
	switch g.Kind {
	case "get":
		proc.Kind = ast.GetterProcedure
	case "set":
		proc.Kind = ast.SetterProcedure
	case "factory":
		proc.Kind = ast.FactoryProcedure
		if owner == nil {
			c.errorf(errors.ErrorInvalidDeclaration, pos, "factory %s must be declared in a class", g.Name)
			return nil
		}
	}
	if g.Name == "" && proc.Kind != ast.FactoryProcedure {
		c.errorf(errors.ErrorInvalidDeclaration, pos, "%s declarations need a name", g.Kind)
		return nil
	}
	if proc.Kind == ast.SetterProcedure && (g.Params == nil || len(g.Params.Groups) != 1 || g.Params.Groups[0].Required == nil) {
		c.errorf(errors.ErrorInvalidDeclaration, pos, "setter %s must take exactly one required parameter", g.Name)
	}
	if proc.Kind == ast.GetterProcedure && g.Params != nil {
		c.emit(errors.NewDiagnostic(errors.ErrorInvalidDeclaration, fmt.Sprintf("getter %s cannot take parameters", g.Name), pos).
			WithSuggestion(fmt.Sprintf("declare it as 'get %s => ...;'", g.Name)))
	}
	proc.Function = c.function(pos, g.Params, g.Body, m.External)
	return proc
}

func (c *converter) constructor(owner *ast.Class, g *Constructor) *ast.Constructor {
	pos := position(g.Pos)
	ctor := &ast.Constructor{Pos: pos, Name: g.Name, Owner: owner, IsConst: g.Const}
	body := g.Body
	if body.None {
		body = &FunctionBody{Pos: body.Pos, Block: &Block{Pos: body.Pos}}
	}

	// Initializers see the parameters, so they are converted inside the
	// parameter scope opened by function.
	ctor.Function = c.functionWith(pos, g.Params, body, false, func() {
		for _, init := range g.Initializers {
			ctor.Initializers = append(ctor.Initializers, c.initializer(owner, init))
		}
	})
	return ctor
}

func (c *converter) initializer(owner *ast.Class, g *Initializer) ast.Initializer {
	pos := position(g.Pos)
	switch {
	case g.Super != nil:
		return &ast.SuperInitializer{
			Pos:       pos,
			Target:    ast.MemberRef{Class: owner.Super, Name: g.Super.Name},
			Arguments: c.arguments(g.Super.Args),
		}
	case g.Redirect != nil:
		return &ast.RedirectingInitializer{
			Pos:       pos,
			Target:    ast.MemberRef{Class: owner.Name, Name: g.Redirect.Name},
			Arguments: c.arguments(g.Redirect.Args),
		}
	default:
		return &ast.FieldInitializer{Pos: pos, Field: g.Field, Value: c.expr(g.Value)}
	}
}

func (c *converter) function(pos ast.Position, params *Parameters, body *FunctionBody, external bool) *ast.FunctionNode {
	return c.functionWith(pos, params, body, external, nil)
}

// functionWith converts parameters and body in a fresh scope. Jump targets
// never cross a function boundary.
func (c *converter) functionWith(pos ast.Position, params *Parameters, body *FunctionBody, external bool, prologue func()) *ast.FunctionNode {
	targets, loopLabel := c.targets, c.loopLabel
	c.targets, c.loopLabel = nil, ""
	defer func() { c.targets, c.loopLabel = targets, loopLabel }()

	c.push()
	defer c.pop()
	fn := c.parameters(pos, params)
	if prologue != nil {
		prologue()
	}

	switch {
	case body == nil:
	case body.Block != nil:
		fn.Body = c.block(body.Block)
	case body.Arrow != nil:
		fn.Body = &ast.ReturnStatement{Pos: position(body.Pos), Expression: c.expr(body.Arrow)}
	}
	if external && fn.Body != nil {
		c.errorf(errors.ErrorInvalidDeclaration, pos, "external declarations cannot have a body")
	}
	if !external && fn.Body == nil {
		c.emit(errors.NewDiagnostic(errors.ErrorInvalidDeclaration, "missing body", pos).
			WithSuggestion("mark the declaration 'external' if it is provided by the runtime"))
	}
	return fn
}

func (c *converter) parameters(pos ast.Position, params *Parameters) *ast.FunctionNode {
	fn := &ast.FunctionNode{Pos: pos}
	if params == nil {
		return fn
	}
	fn.Pos = position(params.Pos)
	optional := false
	for _, group := range params.Groups {
		switch {
		case group.Required != nil:
			if optional {
				c.errorf(errors.ErrorInvalidDeclaration, position(group.Required.Pos),
					"required parameter %s follows optional parameters", group.Required.Name)
			}
			fn.Positional = append(fn.Positional, c.parameter(group.Required))
			fn.RequiredCount++
		case group.Optional != nil:
			if optional {
				c.errorf(errors.ErrorInvalidDeclaration, position(group.Optional[0].Pos), "only one group of optional parameters is allowed")
			}
			optional = true
			for _, p := range group.Optional {
				fn.Positional = append(fn.Positional, c.parameter(p))
			}
		case group.Named != nil:
			if optional {
				c.errorf(errors.ErrorInvalidDeclaration, position(group.Named[0].Pos), "only one group of optional parameters is allowed")
			}
			optional = true
			for _, p := range group.Named {
				fn.Named = append(fn.Named, c.parameter(p))
			}
		}
	}
	return fn
}

func (c *converter) parameter(p *Parameter) *ast.VariableDeclaration {
	decl := &ast.VariableDeclaration{Pos: position(p.Pos), Name: p.Name, Initializer: c.expr(p.Default)}
	c.declare(decl)
	return decl
}

func (c *converter) block(b *Block) *ast.Block {
	c.push()
	defer c.pop()
	return &ast.Block{Pos: position(b.Pos), Statements: c.statements(b.Statements)}
}

func (c *converter) statements(list []*Statement) []ast.Statement {
	var out []ast.Statement
	for _, s := range list {
		out = append(out, c.statement(s)...)
	}
	return out
}

// nested converts the body of a compound statement in its own scope.
func (c *converter) nested(s *Statement) ast.Statement {
	if s == nil {
		return nil
	}
	c.push()
	defer c.pop()
	stmts := c.statement(s)
	if len(stmts) == 1 {
		return stmts[0]
	}
	return &ast.Block{Pos: position(s.Pos), Statements: stmts}
}

func (c *converter) statement(s *Statement) []ast.Statement {
	pos := position(s.Pos)
	loopLabel := c.loopLabel
	c.loopLabel = ""

	switch {
	case s.Block != nil:
		return one(c.block(s.Block))
	case s.Empty:
		return one(&ast.EmptyStatement{Pos: pos})
	case s.Variable != nil:
		var out []ast.Statement
		for _, d := range s.Variable.Declarators {
			decl := &ast.VariableDeclaration{
				Pos:         position(d.Pos),
				Name:        d.Name,
				Initializer: c.expr(d.Value),
				IsConst:     s.Variable.Kind == "const",
				IsFinal:     s.Variable.Kind == "final",
			}
			if decl.IsConst && decl.Initializer == nil {
				c.errorf(errors.ErrorInvalidDeclaration, decl.Pos, "const variable %s needs an initializer", d.Name)
			}
			c.declare(decl)
			out = append(out, decl)
		}
		return out
	case s.Function != nil:
		decl := &ast.VariableDeclaration{Pos: position(s.Function.Pos), Name: s.Function.Name, IsFinal: true}
		c.declare(decl)
		fn := c.function(pos, s.Function.Params, s.Function.Body, false)
		return one(&ast.FunctionDeclaration{Pos: pos, Variable: decl, Function: fn})
	case s.If != nil:
		return one(&ast.IfStatement{
			Pos:       pos,
			Condition: c.expr(s.If.Condition),
			Then:      c.nested(s.If.Then),
			Otherwise: c.nested(s.If.Else),
		})
	case s.While != nil:
		cond := c.expr(s.While.Condition)
		return one(c.loop(loopLabel, func(body func(*Statement) ast.Statement) ast.Statement {
			return &ast.WhileStatement{Pos: pos, Condition: cond, Body: body(s.While.Body)}
		}))
	case s.Do != nil:
		return one(c.loop(loopLabel, func(body func(*Statement) ast.Statement) ast.Statement {
			stmt := &ast.DoStatement{Pos: pos, Body: body(s.Do.Body)}
			stmt.Condition = c.expr(s.Do.Condition)
			return stmt
		}))
	case s.For != nil:
		return one(c.forStatement(pos, loopLabel, s.For))
	case s.Switch != nil:
		return one(c.switchStatement(pos, s.Switch))
	case s.Break != nil:
		return one(c.breakStatement(pos, s.Break.Label))
	case s.Continue != nil:
		return one(c.continueStatement(pos, s.Continue.Label))
	case s.Return != nil:
		return one(&ast.ReturnStatement{Pos: pos, Expression: c.expr(s.Return.Value)})
	case s.Try != nil:
		return one(c.tryStatement(pos, s.Try))
	case s.Assert != nil:
		return one(&ast.AssertStatement{Pos: pos, Condition: c.expr(s.Assert.Condition), Message: c.expr(s.Assert.Message)})
	case s.Yield != nil:
		return one(&ast.YieldStatement{Pos: pos, Expression: c.expr(s.Yield)})
	case s.Labeled != nil:
		return one(c.labeled(pos, s.Labeled))
	case s.Expression != nil:
		return one(&ast.ExpressionStatement{Pos: pos, Expression: c.expr(s.Expression)})
	}
	return one(&ast.InvalidStatement{Pos: pos, Message: "unrecognized statement"})
}

func one(s ast.Statement) []ast.Statement {
	return []ast.Statement{s}
}

func (c *converter) labeled(pos ast.Position, g *LabeledStmt) ast.Statement {
	for _, t := range c.targets {
		if t.label == g.Label {
			c.errorf(errors.ErrorInvalidDeclaration, pos, "label %s is already in use", g.Label)
		}
	}
	ls := &ast.LabeledStatement{Pos: pos, Label: g.Label}
	c.targets = append(c.targets, &jumpTarget{label: g.Label, breakTo: ls})
	if s := g.Body; s.While != nil || s.Do != nil || s.For != nil {
		c.loopLabel = g.Label
	}
	ls.Body = c.nested(g.Body)
	c.targets = c.targets[:len(c.targets)-1]
	return ls
}

// loop pushes a loop target around build. The body callback converts the
// loop body and wraps it in the continue label when one was used.
func (c *converter) loop(name string, build func(body func(*Statement) ast.Statement) ast.Statement) ast.Statement {
	t := &jumpTarget{loop: true, loopName: name}
	body := func(s *Statement) ast.Statement {
		c.targets = append(c.targets, t)
		stmt := c.nested(s)
		c.targets = c.targets[:len(c.targets)-1]
		if t.continueTo != nil {
			t.continueTo.Pos = position(s.Pos)
			t.continueTo.Body = stmt
			return t.continueTo
		}
		return stmt
	}
	return c.wrapBreak(t, build(body))
}

func (c *converter) wrapBreak(t *jumpTarget, stmt ast.Statement) ast.Statement {
	if t.breakTo == nil {
		return stmt
	}
	t.breakTo.Pos = stmt.NodePos()
	t.breakTo.Body = stmt
	return t.breakTo
}

func (c *converter) forStatement(pos ast.Position, name string, g *ForStmt) ast.Statement {
	if in := g.In; in != nil {
		iterable := c.expr(in.Iterable)
		c.push()
		defer c.pop()
		decl := &ast.VariableDeclaration{Pos: position(in.Pos), Name: in.Name, IsFinal: in.Kind == "final"}
		c.declare(decl)
		return c.loop(name, func(body func(*Statement) ast.Statement) ast.Statement {
			return &ast.ForInStatement{Pos: pos, Variable: decl, Iterable: iterable, Body: body(g.Body)}
		})
	}

	c.push()
	defer c.pop()
	stmt := &ast.ForStatement{Pos: pos}
	for _, d := range g.Loop.Init {
		decl := &ast.VariableDeclaration{
			Pos:         position(d.Pos),
			Name:        d.Name,
			Initializer: c.expr(d.Value),
			IsFinal:     g.Loop.Kind == "final",
		}
		c.declare(decl)
		stmt.Variables = append(stmt.Variables, decl)
	}
	stmt.Condition = c.expr(g.Loop.Condition)
	for _, u := range g.Loop.Updates {
		stmt.Updates = append(stmt.Updates, c.expr(u))
	}
	return c.loop(name, func(body func(*Statement) ast.Statement) ast.Statement {
		stmt.Body = body(g.Body)
		return stmt
	})
}

func (c *converter) switchStatement(pos ast.Position, g *SwitchStmt) ast.Statement {
	stmt := &ast.SwitchStatement{Pos: pos, Expression: c.expr(g.Subject)}
	t := &jumpTarget{swtch: true, cases: make(map[string]*ast.SwitchCase)}

	// Cases exist before any body is converted so continue can jump forward.
	for _, gc := range g.Cases {
		sc := &ast.SwitchCase{Pos: position(gc.Pos), Label: gc.Label}
		if gc.Label != "" {
			if _, exists := t.cases[gc.Label]; exists {
				c.errorf(errors.ErrorInvalidDeclaration, sc.Pos, "case label %s is already in use", gc.Label)
			}
			t.cases[gc.Label] = sc
		}
		for _, m := range gc.Matches {
			if m.Default {
				sc.IsDefault = true
				continue
			}
			sc.Expressions = append(sc.Expressions, c.expr(m.Value))
		}
		stmt.Cases = append(stmt.Cases, sc)
	}

	c.targets = append(c.targets, t)
	for i, gc := range g.Cases {
		c.push()
		stmt.Cases[i].Body = &ast.Block{Pos: stmt.Cases[i].Pos, Statements: c.statements(gc.Body)}
		c.pop()
	}
	c.targets = c.targets[:len(c.targets)-1]
	return c.wrapBreak(t, stmt)
}

func (c *converter) breakStatement(pos ast.Position, label string) ast.Statement {
	for i := len(c.targets) - 1; i >= 0; i-- {
		t := c.targets[i]
		if label == "" && !t.loop && !t.swtch {
			continue
		}
		if label != "" && t.label != label {
			continue
		}
		if t.breakTo == nil {
			t.breakTo = &ast.LabeledStatement{Label: c.label("break")}
		}
		return &ast.BreakStatement{Pos: pos, Target: t.breakTo}
	}
	if label == "" {
		c.errorf(errors.ErrorInvalidJumpTarget, pos, "break outside of a loop or switch")
	} else {
		c.undeclaredLabel(pos, "break", label)
	}
	return &ast.InvalidStatement{Pos: pos, Message: "invalid break"}
}

func (c *converter) continueStatement(pos ast.Position, label string) ast.Statement {
	for i := len(c.targets) - 1; i >= 0; i-- {
		t := c.targets[i]
		if label != "" && t.swtch {
			if sc, ok := t.cases[label]; ok {
				return &ast.ContinueSwitchStatement{Pos: pos, Target: sc}
			}
			continue
		}
		if !t.loop || (label != "" && t.loopName != label) {
			continue
		}
		if t.continueTo == nil {
			t.continueTo = &ast.LabeledStatement{Label: c.label("continue")}
		}
		return &ast.BreakStatement{Pos: pos, Target: t.continueTo}
	}
	if label == "" {
		c.errorf(errors.ErrorInvalidJumpTarget, pos, "continue outside of a loop")
	} else {
		c.undeclaredLabel(pos, "continue", label)
	}
	return &ast.InvalidStatement{Pos: pos, Message: "invalid continue"}
}

func (c *converter) undeclaredLabel(pos ast.Position, jump, label string) {
	var visible []string
	for _, t := range c.targets {
		if t.label != "" {
			visible = append(visible, t.label)
		}
		if t.loopName != "" {
			visible = append(visible, t.loopName)
		}
		for name := range t.cases {
			visible = append(visible, name)
		}
	}
	d := errors.NewDiagnostic(errors.ErrorInvalidJumpTarget, fmt.Sprintf("%s to undeclared label %s", jump, label), pos)
	if similar := errors.FindSimilarNames(label, visible); len(similar) > 0 {
		d = d.WithReplacement(fmt.Sprintf("did you mean '%s'?", similar[0]), similar[0])
	}
	c.emit(d)
}

func (c *converter) tryStatement(pos ast.Position, g *TryStmt) ast.Statement {
	if len(g.Catches) == 0 && g.Finally == nil {
		c.errorf(errors.ErrorInvalidDeclaration, pos, "try needs a catch or finally clause")
	}
	var stmt ast.Statement = c.block(g.Body)
	if len(g.Catches) > 0 {
		tc := &ast.TryCatch{Pos: pos, Body: stmt}
		for _, gc := range g.Catches {
			c.push()
			catch := &ast.Catch{Pos: position(gc.Pos), Guard: gc.Guard}
			if b := gc.Binding; b != nil {
				catch.Exception = &ast.VariableDeclaration{Pos: position(b.Pos), Name: b.Exception, IsFinal: true}
				c.declare(catch.Exception)
				if b.StackTrace != "" {
					catch.StackTrace = &ast.VariableDeclaration{Pos: position(b.Pos), Name: b.StackTrace, IsFinal: true}
					c.declare(catch.StackTrace)
				}
			}
			catch.Body = c.block(gc.Body)
			c.pop()
			tc.Catches = append(tc.Catches, catch)
		}
		stmt = tc
	}
	if g.Finally != nil {
		stmt = &ast.TryFinally{Pos: pos, Body: stmt, Finalizer: c.block(g.Finally)}
	}
	return stmt
}

func (c *converter) expr(e *Expr) ast.Expr {
	if e == nil {
		return nil
	}
	if e.Value == nil {
		return c.conditional(e.Target)
	}
	return c.assignment(e)
}

func (c *converter) conditional(g *Conditional) ast.Expr {
	cond := c.ifNull(g.Condition)
	if g.Then == nil {
		return cond
	}
	return &ast.ConditionalExpression{
		Pos:       position(g.Pos),
		Condition: cond,
		Then:      c.expr(g.Then),
		Otherwise: c.expr(g.Otherwise),
	}
}

func (c *converter) ifNull(g *IfNull) ast.Expr {
	left := c.or(g.Left)
	for _, r := range g.Right {
		left = &ast.LogicalExpression{Pos: position(g.Pos), Left: left, Operator: ast.IfNull, Right: c.or(r)}
	}
	return left
}

func (c *converter) or(g *Or) ast.Expr {
	left := c.and(g.Left)
	for _, r := range g.Right {
		left = &ast.LogicalExpression{Pos: position(g.Pos), Left: left, Operator: ast.LogicalOr, Right: c.and(r)}
	}
	return left
}

func (c *converter) and(g *And) ast.Expr {
	left := c.equality(g.Left)
	for _, r := range g.Right {
		left = &ast.LogicalExpression{Pos: position(g.Pos), Left: left, Operator: ast.LogicalAnd, Right: c.equality(r)}
	}
	return left
}

func (c *converter) equality(g *Equality) ast.Expr {
	left := c.relational(g.Left)
	if g.Op == "" {
		return left
	}
	pos := position(g.Pos)
	right := c.relational(g.Right)
	switch g.Op {
	case "==":
		return invoke(pos, left, "==", right)
	case "!=":
		return &ast.Not{Pos: pos, Operand: invoke(pos, left, "==", right)}
	case "===":
		return identical(pos, left, right)
	default:
		return &ast.Not{Pos: pos, Operand: identical(pos, left, right)}
	}
}

func identical(pos ast.Position, left, right ast.Expr) ast.Expr {
	return &ast.StaticInvocation{
		Pos:       pos,
		Target:    ast.MemberRef{Name: "identical"},
		Arguments: &ast.Arguments{Pos: pos, Positional: []ast.Expr{left, right}},
	}
}

func invoke(pos ast.Position, receiver ast.Expr, name string, args ...ast.Expr) ast.Expr {
	return &ast.MethodInvocation{
		Pos:       pos,
		Receiver:  receiver,
		Name:      name,
		Arguments: &ast.Arguments{Pos: pos, Positional: args},
	}
}

func (c *converter) relational(g *Relational) ast.Expr {
	left := c.bitwise(g.Left)
	pos := position(g.Pos)
	switch {
	case g.Op != "":
		return invoke(pos, left, g.Op, c.bitwise(g.Right))
	case g.Is != "":
		return &ast.IsExpression{Pos: pos, Operand: left, Class: g.Is}
	case g.As != "":
		return &ast.AsExpression{Pos: pos, Operand: left, Class: g.As}
	}
	return left
}

func (c *converter) bitwise(g *Bitwise) ast.Expr {
	left := c.additive(g.Left)
	for _, op := range g.Ops {
		left = invoke(position(op.Pos), left, op.Op, c.additive(op.Right))
	}
	return left
}

func (c *converter) additive(g *Additive) ast.Expr {
	left := c.multiplicative(g.Left)
	for _, op := range g.Ops {
		left = invoke(position(op.Pos), left, op.Op, c.multiplicative(op.Right))
	}
	return left
}

func (c *converter) multiplicative(g *Multiplicative) ast.Expr {
	left := c.unary(g.Left)
	for _, op := range g.Ops {
		left = invoke(position(op.Pos), left, op.Op, c.unary(op.Right))
	}
	return left
}

func (c *converter) unary(g *Unary) ast.Expr {
	if g.Postfix != nil {
		return c.postfix(g.Postfix.Primary, g.Postfix.Suffixes)
	}
	pos := position(g.Pos)
	operand := c.unary(g.Operand)
	switch g.Op {
	case "!":
		return &ast.Not{Pos: pos, Operand: operand}
	case "-":
		switch lit := operand.(type) {
		case *ast.IntLiteral:
			lit.Value = -lit.Value
			return lit
		case *ast.DoubleLiteral:
			lit.Value = -lit.Value
			return lit
		}
		return invoke(pos, operand, "unary-")
	default:
		return invoke(pos, operand, g.Op)
	}
}

// postfix converts a primary followed by member accesses, calls and index
// operations. An identifier that is not a local variable is resolved
// statically: Class.member when followed by a member suffix, otherwise a
// library-level member.
func (c *converter) postfix(p *Primary, suffixes []*Suffix) ast.Expr {
	var expr ast.Expr
	pos := position(p.Pos)
	if p.Ident != "" && c.env.lookup(p.Ident) == nil {
		expr, suffixes = c.static(pos, p.Ident, suffixes)
	} else {
		expr = c.primary(p)
	}

	for _, s := range suffixes {
		spos := position(s.Pos)
		switch {
		case s.Member != nil && s.Member.Class != "":
			if s.Member.Args != nil {
				c.errorf(errors.ErrorInvalidDeclaration, spos, "%s::%s can only be read or written", s.Member.Class, s.Member.Name)
			}
			expr = &ast.DirectPropertyGet{Pos: spos, Receiver: expr, Target: ast.MemberRef{Class: s.Member.Class, Name: s.Member.Name}}
		case s.Member != nil && s.Member.Args != nil:
			expr = &ast.MethodInvocation{Pos: spos, Receiver: expr, Name: s.Member.Name, Arguments: c.arguments(s.Member.Args)}
		case s.Member != nil:
			expr = &ast.PropertyGet{Pos: spos, Receiver: expr, Name: s.Member.Name}
		case s.Call != nil:
			expr = &ast.MethodInvocation{Pos: spos, Receiver: expr, Name: "call", Arguments: c.arguments(s.Call)}
		case s.Index != nil:
			expr = invoke(spos, expr, "[]", c.expr(s.Index))
		}
	}
	return expr
}

func (c *converter) static(pos ast.Position, name string, suffixes []*Suffix) (ast.Expr, []*Suffix) {
	var first *Suffix
	if len(suffixes) > 0 {
		first = suffixes[0]
	}
	switch {
	case first != nil && first.Call != nil:
		return &ast.StaticInvocation{Pos: pos, Target: ast.MemberRef{Name: name}, Arguments: c.arguments(first.Call)}, suffixes[1:]
	case c.members[name]:
		return &ast.StaticGet{Pos: pos, Target: ast.MemberRef{Name: name}}, suffixes
	case first != nil && first.Member != nil && first.Member.Class == "":
		target := ast.MemberRef{Class: name, Name: first.Member.Name}
		if first.Member.Args != nil {
			return &ast.StaticInvocation{Pos: pos, Target: target, Arguments: c.arguments(first.Member.Args)}, suffixes[1:]
		}
		return &ast.StaticGet{Pos: pos, Target: target}, suffixes[1:]
	case c.classes[name] != nil || isTypeName(name):
		return &ast.TypeLiteral{Pos: pos, Class: name}, suffixes
	}
	c.undeclared(pos, name)
	return &ast.InvalidExpression{Pos: pos, Message: fmt.Sprintf("undeclared identifier %s", name)}, suffixes
}

func isTypeName(name string) bool {
	return name != "" && unicode.IsUpper(rune(name[0]))
}

func (c *converter) undeclared(pos ast.Position, name string) {
	var visible []string
	for e := c.env; e != nil; e = e.parent {
		for v := range e.vars {
			visible = append(visible, v)
		}
	}
	for m := range c.members {
		visible = append(visible, m)
	}
	d := errors.NewDiagnostic(errors.ErrorUndeclaredIdentifier, fmt.Sprintf("undeclared identifier '%s'", name), pos).
		WithLength(len(name))
	if similar := errors.FindSimilarNames(name, visible); len(similar) > 0 {
		d = d.WithReplacement(fmt.Sprintf("did you mean '%s'?", similar[0]), similar[0])
	}
	c.emit(d)
}

func (c *converter) assignment(e *Expr) ast.Expr {
	pos := position(e.Pos)
	value := c.expr(e.Value)
	p := assignable(e.Target)
	if p == nil {
		c.errorf(errors.ErrorInvalidDeclaration, pos, "invalid assignment target")
		return &ast.InvalidExpression{Pos: pos, Message: "invalid assignment target"}
	}

	if len(p.Suffixes) == 0 {
		if p.Primary.Ident == "" {
			c.errorf(errors.ErrorInvalidDeclaration, pos, "invalid assignment target")
			return &ast.InvalidExpression{Pos: pos, Message: "invalid assignment target"}
		}
		if v := c.env.lookup(p.Primary.Ident); v != nil {
			if v.IsFinal || v.IsConst {
				c.errorf(errors.ErrorInvalidDeclaration, pos, "cannot assign to final variable %s", v.Name)
			}
			return &ast.VariableSet{Pos: pos, Variable: v, Value: value}
		}
		if c.members[p.Primary.Ident] {
			return &ast.StaticSet{Pos: pos, Target: ast.MemberRef{Name: p.Primary.Ident}, Value: value}
		}
		c.undeclared(position(p.Primary.Pos), p.Primary.Ident)
		return &ast.InvalidExpression{Pos: pos, Message: fmt.Sprintf("undeclared identifier %s", p.Primary.Ident)}
	}

	last := p.Suffixes[len(p.Suffixes)-1]
	prefix := p.Suffixes[:len(p.Suffixes)-1]
	if last.Member != nil && last.Member.Args == nil {
		name := last.Member.Name
		// Class.field = value
		if len(prefix) == 0 && p.Primary.Ident != "" && last.Member.Class == "" &&
			c.env.lookup(p.Primary.Ident) == nil && !c.members[p.Primary.Ident] {
			return &ast.StaticSet{Pos: pos, Target: ast.MemberRef{Class: p.Primary.Ident, Name: name}, Value: value}
		}
		receiver := c.postfix(p.Primary, prefix)
		if last.Member.Class != "" {
			return &ast.DirectPropertySet{Pos: pos, Receiver: receiver, Target: ast.MemberRef{Class: last.Member.Class, Name: name}, Value: value}
		}
		return &ast.PropertySet{Pos: pos, Receiver: receiver, Name: name, Value: value}
	}
	if last.Index != nil {
		receiver := c.postfix(p.Primary, prefix)
		return invoke(pos, receiver, "[]=", c.expr(last.Index), value)
	}
	c.errorf(errors.ErrorInvalidDeclaration, pos, "invalid assignment target")
	return &ast.InvalidExpression{Pos: pos, Message: "invalid assignment target"}
}

// assignable unwraps a conditional that consists of a single postfix
// expression.
func assignable(g *Conditional) *Postfix {
	if g.Then != nil {
		return nil
	}
	n := g.Condition
	if len(n.Right) > 0 {
		return nil
	}
	o := n.Left
	if len(o.Right) > 0 {
		return nil
	}
	a := o.Left
	if len(a.Right) > 0 {
		return nil
	}
	eq := a.Left
	if eq.Op != "" {
		return nil
	}
	rel := eq.Left
	if rel.Op != "" || rel.Is != "" || rel.As != "" {
		return nil
	}
	bit := rel.Left
	if len(bit.Ops) > 0 {
		return nil
	}
	add := bit.Left
	if len(add.Ops) > 0 {
		return nil
	}
	mul := add.Left
	if len(mul.Ops) > 0 {
		return nil
	}
	return mul.Left.Postfix
}

func (c *converter) primary(p *Primary) ast.Expr {
	pos := position(p.Pos)
	switch {
	case p.Null:
		return &ast.NullLiteral{Pos: pos}
	case p.True:
		return &ast.BoolLiteral{Pos: pos, Value: true}
	case p.False:
		return &ast.BoolLiteral{Pos: pos, Value: false}
	case p.This:
		return &ast.ThisExpression{Pos: pos}
	case p.Float != nil:
		return &ast.DoubleLiteral{Pos: pos, Value: *p.Float}
	case p.Integer != "":
		v, err := strconv.ParseInt(p.Integer, 0, 64)
		if err != nil {
			c.emit(errors.NewDiagnostic(errors.ErrorSyntax, fmt.Sprintf("integer literal %s is out of range", p.Integer), pos).
				WithLength(len(p.Integer)))
			return &ast.InvalidExpression{Pos: pos, Message: err.Error()}
		}
		return &ast.IntLiteral{Pos: pos, Value: v}
	case p.String != nil:
		return c.stringLiteral(p.String)
	case p.Symbol != "":
		return &ast.SymbolLiteral{Pos: pos, Value: p.Symbol}
	case p.Type != "":
		return &ast.TypeLiteral{Pos: pos, Class: p.Type}
	case p.New != nil:
		return &ast.ConstructorInvocation{
			Pos:       pos,
			Target:    ast.MemberRef{Class: p.New.Class, Name: p.New.Name},
			Arguments: c.arguments(p.New.Args),
		}
	case p.Const != nil:
		return c.constExpr(pos, p.Const)
	case p.List != nil:
		return c.list(p.List, false)
	case p.Map != nil:
		return c.mapLiteral(p.Map, false)
	case p.Function != nil:
		return c.functionExpr(p.Function)
	case p.Let != nil:
		value := c.expr(p.Let.Value)
		c.push()
		defer c.pop()
		decl := &ast.VariableDeclaration{Pos: pos, Name: p.Let.Name, Initializer: value, IsFinal: true}
		c.declare(decl)
		return &ast.Let{Pos: pos, Variable: decl, Body: c.expr(p.Let.Body)}
	case p.Throw != nil:
		return &ast.Throw{Pos: pos, Value: c.expr(p.Throw)}
	case p.Rethrow:
		return &ast.Rethrow{Pos: pos}
	case p.Ident != "":
		return &ast.VariableGet{Pos: pos, Variable: c.env.lookup(p.Ident)}
	case p.Paren != nil:
		return c.expr(p.Paren)
	}
	return &ast.InvalidExpression{Pos: pos, Message: "unrecognized expression"}
}

func (c *converter) constExpr(pos ast.Position, g *ConstExpr) ast.Expr {
	switch {
	case g.List != nil:
		return c.list(g.List, true)
	case g.Map != nil:
		return c.mapLiteral(g.Map, true)
	}
	if _, ok := c.classes[g.Target]; ok || isTypeName(g.Target) {
		return &ast.ConstructorInvocation{
			Pos:       pos,
			Target:    ast.MemberRef{Class: g.Target, Name: g.Name},
			Arguments: c.arguments(g.Args),
			IsConst:   true,
		}
	}
	target := ast.MemberRef{Name: g.Target}
	if g.Name != "" {
		target = ast.MemberRef{Class: g.Target, Name: g.Name}
	}
	return &ast.StaticInvocation{Pos: pos, Target: target, Arguments: c.arguments(g.Args), IsConst: true}
}

func (c *converter) list(g *ListLit, isConst bool) ast.Expr {
	lit := &ast.ListLiteral{Pos: position(g.Pos), IsConst: isConst}
	for _, e := range g.Elements {
		lit.Expressions = append(lit.Expressions, c.expr(e))
	}
	return lit
}

func (c *converter) mapLiteral(g *MapLit, isConst bool) ast.Expr {
	lit := &ast.MapLiteral{Pos: position(g.Pos), IsConst: isConst}
	for _, e := range g.Entries {
		lit.Entries = append(lit.Entries, &ast.MapEntry{Key: c.expr(e.Key), Value: c.expr(e.Value)})
	}
	return lit
}

func (c *converter) functionExpr(g *FunctionExpr) ast.Expr {
	pos := position(g.Pos)
	body := &FunctionBody{Pos: g.Pos, Block: g.Block, Arrow: g.Arrow}
	return &ast.FunctionExpression{Pos: pos, Function: c.function(pos, g.Params, body, false)}
}

// stringLiteral folds adjacent text and escapes. Interpolations turn the
// literal into a concatenation.
func (c *converter) stringLiteral(g *StringLit) ast.Expr {
	pos := position(g.Pos)
	var parts []ast.Expr
	var text strings.Builder
	textPos := pos
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, &ast.StringLiteral{Pos: textPos, Value: text.String()})
			text.Reset()
		}
	}
	interpolated := false
	for _, part := range g.Parts {
		switch {
		case part.Expr != nil:
			flush()
			interpolated = true
			parts = append(parts, c.expr(part.Expr))
			textPos = position(part.Pos)
		case part.Escaped != "":
			text.WriteString(unescape(part.Escaped))
		default:
			text.WriteString(part.Chars)
		}
	}
	flush()
	if !interpolated {
		if len(parts) == 0 {
			return &ast.StringLiteral{Pos: pos}
		}
		return parts[0]
	}
	return &ast.StringConcatenation{Pos: pos, Expressions: parts}
}

func unescape(s string) string {
	switch s[1] {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	default:
		return s[1:]
	}
}

func (c *converter) arguments(g *Arguments) *ast.Arguments {
	if g == nil {
		return nil
	}
	args := &ast.Arguments{Pos: position(g.Pos)}
	seen := make(map[string]bool)
	for _, a := range g.Items {
		value := c.expr(a.Value)
		if a.Name == "" {
			if len(args.Named) > 0 {
				c.errorf(errors.ErrorInvalidDeclaration, position(a.Pos), "positional argument follows named arguments")
			}
			args.Positional = append(args.Positional, value)
			continue
		}
		if seen[a.Name] {
			c.errorf(errors.ErrorInvalidDeclaration, position(a.Pos), "named argument %s is passed twice", a.Name)
		}
		seen[a.Name] = true
		args.Named = append(args.Named, &ast.NamedExpression{Name: a.Name, Value: value})
	}
	return args
}
