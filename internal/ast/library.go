package ast

// Library is the root of a source IR file: top-level classes, fields and procedures.
type Library struct {
	Pos        Position
	Name       string
	Classes    []*Class
	Fields     []*Field
	Procedures []*Procedure
}

// Class groups instance and static members. Super is empty for roots.
type Class struct {
	Pos          Position
	Name         string
	Super        string
	Fields       []*Field
	Constructors []*Constructor
	Procedures   []*Procedure
}

// Member is implemented by everything that can be lowered to a graph.
type Member interface {
	Node
	MemberName() string
	Enclosing() *Class
	isMember()
}

// Field is a stored field. Owner is nil for library-level fields.
type Field struct {
	Pos         Position
	Name        string
	Owner       *Class
	IsStatic    bool
	IsConst     bool
	IsFinal     bool
	Initializer Expr
}

type ProcedureKind int

const (
	MethodProcedure ProcedureKind = iota
	GetterProcedure
	SetterProcedure
	FactoryProcedure
)

func (k ProcedureKind) String() string {
	switch k {
	case GetterProcedure:
		return "get"
	case SetterProcedure:
		return "set"
	case FactoryProcedure:
		return "factory"
	default:
		return "method"
	}
}

// Procedure is a method, accessor or factory. Owner is nil for library-level procedures.
type Procedure struct {
	Pos        Position
	Name       string
	Kind       ProcedureKind
	Owner      *Class
	IsStatic   bool
	IsExternal bool
	Function   *FunctionNode
}

// Constructor runs field initializers, then its initializer list, then its body.
type Constructor struct {
	Pos          Position
	Name         string
	Owner        *Class
	IsConst      bool
	Function     *FunctionNode
	Initializers []Initializer
}

func (f *Field) MemberName() string       { return f.Name }
func (p *Procedure) MemberName() string   { return p.Name }
func (c *Constructor) MemberName() string { return c.Name }

func (f *Field) Enclosing() *Class       { return f.Owner }
func (p *Procedure) Enclosing() *Class   { return p.Owner }
func (c *Constructor) Enclosing() *Class { return c.Owner }

func (*Field) isMember()       {}
func (*Procedure) isMember()   {}
func (*Constructor) isMember() {}

// Initializer is one entry of a constructor's initializer list.
type Initializer interface {
	Node
	isInitializer()
}

// FieldInitializer assigns a field of the receiver: `x = value`.
type FieldInitializer struct {
	Pos   Position
	Field string
	Value Expr
}

// SuperInitializer invokes a constructor of the superclass on the same receiver.
type SuperInitializer struct {
	Pos       Position
	Target    MemberRef
	Arguments *Arguments
}

// RedirectingInitializer delegates to another constructor of the same class.
type RedirectingInitializer struct {
	Pos       Position
	Target    MemberRef
	Arguments *Arguments
}

func (*FieldInitializer) isInitializer()       {}
func (*SuperInitializer) isInitializer()       {}
func (*RedirectingInitializer) isInitializer() {}

// FunctionNode carries the parameter lists and body shared by procedures,
// constructors, local functions and function expressions.
//
// Positional holds required parameters first; RequiredCount of them are
// required and the remainder are optional positional parameters.
type FunctionNode struct {
	Pos           Position
	Positional    []*VariableDeclaration
	RequiredCount int
	Named         []*VariableDeclaration
	Body          Statement
}

// ParameterCount returns the number of declared parameters.
func (f *FunctionNode) ParameterCount() int {
	return len(f.Positional) + len(f.Named)
}

// Parameters returns positional parameters followed by named ones.
func (f *FunctionNode) Parameters() []*VariableDeclaration {
	params := make([]*VariableDeclaration, 0, f.ParameterCount())
	params = append(params, f.Positional...)
	return append(params, f.Named...)
}

// OptionalParameters returns the parameters that can carry a default value.
func (f *FunctionNode) OptionalParameters() []*VariableDeclaration {
	params := make([]*VariableDeclaration, 0, len(f.Positional)-f.RequiredCount+len(f.Named))
	params = append(params, f.Positional[f.RequiredCount:]...)
	return append(params, f.Named...)
}

// MemberRef names a class member, or a library member when Class is empty.
type MemberRef struct {
	Class string
	Name  string
}

func (r MemberRef) String() string {
	return r.Class + "::" + r.Name
}

// IsTopLevel reports whether the reference names a library-level member.
func (r MemberRef) IsTopLevel() bool {
	return r.Class == ""
}

// Arguments are evaluated positional first, then named in the order given.
type Arguments struct {
	Pos        Position
	Positional []Expr
	Named      []*NamedExpression
}

type NamedExpression struct {
	Name  string
	Value Expr
}

// Count returns the total number of arguments.
func (a *Arguments) Count() int {
	if a == nil {
		return 0
	}
	return len(a.Positional) + len(a.Named)
}

// Names returns the named argument names in order.
func (a *Arguments) Names() []string {
	if a == nil || len(a.Named) == 0 {
		return nil
	}
	names := make([]string, len(a.Named))
	for i, n := range a.Named {
		names[i] = n.Name
	}
	return names
}

// LookupClass finds a class declared in the library.
func (l *Library) LookupClass(name string) *Class {
	for _, c := range l.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Members returns every member of the library in declaration order,
// library-level members first.
func (l *Library) Members() []Member {
	var members []Member
	for _, f := range l.Fields {
		members = append(members, f)
	}
	for _, p := range l.Procedures {
		members = append(members, p)
	}
	for _, c := range l.Classes {
		for _, f := range c.Fields {
			members = append(members, f)
		}
		for _, ctor := range c.Constructors {
			members = append(members, ctor)
		}
		for _, p := range c.Procedures {
			members = append(members, p)
		}
	}
	return members
}
