package ast

type Expr interface {
	Node
	isExpr()
}

// InvalidExpression marks a subtree the front end could not produce.
type InvalidExpression struct {
	Pos     Position
	Message string
}

type NullLiteral struct {
	Pos Position
}

type BoolLiteral struct {
	Pos   Position
	Value bool
}

type IntLiteral struct {
	Pos   Position
	Value int64
}

type DoubleLiteral struct {
	Pos   Position
	Value float64
}

type StringLiteral struct {
	Pos   Position
	Value string
}

// SymbolLiteral is `#name`.
type SymbolLiteral struct {
	Pos   Position
	Value string
}

// TypeLiteral is a reified class: `type Foo`.
type TypeLiteral struct {
	Pos   Position
	Class string
}

type ThisExpression struct {
	Pos Position
}

type VariableGet struct {
	Pos      Position
	Variable *VariableDeclaration
}

type VariableSet struct {
	Pos      Position
	Variable *VariableDeclaration
	Value    Expr
}

// StaticGet reads a static field or calls a static getter.
type StaticGet struct {
	Pos    Position
	Target MemberRef
}

// StaticSet writes a static field or calls a static setter.
type StaticSet struct {
	Pos    Position
	Target MemberRef
	Value  Expr
}

// PropertyGet is a dynamically dispatched getter call.
type PropertyGet struct {
	Pos      Position
	Receiver Expr
	Name     string
}

type PropertySet struct {
	Pos      Position
	Receiver Expr
	Name     string
	Value    Expr
}

// DirectPropertyGet reads a statically known instance member: `recv.Class::name`.
type DirectPropertyGet struct {
	Pos      Position
	Receiver Expr
	Target   MemberRef
}

type DirectPropertySet struct {
	Pos      Position
	Receiver Expr
	Target   MemberRef
	Value    Expr
}

type StaticInvocation struct {
	Pos       Position
	Target    MemberRef
	Arguments *Arguments
	IsConst   bool
}

// MethodInvocation is a dynamically dispatched call. Binary and unary
// operators are method invocations named after the operator.
type MethodInvocation struct {
	Pos       Position
	Receiver  Expr
	Name      string
	Arguments *Arguments
}

type ConstructorInvocation struct {
	Pos       Position
	Target    MemberRef
	Arguments *Arguments
	IsConst   bool
}

type IsExpression struct {
	Pos     Position
	Operand Expr
	Class   string
}

type AsExpression struct {
	Pos     Position
	Operand Expr
	Class   string
}

type ConditionalExpression struct {
	Pos       Position
	Condition Expr
	Then      Expr
	Otherwise Expr
}

type LogicalOperator int

const (
	LogicalAnd LogicalOperator = iota
	LogicalOr
	IfNull
)

func (o LogicalOperator) String() string {
	switch o {
	case LogicalAnd:
		return "&&"
	case LogicalOr:
		return "||"
	default:
		return "??"
	}
}

type LogicalExpression struct {
	Pos      Position
	Left     Expr
	Operator LogicalOperator
	Right    Expr
}

type Not struct {
	Pos     Position
	Operand Expr
}

type StringConcatenation struct {
	Pos         Position
	Expressions []Expr
}

type ListLiteral struct {
	Pos         Position
	Expressions []Expr
	IsConst     bool
}

type MapEntry struct {
	Key   Expr
	Value Expr
}

type MapLiteral struct {
	Pos     Position
	Entries []*MapEntry
	IsConst bool
}

type FunctionExpression struct {
	Pos      Position
	Function *FunctionNode
}

// Let binds Variable for the evaluation of Body.
type Let struct {
	Pos      Position
	Variable *VariableDeclaration
	Body     Expr
}

type Throw struct {
	Pos   Position
	Value Expr
}

type Rethrow struct {
	Pos Position
}

func (*InvalidExpression) isExpr()     {}
func (*NullLiteral) isExpr()           {}
func (*BoolLiteral) isExpr()           {}
func (*IntLiteral) isExpr()            {}
func (*DoubleLiteral) isExpr()         {}
func (*StringLiteral) isExpr()         {}
func (*SymbolLiteral) isExpr()         {}
func (*TypeLiteral) isExpr()           {}
func (*ThisExpression) isExpr()        {}
func (*VariableGet) isExpr()           {}
func (*VariableSet) isExpr()           {}
func (*StaticGet) isExpr()             {}
func (*StaticSet) isExpr()             {}
func (*PropertyGet) isExpr()           {}
func (*PropertySet) isExpr()           {}
func (*DirectPropertyGet) isExpr()     {}
func (*DirectPropertySet) isExpr()     {}
func (*StaticInvocation) isExpr()      {}
func (*MethodInvocation) isExpr()      {}
func (*ConstructorInvocation) isExpr() {}
func (*IsExpression) isExpr()          {}
func (*AsExpression) isExpr()          {}
func (*ConditionalExpression) isExpr() {}
func (*LogicalExpression) isExpr()     {}
func (*Not) isExpr()                   {}
func (*StringConcatenation) isExpr()   {}
func (*ListLiteral) isExpr()           {}
func (*MapLiteral) isExpr()            {}
func (*FunctionExpression) isExpr()    {}
func (*Let) isExpr()                   {}
func (*Throw) isExpr()                 {}
func (*Rethrow) isExpr()               {}
