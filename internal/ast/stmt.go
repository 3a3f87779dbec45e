package ast

type Statement interface {
	Node
	isStatement()
}

type InvalidStatement struct {
	Pos     Position
	Message string
}

type EmptyStatement struct {
	Pos Position
}

type Block struct {
	Pos        Position
	Statements []Statement
}

type ExpressionStatement struct {
	Pos        Position
	Expression Expr
}

// VariableDeclaration is every binding site: locals, parameters, catch
// variables, for-in variables and let bindings. Identity is the pointer.
type VariableDeclaration struct {
	Pos         Position
	Name        string
	Initializer Expr
	IsConst     bool
	IsFinal     bool
}

// FunctionDeclaration is a named local function.
type FunctionDeclaration struct {
	Pos      Position
	Variable *VariableDeclaration
	Function *FunctionNode
}

type IfStatement struct {
	Pos       Position
	Condition Expr
	Then      Statement
	Otherwise Statement
}

type WhileStatement struct {
	Pos       Position
	Condition Expr
	Body      Statement
}

type DoStatement struct {
	Pos       Position
	Body      Statement
	Condition Expr
}

// ForStatement has a nil Condition when the loop only exits via break.
type ForStatement struct {
	Pos       Position
	Variables []*VariableDeclaration
	Condition Expr
	Updates   []Expr
	Body      Statement
}

type ForInStatement struct {
	Pos      Position
	Variable *VariableDeclaration
	Iterable Expr
	Body     Statement
}

// LabeledStatement is the only break target; loops and switches that are
// exited early are wrapped in one.
type LabeledStatement struct {
	Pos   Position
	Label string
	Body  Statement
}

type BreakStatement struct {
	Pos    Position
	Target *LabeledStatement
}

type SwitchStatement struct {
	Pos        Position
	Expression Expr
	Cases      []*SwitchCase
}

// SwitchCase matches any of Expressions. A default case may also list expressions.
type SwitchCase struct {
	Pos         Position
	Label       string
	Expressions []Expr
	IsDefault   bool
	Body        Statement
}

type ContinueSwitchStatement struct {
	Pos    Position
	Target *SwitchCase
}

type ReturnStatement struct {
	Pos        Position
	Expression Expr
}

type TryCatch struct {
	Pos     Position
	Body    Statement
	Catches []*Catch
}

// Catch has an empty Guard when it matches every exception.
type Catch struct {
	Pos        Position
	Guard      string
	Exception  *VariableDeclaration
	StackTrace *VariableDeclaration
	Body       Statement
}

type TryFinally struct {
	Pos       Position
	Body      Statement
	Finalizer Statement
}

type AssertStatement struct {
	Pos       Position
	Condition Expr
	Message   Expr
}

type YieldStatement struct {
	Pos        Position
	Expression Expr
}

func (*InvalidStatement) isStatement()        {}
func (*EmptyStatement) isStatement()          {}
func (*Block) isStatement()                   {}
func (*ExpressionStatement) isStatement()     {}
func (*VariableDeclaration) isStatement()     {}
func (*FunctionDeclaration) isStatement()     {}
func (*IfStatement) isStatement()             {}
func (*WhileStatement) isStatement()          {}
func (*DoStatement) isStatement()             {}
func (*ForStatement) isStatement()            {}
func (*ForInStatement) isStatement()          {}
func (*LabeledStatement) isStatement()        {}
func (*BreakStatement) isStatement()          {}
func (*SwitchStatement) isStatement()         {}
func (*ContinueSwitchStatement) isStatement() {}
func (*ReturnStatement) isStatement()         {}
func (*TryCatch) isStatement()                {}
func (*TryFinally) isStatement()              {}
func (*AssertStatement) isStatement()         {}
func (*YieldStatement) isStatement()          {}
