package ast

import "fmt"

// Position tracks location information for error reporting and tooling
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// IsValid reports whether the position points into a source file.
func (p Position) IsValid() bool {
	return p.Line > 0
}

type Node interface {
	NodePos() Position
	NodeType() NodeType
	String() string
}

// Library members

func (l *Library) NodePos() Position { return l.Pos }
func (*Library) NodeType() NodeType  { return LIBRARY }

func (c *Class) NodePos() Position { return c.Pos }
func (*Class) NodeType() NodeType  { return CLASS }

func (f *Field) NodePos() Position { return f.Pos }
func (*Field) NodeType() NodeType  { return FIELD }

func (p *Procedure) NodePos() Position { return p.Pos }
func (*Procedure) NodeType() NodeType  { return PROCEDURE }

func (c *Constructor) NodePos() Position { return c.Pos }
func (*Constructor) NodeType() NodeType  { return CONSTRUCTOR }

func (f *FieldInitializer) NodePos() Position { return f.Pos }
func (*FieldInitializer) NodeType() NodeType  { return FIELD_INITIALIZER }

func (s *SuperInitializer) NodePos() Position { return s.Pos }
func (*SuperInitializer) NodeType() NodeType  { return SUPER_INITIALIZER }

func (r *RedirectingInitializer) NodePos() Position { return r.Pos }
func (*RedirectingInitializer) NodeType() NodeType  { return REDIRECTING_INITIALIZER }

func (f *FunctionNode) NodePos() Position { return f.Pos }
func (*FunctionNode) NodeType() NodeType  { return FUNCTION_NODE }

func (a *Arguments) NodePos() Position { return a.Pos }
func (*Arguments) NodeType() NodeType  { return ARGUMENTS }

// Expressions

func (e *InvalidExpression) NodePos() Position { return e.Pos }
func (*InvalidExpression) NodeType() NodeType  { return INVALID_EXPRESSION }

func (e *NullLiteral) NodePos() Position { return e.Pos }
func (*NullLiteral) NodeType() NodeType  { return NULL_LITERAL }

func (e *BoolLiteral) NodePos() Position { return e.Pos }
func (*BoolLiteral) NodeType() NodeType  { return BOOL_LITERAL }

func (e *IntLiteral) NodePos() Position { return e.Pos }
func (*IntLiteral) NodeType() NodeType  { return INT_LITERAL }

func (e *DoubleLiteral) NodePos() Position { return e.Pos }
func (*DoubleLiteral) NodeType() NodeType  { return DOUBLE_LITERAL }

func (e *StringLiteral) NodePos() Position { return e.Pos }
func (*StringLiteral) NodeType() NodeType  { return STRING_LITERAL }

func (e *SymbolLiteral) NodePos() Position { return e.Pos }
func (*SymbolLiteral) NodeType() NodeType  { return SYMBOL_LITERAL }

func (e *TypeLiteral) NodePos() Position { return e.Pos }
func (*TypeLiteral) NodeType() NodeType  { return TYPE_LITERAL }

func (e *ThisExpression) NodePos() Position { return e.Pos }
func (*ThisExpression) NodeType() NodeType  { return THIS_EXPRESSION }

func (e *VariableGet) NodePos() Position { return e.Pos }
func (*VariableGet) NodeType() NodeType  { return VARIABLE_GET }

func (e *VariableSet) NodePos() Position { return e.Pos }
func (*VariableSet) NodeType() NodeType  { return VARIABLE_SET }

func (e *StaticGet) NodePos() Position { return e.Pos }
func (*StaticGet) NodeType() NodeType  { return STATIC_GET }

func (e *StaticSet) NodePos() Position { return e.Pos }
func (*StaticSet) NodeType() NodeType  { return STATIC_SET }

func (e *PropertyGet) NodePos() Position { return e.Pos }
func (*PropertyGet) NodeType() NodeType  { return PROPERTY_GET }

func (e *PropertySet) NodePos() Position { return e.Pos }
func (*PropertySet) NodeType() NodeType  { return PROPERTY_SET }

func (e *DirectPropertyGet) NodePos() Position { return e.Pos }
func (*DirectPropertyGet) NodeType() NodeType  { return DIRECT_PROPERTY_GET }

func (e *DirectPropertySet) NodePos() Position { return e.Pos }
func (*DirectPropertySet) NodeType() NodeType  { return DIRECT_PROPERTY_SET }

func (e *StaticInvocation) NodePos() Position { return e.Pos }
func (*StaticInvocation) NodeType() NodeType  { return STATIC_INVOCATION }

func (e *MethodInvocation) NodePos() Position { return e.Pos }
func (*MethodInvocation) NodeType() NodeType  { return METHOD_INVOCATION }

func (e *ConstructorInvocation) NodePos() Position { return e.Pos }
func (*ConstructorInvocation) NodeType() NodeType  { return CONSTRUCTOR_INVOCATION }

func (e *IsExpression) NodePos() Position { return e.Pos }
func (*IsExpression) NodeType() NodeType  { return IS_EXPRESSION }

func (e *AsExpression) NodePos() Position { return e.Pos }
func (*AsExpression) NodeType() NodeType  { return AS_EXPRESSION }

func (e *ConditionalExpression) NodePos() Position { return e.Pos }
func (*ConditionalExpression) NodeType() NodeType  { return CONDITIONAL_EXPRESSION }

func (e *LogicalExpression) NodePos() Position { return e.Pos }
func (*LogicalExpression) NodeType() NodeType  { return LOGICAL_EXPRESSION }

func (e *Not) NodePos() Position { return e.Pos }
func (*Not) NodeType() NodeType  { return NOT }

func (e *StringConcatenation) NodePos() Position { return e.Pos }
func (*StringConcatenation) NodeType() NodeType  { return STRING_CONCATENATION }

func (e *ListLiteral) NodePos() Position { return e.Pos }
func (*ListLiteral) NodeType() NodeType  { return LIST_LITERAL }

func (e *MapLiteral) NodePos() Position { return e.Pos }
func (*MapLiteral) NodeType() NodeType  { return MAP_LITERAL }

func (e *FunctionExpression) NodePos() Position { return e.Pos }
func (*FunctionExpression) NodeType() NodeType  { return FUNCTION_EXPRESSION }

func (e *Let) NodePos() Position { return e.Pos }
func (*Let) NodeType() NodeType  { return LET }

func (e *Throw) NodePos() Position { return e.Pos }
func (*Throw) NodeType() NodeType  { return THROW }

func (e *Rethrow) NodePos() Position { return e.Pos }
func (*Rethrow) NodeType() NodeType  { return RETHROW }

// Statements

func (s *InvalidStatement) NodePos() Position { return s.Pos }
func (*InvalidStatement) NodeType() NodeType  { return INVALID_STATEMENT }

func (s *EmptyStatement) NodePos() Position { return s.Pos }
func (*EmptyStatement) NodeType() NodeType  { return EMPTY_STATEMENT }

func (s *Block) NodePos() Position { return s.Pos }
func (*Block) NodeType() NodeType  { return BLOCK }

func (s *ExpressionStatement) NodePos() Position { return s.Pos }
func (*ExpressionStatement) NodeType() NodeType  { return EXPRESSION_STATEMENT }

func (s *VariableDeclaration) NodePos() Position { return s.Pos }
func (*VariableDeclaration) NodeType() NodeType  { return VARIABLE_DECLARATION }

func (s *FunctionDeclaration) NodePos() Position { return s.Pos }
func (*FunctionDeclaration) NodeType() NodeType  { return FUNCTION_DECLARATION }

func (s *IfStatement) NodePos() Position { return s.Pos }
func (*IfStatement) NodeType() NodeType  { return IF_STATEMENT }

func (s *WhileStatement) NodePos() Position { return s.Pos }
func (*WhileStatement) NodeType() NodeType  { return WHILE_STATEMENT }

func (s *DoStatement) NodePos() Position { return s.Pos }
func (*DoStatement) NodeType() NodeType  { return DO_STATEMENT }

func (s *ForStatement) NodePos() Position { return s.Pos }
func (*ForStatement) NodeType() NodeType  { return FOR_STATEMENT }

func (s *ForInStatement) NodePos() Position { return s.Pos }
func (*ForInStatement) NodeType() NodeType  { return FOR_IN_STATEMENT }

func (s *LabeledStatement) NodePos() Position { return s.Pos }
func (*LabeledStatement) NodeType() NodeType  { return LABELED_STATEMENT }

func (s *BreakStatement) NodePos() Position { return s.Pos }
func (*BreakStatement) NodeType() NodeType  { return BREAK_STATEMENT }

func (s *SwitchStatement) NodePos() Position { return s.Pos }
func (*SwitchStatement) NodeType() NodeType  { return SWITCH_STATEMENT }

func (s *SwitchCase) NodePos() Position { return s.Pos }
func (*SwitchCase) NodeType() NodeType  { return SWITCH_CASE }

func (s *ContinueSwitchStatement) NodePos() Position { return s.Pos }
func (*ContinueSwitchStatement) NodeType() NodeType  { return CONTINUE_SWITCH_STATEMENT }

func (s *ReturnStatement) NodePos() Position { return s.Pos }
func (*ReturnStatement) NodeType() NodeType  { return RETURN_STATEMENT }

func (s *TryCatch) NodePos() Position { return s.Pos }
func (*TryCatch) NodeType() NodeType  { return TRY_CATCH }

func (s *Catch) NodePos() Position { return s.Pos }
func (*Catch) NodeType() NodeType  { return CATCH }

func (s *TryFinally) NodePos() Position { return s.Pos }
func (*TryFinally) NodeType() NodeType  { return TRY_FINALLY }

func (s *AssertStatement) NodePos() Position { return s.Pos }
func (*AssertStatement) NodeType() NodeType  { return ASSERT_STATEMENT }

func (s *YieldStatement) NodePos() Position { return s.Pos }
func (*YieldStatement) NodeType() NodeType  { return YIELD_STATEMENT }
