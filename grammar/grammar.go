package grammar

import "github.com/alecthomas/participle/v2/lexer"

// Program is the parse tree of one .dil file.
type Program struct {
	Pos          lexer.Position
	Name         string         `"library" @Ident ";"`
	Declarations []*Declaration `@@*`
}

type Declaration struct {
	Pos    lexer.Position
	Class  *Class  `  @@`
	Member *Member `| @@`
}

type Class struct {
	Pos     lexer.Position
	Name    string    `"class" @Ident`
	Super   string    `( "extends" @Ident )? "{"`
	Members []*Member `@@* "}"`
}

// Member is a field, procedure or constructor with its modifiers.
type Member struct {
	Pos         lexer.Position
	Static      bool         `@"static"?`
	External    bool         `@"external"?`
	Constructor *Constructor `( @@`
	Field       *Field       `| @@`
	Procedure   *Procedure   `| @@ )`
}

type Field struct {
	Pos   lexer.Position
	Kind  string `@( "var" | "final" | "const" )`
	Name  string `@Ident`
	Value *Expr  `( "=" @@ )? ";"`
}

type Procedure struct {
	Pos    lexer.Position
	Kind   string        `@( "fun" | "get" | "set" | "factory" )`
	Name   string        `@Ident?`
	Params *Parameters   `@@?`
	Body   *FunctionBody `@@`
}

type Constructor struct {
	Pos          lexer.Position
	Const        bool           `@"const"? "new"`
	Name         string         `@Ident?`
	Params       *Parameters    `@@`
	Initializers []*Initializer `( ":" @@ ( "," @@ )* )?`
	Body         *FunctionBody  `@@`
}

type Initializer struct {
	Pos      lexer.Position
	Super    *Delegation `  "super" @@`
	Redirect *Delegation `| "this" @@`
	Field    string      `| @Ident "="`
	Value    *Expr       `  @@`
}

type Delegation struct {
	Name string     `( "." @Ident )?`
	Args *Arguments `@@`
}

// FunctionBody is a block, an arrow expression or nothing for external
// declarations.
type FunctionBody struct {
	Pos   lexer.Position
	Block *Block `  @@`
	Arrow *Expr  `| "=>" @@ ";"`
	None  bool   `| @";"`
}

type Parameters struct {
	Pos    lexer.Position
	Groups []*ParameterGroup `"(" ( @@ ( "," @@ )* )? ")"`
}

type ParameterGroup struct {
	Optional []*Parameter `  "[" @@ ( "," @@ )* "]"`
	Named    []*Parameter `| "{" @@ ( "," @@ )* "}"`
	Required *Parameter   `| @@`
}

type Parameter struct {
	Pos     lexer.Position
	Name    string `@Ident`
	Default *Expr  `( "=" @@ )?`
}

type Block struct {
	Pos        lexer.Position
	Statements []*Statement `"{" @@* "}"`
}

type Statement struct {
	Pos        lexer.Position
	Block      *Block         `  @@`
	Empty      bool           `| @";"`
	Variable   *VariableStmt  `| @@`
	Function   *LocalFunction `| @@`
	If         *IfStmt        `| @@`
	While      *WhileStmt     `| @@`
	Do         *DoStmt        `| @@`
	For        *ForStmt       `| @@`
	Switch     *SwitchStmt    `| @@`
	Break      *Jump          `| "break" @@`
	Continue   *Jump          `| "continue" @@`
	Return     *ReturnStmt    `| @@`
	Try        *TryStmt       `| @@`
	Assert     *AssertStmt    `| @@`
	Yield      *Expr          `| "yield" @@ ";"`
	Labeled    *LabeledStmt   `| @@`
	Expression *Expr          `| @@ ";"`
}

type VariableStmt struct {
	Kind        string        `@( "var" | "final" | "const" )`
	Declarators []*Declarator `@@ ( "," @@ )* ";"`
}

type Declarator struct {
	Pos   lexer.Position
	Name  string `@Ident`
	Value *Expr  `( "=" @@ )?`
}

type LocalFunction struct {
	Pos    lexer.Position
	Name   string        `"fun" @Ident`
	Params *Parameters   `@@`
	Body   *FunctionBody `@@`
}

type IfStmt struct {
	Condition *Expr      `"if" "(" @@ ")"`
	Then      *Statement `@@`
	Else      *Statement `( "else" @@ )?`
}

type WhileStmt struct {
	Condition *Expr      `"while" "(" @@ ")"`
	Body      *Statement `@@`
}

type DoStmt struct {
	Body      *Statement `"do" @@`
	Condition *Expr      `"while" "(" @@ ")" ";"`
}

type ForStmt struct {
	In   *ForIn     `"for" "(" ( @@`
	Loop *ForLoop   `| @@ ) ")"`
	Body *Statement `@@`
}

type ForIn struct {
	Pos      lexer.Position
	Kind     string `@( "var" | "final" )`
	Name     string `@Ident "in"`
	Iterable *Expr  `@@`
}

type ForLoop struct {
	Kind      string        `( @( "var" | "final" )`
	Init      []*Declarator `@@ ( "," @@ )* )? ";"`
	Condition *Expr         `@@? ";"`
	Updates   []*Expr       `( @@ ( "," @@ )* )?`
}

type SwitchStmt struct {
	Subject *Expr         `"switch" "(" @@ ")" "{"`
	Cases   []*SwitchCase `@@* "}"`
}

type SwitchCase struct {
	Pos     lexer.Position
	Label   string       `( @Ident ":" )?`
	Matches []*CaseMatch `@@+`
	Body    []*Statement `@@*`
}

type CaseMatch struct {
	Pos     lexer.Position
	Default bool  `  @"default" ":"`
	Value   *Expr `| "case" @@ ":"`
}

// Jump is the optional label of a break or continue.
type Jump struct {
	Label string `@Ident? ";"`
}

type ReturnStmt struct {
	Value *Expr `"return" @@? ";"`
}

type TryStmt struct {
	Body    *Block         `"try" @@`
	Catches []*CatchClause `@@*`
	Finally *Block         `( "finally" @@ )?`
}

type CatchClause struct {
	Pos     lexer.Position
	Guard   string        `( "on" @Ident`
	Binding *CatchBinding `  @@? | @@ )`
	Body    *Block        `@@`
}

type CatchBinding struct {
	Pos        lexer.Position
	Exception  string `"catch" "(" @Ident`
	StackTrace string `( "," @Ident )? ")"`
}

type AssertStmt struct {
	Condition *Expr `"assert" "(" @@`
	Message   *Expr `( "," @@ )? ")" ";"`
}

type LabeledStmt struct {
	Label string     `@Ident ":"`
	Body  *Statement `@@`
}

// Expr is an assignment or a plain conditional expression.
type Expr struct {
	Pos    lexer.Position
	Target *Conditional `@@`
	Value  *Expr        `( "=" @@ )?`
}

type Conditional struct {
	Pos       lexer.Position
	Condition *IfNull `@@`
	Then      *Expr   `( "?" @@`
	Otherwise *Expr   `  ":" @@ )?`
}

type IfNull struct {
	Pos   lexer.Position
	Left  *Or   `@@`
	Right []*Or `( "??" @@ )*`
}

type Or struct {
	Pos   lexer.Position
	Left  *And   `@@`
	Right []*And `( "||" @@ )*`
}

type And struct {
	Pos   lexer.Position
	Left  *Equality   `@@`
	Right []*Equality `( "&&" @@ )*`
}

type Equality struct {
	Pos   lexer.Position
	Left  *Relational `@@`
	Op    string      `( @( "===" | "!==" | "==" | "!=" )`
	Right *Relational `  @@ )?`
}

type Relational struct {
	Pos   lexer.Position
	Left  *Bitwise `@@`
	Op    string   `( @( "<=" | ">=" | "<" | ">" )`
	Right *Bitwise `  @@`
	Is    string   `| "is" @Ident`
	As    string   `| "as" @Ident )?`
}

type Bitwise struct {
	Pos  lexer.Position
	Left *Additive    `@@`
	Ops  []*BitwiseOp `@@*`
}

type BitwiseOp struct {
	Pos   lexer.Position
	Op    string    `@( "&" | "|" | "^" )`
	Right *Additive `@@`
}

type Additive struct {
	Pos  lexer.Position
	Left *Multiplicative `@@`
	Ops  []*AdditiveOp   `@@*`
}

type AdditiveOp struct {
	Pos   lexer.Position
	Op    string          `@( "+" | "-" )`
	Right *Multiplicative `@@`
}

type Multiplicative struct {
	Pos  lexer.Position
	Left *Unary              `@@`
	Ops  []*MultiplicativeOp `@@*`
}

type MultiplicativeOp struct {
	Pos   lexer.Position
	Op    string `@( "*" | "/" | "%" | "~/" )`
	Right *Unary `@@`
}

type Unary struct {
	Pos     lexer.Position
	Op      string   `( @( "!" | "-" | "~" )`
	Operand *Unary   `  @@ )`
	Postfix *Postfix `| @@`
}

type Postfix struct {
	Pos      lexer.Position
	Primary  *Primary  `@@`
	Suffixes []*Suffix `@@*`
}

type Suffix struct {
	Pos    lexer.Position
	Member *MemberSuffix `  "." @@`
	Call   *Arguments    `| @@`
	Index  *Expr         `| "[" @@ "]"`
}

// MemberSuffix names a property or method. Class::name bypasses dispatch.
type MemberSuffix struct {
	Class string     `( @Ident "::" )?`
	Name  string     `@Ident`
	Args  *Arguments `@@?`
}

type Primary struct {
	Pos      lexer.Position
	Null     bool          `  @"null"`
	True     bool          `| @"true"`
	False    bool          `| @"false"`
	This     bool          `| @"this"`
	Float    *float64      `| @Float`
	Integer  string        `| @Integer`
	String   *StringLit    `| @@`
	Symbol   string        `| "#" @Ident`
	Type     string        `| "type" @Ident`
	New      *NewExpr      `| @@`
	Const    *ConstExpr    `| @@`
	List     *ListLit      `| @@`
	Map      *MapLit       `| @@`
	Function *FunctionExpr `| @@`
	Let      *LetExpr      `| @@`
	Throw    *Expr         `| "throw" @@`
	Rethrow  bool          `| @"rethrow"`
	Ident    string        `| @Ident`
	Paren    *Expr         `| "(" @@ ")"`
}

type StringLit struct {
	Pos   lexer.Position
	Parts []*StringPart `StringStart @@* StringEnd`
}

type StringPart struct {
	Pos     lexer.Position
	Chars   string `  @Chars`
	Escaped string `| @Escaped`
	Expr    *Expr  `| InterpolationStart @@ InterpolationEnd`
}

type NewExpr struct {
	Class string     `"new" @Ident`
	Name  string     `( "." @Ident )?`
	Args  *Arguments `@@`
}

// ConstExpr is a constant list, map or constructor invocation.
type ConstExpr struct {
	List   *ListLit   `"const" ( @@`
	Map    *MapLit    `| @@`
	Target string     `| @Ident`
	Name   string     `  ( "." @Ident )?`
	Args   *Arguments `  @@ )`
}

type ListLit struct {
	Pos      lexer.Position
	Elements []*Expr `"[" ( @@ ( "," @@ )* ","? )? "]"`
}

type MapLit struct {
	Pos     lexer.Position
	Entries []*MapEntry `"{" ( @@ ( "," @@ )* ","? )? "}"`
}

type MapEntry struct {
	Key   *Expr `@@ ":"`
	Value *Expr `@@`
}

type FunctionExpr struct {
	Pos    lexer.Position
	Params *Parameters `"fun" @@`
	Block  *Block      `( @@`
	Arrow  *Expr       `| "=>" @@ )`
}

type LetExpr struct {
	Pos   lexer.Position
	Name  string `"let" @Ident "="`
	Value *Expr  `@@ "in"`
	Body  *Expr  `@@`
}

type Arguments struct {
	Pos   lexer.Position
	Items []*Argument `"(" ( @@ ( "," @@ )* )? ")"`
}

type Argument struct {
	Pos   lexer.Position
	Name  string `( @Ident ":" )?`
	Value *Expr  `@@`
}
