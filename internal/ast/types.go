package ast

type NodeType int

const (
	// Special / error
	ILLEGAL NodeType = iota
	INVALID_EXPRESSION
	INVALID_STATEMENT

	// Library structure
	LIBRARY
	CLASS
	FIELD
	PROCEDURE
	CONSTRUCTOR
	FIELD_INITIALIZER
	SUPER_INITIALIZER
	REDIRECTING_INITIALIZER
	FUNCTION_NODE
	ARGUMENTS

	// Literals
	NULL_LITERAL
	BOOL_LITERAL
	INT_LITERAL
	DOUBLE_LITERAL
	STRING_LITERAL
	SYMBOL_LITERAL
	TYPE_LITERAL

	// Expressions
	THIS_EXPRESSION
	VARIABLE_GET
	VARIABLE_SET
	STATIC_GET
	STATIC_SET
	PROPERTY_GET
	PROPERTY_SET
	DIRECT_PROPERTY_GET
	DIRECT_PROPERTY_SET
	STATIC_INVOCATION
	METHOD_INVOCATION
	CONSTRUCTOR_INVOCATION
	IS_EXPRESSION
	AS_EXPRESSION
	CONDITIONAL_EXPRESSION
	LOGICAL_EXPRESSION
	NOT
	STRING_CONCATENATION
	LIST_LITERAL
	MAP_LITERAL
	FUNCTION_EXPRESSION
	LET
	THROW
	RETHROW

	// Statements
	EMPTY_STATEMENT
	BLOCK
	EXPRESSION_STATEMENT
	VARIABLE_DECLARATION
	FUNCTION_DECLARATION
	IF_STATEMENT
	WHILE_STATEMENT
	DO_STATEMENT
	FOR_STATEMENT
	FOR_IN_STATEMENT
	LABELED_STATEMENT
	BREAK_STATEMENT
	SWITCH_STATEMENT
	SWITCH_CASE
	CONTINUE_SWITCH_STATEMENT
	RETURN_STATEMENT
	TRY_CATCH
	CATCH
	TRY_FINALLY
	ASSERT_STATEMENT
	YIELD_STATEMENT
)

var nodeTypeNames = [...]string{
	ILLEGAL:                   "Illegal",
	INVALID_EXPRESSION:        "InvalidExpression",
	INVALID_STATEMENT:         "InvalidStatement",
	LIBRARY:                   "Library",
	CLASS:                     "Class",
	FIELD:                     "Field",
	PROCEDURE:                 "Procedure",
	CONSTRUCTOR:               "Constructor",
	FIELD_INITIALIZER:         "FieldInitializer",
	SUPER_INITIALIZER:         "SuperInitializer",
	REDIRECTING_INITIALIZER:   "RedirectingInitializer",
	FUNCTION_NODE:             "FunctionNode",
	ARGUMENTS:                 "Arguments",
	NULL_LITERAL:              "NullLiteral",
	BOOL_LITERAL:              "BoolLiteral",
	INT_LITERAL:               "IntLiteral",
	DOUBLE_LITERAL:            "DoubleLiteral",
	STRING_LITERAL:            "StringLiteral",
	SYMBOL_LITERAL:            "SymbolLiteral",
	TYPE_LITERAL:              "TypeLiteral",
	THIS_EXPRESSION:           "ThisExpression",
	VARIABLE_GET:              "VariableGet",
	VARIABLE_SET:              "VariableSet",
	STATIC_GET:                "StaticGet",
	STATIC_SET:                "StaticSet",
	PROPERTY_GET:              "PropertyGet",
	PROPERTY_SET:              "PropertySet",
	DIRECT_PROPERTY_GET:       "DirectPropertyGet",
	DIRECT_PROPERTY_SET:       "DirectPropertySet",
	STATIC_INVOCATION:         "StaticInvocation",
	METHOD_INVOCATION:         "MethodInvocation",
	CONSTRUCTOR_INVOCATION:    "ConstructorInvocation",
	IS_EXPRESSION:             "IsExpression",
	AS_EXPRESSION:             "AsExpression",
	CONDITIONAL_EXPRESSION:    "ConditionalExpression",
	LOGICAL_EXPRESSION:        "LogicalExpression",
	NOT:                       "Not",
	STRING_CONCATENATION:      "StringConcatenation",
	LIST_LITERAL:              "ListLiteral",
	MAP_LITERAL:               "MapLiteral",
	FUNCTION_EXPRESSION:       "FunctionExpression",
	LET:                       "Let",
	THROW:                     "Throw",
	RETHROW:                   "Rethrow",
	EMPTY_STATEMENT:           "EmptyStatement",
	BLOCK:                     "Block",
	EXPRESSION_STATEMENT:      "ExpressionStatement",
	VARIABLE_DECLARATION:      "VariableDeclaration",
	FUNCTION_DECLARATION:      "FunctionDeclaration",
	IF_STATEMENT:              "IfStatement",
	WHILE_STATEMENT:           "WhileStatement",
	DO_STATEMENT:              "DoStatement",
	FOR_STATEMENT:             "ForStatement",
	FOR_IN_STATEMENT:          "ForInStatement",
	LABELED_STATEMENT:         "LabeledStatement",
	BREAK_STATEMENT:           "BreakStatement",
	SWITCH_STATEMENT:          "SwitchStatement",
	SWITCH_CASE:               "SwitchCase",
	CONTINUE_SWITCH_STATEMENT: "ContinueSwitchStatement",
	RETURN_STATEMENT:          "ReturnStatement",
	TRY_CATCH:                 "TryCatch",
	CATCH:                     "Catch",
	TRY_FINALLY:               "TryFinally",
	ASSERT_STATEMENT:          "AssertStatement",
	YIELD_STATEMENT:           "YieldStatement",
}

func (t NodeType) String() string {
	if t < 0 || int(t) >= len(nodeTypeNames) || nodeTypeNames[t] == "" {
		return "Unknown"
	}
	return nodeTypeNames[t]
}
