package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// DilLexer tokenizes the textual source IR. Keywords get their own token
// type so they never match @Ident.
var DilLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},

		{"Float", `[0-9]+\.[0-9]+([eE][-+]?[0-9]+)?`, nil},
		{"Integer", `0[xX][0-9a-fA-F]+|[0-9]+`, nil},
		{"StringStart", `"`, lexer.Push("String")},

		// Keywords before identifiers (order matters)
		{"Keyword", `\b(library|class|extends|static|external|const|final|var|fun|get|set|factory|new|super|this|null|true|false|if|else|while|do|for|in|break|continue|switch|case|default|return|try|catch|on|finally|throw|rethrow|assert|yield|is|as|let|type)\b`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		{"Operator", `(\?\?|\|\||&&|===|!==|==|!=|<=|>=|=>|::|~/|[-+*/%<>=!?:.,;#()\[\]{}&|^~])`, nil},
	},
	"String": {
		{"Escaped", `\\.`, nil},
		{"StringEnd", `"`, lexer.Pop()},
		{"InterpolationStart", `\$\{`, lexer.Push("Interpolation")},
		{"Chars", `[^$"\\]+|\$`, nil},
	},
	"Interpolation": {
		{"InterpolationEnd", `\}`, lexer.Pop()},
		lexer.Include("Root"),
	},
})
