package lsp

import (
	"unicode"
	"unicode/utf8"

	"dil/grammar"

	"github.com/alecthomas/participle/v2/lexer"
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into the SemanticTokenTypes array
// TokenModifiers is a bitmask based on SemanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into SemanticTokenTypes
	TokenModifiers int // bitmask
}

var lexSymbols = grammar.DilLexer.Symbols()

// declaring keywords and the token type of the identifier that follows them
var declarations = map[string]string{
	"library": "namespace",
	"class":   "type",
	"extends": "type",
	"fun":     "function",
	"get":     "property",
	"set":     "property",
	"factory": "function",
	"var":     "variable",
	"final":   "variable",
	"const":   "variable",
	"on":      "type",
	"let":     "variable",
}

// collectSemanticTokens classifies the tokens of source. Highlighting works
// on whatever lexes, so a document with syntax errors still gets colored up
// to the first bad character.
func collectSemanticTokens(filename, source string) []SemanticToken {
	var tokens []SemanticToken

	lex, err := grammar.DilLexer.LexString(filename, source)
	if err != nil {
		return tokens
	}

	var prev lexer.Token
	for {
		token, err := lex.Next()
		if err != nil || token.EOF() {
			break
		}

		tokenType, modifiers := classify(token, prev)
		if tokenType != "" {
			tokens = append(tokens, makeTokens(token, tokenType, modifiers)...)
		}

		if token.Type != lexSymbols["Whitespace"] && token.Type != lexSymbols["Comment"] {
			prev = token
		}
	}

	return tokens
}

func classify(token, prev lexer.Token) (string, int) {
	switch token.Type {
	case lexSymbols["Comment"]:
		return "comment", 0
	case lexSymbols["Keyword"]:
		return "keyword", 0
	case lexSymbols["Integer"], lexSymbols["Float"]:
		return "number", 0
	case lexSymbols["StringStart"], lexSymbols["StringEnd"], lexSymbols["Chars"], lexSymbols["Escaped"]:
		return "string", 0
	case lexSymbols["Operator"]:
		return "operator", 0
	case lexSymbols["Ident"]:
		if prev.Type == lexSymbols["Keyword"] {
			if kind, ok := declarations[prev.Value]; ok {
				if prev.Value == "extends" || prev.Value == "on" {
					return kind, 0
				}
				return kind, modifier("declaration")
			}
		}
		if prev.Type == lexSymbols["Operator"] && prev.Value == "." {
			return "property", 0
		}
		if r, _ := utf8.DecodeRuneInString(token.Value); unicode.IsUpper(r) {
			return "type", 0
		}
		return "variable", 0
	}
	return "", 0
}

// makeTokens splits multi-line tokens, since LSP tokens cannot span lines.
func makeTokens(token lexer.Token, tokenType string, modifiers int) []SemanticToken {
	var out []SemanticToken

	line := uint32(token.Pos.Line - 1)    // LSP uses 0-based line numbers
	start := uint32(token.Pos.Column - 1) // LSP uses 0-based column numbers
	length := uint32(0)
	for _, r := range token.Value {
		if r == '\n' {
			if length > 0 {
				out = append(out, SemanticToken{line, start, length, indexOf(tokenType, SemanticTokenTypes), modifiers})
			}
			line++
			start, length = 0, 0
			continue
		}
		length += uint32(utf16Len(r))
	}
	if length > 0 {
		out = append(out, SemanticToken{line, start, length, indexOf(tokenType, SemanticTokenTypes), modifiers})
	}

	return out
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

func modifier(name string) int {
	return 1 << indexOf(name, SemanticTokenModifiers)
}

// indexOf returns the index of a string in a slice, or 0 if not found
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return 0
}
