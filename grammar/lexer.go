package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var LoomLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{Name: "Comment", Pattern: `//[^\n]*`, Action: nil},

		// Kernel names
		{Name: "String", Pattern: `"[^"]*"`, Action: nil},

		// SSA-style buffer references, function names and block labels
		{Name: "BufferRef", Pattern: `%[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "FuncRef", Pattern: `@[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "Label", Pattern: `\^[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},

		// Keywords and identifiers (order matters)
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},

		// Integer literals
		{Name: "Integer", Pattern: `[0-9]+`, Action: nil},

		// Punctuation
		{Name: "Punctuation", Pattern: `[{}()\[\]<>,:=?]`, Action: nil},

		// Whitespace
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`, Action: nil},
	},
})
