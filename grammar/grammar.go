package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar for the loom textual kernel IR.
//
// A program is a list of functions. A function body is a flat list of buffer
// operations, optionally split into blocks by ^label markers. The fusion pass
// only accepts single-block bodies, but the grammar parses multi-block input
// so the precondition can be diagnosed instead of failing to parse.

type Program struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Funcs  []*Func `@@*`
}

type Func struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   string      `"func" @FuncRef "("`
	Params []*Param    `[ @@ { "," @@ } ] ")"`
	Body   []*BodyItem `"{" @@* "}"`
}

type Param struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   string   `@BufferRef ":"`
	Type   *BufType `@@`
}

type BufType struct {
	Pos    lexer.Position
	EndPos lexer.Position
	DType  string `"buf" "<" @Ident ">"`
	Dims   []int  `"[" [ @Integer { "," @Integer } ] "]"`
}

type BodyItem struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Block  *BlockLabel `  @@`
	Alloc  *AllocStmt  `| @@`
	View   *ViewStmt   `| @@`
	Kernel *KernelStmt `| @@`
	Return *ReturnStmt `| @@`
}

type BlockLabel struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   string `@Label ":"`
}

type AllocStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Result string   `@BufferRef "=" "alloc"`
	Type   *BufType `@@`
}

type ViewStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Result string `@BufferRef "=" "view"`
	Kind   string `@("reshape" | "slice" | "cast")`
	Source string `@BufferRef`
	Dims   []int  `"[" [ @Integer { "," @Integer } ] "]"`
}

type KernelStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   string       `"kernel" @String`
	Ins    []string     `"ins" "(" [ @BufferRef { "," @BufferRef } ] ")"`
	Outs   []string     `"outs" "(" [ @BufferRef { "," @BufferRef } ] ")"`
	Dims   []*KernelDim `"dims" "(" [ @@ { "," @@ } ] ")"`
}

// KernelDim is one loop dimension of a kernel's iteration space: a static
// extent or a dynamic one written as "?".
type KernelDim struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Extent  int  `  @Integer`
	Dynamic bool `| @"?"`
}

type ReturnStmt struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Keyword  string   `@"return"`
	Operands []string `[ @BufferRef { "," @BufferRef } ]`
}
