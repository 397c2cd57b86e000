package ir

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"loom/grammar"
	"loom/internal/errors"
)

// Builder lowers the grammar form of a loom program into the IR. Structural
// problems (unknown buffers, duplicate definitions, multiple writers) are
// collected as diagnostics rather than aborting on the first one.
type Builder struct {
	fn      *Function
	block   *Block
	buffers map[string]*Buffer
	writers map[*Buffer]string
	errs    []errors.CompilerError
}

// BuildProgram lowers a parsed program. The returned program contains every
// function that lowered, even when diagnostics were produced; callers decide
// whether to proceed.
func BuildProgram(prog *grammar.Program) (*Program, []errors.CompilerError) {
	result := &Program{}
	var errs []errors.CompilerError
	for _, fn := range prog.Funcs {
		b := &Builder{
			buffers: make(map[string]*Buffer),
			writers: make(map[*Buffer]string),
		}
		result.Functions = append(result.Functions, b.buildFunc(fn))
		errs = append(errs, b.errs...)
	}
	return result, errs
}

func (b *Builder) buildFunc(gf *grammar.Func) *Function {
	b.fn = NewFunction(refName(gf.Name))
	b.fn.Pos = position(gf.Pos)
	b.block = b.fn.Body()

	for _, param := range gf.Params {
		name := refName(param.Name)
		if _, exists := b.buffers[name]; exists {
			b.errorf(param.Pos, errors.ErrorDuplicateBuffer,
				"duplicate buffer definition '%%%s'", name)
			continue
		}
		buf := &Buffer{
			Name:  name,
			DType: param.Type.DType,
			Shape: param.Type.Dims,
			Def:   InvalidNode,
		}
		b.buffers[name] = buf
		b.fn.Params = append(b.fn.Params, buf)
	}

	for _, item := range gf.Body {
		switch {
		case item.Block != nil:
			b.block = &Block{Label: refName(item.Block.Name)}
			b.fn.Blocks = append(b.fn.Blocks, b.block)
		case item.Alloc != nil:
			b.buildAlloc(item.Alloc)
		case item.View != nil:
			b.buildView(item.View)
		case item.Kernel != nil:
			b.buildKernel(item.Kernel)
		case item.Return != nil:
			b.buildReturn(item.Return)
		}
	}

	return b.fn
}

func (b *Builder) buildAlloc(stmt *grammar.AllocStmt) {
	name := refName(stmt.Result)
	if _, exists := b.buffers[name]; exists {
		b.errorf(stmt.Pos, errors.ErrorDuplicateBuffer,
			"duplicate buffer definition '%%%s'", name)
		return
	}
	buf := &Buffer{
		Name:  name,
		DType: stmt.Type.DType,
		Shape: stmt.Type.Dims,
	}
	buf.Def = b.fn.Append(b.block, &AllocOp{Result: buf})
	b.buffers[name] = buf
}

func (b *Builder) buildView(stmt *grammar.ViewStmt) {
	name := refName(stmt.Result)
	if _, exists := b.buffers[name]; exists {
		b.errorf(stmt.Pos, errors.ErrorDuplicateBuffer,
			"duplicate buffer definition '%%%s'", name)
		return
	}
	source := b.resolve(stmt.Source, stmt.Pos)
	if source == nil {
		return
	}
	buf := &Buffer{
		Name:  name,
		DType: source.DType,
		Shape: stmt.Dims,
	}
	buf.Def = b.fn.Append(b.block, &ViewOp{
		Kind:   ViewKind(stmt.Kind),
		Source: source,
		Result: buf,
	})
	b.buffers[name] = buf
}

func (b *Builder) buildKernel(stmt *grammar.KernelStmt) {
	kernel := &KernelOp{Name: strings.Trim(stmt.Name, `"`)}
	for _, in := range stmt.Ins {
		if buf := b.resolve(in, stmt.Pos); buf != nil {
			kernel.Inputs = append(kernel.Inputs, buf)
		}
	}
	for _, out := range stmt.Outs {
		buf := b.resolve(out, stmt.Pos)
		if buf == nil {
			continue
		}
		if prev, written := b.writers[buf]; written {
			b.errorf(stmt.Pos, errors.ErrorMultipleWriters,
				"buffer '%%%s' is already written by kernel %q", buf.Name, prev)
			continue
		}
		b.writers[buf] = kernel.Name
		kernel.Outputs = append(kernel.Outputs, buf)
	}
	for _, dim := range stmt.Dims {
		kernel.Dims = append(kernel.Dims, Extent{Size: dim.Extent, Dynamic: dim.Dynamic})
	}
	b.fn.Append(b.block, kernel)
}

func (b *Builder) buildReturn(stmt *grammar.ReturnStmt) {
	ret := &ReturnOp{}
	for _, operand := range stmt.Operands {
		if buf := b.resolve(operand, stmt.Pos); buf != nil {
			ret.Operands = append(ret.Operands, buf)
		}
	}
	b.fn.Append(b.block, ret)
}

func (b *Builder) resolve(ref string, pos lexer.Position) *Buffer {
	name := refName(ref)
	buf, ok := b.buffers[name]
	if !ok {
		b.errorf(pos, errors.ErrorUndefinedBuffer, "unknown buffer '%%%s'", name)
		return nil
	}
	return buf
}

func (b *Builder) errorf(pos lexer.Position, code, format string, args ...interface{}) {
	b.errs = append(b.errs, errors.New(code, fmt.Sprintf(format, args...), position(pos)))
}

// refName strips the %/@/^ sigil off a reference token.
func refName(ref string) string {
	if len(ref) > 0 && (ref[0] == '%' || ref[0] == '@' || ref[0] == '^') {
		return ref[1:]
	}
	return ref
}

func position(pos lexer.Position) errors.Position {
	return errors.Position{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}
}
