package ir

import (
	"fmt"
	"strings"
)

// Printer pretty-prints the IR in the textual .loom form. Loop nests, which
// only exist after tiling, print in an extended form that the grammar does
// not accept back.
type Printer struct {
	fn     *Function
	indent int
	output strings.Builder
}

// Print returns the string representation of a program.
func Print(program *Program) string {
	var out strings.Builder
	for i, fn := range program.Functions {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(PrintFunction(fn))
	}
	return out.String()
}

// PrintFunction returns the string representation of a single function.
func PrintFunction(fn *Function) string {
	p := &Printer{fn: fn}
	p.printFunction()
	return p.output.String()
}

func (p *Printer) printFunction() {
	params := make([]string, len(p.fn.Params))
	for i, buf := range p.fn.Params {
		params[i] = fmt.Sprintf("%s: buf<%s>%s", buf, buf.DType, formatShape(buf.Shape))
	}
	p.write("func @%s(%s) {\n", p.fn.Name, strings.Join(params, ", "))
	p.indent++
	for i, block := range p.fn.Blocks {
		if i > 0 {
			p.indent--
			p.writeLine("^%s:", block.Label)
			p.indent++
		}
		for _, id := range block.Nodes {
			p.printNode(id)
		}
	}
	p.indent--
	p.write("}\n")
}

func (p *Printer) printNode(id NodeID) {
	n := p.fn.Node(id)
	if n == nil || n.Dead {
		return
	}
	switch op := n.Op.(type) {
	case *AllocOp:
		p.writeLine("%s = alloc buf<%s>%s", op.Result, op.Result.DType, formatShape(op.Result.Shape))
	case *ViewOp:
		p.writeLine("%s = view %s %s %s", op.Result, op.Kind, op.Source, formatShape(op.Result.Shape))
	case *KernelOp:
		p.writeLine("kernel %q ins(%s) outs(%s) dims(%s)",
			op.Name, bufferList(op.Inputs), bufferList(op.Outputs), extentList(op.Dims))
	case *LoopNestOp:
		kind := ""
		if len(op.Loops) > 0 && op.Loops[0].Parallel {
			kind = "parallel "
		}
		sizes := make([]string, len(op.Loops))
		for i, loop := range op.Loops {
			sizes[i] = fmt.Sprintf("%d", loop.TileSize)
		}
		p.writeLine("loop_nest %stiles(%s) bounds(%s) {",
			kind, strings.Join(sizes, ", "), extentList(op.IterationSpace()))
		p.indent++
		for _, inner := range op.Body {
			p.printNode(inner)
		}
		p.indent--
		p.writeLine("}")
	case *ReturnOp:
		if len(op.Operands) == 0 {
			p.writeLine("return")
		} else {
			p.writeLine("return %s", bufferList(op.Operands))
		}
	}
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) write(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
}

func bufferList(buffers []*Buffer) string {
	parts := make([]string, len(buffers))
	for i, buf := range buffers {
		parts[i] = buf.String()
	}
	return strings.Join(parts, ", ")
}

func extentList(dims []Extent) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}
