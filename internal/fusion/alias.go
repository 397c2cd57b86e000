package fusion

import (
	"loom/internal/ir"
)

// ResultBuffers computes the set of externally observable buffers of a
// function: every function argument and return operand, closed under the
// view-alias relation. A kernel writing to one of these is a fusion root.
//
// The traversal is a pure worklist over buffer identities: pop a buffer,
// look at its defining node; a view contributes its source (pushed when
// newly seen), anything else (a kernel-produced alloc, or an argument with
// no defining node) terminates that branch. View chains are acyclic by
// construction, so the walk always terminates.
func ResultBuffers(fn *ir.Function) map[*ir.Buffer]bool {
	results := make(map[*ir.Buffer]bool)
	var worklist []*ir.Buffer

	add := func(b *ir.Buffer) {
		if !results[b] {
			results[b] = true
			worklist = append(worklist, b)
		}
	}

	for _, arg := range fn.Params {
		add(arg)
	}
	for _, operand := range fn.ReturnOperands() {
		add(operand)
	}

	for len(worklist) > 0 {
		buf := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if buf.Def == ir.InvalidNode {
			continue
		}
		if view, ok := fn.Op(buf.Def).(*ir.ViewOp); ok {
			add(view.Source)
		}
	}

	return results
}
