package ir

// Canonicalize folds the buffer-level debris transformations leave behind:
// identity reshapes are forwarded to their source, and views or allocs whose
// buffer no longer has any live user are dropped. It never touches kernels.
// The cleanup runs to a fixpoint and is idempotent; the return value reports
// whether anything was simplified.
func Canonicalize(fn *Function) bool {
	changed := false
	for {
		if !canonicalizeOnce(fn) {
			return changed
		}
		changed = true
	}
}

func canonicalizeOnce(fn *Function) bool {
	changed := false

	// Forward identity reshapes to their source.
	for _, block := range fn.Blocks {
		for _, id := range block.Nodes {
			n := fn.Node(id)
			if n == nil || n.Dead {
				continue
			}
			view, ok := n.Op.(*ViewOp)
			if !ok {
				continue
			}
			if view.Kind == ViewReshape && sameShape(view.Result.Shape, view.Source.Shape) {
				replaceUses(fn, view.Result, view.Source)
				fn.MarkDead(id)
				changed = true
			}
		}
	}

	// Drop views and allocs with no remaining live user.
	used := liveBufferUses(fn)
	for _, block := range fn.Blocks {
		for _, id := range block.Nodes {
			n := fn.Node(id)
			if n == nil || n.Dead {
				continue
			}
			switch op := n.Op.(type) {
			case *ViewOp:
				if !used[op.Result] {
					fn.MarkDead(id)
					changed = true
				}
			case *AllocOp:
				if !used[op.Result] {
					fn.MarkDead(id)
					changed = true
				}
			}
		}
	}

	if changed {
		// Canonicalize owns its debris: nodes it kills are removed from
		// the ordering immediately, unlike fused kernels whose erasure
		// the pass defers.
		for _, block := range fn.Blocks {
			block.Nodes = fn.compactList(block.Nodes)
		}
	}
	return changed
}

// liveBufferUses collects every buffer referenced by a live kernel, view or
// return anywhere in the function.
func liveBufferUses(fn *Function) map[*Buffer]bool {
	used := make(map[*Buffer]bool)
	var markNode func(NodeID)
	markNode = func(id NodeID) {
		n := fn.Node(id)
		if n == nil || n.Dead {
			return
		}
		switch op := n.Op.(type) {
		case *KernelOp:
			for _, in := range op.Inputs {
				used[in] = true
			}
			for _, out := range op.Outputs {
				used[out] = true
			}
		case *ViewOp:
			used[op.Source] = true
		case *LoopNestOp:
			for _, inner := range op.Body {
				markNode(inner)
			}
		case *ReturnOp:
			for _, operand := range op.Operands {
				used[operand] = true
			}
		}
	}
	for _, block := range fn.Blocks {
		for _, id := range block.Nodes {
			markNode(id)
		}
	}
	return used
}

// replaceUses redirects every live reference of old to new.
func replaceUses(fn *Function, old, new *Buffer) {
	var rewriteNode func(NodeID)
	rewriteNode = func(id NodeID) {
		n := fn.Node(id)
		if n == nil || n.Dead {
			return
		}
		switch op := n.Op.(type) {
		case *KernelOp:
			replaceAll(op.Inputs, old, new)
			replaceAll(op.Outputs, old, new)
		case *ViewOp:
			if op.Source == old {
				op.Source = new
			}
		case *LoopNestOp:
			for _, inner := range op.Body {
				rewriteNode(inner)
			}
		case *ReturnOp:
			replaceAll(op.Operands, old, new)
		}
	}
	for _, block := range fn.Blocks {
		for _, id := range block.Nodes {
			rewriteNode(id)
		}
	}
}

func replaceAll(buffers []*Buffer, old, new *Buffer) {
	for i, buf := range buffers {
		if buf == old {
			buffers[i] = new
		}
	}
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
