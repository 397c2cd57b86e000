package ir

// FusionInfo reports a successful fusion: the standalone producer that is
// now redundant, and the fused copy created inside the consumer's nest.
type FusionInfo struct {
	OriginalProducer NodeID
	FusedProducer    NodeID
}

// FuseProducer tries to fuse the kernel producing the consumer's input at
// inputIdx into the consumer's loop nest, so the intermediate buffer is
// computed tile by tile instead of being materialized in full first.
//
// Fusion is best-effort and mutates nothing when it declines. It requires:
//   - the consumer is a live kernel scoped to a loop nest (i.e. tiled);
//   - the input's underlying storage is a local temporary (an alloc, not a
//     function argument);
//   - its producer is a live standalone kernel, not itself inside a nest;
//   - every buffer the producer writes is private to this consumer: backed
//     by an alloc, not escaping through a return, and read by no other live
//     kernel;
//   - the producer's iteration space equals the nest's full iteration space.
//
// On success a tile-sized copy of the producer is inserted into the nest
// body ahead of the consumer. The original producer is left in place for the
// caller to mark dead and erase; creating the copy never invalidates it.
func FuseProducer(fn *Function, consumer NodeID, inputIdx int, g *DependenceGraph) (*FusionInfo, bool) {
	cnode := fn.Node(consumer)
	if cnode == nil || cnode.Dead {
		return nil, false
	}
	ck, ok := cnode.Op.(*KernelOp)
	if !ok || inputIdx < 0 || inputIdx >= len(ck.Inputs) {
		return nil, false
	}
	nestID, ok := fn.EnclosingNest(consumer)
	if !ok {
		return nil, false
	}
	nest := fn.Op(nestID).(*LoopNestOp)

	root := g.Root(ck.Inputs[inputIdx])
	if root.Def == InvalidNode {
		return nil, false
	}
	if _, isAlloc := fn.Op(root.Def).(*AllocOp); !isAlloc {
		return nil, false
	}

	producer, ok := g.WriterOf(root)
	if !ok || producer == consumer {
		return nil, false
	}
	pnode := fn.Node(producer)
	if pnode == nil || pnode.Dead {
		return nil, false
	}
	pk, ok := pnode.Op.(*KernelOp)
	if !ok {
		return nil, false
	}
	if _, nested := fn.EnclosingNest(producer); nested {
		return nil, false
	}

	// Every buffer the producer writes must be private to this consumer,
	// not just the fused input: a second output with its own reader, or
	// one escaping through a return, still needs the standalone kernel.
	returned := fn.ReturnOperands()
	for _, out := range pk.Outputs {
		oroot := g.Root(out)
		if oroot.Def == InvalidNode {
			return nil, false
		}
		if _, isAlloc := fn.Op(oroot.Def).(*AllocOp); !isAlloc {
			return nil, false
		}
		for _, operand := range returned {
			if g.Root(operand) == oroot {
				return nil, false
			}
		}
		for _, reader := range g.ReadersOf(oroot) {
			if reader != consumer {
				return nil, false
			}
		}
	}

	if !sameExtents(pk.Dims, nest.IterationSpace()) {
		return nil, false
	}

	fused := &KernelOp{
		Name:    pk.Name,
		Inputs:  append([]*Buffer(nil), pk.Inputs...),
		Outputs: append([]*Buffer(nil), pk.Outputs...),
		Dims:    nest.TileDims(),
	}
	fusedID := fn.NewNode(fused)
	nest.Body = insertBefore(nest.Body, consumer, fusedID)

	return &FusionInfo{OriginalProducer: producer, FusedProducer: fusedID}, true
}

func insertBefore(body []NodeID, anchor, id NodeID) []NodeID {
	for i, existing := range body {
		if existing == anchor {
			body = append(body, 0)
			copy(body[i+1:], body[i:])
			body[i] = id
			return body
		}
	}
	return append(body, id)
}

func sameExtents(a, b []Extent) bool {
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
