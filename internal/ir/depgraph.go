package ir

// DependenceGraph is an explicit producer→consumer graph over a list of live
// kernel invocations. It is built fresh from the current function state and
// must never be reused across a mutation: fusing or erasing a kernel makes
// every previously built graph stale.
type DependenceGraph struct {
	fn      *Function
	kernels []NodeID

	writers map[*Buffer]NodeID
	readers map[*Buffer][]NodeID
}

// NewDependenceGraph builds the graph over the given kernel list, in order.
// Dead kernels are skipped. Buffer aliasing through views is resolved, so a
// kernel writing a view of a buffer depends-connects with a kernel reading
// another view of the same storage.
func NewDependenceGraph(fn *Function, kernels []NodeID) *DependenceGraph {
	g := &DependenceGraph{
		fn:      fn,
		writers: make(map[*Buffer]NodeID),
		readers: make(map[*Buffer][]NodeID),
	}
	for _, id := range kernels {
		n := fn.Node(id)
		if n == nil || n.Dead {
			continue
		}
		k, ok := n.Op.(*KernelOp)
		if !ok {
			continue
		}
		g.kernels = append(g.kernels, id)
		for _, out := range k.Outputs {
			g.writers[g.Root(out)] = id
		}
		for _, in := range k.Inputs {
			root := g.Root(in)
			g.readers[root] = append(g.readers[root], id)
		}
	}
	return g
}

// Kernels returns the live kernels the graph was built over, in order.
func (g *DependenceGraph) Kernels() []NodeID {
	return g.kernels
}

// Root resolves a buffer through its view chain to the underlying storage.
func (g *DependenceGraph) Root(b *Buffer) *Buffer {
	for b.Def != InvalidNode {
		view, ok := g.fn.Op(b.Def).(*ViewOp)
		if !ok {
			break
		}
		b = view.Source
	}
	return b
}

// WriterOf returns the kernel producing the contents of b, if any.
func (g *DependenceGraph) WriterOf(b *Buffer) (NodeID, bool) {
	id, ok := g.writers[g.Root(b)]
	return id, ok
}

// ReadersOf returns the kernels consuming the contents of b.
func (g *DependenceGraph) ReadersOf(b *Buffer) []NodeID {
	return g.readers[g.Root(b)]
}

// Successors returns the kernels consuming any output of id.
func (g *DependenceGraph) Successors(id NodeID) []NodeID {
	n := g.fn.Node(id)
	if n == nil {
		return nil
	}
	k, ok := n.Op.(*KernelOp)
	if !ok {
		return nil
	}
	var succ []NodeID
	for _, out := range k.Outputs {
		for _, r := range g.ReadersOf(out) {
			if r != id {
				succ = append(succ, r)
			}
		}
	}
	return succ
}

// HasCycle reports whether the producer→consumer relation contains a cycle.
func (g *DependenceGraph) HasCycle() bool {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[NodeID]int)
	var visit func(NodeID) bool
	visit = func(id NodeID) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, s := range g.Successors(id) {
			if visit(s) {
				return true
			}
		}
		state[id] = done
		return false
	}
	for _, id := range g.kernels {
		if visit(id) {
			return true
		}
	}
	return false
}
