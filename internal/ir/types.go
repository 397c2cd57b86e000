package ir

import (
	"fmt"
	"strings"

	"loom/internal/errors"
)

// The loom IR is a flat, buffer-level kernel IR. A function body is a list of
// operations over memory buffers: allocations, view-like reinterpretations,
// kernel invocations and returns. Buffers are shared state mutated in place;
// no ownership moves between a producer and a consumer kernel.
//
// Nodes live in an arena owned by the Function and are addressed by stable
// integer NodeIDs. Replacing an operation overwrites its arena slot, erasing
// marks the slot dead; physical removal from the block ordering is deferred
// to an explicit Compact step. This keeps node identities valid across
// transformations even though producer/consumer relationships are cyclic at
// the buffer level.

// NodeID is a stable handle into a Function's node arena.
type NodeID int

// InvalidNode marks the absence of a node, e.g. the defining node of a
// function argument.
const InvalidNode NodeID = -1

// Extent is one loop dimension of a kernel's iteration space.
type Extent struct {
	Size    int
	Dynamic bool
}

func (e Extent) String() string {
	if e.Dynamic {
		return "?"
	}
	return fmt.Sprintf("%d", e.Size)
}

// Buffer is an opaque identity for a memory region. Buffers are compared by
// pointer identity, never by value.
type Buffer struct {
	Name  string
	DType string
	Shape []int

	// Def is the node that introduced this buffer value (an alloc or a
	// view), or InvalidNode for function arguments.
	Def NodeID
}

func (b *Buffer) String() string {
	return "%" + b.Name
}

// Op is the operation payload of a node.
type Op interface {
	opName() string
}

// AllocOp materializes a new buffer.
type AllocOp struct {
	Result *Buffer
}

func (*AllocOp) opName() string { return "alloc" }

// ViewKind distinguishes the view-like reinterpretations of a buffer.
type ViewKind string

const (
	ViewReshape ViewKind = "reshape"
	ViewSlice   ViewKind = "slice"
	ViewCast    ViewKind = "cast"
)

// ViewOp produces a buffer that is a reinterpretation of a source buffer,
// sharing its storage.
type ViewOp struct {
	Kind   ViewKind
	Source *Buffer
	Result *Buffer
}

func (*ViewOp) opName() string { return "view" }

// KernelOp is a single compute operation over buffers with a defined
// iteration space. It reads its input buffers and writes its output buffers
// in place.
type KernelOp struct {
	Name    string
	Inputs  []*Buffer
	Outputs []*Buffer
	Dims    []Extent
}

func (*KernelOp) opName() string { return "kernel" }

// Rank returns the number of loop dimensions of the kernel.
func (k *KernelOp) Rank() int { return len(k.Dims) }

// Loop describes one level of a loop nest: the full extent it iterates, the
// tile size per step, and whether the level is a parallel loop.
type Loop struct {
	Extent   Extent
	TileSize int
	Parallel bool
}

// LoopNestOp is an explicit loop nest produced by tiling. Its body holds
// kernel invocations scoped to the nest, each iterating a single tile.
type LoopNestOp struct {
	Loops []Loop
	Body  []NodeID
}

func (*LoopNestOp) opName() string { return "loop_nest" }

// TileDims returns the iteration space of a single tile of the nest.
func (l *LoopNestOp) TileDims() []Extent {
	dims := make([]Extent, len(l.Loops))
	for i, loop := range l.Loops {
		dims[i] = Extent{Size: loop.TileSize}
	}
	return dims
}

// IterationSpace returns the full iteration space covered by the nest.
func (l *LoopNestOp) IterationSpace() []Extent {
	dims := make([]Extent, len(l.Loops))
	for i, loop := range l.Loops {
		dims[i] = loop.Extent
	}
	return dims
}

// ReturnOp terminates a block, naming the buffers escaping the function.
type ReturnOp struct {
	Operands []*Buffer
}

func (*ReturnOp) opName() string { return "return" }

// Node is one arena slot.
type Node struct {
	ID   NodeID
	Op   Op
	Dead bool
}

// Block is an ordered sequence of node IDs.
type Block struct {
	Label string
	Nodes []NodeID
}

// Function owns its node arena and the block structure over it.
type Function struct {
	Name   string
	Pos    errors.Position
	Params []*Buffer
	Blocks []*Block

	nodes []*Node
}

// Program is a parsed and lowered compilation unit.
type Program struct {
	Functions []*Function
}

// NewFunction creates an empty function with a single entry block.
func NewFunction(name string) *Function {
	return &Function{
		Name:   name,
		Blocks: []*Block{{Label: "entry"}},
	}
}

// NewNode allocates an arena slot for op and returns its stable ID. The node
// is not yet part of any block.
func (f *Function) NewNode(op Op) NodeID {
	id := NodeID(len(f.nodes))
	f.nodes = append(f.nodes, &Node{ID: id, Op: op})
	return id
}

// Node returns the arena slot for id, or nil for an invalid ID.
func (f *Function) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(f.nodes) {
		return nil
	}
	return f.nodes[id]
}

// Op returns the operation stored at id, or nil.
func (f *Function) Op(id NodeID) Op {
	if n := f.Node(id); n != nil {
		return n.Op
	}
	return nil
}

// Replace overwrites the arena slot of id with a new operation, keeping the
// node's identity and position in its block.
func (f *Function) Replace(id NodeID, op Op) {
	if n := f.Node(id); n != nil {
		n.Op = op
	}
}

// MarkDead flags a node for deferred erasure. Dead nodes are excluded from
// all later graph queries even before Compact removes them.
func (f *Function) MarkDead(id NodeID) {
	if n := f.Node(id); n != nil {
		n.Dead = true
	}
}

// Body returns the entry block.
func (f *Function) Body() *Block {
	return f.Blocks[0]
}

// Append adds op to the arena and to the end of block, returning the new ID.
func (f *Function) Append(block *Block, op Op) NodeID {
	id := f.NewNode(op)
	block.Nodes = append(block.Nodes, id)
	return id
}

// ReturnOperands collects the operands of every return in the function, in
// structural order.
func (f *Function) ReturnOperands() []*Buffer {
	var operands []*Buffer
	for _, block := range f.Blocks {
		for _, id := range block.Nodes {
			n := f.Node(id)
			if n == nil || n.Dead {
				continue
			}
			if ret, ok := n.Op.(*ReturnOp); ok {
				operands = append(operands, ret.Operands...)
			}
		}
	}
	return operands
}

// LiveKernels returns every live kernel invocation in structural order.
// Kernels inside a loop nest count too, at the position of their nest.
func (f *Function) LiveKernels() []NodeID {
	var kernels []NodeID
	for _, block := range f.Blocks {
		for _, id := range block.Nodes {
			n := f.Node(id)
			if n == nil || n.Dead {
				continue
			}
			switch op := n.Op.(type) {
			case *KernelOp:
				kernels = append(kernels, id)
			case *LoopNestOp:
				for _, inner := range op.Body {
					if in := f.Node(inner); in != nil && !in.Dead {
						if _, ok := in.Op.(*KernelOp); ok {
							kernels = append(kernels, inner)
						}
					}
				}
			}
		}
	}
	return kernels
}

// EnclosingNest returns the loop nest whose body contains id, if any.
func (f *Function) EnclosingNest(id NodeID) (NodeID, bool) {
	for _, block := range f.Blocks {
		for _, nid := range block.Nodes {
			n := f.Node(nid)
			if n == nil || n.Dead {
				continue
			}
			nest, ok := n.Op.(*LoopNestOp)
			if !ok {
				continue
			}
			for _, inner := range nest.Body {
				if inner == id {
					return nid, true
				}
			}
		}
	}
	return InvalidNode, false
}

// Compact physically removes dead nodes from the block ordering and from
// loop nest bodies. Arena slots stay allocated so NodeIDs remain stable.
func (f *Function) Compact() {
	for _, block := range f.Blocks {
		block.Nodes = f.compactList(block.Nodes)
	}
	for _, n := range f.nodes {
		if n.Dead {
			continue
		}
		if nest, ok := n.Op.(*LoopNestOp); ok {
			nest.Body = f.compactList(nest.Body)
		}
	}
}

func (f *Function) compactList(ids []NodeID) []NodeID {
	live := ids[:0]
	for _, id := range ids {
		if n := f.Node(id); n != nil && !n.Dead {
			live = append(live, id)
		}
	}
	return live
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
