package fusion

import (
	"loom/internal/ir"
)

// tileRoots walks the body in structural order and tiles every kernel
// invocation writing to a result buffer. Each kernel gets at most one tiling
// attempt: the first output found in the result set triggers it, and whether
// the attempt succeeds or the tiling primitive declines, scanning moves on
// to the next kernel. A kernel with several result outputs is still tiled
// only once.
func (p *Pass) tileRoots(fn *ir.Function, results map[*ir.Buffer]bool) {
	body := fn.Body()
	// TileKernel overwrites arena slots in place, so the node list can be
	// walked directly.
	for _, id := range body.Nodes {
		n := fn.Node(id)
		if n == nil || n.Dead {
			continue
		}
		k, ok := n.Op.(*ir.KernelOp)
		if !ok {
			continue
		}
		for _, out := range k.Outputs {
			if !results[out] {
				continue
			}
			ir.TileKernel(fn, id, p.opts.TileSizes, p.opts.UseParallelLoops)
			break
		}
	}
}
