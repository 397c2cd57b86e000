package fusion

import (
	"loom/internal/ir"
)

// fuseProducers greedily fuses producers into the tiled consumer nests.
//
// Kernels are processed in reverse structural order so consumers are visited
// before their producers: a chain of N dependent kernels collapses into one
// loop nest within a single scan, each fusion pulling one more producer
// inward. For every (consumer, input) pair the dependency graph is rebuilt
// from scratch, since any prior fusion in the same scan has made the old one
// stale, and the fusion primitive is asked once; failures are silent and
// never retried.
//
// A fused-away producer is marked dead immediately, so later graph rebuilds
// ignore it, and its slot in the kernel list is taken by the fused copy so
// transitive fusion attempts observe the updated graph. Physical erasure is
// a single deferred step at the end: by construction the dead producers have
// no remaining consumers, so their relative erase order is irrelevant.
func (p *Pass) fuseProducers(fn *ir.Function) {
	kernels := fn.LiveKernels()

	for i := len(kernels) - 1; i >= 0; i-- {
		consumer := kernels[i]
		n := fn.Node(consumer)
		if n == nil || n.Dead {
			continue
		}
		k, ok := n.Op.(*ir.KernelOp)
		if !ok {
			continue
		}

		for idx := 0; idx < len(k.Inputs); idx++ {
			graph := ir.NewDependenceGraph(fn, kernels)
			info, ok := ir.FuseProducer(fn, consumer, idx, graph)
			if !ok {
				continue
			}
			fn.MarkDead(info.OriginalProducer)
			for j := range kernels {
				if kernels[j] == info.OriginalProducer {
					kernels[j] = info.FusedProducer
				}
			}
		}

		ir.Canonicalize(fn)
	}

	fn.Compact()
}
