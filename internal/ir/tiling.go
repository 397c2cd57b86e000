package ir

// TileKernel replaces a raw kernel invocation with an explicit loop nest
// whose body kernel iterates a single tile of the original iteration space.
// Tiling is atomic: it either succeeds and overwrites the kernel's arena
// slot with the nest, or declines and leaves the kernel untouched.
//
// It declines for nodes that are not raw kernel invocations (already-tiled
// nests included), for rank-0 kernels, and for explicit size lists shorter
// than the kernel rank. An empty size list tiles with size 1 along every
// dimension.
func TileKernel(fn *Function, id NodeID, tileSizes []int, parallel bool) bool {
	n := fn.Node(id)
	if n == nil || n.Dead {
		return false
	}
	k, ok := n.Op.(*KernelOp)
	if !ok {
		return false
	}
	rank := k.Rank()
	if rank == 0 {
		return false
	}

	sizes := tileSizes
	if len(sizes) == 0 {
		sizes = make([]int, rank)
		for i := range sizes {
			sizes[i] = 1
		}
	}
	if len(sizes) < rank {
		return false
	}
	sizes = sizes[:rank]

	loops := make([]Loop, rank)
	for i := range loops {
		loops[i] = Loop{
			Extent:   k.Dims[i],
			TileSize: sizes[i],
			Parallel: parallel,
		}
	}
	nest := &LoopNestOp{Loops: loops}

	inner := &KernelOp{
		Name:    k.Name,
		Inputs:  append([]*Buffer(nil), k.Inputs...),
		Outputs: append([]*Buffer(nil), k.Outputs...),
		Dims:    nest.TileDims(),
	}
	nest.Body = []NodeID{fn.NewNode(inner)}

	// Same arena slot, so the kernel's position in its block carries over
	// to the nest.
	fn.Replace(id, nest)
	return true
}
