package fusion

import (
	"fmt"

	"loom/internal/errors"
)

// Options configures the tiling and fusion pass.
type Options struct {
	// UseParallelLoops selects parallel loop constructs for the generated
	// nests instead of sequential ones.
	UseParallelLoops bool

	// TileSizes gives one tile size per loop dimension of each tiled
	// kernel. Empty means size 1 along every dimension.
	TileSizes []int
}

// Validate rejects malformed configurations before any function is touched.
// A violation is a fatal configuration diagnostic, not a per-kernel decline.
func (o Options) Validate() error {
	for i, size := range o.TileSizes {
		if size <= 0 {
			return errors.New(errors.ErrorInvalidConfiguration,
				fmt.Sprintf("tile size at index %d must be positive, got %d", i, size),
				errors.Position{})
		}
	}
	return nil
}
