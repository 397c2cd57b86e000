package fusion

import (
	"loom/internal/errors"
	"loom/internal/ir"
)

// Pass tiles every kernel writing to an externally observable buffer into an
// explicit loop nest, then greedily fuses producer kernels into those nests
// so intermediate buffers are no longer materialized in full.
//
// The pass is a single-threaded, in-place transformation: the function body
// is exclusively owned for its duration, and all dependency graphs and
// worklists are transient, rebuilt from the current state whenever staleness
// could cause a wrong fusion decision.
type Pass struct {
	opts Options
}

// NewPass validates the configuration and creates the pass.
func NewPass(opts Options) (*Pass, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Pass{opts: opts}, nil
}

func (p *Pass) Name() string {
	return "Kernel Tiling and Fusion"
}

func (p *Pass) Description() string {
	return "Tiles root kernels into loop nests and fuses their producers into the nests"
}

// Run applies the pass to one function. A non-empty result means a fatal
// structural diagnostic; the function is then guaranteed untouched.
// Individual tiling or fusion attempts that decline are not diagnostics:
// leaving a kernel alone is always a safe outcome.
func (p *Pass) Run(fn *ir.Function) []errors.CompilerError {
	// Checked before any mutation.
	if len(fn.Blocks) != 1 {
		diag := errors.New(errors.ErrorMultipleBlocks,
			"the function needs to have a single block", fn.Pos).
			WithNote("tiling and fusion do not support multi-block control flow")
		return []errors.CompilerError{diag}
	}

	// Computed once, never invalidated: fusion mutates kernels, not the
	// buffer identities of designated roots.
	results := ResultBuffers(fn)

	p.tileRoots(fn, results)
	ir.Canonicalize(fn)
	p.fuseProducers(fn)

	return nil
}

// RunProgram applies the pass function by function, collecting diagnostics.
func (p *Pass) RunProgram(program *ir.Program) []errors.CompilerError {
	var diags []errors.CompilerError
	for _, fn := range program.Functions {
		diags = append(diags, p.Run(fn)...)
	}
	return diags
}
