package ir

import (
	"testing"

	"loom/grammar"
	"loom/internal/errors"
)

// lowerSource parses and lowers a single-function program, failing the test
// on any diagnostic.
func lowerSource(t *testing.T, source string) *Function {
	t.Helper()
	fn, errs := lowerSourceErrs(t, source)
	if len(errs) > 0 {
		t.Fatalf("unexpected lowering diagnostics: %v", errs)
	}
	return fn
}

func lowerSourceErrs(t *testing.T, source string) (*Function, []errors.CompilerError) {
	t.Helper()
	prog, err := grammar.ParseSource("test.loom", source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	lowered, errs := BuildProgram(prog)
	if len(lowered.Functions) == 0 {
		t.Fatal("no functions lowered")
	}
	return lowered.Functions[0], errs
}

func TestBuildSimpleFunction(t *testing.T) {
	fn := lowerSource(t, `func @main(%arg0: buf<f32>[8,8], %out: buf<f32>[8,8]) {
  %tmp = alloc buf<f32>[8,8]
  kernel "mul" ins(%arg0, %arg0) outs(%tmp) dims(8, 8)
  kernel "relu" ins(%tmp) outs(%out) dims(8, 8)
  return %out
}`)

	if fn.Name != "main" {
		t.Errorf("expected function name 'main', got %q", fn.Name)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
	if fn.Params[0].Def != InvalidNode {
		t.Error("function arguments should have no defining node")
	}
	if len(fn.Blocks) != 1 {
		t.Fatalf("expected a single block, got %d", len(fn.Blocks))
	}

	body := fn.Body()
	if len(body.Nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(body.Nodes))
	}

	alloc, ok := fn.Op(body.Nodes[0]).(*AllocOp)
	if !ok {
		t.Fatal("first node should be an alloc")
	}
	if alloc.Result.Def != body.Nodes[0] {
		t.Error("alloc result should record its defining node")
	}

	mul, ok := fn.Op(body.Nodes[1]).(*KernelOp)
	if !ok {
		t.Fatal("second node should be a kernel")
	}
	// Buffers are identities: the kernel output must be the alloc result.
	if mul.Outputs[0] != alloc.Result {
		t.Error("kernel output should be the same buffer identity as the alloc result")
	}
	if mul.Inputs[0] != fn.Params[0] || mul.Inputs[1] != fn.Params[0] {
		t.Error("kernel inputs should resolve to the parameter buffer")
	}
	if mul.Rank() != 2 {
		t.Errorf("expected rank 2, got %d", mul.Rank())
	}

	ret, ok := fn.Op(body.Nodes[3]).(*ReturnOp)
	if !ok {
		t.Fatal("last node should be a return")
	}
	if ret.Operands[0] != fn.Params[1] {
		t.Error("return operand should be the output parameter")
	}
}

func TestBuildViewChain(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[256]) {
  %v = view reshape %a [16,16]
  %w = view slice %v [8,8]
  kernel "id" ins(%w) outs(%w) dims(8, 8)
  return
}`)

	body := fn.Body()
	v := fn.Op(body.Nodes[0]).(*ViewOp)
	w := fn.Op(body.Nodes[1]).(*ViewOp)

	if v.Kind != ViewReshape || w.Kind != ViewSlice {
		t.Error("view kinds not preserved")
	}
	if v.Source != fn.Params[0] {
		t.Error("first view should alias the parameter")
	}
	if w.Source != v.Result {
		t.Error("second view should alias the first view's result")
	}
	if w.Result.Def != body.Nodes[1] {
		t.Error("view result should record its defining node")
	}
}

func TestBuildBlockLabels(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4]) {
  kernel "id" ins(%a) outs(%a) dims(4)
^exit:
  return %a
}`)

	if len(fn.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(fn.Blocks))
	}
	if fn.Blocks[1].Label != "exit" {
		t.Errorf("expected block label 'exit', got %q", fn.Blocks[1].Label)
	}
	if len(fn.Blocks[1].Nodes) != 1 {
		t.Error("second block should hold the return")
	}
}

func TestBuildUndefinedBuffer(t *testing.T) {
	_, errs := lowerSourceErrs(t, `func @f(%a: buf<f32>[4]) {
  kernel "id" ins(%missing) outs(%a) dims(4)
}`)

	if len(errs) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(errs))
	}
	if errs[0].Code != errors.ErrorUndefinedBuffer {
		t.Errorf("expected %s, got %s", errors.ErrorUndefinedBuffer, errs[0].Code)
	}
}

func TestBuildDuplicateBuffer(t *testing.T) {
	_, errs := lowerSourceErrs(t, `func @f(%a: buf<f32>[4]) {
  %a = alloc buf<f32>[4]
}`)

	if len(errs) != 1 || errs[0].Code != errors.ErrorDuplicateBuffer {
		t.Fatalf("expected a single %s diagnostic, got %v", errors.ErrorDuplicateBuffer, errs)
	}
}

func TestBuildMultipleWriters(t *testing.T) {
	_, errs := lowerSourceErrs(t, `func @f(%a: buf<f32>[4]) {
  %b = alloc buf<f32>[4]
  kernel "first" ins(%a) outs(%b) dims(4)
  kernel "second" ins(%a) outs(%b) dims(4)
}`)

	if len(errs) != 1 || errs[0].Code != errors.ErrorMultipleWriters {
		t.Fatalf("expected a single %s diagnostic, got %v", errors.ErrorMultipleWriters, errs)
	}
}

func TestReturnOperands(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4], %b: buf<f32>[4]) {
  return %a, %b
}`)

	operands := fn.ReturnOperands()
	if len(operands) != 2 {
		t.Fatalf("expected 2 return operands, got %d", len(operands))
	}
	if operands[0] != fn.Params[0] || operands[1] != fn.Params[1] {
		t.Error("return operands should be the parameter buffers")
	}
}
