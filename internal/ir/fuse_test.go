package ir

import (
	"testing"
)

// tileConsumer tiles the kernel at the given body index and returns the
// nested kernel's node ID.
func tileConsumer(t *testing.T, fn *Function, bodyIdx int, sizes []int) NodeID {
	t.Helper()
	id := fn.Body().Nodes[bodyIdx]
	if !TileKernel(fn, id, sizes, false) {
		t.Fatal("tiling should succeed")
	}
	nest := fn.Op(id).(*LoopNestOp)
	return nest.Body[0]
}

func TestFuseProducerIntoNest(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4,4], %out: buf<f32>[4,4]) {
  %b = alloc buf<f32>[4,4]
  kernel "add" ins(%a, %a) outs(%b) dims(4, 4)
  kernel "relu" ins(%b) outs(%out) dims(4, 4)
  return %out
}`)

	consumer := tileConsumer(t, fn, 2, nil)
	producer := fn.Body().Nodes[1]

	g := NewDependenceGraph(fn, fn.LiveKernels())
	info, ok := FuseProducer(fn, consumer, 0, g)
	if !ok {
		t.Fatal("fusion should succeed")
	}
	if info.OriginalProducer != producer {
		t.Error("fusion should report the standalone producer as original")
	}

	// The fused copy sits in the nest body ahead of the consumer and
	// iterates a single tile.
	nestID, _ := fn.EnclosingNest(consumer)
	nest := fn.Op(nestID).(*LoopNestOp)
	if len(nest.Body) != 2 || nest.Body[0] != info.FusedProducer || nest.Body[1] != consumer {
		t.Fatalf("unexpected nest body: %v", nest.Body)
	}
	fused := fn.Op(info.FusedProducer).(*KernelOp)
	if fused.Name != "add" {
		t.Error("fused kernel should keep the producer's name")
	}
	for _, d := range fused.Dims {
		if d.Size != 1 {
			t.Error("fused kernel should iterate one tile")
		}
	}

	// The primitive mutates nothing else: the original producer is still
	// live until the caller marks it dead.
	if fn.Node(producer).Dead {
		t.Error("the primitive must not erase the original producer")
	}
}

func TestFuseProducerDeclinesUntiledConsumer(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4], %out: buf<f32>[4]) {
  %b = alloc buf<f32>[4]
  kernel "produce" ins(%a) outs(%b) dims(4)
  kernel "consume" ins(%b) outs(%out) dims(4)
  return %out
}`)

	consumer := fn.Body().Nodes[2]
	g := NewDependenceGraph(fn, fn.LiveKernels())
	if _, ok := FuseProducer(fn, consumer, 0, g); ok {
		t.Error("fusion requires a tiled consumer")
	}
}

func TestFuseProducerDeclinesArgumentBuffer(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4], %out: buf<f32>[4]) {
  kernel "produce" ins(%out) outs(%a) dims(4)
  kernel "consume" ins(%a) outs(%out) dims(4)
  return %out
}`)

	consumer := tileConsumer(t, fn, 1, nil)
	g := NewDependenceGraph(fn, fn.LiveKernels())
	// %a is a function argument: externally observable, never fusable.
	if _, ok := FuseProducer(fn, consumer, 0, g); ok {
		t.Error("an argument buffer must not be fused away")
	}
}

func TestFuseProducerDeclinesEscapingBuffer(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4], %out: buf<f32>[4]) {
  %b = alloc buf<f32>[4]
  kernel "produce" ins(%a) outs(%b) dims(4)
  kernel "consume" ins(%b) outs(%out) dims(4)
  return %out, %b
}`)

	consumer := tileConsumer(t, fn, 2, nil)
	g := NewDependenceGraph(fn, fn.LiveKernels())
	if _, ok := FuseProducer(fn, consumer, 0, g); ok {
		t.Error("a returned buffer must not be fused away")
	}
}

func TestFuseProducerDeclinesOtherConsumer(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4], %o1: buf<f32>[4], %o2: buf<f32>[4]) {
  %b = alloc buf<f32>[4]
  kernel "produce" ins(%a) outs(%b) dims(4)
  kernel "use1" ins(%b) outs(%o1) dims(4)
  kernel "use2" ins(%b) outs(%o2) dims(4)
  return %o1, %o2
}`)

	consumer := tileConsumer(t, fn, 2, nil)
	g := NewDependenceGraph(fn, fn.LiveKernels())
	// use2 still needs the fully materialized %b.
	if _, ok := FuseProducer(fn, consumer, 0, g); ok {
		t.Error("fusion would break the other consumer")
	}
}

func TestFuseProducerDeclinesMismatchedIterationSpace(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[16], %out: buf<f32>[4,4]) {
  %b = alloc buf<f32>[16]
  %m = view reshape %b [4,4]
  kernel "produce" ins(%a) outs(%b) dims(16)
  kernel "consume" ins(%m) outs(%out) dims(4, 4)
  return %out
}`)

	consumer := tileConsumer(t, fn, 3, nil)
	g := NewDependenceGraph(fn, fn.LiveKernels())
	// Producer iterates [16], the consumer's nest iterates [4,4].
	if _, ok := FuseProducer(fn, consumer, 0, g); ok {
		t.Error("iteration spaces are incompatible")
	}
}

func TestFuseProducerDeclinesMultiOutputProducer(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4], %o1: buf<f32>[4], %o2: buf<f32>[4]) {
  %b = alloc buf<f32>[4]
  %c = alloc buf<f32>[4]
  kernel "produce" ins(%a) outs(%b, %c) dims(4)
  kernel "use_b" ins(%b) outs(%o1) dims(4)
  kernel "use_c" ins(%c) outs(%o2) dims(4)
  return %o1, %o2
}`)

	consumer := tileConsumer(t, fn, 3, nil)
	g := NewDependenceGraph(fn, fn.LiveKernels())
	// %b has no reader besides the consumer, but the producer's second
	// output %c still feeds use_c: erasing the standalone producer would
	// leave that read without a preceding write.
	if _, ok := FuseProducer(fn, consumer, 0, g); ok {
		t.Error("a producer with another consumed output must not be fused away")
	}
}

func TestFuseProducerDeclinesEscapingSecondOutput(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4], %out: buf<f32>[4]) {
  %b = alloc buf<f32>[4]
  %c = alloc buf<f32>[4]
  kernel "produce" ins(%a) outs(%b, %c) dims(4)
  kernel "consume" ins(%b) outs(%out) dims(4)
  return %out, %c
}`)

	consumer := tileConsumer(t, fn, 3, nil)
	g := NewDependenceGraph(fn, fn.LiveKernels())
	if _, ok := FuseProducer(fn, consumer, 0, g); ok {
		t.Error("a producer whose second output is returned must not be fused away")
	}
}

func TestFuseProducerThroughView(t *testing.T) {
	fn := lowerSource(t, `func @f(%a: buf<f32>[4,4], %out: buf<f32>[4,4]) {
  %b = alloc buf<f32>[4,4]
  %c = view cast %b [4,4]
  kernel "add" ins(%a, %a) outs(%b) dims(4, 4)
  kernel "relu" ins(%c) outs(%out) dims(4, 4)
  return %out
}`)

	consumer := tileConsumer(t, fn, 3, nil)
	g := NewDependenceGraph(fn, fn.LiveKernels())
	info, ok := FuseProducer(fn, consumer, 0, g)
	if !ok {
		t.Fatal("aliasing through a cast should not block fusion")
	}
	if fn.Op(info.OriginalProducer).(*KernelOp).Name != "add" {
		t.Error("wrong producer resolved through the view chain")
	}
}
