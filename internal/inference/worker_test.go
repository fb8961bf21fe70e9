package inference_test

import (
	"context"
	"testing"

	"rigshift/internal/contract"
	"rigshift/internal/inference"
)

func TestWorkerLatestWins(t *testing.T) {
	c := contract.Default()
	started := make(chan float32, 8)
	release := make(chan struct{})
	backend := &stubBackend{run: func(_ context.Context, inputs []inference.Tensor) (map[string][]float32, error) {
		started <- inputs[4].Data[0]
		<-release
		out := identityOutputs(c)
		out[c.Outputs.Global] = []float32{inputs[4].Data[0]}
		return out, nil
	}}
	engine := inference.NewEngine(c)
	if err := engine.Load(context.Background(), "m", loaderFor(backend)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	worker := inference.NewWorker(context.Background(), engine)
	defer worker.Close()

	submit := func(frame int) {
		set := validSet(c)
		set.Height = float32(frame)
		worker.Submit(frame, set)
	}

	submit(0)
	if got := <-started; got != 0 {
		t.Fatalf("expected frame 0 to start, got %v", got)
	}
	// Frames 1 and 2 arrive while 0 runs; 1 is replaced before it starts.
	submit(1)
	submit(2)
	release <- struct{}{}

	if got := <-started; got != 2 {
		t.Fatalf("expected frame 2 to run next, got %v", got)
	}
	release <- struct{}{}
	worker.Drain()

	res, ok := worker.Latest()
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Frame != 2 || res.Err != nil || res.Output.Global[0] != 2 {
		t.Fatalf("unexpected latest result %+v", res)
	}
	if _, ok := worker.Latest(); ok {
		t.Fatal("Latest must hand out a result once")
	}

	stats := worker.Stats()
	if stats.Submitted != 3 || stats.Completed != 2 || stats.Dropped != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if backend.calls.Load() != 2 {
		t.Fatalf("expected two backend calls, got %d", backend.calls.Load())
	}
}

func TestWorkerCloseDiscardsPending(t *testing.T) {
	c := contract.Default()
	backend := &stubBackend{run: func(context.Context, []inference.Tensor) (map[string][]float32, error) {
		return identityOutputs(c), nil
	}}
	engine := inference.NewEngine(c)
	_ = engine.Load(context.Background(), "m", loaderFor(backend))
	worker := inference.NewWorker(context.Background(), engine)
	worker.Close()
	worker.Submit(0, validSet(c))
	worker.Drain()
}
