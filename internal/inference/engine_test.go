package inference_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"rigshift/internal/contract"
	"rigshift/internal/features"
	"rigshift/internal/inference"
	"rigshift/internal/services"
)

type stubBackend struct {
	run    func(ctx context.Context, inputs []inference.Tensor) (map[string][]float32, error)
	calls  atomic.Int32
	closed atomic.Bool
}

func (s *stubBackend) Run(ctx context.Context, inputs []inference.Tensor) (map[string][]float32, error) {
	s.calls.Add(1)
	return s.run(ctx, inputs)
}

func (s *stubBackend) Close() error {
	s.closed.Store(true)
	return nil
}

func loaderFor(b inference.Backend) inference.Loader {
	return func(context.Context, string, contract.Contract) (inference.Backend, error) {
		return b, nil
	}
}

func identityOutputs(c contract.Contract) map[string][]float32 {
	quats := make([]float32, c.OrientationLen())
	for i := 0; i < c.JointCount(); i++ {
		quats[i*4] = 1
	}
	return map[string][]float32{c.Outputs.Global: {0, 0, 0}, c.Outputs.Orientation: quats}
}

func validSet(c contract.Contract) features.Set {
	return features.Set{
		Sequence:    make([]float32, c.SequenceLen()),
		Orientation: make([]float32, c.OrientationLen()),
		Offsets:     make([]float32, c.OffsetLen()),
		Shape:       make([]float32, c.OffsetLen()),
		Height:      1.7,
	}
}

func TestEngineLifecycle(t *testing.T) {
	c := contract.Default()
	backend := &stubBackend{run: func(_ context.Context, inputs []inference.Tensor) (map[string][]float32, error) {
		if len(inputs) != 5 {
			t.Errorf("expected 5 inputs, got %d", len(inputs))
		}
		if inputs[4].Name != "inp_height" || inputs[4].Data[0] != 1.7 {
			t.Errorf("unexpected height tensor %+v", inputs[4])
		}
		return identityOutputs(c), nil
	}}
	engine := inference.NewEngine(c)
	if engine.State() != inference.StateUnloaded {
		t.Fatalf("expected unloaded, got %s", engine.State())
	}
	if _, err := engine.Infer(context.Background(), validSet(c)); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("infer before load must be a configuration error, got %v", err)
	}

	if err := engine.Load(context.Background(), "model.onnx", loaderFor(backend)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if engine.State() != inference.StateReady {
		t.Fatalf("expected ready, got %s", engine.State())
	}
	out, err := engine.Infer(context.Background(), validSet(c))
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(out.Orientation) != 88 || out.Orientation[0] != 1 || len(out.Global) != 3 {
		t.Fatalf("unexpected output %+v", out)
	}
	if engine.State() != inference.StateReady {
		t.Fatalf("expected ready after infer, got %s", engine.State())
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !backend.closed.Load() || engine.State() != inference.StateClosed {
		t.Fatal("close must release the backend")
	}
}

func TestEngineLoadFailure(t *testing.T) {
	engine := inference.NewEngine(contract.Default())
	err := engine.Load(context.Background(), "missing.onnx", func(context.Context, string, contract.Contract) (inference.Backend, error) {
		return nil, errors.New("no such file")
	})
	if !errors.Is(err, services.ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
	if engine.State() != inference.StateUnloaded {
		t.Fatalf("failed load must leave engine unloaded, got %s", engine.State())
	}
}

func TestEngineRejectsShapeMismatchBeforeBackend(t *testing.T) {
	c := contract.Default()
	backend := &stubBackend{run: func(context.Context, []inference.Tensor) (map[string][]float32, error) {
		return identityOutputs(c), nil
	}}
	engine := inference.NewEngine(c)
	if err := engine.Load(context.Background(), "m", loaderFor(backend)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	set := validSet(c)
	set.Offsets = set.Offsets[:10]
	if _, err := engine.Infer(context.Background(), set); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if backend.calls.Load() != 0 {
		t.Fatal("backend must not see mismatched tensors")
	}
}

func TestEngineRejectsBadOutput(t *testing.T) {
	c := contract.Default()
	backend := &stubBackend{run: func(context.Context, []inference.Tensor) (map[string][]float32, error) {
		return map[string][]float32{c.Outputs.Orientation: {1, 0, 0, 0}}, nil
	}}
	engine := inference.NewEngine(c)
	_ = engine.Load(context.Background(), "m", loaderFor(backend))
	if _, err := engine.Infer(context.Background(), validSet(c)); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for short output, got %v", err)
	}
}

func TestEngineBackendFailureIsInferenceError(t *testing.T) {
	c := contract.Default()
	backend := &stubBackend{run: func(context.Context, []inference.Tensor) (map[string][]float32, error) {
		return nil, errors.New("device lost")
	}}
	engine := inference.NewEngine(c)
	_ = engine.Load(context.Background(), "m", loaderFor(backend))
	_, err := engine.Infer(context.Background(), validSet(c))
	if services.Classify(err) != services.KindInference {
		t.Fatalf("expected inference kind, got %v (%v)", services.Classify(err), err)
	}
	if engine.State() != inference.StateReady {
		t.Fatalf("engine must recover to ready, got %s", engine.State())
	}
}

func TestEngineTimeoutAndBusy(t *testing.T) {
	c := contract.Default()
	release := make(chan struct{})
	backend := &stubBackend{run: func(context.Context, []inference.Tensor) (map[string][]float32, error) {
		<-release
		return identityOutputs(c), nil
	}}
	engine := inference.NewEngine(c, inference.WithTimeout(20*time.Millisecond))
	_ = engine.Load(context.Background(), "m", loaderFor(backend))

	_, err := engine.Infer(context.Background(), validSet(c))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if engine.State() != inference.StateInferring {
		t.Fatalf("engine must stay busy until the backend returns, got %s", engine.State())
	}
	if _, err := engine.Infer(context.Background(), validSet(c)); !errors.Is(err, inference.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := engine.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if engine.State() != inference.StateReady {
		t.Fatalf("expected ready after backend returned, got %s", engine.State())
	}
}

func TestBuildInputsShapes(t *testing.T) {
	c := contract.Default()
	tensors, err := inference.BuildInputs(c, validSet(c))
	if err != nil {
		t.Fatalf("BuildInputs: %v", err)
	}
	names := []string{"seqA", "quatA", "skelA", "shapeA", "inp_height"}
	for i, tensor := range tensors {
		if tensor.Name != names[i] {
			t.Fatalf("tensor %d: got %q want %q", i, tensor.Name, names[i])
		}
	}
	if got := tensors[1].Shape; len(got) != 4 || got[2] != 22 || got[3] != 4 {
		t.Fatalf("unexpected orientation shape %v", got)
	}
}
