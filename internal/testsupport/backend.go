package testsupport

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rigshift/internal/contract"
	"rigshift/internal/inference"
)

// FakeBackend is an in-memory inference backend. By default every joint
// comes back as the identity rotation.
type FakeBackend struct {
	Contract contract.Contract
	// Delay is slept before answering unless the context ends first.
	Delay time.Duration
	// Orientation overrides the joint output in w,x,y,z order.
	Orientation []float32

	mu     sync.Mutex
	err    error
	calls  atomic.Int32
	closed atomic.Bool
}

// NewFakeBackend returns a backend answering for c.
func NewFakeBackend(c contract.Contract) *FakeBackend {
	return &FakeBackend{Contract: c}
}

// FailWith makes subsequent calls return err; nil restores success.
func (f *FakeBackend) FailWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Run implements inference.Backend.
func (f *FakeBackend) Run(ctx context.Context, _ []inference.Tensor) (map[string][]float32, error) {
	f.calls.Add(1)
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	quats := f.Orientation
	if quats == nil {
		quats = make([]float32, f.Contract.OrientationLen())
		for i := 0; i < f.Contract.JointCount(); i++ {
			quats[i*4] = 1
		}
	}
	return map[string][]float32{
		f.Contract.Outputs.Global:      make([]float32, 4),
		f.Contract.Outputs.Orientation: append([]float32(nil), quats...),
	}, nil
}

// Close implements inference.Backend.
func (f *FakeBackend) Close() error {
	f.closed.Store(true)
	return nil
}

// Calls reports how many times Run was entered.
func (f *FakeBackend) Calls() int {
	return int(f.calls.Load())
}

// Closed reports whether Close was called.
func (f *FakeBackend) Closed() bool {
	return f.closed.Load()
}

// Loader returns an inference.Loader that always yields f.
func (f *FakeBackend) Loader() inference.Loader {
	return func(context.Context, string, contract.Contract) (inference.Backend, error) {
		return f, nil
	}
}

// ReadyEngine loads f into a new engine and registers Close as cleanup.
func ReadyEngine(t testing.TB, f *FakeBackend, opts ...inference.Option) *inference.Engine {
	t.Helper()
	engine := inference.NewEngine(f.Contract, opts...)
	if err := engine.Load(context.Background(), "fake.onnx", f.Loader()); err != nil {
		t.Fatalf("engine.Load: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}
