package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rigshift/internal/contract"
	"rigshift/internal/features"
	"rigshift/internal/logging"
	"rigshift/internal/services"
)

// ErrBusy reports an Infer call made while another is still running.
var ErrBusy = errors.New("inference already in flight")

// Backend executes a loaded model. Run receives tensors already validated
// against the contract and returns raw outputs keyed by tensor name. Run must
// release every buffer it acquires before returning, whatever the outcome.
type Backend interface {
	Run(ctx context.Context, inputs []Tensor) (map[string][]float32, error)
	Close() error
}

// Loader binds a model artifact to a backend.
type Loader func(ctx context.Context, artifact string, c contract.Contract) (Backend, error)

// State is the engine lifecycle position.
type State int

const (
	StateUnloaded State = iota
	StateReady
	StateInferring
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateInferring:
		return "inferring"
	case StateClosed:
		return "closed"
	default:
		return "unloaded"
	}
}

// Engine owns one model and admits one inference at a time.
type Engine struct {
	contract contract.Contract
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	backend Backend
	// idle is closed while no call is running.
	idle chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds every Infer call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine returns an unloaded engine for contract c.
func NewEngine(c contract.Contract, opts ...Option) *Engine {
	e := &Engine{contract: c, logger: logging.NewNop(), idle: make(chan struct{})}
	close(e.idle)
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "inference")
	return e
}

// Contract returns the contract the engine validates against.
func (e *Engine) Contract() contract.Contract {
	return e.contract
}

// State reports the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Load binds artifact through loader and moves the engine to Ready. Loading an
// already loaded engine replaces its backend once no call is running.
func (e *Engine) Load(ctx context.Context, artifact string, loader Loader) error {
	if loader == nil {
		return services.Wrap(services.ErrModelLoad, "inference", "load", "no loader configured", nil)
	}
	if err := e.contract.Validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, "inference", "load", "invalid contract", err)
	}
	backend, err := loader(ctx, artifact, e.contract)
	if err != nil {
		return services.Wrap(services.ErrModelLoad, "inference", "load", artifact, err)
	}

	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		_ = backend.Close()
		return services.Wrap(services.ErrModelLoad, "inference", "load", "engine closed", nil)
	}
	if e.state == StateInferring {
		e.mu.Unlock()
		_ = backend.Close()
		return services.Wrap(services.ErrInference, "inference", "load", "cannot swap model during inference", ErrBusy)
	}
	previous := e.backend
	e.backend = backend
	e.state = StateReady
	e.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			e.logger.Warn("previous backend close failed", logging.Error(err))
		}
	}
	e.logger.Info("model loaded",
		logging.String("artifact", artifact),
		logging.String("contract", e.contract.String()),
	)
	return nil
}

// Infer runs the model on one feature set. When the engine has a timeout and
// it expires, Infer returns ErrTimeout at once; the engine stays Inferring
// until the backend call actually returns.
func (e *Engine) Infer(ctx context.Context, set features.Set) (Output, error) {
	inputs, err := BuildInputs(e.contract, set)
	if err != nil {
		return Output{}, err
	}

	e.mu.Lock()
	switch e.state {
	case StateReady:
	case StateInferring:
		e.mu.Unlock()
		return Output{}, services.Wrap(services.ErrInference, "inference", "infer", "", ErrBusy)
	default:
		state := e.state
		e.mu.Unlock()
		return Output{}, services.Wrap(services.ErrConfiguration, "inference", "infer", fmt.Sprintf("engine is %s", state), nil)
	}
	e.state = StateInferring
	e.idle = make(chan struct{})
	backend := e.backend
	idle := e.idle
	e.mu.Unlock()

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}

	type result struct {
		raw map[string][]float32
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := backend.Run(runCtx, inputs)
		e.mu.Lock()
		if e.state == StateInferring {
			e.state = StateReady
		}
		e.mu.Unlock()
		close(idle)
		done <- result{raw: raw, err: err}
	}()

	select {
	case r := <-done:
		cancel()
		if r.err != nil {
			return Output{}, e.classifyRunError(runCtx, r.err)
		}
		return decodeOutputs(e.contract, r.raw)
	case <-runCtx.Done():
		// The backend goroutine finishes on its own and releases the engine.
		go func() {
			<-done
			cancel()
		}()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Output{}, services.Wrap(services.ErrTimeout, "inference", "infer", fmt.Sprintf("exceeded %s", e.timeout), runCtx.Err())
		}
		return Output{}, services.Wrap(services.ErrInference, "inference", "infer", "cancelled", runCtx.Err())
	}
}

func (e *Engine) classifyRunError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "inference", "infer", fmt.Sprintf("exceeded %s", e.timeout), err)
	}
	if errors.Is(err, services.ErrConfiguration) {
		return err
	}
	return services.Wrap(services.ErrInference, "inference", "infer", "backend run failed", err)
}

// Wait blocks until no call is running or ctx ends.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	idle := e.idle
	e.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for any running call and releases the backend.
func (e *Engine) Close() error {
	for {
		e.mu.Lock()
		if e.state == StateClosed {
			e.mu.Unlock()
			return nil
		}
		if e.state != StateInferring {
			backend := e.backend
			e.backend = nil
			e.state = StateClosed
			e.mu.Unlock()
			if backend == nil {
				return nil
			}
			return backend.Close()
		}
		idle := e.idle
		e.mu.Unlock()
		<-idle
	}
}
