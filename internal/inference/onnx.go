package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"rigshift/internal/contract"
)

// ONNXOptions configures the onnxruntime backend.
type ONNXOptions struct {
	// SharedLibrary is the path to the onnxruntime shared library.
	SharedLibrary  string
	Backend        string
	IntraOpThreads int
}

var (
	ortMu   sync.Mutex
	ortRefs int
)

func acquireEnvironment(library string) error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if ortRefs == 0 {
		if strings.TrimSpace(library) != "" {
			ort.SetSharedLibraryPath(library)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}
	ortRefs++
	return nil
}

func releaseEnvironment() error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if ortRefs == 0 {
		return nil
	}
	ortRefs--
	if ortRefs == 0 {
		return ort.DestroyEnvironment()
	}
	return nil
}

// ONNXLoader returns a Loader that opens artifacts with onnxruntime.
func ONNXLoader(opts ONNXOptions) Loader {
	return func(_ context.Context, artifact string, c contract.Contract) (Backend, error) {
		return openONNX(artifact, c, opts)
	}
}

type onnxBackend struct {
	session *ort.DynamicAdvancedSession
	outputs []string
}

func openONNX(artifact string, c contract.Contract, opts ONNXOptions) (backend *onnxBackend, err error) {
	if strings.TrimSpace(artifact) == "" {
		return nil, errors.New("model path is empty")
	}
	if err := acquireEnvironment(opts.SharedLibrary); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = releaseEnvironment()
		}
	}()

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer sessionOpts.Destroy()

	if opts.IntraOpThreads > 0 {
		if err := sessionOpts.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}
	if opts.Backend == "cuda" {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("cuda provider options: %w", err)
		}
		defer cudaOpts.Destroy()
		if err := sessionOpts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, fmt.Errorf("enable cuda provider: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(artifact, c.InputNames(), c.OutputNames(), sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &onnxBackend{session: session, outputs: c.OutputNames()}, nil
}

// Run ignores ctx once the call reaches onnxruntime; the runtime offers no
// cancellation for a single Run.
func (b *onnxBackend) Run(ctx context.Context, inputs []Tensor) (map[string][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := make([]ort.Value, 0, len(inputs))
	defer func() {
		for _, v := range values {
			_ = v.Destroy()
		}
	}()
	for _, in := range inputs {
		tensor, err := ort.NewTensor(ort.NewShape(in.Shape...), in.Data)
		if err != nil {
			return nil, fmt.Errorf("allocate input %q: %w", in.Name, err)
		}
		values = append(values, tensor)
	}

	outputs := make([]ort.Value, len(b.outputs))
	defer func() {
		for _, v := range outputs {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()
	if err := b.session.Run(values, outputs); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	raw := make(map[string][]float32, len(outputs))
	for i, v := range outputs {
		tensor, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %q is %T, want float32 tensor", b.outputs[i], v)
		}
		data := tensor.GetData()
		raw[b.outputs[i]] = append([]float32(nil), data...)
	}
	return raw, nil
}

func (b *onnxBackend) Close() error {
	var errs []error
	if b.session != nil {
		if err := b.session.Destroy(); err != nil {
			errs = append(errs, err)
		}
		b.session = nil
	}
	if err := releaseEnvironment(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
