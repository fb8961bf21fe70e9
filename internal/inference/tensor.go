package inference

import (
	"fmt"

	"rigshift/internal/contract"
	"rigshift/internal/features"
	"rigshift/internal/services"
)

// Tensor is one named float32 input with its fixed shape.
type Tensor struct {
	Name  string
	Shape []int64
	Data  []float32
}

// Output is the decoded model result.
type Output struct {
	// Global is the root channel, passed through untouched.
	Global []float32
	// Orientation holds J raw quaternions as w,x,y,z.
	Orientation []float32
}

// BuildInputs lays a feature set out as the contract's five named tensors.
// Any length mismatch is a configuration error.
func BuildInputs(c contract.Contract, set features.Set) ([]Tensor, error) {
	shapes := c.InputShapes()
	payloads := map[string][]float32{
		c.Inputs.Sequence:    set.Sequence,
		c.Inputs.Orientation: set.Orientation,
		c.Inputs.Offsets:     set.Offsets,
		c.Inputs.Shape:       set.Shape,
		c.Inputs.Height:      {set.Height},
	}
	out := make([]Tensor, 0, len(payloads))
	for _, name := range c.InputNames() {
		shape := shapes[name]
		data := payloads[name]
		if want := elements(shape); int64(len(data)) != want {
			msg := fmt.Sprintf("input %q has %d values, shape %v needs %d", name, len(data), shape, want)
			return nil, services.Wrap(services.ErrConfiguration, "inference", "build inputs", msg, nil)
		}
		out = append(out, Tensor{Name: name, Shape: shape, Data: data})
	}
	return out, nil
}

// decodeOutputs checks the backend result against the contract.
func decodeOutputs(c contract.Contract, raw map[string][]float32) (Output, error) {
	quats, ok := raw[c.Outputs.Orientation]
	if !ok {
		msg := fmt.Sprintf("model produced no %q output", c.Outputs.Orientation)
		return Output{}, services.Wrap(services.ErrConfiguration, "inference", "decode outputs", msg, nil)
	}
	if len(quats) != c.OrientationLen() {
		msg := fmt.Sprintf("output %q has %d values, want %d", c.Outputs.Orientation, len(quats), c.OrientationLen())
		return Output{}, services.Wrap(services.ErrConfiguration, "inference", "decode outputs", msg, nil)
	}
	return Output{Global: raw[c.Outputs.Global], Orientation: quats}, nil
}

func elements(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
