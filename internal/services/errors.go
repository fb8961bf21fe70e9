package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrModelLoad     = errors.New("model load error")
	ErrInference     = errors.New("inference error")
	ErrTimeout       = errors.New("timeout")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Kind groups failures by how the frame loop must react to them.
type Kind int

const (
	// KindTransient failures are retried naturally by the next frame or poll.
	KindTransient Kind = iota
	// KindInference failures skip output application for one frame.
	KindInference
	// KindConfiguration failures recur every frame and stop the run.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInference:
		return "inference"
	default:
		return "transient"
	}
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto the frame-loop reaction it requires.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindTransient
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrModelLoad), errors.Is(err, ErrValidation):
		return KindConfiguration
	case errors.Is(err, ErrInference), errors.Is(err, ErrTimeout):
		return KindInference
	default:
		return KindTransient
	}
}

// IsFatal reports whether err must abort the surrounding run.
func IsFatal(err error) bool {
	return err != nil && Classify(err) == KindConfiguration
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
