// Package inference defines the boundary to the model runtime. The pipeline
// builds input tensors and consumes output tensors; how the models execute is
// left to the adapters in the onnx and remote subpackages.
package inference

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoOutput is returned when a session produced no tensors.
var ErrNoOutput = errors.New("model produced no output")

// Tensor is a dense float32 tensor.
type Tensor struct {
	Shape []int64   `json:"shape" msgpack:"shape"`
	Data  []float32 `json:"data" msgpack:"data"`
}

// NewTensor creates a tensor and checks that data matches shape.
func NewTensor(data []float32, shape ...int64) (Tensor, error) {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	if n != int64(len(data)) {
		return Tensor{}, fmt.Errorf("tensor shape %v needs %d values, got %d", shape, n, len(data))
	}
	return Tensor{Shape: shape, Data: data}, nil
}

// Elements returns the number of values implied by Shape.
func (t Tensor) Elements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= int(d)
	}
	return n
}

// Session runs one model on one input tensor.
type Session interface {
	Run(ctx context.Context, input Tensor) ([]Tensor, error)
}

// Engine bundles the detector and recognizer sessions. The owner of the
// engine is responsible for closing the sessions.
type Engine struct {
	Detector   Session
	Recognizer Session
}

// Closer is implemented by sessions holding runtime resources.
type Closer interface {
	Close() error
}

// Close closes both sessions when they implement Closer.
func (e Engine) Close() error {
	var errs []error
	for _, s := range []Session{e.Detector, e.Recognizer} {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SessionFunc adapts a function to Session.
type SessionFunc func(ctx context.Context, input Tensor) ([]Tensor, error)

// Run calls f.
func (f SessionFunc) Run(ctx context.Context, input Tensor) ([]Tensor, error) {
	return f(ctx, input)
}
