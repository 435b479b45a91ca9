// Package onnx runs inference sessions in-process through ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/kozaktomas/face-matcher/internal/inference"
	"github.com/kozaktomas/face-matcher/internal/logging"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	envMu    sync.Mutex
	envUsers int
)

// DefaultLibraryPath returns the platform name of the shared library.
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// Acquire initializes the ONNX Runtime environment on first use. Every
// successful Acquire must be paired with Release.
func Acquire(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envUsers == 0 {
		if libraryPath == "" {
			libraryPath = DefaultLibraryPath()
		}
		ort.SetSharedLibraryPath(libraryPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
		}
		logging.Debug(logging.Fields{"library": libraryPath}, "ONNX Runtime initialized")
	}
	envUsers++
	return nil
}

// Release tears the environment down after the last user is gone.
func Release() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envUsers == 0 {
		return nil
	}
	envUsers--
	if envUsers > 0 {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("failed to destroy ONNX Runtime: %w", err)
	}
	return nil
}

// Options configures a session.
type Options struct {
	LibraryPath string
	Threads     int // intra-op threads, 0 lets the runtime decide
}

// Session is a loaded model. Output tensors are allocated by the runtime on
// every run, so one session serves inputs of any size the model accepts.
type Session struct {
	path        string
	inputName   string
	outputNames []string

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

var _ inference.Session = (*Session)(nil)

// NewSession loads the model at path. The model must take a single input;
// outputs are returned in the order the model declares them.
func NewSession(path string, opts Options) (*Session, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file not found: %s: %w", path, err)
	}

	if err := Acquire(opts.LibraryPath); err != nil {
		return nil, err
	}

	s, err := newSession(path, opts)
	if err != nil {
		_ = Release()
		return nil, err
	}
	return s, nil
}

func newSession(path string, opts Options) (*Session, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info %s: %w", path, err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("model %s has %d inputs, expected 1", path, len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("model %s declares no outputs", path)
	}

	outputNames := make([]string, len(outputs))
	for i, o := range outputs {
		outputNames[i] = o.Name
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer sessionOpts.Destroy()

	if opts.Threads > 0 {
		if err := sessionOpts.SetIntraOpNumThreads(opts.Threads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{inputs[0].Name}, outputNames, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", path, err)
	}

	logging.Info(logging.Fields{
		"model":   path,
		"input":   inputs[0].Name,
		"outputs": len(outputNames),
	}, "loaded ONNX model")

	return &Session{
		path:        path,
		inputName:   inputs[0].Name,
		outputNames: outputNames,
		session:     session,
	}, nil
}

// OutputNames returns the model's output names in run order.
func (s *Session) OutputNames() []string {
	return s.outputNames
}

// Run executes the model on input.
func (s *Session) Run(ctx context.Context, input inference.Tensor) ([]inference.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	outputs := make([]ort.Value, len(s.outputNames))

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, errors.New("session is closed")
	}
	err = s.session.Run([]ort.Value{in}, outputs)
	s.mu.Unlock()

	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", s.path, err)
	}

	result := make([]inference.Tensor, 0, len(outputs))
	for i, v := range outputs {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %s is not a float32 tensor", s.outputNames[i])
		}
		result = append(result, toTensor(t.GetShape(), t.GetData()))
	}
	if len(result) == 0 {
		return nil, inference.ErrNoOutput
	}
	return result, nil
}

// Close destroys the session and releases the environment.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return errors.Join(err, Release())
}

// toTensor copies runtime-owned memory into a Tensor.
func toTensor(shape ort.Shape, data []float32) inference.Tensor {
	return inference.Tensor{
		Shape: append([]int64(nil), shape...),
		Data:  append([]float32(nil), data...),
	}
}

// NewEngine loads the detector and recognizer models.
func NewEngine(detectorPath, recognizerPath string, opts Options) (*inference.Engine, error) {
	det, err := NewSession(detectorPath, opts)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	rec, err := NewSession(recognizerPath, opts)
	if err != nil {
		_ = det.Close()
		return nil, fmt.Errorf("recognizer: %w", err)
	}
	return &inference.Engine{Detector: det, Recognizer: rec}, nil
}
