package onnx

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	ort "github.com/yalue/onnxruntime_go"
)

func TestDefaultLibraryPath(t *testing.T) {
	got := DefaultLibraryPath()
	switch runtime.GOOS {
	case "windows":
		if got != "onnxruntime.dll" {
			t.Errorf("got %q", got)
		}
	case "darwin":
		if !strings.HasSuffix(got, ".dylib") {
			t.Errorf("got %q", got)
		}
	default:
		if got != "libonnxruntime.so" {
			t.Errorf("got %q", got)
		}
	}
}

func TestNewSession_MissingModel(t *testing.T) {
	_, err := NewSession(filepath.Join(t.TempDir(), "missing.onnx"), Options{})
	if err == nil {
		t.Fatal("expected error for missing model file")
	}
	if !strings.Contains(err.Error(), "model file not found") {
		t.Errorf("unexpected error: %v", err)
	}
	if envUsers != 0 {
		t.Errorf("environment should not be acquired, users = %d", envUsers)
	}
}

func TestReleaseWithoutAcquire(t *testing.T) {
	if err := Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
}

func TestToTensorCopies(t *testing.T) {
	shape := ort.NewShape(1, 2)
	data := []float32{1, 2}
	tensor := toTensor(shape, data)

	data[0] = 9
	shape[1] = 7
	if tensor.Data[0] != 1 || tensor.Shape[1] != 2 {
		t.Errorf("toTensor should copy runtime memory, got %+v", tensor)
	}
	if tensor.Elements() != 2 {
		t.Errorf("Elements() = %d, want 2", tensor.Elements())
	}
}
