package config

import (
	"math"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"INFERENCE_BACKEND", "DETECTION_THRESHOLD", "NMS_THRESHOLD",
		"RECOGNITION_THRESHOLD", "ALIGNMENT_METHOD", "WEB_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Inference.Backend != "onnx" {
		t.Errorf("expected backend 'onnx', got '%s'", cfg.Inference.Backend)
	}
	if cfg.Detector.Threshold != 0.5 {
		t.Errorf("expected detection threshold 0.5, got %f", cfg.Detector.Threshold)
	}
	if cfg.Detector.NMSThreshold != 0.4 {
		t.Errorf("expected NMS threshold 0.4, got %f", cfg.Detector.NMSThreshold)
	}
	if cfg.Matching.Threshold != 1.24 {
		t.Errorf("expected recognition threshold 1.24, got %f", cfg.Matching.Threshold)
	}
	if cfg.Recognizer.Alignment != "precise" {
		t.Errorf("expected alignment 'precise', got '%s'", cfg.Recognizer.Alignment)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Web.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RECOGNITION_THRESHOLD", "0.9")
	t.Setenv("ALIGNMENT_METHOD", "Heuristic")
	t.Setenv("INFERENCE_THREADS", "4")

	cfg := Load()

	if cfg.Matching.Threshold != 0.9 {
		t.Errorf("expected threshold 0.9, got %f", cfg.Matching.Threshold)
	}
	if cfg.Recognizer.Alignment != "heuristic" {
		t.Errorf("expected alignment 'heuristic', got '%s'", cfg.Recognizer.Alignment)
	}
	if cfg.Inference.Threads != 4 {
		t.Errorf("expected 4 threads, got %d", cfg.Inference.Threads)
	}
}

func TestEnvFloat_InvalidFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"empty", "", 1.5},
		{"garbage", "abc", 1.5},
		{"negative", "-1", 1.5},
		{"zero", "0", 1.5},
		{"valid", "0.25", 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FACE_MATCHER_TEST_FLOAT", tt.value)
			got := envFloat("FACE_MATCHER_TEST_FLOAT", 1.5)
			if got != tt.want {
				t.Errorf("envFloat(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Inference.Backend = "tensorrt" }},
		{"alignment", func(c *Config) { c.Recognizer.Alignment = "magic" }},
		{"detector profile", func(c *Config) { c.Detector.Profile = "missing" }},
		{"recognizer profile", func(c *Config) { c.Recognizer.Profile = "missing" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			cfg.Inference.Backend = "onnx"
			cfg.Recognizer.Alignment = "precise"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRecognizerProfile_ReferenceLandmarks(t *testing.T) {
	cfg := Load()
	cfg.Recognizer.Profile = "w600k_r50"

	profile, err := cfg.RecognizerProfile()
	if err != nil {
		t.Fatalf("RecognizerProfile() error = %v", err)
	}

	if profile.InputSize != 112 {
		t.Errorf("expected input size 112, got %d", profile.InputSize)
	}
	if math.Abs(profile.ReferenceLandmarks[0][0]-38.2946) > 1e-9 {
		t.Errorf("expected left eye x 38.2946, got %v", profile.ReferenceLandmarks[0][0])
	}
	if math.Abs(profile.ReferenceLandmarks[4][1]-92.2041) > 1e-9 {
		t.Errorf("expected right mouth y 92.2041, got %v", profile.ReferenceLandmarks[4][1])
	}
}

func TestDetectorProfile_Strides(t *testing.T) {
	cfg := Load()
	cfg.Detector.Profile = "scrfd_10g_bnkps"

	profile, err := cfg.DetectorProfile()
	if err != nil {
		t.Fatalf("DetectorProfile() error = %v", err)
	}

	want := []int{8, 16, 32}
	if len(profile.Strides) != len(want) {
		t.Fatalf("expected %d strides, got %d", len(want), len(profile.Strides))
	}
	for i := range want {
		if profile.Strides[i] != want[i] {
			t.Errorf("stride[%d] = %d, want %d", i, profile.Strides[i], want[i])
		}
	}
	if profile.Std != 128 {
		t.Errorf("expected std 128, got %v", profile.Std)
	}
}

func TestEnvList(t *testing.T) {
	tests := []struct {
		value string
		want  []string
	}{
		{"", nil},
		{"https://a.example", []string{"https://a.example"}},
		{" https://a.example , ,https://b.example ", []string{"https://a.example", "https://b.example"}},
	}
	for _, tt := range tests {
		t.Setenv("WEB_ALLOWED_ORIGINS", tt.value)
		got := envList("WEB_ALLOWED_ORIGINS")
		if len(got) != len(tt.want) {
			t.Errorf("envList(%q) = %v, want %v", tt.value, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("envList(%q)[%d] = %q, want %q", tt.value, i, got[i], tt.want[i])
			}
		}
	}
}
