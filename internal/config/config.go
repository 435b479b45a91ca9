package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-matcher/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Inference  InferenceConfig
	Detector   DetectorConfig
	Recognizer RecognizerConfig
	Matching   MatchingConfig
	Registry   RegistryConfig
	Database   DatabaseConfig
	MariaDB    MariaDBConfig
	Web        WebConfig
	Log        LogConfig
	Models     ModelsConfig
}

type InferenceConfig struct {
	Backend     string // "onnx" (default) or "remote"
	LibraryPath string // ONNX Runtime shared library
	Threads     int    // intra-op threads per session (default 1)
	URL         string // inference sidecar for the remote backend
}

type DetectorConfig struct {
	ModelPath    string
	Profile      string  // key into models.yaml detectors
	Threshold    float64 // minimum score (default 0.5)
	NMSThreshold float64 // IoU suppression threshold (default 0.4)
}

type RecognizerConfig struct {
	ModelPath string
	Profile   string // key into models.yaml recognizers
	Alignment string // "precise" (default) or "heuristic"
}

type MatchingConfig struct {
	Threshold float64 // squared Euclidean distance (default 1.24)
}

type RegistryConfig struct {
	FaceDBPath string // directory bulk-loaded on startup (optional)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MariaDBConfig struct {
	DSN string // e.g. faces:faces@tcp(mariadb:3306)/faces?parseTime=true
}

type WebConfig struct {
	Host     string
	Port     int
	APIToken string // optional bearer token required on /api/v1 routes

	AllowedOrigins []string // CORS whitelist, localhost is always allowed
}

type LogConfig struct {
	Level string // debug, info, warn, error
	File  string // rotated log file (optional)
}

type ModelsConfig struct {
	Detectors   map[string]DetectorProfile   `yaml:"detectors"`
	Recognizers map[string]RecognizerProfile `yaml:"recognizers"`
}

type DetectorProfile struct {
	InputWidth     int     `yaml:"input_width"`
	InputHeight    int     `yaml:"input_height"`
	Mean           float32 `yaml:"mean"`
	Std            float32 `yaml:"std"`
	Strides        []int   `yaml:"strides"`
	AnchorsPerCell int     `yaml:"anchors_per_cell"`
}

type RecognizerProfile struct {
	InputSize          int          `yaml:"input_size"`
	Mean               float32      `yaml:"mean"`
	Std                float32      `yaml:"std"`
	EmbeddingDim       int          `yaml:"embedding_dim"`
	ReferenceLandmarks [][2]float64 `yaml:"reference_landmarks"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString returns the env var or the default when it is unset or blank.
func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	return &Config{
		Inference: InferenceConfig{
			Backend:     strings.ToLower(envString("INFERENCE_BACKEND", constants.BackendONNX)),
			LibraryPath: envString("ONNXRUNTIME_LIB", "libonnxruntime.so"),
			Threads:     envInt("INFERENCE_THREADS", 1),
			URL:         envString("INFERENCE_URL", "http://localhost:8500"),
		},
		Detector: DetectorConfig{
			ModelPath:    envString("DETECTOR_MODEL_PATH", "models/scrfd_10g_bnkps.onnx"),
			Profile:      envString("DETECTOR_PROFILE", "scrfd_10g_bnkps"),
			Threshold:    envFloat("DETECTION_THRESHOLD", constants.DefaultDetectionThreshold),
			NMSThreshold: envFloat("NMS_THRESHOLD", constants.DefaultNMSThreshold),
		},
		Recognizer: RecognizerConfig{
			ModelPath: envString("RECOGNIZER_MODEL_PATH", "models/w600k_r50.onnx"),
			Profile:   envString("RECOGNIZER_PROFILE", "w600k_r50"),
			Alignment: strings.ToLower(envString("ALIGNMENT_METHOD", constants.AlignmentPrecise)),
		},
		Matching: MatchingConfig{
			Threshold: envFloat("RECOGNITION_THRESHOLD", constants.DefaultRecognitionThreshold),
		},
		Registry: RegistryConfig{
			FaceDBPath: os.Getenv("FACE_DB_PATH"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		Web: WebConfig{
			Host:     envString("WEB_HOST", "0.0.0.0"),
			Port:     envInt("WEB_PORT", 8080),
			APIToken: os.Getenv("WEB_API_TOKEN"),

			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
		Models: models,
	}
}

// Validate checks the enumerated settings and that the selected model profiles exist.
func (c *Config) Validate() error {
	switch c.Inference.Backend {
	case constants.BackendONNX, constants.BackendRemote:
	default:
		return fmt.Errorf("unknown INFERENCE_BACKEND %q (expected onnx or remote)", c.Inference.Backend)
	}
	switch c.Recognizer.Alignment {
	case constants.AlignmentPrecise, constants.AlignmentHeuristic:
	default:
		return fmt.Errorf("unknown ALIGNMENT_METHOD %q (expected precise or heuristic)", c.Recognizer.Alignment)
	}
	if _, err := c.DetectorProfile(); err != nil {
		return err
	}
	if _, err := c.RecognizerProfile(); err != nil {
		return err
	}
	return nil
}

// DetectorProfile returns the selected detector profile.
func (c *Config) DetectorProfile() (DetectorProfile, error) {
	p, ok := c.Models.Detectors[c.Detector.Profile]
	if !ok {
		return DetectorProfile{}, fmt.Errorf("unknown detector profile %q", c.Detector.Profile)
	}
	return p, nil
}

// RecognizerProfile returns the selected recognizer profile.
func (c *Config) RecognizerProfile() (RecognizerProfile, error) {
	p, ok := c.Models.Recognizers[c.Recognizer.Profile]
	if !ok {
		return RecognizerProfile{}, fmt.Errorf("unknown recognizer profile %q", c.Recognizer.Profile)
	}
	if len(p.ReferenceLandmarks) != constants.LandmarkCount {
		return RecognizerProfile{}, fmt.Errorf("recognizer profile %q needs %d reference landmarks, has %d",
			c.Recognizer.Profile, constants.LandmarkCount, len(p.ReferenceLandmarks))
	}
	return p, nil
}
