// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Detector constants
const (
	// DetectorInputWidth is the width of the letterboxed detector input
	DetectorInputWidth = 640

	// DetectorInputHeight is the height of the letterboxed detector input
	DetectorInputHeight = 640

	// DefaultDetectionThreshold is the minimum score a candidate must exceed to be decoded
	DefaultDetectionThreshold = 0.5

	// DefaultNMSThreshold is the IoU above which a lower-scored candidate is suppressed
	DefaultNMSThreshold = 0.4

	// AnchorsPerCell is the number of anchors the detector predicts per feature-map cell
	AnchorsPerCell = 2

	// LandmarkCount is the number of facial landmarks per detection
	LandmarkCount = 5
)

// DetectorStrides are the feature-map strides of the detector outputs, in output order.
var DetectorStrides = []int{8, 16, 32}

// Recognizer constants
const (
	// AlignedFaceSize is the width and height of the aligned face fed to the recognizer
	AlignedFaceSize = 112

	// DefaultEmbeddingDim is the length of the recognizer output vector
	DefaultEmbeddingDim = 512

	// DefaultRecognitionThreshold is the squared Euclidean distance under which two
	// unit embeddings are considered the same identity
	DefaultRecognitionThreshold = 1.24
)

// Alignment constants
const (
	// AlignmentPrecise selects the five-point least-squares similarity transform
	AlignmentPrecise = "precise"

	// AlignmentHeuristic selects the eye-angle rotate-and-crop method
	AlignmentHeuristic = "heuristic"
)

// Inference backend constants
const (
	// BackendONNX runs models in-process with ONNX Runtime
	BackendONNX = "onnx"

	// BackendRemote sends tensors to an inference sidecar
	BackendRemote = "remote"
)

// File upload constants
const (
	// MaxUploadSize is the maximum multipart upload size in bytes (32MB)
	MaxUploadSize = 32 << 20
)

// Processing constants
const (
	// DefaultNearestLimit is the default number of neighbours returned by nearest-face queries
	DefaultNearestLimit = 5

	// DefaultConcurrency is the default number of parallel workers for directory loads
	DefaultConcurrency = 4
)
