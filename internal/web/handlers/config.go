package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	service FaceService
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, svc FaceService) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		service: svc,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Backend              string  `json:"backend"`
	DetectorProfile      string  `json:"detector_profile"`
	RecognizerProfile    string  `json:"recognizer_profile"`
	Alignment            string  `json:"alignment"`
	DetectionThreshold   float64 `json:"detection_threshold"`
	NMSThreshold         float64 `json:"nms_threshold"`
	RecognitionThreshold float64 `json:"recognition_threshold"`
	Store                string  `json:"store,omitempty"`
	Faces                int     `json:"faces"`
}

// Get returns the active models and thresholds
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	response := ConfigResponse{
		Backend:              h.config.Inference.Backend,
		DetectorProfile:      h.config.Detector.Profile,
		RecognizerProfile:    h.config.Recognizer.Profile,
		Alignment:            h.config.Recognizer.Alignment,
		DetectionThreshold:   h.config.Detector.Threshold,
		NMSThreshold:         h.config.Detector.NMSThreshold,
		RecognitionThreshold: h.config.Matching.Threshold,
	}
	if database.IsInitialized() {
		response.Store = database.BackendName()
	}
	if h.service != nil {
		registry := h.service.Registry()
		response.Faces = registry.Len()
		response.RecognitionThreshold = registry.Engine().Threshold
	}

	respondJSON(w, http.StatusOK, response)
}
