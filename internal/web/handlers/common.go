package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-matcher/internal/align"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/embedding"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/imageutil"
	"github.com/kozaktomas/face-matcher/internal/logging"
)

// errInvalidForm is the message for unreadable multipart bodies.
const errInvalidForm = "failed to parse multipart form"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps pipeline errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, facematch.ErrNoFaceDetected),
		errors.Is(err, facematch.ErrMultipleFacesDetected),
		errors.Is(err, align.ErrDegenerateLandmarks):
		return http.StatusUnprocessableEntity
	case errors.Is(err, facematch.ErrDuplicateIdentity):
		return http.StatusConflict
	case errors.Is(err, facematch.ErrEmptyIdentity),
		errors.Is(err, facematch.ErrDimensionMismatch),
		errors.Is(err, embedding.ErrZeroNorm),
		errors.Is(err, imageutil.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondServiceError writes err with its mapped status and logs server-side failures.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logging.WithRequestID(chiMiddleware.GetReqID(r.Context())).
			WithField("error", sanitizeForLog(err.Error())).
			Error("face operation failed")
	}
	respondError(w, status, err.Error())
}

// parseForm reads a multipart body of at most MaxUploadSize bytes. On failure
// it writes the response and returns false.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidForm)
		return false
	}
	return true
}

// readImage decodes the uploaded file in field and returns it with its file name.
func readImage(r *http.Request, field string) (image.Image, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("%s is required", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", field, err)
	}
	img, _, err := imageutil.Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", field, err)
	}
	return img, header.Filename, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
