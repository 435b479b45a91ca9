package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-matcher/internal/align"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/embedding"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/imageutil"
)

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusCreated, map[string]int{"count": 42})

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")
	if recorder.Body.String() != "{\"count\":42}\n" {
		t.Errorf("unexpected body '%s'", recorder.Body.String())
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusBadRequest, "something went wrong")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "something went wrong")
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no face", facematch.ErrNoFaceDetected, http.StatusUnprocessableEntity},
		{"wrapped multiple faces", fmt.Errorf("image2: %w", facematch.ErrMultipleFacesDetected), http.StatusUnprocessableEntity},
		{"degenerate landmarks", fmt.Errorf("aligning face: %w", align.ErrDegenerateLandmarks), http.StatusUnprocessableEntity},
		{"duplicate", facematch.ErrDuplicateIdentity, http.StatusConflict},
		{"empty identity", facematch.ErrEmptyIdentity, http.StatusBadRequest},
		{"dimension", facematch.ErrDimensionMismatch, http.StatusBadRequest},
		{"zero norm", embedding.ErrZeroNorm, http.StatusBadRequest},
		{"bad image", imageutil.ErrUnsupportedFormat, http.StatusBadRequest},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"joined", errors.Join(errors.New("boom"), facematch.ErrNoFaceDetected), http.StatusUnprocessableEntity},
		{"other", errors.New("onnx exploded"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusForError(tc.err); got != tc.want {
				t.Errorf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\nb\r\nc"); got != "abc" {
		t.Errorf("sanitizeForLog() = %q, want %q", got, "abc")
	}
}

func TestParseForm_TooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("x"), constants.MaxUploadSize+1024)
	req := multipartRequest(t, "/api/v1/detect", nil, map[string][]byte{"image": big})
	recorder := httptest.NewRecorder()

	if parseForm(recorder, req) {
		t.Fatal("expected parseForm to fail")
	}
	assertStatusCode(t, recorder, http.StatusRequestEntityTooLarge)
}

func TestParseForm_NotMultipart(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/detect", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	if parseForm(recorder, req) {
		t.Fatal("expected parseForm to fail")
	}
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidForm)
}

func TestReadImage(t *testing.T) {
	req := multipartRequest(t, "/api/v1/detect", nil, map[string][]byte{
		"image": pngBytes(t),
		"junk":  []byte("not an image"),
	})
	recorder := httptest.NewRecorder()
	if !parseForm(recorder, req) {
		t.Fatalf("parseForm failed: %s", recorder.Body.String())
	}

	img, name, err := readImage(req, "image")
	if err != nil {
		t.Fatalf("readImage() error = %v", err)
	}
	if img.Bounds().Dx() != 8 || name != "image.png" {
		t.Errorf("got %v %q", img.Bounds(), name)
	}

	if _, _, err := readImage(req, "missing"); err == nil || err.Error() != "missing is required" {
		t.Errorf("expected missing field error, got %v", err)
	}
	if _, _, err := readImage(req, "junk"); !errors.Is(err, imageutil.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	recorder := httptest.NewRecorder()

	HealthCheck(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}
