package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-matcher/internal/detection"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/pipeline"
)

// fakeService is a canned FaceService for handler tests
type fakeService struct {
	registry *facematch.Registry

	dets      []detection.Detection
	detectErr error

	face       pipeline.Face
	extractErr error

	aligned  *image.RGBA
	alignErr error

	compare    pipeline.CompareResult
	compareErr error

	register    pipeline.RegisterResult
	registerErr error
	gotIdentity string
	gotSource   string

	recognitions []pipeline.Recognition
	recognizeErr error
	bestOnly     bool

	removed   map[string]bool
	removeErr error

	clearErr error
	cleared  bool
}

func newFakeService() *fakeService {
	return &fakeService{
		registry: facematch.NewRegistry(facematch.NewEngine(1.24)),
		removed:  map[string]bool{},
	}
}

func (f *fakeService) Detect(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	return f.dets, f.detectErr
}

func (f *fakeService) Extract(ctx context.Context, img image.Image, det detection.Detection) (pipeline.Face, error) {
	face := f.face
	face.Detection = det
	return face, f.extractErr
}

func (f *fakeService) DetectSingle(ctx context.Context, img image.Image) (pipeline.Face, error) {
	if f.detectErr != nil {
		return pipeline.Face{}, f.detectErr
	}
	switch n := len(f.dets); {
	case n == 0:
		return pipeline.Face{}, facematch.ErrNoFaceDetected
	case n > 1:
		return pipeline.Face{}, fmt.Errorf("%w: found %d faces", facematch.ErrMultipleFacesDetected, n)
	}
	return f.Extract(ctx, img, f.dets[0])
}

func (f *fakeService) AlignFace(img image.Image, det detection.Detection) (*image.RGBA, error) {
	return f.aligned, f.alignErr
}

func (f *fakeService) Compare(ctx context.Context, img1, img2 image.Image) (pipeline.CompareResult, error) {
	return f.compare, f.compareErr
}

func (f *fakeService) Register(ctx context.Context, identity string, img image.Image, source string) (pipeline.RegisterResult, error) {
	f.gotIdentity, f.gotSource = identity, source
	return f.register, f.registerErr
}

func (f *fakeService) Recognize(ctx context.Context, img image.Image) ([]pipeline.Recognition, error) {
	return f.recognitions, f.recognizeErr
}

func (f *fakeService) RecognizeBest(ctx context.Context, img image.Image) ([]pipeline.Recognition, error) {
	f.bestOnly = true
	return f.recognitions, f.recognizeErr
}

func (f *fakeService) Remove(ctx context.Context, identity string) (bool, error) {
	return f.removed[identity], f.removeErr
}

func (f *fakeService) Clear(ctx context.Context) error {
	f.cleared = true
	return f.clearErr
}

func (f *fakeService) Registry() *facematch.Registry {
	return f.registry
}

// pngBytes encodes a small solid image
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{R: 200, G: 150, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart POST with the given fields and files
func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	for field, data := range files {
		part, err := writer.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(data)
	}
	writer.Close()

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
