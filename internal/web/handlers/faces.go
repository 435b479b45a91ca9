package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/imageutil"
	"github.com/kozaktomas/face-matcher/internal/pipeline"
)

// FacesHandler serves the face pipeline endpoints.
type FacesHandler struct {
	service FaceService
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(svc FaceService) *FacesHandler {
	return &FacesHandler{service: svc}
}

// DetectResponse lists every face found in an image.
type DetectResponse struct {
	Count int             `json:"count"`
	Faces []pipeline.Face `json:"faces"`
}

// Compare handles POST /compare with multipart fields image1 and image2.
func (h *FacesHandler) Compare(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	img1, _, err := readImage(r, "image1")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	img2, _, err := readImage(r, "image2")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Compare(r.Context(), img1, img2)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Detect handles POST /detect. The image must contain exactly one face,
// which is returned with its embedding.
func (h *FacesHandler) Detect(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	img, _, err := readImage(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	face, err := h.service.DetectSingle(r.Context(), img)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, face)
}

// DetectAll handles POST /detect/all and returns every face with its
// embedding. An image without faces yields an empty list.
func (h *FacesHandler) DetectAll(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	img, _, err := readImage(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	dets, err := h.service.Detect(r.Context(), img)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	faces := make([]pipeline.Face, 0, len(dets))
	for _, det := range dets {
		face, err := h.service.Extract(r.Context(), img, det)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		faces = append(faces, face)
	}
	respondJSON(w, http.StatusOK, DetectResponse{Count: len(faces), Faces: faces})
}

// Align handles POST /align and returns the aligned crop of one face as JPEG.
// The optional "face" query parameter selects a face by rank.
func (h *FacesHandler) Align(w http.ResponseWriter, r *http.Request) {
	index := 0
	if v := r.URL.Query().Get("face"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "face must be a non-negative integer")
			return
		}
		index = n
	}

	if !parseForm(w, r) {
		return
	}
	img, _, err := readImage(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	dets, err := h.service.Detect(r.Context(), img)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if len(dets) == 0 {
		respondServiceError(w, r, facematch.ErrNoFaceDetected)
		return
	}
	if index >= len(dets) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("face %d not found, image has %d", index, len(dets)))
		return
	}

	aligned, err := h.service.AlignFace(img, dets[index])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	data, err := imageutil.EncodeJPEG(aligned, imageutil.DefaultJPEGQuality)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
