package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/pipeline"
)

// RegistryHandler serves the face registry endpoints.
type RegistryHandler struct {
	service FaceService
}

// NewRegistryHandler creates a new registry handler.
func NewRegistryHandler(svc FaceService) *RegistryHandler {
	return &RegistryHandler{service: svc}
}

// ListResponse lists registered identities.
type ListResponse struct {
	Count int                    `json:"count"`
	Faces []facematch.FaceRecord `json:"faces"`
}

// RegisterErrorResponse reports a rejected registration.
type RegisterErrorResponse struct {
	Error   string            `json:"error"`
	Outcome facematch.Outcome `json:"outcome,omitempty"`
	Code    int               `json:"code"`
	Faces   int               `json:"faces"`
}

// RecognizeResponse lists the faces of a query image with their matches.
type RecognizeResponse struct {
	Count int                    `json:"count"`
	Faces []pipeline.Recognition `json:"faces"`
}

// List handles GET /faces.
func (h *RegistryHandler) List(w http.ResponseWriter, r *http.Request) {
	faces := h.service.Registry().List()
	respondJSON(w, http.StatusOK, ListResponse{Count: len(faces), Faces: faces})
}

// Register handles POST /faces with multipart fields identity and image.
func (h *RegistryHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	identity := strings.TrimSpace(r.FormValue("identity"))
	if identity == "" {
		respondError(w, http.StatusBadRequest, "identity is required")
		return
	}
	img, source, err := readImage(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Register(r.Context(), identity, img, source)
	if err != nil {
		if result.Outcome == "" {
			respondServiceError(w, r, err)
			return
		}
		respondJSON(w, statusForError(err), RegisterErrorResponse{
			Error:   err.Error(),
			Outcome: result.Outcome,
			Code:    result.Code,
			Faces:   result.Faces,
		})
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// Recognize handles POST /faces/recognize. With ?best=1 every face keeps
// only its closest match.
func (h *RegistryHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	best, err := queryBool(r, "best")
	if err != nil {
		respondError(w, http.StatusBadRequest, "best must be a boolean")
		return
	}
	if !parseForm(w, r) {
		return
	}
	img, _, err := readImage(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	recognize := h.service.Recognize
	if best {
		recognize = h.service.RecognizeBest
	}
	faces, err := recognize(r.Context(), img)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, RecognizeResponse{Count: len(faces), Faces: faces})
}

// Delete handles DELETE /faces/{identity}.
func (h *RegistryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := url.PathUnescape(chi.URLParam(r, "identity"))
	if err != nil || strings.TrimSpace(identity) == "" {
		respondError(w, http.StatusBadRequest, "invalid identity")
		return
	}

	found, err := h.service.Remove(r.Context(), identity)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": identity})
}

// Clear handles DELETE /faces.
func (h *RegistryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	count := h.service.Registry().Len()
	if err := h.service.Clear(r.Context()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"cleared": count})
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
