// Package remote runs inference sessions on an HTTP sidecar that speaks
// msgpack-encoded tensors.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-matcher/internal/inference"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultBaseURL = "http://localhost:8500"
	contentType    = "application/msgpack"

	// DetectEndpoint receives detector input tensors.
	DetectEndpoint = "/v1/detect"
	// EmbedEndpoint receives recognizer input tensors.
	EmbedEndpoint = "/v1/embed"
)

// Request is the body posted to the sidecar.
type Request struct {
	Input inference.Tensor `msgpack:"input"`
}

// Response is the body returned by the sidecar.
type Response struct {
	Outputs []inference.Tensor `msgpack:"outputs"`
	Error   string             `msgpack:"error,omitempty"`
}

// Session posts tensors to one sidecar endpoint.
type Session struct {
	baseURL  string
	endpoint string
	client   *http.Client
}

var _ inference.Session = (*Session)(nil)

// NewSession creates a session for baseURL+endpoint.
func NewSession(baseURL, endpoint string, timeout time.Duration) *Session {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Session{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewEngine creates detector and recognizer sessions on one sidecar.
func NewEngine(baseURL string, timeout time.Duration) *inference.Engine {
	return &inference.Engine{
		Detector:   NewSession(baseURL, DetectEndpoint, timeout),
		Recognizer: NewSession(baseURL, EmbedEndpoint, timeout),
	}
}

// URL returns the endpoint this session posts to.
func (s *Session) URL() string {
	return s.baseURL + s.endpoint
}

// Run posts input and decodes the output tensors.
func (s *Session) Run(ctx context.Context, input inference.Tensor) ([]inference.Tensor, error) {
	reqBody, err := msgpack.Marshal(Request{Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out Response
	if err := msgpack.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("inference error: %s", out.Error)
	}
	if len(out.Outputs) == 0 {
		return nil, inference.ErrNoOutput
	}

	for i, t := range out.Outputs {
		if t.Elements() != len(t.Data) {
			return nil, fmt.Errorf("output %d: shape %v does not match %d values", i, t.Shape, len(t.Data))
		}
	}
	return out.Outputs, nil
}
