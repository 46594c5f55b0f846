package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"evoting-backend/internal/logger"

	"go.uber.org/zap"
)

// HTTPExtractor talks to the face-model sidecar. The sidecar hosts the
// detection and recognition networks and answers with either a descriptor or
// a stable failure code.
type HTTPExtractor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPExtractor(baseURL string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type extractResponse struct {
	Descriptor []float64 `json:"descriptor"`
	Error      string    `json:"error"`
	FaceCount  int       `json:"face_count"`
}

func (e *HTTPExtractor) LoadModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/models/load", nil)
	if err != nil {
		return err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("face model load request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("face model load returned status %d", resp.StatusCode)
	}

	return nil
}

func (e *HTTPExtractor) ExtractDescriptor(ctx context.Context, image []byte) (Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/descriptor", bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Error("descriptor extraction request failed", zap.Error(err))
		return nil, ErrModelUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrModelUnavailable
	}

	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		logger.Error("descriptor extraction returned malformed body", zap.Int("status", resp.StatusCode))
		return nil, ErrModelUnavailable
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return Descriptor(parsed.Descriptor), nil
	case http.StatusUnprocessableEntity:
		if parsed.FaceCount > 1 {
			return nil, ErrMultipleFacesDetected
		}
		return nil, ErrNoFaceDetected
	default:
		logger.Error("descriptor extraction failed",
			zap.Int("status", resp.StatusCode),
			zap.String("error", parsed.Error))
		return nil, ErrModelUnavailable
	}
}
