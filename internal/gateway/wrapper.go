package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxWrapperResponseSize caps how much of the wrapper's reply we will read.
const maxWrapperResponseSize = 4 << 20 // 4 MiB

// HTTPWrapper calls the redaction wrapper service over HTTP.
type HTTPWrapper struct {
	url    string
	client *http.Client
}

var _ Wrapper = (*HTTPWrapper)(nil)

// NewHTTPWrapper creates a wrapper client for the given endpoint. A zero
// timeout falls back to DefaultWrapperTimeout.
func NewHTTPWrapper(url string, timeout time.Duration) *HTTPWrapper {
	if timeout <= 0 {
		timeout = DefaultWrapperTimeout
	}
	return &HTTPWrapper{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type wrapperRequest struct {
	UserID string `json:"userId"`
	Prompt string `json:"prompt"`
}

// GetNoisyResponse forwards the prompt and decodes the served answer. The
// client timeout bounds the whole round trip; there is no retry.
func (w *HTTPWrapper) GetNoisyResponse(ctx context.Context, userID, prompt string) (*WrapperResponse, error) {
	body, err := json.Marshal(wrapperRequest{UserID: userID, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal wrapper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build wrapper request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wrapper call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxWrapperResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read wrapper response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wrapper returned %d", resp.StatusCode)
	}

	var out WrapperResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode wrapper response: %w", err)
	}
	if out.Response == "" {
		return nil, fmt.Errorf("wrapper returned empty response")
	}
	return &out, nil
}
