package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultAnalysisTimeout bounds one analysis call. The sweep interval is
// 60s; a call that takes longer than this would bleed into the next tick.
const DefaultAnalysisTimeout = 45 * time.Second

const maxAnalysisResponseSize = 8 << 20 // 8 MiB

// HTTPScorer calls the external analysis service.
type HTTPScorer struct {
	url    string
	client *http.Client
}

var _ Scorer = (*HTTPScorer)(nil)

// NewHTTPScorer creates a scorer client for the given endpoint.
func NewHTTPScorer(url string) *HTTPScorer {
	return &HTTPScorer{
		url:    url,
		client: &http.Client{Timeout: DefaultAnalysisTimeout},
	}
}

type analysisResponse struct {
	Results []ScoreUpdate `json:"results"`
}

// RunAnalysis triggers one analysis pass and decodes the returned scores.
func (s *HTTPScorer) RunAnalysis(ctx context.Context) ([]ScoreUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalysisResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read analysis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis service returned %d", resp.StatusCode)
	}

	var out analysisResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	return out.Results, nil
}
