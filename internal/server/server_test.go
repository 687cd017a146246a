package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/config"
	"github.com/mbd888/sentinel/internal/gateway"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubWrapper implements gateway.Wrapper for testing
type stubWrapper struct{}

func (s *stubWrapper) GetNoisyResponse(ctx context.Context, userID, prompt string) (*gateway.WrapperResponse, error) {
	return &gateway.WrapperResponse{Response: "served answer for " + userID}, nil
}

// testConfig returns a minimal config for testing
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:              "0",
		Env:               "development",
		LogLevel:          "error",
		WrapperURL:        "http://localhost:8002/get_noisy_response",
		DetectorURL:       "http://localhost:8001/run_analysis",
		ThreatRecordsPath: filepath.Join(t.TempDir(), "threat_records.json"),
	}
}

// newTestServer creates a server with a stub wrapper and in-memory storage
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig(t), WithWrapper(&stubWrapper{}))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.WrapperURL = upstream.URL
	cfg.DetectorURL = upstream.URL

	s, err := New(cfg, WithWrapper(&stubWrapper{}))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestHealthDegradedWhenUpstreamDown(t *testing.T) {
	cfg := testConfig(t)
	// Nothing listens on these ports
	cfg.WrapperURL = "http://127.0.0.1:1/get_noisy_response"
	cfg.DetectorURL = "http://127.0.0.1:1/run_analysis"

	s, err := New(cfg, WithWrapper(&stubWrapper{}))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["status"] != "degraded" {
		t.Errorf("Expected status 'degraded', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	expected := map[string]bool{
		"POST:/api/v1/prompt":                   false,
		"GET:/api/v1/system-history":            false,
		"GET:/api/v1/users":                     false,
		"GET:/api/v1/admin/query-logs":          false,
		"GET:/api/v1/threat-log":                false,
		"GET:/api/v1/threat-log/user/:userId":   false,
		"GET:/api/v1/blockchain-stats":          false,
		"GET:/api/blockchain/status":            false,
		"GET:/api/threats/stats":                false,
		"GET:/ws":                               false,
		"GET:/metrics":                          false,
	}

	for _, route := range s.router.Routes() {
		key := route.Method + ":" + route.Path
		if _, ok := expected[key]; ok {
			expected[key] = true
		}
	}

	for key, found := range expected {
		if !found {
			t.Errorf("Route %s not registered", key)
		}
	}
}

// ---------------------------------------------------------------------------
// Prompt flow through the full router
// ---------------------------------------------------------------------------

func TestPromptFlow(t *testing.T) {
	s := newTestServer(t)

	body := `{"userId":"alice","prompt":"what is the meaning of life"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/prompt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["response"] != "served answer for alice" {
		t.Errorf("Unexpected response: %q", resp["response"])
	}

	// The served prompt must now show up in the system history
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/system-history", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var history struct {
		Count   int `json:"count"`
		Entries []struct {
			UserID string `json:"userId"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &history); err != nil {
		t.Fatalf("Failed to parse history: %v", err)
	}
	if history.Count != 1 {
		t.Fatalf("Expected 1 history entry, got %d", history.Count)
	}
	if history.Entries[0].UserID != "alice" {
		t.Errorf("Expected entry for alice, got %q", history.Entries[0].UserID)
	}
}

func TestPromptRejectsBadBody(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/prompt", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestUserIDParamValidated(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/threat-log/user/bad%20id", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed userId, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	s.router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
}

func TestRequestIDHonorsIncoming(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id-42")
	s.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "upstream-id-42" {
		t.Errorf("Expected incoming request ID to be echoed, got %q", got)
	}
}

func TestInfoEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["name"] != "Sentinel" {
		t.Errorf("Expected name 'Sentinel', got %v", resp["name"])
	}
	if resp["notarization"] != false {
		t.Errorf("Expected notarization disabled without a private key")
	}
}
