package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPWrapperRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wrapperRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.UserID)
		assert.Equal(t, "ping", req.Prompt)
		json.NewEncoder(w).Encode(WrapperResponse{Response: "pong", OriginalAnswer: "raw pong"})
	}))
	defer srv.Close()

	c := NewHTTPWrapper(srv.URL, 0)
	resp, err := c.GetNoisyResponse(context.Background(), "alice", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Response)
	assert.Equal(t, "raw pong", resp.OriginalAnswer)
}

func TestHTTPWrapperErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPWrapper(srv.URL, time.Second)
	_, err := c.GetNoisyResponse(context.Background(), "alice", "ping")
	assert.ErrorContains(t, err, "502")
}

func TestHTTPWrapperTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(WrapperResponse{Response: "late"})
	}))
	defer srv.Close()

	c := NewHTTPWrapper(srv.URL, 20*time.Millisecond)
	_, err := c.GetNoisyResponse(context.Background(), "alice", "ping")
	assert.Error(t, err)
}

func TestHTTPWrapperEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewHTTPWrapper(srv.URL, time.Second)
	_, err := c.GetNoisyResponse(context.Background(), "alice", "ping")
	assert.ErrorContains(t, err, "empty response")
}
