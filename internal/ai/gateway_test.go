package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCall_ReturnsTextOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/generate", r.URL.Path)
		var req callRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "deepseek-r1:70b", req.Model)
		json.NewEncoder(w).Encode(callResponse{Success: true, Text: "bullish on tech"})
	}))
	defer srv.Close()

	g := New(Config{AnalysisBaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	text, err := g.Call(context.Background(), "scan the market", "deepseek-r1:70b", 2000)
	require.NoError(t, err)
	require.Equal(t, "bullish on tech", text)
}

func TestCall_UpstreamFailureFlagIsReturnedAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(callResponse{Success: false, Error: "model overloaded"})
	}))
	defer srv.Close()

	g := New(Config{AnalysisBaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := g.Call(context.Background(), "scan", "m", 100)
	require.ErrorContains(t, err, "model overloaded")
}

func TestCall_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	g := New(Config{AnalysisBaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := g.Call(context.Background(), "scan", "m", 100)
	require.ErrorContains(t, err, "status 500")
}

func TestCall_ContextTimeoutIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		json.NewEncoder(w).Encode(callResponse{Success: true, Text: "too late"})
	}))
	defer srv.Close()

	g := New(Config{AnalysisBaseURL: srv.URL, Timeout: time.Minute}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := g.Call(ctx, "scan", "m", 100)
	require.ErrorContains(t, err, "timeout exceeded")
}

func TestCallWithSearch_ReturnsTextAndCitations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/generate_with_search", r.URL.Path)
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.XSearch)
		json.NewEncoder(w).Encode(searchResponse{
			Success:   true,
			Text:      "sentiment is mixed ahead of CPI",
			Citations: []string{"https://example.com/cpi-preview"},
		})
	}))
	defer srv.Close()

	g := New(Config{SearchBaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	result, err := g.CallWithSearch(context.Background(), "what's the mood", SearchOptions{XSearch: true, Model: "grok-4"})
	require.NoError(t, err)
	require.Equal(t, "sentiment is mixed ahead of CPI", result.Text)
	require.Equal(t, []string{"https://example.com/cpi-preview"}, result.Citations)
}

func TestCallWithSearch_UpstreamFailureFlagIsReturnedAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{Success: false, Error: "search quota exceeded"})
	}))
	defer srv.Close()

	g := New(Config{SearchBaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	_, err := g.CallWithSearch(context.Background(), "what's the mood", SearchOptions{Model: "grok-4"})
	require.ErrorContains(t, err, "search quota exceeded")
}

func TestNew_ZeroTimeoutDefaultsToFiveMinutes(t *testing.T) {
	g := New(Config{}, zerolog.Nop())
	require.Equal(t, 5*time.Minute, g.client.Timeout)
}
