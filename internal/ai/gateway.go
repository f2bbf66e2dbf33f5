// Package ai implements the AI Gateway (C4): an outbound adapter to two LLM services,
// an analysis model and a sentiment/search model. The gateway does no retries and no
// structural parsing; it returns raw text (plus citations for the search variant) and
// lets the pipeline's Parsers (internal/parsing) recover structure.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Gateway calls the two upstream LLM services over HTTP, in the teacher's
// baseURL+POST+JSON-envelope microservice-client idiom (internal/clients/tradernet).
type Gateway struct {
	analysisURL string
	searchURL   string
	client      *http.Client
	log         zerolog.Logger
}

// Config configures a Gateway.
type Config struct {
	AnalysisBaseURL string        // the analysis LLM service, e.g. a local inference runtime
	SearchBaseURL   string        // the sentiment/web-search-capable LLM service
	Timeout         time.Duration // ceiling enforced on every call
}

// New returns a Gateway. A zero Timeout defaults to 5 minutes, since the analysis model
// "may take minutes" per spec §4.4.
func New(cfg Config, log zerolog.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Gateway{
		analysisURL: cfg.AnalysisBaseURL,
		searchURL:   cfg.SearchBaseURL,
		client:      &http.Client{Timeout: timeout},
		log:         log.With().Str("component", "ai_gateway").Logger(),
	}
}

// callRequest and callResponse are the request/response wrapper the upstream services
// speak: a prompt, model and token limit out; a success flag with text or an error back.
type callRequest struct {
	Prompt    string `json:"prompt"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

type callResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error"`
}

// Call invokes the analysis model (heavyweight, may take minutes) and returns its raw
// textual completion with no structural parsing.
func (g *Gateway) Call(ctx context.Context, prompt, model string, maxTokens int) (string, error) {
	correlationID := uuid.NewString()
	log := g.log.With().Str("correlation_id", correlationID).Str("model", model).Logger()
	log.Debug().Int("prompt_len", len(prompt)).Msg("calling analysis model")

	var resp callResponse
	if err := g.post(ctx, g.analysisURL+"/v1/generate", callRequest{Prompt: prompt, Model: model, MaxTokens: maxTokens}, &resp); err != nil {
		log.Warn().Err(err).Msg("analysis model call failed")
		return "", fmt.Errorf("analysis model call %s: %w", correlationID, err)
	}
	if !resp.Success {
		return "", fmt.Errorf("analysis model call %s failed: %s", correlationID, resp.Error)
	}
	return resp.Text, nil
}

// SearchOptions configures CallWithSearch.
type SearchOptions struct {
	XSearch   bool
	WebSearch bool
	MaxTokens int
	Model     string
}

// SearchResult is CallWithSearch's return value.
type SearchResult struct {
	Text      string
	Citations []string
}

type searchRequest struct {
	Prompt    string `json:"prompt"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	XSearch   bool   `json:"x_search"`
	WebSearch bool   `json:"web_search"`
}

type searchResponse struct {
	Success   bool     `json:"success"`
	Text      string   `json:"text"`
	Citations []string `json:"citations"`
	Error     string   `json:"error"`
}

// CallWithSearch invokes the sentiment/discovery model, which may ground its answer in
// live web or X search results, returning text plus any citations it used.
func (g *Gateway) CallWithSearch(ctx context.Context, prompt string, opts SearchOptions) (*SearchResult, error) {
	correlationID := uuid.NewString()
	log := g.log.With().Str("correlation_id", correlationID).Str("model", opts.Model).Logger()
	log.Debug().Int("prompt_len", len(prompt)).Bool("x_search", opts.XSearch).Bool("web_search", opts.WebSearch).Msg("calling search model")

	req := searchRequest{Prompt: prompt, Model: opts.Model, MaxTokens: opts.MaxTokens, XSearch: opts.XSearch, WebSearch: opts.WebSearch}
	var resp searchResponse
	if err := g.post(ctx, g.searchURL+"/v1/generate_with_search", req, &resp); err != nil {
		log.Warn().Err(err).Msg("search model call failed")
		return nil, fmt.Errorf("search model call %s: %w", correlationID, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("search model call %s failed: %s", correlationID, resp.Error)
	}
	return &SearchResult{Text: resp.Text, Citations: resp.Citations}, nil
}

func (g *Gateway) post(ctx context.Context, url string, body interface{}, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("timeout exceeded: %w", ctx.Err())
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
