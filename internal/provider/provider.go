// Package provider is the OpenAI-compatible HTTP client (spec.md §4.7):
// base-URL normalization, caller-header sanitization, optional rate
// limiting, sanitized error propagation, and coercion of a chat
// completion's content field into the scan report schema.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hqescan/scanner/internal/discovery"
	"github.com/hqescan/scanner/internal/ratelimit"
	"github.com/hqescan/scanner/internal/report"
	"github.com/hqescan/scanner/internal/secretstore"
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	APIKey       secretstore.Secret
	DefaultModel string
	Headers      map[string]string
	Timeout      time.Duration
	RetryCount   int
	Limiter      *ratelimit.Limiter
}

// defaultTimeout is the provider client's out-of-the-box per-request
// timeout (spec.md §6), overridden by HQE_OPENAI_TIMEOUT_SECONDS when set
// and by Config.Timeout when the caller specifies one explicitly.
const defaultTimeout = 60 * time.Second

// defaultTimeoutFromEnv resolves the default timeout, honoring
// HQE_OPENAI_TIMEOUT_SECONDS when it's set to a positive integer.
func defaultTimeoutFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv("HQE_OPENAI_TIMEOUT_SECONDS"))
	if raw == "" {
		return defaultTimeout
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return defaultTimeout
	}
	return time.Duration(secs) * time.Second
}

// headerTransport injects a fixed set of sanitized headers into every
// outbound request, alongside whatever *openai.Client already sets.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Client is the OpenAI-compatible provider client.
type Client struct {
	inner        *openai.Client
	baseURL      string
	defaultModel string
	limiter      *ratelimit.Limiter
}

// New validates config and constructs a Client.
func New(config Config) (*Client, error) {
	base, err := discovery.SanitizeBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}
	headers, err := discovery.SanitizeHeaders(config.Headers)
	if err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeoutFromEnv()
	}

	transportCfg := openai.DefaultConfig(config.APIKey.Expose())
	transportCfg.BaseURL = base.String()
	transportCfg.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: &headerTransport{headers: headers},
	}

	return &Client{
		inner:        openai.NewClientWithConfig(transportCfg),
		baseURL:      base.String(),
		defaultModel: config.DefaultModel,
		limiter:      config.Limiter,
	}, nil
}

// BaseURL returns the normalized base URL this client was constructed with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DefaultModel returns the model identifier requests fall back to when
// ChatRequest.Model is empty.
func (c *Client) DefaultModel() string {
	return c.defaultModel
}

// ChatMessage is one message in a chat completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest is the wire-format-aligned chat completion request (spec.md
// §6's LLM wire format).
type ChatRequest struct {
	Model          string
	Messages       []ChatMessage
	Temperature    *float32
	MaxTokens      int
	JSONResponse   bool
	EstimatedTokens int // used for rate-limiter token-budget accounting only
}

// ChatResponse is the coerced result of a successful chat call.
type ChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Chat sends a chat completion request, honoring the attached rate
// limiter (if any) before the request is built.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx, req.EstimatedTokens); err != nil {
			return nil, fmt.Errorf("provider: rate limiter: %w", err)
		}
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	completionReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		completionReq.Temperature = *req.Temperature
	}
	if req.JSONResponse {
		completionReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.inner.CreateChatCompletion(ctx, completionReq)
	if err != nil {
		return nil, fmt.Errorf("provider: chat request failed: %s", sanitizeErrorMessage(err.Error()))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("provider: chat response contained no choices")
	}

	return &ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// TestConnection reports whether the provider is reachable and accepting
// requests, by listing models.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.inner.ListModels(ctx)
	return err == nil
}

const maxSanitizedErrorLen = 256

var (
	openAIKeyPattern  = regexp.MustCompile(`sk-[A-Za-z0-9]{8,}`)
	githubTokenPattern = regexp.MustCompile(`ghp_[A-Za-z0-9]{20,}`)
	longBase64Pattern = regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`)
)

// sanitizeErrorMessage redacts known secret shapes from a provider error
// message and truncates it, so a raw upstream body is never propagated to
// callers (spec.md §4.7).
func sanitizeErrorMessage(msg string) string {
	msg = openAIKeyPattern.ReplaceAllString(msg, "sk-***REDACTED***")
	msg = githubTokenPattern.ReplaceAllString(msg, "ghp_***REDACTED***")
	msg = longBase64Pattern.ReplaceAllString(msg, "***REDACTED***")
	if len(msg) > maxSanitizedErrorLen {
		msg = msg[:maxSanitizedErrorLen] + "…"
	}
	return msg
}

// AnalysisResult is the JSON shape coerced out of a chat completion's
// content field for scan-analysis requests (spec.md §4.7).
type AnalysisResult struct {
	Findings  []report.Finding  `json:"findings"`
	Todos     []report.TodoItem `json:"todos"`
	Blockers  []report.Blocker  `json:"blockers"`
	IsPartial bool              `json:"is_partial"`
}

var fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// CoerceAnalysisResult extracts and decodes an AnalysisResult from a chat
// completion's free-form content: first by detecting a fenced ```json
// block, otherwise by brace-balanced extraction that respects string
// literals and escapes. Missing fields default to empty/false.
func CoerceAnalysisResult(content string) (*AnalysisResult, error) {
	candidate := extractJSONCandidate(content)
	if candidate == "" {
		return nil, fmt.Errorf("provider: no JSON object found in response content")
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		return nil, fmt.Errorf("provider: decode analysis result: %w", err)
	}
	return &result, nil
}

func extractJSONCandidate(content string) string {
	if m := fencedJSONPattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return extractBraceBalanced(content)
}

// extractBraceBalanced finds the first top-level {...} object in s,
// respecting string literals and backslash escapes so braces inside JSON
// string values don't confuse the balance count.
func extractBraceBalanced(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
