// Package discovery auto-detects OpenAI-compatible chat model providers and
// fetches their available chat models (spec.md §4.8): base-URL/header
// sanitization, provider-kind detection, structural (not kind-based)
// response parsing across the Venice/OpenRouter/generic schemas, a
// chat-model-only filter, and a disk-backed fresh/stale cache.
package discovery

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/idna"

	"github.com/hqescan/scanner/internal/secretstore"
)

// Kind identifies which provider-specific behavior applies.
type Kind string

const (
	KindVenice     Kind = "venice"
	KindOpenRouter Kind = "openrouter"
	KindXAI        Kind = "xai"
	KindOpenAI     Kind = "openai"
	KindGeneric    Kind = "generic"
)

// DetectKind infers a Kind from a normalized base URL's hostname.
func DetectKind(base *url.URL) Kind {
	host := normalizeHost(base.Hostname())
	switch {
	case strings.HasSuffix(host, "venice.ai"):
		return KindVenice
	case strings.HasSuffix(host, "openrouter.ai"):
		return KindOpenRouter
	case host == "api.x.ai" || strings.HasSuffix(host, ".x.ai"):
		return KindXAI
	case host == "api.openai.com":
		return KindOpenAI
	default:
		return KindGeneric
	}
}

// SanitizeBaseURL trims, validates, and normalizes a user-configured base
// URL per spec.md §4.7/§4.8: rejects empty/control-character input,
// requires https except for localhost/loopback, strips userinfo/query/
// fragment, and normalizes the path so a later `/models` join lands on the
// provider's actual API root.
func SanitizeBaseURL(input string) (*url.URL, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return nil, fmt.Errorf("discovery: empty base_url")
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return nil, fmt.Errorf("discovery: base_url contains control characters")
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("discovery: invalid base_url: %w", err)
	}
	if u.User != nil {
		return nil, fmt.Errorf("discovery: base_url must not include userinfo")
	}
	u.RawQuery = ""
	u.Fragment = ""

	host := normalizeHost(u.Hostname())
	isLocal := host == "localhost" || host == "127.0.0.1" || host == "::1"

	switch u.Scheme {
	case "https":
	case "http":
		if !isLocal {
			return nil, fmt.Errorf("discovery: unsupported scheme http for non-local host %q", host)
		}
	default:
		return nil, fmt.Errorf("discovery: unsupported scheme %q", u.Scheme)
	}

	u.Path = normalizePath(strings.TrimSuffix(u.Path, "/"), host)
	return u, nil
}

// normalizeHost lowercases a hostname and converts it to its ASCII
// (punycode) form so suffix comparisons against provider hostnames (all
// plain ASCII) aren't fooled by a Unicode-confusable or already-punycode
// variant of the same host. Hosts idna rejects (IP literals, empty host)
// are returned lowercased and otherwise unchanged.
func normalizeHost(host string) string {
	host = strings.ToLower(host)
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host
	}
	return ascii
}

func normalizePath(path, host string) string {
	switch {
	case path == "":
		if strings.HasSuffix(host, "venice.ai") {
			return "/api/v1"
		}
		return "/v1"
	case strings.Contains(path, "/openai/deployments/"):
		return path
	case strings.HasSuffix(host, "venice.ai") && path == "/v1":
		return "/api/v1"
	case strings.HasSuffix(path, "/api/v1"):
		return path
	case strings.HasSuffix(path, "/v1"):
		return path
	default:
		return path + "/v1"
	}
}

// SanitizeHeaders validates caller-supplied headers, dropping any
// Authorization header (API keys flow through the secret store, never a
// caller-supplied header) and rejecting control characters or non-token
// header names.
func SanitizeHeaders(headers map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		name := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if name == "" {
			return nil, fmt.Errorf("discovery: empty header name")
		}
		if strings.EqualFold(name, "authorization") {
			continue
		}
		if containsControl(name) || containsControl(val) {
			return nil, fmt.Errorf("discovery: control characters in header %q", name)
		}
		if !isHeaderToken(name) {
			return nil, fmt.Errorf("discovery: invalid header name %q", name)
		}
		out[name] = val
	}
	return out, nil
}

func containsControl(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}

func isHeaderToken(name string) bool {
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

// ModelTraits captures capability flags a provider may advertise.
type ModelTraits struct {
	SupportsVision         bool
	SupportsTools          bool
	SupportsReasoning      bool
	SupportsWebSearch      bool
	SupportsResponseSchema bool
	SupportsLogprobs       bool
	CodeOptimized          bool
}

// ModelPricing holds USD-per-million-token pricing when the provider
// reports it.
type ModelPricing struct {
	InputUSDPerMillion  *float64
	OutputUSDPerMillion *float64
}

// Model is one discovered chat model.
type Model struct {
	ID            string
	Name          string
	ProviderKind  Kind
	ContextLength *int
	Traits        ModelTraits
	Pricing       ModelPricing
}

// ModelList is the full discovery response, cacheable as-is.
type ModelList struct {
	ProviderKind Kind      `json:"provider_kind"`
	BaseURL      string    `json:"base_url"`
	FetchedAtUnixS int64   `json:"fetched_at_unix_s"`
	Models       []Model   `json:"models"`
}

var chatDenyList = []string{
	"embedding", "embed", "whisper", "tts", "audio", "transcribe",
	"moderation", "realtime", "image", "vision-preview", "dall-e",
	"speech", "asr", "vision", "video", "rerank", "rank", "ocr",
	"inpaint", "upscale", "tokenizer",
}

// IsChatModelID reports whether id looks like a chat-capable model rather
// than an embeddings/audio/vision/etc. model.
func IsChatModelID(id string) bool {
	lower := strings.ToLower(id)
	for _, deny := range chatDenyList {
		if strings.Contains(lower, deny) {
			return false
		}
	}
	return true
}

// Client discovers chat models from an OpenAI-compatible provider.
type Client struct {
	HTTPClient *http.Client
	BaseURL    *url.URL
	Kind       Kind
	Headers    map[string]string
	APIKey     secretstore.Secret
	Cache      *DiskCache
}

// NewClient validates baseURLRaw and headersRaw and constructs a Client.
func NewClient(baseURLRaw string, headersRaw map[string]string, apiKey secretstore.Secret, timeout time.Duration, cache *DiskCache) (*Client, error) {
	base, err := SanitizeBaseURL(baseURLRaw)
	if err != nil {
		return nil, err
	}
	headers, err := SanitizeHeaders(headersRaw)
	if err != nil {
		return nil, err
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    base,
		Kind:       DetectKind(base),
		Headers:    headers,
		APIKey:     apiKey,
		Cache:      cache,
	}, nil
}

// cacheKey derives a URL-safe slug from (provider_kind, base_url), leaking
// no secrets.
func (c *Client) cacheKey() string {
	raw := strings.ToLower(fmt.Sprintf("%s_%s", c.Kind, c.BaseURL.String()))
	var b strings.Builder
	for _, r := range raw {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func (c *Client) modelsURL() *url.URL {
	u := *c.BaseURL
	path := u.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path + "models"
	u.RawQuery = ""
	if c.Kind == KindVenice {
		q := u.Query()
		q.Set("type", "all")
		u.RawQuery = q.Encode()
	}
	return &u
}

// DiscoverChatModels fetches (or returns cached) chat models for the
// configured provider.
func (c *Client) DiscoverChatModels() (*ModelList, error) {
	if c.Cache != nil {
		if cached, err := c.Cache.GetFresh(c.cacheKey()); err == nil && cached != nil {
			return cached, nil
		}
	}

	req, err := http.NewRequest(http.MethodGet, c.modelsURL().String(), nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: build request: %w", err)
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	if !c.APIKey.IsEmpty() {
		req.Header.Set("Authorization", "Bearer "+c.APIKey.Expose())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("discovery: provider returned status %d", resp.StatusCode)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("discovery: decode response: %w", err)
	}

	var data []map[string]json.RawMessage
	if err := json.Unmarshal(raw["data"], &data); err != nil {
		return nil, fmt.Errorf("discovery: missing or invalid data array: %w", err)
	}

	models := make([]Model, 0, len(data))
	for _, item := range data {
		m, ok, err := parseModelItem(c.Kind, item)
		if err != nil {
			return nil, err
		}
		if ok {
			models = append(models, m)
		}
	}

	filtered := models[:0]
	for _, m := range models {
		if c.Kind == KindVenice {
			if m.ProviderKind == KindVenice {
				filtered = append(filtered, m)
			}
		} else if IsChatModelID(m.ID) {
			filtered = append(filtered, m)
		}
	}
	models = filtered

	out := &ModelList{
		ProviderKind:   c.Kind,
		BaseURL:        c.BaseURL.String(),
		FetchedAtUnixS: time.Now().Unix(),
		Models:         models,
	}

	if c.Cache != nil {
		_ = c.Cache.Set(c.cacheKey(), out)
	}
	return out, nil
}

func parseModelItem(kind Kind, item map[string]json.RawMessage) (Model, bool, error) {
	idRaw, ok := item["id"]
	if !ok {
		return Model{}, false, nil
	}
	var id string
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return Model{}, false, nil
	}

	if modelSpecRaw, hasSpec := item["model_spec"]; hasSpec {
		return parseVeniceModel(id, modelSpecRaw, item)
	}

	if _, hasCtx := item["context_length"]; hasCtx {
		return parseOpenRouterModel(id, item), true, nil
	}
	if _, hasPricing := item["pricing"]; hasPricing {
		return parseOpenRouterModel(id, item), true, nil
	}

	return Model{ID: id, Name: id, ProviderKind: kind}, true, nil
}

func parseVeniceModel(id string, modelSpecRaw json.RawMessage, item map[string]json.RawMessage) (Model, bool, error) {
	if typeRaw, ok := item["type"]; ok {
		var modelType string
		_ = json.Unmarshal(typeRaw, &modelType)
		if modelType != "" && modelType != "text" && modelType != "code" {
			return Model{}, false, nil
		}
	}

	var spec struct {
		Name                  string `json:"name"`
		AvailableContextTokens *int  `json:"availableContextTokens"`
		Capabilities          struct {
			SupportsVision          bool `json:"supportsVision"`
			SupportsFunctionCalling bool `json:"supportsFunctionCalling"`
			SupportsReasoning       bool `json:"supportsReasoning"`
			SupportsWebSearch       bool `json:"supportsWebSearch"`
			SupportsResponseSchema  bool `json:"supportsResponseSchema"`
			SupportsLogProbs        bool `json:"supportsLogProbs"`
			OptimizedForCode        bool `json:"optimizedForCode"`
		} `json:"capabilities"`
		Pricing struct {
			Input  struct{ USD *float64 `json:"usd"` } `json:"input"`
			Output struct{ USD *float64 `json:"usd"` } `json:"output"`
		} `json:"pricing"`
	}
	_ = json.Unmarshal(modelSpecRaw, &spec)

	name := spec.Name
	if name == "" {
		name = id
	}

	return Model{
		ID:            id,
		Name:          name,
		ProviderKind:  KindVenice,
		ContextLength: spec.AvailableContextTokens,
		Traits: ModelTraits{
			SupportsVision:         spec.Capabilities.SupportsVision,
			SupportsTools:          spec.Capabilities.SupportsFunctionCalling,
			SupportsReasoning:      spec.Capabilities.SupportsReasoning,
			SupportsWebSearch:      spec.Capabilities.SupportsWebSearch,
			SupportsResponseSchema: spec.Capabilities.SupportsResponseSchema,
			SupportsLogprobs:       spec.Capabilities.SupportsLogProbs,
			CodeOptimized:          spec.Capabilities.OptimizedForCode,
		},
		Pricing: ModelPricing{
			InputUSDPerMillion:  spec.Pricing.Input.USD,
			OutputUSDPerMillion: spec.Pricing.Output.USD,
		},
	}, true, nil
}

func parseOpenRouterModel(id string, item map[string]json.RawMessage) Model {
	var name string
	if nameRaw, ok := item["name"]; ok {
		_ = json.Unmarshal(nameRaw, &name)
	}
	if name == "" {
		name = id
	}

	var ctxLen *int
	if ctxRaw, ok := item["context_length"]; ok {
		var n int
		if json.Unmarshal(ctxRaw, &n) == nil {
			ctxLen = &n
		}
	}

	pricing := ModelPricing{}
	if pricingRaw, ok := item["pricing"]; ok {
		var p struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		}
		if json.Unmarshal(pricingRaw, &p) == nil {
			if v, err := strconv.ParseFloat(p.Prompt, 64); err == nil {
				scaled := v * 1_000_000.0
				pricing.InputUSDPerMillion = &scaled
			}
			if v, err := strconv.ParseFloat(p.Completion, 64); err == nil {
				scaled := v * 1_000_000.0
				pricing.OutputUSDPerMillion = &scaled
			}
		}
	}

	return Model{
		ID:           id,
		Name:         name,
		ProviderKind: KindOpenRouter,
		ContextLength: ctxLen,
		Pricing:      pricing,
	}
}

// DiskCache is a write-temp-then-rename disk cache for ModelList values,
// keyed by a caller-supplied slug.
type DiskCache struct {
	Dir      string
	FreshTTL time.Duration
	StaleTTL time.Duration
}

// DefaultDiskCache builds a DiskCache rooted under dir with the spec's
// default 5-minute fresh / 24-hour stale TTLs.
func DefaultDiskCache(dir string) *DiskCache {
	return &DiskCache{
		Dir:      dir,
		FreshTTL: 5 * time.Minute,
		StaleTTL: 24 * time.Hour,
	}
}

func (d *DiskCache) path(key string) string {
	return filepath.Join(d.Dir, key+".json")
}

// GetFresh returns a cached entry only if it was written within FreshTTL.
func (d *DiskCache) GetFresh(key string) (*ModelList, error) {
	return d.getWithin(key, d.FreshTTL)
}

// GetStale returns a cached entry if it was written within StaleTTL.
func (d *DiskCache) GetStale(key string) (*ModelList, error) {
	return d.getWithin(key, d.StaleTTL)
}

func (d *DiskCache) getWithin(key string, ttl time.Duration) (*ModelList, error) {
	p := d.path(key)
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("discovery: stat cache entry: %w", err)
	}
	if time.Since(info.ModTime()) > ttl {
		return nil, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("discovery: read cache entry: %w", err)
	}
	var out ModelList
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("discovery: decode cache entry: %w", err)
	}
	return &out, nil
}

// Set writes value to the cache atomically (write-temp then rename, per
// spec.md §5's single-writer/atomic-readers requirement).
func (d *DiskCache) Set(key string, value *ModelList) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("discovery: create cache dir: %w", err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("discovery: encode cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(d.Dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("discovery: create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("discovery: write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("discovery: close temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, d.path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("discovery: rename temp cache file: %w", err)
	}
	return nil
}
