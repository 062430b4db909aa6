package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"macrodash/internal/providers"
)

const (
	defaultModel          = "gemini-3-flash-preview"
	defaultAPIVersion     = "v1beta"
	defaultTimeoutSeconds = 0
)

var ErrMissingAPIKey = errors.New("gemini: api key is required")

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	APIVersion string
	// Timeout bounds the single upstream call; zero leaves it to the caller's context.
	Timeout time.Duration
}

type Provider struct {
	config Config
	client *genai.Client
	tools  []*genai.Tool
}

func New() (*Provider, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (*Provider, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{
			APIVersion: cfg.APIVersion,
		},
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientConfig.HTTPOptions.BaseURL = strings.TrimRight(base, "/") + "/"
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Provider{
		config: cfg,
		client: client,
		tools:  []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}, nil
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		APIKey:     firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"),
		Model:      getenv("GEMINI_MODEL", defaultModel),
		BaseURL:    getenv("GEMINI_BASE_URL", ""),
		APIVersion: getenv("GEMINI_API_VERSION", defaultAPIVersion),
		Timeout:    time.Duration(getenvInt("GEMINI_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second,
	}
	if cfg.APIKey == "" {
		return Config{}, ErrMissingAPIKey
	}
	return cfg, nil
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) Model() string {
	return p.config.Model
}

// Generate issues exactly one generateContent call with Google Search
// grounding enabled.
func (p *Provider) Generate(ctx context.Context, prompt string) (providers.Response, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Tools: p.tools,
	})
	if err != nil {
		return providers.Response{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	return FromResponse(resp), nil
}

// FromResponse flattens an SDK response into the provider-neutral shape. The
// raw document keeps the API's JSON field names so citation metadata can be
// read without the SDK types.
func FromResponse(resp *genai.GenerateContentResponse) providers.Response {
	if resp == nil {
		return providers.Response{}
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		raw = nil
	}
	return providers.Response{
		Text: resp.Text(),
		Raw:  raw,
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

var _ providers.Generator = (*Provider)(nil)
