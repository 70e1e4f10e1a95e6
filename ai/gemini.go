package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"emotion-character-demo/backend/pkg/logger"
	"emotion-character-demo/backend/pkg/metrics"
	"emotion-character-demo/backend/pkg/secrets"

	"google.golang.org/genai"
)

// GeminiConfig holds the model and sampling parameters
type GeminiConfig struct {
	Model           string
	APIKeyName      string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
	CallTimeout     time.Duration
	// BaseURL overrides the API endpoint; empty uses the public one
	BaseURL string
}

// DefaultGeminiConfig mirrors the production tuning
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Model:           "gemini-1.5-flash",
		APIKeyName:      "GEMINI_API_KEY",
		Temperature:     0.9,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 800,
		CallTimeout:     30 * time.Second,
	}
}

var safetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// GeminiGenerator calls the Gemini API. The client is created on first use so
// a missing key only fails the turns that need it.
type GeminiGenerator struct {
	cfg     GeminiConfig
	secrets secrets.Manager
	log     *logger.Logger

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewGeminiGenerator(cfg GeminiConfig, sm secrets.Manager, log *logger.Logger) *GeminiGenerator {
	if log == nil {
		log = logger.GetGlobal()
	}
	if sm == nil {
		sm = secrets.StaticManager{}
	}
	return &GeminiGenerator{cfg: cfg, secrets: sm, log: log}
}

func (g *GeminiGenerator) init(ctx context.Context) error {
	g.once.Do(func() {
		key, err := g.secrets.GetSecret(ctx, g.cfg.APIKeyName)
		if err != nil {
			g.initErr = fmt.Errorf("%w: %s", ErrNotConfigured, g.cfg.APIKeyName)
			return
		}

		cc := &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		}
		if g.cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
		}

		client, err := genai.NewClient(ctx, cc)
		if err != nil {
			g.initErr = fmt.Errorf("failed to create gemini client: %w", err)
			return
		}
		g.client = client
		g.log.Info("Gemini client initialized", "model", g.cfg.Model)
	})
	return g.initErr
}

func (g *GeminiGenerator) contentConfig(systemInstruction string) *genai.GenerateContentConfig {
	safety := make([]*genai.SafetySetting, 0, len(safetyCategories))
	for _, category := range safetyCategories {
		safety = append(safety, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}

	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(g.cfg.Temperature),
		TopP:              genai.Ptr(g.cfg.TopP),
		TopK:              genai.Ptr(g.cfg.TopK),
		MaxOutputTokens:   g.cfg.MaxOutputTokens,
		SafetySettings:    safety,
	}
}

// Generate performs exactly one API call; retrying is the caller's job
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := g.init(ctx); err != nil {
		return nil, err
	}

	if g.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(req.UserMessage), g.contentConfig(req.SystemInstruction))
	latency := time.Since(start)
	metrics.GenerationLatency.WithLabelValues(g.cfg.Model).Observe(latency.Seconds())

	if err != nil {
		return nil, describeError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{Text: text, Model: g.cfg.Model, Latency: latency}, nil
}

// describeError lifts the SDK's status code into a StatusError so retry
// decisions never depend on the message text.
func describeError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.Code, Status: apiErr.Status, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Code: apiErrPtr.Code, Status: apiErrPtr.Status, Err: err}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
