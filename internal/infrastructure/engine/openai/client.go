package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/booklab/booklab/internal/core/domain"
	"github.com/booklab/booklab/internal/infrastructure/resilience"
)

// Client calls the OpenAI Responses API to extract, annotate and translate
// page content. Rate limiting, retries and circuit breaking happen here so
// callers only see the final result or a classified error.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	sourceLang string
	targetLang string

	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	SourceLanguage string
	TargetLanguage string
	Timeout        time.Duration
	RequestsPerMin int
}

func New(cfg Config, executor *resilience.Executor) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 60
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		sourceLang: cfg.SourceLanguage,
		targetLang: cfg.TargetLanguage,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		executor:   executor,
	}
}

func (c *Client) ExtractFromImage(ctx context.Context, image []byte, mimeType string) (domain.Extraction, error) {
	if len(image) == 0 {
		return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, "extract_image", fmt.Errorf("empty image"))
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	input := []map[string]any{
		{
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": imageTaskText(c.sourceLang, c.targetLang)},
				{"type": "input_image", "image_url": dataURL},
			},
		},
	}
	return c.extract(ctx, "extract_image", input)
}

func (c *Client) ExtractFromText(ctx context.Context, rawText string) (domain.Extraction, error) {
	if strings.TrimSpace(rawText) == "" {
		return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, "extract_text", fmt.Errorf("empty text"))
	}

	input := []map[string]any{
		{
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": textTaskText(c.sourceLang, c.targetLang, rawText)},
			},
		},
	}
	return c.extract(ctx, "extract_text", input)
}

func (c *Client) extract(ctx context.Context, operation string, input []map[string]any) (domain.Extraction, error) {
	request := map[string]any{
		"model":        c.model,
		"instructions": extractionInstructions(c.sourceLang, c.targetLang),
		"input":        input,
	}

	var raw string
	err := c.executor.Execute(ctx, "openai."+operation, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		text, err := c.createResponse(ctx, operation, request)
		if err != nil {
			return err
		}
		raw = text
		return nil
	}, classifyEngineError)
	if err != nil {
		return domain.Extraction{}, wrapTemporaryIfNeeded(operation, err)
	}

	return parseExtraction(operation, raw)
}

func (c *Client) createResponse(ctx context.Context, operation string, request map[string]any) (string, error) {
	var response struct {
		Output []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := c.postJSON(ctx, "/responses", request, &response, operation); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range response.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("openai %s: empty model output", operation)
	}
	return text, nil
}

// parseExtraction tolerates code fences and prose around the JSON object the
// model was instructed to return.
func parseExtraction(operation, raw string) (domain.Extraction, error) {
	var out domain.Extraction
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &out); err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("parse extraction json: %w", err))
	}
	out.PlainText = strings.TrimSpace(out.PlainText)
	out.AnnotatedText = strings.TrimSpace(out.AnnotatedText)
	out.TranslatedText = strings.TrimSpace(out.TranslatedText)
	if out.PlainText == "" {
		return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("extraction has no plain text"))
	}
	return out, nil
}

func extractJSONObject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}
