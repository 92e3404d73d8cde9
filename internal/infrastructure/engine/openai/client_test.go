package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/booklab/booklab/internal/core/domain"
	"github.com/booklab/booklab/internal/infrastructure/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 1,
		RetryMaxBackoff:     1,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
	return New(Config{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		Model:          "gpt-test",
		SourceLanguage: "Japanese",
		TargetLanguage: "English",
		RequestsPerMin: 6000,
	}, exec)
}

func responsePayload(text string) map[string]any {
	return map[string]any{
		"output": []map[string]any{
			{
				"type": "message",
				"content": []map[string]any{
					{"type": "output_text", "text": text},
				},
			},
		},
	}
}

func TestExtractFromTextParsesModelOutput(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/responses" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		out := `{"plain_text":"猫がいる","annotated_text":"猫[ねこ]がいる","translated_text":"There is a cat"}`
		json.NewEncoder(w).Encode(responsePayload(out))
	})

	result, err := client.ExtractFromText(context.Background(), "猫がいる")
	if err != nil {
		t.Fatalf("ExtractFromText() error = %v", err)
	}
	if result.PlainText != "猫がいる" || result.TranslatedText != "There is a cat" {
		t.Fatalf("unexpected extraction: %+v", result)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
}

func TestExtractFromTextRepairsFencedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		out := "```json\n{\"plain_text\":\"text\",\"annotated_text\":\"text\",\"translated_text\":\"translated\"}\n```"
		json.NewEncoder(w).Encode(responsePayload(out))
	})

	result, err := client.ExtractFromText(context.Background(), "some page")
	if err != nil {
		t.Fatalf("ExtractFromText() error = %v", err)
	}
	if result.TranslatedText != "translated" {
		t.Fatalf("unexpected extraction: %+v", result)
	}
}

func TestExtractFromImageSendsDataURL(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		out := `{"plain_text":"page","annotated_text":"page","translated_text":"page"}`
		json.NewEncoder(w).Encode(responsePayload(out))
	})

	_, err := client.ExtractFromImage(context.Background(), []byte{0x89, 0x50}, "image/png")
	if err != nil {
		t.Fatalf("ExtractFromImage() error = %v", err)
	}

	raw, _ := json.Marshal(gotBody)
	if !strings.Contains(string(raw), "data:image/png;base64,") {
		t.Fatalf("request body has no data URL: %s", raw)
	}
}

func TestExtractFromTextRejectsBlankInputWithoutRequest(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.ExtractFromText(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if called {
		t.Fatal("engine endpoint must not be called for blank input")
	}
}

func TestExtractFromTextWrapsServerErrorAsTemporary(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.ExtractFromText(context.Background(), "page text")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestExtractFromTextFailsOnEmptyModelOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"output": []any{}})
	})

	_, err := client.ExtractFromText(context.Background(), "page text")
	if err == nil {
		t.Fatal("expected error for empty model output")
	}
}
