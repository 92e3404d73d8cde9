package config

import "testing"

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("WORKER_BACKLOG", "")
	t.Setenv("OPENAI_REQUESTS_PER_MIN", "")

	cfg := Load()
	if cfg.NATSSubject != "documents.process" {
		t.Fatalf("expected default subject documents.process, got %q", cfg.NATSSubject)
	}
	if cfg.WorkerCount != 2 {
		t.Fatalf("expected default worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.WorkerBacklog != 100 {
		t.Fatalf("expected default backlog 100, got %d", cfg.WorkerBacklog)
	}
	if cfg.OpenAIRequestsPerMin != 60 {
		t.Fatalf("expected default rate 60, got %d", cfg.OpenAIRequestsPerMin)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("WORKER_BACKLOG", "250")
	t.Setenv("SOURCE_LANGUAGE", "Korean")
	t.Setenv("OPENAI_TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected worker count 4, got %d", cfg.WorkerCount)
	}
	if cfg.WorkerBacklog != 250 {
		t.Fatalf("expected backlog 250, got %d", cfg.WorkerBacklog)
	}
	if cfg.SourceLanguage != "Korean" {
		t.Fatalf("expected source language override, got %q", cfg.SourceLanguage)
	}
	if cfg.OpenAITimeoutSeconds != 120 {
		t.Fatalf("expected fallback timeout 120 for invalid value, got %d", cfg.OpenAITimeoutSeconds)
	}
}
