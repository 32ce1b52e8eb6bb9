package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.ExtractionModel != "gemini-2.5-flash" {
		t.Errorf("ExtractionModel = %q, want %q", cfg.ExtractionModel, "gemini-2.5-flash")
	}
	if cfg.ExtractionFormat != "json" {
		t.Errorf("ExtractionFormat = %q, want %q", cfg.ExtractionFormat, "json")
	}
	if cfg.EmbeddingModel != "text-embedding-004" {
		t.Errorf("EmbeddingModel = %q, want %q", cfg.EmbeddingModel, "text-embedding-004")
	}
	if cfg.EmbeddingDim != 768 {
		t.Errorf("EmbeddingDim = %d, want 768", cfg.EmbeddingDim)
	}
	if cfg.ModelTimeout != 30*time.Second {
		t.Errorf("ModelTimeout = %v, want 30s", cfg.ModelTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("EMBEDDING_DIM", "256")
	t.Setenv("MODEL_TIMEOUT", "10s")
	t.Setenv("EXTRACTION_FORMAT", "keyvalue")

	cfg := Load()

	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}
	if cfg.EmbeddingDim != 256 {
		t.Errorf("EmbeddingDim = %d, want 256", cfg.EmbeddingDim)
	}
	if cfg.ModelTimeout != 10*time.Second {
		t.Errorf("ModelTimeout = %v, want 10s", cfg.ModelTimeout)
	}
	if cfg.ExtractionFormat != "keyvalue" {
		t.Errorf("ExtractionFormat = %q, want %q", cfg.ExtractionFormat, "keyvalue")
	}
}

func TestGetEnvIntBadValue(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "lots")

	cfg := Load()

	if cfg.EmbeddingDim != 768 {
		t.Errorf("EmbeddingDim = %d, want fallback 768", cfg.EmbeddingDim)
	}
}
