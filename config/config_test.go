package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Workflow.SimilarityThreshold != 0.7 {
		t.Errorf("expected similarity threshold 0.7, got %f", cfg.Workflow.SimilarityThreshold)
	}
	if cfg.Workflow.TopK != 5 || cfg.Workflow.MaxIterations != 5 {
		t.Errorf("unexpected defaults: top_k=%d max_iterations=%d", cfg.Workflow.TopK, cfg.Workflow.MaxIterations)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("workflow:\n  top_k: 8\n  max_iterations: 3\n  stage_timeout: 10s\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Workflow.TopK != 8 {
		t.Errorf("expected top_k 8, got %d", cfg.Workflow.TopK)
	}
	if cfg.Workflow.MaxIterations != 3 {
		t.Errorf("expected max_iterations 3, got %d", cfg.Workflow.MaxIterations)
	}
	if cfg.Workflow.StageTimeout != 10*time.Second {
		t.Errorf("expected stage_timeout 10s, got %v", cfg.Workflow.StageTimeout)
	}
	// untouched fields keep defaults
	if cfg.Workflow.SimilarityThreshold != 0.7 {
		t.Errorf("expected default similarity threshold, got %f", cfg.Workflow.SimilarityThreshold)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RAGROUTER_MAX_ITERATIONS", "7")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Workflow.MaxIterations != 7 {
		t.Errorf("expected env override 7, got %d", cfg.Workflow.MaxIterations)
	}
}

func TestWorkflowOptionsBridge(t *testing.T) {
	cfg := Default()
	cfg.Workflow.SupportContact = "1900-5555"
	opts := cfg.Workflow.Options()
	if len(opts) != 9 {
		t.Fatalf("expected 9 options with support contact set, got %d", len(opts))
	}
	cfg.Workflow.SupportContact = ""
	if got := len(cfg.Workflow.Options()); got != 8 {
		t.Fatalf("expected 8 options without support contact, got %d", got)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := Default()
	cfg.Workflow.SimilarityThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for threshold > 1")
	}
}

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator().
		RequirePositive("a", 0).
		RequireNonEmpty("b", "").
		ValidateRange("c", 5, 1, 3)
	if len(v.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(v.Errors()))
	}
	if v.Err() == nil {
		t.Fatal("expected combined error")
	}
}
