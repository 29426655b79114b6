package mesh_test

import (
	"errors"
	"testing"

	mesh "github.com/goliatone/go-mesh"
)

func TestConfigValidateRequiresLanguages(t *testing.T) {
	cfg := mesh.DefaultConfig()
	cfg.Languages = []string{}

	if err := cfg.Validate(); !errors.Is(err, mesh.ErrDefaultLanguageMissing) {
		t.Fatalf("expected ErrDefaultLanguageMissing, got %v", err)
	}
}

func TestConfigValidateLoggingProviderUnknown(t *testing.T) {
	cfg := mesh.DefaultConfig()
	cfg.Logging.Provider = "invalid"

	if err := cfg.Validate(); !errors.Is(err, mesh.ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	cfg, err := mesh.LoadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DefaultView != "default" {
		t.Fatalf("expected default view, got %q", cfg.DefaultView)
	}
}
