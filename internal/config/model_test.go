package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadModelConfigMissingFileUsesDefaults(t *testing.T) {
	mc, err := LoadModelConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("a missing file is not an error: %v", err)
	}
	if mc.Elo.KFactor != 20.0 {
		t.Errorf("expected default K factor, got %.1f", mc.Elo.KFactor)
	}
	if len(mc.Leagues) == 0 {
		t.Error("defaults must include leagues")
	}
}

func TestLoadModelConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	content := []byte("elo:\n  k_factor: 32.0\nbetting:\n  min_edge: 0.10\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	mc, err := LoadModelConfig(path)
	if err != nil {
		t.Fatalf("LoadModelConfig failed: %v", err)
	}
	if mc.Elo.KFactor != 32.0 {
		t.Errorf("expected overridden K factor 32, got %.1f", mc.Elo.KFactor)
	}
	if mc.Betting.MinEdge != 0.10 {
		t.Errorf("expected overridden edge 0.10, got %.2f", mc.Betting.MinEdge)
	}
	// Untouched sections keep their defaults.
	if mc.Form.LookbackGames != 5 {
		t.Errorf("expected default lookback, got %d", mc.Form.LookbackGames)
	}
}

func TestLoadModelConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte("elo: ["), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadModelConfig(path); err == nil {
		t.Error("malformed YAML must be rejected")
	}
}
