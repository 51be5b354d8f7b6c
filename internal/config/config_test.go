package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults should succeed: %v", err)
	}

	if cfg.Filter.MinDropPercent != 10.0 {
		t.Fatalf("default min_drop_percent = %v", cfg.Filter.MinDropPercent)
	}
	if cfg.Filter.FreshnessWindow != 60*time.Second {
		t.Fatalf("default freshness_window = %v", cfg.Filter.FreshnessWindow)
	}
	if cfg.Portals.BatchSize != 200 || cfg.Portals.MaxRecords != 5000 {
		t.Fatalf("default pagination = %d/%d", cfg.Portals.BatchSize, cfg.Portals.MaxRecords)
	}
	if cfg.Monitor.CheckIntervalMin != 60*time.Second || cfg.Monitor.CheckIntervalMax != 120*time.Second {
		t.Fatalf("default check interval = %v/%v", cfg.Monitor.CheckIntervalMin, cfg.Monitor.CheckIntervalMax)
	}
	if cfg.Seen.RetentionMultiplier != 10 {
		t.Fatalf("default retention multiplier = %d", cfg.Seen.RetentionMultiplier)
	}
}

func TestSeenRetention(t *testing.T) {
	cfg := &Config{}
	cfg.Filter.FreshnessWindow = 60 * time.Second
	cfg.Seen.RetentionMultiplier = 10
	if got := cfg.SeenRetention(); got != 10*time.Minute {
		t.Fatalf("retention = %v, want 10m", got)
	}
}

func TestValidateRejectsBadBounds(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults should succeed: %v", err)
	}

	cfg.Monitor.CheckIntervalMax = cfg.Monitor.CheckIntervalMin - time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("inverted check interval bounds should fail validation")
	}
}

func TestValidateRejectsZeroFreshness(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults should succeed: %v", err)
	}

	cfg.Filter.FreshnessWindow = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero freshness window should fail validation")
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{}
	cfg.Export.MaxDataPoints = 500
	if cfg.ResolveMaxPoints(0) != 500 {
		t.Fatal("zero override should fall back to config")
	}
	if cfg.ResolveMaxPoints(42) != 42 {
		t.Fatal("positive override should win")
	}
}
