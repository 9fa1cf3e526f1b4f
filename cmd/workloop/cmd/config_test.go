package cmd

import (
	"testing"

	"github.com/spf13/viper"
)

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Limit != 0 {
		t.Errorf("default limit should be unbounded, got %d", cfg.Limit)
	}
	if cfg.Worker {
		t.Error("default mode should be batch, not worker")
	}
	if cfg.SleepSeconds != 10 {
		t.Errorf("default sleep should be 10s, got %d", cfg.SleepSeconds)
	}
	if cfg.MemoryLimitBytes != 0 {
		t.Errorf("default memory limit should be none, got %d", cfg.MemoryLimitBytes)
	}
	if cfg.SpoolDir != "./spool" {
		t.Errorf("unexpected default spool dir: %s", cfg.SpoolDir)
	}
}

func TestResolveConfigParsesMemoryLimit(t *testing.T) {
	viper.Set("memory_limit", "256m")
	defer viper.Set("memory_limit", "")

	cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := int64(256 << 20); cfg.MemoryLimitBytes != want {
		t.Errorf("expected %d bytes, got %d", want, cfg.MemoryLimitBytes)
	}
}

func TestResolveConfigRejectsBadMemoryLimit(t *testing.T) {
	viper.Set("memory_limit", "lots")
	defer viper.Set("memory_limit", "")

	if _, err := resolveConfig(); err == nil {
		t.Error("expected an error for an unparseable memory limit")
	}
}
