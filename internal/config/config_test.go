package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.IsProduction() {
		t.Fatal("development config must not report production")
	}
	if cfg.DirectDebit.Channel != "OFFICE_BANKING" {
		t.Fatalf("unexpected default channel %q", cfg.DirectDebit.Channel)
	}
	if cfg.DirectDebit.Adapter != "csv" {
		t.Fatalf("unexpected default adapter %q", cfg.DirectDebit.Adapter)
	}
	if !cfg.DirectDebit.RequireActiveMandate {
		t.Fatal("mandate requirement should default on")
	}
	if cfg.DirectDebit.TxTimeout != 30*time.Second {
		t.Fatalf("unexpected tx timeout %v", cfg.DirectDebit.TxTimeout)
	}
	if cfg.Storage.Backend != "local" {
		t.Fatalf("unexpected storage backend %q", cfg.Storage.Backend)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DD_ADAPTER", "GALICIA")
	t.Setenv("DD_MAX_BATCH_ROWS", "500")
	t.Setenv("FISCAL_BASE_URL", "https://fiscal.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
	if cfg.DirectDebit.Adapter != "galicia" {
		t.Fatalf("adapter not normalized: %q", cfg.DirectDebit.Adapter)
	}
	if cfg.DirectDebit.MaxBatchRows != 500 {
		t.Fatalf("unexpected max rows %d", cfg.DirectDebit.MaxBatchRows)
	}
	if cfg.Fiscal.BaseURL != "https://fiscal.example.com" {
		t.Fatalf("base url not trimmed: %q", cfg.Fiscal.BaseURL)
	}
}
