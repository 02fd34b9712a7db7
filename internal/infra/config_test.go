package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfigDefaultStorageBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:8080/static"
	if cfg.Storage.BaseURL != expected {
		t.Fatalf("Storage.BaseURL mismatch: got %q want %q", cfg.Storage.BaseURL, expected)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.Storage.BaseURL != expected {
		t.Fatalf("Storage.BaseURL mismatch: got %q want %q", cfg.Storage.BaseURL, expected)
	}
}

func TestLoadConfigHonorsExplicitStorageBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_BASE_URL", "https://cdn.example.com/static/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Storage.BaseURL != "https://cdn.example.com/static" {
		t.Fatalf("Storage.BaseURL mismatch: got %q", cfg.Storage.BaseURL)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error without DATABASE_URL")
	}
}

func TestLoadConfigWorkerDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Worker.MockDelayMin != 8*time.Second || cfg.Worker.MockDelayMax != 15*time.Second {
		t.Fatalf("mock delay window = [%s, %s], want [8s, 15s]", cfg.Worker.MockDelayMin, cfg.Worker.MockDelayMax)
	}
	if cfg.Worker.GenerationTimeout != 15*time.Minute {
		t.Fatalf("GenerationTimeout = %s, want 15m", cfg.Worker.GenerationTimeout)
	}
	if cfg.Billing.VideoTokenCost != 50 || cfg.Billing.MaxActiveJobsPerUser != 3 {
		t.Fatalf("billing defaults = %+v", cfg.Billing)
	}
	if cfg.Billing.RefundOnFailure {
		t.Fatalf("RefundOnFailure should default to false")
	}
}

func TestLoadConfigSanitizesWorker(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WORKER_CONCURRENCY", "0")
	t.Setenv("MOCK_DELAY_MIN", "10s")
	t.Setenv("MOCK_DELAY_MAX", "5s")
	t.Setenv("LEASE_DURATION", "90s")
	t.Setenv("LEASE_HEARTBEAT", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com ,, http://localhost:3000")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Worker.Concurrency != 1 {
		t.Fatalf("Concurrency = %d, want 1", cfg.Worker.Concurrency)
	}
	if cfg.Worker.MockDelayMax != 10*time.Second {
		t.Fatalf("MockDelayMax = %s, want 10s", cfg.Worker.MockDelayMax)
	}
	if cfg.Worker.Heartbeat != 30*time.Second {
		t.Fatalf("Heartbeat = %s, want 30s", cfg.Worker.Heartbeat)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://app.example.com" {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
}

func TestValidateStorage(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Driver: "s3"}}
	if err := cfg.ValidateStorage(); err == nil {
		t.Fatalf("expected error for s3 without bucket")
	}
	cfg.S3.Bucket = "videos"
	if err := cfg.ValidateStorage(); err != nil {
		t.Fatalf("ValidateStorage() error: %v", err)
	}
	cfg.Storage.Driver = "gcs"
	if err := cfg.ValidateStorage(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
