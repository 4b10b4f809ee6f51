package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Dispatch.Timeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %s", cfg.Dispatch.Timeout)
	}
	if cfg.Dispatch.FetchConcurrency != 8 {
		t.Errorf("Expected fetch concurrency 8, got %d", cfg.Dispatch.FetchConcurrency)
	}
	if cfg.Session.TTL != 7*24*time.Hour {
		t.Errorf("Expected 7 day session TTL, got %s", cfg.Session.TTL)
	}
	if cfg.Map.DepotName != "Houses of Parliament" {
		t.Errorf("Expected default depot name, got %s", cfg.Map.DepotName)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DISPATCH_PORT", "9090")
	t.Setenv("DISPATCH_API_TIMEOUT", "2s")
	t.Setenv("DISPATCH_API_RPS", "12.5")
	t.Setenv("DISPATCH_FETCH_CONCURRENCY", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("APP_ENV", "production")

	cfg := Load()

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Dispatch.Timeout != 2*time.Second {
		t.Errorf("Expected 2s timeout, got %s", cfg.Dispatch.Timeout)
	}
	if cfg.Dispatch.RequestsPerSecond != 12.5 {
		t.Errorf("Expected 12.5 rps, got %v", cfg.Dispatch.RequestsPerSecond)
	}
	if cfg.Dispatch.FetchConcurrency != 8 {
		t.Errorf("Expected invalid value to fall back to 8, got %d", cfg.Dispatch.FetchConcurrency)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 2 {
		t.Errorf("Expected 2 origins, got %v", cfg.Server.CORSAllowedOrigins)
	}
	if !cfg.IsProduction() {
		t.Error("Expected production environment")
	}
}
