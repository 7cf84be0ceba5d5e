package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FRIENDGRAPH_JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port got %d", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl got %s", cfg.AccessTokenTTL)
	}
	if cfg.ObjectStore.Enabled() {
		t.Fatal("expected exports disabled without a bucket")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FRIENDGRAPH_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}

func TestLoadOverridesAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	env := "FRIENDGRAPH_JWT_SECRET=from-file\nFRIENDGRAPH_S3_BUCKET=snapshots\nFRIENDGRAPH_PORT=9000\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("FRIENDGRAPH_PORT", "9100")
	t.Setenv("FRIENDGRAPH_RATE_LIMIT_WINDOW", "not-a-duration")
	// Setenv restores the previous values once the variables loaded from
	// .env are no longer needed.
	for _, key := range []string{"FRIENDGRAPH_JWT_SECRET", "FRIENDGRAPH_S3_BUCKET"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != "from-file" {
		t.Fatalf("expected secret from .env got %q", cfg.JWTSecret)
	}
	if cfg.AppPort != 9100 {
		t.Fatalf("expected environment to win over .env got %d", cfg.AppPort)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("expected fallback for invalid duration got %s", cfg.RateLimitWindow)
	}
	if !cfg.ObjectStore.Enabled() || cfg.ObjectStore.Bucket != "snapshots" {
		t.Fatalf("unexpected object store config %+v", cfg.ObjectStore)
	}
}
