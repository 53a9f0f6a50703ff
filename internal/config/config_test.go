package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
	if cfg.OTPTTL != defaultOTPTTL || cfg.LoginRateLimit != defaultLoginLimit {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.JWTSecret == "" {
		t.Fatal("development should fall back to a dev secret")
	}
}

func TestLoadDurationsPreferSeconds(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("OTP_TTL_SECONDS", "90")
	t.Setenv("OTP_TTL", "1h")
	t.Setenv("RESET_TOKEN_TTL", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OTPTTL != 90*time.Second {
		t.Fatalf("expected 90s, got %s", cfg.OTPTTL)
	}
	if cfg.ResetTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m, got %s", cfg.ResetTokenTTL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ACCESS_TOKEN_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestProductionRequiresSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadClientReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	env := "BROKER_API_URL=https://api.example.com\nREQUEST_TIMEOUT_SECONDS=5\nTOKEN_STORE=memory\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	for _, key := range []string{"BROKER_API_URL", "REQUEST_TIMEOUT_SECONDS", "TOKEN_STORE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("STATE_DIR", dir)

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	if cfg.APIURL != "https://api.example.com" || cfg.RequestTimeout != 5*time.Second || cfg.TokenStore != TokenStoreMemory {
		t.Fatalf("unexpected client config %+v", cfg)
	}
}

func TestLoadClientValidatesStore(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STATE_DIR", t.TempDir())

	t.Setenv("TOKEN_STORE", "redis")
	t.Setenv("REDIS_URL", "")
	if _, err := LoadClient(); err == nil {
		t.Fatal("redis store without REDIS_URL should fail")
	}

	t.Setenv("TOKEN_STORE", "floppy")
	if _, err := LoadClient(); err == nil {
		t.Fatal("unknown store should fail")
	}
}
