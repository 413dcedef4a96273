package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DispatchMode != DispatchInline {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DispatchTimeout() != 5*time.Second || cfg.PollInterval() != 5*time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.DispatchTimeout(), cfg.PollInterval())
	}
	if cfg.CallMeBotURL != "https://api.callmebot.com/whatsapp.php" {
		t.Fatalf("unexpected callmebot url %q", cfg.CallMeBotURL)
	}
}

func TestLoadTrimsEnvironment(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORE_BACKEND", " Memory ")
	t.Setenv("VAPID_PUBLIC_KEY", "  pub  ")
	t.Setenv("DISPATCH_MODE", "ASYNC")
	t.Setenv("DISPATCH_TIMEOUT_SECONDS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != BackendMemory || cfg.VAPIDPublicKey != "pub" || cfg.DispatchMode != DispatchAsync {
		t.Fatalf("values not normalized: %+v", cfg)
	}
	if cfg.DispatchTimeout() != 2*time.Second {
		t.Fatalf("expected 2s timeout, got %v", cfg.DispatchTimeout())
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DB_DSN")
	}

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("DISPATCH_MODE", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown dispatch mode")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: \"9090\"\nstore_backend: memory\npoll_interval_seconds: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("POLL_INTERVAL_SECONDS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.StoreBackend != BackendMemory {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PollInterval() != 7*time.Second {
		t.Fatalf("environment should override file, got %v", cfg.PollInterval())
	}
}
