package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected default redis addr, got %s", cfg.Redis.Addr)
	}
	if cfg.Queue.Name != "session_tasks" {
		t.Errorf("Expected default queue name, got %s", cfg.Queue.Name)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Errorf("Expected default bcrypt cost 12, got %d", cfg.Auth.BcryptCost)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
redis:
  addr: redis.internal:6380
queue:
  name: custom_tasks
  enqueue_timeout: 2s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Expected configured redis addr, got %s", cfg.Redis.Addr)
	}
	if cfg.Queue.Name != "custom_tasks" {
		t.Errorf("Expected configured queue name, got %s", cfg.Queue.Name)
	}
	// Unset fields still default.
	if cfg.Database.Path != "./data/crewdock.db" {
		t.Errorf("Expected default database path, got %s", cfg.Database.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestGetEnqueueTimeout(t *testing.T) {
	cfg := QueueConfig{EnqueueTimeout: "2s"}
	if d := cfg.GetEnqueueTimeout(); d != 2*time.Second {
		t.Errorf("Expected 2s, got %v", d)
	}

	cfg = QueueConfig{EnqueueTimeout: "bogus"}
	if d := cfg.GetEnqueueTimeout(); d != 5*time.Second {
		t.Errorf("Expected 5s fallback, got %v", d)
	}
}

func TestGetSessionDuration(t *testing.T) {
	cfg := AuthConfig{SessionDuration: "30m"}
	if d := cfg.GetSessionDuration(); d != 30*time.Minute {
		t.Errorf("Expected 30m, got %v", d)
	}

	cfg = AuthConfig{SessionDuration: ""}
	if d := cfg.GetSessionDuration(); d != 24*time.Hour {
		t.Errorf("Expected 24h fallback, got %v", d)
	}
}
