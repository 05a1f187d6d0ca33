package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWorkerCountClamp(t *testing.T) {
	t.Setenv("WORKER_COUNT", "500")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkerCount != 64 {
		t.Fatalf("worker count = %d, want clamped 64", cfg.WorkerCount)
	}
}

func TestHTTPPortNormalization(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != ":9000" {
		t.Fatalf("port = %s, want :9000", cfg.HTTPPort)
	}
}

func TestQueueSizeAtLeastWorkers(t *testing.T) {
	t.Setenv("WORKER_COUNT", "16")
	t.Setenv("QUEUE_SIZE", "8")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QueueSize < cfg.WorkerCount {
		t.Fatalf("queue size %d below worker count %d", cfg.QueueSize, cfg.WorkerCount)
	}
}

func TestYAMLFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportflow.yaml")
	if err := os.WriteFile(path, []byte("reports_dir: /srv/reports\nhttp_port: \"7070\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("REPORTS_DIR", "")
	t.Setenv("HTTP_PORT", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReportsDir != "/srv/reports" {
		t.Errorf("reports_dir = %s", cfg.ReportsDir)
	}
	if cfg.HTTPPort != ":7070" {
		t.Errorf("http_port = %s", cfg.HTTPPort)
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportflow.yaml")
	if err := os.WriteFile(path, []byte("db_path: /from/file.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DB_PATH", "/from/env.db")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/from/env.db" {
		t.Fatalf("db_path = %s, env should win", cfg.DBPath)
	}
}
