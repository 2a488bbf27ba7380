package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t testing.TB, data string) string {
	filename := filepath.Join(t.TempDir(), "config.yml")

	err := os.WriteFile(filename, []byte(data), 0600)
	if err != nil {
		t.Fatalf("write %v failed: %v", filename, err)
	}

	return filename
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	filename := writeConfig(t, `
dirs:
  - incoming
  - /srv/scans
backend: fsnotify
console:
  no_color: true
redis:
  addr: localhost:6379
  channel: scans
pushover:
  token: abc
  recipients: [alice, bob]
  interval: 1m
ingest:
  ftp_listen: ":2121"
`)

	cfg, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Dirs) != 2 || cfg.Dirs[1] != "/srv/scans" {
		t.Errorf("wrong dirs %v", cfg.Dirs)
	}

	if cfg.Backend != "fsnotify" {
		t.Errorf("wrong backend %q", cfg.Backend)
	}

	if cfg.Lister != "os" {
		t.Errorf("default for lister not kept: %q", cfg.Lister)
	}

	if !cfg.Console.NoColor {
		t.Errorf("no_color not set")
	}

	if cfg.Redis == nil || cfg.Redis.Channel != "scans" {
		t.Errorf("wrong redis config %v", cfg.Redis)
	}

	if cfg.Pushover == nil || cfg.Pushover.Interval != time.Minute || len(cfg.Pushover.Recipients) != 2 {
		t.Errorf("wrong pushover config %v", cfg.Pushover)
	}

	if cfg.Ingest.FTPListen != ":2121" {
		t.Errorf("wrong ftp listen address %q", cfg.Ingest.FTPListen)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"unknown_field: 1\n",
		"backend: inotify\n",
		"lister: ftp\n",
		"redis:\n  channel: foo\n",
		"dirs: [\n",
	}

	for _, data := range tests {
		_, err := LoadConfig(writeConfig(t, data))
		if err == nil {
			t.Errorf("expected error for config %q", data)
		}
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil {
		t.Errorf("expected error for missing file")
	}
}
