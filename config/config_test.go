package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "minllm.yaml", `
log:
  level: debug
  format: json
events:
  driver: sqlite
  path: events.db
  retention_count: 1000
  retention_age: 72h
otlp:
  endpoint: localhost:4318
  insecure: true
schedules:
  - name: nightly-report
    cron: "0 2 * * *"
    params:
      mode: full
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log config = %+v", cfg.Log)
	}
	if cfg.Events.Driver != "sqlite" || cfg.Events.Path != "events.db" {
		t.Errorf("events config = %+v", cfg.Events)
	}
	if cfg.Events.RetentionCount != 1000 {
		t.Errorf("retention count = %d, want 1000", cfg.Events.RetentionCount)
	}
	if cfg.Events.RetentionAge.Std() != 72*time.Hour {
		t.Errorf("retention age = %v, want 72h", cfg.Events.RetentionAge.Std())
	}
	if cfg.OTLP.Endpoint != "localhost:4318" || !cfg.OTLP.Insecure {
		t.Errorf("otlp config = %+v", cfg.OTLP)
	}
	if len(cfg.Schedules) != 1 {
		t.Fatalf("schedules = %d, want 1", len(cfg.Schedules))
	}
	s := cfg.Schedules[0]
	if s.Name != "nightly-report" || s.Cron != "0 2 * * *" {
		t.Errorf("schedule = %+v", s)
	}
	if s.Params["mode"] != "full" {
		t.Errorf("schedule params = %v", s.Params)
	}
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "minllm.yaml", "events:\n  driver: memory\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want default info", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad level":           "log:\n  level: loud\n",
		"bad driver":          "events:\n  driver: redis\n",
		"sqlite without path": "events:\n  driver: sqlite\n",
		"schedule no cron":    "schedules:\n  - name: x\n",
		"schedule no name":    "schedules:\n  - cron: \"* * * * *\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, dir, strings.ReplaceAll(name, " ", "_")+".yaml", content)
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want validation failure")
			}
		})
	}
}

func TestDiscoverFromPrefersExplicitPath(t *testing.T) {
	dir := t.TempDir()
	explicit := writeConfig(t, dir, "custom.yaml", "log:\n  level: info\n")

	path, found, err := DiscoverFrom(explicit, dir, dir)
	if err != nil {
		t.Fatalf("DiscoverFrom: %v", err)
	}
	if !found || path != explicit {
		t.Errorf("DiscoverFrom = %q, %v, want explicit path", path, found)
	}
}

func TestDiscoverFromExplicitMissingIsError(t *testing.T) {
	dir := t.TempDir()
	_, _, err := DiscoverFrom(filepath.Join(dir, "missing.yaml"), dir, dir)
	if err == nil {
		t.Error("DiscoverFrom() error = nil, want missing-file error")
	}
}

func TestDiscoverFromProjectThenHome(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	// Nothing anywhere: not found, no error.
	if _, found, err := DiscoverFrom("", cwd, home); err != nil || found {
		t.Errorf("DiscoverFrom empty = found %v, err %v", found, err)
	}

	// Home config only.
	homeDir := filepath.Join(home, ".minllm")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	homeCfg := writeConfig(t, homeDir, "config.yaml", "")
	if path, found, _ := DiscoverFrom("", cwd, home); !found || path != homeCfg {
		t.Errorf("DiscoverFrom = %q, want home config", path)
	}

	// Project config wins over home.
	projCfg := writeConfig(t, cwd, "minllm.yaml", "")
	if path, found, _ := DiscoverFrom("", cwd, home); !found || path != projCfg {
		t.Errorf("DiscoverFrom = %q, want project config", path)
	}
}

func TestLoadOrDefaultWithoutFile(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		// Only discovery infrastructure errors should surface.
		t.Skipf("discovery unavailable: %v", err)
	}
	if cfg.Events.Driver == "" && cfg.Log.Level == "" {
		t.Error("LoadOrDefault returned an empty config, want defaults")
	}
}
