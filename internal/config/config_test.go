package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BPSLOOM_MAX_PAGES", "3")
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(home); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.UnnamedThreshold != 0.9 || c.PromoteMaxScan != 20 || c.OutDir != "dataset" {
		t.Fatalf("defaults = %+v", c)
	}
	if got := c.Get("header_rows"); got != "6,7,5,4,0,1,2,3" {
		t.Fatalf("header_rows = %q", got)
	}
	if c.MaxPages != 3 {
		t.Fatalf("env override: max_pages = %d", c.MaxPages)
	}
	if c.HistoryDB != filepath.Join(home, ".bpsloom", "history.db") {
		t.Fatalf("history_db = %q", c.HistoryDB)
	}
}

func TestDotEnvIsLoaded(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BPSLOOM_LOG_LEVEL", "")
	os.Unsetenv("BPSLOOM_LOG_LEVEL")
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(home); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(home, ".env"), []byte("BPSLOOM_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	defer os.Unsetenv("BPSLOOM_LOG_LEVEL")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("log_level = %q, want debug from .env", c.LogLevel)
	}
}

func TestSetSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "cfg.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load missing explicit file: %v", err)
	}
	for k, v := range map[string]string{"unnamed_threshold": "0.6", "header_rows": "7, 6", "external_converter": "soffice"} {
		if err := c.Set(k, v); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if err := c.Set("unnamed_threshold", "2"); err == nil {
		t.Fatal("threshold above 1 accepted")
	}
	if err := c.Set("nope", "x"); err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("unknown key: %v", err)
	}
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.UnnamedThreshold != 0.6 || back.Get("header_rows") != "7,6" || back.ExternalConverter != "soffice" {
		t.Fatalf("reloaded = %+v", back)
	}
}
