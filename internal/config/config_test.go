package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelforge/internal/config"
	"reelforge/internal/session"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GOOGLE_STUDIO_API_KEY", "YOUTUBE_API_KEY", "OPENROUTER_API_KEY", "REELFORGE_NTFY_TOPIC"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "reelforge")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "reelforge.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7587" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Generation.ImageCount != 5 {
		t.Fatalf("expected 5 images by default, got %d", cfg.Generation.ImageCount)
	}
	if len(cfg.Voices()) != 4 {
		t.Fatalf("expected default voice catalog, got %d voices", len(cfg.Voices()))
	}
	if cfg.Credentials.Configured() {
		t.Fatal("expected credentials to be unconfigured without keys")
	}
	if cfg.Configured() {
		t.Fatal("expected credential gate to block generation by default")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadCredentialsFromEnvironment(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GOOGLE_STUDIO_API_KEY", "g-key")
	t.Setenv("YOUTUBE_API_KEY", "y-key")
	t.Setenv("OPENROUTER_API_KEY", "o-key")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Credentials.GoogleStudioKey != "g-key" {
		t.Fatalf("expected google key from env, got %q", cfg.Credentials.GoogleStudioKey)
	}
	if !cfg.Credentials.Configured() || !cfg.Configured() {
		t.Fatal("expected credentials to be configured from env")
	}
	if missing := cfg.Credentials.Missing(); len(missing) != 0 {
		t.Fatalf("expected no missing keys, got %v", missing)
	}
}

func TestCredentialsMissingListsKeys(t *testing.T) {
	creds := config.Credentials{YouTubeKey: "y"}
	missing := creds.Missing()
	want := []string{"credentials.google_studio_key", "credentials.openrouter_key"}
	if strings.Join(missing, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected missing keys: %v", missing)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	payload := map[string]any{
		"paths": map[string]any{
			"state_dir": filepath.Join(dir, "state"),
			"log_dir":   filepath.Join(dir, "logs"),
		},
		"generation": map[string]any{
			"image_count":      3,
			"default_duration": 60,
			"voices": []map[string]any{
				{"id": "narrator", "name": "Narrator"},
				{"id": "narrator", "name": "Duplicate"},
				{"id": "  ", "name": "Blank"},
				{"id": "plain"},
			},
		},
		"workflow": map[string]any{
			"require_credentials": false,
			"stage_timeout":       30,
		},
		"logging": map[string]any{"format": "JSON", "level": "Debug"},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Generation.ImageCount != 3 {
		t.Fatalf("unexpected image count: %d", cfg.Generation.ImageCount)
	}
	want := []session.Voice{{ID: "narrator", Name: "Narrator"}, {ID: "plain", Name: "plain"}}
	got := cfg.Voices()
	if len(got) != len(want) {
		t.Fatalf("unexpected voices: %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("voice %d: got %+v want %+v", i, got[i], want[i])
		}
	}
	if !cfg.Configured() {
		t.Fatal("expected disabled credential gate to report configured")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Workflow.StageTimeout != 30 {
		t.Fatalf("unexpected stage timeout: %d", cfg.Workflow.StageTimeout)
	}
}

func TestValidateRejectsBadGeneration(t *testing.T) {
	cfg := config.Default()
	cfg.Generation.DefaultDuration = 15
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid duration to fail validation")
	}

	cfg = config.Default()
	cfg.Generation.ImageCount = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected oversized image count to fail validation")
	}

	cfg = config.Default()
	cfg.Generation.Voices = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected empty voice catalog to fail validation")
	}
}

func TestEnsureDirectoriesCreatesStateAndLocks(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.LockDir(), cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if len(cfg.Voices()) != 4 {
		t.Fatalf("expected four sample voices, got %d", len(cfg.Voices()))
	}
	if cfg.Generation.DefaultDuration != 10 {
		t.Fatalf("unexpected sample duration: %d", cfg.Generation.DefaultDuration)
	}
}
