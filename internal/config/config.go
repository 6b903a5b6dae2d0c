package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"reelforge/internal/session"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Credentials holds the provider API keys. They are read from the config
// file or the environment and never written back.
type Credentials struct {
	GoogleStudioKey string `toml:"google_studio_key"`
	YouTubeKey      string `toml:"youtube_key"`
	OpenRouterKey   string `toml:"openrouter_key"`
}

// Configured reports whether every provider key is present.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.GoogleStudioKey) != "" &&
		strings.TrimSpace(c.YouTubeKey) != "" &&
		strings.TrimSpace(c.OpenRouterKey) != ""
}

// Missing lists the config keys that are still empty.
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.GoogleStudioKey) == "" {
		missing = append(missing, "credentials.google_studio_key")
	}
	if strings.TrimSpace(c.YouTubeKey) == "" {
		missing = append(missing, "credentials.youtube_key")
	}
	if strings.TrimSpace(c.OpenRouterKey) == "" {
		missing = append(missing, "credentials.openrouter_key")
	}
	return missing
}

// Generation contains the knobs handed to providers.
type Generation struct {
	ImageCount      int             `toml:"image_count"`
	ImageWidth      int             `toml:"image_width"`
	ImageHeight     int             `toml:"image_height"`
	DefaultDuration int             `toml:"default_duration"`
	Voices          []session.Voice `toml:"voices"`
}

// Workflow contains orchestrator timing and gating.
type Workflow struct {
	StageTimeout       int  `toml:"stage_timeout"`
	EventBuffer        int  `toml:"event_buffer"`
	RequireCredentials bool `toml:"require_credentials"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelforge.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Credentials: provider API keys gating generation
//   - Generation: image count, frame size, and voice catalog
//   - Workflow: stage timeout, event buffer, credential gate toggle
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Credentials   Credentials   `toml:"credentials"`
	Generation    Generation    `toml:"generation"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, lock, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.LockDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding sessions and artifacts.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "reelforge.db")
}

// LockDir holds per-session operation locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// DaemonLockPath is the single-instance lock for reelforged.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "reelforged.lock")
}

// LogPath is the daemon's log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "reelforge.log")
}

// Configured reports whether generation may start. When the credential gate
// is disabled every session counts as configured.
func (c *Config) Configured() bool {
	if !c.Workflow.RequireCredentials {
		return true
	}
	return c.Credentials.Configured()
}

// Voices returns the voice catalog.
func (c *Config) Voices() []session.Voice {
	out := make([]session.Voice, len(c.Generation.Voices))
	copy(out, c.Generation.Voices)
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
