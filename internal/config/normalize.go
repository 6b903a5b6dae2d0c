package config

import (
	"fmt"
	"os"
	"strings"

	"reelforge/internal/session"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCredentials()
	c.normalizeGeneration()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeCredentials() {
	c.Credentials.GoogleStudioKey = envFallback(c.Credentials.GoogleStudioKey, googleStudioKeyEnv)
	c.Credentials.YouTubeKey = envFallback(c.Credentials.YouTubeKey, youTubeKeyEnv)
	c.Credentials.OpenRouterKey = envFallback(c.Credentials.OpenRouterKey, openRouterKeyEnv)
}

func (c *Config) normalizeGeneration() {
	if c.Generation.ImageCount <= 0 {
		c.Generation.ImageCount = defaultImageCount
	}
	if c.Generation.ImageWidth <= 0 {
		c.Generation.ImageWidth = defaultImageWidth
	}
	if c.Generation.ImageHeight <= 0 {
		c.Generation.ImageHeight = defaultImageHeight
	}
	if c.Generation.DefaultDuration == 0 {
		c.Generation.DefaultDuration = defaultDuration
	}
	if len(c.Generation.Voices) == 0 {
		c.Generation.Voices = session.DefaultVoices()
		return
	}
	voices := make([]session.Voice, 0, len(c.Generation.Voices))
	seen := make(map[session.VoiceID]struct{}, len(c.Generation.Voices))
	for _, voice := range c.Generation.Voices {
		id := session.VoiceID(strings.TrimSpace(string(voice.ID)))
		if id == "" {
			continue
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		name := strings.TrimSpace(voice.Name)
		if name == "" {
			name = string(id)
		}
		voices = append(voices, session.Voice{ID: id, Name: name})
	}
	if len(voices) == 0 {
		voices = session.DefaultVoices()
	}
	c.Generation.Voices = voices
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.StageTimeout <= 0 {
		c.Workflow.StageTimeout = defaultStageTimeout
	}
	if c.Workflow.EventBuffer <= 0 {
		c.Workflow.EventBuffer = defaultEventBuffer
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = envFallback(c.Notifications.NtfyTopic, notificationTopicEnv)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value, env string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if fromEnv, ok := os.LookupEnv(env); ok {
		return strings.TrimSpace(fromEnv)
	}
	return ""
}
