package config

import "reelforge/internal/session"

const (
	defaultConfigPath         = "~/.config/reelforge/config.toml"
	defaultStateDir           = "~/.local/share/reelforge"
	defaultLogDir             = "~/.local/share/reelforge/logs"
	defaultAPIBind            = "127.0.0.1:7587"
	defaultImageCount         = 5
	defaultImageWidth         = 1280
	defaultImageHeight        = 720
	defaultDuration           = 10
	defaultStageTimeout       = 300
	defaultEventBuffer        = 500
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	maxImageCount             = 24
	googleStudioKeyEnv        = "GOOGLE_STUDIO_API_KEY"
	youTubeKeyEnv             = "YOUTUBE_API_KEY"
	openRouterKeyEnv          = "OPENROUTER_API_KEY"
	notificationTopicEnv      = "REELFORGE_NTFY_TOPIC"
	defaultRequireCredentials = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Generation: Generation{
			ImageCount:      defaultImageCount,
			ImageWidth:      defaultImageWidth,
			ImageHeight:     defaultImageHeight,
			DefaultDuration: defaultDuration,
			Voices:          session.DefaultVoices(),
		},
		Workflow: Workflow{
			StageTimeout:       defaultStageTimeout,
			EventBuffer:        defaultEventBuffer,
			RequireCredentials: defaultRequireCredentials,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
