package orchestrator

import "reelforge/internal/config"

// OptionsFromConfig derives the credential gate, voice catalog, image count,
// and event buffer from cfg.
func OptionsFromConfig(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithCredentials(cfg),
		WithVoices(cfg.Voices()),
		WithImageCount(cfg.Generation.ImageCount),
		WithEventBus(NewEventBus(cfg.Workflow.EventBuffer)),
	}
}
