package config

import (
	"errors"
	"fmt"

	"reelforge/internal/session"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.ImageCount < 1 || c.Generation.ImageCount > maxImageCount {
		return fmt.Errorf("generation.image_count must be between 1 and %d", maxImageCount)
	}
	if !session.Duration(c.Generation.DefaultDuration).Valid() {
		return fmt.Errorf("generation.default_duration %d is not one of 10, 20, ... 120", c.Generation.DefaultDuration)
	}
	if len(c.Generation.Voices) == 0 {
		return errors.New("generation.voices must list at least one voice")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.StageTimeout <= 0 {
		return errors.New("workflow.stage_timeout must be positive")
	}
	if c.Workflow.EventBuffer <= 0 {
		return errors.New("workflow.event_buffer must be positive")
	}
	return nil
}
