package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.TimeoutSeconds <= 0 {
		return errors.New("encoding.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.StabilityWindowSeconds <= 0 {
		return errors.New("pipeline.stability_window_seconds must be positive")
	}
	if c.Pipeline.StabilityPollSeconds <= 0 {
		return errors.New("pipeline.stability_poll_seconds must be positive")
	}
	if c.Pipeline.StabilityPollSeconds > c.Pipeline.StabilityWindowSeconds {
		return errors.New("pipeline.stability_poll_seconds must not exceed pipeline.stability_window_seconds")
	}
	if c.Pipeline.CaptionDelayMillis < 0 {
		return errors.New("pipeline.caption_delay_millis must not be negative")
	}
	if c.Pipeline.ClampEpsilonMillis <= 0 {
		return errors.New("pipeline.clamp_epsilon_millis must be positive")
	}
	if c.Pipeline.VerifyEpsilonMillis <= 0 {
		return errors.New("pipeline.verify_epsilon_millis must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
