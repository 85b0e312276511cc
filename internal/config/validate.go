package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
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
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateServices() error {
	for _, entry := range []struct {
		field string
		value string
	}{
		{"ocr.url", c.OCR.URL},
		{"postprocessing.url", c.Postprocessing.URL},
		{"pipeline.callback_base_url", c.Pipeline.CallbackBaseURL},
	} {
		if entry.value == "" {
			return fmt.Errorf("%s must be set", entry.field)
		}
		parsed, err := url.Parse(entry.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", entry.field, entry.value)
		}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxAttempts < 1 {
		return errors.New("pipeline.max_attempts must be at least 1")
	}
	if c.Pipeline.BaseDelayMilliseconds < 0 {
		return errors.New("pipeline.base_delay_ms must not be negative")
	}
	if c.Pipeline.MaxDelayMilliseconds < c.Pipeline.BaseDelayMilliseconds {
		return errors.New("pipeline.max_delay_ms must be at least pipeline.base_delay_ms")
	}
	if c.Pipeline.ConnectTimeoutSeconds < 1 {
		return errors.New("pipeline.connect_timeout_seconds must be at least 1")
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
