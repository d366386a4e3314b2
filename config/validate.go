package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateWeights(); err != nil {
		return err
	}
	if err := c.validateMorph(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateModel() error {
	arch := c.Architecture()
	if err := arch.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}

func (c *Config) validateWeights() error {
	for _, u := range []struct{ key, value string }{
		{"weights.encoder_url", c.Weights.EncoderURL},
		{"weights.decoder_url", c.Weights.DecoderURL},
	} {
		if u.value == "" {
			continue
		}
		parsed, err := url.Parse(u.value)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", u.key, u.value)
		}
	}
	if c.Weights.EncoderFile == c.Weights.DecoderFile {
		return errors.New("weights.encoder_file and weights.decoder_file must differ")
	}
	if c.Weights.DownloadTimeout < 0 {
		return errors.New("weights.download_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateMorph() error {
	if c.Morph.Steps < 1 {
		return errors.New("morph.steps must be at least 1")
	}
	switch c.Morph.LatentSource {
	case LatentMean, LatentSample:
	default:
		return fmt.Errorf("morph.latent_source must be %q or %q, got %q", LatentMean, LatentSample, c.Morph.LatentSource)
	}
	if c.Morph.Workers < 0 {
		return errors.New("morph.workers must not be negative")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case FormatPNG, FormatGIF, FormatSheet:
	default:
		return fmt.Errorf("output.format must be one of png, gif, sheet, got %q", c.Output.Format)
	}
	if c.Output.GIFDelay < 0 {
		return errors.New("output.gif_delay must not be negative")
	}
	if c.Output.SheetColumns < 0 {
		return errors.New("output.sheet_columns must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
