package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeWeights(); err != nil {
		return err
	}
	c.normalizeMorph()
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeWeights() error {
	c.Weights.EncoderURL = strings.TrimSpace(c.Weights.EncoderURL)
	c.Weights.DecoderURL = strings.TrimSpace(c.Weights.DecoderURL)

	if strings.TrimSpace(c.Weights.CacheDir) == "" {
		if value, ok := os.LookupEnv(WeightsDirEnv); ok && strings.TrimSpace(value) != "" {
			c.Weights.CacheDir = strings.TrimSpace(value)
		} else {
			c.Weights.CacheDir = defaultWeightsDir()
		}
	}
	var err error
	if c.Weights.CacheDir, err = expandPath(c.Weights.CacheDir); err != nil {
		return fmt.Errorf("weights.cache_dir: %w", err)
	}

	c.Weights.EncoderFile = strings.TrimSpace(c.Weights.EncoderFile)
	if c.Weights.EncoderFile == "" {
		c.Weights.EncoderFile = defaultEncoderFile
	}
	c.Weights.DecoderFile = strings.TrimSpace(c.Weights.DecoderFile)
	if c.Weights.DecoderFile == "" {
		c.Weights.DecoderFile = defaultDecoderFile
	}
	if c.Weights.DownloadTimeout == 0 {
		c.Weights.DownloadTimeout = defaultDownloadTimeout
	}
	return nil
}

func (c *Config) normalizeMorph() {
	c.Morph.LatentSource = strings.ToLower(strings.TrimSpace(c.Morph.LatentSource))
	if c.Morph.LatentSource == "" {
		c.Morph.LatentSource = defaultLatentSource
	}
	if c.Morph.Steps == 0 {
		c.Morph.Steps = defaultSteps
	}
}

func (c *Config) normalizeOutput() error {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	var err error
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	if c.Output.GIFDelay == 0 {
		c.Output.GIFDelay = defaultGIFDelay
	}
	if c.Output.SheetColumns == 0 {
		c.Output.SheetColumns = defaultSheetColumns
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
