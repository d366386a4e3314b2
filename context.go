package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/b0tShaman/hotseats/config"
	"github.com/b0tShaman/hotseats/logging"
	"github.com/b0tShaman/hotseats/morph"
	"github.com/b0tShaman/hotseats/weights"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if v := strings.TrimSpace(c.flags.logLevel); v != "" {
			cfg.Logging.Level = v
		}
		if v := strings.TrimSpace(c.flags.logFormat); v != "" {
			cfg.Logging.Format = v
		}
		c.config, c.configPath, c.configExists = cfg, path, exists
	})
	return c.config, c.configErr
}

// logger writes to the command's stderr so stdout carries only results.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
}

func (c *commandContext) provisioner(logger *slog.Logger) *weights.Provisioner {
	return weights.NewProvisioner(c.config.DownloadTimeout(), weights.WithLogger(logger))
}

func (c *commandContext) loadModels(ctx context.Context, logger *slog.Logger) (*morph.Models, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return morph.LoadModels(ctx, morph.ModelsConfig{
		Arch:        cfg.Architecture(),
		EncoderURL:  cfg.Weights.EncoderURL,
		DecoderURL:  cfg.Weights.DecoderURL,
		EncoderPath: cfg.EncoderPath(),
		DecoderPath: cfg.DecoderPath(),
		Seed:        cfg.Morph.Seed,
	}, c.provisioner(logger), logger)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
