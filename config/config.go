package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/b0tShaman/hotseats/ml"
)

//go:embed sample_config.toml
var sampleConfig string

// Model describes the autoencoder geometry. Encoder and decoder are both
// built from it, so it must match the weights being loaded.
type Model struct {
	InputSize  int   `toml:"input_size"`
	Channels   int   `toml:"channels"`
	Stages     []int `toml:"stages"`
	KernelSize int   `toml:"kernel_size"`
	PoolSize   int   `toml:"pool_size"`
	LatentDim  int   `toml:"latent_dim"`
}

// Weights locates the encoder and decoder artifacts.
type Weights struct {
	EncoderURL  string `toml:"encoder_url"`
	DecoderURL  string `toml:"decoder_url"`
	CacheDir    string `toml:"cache_dir"`
	EncoderFile string `toml:"encoder_file"`
	DecoderFile string `toml:"decoder_file"`
	// DownloadTimeout is in seconds.
	DownloadTimeout int `toml:"download_timeout"`
}

type Morph struct {
	Steps        int    `toml:"steps"`
	LatentSource string `toml:"latent_source"`
	// Workers bounds concurrent decodes; 0 means one per CPU.
	Workers int `toml:"workers"`
	// Seed fixes the sampling noise; 0 seeds from the runtime.
	Seed uint64 `toml:"seed"`
}

type Output struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format"`
	// GIFDelay is the per-frame delay in hundredths of a second.
	GIFDelay     int  `toml:"gif_delay"`
	Bounce       bool `toml:"bounce"`
	SheetColumns int  `toml:"sheet_columns"`
}

type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hotseats.
type Config struct {
	Model   Model   `toml:"model"`
	Weights Weights `toml:"weights"`
	Morph   Morph   `toml:"morph"`
	Output  Output  `toml:"output"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hotseats/config.toml")
}

// Load locates, parses, and validates a configuration file. It reports the
// resolved path and whether a file was found there; a missing file yields
// the defaults.
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

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
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
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("hotseats.toml")
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

// Architecture converts [model] into the typed architecture shared by the
// encoder and decoder builders.
func (c *Config) Architecture() ml.Architecture {
	return ml.Architecture{
		InputSize:  c.Model.InputSize,
		Channels:   c.Model.Channels,
		Stages:     append([]int(nil), c.Model.Stages...),
		KernelSize: c.Model.KernelSize,
		PoolSize:   c.Model.PoolSize,
		LatentDim:  c.Model.LatentDim,
	}
}

func (c *Config) EncoderPath() string {
	return filepath.Join(c.Weights.CacheDir, c.Weights.EncoderFile)
}

func (c *Config) DecoderPath() string {
	return filepath.Join(c.Weights.CacheDir, c.Weights.DecoderFile)
}

func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Weights.DownloadTimeout) * time.Second
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

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultWeightsDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "hotseats", "weights")
	}
	return "~/.cache/hotseats/weights"
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
