package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0tShaman/hotseats/config"
	"github.com/b0tShaman/hotseats/ml"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv(config.WeightsDirEnv, "")
	t.Chdir(home)
	return home
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := isolateHome(t)

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, filepath.Join(home, ".config", "hotseats", "config.toml"), resolved)

	assert.Equal(t, ml.DefaultArchitecture(), cfg.Architecture())
	assert.Equal(t, filepath.Join(home, ".cache", "hotseats", "weights"), cfg.Weights.CacheDir)
	assert.Equal(t, filepath.Join(cfg.Weights.CacheDir, "encoder_weights.gob"), cfg.EncoderPath())
	assert.Equal(t, filepath.Join(cfg.Weights.CacheDir, "decoder_weights.gob"), cfg.DecoderPath())
	assert.Equal(t, 5*time.Minute, cfg.DownloadTimeout())
	assert.Equal(t, 10, cfg.Morph.Steps)
	assert.Equal(t, config.LatentMean, cfg.Morph.LatentSource)
	assert.Equal(t, "auto", cfg.Logging.Format)
	assert.Empty(t, cfg.Weights.EncoderURL, "default weights must come from the local cache")
	assert.Empty(t, cfg.Weights.DecoderURL)
}

func TestLoadHonoursWeightsDirEnv(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	t.Setenv(config.WeightsDirEnv, dir)

	cfg, _, _, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Weights.CacheDir)
}

func TestLoadFileOverridesAndExpandsTilde(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(t.TempDir(), "hotseats.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[model]
input_size = 16
stages = [4, 8]
latent_dim = 6

[weights]
cache_dir = "~/models"
encoder_url = ""

[morph]
steps = 4
latent_source = "SAMPLE"
seed = 7

[output]
format = "gif"
bounce = false
`), 0o644))

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)

	arch := cfg.Architecture()
	assert.Equal(t, 16, arch.InputSize)
	assert.Equal(t, []int{4, 8}, arch.Stages)
	assert.Equal(t, 6, arch.LatentDim)
	assert.Equal(t, 3, arch.Channels)

	assert.Equal(t, filepath.Join(home, "models"), cfg.Weights.CacheDir)
	assert.Empty(t, cfg.Weights.EncoderURL)
	assert.Equal(t, config.LatentSample, cfg.Morph.LatentSource)
	assert.Equal(t, uint64(7), cfg.Morph.Seed)
	assert.Equal(t, config.FormatGIF, cfg.Output.Format)
	assert.False(t, cfg.Output.Bounce)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolateHome(t)
	cases := map[string]string{
		"unknown key":   "[morph]\nframes = 3\n",
		"steps":         "[morph]\nsteps = -1\n",
		"latent source": "[morph]\nlatent_source = \"median\"\n",
		"format":        "[output]\nformat = \"mp4\"\n",
		"url":           "[weights]\nencoder_url = \"ftp://example.com/x\"\n",
		"same files":    "[weights]\nencoder_file = \"w.gob\"\ndecoder_file = \"w.gob\"\n",
		"even kernel":   "[model]\nkernel_size = 4\n",
		"log level":     "[logging]\nlevel = \"loud\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "hotseats.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, _, _, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "sample", "config.toml")
	require.NoError(t, config.CreateSample(path))

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, exists)

	want, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, want, cfg)
}

func TestEncodeProducesLoadableTOML(t *testing.T) {
	cfg := config.Default()
	raw, err := config.Encode(&cfg)
	require.NoError(t, err)

	var back config.Config
	require.NoError(t, toml.Unmarshal(raw, &back))
	assert.Equal(t, cfg.Model, back.Model)
}
