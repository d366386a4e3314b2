package morph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/b0tShaman/hotseats/logging"
	"github.com/b0tShaman/hotseats/ml"
	"github.com/b0tShaman/hotseats/weights"
)

// Models is a loaded encoder/decoder pair built from one architecture.
type Models struct {
	Arch    ml.Architecture
	Encoder *ml.Encoder
	Decoder *ml.Decoder
}

// ModelsConfig says where each artifact lives. An empty URL means the file
// must already exist locally.
type ModelsConfig struct {
	Arch        ml.Architecture
	EncoderURL  string
	DecoderURL  string
	EncoderPath string
	DecoderPath string
	// Seed fixes the encoder's sampling noise when non-zero.
	Seed uint64
}

// NewModels pairs an encoder and decoder, which must share an architecture.
func NewModels(enc *ml.Encoder, dec *ml.Decoder) (*Models, error) {
	if !sameArchitecture(enc.Architecture(), dec.Architecture()) {
		return nil, fmt.Errorf("%w: encoder and decoder architectures differ", ml.ErrModelLoad)
	}
	return &Models{Arch: enc.Architecture(), Encoder: enc, Decoder: dec}, nil
}

// LoadModels provisions both artifacts, then builds and loads the encoder
// and decoder. Any failure is fatal for the handle; nothing is retried.
func LoadModels(ctx context.Context, cfg ModelsConfig, prov *weights.Provisioner, logger *slog.Logger) (*Models, error) {
	logger = logging.NewComponentLogger(logger, "models")
	if err := cfg.Arch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ml.ErrModelLoad, err)
	}

	var encOpts []ml.EncoderOption
	if cfg.Seed != 0 {
		encOpts = append(encOpts, ml.WithSeed(cfg.Seed))
	}
	enc, err := ml.NewEncoder(cfg.Arch, encOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ml.ErrModelLoad, err)
	}
	dec, err := ml.NewDecoder(cfg.Arch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ml.ErrModelLoad, err)
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return provisionAndLoad(ctx, prov, cfg.EncoderURL, cfg.EncoderPath, "encoder", enc.LoadFromFile)
	})
	p.Go(func(ctx context.Context) error {
		return provisionAndLoad(ctx, prov, cfg.DecoderURL, cfg.DecoderPath, "decoder", dec.LoadFromFile)
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	logger.Info("models loaded",
		logging.Int("input_size", cfg.Arch.InputSize),
		logging.Int("latent_dim", cfg.Arch.LatentDim),
		logging.Int("encoder_params", paramCount(enc.Networks()...)),
		logging.Int("decoder_params", paramCount(dec.Network())),
	)
	return &Models{Arch: cfg.Arch, Encoder: enc, Decoder: dec}, nil
}

func provisionAndLoad(ctx context.Context, prov *weights.Provisioner, url, path, role string, load func(string) error) error {
	if strings.TrimSpace(url) != "" && prov != nil {
		if _, err := prov.EnsureLocal(ctx, url, path); err != nil {
			return fmt.Errorf("%s weights: %w", role, err)
		}
	}
	if err := load(path); err != nil {
		return fmt.Errorf("%s weights: %w", role, err)
	}
	return nil
}

func paramCount(nets ...*ml.Network) int {
	n := 0
	for _, nw := range nets {
		n += nw.ParamCount()
	}
	return n
}

func sameArchitecture(a, b ml.Architecture) bool {
	return a.InputSize == b.InputSize &&
		a.Channels == b.Channels &&
		a.KernelSize == b.KernelSize &&
		a.PoolSize == b.PoolSize &&
		a.LatentDim == b.LatentDim &&
		slices.Equal(a.Stages, b.Stages)
}
