package morph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/b0tShaman/hotseats/data"
	"github.com/b0tShaman/hotseats/logging"
	"github.com/b0tShaman/hotseats/ml"
)

// LatentSource selects which encoder output drives interpolation.
type LatentSource string

const (
	// LatentMean uses the deterministic posterior mean.
	LatentMean LatentSource = "mean"
	// LatentSample uses a reparameterised draw, so reruns differ.
	LatentSample LatentSource = "sample"
)

type Options struct {
	// Workers bounds concurrent decodes. Zero means runtime.NumCPU().
	Workers      int
	LatentSource LatentSource
	Logger       *slog.Logger
}

// Pipeline turns two uploaded images into an ordered sequence of frames.
type Pipeline struct {
	models  *Models
	pre     *data.Preprocessor
	workers int
	source  LatentSource
	logger  *slog.Logger
}

// Result holds one morph. Frames[i] is the decoding of Latents[i].
type Result struct {
	RunID   string
	LatentA ml.Latent
	LatentB ml.Latent
	Latents [][]float64
	Frames  []*ml.Tensor
}

func NewPipeline(models *Models, opts Options) (*Pipeline, error) {
	if models == nil || models.Encoder == nil || models.Decoder == nil {
		return nil, fmt.Errorf("morph pipeline needs loaded models")
	}
	source := opts.LatentSource
	switch source {
	case "":
		source = LatentMean
	case LatentMean, LatentSample:
	default:
		return nil, fmt.Errorf("unknown latent source %q", source)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pre, err := data.NewPreprocessor(models.Arch.InputShape())
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		models:  models,
		pre:     pre,
		workers: workers,
		source:  source,
		logger:  logging.NewComponentLogger(opts.Logger, "morph"),
	}, nil
}

// Encode preprocesses and encodes one image.
func (p *Pipeline) Encode(raw []byte) (ml.Latent, error) {
	img, err := p.pre.Preprocess(raw)
	if err != nil {
		return ml.Latent{}, err
	}
	return p.models.Encoder.Encode(img)
}

// Morph encodes both images, interpolates steps latents from A towards B and
// decodes each one. The first frame reconstructs A; B itself is not reached.
func (p *Pipeline) Morph(ctx context.Context, rawA, rawB []byte, steps int) (*Result, error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSteps, steps)
	}
	res := &Result{RunID: uuid.NewString()}
	logger := p.logger.With(logging.String(logging.FieldRunID, res.RunID))
	start := time.Now()

	var err error
	if res.LatentA, err = p.Encode(rawA); err != nil {
		return nil, fmt.Errorf("image A: %w", err)
	}
	if res.LatentB, err = p.Encode(rawB); err != nil {
		return nil, fmt.Errorf("image B: %w", err)
	}

	a, b := p.pick(res.LatentA), p.pick(res.LatentB)
	warnNonFinite(logger, "A", a)
	warnNonFinite(logger, "B", b)

	if res.Latents, err = Interpolate(a, b, steps); err != nil {
		return nil, err
	}
	if res.Frames, err = p.decodeAll(ctx, res.Latents); err != nil {
		return nil, err
	}

	logger.Info("morph complete",
		logging.Int("frames", len(res.Frames)),
		logging.String("latent_source", string(p.source)),
		logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return res, nil
}

func (p *Pipeline) pick(l ml.Latent) []float64 {
	if p.source == LatentSample {
		return l.Sample
	}
	return l.Mean
}

func (p *Pipeline) decodeAll(ctx context.Context, latents [][]float64) ([]*ml.Tensor, error) {
	frames := make([]*ml.Tensor, len(latents))
	wp := pool.New().WithMaxGoroutines(p.workers).WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, z := range latents {
		wp.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := p.models.Decoder.Decode(z)
			if err != nil {
				return fmt.Errorf("decode frame %d: %w", i, err)
			}
			frames[i] = frame
			return nil
		})
	}
	if err := wp.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

func warnNonFinite(logger *slog.Logger, which string, z []float64) {
	bad := 0
	for _, v := range z {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad++
		}
	}
	if bad > 0 {
		logger.Warn("latent has non-finite values",
			logging.String("image", which),
			logging.Int("count", bad),
			logging.Alert("non_finite_latent"),
		)
	}
}
