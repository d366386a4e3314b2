package ml

import (
	"errors"
	"fmt"
)

// Architecture is the single description both VAE halves are built from,
// so their latent width and spatial sizes agree by construction.
type Architecture struct {
	InputSize  int   // square input side, in pixels
	Channels   int   // 1 (grayscale) or 3 (RGB)
	Stages     []int // encoder conv widths; the decoder mirrors them reversed
	KernelSize int
	PoolSize   int
	LatentDim  int
}

// DefaultArchitecture matches the published hotseats 6k chair model.
func DefaultArchitecture() Architecture {
	return Architecture{
		InputSize:  100,
		Channels:   3,
		Stages:     []int{32, 64, 128},
		KernelSize: 3,
		PoolSize:   2,
		LatentDim:  100,
	}
}

func (a Architecture) Validate() error {
	var errs []error
	if a.InputSize <= 0 {
		errs = append(errs, fmt.Errorf("input size must be positive, got %d", a.InputSize))
	}
	if a.Channels != 1 && a.Channels != 3 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 3, got %d", a.Channels))
	}
	if len(a.Stages) == 0 {
		errs = append(errs, errors.New("at least one stage is required"))
	}
	for i, s := range a.Stages {
		if s <= 0 {
			errs = append(errs, fmt.Errorf("stage %d width must be positive, got %d", i, s))
		}
	}
	if a.KernelSize <= 0 || a.KernelSize%2 == 0 {
		errs = append(errs, fmt.Errorf("kernel size must be odd and positive, got %d", a.KernelSize))
	}
	if a.PoolSize < 2 {
		errs = append(errs, fmt.Errorf("pool size must be at least 2, got %d", a.PoolSize))
	}
	if a.LatentDim <= 0 {
		errs = append(errs, fmt.Errorf("latent dim must be positive, got %d", a.LatentDim))
	}
	if len(errs) == 0 && a.upscale() > a.InputSize {
		errs = append(errs, fmt.Errorf("input size %d is too small for %d pooling stages of %d",
			a.InputSize, len(a.Stages), a.PoolSize))
	}
	return errors.Join(errs...)
}

func (a Architecture) InputShape() Shape {
	return Shape{H: a.InputSize, W: a.InputSize, C: a.Channels}
}

// upscale is PoolSize^len(Stages), the decoder's total upsampling factor.
func (a Architecture) upscale() int {
	f := 1
	for range a.Stages {
		f *= a.PoolSize
		if f > a.InputSize {
			break
		}
	}
	return f
}

// DecoderGrid returns the decoder's starting side length and the zero padding
// (before, after) that brings the upsampled grid back to InputSize.
func (a Architecture) DecoderGrid() (base, padBefore, padAfter int) {
	f := a.upscale()
	base = a.InputSize / f
	total := a.InputSize - base*f
	padBefore = total / 2
	return base, padBefore, total - padBefore
}

func (a Architecture) lastStage() int {
	return a.Stages[len(a.Stages)-1]
}

// EncoderTrunk is the conv/pool stack up to the flattened feature vector.
func (a Architecture) EncoderTrunk() []LayerConfig {
	cfgs := []LayerConfig{Input(a.InputSize, a.InputSize, a.Channels)}
	for _, width := range a.Stages {
		cfgs = append(cfgs,
			Conv2D(width, KernelSize(a.KernelSize), Activation("relu")),
			MaxPool2D(a.PoolSize),
		)
	}
	return append(cfgs, Flatten())
}

// DecoderLayers mirrors the trunk: dense projection, reshape, conv/upsample
// stages in reverse width order, padding, and a sigmoid output conv.
func (a Architecture) DecoderLayers() []LayerConfig {
	base, before, after := a.DecoderGrid()
	last := a.lastStage()

	cfgs := []LayerConfig{
		Input(1, 1, a.LatentDim),
		Dense(base*base*last, Activation("relu")),
		Reshape(base, base, last),
	}
	for i := len(a.Stages) - 1; i >= 0; i-- {
		cfgs = append(cfgs,
			Conv2D(a.Stages[i], KernelSize(a.KernelSize), Activation("relu")),
			UpSample2D(a.PoolSize),
		)
	}
	if before+after > 0 {
		cfgs = append(cfgs, ZeroPad2D(before, after, before, after))
	}
	return append(cfgs, Conv2D(a.Channels, KernelSize(a.KernelSize), Activation("sigmoid")))
}
