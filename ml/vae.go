package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Latent is the encoder output for one image. Mean and LogVar are
// deterministic for fixed weights; Sample is redrawn on every call.
type Latent struct {
	Mean   []float64
	LogVar []float64
	Sample []float64
}

// Encoder maps an image to a diagonal Gaussian in latent space.
type Encoder struct {
	arch   Architecture
	trunk  *Network
	mean   *Network
	logVar *Network

	mu  sync.Mutex // guards src
	src rand.Source
}

type EncoderOption func(*Encoder)

// WithSeed makes the reparameterisation noise reproducible.
func WithSeed(seed uint64) EncoderOption {
	return func(e *Encoder) {
		e.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
}

// WithSource sets the noise source used for sampling.
func WithSource(src rand.Source) EncoderOption {
	return func(e *Encoder) {
		e.src = src
	}
}

func NewEncoder(arch Architecture, opts ...EncoderOption) (*Encoder, error) {
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("encoder architecture: %w", err)
	}
	trunk, err := NewNetwork(arch.EncoderTrunk()...)
	if err != nil {
		return nil, fmt.Errorf("encoder trunk: %w", err)
	}

	features := trunk.OutputShape().C
	mean, err := NewNetwork(Input(1, 1, features), Dense(arch.LatentDim, Activation("linear"), Named("z_mean")))
	if err != nil {
		return nil, fmt.Errorf("encoder z_mean head: %w", err)
	}
	logVar, err := NewNetwork(Input(1, 1, features), Dense(arch.LatentDim, Activation("linear"), Named("z_log_var")))
	if err != nil {
		return nil, fmt.Errorf("encoder z_log_var head: %w", err)
	}

	e := &Encoder{
		arch:   arch,
		trunk:  trunk,
		mean:   mean,
		logVar: logVar,
		src:    rand.NewPCG(rand.Uint64(), rand.Uint64()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Encoder) Architecture() Architecture { return e.arch }

// Networks returns the trunk followed by the mean and log-variance heads.
func (e *Encoder) Networks() []*Network {
	return []*Network{e.trunk, e.mean, e.logVar}
}

// Encode runs the trunk once and both heads on the shared features, then
// draws Sample = Mean + exp(0.5*LogVar) * eps with eps ~ N(0, I).
// LogVar is not clamped: an overflowing exp yields Inf/NaN in Sample.
func (e *Encoder) Encode(img *Tensor) (Latent, error) {
	features, err := e.trunk.Forward(img)
	if err != nil {
		return Latent{}, err
	}
	mean, err := e.mean.Forward(features)
	if err != nil {
		return Latent{}, err
	}
	logVar, err := e.logVar.Forward(features)
	if err != nil {
		return Latent{}, err
	}

	eps := e.epsilon(e.arch.LatentDim)
	return Latent{
		Mean:   mean.Data,
		LogVar: logVar.Data,
		Sample: Reparameterize(mean.Data, logVar.Data, eps),
	}, nil
}

func (e *Encoder) epsilon(n int) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: e.src}
	eps := make([]float64, n)
	for i := range eps {
		eps[i] = normal.Rand()
	}
	return eps
}

// Reparameterize computes mean + exp(0.5*logVar) * eps element-wise.
func Reparameterize(mean, logVar, eps []float64) []float64 {
	out := make([]float64, len(mean))
	for i, lv := range logVar {
		out[i] = math.Exp(0.5 * lv)
	}
	floats.Mul(out, eps)
	floats.Add(out, mean)
	return out
}

func (e *Encoder) params() []param {
	var ps []param
	for _, nw := range e.Networks() {
		ps = append(ps, nw.params()...)
	}
	return ps
}

func (e *Encoder) InitWeights(rng *rand.Rand) {
	for _, nw := range e.Networks() {
		nw.InitWeights(rng)
	}
}

// SaveToFile writes trunk and head weights into one artifact.
func (e *Encoder) SaveToFile(filename string) error {
	return saveParams(filename, e.params())
}

func (e *Encoder) LoadFromFile(filename string) error {
	return loadParams(filename, e.params())
}

// Decoder maps a latent vector back to an image. It has no randomness.
type Decoder struct {
	arch Architecture
	net  *Network
}

func NewDecoder(arch Architecture) (*Decoder, error) {
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("decoder architecture: %w", err)
	}
	net, err := NewNetwork(arch.DecoderLayers()...)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	if out := net.OutputShape(); out != arch.InputShape() {
		return nil, fmt.Errorf("decoder output %s does not match input shape %s", out, arch.InputShape())
	}
	return &Decoder{arch: arch, net: net}, nil
}

func (d *Decoder) Architecture() Architecture { return d.arch }

func (d *Decoder) Network() *Network { return d.net }

func (d *Decoder) Decode(z []float64) (*Tensor, error) {
	if len(z) != d.arch.LatentDim {
		return nil, fmt.Errorf("%w: decoder expects latent of length %d, got %d", ErrShape, d.arch.LatentDim, len(z))
	}
	return d.net.Forward(&Tensor{Shape: VectorShape(len(z)), Data: z})
}

func (d *Decoder) InitWeights(rng *rand.Rand) { d.net.InitWeights(rng) }

func (d *Decoder) SaveToFile(filename string) error { return d.net.SaveToFile(filename) }

func (d *Decoder) LoadFromFile(filename string) error { return d.net.LoadFromFile(filename) }
