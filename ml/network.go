package ml

import (
	"fmt"
	"math/rand/v2"
)

// Network is a feed-forward stack of layers with shapes resolved at build
// time. Once weights are loaded it is immutable and may be shared.
type Network struct {
	Layers []*Layer
	Input  Shape
}

// LayerSummary describes one layer for display.
type LayerSummary struct {
	Name       string
	Kind       LayerKind
	Activation ActivationType
	Out        Shape
	Params     int
}

// Neural Network Builder
//
// NewNetwork checks every layer against its predecessor's output so that an
// inconsistent architecture is rejected here rather than at weight-load time.
func NewNetwork(configs ...LayerConfig) (*Network, error) {
	if len(configs) < 2 {
		return nil, fmt.Errorf("network must have Input and at least one layer")
	}
	if configs[0].Kind != KindInput {
		return nil, fmt.Errorf("first layer must be Input()")
	}
	if !configs[0].Target.valid() {
		return nil, fmt.Errorf("invalid input shape %s", configs[0].Target)
	}

	nw := &Network{Input: configs[0].Target}
	prev := nw.Input
	seen := map[string]int{}
	names := map[string]bool{}

	for i := 1; i < len(configs); i++ {
		cfg := configs[i]
		if cfg.Kind == KindInput {
			return nil, fmt.Errorf("layer %d: Input() is only valid first", i)
		}

		out, err := cfg.outputShape(prev)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, cfg.Kind, err)
		}

		// Keras-style default names: conv2d, conv2d_1, ...
		if cfg.Name == "" {
			base := cfg.Kind.String()
			n := seen[base]
			seen[base] = n + 1
			cfg.Name = base
			if n > 0 {
				cfg.Name = fmt.Sprintf("%s_%d", base, n)
			}
		}
		if names[cfg.Name] {
			return nil, fmt.Errorf("layer %d: duplicate layer name %q", i, cfg.Name)
		}
		names[cfg.Name] = true

		layer := &Layer{LayerConfig: cfg, In: prev, Out: out}
		switch cfg.Kind {
		case KindConv2D:
			layer.Kernel = NewMatrix(cfg.KernelSize*cfg.KernelSize*prev.C, cfg.Filters)
			layer.Bias = NewMatrix(1, cfg.Filters)
		case KindDense:
			layer.Kernel = NewMatrix(prev.C, cfg.Neurons)
			layer.Bias = NewMatrix(1, cfg.Neurons)
		}

		nw.Layers = append(nw.Layers, layer)
		prev = out
	}

	return nw, nil
}

// -------- NEURAL NETWORK METHODS -------- //
func (nw *Network) OutputShape() Shape {
	return nw.Layers[len(nw.Layers)-1].Out
}

// Forward runs inference. The input is never modified.
func (nw *Network) Forward(input *Tensor) (*Tensor, error) {
	if input == nil || input.Shape != nw.Input || len(input.Data) != nw.Input.Size() {
		got := "nil"
		if input != nil {
			got = input.Shape.String()
		}
		return nil, fmt.Errorf("%w: network expects %s, got %s", ErrShape, nw.Input, got)
	}

	activation := input
	for _, layer := range nw.Layers {
		activation = layer.Forward(activation)
	}
	return activation, nil
}

// InitWeights fills kernels with He-normal values and zeroes biases.
// Only meant for smoke tests and tooling; inference uses loaded weights.
func (nw *Network) InitWeights(rng *rand.Rand) {
	for _, layer := range nw.Layers {
		if layer.Kernel == nil {
			continue
		}
		layer.Kernel.Randomize(rng)
		layer.Bias.Reset()
	}
}

func (nw *Network) ParamCount() int {
	total := 0
	for _, layer := range nw.Layers {
		total += layer.ParamCount()
	}
	return total
}

func (nw *Network) Summary() []LayerSummary {
	out := make([]LayerSummary, 0, len(nw.Layers))
	for _, l := range nw.Layers {
		out = append(out, LayerSummary{
			Name:       l.Name,
			Kind:       l.Kind,
			Activation: l.Activation,
			Out:        l.Out,
			Params:     l.ParamCount(),
		})
	}
	return out
}

func (nw *Network) params() []param {
	var ps []param
	for _, l := range nw.Layers {
		if l.Kernel == nil {
			continue
		}
		ps = append(ps,
			param{name: l.Name + "/kernel", m: l.Kernel},
			param{name: l.Name + "/bias", m: l.Bias},
		)
	}
	return ps
}

// SaveToFile writes the network weights in the hotseats weights format.
func (nw *Network) SaveToFile(filename string) error {
	return saveParams(filename, nw.params())
}

// LoadFromFile replaces the network weights. On any mismatch nothing is
// copied and the error wraps ErrModelLoad.
func (nw *Network) LoadFromFile(filename string) error {
	return loadParams(filename, nw.params())
}
