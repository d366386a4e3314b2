package ml

import (
	"fmt"
	"strings"
)

const (
	ActLinear ActivationType = iota
	ActRelu
	ActSigmoid
)

const (
	KindInput LayerKind = iota
	KindConv2D
	KindMaxPool2D
	KindUpSample2D
	KindZeroPad2D
	KindFlatten
	KindReshape
	KindDense
)

var activationMap = map[string]ActivationType{
	"linear":  ActLinear,
	"sigmoid": ActSigmoid,
	"relu":    ActRelu,
}

var kindNames = map[LayerKind]string{
	KindInput:      "input",
	KindConv2D:     "conv2d",
	KindMaxPool2D:  "max_pooling2d",
	KindUpSample2D: "up_sampling2d",
	KindZeroPad2D:  "zero_padding2d",
	KindFlatten:    "flatten",
	KindReshape:    "reshape",
	KindDense:      "dense",
}

// -------- TYPE DEFINITIONS -------- //
type ActivationType int
type LayerKind int
type LayerOption func(*LayerConfig)

func (a ActivationType) String() string {
	for name, act := range activationMap {
		if act == a {
			return name
		}
	}
	return fmt.Sprintf("activation(%d)", int(a))
}

func (k LayerKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// LayerConfig holds the blueprint for a layer
type LayerConfig struct {
	Kind       LayerKind
	Name       string
	Activation ActivationType

	// Conv2D / Dense
	Filters    int
	Neurons    int
	KernelSize int

	// MaxPool2D / UpSample2D
	Pool int

	// ZeroPad2D: top, bottom, left, right
	Pad [4]int

	// Input / Reshape
	Target Shape
}

// Layer is a built layer with resolved shapes. Kernel and Bias are nil for
// parameter-free layers. Layers are read-only during Forward.
type Layer struct {
	LayerConfig
	In, Out Shape

	Kernel *Matrix // conv: (k*k*cin) x cout, dense: in x out
	Bias   *Matrix // 1 x out
}

// ------- LAYER CONFIG HELPERS ------- //
// Input defines the entry point dimensions
func Input(h, w, c int) LayerConfig {
	return LayerConfig{Kind: KindInput, Target: Shape{H: h, W: w, C: c}}
}

// Conv2D is a stride-1 convolution with "same" zero padding.
func Conv2D(filters int, opts ...LayerOption) LayerConfig {
	c := LayerConfig{
		Kind:       KindConv2D,
		Filters:    filters,
		KernelSize: 3,
		Activation: ActRelu, // Default for hidden layers
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Dense defines a fully connected layer over a flat 1x1xN input.
func Dense(size int, opts ...LayerOption) LayerConfig {
	d := LayerConfig{
		Kind:       KindDense,
		Neurons:    size,
		Activation: ActRelu,
	}

	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// MaxPool2D pools with "same" padding, so each side becomes ceil(n/size).
func MaxPool2D(size int) LayerConfig {
	return LayerConfig{Kind: KindMaxPool2D, Pool: size}
}

// UpSample2D repeats every pixel size times along both axes.
func UpSample2D(size int) LayerConfig {
	return LayerConfig{Kind: KindUpSample2D, Pool: size}
}

func ZeroPad2D(top, bottom, left, right int) LayerConfig {
	return LayerConfig{Kind: KindZeroPad2D, Pad: [4]int{top, bottom, left, right}}
}

func Flatten() LayerConfig {
	return LayerConfig{Kind: KindFlatten}
}

func Reshape(h, w, c int) LayerConfig {
	return LayerConfig{Kind: KindReshape, Target: Shape{H: h, W: w, C: c}}
}

// Activation looks up an activation by name. Unknown names panic, as they
// can only come from source code.
func Activation(name string) LayerOption {
	return func(lc *LayerConfig) {
		act, ok := activationMap[strings.ToLower(name)]
		if !ok {
			panic(fmt.Sprintf("unknown activation %q", name))
		}
		lc.Activation = act
	}
}

func KernelSize(k int) LayerOption {
	return func(lc *LayerConfig) {
		lc.KernelSize = k
	}
}

// Named sets the layer name used for its weight tensors.
func Named(name string) LayerOption {
	return func(lc *LayerConfig) {
		lc.Name = name
	}
}

// outputShape resolves the layer's output for the given input shape.
func (c LayerConfig) outputShape(in Shape) (Shape, error) {
	switch c.Kind {
	case KindConv2D:
		if c.Filters <= 0 {
			return Shape{}, fmt.Errorf("filters must be positive, got %d", c.Filters)
		}
		if c.KernelSize <= 0 || c.KernelSize%2 == 0 {
			return Shape{}, fmt.Errorf("kernel size must be odd and positive, got %d", c.KernelSize)
		}
		return Shape{H: in.H, W: in.W, C: c.Filters}, nil

	case KindMaxPool2D:
		if c.Pool <= 0 {
			return Shape{}, fmt.Errorf("pool size must be positive, got %d", c.Pool)
		}
		return Shape{H: ceilDiv(in.H, c.Pool), W: ceilDiv(in.W, c.Pool), C: in.C}, nil

	case KindUpSample2D:
		if c.Pool <= 0 {
			return Shape{}, fmt.Errorf("upsample size must be positive, got %d", c.Pool)
		}
		return Shape{H: in.H * c.Pool, W: in.W * c.Pool, C: in.C}, nil

	case KindZeroPad2D:
		for _, p := range c.Pad {
			if p < 0 {
				return Shape{}, fmt.Errorf("negative padding %v", c.Pad)
			}
		}
		return Shape{H: in.H + c.Pad[0] + c.Pad[1], W: in.W + c.Pad[2] + c.Pad[3], C: in.C}, nil

	case KindFlatten:
		return VectorShape(in.Size()), nil

	case KindReshape:
		if !c.Target.valid() || c.Target.Size() != in.Size() {
			return Shape{}, fmt.Errorf("cannot reshape %s into %s", in, c.Target)
		}
		return c.Target, nil

	case KindDense:
		if in.H != 1 || in.W != 1 {
			return Shape{}, fmt.Errorf("dense input must be flat, got %s", in)
		}
		if c.Neurons <= 0 {
			return Shape{}, fmt.Errorf("neurons must be positive, got %d", c.Neurons)
		}
		return VectorShape(c.Neurons), nil
	}
	return Shape{}, fmt.Errorf("unsupported layer kind %s", c.Kind)
}

// Forward runs the layer on in and returns a freshly allocated output.
func (l *Layer) Forward(in *Tensor) *Tensor {
	switch l.Kind {
	case KindConv2D:
		return conv2D(in, l.Kernel, l.Bias, l.KernelSize, l.Activation)
	case KindMaxPool2D:
		return maxPool2D(in, l.Pool, l.Out)
	case KindUpSample2D:
		return upSample2D(in, l.Pool)
	case KindZeroPad2D:
		return zeroPad2D(in, l.Pad, l.Out)
	case KindFlatten, KindReshape:
		return &Tensor{Shape: l.Out, Data: in.Data}
	case KindDense:
		out := NewTensor(l.Out)
		om := NewMatrixFromSlice(1, l.Out.C, out.Data)
		MatMul(NewMatrixFromSlice(1, in.C, in.Data).dense, l.Kernel.dense, om)
		om.AddVector(l.Bias)
		om.Activate(l.Activation)
		return out
	}
	panic(fmt.Sprintf("unsupported layer kind %s", l.Kind))
}

// ParamCount is the number of trainable values held by the layer.
func (l *Layer) ParamCount() int {
	if l.Kernel == nil {
		return 0
	}
	return len(l.Kernel.data) + len(l.Bias.data)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
