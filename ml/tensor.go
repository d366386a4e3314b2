package ml

import "fmt"

// Shape is a channels-last (height, width, channels) tensor shape.
// Vectors are carried as 1x1xN.
type Shape struct {
	H, W, C int
}

// VectorShape returns the 1x1xn shape used for flat vectors.
func VectorShape(n int) Shape { return Shape{H: 1, W: 1, C: n} }

func (s Shape) Size() int { return s.H * s.W * s.C }

func (s Shape) String() string { return fmt.Sprintf("%dx%dx%d", s.H, s.W, s.C) }

func (s Shape) valid() bool { return s.H > 0 && s.W > 0 && s.C > 0 }

// Tensor is an HWC image (or 1x1xN vector) stored row-major in Data.
type Tensor struct {
	Shape
	Data []float64
}

func NewTensor(s Shape) *Tensor {
	return &Tensor{Shape: s, Data: make([]float64, s.Size())}
}

// NewTensorFromSlice wraps data without copying.
func NewTensorFromSlice(s Shape, data []float64) (*Tensor, error) {
	if !s.valid() || len(data) != s.Size() {
		return nil, fmt.Errorf("%w: %d values for shape %s", ErrShape, len(data), s)
	}
	return &Tensor{Shape: s, Data: data}, nil
}

func (t *Tensor) At(y, x, c int) float64 {
	return t.Data[(y*t.W+x)*t.C+c]
}

func (t *Tensor) Set(y, x, c int, v float64) {
	t.Data[(y*t.W+x)*t.C+c] = v
}

func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return &Tensor{Shape: t.Shape, Data: data}
}

// pixels views the tensor as a (H*W) x C matrix sharing Data.
func (t *Tensor) pixels() *Matrix {
	return NewMatrixFromSlice(t.H*t.W, t.C, t.Data)
}
