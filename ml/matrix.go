package ml

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Matrix represents a dense matrix with a flat data slice for performance.
type Matrix struct {
	rows, cols int
	data       []float64
	dense      *mat.Dense
}

// -------- CONSTRUCTORS ------- //
func NewMatrix(rows, cols int) *Matrix {
	data := make([]float64, rows*cols)
	return &Matrix{
		rows:  rows,
		cols:  cols,
		data:  data,
		dense: mat.NewDense(rows, cols, data),
	}
}

func NewMatrixFromSlice(rows, cols int, data []float64) *Matrix {
	if len(data) != rows*cols {
		panic("Slice length mismatch")
	}

	return &Matrix{
		rows:  rows,
		cols:  cols,
		data:  data,
		dense: mat.NewDense(rows, cols, data),
	}
}

// ------- MATRIX METHODS ------ //
func (m *Matrix) GobEncode() ([]byte, error) {
	w := new(bytes.Buffer)
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(m.rows); err != nil {
		return nil, err
	}
	if err := encoder.Encode(m.cols); err != nil {
		return nil, err
	}
	if err := encoder.Encode(m.data); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (m *Matrix) GobDecode(buf []byte) error {
	r := bytes.NewBuffer(buf)
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(&m.rows); err != nil {
		return err
	}
	if err := decoder.Decode(&m.cols); err != nil {
		return err
	}
	if err := decoder.Decode(&m.data); err != nil {
		return err
	}
	if m.rows <= 0 || m.cols <= 0 || len(m.data) != m.rows*m.cols {
		return errCorruptMatrix
	}

	// Re-create the wrapper after loading data
	m.dense = mat.NewDense(m.rows, m.cols, m.data)

	return nil
}

// Randomize applies He-normal initialisation; rows is the fan-in for both
// dense kernels (in x out) and unrolled conv kernels (k*k*cin x cout).
func (m *Matrix) Randomize(rng *rand.Rand) {
	scale := math.Sqrt(2.0 / float64(m.rows))
	for i := range m.data {
		m.data[i] = rng.NormFloat64() * scale
	}
}

func (m *Matrix) Reset() {
	for i := range m.data {
		m.data[i] = 0.0
	}
}

func (m *Matrix) AddVector(v *Matrix) {
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		for j := range row {
			row[j] += v.data[j]
		}
	}
}

func (m *Matrix) ApplyRelu() {
	for i, v := range m.data {
		if v < 0 {
			m.data[i] = 0
		}
	}
}

func (m *Matrix) ApplySigmoid() {
	for i, v := range m.data {
		m.data[i] = 1.0 / (1.0 + math.Exp(-v))
	}
}

// Activate applies act in place.
func (m *Matrix) Activate(act ActivationType) {
	switch act {
	case ActRelu:
		m.ApplyRelu()
	case ActSigmoid:
		m.ApplySigmoid()
	}
}

// ------ UTILITY FUNCTIONS ------
func MatMul(a, b mat.Matrix, out *Matrix) {
	out.dense.Mul(a, b)
}
