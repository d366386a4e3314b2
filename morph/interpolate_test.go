package morph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0tShaman/hotseats/ml"
)

func TestInterpolateStartsAtAAndStopsShortOfB(t *testing.T) {
	a := []float64{0, 10, -4}
	b := []float64{10, 0, 4}

	out, err := Interpolate(a, b, 10)
	require.NoError(t, err)
	require.Len(t, out, 10)

	assert.Equal(t, a, out[0])
	assert.InDeltaSlice(t, []float64{9, 1, 3.2}, out[9], 1e-12)
	for i, point := range out {
		alpha := float64(i) / 10
		for j := range point {
			assert.InDelta(t, alpha*b[j]+(1-alpha)*a[j], point[j], 1e-12)
		}
	}
}

func TestInterpolateSingleStepIsA(t *testing.T) {
	a := []float64{1, 2}
	out, err := Interpolate(a, []float64{3, 4}, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}}, out)

	out[0][0] = 99
	assert.Equal(t, 1.0, a[0])
}

func TestInterpolateRejectsBadInput(t *testing.T) {
	_, err := Interpolate([]float64{1}, []float64{2}, 0)
	assert.ErrorIs(t, err, ErrInvalidSteps)

	_, err = Interpolate([]float64{1}, []float64{2, 3}, 3)
	assert.ErrorIs(t, err, ml.ErrShape)
}
