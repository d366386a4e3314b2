package morph

import (
	"errors"
	"fmt"

	"github.com/b0tShaman/hotseats/ml"
)

// ErrInvalidSteps is returned when fewer than one interpolation step is requested.
var ErrInvalidSteps = errors.New("steps must be at least 1")

// Interpolate returns steps points on the line from a towards b. Point i sits
// at alpha = i/steps, so out[0] is a copy of a and b itself is never reached.
func Interpolate(a, b []float64, steps int) ([][]float64, error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSteps, steps)
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: latent lengths differ (%d vs %d)", ml.ErrShape, len(a), len(b))
	}

	out := make([][]float64, steps)
	for i := range out {
		alpha := float64(i) / float64(steps)
		point := make([]float64, len(a))
		if i == 0 {
			copy(point, a)
		} else {
			for j := range point {
				point[j] = alpha*b[j] + (1-alpha)*a[j]
			}
		}
		out[i] = point
	}
	return out, nil
}
