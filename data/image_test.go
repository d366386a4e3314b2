package data

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b0tShaman/hotseats/ml"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newPreprocessor(t *testing.T, s ml.Shape) *Preprocessor {
	t.Helper()
	p, err := NewPreprocessor(s)
	require.NoError(t, err)
	return p
}

func TestPreprocessStretchesToTargetShape(t *testing.T) {
	raw := encodePNG(t, solidImage(37, 12, color.NRGBA{R: 255, G: 0, B: 51, A: 255}))
	p := newPreprocessor(t, ml.Shape{H: 10, W: 10, C: 3})

	out, err := p.Preprocess(raw)
	require.NoError(t, err)

	assert.Equal(t, ml.Shape{H: 10, W: 10, C: 3}, out.Shape)
	assert.InDelta(t, 1.0, out.At(5, 5, 0), 1e-9)
	assert.InDelta(t, 0.0, out.At(5, 5, 1), 1e-9)
	assert.InDelta(t, 0.2, out.At(5, 5, 2), 1e-9)
	for _, v := range out.Data {
		assert.True(t, v >= 0 && v <= 1)
	}
}

func TestPreprocessDropsAlpha(t *testing.T) {
	raw := encodePNG(t, solidImage(4, 4, color.NRGBA{R: 0, G: 255, B: 0, A: 0}))
	p := newPreprocessor(t, ml.Shape{H: 4, W: 4, C: 3})

	out, err := p.Preprocess(raw)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.At(0, 0, 1), 1e-9)
}

func TestPreprocessGrayscale(t *testing.T) {
	raw := encodePNG(t, solidImage(8, 8, color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	p := newPreprocessor(t, ml.Shape{H: 4, W: 4, C: 1})

	out, err := p.Preprocess(raw)
	require.NoError(t, err)
	assert.Equal(t, ml.Shape{H: 4, W: 4, C: 1}, out.Shape)
	assert.InDelta(t, 1.0, out.At(2, 2, 0), 1e-9)
}

func TestPreprocessAcceptsJPEGAndGIF(t *testing.T) {
	src := solidImage(20, 30, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	p := newPreprocessor(t, ml.Shape{H: 8, W: 8, C: 3})

	var jbuf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jbuf, src, nil))
	out, err := p.Preprocess(jbuf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 8*8*3, len(out.Data))

	var gbuf bytes.Buffer
	require.NoError(t, gif.Encode(&gbuf, src, nil))
	format, _, err := Sniff(gbuf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "gif", format)
	_, err = p.Preprocess(gbuf.Bytes())
	require.NoError(t, err)
}

func TestPreprocessRejectsRenamedTextFile(t *testing.T) {
	raw := []byte("this is a text file saved as chair.png\n")
	p := newPreprocessor(t, ml.Shape{H: 8, W: 8, C: 3})

	assert.False(t, IsImage(raw))
	_, err := p.Preprocess(raw)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestPreprocessRejectsTruncatedImage(t *testing.T) {
	raw := encodePNG(t, solidImage(16, 16, color.NRGBA{A: 255}))
	p := newPreprocessor(t, ml.Shape{H: 8, W: 8, C: 3})

	_, err := p.Preprocess(raw[:len(raw)/2])
	assert.ErrorIs(t, err, ErrDecode)
}

func TestPreprocessRejectsOversizedImage(t *testing.T) {
	raw := encodePNG(t, solidImage(20, 20, color.NRGBA{A: 255}))
	p := newPreprocessor(t, ml.Shape{H: 8, W: 8, C: 3}).WithMaxPixels(100)

	_, err := p.Preprocess(raw)
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestNewPreprocessorRejectsBadShapes(t *testing.T) {
	_, err := NewPreprocessor(ml.Shape{H: 8, W: 9, C: 3})
	assert.Error(t, err)
	_, err = NewPreprocessor(ml.Shape{H: 8, W: 8, C: 4})
	assert.Error(t, err)
}
