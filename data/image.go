package data

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Registers GIF format
	_ "image/jpeg" // Essential: Registers JPEG format
	_ "image/png"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/b0tShaman/hotseats/ml"
)

// DefaultMaxPixels bounds the declared size of an input image.
const DefaultMaxPixels = 50_000_000

// ErrDecode marks input bytes that are not a supported raster image.
var ErrDecode = errors.New("decode image")

// supportedFormats are the format names registered with image.Decode that
// uploads may use.
var supportedFormats = map[string]bool{
	"png":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
}

// Sniff reads only the image header and reports its format. Anything that is
// not a PNG, JPEG, GIF or WebP is rejected, whatever its file name claims.
func Sniff(raw []byte) (string, image.Config, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", image.Config{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if !supportedFormats[format] {
		return "", image.Config{}, fmt.Errorf("%w: unsupported format %q", ErrDecode, format)
	}
	return format, cfg, nil
}

// IsImage reports whether raw looks like a supported image.
func IsImage(raw []byte) bool {
	_, _, err := Sniff(raw)
	return err == nil
}

// Preprocessor turns uploaded image bytes into the tensor an encoder expects.
type Preprocessor struct {
	shape     ml.Shape
	maxPixels int
}

func NewPreprocessor(shape ml.Shape) (*Preprocessor, error) {
	if shape.H <= 0 || shape.H != shape.W {
		return nil, fmt.Errorf("preprocessor needs a square shape, got %s", shape)
	}
	if shape.C != 1 && shape.C != 3 {
		return nil, fmt.Errorf("preprocessor supports 1 or 3 channels, got %d", shape.C)
	}
	return &Preprocessor{shape: shape, maxPixels: DefaultMaxPixels}, nil
}

// WithMaxPixels returns a copy that rejects images declaring more pixels.
func (p *Preprocessor) WithMaxPixels(n int) *Preprocessor {
	cp := *p
	cp.maxPixels = n
	return &cp
}

func (p *Preprocessor) Shape() ml.Shape { return p.shape }

// Preprocess decodes raw, drops alpha, stretches to the square target with
// Lanczos resampling and scales pixels into [0,1].
func (p *Preprocessor) Preprocess(raw []byte) (*ml.Tensor, error) {
	// 1. Validate header before touching pixels
	_, cfg, err := Sniff(raw)
	if err != nil {
		return nil, err
	}
	if p.maxPixels > 0 && cfg.Width*cfg.Height > p.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, p.maxPixels)
	}

	// 2. Decode (first frame for animations)
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	// 3. Drop alpha, then resize
	size := uint(p.shape.H)
	resized := resize.Resize(size, size, opaque(src), resize.Lanczos3)

	// 4. Normalize (0-255 -> 0.0-1.0)
	t := ml.NewTensor(p.shape)
	b := resized.Bounds()
	for y := 0; y < p.shape.H; y++ {
		for x := 0; x < p.shape.W; x++ {
			c := color.NRGBAModel.Convert(resized.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			r, g, bl := float64(c.R), float64(c.G), float64(c.B)
			if p.shape.C == 1 {
				// Standard Grayscale formula
				t.Set(y, x, 0, (0.299*r+0.587*g+0.114*bl)/255.0)
				continue
			}
			t.Set(y, x, 0, r/255.0)
			t.Set(y, x, 1, g/255.0)
			t.Set(y, x, 2, bl/255.0)
		}
	}
	return t, nil
}

// opaque converts src to non-premultiplied RGBA and forces alpha to 255, so
// colour channels survive as stored, like an RGB conversion.
func opaque(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n, ok := src.(*image.NRGBA); ok {
		// Straight copy keeps the colour of fully transparent pixels.
		for y := 0; y < b.Dy(); y++ {
			row := n.Pix[n.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], row[:dst.Stride])
		}
	} else {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
