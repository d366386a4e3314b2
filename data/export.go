package data

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/b0tShaman/hotseats/ml"
)

// ToImage renders a [0,1] tensor as 8-bit pixels. Values are rounded and
// clamped; NaN renders as black.
func ToImage(t *ml.Tensor) (image.Image, error) {
	switch t.C {
	case 1:
		img := image.NewGray(image.Rect(0, 0, t.W, t.H))
		for y := 0; y < t.H; y++ {
			for x := 0; x < t.W; x++ {
				img.SetGray(x, y, color.Gray{Y: to8(t.At(y, x, 0))})
			}
		}
		return img, nil
	case 3:
		img := image.NewNRGBA(image.Rect(0, 0, t.W, t.H))
		for y := 0; y < t.H; y++ {
			for x := 0; x < t.W; x++ {
				img.SetNRGBA(x, y, color.NRGBA{
					R: to8(t.At(y, x, 0)),
					G: to8(t.At(y, x, 1)),
					B: to8(t.At(y, x, 2)),
					A: 0xff,
				})
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("cannot render %d-channel tensor", t.C)
}

func to8(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}

func EncodePNG(w io.Writer, t *ml.Tensor) error {
	img, err := ToImage(t)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Base64PNG encodes t as a base64 PNG for embedding in HTML or JSON.
func Base64PNG(t *ml.Tensor) (string, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, t); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// WriteSequence writes frames as dir/prefix_000.png, dir/prefix_001.png, ...
// and returns the paths in order.
func WriteSequence(dir, prefix string, frames []*ml.Tensor) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, 0, len(frames))
	for i, frame := range frames {
		path := filepath.Join(dir, fmt.Sprintf("%s_%03d.png", prefix, i))
		if err := writePNG(path, frame); err != nil {
			return paths, fmt.Errorf("write frame %d: %w", i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(path string, t *ml.Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := EncodePNG(f, t); err != nil {
		return err
	}
	return f.Close()
}

// EncodeGIF writes an endlessly looping animation. delay is in 1/100 s.
// With bounce the sequence plays forward then back (A..B..A) without
// repeating the end frames.
func EncodeGIF(w io.Writer, frames []*ml.Tensor, delay int, bounce bool) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}
	order := make([]int, 0, 2*len(frames))
	for i := range frames {
		order = append(order, i)
	}
	if bounce {
		for i := len(frames) - 2; i > 0; i-- {
			order = append(order, i)
		}
	}

	anim := &gif.GIF{LoopCount: 0}
	cache := make(map[int]*image.Paletted, len(frames))
	for _, i := range order {
		pm, ok := cache[i]
		if !ok {
			img, err := ToImage(frames[i])
			if err != nil {
				return err
			}
			pm = image.NewPaletted(img.Bounds(), palette.Plan9)
			draw.FloydSteinberg.Draw(pm, img.Bounds(), img, image.Point{})
			cache[i] = pm
		}
		anim.Image = append(anim.Image, pm)
		anim.Delay = append(anim.Delay, delay)
	}
	return gif.EncodeAll(w, anim)
}

// ContactSheet lays frames out left to right, top to bottom, cols per row.
// All frames must share a shape.
func ContactSheet(frames []*ml.Tensor, cols int) (image.Image, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames for contact sheet")
	}
	if cols <= 0 || cols > len(frames) {
		cols = len(frames)
	}
	rows := (len(frames) + cols - 1) / cols
	fw, fh := frames[0].W, frames[0].H

	sheet := image.NewNRGBA(image.Rect(0, 0, cols*fw, rows*fh))
	for i, frame := range frames {
		if frame.Shape != frames[0].Shape {
			return nil, fmt.Errorf("frame %d has shape %s, want %s", i, frame.Shape, frames[0].Shape)
		}
		img, err := ToImage(frame)
		if err != nil {
			return nil, err
		}
		origin := image.Pt((i%cols)*fw, (i/cols)*fh)
		draw.Draw(sheet, image.Rectangle{Min: origin, Max: origin.Add(image.Pt(fw, fh))}, img, image.Point{}, draw.Src)
	}
	return sheet, nil
}
