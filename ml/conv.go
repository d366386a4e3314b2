package ml

import "math"

// -------- SPATIAL KERNELS -------- //
// All kernels read in and allocate their output; none of them write to
// weights, which keeps a loaded network safe for concurrent Forward calls.

// conv2D is a stride-1 "same" convolution: im2col then one GEMM.
func conv2D(in *Tensor, kernel, bias *Matrix, k int, act ActivationType) *Tensor {
	out := NewTensor(Shape{H: in.H, W: in.W, C: kernel.cols})
	om := out.pixels()

	MatMul(im2col(in, k).dense, kernel.dense, om)
	om.AddVector(bias)
	om.Activate(act)
	return out
}

// im2col unrolls every k x k neighbourhood into one row ordered (ky, kx, c),
// matching kernels stored as (kh, kw, cin, cout). Out-of-bounds taps stay zero.
func im2col(in *Tensor, k int) *Matrix {
	pad := k / 2
	c := in.C
	m := NewMatrix(in.H*in.W, k*k*c)

	for y := 0; y < in.H; y++ {
		for x := 0; x < in.W; x++ {
			idx := (y*in.W + x) * m.cols
			for ky := 0; ky < k; ky++ {
				sy := y + ky - pad
				for kx := 0; kx < k; kx++ {
					sx := x + kx - pad
					if sy >= 0 && sy < in.H && sx >= 0 && sx < in.W {
						src := (sy*in.W + sx) * c
						copy(m.data[idx:idx+c], in.Data[src:src+c])
					}
					idx += c
				}
			}
		}
	}
	return m
}

// maxPool2D uses "same" padding: the missing cells of edge windows are
// ignored rather than treated as zero. Padding goes after the data first.
func maxPool2D(in *Tensor, p int, outShape Shape) *Tensor {
	out := NewTensor(outShape)
	padTop := max((outShape.H-1)*p+p-in.H, 0) / 2
	padLeft := max((outShape.W-1)*p+p-in.W, 0) / 2

	for oy := 0; oy < out.H; oy++ {
		y0 := max(oy*p-padTop, 0)
		y1 := min(oy*p-padTop+p, in.H)
		for ox := 0; ox < out.W; ox++ {
			x0 := max(ox*p-padLeft, 0)
			x1 := min(ox*p-padLeft+p, in.W)
			dst := out.Data[(oy*out.W+ox)*out.C : (oy*out.W+ox+1)*out.C]
			for ch := range dst {
				dst[ch] = math.Inf(-1)
			}
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					src := in.Data[(y*in.W+x)*in.C : (y*in.W+x+1)*in.C]
					for ch, v := range src {
						if v > dst[ch] {
							dst[ch] = v
						}
					}
				}
			}
		}
	}
	return out
}

// upSample2D is nearest-neighbour upsampling.
func upSample2D(in *Tensor, p int) *Tensor {
	out := NewTensor(Shape{H: in.H * p, W: in.W * p, C: in.C})
	for y := 0; y < out.H; y++ {
		for x := 0; x < out.W; x++ {
			src := ((y/p)*in.W + x/p) * in.C
			dst := (y*out.W + x) * out.C
			copy(out.Data[dst:dst+out.C], in.Data[src:src+in.C])
		}
	}
	return out
}

// zeroPad2D pads with zeros; pad is top, bottom, left, right.
func zeroPad2D(in *Tensor, pad [4]int, outShape Shape) *Tensor {
	out := NewTensor(outShape)
	top, left := pad[0], pad[2]
	rowLen := in.W * in.C
	for y := 0; y < in.H; y++ {
		dst := ((y+top)*out.W + left) * out.C
		copy(out.Data[dst:dst+rowLen], in.Data[y*rowLen:(y+1)*rowLen])
	}
	return out
}
