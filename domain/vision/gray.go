package vision

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// plane stores per-pixel luminance in [0,255] and, when requested, the
// summed-area tables that allow O(1) window sum and variance queries.
type plane struct {
	pix        []float64
	integral   []float64
	integralSq []float64
	W, H       int
}

// newPlane converts img to single-channel luminance. Color is discarded so
// matching tolerates small hue shifts from compression.
func newPlane(img image.Image, integrals bool) *plane {
	if img == nil {
		return nil
	}
	g := imaging.Grayscale(img)
	W, H := g.Rect.Dx(), g.Rect.Dy()
	p := &plane{pix: make([]float64, W*H), W: W, H: H}
	for y := 0; y < H; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < W; x++ {
			p.pix[y*W+x] = float64(row[x*4])
		}
	}
	if integrals {
		p.buildIntegrals()
	}
	return p
}

func (p *plane) buildIntegrals() {
	W, H := p.W, p.H
	p.integral = make([]float64, W*H)
	p.integralSq = make([]float64, W*H)
	for y := 0; y < H; y++ {
		var rowSum, rowSum2 float64
		for x := 0; x < W; x++ {
			off := y*W + x
			v := p.pix[off]
			rowSum += v
			rowSum2 += v * v
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[off-W] + rowSum
				p.integralSq[off] = p.integralSq[off-W] + rowSum2
			}
		}
	}
}

// bytes returns the plane as 8-bit luminance.
func (p *plane) bytes() []byte {
	out := make([]byte, len(p.pix))
	for i, v := range p.pix {
		out[i] = uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	return out
}

// integralSum returns the inclusive sum over rectangle [x0..x1] x [y0..y1]
// from an integral image stored in row-major order with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}

// MeanStdDev returns the luminance mean and population standard deviation
// of img inside r. A region that clamps to nothing yields zeros.
func MeanStdDev(img image.Image, r Region) (mean, std float64) {
	cr, ok := r.ClampTo(img)
	if !ok {
		return 0, 0
	}
	p := newPlane(Crop(img, cr), false)
	if p == nil || len(p.pix) == 0 {
		return 0, 0
	}
	var sum, sum2 float64
	for _, v := range p.pix {
		sum += v
		sum2 += v * v
	}
	n := float64(len(p.pix))
	mean = sum / n
	variance := sum2/n - mean*mean
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return mean, std
}

func cropCopy(img image.Image, rect image.Rectangle) image.Image {
	return imaging.Crop(img, rect)
}
