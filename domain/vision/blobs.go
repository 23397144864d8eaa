package vision

import (
	"image"
	"image/color"
	"math"
)

// BlobOptions bounds the connected components accepted by FindBlob.
type BlobOptions struct {
	MaxSaturation uint8 // HSV saturation ceiling (0-255)
	MinValue      uint8 // HSV value floor (0-255)
	MinArea       int
	MaxArea       int
	MinAspect     float64
	MaxAspect     float64
}

// DefaultBlobOptions matches the small light-gray profile button icon.
func DefaultBlobOptions() BlobOptions {
	return BlobOptions{
		MaxSaturation: 30,
		MinValue:      180,
		MinArea:       50,
		MaxArea:       500,
		MinAspect:     0.7,
		MaxAspect:     1.3,
	}
}

// FindBlob looks for the largest bright, low-saturation connected component
// inside r whose pixel area and bounding-box aspect ratio fall within opts.
// Confidence is min(0.7, area/MaxArea) so a color hit never outranks a solid
// template match.
func FindBlob(img image.Image, r Region, opts BlobOptions) Detection {
	cr, ok := r.ClampTo(img)
	if !ok {
		return Detection{Err: ErrInvalidRegion}
	}
	origin := img.Bounds().Min
	W, H := cr.W, cr.H
	mask := make([]bool, W*H)
	for y := 0; y < H; y++ {
		for x := 0; x < W; x++ {
			c := color.NRGBAModel.Convert(img.At(origin.X+cr.X+x, origin.Y+cr.Y+y)).(color.NRGBA)
			s, v := saturationValue(c.R, c.G, c.B)
			mask[y*W+x] = s <= opts.MaxSaturation && v >= opts.MinValue
		}
	}

	best := Detection{}
	bestArea := 0
	seen := make([]bool, W*H)
	stack := make([]int, 0, 64)
	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		area := 0
		minX, minY, maxX, maxY := W, H, -1, -1
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%W, i/W
			area++
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= W || ny >= H {
						continue
					}
					j := ny*W + nx
					if mask[j] && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		if area < opts.MinArea || area > opts.MaxArea {
			continue
		}
		bw, bh := maxX-minX+1, maxY-minY+1
		aspect := float64(bw) / float64(bh)
		if aspect < opts.MinAspect || aspect > opts.MaxAspect {
			continue
		}
		if area > bestArea {
			bestArea = area
			box := Region{X: cr.X + minX, Y: cr.Y + minY, W: bw, H: bh}
			best = Detection{
				Name:       "color-blob",
				Found:      true,
				Box:        box,
				Center:     box.Center(),
				Confidence: math.Min(0.7, float64(area)/float64(opts.MaxArea)),
			}
		}
	}
	return best
}

// saturationValue returns HSV saturation and value scaled to 0-255.
func saturationValue(r, g, b uint8) (uint8, uint8) {
	hi := max(r, g, b)
	lo := min(r, g, b)
	if hi == 0 {
		return 0, 0
	}
	return uint8(int(hi-lo) * 255 / int(hi)), hi
}
