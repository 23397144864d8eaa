package ocr

import (
	"image"

	"github.com/disintegration/gift"
)

// grayscaleVariant converts to luminance, boosts contrast and upscales by
// scale with cubic resampling.
func grayscaleVariant(src image.Image, scale int, contrast float32) *image.Gray {
	b := src.Bounds()
	g := gift.New(
		gift.Grayscale(),
		gift.Contrast(contrast),
		gift.Resize(b.Dx()*scale, b.Dy()*scale, gift.CubicResampling),
	)
	dst := image.NewGray(g.Bounds(b))
	g.Draw(dst, src)
	return dst
}

// binaryVariant converts to luminance, thresholds at level (values above
// level become white) and then upscales by scale. A level of 0 picks the
// threshold with Otsu's method.
func binaryVariant(src image.Image, level, scale int) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	gift.New(gift.Grayscale()).Draw(gray, src)
	if level <= 0 {
		level = otsuLevel(gray)
	}
	cut := float32(level) / 255
	g := gift.New(
		gift.ColorFunc(func(r0, g0, b0, a0 float32) (float32, float32, float32, float32) {
			if r0 > cut {
				return 1, 1, 1, a0
			}
			return 0, 0, 0, a0
		}),
		gift.Resize(b.Dx()*scale, b.Dy()*scale, gift.CubicResampling),
	)
	dst := image.NewGray(g.Bounds(gray.Bounds()))
	g.Draw(dst, gray)
	return dst
}

// otsuLevel returns the threshold maximizing between-class variance.
func otsuLevel(g *image.Gray) int {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}
	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}
	var sumB float64
	wB := 0
	best, level := 0.0, 128
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = t
		}
	}
	return level
}
