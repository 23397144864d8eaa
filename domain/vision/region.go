package vision

import (
	"fmt"
	"image"
)

// Region is a rectangle (x, y, width, height) in image pixel coordinates.
type Region struct {
	X, Y, W, H int
}

// Rect converts the region into an image.Rectangle anchored at origin.
func (r Region) Rect(origin image.Point) image.Rectangle {
	return image.Rect(origin.X+r.X, origin.Y+r.Y, origin.X+r.X+r.W, origin.Y+r.Y+r.H)
}

// Area returns W*H, or 0 for degenerate regions.
func (r Region) Area() int {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Center returns the integer center of the region.
func (r Region) Center() image.Point {
	return image.Pt(r.X+r.W/2, r.Y+r.H/2)
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}

// Clamp fits r inside a width x height image. The origin is pulled into
// [0, dim-1] first and the size is then reduced so the rectangle stays
// inside. ok is false when the result has no area.
func (r Region) Clamp(width, height int) (Region, bool) {
	if width <= 0 || height <= 0 {
		return Region{}, false
	}
	x := max(0, min(r.X, width-1))
	y := max(0, min(r.Y, height-1))
	w := min(r.W, width-x)
	h := min(r.H, height-y)
	if w <= 0 || h <= 0 {
		return Region{X: x, Y: y, W: w, H: h}, false
	}
	return Region{X: x, Y: y, W: w, H: h}, true
}

// ClampTo is Clamp against the dimensions of img.
func (r Region) ClampTo(img image.Image) (Region, bool) {
	if img == nil {
		return Region{}, false
	}
	b := img.Bounds()
	return r.Clamp(b.Dx(), b.Dy())
}

// IoU returns the intersection-over-union of two regions.
func IoU(a, b Region) float64 {
	ix0 := max(a.X, b.X)
	iy0 := max(a.Y, b.Y)
	ix1 := min(a.X+a.W, b.X+b.W)
	iy1 := min(a.Y+a.H, b.Y+b.H)
	if ix1 <= ix0 || iy1 <= iy0 {
		return 0
	}
	inter := float64((ix1 - ix0) * (iy1 - iy0))
	union := float64(a.Area()+b.Area()) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Crop returns the sub-image of img covered by r (relative to img bounds).
// The result shares pixels with img when the concrete type allows it.
func Crop(img image.Image, r Region) image.Image {
	rect := r.Rect(img.Bounds().Min)
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(rect)
	}
	return cropCopy(img, rect)
}
