package profile

import (
	"image"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/domain/vision"
)

// Geometry derives every search region from one anchor point (the click on
// a scoreboard row). All offsets live in config.Geometry; they are
// calibrated for one resolution and layout.
type Geometry struct {
	cfg config.Geometry
}

// NewGeometry returns a Geometry over cfg.
func NewGeometry(cfg config.Geometry) Geometry {
	return Geometry{cfg: cfg}
}

func fromOffset(anchor image.Point, o config.Offset) vision.Region {
	return vision.Region{X: anchor.X + o.DX, Y: anchor.Y + o.DY, W: o.W, H: o.H}
}

func clampTo(r vision.Region, size image.Point) (vision.Region, bool) {
	return r.Clamp(size.X, size.Y)
}

// Panel is the profile details panel that opens next to the click.
func (g Geometry) Panel(anchor, size image.Point) (vision.Region, bool) {
	return clampTo(fromOffset(anchor, g.cfg.Panel), size)
}

// ArrowBand is the narrow vertical strip where the "more medals" arrow sits.
func (g Geometry) ArrowBand(anchor, size image.Point) (vision.Region, bool) {
	return clampTo(fromOffset(anchor, g.cfg.ArrowBand), size)
}

// SympathyBand is the strip shared by all sympathy icons. Icons shift left
// when some are missing, so they are searched together.
func (g Geometry) SympathyBand(anchor, size image.Point) (vision.Region, bool) {
	return clampTo(fromOffset(anchor, g.cfg.SympathyBand), size)
}

// Nickname is the scoreboard cell holding the player name.
func (g Geometry) Nickname(anchor, size image.Point) (vision.Region, bool) {
	return clampTo(fromOffset(anchor, g.cfg.Nickname), size)
}

// NumberCell is the counter immediately right of a detected icon box.
func (g Geometry) NumberCell(icon vision.Region, size image.Point) (vision.Region, bool) {
	r := vision.Region{
		X: icon.X + icon.W + g.cfg.NumberGap,
		Y: icon.Y - g.cfg.NumberPad,
		W: g.cfg.NumberWidth,
		H: icon.H + 2*g.cfg.NumberPad,
	}
	return clampTo(r, size)
}

// imageSize returns the width and height of img as a point.
func imageSize(img image.Image) image.Point {
	if img == nil {
		return image.Point{}
	}
	b := img.Bounds()
	return image.Pt(b.Dx(), b.Dy())
}
