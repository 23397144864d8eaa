package debug

// Region dumps written when config.Debug is true. File names are derived
// from the dump name only, so repeated runs overwrite instead of piling up.

import (
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/soocke/profile-scout/domain/vision"
)

// Dumper saves crops of analysed regions as PNG files.
type Dumper struct {
	dir    string
	logger *slog.Logger
}

// NewDumper returns a dumper writing into dir. A nil *Dumper is valid and
// does nothing.
func NewDumper(dir string, logger *slog.Logger) *Dumper {
	return &Dumper{dir: dir, logger: logger}
}

// Region writes the part of img covered by r as <name>.png.
func (d *Dumper) Region(name string, img image.Image, r vision.Region) {
	if d == nil || img == nil {
		return
	}
	cr, ok := r.ClampTo(img)
	if !ok {
		return
	}
	d.save(name, vision.Crop(img, cr))
}

// Overview writes img scaled down to fit maxW x maxH, keeping the aspect
// ratio. Images that already fit are written unchanged.
func (d *Dumper) Overview(name string, img image.Image, maxW, maxH int) {
	if d == nil || img == nil {
		return
	}
	b := img.Bounds()
	if b.Dx() > maxW || b.Dy() > maxH {
		img = imaging.Fit(img, max(maxW, 1), max(maxH, 1), imaging.NearestNeighbor)
	}
	d.save(name, img)
}

func (d *Dumper) save(name string, img image.Image) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		if d.logger != nil {
			d.logger.Warn("debug dir unavailable", "dir", d.dir, "error", err)
		}
		return
	}
	p := filepath.Join(d.dir, sanitize(name)+".png")
	if err := imaging.Save(img, p); err != nil {
		if d.logger != nil {
			d.logger.Warn("debug dump failed", "path", p, "error", err)
		}
		return
	}
	if d.logger != nil {
		d.logger.Debug("debug dump", "path", p)
	}
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
}
