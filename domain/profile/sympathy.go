package profile

import (
	"image"
	"log/slog"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/domain/vision"
)

// NumberReader reads a digits-only counter from a region.
type NumberReader interface {
	ExtractNumber(img image.Image, r vision.Region) int
}

// SympathyValue is one icon's counter.
type SympathyValue struct {
	Name   string
	Found  bool
	Center image.Point
	Value  int
}

// SympathyResult aggregates the icon counters.
type SympathyResult struct {
	Values  []SympathyValue
	Sum     int
	TooMany bool
}

// SympathyCounter finds sympathy icons in the shared band and reads the
// number right of each.
type SympathyCounter struct {
	matcher *vision.Matcher
	numbers NumberReader
	geo     Geometry
	cfg     config.Sympathy
	logger  *slog.Logger
}

// NewSympathyCounter wires a counter.
func NewSympathyCounter(m *vision.Matcher, numbers NumberReader, geo Geometry, cfg config.Sympathy, logger *slog.Logger) *SympathyCounter {
	return &SympathyCounter{matcher: m, numbers: numbers, geo: geo, cfg: cfg, logger: logger}
}

// EmptySympathies returns zero values for every configured icon.
func EmptySympathies(icons []string) SympathyResult {
	res := SympathyResult{Values: make([]SympathyValue, len(icons))}
	for i, name := range icons {
		res.Values[i].Name = name
	}
	return res
}

// Count searches band for every icon. A detection whose center is closer
// than the spacing limit to an already accepted icon is the same slot and
// is dropped; icons are visited in configured order so the first wins.
func (c *SympathyCounter) Count(img image.Image, band vision.Region) SympathyResult {
	res := EmptySympathies(c.cfg.Icons)
	f, err := c.matcher.Prepare(img, &band)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("sympathy band unavailable", "band", band.String(), "error", err)
		}
		return res
	}
	size := imageSize(img)
	var accepted []image.Point
	for i, name := range c.cfg.Icons {
		d := c.matcher.DetectIn(f, vision.TemplateKey(vision.DirSympathies, name), c.cfg.Threshold)
		if !d.Found {
			if c.logger != nil && d.Err != nil {
				c.logger.Debug("sympathy icon unavailable", "icon", name, "error", d.Err)
			}
			continue
		}
		if tooClose(d.Center, accepted, c.cfg.Spacing) {
			if c.logger != nil {
				c.logger.Debug("sympathy icon shares a slot", "icon", name, "x", d.Center.X)
			}
			continue
		}
		accepted = append(accepted, d.Center)
		v := &res.Values[i]
		v.Found = true
		v.Center = d.Center
		if cell, ok := c.geo.NumberCell(d.Box, size); ok && c.numbers != nil {
			v.Value = c.numbers.ExtractNumber(img, cell)
		}
		res.Sum += v.Value
		if c.logger != nil {
			c.logger.Info("sympathy", "icon", name, "confidence", d.Confidence, "value", v.Value)
		}
	}
	res.TooMany = res.Sum > c.cfg.Ceiling
	return res
}

func tooClose(p image.Point, accepted []image.Point, spacing int) bool {
	for _, a := range accepted {
		dx := p.X - a.X
		if dx < 0 {
			dx = -dx
		}
		if dx < spacing {
			return true
		}
	}
	return false
}
