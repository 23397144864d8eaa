package profile

import (
	"errors"
	"image"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/domain/vision"
)

// ArrowTemplate is the "more medals" arrow glyph.
const ArrowTemplate = "right-arrow"

// MedalHit is one counted medal or badge.
type MedalHit struct {
	Name       string
	Center     image.Point
	Confidence float64
	Tier       float64
}

// ArrowResult describes the "more medals" arrow.
type ArrowResult struct {
	Found      bool
	Active     bool
	More       bool
	Center     image.Point
	Confidence float64
	Mean       float64
	Std        float64
}

// MedalEngine detects catalog medals, blacklisted medals and the arrow.
type MedalEngine struct {
	matcher *vision.Matcher
	cfg     config.Medals
	logger  *slog.Logger
}

// NewMedalEngine wires a medal engine.
func NewMedalEngine(m *vision.Matcher, cfg config.Medals, logger *slog.Logger) *MedalEngine {
	return &MedalEngine{matcher: m, cfg: cfg, logger: logger}
}

// DetectMedals counts catalog medals inside the prepared panel frame. Each
// template is tried at the configured tiers, strictest first; the first tier
// with any peak wins. Peaks overlapping by more than the IoU limit collapse
// into one, and each template counts at most once. Hits keep catalog order.
func (e *MedalEngine) DetectMedals(f *vision.Frame) []MedalHit {
	return e.detectAll(f, vision.DirMedals, e.cfg.Catalog, e.cfg.Tiers)
}

// DetectUnwanted returns every blacklisted medal present in f.
func (e *MedalEngine) DetectUnwanted(f *vision.Frame) []MedalHit {
	return e.detectAll(f, vision.DirUnwanted, e.cfg.Unwanted, []float64{e.cfg.UnwantedThreshold})
}

// detectAll correlates every template of names concurrently, bounded by the
// CPU count, and returns the hits in the order of names.
func (e *MedalEngine) detectAll(f *vision.Frame, dir string, names []string, tiers []float64) []MedalHit {
	type slot struct {
		hit MedalHit
		ok  bool
	}
	slots := make([]slot, len(names))
	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())
	for i, name := range names {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			hit, ok := e.tiered(f, vision.TemplateKey(dir, name), name, tiers)
			slots[i] = slot{hit: hit, ok: ok}
		}(i, name)
	}
	wg.Wait()

	var hits []MedalHit
	for _, s := range slots {
		if s.ok {
			hits = append(hits, s.hit)
		}
	}
	return hits
}

func (e *MedalEngine) tiered(f *vision.Frame, key, name string, tiers []float64) (MedalHit, bool) {
	if len(tiers) == 0 {
		return MedalHit{}, false
	}
	mt, err := e.matcher.CorrelateAbove(f, key, slices.Min(tiers))
	if err != nil {
		if e.logger != nil {
			if errors.Is(err, vision.ErrTemplateMissing) {
				e.logger.Debug("medal template missing", "template", key)
			} else {
				e.logger.Warn("medal template unavailable", "template", key, "error", err)
			}
		}
		return MedalHit{}, false
	}
	for _, tier := range tiers {
		peaks := mt.All(tier)
		if len(peaks) == 0 {
			continue
		}
		kept := vision.SuppressOverlaps(peaks, e.cfg.IoU)
		best := kept[0]
		if e.logger != nil {
			e.logger.Info("medal detected", "template", name, "tier", tier, "confidence", best.Confidence,
				"x", best.Center.X, "y", best.Center.Y, "raw", len(peaks), "instances", len(kept))
		}
		return MedalHit{Name: name, Center: best.Center, Confidence: best.Confidence, Tier: tier}, true
	}
	return MedalHit{}, false
}

// DetectArrow locates the arrow in band at the lenient search threshold and
// classifies it by the brightness and contrast of the matched patch.
func (e *MedalEngine) DetectArrow(img image.Image, band vision.Region) ArrowResult {
	d := e.matcher.Detect(img, ArrowTemplate, vision.WithRegion(band), vision.WithThreshold(e.cfg.ArrowSearch))
	if !d.Found {
		return ArrowResult{Confidence: d.Confidence}
	}
	mean, std := vision.MeanStdDev(img, d.Box)
	res := ArrowResult{
		Found:      true,
		Center:     d.Center,
		Confidence: d.Confidence,
		Mean:       mean,
		Std:        std,
		Active:     ArrowActive(mean, std, e.cfg),
	}
	res.More = res.Active && d.Confidence >= e.cfg.ArrowConfidence
	if e.logger != nil {
		e.logger.Info("arrow", "confidence", d.Confidence, "mean", mean, "std", std, "active", res.Active, "more", res.More)
	}
	return res
}

// ArrowActive reports whether a patch with the given luminance statistics
// shows the lit arrow: very high contrast on its own, or bright with
// moderate contrast.
func ArrowActive(mean, std float64, cfg config.Medals) bool {
	if std > cfg.ArrowStdOverride {
		return true
	}
	return mean >= cfg.ArrowMean && std >= cfg.ArrowStd
}
