package vision

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/soocke/profile-scout/config"
)

// ErrInvalidRegion reports a search region that clamps to zero area.
var ErrInvalidRegion = errors.New("invalid region")

// Detection is the outcome of a template search. Center and Box are in the
// coordinate space of the full, uncropped image.
type Detection struct {
	Name       string
	Found      bool
	Center     image.Point
	Confidence float64
	Box        Region
	Err        error
}

// Matcher runs template searches against a Library using per-template
// defaults from config.
type Matcher struct {
	lib    *Library
	cfg    *config.Config
	logger *slog.Logger
}

// NewMatcher wires a matcher. A nil cfg uses config.DefaultConfig().
func NewMatcher(lib *Library, cfg *config.Config, logger *slog.Logger) *Matcher {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Matcher{lib: lib, cfg: cfg, logger: logger}
}

// Library returns the template library backing the matcher.
func (m *Matcher) Library() *Library { return m.lib }

type detectOptions struct {
	threshold float64
	region    *Region
}

// Option overrides a per-template default.
type Option func(*detectOptions)

// WithThreshold overrides the template's default confidence threshold.
func WithThreshold(t float64) Option {
	return func(o *detectOptions) { o.threshold = t }
}

// WithRegion restricts the search to r.
func WithRegion(r Region) Option {
	return func(o *detectOptions) { o.region = &r }
}

func (m *Matcher) resolve(key string, opts []Option) detectOptions {
	o := detectOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.threshold <= 0 {
		o.threshold = m.cfg.Threshold(key)
	}
	if o.region == nil {
		if t, ok := m.cfg.Templates[key]; ok && t.Region != nil {
			r := Region{X: t.Region[0], Y: t.Region[1], W: t.Region[2], H: t.Region[3]}
			o.region = &r
		}
	}
	return o
}

// Frame is a grayscale search area prepared once and matched against many
// templates.
type Frame struct {
	plane  *plane
	Origin image.Point
	Bounds Region
}

// Prepare converts the region r of img (whole image when r is nil) into a
// reusable Frame.
func (m *Matcher) Prepare(img image.Image, r *Region) (*Frame, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	b := img.Bounds()
	search := Region{X: 0, Y: 0, W: b.Dx(), H: b.Dy()}
	if r != nil {
		cr, ok := r.Clamp(b.Dx(), b.Dy())
		if !ok {
			return nil, fmt.Errorf("%w: %v in %dx%d", ErrInvalidRegion, *r, b.Dx(), b.Dy())
		}
		search = cr
	}
	p := newPlane(Crop(img, search), true)
	return &Frame{plane: p, Origin: image.Pt(search.X, search.Y), Bounds: search}, nil
}

// Match is the correlation of one template over one Frame.
type Match struct {
	Template *Template
	Surface  *Surface
	Origin   image.Point
}

// Correlate loads key and slides it over f. A template larger than the frame
// yields a nil Surface and no error.
func (m *Matcher) Correlate(f *Frame, key string) (*Match, error) {
	return m.CorrelateAbove(f, key, -1)
}

// CorrelateAbove is Correlate for callers that only read scores at or above
// floor. Windows that cannot reach floor are cut short and score -1, so
// Best and All are exact only for thresholds >= floor.
func (m *Matcher) CorrelateAbove(f *Frame, key string, floor float64) (*Match, error) {
	if f == nil || f.plane == nil {
		return nil, errors.New("nil frame")
	}
	t, err := m.lib.Load(key)
	if err != nil {
		return nil, err
	}
	mt := &Match{Template: t, Origin: f.Origin}
	tw, th := t.Size()
	if tw > f.plane.W || th > f.plane.H {
		if m.logger != nil {
			m.logger.Debug("template larger than search area", "template", key, "tw", tw, "th", th, "w", f.plane.W, "h", f.plane.H)
		}
		return mt, nil
	}
	mt.Surface = correlate(f.plane, t.plane, floor)
	return mt, nil
}

// detectionAt builds a Detection for the window whose top-left is at.
func (mt *Match) detectionAt(at image.Point, score, threshold float64) Detection {
	tw, th := mt.Template.Size()
	box := Region{X: mt.Origin.X + at.X, Y: mt.Origin.Y + at.Y, W: tw, H: th}
	return Detection{
		Name:       mt.Template.Name,
		Found:      score >= threshold,
		Center:     image.Pt(box.X+tw/2, box.Y+th/2),
		Confidence: score,
		Box:        box,
	}
}

// Best returns the global maximum judged against threshold.
func (mt *Match) Best(threshold float64) Detection {
	if mt == nil || mt.Surface == nil {
		d := Detection{}
		if mt != nil && mt.Template != nil {
			d.Name = mt.Template.Name
		}
		return d
	}
	at, score := mt.Surface.Max()
	return mt.detectionAt(at, score, threshold)
}

// All returns a Detection for every surface position scoring >= threshold,
// strongest first.
func (mt *Match) All(threshold float64) []Detection {
	if mt == nil || mt.Surface == nil {
		return nil
	}
	peaks := mt.Surface.Peaks(threshold)
	out := make([]Detection, 0, len(peaks))
	for _, p := range peaks {
		out = append(out, mt.detectionAt(p.At, p.Score, threshold))
	}
	return out
}

// Detect searches img for the template key. Missing templates, invalid
// regions and oversize templates all produce Found=false; Err carries the
// reason when there is one.
func (m *Matcher) Detect(img image.Image, key string, opts ...Option) Detection {
	o := m.resolve(key, opts)
	f, err := m.Prepare(img, o.region)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("detect: prepare failed", "template", key, "error", err)
		}
		return Detection{Name: key, Err: err}
	}
	mt, err := m.Correlate(f, key)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("detect: template unavailable", "template", key, "error", err)
		}
		return Detection{Name: key, Err: err}
	}
	d := mt.Best(o.threshold)
	d.Name = key
	if m.logger != nil {
		m.logger.Debug("detect", "template", key, "found", d.Found, "confidence", d.Confidence, "x", d.Center.X, "y", d.Center.Y)
	}
	return d
}

// DetectIn matches key inside an already prepared frame.
func (m *Matcher) DetectIn(f *Frame, key string, threshold float64) Detection {
	if threshold <= 0 {
		threshold = m.cfg.Threshold(key)
	}
	mt, err := m.Correlate(f, key)
	if err != nil {
		return Detection{Name: key, Err: err}
	}
	d := mt.Best(threshold)
	d.Name = key
	return d
}
