package profile

import (
	"image"
	"log/slog"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/debug"
	"github.com/soocke/profile-scout/domain/vision"
)

// Stage enumerates the analysis pipeline steps.
type Stage int

const (
	StageResolveROI Stage = iota
	StageProfileButton
	StageSympathies
	StageUnwantedMedals
	StageRegularMedals
	StageArrow
	StageReport
)

func (s Stage) String() string {
	switch s {
	case StageResolveROI:
		return "resolve_roi"
	case StageProfileButton:
		return "detect_profile_button"
	case StageSympathies:
		return "detect_sympathies"
	case StageUnwantedMedals:
		return "detect_unwanted_medals"
	case StageRegularMedals:
		return "detect_regular_medals"
	case StageArrow:
		return "detect_arrow"
	case StageReport:
		return "emit_report"
	default:
		return "unknown"
	}
}

// Analyzer runs the profile pipeline for one screenshot and anchor point.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	cfg       *config.Config
	matcher   *vision.Matcher
	geo       Geometry
	medals    *MedalEngine
	sympathy  *SympathyCounter
	dump      *debug.Dumper
	logger    *slog.Logger
	forceCoin bool
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTestingMode forces the veteran coin flag whenever the adjusted medal
// count is sufficient. Test rigs only.
func WithTestingMode(on bool) Option {
	return func(a *Analyzer) { a.forceCoin = on }
}

// WithDumper saves analysed regions through d.
func WithDumper(d *debug.Dumper) Option {
	return func(a *Analyzer) { a.dump = d }
}

// NewAnalyzer wires the pipeline. numbers reads sympathy counters.
func NewAnalyzer(cfg *config.Config, m *vision.Matcher, numbers NumberReader, logger *slog.Logger, opts ...Option) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	geo := NewGeometry(cfg.Geometry)
	a := &Analyzer{
		cfg:      cfg,
		matcher:  m,
		geo:      geo,
		medals:   NewMedalEngine(m, cfg.Medals, logger),
		sympathy: NewSympathyCounter(m, numbers, geo, cfg.Sympathy, logger),
		logger:   logger,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Geometry exposes the region table used by the analyzer.
func (a *Analyzer) Geometry() Geometry { return a.geo }

// Analyze runs every stage in order and stops at the first disqualifying
// one. The returned report is always complete.
func (a *Analyzer) Analyze(img image.Image, anchor image.Point) Report {
	rep := NewReport(a.cfg.Sympathy.Icons)
	if img == nil {
		rep.Fail("no screenshot")
		return rep
	}
	size := imageSize(img)
	a.dump.Overview("screenshot", img, 960, 540)

	rep.Stage = StageResolveROI
	panel, ok := a.geo.Panel(anchor, size)
	if !ok {
		rep.Fail("invalid ROI dimensions")
		a.logStage(rep)
		return rep
	}
	rep.Result = true
	a.dump.Region("profile_panel", img, panel)
	frame, err := a.matcher.Prepare(img, &panel)
	if err != nil {
		rep.Fail(err.Error())
		a.logStage(rep)
		return rep
	}

	rep.Stage = StageProfileButton
	btn := a.detectButton(img, frame, panel)
	rep.ButtonFound, rep.ButtonCoords = btn.Found, btn.Center
	if !btn.Found {
		return a.skip(rep, "profile button not found")
	}

	rep.Stage = StageSympathies
	if band, ok := a.geo.SympathyBand(anchor, size); ok {
		a.dump.Region("sympathy_band", img, band)
		rep.Sympathies = a.sympathy.Count(img, band)
	}
	if rep.Sympathies.TooMany {
		return a.skip(rep, "too many sympathies")
	}

	rep.Stage = StageUnwantedMedals
	for _, hit := range a.medals.DetectUnwanted(frame) {
		rep.Unwanted = append(rep.Unwanted, hit.Name)
	}
	if len(rep.Unwanted) > 0 {
		rep.UnwantedFound = true
		return a.skip(rep, "unwanted medal: "+rep.Unwanted[0])
	}

	rep.Stage = StageRegularMedals
	hits := a.medals.DetectMedals(frame)
	coin := false
	for _, h := range hits {
		rep.Medals = append(rep.Medals, h.Name)
		if h.Name == a.cfg.Medals.VeteranCoin {
			coin = true
		}
	}
	rep.MedalCount = len(hits)

	rep.Stage = StageArrow
	if band, ok := a.geo.ArrowBand(anchor, size); ok {
		a.dump.Region("arrow_band", img, band)
		rep.Arrow = a.medals.DetectArrow(img, band)
	}

	verdict := JudgeMedals(rep.MedalCount, coin, rep.Arrow.More, a.cfg.Medals, a.forceCoin)
	rep.ThreePlus = verdict.Sufficient
	rep.VeteranCoin = verdict.VeteranCoin
	if !verdict.Pass {
		return a.skip(rep, verdict.Reason)
	}

	rep.Stage = StageReport
	rep.Decision = Proceed
	rep.Reason = verdict.Reason
	a.logStage(rep)
	return rep
}

func (a *Analyzer) skip(rep Report, reason string) Report {
	rep.Decision = Skip
	rep.Reason = reason
	a.logStage(rep)
	return rep
}

func (a *Analyzer) logStage(rep Report) {
	if a.logger == nil {
		return
	}
	a.logger.Info("profile analysis", "stage", rep.Stage.String(), "decision", string(rep.Decision),
		"reason", rep.Reason, "medals", rep.MedalCount, "sympathies", rep.Sympathies.Sum)
}

// detectButton matches the profile button template inside the panel and
// falls back to a color blob search when enabled.
func (a *Analyzer) detectButton(img image.Image, frame *vision.Frame, panel vision.Region) vision.Detection {
	name := a.cfg.ProfileButton.Template
	d := a.matcher.DetectIn(frame, name, a.cfg.Threshold(name))
	if d.Found {
		if a.logger != nil {
			a.logger.Info("profile button", "method", "template", "confidence", d.Confidence, "x", d.Center.X, "y", d.Center.Y)
		}
		return d
	}
	if a.logger != nil {
		a.logger.Debug("profile button template miss", "confidence", d.Confidence, "error", d.Err)
	}
	if !a.cfg.ProfileButton.ColorFallback {
		return d
	}
	blob := vision.FindBlob(img, panel, vision.DefaultBlobOptions())
	if blob.Found && a.logger != nil {
		a.logger.Info("profile button", "method", "color", "confidence", blob.Confidence, "x", blob.Center.X, "y", blob.Center.Y)
	}
	return blob
}
