package app

import (
	"errors"
	"log/slog"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/debug"
	"github.com/soocke/profile-scout/domain/capture"
	"github.com/soocke/profile-scout/domain/ocr"
	"github.com/soocke/profile-scout/domain/ocr/tesseract"
	"github.com/soocke/profile-scout/domain/profile"
	"github.com/soocke/profile-scout/domain/vision"
)

// Container assembles the services one command needs.
type Container struct {
	Config    *config.Config
	Logger    *slog.Logger
	Library   *vision.Library
	Matcher   *vision.Matcher
	Source    *capture.Source
	Extractor *ocr.Extractor
	Analyzer  *profile.Analyzer
	Sympathy  *profile.SympathyCounter
	Dumper    *debug.Dumper

	closers []func() error
}

// BuildContainer constructs all components. A nil recognizer opens the
// Tesseract engine; when that fails the container still works and every OCR
// read comes back empty.
func BuildContainer(cfg *config.Config, logger *slog.Logger, rec ocr.Recognizer, opts ...profile.Option) *Container {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Container{Config: cfg, Logger: logger}

	if rec == nil {
		rec = c.openTesseract()
	}
	if cfg.Debug {
		c.Dumper = debug.NewDumper(cfg.DebugDir, logger)
	}

	c.Library = vision.NewLibrary(cfg.TemplateDir, logger)
	c.Matcher = vision.NewMatcher(c.Library, cfg, logger)
	c.Source = capture.NewSource(cfg, logger)
	if logger != nil {
		logger.Debug("screenshot source", "dir", c.Source.Dir(), "mode", cfg.CaptureMode, "templates", c.Library.Root())
	}
	c.Extractor = ocr.NewExtractor(rec, cfg.OCR, logger)

	all := append([]profile.Option{
		profile.WithTestingMode(cfg.TestingMode),
		profile.WithDumper(c.Dumper),
	}, opts...)
	c.Analyzer = profile.NewAnalyzer(cfg, c.Matcher, c.Extractor, logger, all...)
	c.Sympathy = profile.NewSympathyCounter(c.Matcher, c.Extractor, c.Analyzer.Geometry(), cfg.Sympathy, logger)
	return c
}

func (c *Container) openTesseract() ocr.Recognizer {
	client, err := tesseract.New(c.Config.OCR)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("ocr engine unavailable", "error", err)
		}
		return ocr.RecognizerFunc(func(ocr.Request) (string, error) { return "", err })
	}
	c.closers = append(c.closers, client.Close)
	return client
}

// Close releases native resources held by the container.
func (c *Container) Close() error {
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
