package capture

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/soocke/profile-scout/config"
)

var screenshotExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// Source finds the screenshot to analyze: an explicit file, the newest fresh
// file in the capture directory, or a live screen grab.
type Source struct {
	dir       string
	freshness time.Duration
	mode      string
	now       func() time.Time
	grab      func() (*image.RGBA, error)
	logger    *slog.Logger
}

// NewSource builds a Source from cfg. A nil cfg uses defaults.
func NewSource(cfg *config.Config, logger *slog.Logger) *Source {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Source{
		dir:       cfg.ResolvedScreenshotDir(),
		freshness: time.Duration(cfg.FreshnessSeconds * float64(time.Second)),
		mode:      cfg.CaptureMode,
		now:       time.Now,
		grab:      Grab,
		logger:    logger,
	}
}

// SetClock replaces the wall clock used for the freshness check.
func (s *Source) SetClock(now func() time.Time) { s.now = now }

// SetGrabber replaces the live screen capture function.
func (s *Source) SetGrabber(grab func() (*image.RGBA, error)) { s.grab = grab }

// Dir returns the watched capture directory.
func (s *Source) Dir() string { return s.dir }

// Acquire returns the frame to analyze. An explicit path always wins;
// otherwise the configured capture mode decides between the directory scan
// and a live grab.
func (s *Source) Acquire(explicitPath string) (Screenshot, error) {
	if explicitPath == "" && s.mode == config.CaptureScreen {
		return s.Capture()
	}
	return s.Latest(explicitPath)
}

// Latest returns the explicit file when it exists, or else the most recently
// modified image in the capture directory if it is younger than the
// freshness window. Every failure is reported as ErrNotFound.
func (s *Source) Latest(explicitPath string) (Screenshot, error) {
	p, err := s.LatestPath(explicitPath)
	if err != nil {
		return Screenshot{}, err
	}
	shot, err := decodeFile(p)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("screenshot decode failed", "path", p, "error", err)
		}
		return Screenshot{}, err
	}
	return shot, nil
}

// LatestPath is Latest without decoding.
func (s *Source) LatestPath(explicitPath string) (string, error) {
	if explicitPath != "" {
		if st, err := os.Stat(explicitPath); err == nil && !st.IsDir() {
			return explicitPath, nil
		}
		if s.logger != nil {
			s.logger.Warn("explicit screenshot missing, scanning directory", "path", explicitPath)
		}
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("screenshot directory unreadable", "dir", s.dir, "error", err)
		}
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !screenshotExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(s.dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w: no images in %s", ErrNotFound, s.dir)
	}
	age := s.now().Sub(newestMod)
	if age > s.freshness {
		if s.logger != nil {
			s.logger.Warn("latest screenshot is stale", "path", newest, "age", age.String())
		}
		return "", fmt.Errorf("%w: newest image is %s old", ErrNotFound, age.Truncate(time.Second))
	}
	if s.logger != nil {
		s.logger.Debug("using screenshot", "path", newest, "age", age.String())
	}
	return newest, nil
}

// Capture grabs the screen now.
func (s *Source) Capture() (Screenshot, error) {
	if s.grab == nil {
		return Screenshot{}, fmt.Errorf("%w: no screen grabber", ErrNotFound)
	}
	img, err := s.grab()
	if err != nil {
		if s.logger != nil {
			s.logger.Error("screen capture failed", "error", err)
		}
		return Screenshot{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return Screenshot{Image: img, CapturedAt: s.now()}, nil
}

func decodeFile(p string) (Screenshot, error) {
	info, err := os.Stat(p)
	if err != nil {
		return Screenshot{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	img, err := imaging.Open(p)
	if err != nil {
		return Screenshot{}, fmt.Errorf("%w: could not read screenshot: %v", ErrNotFound, err)
	}
	return Screenshot{Image: img, CapturedAt: info.ModTime(), Path: p}, nil
}
