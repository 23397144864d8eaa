package capture

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/soocke/profile-scout/config"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func writeShot(t *testing.T, dir, name string, mod time.Time, lum uint8) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{lum, lum, lum, 255})
		}
	}
	p := filepath.Join(dir, name)
	if err := imaging.Save(img, p); err != nil {
		t.Fatalf("save %s: %v", p, err)
	}
	if err := os.Chtimes(p, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return p
}

func newTestSource(dir string, now time.Time) *Source {
	cfg := config.DefaultConfig()
	cfg.ScreenshotDir = dir
	s := NewSource(cfg, discardLogger)
	s.SetClock(func() time.Time { return now })
	return s
}

func TestLatest_PicksNewestFreshFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeShot(t, dir, "old.jpg", now.Add(-20*time.Second), 10)
	want := writeShot(t, dir, "new.png", now.Add(-5*time.Second), 200)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	shot, err := newTestSource(dir, now).Latest("")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if shot.Path != want {
		t.Fatalf("expected %s, got %s", want, shot.Path)
	}
	if shot.Image.Bounds().Dx() != 8 {
		t.Fatalf("unexpected decoded size %v", shot.Image.Bounds())
	}
}

func TestLatest_RejectsStaleFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeShot(t, dir, "stale.jpg", now.Add(-31*time.Second), 10)
	_, err := newTestSource(dir, now).Latest("")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatest_ExplicitPathSkipsFreshness(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := writeShot(t, dir, "override.png", now.Add(-time.Hour), 50)
	shot, err := newTestSource(t.TempDir(), now).Latest(p)
	if err != nil {
		t.Fatalf("explicit path rejected: %v", err)
	}
	if shot.Path != p {
		t.Fatalf("unexpected path %s", shot.Path)
	}
}

func TestLatest_MissingDirectoryIsNotFound(t *testing.T) {
	_, err := newTestSource(filepath.Join(t.TempDir(), "absent"), time.Now()).Latest("")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatest_UndecodableFileIsNotFound(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(p, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := newTestSource(dir, time.Now()).Latest(p)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcquire_ScreenModeUsesGrabber(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CaptureMode = config.CaptureScreen
	s := NewSource(cfg, discardLogger)
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	s.SetGrabber(func() (*image.RGBA, error) { return frame, nil })
	shot, err := s.Acquire("")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if shot.Image != frame {
		t.Fatalf("grabbed frame not returned")
	}

	s.SetGrabber(func() (*image.RGBA, error) { return nil, errors.New("no display") })
	if _, err := s.Acquire(""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from failed grab, got %v", err)
	}
}

func TestResolve_MemoryAndPathSources(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	shot, err := Resolve(MemorySource{Image: img})
	if err != nil || shot.Image != img {
		t.Fatalf("memory source: %v", err)
	}
	if _, err := Resolve(MemorySource{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty memory source: %v", err)
	}
	if _, err := Resolve(PathSource(filepath.Join(t.TempDir(), "x.png"))); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing path source: %v", err)
	}
}
