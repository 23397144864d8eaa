package ocr

import (
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/domain/vision"
)

// Extractor crops regions, preprocesses them and runs OCR.
type Extractor struct {
	rec    Recognizer
	cfg    config.OCR
	logger *slog.Logger
}

// NewExtractor wires an extractor around rec.
func NewExtractor(rec Recognizer, cfg config.OCR, logger *slog.Logger) *Extractor {
	if cfg.Scale <= 0 {
		cfg.Scale = 3
	}
	return &Extractor{rec: rec, cfg: cfg, logger: logger}
}

func (e *Extractor) crop(img image.Image, r vision.Region) (image.Image, error) {
	cr, ok := r.ClampTo(img)
	if !ok {
		return nil, fmt.Errorf("%w: %v", vision.ErrInvalidRegion, r)
	}
	return vision.Crop(img, cr), nil
}

func (e *Extractor) recognize(img image.Image, whitelist string) string {
	if e.rec == nil {
		return ""
	}
	text, err := e.rec.Recognize(Request{Image: img, Whitelist: whitelist, Mode: PSMSingleLine})
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("ocr failed", "error", err)
		}
		return ""
	}
	return strings.TrimSpace(text)
}

// variants runs OCR on the grayscale and the binary variant of roi.
func (e *Extractor) variants(roi image.Image, whitelist string) []string {
	gray := grayscaleVariant(roi, e.cfg.Scale, float32(e.cfg.Contrast))
	bin := binaryVariant(roi, e.cfg.BinaryThreshold, e.cfg.Scale)
	return []string{e.recognize(gray, whitelist), e.recognize(bin, whitelist)}
}

// ExtractText returns the best-scoring single-line reading of r.
func (e *Extractor) ExtractText(img image.Image, r vision.Region, whitelist string) (string, error) {
	roi, err := e.crop(img, r)
	if err != nil {
		return "", err
	}
	results := e.variants(roi, whitelist)
	best := Best(results...)
	if e.logger != nil {
		e.logger.Debug("ocr text", "region", r.String(), "candidates", results, "best", best)
	}
	if best == "" {
		return "", ErrNotFound
	}
	return best, nil
}

// ExtractNickname reads a player name and strips leading icon noise.
func (e *Extractor) ExtractNickname(img image.Image, r vision.Region) (string, error) {
	text, err := e.ExtractText(img, r, "")
	if err != nil {
		return "", err
	}
	name := CleanNickname(text, e.cfg.NicknameGlyphs)
	if name == "" {
		return "", ErrNotFound
	}
	return name, nil
}

// ExtractNumber reads a digits-only counter. Anything unreadable is 0.
func (e *Extractor) ExtractNumber(img image.Image, r vision.Region) int {
	roi, err := e.crop(img, r)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("number region unavailable", "region", r.String(), "error", err)
		}
		return 0
	}
	text := e.recognize(binaryVariant(roi, e.cfg.BinaryThreshold, e.cfg.Scale), Digits)
	n := ParseNumber(text)
	if e.logger != nil {
		e.logger.Debug("ocr number", "region", r.String(), "text", text, "value", n)
	}
	return n
}

// ParseNumber parses s when it is all digits, otherwise the digits it
// contains; no digits or overflow gives 0.
func ParseNumber(s string) int {
	s = strings.TrimSpace(s)
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ExtractProfileURL reads a community profile URL from r.
func (e *Extractor) ExtractProfileURL(img image.Image, r vision.Region) (ProfileURL, error) {
	roi, err := e.crop(img, r)
	if err != nil {
		return ProfileURL{}, err
	}
	var candidates []string
	for _, c := range e.variants(roi, URLChars) {
		if c != "" && strings.Contains(c, ProfileDomain) {
			candidates = append(candidates, c)
		}
	}
	p, ok := PickProfileURL(candidates...)
	if e.logger != nil {
		e.logger.Debug("ocr url", "candidates", candidates, "url", p.URL, "ok", ok)
	}
	if !ok {
		return ProfileURL{}, ErrNotFound
	}
	return p, nil
}
