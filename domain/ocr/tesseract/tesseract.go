//go:build !noocr

// Package tesseract adapts gosseract to ocr.Recognizer.
package tesseract

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/domain/ocr"
)

// Client serialises access to one gosseract client.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
}

var _ ocr.Recognizer = (*Client)(nil)

// New opens a Tesseract client configured from cfg.
func New(cfg config.OCR) (*Client, error) {
	c := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			c.Close()
			return nil, fmt.Errorf("tesseract: tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(cfg.Language); err != nil {
		c.Close()
		return nil, fmt.Errorf("tesseract: language %q: %w", cfg.Language, err)
	}
	return &Client{client: c}, nil
}

// Recognize runs one OCR pass over req.Image.
func (c *Client) Recognize(req ocr.Request) (string, error) {
	if req.Image == nil {
		return "", fmt.Errorf("tesseract: nil image")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, req.Image, imaging.PNG); err != nil {
		return "", fmt.Errorf("tesseract: encode: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.client.SetWhitelist(req.Whitelist); err != nil {
		return "", fmt.Errorf("tesseract: whitelist: %w", err)
	}
	mode := req.Mode
	if mode == 0 {
		mode = ocr.PSMSingleLine
	}
	if err := c.client.SetPageSegMode(gosseract.PageSegMode(mode)); err != nil {
		return "", fmt.Errorf("tesseract: psm: %w", err)
	}
	if err := c.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("tesseract: image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: recognize: %w", err)
	}
	return text, nil
}

// Close releases the native client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Close()
}
