//go:build noocr

package tesseract

import (
	"errors"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/domain/ocr"
)

// ErrUnavailable is returned by builds without Tesseract.
var ErrUnavailable = errors.New("tesseract: built with noocr")

// Client is a placeholder that recognizes nothing.
type Client struct{}

var _ ocr.Recognizer = (*Client)(nil)

// New returns a client whose Recognize always fails.
func New(config.OCR) (*Client, error) { return &Client{}, nil }

func (c *Client) Recognize(ocr.Request) (string, error) { return "", ErrUnavailable }

func (c *Client) Close() error { return nil }
