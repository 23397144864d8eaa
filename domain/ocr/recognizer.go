package ocr

import (
	"errors"
	"image"
)

// ErrNotFound reports that no valid text was recognized.
var ErrNotFound = errors.New("ocr: nothing recognized")

// PageSegMode mirrors Tesseract's page segmentation modes.
type PageSegMode int

const (
	PSMSingleBlock PageSegMode = 6
	PSMSingleLine  PageSegMode = 7
	PSMSingleWord  PageSegMode = 8
)

// Character whitelists.
const (
	Digits       = "0123456789"
	Alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	URLChars     = Alphanumeric + "-_/.:"
)

// Request is one recognition call.
type Request struct {
	Image     image.Image
	Whitelist string
	Mode      PageSegMode
}

// Recognizer turns a preprocessed image into text.
type Recognizer interface {
	Recognize(req Request) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(req Request) (string, error)

func (f RecognizerFunc) Recognize(req Request) (string, error) { return f(req) }
