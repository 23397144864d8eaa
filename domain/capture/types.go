package capture

import (
	"errors"
	"image"
	"time"
)

// ErrNotFound reports that no usable screenshot is available.
var ErrNotFound = errors.New("no recent screenshot found")

// Screenshot is an immutable captured frame.
type Screenshot struct {
	Image      image.Image
	CapturedAt time.Time
	// Path is empty for in-memory and live captures.
	Path string
}

// ImageSource is either a PathSource or a MemorySource.
type ImageSource interface {
	isImageSource()
}

// PathSource names an image file on disk.
type PathSource string

// MemorySource wraps an already decoded image.
type MemorySource struct {
	Image      image.Image
	CapturedAt time.Time
}

func (PathSource) isImageSource()   {}
func (MemorySource) isImageSource() {}

// Resolve turns an ImageSource into a Screenshot.
func Resolve(src ImageSource) (Screenshot, error) {
	switch s := src.(type) {
	case PathSource:
		return decodeFile(string(s))
	case MemorySource:
		if s.Image == nil {
			return Screenshot{}, ErrNotFound
		}
		return Screenshot{Image: s.Image, CapturedAt: s.CapturedAt}, nil
	case nil:
		return Screenshot{}, ErrNotFound
	default:
		return Screenshot{}, errors.New("capture: unknown image source")
	}
}
