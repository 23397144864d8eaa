package vision

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Library subdirectories.
const (
	DirMedals     = "medals"
	DirUnwanted   = "unwanted"
	DirSympathies = "sympathies"
)

// ErrTemplateMissing is returned when no image file exists for a template.
var ErrTemplateMissing = errors.New("template missing")

// templateExts are tried in order when resolving a template name.
var templateExts = []string{".jpg", ".png", ".jpeg", ".bmp", ".webp"}

// Template is a named, immutable reference image.
type Template struct {
	Name  string
	Image image.Image
	plane *templatePlane
}

// Size returns the template width and height.
func (t *Template) Size() (int, int) {
	if t == nil || t.plane == nil {
		return 0, 0
	}
	return t.plane.W, t.plane.H
}

// TemplateKey joins a library subdirectory and a template name.
func TemplateKey(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}

// Library loads templates by name from a directory tree, one image file per
// template, and caches the decoded result. Safe for concurrent use.
type Library struct {
	root   string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*Template
}

// NewLibrary returns a library rooted at root.
func NewLibrary(root string, logger *slog.Logger) *Library {
	return &Library{root: root, logger: logger, cache: make(map[string]*Template)}
}

// Root returns the library directory.
func (l *Library) Root() string { return l.root }

// Put registers an in-memory template under key, replacing any cached entry.
func (l *Library) Put(key string, img image.Image) error {
	tp := newTemplatePlane(img)
	if tp == nil {
		return fmt.Errorf("template %s: empty image", key)
	}
	l.mu.Lock()
	l.cache[key] = &Template{Name: path.Base(key), Image: img, plane: tp}
	l.mu.Unlock()
	return nil
}

// Load returns the template stored under key ("name" or "dir/name").
func (l *Library) Load(key string) (*Template, error) {
	l.mu.RLock()
	t := l.cache[key]
	l.mu.RUnlock()
	if t != nil {
		return t, nil
	}

	file, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Open(file)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("template decode failed", "template", key, "path", file, "error", err)
		}
		return nil, fmt.Errorf("template %s: %w", key, err)
	}
	tp := newTemplatePlane(img)
	if tp == nil {
		return nil, fmt.Errorf("template %s: empty image", key)
	}
	t = &Template{Name: path.Base(key), Image: img, plane: tp}

	l.mu.Lock()
	// Keep the first insert if another goroutine won the race.
	if existing := l.cache[key]; existing != nil {
		t = existing
	} else {
		l.cache[key] = t
	}
	l.mu.Unlock()
	return t, nil
}

func (l *Library) resolve(key string) (string, error) {
	base := filepath.Join(l.root, filepath.FromSlash(key))
	for _, ext := range templateExts {
		p := base + ext
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s under %s", ErrTemplateMissing, key, l.root)
}
