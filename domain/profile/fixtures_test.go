package profile

import (
	"hash/fnv"
	"image"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/soocke/profile-scout/config"
	"github.com/soocke/profile-scout/domain/vision"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Layout used by the scenario tests. The anchor puts the panel at
// (128,50 384x413), the arrow band at (490,50 32x140) and the sympathy band
// at (128,155 384x45) inside a 640x520 frame.
var (
	testAnchor  = image.Pt(100, 200)
	buttonAt    = image.Pt(140, 60)
	arrowAt     = image.Pt(496, 100)
	medalSlots  = []image.Point{{150, 300}, {200, 300}, {250, 300}, {300, 300}, {350, 300}, {400, 300}}
	sympathyAt  = []image.Point{{150, 165}, {230, 165}, {310, 165}}
	patternSize = 20
)

// pattern returns a deterministic noise patch for name. Values stay below
// 170 so patches never read as bright low-saturation blobs.
func pattern(name string) *image.RGBA { return noisePatch(name, patternSize) }

func noisePatch(name string, size int) *image.RGBA {
	h := fnv.New64a()
	h.Write([]byte(name))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		v := byte(rng.Intn(170))
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

// remap applies v' = base + v*gain to every pixel of src.
func remap(src *image.RGBA, base, gain float64) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		v := base + float64(src.Pix[i])*gain
		if v > 255 {
			v = 255
		}
		b := byte(v + 0.5)
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = b, b, b, 255
	}
	return out
}

// degrade returns a copy of src whose zero-mean correlation with src is rho.
// The residual is seeded noise made orthogonal to src, and the result keeps
// a standard deviation of 30 around mid gray.
func degrade(src *image.RGBA, rho float64, seed int64) *image.RGBA {
	n := len(src.Pix) / 4
	p := make([]float64, n)
	q := make([]float64, n)
	rng := rand.New(rand.NewSource(seed))
	for i := range p {
		p[i] = float64(src.Pix[i*4])
		q[i] = rng.Float64()
	}
	unit(p)
	unit(q)
	var dot float64
	for i := range q {
		dot += q[i] * p[i]
	}
	for i := range q {
		q[i] -= dot / float64(n) * p[i]
	}
	unit(q)

	residual := math.Sqrt(1 - rho*rho)
	out := image.NewRGBA(src.Bounds())
	for i := range p {
		v := math.Round(128 + 30*(rho*p[i]+residual*q[i]))
		b := byte(max(0, min(255, v)))
		out.Pix[i*4], out.Pix[i*4+1], out.Pix[i*4+2], out.Pix[i*4+3] = b, b, b, 255
	}
	return out
}

// unit rescales v to zero mean and unit standard deviation.
func unit(v []float64) {
	var sum, sum2 float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	for i := range v {
		v[i] -= mean
		sum2 += v[i] * v[i]
	}
	std := math.Sqrt(sum2 / float64(len(v)))
	for i := range v {
		v[i] /= std
	}
}

func inactiveArrow() *image.RGBA { return remap(pattern(ArrowTemplate), 40, 0.2) }
func activeArrow() *image.RGBA   { return remap(pattern(ArrowTemplate), 100, 0.8) }

func blankScreen() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 640, 520))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 25, 25, 25, 255
	}
	return img
}

func paste(dst *image.RGBA, src image.Image, at image.Point) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(at.X+x, at.Y+y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
}

// savePatch writes a noise patch of the given size under key in root.
func savePatch(tb testing.TB, root, key string, size int) {
	tb.Helper()
	p := filepath.Join(root, filepath.FromSlash(key)+".png")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	if err := imaging.Save(noisePatch(filepath.Base(key), size), p); err != nil {
		tb.Fatalf("save %s: %v", key, err)
	}
}

// templateDir writes every template the scenarios use to a temp library.
func templateDir(t *testing.T, medals []string) string {
	t.Helper()
	root := t.TempDir()
	save := func(key string) { savePatch(t, root, key, patternSize) }
	save("profile-button")
	save(ArrowTemplate)
	save(vision.TemplateKey(vision.DirUnwanted, "hydra-pin"))
	for _, m := range medals {
		save(vision.TemplateKey(vision.DirMedals, m))
	}
	for _, s := range []string{"smile", "teach", "crown"} {
		save(vision.TemplateKey(vision.DirSympathies, s))
	}
	return root
}

// queuedNumbers returns values in call order.
type queuedNumbers struct {
	values []int
	calls  []vision.Region
}

func (q *queuedNumbers) ExtractNumber(_ image.Image, r vision.Region) int {
	q.calls = append(q.calls, r)
	if len(q.values) == 0 {
		return 0
	}
	v := q.values[0]
	q.values = q.values[1:]
	return v
}

func newTestAnalyzer(t testing.TB, root string, numbers NumberReader, opts ...Option) *Analyzer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.TemplateDir = root
	lib := vision.NewLibrary(root, discardLogger)
	m := vision.NewMatcher(lib, cfg, discardLogger)
	return NewAnalyzer(cfg, m, numbers, discardLogger, opts...)
}

var scenarioMedals = []string{"5-year-veteran-coin", "loyalty-badge", "2019-service-medal", "global-offensive-badge"}

// scenarioA is a button, four distinct medals including the veteran coin
// and an inactive arrow.
func scenarioA() *image.RGBA {
	img := blankScreen()
	paste(img, pattern("profile-button"), buttonAt)
	for i, m := range scenarioMedals {
		paste(img, pattern(m), medalSlots[i])
	}
	paste(img, inactiveArrow(), arrowAt)
	return img
}
