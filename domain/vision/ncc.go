package vision

import (
	"image"
	"math"
	"runtime"
	"sort"
	"sync"
)

// templatePlane caches grayscale pixels and summary statistics for a
// template. zm holds the zero-mean pixels; zmPrefix[k] sums zm over rows
// before k and restEnergy[k] sums zm squared over rows k and after.
type templatePlane struct {
	pix  []float64
	W, H int
	mean float64
	std  float64

	zm         []float64
	energy     float64
	zmPrefix   []float64
	restEnergy []float64
}

func newTemplatePlane(img image.Image) *templatePlane {
	p := newPlane(img, false)
	if p == nil || p.W == 0 || p.H == 0 {
		return nil
	}
	var sum, sum2 float64
	for _, v := range p.pix {
		sum += v
		sum2 += v * v
	}
	n := float64(len(p.pix))
	mean := sum / n
	variance := (sum2 - sum*sum/n) / n
	std := 0.0
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	t := &templatePlane{
		pix: p.pix, W: p.W, H: p.H, mean: mean, std: std,
		zm:         make([]float64, len(p.pix)),
		zmPrefix:   make([]float64, p.H+1),
		restEnergy: make([]float64, p.H+1),
	}
	rowEnergy := make([]float64, p.H)
	for y := 0; y < p.H; y++ {
		var rs float64
		for x := 0; x < p.W; x++ {
			z := p.pix[y*p.W+x] - mean
			t.zm[y*p.W+x] = z
			rs += z
			rowEnergy[y] += z * z
		}
		t.zmPrefix[y+1] = t.zmPrefix[y] + rs
	}
	for y := p.H - 1; y >= 0; y-- {
		t.restEnergy[y] = t.restEnergy[y+1] + rowEnergy[y]
	}
	t.energy = t.restEnergy[0]
	return t
}

// Surface is the correlation map of a template slid over a frame. Entry
// (x, y) is the score of the window whose top-left corner is (x, y).
type Surface struct {
	W, H   int
	Scores []float64
}

// At returns the score at (x, y).
func (s *Surface) At(x, y int) float64 {
	return s.Scores[y*s.W+x]
}

// Max returns the location and value of the global maximum. Ties keep the
// first position in row-major order.
func (s *Surface) Max() (image.Point, float64) {
	best, bestAt := -1.0, image.Point{}
	if s == nil {
		return bestAt, best
	}
	for i, v := range s.Scores {
		if v > best {
			best = v
			bestAt = image.Pt(i%s.W, i/s.W)
		}
	}
	return bestAt, best
}

// Peak is a surface position scoring at or above a threshold.
type Peak struct {
	At    image.Point
	Score float64
}

// Peaks returns every position scoring >= threshold, strongest first.
func (s *Surface) Peaks(threshold float64) []Peak {
	if s == nil {
		return nil
	}
	var out []Peak
	for i, v := range s.Scores {
		if v >= threshold {
			out = append(out, Peak{At: image.Pt(i%s.W, i/s.W), Score: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// correlate computes the normalized correlation surface. Scores below floor
// may be reported as -1; pass -1 for an exact surface. It is a variable so an
// alternate backend can replace it at init.
var correlate = correlateNCC

// parallelMinWindows is the surface size below which correlateNCC stays on
// the calling goroutine.
const parallelMinWindows = 4096

// boundEvery is the row interval at which a window's upper bound is checked
// against the floor.
const boundEvery = 4

// correlateNCC computes the zero-mean normalized cross-correlation of t at
// every valid offset in f. Window sums come from the integral images; flat
// windows and flat templates score 0. Rows of the surface are split into
// bands evaluated concurrently.
//
// With floor > -1 a window stops early once the Cauchy-Schwarz bound on its
// remaining rows shows it cannot reach floor, and scores -1. Every score at
// or above floor is exact.
func correlateNCC(f *plane, t *templatePlane, floor float64) *Surface {
	if f == nil || t == nil || f.W < t.W || f.H < t.H {
		return nil
	}
	if f.integral == nil {
		f.buildIntegrals()
	}
	sw, sh := f.W-t.W+1, f.H-t.H+1
	s := &Surface{W: sw, H: sh, Scores: make([]float64, sw*sh)}
	if t.std <= 1e-9 {
		return s
	}
	workers := runtime.NumCPU()
	if sw*sh < parallelMinWindows || workers < 2 {
		correlateRows(f, t, s, 0, sh, floor)
		return s
	}
	band := (sh + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < sh; y0 += band {
		y1 := min(y0+band, sh)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			correlateRows(f, t, s, y0, y1, floor)
		}(y0, y1)
	}
	wg.Wait()
	return s
}

// correlateRows fills surface rows [y0, y1). Each call writes a disjoint
// slice of s.Scores.
func correlateRows(f *plane, t *templatePlane, s *Surface, y0, y1 int, floor float64) {
	n := float64(t.W * t.H)
	W, sw := f.W, s.W
	bounded := floor > -1
	for y := y0; y < y1; y++ {
		for x := 0; x < sw; x++ {
			x1, yEnd := x+t.W-1, y+t.H-1
			sumF := integralSum(f.integral, W, x, y, x1, yEnd)
			sumF2 := integralSum(f.integralSq, W, x, y, x1, yEnd)
			meanF := sumF / n
			varF := (sumF2 - sumF*sumF/n) / n
			if varF <= 1e-9 {
				continue
			}
			denom := math.Sqrt(varF * n * t.energy)
			if denom <= 0 {
				continue
			}
			// need is the centered dot product a window must reach.
			need := (floor - 1e-9) * denom

			var dot float64
			pruned := false
			for ty := 0; ty < t.H; ty++ {
				if bounded && ty > 0 && ty%boundEvery == 0 {
					restSum := integralSum(f.integral, W, x, y+ty, x1, yEnd)
					restSq := integralSum(f.integralSq, W, x, y+ty, x1, yEnd)
					nr := float64((t.H - ty) * t.W)
					restF := restSq - 2*meanF*restSum + nr*meanF*meanF
					if restF < 0 {
						restF = 0
					}
					bound := dot - meanF*t.zmPrefix[ty] + math.Sqrt(restF*t.restEnergy[ty])
					if bound < need {
						pruned = true
						break
					}
				}
				frow := f.pix[(y+ty)*W+x : (y+ty)*W+x+t.W]
				zrow := t.zm[ty*t.W : (ty+1)*t.W]
				for i, v := range zrow {
					dot += frow[i] * v
				}
			}
			if pruned {
				s.Scores[y*sw+x] = -1
				continue
			}
			score := dot / denom
			if score > 1 {
				score = 1
			} else if score < -1 {
				score = -1
			}
			s.Scores[y*sw+x] = score
		}
	}
}
