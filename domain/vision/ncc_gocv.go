//go:build gocv

package vision

import "gocv.io/x/gocv"

func init() {
	correlate = correlateGoCV
}

// correlateGoCV computes the same surface as correlateNCC with OpenCV's
// TM_CCOEFF_NORMED. The whole surface is exact, so floor is unused. It falls
// back to the pure-Go path when a Mat cannot be built.
func correlateGoCV(f *plane, t *templatePlane, floor float64) *Surface {
	if f == nil || t == nil || f.W < t.W || f.H < t.H {
		return nil
	}
	frame, err := gocv.NewMatFromBytes(f.H, f.W, gocv.MatTypeCV8U, f.bytes())
	if err != nil {
		return correlateNCC(f, t, floor)
	}
	defer frame.Close()
	tp := &plane{pix: t.pix, W: t.W, H: t.H}
	tmpl, err := gocv.NewMatFromBytes(t.H, t.W, gocv.MatTypeCV8U, tp.bytes())
	if err != nil {
		return correlateNCC(f, t, floor)
	}
	defer tmpl.Close()
	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(frame, tmpl, &result, gocv.TmCcoeffNormed, mask)

	sw, sh := f.W-t.W+1, f.H-t.H+1
	s := &Surface{W: sw, H: sh, Scores: make([]float64, sw*sh)}
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			v := float64(result.GetFloatAt(y, x))
			if v != v { // NaN on flat windows
				v = 0
			}
			s.Scores[y*sw+x] = v
		}
	}
	return s
}
