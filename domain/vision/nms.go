package vision

import "sort"

// SuppressOverlaps performs greedy non-maximum suppression: detections are
// visited strongest first and dropped when their IoU with an already kept
// box exceeds iou.
func SuppressOverlaps(dets []Detection, iou float64) []Detection {
	if len(dets) == 0 {
		return nil
	}
	sorted := append([]Detection(nil), dets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })
	kept := make([]Detection, 0, len(sorted))
	for _, d := range sorted {
		dup := false
		for _, k := range kept {
			if IoU(d.Box, k.Box) > iou {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, d)
		}
	}
	return kept
}
