package syncer

import "math"

// ConvertRating maps the source 1–10 integer scale onto the destination
// 0.5–5.0 half-star scale: linear rescale, rounded half-up to the nearest
// 0.5, clamped into range. 0 (unrated) stays 0. The mapping is lossy; no
// reverse mapping exists.
func ConvertRating(rating int) float64 {
	if rating <= 0 {
		return 0
	}
	scaled := float64(rating) / 10.0 * 5.0
	rounded := math.Floor(scaled*2+0.5) / 2
	return math.Min(5.0, math.Max(0.5, rounded))
}
