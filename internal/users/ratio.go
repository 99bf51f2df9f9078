package users

import (
	"math"
	"time"
)

const ratioRefreshWindow = 24 * time.Hour

// Ratio computes likes/(likes+dislikes) rounded to 2 decimal places.
// Zero interactions yield 0.
func Ratio(likes, dislikes int) float64 {
	total := likes + dislikes
	if total == 0 {
		return 0
	}
	return math.Round(float64(likes)/float64(total)*100) / 100
}

// ShouldRecalculateRatio reports whether the cached like-ratio is due for
// a refresh after an interaction: either the post-increment total is a
// multiple of 10, or more than 24 hours passed since the last refresh.
// Between refreshes the counters advance but the cached ratio stays stale;
// the ratio is a coarse personality signal and batching the recompute
// avoids one write per swipe.
func ShouldRecalculateRatio(total int, lastUpdate, now time.Time) bool {
	if total > 0 && total%10 == 0 {
		return true
	}
	return now.Sub(lastUpdate) > ratioRefreshWindow
}
