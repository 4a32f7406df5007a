// Package progress derives completion percentages and milestone crossings
// from a roadmap's trackable items. Everything here is pure and
// order-independent; callers recompute after every mutation.
package progress

import (
	"math"

	"github.com/arahkita/arah-go-api/internal/models"
)

// Milestone thresholds that trigger one-time celebratory notices.
const (
	ThresholdFifty   = 50
	ThresholdHundred = 100
)

// Snapshot is the derived completion state for one roadmap. It is never
// persisted on its own.
type Snapshot struct {
	CompletedCount int
	TotalCount     int
	Percentage     int
}

// Milestones reports which thresholds a progress transition crossed.
type Milestones struct {
	Fifty   bool
	Hundred bool
}

// Percentage maps a collection of trackable items to an integer in [0,100].
// An empty collection is 0 percent, never a division error.
func Percentage(items []models.TrackableItem) int {
	return Compute(items).Percentage
}

// Compute returns the full snapshot for a collection of items.
func Compute(items []models.TrackableItem) Snapshot {
	total := len(items)
	if total == 0 {
		return Snapshot{}
	}

	completed := 0
	for _, item := range items {
		if item.Completed {
			completed++
		}
	}

	return Snapshot{
		CompletedCount: completed,
		TotalCount:     total,
		Percentage:     int(math.Round(100 * float64(completed) / float64(total))),
	}
}

// CrossedMilestone is true for a threshold exactly when prev < threshold <= next.
// Recomputing with unchanged inputs reports no crossing, so celebratory side
// effects fire at most once per transition.
func CrossedMilestone(prev, next int) Milestones {
	return Milestones{
		Fifty:   prev < ThresholdFifty && ThresholdFifty <= next,
		Hundred: prev < ThresholdHundred && ThresholdHundred <= next,
	}
}
