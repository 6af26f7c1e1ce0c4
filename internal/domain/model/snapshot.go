package model

import (
	"math"
	"time"
)

// Constants shared by every aggregation and classification step.
const (
	// DefaultMinSample is the origin count below which results are unreliable.
	DefaultMinSample = 5
	// FollowUpWindow bounds how long after an origin a follow-up still counts.
	// It is independent of the outer aggregation window.
	FollowUpWindow = 24 * time.Hour
)

// Snapshot aggregates origin and follow-up counts for one entity over one window.
// FollowUpRate is an integer percentage in [0, 100].
type Snapshot struct {
	EntityID       string
	OriginCount    int
	FollowUpCount  int
	FollowUpRate   int
	FollowUpByKind map[Kind]int
	SnapshotAt     time.Time
}

// ROISnapshot extends Snapshot with origin to completion conversion.
type ROISnapshot struct {
	Snapshot
	CompletionCount int
	CompletionRate  int
}

// Difficulty is the catalog tier of a piece of content.
type Difficulty string

// Known difficulty tiers.
const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// CatalogEntry is display metadata for an entity.
type CatalogEntry struct {
	ID         string     `yaml:"id" json:"id"`
	Title      string     `yaml:"title" json:"title"`
	Difficulty Difficulty `yaml:"difficulty" json:"difficulty"`
}

// Rate returns round(part/whole*100), or 0 when whole is not positive.
func Rate(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	r := int(math.Round(float64(part) / float64(whole) * 100))
	switch {
	case r < 0:
		return 0
	case r > 100:
		return 100
	}
	return r
}

// IndexCatalog keys catalog entries by id. Later duplicates win.
func IndexCatalog(entries []CatalogEntry) map[string]CatalogEntry {
	out := make(map[string]CatalogEntry, len(entries))
	for _, e := range entries {
		out[e.ID] = e
	}
	return out
}
