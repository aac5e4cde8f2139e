package domain

import "time"

// ScoreMatrix holds the raw recency-weighted affinity sum per tag value per
// dimension. A value that was never swiped stays at exactly 0, the neutral
// state.
type ScoreMatrix map[Dimension]map[string]float64

// NewScoreMatrix returns a matrix with every taxonomy value present at 0.
func NewScoreMatrix() ScoreMatrix {
	matrix := make(ScoreMatrix, len(Dimensions()))
	for _, dim := range Dimensions() {
		row := make(map[string]float64, ValuesPerDimension)
		for _, value := range DimensionValues(dim) {
			row[value] = 0
		}
		matrix[dim] = row
	}
	return matrix
}

// StyleProfile is the single derived record per subject. It is a cache over
// the swipe log: safe to drop and rebuild, never a source of truth.
type StyleProfile struct {
	SubjectID           string                `json:"subject_id"`
	Scores              ScoreMatrix           `json:"scores"`
	DimensionConfidence map[Dimension]float64 `json:"dimension_confidence"`
	OverallConfidence   float64               `json:"overall_confidence"`
	SwipeCount          int64                 `json:"swipe_count"`
	// CompletedAt is a one-way latch: set the first time overall confidence
	// crosses the completion threshold, never cleared afterwards.
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LastUpdatedAt time.Time  `json:"last_updated_at"`
}

// Completed reports whether the profile has tripped the completion latch.
func (p *StyleProfile) Completed() bool {
	return p.CompletedAt != nil
}
