package usecase

import (
	"github.com/norrhem/stagecraft/internal/core/domain"
)

// ScoringParams holds the tunables of the scoring pipeline. The defaults are
// design choices, not hard requirements; config can override all of them.
type ScoringParams struct {
	// WindowSize bounds scoring to the most recent N swipes. Older swipes
	// have zero marginal effect, which lets a profile drift when taste
	// genuinely changes mid-session.
	WindowSize int
	// Decay is the per-position recency factor in (0,1); swipe i positions
	// from the newest is weighted Decay^i.
	Decay float64
	// VolumeThreshold is the qualifying-swipe count at which a dimension's
	// volume factor saturates at 1.
	VolumeThreshold int
	// CompletionThreshold is the overall confidence at which completedAt
	// latches.
	CompletionThreshold float64
}

func DefaultScoringParams() ScoringParams {
	return ScoringParams{
		WindowSize:          50,
		Decay:               0.98,
		VolumeThreshold:     15,
		CompletionThreshold: 0.7,
	}
}

func (p ScoringParams) normalize() ScoringParams {
	def := DefaultScoringParams()
	out := p
	if out.WindowSize <= 0 {
		out.WindowSize = def.WindowSize
	}
	if out.Decay <= 0 || out.Decay >= 1 {
		out.Decay = def.Decay
	}
	if out.VolumeThreshold <= 0 {
		out.VolumeThreshold = def.VolumeThreshold
	}
	if out.CompletionThreshold <= 0 || out.CompletionThreshold > 1 {
		out.CompletionThreshold = def.CompletionThreshold
	}
	return out
}

// dimensionEvidence tracks how much of the window actually carried tags in a
// dimension: the summed recency weight and the raw qualifying swipe count.
type dimensionEvidence struct {
	weight float64
	count  int
}

// aggregateScores folds a newest-first window of tagged swipes into the raw
// score matrix. A like adds +decay^i to every tag value on the image, a
// dislike adds -decay^i; dimensions the image is untagged in are untouched.
// Scores are stored unnormalized; absent values stay exactly 0.
func aggregateScores(window []domain.TaggedSwipe, params ScoringParams) (domain.ScoreMatrix, map[domain.Dimension]dimensionEvidence) {
	params = params.normalize()

	matrix := domain.NewScoreMatrix()
	evidence := make(map[domain.Dimension]dimensionEvidence, len(matrix))

	if len(window) > params.WindowSize {
		window = window[:params.WindowSize]
	}

	weight := 1.0
	for _, swipe := range window {
		sign := weight
		if swipe.Direction == domain.DirectionDislike {
			sign = -weight
		}
		for dim, values := range swipe.Tags {
			row, ok := matrix[dim]
			if !ok || len(values) == 0 {
				continue
			}
			tagged := false
			for _, value := range values {
				if _, known := row[value]; !known {
					continue
				}
				row[value] += sign
				tagged = true
			}
			if tagged {
				ev := evidence[dim]
				ev.weight += weight
				ev.count++
				evidence[dim] = ev
			}
		}
		weight *= params.Decay
	}

	return matrix, evidence
}
