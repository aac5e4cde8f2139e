package usecase

import (
	"github.com/norrhem/stagecraft/internal/core/domain"
)

// estimateConfidence converts the score matrix into per-dimension clarity
// values in [0,1] and their arithmetic mean. Per dimension: scores are
// normalized by the total qualifying recency weight, separation is the top
// normalized score minus the mean of the other five (clamped into [0,1]),
// and a volume factor min(1, qualifying/threshold) scales the result down
// while evidence is thin.
func estimateConfidence(matrix domain.ScoreMatrix, evidence map[domain.Dimension]dimensionEvidence, params ScoringParams) (map[domain.Dimension]float64, float64) {
	params = params.normalize()

	perDimension := make(map[domain.Dimension]float64, len(matrix))
	var sum float64
	dims := domain.Dimensions()
	for _, dim := range dims {
		confidence := dimensionConfidence(matrix[dim], evidence[dim], params.VolumeThreshold)
		perDimension[dim] = confidence
		sum += confidence
	}

	overall := 0.0
	if len(dims) > 0 {
		overall = sum / float64(len(dims))
	}
	return perDimension, overall
}

func dimensionConfidence(scores map[string]float64, ev dimensionEvidence, volumeThreshold int) float64 {
	if ev.weight <= 0 || len(scores) < 2 {
		return 0
	}

	top := 0.0
	total := 0.0
	first := true
	for _, score := range scores {
		normalized := score / ev.weight
		total += normalized
		if first || normalized > top {
			top = normalized
			first = false
		}
	}

	restMean := (total - top) / float64(len(scores)-1)
	separation := clamp01(top - restMean)

	volume := float64(ev.count) / float64(volumeThreshold)
	if volume > 1 {
		volume = 1
	}
	return separation * volume
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
