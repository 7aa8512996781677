// Package predictor supplies externally computed donor availability scores.
// How the scores are produced is out of this service's hands; the matcher
// treats them as opaque values in [0,1].
package predictor

import (
	"github.com/thalanet/bloodmatch/internal/model"
)

// DefaultScore is used for donors the predictor has no score for.
const DefaultScore = 0.5

// Provider resolves a predicted availability score for a donor id. ok is
// false when the predictor has no score for that donor.
type Provider interface {
	AvailabilityScore(donorID string) (float64, bool)
}

// Static serves scores from a fixed map, typically loaded from a prediction
// export produced by the upstream model.
type Static struct {
	scores map[string]float64
}

// NewStatic creates a static provider over the given scores. Values outside
// [0,1] are clamped.
func NewStatic(scores map[string]float64) *Static {
	clamped := make(map[string]float64, len(scores))
	for id, s := range scores {
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		clamped[id] = s
	}
	return &Static{scores: clamped}
}

// AvailabilityScore returns the score for a donor id
func (s *Static) AvailabilityScore(donorID string) (float64, bool) {
	score, ok := s.scores[donorID]
	return score, ok
}

// Annotate stamps predicted availability onto a donor pool in place,
// defaulting donors the provider does not know. The pool slice is owned by
// the caller; donor snapshots handed to the matcher afterwards are not
// mutated again.
func Annotate(pool []model.Donor, p Provider) {
	for i := range pool {
		if pool[i].PredictedAvailability != nil {
			continue
		}
		score := DefaultScore
		if p != nil {
			if s, ok := p.AvailabilityScore(pool[i].ID); ok {
				score = s
			}
		}
		s := score
		pool[i].PredictedAvailability = &s
	}
}
