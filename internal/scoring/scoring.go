// Package scoring implements the deterministic multiplicative match score.
package scoring

import (
	"time"

	"github.com/thalanet/bloodmatch/internal/compat"
	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/geo"
	"github.com/thalanet/bloodmatch/internal/model"
)

// Engine computes match scores from the immutable weight tables loaded at
// startup. Scores are deterministic: identical inputs always produce the
// identical score.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine creates a scoring engine bound to the given weight tables
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// DefaultAvailability is the predicted availability used when the external
// predictor supplied no score for a donor
func (e *Engine) DefaultAvailability() float64 {
	return e.cfg.DefaultAvailability
}

// Score computes the matching score for one patient/donor pair at the given
// distance. Incompatible pairs score exactly 0. The score is multiplicative:
// a single strongly negative factor (such as a donation inside the recent
// window) suppresses an otherwise excellent match.
func (e *Engine) Score(patient *model.PatientRequest, donor *model.Donor, distanceKm float64, now time.Time) float64 {
	if !compat.IsCompatible(patient.BloodType, donor.BloodType) {
		return 0
	}

	score := e.cfg.BaseScore

	// Urgency
	if w, ok := e.cfg.UrgencyWeights[string(patient.Urgency)]; ok {
		score *= w
	}

	// Proximity
	if w, ok := e.cfg.ProximityWeights[string(geo.Bucket(distanceKm))]; ok {
		score *= w
	} else {
		score *= 0.5
	}

	// Predicted availability, default when the predictor supplied none
	availability := e.cfg.DefaultAvailability
	if donor.PredictedAvailability != nil {
		availability = *donor.PredictedAvailability
	}
	score *= 0.5 + 0.5*availability

	// Health condition
	if donor.HealthCondition == "None" {
		score *= e.cfg.HealthyBonus
	} else {
		score *= e.cfg.ConditionPenalty
	}

	// Responsiveness
	score *= 0.8 + 0.4*donor.ResponsivenessScore

	// Age: 18-45 preferred, seniors discounted
	switch {
	case donor.Age >= 18 && donor.Age <= 45:
		score *= e.cfg.PreferredAgeBonus
	case donor.Age > 65:
		score *= e.cfg.SeniorPenalty
	}

	// Donation recency: fully recovered donors get a bonus, donors inside
	// the recent window are penalized hard but not excluded. Unknown dates
	// leave the score untouched.
	if days, ok := donor.DaysSinceLastDonation(now); ok {
		switch {
		case days >= e.cfg.DeferralDays:
			score *= e.cfg.RecoveredBonus
		case days < e.cfg.RecentDays:
			score *= e.cfg.RecentPenalty
		}
	}

	if score < 0 {
		return 0
	}
	return score
}
