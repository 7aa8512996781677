// Package matching orchestrates compatibility filtering, distance
// calculation, scoring and ranking for patient/donor matching.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thalanet/bloodmatch/internal/compat"
	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/geo"
	"github.com/thalanet/bloodmatch/internal/model"
	"github.com/thalanet/bloodmatch/internal/scoring"
)

// Matcher ranks donors for patients and emergency requests. It holds no
// mutable state of its own; matching passes over independent patients are
// safe to run concurrently.
type Matcher struct {
	cfg    config.MatchingConfig
	scorer *scoring.Engine
	logger *slog.Logger
}

// NewMatcher creates a matcher bound to the given thresholds and scorer
func NewMatcher(cfg config.MatchingConfig, scorer *scoring.Engine, logger *slog.Logger) *Matcher {
	return &Matcher{
		cfg:    cfg,
		scorer: scorer,
		logger: logger,
	}
}

// FindMatches returns the ranked donors for one patient, descending by
// score, scores below minScore dropped, truncated to maxMatches. The sort is
// stable so equal scores preserve pool order for reproducibility. Donor
// records missing required fields are skipped with a warning, never fatal.
func (m *Matcher) FindMatches(patient *model.PatientRequest, pool []model.Donor, maxMatches int, minScore float64) ([]model.MatchCandidate, error) {
	if err := model.ValidatePatient(patient); err != nil {
		return nil, err
	}
	if !compat.KnownType(patient.BloodType) {
		// Unknown types have an empty compatible set; not an error, just
		// no possible candidates.
		m.logger.Warn("unknown blood type requested, no compatible donors",
			"patient_id", patient.PatientID,
			"blood_type", patient.BloodType)
		return []model.MatchCandidate{}, nil
	}

	now := time.Now()
	candidates := make([]model.MatchCandidate, 0, maxMatches)

	for i := range pool {
		donor := &pool[i]
		if err := model.ValidateDonor(donor); err != nil {
			m.logger.Warn("skipping donor record", "error", err)
			continue
		}
		if !compat.Eligible(donor) {
			continue
		}

		distance := geo.Distance(patient.Latitude, patient.Longitude, donor.Latitude, donor.Longitude)
		if distance > m.cfg.MaxDistanceKm {
			continue
		}

		// A zero score marks an incompatible pair and never qualifies, even
		// when the caller passes a zero threshold.
		score := m.scorer.Score(patient, donor, distance, now)
		if score <= 0 || score < minScore {
			continue
		}

		availability := m.scorer.DefaultAvailability()
		if donor.PredictedAvailability != nil {
			availability = *donor.PredictedAvailability
		}

		candidates = append(candidates, model.MatchCandidate{
			DonorID:               donor.ID,
			DonorName:             donor.Name,
			BloodType:             donor.BloodType,
			Age:                   donor.Age,
			Gender:                donor.Gender,
			Location:              donor.Location,
			DistanceKm:            round2(distance),
			Score:                 round2(score),
			PredictedAvailability: availability,
			ResponsivenessScore:   donor.ResponsivenessScore,
			LastDonationDate:      donor.LastDonationDate,
			HealthCondition:       donor.HealthCondition,
			ContactNumber:         donor.ContactNumber,
			Urgency:               patient.Urgency,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if maxMatches > 0 && len(candidates) > maxMatches {
		candidates = candidates[:maxMatches]
	}
	return candidates, nil
}

// FindEmergencyMatches ranks donors for an emergency request with a lower
// score floor and partitions the result into non-exclusive contact tiers.
func (m *Matcher) FindEmergencyMatches(request *model.EmergencyRequest, pool []model.Donor) (*model.TriageResult, error) {
	if err := model.ValidateRequest(request); err != nil {
		return nil, err
	}

	patient := request.Patient()
	matches, err := m.FindMatches(&patient, pool, m.cfg.EmergencyMaxMatches, m.cfg.EmergencyMinScore)
	if err != nil {
		return nil, err
	}

	result := &model.TriageResult{
		ImmediateContact: []model.MatchCandidate{},
		HighPriority:     []model.MatchCandidate{},
		BackupOptions:    []model.MatchCandidate{},
		TotalMatches:     len(matches),
		BloodType:        request.BloodType,
		Urgency:          request.Urgency,
		Location:         request.Location,
		Timestamp:        time.Now(),
	}

	for _, c := range matches {
		if c.Urgency == model.UrgencyCritical && c.DistanceKm <= m.cfg.ImmediateContactKm &&
			len(result.ImmediateContact) < m.cfg.ImmediateContactCap {
			result.ImmediateContact = append(result.ImmediateContact, c)
		}
		if c.Score >= m.cfg.HighPriorityScore && c.DistanceKm <= m.cfg.HighPriorityKm &&
			len(result.HighPriority) < m.cfg.HighPriorityCap {
			result.HighPriority = append(result.HighPriority, c)
		}
		if c.Score >= m.cfg.BackupScore && len(result.BackupOptions) < m.cfg.BackupCap {
			result.BackupOptions = append(result.BackupOptions, c)
		}
	}

	return result, nil
}

// BatchMatch runs FindMatches independently for each patient with a bounded
// worker pool. Patients share no mutable state; a failure on one patient is
// logged and does not abort the batch.
func (m *Matcher) BatchMatch(ctx context.Context, patients []model.PatientRequest, pool []model.Donor) (*model.BatchResult, error) {
	result := &model.BatchResult{
		Patients: make(map[string]model.PatientMatches, len(patients)),
	}

	workers := m.cfg.BatchWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(patients) && len(patients) > 0 {
		workers = len(patients)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range patients {
		patient := patients[i]
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			matches, err := m.FindMatches(&patient, pool, m.cfg.BatchMaxMatches, m.cfg.BatchMinScore)
			if err != nil {
				m.logger.Warn("skipping patient in batch", "patient_id", patient.PatientID, "error", err)
				return nil
			}

			mu.Lock()
			result.Patients[patient.PatientID] = model.PatientMatches{
				PatientID:  patient.PatientID,
				Name:       patient.Name,
				BloodType:  patient.BloodType,
				Urgency:    patient.Urgency,
				Location:   patient.Location,
				Matches:    matches,
				MatchCount: len(matches),
			}
			result.TotalMatches += len(matches)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch matching cancelled: %w", err)
	}

	m.logger.Info("batch matching completed",
		"patients", len(patients),
		"total_matches", result.TotalMatches)
	return result, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
