package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/model"
)

func testConfig() config.ScoringConfig {
	return config.ScoringConfig{
		BaseScore: 100,
		UrgencyWeights: map[string]float64{
			"LOW": 1.0, "MEDIUM": 1.5, "HIGH": 2.0, "CRITICAL": 3.0,
		},
		ProximityWeights: map[string]float64{
			"same_city": 1.0, "nearby_city": 0.8, "far_city": 0.6,
		},
		HealthyBonus:        1.2,
		ConditionPenalty:    0.8,
		PreferredAgeBonus:   1.1,
		SeniorPenalty:       0.9,
		RecoveredBonus:      1.2,
		RecentPenalty:       0.3,
		DeferralDays:        56,
		RecentDays:          30,
		DefaultAvailability: 0.5,
	}
}

func testPatient(urgency model.Urgency) model.PatientRequest {
	return model.PatientRequest{
		PatientID: "P1",
		BloodType: model.APos,
		Urgency:   urgency,
	}
}

func testDonor() model.Donor {
	return model.Donor{
		ID:                  "D1",
		Name:                "Donor",
		BloodType:           model.APos,
		Age:                 30,
		HealthCondition:     "None",
		AvailabilityStatus:  model.Available,
		ResponsivenessScore: 0.8,
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestScore(t *testing.T) {
	engine := NewEngine(testConfig())
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Full factor chain", func(t *testing.T) {
		patient := testPatient(model.UrgencyHigh)
		donor := testDonor()
		donor.PredictedAvailability = floatPtr(0.9)
		donor.LastDonationDate = now.AddDate(0, 0, -60).Format(model.DateLayout)

		// 100 * 2.0 * 1.0 * (0.5+0.5*0.9) * 1.2 * (0.8+0.4*0.8) * 1.1 * 1.2
		got := engine.Score(&patient, &donor, 5, now)
		assert.InDelta(t, 337.0752, got, 0.001)
	})

	t.Run("Incompatible pair scores zero", func(t *testing.T) {
		patient := testPatient(model.UrgencyCritical)
		donor := testDonor()
		donor.BloodType = model.BPos

		assert.Zero(t, engine.Score(&patient, &donor, 5, now))
	})

	t.Run("Urgency ordering", func(t *testing.T) {
		donor := testDonor()
		var prev float64
		for i, u := range []model.Urgency{model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh, model.UrgencyCritical} {
			patient := testPatient(u)
			got := engine.Score(&patient, &donor, 5, now)
			if i > 0 {
				assert.Greater(t, got, prev, "urgency %s should outrank the previous level", u)
			}
			prev = got
		}
	})

	t.Run("Proximity buckets", func(t *testing.T) {
		patient := testPatient(model.UrgencyHigh)
		donor := testDonor()

		same := engine.Score(&patient, &donor, 5, now)
		nearby := engine.Score(&patient, &donor, 30, now)
		far := engine.Score(&patient, &donor, 90, now)

		assert.Greater(t, same, nearby)
		assert.Greater(t, nearby, far)
		assert.InDelta(t, same*0.8, nearby, 0.001)
		assert.InDelta(t, same*0.6, far, 0.001)
	})

	t.Run("Missing availability uses default", func(t *testing.T) {
		patient := testPatient(model.UrgencyLow)
		withDefault := testDonor()

		explicit := testDonor()
		explicit.PredictedAvailability = floatPtr(0.5)

		assert.InDelta(t,
			engine.Score(&patient, &explicit, 5, now),
			engine.Score(&patient, &withDefault, 5, now), 0.001)
	})

	t.Run("Health condition penalty", func(t *testing.T) {
		patient := testPatient(model.UrgencyLow)
		healthy := testDonor()
		diabetic := testDonor()
		diabetic.HealthCondition = "Diabetes"

		h := engine.Score(&patient, &healthy, 5, now)
		d := engine.Score(&patient, &diabetic, 5, now)
		assert.InDelta(t, h/1.2*0.8, d, 0.001)
	})

	t.Run("Age factors", func(t *testing.T) {
		patient := testPatient(model.UrgencyLow)

		preferred := testDonor()
		preferred.Age = 30
		middle := testDonor()
		middle.Age = 55
		senior := testDonor()
		senior.Age = 70

		p := engine.Score(&patient, &preferred, 5, now)
		m := engine.Score(&patient, &middle, 5, now)
		s := engine.Score(&patient, &senior, 5, now)

		assert.Greater(t, p, m)
		assert.Greater(t, m, s)
		assert.InDelta(t, m*1.1, p, 0.001)
		assert.InDelta(t, m*0.9, s, 0.001)
	})

	t.Run("Donation recency", func(t *testing.T) {
		patient := testPatient(model.UrgencyHigh)

		recovered := testDonor()
		recovered.LastDonationDate = now.AddDate(0, 0, -60).Format(model.DateLayout)
		recent := testDonor()
		recent.LastDonationDate = now.AddDate(0, 0, -10).Format(model.DateLayout)
		between := testDonor()
		between.LastDonationDate = now.AddDate(0, 0, -40).Format(model.DateLayout)
		unknown := testDonor()

		r := engine.Score(&patient, &recovered, 5, now)
		q := engine.Score(&patient, &recent, 5, now)
		b := engine.Score(&patient, &between, 5, now)
		u := engine.Score(&patient, &unknown, 5, now)

		assert.Greater(t, r, q, "recently donated must score strictly lower than recovered")
		assert.InDelta(t, b*1.2, r, 0.001)
		assert.InDelta(t, b*0.3, q, 0.001)
		assert.InDelta(t, b, u, 0.001, "unknown donation date leaves the score untouched")
	})

	t.Run("Unparseable date treated as unknown", func(t *testing.T) {
		patient := testPatient(model.UrgencyLow)
		bad := testDonor()
		bad.LastDonationDate = "not-a-date"
		clean := testDonor()

		assert.InDelta(t,
			engine.Score(&patient, &clean, 5, now),
			engine.Score(&patient, &bad, 5, now), 0.001)
	})

	t.Run("Deterministic", func(t *testing.T) {
		patient := testPatient(model.UrgencyCritical)
		donor := testDonor()
		first := engine.Score(&patient, &donor, 12, now)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, engine.Score(&patient, &donor, 12, now))
		}
	})
}
