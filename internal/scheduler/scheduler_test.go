package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalanet/bloodmatch/internal/alerting"
	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/intake"
	"github.com/thalanet/bloodmatch/internal/matching"
	"github.com/thalanet/bloodmatch/internal/metrics"
	"github.com/thalanet/bloodmatch/internal/model"
	"github.com/thalanet/bloodmatch/internal/notification"
	"github.com/thalanet/bloodmatch/internal/pool"
	"github.com/thalanet/bloodmatch/internal/predictor"
	"github.com/thalanet/bloodmatch/internal/scoring"
)

type stubChannel struct {
	name string

	mu    sync.Mutex
	sends int
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(ctx context.Context, message string, alert *model.EmergencyAlert) error {
	s.mu.Lock()
	s.sends++
	s.mu.Unlock()
	return nil
}

func (s *stubChannel) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

func newTestScheduler(t *testing.T, ch notification.Channel) (*Scheduler, *alerting.Manager, *intake.Buffer, *pool.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := metrics.NewCollector(prometheus.NewRegistry())

	matchingCfg := config.MatchingConfig{
		MaxDistanceKm:       100,
		MinScore:            50,
		EmergencyMinScore:   30,
		BatchMinScore:       40,
		MaxMatches:          10,
		BatchMaxMatches:     5,
		EmergencyMaxMatches: 20,
		BatchWorkers:        4,
		ImmediateContactKm:  25,
		HighPriorityKm:      50,
		HighPriorityScore:   150,
		BackupScore:         100,
		ImmediateContactCap: 3,
		HighPriorityCap:     5,
		BackupCap:           10,
	}
	scoringCfg := config.ScoringConfig{
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
	alertingCfg := config.AlertingConfig{
		RecencyWindow:    time.Hour,
		AlertTTL:         24 * time.Hour,
		MaxAlertsPerHour: 50,
	}
	schedulerCfg := config.SchedulerConfig{
		Enabled:         true,
		ProcessSchedule: "@every 30s",
		CleanupSchedule: "@every 1h",
		StatsSchedule:   "@every 5m",
	}

	matcher := matching.NewMatcher(matchingCfg, scoring.NewEngine(scoringCfg), logger)
	notifier := notification.NewManagerWithChannels([]notification.Channel{ch}, time.Second, nil, collector, logger)
	manager := alerting.NewManager(alertingCfg, matcher, notifier, nil, collector, logger)

	buffer := &intake.Buffer{}
	donors := pool.NewStore()
	s := New(schedulerCfg, manager, buffer, donors, predictor.NewStatic(nil), logger)
	return s, manager, buffer, donors
}

func mumbaiDonors(n int) []model.Donor {
	donors := make([]model.Donor, 0, n)
	for i := 0; i < n; i++ {
		donors = append(donors, model.Donor{
			ID:                  "D" + string(rune('A'+i)),
			Name:                "Donor " + string(rune('A'+i)),
			BloodType:           model.APos,
			Age:                 30,
			Location:            "Mumbai",
			Latitude:            19.0760 + float64(i)*0.01,
			Longitude:           72.8777,
			HealthCondition:     "None",
			AvailabilityStatus:  model.Available,
			ContactNumber:       "+91-9876543210",
			ResponsivenessScore: 0.9,
		})
	}
	return donors
}

func criticalRequest(id string) model.EmergencyRequest {
	return model.EmergencyRequest{
		RequestID:     id,
		BloodType:     model.APos,
		Urgency:       model.UrgencyCritical,
		Location:      "Mumbai",
		Latitude:      19.0760,
		Longitude:     72.8777,
		UnitsRequired: 2,
		HospitalName:  "City General",
		ContactPerson: "Dr. Rao",
		ContactNumber: "+91-9876500000",
		Timestamp:     time.Now(),
	}
}

func TestProcessPass(t *testing.T) {
	t.Run("Buffered requests are processed", func(t *testing.T) {
		ch := &stubChannel{name: "email"}
		s, manager, buffer, donors := newTestScheduler(t, ch)

		donors.Replace(mumbaiDonors(5))
		buffer.Add(criticalRequest("REQ1"))

		s.processPass(context.Background())

		alerts := manager.ActiveAlerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, model.AlertNotified, alerts[0].Status)
		assert.Equal(t, 1, ch.sendCount())
		assert.Zero(t, buffer.Len())
	})

	t.Run("Stuck active alert retried on a pass with an empty buffer", func(t *testing.T) {
		ch := &stubChannel{name: "email"}
		s, manager, buffer, donors := newTestScheduler(t, ch)

		// First pass finds no donors: the alert stays active, nothing sent.
		buffer.Add(criticalRequest("REQ1"))
		s.processPass(context.Background())

		alerts := manager.ActiveAlerts()
		require.Len(t, alerts, 1)
		require.Equal(t, model.AlertActive, alerts[0].Status)
		require.Zero(t, ch.sendCount())

		// Donors appear later; the next scheduled pass has nothing buffered
		// but must still retry the pending alert.
		donors.Replace(mumbaiDonors(5))
		s.processPass(context.Background())

		alerts = manager.ActiveAlerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, model.AlertNotified, alerts[0].Status)
		assert.Equal(t, 1, ch.sendCount())
	})

	t.Run("Idle pass with nothing pending is a no-op", func(t *testing.T) {
		ch := &stubChannel{name: "email"}
		s, manager, _, donors := newTestScheduler(t, ch)
		donors.Replace(mumbaiDonors(3))

		s.processPass(context.Background())

		assert.Empty(t, manager.ActiveAlerts())
		assert.Zero(t, ch.sendCount())
	})
}
