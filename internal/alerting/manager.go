// Package alerting tracks the lifecycle of emergency blood alerts from
// detection through notification to expiry.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/matching"
	"github.com/thalanet/bloodmatch/internal/metrics"
	"github.com/thalanet/bloodmatch/internal/model"
	"github.com/thalanet/bloodmatch/internal/notification"
	"github.com/thalanet/bloodmatch/internal/privacy"
)

// Manager is the emergency alert state machine. It is the only writer of
// the active alert set; detection and cleanup are serialized behind one
// mutex so a request id never has more than one active alert. Readers
// (stats, export) always get snapshot copies.
type Manager struct {
	cfg      config.AlertingConfig
	matcher  *matching.Matcher
	notifier *notification.Manager
	masker   privacy.Masker
	metrics  *metrics.Collector
	logger   *slog.Logger

	mu            sync.Mutex
	active        map[string]*model.EmergencyAlert
	history       []model.AlertHistoryEntry
	created       []time.Time
	lastProcessed *time.Time
}

// NewManager creates an alert manager
func NewManager(
	cfg config.AlertingConfig,
	matcher *matching.Matcher,
	notifier *notification.Manager,
	masker privacy.Masker,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Manager {
	if masker == nil {
		masker = privacy.Noop{}
	}
	return &Manager{
		cfg:      cfg,
		matcher:  matcher,
		notifier: notifier,
		masker:   masker,
		metrics:  collector,
		logger:   logger,
		active:   make(map[string]*model.EmergencyAlert),
	}
}

// Detect scans a batch of request snapshots and creates an active alert for
// each untracked HIGH or CRITICAL request inside the recency window.
// Detection is idempotent per request id. Returns the newly created alerts.
func (m *Manager) Detect(requests []model.EmergencyRequest) []*model.EmergencyAlert {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneCreatedLocked(now)

	var newAlerts []*model.EmergencyAlert
	for i := range requests {
		request := &requests[i]

		if _, tracked := m.active[request.RequestID]; tracked {
			continue
		}
		if err := model.ValidateRequest(request); err != nil {
			m.logger.Warn("skipping emergency request", "error", err)
			continue
		}
		if request.Urgency != model.UrgencyHigh && request.Urgency != model.UrgencyCritical {
			continue
		}
		if now.Sub(request.Timestamp) > m.cfg.RecencyWindow {
			continue
		}
		if m.cfg.MaxAlertsPerHour > 0 && len(m.created) >= m.cfg.MaxAlertsPerHour {
			m.logger.Warn("alert creation rate cap reached, deferring detection",
				"cap", m.cfg.MaxAlertsPerHour)
			break
		}

		alert := &model.EmergencyAlert{
			AlertID:       "ALERT_" + uuid.New().String(),
			RequestID:     request.RequestID,
			BloodType:     request.BloodType,
			Urgency:       request.Urgency,
			Location:      request.Location,
			Latitude:      request.Latitude,
			Longitude:     request.Longitude,
			UnitsRequired: request.UnitsRequired,
			HospitalName:  request.HospitalName,
			ContactPerson: request.ContactPerson,
			ContactNumber: request.ContactNumber,
			Timestamp:     request.Timestamp,
			CreatedAt:     now,
			Status:        model.AlertActive,
		}

		m.active[request.RequestID] = alert
		m.created = append(m.created, now)
		newAlerts = append(newAlerts, alert)

		m.logger.Info("new emergency alert created",
			"alert_id", alert.AlertID,
			"request_id", alert.RequestID,
			"urgency", alert.Urgency,
			"blood_type", alert.BloodType)
	}

	m.metrics.ActiveAlerts.Set(float64(len(m.active)))
	return newAlerts
}

// ProcessRequests is the main processing pass: detect new alerts, match and
// dispatch each, then clean up expired alerts. Failures are contained per
// alert; one broken alert never aborts the pass.
func (m *Manager) ProcessRequests(ctx context.Context, requests []model.EmergencyRequest, pool []model.Donor) error {
	newAlerts := m.Detect(requests)

	// Alerts left active by an earlier pass (no candidates found) are
	// retried alongside the new ones.
	pending := m.pendingRetries(newAlerts)
	newAlerts = append(newAlerts, pending...)

	if len(newAlerts) == 0 {
		m.logger.Info("no new emergency requests detected")
	} else {
		m.logger.Info("processing emergency alerts",
			"count", len(newAlerts),
			"retries", len(pending))

		for _, alert := range newAlerts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			m.processAlert(ctx, alert, pool)
		}
	}

	m.Cleanup()

	// An empty pass is still a pass: the timestamp records when processing
	// last ran, not when an alert was last handled.
	now := time.Now()
	m.mu.Lock()
	m.lastProcessed = &now
	m.mu.Unlock()
	return nil
}

// pendingRetries returns active alerts that have not been notified yet and
// are not part of the just-detected batch
func (m *Manager) pendingRetries(justDetected []*model.EmergencyAlert) []*model.EmergencyAlert {
	detected := make(map[string]struct{}, len(justDetected))
	for _, alert := range justDetected {
		detected[alert.RequestID] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*model.EmergencyAlert
	for requestID, alert := range m.active {
		if _, isNew := detected[requestID]; isNew {
			continue
		}
		if alert.Status == model.AlertActive && !alert.NotificationSent {
			pending = append(pending, alert)
		}
	}
	return pending
}

// processAlert runs one matching and dispatch pass for one alert and
// appends exactly one history entry for it, whatever the outcome.
func (m *Manager) processAlert(ctx context.Context, alert *model.EmergencyAlert, pool []model.Donor) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("unexpected fault while processing alert",
				"alert_id", alert.AlertID,
				"panic", r)
			m.transition(alert, model.AlertError, nil)
			m.appendHistory(alert, 0)
		}
	}()

	start := time.Now()
	candidates, err := m.matchAlert(alert, pool)
	m.metrics.MatchingDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		m.logger.Error("matching failed for alert", "alert_id", alert.AlertID, "error", err)
		m.transition(alert, model.AlertError, nil)
		m.appendHistory(alert, 0)
		return
	}

	m.metrics.CandidatesPerMatch.Observe(float64(len(candidates)))

	if len(candidates) == 0 {
		// Not an error: the alert stays active and is eligible for a retry
		// on the next processing pass.
		m.logger.Warn("no matching donors found for alert", "alert_id", alert.AlertID)
		m.appendHistory(alert, 0)
		return
	}

	result, err := m.notifier.Dispatch(ctx, alert, candidates)
	switch {
	case err != nil:
		m.logger.Error("dispatch failed for alert", "alert_id", alert.AlertID, "error", err)
		m.transition(alert, model.AlertError, candidates)
	case result.Succeeded == 0:
		m.logger.Error("all notification channels failed for alert",
			"alert_id", alert.AlertID,
			"channels", result.Attempted)
		m.transition(alert, model.AlertError, candidates)
	default:
		m.transition(alert, model.AlertNotified, candidates)
		m.logger.Info("emergency notifications sent",
			"alert_id", alert.AlertID,
			"matched_donors", len(candidates),
			"channels_succeeded", result.Succeeded)
	}

	m.appendHistory(alert, len(candidates))
}

// matchAlert runs the matcher and flattens the triage tiers into the donor
// list attached to the alert, deduplicated by donor id.
func (m *Manager) matchAlert(alert *model.EmergencyAlert, pool []model.Donor) ([]model.MatchCandidate, error) {
	request := model.EmergencyRequest{
		RequestID:     alert.RequestID,
		BloodType:     alert.BloodType,
		Urgency:       alert.Urgency,
		Location:      alert.Location,
		Latitude:      alert.Latitude,
		Longitude:     alert.Longitude,
		UnitsRequired: alert.UnitsRequired,
		HospitalName:  alert.HospitalName,
		ContactPerson: alert.ContactPerson,
		ContactNumber: alert.ContactNumber,
		Timestamp:     alert.Timestamp,
	}

	triage, err := m.matcher.FindEmergencyMatches(&request, pool)
	if err != nil {
		return nil, fmt.Errorf("emergency matching failed: %w", err)
	}

	seen := make(map[string]struct{})
	var candidates []model.MatchCandidate
	for _, tier := range [][]model.MatchCandidate{triage.ImmediateContact, triage.HighPriority} {
		for _, c := range tier {
			if _, dup := seen[c.DonorID]; dup {
				continue
			}
			seen[c.DonorID] = struct{}{}
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// transition applies a status change and, on the first successful pass,
// attaches the matched donors. MatchedDonors is set at most once.
func (m *Manager) transition(alert *model.EmergencyAlert, status model.AlertStatus, candidates []model.MatchCandidate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert.Status = status
	if status == model.AlertNotified {
		alert.NotificationSent = true
	}
	if candidates != nil && alert.MatchedDonors == nil {
		alert.MatchedDonors = candidates
	}
	m.metrics.AlertsProcessed.WithLabelValues(string(status)).Inc()
}

// appendHistory records the outcome of one processing pass for an alert
func (m *Manager) appendHistory(alert *model.EmergencyAlert, matchedCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, model.AlertHistoryEntry{
		AlertID:           alert.AlertID,
		Timestamp:         time.Now(),
		Status:            alert.Status,
		MatchedDonorCount: matchedCount,
	})
}

// Cleanup removes alerts older than the TTL from the active set, whatever
// their status. History already written for them is left untouched.
func (m *Manager) Cleanup() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for requestID, alert := range m.active {
		if now.Sub(alert.CreatedAt) > m.cfg.AlertTTL {
			alert.Status = model.AlertExpired
			delete(m.active, requestID)
			m.logger.Info("expired alert removed",
				"alert_id", alert.AlertID,
				"request_id", requestID)
		}
	}
	m.metrics.ActiveAlerts.Set(float64(len(m.active)))
}

// Stats returns aggregate counters over the active set and history
func (m *Manager) Stats() model.AlertStats {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	urgency := make(map[model.Urgency]int)
	for _, alert := range m.active {
		urgency[alert.Urgency]++
	}

	recent := 0
	for _, entry := range m.history {
		if now.Sub(entry.Timestamp) <= 24*time.Hour {
			recent++
		}
	}

	var last *time.Time
	if m.lastProcessed != nil {
		t := *m.lastProcessed
		last = &t
	}

	return model.AlertStats{
		ActiveAlerts:        len(m.active),
		UrgencyDistribution: urgency,
		RecentAlerts:        recent,
		TotalProcessed:      len(m.history),
		LastProcessed:       last,
	}
}

// ActiveAlerts returns a snapshot copy of the active set, never live
// references
func (m *Manager) ActiveAlerts() []model.EmergencyAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.EmergencyAlert, 0, len(m.active))
	for _, alert := range m.active {
		out = append(out, m.copyMaskedLocked(alert))
	}
	return out
}

// History returns a copy of the alert history
func (m *Manager) History() []model.AlertHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.AlertHistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}

// Export is the serializable snapshot of alert manager state
type Export struct {
	ActiveAlerts map[string]model.EmergencyAlert `json:"active_alerts"`
	History      []model.AlertHistoryEntry       `json:"alert_history"`
	Statistics   model.AlertStats                `json:"statistics"`
}

// ExportState snapshots active alerts, history and statistics with donor
// contact data passed through the masking hook.
func (m *Manager) ExportState() Export {
	stats := m.Stats()

	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[string]model.EmergencyAlert, len(m.active))
	for requestID, alert := range m.active {
		active[requestID] = m.copyMaskedLocked(alert)
	}

	history := make([]model.AlertHistoryEntry, len(m.history))
	copy(history, m.history)

	return Export{
		ActiveAlerts: active,
		History:      history,
		Statistics:   stats,
	}
}

// copyMaskedLocked deep-copies an alert with matched donor PII masked.
// Caller must hold m.mu.
func (m *Manager) copyMaskedLocked(alert *model.EmergencyAlert) model.EmergencyAlert {
	cp := *alert
	if alert.MatchedDonors != nil {
		cp.MatchedDonors = make([]model.MatchCandidate, len(alert.MatchedDonors))
		for i, c := range alert.MatchedDonors {
			cp.MatchedDonors[i] = m.masker.MaskCandidate(c)
		}
	}
	return cp
}

// pruneCreatedLocked drops creation timestamps older than one hour. Caller
// must hold m.mu.
func (m *Manager) pruneCreatedLocked(now time.Time) {
	kept := m.created[:0]
	for _, t := range m.created {
		if now.Sub(t) <= time.Hour {
			kept = append(kept, t)
		}
	}
	m.created = kept
}
