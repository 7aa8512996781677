// Package notification fans alert messages out to the configured channels.
// Channels are bulkheads: one channel failing or timing out never blocks or
// fails its siblings.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/metrics"
	"github.com/thalanet/bloodmatch/internal/model"
	"github.com/thalanet/bloodmatch/internal/privacy"
)

// Manager owns the configured channels and dispatches one notification task
// per channel for each alert.
type Manager struct {
	logger       *slog.Logger
	metrics      *metrics.Collector
	masker       privacy.Masker
	channels     []Channel
	timeouts     map[string]time.Duration
	rateLimiters map[string]*rate.Limiter
}

// DispatchResult summarizes one fan-out: which channels were attempted,
// which succeeded and the per-channel errors of the rest.
type DispatchResult struct {
	Attempted int
	Succeeded int
	Errors    map[string]error
}

// NewManager builds the manager from the channel configuration. Only
// channels named in enabled and switched on in their own config section are
// dispatched to.
func NewManager(cfg config.NotificationsConfig, enabled []string, masker privacy.Masker, collector *metrics.Collector, logger *slog.Logger) *Manager {
	m := &Manager{
		logger:       logger,
		metrics:      collector,
		masker:       masker,
		timeouts:     make(map[string]time.Duration),
		rateLimiters: make(map[string]*rate.Limiter),
	}
	if m.masker == nil {
		m.masker = privacy.Noop{}
	}

	for _, name := range enabled {
		switch name {
		case "email":
			if cfg.Email.Enabled {
				m.register(NewEmailChannel(cfg.Email, logger), cfg.Email.Timeout, cfg.Email.RateLimitPerMin)
			}
		case "sms":
			if cfg.SMS.Enabled {
				m.register(NewSMSChannel(cfg.SMS, logger), cfg.SMS.Timeout, cfg.SMS.RateLimitPerMin)
			}
		case "whatsapp":
			if cfg.WhatsApp.Enabled {
				m.register(NewWhatsAppChannel(cfg.WhatsApp, logger), cfg.WhatsApp.Timeout, cfg.WhatsApp.RateLimitPerMin)
			}
		case "push":
			if cfg.Push.Enabled {
				m.register(NewPushChannel(cfg.Push, logger), cfg.Push.Timeout, cfg.Push.RateLimitPerMin)
			}
		default:
			logger.Warn("unknown notification channel in config, ignoring", "channel", name)
		}
	}

	return m
}

// NewManagerWithChannels builds a manager over explicit channels. Used by
// tests and callers that bring their own sinks.
func NewManagerWithChannels(channels []Channel, timeout time.Duration, masker privacy.Masker, collector *metrics.Collector, logger *slog.Logger) *Manager {
	m := &Manager{
		logger:       logger,
		metrics:      collector,
		masker:       masker,
		timeouts:     make(map[string]time.Duration),
		rateLimiters: make(map[string]*rate.Limiter),
	}
	if m.masker == nil {
		m.masker = privacy.Noop{}
	}
	for _, ch := range channels {
		m.register(ch, timeout, 0)
	}
	return m
}

func (m *Manager) register(ch Channel, timeout time.Duration, ratePerMin int) {
	m.channels = append(m.channels, ch)
	if timeout > 0 {
		m.timeouts[ch.Name()] = timeout
	}
	if ratePerMin > 0 {
		m.rateLimiters[ch.Name()] = rate.NewLimiter(rate.Limit(ratePerMin)/60, ratePerMin)
	}
}

// ChannelCount returns how many channels are configured for dispatch
func (m *Manager) ChannelCount() int { return len(m.channels) }

// Dispatch renders the alert message and sends it through every configured
// channel concurrently, waiting for all of them to finish. A channel that
// fails or exceeds its timeout is recorded in the result and does not abort
// the others. There is no retry here; unresolved alerts are the caller's
// retry signal.
func (m *Manager) Dispatch(ctx context.Context, alert *model.EmergencyAlert, donors []model.MatchCandidate) (*DispatchResult, error) {
	if len(m.channels) == 0 {
		return nil, fmt.Errorf("no notification channels configured")
	}

	message, err := RenderAlertMessage(alert, donors)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{
		Attempted: len(m.channels),
		Errors:    make(map[string]error),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, ch := range m.channels {
		ch := ch
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := m.sendOne(ctx, ch, message, alert)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[ch.Name()] = err
				m.metrics.NotificationsFailed.WithLabelValues(ch.Name()).Inc()
				m.logger.Error("notification channel failed",
					"alert_id", alert.AlertID,
					"channel", ch.Name(),
					"error", err)
				return
			}
			result.Succeeded++
			m.metrics.NotificationsSent.WithLabelValues(ch.Name()).Inc()
		}()
	}
	wg.Wait()

	m.logAlertSummary(alert, donors, result)
	return result, nil
}

func (m *Manager) sendOne(ctx context.Context, ch Channel, message string, alert *model.EmergencyAlert) error {
	if limiter, ok := m.rateLimiters[ch.Name()]; ok && !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded for channel %s", ch.Name())
	}

	if timeout, ok := m.timeouts[ch.Name()]; ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- ch.Send(ctx, message, alert) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Timeout counts as a failure for this channel only.
		return fmt.Errorf("channel %s timed out: %w", ch.Name(), ctx.Err())
	}
}

// logAlertSummary logs the dispatch outcome with masked donor contact data
func (m *Manager) logAlertSummary(alert *model.EmergencyAlert, donors []model.MatchCandidate, result *DispatchResult) {
	topContact := ""
	if len(donors) > 0 {
		masked := m.masker.MaskCandidate(donors[0])
		topContact = fmt.Sprintf("%s (%s)", masked.DonorName, masked.ContactNumber)
	}

	m.logger.Info("notification dispatch completed",
		"alert_id", alert.AlertID,
		"channels_attempted", result.Attempted,
		"channels_succeeded", result.Succeeded,
		"matched_donors", len(donors),
		"top_match", topContact)
}
