package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/model"
)

// Channel is a single notification sink. Each failure is contained to the
// channel and never aborts sibling dispatches.
type Channel interface {
	Name() string
	Send(ctx context.Context, message string, alert *model.EmergencyAlert) error
}

// EmailChannel delivers alert messages via SendGrid or plain SMTP
type EmailChannel struct {
	cfg    config.EmailConfig
	logger *slog.Logger
}

// NewEmailChannel creates the email channel
func NewEmailChannel(cfg config.EmailConfig, logger *slog.Logger) *EmailChannel {
	return &EmailChannel{cfg: cfg, logger: logger}
}

// Name returns the channel identifier
func (e *EmailChannel) Name() string { return "email" }

// Send delivers the message to every configured recipient
func (e *EmailChannel) Send(ctx context.Context, message string, alert *model.EmergencyAlert) error {
	if len(e.cfg.Recipients) == 0 {
		return fmt.Errorf("email channel has no recipients configured")
	}

	switch e.cfg.Provider {
	case "sendgrid":
		return e.sendViaSendGrid(ctx, message, alert)
	case "smtp":
		return e.sendViaSMTP(message, alert)
	default:
		return fmt.Errorf("unsupported email provider: %s", e.cfg.Provider)
	}
}

func (e *EmailChannel) sendViaSendGrid(ctx context.Context, message string, alert *model.EmergencyAlert) error {
	from := mail.NewEmail(e.cfg.FromName, e.cfg.FromAddress)
	subject := Subject(alert)

	client := sendgrid.NewSendClient(e.cfg.SendGridAPIKey)
	for _, recipient := range e.cfg.Recipients {
		to := mail.NewEmail("", recipient)
		msg := mail.NewSingleEmail(from, subject, to, message, "")

		response, err := client.SendWithContext(ctx, msg)
		if err != nil {
			return fmt.Errorf("failed to send email via SendGrid: %w", err)
		}
		if response.StatusCode >= 400 {
			return fmt.Errorf("SendGrid returned status %d", response.StatusCode)
		}
	}

	e.logger.Debug("email notifications sent",
		"alert_id", alert.AlertID,
		"recipients", len(e.cfg.Recipients))
	return nil
}

func (e *EmailChannel) sendViaSMTP(message string, alert *model.EmergencyAlert) error {
	msg := fmt.Sprintf("From: %s <%s>\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.cfg.FromName, e.cfg.FromAddress, Subject(alert), message)

	auth := smtp.PlainAuth("", e.cfg.SMTPUsername, e.cfg.SMTPPassword, e.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPHost, e.cfg.SMTPPort)

	if err := smtp.SendMail(addr, auth, e.cfg.FromAddress, e.cfg.Recipients, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return nil
}

// SMSChannel delivers alert messages via the Twilio messaging API
type SMSChannel struct {
	cfg    config.SMSConfig
	logger *slog.Logger
	client *twilio.RestClient
}

// NewSMSChannel creates the SMS channel
func NewSMSChannel(cfg config.SMSConfig, logger *slog.Logger) *SMSChannel {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioSID,
		Password: cfg.TwilioToken,
	})
	return &SMSChannel{cfg: cfg, logger: logger, client: client}
}

// Name returns the channel identifier
func (s *SMSChannel) Name() string { return "sms" }

// Send delivers the message to every configured recipient number
func (s *SMSChannel) Send(ctx context.Context, message string, alert *model.EmergencyAlert) error {
	if len(s.cfg.Recipients) == 0 {
		return fmt.Errorf("sms channel has no recipients configured")
	}

	for _, recipient := range s.cfg.Recipients {
		params := &twilioapi.CreateMessageParams{}
		params.SetTo(recipient)
		params.SetFrom(s.cfg.FromNumber)
		params.SetBody(message)

		resp, err := s.client.Api.CreateMessage(params)
		if err != nil {
			return fmt.Errorf("failed to send SMS via Twilio: %w", err)
		}
		if resp.Sid != nil {
			s.logger.Debug("sms sent", "alert_id", alert.AlertID, "sid", *resp.Sid)
		}
	}
	return nil
}

// WhatsAppChannel delivers alert messages via the Twilio WhatsApp Business
// API. It is the SMS path with whatsapp: addressing.
type WhatsAppChannel struct {
	cfg    config.WhatsAppConfig
	logger *slog.Logger
	client *twilio.RestClient
}

// NewWhatsAppChannel creates the WhatsApp channel
func NewWhatsAppChannel(cfg config.WhatsAppConfig, logger *slog.Logger) *WhatsAppChannel {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioSID,
		Password: cfg.TwilioToken,
	})
	return &WhatsAppChannel{cfg: cfg, logger: logger, client: client}
}

// Name returns the channel identifier
func (w *WhatsAppChannel) Name() string { return "whatsapp" }

// Send delivers the message to every configured recipient number
func (w *WhatsAppChannel) Send(ctx context.Context, message string, alert *model.EmergencyAlert) error {
	if len(w.cfg.Recipients) == 0 {
		return fmt.Errorf("whatsapp channel has no recipients configured")
	}

	for _, recipient := range w.cfg.Recipients {
		params := &twilioapi.CreateMessageParams{}
		params.SetTo("whatsapp:" + recipient)
		params.SetFrom("whatsapp:" + w.cfg.FromNumber)
		params.SetBody(message)

		if _, err := w.client.Api.CreateMessage(params); err != nil {
			return fmt.Errorf("failed to send WhatsApp message via Twilio: %w", err)
		}
	}

	w.logger.Debug("whatsapp notifications sent",
		"alert_id", alert.AlertID,
		"recipients", len(w.cfg.Recipients))
	return nil
}

// PushChannel delivers alert payloads to a push notification gateway over
// HTTP
type PushChannel struct {
	cfg    config.PushConfig
	logger *slog.Logger
	client *http.Client
}

// NewPushChannel creates the push channel
func NewPushChannel(cfg config.PushConfig, logger *slog.Logger) *PushChannel {
	return &PushChannel{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the channel identifier
func (p *PushChannel) Name() string { return "push" }

// pushPayload is the gateway wire format
type pushPayload struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AlertID   string    `json:"alert_id"`
	BloodType string    `json:"blood_type"`
	Urgency   string    `json:"urgency"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// Send posts the alert payload to the configured gateway
func (p *PushChannel) Send(ctx context.Context, message string, alert *model.EmergencyAlert) error {
	payload := pushPayload{
		Title:     Subject(alert),
		Body:      message,
		AlertID:   alert.AlertID,
		BloodType: string(alert.BloodType),
		Urgency:   string(alert.Urgency),
		Location:  alert.Location,
		Timestamp: alert.Timestamp,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	p.logger.Debug("push notification sent", "alert_id", alert.AlertID)
	return nil
}
