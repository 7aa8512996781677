package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete configuration for the blood matching service
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Debug         bool                `mapstructure:"debug"`
	Server        ServerConfig        `mapstructure:"server"`
	Matching      MatchingConfig      `mapstructure:"matching"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Alerting      AlertingConfig      `mapstructure:"alerting"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Intake        IntakeConfig        `mapstructure:"intake"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Registry      RegistryConfig      `mapstructure:"registry"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

// MatchingConfig contains matching service configuration
type MatchingConfig struct {
	MaxDistanceKm      float64 `mapstructure:"max_distance_km"`
	MinScore           float64 `mapstructure:"min_score"`
	EmergencyMinScore  float64 `mapstructure:"emergency_min_score"`
	BatchMinScore      float64 `mapstructure:"batch_min_score"`
	MaxMatches         int     `mapstructure:"max_matches"`
	BatchMaxMatches    int     `mapstructure:"batch_max_matches"`
	EmergencyMaxMatches int    `mapstructure:"emergency_max_matches"`
	BatchWorkers       int     `mapstructure:"batch_workers"`
	ImmediateContactKm float64 `mapstructure:"immediate_contact_km"`
	HighPriorityKm     float64 `mapstructure:"high_priority_km"`
	HighPriorityScore  float64 `mapstructure:"high_priority_score"`
	BackupScore        float64 `mapstructure:"backup_score"`
	ImmediateContactCap int    `mapstructure:"immediate_contact_cap"`
	HighPriorityCap    int     `mapstructure:"high_priority_cap"`
	BackupCap          int     `mapstructure:"backup_cap"`
}

// ScoringConfig contains the scoring weight tables. The weights are fixed
// behavioral constants; overriding them changes match ordering across the
// whole deployment.
type ScoringConfig struct {
	BaseScore         float64            `mapstructure:"base_score"`
	UrgencyWeights    map[string]float64 `mapstructure:"urgency_weights"`
	ProximityWeights  map[string]float64 `mapstructure:"proximity_weights"`
	HealthyBonus      float64            `mapstructure:"healthy_bonus"`
	ConditionPenalty  float64            `mapstructure:"condition_penalty"`
	PreferredAgeBonus float64            `mapstructure:"preferred_age_bonus"`
	SeniorPenalty     float64            `mapstructure:"senior_penalty"`
	RecoveredBonus    float64            `mapstructure:"recovered_bonus"`
	RecentPenalty     float64            `mapstructure:"recent_penalty"`
	DeferralDays      int                `mapstructure:"deferral_days"`
	RecentDays        int                `mapstructure:"recent_days"`
	DefaultAvailability float64          `mapstructure:"default_availability"`
}

// AlertingConfig contains emergency alert manager configuration
type AlertingConfig struct {
	RecencyWindow   time.Duration `mapstructure:"recency_window"`
	AlertTTL        time.Duration `mapstructure:"alert_ttl"`
	MaxAlertsPerHour int          `mapstructure:"max_alerts_per_hour"`
	Channels        []string      `mapstructure:"channels"`
}

// NotificationsConfig contains per-channel notification configuration
type NotificationsConfig struct {
	Email    EmailConfig    `mapstructure:"email"`
	SMS      SMSConfig      `mapstructure:"sms"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	Push     PushConfig     `mapstructure:"push"`
}

// EmailConfig contains email notification configuration
type EmailConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"` // sendgrid, smtp
	SendGridAPIKey  string        `mapstructure:"sendgrid_api_key"`
	SMTPHost        string        `mapstructure:"smtp_host"`
	SMTPPort        int           `mapstructure:"smtp_port"`
	SMTPUsername    string        `mapstructure:"smtp_username"`
	SMTPPassword    string        `mapstructure:"smtp_password"`
	FromAddress     string        `mapstructure:"from_address"`
	FromName        string        `mapstructure:"from_name"`
	Recipients      []string      `mapstructure:"recipients"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

// SMSConfig contains SMS notification configuration
type SMSConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TwilioSID       string        `mapstructure:"twilio_sid"`
	TwilioToken     string        `mapstructure:"twilio_token"`
	FromNumber      string        `mapstructure:"from_number"`
	Recipients      []string      `mapstructure:"recipients"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

// WhatsAppConfig contains WhatsApp notification configuration. Delivery goes
// through the Twilio WhatsApp Business API using whatsapp: addressing.
type WhatsAppConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TwilioSID       string        `mapstructure:"twilio_sid"`
	TwilioToken     string        `mapstructure:"twilio_token"`
	FromNumber      string        `mapstructure:"from_number"`
	Recipients      []string      `mapstructure:"recipients"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

// PushConfig contains push notification configuration
type PushConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	GatewayURL      string            `mapstructure:"gateway_url"`
	Headers         map[string]string `mapstructure:"headers"`
	Timeout         time.Duration     `mapstructure:"timeout"`
	RateLimitPerMin int               `mapstructure:"rate_limit_per_min"`
}

// IntakeConfig contains Kafka request intake configuration
type IntakeConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	Topic   string   `mapstructure:"topic"`
}

// SchedulerConfig contains periodic task configuration
type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ProcessSchedule string `mapstructure:"process_schedule"`
	CleanupSchedule string `mapstructure:"cleanup_schedule"`
	StatsSchedule   string `mapstructure:"stats_schedule"`
}

// RegistryConfig contains the external blood bank registry client configuration
type RegistryConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/bloodmatch")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("BLOODMATCH")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("debug", false)

	// Server
	viper.SetDefault("server.http_port", 8090)

	// Matching
	viper.SetDefault("matching.max_distance_km", 100.0)
	viper.SetDefault("matching.min_score", 50.0)
	viper.SetDefault("matching.emergency_min_score", 30.0)
	viper.SetDefault("matching.batch_min_score", 40.0)
	viper.SetDefault("matching.max_matches", 10)
	viper.SetDefault("matching.batch_max_matches", 5)
	viper.SetDefault("matching.emergency_max_matches", 20)
	viper.SetDefault("matching.batch_workers", 8)
	viper.SetDefault("matching.immediate_contact_km", 25.0)
	viper.SetDefault("matching.high_priority_km", 50.0)
	viper.SetDefault("matching.high_priority_score", 150.0)
	viper.SetDefault("matching.backup_score", 100.0)
	viper.SetDefault("matching.immediate_contact_cap", 3)
	viper.SetDefault("matching.high_priority_cap", 5)
	viper.SetDefault("matching.backup_cap", 10)

	// Scoring
	viper.SetDefault("scoring.base_score", 100.0)
	viper.SetDefault("scoring.urgency_weights", map[string]float64{
		"LOW": 1.0, "MEDIUM": 1.5, "HIGH": 2.0, "CRITICAL": 3.0,
	})
	viper.SetDefault("scoring.proximity_weights", map[string]float64{
		"same_city": 1.0, "nearby_city": 0.8, "far_city": 0.6,
	})
	viper.SetDefault("scoring.healthy_bonus", 1.2)
	viper.SetDefault("scoring.condition_penalty", 0.8)
	viper.SetDefault("scoring.preferred_age_bonus", 1.1)
	viper.SetDefault("scoring.senior_penalty", 0.9)
	viper.SetDefault("scoring.recovered_bonus", 1.2)
	viper.SetDefault("scoring.recent_penalty", 0.3)
	viper.SetDefault("scoring.deferral_days", 56)
	viper.SetDefault("scoring.recent_days", 30)
	viper.SetDefault("scoring.default_availability", 0.5)

	// Alerting
	viper.SetDefault("alerting.recency_window", "1h")
	viper.SetDefault("alerting.alert_ttl", "24h")
	viper.SetDefault("alerting.max_alerts_per_hour", 50)
	viper.SetDefault("alerting.channels", []string{"email", "sms"})

	// Notifications
	viper.SetDefault("notifications.email.enabled", false)
	viper.SetDefault("notifications.email.provider", "sendgrid")
	viper.SetDefault("notifications.email.timeout", "30s")
	viper.SetDefault("notifications.email.rate_limit_per_min", 60)

	viper.SetDefault("notifications.sms.enabled", false)
	viper.SetDefault("notifications.sms.timeout", "30s")
	viper.SetDefault("notifications.sms.rate_limit_per_min", 10)

	viper.SetDefault("notifications.whatsapp.enabled", false)
	viper.SetDefault("notifications.whatsapp.timeout", "30s")
	viper.SetDefault("notifications.whatsapp.rate_limit_per_min", 10)

	viper.SetDefault("notifications.push.enabled", false)
	viper.SetDefault("notifications.push.timeout", "15s")
	viper.SetDefault("notifications.push.rate_limit_per_min", 120)

	// Intake
	viper.SetDefault("intake.enabled", false)
	viper.SetDefault("intake.brokers", []string{"localhost:9092"})
	viper.SetDefault("intake.group_id", "bloodmatch")
	viper.SetDefault("intake.topic", "emergency-requests")

	// Scheduler
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.process_schedule", "@every 30s")
	viper.SetDefault("scheduler.cleanup_schedule", "@every 1h")
	viper.SetDefault("scheduler.stats_schedule", "@every 5m")

	// Registry
	viper.SetDefault("registry.enabled", false)
	viper.SetDefault("registry.base_url", "https://eraktkosh.mohfw.gov.in/BLDAHIMS/bloodbank")
	viper.SetDefault("registry.timeout", "20s")
}
