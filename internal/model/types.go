package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format for donation dates in donor records.
const DateLayout = "2006-01-02"

// BloodType is an ABO/Rh blood group label, e.g. "O-" or "AB+".
type BloodType string

// Known blood types
const (
	ONeg  BloodType = "O-"
	OPos  BloodType = "O+"
	ANeg  BloodType = "A-"
	APos  BloodType = "A+"
	BNeg  BloodType = "B-"
	BPos  BloodType = "B+"
	ABNeg BloodType = "AB-"
	ABPos BloodType = "AB+"
)

// Urgency is the urgency level of a patient or emergency request
type Urgency string

// Urgency levels, ordered from routine to life-threatening
const (
	UrgencyLow      Urgency = "LOW"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

// Valid reports whether the urgency is one of the defined levels
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Timeframe returns the human-readable window within which the request
// should be fulfilled
func (u Urgency) Timeframe() string {
	switch u {
	case UrgencyLow:
		return "7-30 days"
	case UrgencyMedium:
		return "3-7 days"
	case UrgencyHigh:
		return "1-3 days"
	case UrgencyCritical:
		return "1-24 hours"
	}
	return "Unknown"
}

// AvailabilityStatus is a donor's self-reported availability
type AvailabilityStatus string

// Availability states
const (
	Available   AvailabilityStatus = "Available"
	Unavailable AvailabilityStatus = "Unavailable"
)

// Donor is a read-only snapshot of a registered donor for one matching pass.
// The matching core never mutates donor records.
type Donor struct {
	ID                 string             `json:"donor_id" validate:"required"`
	Name               string             `json:"name" validate:"required"`
	BloodType          BloodType          `json:"blood_type" validate:"required"`
	Age                int                `json:"age" validate:"gte=0,lte=120"`
	Gender             string             `json:"gender"`
	Location           string             `json:"location"`
	Latitude           float64            `json:"latitude"`
	Longitude          float64            `json:"longitude"`
	HealthCondition    string             `json:"health_conditions"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status"`
	// LastDonationDate is kept in its wire form (DateLayout); empty or
	// unparseable dates leave the recency factor untouched.
	LastDonationDate      string   `json:"last_donation_date"`
	ContactNumber         string   `json:"contact_number"`
	ResponsivenessScore   float64  `json:"responsiveness_score" validate:"gte=0,lte=1"`
	PredictedAvailability *float64 `json:"predicted_availability_score,omitempty"`
}

// DaysSinceLastDonation returns the whole days since the donor's last
// donation at the given reference time. ok is false when the date is absent
// or unparseable.
func (d *Donor) DaysSinceLastDonation(now time.Time) (int, bool) {
	if d.LastDonationDate == "" {
		return 0, false
	}
	t, err := time.Parse(DateLayout, d.LastDonationDate)
	if err != nil {
		return 0, false
	}
	return int(now.Sub(t).Hours() / 24), true
}

// PatientRequest is an immutable blood request on behalf of a patient
type PatientRequest struct {
	PatientID     string    `json:"patient_id" validate:"required"`
	Name          string    `json:"name"`
	BloodType     BloodType `json:"blood_type_required" validate:"required"`
	Urgency       Urgency   `json:"urgency_level" validate:"required"`
	Location      string    `json:"location"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	UnitsRequired int       `json:"units_required"`
	HospitalName  string    `json:"hospital_name"`
	ContactPerson string    `json:"contact_person"`
	ContactNumber string    `json:"contact_number"`
}

// EmergencyRequest is an urgent blood request as received from an intake
// source. It is never mutated by the core.
type EmergencyRequest struct {
	RequestID     string    `json:"request_id" validate:"required"`
	BloodType     BloodType `json:"blood_type_needed" validate:"required"`
	Urgency       Urgency   `json:"urgency_level" validate:"required"`
	Location      string    `json:"location"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	UnitsRequired int       `json:"units_required"`
	HospitalName  string    `json:"hospital_name"`
	ContactPerson string    `json:"contact_person"`
	ContactNumber string    `json:"contact_number"`
	Timestamp     time.Time `json:"timestamp"`
}

// Patient converts the request into the patient shape used by the matcher
func (r *EmergencyRequest) Patient() PatientRequest {
	return PatientRequest{
		PatientID:     r.RequestID,
		BloodType:     r.BloodType,
		Urgency:       r.Urgency,
		Location:      r.Location,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		UnitsRequired: r.UnitsRequired,
		HospitalName:  r.HospitalName,
		ContactPerson: r.ContactPerson,
		ContactNumber: r.ContactNumber,
	}
}

// MatchCandidate is a scored donor for one matching call. Candidates always
// satisfy blood type compatibility and the max-distance bound.
type MatchCandidate struct {
	DonorID               string    `json:"donor_id"`
	DonorName             string    `json:"donor_name"`
	BloodType             BloodType `json:"blood_type"`
	Age                   int       `json:"age"`
	Gender                string    `json:"gender"`
	Location              string    `json:"location"`
	DistanceKm            float64   `json:"distance_km"`
	Score                 float64   `json:"matching_score"`
	PredictedAvailability float64   `json:"predicted_availability"`
	ResponsivenessScore   float64   `json:"responsiveness_score"`
	LastDonationDate      string    `json:"last_donation_date,omitempty"`
	HealthCondition       string    `json:"health_conditions,omitempty"`
	ContactNumber         string    `json:"contact_number,omitempty"`
	Urgency               Urgency   `json:"urgency_level"`
}

// TriageResult partitions emergency matches into contact tiers. The tiers
// are non-exclusive views over the same ranked list.
type TriageResult struct {
	ImmediateContact []MatchCandidate `json:"immediate_contact"`
	HighPriority     []MatchCandidate `json:"high_priority"`
	BackupOptions    []MatchCandidate `json:"backup_options"`
	TotalMatches     int              `json:"total_matches"`
	BloodType        BloodType        `json:"blood_type_needed"`
	Urgency          Urgency          `json:"urgency_level"`
	Location         string           `json:"location"`
	Timestamp        time.Time        `json:"timestamp"`
}

// PatientMatches is the per-patient slice of a batch matching run
type PatientMatches struct {
	PatientID  string           `json:"patient_id"`
	Name       string           `json:"name"`
	BloodType  BloodType        `json:"blood_type_required"`
	Urgency    Urgency          `json:"urgency_level"`
	Location   string           `json:"location"`
	Matches    []MatchCandidate `json:"matches"`
	MatchCount int              `json:"match_count"`
}

// BatchResult aggregates a batch matching run
type BatchResult struct {
	Patients     map[string]PatientMatches `json:"patients"`
	TotalMatches int                       `json:"total_matches"`
}

// AlertStatus is the lifecycle state of an emergency alert
type AlertStatus string

// Alert lifecycle states
const (
	AlertActive   AlertStatus = "active"
	AlertNotified AlertStatus = "notified"
	AlertError    AlertStatus = "error"
	AlertExpired  AlertStatus = "expired"
)

// EmergencyAlert tracks one emergency request from detection through
// notification to expiry. Owned exclusively by the alert manager.
type EmergencyAlert struct {
	AlertID          string           `json:"alert_id"`
	RequestID        string           `json:"request_id"`
	BloodType        BloodType        `json:"blood_type_needed"`
	Urgency          Urgency          `json:"urgency_level"`
	Location         string           `json:"location"`
	Latitude         float64          `json:"latitude"`
	Longitude        float64          `json:"longitude"`
	UnitsRequired    int              `json:"units_required"`
	HospitalName     string           `json:"hospital_name"`
	ContactPerson    string           `json:"contact_person"`
	ContactNumber    string           `json:"contact_number"`
	Timestamp        time.Time        `json:"timestamp"`
	CreatedAt        time.Time        `json:"created_at"`
	Status           AlertStatus      `json:"status"`
	MatchedDonors    []MatchCandidate `json:"matched_donors,omitempty"`
	NotificationSent bool             `json:"notification_sent"`
}

// AlertHistoryEntry is an immutable summary appended when an alert finishes
// a processing pass
type AlertHistoryEntry struct {
	AlertID           string      `json:"alert_id"`
	Timestamp         time.Time   `json:"timestamp"`
	Status            AlertStatus `json:"status"`
	MatchedDonorCount int         `json:"matched_donors_count"`
}

// AlertStats aggregates alert manager state for monitoring
type AlertStats struct {
	ActiveAlerts        int             `json:"active_alerts_count"`
	UrgencyDistribution map[Urgency]int `json:"urgency_distribution"`
	RecentAlerts        int             `json:"recent_alerts_count"`
	TotalProcessed      int             `json:"total_alerts_processed"`
	LastProcessed       *time.Time      `json:"last_processed,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateDonor checks that a donor record carries the fields matching
// depends on. Invalid records are skipped from the pool, never fatal.
func ValidateDonor(d *Donor) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid donor record: %w", err)
	}
	return nil
}

// ValidatePatient checks the required fields of a patient request
func ValidatePatient(p *PatientRequest) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid patient request: %w", err)
	}
	if !p.Urgency.Valid() {
		return fmt.Errorf("invalid patient request: unknown urgency %q", p.Urgency)
	}
	return nil
}

// ValidateRequest checks the required fields of an emergency request
func ValidateRequest(r *EmergencyRequest) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid emergency request: %w", err)
	}
	if !r.Urgency.Valid() {
		return fmt.Errorf("invalid emergency request: unknown urgency %q", r.Urgency)
	}
	return nil
}
