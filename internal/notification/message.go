package notification

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/thalanet/bloodmatch/internal/model"
)

// maxDonorsInMessage caps how many matched donors are listed in an alert
// message body.
const maxDonorsInMessage = 5

// alertMessageTemplate renders the donor-facing emergency message. The field
// set (blood type, urgency, location, hospital, units, contact, top
// candidates with distance/score/contact) is the message content contract;
// transport formatting beyond plain text is up to each channel.
var alertMessageTemplate = template.Must(template.New("alert").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`🚨 EMERGENCY BLOOD REQUEST 🚨

Blood Type: {{.Alert.BloodType}}
Urgency: {{.Alert.Urgency}}
Location: {{.Alert.Location}}
Hospital: {{.Alert.HospitalName}}
Units Required: {{.Alert.UnitsRequired}}
Contact: {{.Alert.ContactPerson}} - {{.Alert.ContactNumber}}

⏰ URGENT: Required within {{.Timeframe}}

🔍 MATCHING DONORS FOUND: {{.TotalDonors}}

Top Matches:
{{range $i, $d := .Donors}}{{inc $i}}. {{$d.DonorName}} - {{$d.DistanceKm}} km away
   Score: {{$d.Score}} | Contact: {{$d.ContactNumber}}

{{end}}📱 Alert ID: {{.Alert.AlertID}}
🕐 Generated: {{.Alert.Timestamp.Format "2006-01-02 15:04:05"}}

Please contact the hospital immediately if you can donate!`))

type messageData struct {
	Alert       *model.EmergencyAlert
	Donors      []model.MatchCandidate
	TotalDonors int
	Timeframe   string
}

// RenderAlertMessage renders the notification body for an alert and its
// matched donors
func RenderAlertMessage(alert *model.EmergencyAlert, donors []model.MatchCandidate) (string, error) {
	top := donors
	if len(top) > maxDonorsInMessage {
		top = top[:maxDonorsInMessage]
	}

	var buf bytes.Buffer
	err := alertMessageTemplate.Execute(&buf, messageData{
		Alert:       alert,
		Donors:      top,
		TotalDonors: len(donors),
		Timeframe:   alert.Urgency.Timeframe(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render alert message: %w", err)
	}
	return buf.String(), nil
}

// Subject returns the short subject line used by email and push channels
func Subject(alert *model.EmergencyAlert) string {
	return fmt.Sprintf("🚨 %s blood needed urgently - %s", alert.BloodType, alert.Location)
}
