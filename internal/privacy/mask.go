// Package privacy provides the PII masking hook applied before candidate
// contact data is logged or exported. Encryption of stored records is
// handled upstream; this package only masks display values.
package privacy

import (
	"strings"

	"github.com/thalanet/bloodmatch/internal/model"
)

// Masker redacts personally identifiable fields on a match candidate. The
// candidate is passed by value; implementations return a masked copy and
// never touch the original.
type Masker interface {
	MaskCandidate(c model.MatchCandidate) model.MatchCandidate
}

// Noop passes candidates through unchanged. Used when the caller has
// already applied masking or holds a disclosure agreement.
type Noop struct{}

// MaskCandidate returns the candidate unchanged
func (Noop) MaskCandidate(c model.MatchCandidate) model.MatchCandidate { return c }

// Redactor masks phone numbers and collapses names to initials
type Redactor struct{}

// MaskCandidate returns a copy with contact number and name redacted
func (Redactor) MaskCandidate(c model.MatchCandidate) model.MatchCandidate {
	c.ContactNumber = MaskPhone(c.ContactNumber)
	c.DonorName = MaskName(c.DonorName)
	return c
}

// MaskPhone keeps the last four digits of a phone number, e.g.
// "+91-9876543210" becomes "******3210".
func MaskPhone(phone string) string {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits <= 4 {
		return strings.Repeat("*", len(phone))
	}

	var b strings.Builder
	seen := 0
	for _, r := range phone {
		isDigit := r >= '0' && r <= '9'
		if isDigit {
			seen++
		}
		if isDigit && seen > digits-4 {
			b.WriteRune(r)
		} else {
			b.WriteRune('*')
		}
	}
	return b.String()
}

// MaskName reduces a full name to initials, e.g. "Priya Sharma" to "P. S."
func MaskName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, string([]rune(f)[0])+".")
	}
	return strings.Join(parts, " ")
}
