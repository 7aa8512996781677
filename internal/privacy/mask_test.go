package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thalanet/bloodmatch/internal/model"
)

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		expected string
	}{
		{"Indian mobile with prefix", "+91-9876543210", "**********3210"},
		{"Plain digits", "9876543210", "******3210"},
		{"Exactly four digits", "1234", "****"},
		{"Fewer than four digits", "12", "**"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskPhone(tt.phone))
		})
	}
}

func TestMaskName(t *testing.T) {
	assert.Equal(t, "P. S.", MaskName("Priya Sharma"))
	assert.Equal(t, "A.", MaskName("Arjun"))
	assert.Equal(t, "A. B. C.", MaskName("Amit Bala Chandra"))
	assert.Equal(t, "", MaskName(""))
}

func TestRedactor(t *testing.T) {
	c := model.MatchCandidate{
		DonorID:       "D1",
		DonorName:     "Priya Sharma",
		ContactNumber: "+91-9876543210",
		Score:         250,
	}

	masked := Redactor{}.MaskCandidate(c)
	assert.Equal(t, "P. S.", masked.DonorName)
	assert.Equal(t, "**********3210", masked.ContactNumber)
	assert.Equal(t, c.Score, masked.Score)

	// Original untouched
	assert.Equal(t, "Priya Sharma", c.DonorName)
	assert.Equal(t, "+91-9876543210", c.ContactNumber)
}

func TestNoop(t *testing.T) {
	c := model.MatchCandidate{DonorName: "Priya Sharma", ContactNumber: "+91-9876543210"}
	assert.Equal(t, c, Noop{}.MaskCandidate(c))
}
