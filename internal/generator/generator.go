// Package generator produces synthetic donor and request pools for
// development seeding and tests. The distributions roughly follow the
// Indian donor population the platform targets.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/thalanet/bloodmatch/internal/model"
)

type city struct {
	name   string
	lat    float64
	lon    float64
	weight float64
}

var cities = []city{
	{"Mumbai", 19.0760, 72.8777, 0.25},
	{"Delhi", 28.7041, 77.1025, 0.22},
	{"Bangalore", 12.9716, 77.5946, 0.18},
	{"Chennai", 13.0827, 80.2707, 0.15},
	{"Hyderabad", 17.3850, 78.4867, 0.12},
	{"Kolkata", 22.5726, 88.3639, 0.08},
}

var bloodTypes = []struct {
	t model.BloodType
	w float64
}{
	{model.OPos, 0.38}, {model.BPos, 0.32}, {model.APos, 0.22}, {model.ABPos, 0.08},
	{model.ONeg, 0.07}, {model.BNeg, 0.06}, {model.ANeg, 0.04}, {model.ABNeg, 0.01},
}

var healthConditions = []string{
	"None", "None", "None", "None", "None", "None",
	"Diabetes", "Hypertension", "Anemia", "HIV/AIDS", "Hepatitis",
}

var urgencies = []model.Urgency{
	model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh, model.UrgencyCritical,
}

// Generator produces synthetic records from a seeded random source so test
// pools are reproducible.
type Generator struct {
	rng *rand.Rand
	now time.Time
}

// New creates a generator with the given seed
func New(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now(),
	}
}

// Donors generates count synthetic donor records
func (g *Generator) Donors(count int) []model.Donor {
	donors := make([]model.Donor, 0, count)
	for i := 0; i < count; i++ {
		c := g.pickCity()
		status := model.Available
		if g.rng.Float64() < 0.2 {
			status = model.Unavailable
		}

		daysSince := g.rng.Intn(365)
		lastDonation := g.now.AddDate(0, 0, -daysSince).Format(model.DateLayout)
		if g.rng.Float64() < 0.15 {
			lastDonation = ""
		}

		donors = append(donors, model.Donor{
			ID:                  fmt.Sprintf("DONOR_%06d", i+1),
			Name:                fmt.Sprintf("Donor %d", i+1),
			BloodType:           g.pickBloodType(),
			Age:                 18 + g.rng.Intn(52),
			Gender:              pick(g.rng, []string{"Male", "Female"}),
			Location:            c.name,
			Latitude:            c.lat + g.jitter(),
			Longitude:           c.lon + g.jitter(),
			HealthCondition:     pick(g.rng, healthConditions),
			AvailabilityStatus:  status,
			LastDonationDate:    lastDonation,
			ContactNumber:       fmt.Sprintf("+91-9%09d", g.rng.Intn(1_000_000_000)),
			ResponsivenessScore: g.rng.Float64(),
		})
	}
	return donors
}

// Patients generates count synthetic patient requests
func (g *Generator) Patients(count int) []model.PatientRequest {
	patients := make([]model.PatientRequest, 0, count)
	for i := 0; i < count; i++ {
		c := g.pickCity()
		patients = append(patients, model.PatientRequest{
			PatientID:     fmt.Sprintf("PATIENT_%06d", i+1),
			Name:          fmt.Sprintf("Patient %d", i+1),
			BloodType:     g.pickBloodType(),
			Urgency:       pick(g.rng, urgencies),
			Location:      c.name,
			Latitude:      c.lat + g.jitter(),
			Longitude:     c.lon + g.jitter(),
			UnitsRequired: 1 + g.rng.Intn(4),
			HospitalName:  fmt.Sprintf("%s General Hospital", c.name),
			ContactPerson: fmt.Sprintf("Attendant %d", i+1),
			ContactNumber: fmt.Sprintf("+91-9%09d", g.rng.Intn(1_000_000_000)),
		})
	}
	return patients
}

// EmergencyRequests generates count synthetic emergency requests with
// timestamps spread over the past maxAge
func (g *Generator) EmergencyRequests(count int, maxAge time.Duration) []model.EmergencyRequest {
	requests := make([]model.EmergencyRequest, 0, count)
	for i := 0; i < count; i++ {
		c := g.pickCity()
		age := time.Duration(g.rng.Int63n(int64(maxAge)))
		requests = append(requests, model.EmergencyRequest{
			RequestID:     fmt.Sprintf("REQ_%06d", i+1),
			BloodType:     g.pickBloodType(),
			Urgency:       pick(g.rng, urgencies),
			Location:      c.name,
			Latitude:      c.lat + g.jitter(),
			Longitude:     c.lon + g.jitter(),
			UnitsRequired: 1 + g.rng.Intn(6),
			HospitalName:  fmt.Sprintf("%s General Hospital", c.name),
			ContactPerson: fmt.Sprintf("Coordinator %d", i+1),
			ContactNumber: fmt.Sprintf("+91-9%09d", g.rng.Intn(1_000_000_000)),
			Timestamp:     g.now.Add(-age),
		})
	}
	return requests
}

func (g *Generator) pickCity() city {
	r := g.rng.Float64()
	acc := 0.0
	for _, c := range cities {
		acc += c.weight
		if r <= acc {
			return c
		}
	}
	return cities[len(cities)-1]
}

func (g *Generator) pickBloodType() model.BloodType {
	r := g.rng.Float64()
	acc := 0.0
	for _, bt := range bloodTypes {
		acc += bt.w
		if r <= acc {
			return bt.t
		}
	}
	return bloodTypes[0].t
}

// jitter spreads records around a city center by up to ~5 km
func (g *Generator) jitter() float64 {
	return (g.rng.Float64() - 0.5) * 0.1
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}
