// Package compat implements the transfusion compatibility matrix and donor
// eligibility filtering.
package compat

import (
	"github.com/thalanet/bloodmatch/internal/model"
)

// matrix maps a patient's required blood type to the set of donor types safe
// to transfuse into that patient. O- is the universal donor, AB+ the
// universal recipient, Rh-negative donors cover their Rh-positive ABO group.
var matrix = map[model.BloodType][]model.BloodType{
	model.ONeg:  {model.ONeg},
	model.OPos:  {model.OPos, model.ONeg},
	model.ANeg:  {model.ANeg, model.ONeg},
	model.APos:  {model.APos, model.ANeg, model.OPos, model.ONeg},
	model.BNeg:  {model.BNeg, model.ONeg},
	model.BPos:  {model.BPos, model.BNeg, model.OPos, model.ONeg},
	model.ABNeg: {model.ABNeg, model.ANeg, model.BNeg, model.ONeg},
	model.ABPos: {model.ABPos, model.ABNeg, model.APos, model.ANeg, model.BPos, model.BNeg, model.OPos, model.ONeg},
}

// disqualifyingConditions are transmissible diseases that hard-exclude a
// donor from the pool. Other conditions only lower the score.
var disqualifyingConditions = map[string]struct{}{
	"HIV/AIDS":  {},
	"Hepatitis": {},
}

// IsCompatible reports whether a donor's blood type is safe for a patient
// requiring the given type. Unknown patient types have an empty compatible
// set and never match.
func IsCompatible(patientType, donorType model.BloodType) bool {
	for _, t := range matrix[patientType] {
		if t == donorType {
			return true
		}
	}
	return false
}

// CompatibleDonorTypes returns the donor types acceptable for a required
// type, in transfusion-preference order. The returned slice is a copy.
func CompatibleDonorTypes(patientType model.BloodType) []model.BloodType {
	src := matrix[patientType]
	out := make([]model.BloodType, len(src))
	copy(out, src)
	return out
}

// KnownType reports whether the blood type participates in the matrix
func KnownType(t model.BloodType) bool {
	_, ok := matrix[t]
	return ok
}

// Eligible reports whether a donor may appear in a candidate pool at all.
// Donors who donated recently remain eligible here; the deferral window is
// applied as a scoring penalty, not an exclusion.
func Eligible(d *model.Donor) bool {
	if d.AvailabilityStatus != model.Available {
		return false
	}
	if _, bad := disqualifyingConditions[d.HealthCondition]; bad {
		return false
	}
	return true
}
