package roadmap

import (
	"math"
	"strconv"
	"strings"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
)

// Defaults applied when a field is missing or malformed.
const (
	DefaultAge           = 35
	DefaultCurrentWeight = 80.0
	DefaultTargetWeight  = 70.0
	DefaultCurrentWeek   = 0
)

// Upper bounds for numeric input. Values past them are treated as malformed.
const (
	MaxWeightKg = 650.0
	MaxAge      = 130
	MaxWeek     = 1040
)

// Input keys accepted by ParseSnapshot. Each key also accepts its camelCase
// spelling, which is what the web form posts.
const (
	KeyDrugType      = "drug_type"
	KeyDrugStatus    = "drug_status"
	KeyCurrentDose   = "current_dose"
	KeyCurrentWeek   = "current_week"
	KeyCurrentWeight = "current_weight"
	KeyStartWeight   = "start_weight"
	KeyTargetWeight  = "target_weight"
	KeyAge           = "age"
	KeyMuscleMass    = "muscle_mass"
	KeyBudget        = "budget"
	KeyMainConcern   = "main_concern"
	KeyDoseTrend     = "dose_trend"
	KeyStopped       = "stopped"
	KeyView          = "view"
)

// ParseSnapshot coerces a flat string map into a typed snapshot. Missing or
// malformed optional fields fall back to defaults and are listed in
// Defaulted. A missing drug type is a ValidationError and an unrecognized one
// is an UnknownDrugError; no drug is ever picked implicitly.
func ParseSnapshot(reg *drugs.Registry, in map[string]string) (UserSnapshot, drugs.Profile, error) {
	f := formValues(in)
	snap := UserSnapshot{}

	rawDrug := f.get(KeyDrugType)
	if rawDrug == "" {
		return snap, drugs.Profile{}, &ValidationError{Field: KeyDrugType, Message: "is required"}
	}
	profile, err := reg.LookupName(rawDrug)
	if err != nil {
		return snap, drugs.Profile{}, err
	}
	snap.DrugType = profile.Type

	switch strings.ToUpper(f.get(KeyDrugStatus)) {
	case "ACTIVE", "ON", "YES", "TRUE":
		snap.Status = StatusActive
	case "PRE", "NO", "FALSE":
		snap.Status = StatusPre
	default:
		snap.Status = StatusPre
		snap.defaulted(KeyDrugStatus)
	}

	snap.Age = f.positiveInt(KeyAge, DefaultAge, MaxAge, &snap)
	snap.CurrentWeight = f.positiveFloat(KeyCurrentWeight, DefaultCurrentWeight, MaxWeightKg, &snap)
	snap.TargetWeight = f.positiveFloat(KeyTargetWeight, DefaultTargetWeight, MaxWeightKg, &snap)
	if f.get(KeyStartWeight) != "" {
		if v, ok := f.floatValue(KeyStartWeight); ok && v > 0 && v <= MaxWeightKg {
			snap.StartWeight = v
		} else {
			snap.defaulted(KeyStartWeight)
		}
	}

	if snap.Status == StatusPre {
		// Not dosing yet: the week is zero and the roadmap starts at the first rung.
		snap.CurrentWeek = 0
		snap.CurrentDose = profile.StartingDose()
	} else {
		if v, ok := f.intValue(KeyCurrentWeek); ok && v >= 0 && v <= MaxWeek {
			snap.CurrentWeek = v
		} else {
			snap.CurrentWeek = DefaultCurrentWeek
			snap.defaulted(KeyCurrentWeek)
		}
		if v, ok := f.floatValue(KeyCurrentDose); ok {
			// Kept as reported; an off-ladder dose is surfaced by the schedule step.
			snap.CurrentDose = v
		} else {
			snap.CurrentDose = profile.StartingDose()
			snap.defaulted(KeyCurrentDose)
		}
	}

	snap.MuscleMass = MuscleAverage
	if v := MuscleMass(strings.ToLower(f.get(KeyMuscleMass))); contains(AllMuscleMass, v) {
		snap.MuscleMass = v
	} else {
		snap.defaulted(KeyMuscleMass)
	}
	snap.Budget = BudgetStandard
	if v := BudgetTier(strings.ToLower(f.get(KeyBudget))); contains(AllBudgetTiers, v) {
		snap.Budget = v
	} else {
		snap.defaulted(KeyBudget)
	}
	snap.Concern = ConcernPlateau
	if v := Concern(strings.ToLower(f.get(KeyMainConcern))); contains(AllConcerns, v) {
		snap.Concern = v
	} else {
		snap.defaulted(KeyMainConcern)
	}

	switch DoseTrend(strings.ToUpper(f.get(KeyDoseTrend))) {
	case TrendIncreasing:
		snap.DoseTrend = TrendIncreasing
	case TrendDecreasing:
		snap.DoseTrend = TrendDecreasing
	default:
		snap.DoseTrend = TrendSteady
	}
	snap.Stopped, _ = strconv.ParseBool(f.get(KeyStopped))
	if View(strings.ToLower(f.get(KeyView))) == ViewForward {
		snap.View = ViewForward
	} else {
		snap.View = ViewFull
	}
	return snap, profile, nil
}

func (s *UserSnapshot) defaulted(key string) {
	s.Defaulted = append(s.Defaulted, key)
}

type formValues map[string]string

func (f formValues) get(key string) string {
	if v, ok := f[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(f[camelCase(key)])
}

func (f formValues) floatValue(key string) (float64, bool) {
	raw := f.get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (f formValues) intValue(key string) (int, bool) {
	raw := f.get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err == nil {
		return int(v), true
	}
	// Accept "12.0" style week/age values from numeric inputs.
	fv, ferr := strconv.ParseFloat(raw, 64)
	if ferr != nil || math.IsNaN(fv) || math.IsInf(fv, 0) || math.Abs(fv) > math.MaxInt32 {
		return 0, false
	}
	return int(fv), true
}

func (f formValues) positiveFloat(key string, def, limit float64, snap *UserSnapshot) float64 {
	if v, ok := f.floatValue(key); ok && v > 0 && v <= limit {
		return v
	}
	snap.defaulted(key)
	return def
}

func (f formValues) positiveInt(key string, def, limit int, snap *UserSnapshot) int {
	if v, ok := f.intValue(key); ok && v > 0 && v <= limit {
		return v
	}
	snap.defaulted(key)
	return def
}

func camelCase(key string) string {
	parts := strings.Split(key, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
