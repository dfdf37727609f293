package drugs

import (
	"fmt"
	"math"
	"strings"
)

// DrugType is the closed set of supported medications. Adding a drug means
// adding a constant here and a case to Valid; loaders reject anything else.
type DrugType string

const (
	Semaglutide DrugType = "semaglutide"
	Tirzepatide DrugType = "tirzepatide"
)

// AllDrugTypes lists every supported drug in display order.
var AllDrugTypes = []DrugType{Semaglutide, Tirzepatide}

func (d DrugType) Valid() bool {
	switch d {
	case Semaglutide, Tirzepatide:
		return true
	default:
		return false
	}
}

var drugAliases = map[string]DrugType{
	"semaglutide": Semaglutide,
	"wegovy":      Semaglutide,
	"ozempic":     Semaglutide,
	"tirzepatide": Tirzepatide,
	"zepbound":    Tirzepatide,
	"mounjaro":    Tirzepatide,
}

// ParseDrugType resolves a generic or brand name to a DrugType.
func ParseDrugType(raw string) (DrugType, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if d, ok := drugAliases[key]; ok {
		return d, nil
	}
	return "", &UnknownDrugError{DrugType: raw}
}

type UnknownDrugError struct {
	DrugType string
}

func (e *UnknownDrugError) Error() string {
	return fmt.Sprintf("unknown drug type %q", e.DrugType)
}

// CurvePoint is one observation of population-average weight change.
type CurvePoint struct {
	Week          int     `json:"week" yaml:"week"`
	PercentChange float64 `json:"percent_change" yaml:"pct"`
}

// Profile is the immutable reference data for one drug.
type Profile struct {
	Type            DrugType     `json:"drug_type"`
	Name            string       `json:"name"`
	Unit            string       `json:"unit"`
	Trial           string       `json:"trial,omitempty"`
	DoseSteps       []float64    `json:"dose_steps"`
	MaintenanceDose float64      `json:"maintenance_dose"`
	ClinicalCurve   []CurvePoint `json:"clinical_curve"`
	HalfLifeDays    float64      `json:"half_life_days"`
}

const doseTolerance = 1e-9

// SameDose compares two ladder values. Ladder doses such as 1.7 are not
// exactly representable, so equality is tolerance based.
func SameDose(a, b float64) bool {
	return math.Abs(a-b) <= doseTolerance
}

// DoseIndex returns the ladder position of dose, or -1.
func (p Profile) DoseIndex(dose float64) int {
	for i, d := range p.DoseSteps {
		if SameDose(d, dose) {
			return i
		}
	}
	return -1
}

// IsMaintenance reports whether dose is at or above the maintenance dose.
func (p Profile) IsMaintenance(dose float64) bool {
	return dose >= p.MaintenanceDose-doseTolerance
}

func (p Profile) StartingDose() float64 {
	if len(p.DoseSteps) == 0 {
		return 0
	}
	return p.DoseSteps[0]
}

func (p Profile) TopDose() float64 {
	if len(p.DoseSteps) == 0 {
		return 0
	}
	return p.DoseSteps[len(p.DoseSteps)-1]
}

// LastCurveWeek is the final observed week of the clinical curve.
func (p Profile) LastCurveWeek() int {
	if len(p.ClinicalCurve) == 0 {
		return 0
	}
	return p.ClinicalCurve[len(p.ClinicalCurve)-1].Week
}

// Validate checks the structural invariants every registered profile must hold.
func (p Profile) Validate() error {
	if !p.Type.Valid() {
		return &UnknownDrugError{DrugType: string(p.Type)}
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%s: name is required", p.Type)
	}
	if len(p.DoseSteps) == 0 {
		return fmt.Errorf("%s: dose ladder is empty", p.Type)
	}
	for i, d := range p.DoseSteps {
		if d <= 0 {
			return fmt.Errorf("%s: dose step %d must be positive", p.Type, i)
		}
		if i > 0 && d <= p.DoseSteps[i-1] {
			return fmt.Errorf("%s: dose ladder must be strictly increasing at step %d", p.Type, i)
		}
	}
	if p.DoseIndex(p.MaintenanceDose) < 0 {
		return fmt.Errorf("%s: maintenance dose %g is not on the ladder", p.Type, p.MaintenanceDose)
	}
	if len(p.ClinicalCurve) == 0 {
		return fmt.Errorf("%s: clinical curve is empty", p.Type)
	}
	if first := p.ClinicalCurve[0]; first.Week != 0 || first.PercentChange != 0 {
		return fmt.Errorf("%s: clinical curve must start at (0, 0)", p.Type)
	}
	for i, pt := range p.ClinicalCurve {
		if pt.PercentChange > 0 {
			return fmt.Errorf("%s: clinical curve week %d has positive change", p.Type, pt.Week)
		}
		if i > 0 && pt.Week <= p.ClinicalCurve[i-1].Week {
			return fmt.Errorf("%s: clinical curve weeks must be strictly increasing at point %d", p.Type, i)
		}
	}
	if p.HalfLifeDays < 0 {
		return fmt.Errorf("%s: half-life must not be negative", p.Type)
	}
	return nil
}

func (p Profile) clone() Profile {
	out := p
	out.DoseSteps = append([]float64(nil), p.DoseSteps...)
	out.ClinicalCurve = append([]CurvePoint(nil), p.ClinicalCurve...)
	return out
}
