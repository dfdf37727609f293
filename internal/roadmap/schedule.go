package roadmap

import "github.com/joelkehle/glp1-roadmap/internal/drugs"

const (
	standardIntervalWeeks   = 4
	olderAdultIntervalWeeks = 6
	olderAdultAge           = 65
)

type Phase string

const (
	PhaseEscalation  Phase = "ESCALATION"
	PhaseMaintenance Phase = "MAINTENANCE"
)

// Step is one rung of the forward dose roadmap.
type Step struct {
	RelativeWeek int     `json:"relative_week"`
	Dose         float64 `json:"dose"`
	Phase        Phase   `json:"phase"`
}

// EscalationInterval is the number of weeks spent on each rung. Titration is
// slower from age 65.
func EscalationInterval(age int) int {
	if age >= olderAdultAge {
		return olderAdultIntervalWeeks
	}
	return standardIntervalWeeks
}

// GenerateSchedule returns the remaining ladder from currentDose upward. The
// first step is always the current dose at relative week 0.
func GenerateSchedule(profile drugs.Profile, currentDose float64, age int) ([]Step, error) {
	start := profile.DoseIndex(currentDose)
	if start < 0 {
		return nil, &InvalidDoseError{Drug: profile.Type, Dose: currentDose}
	}
	return buildSteps(profile, profile.DoseSteps[start:], EscalationInterval(age)), nil
}

// FullSchedule is the roadmap from the starting dose, used to locate the
// maintenance-entry week relative to the first injection.
func FullSchedule(profile drugs.Profile, age int) []Step {
	return buildSteps(profile, profile.DoseSteps, EscalationInterval(age))
}

func buildSteps(profile drugs.Profile, doses []float64, interval int) []Step {
	steps := make([]Step, 0, len(doses))
	for i, dose := range doses {
		phase := PhaseEscalation
		if profile.IsMaintenance(dose) {
			phase = PhaseMaintenance
		}
		steps = append(steps, Step{RelativeWeek: i * interval, Dose: dose, Phase: phase})
	}
	return steps
}

// NextStep is the second entry of a schedule, if any.
func NextStep(steps []Step) (Step, bool) {
	if len(steps) < 2 {
		return Step{}, false
	}
	return steps[1], true
}

// MaintenanceEntryWeek is the relative week of the first maintenance step.
func MaintenanceEntryWeek(steps []Step) (int, bool) {
	for _, s := range steps {
		if s.Phase == PhaseMaintenance {
			return s.RelativeWeek, true
		}
	}
	return 0, false
}
