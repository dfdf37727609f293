package roadmap

import (
	"errors"
	"fmt"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
)

const (
	CodeValidation       = "validation"
	CodeUnknownDrug      = "unknown_drug"
	CodeInvalidDose      = "invalid_dose"
	CodeInvalidWeek      = "invalid_week"
	CodeDegenerateAnchor = "degenerate_anchor"
	CodeInternal         = "internal"
)

// ValidationError reports input that cannot be defaulted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidDoseError means the reported dose is not a rung of the drug's ladder.
type InvalidDoseError struct {
	Drug drugs.DrugType
	Dose float64
}

func (e *InvalidDoseError) Error() string {
	return fmt.Sprintf("dose %g is not on the %s ladder", e.Dose, e.Drug)
}

type InvalidWeekError struct {
	Week int
}

func (e *InvalidWeekError) Error() string {
	if e.Week > MaxWeek {
		return fmt.Sprintf("week %d is past the %d-week limit", e.Week, MaxWeek)
	}
	return fmt.Sprintf("week %d is negative", e.Week)
}

// DegenerateAnchorError means the population curve is zero at the anchor
// week, so the curve cannot be rescaled through the user's anchor point.
type DegenerateAnchorError struct {
	Week int
}

func (e *DegenerateAnchorError) Error() string {
	return fmt.Sprintf("population change at anchor week %d is zero; using unscaled curve", e.Week)
}

// CodeOf maps an error to its stable code.
func CodeOf(err error) string {
	var (
		ve *ValidationError
		ue *drugs.UnknownDrugError
		de *InvalidDoseError
		we *InvalidWeekError
		ae *DegenerateAnchorError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &ue):
		return CodeUnknownDrug
	case errors.As(err, &de):
		return CodeInvalidDose
	case errors.As(err, &we):
		return CodeInvalidWeek
	case errors.As(err, &ae):
		return CodeDegenerateAnchor
	default:
		return CodeInternal
	}
}

// StatusForCode is the HTTP status an error code maps to.
func StatusForCode(code string) int {
	switch code {
	case CodeValidation, CodeInvalidDose, CodeInvalidWeek:
		return 400
	case CodeUnknownDrug:
		return 404
	case CodeDegenerateAnchor:
		return 200
	default:
		return 500
	}
}
