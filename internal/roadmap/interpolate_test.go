package roadmap

import (
	"errors"
	"math"
	"testing"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
)

const tolerance = 1e-9

func profileFor(t *testing.T, dt drugs.DrugType) drugs.Profile {
	t.Helper()
	reg, err := drugs.Default()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	p, err := reg.Lookup(dt)
	if err != nil {
		t.Fatalf("lookup %s: %v", dt, err)
	}
	return p
}

func TestInterpolateKnownPointIsExact(t *testing.T) {
	sema := profileFor(t, drugs.Semaglutide)
	got, err := Interpolate(sema, 8)
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}
	if got != -4.0 {
		t.Fatalf("week 8: got %v want -4.0", got)
	}
	for _, pt := range sema.ClinicalCurve {
		v, _ := Interpolate(sema, pt.Week)
		if v != pt.PercentChange {
			t.Fatalf("week %d: got %v want %v", pt.Week, v, pt.PercentChange)
		}
	}
}

func TestInterpolateLinearBetweenPoints(t *testing.T) {
	sema := profileFor(t, drugs.Semaglutide)
	got, err := Interpolate(sema, 6)
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}
	if math.Abs(got-(-3.1)) > tolerance {
		t.Fatalf("week 6: got %v want -3.1", got)
	}
	got, _ = Interpolate(sema, 5)
	if math.Abs(got-(-2.65)) > tolerance {
		t.Fatalf("week 5: got %v want -2.65", got)
	}
}

func TestInterpolateHoldsLastValue(t *testing.T) {
	for _, dt := range drugs.AllDrugTypes {
		p := profileFor(t, dt)
		last := p.ClinicalCurve[len(p.ClinicalCurve)-1]
		for _, w := range []int{last.Week, last.Week + 1, last.Week + 200} {
			got, err := Interpolate(p, w)
			if err != nil {
				t.Fatalf("%s week %d: %v", dt, w, err)
			}
			if got != last.PercentChange {
				t.Fatalf("%s week %d: got %v want %v", dt, w, got, last.PercentChange)
			}
		}
	}
}

func TestInterpolateStartsAtZero(t *testing.T) {
	for _, dt := range drugs.AllDrugTypes {
		got, err := Interpolate(profileFor(t, dt), 0)
		if err != nil || got != 0 {
			t.Fatalf("%s week 0: got %v, %v", dt, got, err)
		}
	}
}

func TestInterpolateRejectsNegativeWeek(t *testing.T) {
	_, err := Interpolate(profileFor(t, drugs.Tirzepatide), -1)
	var we *InvalidWeekError
	if !errors.As(err, &we) {
		t.Fatalf("expected InvalidWeekError, got %v", err)
	}
	if CodeOf(err) != CodeInvalidWeek || StatusForCode(CodeOf(err)) != 400 {
		t.Fatalf("unexpected code mapping for %v", err)
	}
}
