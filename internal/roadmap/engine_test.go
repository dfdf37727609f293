package roadmap

import (
	"errors"
	"testing"
	"time"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
)

func newTestEngine(t *testing.T) (*Engine, *stubNarratives) {
	t.Helper()
	reg, err := drugs.Default()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	src := &stubNarratives{}
	e := NewEngine(reg, src)
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	e.newID = func() string { return "analysis-1" }
	return e, src
}

func TestAnalyzePreUserStartsAtWeekZero(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Analyze(map[string]string{
		"drug_type":      "semaglutide",
		"drug_status":    "PRE",
		"current_week":   "30",
		"current_weight": "102",
		"target_weight":  "90",
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Stage != StagePreBridge {
		t.Fatalf("stage: got %s", res.Stage)
	}
	if len(res.Weeks) == 0 || res.Weeks[0] != 0 {
		t.Fatalf("weeks must start at 0, got %v", res.Weeks)
	}
	if res.Mode != ModeComplete || len(res.Issues) != 0 {
		t.Fatalf("unexpected degradation: %s %+v", res.Mode, res.Issues)
	}
	if len(res.Schedule) == 0 || res.Schedule[0].Dose != 0.25 {
		t.Fatalf("pre user should start on the first rung: %+v", res.Schedule)
	}
	if res.Anchor != nil || res.Band != BandPopulation {
		t.Fatalf("pre user has no anchor: %+v %s", res.Anchor, res.Band)
	}
	if res.TargetWeek == nil || res.WeightKgSeries[*res.TargetWeek] > 90 {
		t.Fatalf("target week not set correctly: %v", res.TargetWeek)
	}
	if res.AnalysisID != "analysis-1" || res.Disclaimer == "" || res.GeneratedAt.IsZero() {
		t.Fatalf("missing metadata: %+v", res)
	}
	if res.MaintenanceEntryWeek != 16 {
		t.Fatalf("maintenance entry: got %d", res.MaintenanceEntryWeek)
	}
}

func TestAnalyzeActiveUserPersonalizes(t *testing.T) {
	e, src := newTestEngine(t)
	res, err := e.Analyze(map[string]string{
		"drugType":      "Zepbound",
		"drugStatus":    "ACTIVE",
		"currentDose":   "7.5",
		"currentWeek":   "12",
		"currentWeight": "88",
		"startWeight":   "100",
		"budget":        "low",
		"muscleMass":    "high",
		"mainConcern":   "cost",
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.DrugType != drugs.Tirzepatide || res.Stage != StageMaintenance {
		t.Fatalf("drug/stage: %s %s", res.DrugType, res.Stage)
	}
	if res.Anchor == nil || res.Anchor.Week != 12 {
		t.Fatalf("anchor: %+v", res.Anchor)
	}
	if res.NextStep == nil || res.NextStep.Dose != 10 {
		t.Fatalf("next step: %+v", res.NextStep)
	}
	if len(src.keys) != 1 || src.keys[0].Budget != BudgetLow || src.keys[0].MuscleMass != MuscleHigh || src.keys[0].Band != res.Band {
		t.Fatalf("narrative key: %+v", src.keys)
	}
	if res.Narrative.ConcernTip != string(ConcernCost) {
		t.Fatalf("narrative not attached: %+v", res.Narrative)
	}
}

func TestAnalyzeOffLadderDoseDegrades(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Analyze(map[string]string{
		"drug_type":      "semaglutide",
		"drug_status":    "ACTIVE",
		"current_dose":   "3",
		"current_week":   "20",
		"current_weight": "90",
		"start_weight":   "100",
	})
	if err != nil {
		t.Fatalf("analyze should degrade, not fail: %v", err)
	}
	if res.Mode != ModeDegraded {
		t.Fatalf("mode: got %s", res.Mode)
	}
	if len(res.Issues) != 1 || res.Issues[0].Code != CodeInvalidDose {
		t.Fatalf("issues: %+v", res.Issues)
	}
	if res.Schedule != nil || res.NextStep != nil {
		t.Fatalf("schedule should be empty: %+v", res.Schedule)
	}
	if res.Anchor != nil || res.ScaleFactor != 1 || len(res.Weeks) == 0 {
		t.Fatalf("expected population fallback: anchor=%+v scale=%v", res.Anchor, res.ScaleFactor)
	}
	if res.Stage != StageMaintenance {
		t.Fatalf("stage still derives from week: got %s", res.Stage)
	}
}

func TestAnalyzeDegenerateAnchorIsReported(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Analyze(map[string]string{
		"drug_type":      "semaglutide",
		"drug_status":    "ACTIVE",
		"current_dose":   "0.25",
		"current_week":   "0",
		"current_weight": "99",
		"start_weight":   "100",
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Mode != ModeComplete {
		t.Fatalf("a recovered anchor does not degrade the result: %s", res.Mode)
	}
	if len(res.Issues) != 1 || res.Issues[0].Code != CodeDegenerateAnchor {
		t.Fatalf("issues: %+v", res.Issues)
	}
}

func TestAnalyzeRejectsMissingAndUnknownDrug(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Analyze(map[string]string{"drug_status": "PRE"})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != KeyDrugType {
		t.Fatalf("expected drug_type ValidationError, got %v", err)
	}
	_, err = e.Analyze(map[string]string{"drug_type": "liraglutide"})
	if CodeOf(err) != CodeUnknownDrug || StatusForCode(CodeUnknownDrug) != 404 {
		t.Fatalf("expected unknown_drug, got %v", err)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	e, _ := newTestEngine(t)
	in := map[string]string{"drug_type": "tirzepatide", "drug_status": "ACTIVE", "current_dose": "10", "current_week": "30", "start_weight": "110", "current_weight": "95"}
	a, err := e.Analyze(in)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	b, _ := e.Analyze(in)
	if len(a.Weeks) != len(b.Weeks) || a.Stage != b.Stage || a.ScaleFactor != b.ScaleFactor {
		t.Fatal("results differ between identical calls")
	}
	for i := range a.WeightKgSeries {
		if a.WeightKgSeries[i] != b.WeightKgSeries[i] {
			t.Fatalf("weight series differs at %d", i)
		}
	}
}

func TestAnalyzeSnapshotInvalidWeekFallsBackToPopulation(t *testing.T) {
	e, _ := newTestEngine(t)
	sema := profileFor(t, drugs.Semaglutide)
	for _, week := range []int{-3, MaxWeek + 1} {
		snap := activeSnapshot(week, 100, 92)
		snap.View = ViewForward
		res := e.AnalyzeSnapshot(snap, sema)
		if res.Mode != ModeDegraded {
			t.Fatalf("week %d: mode got %s", week, res.Mode)
		}
		if len(res.Weeks) == 0 || res.Weeks[0] != 0 || res.Weeks[len(res.Weeks)-1] != sema.LastCurveWeek() {
			t.Fatalf("week %d: expected full population weeks, got %v", week, res.Weeks)
		}
		n := len(res.Weeks)
		if len(res.UserLossPctSeries) != n || len(res.PopulationPctSeries) != n || len(res.WeightKgSeries) != n {
			t.Fatalf("week %d: series lengths differ", week)
		}
		if res.Anchor != nil || res.ScaleFactor != 1 {
			t.Fatalf("week %d: expected unscaled curve, anchor=%+v scale=%v", week, res.Anchor, res.ScaleFactor)
		}
		found := false
		for _, is := range res.Issues {
			if is.Code == CodeInvalidWeek {
				found = true
			}
		}
		if !found {
			t.Fatalf("week %d: missing invalid_week issue: %+v", week, res.Issues)
		}
	}
}
