package roadmap

import (
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
)

// Engine runs analyses against a fixed registry and narrative table. It
// holds no per-request state and is safe for concurrent use.
type Engine struct {
	registry   *drugs.Registry
	narratives NarrativeSource
	now        func() time.Time
	newID      func() string
}

func NewEngine(registry *drugs.Registry, narratives NarrativeSource) *Engine {
	return &Engine{
		registry:   registry,
		narratives: narratives,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (e *Engine) Registry() *drugs.Registry { return e.registry }

// Analyze validates and defaults raw form input, then runs the analysis.
// Only input that cannot be defaulted (missing or unknown drug) returns an
// error; structural problems further down degrade the result instead.
func (e *Engine) Analyze(in map[string]string) (Result, error) {
	snap, profile, err := ParseSnapshot(e.registry, in)
	if err != nil {
		return Result{}, err
	}
	return e.AnalyzeSnapshot(snap, profile), nil
}

// AnalyzeSnapshot runs schedule generation, projection and classification
// and merges them into one Result.
func (e *Engine) AnalyzeSnapshot(snap UserSnapshot, profile drugs.Profile) Result {
	res := Result{
		AnalysisID:   e.newID(),
		GeneratedAt:  e.now(),
		DrugType:     profile.Type,
		DrugName:     profile.Name,
		Unit:         profile.Unit,
		HalfLifeDays: profile.HalfLifeDays,
		Mode:         ModeComplete,
		Snapshot:     snap,
		Disclaimer:   Disclaimer,
	}

	if m, ok := MaintenanceEntryWeek(FullSchedule(profile, snap.Age)); ok {
		res.MaintenanceEntryWeek = m
	}

	projectFrom := snap
	schedule, err := GenerateSchedule(profile, snap.CurrentDose, snap.Age)
	if err != nil {
		res = degrade(res, err)
		// Fall back to the population-level trajectory.
		projectFrom.StartWeight = 0
	} else {
		res.Schedule = schedule
		if next, ok := NextStep(schedule); ok {
			res.NextStep = &next
		}
	}

	proj, err := ProjectSeries(profile, projectFrom)
	if err != nil {
		res = degrade(res, err)
		population := projectFrom
		population.Status = StatusPre
		population.StartWeight = 0
		proj, err = ProjectSeries(profile, population)
		if err != nil {
			res = degrade(res, err)
		}
	}
	for _, rec := range proj.Recovered {
		res.Issues = append(res.Issues, Issue{Code: CodeOf(rec), Message: rec.Error()})
	}
	res.Weeks = proj.Weeks
	res.PopulationPctSeries = proj.PopulationPct
	res.UserLossPctSeries = proj.UserLossPct
	res.WeightKgSeries = proj.WeightKg
	res.Anchor = proj.Anchor
	res.ScaleFactor = proj.ScaleFactor
	res.Band = proj.Band()
	if wk, ok := proj.TargetWeek(snap.TargetWeight); ok {
		res.TargetWeek = &wk
	}

	res.Stage = ClassifyStage(snap, profile)
	if e.narratives != nil {
		res.Narrative = e.narratives.Narrative(NarrativeKey{
			Stage:      res.Stage,
			Budget:     snap.Budget,
			MuscleMass: snap.MuscleMass,
			Concern:    snap.Concern,
			Band:       res.Band,
		})
	}
	return res
}

func degrade(res Result, err error) Result {
	res.Mode = ModeDegraded
	res.Issues = append(res.Issues, Issue{Code: CodeOf(err), Message: err.Error()})
	return res
}
