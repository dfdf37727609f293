package roadmap

import "github.com/joelkehle/glp1-roadmap/internal/drugs"

// TaperWindowWeeks is how long after maintenance entry a decreasing dose is
// still read as maintenance rather than a taper.
const TaperWindowWeeks = 52

// ClassifyStage derives the stage from the snapshot alone. There is no stored
// state; every call re-derives it.
func ClassifyStage(snap UserSnapshot, profile drugs.Profile) Stage {
	switch snap.Status {
	case StatusPre:
		return StagePreBridge
	case StatusActive:
	default:
		return StagePreBridge
	}
	if snap.Stopped {
		return StagePostCessation
	}
	m, ok := MaintenanceEntryWeek(FullSchedule(profile, snap.Age))
	if !ok {
		return StageEscalation
	}
	switch {
	case snap.CurrentWeek < m:
		return StageEscalation
	case snap.CurrentWeek < m+TaperWindowWeeks:
		return StageMaintenance
	case snap.DoseTrend == TrendDecreasing:
		return StageTaper
	default:
		return StageMaintenance
	}
}

func bandFor(profile drugs.Profile, snap UserSnapshot) PercentileBand {
	anchor, ok := anchorFor(snap)
	if !ok {
		return BandPopulation
	}
	factor, err := scaleFactor(profile, *anchor)
	if err != nil {
		return BandPopulation
	}
	return Projection{Anchor: anchor, ScaleFactor: factor}.Band()
}

// Classify returns the stage and the narrative looked up for it.
func Classify(snap UserSnapshot, profile drugs.Profile, narratives NarrativeSource) (Stage, Narrative) {
	stage := ClassifyStage(snap, profile)
	if narratives == nil {
		return stage, Narrative{}
	}
	return stage, narratives.Narrative(NarrativeKey{
		Stage:      stage,
		Budget:     snap.Budget,
		MuscleMass: snap.MuscleMass,
		Concern:    snap.Concern,
		Band:       bandFor(profile, snap),
	})
}
