package roadmap

import (
	"errors"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
)

// Projection is the week-aligned chart data for one snapshot. All series have
// the same length as Weeks.
type Projection struct {
	Weeks         []int
	PopulationPct []float64
	UserLossPct   []float64
	WeightKg      []float64
	Anchor        *Anchor
	ScaleFactor   float64
	// Recovered holds locally recovered problems such as a degenerate anchor.
	Recovered []error
}

// anchorFor derives the user's own observed point. Only an active user with a
// recorded starting weight has one.
func anchorFor(snap UserSnapshot) (*Anchor, bool) {
	if snap.Status != StatusActive || snap.StartWeight <= 0 {
		return nil, false
	}
	pct := (snap.CurrentWeight - snap.StartWeight) / snap.StartWeight * 100
	return &Anchor{Week: snap.CurrentWeek, PercentChange: pct}, true
}

// scaleFactor is userAnchorPct / population(anchorWeek).
func scaleFactor(profile drugs.Profile, anchor Anchor) (float64, error) {
	pop, err := Interpolate(profile, anchor.Week)
	if err != nil {
		return 1, err
	}
	if pop == 0 {
		return 1, &DegenerateAnchorError{Week: anchor.Week}
	}
	return anchor.PercentChange / pop, nil
}

func baselineWeight(snap UserSnapshot) float64 {
	if snap.StartWeight > 0 {
		return snap.StartWeight
	}
	return snap.CurrentWeight
}

// ProjectSeries samples the clinical curve weekly and rescales it so that it
// passes through the user's anchor point. Without an anchor, or when the
// anchor cannot be used, the population curve is returned unscaled.
func ProjectSeries(profile drugs.Profile, snap UserSnapshot) (Projection, error) {
	start := 0
	if snap.View == ViewForward && snap.Status == StatusActive {
		start = snap.CurrentWeek
	}
	if start < 0 || start > MaxWeek {
		return Projection{}, &InvalidWeekError{Week: start}
	}
	horizon := profile.LastCurveWeek()
	if horizon < start {
		horizon = start
	}

	proj := Projection{ScaleFactor: 1}
	if anchor, ok := anchorFor(snap); ok {
		factor, err := scaleFactor(profile, *anchor)
		var degenerate *DegenerateAnchorError
		switch {
		case err == nil:
			proj.Anchor = anchor
			proj.ScaleFactor = factor
		case errors.As(err, &degenerate):
			proj.Recovered = append(proj.Recovered, err)
		default:
			return Projection{}, err
		}
	}

	n := horizon - start + 1
	proj.Weeks = make([]int, 0, n)
	proj.PopulationPct = make([]float64, 0, n)
	proj.UserLossPct = make([]float64, 0, n)
	proj.WeightKg = make([]float64, 0, n)
	baseline := baselineWeight(snap)
	for w := start; w <= horizon; w++ {
		pop, err := Interpolate(profile, w)
		if err != nil {
			return Projection{}, err
		}
		user := pop * proj.ScaleFactor
		proj.Weeks = append(proj.Weeks, w)
		proj.PopulationPct = append(proj.PopulationPct, pop)
		proj.UserLossPct = append(proj.UserLossPct, user)
		proj.WeightKg = append(proj.WeightKg, baseline*(1+user/100))
	}
	return proj, nil
}

// TargetWeek is the first projected week at or below target, if reached.
func (p Projection) TargetWeek(target float64) (int, bool) {
	for i, kg := range p.WeightKg {
		if kg <= target {
			return p.Weeks[i], true
		}
	}
	return 0, false
}

// Band compares the anchor's progress with the population at the same week.
func (p Projection) Band() PercentileBand {
	if p.Anchor == nil {
		return BandPopulation
	}
	switch {
	case p.ScaleFactor >= 1.2:
		return BandAhead
	case p.ScaleFactor <= 0.8:
		return BandBehind
	default:
		return BandOnTrack
	}
}
