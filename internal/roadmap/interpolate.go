package roadmap

import (
	"sort"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
)

// Interpolate returns the population percent change at week. Known points are
// returned exactly, interior weeks are linearly interpolated, and weeks past
// the last observation hold the last value (no extrapolation).
func Interpolate(profile drugs.Profile, week int) (float64, error) {
	if week < 0 {
		return 0, &InvalidWeekError{Week: week}
	}
	curve := profile.ClinicalCurve
	if len(curve) == 0 {
		return 0, nil
	}
	last := curve[len(curve)-1]
	if week >= last.Week {
		return last.PercentChange, nil
	}
	i := sort.Search(len(curve), func(i int) bool { return curve[i].Week >= week })
	if curve[i].Week == week || i == 0 {
		return curve[i].PercentChange, nil
	}
	lo, hi := curve[i-1], curve[i]
	frac := float64(week-lo.Week) / float64(hi.Week-lo.Week)
	return lo.PercentChange + frac*(hi.PercentChange-lo.PercentChange), nil
}
