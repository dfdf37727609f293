// Package report turns an analysis result into a shareable document:
// markdown first, then HTML through goldmark and PDF through headless Chromium.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/glp1-roadmap/internal/roadmap"
)

// ProjectionSampleWeeks is the spacing of rows in the projection table.
const ProjectionSampleWeeks = 4

const (
	step1URL     = "https://www.nejm.org/doi/full/10.1056/NEJMoa2032183"
	surmount1URL = "https://www.nejm.org/doi/full/10.1056/NEJMoa2206038"
)

func BuildMarkdown(res roadmap.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# GLP-1 Roadmap\n\n")
	fmt.Fprintf(&b, "- Analysis ID: %s\n", res.AnalysisID)
	fmt.Fprintf(&b, "- Medication: %s (%s)\n", sanitize(res.DrugName), res.DrugType)
	fmt.Fprintf(&b, "- Date: %s\n", res.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Stage: `%s`\n", res.Stage)
	fmt.Fprintf(&b, "- Mode: %s\n\n", res.Mode)
	fmt.Fprintf(&b, "%s\n\n", roadmap.Disclaimer)

	if res.Mode == roadmap.ModeDegraded {
		fmt.Fprintf(&b, "> DEGRADED: part of your input could not be used. The chart falls back to the trial average.\n")
		for _, issue := range res.Issues {
			fmt.Fprintf(&b, "> - `%s`: %s\n", issue.Code, sanitize(issue.Message))
		}
		fmt.Fprintf(&b, "\n")
	}

	// --- Where You Are ---
	fmt.Fprintf(&b, "## Where You Are\n\n")
	fmt.Fprintf(&b, "**%s**\n\n", sanitize(res.Narrative.Headline))
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| GLP-1 | %s |\n", sanitizeCell(res.Narrative.G))
	fmt.Fprintf(&b, "| Plate | %s |\n", sanitizeCell(res.Narrative.P))
	fmt.Fprintf(&b, "| Strength | %s |\n", sanitizeCell(res.Narrative.S))
	if res.Narrative.ConcernTip != "" {
		fmt.Fprintf(&b, "| Your concern | %s |\n", sanitizeCell(res.Narrative.ConcernTip))
	}
	fmt.Fprintf(&b, "\n")

	// --- Progress ---
	fmt.Fprintf(&b, "## Progress vs Trial Average\n\n")
	fmt.Fprintf(&b, "- Band: `%s`\n", res.Band)
	if res.Anchor != nil {
		fmt.Fprintf(&b, "- Your change at week %d: %s\n", res.Anchor.Week, fmtPct(res.Anchor.PercentChange))
		fmt.Fprintf(&b, "- Scale vs trial curve: %.2fx\n", res.ScaleFactor)
	}
	if res.Narrative.Percentile != "" {
		fmt.Fprintf(&b, "- %s\n", sanitize(res.Narrative.Percentile))
	}
	if res.TargetWeek != nil {
		fmt.Fprintf(&b, "- Target %.1f kg projected at week %d\n", res.Snapshot.TargetWeight, *res.TargetWeek)
	} else {
		fmt.Fprintf(&b, "- Target %.1f kg is not reached within the trial window\n", res.Snapshot.TargetWeight)
	}
	fmt.Fprintf(&b, "\n")

	// --- Dose Roadmap ---
	fmt.Fprintf(&b, "## Dose Roadmap\n\n")
	if len(res.Schedule) == 0 {
		fmt.Fprintf(&b, "No schedule: the reported dose is not on the %s ladder.\n\n", sanitize(res.DrugName))
	} else {
		fmt.Fprintf(&b, "| Week from now | Dose (%s) | Phase |\n", res.Unit)
		fmt.Fprintf(&b, "|---|---|---|\n")
		for _, s := range res.Schedule {
			fmt.Fprintf(&b, "| %d | %g | %s |\n", s.RelativeWeek, s.Dose, s.Phase)
		}
		fmt.Fprintf(&b, "\n")
		if res.NextStep != nil {
			fmt.Fprintf(&b, "Next step: %g %s in %d weeks.\n\n", res.NextStep.Dose, res.Unit, res.NextStep.RelativeWeek)
		}
	}
	fmt.Fprintf(&b, "Maintenance is reached %d weeks after the first dose.\n\n", res.MaintenanceEntryWeek)

	// --- Projection ---
	fmt.Fprintf(&b, "## Projection\n\n")
	fmt.Fprintf(&b, "| Week | Trial average | You | Weight (kg) |\n")
	fmt.Fprintf(&b, "|---|---|---|---|\n")
	for _, i := range sampleRows(res.Weeks) {
		fmt.Fprintf(&b, "| %d | %s | %s | %.1f |\n",
			res.Weeks[i], fmtPct(res.PopulationPctSeries[i]), fmtPct(res.UserLossPctSeries[i]), res.WeightKgSeries[i])
	}
	fmt.Fprintf(&b, "\n")

	// --- How This Report Works ---
	fmt.Fprintf(&b, "## How This Report Works\n\n")
	fmt.Fprintf(&b, "The trial average comes from the published mean weight change in "+
		"[STEP 1](%s) (semaglutide) and [SURMOUNT-1](%s) (tirzepatide). "+
		"Weeks between published points are linearly interpolated and weeks after the last point hold the last value.\n\n", step1URL, surmount1URL)
	fmt.Fprintf(&b, "When you give a start weight while on treatment, the trial curve is scaled so it passes through your own result at your current week. "+
		"Without one, the chart shows the trial average applied to your current weight.\n\n")
	if res.HalfLifeDays > 0 {
		fmt.Fprintf(&b, "%s has a half-life of about %g days, so a missed or changed dose takes several weeks to fully show.\n", sanitize(res.DrugName), res.HalfLifeDays)
	}
	return b.String()
}

// sampleRows picks every ProjectionSampleWeeks-th index plus the last one.
func sampleRows(weeks []int) []int {
	var out []int
	for i, w := range weeks {
		if (w-weeks[0])%ProjectionSampleWeeks == 0 || i == len(weeks)-1 {
			out = append(out, i)
		}
	}
	return out
}

func fmtPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func sanitizeCell(s string) string {
	s = sanitize(s)
	return strings.ReplaceAll(s, "|", "\\|")
}
