// Package narrative holds the copy shown next to the roadmap chart. The
// tables are data: swapping the YAML changes the words without touching the
// projection math.
package narrative

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joelkehle/glp1-roadmap/internal/roadmap"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// Entry is the per-stage copy. G, P and S are the GLP-1, plate (protein and
// food) and strength one-liners.
type Entry struct {
	Headline string `yaml:"headline"`
	G        string `yaml:"g"`
	P        string `yaml:"p"`
	S        string `yaml:"s"`
}

type Table struct {
	Stages     map[roadmap.Stage]Entry           `yaml:"stages"`
	Budget     map[roadmap.BudgetTier]string     `yaml:"budget"`
	Muscle     map[roadmap.MuscleMass]string     `yaml:"muscle"`
	Concerns   map[roadmap.Concern]string        `yaml:"concerns"`
	Percentile map[roadmap.PercentileBand]string `yaml:"percentile"`
}

// Parse decodes and validates a template document.
func Parse(blob []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(blob, &t); err != nil {
		return nil, fmt.Errorf("decode narrative yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func LoadFile(path string) (*Table, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read narrative templates: %w", err)
	}
	return Parse(blob)
}

// Open loads templates from path, or the embedded copy when path is empty.
func Open(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Default returns the embedded English copy.
func Default() (*Table, error) {
	return Parse(defaultTemplatesYAML)
}

// Validate requires an entry for every value of every enumeration, so a
// lookup can never come back empty.
func (t *Table) Validate() error {
	var missing []string
	for _, s := range roadmap.AllStages {
		e, ok := t.Stages[s]
		if !ok || strings.TrimSpace(e.Headline) == "" {
			missing = append(missing, "stages."+string(s))
		}
	}
	for _, b := range roadmap.AllBudgetTiers {
		if _, ok := t.Budget[b]; !ok {
			missing = append(missing, "budget."+string(b))
		}
	}
	for _, m := range roadmap.AllMuscleMass {
		if _, ok := t.Muscle[m]; !ok {
			missing = append(missing, "muscle."+string(m))
		}
	}
	for _, c := range roadmap.AllConcerns {
		if _, ok := t.Concerns[c]; !ok {
			missing = append(missing, "concerns."+string(c))
		}
	}
	for _, b := range roadmap.AllBands {
		if _, ok := t.Percentile[b]; !ok {
			missing = append(missing, "percentile."+string(b))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("narrative templates missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Narrative implements roadmap.NarrativeSource.
func (t *Table) Narrative(key roadmap.NarrativeKey) roadmap.Narrative {
	e := t.Stages[key.Stage]
	return roadmap.Narrative{
		Headline:   e.Headline,
		G:          e.G,
		P:          joinSentence(e.P, t.Budget[key.Budget]),
		S:          joinSentence(e.S, t.Muscle[key.MuscleMass]),
		Percentile: t.Percentile[key.Band],
		ConcernTip: t.Concerns[key.Concern],
	}
}

func joinSentence(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
