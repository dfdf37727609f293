// Package fitimport reads smart-scale exports in the Garmin FIT format and
// turns the weight history into snapshot fields.
package fitimport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/tormoder/fit"

	"github.com/joelkehle/glp1-roadmap/internal/roadmap"
)

// ErrNoWeights means the file decoded but held no usable weight samples.
var ErrNoWeights = errors.New("fit file has no valid weight samples")

type Sample struct {
	Time     time.Time `json:"time"`
	WeightKg float64   `json:"weight_kg"`
}

// Summary is the weight history reduced to the fields the engine uses.
type Summary struct {
	Start       Sample `json:"start"`
	Latest      Sample `json:"latest"`
	CurrentWeek int    `json:"current_week"`
	Samples     int    `json:"samples"`
}

func ReadFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open FIT file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) (Summary, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return Summary{}, fmt.Errorf("decode FIT file: %w", err)
	}
	weight, err := decoded.Weight()
	if err != nil {
		return Summary{}, fmt.Errorf("weight FIT expected: %w", err)
	}
	return Summarize(weight.WeightScales)
}

// Summarize picks the earliest and latest valid samples. The week count is
// whole weeks between them, rounded down.
func Summarize(msgs []*fit.WeightScaleMsg) (Summary, error) {
	samples := make([]Sample, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		kg, ok := weightKg(m)
		if !ok || m.Timestamp.IsZero() || fit.IsBaseTime(m.Timestamp) {
			continue
		}
		samples = append(samples, Sample{Time: m.Timestamp.UTC(), WeightKg: kg})
	}
	if len(samples) == 0 {
		return Summary{}, ErrNoWeights
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time.Before(samples[j].Time) })
	first, last := samples[0], samples[len(samples)-1]
	return Summary{
		Start:       first,
		Latest:      last,
		CurrentWeek: int(last.Time.Sub(first.Time) / (7 * 24 * time.Hour)),
		Samples:     len(samples),
	}, nil
}

// weightKg decodes the scaled field; 0xFFFE (calculating) and 0xFFFF
// (invalid) carry no reading.
func weightKg(m *fit.WeightScaleMsg) (float64, bool) {
	raw := uint16(m.Weight)
	if raw == 0 || raw >= 0xFFFE {
		return 0, false
	}
	return float64(raw) / 100, true
}

// Apply fills start weight, current weight and current week into raw
// analysis input, and marks the user as dosing since a weigh-in history
// only anchors an active user. Values already present in the input win.
func (s Summary) Apply(in map[string]string) {
	setDefault(in, roadmap.KeyDrugStatus, string(roadmap.StatusActive))
	setDefault(in, roadmap.KeyStartWeight, strconv.FormatFloat(s.Start.WeightKg, 'f', 2, 64))
	setDefault(in, roadmap.KeyCurrentWeight, strconv.FormatFloat(s.Latest.WeightKg, 'f', 2, 64))
	setDefault(in, roadmap.KeyCurrentWeek, strconv.Itoa(s.CurrentWeek))
}

func setDefault(in map[string]string, key, value string) {
	if v, ok := in[key]; ok && v != "" {
		return
	}
	in[key] = value
}
