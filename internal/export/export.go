// Package export writes the week-aligned projection series as tabular files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joelkehle/glp1-roadmap/internal/roadmap"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected csv|parquet)", raw)
	}
}

func (f Format) ContentType() string {
	if f == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv; charset=utf-8"
}

// Row is one projected week.
type Row struct {
	Week          int
	PopulationPct float64
	UserPct       float64
	WeightKg      float64
}

var csvHeader = []string{"week", "population_pct", "user_pct", "weight_kg"}

// Rows zips the parallel series of a result into rows.
func Rows(res roadmap.Result) []Row {
	rows := make([]Row, 0, len(res.Weeks))
	for i, w := range res.Weeks {
		rows = append(rows, Row{
			Week:          w,
			PopulationPct: res.PopulationPctSeries[i],
			UserPct:       res.UserLossPctSeries[i],
			WeightKg:      res.WeightKgSeries[i],
		})
	}
	return rows
}

// Write encodes res in the requested format.
func Write(w io.Writer, format Format, res roadmap.Result) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, Rows(res))
	case FormatParquet:
		b, err := MarshalParquet(Rows(res))
		if err != nil {
			return fmt.Errorf("write parquet: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func WriteCSV(out io.Writer, rows []Row) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Week),
			formatFloat(r.PopulationPct),
			formatFloat(r.UserPct),
			formatFloat(r.WeightKg),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
