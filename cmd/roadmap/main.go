package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
	"github.com/joelkehle/glp1-roadmap/internal/export"
	"github.com/joelkehle/glp1-roadmap/internal/fitimport"
	"github.com/joelkehle/glp1-roadmap/internal/narrative"
	"github.com/joelkehle/glp1-roadmap/internal/report"
	"github.com/joelkehle/glp1-roadmap/internal/roadmap"
)

// inputFlags are forwarded to the engine under the same key. Only flags the
// user actually set are forwarded so the engine's defaults apply.
var inputFlags = []struct{ key, usage string }{
	{roadmap.KeyDrugType, "Medication: semaglutide|tirzepatide or a brand name (required)"},
	{roadmap.KeyDrugStatus, "PRE or ACTIVE"},
	{roadmap.KeyCurrentDose, "Current weekly dose in mg"},
	{roadmap.KeyCurrentWeek, "Weeks since the first dose"},
	{roadmap.KeyCurrentWeight, "Current weight in kg"},
	{roadmap.KeyStartWeight, "Weight at the first dose in kg"},
	{roadmap.KeyTargetWeight, "Target weight in kg"},
	{roadmap.KeyAge, "Age in years"},
	{roadmap.KeyMuscleMass, "low|average|high"},
	{roadmap.KeyBudget, "low|standard|premium"},
	{roadmap.KeyMainConcern, "plateau|side_effects|muscle_loss|cost|regain"},
	{roadmap.KeyDoseTrend, "STEADY|INCREASING|DECREASING"},
	{roadmap.KeyStopped, "true once the medication has been stopped"},
	{roadmap.KeyView, "full or forward"},
}

func main() {
	values := map[string]*string{}
	for _, f := range inputFlags {
		values[f.key] = flag.String(f.key, "", f.usage)
	}
	var (
		fitPath      = flag.String("fit", "", "Smart-scale FIT file to derive start/current weight and current week")
		drugDB       = flag.String("drug-db", "", "Drug profiles: .yaml file or SQLite database (default: embedded)")
		narratives   = flag.String("narratives", "", "Narrative templates YAML (default: embedded)")
		format       = flag.String("format", "json", "Output format: json|md|html|pdf")
		outputPath   = flag.String("output", "", "Path to write the analysis (defaults to stdout)")
		exportFormat = flag.String("export", "", "Also export the series: csv|parquet")
		exportPath   = flag.String("export-output", "", "Path for -export (default roadmap.<format>)")
		webDir       = flag.String("web-dir", "", "Directory containing style.css for html/pdf output")
	)
	flag.Parse()

	in := map[string]string{}
	flag.Visit(func(f *flag.Flag) {
		if v, ok := values[f.Name]; ok {
			in[f.Name] = *v
		}
	})
	if in[roadmap.KeyDrugType] == "" {
		log.Fatalf("missing required -%s", roadmap.KeyDrugType)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *fitPath != "" {
		summary, err := fitimport.ReadFile(*fitPath)
		if err != nil {
			log.Fatalf("import fit: %v", err)
		}
		summary.Apply(in)
		log.Printf("fit: %d samples, %.1f kg -> %.1f kg over %d weeks",
			summary.Samples, summary.Start.WeightKg, summary.Latest.WeightKg, summary.CurrentWeek)
	}

	reg, err := drugs.Open(ctx, *drugDB)
	if err != nil {
		log.Fatalf("load drug registry: %v", err)
	}
	table, err := narrative.Open(*narratives)
	if err != nil {
		log.Fatalf("load narrative templates: %v", err)
	}
	res, err := roadmap.NewEngine(reg, table).Analyze(in)
	if err != nil {
		log.Fatalf("analyze: %s: %v", roadmap.CodeOf(err), err)
	}
	for _, issue := range res.Issues {
		log.Printf("warning: %s: %s", issue.Code, issue.Message)
	}

	out, err := render(ctx, res, *format, *webDir)
	if err != nil {
		log.Fatalf("render %s: %v", *format, err)
	}
	if err := writeOutput(*outputPath, out); err != nil {
		log.Fatalf("write output: %v", err)
	}

	if *exportFormat != "" {
		ef, err := export.ParseFormat(*exportFormat)
		if err != nil {
			log.Fatal(err)
		}
		path := *exportPath
		if path == "" {
			path = "roadmap." + string(ef)
		}
		var buf bytes.Buffer
		if err := export.Write(&buf, ef, res); err != nil {
			log.Fatalf("export: %v", err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			log.Fatalf("write export: %v", err)
		}
	}
}

func render(ctx context.Context, res roadmap.Result, format, webDir string) ([]byte, error) {
	switch format {
	case "json":
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "md":
		return []byte(report.BuildMarkdown(res)), nil
	case "html":
		css, err := report.LoadStyle(webDir)
		if err != nil {
			return nil, err
		}
		doc, err := report.BuildHTML(res, css)
		return []byte(doc), err
	case "pdf":
		return report.NewChromiumPDFRenderer(webDir).Render(ctx, res)
	default:
		return nil, fmt.Errorf("unsupported format %q (expected json|md|html|pdf)", format)
	}
}

func writeOutput(path string, b []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
