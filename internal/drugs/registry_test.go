package drugs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func mustDefault(t *testing.T) *Registry {
	t.Helper()
	r, err := Default()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	return r
}

func TestDefaultRegistryInvariants(t *testing.T) {
	r := mustDefault(t)
	for _, want := range AllDrugTypes {
		p, err := r.Lookup(want)
		if err != nil {
			t.Fatalf("lookup %s: %v", want, err)
		}
		if p.ClinicalCurve[0] != (CurvePoint{Week: 0, PercentChange: 0}) {
			t.Fatalf("%s: curve must start at (0,0), got %+v", want, p.ClinicalCurve[0])
		}
		for i := 1; i < len(p.ClinicalCurve); i++ {
			if p.ClinicalCurve[i].Week <= p.ClinicalCurve[i-1].Week {
				t.Fatalf("%s: curve weeks not strictly increasing at %d", want, i)
			}
		}
		if len(p.DoseSteps) == 0 {
			t.Fatalf("%s: empty ladder", want)
		}
		if p.DoseIndex(p.MaintenanceDose) < 0 {
			t.Fatalf("%s: maintenance dose missing from ladder", want)
		}
	}
}

func TestPublishedReferencePoints(t *testing.T) {
	r := mustDefault(t)
	sema, _ := r.Lookup(Semaglutide)
	want := map[int]float64{4: -2.2, 8: -4.0}
	for _, pt := range sema.ClinicalCurve {
		if v, ok := want[pt.Week]; ok && v != pt.PercentChange {
			t.Fatalf("semaglutide week %d: got %v want %v", pt.Week, pt.PercentChange, v)
		}
	}
	tirz, _ := r.Lookup(Tirzepatide)
	if got := tirz.DoseSteps; len(got) != 6 || got[0] != 2.5 || got[5] != 15 {
		t.Fatalf("unexpected tirzepatide ladder: %v", got)
	}
}

func TestLookupUnknownDrugFailsLoudly(t *testing.T) {
	r := mustDefault(t)
	_, err := r.Lookup(DrugType("liraglutide"))
	var ue *UnknownDrugError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnknownDrugError, got %v", err)
	}
	if _, err := r.LookupName("retatrutide"); !errors.As(err, &ue) {
		t.Fatalf("expected UnknownDrugError for unknown name, got %v", err)
	}
}

func TestParseDrugTypeAliases(t *testing.T) {
	cases := map[string]DrugType{
		"Wegovy":      Semaglutide,
		" ozempic ":   Semaglutide,
		"SEMAGLUTIDE": Semaglutide,
		"zepbound":    Tirzepatide,
		"Mounjaro":    Tirzepatide,
		"tirzepatide": Tirzepatide,
	}
	for in, want := range cases {
		got, err := ParseDrugType(in)
		if err != nil || got != want {
			t.Fatalf("ParseDrugType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	r := mustDefault(t)
	p, _ := r.Lookup(Semaglutide)
	p.DoseSteps[0] = 99
	p.ClinicalCurve[1].PercentChange = -50
	again, _ := r.Lookup(Semaglutide)
	if again.DoseSteps[0] == 99 || again.ClinicalCurve[1].PercentChange == -50 {
		t.Fatal("registry profile was mutated through a lookup result")
	}
}

func TestNewRegistryRejectsBadProfiles(t *testing.T) {
	base := Profile{
		Type:            Semaglutide,
		Name:            "x",
		Unit:            "mg",
		DoseSteps:       []float64{1, 2},
		MaintenanceDose: 2,
		ClinicalCurve:   []CurvePoint{{0, 0}, {4, -1}},
	}
	cases := map[string]func(p *Profile){
		"empty ladder":        func(p *Profile) { p.DoseSteps = nil },
		"non increasing":      func(p *Profile) { p.DoseSteps = []float64{2, 2} },
		"maintenance missing": func(p *Profile) { p.MaintenanceDose = 3 },
		"curve not at zero":   func(p *Profile) { p.ClinicalCurve = []CurvePoint{{1, 0}} },
		"positive change":     func(p *Profile) { p.ClinicalCurve = []CurvePoint{{0, 0}, {4, 1}} },
		"weeks out of order":  func(p *Profile) { p.ClinicalCurve = []CurvePoint{{0, 0}, {4, -1}, {4, -2}} },
		"unknown type":        func(p *Profile) { p.Type = "other" },
	}
	for name, mutate := range cases {
		p := base.clone()
		mutate(&p)
		if _, err := NewRegistry(p); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if _, err := NewRegistry(base, base); err == nil {
		t.Fatal("expected duplicate profile error")
	}
	if _, err := NewRegistry(base); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}
}

func TestYAMLRoundTripThroughEncode(t *testing.T) {
	r := mustDefault(t)
	blob, err := r.EncodeYAML()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := LoadYAML(blob)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Types()) != len(r.Types()) {
		t.Fatalf("types mismatch: %v vs %v", again.Types(), r.Types())
	}
}

func TestLoadYAMLRejectsUnknownDrug(t *testing.T) {
	doc := []byte(`drugs:
  - type: liraglutide
    name: Saxenda
    maintenance_dose: 3
    dose_steps: [0.6, 1.2, 1.8, 2.4, 3]
    clinical_curve: [{week: 0, pct: 0}]
`)
	var ue *UnknownDrugError
	if _, err := LoadYAML(doc); !errors.As(err, &ue) {
		t.Fatalf("expected UnknownDrugError, got %v", err)
	}
}

func TestSQLiteSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "drugs.db")
	r := mustDefault(t)
	if err := SaveSQLite(ctx, dbPath, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving twice replaces rows instead of violating primary keys.
	if err := SaveSQLite(ctx, dbPath, r); err != nil {
		t.Fatalf("second save: %v", err)
	}
	loaded, err := LoadSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, dt := range r.Types() {
		want, _ := r.Lookup(dt)
		got, err := loaded.Lookup(dt)
		if err != nil {
			t.Fatalf("lookup %s: %v", dt, err)
		}
		if len(got.DoseSteps) != len(want.DoseSteps) || len(got.ClinicalCurve) != len(want.ClinicalCurve) {
			t.Fatalf("%s: shape mismatch got=%+v want=%+v", dt, got, want)
		}
		for i := range want.DoseSteps {
			if got.DoseSteps[i] != want.DoseSteps[i] {
				t.Fatalf("%s: dose %d got %v want %v", dt, i, got.DoseSteps[i], want.DoseSteps[i])
			}
		}
		for i := range want.ClinicalCurve {
			if got.ClinicalCurve[i] != want.ClinicalCurve[i] {
				t.Fatalf("%s: curve %d got %+v want %+v", dt, i, got.ClinicalCurve[i], want.ClinicalCurve[i])
			}
		}
		if got.MaintenanceDose != want.MaintenanceDose || got.Name != want.Name {
			t.Fatalf("%s: header mismatch got=%+v", dt, got)
		}
	}
}

func TestOpenPicksLoaderByExtension(t *testing.T) {
	ctx := context.Background()
	if r, err := Open(ctx, ""); err != nil || len(r.Types()) != len(AllDrugTypes) {
		t.Fatalf("embedded: %v", err)
	}
	dir := t.TempDir()
	blob, err := mustDefault(t).EncodeYAML()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	yamlPath := filepath.Join(dir, "drugs.yaml")
	if err := os.WriteFile(yamlPath, blob, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(ctx, yamlPath); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	dbPath := filepath.Join(dir, "drugs.db")
	if err := SaveSQLite(ctx, dbPath, mustDefault(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Open(ctx, dbPath); err != nil {
		t.Fatalf("sqlite: %v", err)
	}
}

func TestLoadSQLiteMissingFileDoesNotCreateOne(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"drugs.db", "drugs"} {
		path := filepath.Join(t.TempDir(), name)
		_, err := Open(ctx, path)
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s: expected not-exist error, got %v", name, err)
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Fatalf("%s: loading created a stray database file", name)
		}
	}
}
