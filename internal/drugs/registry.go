package drugs

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfilesYAML []byte

// Registry holds the drug profiles loaded at process start. It is never
// mutated after construction, so concurrent Lookup calls need no locking.
type Registry struct {
	profiles map[DrugType]Profile
}

// NewRegistry validates every profile and builds a registry. Duplicate drug
// types are rejected.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[DrugType]Profile, len(profiles))}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.profiles[p.Type]; dup {
			return nil, fmt.Errorf("duplicate profile for %s", p.Type)
		}
		r.profiles[p.Type] = p.clone()
	}
	if len(r.profiles) == 0 {
		return nil, fmt.Errorf("registry has no profiles")
	}
	return r, nil
}

// Lookup returns a copy of the profile for t.
func (r *Registry) Lookup(t DrugType) (Profile, error) {
	p, ok := r.profiles[t]
	if !ok {
		return Profile{}, &UnknownDrugError{DrugType: string(t)}
	}
	return p.clone(), nil
}

// LookupName resolves a raw (possibly brand) name and looks it up.
func (r *Registry) LookupName(raw string) (Profile, error) {
	t, err := ParseDrugType(raw)
	if err != nil {
		return Profile{}, err
	}
	return r.Lookup(t)
}

// Types lists registered drugs in AllDrugTypes order.
func (r *Registry) Types() []DrugType {
	out := make([]DrugType, 0, len(r.profiles))
	for _, t := range AllDrugTypes {
		if _, ok := r.profiles[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Profiles returns copies of every registered profile.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, t := range r.Types() {
		out = append(out, r.profiles[t].clone())
	}
	return out
}

type profileFile struct {
	Drugs []profileDoc `yaml:"drugs"`
}

type profileDoc struct {
	Type            string       `yaml:"type"`
	Name            string       `yaml:"name"`
	Unit            string       `yaml:"unit"`
	Trial           string       `yaml:"trial"`
	HalfLifeDays    float64      `yaml:"half_life_days"`
	MaintenanceDose float64      `yaml:"maintenance_dose"`
	DoseSteps       []float64    `yaml:"dose_steps"`
	ClinicalCurve   []CurvePoint `yaml:"clinical_curve"`
}

// LoadYAML parses a profiles document into a registry.
func LoadYAML(blob []byte) (*Registry, error) {
	var doc profileFile
	if err := yaml.Unmarshal(blob, &doc); err != nil {
		return nil, fmt.Errorf("decode profiles yaml: %w", err)
	}
	profiles := make([]Profile, 0, len(doc.Drugs))
	for _, d := range doc.Drugs {
		t, err := ParseDrugType(d.Type)
		if err != nil {
			return nil, err
		}
		unit := d.Unit
		if unit == "" {
			unit = "mg"
		}
		profiles = append(profiles, Profile{
			Type:            t,
			Name:            d.Name,
			Unit:            unit,
			Trial:           d.Trial,
			DoseSteps:       d.DoseSteps,
			MaintenanceDose: d.MaintenanceDose,
			ClinicalCurve:   d.ClinicalCurve,
			HalfLifeDays:    d.HalfLifeDays,
		})
	}
	return NewRegistry(profiles...)
}

// LoadFile reads a profiles YAML document from disk.
func LoadFile(path string) (*Registry, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return LoadYAML(blob)
}

// Open loads a registry from path: empty means the embedded data, .yaml/.yml
// is a profiles document, anything else is a SQLite reference database.
func Open(ctx context.Context, path string) (*Registry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case "":
		if path == "" {
			return Default()
		}
		return LoadSQLite(ctx, path)
	case ".yaml", ".yml":
		return LoadFile(path)
	default:
		return LoadSQLite(ctx, path)
	}
}

// EncodeYAML renders the registry in the same shape LoadYAML accepts.
func (r *Registry) EncodeYAML() ([]byte, error) {
	doc := profileFile{}
	for _, p := range r.Profiles() {
		doc.Drugs = append(doc.Drugs, profileDoc{
			Type:            string(p.Type),
			Name:            p.Name,
			Unit:            p.Unit,
			Trial:           p.Trial,
			HalfLifeDays:    p.HalfLifeDays,
			MaintenanceDose: p.MaintenanceDose,
			DoseSteps:       p.DoseSteps,
			ClinicalCurve:   p.ClinicalCurve,
		})
	}
	return yaml.Marshal(doc)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the registry built from the embedded published trial data.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = LoadYAML(defaultProfilesYAML)
	})
	return defaultRegistry, defaultErr
}
