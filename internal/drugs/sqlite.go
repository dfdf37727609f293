package drugs

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// A drug reference database lets operators swap trial data without
// rebuilding. The registry reads it once at startup and never writes back.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS drug_profiles (
	drug_type        TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	unit             TEXT NOT NULL DEFAULT 'mg',
	trial            TEXT NOT NULL DEFAULT '',
	maintenance_dose REAL NOT NULL,
	half_life_days   REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS dose_steps (
	drug_type TEXT NOT NULL,
	position  INTEGER NOT NULL,
	dose      REAL NOT NULL,
	PRIMARY KEY (drug_type, position)
);

CREATE TABLE IF NOT EXISTS curve_points (
	drug_type      TEXT NOT NULL,
	week           INTEGER NOT NULL,
	percent_change REAL NOT NULL,
	PRIMARY KEY (drug_type, week)
);
`

type profileRow struct {
	DrugType        string  `db:"drug_type"`
	Name            string  `db:"name"`
	Unit            string  `db:"unit"`
	Trial           string  `db:"trial"`
	MaintenanceDose float64 `db:"maintenance_dose"`
	HalfLifeDays    float64 `db:"half_life_days"`
}

type doseRow struct {
	DrugType string  `db:"drug_type"`
	Position int     `db:"position"`
	Dose     float64 `db:"dose"`
}

type curveRow struct {
	DrugType      string  `db:"drug_type"`
	Week          int     `db:"week"`
	PercentChange float64 `db:"percent_change"`
}

func openSQLite(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// LoadSQLite builds a registry from a drug reference database.
func LoadSQLite(ctx context.Context, dbPath string) (*Registry, error) {
	// Opening a missing path would create an empty database.
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("drug database %s: %w", dbPath, err)
	}
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var rows []profileRow
	if err := db.SelectContext(ctx, &rows, `SELECT drug_type, name, unit, trial, maintenance_dose, half_life_days FROM drug_profiles ORDER BY drug_type`); err != nil {
		return nil, fmt.Errorf("load drug profiles: %w", err)
	}
	var doses []doseRow
	if err := db.SelectContext(ctx, &doses, `SELECT drug_type, position, dose FROM dose_steps ORDER BY drug_type, position`); err != nil {
		return nil, fmt.Errorf("load dose steps: %w", err)
	}
	var points []curveRow
	if err := db.SelectContext(ctx, &points, `SELECT drug_type, week, percent_change FROM curve_points ORDER BY drug_type, week`); err != nil {
		return nil, fmt.Errorf("load curve points: %w", err)
	}

	byType := map[string]*Profile{}
	profiles := make([]*Profile, 0, len(rows))
	for _, row := range rows {
		t, err := ParseDrugType(row.DrugType)
		if err != nil {
			return nil, err
		}
		p := &Profile{
			Type:            t,
			Name:            row.Name,
			Unit:            row.Unit,
			Trial:           row.Trial,
			MaintenanceDose: row.MaintenanceDose,
			HalfLifeDays:    row.HalfLifeDays,
		}
		byType[row.DrugType] = p
		profiles = append(profiles, p)
	}
	for _, d := range doses {
		p, ok := byType[d.DrugType]
		if !ok {
			return nil, fmt.Errorf("dose step references unknown profile %q", d.DrugType)
		}
		p.DoseSteps = append(p.DoseSteps, d.Dose)
	}
	for _, pt := range points {
		p, ok := byType[pt.DrugType]
		if !ok {
			return nil, fmt.Errorf("curve point references unknown profile %q", pt.DrugType)
		}
		p.ClinicalCurve = append(p.ClinicalCurve, CurvePoint{Week: pt.Week, PercentChange: pt.PercentChange})
	}

	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, *p)
	}
	return NewRegistry(out...)
}

// SaveSQLite writes every profile of r into the database at dbPath,
// replacing rows for the same drug types.
func SaveSQLite(ctx context.Context, dbPath string, r *Registry) error {
	db, err := openSQLite(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range r.Profiles() {
		key := string(p.Type)
		for _, stmt := range []string{
			`DELETE FROM dose_steps WHERE drug_type = ?`,
			`DELETE FROM curve_points WHERE drug_type = ?`,
			`DELETE FROM drug_profiles WHERE drug_type = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, key); err != nil {
				return fmt.Errorf("clear %s: %w", key, err)
			}
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO drug_profiles (drug_type, name, unit, trial, maintenance_dose, half_life_days)
			VALUES (:drug_type, :name, :unit, :trial, :maintenance_dose, :half_life_days)`, profileRow{
			DrugType:        key,
			Name:            p.Name,
			Unit:            p.Unit,
			Trial:           p.Trial,
			MaintenanceDose: p.MaintenanceDose,
			HalfLifeDays:    p.HalfLifeDays,
		}); err != nil {
			return fmt.Errorf("insert profile %s: %w", key, err)
		}
		for i, d := range p.DoseSteps {
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO dose_steps (drug_type, position, dose) VALUES (:drug_type, :position, :dose)`,
				doseRow{DrugType: key, Position: i, Dose: d}); err != nil {
				return fmt.Errorf("insert dose step %s/%d: %w", key, i, err)
			}
		}
		for _, pt := range p.ClinicalCurve {
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO curve_points (drug_type, week, percent_change) VALUES (:drug_type, :week, :percent_change)`,
				curveRow{DrugType: key, Week: pt.Week, PercentChange: pt.PercentChange}); err != nil {
				return fmt.Errorf("insert curve point %s/%d: %w", key, pt.Week, err)
			}
		}
	}
	return tx.Commit()
}
