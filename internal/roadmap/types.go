package roadmap

import (
	"time"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
)

const Disclaimer = "This roadmap projects population-average trial results onto your own numbers. " +
	"It is not medical advice and does not guarantee any individual outcome."

type DrugStatus string

const (
	StatusPre    DrugStatus = "PRE"
	StatusActive DrugStatus = "ACTIVE"
)

type DoseTrend string

const (
	TrendSteady     DoseTrend = "STEADY"
	TrendIncreasing DoseTrend = "INCREASING"
	TrendDecreasing DoseTrend = "DECREASING"
)

type MuscleMass string

const (
	MuscleLow     MuscleMass = "low"
	MuscleAverage MuscleMass = "average"
	MuscleHigh    MuscleMass = "high"
)

var AllMuscleMass = []MuscleMass{MuscleLow, MuscleAverage, MuscleHigh}

type BudgetTier string

const (
	BudgetLow      BudgetTier = "low"
	BudgetStandard BudgetTier = "standard"
	BudgetPremium  BudgetTier = "premium"
)

var AllBudgetTiers = []BudgetTier{BudgetLow, BudgetStandard, BudgetPremium}

type Concern string

const (
	ConcernPlateau     Concern = "plateau"
	ConcernSideEffects Concern = "side_effects"
	ConcernMuscleLoss  Concern = "muscle_loss"
	ConcernCost        Concern = "cost"
	ConcernRegain      Concern = "regain"
)

var AllConcerns = []Concern{ConcernPlateau, ConcernSideEffects, ConcernMuscleLoss, ConcernCost, ConcernRegain}

type Stage string

const (
	StagePreBridge     Stage = "PRE_BRIDGE"
	StageEscalation    Stage = "ESCALATION"
	StageMaintenance   Stage = "MAINTENANCE"
	StageTaper         Stage = "TAPER"
	StagePostCessation Stage = "POST_CESSATION"
)

var AllStages = []Stage{StagePreBridge, StageEscalation, StageMaintenance, StageTaper, StagePostCessation}

func (s Stage) Valid() bool {
	switch s {
	case StagePreBridge, StageEscalation, StageMaintenance, StageTaper, StagePostCessation:
		return true
	default:
		return false
	}
}

// PercentileBand places the user's observed progress against the trial average.
type PercentileBand string

const (
	BandPopulation PercentileBand = "POPULATION"
	BandAhead      PercentileBand = "AHEAD"
	BandOnTrack    PercentileBand = "ON_TRACK"
	BandBehind     PercentileBand = "BEHIND"
)

var AllBands = []PercentileBand{BandPopulation, BandAhead, BandOnTrack, BandBehind}

type View string

const (
	ViewFull    View = "full"
	ViewForward View = "forward"
)

// UserSnapshot is the fully typed, defaulted input to the engine.
type UserSnapshot struct {
	DrugType      drugs.DrugType `json:"drug_type"`
	Status        DrugStatus     `json:"drug_status"`
	CurrentDose   float64        `json:"current_dose"`
	CurrentWeek   int            `json:"current_week"`
	CurrentWeight float64        `json:"current_weight_kg"`
	StartWeight   float64        `json:"start_weight_kg,omitempty"`
	TargetWeight  float64        `json:"target_weight_kg"`
	Age           int            `json:"age"`
	MuscleMass    MuscleMass     `json:"muscle_mass"`
	Budget        BudgetTier     `json:"budget"`
	Concern       Concern        `json:"main_concern"`
	DoseTrend     DoseTrend      `json:"dose_trend"`
	Stopped       bool           `json:"stopped,omitempty"`
	View          View           `json:"view"`
	Defaulted     []string       `json:"defaulted,omitempty"`
}

// Narrative is the fixed-shape bundle of short display strings.
type Narrative struct {
	Headline   string `json:"headline"`
	G          string `json:"g"`
	P          string `json:"p"`
	S          string `json:"s"`
	Percentile string `json:"percentile"`
	ConcernTip string `json:"concern_tip,omitempty"`
}

// NarrativeKey selects one narrative from a template table.
type NarrativeKey struct {
	Stage      Stage
	Budget     BudgetTier
	MuscleMass MuscleMass
	Concern    Concern
	Band       PercentileBand
}

// NarrativeSource is the injected template table. Implementations are data
// lookups and must be deterministic.
type NarrativeSource interface {
	Narrative(key NarrativeKey) Narrative
}

// Anchor is the user's own observed (week, percent change) point.
type Anchor struct {
	Week          int     `json:"week"`
	PercentChange float64 `json:"percent_change"`
}

type Mode string

const (
	ModeComplete Mode = "COMPLETE"
	ModeDegraded Mode = "DEGRADED"
)

type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the single output of an analysis. It is recomputed on every call.
type Result struct {
	AnalysisID           string         `json:"analysis_id"`
	GeneratedAt          time.Time      `json:"generated_at"`
	DrugType             drugs.DrugType `json:"drug_type"`
	DrugName             string         `json:"drug_name"`
	Unit                 string         `json:"unit"`
	HalfLifeDays         float64        `json:"half_life_days"`
	Stage                Stage          `json:"stage"`
	Mode                 Mode           `json:"mode"`
	Weeks                []int          `json:"weeks"`
	UserLossPctSeries    []float64      `json:"user_loss_pct_series"`
	PopulationPctSeries  []float64      `json:"population_pct_series"`
	WeightKgSeries       []float64      `json:"weight_kg_series"`
	Schedule             []Step         `json:"schedule"`
	NextStep             *Step          `json:"next_step,omitempty"`
	MaintenanceEntryWeek int            `json:"maintenance_entry_week"`
	TargetWeek           *int           `json:"target_week,omitempty"`
	Anchor               *Anchor        `json:"anchor,omitempty"`
	ScaleFactor          float64        `json:"scale_factor"`
	Band                 PercentileBand `json:"percentile_band"`
	Narrative            Narrative      `json:"narrative"`
	Snapshot             UserSnapshot   `json:"snapshot"`
	Issues               []Issue        `json:"issues,omitempty"`
	Disclaimer           string         `json:"disclaimer"`
}
