// Package engine owns the loaded dataset and answers every analytics
// operation over it. It is the single entry point the CLI, HTTP server, and
// query responder share.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"credlens/internal/config"
	"credlens/internal/dq"
	"credlens/internal/insights"
	"credlens/internal/logging"
	"credlens/internal/nlu"
	"credlens/internal/roster"
	"credlens/internal/store"
)

// Engine bundles the dataset with its flagged rows and summary. All reads
// are safe for concurrent use; Load swaps state atomically.
type Engine struct {
	cfg *config.Config

	mu    sync.RWMutex
	ds    *roster.Dataset
	rows  []dq.Row
	stats dq.Stats

	// store is optional; when present every Load persists a snapshot.
	store *store.Store

	// now is injectable for deterministic expiry math in tests.
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore attaches snapshot persistence.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an empty engine. Call Load before querying.
func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads the CSVs, runs validation and rules, and swaps in the new
// dataset. Safe to call again for reloads.
func (e *Engine) Load(ctx context.Context, paths roster.Paths) error {
	timer := logging.StartTimer(logging.CategoryIngest, "Engine.Load")
	defer timer.Stop()

	ds, err := roster.Load(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	rows := dq.Augment(ds, e.cfg, e.now())
	stats := dq.Summarize(rows, e.cfg.Scoring)

	e.mu.Lock()
	e.ds = ds
	e.rows = rows
	e.stats = stats
	e.mu.Unlock()

	if e.store != nil {
		if _, err := e.store.SaveSnapshot(ctx, filepath.Base(paths.Roster), stats); err != nil {
			// Snapshot failures should not block serving fresh data.
			logging.Get(logging.CategoryStore).Warn("Failed to persist snapshot: %v", err)
		}
	}

	logging.Ingest("Dataset loaded: %d providers, score %.1f", stats.TotalProviders, stats.Score)
	return nil
}

// Loaded reports whether a dataset is in memory.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ds != nil
}

// Dataset returns the raw loaded dataset.
func (e *Engine) Dataset() *roster.Dataset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ds
}

// Rows returns the flagged table.
func (e *Engine) Rows() []dq.Row {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rows
}

// Stats returns the current summary.
func (e *Engine) Stats() dq.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// QualityScore returns the weighted 0-100 score.
func (e *Engine) QualityScore() float64 {
	return e.Stats().Score
}

// CountExpired returns the number of rows with expired licenses.
func (e *Engine) CountExpired() int {
	return e.Stats().ExpiredLicenses.Count
}

// MissingNPI lists rows without an NPI.
func (e *Engine) MissingNPI() []dq.Row {
	return dq.MissingNPI(e.Rows())
}

// PhoneIssues lists rows whose phone failed normalization.
func (e *Engine) PhoneIssues() []dq.Row {
	return dq.PhoneIssues(e.Rows())
}

// Duplicates lists duplicate-suspect rows.
func (e *Engine) Duplicates() []dq.Row {
	return dq.Duplicates(e.Rows())
}

// MultiStateSingleLicense lists rows spanning states on one license.
func (e *Engine) MultiStateSingleLicense() []dq.Row {
	return dq.MultiState(e.Rows())
}

// StateIssueSummary groups issues by address state.
func (e *Engine) StateIssueSummary() []dq.StateSummary {
	return dq.SummarizeByState(e.Rows())
}

// SpecialtiesWithMostIssues groups issues by specialty, worst first.
func (e *Engine) SpecialtiesWithMostIssues() []dq.SpecialtySummary {
	return dq.SummarizeBySpecialty(e.Rows())
}

// FilterByExpirationWindow lists rows whose license expires within the
// window, soonest first.
func (e *Engine) FilterByExpirationWindow(days int) []dq.Row {
	if days <= 0 {
		days = e.cfg.Thresholds.ExpiryWindowDays
	}
	return dq.ExpiringWithin(e.Rows(), days, e.now())
}

// ComplianceReportExpired lists rows with expired licenses, most overdue
// first.
func (e *Engine) ComplianceReportExpired() []dq.Row {
	return dq.Expired(e.Rows())
}

// ExportUpdateList lists every row needing any correction.
func (e *Engine) ExportUpdateList() []dq.Row {
	return dq.UpdateList(e.Rows())
}

// Insights generates the rule-based narrative report.
func (e *Engine) Insights() *insights.Report {
	e.mu.RLock()
	rows, stats := e.rows, e.stats
	e.mu.RUnlock()
	return insights.Generate(rows, stats)
}

// History returns persisted score snapshots, newest first. Requires a store.
func (e *Engine) History(ctx context.Context, limit int) ([]store.Snapshot, error) {
	if e.store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	return e.store.History(ctx, limit)
}

// =============================================================================
// QUERY DISPATCH
// =============================================================================

// ResultKind describes the shape of a query result.
type ResultKind string

const (
	KindScore       ResultKind = "score"
	KindCount       ResultKind = "count"
	KindProviders   ResultKind = "providers"
	KindStates      ResultKind = "states"
	KindSpecialties ResultKind = "specialties"
)

// Result is a typed query answer. Exactly one payload field is populated,
// according to Kind.
type Result struct {
	Intent nlu.Intent `json:"intent"`
	Kind   ResultKind `json:"kind"`

	Score       float64               `json:"score,omitempty"`
	Count       int                   `json:"count,omitempty"`
	Providers   []dq.Row              `json:"providers,omitempty"`
	States      []dq.StateSummary     `json:"states,omitempty"`
	Specialties []dq.SpecialtySummary `json:"specialties,omitempty"`

	// Days echoes the window parameter for expiration queries.
	Days int `json:"days,omitempty"`
}

// RunQuery dispatches a classified intent to its operation.
func (e *Engine) RunQuery(intent nlu.Intent, params nlu.Params) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryRules, "Engine.RunQuery")
	defer timer.Stop()

	if !e.Loaded() {
		return nil, fmt.Errorf("no dataset loaded")
	}

	res := &Result{Intent: intent}
	switch intent {
	case nlu.IntentExpiredLicenseCount:
		res.Kind = KindCount
		res.Count = e.CountExpired()
	case nlu.IntentPhoneFormatIssues:
		res.Kind = KindProviders
		res.Providers = e.PhoneIssues()
	case nlu.IntentMissingNPI:
		res.Kind = KindProviders
		res.Providers = e.MissingNPI()
	case nlu.IntentDuplicateRecords:
		res.Kind = KindProviders
		res.Providers = e.Duplicates()
	case nlu.IntentOverallQualityScore:
		res.Kind = KindScore
		res.Score = e.QualityScore()
	case nlu.IntentSpecialtiesWithMostIssues:
		res.Kind = KindSpecialties
		res.Specialties = e.SpecialtiesWithMostIssues()
	case nlu.IntentStateIssueSummary:
		res.Kind = KindStates
		res.States = e.StateIssueSummary()
	case nlu.IntentComplianceReportExpired:
		res.Kind = KindProviders
		res.Providers = e.ComplianceReportExpired()
	case nlu.IntentFilterByExpirationWindow:
		days := params.Days
		if days <= 0 {
			days = e.cfg.Thresholds.ExpiryWindowDays
		}
		res.Kind = KindProviders
		res.Providers = e.FilterByExpirationWindow(days)
		res.Days = days
	case nlu.IntentMultiStateSingleLicense:
		res.Kind = KindProviders
		res.Providers = e.MultiStateSingleLicense()
	case nlu.IntentExportUpdateList:
		res.Kind = KindProviders
		res.Providers = e.ExportUpdateList()
	default:
		return nil, fmt.Errorf("unknown intent: %s", intent)
	}

	return res, nil
}
