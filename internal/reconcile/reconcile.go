// Package reconcile computes the headline budget figures: liquid cash
// versus the monthly target (the gap), the remaining allowance, and the
// potential balance once receivables land. The figures are advisory
// only; nothing is ever blocked on them.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/domain"
	"github.com/yumao/kakeibo/internal/ledger"
	"github.com/yumao/kakeibo/internal/sheets"
)

// BudgetSchedule is the fixed monthly allowance with per-month overrides.
type BudgetSchedule struct {
	Default   decimal.Decimal
	Overrides map[int]decimal.Decimal
}

// For returns the allowance for a calendar month.
func (b BudgetSchedule) For(month int) decimal.Decimal {
	if v, ok := b.Overrides[month]; ok {
		return v
	}
	return b.Default
}

// Health classifies the remaining allowance for the dashboard.
type Health string

const (
	HealthOK        Health = "ok"
	HealthLow       Health = "low"
	HealthOverspent Health = "overspent"
)

// lowWater is the remaining-allowance level below which the dashboard
// warns that funds are running out.
var lowWater = decimal.NewFromInt(50)

// Reader is the store surface the engine derives a snapshot from.
type Reader interface {
	sheets.LedgerRepository
	sheets.AssetRepository
	sheets.StatusRepository
	sheets.ProjectionRepository
}

// Snapshot is one full derivation of the dashboard state. All state
// lives in the spreadsheet; a snapshot is recomputed from a full re-read
// on every render.
type Snapshot struct {
	Month    int
	Revision int64

	Budget        decimal.Decimal
	SpentVariable decimal.Decimal
	Receivable    decimal.Decimal
	TotalLiquid   decimal.Decimal

	// Gap is liquid cash minus the monthly target. Derived reports
	// whether it was computed fresh; when no target row matched the
	// current month it falls back to the persisted mirror instead of
	// deriving a bogus figure from a zero target.
	Gap     decimal.Decimal
	Derived bool

	Surplus   decimal.Decimal
	Remaining decimal.Decimal
	Potential decimal.Decimal
	Health    Health

	Transactions []domain.Transaction // full ledger
	MonthRows    []domain.Transaction // current-month rows
	Assets       domain.AssetSheet
	Projection   []domain.ProjectionRow
}

// Engine derives snapshots from the spreadsheet state.
type Engine struct {
	store  Reader
	budget BudgetSchedule
	liquid []string // asset account names counted as liquid cash
	now    func() time.Time
	log    zerolog.Logger
}

// New creates an engine. liquid names the asset accounts whose sum is
// compared against the monthly target.
func New(store Reader, budget BudgetSchedule, liquid []string, log zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		budget: budget,
		liquid: liquid,
		now:    time.Now,
		log:    log,
	}
}

// WithClock overrides the engine's clock. Tests pin the current month
// with it.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Snapshot re-reads the store and derives every dashboard figure.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	status, err := e.store.ReadStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: read status: %w", err)
	}
	txs, err := e.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: read ledger: %w", err)
	}
	assets, err := e.store.ReadAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: read assets: %w", err)
	}
	projection, err := e.store.ReadProjection(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: read projection: %w", err)
	}

	month := int(e.now().Month())
	monthRows := ledger.ForMonth(txs, month)

	s := &Snapshot{
		Month:         month,
		Revision:      status.Revision,
		Budget:        e.budget.For(month),
		SpentVariable: ledger.VariableSpend(monthRows),
		Receivable:    ledger.OutstandingReceivable(txs),
		TotalLiquid:   assets.Liquid(e.liquid),
		Transactions:  txs,
		MonthRows:     monthRows,
		Assets:        assets,
		Projection:    projection,
	}

	if target, ok := domain.TargetFor(projection, month); ok {
		s.Gap = s.TotalLiquid.Sub(target)
		s.Derived = true
	} else {
		// No target row for this month: trust the last persisted gap
		// rather than deriving one from a zero target.
		s.Gap = status.Gap
		e.log.Warn().Int("month", month).Msg("No monthly target resolvable, using persisted gap")
	}

	s.Surplus = decimal.Max(decimal.Zero, s.Gap)
	s.Remaining = s.Budget.Add(s.Surplus).Sub(s.SpentVariable)
	s.Potential = s.Remaining.Add(s.Receivable)

	switch {
	case s.Remaining.IsNegative():
		s.Health = HealthOverspent
	case s.Remaining.LessThan(lowWater):
		s.Health = HealthLow
	default:
		s.Health = HealthOK
	}

	return s, nil
}

// HistoricalMonth derives the review figures for an arbitrary month from
// an already-loaded ledger, applying that month's budget.
func (e *Engine) HistoricalMonth(txs []domain.Transaction, month int) (rows []domain.Transaction, budget, spent, balance decimal.Decimal) {
	rows = ledger.ForMonth(txs, month)
	budget = e.budget.For(month)
	spent = ledger.VariableSpend(rows)
	balance = budget.Sub(spent)
	return rows, budget, spent, balance
}
