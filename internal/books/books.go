// Package books records transactions and keeps the asset accounts and
// the gap mirror in sync with them. Every mutation is buffered into one
// batch and applied through a single store call against the snapshot's
// revision, so partial writes and silent lost updates cannot happen.
package books

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/domain"
	"github.com/yumao/kakeibo/internal/ledger"
	"github.com/yumao/kakeibo/internal/reconcile"
	"github.com/yumao/kakeibo/internal/sheets"
)

// ErrUnknownAccount is returned when a cash-moving transaction names an
// asset account that does not exist on the asset sheet.
var ErrUnknownAccount = errors.New("unknown asset account")

// Service applies recording and clearance mutations.
type Service struct {
	store sheets.Mutator
	now   func() time.Time
	log   zerolog.Logger
}

// New creates a recording service.
func New(store sheets.Mutator, log zerolog.Logger) *Service {
	return &Service{store: store, now: time.Now, log: log}
}

// WithClock overrides the service clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RecordInput describes a transaction to append.
type RecordInput struct {
	Date        civil.Date // zero means today
	Description string
	Amount      decimal.Decimal
	Kind        domain.Kind
	Inflow      bool   // fixed entries only: true for payday-style income
	Account     string // owning asset account
	Marker      string // set by scheduled triggers
}

func (in RecordInput) validate() error {
	if in.Description == "" {
		return errors.New("description is required")
	}
	if !in.Amount.GreaterThan(decimal.Zero) {
		return errors.New("amount must be positive")
	}
	return nil
}

// Record appends the transaction and propagates its immediate cash
// effect into the owning account and the gap mirror, all in one batch.
func (s *Service) Record(ctx context.Context, snap *reconcile.Snapshot, in RecordInput) (domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return domain.Transaction{}, fmt.Errorf("books: record: %w", err)
	}

	date := in.Date
	if date.IsZero() {
		date = civil.DateOf(s.now())
	}

	tx := domain.Transaction{
		Date:        date,
		Month:       int(date.Month),
		Description: in.Description,
		Amount:      in.Amount,
		Kind:        in.Kind,
		Realized:    domain.RealizedAtRecord(in.Kind, in.Amount, in.Inflow),
		Cleared:     domain.ClearedAtRecord(in.Kind),
		Account:     in.Account,
		Marker:      in.Marker,
	}

	batch := sheets.NewBatch(snap.Revision)
	batch.AppendTransaction(tx)

	cash := domain.CashAtRecord(in.Kind, in.Amount, in.Inflow)
	if err := s.bufferCashEffect(batch, snap, in.Account, cash); err != nil {
		return domain.Transaction{}, err
	}

	if err := s.store.Apply(ctx, batch); err != nil {
		return domain.Transaction{}, fmt.Errorf("books: record: %w", err)
	}

	s.log.Info().
		Str("kind", string(in.Kind)).
		Str("description", in.Description).
		Str("amount", in.Amount.String()).
		Str("account", in.Account).
		Msg("Transaction recorded")
	return tx, nil
}

// SetCleared flips the clearance status of the row'th ledger entry,
// rewriting its realized cost and moving the cash both ways. Toggling
// outstanding→cleared→outstanding restores the account and the gap
// exactly.
func (s *Service) SetCleared(ctx context.Context, snap *reconcile.Snapshot, row int, cleared bool) (domain.Transaction, error) {
	tx, ok := ledger.FindRow(snap.Transactions, row)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("books: set cleared: no transaction at row %d", row)
	}
	if tx.Cleared == cleared {
		return tx, nil // nothing to do; keep the toggle idempotent
	}

	ch, err := domain.Clearance(tx, cleared)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("books: set cleared: %w", err)
	}

	batch := sheets.NewBatch(snap.Revision)
	batch.UpdateClearance(row, ch.Realized, cleared)

	if err := s.bufferCashEffect(batch, snap, tx.Account, ch.Cash); err != nil {
		return domain.Transaction{}, err
	}

	if err := s.store.Apply(ctx, batch); err != nil {
		return domain.Transaction{}, fmt.Errorf("books: set cleared: %w", err)
	}

	tx.Cleared = cleared
	tx.Realized = ch.Realized
	s.log.Info().
		Int("row", row).
		Bool("cleared", cleared).
		Str("cash_delta", ch.Cash.String()).
		Msg("Clearance toggled")
	return tx, nil
}

// bufferCashEffect adds the account balance update and the status
// mirrors for a cash delta. A zero delta still refreshes the mirrors so
// the audit cell tracks every mutation.
func (s *Service) bufferCashEffect(batch *sheets.MutationBatch, snap *reconcile.Snapshot, account string, cash decimal.Decimal) error {
	if !cash.IsZero() {
		acc, ok := snap.Assets.Find(account)
		if !ok {
			return fmt.Errorf("books: %w: %q", ErrUnknownAccount, account)
		}
		batch.SetAccountValue(acc.Row, acc.Value.Add(cash))
	}
	batch.SetGap(snap.Gap.Add(cash))
	batch.SetBalance(snap.TotalLiquid.Add(cash))
	return nil
}
