package books

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/domain"
	"github.com/yumao/kakeibo/internal/reconcile"
	"github.com/yumao/kakeibo/internal/sheets"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// fakeMutator captures applied batches and can fail with a canned error.
type fakeMutator struct {
	applied []*sheets.MutationBatch
	err     error
}

func (f *fakeMutator) Apply(_ context.Context, batch *sheets.MutationBatch) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, batch)
	return nil
}

func june() time.Time {
	return time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
}

func testSnapshot() *reconcile.Snapshot {
	return &reconcile.Snapshot{
		Month:       6,
		Revision:    3,
		TotalLiquid: d(11500),
		Gap:         d(-500),
		Assets: domain.AssetSheet{
			Accounts: []domain.Account{
				{Row: 2, Name: "primary cash", Value: d(9500)},
				{Row: 3, Name: "secondary wallet", Value: d(2000)},
			},
		},
	}
}

func TestRecord_Reimbursable(t *testing.T) {
	mut := &fakeMutator{}
	svc := New(mut, zerolog.Nop()).WithClock(june)

	tx, err := svc.Record(context.Background(), testSnapshot(), RecordInput{
		Description: "lunch for the team",
		Amount:      d(500),
		Kind:        domain.KindReimbursable,
		Account:     "primary cash",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if tx.Realized.String() != "500" {
		t.Errorf("realized = %s, want 500", tx.Realized)
	}
	if tx.Cleared {
		t.Error("reimbursable row must start outstanding")
	}
	if tx.Month != 6 {
		t.Errorf("month = %d, want 6 (defaulted to today)", tx.Month)
	}

	if len(mut.applied) != 1 {
		t.Fatalf("applied %d batches, want 1", len(mut.applied))
	}
	batch := mut.applied[0]
	if batch.ExpectedRevision != 3 {
		t.Errorf("expected revision = %d, want 3", batch.ExpectedRevision)
	}
	if len(batch.Appends) != 1 {
		t.Fatalf("appends = %d, want 1", len(batch.Appends))
	}
	if len(batch.Accounts) != 1 || batch.Accounts[0].Row != 2 || batch.Accounts[0].Value.String() != "9000" {
		t.Errorf("account update = %+v, want row 2 → 9000", batch.Accounts)
	}
	if batch.Gap == nil || batch.Gap.String() != "-1000" {
		t.Errorf("gap mirror = %v, want -1000", batch.Gap)
	}
	if batch.Balance == nil || batch.Balance.String() != "11000" {
		t.Errorf("balance mirror = %v, want 11000", batch.Balance)
	}
}

func TestRecord_IncomeDefersCash(t *testing.T) {
	mut := &fakeMutator{}
	svc := New(mut, zerolog.Nop()).WithClock(june)

	_, err := svc.Record(context.Background(), testSnapshot(), RecordInput{
		Description: "invoice 42",
		Amount:      d(300),
		Kind:        domain.KindIncome,
		Account:     "primary cash",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	batch := mut.applied[0]
	if len(batch.Accounts) != 0 {
		t.Errorf("uncleared income must not touch any account, got %+v", batch.Accounts)
	}
	// Mirrors still refresh: a zero delta writes the same figures back.
	if batch.Gap == nil || batch.Gap.String() != "-500" {
		t.Errorf("gap mirror = %v, want -500", batch.Gap)
	}
}

func TestRecord_FixedInflow(t *testing.T) {
	mut := &fakeMutator{}
	svc := New(mut, zerolog.Nop()).WithClock(june)

	tx, err := svc.Record(context.Background(), testSnapshot(), RecordInput{
		Description: "salary",
		Amount:      d(4000),
		Kind:        domain.KindFixed,
		Inflow:      true,
		Account:     "primary cash",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if tx.Realized.String() != "-4000" {
		t.Errorf("realized = %s, want -4000", tx.Realized)
	}
	batch := mut.applied[0]
	if batch.Accounts[0].Value.String() != "13500" {
		t.Errorf("account value = %s, want 13500", batch.Accounts[0].Value)
	}
	if batch.Gap.String() != "3500" {
		t.Errorf("gap mirror = %s, want 3500", batch.Gap)
	}
}

func TestRecord_Validation(t *testing.T) {
	svc := New(&fakeMutator{}, zerolog.Nop()).WithClock(june)

	if _, err := svc.Record(context.Background(), testSnapshot(), RecordInput{
		Amount: d(10), Kind: domain.KindExpense, Account: "primary cash",
	}); err == nil {
		t.Error("expected error for missing description")
	}

	if _, err := svc.Record(context.Background(), testSnapshot(), RecordInput{
		Description: "x", Amount: d(0), Kind: domain.KindExpense, Account: "primary cash",
	}); err == nil {
		t.Error("expected error for non-positive amount")
	}
}

func TestRecord_UnknownAccount(t *testing.T) {
	svc := New(&fakeMutator{}, zerolog.Nop()).WithClock(june)

	_, err := svc.Record(context.Background(), testSnapshot(), RecordInput{
		Description: "coffee",
		Amount:      d(5),
		Kind:        domain.KindExpense,
		Account:     "mattress",
	})
	if !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("err = %v, want ErrUnknownAccount", err)
	}
}

func TestRecord_RevisionConflict(t *testing.T) {
	mut := &fakeMutator{err: sheets.ErrRevisionConflict}
	svc := New(mut, zerolog.Nop()).WithClock(june)

	_, err := svc.Record(context.Background(), testSnapshot(), RecordInput{
		Description: "coffee",
		Amount:      d(5),
		Kind:        domain.KindExpense,
		Account:     "primary cash",
	})
	if !errors.Is(err, sheets.ErrRevisionConflict) {
		t.Errorf("err = %v, want ErrRevisionConflict", err)
	}
}

func TestSetCleared_Reimbursable(t *testing.T) {
	snap := testSnapshot()
	snap.Transactions = []domain.Transaction{{
		Row:      5,
		Month:    6,
		Amount:   d(500),
		Kind:     domain.KindReimbursable,
		Realized: d(500),
		Cleared:  false,
		Account:  "primary cash",
	}}

	mut := &fakeMutator{}
	svc := New(mut, zerolog.Nop()).WithClock(june)

	tx, err := svc.SetCleared(context.Background(), snap, 5, true)
	if err != nil {
		t.Fatalf("SetCleared failed: %v", err)
	}
	if !tx.Cleared || !tx.Realized.IsZero() {
		t.Errorf("tx after clearing = cleared=%v realized=%s, want cleared with 0 realized", tx.Cleared, tx.Realized)
	}

	batch := mut.applied[0]
	if len(batch.Clearances) != 1 || batch.Clearances[0].Row != 5 || !batch.Clearances[0].Cleared {
		t.Fatalf("clearance update = %+v", batch.Clearances)
	}
	if batch.Accounts[0].Value.String() != "10000" {
		t.Errorf("account value = %s, want 10000 (repayment landed)", batch.Accounts[0].Value)
	}
	if batch.Gap.String() != "0" {
		t.Errorf("gap mirror = %s, want 0", batch.Gap)
	}
}

func TestSetCleared_Idempotent(t *testing.T) {
	snap := testSnapshot()
	snap.Transactions = []domain.Transaction{{
		Row:     5,
		Amount:  d(500),
		Kind:    domain.KindReimbursable,
		Cleared: false,
		Account: "primary cash",
	}}

	mut := &fakeMutator{}
	svc := New(mut, zerolog.Nop()).WithClock(june)

	if _, err := svc.SetCleared(context.Background(), snap, 5, false); err != nil {
		t.Fatalf("SetCleared failed: %v", err)
	}
	if len(mut.applied) != 0 {
		t.Errorf("no-op toggle applied %d batches, want 0", len(mut.applied))
	}
}

func TestSetCleared_UnknownRow(t *testing.T) {
	svc := New(&fakeMutator{}, zerolog.Nop()).WithClock(june)

	if _, err := svc.SetCleared(context.Background(), testSnapshot(), 99, true); err == nil {
		t.Error("expected error for unknown row")
	}
}
