package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Kind classifies a ledger row and drives its realized-cost and cash rules.
type Kind string

const (
	// KindExpense is an ordinary out-of-pocket purchase. Cash leaves the
	// owning account immediately and the full amount counts against the
	// monthly allowance.
	KindExpense Kind = "expense"

	// KindReimbursable is money advanced on someone else's behalf. Cash
	// leaves immediately and counts against the allowance while the
	// reimbursement is outstanding; once cleared the repayment restores
	// the account and the charge drops to zero.
	KindReimbursable Kind = "reimbursable"

	// KindIncome is money owed to the owner. It has no cash effect until
	// cleared.
	KindIncome Kind = "income"

	// KindFixed is a recurring scheduled entry (rent, payday, telecom).
	// Its cost is already baked into the allowance, so it never counts
	// toward variable spend.
	KindFixed Kind = "fixed"
)

// ParseKind maps a raw category cell to a Kind, defaulting to expense so
// that rows with a blank or unknown tag are never dropped from totals.
func ParseKind(raw string) Kind {
	switch Kind(raw) {
	case KindExpense, KindReimbursable, KindIncome, KindFixed:
		return Kind(raw)
	}
	return KindExpense
}

// Transaction is one parsed ledger row.
type Transaction struct {
	Row         int        // 1-based sheet row; 0 before the row is appended
	Date        civil.Date // zero when the date cell was blank
	Month       int        // resolved month number; 0 means undated
	Description string
	Amount      decimal.Decimal // nominal amount, always non-negative
	Kind        Kind
	Realized    decimal.Decimal // signed charge against the monthly allowance
	Cleared     bool
	Account     string // owning asset account name
	Marker      string // structured trigger marker, e.g. "fixed:telecom:2026-02"
}

// Outstanding reports whether the row represents money still owed to the
// owner: an uncleared reimbursable or income entry.
func (t Transaction) Outstanding() bool {
	return (t.Kind == KindReimbursable || t.Kind == KindIncome) && !t.Cleared
}

// RealizedAtRecord returns the realized cost a new transaction starts with.
// inflow only applies to fixed entries (payday is a fixed inflow).
func RealizedAtRecord(kind Kind, amount decimal.Decimal, inflow bool) decimal.Decimal {
	switch kind {
	case KindExpense:
		return amount
	case KindReimbursable:
		// Charged immediately: the cash is gone until the reimbursement clears.
		return amount
	case KindIncome:
		return decimal.Zero
	case KindFixed:
		if inflow {
			return amount.Neg()
		}
		return amount
	}
	return amount
}

// CashAtRecord returns the immediate delta to the owning account when a
// new transaction is recorded.
func CashAtRecord(kind Kind, amount decimal.Decimal, inflow bool) decimal.Decimal {
	switch kind {
	case KindExpense, KindReimbursable:
		return amount.Neg()
	case KindIncome:
		// Outstanding income has not arrived yet.
		return decimal.Zero
	case KindFixed:
		if inflow {
			return amount
		}
		return amount.Neg()
	}
	return amount.Neg()
}

// ClearedAtRecord returns the clearance status a new transaction starts
// with. Only reimbursable and income rows ever sit outstanding.
func ClearedAtRecord(kind Kind) bool {
	return kind == KindExpense || kind == KindFixed
}

// ClearanceChange describes the effect of flipping a row's cleared flag.
type ClearanceChange struct {
	Realized decimal.Decimal // new realized cost for the row
	Cash     decimal.Decimal // delta to the owning account (and the gap)
}

// Clearance computes the new realized cost and the account delta for
// toggling tx to the given cleared state. Applying outstanding→cleared
// followed by cleared→outstanding is a strict round trip.
func Clearance(tx Transaction, cleared bool) (ClearanceChange, error) {
	if tx.Kind != KindReimbursable && tx.Kind != KindIncome {
		return ClearanceChange{}, fmt.Errorf("clearance: %s rows have no outstanding state", tx.Kind)
	}
	if tx.Cleared == cleared {
		return ClearanceChange{Realized: tx.Realized}, nil
	}

	var ch ClearanceChange
	switch tx.Kind {
	case KindReimbursable:
		if cleared {
			// Repayment arrives: cash comes back, the charge is forgiven.
			ch.Realized = decimal.Zero
			ch.Cash = tx.Amount
		} else {
			ch.Realized = tx.Amount
			ch.Cash = tx.Amount.Neg()
		}
	case KindIncome:
		if cleared {
			ch.Realized = tx.Amount.Neg()
			ch.Cash = tx.Amount
		} else {
			ch.Realized = decimal.Zero
			ch.Cash = tx.Amount.Neg()
		}
	}
	return ch, nil
}
