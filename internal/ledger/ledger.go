// Package ledger turns parsed transaction rows into the aggregates the
// dashboard is built from. Everything here is a pure function over an
// in-memory snapshot; the spreadsheet is re-read on every render.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/domain"
)

// ForMonth filters rows to one calendar month. Month 0 rows (blank
// dates) are excluded from every monthly view.
func ForMonth(txs []domain.Transaction, month int) []domain.Transaction {
	if month == 0 {
		return nil
	}
	var out []domain.Transaction
	for _, tx := range txs {
		if tx.Month == month {
			out = append(out, tx)
		}
	}
	return out
}

// VariableSpend sums realized costs over non-fixed rows. Fixed rows are
// already baked into the allowance and must never contribute, whatever
// their realized value; rows with non-positive realized cost carry no
// charge.
func VariableSpend(txs []domain.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.Kind == domain.KindFixed {
			continue
		}
		if tx.Realized.GreaterThan(decimal.Zero) {
			sum = sum.Add(tx.Realized)
		}
	}
	return sum
}

// OutstandingReceivable sums the nominal amounts of uncleared
// reimbursable and income rows: money expected but not yet in any
// account. Outstanding items from earlier months are still owed, so this
// runs over the whole ledger, not one month.
func OutstandingReceivable(txs []domain.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.Outstanding() {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

// Months lists the distinct months present in the ledger, ascending,
// excluding undated rows.
func Months(txs []domain.Transaction) []int {
	seen := make(map[int]bool)
	for _, tx := range txs {
		if tx.Month > 0 {
			seen[tx.Month] = true
		}
	}
	out := make([]int, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// FindRow returns the transaction occupying the given sheet row.
func FindRow(txs []domain.Transaction, row int) (domain.Transaction, bool) {
	for _, tx := range txs {
		if tx.Row == row {
			return tx, true
		}
	}
	return domain.Transaction{}, false
}
