package sheets

import (
	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/domain"
)

// ClearanceUpdate rewrites the realized-cost and status cells of an
// existing ledger row.
type ClearanceUpdate struct {
	Row      int // 1-based ledger sheet row
	Realized decimal.Decimal
	Cleared  bool
}

// AccountUpdate rewrites the current value of an asset account row.
type AccountUpdate struct {
	Row   int // 1-based asset sheet row
	Value decimal.Decimal
}

// MutationBatch buffers every write of one logical transaction: appended
// ledger rows, clearance rewrites, account balances, and the status
// mirrors. A Mutator applies the whole batch through a single store call
// so a crash can never leave the sheets half-updated.
type MutationBatch struct {
	ExpectedRevision int64 // revision the snapshot was read at

	Appends    []domain.Transaction
	Clearances []ClearanceUpdate
	Accounts   []AccountUpdate
	Gap        *decimal.Decimal
	Balance    *decimal.Decimal
}

// NewBatch starts a batch pinned to the given snapshot revision.
func NewBatch(revision int64) *MutationBatch {
	return &MutationBatch{ExpectedRevision: revision}
}

// AppendTransaction buffers a new ledger row.
func (b *MutationBatch) AppendTransaction(tx domain.Transaction) {
	b.Appends = append(b.Appends, tx)
}

// UpdateClearance buffers a realized/status rewrite for an existing row.
func (b *MutationBatch) UpdateClearance(row int, realized decimal.Decimal, cleared bool) {
	b.Clearances = append(b.Clearances, ClearanceUpdate{Row: row, Realized: realized, Cleared: cleared})
}

// SetAccountValue buffers a new balance for an asset account row.
func (b *MutationBatch) SetAccountValue(row int, value decimal.Decimal) {
	b.Accounts = append(b.Accounts, AccountUpdate{Row: row, Value: value})
}

// SetGap buffers the audit-mirror write of the gap scalar.
func (b *MutationBatch) SetGap(gap decimal.Decimal) {
	b.Gap = &gap
}

// SetBalance buffers the derived balance mirror write.
func (b *MutationBatch) SetBalance(balance decimal.Decimal) {
	b.Balance = &balance
}

// Empty reports whether the batch carries no writes.
func (b *MutationBatch) Empty() bool {
	return len(b.Appends) == 0 && len(b.Clearances) == 0 &&
		len(b.Accounts) == 0 && b.Gap == nil && b.Balance == nil
}
