package sheets

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/domain"
)

// ErrSheetMissing is returned when a worksheet or range cannot be
// resolved. Read paths degrade to empty results on it; write paths
// surface it.
var ErrSheetMissing = errors.New("worksheet missing")

// ErrRevisionConflict is returned when a mutation was built against a
// snapshot that is no longer current. Callers should re-read and retry.
var ErrRevisionConflict = errors.New("revision conflict")

// Status is the small key/value block on the status sheet. The persisted
// gap is an audit mirror of the derived figure; it is only read back when
// no monthly target resolves.
type Status struct {
	Gap      decimal.Decimal
	Balance  decimal.Decimal // derived balance mirror
	Revision int64           // optimistic-concurrency counter
}

// LedgerRepository reads raw transaction rows.
type LedgerRepository interface {
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
}

// AssetRepository reads the asset overview.
type AssetRepository interface {
	ReadAssets(ctx context.Context) (domain.AssetSheet, error)
}

// StatusRepository reads the persisted status block.
type StatusRepository interface {
	ReadStatus(ctx context.Context) (Status, error)
}

// ProjectionRepository reads the forward-projection table.
type ProjectionRepository interface {
	ReadProjection(ctx context.Context) ([]domain.ProjectionRow, error)
}

// WishlistRepository reads and appends cooling-off list rows.
type WishlistRepository interface {
	ListWishlist(ctx context.Context) ([]domain.WishlistItem, error)
	AppendWishlist(ctx context.Context, item domain.WishlistItem) error
}

// Mutator applies a buffered mutation batch as one atomic store call.
type Mutator interface {
	Apply(ctx context.Context, batch *MutationBatch) error
}

// Store is the full spreadsheet-backed repository surface.
type Store interface {
	LedgerRepository
	AssetRepository
	StatusRepository
	ProjectionRepository
	WishlistRepository
	Mutator
}
