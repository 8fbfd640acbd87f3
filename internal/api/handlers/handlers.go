package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/api/middleware"
	"github.com/yumao/kakeibo/internal/books"
	"github.com/yumao/kakeibo/internal/domain"
	"github.com/yumao/kakeibo/internal/ledger"
	"github.com/yumao/kakeibo/internal/reconcile"
	"github.com/yumao/kakeibo/internal/schedule"
	"github.com/yumao/kakeibo/internal/sheets"
)

// conflictRetries bounds how often a mutation is retried after losing an
// optimistic-concurrency race before surfacing 409 to the client.
const conflictRetries = 3

const conflictBackoff = 200 * time.Millisecond

// transactionJSON is the wire form of a ledger row.
type transactionJSON struct {
	Row         int     `json:"row"`
	Date        string  `json:"date"`
	Month       int     `json:"month"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Kind        string  `json:"kind"`
	Realized    float64 `json:"realized"`
	Cleared     bool    `json:"cleared"`
	Account     string  `json:"account,omitempty"`
	Marker      string  `json:"marker,omitempty"`
}

func toTransactionJSON(tx domain.Transaction) transactionJSON {
	date := ""
	if !tx.Date.IsZero() {
		date = tx.Date.String()
	}
	return transactionJSON{
		Row:         tx.Row,
		Date:        date,
		Month:       tx.Month,
		Description: tx.Description,
		Amount:      tx.Amount.InexactFloat64(),
		Kind:        string(tx.Kind),
		Realized:    tx.Realized.InexactFloat64(),
		Cleared:     tx.Cleared,
		Account:     tx.Account,
		Marker:      tx.Marker,
	}
}

func toTransactionsJSON(txs []domain.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	return out
}

// DashboardHandler serves the headline budget figures.
type DashboardHandler struct {
	engine *reconcile.Engine
	log    zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(engine *reconcile.Engine, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{engine: engine, log: log}
}

// Get handles GET /api/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to derive dashboard snapshot")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	// Latest five current-month rows, newest first, like the original
	// dashboard's recent-activity panel.
	recent := snap.MonthRows
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	reversed := make([]domain.Transaction, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		reversed = append(reversed, recent[i])
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"month":        snap.Month,
		"budget":       snap.Budget.InexactFloat64(),
		"spent":        snap.SpentVariable.InexactFloat64(),
		"remaining":    snap.Remaining.InexactFloat64(),
		"gap":          snap.Gap.InexactFloat64(),
		"gap_derived":  snap.Derived,
		"surplus":      snap.Surplus.InexactFloat64(),
		"receivable":   snap.Receivable.InexactFloat64(),
		"potential":    snap.Potential.InexactFloat64(),
		"total_liquid": snap.TotalLiquid.InexactFloat64(),
		"health":       string(snap.Health),
		"recent":       toTransactionsJSON(reversed),
	})
}

// LedgerHandler serves the monthly history review.
type LedgerHandler struct {
	engine *reconcile.Engine
	log    zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(engine *reconcile.Engine, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{engine: engine, log: log}
}

// Months handles GET /api/ledger/months
func (h *LedgerHandler) Months(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list ledger months")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load ledger")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"months": ledger.Months(snap.Transactions),
	})
}

// Month handles GET /api/ledger?month=N
func (h *LedgerHandler) Month(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load ledger")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load ledger")
		return
	}

	month := snap.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		month, err = strconv.Atoi(raw)
		if err != nil || month < 1 || month > 12 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid month")
			return
		}
	}

	rows, budget, spent, balance := h.engine.HistoricalMonth(snap.Transactions, month)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"month":   month,
		"budget":  budget.InexactFloat64(),
		"spent":   spent.InexactFloat64(),
		"balance": balance.InexactFloat64(),
		"entries": toTransactionsJSON(rows),
	})
}

// TransactionsHandler records transactions and toggles clearance.
type TransactionsHandler struct {
	engine *reconcile.Engine
	books  *books.Service
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(engine *reconcile.Engine, svc *books.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{engine: engine, books: svc, log: log}
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string  `json:"date"` // optional, YYYY-MM-DD
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Kind        string  `json:"kind"`
		Inflow      bool    `json:"inflow"`
		Account     string  `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var date civil.Date
	if req.Date != "" {
		var err error
		date, err = civil.ParseDate(req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date, want YYYY-MM-DD")
			return
		}
	}

	in := books.RecordInput{
		Date:        date,
		Description: req.Description,
		Amount:      decimal.NewFromFloat(req.Amount),
		Kind:        domain.ParseKind(req.Kind),
		Inflow:      req.Inflow,
		Account:     req.Account,
	}

	var recorded domain.Transaction
	err := h.withSnapshotRetry(r.Context(), func(snap *reconcile.Snapshot) error {
		var err error
		recorded, err = h.books.Record(r.Context(), snap, in)
		return err
	})
	if err != nil {
		h.writeMutationError(w, err, "Failed to record transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, toTransactionJSON(recorded))
}

// SetCleared handles POST /api/transactions/{row}/cleared
func (h *TransactionsHandler) SetCleared(w http.ResponseWriter, r *http.Request, rowStr string) {
	row, err := strconv.Atoi(rowStr)
	if err != nil || row <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction row")
		return
	}

	var req struct {
		Cleared bool `json:"cleared"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var updated domain.Transaction
	err = h.withSnapshotRetry(r.Context(), func(snap *reconcile.Snapshot) error {
		var err error
		updated, err = h.books.SetCleared(r.Context(), snap, row, req.Cleared)
		return err
	})
	if err != nil {
		h.writeMutationError(w, err, "Failed to toggle clearance")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toTransactionJSON(updated))
}

// withSnapshotRetry re-derives the snapshot and retries the mutation
// when it loses an optimistic-concurrency race with another session.
func (h *TransactionsHandler) withSnapshotRetry(ctx context.Context, fn func(*reconcile.Snapshot) error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * conflictBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var snap *reconcile.Snapshot
		snap, err = h.engine.Snapshot(ctx)
		if err != nil {
			return err
		}
		err = fn(snap)
		if !errors.Is(err, sheets.ErrRevisionConflict) {
			return err
		}
		h.log.Warn().Int("attempt", attempt+1).Msg("Revision conflict, retrying mutation")
	}
	return err
}

func (h *TransactionsHandler) writeMutationError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, sheets.ErrRevisionConflict):
		middleware.WriteError(w, http.StatusConflict, "Spreadsheet changed concurrently, please retry")
	case errors.Is(err, books.ErrUnknownAccount):
		middleware.WriteError(w, http.StatusBadRequest, "Unknown asset account")
	default:
		h.log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// AssetsHandler serves the asset overview.
type AssetsHandler struct {
	repo sheets.AssetRepository
	log  zerolog.Logger
}

// NewAssetsHandler creates a new assets handler.
func NewAssetsHandler(repo sheets.AssetRepository, log zerolog.Logger) *AssetsHandler {
	return &AssetsHandler{repo: repo, log: log}
}

// Get handles GET /api/assets
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	assets, err := h.repo.ReadAssets(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read assets")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load assets")
		return
	}

	type accountJSON struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	accounts := make([]accountJSON, 0, len(assets.Accounts))
	for _, a := range assets.Accounts {
		accounts = append(accounts, accountJSON{Name: a.Name, Value: a.Value.InexactFloat64()})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts":  accounts,
		"total":     assets.Total.InexactFloat64(),
		"has_total": assets.HasTotal,
	})
}

// ProjectionHandler serves the forward projection.
type ProjectionHandler struct {
	repo sheets.ProjectionRepository
	log  zerolog.Logger
}

// NewProjectionHandler creates a new projection handler.
func NewProjectionHandler(repo sheets.ProjectionRepository, log zerolog.Logger) *ProjectionHandler {
	return &ProjectionHandler{repo: repo, log: log}
}

// Get handles GET /api/projection
func (h *ProjectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ReadProjection(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read projection")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load projection")
		return
	}

	type rowJSON struct {
		Label     string  `json:"label"`
		Period    int     `json:"period"`
		Projected float64 `json:"projected"`
		Target    float64 `json:"target"`
	}
	out := make([]rowJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowJSON{
			Label:     row.MonthLabel,
			Period:    row.Period,
			Projected: row.Projected.InexactFloat64(),
			Target:    row.Target.InexactFloat64(),
		})
	}

	resp := map[string]interface{}{"rows": out}
	if len(out) > 0 {
		resp["final"] = out[len(out)-1]
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// WishlistHandler serves the shopping cooling-off list.
type WishlistHandler struct {
	repo sheets.WishlistRepository
	log  zerolog.Logger
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(repo sheets.WishlistRepository, log zerolog.Logger) *WishlistHandler {
	return &WishlistHandler{repo: repo, log: log}
}

// List handles GET /api/wishlist
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListWishlist(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read wishlist")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load wishlist")
		return
	}

	type itemJSON struct {
		Row        int     `json:"row"`
		Added      string  `json:"added"`
		Name       string  `json:"name"`
		Price      float64 `json:"price"`
		Desire     string  `json:"desire"`
		ReviewDate string  `json:"review_date"`
		Decision   string  `json:"decision"`
		Note       string  `json:"note"`
	}
	out := make([]itemJSON, 0, len(items))
	for _, it := range items {
		added := ""
		if !it.Added.IsZero() {
			added = it.Added.String()
		}
		out = append(out, itemJSON{
			Row:        it.Row,
			Added:      added,
			Name:       it.Name,
			Price:      it.Price.InexactFloat64(),
			Desire:     it.Desire,
			ReviewDate: it.ReviewDate,
			Decision:   it.Decision,
			Note:       it.Note,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": out,
		"count": len(out),
	})
}

// Add handles POST /api/wishlist
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string  `json:"name"`
		Price      float64 `json:"price"`
		Desire     string  `json:"desire"`
		ReviewDate string  `json:"review_date"`
		Decision   string  `json:"decision"`
		Note       string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Desire == "" {
		req.Desire = "3"
	}
	if req.Decision == "" {
		req.Decision = "defer"
	}

	item := domain.WishlistItem{
		Added:      civil.DateOf(time.Now()),
		Name:       req.Name,
		Price:      decimal.NewFromFloat(req.Price),
		Desire:     req.Desire,
		ReviewDate: req.ReviewDate,
		Decision:   req.Decision,
		Note:       req.Note,
	}
	if err := h.repo.AppendWishlist(r.Context(), item); err != nil {
		h.log.Error().Err(err).Msg("Failed to append wishlist item")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save wishlist item")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// TriggersHandler serves and fires scheduled fixed-cost actions.
type TriggersHandler struct {
	engine   *reconcile.Engine
	books    *books.Service
	triggers []schedule.Trigger
	now      func() time.Time
	log      zerolog.Logger
}

// NewTriggersHandler creates a new triggers handler.
func NewTriggersHandler(engine *reconcile.Engine, svc *books.Service, triggers []schedule.Trigger, log zerolog.Logger) *TriggersHandler {
	return &TriggersHandler{
		engine:   engine,
		books:    svc,
		triggers: triggers,
		now:      time.Now,
		log:      log,
	}
}

// List handles GET /api/triggers
func (h *TriggersHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to evaluate triggers")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load triggers")
		return
	}

	type triggerJSON struct {
		Key     string  `json:"key"`
		Label   string  `json:"label"`
		Amount  float64 `json:"amount"`
		Inflow  bool    `json:"inflow"`
		Day     int     `json:"day"`
		Account string  `json:"account"`
	}
	due := schedule.Due(h.triggers, snap.MonthRows, h.now())
	out := make([]triggerJSON, 0, len(due))
	for _, t := range due {
		out = append(out, triggerJSON{
			Key:     t.Key,
			Label:   t.Label,
			Amount:  t.Amount.InexactFloat64(),
			Inflow:  t.Inflow,
			Day:     t.Day,
			Account: t.Account,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"due":   out,
		"count": len(out),
	})
}

// Fire handles POST /api/triggers/{key}
func (h *TriggersHandler) Fire(w http.ResponseWriter, r *http.Request, key string) {
	trigger, ok := schedule.Find(h.triggers, key)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "Unknown trigger")
		return
	}

	now := h.now()
	snap, err := h.engine.Snapshot(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to evaluate trigger")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fire trigger")
		return
	}

	if now.Day() < trigger.Day {
		middleware.WriteError(w, http.StatusConflict, "Trigger is not due yet")
		return
	}
	if schedule.Fired(trigger, snap.MonthRows, now) {
		middleware.WriteError(w, http.StatusConflict, "Trigger already fired this month")
		return
	}

	recorded, err := h.books.Record(r.Context(), snap, books.RecordInput{
		Description: trigger.Label,
		Amount:      trigger.Amount,
		Kind:        domain.KindFixed,
		Inflow:      trigger.Inflow,
		Account:     trigger.Account,
		Marker:      schedule.MarkerFor(trigger.Key, now),
	})
	if err != nil {
		if errors.Is(err, sheets.ErrRevisionConflict) {
			middleware.WriteError(w, http.StatusConflict, "Spreadsheet changed concurrently, please retry")
			return
		}
		h.log.Error().Err(err).Str("trigger", key).Msg("Failed to fire trigger")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fire trigger")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, toTransactionJSON(recorded))
}
