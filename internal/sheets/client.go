package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yumao/kakeibo/internal/domain"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Ledger sheet columns: A date, B description, C nominal amount, D kind,
// E realized cost, F clearance status, G owning account, H trigger marker.
const (
	colDate = iota
	colDescription
	colAmount
	colKind
	colRealized
	colStatus
	colAccount
	colMarker
)

const (
	statusCleared     = "cleared"
	statusOutstanding = "outstanding"
)

// Status sheet layout: values live in column B, keys in column A.
// B2 = persisted gap, B3 = balance mirror, B4 = revision counter.
const (
	statusGapRow      = 2
	statusBalanceRow  = 3
	statusRevisionRow = 4
	statusValueCol    = 2
)

// assetValueCol is the asset sheet column holding the current value.
const assetValueCol = 2

// Config locates the spreadsheet and its worksheets.
type Config struct {
	SpreadsheetID    string
	CredentialsFile  string // service-account JSON; empty = application default credentials
	LedgerSheet      string
	AssetSheet       string
	StatusSheet      string
	WishlistSheet    string
	ProjectionSheet  string
	LedgerHeaderRows int    // rows to skip before data begins
	TotalName        string // asset row holding the grand total
}

// Client is the Google Sheets implementation of Store.
type Client struct {
	svc      *gsheets.Service
	cfg      Config
	sheetIDs map[string]int64
	now      func() time.Time
	log      zerolog.Logger
}

var _ Store = (*Client)(nil)

// New connects to the spreadsheet and resolves worksheet IDs. A failure
// here is fatal to the process; everything downstream degrades locally.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: missing spreadsheet ID")
	}

	svc, err := newService(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	meta, err := svc.Spreadsheets.Get(cfg.SpreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: open spreadsheet %s: %w", cfg.SpreadsheetID, err)
	}

	ids := make(map[string]int64, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}

	return &Client{
		svc:      svc,
		cfg:      cfg,
		sheetIDs: ids,
		now:      time.Now,
		log:      log,
	}, nil
}

// newService builds the Sheets service from a service-account key file,
// falling back to application default credentials.
func newService(ctx context.Context, credentialsFile string) (*gsheets.Service, error) {
	if credentialsFile == "" {
		return gsheets.NewService(ctx)
	}
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(b, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return gsheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
}

// ListTransactions reads the ledger sheet below its header block. A
// missing worksheet degrades to an empty ledger.
func (c *Client) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rng := fmt.Sprintf("%s!A%d:H", c.cfg.LedgerSheet, c.cfg.LedgerHeaderRows+1)
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if isMissingRange(err) {
			c.log.Warn().Str("sheet", c.cfg.LedgerSheet).Msg("Ledger sheet missing, treating as empty")
			return nil, nil
		}
		return nil, fmt.Errorf("sheets: read ledger: %w", err)
	}

	now := c.now()
	txs := make([]domain.Transaction, 0, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		date, month := ResolveDate(cellString(row, colDate), now)
		tx := domain.Transaction{
			Row:         c.cfg.LedgerHeaderRows + i + 1,
			Date:        date,
			Month:       month,
			Description: cellString(row, colDescription),
			Amount:      decimalFromCell(row, colAmount),
			Kind:        domain.ParseKind(cellString(row, colKind)),
			Realized:    decimalFromCell(row, colRealized),
			Cleared:     cellString(row, colStatus) != statusOutstanding,
			Account:     strings.TrimSpace(cellString(row, colAccount)),
			Marker:      cellString(row, colMarker),
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// ReadAssets reads the asset overview. The total row is split out so
// liquid-cash sums never double-count it.
func (c *Client) ReadAssets(ctx context.Context) (domain.AssetSheet, error) {
	rng := fmt.Sprintf("%s!A2:B", c.cfg.AssetSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if isMissingRange(err) {
			c.log.Warn().Str("sheet", c.cfg.AssetSheet).Msg("Asset sheet missing, treating as empty")
			return domain.AssetSheet{}, nil
		}
		return domain.AssetSheet{}, fmt.Errorf("sheets: read assets: %w", err)
	}

	var out domain.AssetSheet
	for i, row := range resp.Values {
		name := strings.TrimSpace(cellString(row, 0))
		if name == "" {
			continue
		}
		value := decimalFromCell(row, 1)
		if name == c.cfg.TotalName {
			out.Total = value
			out.HasTotal = true
			continue
		}
		out.Accounts = append(out.Accounts, domain.Account{
			Row:   i + 2,
			Name:  name,
			Value: value,
		})
	}
	return out, nil
}

// ReadStatus reads the persisted gap, balance mirror, and revision.
func (c *Client) ReadStatus(ctx context.Context) (Status, error) {
	rng := fmt.Sprintf("%s!B%d:B%d", c.cfg.StatusSheet, statusGapRow, statusRevisionRow)
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if isMissingRange(err) {
			c.log.Warn().Str("sheet", c.cfg.StatusSheet).Msg("Status sheet missing, using zero status")
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("sheets: read status: %w", err)
	}

	var st Status
	get := func(row int) decimal.Decimal {
		idx := row - statusGapRow
		if idx < 0 || idx >= len(resp.Values) {
			return decimal.Zero
		}
		return decimalFromCell(resp.Values[idx], 0)
	}
	st.Gap = get(statusGapRow)
	st.Balance = get(statusBalanceRow)
	st.Revision = get(statusRevisionRow).IntPart()
	return st, nil
}

// ReadProjection reads the forward-projection table.
func (c *Client) ReadProjection(ctx context.Context) ([]domain.ProjectionRow, error) {
	rng := fmt.Sprintf("%s!A2:E", c.cfg.ProjectionSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if isMissingRange(err) {
			c.log.Warn().Str("sheet", c.cfg.ProjectionSheet).Msg("Projection sheet missing, treating as empty")
			return nil, nil
		}
		return nil, fmt.Errorf("sheets: read projection: %w", err)
	}

	rows := make([]domain.ProjectionRow, 0, len(resp.Values))
	for _, row := range resp.Values {
		label := strings.TrimSpace(cellString(row, 0))
		if label == "" {
			continue
		}
		rows = append(rows, domain.ProjectionRow{
			MonthLabel: label,
			Period:     int(decimalFromCell(row, 1).IntPart()),
			Projected:  decimalFromCell(row, 2),
			Target:     decimalFromCell(row, 3),
		})
	}
	return rows, nil
}

// ListWishlist reads the cooling-off list.
func (c *Client) ListWishlist(ctx context.Context) ([]domain.WishlistItem, error) {
	rng := fmt.Sprintf("%s!A2:G", c.cfg.WishlistSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if isMissingRange(err) {
			c.log.Warn().Str("sheet", c.cfg.WishlistSheet).Msg("Wishlist sheet missing, treating as empty")
			return nil, nil
		}
		return nil, fmt.Errorf("sheets: read wishlist: %w", err)
	}

	now := c.now()
	items := make([]domain.WishlistItem, 0, len(resp.Values))
	for i, row := range resp.Values {
		name := strings.TrimSpace(cellString(row, 1))
		if name == "" {
			continue
		}
		added, _ := ResolveDate(cellString(row, 0), now)
		items = append(items, domain.WishlistItem{
			Row:        i + 2,
			Added:      added,
			Name:       name,
			Price:      decimalFromCell(row, 2),
			Desire:     cellString(row, 3),
			ReviewDate: cellString(row, 4),
			Decision:   cellString(row, 5),
			Note:       cellString(row, 6),
		})
	}
	return items, nil
}

// AppendWishlist appends one cooling-off row. Wishlist rows never touch
// the reconciliation state, so a plain append is enough here.
func (c *Client) AppendWishlist(ctx context.Context, item domain.WishlistItem) error {
	row := []interface{}{
		formatDate(item.Added),
		item.Name,
		decimalCell(item.Price),
		item.Desire,
		item.ReviewDate,
		item.Decision,
		item.Note,
	}
	vr := &gsheets.ValueRange{Values: [][]interface{}{row}}
	rng := fmt.Sprintf("%s!A:G", c.cfg.WishlistSheet)

	_, err := c.svc.Spreadsheets.Values.Append(c.cfg.SpreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: append wishlist row: %w", err)
	}
	return nil
}

// Apply executes a mutation batch as one spreadsheets.batchUpdate call.
// The revision cell is checked against the batch's snapshot revision
// first and bumped as part of the same call, so two sessions racing on
// the same snapshot fail loudly instead of overwriting each other.
func (c *Client) Apply(ctx context.Context, batch *MutationBatch) error {
	if batch.Empty() {
		return nil
	}

	st, err := c.ReadStatus(ctx)
	if err != nil {
		return err
	}
	if st.Revision != batch.ExpectedRevision {
		return fmt.Errorf("%w: snapshot at %d, store at %d",
			ErrRevisionConflict, batch.ExpectedRevision, st.Revision)
	}

	var reqs []*gsheets.Request

	if len(batch.Appends) > 0 {
		ledgerID, err := c.sheetID(c.cfg.LedgerSheet)
		if err != nil {
			return err
		}
		rows := make([]*gsheets.RowData, 0, len(batch.Appends))
		for _, tx := range batch.Appends {
			rows = append(rows, &gsheets.RowData{Values: transactionCells(tx)})
		}
		reqs = append(reqs, &gsheets.Request{
			AppendCells: &gsheets.AppendCellsRequest{
				SheetId: ledgerID,
				Rows:    rows,
				Fields:  "userEnteredValue",
			},
		})
	}

	for _, cl := range batch.Clearances {
		ledgerID, err := c.sheetID(c.cfg.LedgerSheet)
		if err != nil {
			return err
		}
		status := statusOutstanding
		if cl.Cleared {
			status = statusCleared
		}
		reqs = append(reqs, updateCellsReq(ledgerID, cl.Row, colRealized+1,
			numberCell(cl.Realized), stringCell(status)))
	}

	for _, acc := range batch.Accounts {
		assetID, err := c.sheetID(c.cfg.AssetSheet)
		if err != nil {
			return err
		}
		reqs = append(reqs, updateCellsReq(assetID, acc.Row, assetValueCol, numberCell(acc.Value)))
	}

	statusID, err := c.sheetID(c.cfg.StatusSheet)
	if err != nil {
		return err
	}
	if batch.Gap != nil {
		reqs = append(reqs, updateCellsReq(statusID, statusGapRow, statusValueCol, numberCell(*batch.Gap)))
	}
	if batch.Balance != nil {
		reqs = append(reqs, updateCellsReq(statusID, statusBalanceRow, statusValueCol, numberCell(*batch.Balance)))
	}
	reqs = append(reqs, updateCellsReq(statusID, statusRevisionRow, statusValueCol,
		numberCell(decimal.NewFromInt(st.Revision+1))))

	_, err = c.svc.Spreadsheets.BatchUpdate(c.cfg.SpreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: apply batch: %w", err)
	}

	c.log.Info().
		Int("appends", len(batch.Appends)).
		Int("clearances", len(batch.Clearances)).
		Int("accounts", len(batch.Accounts)).
		Int64("revision", st.Revision+1).
		Msg("Mutation batch applied")
	return nil
}

func (c *Client) sheetID(title string) (int64, error) {
	id, ok := c.sheetIDs[title]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSheetMissing, title)
	}
	return id, nil
}

// transactionCells renders a transaction into ledger-sheet cell values.
func transactionCells(tx domain.Transaction) []*gsheets.CellData {
	status := statusOutstanding
	if tx.Cleared {
		status = statusCleared
	}
	return []*gsheets.CellData{
		stringCell(formatDate(tx.Date)),
		stringCell(tx.Description),
		numberCell(tx.Amount),
		stringCell(string(tx.Kind)),
		numberCell(tx.Realized),
		stringCell(status),
		stringCell(tx.Account),
		stringCell(tx.Marker),
	}
}

// updateCellsReq builds a single-row update starting at the given
// 1-based row/column.
func updateCellsReq(sheetID int64, row, col int, cells ...*gsheets.CellData) *gsheets.Request {
	return &gsheets.Request{
		UpdateCells: &gsheets.UpdateCellsRequest{
			Start: &gsheets.GridCoordinate{
				SheetId:     sheetID,
				RowIndex:    int64(row - 1),
				ColumnIndex: int64(col - 1),
			},
			Rows:   []*gsheets.RowData{{Values: cells}},
			Fields: "userEnteredValue",
		},
	}
}

func stringCell(s string) *gsheets.CellData {
	return &gsheets.CellData{
		UserEnteredValue: &gsheets.ExtendedValue{StringValue: googleapi.String(s)},
	}
}

func numberCell(d decimal.Decimal) *gsheets.CellData {
	f, _ := d.Float64()
	return &gsheets.CellData{
		UserEnteredValue: &gsheets.ExtendedValue{NumberValue: googleapi.Float64(f)},
	}
}

func decimalCell(d decimal.Decimal) interface{} {
	f, _ := d.Float64()
	return f
}

// formatDate renders a date as the ledger's M/D convention; the zero
// date renders empty.
func formatDate(d civil.Date) string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d/%d", int(d.Month), d.Day)
}

// isMissingRange reports whether the API rejected a range because the
// worksheet does not exist (or was renamed).
func isMissingRange(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 400 && strings.Contains(apiErr.Message, "Unable to parse range")
}
