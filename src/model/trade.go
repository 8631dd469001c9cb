package model

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/tradelog/backend/src/models"
	"github.com/username/tradelog/backend/src/utils"
)

var ErrTradeNotFound = errors.New("trade not found")

// Trade is the persistent journal entry. Status, pnl and pnl_percentage are
// derived by this package on every write; they are never accepted from input.
type Trade struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"-"`
	Symbol        string       `json:"symbol"`
	TradeType     string       `json:"trade_type"`
	EntryPrice    float64      `json:"entry_price"`
	ExitPrice     *float64     `json:"exit_price"`
	Quantity      float64      `json:"quantity"`
	EntryDate     time.Time    `json:"entry_date"`
	ExitDate      *time.Time   `json:"exit_date"`
	Commission    float64      `json:"commission"`
	PnL           *float64     `json:"pnl"`
	PnLPercentage *float64     `json:"pnl_percentage"`
	Notes         *string      `json:"notes"`
	Status        string       `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Images        []TradeImage `json:"images"`
}

// TradeList is the shaped result of one list request.
type TradeList struct {
	Trades     []Trade `json:"trades"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	TotalPages int     `json:"totalPages"`
	Limit      int     `json:"limit"`
}

// TradeUpdate carries a partial update; nil fields are left untouched.
// ClearExitPrice / ClearExitDate distinguish "set to NULL" from "not present",
// which a plain pointer cannot express.
type TradeUpdate struct {
	Symbol        *string
	TradeType     *string
	EntryPrice    *float64
	ExitPrice     *float64
	ClearExitPrice bool
	Quantity      *float64
	EntryDate     *time.Time
	ExitDate      *time.Time
	ClearExitDate bool
	Commission    *float64
	Notes         *string
}

const tradeColumns = `id, user_id, symbol, trade_type, entry_price, exit_price, quantity,
	entry_date, exit_date, commission, pnl, pnl_percentage, notes, status,
	created_at, updated_at`

// computeDerived fills status, pnl and pnl_percentage from the trade's own
// fields. A trade is CLOSED iff both exit price and exit date are set.
func (t *Trade) computeDerived() {
	if t.ExitPrice == nil || t.ExitDate == nil {
		t.Status = models.TradeStatusOpen
		t.PnL = nil
		t.PnLPercentage = nil
		return
	}

	t.Status = models.TradeStatusClosed

	var gross float64
	if t.TradeType == models.TradeTypeShort {
		gross = (t.EntryPrice - *t.ExitPrice) * t.Quantity
	} else {
		gross = (*t.ExitPrice - t.EntryPrice) * t.Quantity
	}
	pnl := utils.RoundFloat(gross-t.Commission, 8)
	t.PnL = &pnl

	cost := t.EntryPrice * t.Quantity
	if cost != 0 {
		pct := utils.RoundFloat(pnl/cost*100, 8)
		t.PnLPercentage = &pct
	} else {
		t.PnLPercentage = nil
	}
}

// tradeFilter accumulates WHERE predicates with their bound parameters.
// Predicate strings are fixed literals; user input only ever enters args.
type tradeFilter struct {
	conds []string
	args  []interface{}
}

func (f *tradeFilter) add(cond string, arg interface{}) {
	f.conds = append(f.conds, cond)
	f.args = append(f.args, arg)
}

func (f *tradeFilter) where() string {
	return strings.Join(f.conds, " AND ")
}

// buildTradeFilter assembles the shared predicate set for the count and data
// queries: the soft-delete and owner base predicates plus one predicate per
// filter actually present. Absent filters contribute nothing.
func buildTradeFilter(userID int64, opts models.TradeListOptions) *tradeFilter {
	f := &tradeFilter{}
	f.conds = append(f.conds, "deleted_at IS NULL")
	f.add("user_id = ?", userID)

	if opts.Status != "" {
		f.add("status = ?", opts.Status)
	}
	if opts.Symbol != "" {
		f.add("symbol = ?", opts.Symbol)
	}
	if opts.TradeType != "" {
		f.add("trade_type = ?", opts.TradeType)
	}
	if opts.DateFrom != nil {
		f.add("entry_date >= ?", *opts.DateFrom)
	}
	if opts.DateTo != nil {
		f.add("entry_date <= ?", *opts.DateTo)
	}
	return f
}

// orderByClause validates the sort column and direction against the fixed
// allow-lists before interpolating them. The handler validates upstream as
// well; this is the last line of defense for the identifier position.
func orderByClause(opts models.TradeListOptions) string {
	sortBy := opts.SortBy
	if !models.SortableTradeFields[sortBy] {
		sortBy = "entry_date"
	}
	sortDir := opts.SortDir
	if !models.IsValidSortDir(sortDir) {
		sortDir = models.SortDesc
	}
	return fmt.Sprintf("ORDER BY %s %s", sortBy, sortDir)
}

// ListTrades runs the filtered, sorted, paginated query plus a count query
// over the same predicates, then attaches images with one batched lookup.
func ListTrades(db *sql.DB, userID int64, opts models.TradeListOptions) (*TradeList, error) {
	f := buildTradeFilter(userID, opts)
	whereClause := f.where()

	var total int
	countQuery := "SELECT COUNT(*) FROM trades WHERE " + whereClause
	if err := db.QueryRow(countQuery, f.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("error counting trades for userID %d: %w", userID, err)
	}

	offset := (opts.Page - 1) * opts.Limit
	dataQuery := fmt.Sprintf("SELECT %s FROM trades WHERE %s %s LIMIT ? OFFSET ?",
		tradeColumns, whereClause, orderByClause(opts))

	args := append(append([]interface{}{}, f.args...), opts.Limit, offset)
	rows, err := db.Query(dataQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying trades for userID %d: %w", userID, err)
	}
	defer rows.Close()

	trades := []Trade{}
	for rows.Next() {
		var t Trade
		if err := scanTrade(rows.Scan, &t); err != nil {
			return nil, fmt.Errorf("error scanning trade row for userID %d: %w", userID, err)
		}
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over trade rows for userID %d: %w", userID, err)
	}

	if err := attachImages(db, trades); err != nil {
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + opts.Limit - 1) / opts.Limit
	}

	return &TradeList{
		Trades:     trades,
		Total:      total,
		Page:       opts.Page,
		TotalPages: totalPages,
		Limit:      opts.Limit,
	}, nil
}

// attachImages loads the images of all listed trades in one batched query and
// groups them by trade id. Trades without images get an empty, non-nil list.
func attachImages(db *sql.DB, trades []Trade) error {
	for i := range trades {
		trades[i].Images = []TradeImage{}
	}
	if len(trades) == 0 {
		return nil
	}

	ids := make([]int64, len(trades))
	for i, t := range trades {
		ids[i] = t.ID
	}

	imagesByTrade, err := GetImagesForTrades(db, ids)
	if err != nil {
		return err
	}
	for i := range trades {
		if imgs, ok := imagesByTrade[trades[i].ID]; ok {
			trades[i].Images = imgs
		}
	}
	return nil
}

func scanTrade(scan func(dest ...interface{}) error, t *Trade) error {
	return scan(
		&t.ID, &t.UserID, &t.Symbol, &t.TradeType, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
		&t.EntryDate, &t.ExitDate, &t.Commission, &t.PnL, &t.PnLPercentage, &t.Notes, &t.Status,
		&t.CreatedAt, &t.UpdatedAt,
	)
}

// GetTradeByID returns a non-deleted trade owned by userID, with its images.
func GetTradeByID(db *sql.DB, userID, tradeID int64) (*Trade, error) {
	query := fmt.Sprintf("SELECT %s FROM trades WHERE id = ? AND user_id = ? AND deleted_at IS NULL", tradeColumns)
	row := db.QueryRow(query, tradeID, userID)

	var t Trade
	if err := scanTrade(row.Scan, &t); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTradeNotFound
		}
		return nil, fmt.Errorf("error querying trade %d: %w", tradeID, err)
	}

	images, err := GetTradeImages(db, t.ID)
	if err != nil {
		return nil, err
	}
	t.Images = images
	return &t, nil
}

// CreateTrade inserts one trade from a validated candidate and returns it
// with derived fields populated and an empty image list.
func CreateTrade(db *sql.DB, userID int64, candidate models.TradeCandidate) (*Trade, error) {
	trade := tradeFromCandidate(userID, candidate)
	if err := insertTrade(db, trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// CreateTrades persists all candidates as new trades, or none. Rows are
// inserted sequentially inside a single transaction; the first failing insert
// rolls back everything already written.
func CreateTrades(db *sql.DB, userID int64, candidates []models.TradeCandidate) ([]Trade, error) {
	dbTx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(insertTradeQuery)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	created := make([]Trade, 0, len(candidates))
	for _, candidate := range candidates {
		trade := tradeFromCandidate(userID, candidate)
		res, err := stmt.Exec(insertTradeArgs(trade)...)
		if err != nil {
			return nil, fmt.Errorf("error inserting trade (symbol %s): %w", trade.Symbol, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("error resolving inserted trade id: %w", err)
		}
		trade.ID = id
		created = append(created, *trade)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing trades: %w", err)
	}
	return created, nil
}

const insertTradeQuery = `
	INSERT INTO trades (user_id, symbol, trade_type, entry_price, exit_price, quantity,
		entry_date, exit_date, commission, pnl, pnl_percentage, notes, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertTradeArgs(t *Trade) []interface{} {
	return []interface{}{
		t.UserID, t.Symbol, t.TradeType, t.EntryPrice, t.ExitPrice, t.Quantity,
		t.EntryDate, t.ExitDate, t.Commission, t.PnL, t.PnLPercentage, t.Notes, t.Status,
		t.CreatedAt, t.UpdatedAt,
	}
}

func insertTrade(db *sql.DB, trade *Trade) error {
	res, err := db.Exec(insertTradeQuery, insertTradeArgs(trade)...)
	if err != nil {
		return fmt.Errorf("error inserting trade (symbol %s): %w", trade.Symbol, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error resolving inserted trade id: %w", err)
	}
	trade.ID = id
	return nil
}

func tradeFromCandidate(userID int64, c models.TradeCandidate) *Trade {
	now := time.Now()
	t := &Trade{
		UserID:     userID,
		Symbol:     c.Symbol,
		TradeType:  c.TradeType,
		Quantity:   derefFloat(c.Quantity),
		EntryPrice: derefFloat(c.EntryPrice),
		ExitPrice:  c.ExitPrice,
		ExitDate:   c.ExitDate,
		Commission: c.Commission,
		Notes:      c.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
		Images:     []TradeImage{},
	}
	if c.EntryDate != nil {
		t.EntryDate = *c.EntryDate
	}
	t.computeDerived()
	return t
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// UpdateTrade applies a partial update and recomputes the derived fields.
// Returns the updated trade with its images, or ErrTradeNotFound.
func UpdateTrade(db *sql.DB, userID, tradeID int64, update TradeUpdate) (*Trade, error) {
	current, err := GetTradeByID(db, userID, tradeID)
	if err != nil {
		return nil, err
	}

	if update.Symbol != nil {
		current.Symbol = *update.Symbol
	}
	if update.TradeType != nil {
		current.TradeType = *update.TradeType
	}
	if update.EntryPrice != nil {
		current.EntryPrice = *update.EntryPrice
	}
	if update.ClearExitPrice {
		current.ExitPrice = nil
	} else if update.ExitPrice != nil {
		current.ExitPrice = update.ExitPrice
	}
	if update.Quantity != nil {
		current.Quantity = *update.Quantity
	}
	if update.EntryDate != nil {
		current.EntryDate = *update.EntryDate
	}
	if update.ClearExitDate {
		current.ExitDate = nil
	} else if update.ExitDate != nil {
		current.ExitDate = update.ExitDate
	}
	if update.Commission != nil {
		current.Commission = *update.Commission
	}
	if update.Notes != nil {
		current.Notes = update.Notes
	}

	current.UpdatedAt = time.Now()
	current.computeDerived()

	res, err := db.Exec(`
	UPDATE trades
	SET symbol = ?, trade_type = ?, entry_price = ?, exit_price = ?, quantity = ?,
	    entry_date = ?, exit_date = ?, commission = ?, pnl = ?, pnl_percentage = ?,
	    notes = ?, status = ?, updated_at = ?
	WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		current.Symbol, current.TradeType, current.EntryPrice, current.ExitPrice, current.Quantity,
		current.EntryDate, current.ExitDate, current.Commission, current.PnL, current.PnLPercentage,
		current.Notes, current.Status, current.UpdatedAt,
		tradeID, userID)
	if err != nil {
		return nil, fmt.Errorf("error updating trade %d: %w", tradeID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrTradeNotFound
	}
	return current, nil
}

// SoftDeleteTrade marks a trade deleted without touching its images.
func SoftDeleteTrade(db *sql.DB, userID, tradeID int64) error {
	res, err := db.Exec(`UPDATE trades SET deleted_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		time.Now(), tradeID, userID)
	if err != nil {
		return fmt.Errorf("error soft-deleting trade %d: %w", tradeID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTradeNotFound
	}
	return nil
}

// HardDeleteTrade removes the row permanently. Image rows go with it via the
// foreign-key cascade; the caller is responsible for the files on disk.
func HardDeleteTrade(db *sql.DB, userID, tradeID int64) error {
	res, err := db.Exec(`DELETE FROM trades WHERE id = ? AND user_id = ?`, tradeID, userID)
	if err != nil {
		return fmt.Errorf("error hard-deleting trade %d: %w", tradeID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTradeNotFound
	}
	return nil
}

// GetUniqueSymbols lists the distinct symbols of a user's live trades.
func GetUniqueSymbols(db *sql.DB, userID int64) ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT symbol FROM trades WHERE deleted_at IS NULL AND user_id = ? ORDER BY symbol`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying symbols for userID %d: %w", userID, err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
