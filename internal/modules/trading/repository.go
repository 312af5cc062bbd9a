package trading

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// tradesColumns is the list of columns for the trades table.
// Column order must match scanTrade expectations.
const tradesColumns = `trade_id, fund_id, ticker, side, shares, price, total_value,
	status, reason, created_at, updated_at`

// Repository handles trade database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new trade repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "trades").Logger(),
	}
}

// Create inserts a new trade in SUBMITTED and returns it with its id
func (r *Repository) Create(fundID int64, ticker, side string, shares int64) (*Trade, error) {
	result, err := r.db.Exec(`
		INSERT INTO trades (fund_id, ticker, side, shares, status)
		VALUES (?, ?, ?, ?, 'SUBMITTED')`,
		fundID, ticker, side, shares)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get trade id: %w", err)
	}

	r.log.Info().
		Int64("trade_id", id).
		Int64("fund_id", fundID).
		Str("ticker", ticker).
		Str("side", side).
		Int64("shares", shares).
		Msg("Trade created")
	return r.GetByID(id)
}

// GetByID retrieves a trade by id. Returns (nil, nil) when not found.
func (r *Repository) GetByID(id int64) (*Trade, error) {
	row := r.db.QueryRow("SELECT "+tradesColumns+" FROM trades WHERE trade_id = ?", id)
	trade, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trade %d: %w", id, err)
	}
	return trade, nil
}

// GetByFund retrieves a fund's trades, newest first.
func (r *Repository) GetByFund(fundID int64) ([]Trade, error) {
	rows, err := r.db.Query(
		"SELECT "+tradesColumns+" FROM trades WHERE fund_id = ? ORDER BY trade_id DESC",
		fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades for fund %d: %w", fundID, err)
	}
	defer rows.Close()

	var result []Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		result = append(result, *trade)
	}
	return result, rows.Err()
}

// SetStatus moves a trade to a new status, optionally recording a reason.
func (r *Repository) SetStatus(id int64, status, reason string) error {
	return r.setStatus(r.db, id, status, reason)
}

// SetStatusTx moves a trade to a new status within an existing transaction.
func (r *Repository) SetStatusTx(tx *sql.Tx, id int64, status, reason string) error {
	return r.setStatus(tx, id, status, reason)
}

func (r *Repository) setStatus(db execer, id int64, status, reason string) error {
	result, err := db.Exec(`
		UPDATE trades SET status = ?, reason = ?, updated_at = datetime('now', '-5 hours')
		WHERE trade_id = ?`,
		status, nullString(reason), id)
	if err != nil {
		return fmt.Errorf("failed to set trade %d status to %s: %w", id, status, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check trade status update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %d not found", id)
	}

	r.log.Info().Int64("trade_id", id).Str("status", status).Msg("Trade status changed")
	return nil
}

// SetPricing snapshots the execution price and total value onto the trade.
func (r *Repository) SetPricing(id int64, price, totalValue float64) error {
	result, err := r.db.Exec(`
		UPDATE trades SET price = ?, total_value = ?, updated_at = datetime('now', '-5 hours')
		WHERE trade_id = ?`,
		price, totalValue, id)
	if err != nil {
		return fmt.Errorf("failed to price trade %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check trade pricing update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %d not found", id)
	}
	return nil
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row scanner) (*Trade, error) {
	var trade Trade
	var price, totalValue sql.NullFloat64
	var reason sql.NullString

	err := row.Scan(&trade.ID, &trade.FundID, &trade.Ticker, &trade.Side, &trade.Shares,
		&price, &totalValue, &trade.Status, &reason, &trade.CreatedAt, &trade.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if price.Valid {
		trade.Price = &price.Float64
	}
	if totalValue.Valid {
		trade.TotalValue = &totalValue.Float64
	}
	trade.Reason = reason.String
	return &trade, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
