package holdings

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const holdingsColumns = `holding_id, fund_id, ticker, shares, updated_at`

// Repository handles real (committed) holding rows
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new holdings repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// GetByFund retrieves all holdings of a fund ordered by ticker
func (r *Repository) GetByFund(fundID int64) ([]Holding, error) {
	rows, err := r.db.Query(
		"SELECT "+holdingsColumns+" FROM holdings WHERE fund_id = ? ORDER BY ticker", fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings for fund %d: %w", fundID, err)
	}
	defer rows.Close()

	var result []Holding
	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		result = append(result, *holding)
	}
	return result, rows.Err()
}

// Get retrieves the holding of a fund in one ticker.
// Returns (nil, nil) when the fund does not hold the security.
func (r *Repository) Get(fundID int64, ticker string) (*Holding, error) {
	row := r.db.QueryRow(
		"SELECT "+holdingsColumns+" FROM holdings WHERE fund_id = ? AND ticker = ?",
		fundID, canonical(ticker))
	holding, err := scanHolding(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get holding %d/%s: %w", fundID, ticker, err)
	}
	return holding, nil
}

// Upsert inserts or replaces the holding shares for (fund, ticker)
func (r *Repository) Upsert(fundID int64, ticker string, shares int64) error {
	return r.upsert(r.db, fundID, ticker, shares)
}

// UpsertTx inserts or replaces the holding within an existing transaction
func (r *Repository) UpsertTx(tx *sql.Tx, fundID int64, ticker string, shares int64) error {
	return r.upsert(tx, fundID, ticker, shares)
}

// Delete removes the holding row for (fund, ticker)
func (r *Repository) Delete(fundID int64, ticker string) error {
	return r.delete(r.db, fundID, ticker)
}

// DeleteTx removes the holding row within an existing transaction
func (r *Repository) DeleteTx(tx *sql.Tx, fundID int64, ticker string) error {
	return r.delete(tx, fundID, ticker)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) upsert(db execer, fundID int64, ticker string, shares int64) error {
	if shares < 1 {
		return fmt.Errorf("holding shares must be at least 1, got %d", shares)
	}
	_, err := db.Exec(`
		INSERT INTO holdings (fund_id, ticker, shares)
		VALUES (?, ?, ?)
		ON CONFLICT (fund_id, ticker) DO UPDATE SET
			shares = excluded.shares,
			updated_at = datetime('now', '-5 hours')`,
		fundID, canonical(ticker), shares)
	if err != nil {
		return fmt.Errorf("failed to upsert holding %d/%s: %w", fundID, ticker, err)
	}
	return nil
}

func (r *Repository) delete(db execer, fundID int64, ticker string) error {
	_, err := db.Exec("DELETE FROM holdings WHERE fund_id = ? AND ticker = ?",
		fundID, canonical(ticker))
	if err != nil {
		return fmt.Errorf("failed to delete holding %d/%s: %w", fundID, ticker, err)
	}
	return nil
}

func scanHolding(row scanner) (*Holding, error) {
	var holding Holding
	err := row.Scan(&holding.ID, &holding.FundID, &holding.Ticker, &holding.Shares, &holding.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &holding, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func canonical(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
