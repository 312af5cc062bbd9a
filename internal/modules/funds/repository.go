package funds

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// fundsColumns is the list of columns for the funds table.
// Column order must match scanFund expectations.
const fundsColumns = `fund_id, fund_name, fund_family, cash, created_at, updated_at`

// Repository handles fund database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new fund repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "funds").Logger(),
	}
}

// Create inserts a new fund and returns it with its assigned id
func (r *Repository) Create(fund Fund) (*Fund, error) {
	if err := fund.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create fund: %w", err)
	}

	result, err := r.db.Exec(
		`INSERT INTO funds (fund_name, fund_family, cash) VALUES (?, ?, ?)`,
		fund.Name, nullString(fund.Family), fund.Cash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fund: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get fund id: %w", err)
	}

	r.log.Info().Int64("fund_id", id).Str("fund_name", fund.Name).Msg("Fund created")
	return r.GetByID(id)
}

// GetByID retrieves a fund by id. Returns (nil, nil) when not found.
func (r *Repository) GetByID(id int64) (*Fund, error) {
	row := r.db.QueryRow("SELECT "+fundsColumns+" FROM funds WHERE fund_id = ?", id)
	fund, err := scanFund(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fund %d: %w", id, err)
	}
	return fund, nil
}

// GetAll retrieves all funds ordered by id
func (r *Repository) GetAll() ([]Fund, error) {
	rows, err := r.db.Query("SELECT " + fundsColumns + " FROM funds ORDER BY fund_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	var result []Fund
	for rows.Next() {
		fund, err := scanFundFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		result = append(result, *fund)
	}
	return result, rows.Err()
}

// Exists checks whether a fund with the given id exists
func (r *Repository) Exists(id int64) (bool, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM funds WHERE fund_id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check fund existence: %w", err)
	}
	return count > 0, nil
}

// UpdateCash sets the fund's cash balance
func (r *Repository) UpdateCash(id int64, cash float64) error {
	return r.updateCash(r.db, id, cash)
}

// UpdateCashTx sets the fund's cash balance within an existing transaction.
// Used by the trade writer so the cash change commits atomically with the
// holdings change.
func (r *Repository) UpdateCashTx(tx *sql.Tx, id int64, cash float64) error {
	return r.updateCash(tx, id, cash)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) updateCash(db execer, id int64, cash float64) error {
	if cash < 0 {
		return fmt.Errorf("fund %d cash cannot go negative (%.2f)", id, cash)
	}

	result, err := db.Exec(
		`UPDATE funds SET cash = ?, updated_at = datetime('now', '-5 hours') WHERE fund_id = ?`,
		cash, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update fund %d cash: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cash update for fund %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("fund %d not found", id)
	}
	return nil
}

// scanner abstracts sql.Row / sql.Rows for the scan helpers
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFund(row scanner) (*Fund, error) {
	var fund Fund
	var family sql.NullString
	err := row.Scan(&fund.ID, &fund.Name, &family, &fund.Cash, &fund.CreatedAt, &fund.UpdatedAt)
	if err != nil {
		return nil, err
	}
	fund.Family = family.String
	return &fund, nil
}

func scanFundFromRows(rows *sql.Rows) (*Fund, error) {
	return scanFund(rows)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
