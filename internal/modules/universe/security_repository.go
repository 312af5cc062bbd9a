package universe

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const securitiesColumns = `ticker, security_name, security_type, issuer_id, shares_outstanding`

// SecurityRepository handles security database operations
type SecurityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		db:  db,
		log: log.With().Str("repo", "securities").Logger(),
	}
}

// Create inserts a new security
func (r *SecurityRepository) Create(security Security) (*Security, error) {
	security.Ticker = CanonicalTicker(security.Ticker)
	if err := security.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create security: %w", err)
	}

	_, err := r.db.Exec(`
		INSERT INTO securities (ticker, security_name, security_type, issuer_id, shares_outstanding)
		VALUES (?, ?, ?, ?, ?)`,
		security.Ticker,
		security.Name,
		nullString(security.Type),
		security.IssuerID,
		nullInt64Ptr(security.SharesOutstanding),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create security %s: %w", security.Ticker, err)
	}

	r.log.Info().Str("ticker", security.Ticker).Msg("Security created")
	return r.GetByTicker(security.Ticker)
}

// GetByTicker retrieves a security by its canonical ticker.
// Returns (nil, nil) when not found.
func (r *SecurityRepository) GetByTicker(ticker string) (*Security, error) {
	row := r.db.QueryRow(
		"SELECT "+securitiesColumns+" FROM securities WHERE ticker = ?",
		CanonicalTicker(ticker),
	)
	security, err := scanSecurity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get security %s: %w", ticker, err)
	}
	return security, nil
}

// Exists checks whether a security with the given ticker exists
func (r *SecurityRepository) Exists(ticker string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM securities WHERE ticker = ?",
		CanonicalTicker(ticker),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check security existence: %w", err)
	}
	return count > 0, nil
}

// Search retrieves securities whose ticker or name matches the query.
// An empty query returns all securities.
func (r *SecurityRepository) Search(query string, limit int) ([]Security, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if query == "" {
		rows, err = r.db.Query(
			"SELECT "+securitiesColumns+" FROM securities ORDER BY ticker LIMIT ?", limit)
	} else {
		pattern := "%" + query + "%"
		rows, err = r.db.Query(
			"SELECT "+securitiesColumns+` FROM securities
			 WHERE ticker LIKE ? OR security_name LIKE ?
			 ORDER BY ticker LIMIT ?`,
			pattern, pattern, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search securities: %w", err)
	}
	defer rows.Close()

	var result []Security
	for rows.Next() {
		security, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		result = append(result, *security)
	}
	return result, rows.Err()
}

func scanSecurity(row scanner) (*Security, error) {
	var security Security
	var secType sql.NullString
	var sharesOut sql.NullInt64
	err := row.Scan(&security.Ticker, &security.Name, &secType, &security.IssuerID, &sharesOut)
	if err != nil {
		return nil, err
	}
	security.Type = secType.String
	if sharesOut.Valid {
		security.SharesOutstanding = &sharesOut.Int64
	}
	return &security, nil
}

func nullInt64Ptr(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
