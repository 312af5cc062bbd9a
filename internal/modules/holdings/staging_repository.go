package holdings

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const stagingColumns = `staging_id, fund_id, ticker, trade_id, shares`

// StagingRepository handles the transient post-trade projection rows.
// Scopes are keyed (fund_id, trade_id); concurrent compliance runs for
// distinct trades never see each other's rows.
type StagingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStagingRepository creates a new staging repository
func NewStagingRepository(db *sql.DB, log zerolog.Logger) *StagingRepository {
	return &StagingRepository{
		db:  db,
		log: log.With().Str("repo", "holdings_staging").Logger(),
	}
}

// CopyFromHoldings snapshots every current holding of the fund into the
// staging scope. The scope must be drained first if it was used before.
func (r *StagingRepository) CopyFromHoldings(fundID, tradeID int64) error {
	_, err := r.db.Exec(`
		INSERT INTO holdings_staging (fund_id, ticker, trade_id, shares)
		SELECT fund_id, ticker, ?, shares FROM holdings WHERE fund_id = ?`,
		tradeID, fundID)
	if err != nil {
		return fmt.Errorf("failed to copy holdings into staging scope %d/%d: %w", fundID, tradeID, err)
	}
	return nil
}

// Get retrieves one staged row. Returns (nil, nil) when absent.
func (r *StagingRepository) Get(fundID int64, ticker string, tradeID int64) (*StagedHolding, error) {
	row := r.db.QueryRow(
		"SELECT "+stagingColumns+` FROM holdings_staging
		 WHERE fund_id = ? AND ticker = ? AND trade_id = ?`,
		fundID, canonical(ticker), tradeID)
	staged, err := scanStaged(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get staged holding %d/%s/%d: %w", fundID, ticker, tradeID, err)
	}
	return staged, nil
}

// SetShares inserts or replaces the staged share count for (fund, ticker, trade)
func (r *StagingRepository) SetShares(fundID int64, ticker string, tradeID, shares int64) error {
	_, err := r.db.Exec(`
		INSERT INTO holdings_staging (fund_id, ticker, trade_id, shares)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (fund_id, ticker, trade_id) DO UPDATE SET shares = excluded.shares`,
		fundID, canonical(ticker), tradeID, shares)
	if err != nil {
		return fmt.Errorf("failed to set staged shares %d/%s/%d: %w", fundID, ticker, tradeID, err)
	}
	return nil
}

// Delete removes one staged row
func (r *StagingRepository) Delete(fundID int64, ticker string, tradeID int64) error {
	_, err := r.db.Exec(
		"DELETE FROM holdings_staging WHERE fund_id = ? AND ticker = ? AND trade_id = ?",
		fundID, canonical(ticker), tradeID)
	if err != nil {
		return fmt.Errorf("failed to delete staged holding %d/%s/%d: %w", fundID, ticker, tradeID, err)
	}
	return nil
}

// GetScope retrieves every staged row in a (fund, trade) scope
func (r *StagingRepository) GetScope(fundID, tradeID int64) ([]StagedHolding, error) {
	rows, err := r.db.Query(
		"SELECT "+stagingColumns+` FROM holdings_staging
		 WHERE fund_id = ? AND trade_id = ? ORDER BY ticker`,
		fundID, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging scope %d/%d: %w", fundID, tradeID, err)
	}
	defer rows.Close()

	var result []StagedHolding
	for rows.Next() {
		staged, err := scanStaged(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staged holding: %w", err)
		}
		result = append(result, *staged)
	}
	return result, rows.Err()
}

// GetJoinedScope retrieves the staged rows of a scope joined with their
// security and issuer attributes, in ticker order. This is the row set the
// rule engine evaluates.
func (r *StagingRepository) GetJoinedScope(fundID, tradeID int64) ([]StagedJoinedRow, error) {
	rows, err := r.db.Query(`
		SELECT hs.fund_id, hs.ticker, hs.shares,
		       s.security_name, s.security_type, s.shares_outstanding,
		       i.issuer_name, i.gics_sector, i.gics_industry_grp, i.gics_industry,
		       i.gics_sub_industry, i.country_domicile, i.country_incorporation,
		       i.country_domicile_code, i.country_incorporation_code
		FROM holdings_staging hs
		JOIN securities s ON s.ticker = hs.ticker
		JOIN issuers i ON i.issuer_id = s.issuer_id
		WHERE hs.fund_id = ? AND hs.trade_id = ?
		ORDER BY hs.ticker`,
		fundID, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to read joined staging scope %d/%d: %w", fundID, tradeID, err)
	}
	defer rows.Close()

	var result []StagedJoinedRow
	for rows.Next() {
		var row StagedJoinedRow
		var secType sql.NullString
		var sharesOut sql.NullInt64
		var sector, indGrp, ind, subInd, dom, inc, domCode, incCode sql.NullString
		err := rows.Scan(
			&row.FundID, &row.Ticker, &row.Shares,
			&row.SecurityName, &secType, &sharesOut,
			&row.IssuerName, &sector, &indGrp, &ind,
			&subInd, &dom, &inc, &domCode, &incCode,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan joined staged row: %w", err)
		}
		row.SecurityType = secType.String
		if sharesOut.Valid {
			row.SharesOutstanding = &sharesOut.Int64
		}
		row.GICSSector = sector.String
		row.GICSIndustryGrp = indGrp.String
		row.GICSIndustry = ind.String
		row.GICSSubIndustry = subInd.String
		row.CountryDomicile = dom.String
		row.CountryIncorporation = inc.String
		row.CountryDomicileCode = domCode.String
		row.CountryIncorporationCode = incCode.String
		result = append(result, row)
	}
	return result, rows.Err()
}

// Drain removes every staged row in a (fund, trade) scope
func (r *StagingRepository) Drain(fundID, tradeID int64) error {
	return r.drain(r.db, fundID, tradeID)
}

// DrainTx removes the scope within an existing transaction (used by the
// trade writer so the drain commits atomically with the holdings change).
func (r *StagingRepository) DrainTx(tx *sql.Tx, fundID, tradeID int64) error {
	return r.drain(tx, fundID, tradeID)
}

func (r *StagingRepository) drain(db execer, fundID, tradeID int64) error {
	_, err := db.Exec(
		"DELETE FROM holdings_staging WHERE fund_id = ? AND trade_id = ?",
		fundID, tradeID)
	if err != nil {
		return fmt.Errorf("failed to drain staging scope %d/%d: %w", fundID, tradeID, err)
	}
	return nil
}

func scanStaged(row scanner) (*StagedHolding, error) {
	var staged StagedHolding
	err := row.Scan(&staged.ID, &staged.FundID, &staged.Ticker, &staged.TradeID, &staged.Shares)
	if err != nil {
		return nil, err
	}
	return &staged, nil
}
