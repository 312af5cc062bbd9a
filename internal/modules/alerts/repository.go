package alerts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// alertsColumns is the list of columns for the alerts table.
// Column order must match scanAlert expectations.
const alertsColumns = `alert_id, rule_id, fund_id, trade_id, calculated_percent,
	triggering_holdings, status, override_reason, created_at, updated_at`

// Repository handles alert database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new alert repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "alerts").Logger(),
	}
}

// Create inserts a pending alert and returns it with its assigned id
func (r *Repository) Create(alert Alert) (*Alert, error) {
	result, err := r.db.Exec(`
		INSERT INTO alerts (rule_id, fund_id, trade_id, calculated_percent, triggering_holdings, status)
		VALUES (?, ?, ?, ?, ?, 'pending')`,
		alert.RuleID, alert.FundID, alert.TradeID, alert.CalculatedPercent,
		nullString(alert.TriggeringHoldings),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get alert id: %w", err)
	}

	r.log.Info().
		Int64("alert_id", id).
		Int64("rule_id", alert.RuleID).
		Int64("fund_id", alert.FundID).
		Msg("Alert created")
	return r.GetByID(id)
}

// GetByID retrieves an alert by id. Returns (nil, nil) when not found.
func (r *Repository) GetByID(id int64) (*Alert, error) {
	row := r.db.QueryRow("SELECT "+alertsColumns+" FROM alerts WHERE alert_id = ?", id)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alert %d: %w", id, err)
	}
	return alert, nil
}

// List retrieves alerts matching the filter, newest first.
func (r *Repository) List(filter Filter) ([]Alert, error) {
	query := "SELECT " + alertsColumns + " FROM alerts"
	var clauses []string
	var args []interface{}

	if filter.FundID > 0 {
		clauses = append(clauses, "fund_id = ?")
		args = append(args, filter.FundID)
	}
	if filter.RuleID > 0 {
		clauses = append(clauses, "rule_id = ?")
		args = append(args, filter.RuleID)
	}
	if filter.TradeID != nil {
		clauses = append(clauses, "trade_id = ?")
		args = append(args, *filter.TradeID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.From != "" {
		clauses = append(clauses, "date(created_at) >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		clauses = append(clauses, "date(created_at) <= ?")
		args = append(args, filter.To)
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY alert_id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var result []Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		result = append(result, *alert)
	}
	return result, rows.Err()
}

// GetPendingByTrade retrieves the pending alerts on a trade in alert-id order.
func (r *Repository) GetPendingByTrade(tradeID int64) ([]Alert, error) {
	rows, err := r.db.Query(
		"SELECT "+alertsColumns+` FROM alerts
		 WHERE trade_id = ? AND status = 'pending' ORDER BY alert_id`,
		tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending alerts for trade %d: %w", tradeID, err)
	}
	defer rows.Close()

	var result []Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		result = append(result, *alert)
	}
	return result, rows.Err()
}

// CountPendingByTrade counts the unresolved alerts gating a trade.
func (r *Repository) CountPendingByTrade(tradeID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM alerts WHERE trade_id = ? AND status = 'pending'",
		tradeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending alerts for trade %d: %w", tradeID, err)
	}
	return count, nil
}

// Override marks a pending alert overridden with the operator's reason.
// Returns false when the alert was not pending (no row updated).
func (r *Repository) Override(id int64, reason string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE alerts SET status = 'overridden', override_reason = ?,
			updated_at = datetime('now', '-5 hours')
		WHERE alert_id = ? AND status = 'pending'`,
		reason, id)
	if err != nil {
		return false, fmt.Errorf("failed to override alert %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check alert override: %w", err)
	}
	return affected > 0, nil
}

// Cancel marks a pending alert cancelled. Returns false when the alert was
// not pending.
func (r *Repository) Cancel(id int64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE alerts SET status = 'cancelled', updated_at = datetime('now', '-5 hours')
		WHERE alert_id = ? AND status = 'pending'`,
		id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel alert %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check alert cancel: %w", err)
	}
	return affected > 0, nil
}

// CancelPendingByTrade cancels every pending alert on a trade. Returns the
// cancelled alert ids.
func (r *Repository) CancelPendingByTrade(tradeID int64) ([]int64, error) {
	pending, err := r.GetPendingByTrade(tradeID)
	if err != nil {
		return nil, err
	}

	var cancelled []int64
	for _, alert := range pending {
		ok, err := r.Cancel(alert.ID)
		if err != nil {
			return cancelled, err
		}
		if ok {
			cancelled = append(cancelled, alert.ID)
		}
	}
	return cancelled, nil
}

// GetSummary computes the status counters and the rolling 24-hour count.
func (r *Repository) GetSummary() (*Summary, error) {
	var summary Summary
	err := r.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN status = 'pending' THEN 1 END),
			COUNT(CASE WHEN status = 'overridden' THEN 1 END),
			COUNT(CASE WHEN status = 'cancelled' THEN 1 END),
			COUNT(CASE WHEN created_at >= datetime('now', '-5 hours', '-24 hours') THEN 1 END)
		FROM alerts`).Scan(&summary.Pending, &summary.Overridden, &summary.Cancelled, &summary.Last24h)
	if err != nil {
		return nil, fmt.Errorf("failed to compute alert summary: %w", err)
	}
	return &summary, nil
}

// DeleteTerminalOlderThan removes resolved alerts older than the given
// number of days. Pending alerts are never deleted. Returns rows removed.
func (r *Repository) DeleteTerminalOlderThan(days int) (int64, error) {
	result, err := r.db.Exec(fmt.Sprintf(`
		DELETE FROM alerts
		WHERE status IN ('overridden', 'cancelled')
		  AND created_at < datetime('now', '-5 hours', '-%d days')`, days))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted alerts: %w", err)
	}
	if affected > 0 {
		r.log.Info().Int64("deleted", affected).Int("days", days).Msg("Old alerts cleaned up")
	}
	return affected, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row scanner) (*Alert, error) {
	var alert Alert
	var tradeID sql.NullInt64
	var percent sql.NullFloat64
	var triggering, reason sql.NullString

	err := row.Scan(&alert.ID, &alert.RuleID, &alert.FundID, &tradeID, &percent,
		&triggering, &alert.Status, &reason, &alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if tradeID.Valid {
		alert.TradeID = &tradeID.Int64
	}
	if percent.Valid {
		alert.CalculatedPercent = &percent.Float64
	}
	alert.TriggeringHoldings = triggering.String
	alert.OverrideReason = reason.String
	return &alert, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
