package rules

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// rulesColumns is the list of columns for the rules table.
// Column order must match scanRule expectations.
const rulesColumns = `rule_id, rule_name, alert_message, evaluate_on_trade, evaluate_on_portfolio,
	rule_logic, denominator, alert_if, alert_percent, is_active, created_at, updated_at`

// Repository handles rule and attachment database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new rule repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "rules").Logger(),
	}
}

// Create inserts a new rule and returns it with its assigned id
func (r *Repository) Create(rule Rule) (*Rule, error) {
	logic := rule.RuleLogic
	if logic == "" {
		logic = "1=1"
	}

	result, err := r.db.Exec(`
		INSERT INTO rules (rule_name, alert_message, evaluate_on_trade, evaluate_on_portfolio,
			rule_logic, denominator, alert_if, alert_percent, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, nullString(rule.AlertMessage), boolToInt(rule.EvaluateOnTrade),
		boolToInt(rule.EvaluateOnPortfolio), logic, rule.Denominator,
		nullString(rule.AlertIf), rule.AlertPercent, boolToInt(rule.IsActive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule id: %w", err)
	}

	r.log.Info().Int64("rule_id", id).Str("rule_name", rule.Name).Msg("Rule created")
	return r.GetByID(id)
}

// Update replaces a rule's definition. Returns (nil, nil) when the rule
// does not exist.
func (r *Repository) Update(id int64, rule Rule) (*Rule, error) {
	result, err := r.db.Exec(`
		UPDATE rules SET rule_name = ?, alert_message = ?, evaluate_on_trade = ?,
			evaluate_on_portfolio = ?, rule_logic = ?, denominator = ?, alert_if = ?,
			alert_percent = ?, is_active = ?, updated_at = datetime('now', '-5 hours')
		WHERE rule_id = ?`,
		rule.Name, nullString(rule.AlertMessage), boolToInt(rule.EvaluateOnTrade),
		boolToInt(rule.EvaluateOnPortfolio), rule.RuleLogic, rule.Denominator,
		nullString(rule.AlertIf), rule.AlertPercent, boolToInt(rule.IsActive), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rule update: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetByID(id)
}

// GetByID retrieves a rule by id. Returns (nil, nil) when not found.
func (r *Repository) GetByID(id int64) (*Rule, error) {
	row := r.db.QueryRow("SELECT "+rulesColumns+" FROM rules WHERE rule_id = ?", id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rule %d: %w", id, err)
	}
	return rule, nil
}

// GetAll retrieves all rules ordered by id
func (r *Repository) GetAll() ([]Rule, error) {
	rows, err := r.db.Query("SELECT " + rulesColumns + " FROM rules ORDER BY rule_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var result []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

// GetActiveForFund retrieves the active rules attached to a fund for the
// given evaluation context, ordered by rule id for deterministic runs.
func (r *Repository) GetActiveForFund(fundID int64, onTrade bool) ([]Rule, error) {
	contextColumn := "r.evaluate_on_portfolio"
	if onTrade {
		contextColumn = "r.evaluate_on_trade"
	}

	query := `
		SELECT r.rule_id, r.rule_name, r.alert_message, r.evaluate_on_trade,
			r.evaluate_on_portfolio, r.rule_logic, r.denominator, r.alert_if,
			r.alert_percent, r.is_active, r.created_at, r.updated_at
		FROM rules r
		JOIN rule_attachments ra ON ra.rule_id = r.rule_id
		WHERE ra.fund_id = ? AND ra.is_active = 1 AND r.is_active = 1
			AND ` + contextColumn + ` = 1
		ORDER BY r.rule_id`

	rows, err := r.db.Query(query, fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rules for fund %d: %w", fundID, err)
	}
	defer rows.Close()

	var result []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

// Delete removes a rule. Attachments and alerts cascade.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM rules WHERE rule_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rule delete: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d not found", id)
	}
	r.log.Info().Int64("rule_id", id).Msg("Rule deleted")
	return nil
}

// Attach links a rule to a fund. Returns the attachment, or an error when
// the pair already exists.
func (r *Repository) Attach(ruleID, fundID int64) (*Attachment, error) {
	result, err := r.db.Exec(
		`INSERT INTO rule_attachments (rule_id, fund_id, is_active) VALUES (?, ?, 1)`,
		ruleID, fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to attach rule %d to fund %d: %w", ruleID, fundID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment id: %w", err)
	}

	r.log.Info().Int64("rule_id", ruleID).Int64("fund_id", fundID).Msg("Rule attached")
	return r.getAttachment(id)
}

// Detach removes a rule's attachment to a fund. Idempotent.
func (r *Repository) Detach(ruleID, fundID int64) error {
	_, err := r.db.Exec(
		"DELETE FROM rule_attachments WHERE rule_id = ? AND fund_id = ?",
		ruleID, fundID,
	)
	if err != nil {
		return fmt.Errorf("failed to detach rule %d from fund %d: %w", ruleID, fundID, err)
	}
	return nil
}

// IsAttached checks whether a rule is already attached to a fund.
func (r *Repository) IsAttached(ruleID, fundID int64) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM rule_attachments WHERE rule_id = ? AND fund_id = ?",
		ruleID, fundID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check attachment: %w", err)
	}
	return count > 0, nil
}

// GetAttachmentsForRule lists a rule's fund attachments.
func (r *Repository) GetAttachmentsForRule(ruleID int64) ([]Attachment, error) {
	rows, err := r.db.Query(`
		SELECT attachment_id, rule_id, fund_id, is_active, created_at
		FROM rule_attachments WHERE rule_id = ? ORDER BY fund_id`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments for rule %d: %w", ruleID, err)
	}
	defer rows.Close()

	var result []Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *Repository) getAttachment(id int64) (*Attachment, error) {
	row := r.db.QueryRow(`
		SELECT attachment_id, rule_id, fund_id, is_active, created_at
		FROM rule_attachments WHERE attachment_id = ?`, id)
	a, err := scanAttachment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attachment %d: %w", id, err)
	}
	return a, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row scanner) (*Rule, error) {
	var rule Rule
	var alertMessage, alertIf sql.NullString
	var alertPercent sql.NullFloat64
	var onTrade, onPortfolio, isActive int

	err := row.Scan(&rule.ID, &rule.Name, &alertMessage, &onTrade, &onPortfolio,
		&rule.RuleLogic, &rule.Denominator, &alertIf, &alertPercent, &isActive,
		&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rule.AlertMessage = alertMessage.String
	rule.AlertIf = alertIf.String
	if alertPercent.Valid {
		rule.AlertPercent = &alertPercent.Float64
	}
	rule.EvaluateOnTrade = onTrade != 0
	rule.EvaluateOnPortfolio = onPortfolio != 0
	rule.IsActive = isActive != 0
	return &rule, nil
}

func scanAttachment(row scanner) (*Attachment, error) {
	var a Attachment
	var isActive int
	err := row.Scan(&a.ID, &a.RuleID, &a.FundID, &isActive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.IsActive = isActive != 0
	return &a, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
