package rules

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/modules/rules/ruleexpr"
)

// Sentinel errors for handler status mapping.
var (
	ErrRuleNotFound    = errors.New("rule not found")
	ErrFundNotFound    = errors.New("fund not found")
	ErrAlreadyAttached = errors.New("rule already attached to fund")
)

// FundChecker verifies fund existence before attaching rules.
type FundChecker interface {
	Exists(id int64) (bool, error)
}

// Service manages rule definitions and attachments.
type Service struct {
	repo  *Repository
	funds FundChecker
	log   zerolog.Logger
}

// NewService creates a new rule service
func NewService(repo *Repository, funds FundChecker, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		funds: funds,
		log:   log.With().Str("service", "rules").Logger(),
	}
}

// Create validates and saves a new rule. The rule logic is parsed and
// probe-evaluated before anything is written.
func (s *Service) Create(rule Rule) (*Rule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := ruleexpr.Validate(rule.RuleLogic); err != nil {
		return nil, fmt.Errorf("invalid rule_logic: %w", err)
	}
	return s.repo.Create(rule)
}

// Update validates and replaces an existing rule.
func (s *Service) Update(id int64, rule Rule) (*Rule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := ruleexpr.Validate(rule.RuleLogic); err != nil {
		return nil, fmt.Errorf("invalid rule_logic: %w", err)
	}

	updated, err := s.repo.Update(id, rule)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrRuleNotFound
	}
	return updated, nil
}

// Get retrieves one rule.
func (s *Service) Get(id int64) (*Rule, error) {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// List retrieves all rules.
func (s *Service) List() ([]Rule, error) {
	return s.repo.GetAll()
}

// Delete removes a rule and its attachments.
func (s *Service) Delete(id int64) error {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrRuleNotFound
	}
	return s.repo.Delete(id)
}

// Attach links a rule to a fund. Attaching twice is a conflict.
func (s *Service) Attach(ruleID, fundID int64) (*Attachment, error) {
	rule, err := s.repo.GetByID(ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}

	exists, err := s.funds.Exists(fundID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrFundNotFound
	}

	attached, err := s.repo.IsAttached(ruleID, fundID)
	if err != nil {
		return nil, err
	}
	if attached {
		return nil, ErrAlreadyAttached
	}

	return s.repo.Attach(ruleID, fundID)
}

// Detach removes a rule's attachment to a fund. Idempotent.
func (s *Service) Detach(ruleID, fundID int64) error {
	return s.repo.Detach(ruleID, fundID)
}

// Attachments lists the funds a rule is attached to.
func (s *Service) Attachments(ruleID int64) ([]Attachment, error) {
	rule, err := s.repo.GetByID(ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return s.repo.GetAttachmentsForRule(ruleID)
}

// ValidateLogic checks a filter expression without saving anything. Used by
// the rule editor's dry-run endpoint.
func (s *Service) ValidateLogic(logic string) error {
	return ruleexpr.Validate(logic)
}
