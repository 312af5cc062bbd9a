package alerts

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/events"
)

// Sentinel errors for handler status mapping.
var (
	ErrAlertNotFound   = errors.New("alert not found")
	ErrEmptyReason     = errors.New("override reason is required")
	ErrAlreadyResolved = errors.New("alert is already resolved")
)

// Service manages alert resolution and reporting.
type Service struct {
	repo         *Repository
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new alert service
func NewService(repo *Repository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("service", "alerts").Logger(),
	}
}

// Create persists a pending alert and announces it.
func (s *Service) Create(alert Alert) (*Alert, error) {
	created, err := s.repo.Create(alert)
	if err != nil {
		return nil, err
	}

	if s.eventManager != nil {
		s.eventManager.EmitTyped("alerts", &events.AlertCreatedData{
			AlertID: created.ID,
			RuleID:  created.RuleID,
			FundID:  created.FundID,
			TradeID: created.TradeID,
			Percent: created.CalculatedPercent,
		})
	}
	return created, nil
}

// Get retrieves one alert.
func (s *Service) Get(id int64) (*Alert, error) {
	alert, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrAlertNotFound
	}
	return alert, nil
}

// List retrieves alerts matching the filter.
func (s *Service) List(filter Filter) ([]Alert, error) {
	return s.repo.List(filter)
}

// PendingForTrade retrieves the unresolved alerts gating a trade.
func (s *Service) PendingForTrade(tradeID int64) ([]Alert, error) {
	return s.repo.GetPendingByTrade(tradeID)
}

// Override resolves a pending alert with the operator's reason. Overriding
// an already-resolved alert is a conflict; the first reason is preserved.
func (s *Service) Override(id int64, reason string) (*Alert, error) {
	if reason == "" {
		return nil, ErrEmptyReason
	}

	alert, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if alert.IsTerminal() {
		return nil, fmt.Errorf("%w: alert %d is %s", ErrAlreadyResolved, id, alert.Status)
	}

	ok, err := s.repo.Override(id, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another resolution
		return nil, fmt.Errorf("%w: alert %d", ErrAlreadyResolved, id)
	}

	if s.eventManager != nil {
		s.eventManager.EmitTyped("alerts", &events.AlertResolvedData{
			AlertID: id,
			FundID:  alert.FundID,
			Status:  StatusOverridden,
			Reason:  reason,
		})
	}
	return s.Get(id)
}

// Cancel resolves a pending alert. Cancelling an already-terminal alert is
// a no-op success.
func (s *Service) Cancel(id int64) (*Alert, error) {
	alert, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if alert.IsTerminal() {
		return alert, nil
	}

	ok, err := s.repo.Cancel(id)
	if err != nil {
		return nil, err
	}
	if ok && s.eventManager != nil {
		s.eventManager.EmitTyped("alerts", &events.AlertResolvedData{
			AlertID: id,
			FundID:  alert.FundID,
			Status:  StatusCancelled,
		})
	}
	return s.Get(id)
}

// CancelForTrade cancels every pending alert on a trade.
func (s *Service) CancelForTrade(tradeID int64) ([]int64, error) {
	cancelled, err := s.repo.CancelPendingByTrade(tradeID)
	if err != nil {
		return nil, err
	}

	if s.eventManager != nil {
		for _, id := range cancelled {
			s.eventManager.EmitTyped("alerts", &events.AlertResolvedData{
				AlertID: id,
				Status:  StatusCancelled,
			})
		}
	}
	return cancelled, nil
}

// Summary computes the dashboard counters.
func (s *Service) Summary() (*Summary, error) {
	return s.repo.GetSummary()
}

// Cleanup removes resolved alerts older than the retention window.
func (s *Service) Cleanup(days int) (int64, error) {
	return s.repo.DeleteTerminalOlderThan(days)
}
