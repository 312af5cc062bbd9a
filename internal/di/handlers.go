package di

import (
	"github.com/rs/zerolog"

	alertshandlers "github.com/fundguard/fundguard/internal/modules/alerts/handlers"
	compliancehandlers "github.com/fundguard/fundguard/internal/modules/compliance/handlers"
	fundshandlers "github.com/fundguard/fundguard/internal/modules/funds/handlers"
	ruleshandlers "github.com/fundguard/fundguard/internal/modules/rules/handlers"
	tradinghandlers "github.com/fundguard/fundguard/internal/modules/trading/handlers"
	universehandlers "github.com/fundguard/fundguard/internal/modules/universe/handlers"
)

// InitializeHandlers creates the HTTP handler for each module. Services must
// already be initialized.
func InitializeHandlers(c *Container, log zerolog.Logger) error {
	c.FundHandlers = fundshandlers.NewHandler(c.FundService, c.HoldingsService, log)
	c.UniverseHandlers = universehandlers.NewHandler(c.IssuerRepo, c.SecurityRepo, c.PriceRepo, c.EventManager, log)
	c.RuleHandlers = ruleshandlers.NewHandler(c.RuleService, log)
	c.AlertHandlers = alertshandlers.NewHandler(c.AlertService, log)
	c.ComplianceHandlers = compliancehandlers.NewHandler(c.ComplianceService, c.RuleRepo, log)
	c.TradingHandlers = tradinghandlers.NewHandler(c.TradingService, log)

	log.Debug().Msg("Handlers initialized")
	return nil
}
