// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/fundguard/fundguard/internal/clients/pricefeed"
	"github.com/fundguard/fundguard/internal/database"
	"github.com/fundguard/fundguard/internal/events"
	"github.com/fundguard/fundguard/internal/modules/alerts"
	alertshandlers "github.com/fundguard/fundguard/internal/modules/alerts/handlers"
	"github.com/fundguard/fundguard/internal/modules/compliance"
	compliancehandlers "github.com/fundguard/fundguard/internal/modules/compliance/handlers"
	"github.com/fundguard/fundguard/internal/modules/funds"
	fundshandlers "github.com/fundguard/fundguard/internal/modules/funds/handlers"
	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/rules"
	ruleshandlers "github.com/fundguard/fundguard/internal/modules/rules/handlers"
	"github.com/fundguard/fundguard/internal/modules/trading"
	tradinghandlers "github.com/fundguard/fundguard/internal/modules/trading/handlers"
	"github.com/fundguard/fundguard/internal/modules/universe"
	universehandlers "github.com/fundguard/fundguard/internal/modules/universe/handlers"
	"github.com/fundguard/fundguard/internal/reliability"
)

// Container holds every wired dependency. Construction order is databases,
// repositories, services, handlers; each step only reads fields the previous
// steps filled in.
type Container struct {
	// Database
	DB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Repositories
	FundRepo     *funds.Repository
	IssuerRepo   *universe.IssuerRepository
	SecurityRepo *universe.SecurityRepository
	PriceRepo    *universe.PriceRepository
	HoldingRepo  *holdings.Repository
	StagingRepo  *holdings.StagingRepository
	RuleRepo     *rules.Repository
	AlertRepo    *alerts.Repository
	TradeRepo    *trading.Repository

	// Services
	Projector          *holdings.Projector
	HoldingsService    *holdings.Service
	FundService        *funds.Service
	RuleService        *rules.Service
	AlertService       *alerts.Service
	Valuator           *compliance.Valuator
	ComplianceEngine   *compliance.Engine
	ComplianceService  *compliance.Service
	TradeValidator     *trading.Validator
	TradeWriter        *trading.Writer
	TradingService     *trading.Service
	BackupService      *reliability.BackupService
	MaintenanceService *reliability.MaintenanceService

	// PriceFeed is nil when PRICE_FEED_URL is not configured
	PriceFeed *pricefeed.Client

	// Handlers
	FundHandlers       *fundshandlers.Handler
	UniverseHandlers   *universehandlers.Handler
	RuleHandlers       *ruleshandlers.Handler
	AlertHandlers      *alertshandlers.Handler
	ComplianceHandlers *compliancehandlers.Handler
	TradingHandlers    *tradinghandlers.Handler
}
