package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/clients/pricefeed"
	"github.com/fundguard/fundguard/internal/config"
	"github.com/fundguard/fundguard/internal/events"
	"github.com/fundguard/fundguard/internal/modules/alerts"
	"github.com/fundguard/fundguard/internal/modules/compliance"
	"github.com/fundguard/fundguard/internal/modules/funds"
	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/rules"
	"github.com/fundguard/fundguard/internal/modules/trading"
	"github.com/fundguard/fundguard/internal/reliability"
)

// InitializeServices creates the event bus and every domain service.
// Repositories must already be initialized.
func InitializeServices(c *Container, cfg *config.Config, log zerolog.Logger) error {
	conn := c.DB.Conn()

	// Events
	c.EventBus = events.NewBus(log)
	c.EventManager = events.NewManager(c.EventBus, log)

	// Holdings read model and staging projector
	c.Projector = holdings.NewProjector(c.StagingRepo, log)
	c.HoldingsService = holdings.NewService(c.HoldingRepo, c.PriceRepo, c.SecurityRepo, log)

	// Funds
	c.FundService = funds.NewService(c.FundRepo, c.HoldingsService, log)

	// Rules and alerts
	c.RuleService = rules.NewService(c.RuleRepo, c.FundRepo, log)
	c.AlertService = alerts.NewService(c.AlertRepo, c.EventManager, log)

	// Compliance
	c.Valuator = compliance.NewValuator(c.PriceRepo, log)
	c.ComplianceEngine = compliance.NewEngine(log)
	c.ComplianceService = compliance.NewService(
		c.FundRepo,
		c.RuleRepo,
		c.StagingRepo,
		c.Projector,
		c.Valuator,
		c.ComplianceEngine,
		c.AlertService,
		c.EventManager,
		log,
	)

	// Trading
	c.TradeValidator = trading.NewValidator(c.FundRepo, c.SecurityRepo)
	c.TradeWriter = trading.NewWriter(conn, c.TradeRepo, c.HoldingRepo, c.StagingRepo, c.FundRepo, log)
	c.TradingService = trading.NewService(
		c.TradeRepo,
		c.TradeValidator,
		c.FundRepo,
		c.HoldingRepo,
		c.StagingRepo,
		c.Projector,
		c.PriceRepo,
		c.ComplianceService,
		c.AlertService,
		c.TradeWriter,
		c.EventManager,
		log,
	)

	// Optional websocket price feed
	if cfg.PriceFeedURL != "" {
		c.PriceFeed = pricefeed.NewClient(cfg.PriceFeedURL, c.PriceRepo, c.EventManager, log)
	}

	// Reliability: offsite client only when backups are enabled, the backup
	// service itself always exists so manual local backups keep working.
	var r2 *reliability.R2Client
	if cfg.Backup != nil && cfg.Backup.Enabled {
		client, err := reliability.NewR2Client(cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create object store client: %w", err)
		}
		r2 = client
	}
	retention := 0
	if cfg.Backup != nil {
		retention = cfg.Backup.RetentionCount
	}
	c.BackupService = reliability.NewBackupService(c.DB, r2, cfg.DataDir, retention, c.EventManager, log)
	c.MaintenanceService = reliability.NewMaintenanceService(c.DB, c.AlertService, cfg.DataDir, cfg.AlertRetentionDays, log)

	log.Debug().Msg("Services initialized")
	return nil
}
