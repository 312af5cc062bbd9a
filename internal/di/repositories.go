package di

import (
	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/modules/alerts"
	"github.com/fundguard/fundguard/internal/modules/funds"
	"github.com/fundguard/fundguard/internal/modules/holdings"
	"github.com/fundguard/fundguard/internal/modules/rules"
	"github.com/fundguard/fundguard/internal/modules/trading"
	"github.com/fundguard/fundguard/internal/modules/universe"
)

// InitializeRepositories creates all repositories over the compliance
// database connection.
func InitializeRepositories(c *Container, log zerolog.Logger) error {
	conn := c.DB.Conn()

	c.FundRepo = funds.NewRepository(conn, log)
	c.IssuerRepo = universe.NewIssuerRepository(conn, log)
	c.SecurityRepo = universe.NewSecurityRepository(conn, log)
	c.PriceRepo = universe.NewPriceRepository(conn, log)
	c.HoldingRepo = holdings.NewRepository(conn, log)
	c.StagingRepo = holdings.NewStagingRepository(conn, log)
	c.RuleRepo = rules.NewRepository(conn, log)
	c.AlertRepo = alerts.NewRepository(conn, log)
	c.TradeRepo = trading.NewRepository(conn, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
