package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/config"
	"github.com/fundguard/fundguard/internal/database"
)

// InitializeDatabases opens the compliance database and applies its schema.
// The ledger profile trades write speed for durability; trade history and
// alert audit trails must survive a crash.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger,
		Name:    "compliance",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open compliance database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate compliance database: %w", err)
	}

	log.Info().Str("path", cfg.DatabasePath()).Msg("Compliance database ready")

	return &Container{DB: db}, nil
}
