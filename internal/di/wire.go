package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open and migrate the compliance database
// 2. Initialize repositories
// 3. Initialize services
// 4. Initialize HTTP handlers
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := InitializeRepositories(container, log); err != nil {
		container.DB.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.DB.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := InitializeHandlers(container, log); err != nil {
		container.DB.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return container, nil
}
