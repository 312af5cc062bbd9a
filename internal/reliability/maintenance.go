package reliability

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/database"
)

// AlertCleaner prunes resolved alerts past their retention window.
type AlertCleaner interface {
	Cleanup(days int) (int64, error)
}

// MaintenanceService runs the recurring database hygiene pass: integrity
// check, WAL checkpoint, resolved-alert retention, and a disk space check.
type MaintenanceService struct {
	db                 *database.DB
	alerts             AlertCleaner
	dataDir            string
	alertRetentionDays int
	log                zerolog.Logger
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(
	db *database.DB,
	alerts AlertCleaner,
	dataDir string,
	alertRetentionDays int,
	log zerolog.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		db:                 db,
		alerts:             alerts,
		dataDir:            dataDir,
		alertRetentionDays: alertRetentionDays,
		log:                log.With().Str("service", "maintenance").Logger(),
	}
}

// Run executes one maintenance pass.
func (s *MaintenanceService) Run(ctx context.Context) error {
	s.log.Info().Msg("Starting maintenance")
	startTime := time.Now()

	if err := s.db.QuickCheck(ctx); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	// Checkpoint failure is not fatal; the WAL just stays larger until the
	// next pass.
	if err := s.db.WALCheckpoint("TRUNCATE"); err != nil {
		s.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if s.alerts != nil && s.alertRetentionDays > 0 {
		pruned, err := s.alerts.Cleanup(s.alertRetentionDays)
		if err != nil {
			s.log.Error().Err(err).Msg("Alert cleanup failed")
		} else if pruned > 0 {
			s.log.Info().Int64("pruned", pruned).Msg("Resolved alerts pruned")
		}
	}

	if err := s.checkDiskSpace(); err != nil {
		return err
	}

	stats, err := s.db.GetStats()
	if err == nil {
		s.log.Info().
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("Database stats")
	}

	s.log.Info().Dur("duration_ms", time.Since(startTime)).Msg("Maintenance completed")
	return nil
}

// checkDiskSpace fails the pass when free space drops below 500MB; the
// engine must not keep accepting trades it cannot durably record.
func (s *MaintenanceService) checkDiskSpace() error {
	stat := syscall.Statfs_t{}
	if err := syscall.Statfs(s.dataDir, &stat); err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(stat.Bavail*uint64(stat.Bsize)) / 1e9
	if availableGB < 0.5 {
		return fmt.Errorf("only %.2f GB free on data volume", availableGB)
	}
	if availableGB < 5.0 {
		s.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}
	return nil
}
