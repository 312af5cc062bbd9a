package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/modules/compliance"
	"github.com/fundguard/fundguard/internal/modules/funds"
	"github.com/fundguard/fundguard/internal/reliability"
)

// FundLister supplies the funds the sweep iterates.
type FundLister interface {
	GetAll() ([]funds.Fund, error)
}

// PortfolioRunner evaluates a fund's portfolio rules.
type PortfolioRunner interface {
	RunPortfolio(fundID int64) (*compliance.Report, error)
}

// PortfolioSweepJob evaluates every fund's portfolio rules. Funds with no
// active portfolio rules are a cheap no-op inside RunPortfolio.
type PortfolioSweepJob struct {
	funds      FundLister
	compliance PortfolioRunner
	log        zerolog.Logger
}

// NewPortfolioSweepJob creates a new portfolio sweep job
func NewPortfolioSweepJob(fundLister FundLister, runner PortfolioRunner, log zerolog.Logger) *PortfolioSweepJob {
	return &PortfolioSweepJob{
		funds:      fundLister,
		compliance: runner,
		log:        log.With().Str("job", "portfolio_sweep").Logger(),
	}
}

// Name returns the job name for the scheduler
func (j *PortfolioSweepJob) Name() string { return "portfolio_sweep" }

// Run sweeps every fund. One fund's failure does not stop the sweep; the
// last error is reported so the scheduler logs the run as failed.
func (j *PortfolioSweepJob) Run() error {
	fundList, err := j.funds.GetAll()
	if err != nil {
		return err
	}

	var lastErr error
	alertTotal := 0
	for _, fund := range fundList {
		report, err := j.compliance.RunPortfolio(fund.ID)
		if err != nil {
			j.log.Error().Err(err).Int64("fund_id", fund.ID).Msg("Portfolio sweep failed for fund")
			lastErr = err
			continue
		}
		alertTotal += len(report.AlertIDs)
	}

	j.log.Info().
		Int("funds", len(fundList)).
		Int("alerts", alertTotal).
		Msg("Portfolio sweep completed")
	return lastErr
}

// BackupJob runs the offsite backup.
type BackupJob struct {
	backups *reliability.BackupService
}

// NewBackupJob creates a new backup job
func NewBackupJob(backups *reliability.BackupService) *BackupJob {
	return &BackupJob{backups: backups}
}

// Name returns the job name for the scheduler
func (j *BackupJob) Name() string { return "backup" }

// Run creates and uploads one backup archive
func (j *BackupJob) Run() error {
	return j.backups.CreateAndUploadBackup(context.Background())
}

// MaintenanceJob runs the database hygiene pass.
type MaintenanceJob struct {
	maintenance *reliability.MaintenanceService
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(maintenance *reliability.MaintenanceService) *MaintenanceJob {
	return &MaintenanceJob{maintenance: maintenance}
}

// Name returns the job name for the scheduler
func (j *MaintenanceJob) Name() string { return "maintenance" }

// Run executes one maintenance pass
func (j *MaintenanceJob) Run() error {
	return j.maintenance.Run(context.Background())
}
