package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"momentor/internal/domain"
	"momentor/internal/modules/runs"
)

// RunGenerator generates a run. Matches runs.Service.
type RunGenerator interface {
	Generate(trigger runs.TriggerType, manualCapital *decimal.Decimal, runDate time.Time) (*runs.Detail, error)
}

// MonthlyRunJob generates the automatic monthly run.
type MonthlyRunJob struct {
	generator RunGenerator
}

// NewMonthlyRunJob creates the monthly run generation job.
func NewMonthlyRunJob(generator RunGenerator) *MonthlyRunJob {
	return &MonthlyRunJob{generator: generator}
}

// Name implements Job.
func (j *MonthlyRunJob) Name() string { return "monthly_run" }

// Run generates an automatic run. A bearish regime is an expected outcome
// on schedule day, not a job failure: it is logged as a clean skip.
func (j *MonthlyRunJob) Run() error {
	_, err := j.generator.Generate(runs.TriggerAuto, nil, time.Now().UTC())
	if errors.Is(err, domain.ErrMarketConditionNotMet) {
		return nil
	}
	return err
}

// Backupper creates and rotates remote backups. Matches
// reliability.BackupService.
type Backupper interface {
	CreateAndUpload(ctx context.Context) error
	RotateOldBackups(ctx context.Context) error
}

// BackupJob uploads a database backup and prunes old archives.
type BackupJob struct {
	backups Backupper
	timeout time.Duration
}

// NewBackupJob creates the nightly backup job.
func NewBackupJob(backups Backupper) *BackupJob {
	return &BackupJob{backups: backups, timeout: 10 * time.Minute}
}

// Name implements Job.
func (j *BackupJob) Name() string { return "nightly_backup" }

// Run implements Job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.backups.CreateAndUpload(ctx); err != nil {
		return err
	}
	return j.backups.RotateOldBackups(ctx)
}
