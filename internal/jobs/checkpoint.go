package jobs

import (
	"log/slog"

	"gorm.io/gorm"

	"netgauge/internal/results"
)

// Store is the database surface the background jobs operate on. It is
// satisfied by *database.DBManager.
type Store interface {
	GetConnection() *gorm.DB
	CheckpointWAL(mode string) error
}

// CheckpointJob periodically checkpoints the SQLite WAL so the log file does
// not grow unbounded under a steady stream of result inserts.
type CheckpointJob struct {
	dbManager Store
	logger    *slog.Logger
}

func NewCheckpointJob(dbManager Store, logger *slog.Logger) *CheckpointJob {
	return &CheckpointJob{
		dbManager: dbManager,
		logger:    logger,
	}
}

// Run performs a passive WAL checkpoint and logs the current table size.
func (j *CheckpointJob) Run() error {
	if err := j.dbManager.CheckpointWAL("PASSIVE"); err != nil {
		j.logger.Error("WAL checkpoint failed", slog.Any("error", err))
		return err
	}

	count, err := results.Count(j.dbManager.GetConnection())
	if err != nil {
		j.logger.Warn("Failed to count stored results", slog.Any("error", err))
		return nil
	}

	j.logger.Debug("WAL checkpoint completed", slog.Int64("stored_results", count))
	return nil
}
