package jobs

import (
	"log/slog"

	"panelmetrics/internal/config"
	"panelmetrics/internal/ledger"
)

// PruneJob applies the daily-usage retention window on a schedule. Usage
// writes already prune inline; the job covers installs that sit idle
// long enough that no usage write happens.
type PruneJob struct {
	led    *ledger.Ledger
	logger *slog.Logger
	cfg    *config.Config
}

func NewPruneJob(led *ledger.Ledger, logger *slog.Logger, cfg *config.Config) *PruneJob {
	return &PruneJob{
		led:    led,
		logger: logger,
		cfg:    cfg,
	}
}

// Run drops daily-usage entries older than the retention window.
func (j *PruneJob) Run() error {
	j.logger.Debug("Pruning daily usage outside retention window",
		slog.Int("retention_days", j.cfg.UsageRetentionDays))

	if err := j.led.PruneDailyUsage(); err != nil {
		j.logger.Error("Failed to prune daily usage", slog.Any("error", err))
		return err
	}
	return nil
}
