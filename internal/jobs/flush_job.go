package jobs

import (
	"log/slog"

	"panelmetrics/internal/flush"
)

// FlushJob periodically checks whether today's collector upload is still
// outstanding and performs it. The daily gate lives in the record itself
// (last_analytics_sent), so the job interval only controls how quickly a
// pending upload is noticed.
type FlushJob struct {
	sender *flush.Sender
	logger *slog.Logger
}

func NewFlushJob(sender *flush.Sender, logger *slog.Logger) *FlushJob {
	return &FlushJob{
		sender: sender,
		logger: logger,
	}
}

// Run performs one gated upload attempt. Upload failures are not job
// errors: they are recorded in the typed result and retried at the next
// natural check, never rescheduled aggressively.
func (j *FlushJob) Run() error {
	result := j.sender.SendDaily()

	switch result.Outcome {
	case flush.OutcomeSent:
		j.logger.Info("Uploaded daily analytics snapshot", slog.Int("status", result.StatusCode))
	case flush.OutcomeSkipAlreadySent, flush.OutcomeSkipNoEndpoint, flush.OutcomeSkipInFlight:
		j.logger.Debug("No analytics upload needed", slog.String("outcome", string(result.Outcome)))
	default:
		j.logger.Warn("Daily analytics upload failed",
			slog.String("outcome", string(result.Outcome)),
			slog.Int("status", result.StatusCode),
			slog.Any("error", result.Err))
	}
	return nil
}
