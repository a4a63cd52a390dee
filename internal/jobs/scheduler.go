package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"panelmetrics/internal/config"
	"panelmetrics/internal/flush"
	"panelmetrics/internal/ledger"
)

// Scheduler is responsible for running background jobs: the periodic
// collector flush check and the daily usage-window prune.
type Scheduler struct {
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool
	cfg       *config.Config

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	// Job instances
	flushJob *FlushJob
	pruneJob *PruneJob

	// Tickers for each job type
	flushTicker *time.Ticker
	pruneTicker *time.Ticker
}

// NewScheduler creates the job scheduler for the given ledger and sender.
func NewScheduler(led *ledger.Ledger, sender *flush.Sender, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()

	s := &Scheduler{
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		isRunning: false,
		cfg:       cfg,
	}

	// Initialize job instances
	s.flushJob = NewFlushJob(sender, logger)
	s.pruneJob = NewPruneJob(led, logger, cfg)

	return s, nil
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")

	s.isRunning = true

	s.startFlushJob()
	s.startPruneJob()

	s.logger.Info("Background jobs started",
		slog.Bool("enabled", s.enabled),
		slog.Bool("isRunning", s.isRunning))

	return nil
}

func (s *Scheduler) startFlushJob() {
	interval := time.Duration(s.cfg.JobIntervalSeconds) * time.Second
	s.logger.Info("Starting collector flush job", slog.Duration("interval", interval))
	s.flushTicker = time.NewTicker(interval)

	go func() {
		// Run initial check so a freshly started service flushes without
		// waiting a full interval
		s.executeJobSafely("collector_flush", s.flushJob.Run)

		for {
			select {
			case <-s.flushTicker.C:
				s.executeJobSafely("collector_flush", s.flushJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("Collector flush job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startPruneJob() {
	interval := 24 * time.Hour
	s.logger.Info("Starting usage prune job", slog.Duration("interval", interval))
	s.pruneTicker = time.NewTicker(interval)

	go func() {
		// Run initial prune so idle installs converge on the window
		s.executeJobSafely("usage_prune", s.pruneJob.Run)

		for {
			select {
			case <-s.pruneTicker.C:
				s.executeJobSafely("usage_prune", s.pruneJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("Usage prune job stopped")
				return
			}
		}
	}()
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	if s.flushTicker != nil {
		s.flushTicker.Stop()
	}
	if s.pruneTicker != nil {
		s.pruneTicker.Stop()
	}

	s.cancel()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}
