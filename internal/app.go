// Package internal contains core application functionality
package internal

import (
	"fmt"
	"time"

	"github.com/karloscodes/cartridge"

	"panelmetrics/internal/config"
	"panelmetrics/internal/database"
	"panelmetrics/internal/flush"
	"panelmetrics/internal/jobs"
	"panelmetrics/internal/ledger"
	"panelmetrics/internal/pkg/sysinfo"
	"panelmetrics/internal/settings"
)

// Application wraps cartridge.Application with the panelmetrics
// components: the usage ledger and the collector sender are constructed
// here, owned here, and handed by reference to whatever needs them.
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Ledger    *ledger.Ledger
	Sender    *flush.Sender
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	// Create logger
	logger := cartridge.NewLogger(cfg, nil)

	// Initialize database manager
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db := dbManager.GetConnection()

	// The ledger owns the persisted analytics record; the record store is
	// its single source of truth.
	store := settings.NewRecordStore(db, logger)
	led := ledger.New(store, logger,
		ledger.WithRetentionDays(cfg.UsageRetentionDays),
		ledger.WithInstallInfo(func() ledger.InstallInfo {
			info := sysinfo.Collect()
			return ledger.InstallInfo{
				Platform: info.Platform,
				Locale:   info.Locale,
				Timezone: info.Timezone,
			}
		}))

	// Collector sender; an operator-stored credential overrides the baked
	// one, checked on every attempt.
	credential := func() string {
		if override := settings.GetCollectorCredential(db); override != "" {
			return override
		}
		return flush.BakedCredential()
	}
	sender := flush.NewSender(led, cfg.CollectorEndpoint,
		time.Duration(cfg.CollectorTimeoutSeconds)*time.Second, credential, logger)

	// Initialize jobs system
	scheduler, err := jobs.NewScheduler(led, sender, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	// Create the cartridge application
	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    MountAppRoutes(led, sender),
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Ledger:      led,
		Sender:      sender,
	}, nil
}
