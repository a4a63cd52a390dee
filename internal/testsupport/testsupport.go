package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"panelmetrics/internal"
	"panelmetrics/internal/config"
	"panelmetrics/internal/flush"
	"panelmetrics/internal/ledger"
	"panelmetrics/internal/settings"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with panelmetrics' interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all panelmetrics models for migration
func allModels() []any {
	return []any{
		&settings.Setting{},
	}
}

// SetupTestDB creates a test database with all panelmetrics models migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	// Check cache first
	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	// Create a unique named in-memory database for each test
	// cache=shared allows multiple connections to the same database
	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	// Apply SQLite pragmas
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	// Auto-migrate models
	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	// Cache the database
	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	// Register cleanup
	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetTestConfig returns a config forced into the test environment
func GetTestConfig(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("PANELMETRICS_ENV", config.Test)
	config.Reset()
	t.Cleanup(config.Reset)
	return config.GetConfig()
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := GetTestConfig(t)

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set PANELMETRICS_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
}

// MemoryRecordStore is an in-memory ledger.Store for tests that do not need
// a database round-trip. Load and Save errors can be injected.
type MemoryRecordStore struct {
	mu      sync.Mutex
	rec     ledger.Record
	LoadErr error
	SaveErr error
	Saves   int
}

var _ ledger.Store = (*MemoryRecordStore)(nil)

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{}
}

func (s *MemoryRecordStore) Load() (ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return ledger.Record{}, s.LoadErr
	}
	return s.rec.Clone(), nil
}

func (s *MemoryRecordStore) Save(rec ledger.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.rec = rec.Clone()
	s.Saves++
	return nil
}

// Record returns a copy of the currently stored record.
func (s *MemoryRecordStore) Record() ledger.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Clone()
}

// FixedClock returns a clock function frozen at the given time
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// NewTestLedger builds a ledger over an in-memory store with a fixed clock
// and deterministic install info.
func NewTestLedger(t *testing.T, now time.Time) (*ledger.Ledger, *MemoryRecordStore) {
	t.Helper()

	store := NewMemoryRecordStore()
	led := ledger.New(store, GetLogger(),
		ledger.WithClock(FixedClock(now)),
		ledger.WithInstallInfo(func() ledger.InstallInfo {
			return ledger.InstallInfo{Platform: "Linux", Locale: "en_US", Timezone: "UTC"}
		}),
	)
	return led, store
}

// CreateMinimalTestApp builds a fiber app with the intake routes mounted
// over the given database, suitable for app.Test requests.
func CreateMinimalTestApp(t *testing.T, db *gorm.DB, led *ledger.Ledger, sender *flush.Sender) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := GetTestConfig(t)

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(led, sender)(srv)
	return srv.App()
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}
