package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"panelmetrics/internal/ledger"
)

// RecordStore persists the analytics record as a JSON blob under a single
// settings row. It implements ledger.Store: every ledger operation reads
// the full value and writes it back, so this row is the sole source of
// truth for analytics state.
type RecordStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewRecordStore creates a RecordStore on the given connection.
func NewRecordStore(db *gorm.DB, logger *slog.Logger) *RecordStore {
	return &RecordStore{db: db, logger: logger}
}

var _ ledger.Store = (*RecordStore)(nil)

// Load reads the current record. A missing row is a first run and yields
// a zero record; a corrupted blob is logged and also yields a zero record
// rather than failing every tracking call on the way in.
func (s *RecordStore) Load() (ledger.Record, error) {
	value, err := GetSetting(s.db, KeyAnalyticsRecord)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Record{}, nil
		}
		return ledger.Record{}, fmt.Errorf("failed to read analytics record: %w", err)
	}

	var rec ledger.Record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		s.logger.Warn("Analytics record is malformed, starting from defaults",
			slog.Any("error", err))
		return ledger.Record{}, nil
	}
	return rec, nil
}

// Save writes the full record back.
func (s *RecordStore) Save(rec ledger.Record) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode analytics record: %w", err)
	}

	return sqlite.PerformWrite(s.logger, s.db, func(tx *gorm.DB) error {
		err := tx.Exec(`
            INSERT INTO settings (key, value, created_at, updated_at)
            VALUES (?, ?, ?, ?)
            ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
        `, KeyAnalyticsRecord, string(blob), time.Now().UTC(), time.Now().UTC()).Error
		if err != nil {
			return fmt.Errorf("failed to write analytics record: %w", err)
		}
		return nil
	})
}
