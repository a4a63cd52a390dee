// Package ledger owns the persisted usage-analytics record and the rules
// for mutating it: idempotent first-run initialization, first-write-wins
// attribution fields, one-way boolean transitions, a sticky terminal
// tutorial status, and a bounded daily-usage retention window.
//
// Every operation is a full read-modify-write of the record through a
// Store. A single mutex serializes the sequence so a background flush
// writing last_analytics_sent cannot lose an update racing a UI-triggered
// write. Store failures are returned to the caller to log; nothing here is
// ever fatal to the host flow.
package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	dateKeyLayout = "2006-01-02"

	// DefaultRetentionDays bounds the daily_usage window.
	DefaultRetentionDays = 90
)

// Store persists the full analytics record. Load must return a zero
// Record (not an error) when nothing has been persisted yet.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// InstallInfo is the best-effort environment metadata captured once at
// install time. Empty fields mean detection failed; that is fine.
type InstallInfo struct {
	Platform string
	Locale   string
	Timezone string
}

// Ledger applies tracking mutations to the persisted record.
type Ledger struct {
	mu            sync.Mutex
	store         Store
	logger        *slog.Logger
	now           func() time.Time
	installInfo   func() InstallInfo
	retentionDays int
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock replaces the time source; intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithInstallInfo sets the probe used to capture platform/locale/timezone
// during first-run initialization.
func WithInstallInfo(probe func() InstallInfo) Option {
	return func(l *Ledger) { l.installInfo = probe }
}

// WithRetentionDays overrides the daily-usage retention window.
func WithRetentionDays(days int) Option {
	return func(l *Ledger) {
		if days > 0 {
			l.retentionDays = days
		}
	}
}

// New creates a Ledger backed by the given store.
func New(store Store, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:         store,
		logger:        logger,
		now:           time.Now,
		installInfo:   func() InstallInfo { return InstallInfo{} },
		retentionDays: DefaultRetentionDays,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// update runs one locked read-modify-write cycle. The mutation returns
// false to skip the save when nothing changed.
func (l *Ledger) update(op string, mutate func(*Record) bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.store.Load()
	if err != nil {
		return fmt.Errorf("%s: failed to load analytics record: %w", op, err)
	}

	if !mutate(&rec) {
		return nil
	}

	if err := l.store.Save(rec); err != nil {
		return fmt.Errorf("%s: failed to save analytics record: %w", op, err)
	}
	return nil
}

// Initialize performs first-run setup. It is idempotent: once
// first_install_date is set, subsequent calls are no-ops. Environment
// detection is best-effort and never fails the call.
func (l *Ledger) Initialize() error {
	return l.update("initialize", func(rec *Record) bool {
		if rec.Installed() {
			return false
		}

		info := l.installInfo()
		rec.FirstInstallDate = l.now().Format(time.RFC3339)
		rec.Platform = info.Platform
		rec.Locale = info.Locale
		rec.Timezone = info.Timezone
		if rec.DailyUsage == nil {
			rec.DailyUsage = map[string]int{}
		}

		l.logger.Info("Initialized analytics record",
			slog.String("platform", info.Platform),
			slog.String("locale", info.Locale),
			slog.String("timezone", info.Timezone))
		return true
	})
}

// RecordUsage tracks one usage event: bumps the total, bumps today's
// daily counter, prunes daily entries outside the retention window and
// stamps last_used_date.
func (l *Ledger) RecordUsage() error {
	return l.update("record_usage", func(rec *Record) bool {
		today := l.today()

		rec.TotalUses++
		if rec.DailyUsage == nil {
			rec.DailyUsage = map[string]int{}
		}
		rec.DailyUsage[today]++
		rec.LastUsedDate = today

		l.pruneDailyUsage(rec)
		return true
	})
}

// RecordSignupClick stores how the user first reached signup. First
// attribution wins; later clicks are ignored.
func (l *Ledger) RecordSignupClick(method SignupMethod) error {
	return l.update("record_signup_click", func(rec *Record) bool {
		if rec.SignupMethod != "" {
			return false
		}
		rec.SignupMethod = method
		rec.SignupDate = l.now().Format(time.RFC3339)
		return true
	})
}

// RecordAuthButtonClick stores which auth button the user clicked first.
// First write wins.
func (l *Ledger) RecordAuthButtonClick(kind AuthButton) error {
	return l.update("record_auth_button_click", func(rec *Record) bool {
		if rec.AuthButtonClicked != "" {
			return false
		}
		rec.AuthButtonClicked = kind
		rec.AuthButtonClickDate = l.now().Format(time.RFC3339)
		return true
	})
}

// RecordLoginDetected marks the one-way logged-in transition and stamps
// first_login_date on it.
func (l *Ledger) RecordLoginDetected() error {
	return l.update("record_login_detected", func(rec *Record) bool {
		if rec.HasLoggedIn {
			return false
		}
		rec.HasLoggedIn = true
		rec.FirstLoginDate = l.now().Format(time.RFC3339)
		return true
	})
}

// IsLoggedIn reports whether a login was ever detected.
func (l *Ledger) IsLoggedIn() (bool, error) {
	rec, err := l.Snapshot()
	if err != nil {
		return false, err
	}
	return rec.HasLoggedIn, nil
}

// RecordOnboardingCompleted marks the one-way onboarding transition.
func (l *Ledger) RecordOnboardingCompleted() error {
	return l.update("record_onboarding_completed", func(rec *Record) bool {
		if rec.OnboardingCompleted {
			return false
		}
		rec.OnboardingCompleted = true
		return true
	})
}

// SetTutorialStatus updates the tutorial status. "completed" is sticky:
// once reached, nothing overwrites it. The non-terminal values (skip,
// skipped_midway) may replace each other freely; callers relying on
// ordering between those two get last-write-wins.
func (l *Ledger) SetTutorialStatus(status TutorialStatus) error {
	return l.update("set_tutorial_status", func(rec *Record) bool {
		if rec.TutorialStatus == TutorialCompleted {
			return false
		}
		rec.TutorialStatus = status
		return true
	})
}

// SetTutorialStep records the user's position in the tutorial as
// "current/total". It is a progress indicator, not a completion flag, so
// regressions (reopening the tutorial at step 1) are stored as-is.
func (l *Ledger) SetTutorialStep(current, total int) error {
	return l.update("set_tutorial_step", func(rec *Record) bool {
		rec.TutorialCurrentStep = fmt.Sprintf("%d/%d", current, total)
		return true
	})
}

// IncrementQuickActionUsage bumps the quick-action counter.
func (l *Ledger) IncrementQuickActionUsage() error {
	return l.update("increment_quick_action_usage", func(rec *Record) bool {
		rec.QuickActionUsageCount++
		return true
	})
}

// IncrementShortcutUsage bumps the keyboard-shortcut counter.
func (l *Ledger) IncrementShortcutUsage() error {
	return l.update("increment_shortcut_usage", func(rec *Record) bool {
		rec.ShortcutUsageCount++
		return true
	})
}

// PruneDailyUsage applies the retention window outside of a usage event.
// The background prune job uses this so idle installs still converge.
func (l *Ledger) PruneDailyUsage() error {
	return l.update("prune_daily_usage", func(rec *Record) bool {
		return l.pruneDailyUsage(rec)
	})
}

// MarkAnalyticsSent records a confirmed successful upload. Called by the
// flush pipeline after an HTTP 200, under the same locked
// read-modify-write discipline as every other mutation.
func (l *Ledger) MarkAnalyticsSent(t time.Time) error {
	return l.update("mark_analytics_sent", func(rec *Record) bool {
		rec.LastAnalyticsSent = t.Format(time.RFC3339)
		return true
	})
}

// Snapshot returns a deep copy of the current record.
func (l *Ledger) Snapshot() (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.store.Load()
	if err != nil {
		return Record{}, fmt.Errorf("snapshot: failed to load analytics record: %w", err)
	}
	return rec.Clone(), nil
}

// Now exposes the ledger's clock so collaborators (the flush gate) share
// the same time source in tests.
func (l *Ledger) Now() time.Time {
	return l.now()
}

func (l *Ledger) today() string {
	return l.now().Format(dateKeyLayout)
}

// pruneDailyUsage drops daily entries older than the retention window.
// The cutoff comparison is lexical, which is correct for YYYY-MM-DD keys
// because that format sorts in calendar order. Reports whether anything
// was removed.
func (l *Ledger) pruneDailyUsage(rec *Record) bool {
	if len(rec.DailyUsage) == 0 {
		return false
	}

	cutoff := l.now().AddDate(0, 0, -l.retentionDays).Format(dateKeyLayout)
	changed := false
	for date := range rec.DailyUsage {
		if date < cutoff {
			delete(rec.DailyUsage, date)
			changed = true
		}
	}
	return changed
}
