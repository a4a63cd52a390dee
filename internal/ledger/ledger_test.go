package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelmetrics/internal/ledger"
	"panelmetrics/internal/testsupport"
)

var baseTime = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestInitialize(t *testing.T) {
	t.Run("first call stamps install date and environment", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.Initialize())

		rec := store.Record()
		assert.Equal(t, baseTime.Format(time.RFC3339), rec.FirstInstallDate)
		assert.Equal(t, "Linux", rec.Platform)
		assert.Equal(t, "en_US", rec.Locale)
		assert.Equal(t, "UTC", rec.Timezone)
		assert.True(t, rec.Installed())
	})

	t.Run("second call is a no-op", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)
		require.NoError(t, led.Initialize())
		first := store.Record()

		require.NoError(t, led.Initialize())

		assert.Equal(t, first, store.Record())
		assert.Equal(t, 1, store.Saves, "idempotent re-init should not write again")
	})

	t.Run("load failure is surfaced, not swallowed", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)
		store.LoadErr = errors.New("disk gone")

		err := led.Initialize()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load analytics record")
	})
}

func TestRecordUsage(t *testing.T) {
	t.Run("increments total and today's bucket", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)
		require.NoError(t, led.Initialize())

		require.NoError(t, led.RecordUsage())
		require.NoError(t, led.RecordUsage())

		rec := store.Record()
		assert.Equal(t, 2, rec.TotalUses)
		assert.Equal(t, 2, rec.DailyUsage["2026-03-15"])
		assert.Equal(t, "2026-03-15", rec.LastUsedDate)
	})

	t.Run("works before Initialize", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.RecordUsage())

		rec := store.Record()
		assert.Equal(t, 1, rec.TotalUses)
		assert.False(t, rec.Installed())
	})

	t.Run("prunes entries outside the retention window", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)
		require.NoError(t, led.Initialize())
		seed := store.Record()
		seed.DailyUsage = map[string]int{
			"2025-12-01": 3, // 104 days old, outside the window
			"2025-12-15": 1, // exactly 90 days old, cutoff day itself is kept
			"2026-03-14": 2,
		}
		require.NoError(t, store.Save(seed))

		require.NoError(t, led.RecordUsage())

		rec := store.Record()
		assert.NotContains(t, rec.DailyUsage, "2025-12-01")
		assert.Contains(t, rec.DailyUsage, "2025-12-15")
		assert.Contains(t, rec.DailyUsage, "2026-03-14")
		assert.Equal(t, 1, rec.DailyUsage["2026-03-15"])
	})
}

func TestAttributionFirstWriteWins(t *testing.T) {
	t.Run("signup method keeps the first value", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.RecordSignupClick(ledger.SignupMethodSidebarButton))
		require.NoError(t, led.RecordSignupClick(ledger.SignupMethodOrganic))

		rec := store.Record()
		assert.Equal(t, ledger.SignupMethodSidebarButton, rec.SignupMethod)
		assert.Equal(t, baseTime.Format(time.RFC3339), rec.SignupDate)
	})

	t.Run("auth button keeps the first value", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.RecordAuthButtonClick(ledger.AuthButtonLogin))
		require.NoError(t, led.RecordAuthButtonClick(ledger.AuthButtonSignup))

		rec := store.Record()
		assert.Equal(t, ledger.AuthButtonLogin, rec.AuthButtonClicked)
		assert.Equal(t, baseTime.Format(time.RFC3339), rec.AuthButtonClickDate)
	})

	t.Run("repeat attribution does not rewrite the store", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)
		require.NoError(t, led.RecordSignupClick(ledger.SignupMethodOrganic))
		saves := store.Saves

		require.NoError(t, led.RecordSignupClick(ledger.SignupMethodSidebarButton))

		assert.Equal(t, saves, store.Saves)
		assert.Equal(t, ledger.SignupMethodOrganic, store.Record().SignupMethod)
	})
}

func TestLoginTransition(t *testing.T) {
	t.Run("login is one-way and stamps the first login only", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		loggedIn, err := led.IsLoggedIn()
		require.NoError(t, err)
		assert.False(t, loggedIn)

		require.NoError(t, led.RecordLoginDetected())
		require.NoError(t, led.RecordLoginDetected())

		rec := store.Record()
		assert.True(t, rec.HasLoggedIn)
		assert.Equal(t, baseTime.Format(time.RFC3339), rec.FirstLoginDate)
		assert.Equal(t, 1, store.Saves)

		loggedIn, err = led.IsLoggedIn()
		require.NoError(t, err)
		assert.True(t, loggedIn)
	})

	t.Run("onboarding completion is one-way", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.RecordOnboardingCompleted())
		require.NoError(t, led.RecordOnboardingCompleted())

		assert.True(t, store.Record().OnboardingCompleted)
		assert.Equal(t, 1, store.Saves)
	})
}

func TestTutorialStatus(t *testing.T) {
	t.Run("completed is terminal", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.SetTutorialStatus(ledger.TutorialCompleted))
		require.NoError(t, led.SetTutorialStatus(ledger.TutorialSkipped))

		assert.Equal(t, ledger.TutorialCompleted, store.Record().TutorialStatus)
	})

	t.Run("non-terminal values replace each other", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.SetTutorialStatus(ledger.TutorialSkipped))
		require.NoError(t, led.SetTutorialStatus(ledger.TutorialSkippedMidway))
		assert.Equal(t, ledger.TutorialSkippedMidway, store.Record().TutorialStatus)

		require.NoError(t, led.SetTutorialStatus(ledger.TutorialSkipped))
		assert.Equal(t, ledger.TutorialSkipped, store.Record().TutorialStatus)
	})

	t.Run("skip then completed still lands on completed", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.SetTutorialStatus(ledger.TutorialSkippedMidway))
		require.NoError(t, led.SetTutorialStatus(ledger.TutorialCompleted))

		assert.Equal(t, ledger.TutorialCompleted, store.Record().TutorialStatus)
	})
}

func TestTutorialStep(t *testing.T) {
	t.Run("stores current over total", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.SetTutorialStep(3, 7))

		assert.Equal(t, "3/7", store.Record().TutorialCurrentStep)
	})

	t.Run("regressions overwrite", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.SetTutorialStep(5, 7))
		require.NoError(t, led.SetTutorialStep(1, 7))

		assert.Equal(t, "1/7", store.Record().TutorialCurrentStep)
	})
}

func TestCounters(t *testing.T) {
	t.Run("quick action and shortcut counters are independent", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		require.NoError(t, led.IncrementQuickActionUsage())
		require.NoError(t, led.IncrementQuickActionUsage())
		require.NoError(t, led.IncrementShortcutUsage())

		rec := store.Record()
		assert.Equal(t, 2, rec.QuickActionUsageCount)
		assert.Equal(t, 1, rec.ShortcutUsageCount)
		assert.Equal(t, 0, rec.TotalUses)
	})
}

func TestPruneDailyUsage(t *testing.T) {
	t.Run("standalone prune drops only stale entries", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)
		seed := store.Record()
		seed.DailyUsage = map[string]int{
			"2025-01-01": 5,
			"2026-03-10": 1,
		}
		require.NoError(t, store.Save(seed))

		require.NoError(t, led.PruneDailyUsage())

		rec := store.Record()
		assert.Equal(t, map[string]int{"2026-03-10": 1}, rec.DailyUsage)
	})

	t.Run("no write when nothing is stale", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)
		seed := store.Record()
		seed.DailyUsage = map[string]int{"2026-03-14": 1}
		require.NoError(t, store.Save(seed))
		saves := store.Saves

		require.NoError(t, led.PruneDailyUsage())

		assert.Equal(t, saves, store.Saves)
	})
}

func TestSnapshot(t *testing.T) {
	t.Run("returns a copy that does not alias the store", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)
		require.NoError(t, led.RecordUsage())

		snap, err := led.Snapshot()
		require.NoError(t, err)
		snap.DailyUsage["2099-01-01"] = 42

		assert.NotContains(t, store.Record().DailyUsage, "2099-01-01")
	})
}

func TestMarkAnalyticsSent(t *testing.T) {
	t.Run("stamps the given time", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)

		sentAt := baseTime.Add(2 * time.Hour)
		require.NoError(t, led.MarkAnalyticsSent(sentAt))

		assert.Equal(t, sentAt.Format(time.RFC3339), store.Record().LastAnalyticsSent)
	})
}

func TestRetentionMetrics(t *testing.T) {
	t.Run("computes rate from active days over days since install", func(t *testing.T) {
		installAt := baseTime.AddDate(0, 0, -10)
		led, store := testsupport.NewTestLedger(t, baseTime)
		seed := store.Record()
		seed.FirstInstallDate = installAt.Format(time.RFC3339)
		seed.TotalUses = 12
		seed.LastUsedDate = "2026-03-15"
		seed.HasLoggedIn = true
		seed.SignupMethod = ledger.SignupMethodOrganic
		seed.DailyUsage = map[string]int{
			"2026-03-10": 4,
			"2026-03-12": 3,
			"2026-03-15": 5,
		}
		require.NoError(t, store.Save(seed))

		metrics, err := led.RetentionMetrics()
		require.NoError(t, err)

		assert.Equal(t, 10, metrics.DaysSinceInstall)
		assert.Equal(t, 3, metrics.ActiveDays)
		assert.Equal(t, 12, metrics.TotalUses)
		assert.Equal(t, 30.0, metrics.RetentionRate)
		assert.Equal(t, "2026-03-15", metrics.LastUsed)
		assert.True(t, metrics.HasLoggedIn)
		assert.Equal(t, ledger.SignupMethodOrganic, metrics.SignupMethod)
	})

	t.Run("install-day metrics report zero rate", func(t *testing.T) {
		led, _ := testsupport.NewTestLedger(t, baseTime)
		require.NoError(t, led.Initialize())
		require.NoError(t, led.RecordUsage())

		metrics, err := led.RetentionMetrics()
		require.NoError(t, err)

		assert.Equal(t, 0, metrics.DaysSinceInstall)
		assert.Equal(t, 1, metrics.ActiveDays)
		assert.Equal(t, 0.0, metrics.RetentionRate)
	})

	t.Run("rate is rounded to two decimals", func(t *testing.T) {
		installAt := baseTime.AddDate(0, 0, -3)
		led, store := testsupport.NewTestLedger(t, baseTime)
		seed := store.Record()
		seed.FirstInstallDate = installAt.Format(time.RFC3339)
		seed.DailyUsage = map[string]int{"2026-03-13": 1}
		require.NoError(t, store.Save(seed))

		metrics, err := led.RetentionMetrics()
		require.NoError(t, err)

		assert.Equal(t, 33.33, metrics.RetentionRate)
	})

	t.Run("uninitialized record yields zero metrics", func(t *testing.T) {
		led, _ := testsupport.NewTestLedger(t, baseTime)

		metrics, err := led.RetentionMetrics()
		require.NoError(t, err)

		assert.Equal(t, ledger.Metrics{}, metrics)
	})

	t.Run("unreadable install date yields zero metrics", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, baseTime)
		seed := store.Record()
		seed.FirstInstallDate = "not-a-timestamp"
		require.NoError(t, store.Save(seed))

		metrics, err := led.RetentionMetrics()
		require.NoError(t, err)

		assert.Equal(t, ledger.Metrics{}, metrics)
	})
}
