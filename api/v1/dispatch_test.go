package v1_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "panelmetrics/api/v1"
	"panelmetrics/internal/ledger"
	"panelmetrics/internal/testsupport"
)

var dispatchBase = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestDispatch(t *testing.T) {
	t.Run("panel_opened and template_used both count as usage", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, dispatchBase)

		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{Event: v1.EventPanelOpened}))
		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{Event: v1.EventTemplateUsed}))

		rec := store.Record()
		assert.Equal(t, 2, rec.TotalUses)
		assert.Equal(t, 2, rec.DailyUsage["2026-03-15"])
	})

	t.Run("quick action and shortcut events hit their own counters", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, dispatchBase)

		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{Event: v1.EventQuickActionUsed}))
		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{Event: v1.EventShortcutUsed}))

		rec := store.Record()
		assert.Equal(t, 1, rec.QuickActionUsageCount)
		assert.Equal(t, 1, rec.ShortcutUsageCount)
		assert.Equal(t, 0, rec.TotalUses)
	})

	t.Run("signup_clicked defaults to the sidebar button", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, dispatchBase)

		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{Event: v1.EventSignupClicked}))

		assert.Equal(t, ledger.SignupMethodSidebarButton, store.Record().SignupMethod)
	})

	t.Run("signup_clicked accepts an explicit method", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, dispatchBase)

		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{
			Event:  v1.EventSignupClicked,
			Method: "organic",
		}))

		assert.Equal(t, ledger.SignupMethodOrganic, store.Record().SignupMethod)
	})

	t.Run("signup_clicked rejects an unknown method", func(t *testing.T) {
		led, _ := testsupport.NewTestLedger(t, dispatchBase)

		err := v1.Dispatch(led, v1.TrackEventParams{
			Event:  v1.EventSignupClicked,
			Method: "carrier-pigeon",
		})

		assert.ErrorIs(t, err, v1.ErrInvalidParam)
	})

	t.Run("auth_button_clicked requires a known kind", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, dispatchBase)

		err := v1.Dispatch(led, v1.TrackEventParams{Event: v1.EventAuthButtonClicked})
		assert.ErrorIs(t, err, v1.ErrInvalidParam)

		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{
			Event: v1.EventAuthButtonClicked,
			Kind:  "login",
		}))
		assert.Equal(t, ledger.AuthButtonLogin, store.Record().AuthButtonClicked)
	})

	t.Run("login and onboarding events flip their flags", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, dispatchBase)

		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{Event: v1.EventLoginDetected}))
		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{Event: v1.EventOnboardingCompleted}))

		rec := store.Record()
		assert.True(t, rec.HasLoggedIn)
		assert.True(t, rec.OnboardingCompleted)
	})

	t.Run("tutorial status requires a known value", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, dispatchBase)

		err := v1.Dispatch(led, v1.TrackEventParams{
			Event:  v1.EventTutorialStatus,
			Status: "half-done",
		})
		assert.ErrorIs(t, err, v1.ErrInvalidParam)

		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{
			Event:  v1.EventTutorialStatus,
			Status: "completed",
		}))
		assert.Equal(t, ledger.TutorialCompleted, store.Record().TutorialStatus)
	})

	t.Run("tutorial step validates its bounds", func(t *testing.T) {
		led, store := testsupport.NewTestLedger(t, dispatchBase)

		for _, params := range []v1.TrackEventParams{
			{Event: v1.EventTutorialStep, Current: -1, Total: 5},
			{Event: v1.EventTutorialStep, Current: 1, Total: 0},
			{Event: v1.EventTutorialStep, Current: 6, Total: 5},
		} {
			assert.ErrorIs(t, v1.Dispatch(led, params), v1.ErrInvalidParam)
		}

		require.NoError(t, v1.Dispatch(led, v1.TrackEventParams{
			Event:   v1.EventTutorialStep,
			Current: 3,
			Total:   5,
		}))
		assert.Equal(t, "3/5", store.Record().TutorialCurrentStep)
	})

	t.Run("unknown events are rejected", func(t *testing.T) {
		led, _ := testsupport.NewTestLedger(t, dispatchBase)

		err := v1.Dispatch(led, v1.TrackEventParams{Event: "made_up_event"})

		assert.ErrorIs(t, err, v1.ErrUnknownEvent)
	})
}
