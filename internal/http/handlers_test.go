package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelmetrics/internal/flush"
	"panelmetrics/internal/ledger"
	"panelmetrics/internal/settings"
	"panelmetrics/internal/testsupport"
)

func getWithKey(t *testing.T, app *fiber.App, path, apiKey string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("reports ok with a reachable database", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		logger := testsupport.GetLogger()
		led := ledger.New(settings.NewRecordStore(db, logger), logger)
		sender := flush.NewSender(led, "", 10*time.Second, nil, logger)
		app := testsupport.CreateMinimalTestApp(t, db, led, sender)

		resp := getWithKey(t, app, "/_health", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		var health map[string]any
		require.NoError(t, json.Unmarshal(body, &health))
		assert.Equal(t, "ok", health["status"])
		assert.Equal(t, "ok", health["db_status"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	setup := func(t *testing.T) (*fiber.App, string, *settings.RecordStore) {
		t.Helper()

		db := testsupport.SetupTestDB(t)
		require.NoError(t, settings.SetupDefaultSettings(db))

		key, err := settings.RotateIntakeAPIKey(db)
		require.NoError(t, err)

		logger := testsupport.GetLogger()
		store := settings.NewRecordStore(db, logger)
		led := ledger.New(store, logger,
			ledger.WithClock(testsupport.FixedClock(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))),
		)
		sender := flush.NewSender(led, "", 10*time.Second, nil, logger)
		return testsupport.CreateMinimalTestApp(t, db, led, sender), key, store
	}

	t.Run("returns the combined metrics snapshot", func(t *testing.T) {
		app, apiKey, store := setup(t)

		rec := ledger.Record{
			FirstInstallDate: "2026-03-05T12:00:00Z",
			Platform:         "Linux",
			Locale:           "de_DE",
			Timezone:         "CET",
			TotalUses:        6,
			DailyUsage:       map[string]int{"2026-03-10": 2, "2026-03-14": 4},
			LastUsedDate:     "2026-03-14",
			HasLoggedIn:      true,
			TutorialStatus:   ledger.TutorialCompleted,
		}
		require.NoError(t, store.Save(rec))

		resp := getWithKey(t, app, "/api/internal/metrics", apiKey)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		var parsed map[string]any
		require.NoError(t, json.Unmarshal(body, &parsed))

		assert.Equal(t, float64(10), parsed["days_since_install"])
		assert.Equal(t, float64(2), parsed["active_days"])
		assert.Equal(t, float64(20), parsed["retention_rate"])
		assert.Equal(t, float64(6), parsed["total_uses"])
		assert.Equal(t, "de_DE", parsed["locale"])
		assert.Equal(t, "Germany", parsed["country"])
		assert.Equal(t, true, parsed["has_logged_in"])
		assert.Equal(t, "completed", parsed["tutorial_status"])
	})

	t.Run("requires the intake API key", func(t *testing.T) {
		app, _, _ := setup(t)

		resp := getWithKey(t, app, "/api/internal/metrics", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("uninitialized install yields zero metrics", func(t *testing.T) {
		app, apiKey, _ := setup(t)

		resp := getWithKey(t, app, "/api/internal/metrics", apiKey)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		var parsed map[string]any
		require.NoError(t, json.Unmarshal(body, &parsed))
		assert.Equal(t, float64(0), parsed["days_since_install"])
		assert.Equal(t, float64(0), parsed["total_uses"])
	})
}
