// Package flush uploads a metrics snapshot to the remote collector. The
// upload is rate-limited to one successful send per calendar day, runs
// off the caller's path and swallows every failure: a broken collector
// must never surface in the host UI. Failures are still observable: each
// attempt produces a typed Result that gets logged.
package flush

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"panelmetrics/internal/ledger"
)

const userAgent = "panelmetrics/1.0"

// Outcome classifies one flush attempt.
type Outcome string

const (
	OutcomeSent            Outcome = "sent"
	OutcomeSkipNoEndpoint  Outcome = "skip_no_endpoint"
	OutcomeSkipAlreadySent Outcome = "skip_already_sent_today"
	OutcomeSkipInFlight    Outcome = "skip_in_flight"
	OutcomeSnapshotError   Outcome = "snapshot_error"
	OutcomeEncodeError     Outcome = "encode_error"
	OutcomeNetworkError    Outcome = "network_error"
	OutcomeStatusError     Outcome = "status_error"
)

// Result is the typed outcome of a flush attempt.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Err        error
}

// Sent reports whether the collector confirmed the upload.
func (r Result) Sent() bool {
	return r.Outcome == OutcomeSent
}

// Sender performs collector uploads.
type Sender struct {
	led        *ledger.Ledger
	endpoint   string
	credential func() string
	client     *http.Client
	logger     *slog.Logger

	// At most one attempt in flight; the daily gate alone would still
	// allow two concurrent sends triggered within the same session.
	inFlight atomic.Bool
}

// NewSender creates a Sender. An empty endpoint disables uploads
// entirely. The credential provider is consulted on every attempt so a
// stored override takes effect without a restart.
func NewSender(led *ledger.Ledger, endpoint string, timeout time.Duration, credential func() string, logger *slog.Logger) *Sender {
	if credential == nil {
		credential = BakedCredential
	}
	return &Sender{
		led:        led,
		endpoint:   endpoint,
		credential: credential,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// TryDaily triggers an asynchronous upload attempt unless one already
// succeeded today. It never blocks the caller; the attempt completes or
// fails on its own detached goroutine.
func (s *Sender) TryDaily() {
	if s.endpoint == "" {
		return
	}

	due, err := s.dueToday()
	if err != nil || !due {
		return
	}

	go func() {
		s.logResult(s.SendDaily())
	}()
}

// SendDaily runs one gated attempt synchronously: skips when an upload
// already succeeded today, otherwise behaves like Send. Background jobs
// call this directly since they already run off the UI path.
func (s *Sender) SendDaily() Result {
	due, err := s.dueToday()
	if err != nil {
		return Result{Outcome: OutcomeSnapshotError, Err: err}
	}
	if !due {
		return Result{Outcome: OutcomeSkipAlreadySent}
	}
	return s.Send()
}

// Send performs one upload attempt regardless of the daily gate (the
// control CLI uses this to force a send). Only the in-flight guard and
// the endpoint check still apply. On confirmed success it stamps
// last_analytics_sent; on any failure the record is left untouched.
func (s *Sender) Send() Result {
	if s.endpoint == "" {
		return Result{Outcome: OutcomeSkipNoEndpoint}
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return Result{Outcome: OutcomeSkipInFlight}
	}
	defer s.inFlight.Store(false)

	rec, err := s.led.Snapshot()
	if err != nil {
		return Result{Outcome: OutcomeSnapshotError, Err: err}
	}

	body, err := json.Marshal(NewPayload(rec))
	if err != nil {
		return Result{Outcome: OutcomeEncodeError, Err: err}
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: OutcomeEncodeError, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+s.credential())

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{Outcome: OutcomeNetworkError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{
			Outcome:    OutcomeStatusError,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("collector returned status %d", resp.StatusCode),
		}
	}

	result := Result{Outcome: OutcomeSent, StatusCode: resp.StatusCode}
	if err := s.led.MarkAnalyticsSent(s.led.Now()); err != nil {
		// The upload itself succeeded; the missed stamp only means one
		// extra attempt tomorrow.
		result.Err = err
	}
	return result
}

// dueToday reports whether no upload has succeeded yet today. An
// unreadable timestamp counts as due.
func (s *Sender) dueToday() (bool, error) {
	rec, err := s.led.Snapshot()
	if err != nil {
		return false, err
	}
	if rec.LastAnalyticsSent == "" {
		return true, nil
	}

	lastSent, err := time.Parse(time.RFC3339, rec.LastAnalyticsSent)
	if err != nil {
		return true, nil
	}
	return lastSent.Format("2006-01-02") != s.led.Now().Format("2006-01-02"), nil
}

func (s *Sender) logResult(result Result) {
	switch result.Outcome {
	case OutcomeSent:
		s.logger.Info("Uploaded analytics snapshot", slog.Int("status", result.StatusCode))
		if result.Err != nil {
			s.logger.Warn("Failed to stamp last_analytics_sent", slog.Any("error", result.Err))
		}
	case OutcomeSkipAlreadySent, OutcomeSkipNoEndpoint, OutcomeSkipInFlight:
		s.logger.Debug("Skipped analytics upload", slog.String("outcome", string(result.Outcome)))
	default:
		s.logger.Warn("Analytics upload failed",
			slog.String("outcome", string(result.Outcome)),
			slog.Int("status", result.StatusCode),
			slog.Any("error", result.Err))
	}
}
