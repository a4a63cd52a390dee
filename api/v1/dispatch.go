package v1

import (
	"errors"
	"fmt"

	"panelmetrics/internal/ledger"
)

// Inbound event names accepted by the intake API. These are the abstract
// events the surrounding panel UI emits.
const (
	EventPanelOpened         = "panel_opened"
	EventTemplateUsed        = "template_used"
	EventQuickActionUsed     = "quick_action_used"
	EventShortcutUsed        = "shortcut_used"
	EventSignupClicked       = "signup_clicked"
	EventAuthButtonClicked   = "auth_button_clicked"
	EventLoginDetected       = "login_detected"
	EventOnboardingCompleted = "onboarding_completed"
	EventTutorialStatus      = "tutorial_status_changed"
	EventTutorialStep        = "tutorial_step_changed"
)

// Dispatch validation errors. Both map to a 400 at the HTTP layer.
var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrInvalidParam = errors.New("invalid event parameter")
)

// TrackEventParams is the intake request body. Method, Kind, Status and
// the step counters are only read for the events that use them.
type TrackEventParams struct {
	Event   string `json:"event"`
	Method  string `json:"method,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Status  string `json:"status,omitempty"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
}

// Dispatch maps one inbound UI event onto its ledger operation.
func Dispatch(led *ledger.Ledger, params TrackEventParams) error {
	switch params.Event {
	case EventPanelOpened, EventTemplateUsed:
		return led.RecordUsage()

	case EventQuickActionUsed:
		return led.IncrementQuickActionUsage()

	case EventShortcutUsed:
		return led.IncrementShortcutUsage()

	case EventSignupClicked:
		method := ledger.SignupMethod(params.Method)
		if params.Method == "" {
			// The sidebar button is the instrumented path; organic
			// navigation reports itself explicitly.
			method = ledger.SignupMethodSidebarButton
		}
		if !method.Valid() {
			return fmt.Errorf("%w: signup method %q", ErrInvalidParam, params.Method)
		}
		return led.RecordSignupClick(method)

	case EventAuthButtonClicked:
		kind := ledger.AuthButton(params.Kind)
		if !kind.Valid() {
			return fmt.Errorf("%w: auth button %q", ErrInvalidParam, params.Kind)
		}
		return led.RecordAuthButtonClick(kind)

	case EventLoginDetected:
		return led.RecordLoginDetected()

	case EventOnboardingCompleted:
		return led.RecordOnboardingCompleted()

	case EventTutorialStatus:
		status := ledger.TutorialStatus(params.Status)
		if !status.Valid() {
			return fmt.Errorf("%w: tutorial status %q", ErrInvalidParam, params.Status)
		}
		return led.SetTutorialStatus(status)

	case EventTutorialStep:
		if params.Current < 0 || params.Total <= 0 || params.Current > params.Total {
			return fmt.Errorf("%w: tutorial step %d/%d", ErrInvalidParam, params.Current, params.Total)
		}
		return led.SetTutorialStep(params.Current, params.Total)
	}

	return fmt.Errorf("%w: %q", ErrUnknownEvent, params.Event)
}
