package flush

import "panelmetrics/internal/ledger"

// Payload is the metrics snapshot uploaded to the collector. The key set
// is fixed: install metadata, lifetime counters and onboarding/tutorial
// state. Raw daily usage and anything beyond coarse platform/locale/
// timezone stays local.
type Payload struct {
	FirstInstallDate      string                `json:"first_install_date"`
	Platform              string                `json:"platform"`
	Locale                string                `json:"locale"`
	Timezone              string                `json:"timezone"`
	TotalUses             int                   `json:"total_uses"`
	HasLoggedIn           bool                  `json:"has_logged_in"`
	SignupMethod          ledger.SignupMethod   `json:"signup_method"`
	AuthButtonClicked     ledger.AuthButton     `json:"auth_button_clicked"`
	LastUsedDate          string                `json:"last_used_date"`
	OnboardingCompleted   bool                  `json:"onboarding_completed"`
	TutorialStatus        ledger.TutorialStatus `json:"tutorial_status"`
	TutorialCurrentStep   string                `json:"tutorial_current_step"`
	QuickActionUsageCount int                   `json:"quick_action_usage_count"`
	ShortcutUsageCount    int                   `json:"shortcut_usage_count"`
}

// NewPayload builds the upload payload from a record snapshot.
func NewPayload(rec ledger.Record) Payload {
	return Payload{
		FirstInstallDate:      rec.FirstInstallDate,
		Platform:              rec.Platform,
		Locale:                rec.Locale,
		Timezone:              rec.Timezone,
		TotalUses:             rec.TotalUses,
		HasLoggedIn:           rec.HasLoggedIn,
		SignupMethod:          rec.SignupMethod,
		AuthButtonClicked:     rec.AuthButtonClicked,
		LastUsedDate:          rec.LastUsedDate,
		OnboardingCompleted:   rec.OnboardingCompleted,
		TutorialStatus:        rec.TutorialStatus,
		TutorialCurrentStep:   rec.TutorialCurrentStep,
		QuickActionUsageCount: rec.QuickActionUsageCount,
		ShortcutUsageCount:    rec.ShortcutUsageCount,
	}
}
