package ledger

import "maps"

// SignupMethod captures how the user first reached the signup flow.
type SignupMethod string

const (
	SignupMethodSidebarButton SignupMethod = "sidebar_button"
	SignupMethodOrganic       SignupMethod = "organic"
)

// Valid reports whether the signup method is a known value.
func (m SignupMethod) Valid() bool {
	return m == SignupMethodSidebarButton || m == SignupMethodOrganic
}

// AuthButton identifies which auth button the user clicked first.
type AuthButton string

const (
	AuthButtonSignup AuthButton = "signup"
	AuthButtonLogin  AuthButton = "login"
)

// Valid reports whether the auth button kind is a known value.
func (b AuthButton) Valid() bool {
	return b == AuthButtonSignup || b == AuthButtonLogin
}

// TutorialStatus tracks how far the user got through the tutorial.
// TutorialCompleted is terminal: once reached it is never overwritten.
// The non-terminal values may replace each other in any order.
type TutorialStatus string

const (
	TutorialNotStarted    TutorialStatus = ""
	TutorialCompleted     TutorialStatus = "completed"
	TutorialSkipped       TutorialStatus = "skip"
	TutorialSkippedMidway TutorialStatus = "skipped_midway"
)

// Valid reports whether the status is a known non-empty value.
func (s TutorialStatus) Valid() bool {
	return s == TutorialCompleted || s == TutorialSkipped || s == TutorialSkippedMidway
}

// Record is the single persisted analytics object for an installation.
// JSON keys match the persisted blob of earlier releases so existing
// installs keep their history. Missing keys deserialize to zero values,
// which are exactly the documented defaults, so readers never need to
// special-case partially written records.
type Record struct {
	FirstInstallDate string `json:"first_install_date,omitempty"`
	Platform         string `json:"platform,omitempty"`
	Locale           string `json:"locale,omitempty"`
	Timezone         string `json:"timezone,omitempty"`

	TotalUses    int            `json:"total_uses"`
	DailyUsage   map[string]int `json:"daily_usage,omitempty"`
	LastUsedDate string         `json:"last_used_date,omitempty"`

	SignupMethod        SignupMethod `json:"signup_method,omitempty"`
	SignupDate          string       `json:"signup_date,omitempty"`
	AuthButtonClicked   AuthButton   `json:"auth_button_clicked,omitempty"`
	AuthButtonClickDate string       `json:"auth_button_click_date,omitempty"`
	HasLoggedIn         bool         `json:"has_logged_in"`
	FirstLoginDate      string       `json:"first_login_date,omitempty"`

	OnboardingCompleted bool           `json:"onboarding_completed"`
	TutorialStatus      TutorialStatus `json:"tutorial_status,omitempty"`
	TutorialCurrentStep string         `json:"tutorial_current_step,omitempty"`

	QuickActionUsageCount int `json:"quick_action_usage_count"`
	ShortcutUsageCount    int `json:"shortcut_usage_count"`

	LastAnalyticsSent string `json:"last_analytics_sent,omitempty"`
}

// Installed reports whether first-run initialization already happened.
func (r *Record) Installed() bool {
	return r.FirstInstallDate != ""
}

// Clone returns a deep copy so snapshots never alias the stored map.
func (r Record) Clone() Record {
	out := r
	if r.DailyUsage != nil {
		out.DailyUsage = make(map[string]int, len(r.DailyUsage))
		maps.Copy(out.DailyUsage, r.DailyUsage)
	}
	return out
}
