package ledger

import (
	"math"
	"time"
)

// Metrics is the derived retention snapshot. It is computed on read and
// never persisted.
type Metrics struct {
	DaysSinceInstall int          `json:"days_since_install"`
	ActiveDays       int          `json:"active_days"`
	TotalUses        int          `json:"total_uses"`
	RetentionRate    float64      `json:"retention_rate"`
	LastUsed         string       `json:"last_used,omitempty"`
	HasLoggedIn      bool         `json:"has_logged_in"`
	SignupMethod     SignupMethod `json:"signup_method,omitempty"`
}

// RetentionMetrics computes the retention snapshot from the current
// record. Pure read: it performs no writes. When the record has no
// install date (or an unreadable one), the zero Metrics is returned.
func (l *Ledger) RetentionMetrics() (Metrics, error) {
	rec, err := l.Snapshot()
	if err != nil {
		return Metrics{}, err
	}
	return computeMetrics(rec, l.now()), nil
}

func computeMetrics(rec Record, now time.Time) Metrics {
	if !rec.Installed() {
		return Metrics{}
	}

	installedAt, err := time.Parse(time.RFC3339, rec.FirstInstallDate)
	if err != nil {
		// Unreadable install date reads as "not installed".
		return Metrics{}
	}

	daysSinceInstall := int(now.Sub(installedAt).Hours() / 24)
	activeDays := len(rec.DailyUsage)

	var retentionRate float64
	if daysSinceInstall > 0 {
		retentionRate = float64(activeDays) / float64(max(daysSinceInstall, 1)) * 100
		retentionRate = math.Round(retentionRate*100) / 100
	}

	return Metrics{
		DaysSinceInstall: daysSinceInstall,
		ActiveDays:       activeDays,
		TotalUses:        rec.TotalUses,
		RetentionRate:    retentionRate,
		LastUsed:         rec.LastUsedDate,
		HasLoggedIn:      rec.HasLoggedIn,
		SignupMethod:     rec.SignupMethod,
	}
}
