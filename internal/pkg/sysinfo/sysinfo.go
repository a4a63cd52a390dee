// Package sysinfo captures best-effort environment metadata for the
// install record: platform, locale and timezone. Detection is never
// allowed to fail a caller; anything that cannot be determined comes back
// as an empty string.
package sysinfo

import (
	"runtime"
	"time"
)

// Info is the detected environment metadata.
type Info struct {
	Platform string
	Locale   string
	Timezone string
}

// Collect probes the current environment.
func Collect() Info {
	return Info{
		Platform: PlatformName(runtime.GOOS),
		Locale:   DetectLocale(),
		Timezone: timezoneName(time.Now()),
	}
}

// timezoneName returns the local zone abbreviation, e.g. "CET" or "PST".
func timezoneName(now time.Time) string {
	name, _ := now.Zone()
	return name
}
