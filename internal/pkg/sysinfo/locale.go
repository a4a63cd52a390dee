package sysinfo

import (
	"fmt"
	"os"
	"strings"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// localeEnvVars in POSIX precedence order.
var localeEnvVars = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// DetectLocale reads the locale from the environment and normalizes it to
// "ll_RR" (e.g. "en_US"), or just "ll" when no region is present. Returns
// "" when nothing usable is set ("C", "POSIX", unparseable tags).
func DetectLocale() string {
	for _, key := range localeEnvVars {
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		if normalized := normalizeLocale(value); normalized != "" {
			return normalized
		}
	}
	return ""
}

func normalizeLocale(value string) string {
	// Strip encoding and modifier suffixes: "en_US.UTF-8@euro" -> "en_US"
	if i := strings.IndexAny(value, ".@"); i >= 0 {
		value = value[:i]
	}
	if value == "" || value == "C" || value == "POSIX" {
		return ""
	}

	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return ""
	}

	base, baseConf := tag.Base()
	if baseConf == language.No {
		return ""
	}

	region, regionConf := tag.Region()
	if regionConf == language.No || !region.IsCountry() {
		return base.String()
	}

	caser := cases.Upper(language.AmericanEnglish)
	return fmt.Sprintf("%s_%s", base.String(), caser.String(region.String()))
}

// CountryForLocale resolves the region part of a normalized locale to a
// country name for display ("en_US" -> "United States"). Empty when the
// locale has no resolvable region.
func CountryForLocale(locale string) string {
	parts := strings.SplitN(locale, "_", 2)
	if len(parts) != 2 || len(parts[1]) != 2 {
		return ""
	}

	country, err := gountries.New().FindCountryByAlpha(parts[1])
	if err != nil {
		return ""
	}
	return country.Name.Common
}
