package sysinfo

import (
	"embed"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

//go:embed database/platforms.yml
var databaseFiles embed.FS

// PlatformEntry maps a GOOS pattern to a display name.
type PlatformEntry struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type platformMatcher struct {
	entries  []PlatformEntry
	compiled []*pcre.Regexp
}

var (
	matcher     *platformMatcher
	matcherOnce sync.Once
)

func getMatcher() *platformMatcher {
	matcherOnce.Do(func() {
		m := &platformMatcher{}

		data, err := databaseFiles.ReadFile("database/platforms.yml")
		if err != nil {
			matcher = m
			return
		}
		if err := yaml.Unmarshal(data, &m.entries); err != nil {
			matcher = m
			return
		}

		m.compiled = make([]*pcre.Regexp, len(m.entries))
		for i, entry := range m.entries {
			re, err := pcre.Compile(entry.Regex)
			if err != nil {
				continue
			}
			m.compiled[i] = re
		}
		matcher = m
	})
	return matcher
}

// PlatformName resolves a GOOS value to its display name. Unmatched
// values come back unchanged so the record still carries something
// useful on exotic platforms.
func PlatformName(goos string) string {
	if goos == "" {
		return ""
	}

	m := getMatcher()
	for i, entry := range m.entries {
		re := m.compiled[i]
		if re == nil {
			continue
		}
		if re.MatchString(goos) {
			return entry.Name
		}
	}
	return goos
}
