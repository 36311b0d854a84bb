package capture

import (
	"fmt"
	"regexp"
	"strings"

	"go.klb.dev/stash/internal/content"
)

// Filter decides which clipboard snapshots are never recorded.
type Filter struct {
	// If true, patterns are treated as regex. If false, case-insensitive
	// substring match.
	useRegex bool
	patterns []string
	compiled []*regexp.Regexp
	apps     map[string]struct{}
}

// NewFilter compiles the ignore rules. Patterns apply to the plain text
// representation; apps are matched exactly against Snapshot.Application.
func NewFilter(patterns []string, useRegex bool, apps []string) (*Filter, error) {
	f := &Filter{useRegex: useRegex, apps: make(map[string]struct{}, len(apps))}
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if useRegex {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("ignore pattern %q: %w", p, err)
			}
			f.compiled = append(f.compiled, re)
			continue
		}
		f.patterns = append(f.patterns, strings.ToLower(strings.TrimSpace(p)))
	}
	for _, a := range apps {
		if a = strings.TrimSpace(a); a != "" {
			f.apps[a] = struct{}{}
		}
	}
	return f, nil
}

// ShouldIgnore reports whether snap matches an ignore rule.
func (f *Filter) ShouldIgnore(snap content.Snapshot) bool {
	if f == nil {
		return false
	}
	if _, ok := f.apps[snap.Application]; ok && snap.Application != "" {
		return true
	}

	for _, c := range snap.Contents {
		if c.Type != content.TypeText {
			continue
		}
		s := string(c.Value)
		if f.useRegex {
			for _, re := range f.compiled {
				if re.MatchString(s) {
					return true
				}
			}
			continue
		}
		low := strings.ToLower(s)
		for _, p := range f.patterns {
			if strings.Contains(low, p) {
				return true
			}
		}
	}
	return false
}
