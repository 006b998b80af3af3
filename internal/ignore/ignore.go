// internal/ignore/ignore.go
package ignore

import (
	"fmt"
	"regexp"
)

// Matcher decides whether a commit message should be skipped entirely during
// ingestion (merge commits, bot commits, explicit skip markers).
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles the configured patterns up front so a bad pattern fails
// at startup, not per request.
func NewMatcher(patterns []string) (*Matcher, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Matcher{patterns: compiled}, nil
}

// Match reports whether the commit message matches any ignore pattern.
func (m *Matcher) Match(message string) bool {
	for _, re := range m.patterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}
