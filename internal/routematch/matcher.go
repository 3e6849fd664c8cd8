package routematch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// wildcardSuffix marks a pattern that also matches every path continuing it
const wildcardSuffix = "(.*)"

// DefaultPublicRoutes are reachable without signing in
var DefaultPublicRoutes = []string{
	"/",
	"/sign-in(.*)",
	"/sign-up(.*)",
	"/api/webhook/register",
}

var ErrInvalidPattern = errors.New("invalid route pattern")

// Matcher classifies request paths against a fixed set of route patterns.
// All patterns are compiled into one anchored expression at construction.
type Matcher struct {
	patterns []string
	re       *regexp.Regexp
}

// NewMatcher compiles the patterns. A pattern is a literal path starting with
// "/", optionally ending in "(.*)".
func NewMatcher(patterns []string) (*Matcher, error) {
	alternatives := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		expr, err := compilePattern(pattern)
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, expr)
	}

	m := &Matcher{patterns: append([]string(nil), patterns...)}
	if len(alternatives) == 0 {
		return m, nil
	}

	re, err := regexp.Compile("^(?:" + strings.Join(alternatives, "|") + ")$")
	if err != nil {
		return nil, fmt.Errorf("failed to compile route patterns: %w", err)
	}
	m.re = re

	return m, nil
}

// MustMatcher is like NewMatcher but panics on an invalid pattern
func MustMatcher(patterns []string) *Matcher {
	m, err := NewMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

func compilePattern(pattern string) (string, error) {
	if !strings.HasPrefix(pattern, "/") {
		return "", fmt.Errorf("%w %q: must start with /", ErrInvalidPattern, pattern)
	}

	literal, wildcard := strings.CutSuffix(pattern, wildcardSuffix)
	if strings.ContainsAny(literal, "()*") {
		return "", fmt.Errorf("%w %q: only a trailing %s is supported", ErrInvalidPattern, pattern, wildcardSuffix)
	}

	expr := regexp.QuoteMeta(literal)
	if wildcard {
		expr += ".*"
	}
	return expr, nil
}

// IsPublic reports whether path matches one of the patterns
func (m *Matcher) IsPublic(path string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(path)
}

// Patterns returns the patterns the matcher was built from
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
