package routematch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_DefaultPublicRoutes(t *testing.T) {
	m := MustMatcher(DefaultPublicRoutes)

	tests := []struct {
		name   string
		path   string
		public bool
	}{
		{name: "root", path: "/", public: true},
		{name: "sign in", path: "/sign-in", public: true},
		{name: "sign in sub path", path: "/sign-in/factor-one", public: true},
		{name: "sign in trailing slash", path: "/sign-in/", public: true},
		{name: "sign in continuation", path: "/sign-in-legacy", public: true},
		{name: "sign up", path: "/sign-up", public: true},
		{name: "sign up verify", path: "/sign-up/verify-email-address", public: true},
		{name: "webhook", path: "/api/webhook/register", public: true},
		{name: "webhook sub path is exact only", path: "/api/webhook/register/extra", public: false},
		{name: "other webhook", path: "/api/webhook/other", public: false},
		{name: "dashboard", path: "/dashboard", public: false},
		{name: "admin", path: "/admin/dashboard", public: false},
		{name: "profile", path: "/profile", public: false},
		{name: "root is exact only", path: "/index", public: false},
		{name: "nested sign in is not public", path: "/x/sign-in", public: false},
		{name: "empty", path: "", public: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.public, m.IsPublic(tt.path))
		})
	}
}

func TestMatcher_QuotesMetaCharacters(t *testing.T) {
	m := MustMatcher([]string{"/files.v1", "/a+b(.*)"})

	assert.True(t, m.IsPublic("/files.v1"))
	assert.False(t, m.IsPublic("/filesXv1"))
	assert.True(t, m.IsPublic("/a+b/c"))
	assert.False(t, m.IsPublic("/aab"))
}

func TestMatcher_Empty(t *testing.T) {
	m, err := NewMatcher(nil)
	require.NoError(t, err)

	assert.False(t, m.IsPublic("/"))
	assert.Empty(t, m.Patterns())
}

func TestNewMatcher_InvalidPatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{name: "relative", pattern: "sign-in"},
		{name: "empty", pattern: ""},
		{name: "inner group", pattern: "/(foo)/bar"},
		{name: "bare star", pattern: "/files/*"},
		{name: "wildcard not at end", pattern: "/a(.*)/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMatcher([]string{"/", tt.pattern})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPattern)
		})
	}
}

func TestMustMatcher_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustMatcher([]string{"no-slash"})
	})
}

func TestMatcher_PatternsIsCopy(t *testing.T) {
	patterns := []string{"/", "/sign-in(.*)"}
	m := MustMatcher(patterns)

	got := m.Patterns()
	got[0] = "/changed"

	assert.Equal(t, patterns, m.Patterns())
}
