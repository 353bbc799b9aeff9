package session

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	require.NoError(t, r.Compile())

	assert.Contains(t, r.ExpiryPatterns, "Sua sessão expirou")
	assert.Contains(t, r.ExpiryPatterns, "Your session has expired")
	assert.Equal(t, r.RetrySelectors, r.ProblemSelectors)
	assert.Equal(t, "button[type='submit']", r.NextSelectors[len(r.NextSelectors)-1])
}

func TestRules_LoginURLFor(t *testing.T) {
	r := DefaultRules()
	require.NoError(t, r.Compile())

	url, ok := r.LoginURLFor("https://mail.google.com/mail/u/0/#inbox")
	assert.True(t, ok)
	assert.Equal(t, "https://accounts.google.com/signin", url)

	_, ok = r.LoginURLFor("https://example.com/")
	assert.False(t, ok)
}

func TestRules_LoginURLForUncompiled(t *testing.T) {
	r := DefaultRules()
	_, ok := r.LoginURLFor("https://drive.google.com/")
	assert.False(t, ok, "entries are ignored until Compile")
}

func TestRules_Merge(t *testing.T) {
	base := DefaultRules()
	merged := base.Merge(Rules{
		ExpiryPatterns: []string{"Sesión caducada"},
		LoginEntries:   []LoginEntry{{Match: "*.example.com/*", URL: "https://sso.example.com/login"}},
	})

	assert.Equal(t, []string{"Sesión caducada"}, merged.ExpiryPatterns)
	assert.Equal(t, base.RetrySelectors, merged.RetrySelectors)
	assert.Equal(t, base.EmailSelectors, merged.EmailSelectors)
	require.Len(t, merged.LoginEntries, 1)

	require.NoError(t, merged.Compile())
	url, ok := merged.LoginURLFor("https://app.example.com/dashboard")
	assert.True(t, ok)
	assert.Equal(t, "https://sso.example.com/login", url)

	// base is untouched
	assert.Contains(t, base.ExpiryPatterns, "Sua sessão expirou")
}

func TestRules_CompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
	}{
		{"nothing to detect", Rules{}},
		{"empty pattern", Rules{ExpiryPatterns: []string{""}}},
		{"entry without url", Rules{ExpiryPatterns: []string{"x"}, LoginEntries: []LoginEntry{{Match: "*"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.rules.Compile())
		})
	}
}

func TestFindFirst(t *testing.T) {
	page := newFakePage("")
	second := page.add("#b")
	page.add("#c")

	el, selector, err := FindFirst(page, []string{"#a", "#b", "#c"})
	require.NoError(t, err)
	assert.Equal(t, "#b", selector)
	assert.Same(t, second, el)

	el, selector, err = FindFirst(page, []string{"#x"})
	require.NoError(t, err)
	assert.Nil(t, el)
	assert.Empty(t, selector)

	page.findErr = ErrPageUnavailable
	_, _, err = FindFirst(page, []string{"#b"})
	assert.ErrorIs(t, err, ErrPageUnavailable)
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)

	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, m.Polls)

	var none *Metrics
	none.poll()
	none.remediation(Outcome{})
}
