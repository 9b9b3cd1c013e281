package google

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOAuthRequiresCredentials(t *testing.T) {
	_, err := NewOAuth("", "secret", "")
	assert.Error(t, err)

	_, err = NewOAuth("id", "", "")
	assert.Error(t, err)

	o, err := NewOAuth("id", "secret", "")
	require.NoError(t, err)
	assert.NotNil(t, o)
}

func TestAuthURLRequestsOfflineAccess(t *testing.T) {
	o, err := NewOAuth("id", "secret", "")
	require.NoError(t, err)

	url := o.AuthURL("state123")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
	assert.Contains(t, url, "state=state123")
}

func TestDefaultRedirectIsOutOfBand(t *testing.T) {
	o, err := NewOAuth("id", "secret", "")
	require.NoError(t, err)
	assert.Contains(t, o.AuthURL("s"), "urn")

	o, err = NewOAuth("id", "secret", "https://example.com/callback")
	require.NoError(t, err)
	assert.Contains(t, o.AuthURL("s"), "example.com")
}

func TestScopesIncludeCalendar(t *testing.T) {
	o, err := NewOAuth("id", "secret", "")
	require.NoError(t, err)

	found := false
	for _, s := range o.Scopes() {
		if strings.Contains(s, "auth/calendar") {
			found = true
		}
	}
	assert.True(t, found, "calendar scope must be requested")
}
