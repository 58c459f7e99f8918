package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserNavigator_ExternalNavigationOpensBrowser(t *testing.T) {
	nav, err := NewBrowserNavigator("http://localhost:3000")
	require.NoError(t, err)

	var opened []string
	nav.openBrowser = func(url string) error {
		opened = append(opened, url)
		return nil
	}

	require.NoError(t, nav.Navigate("https://idp.example.com/authorize?client_id=x"))
	assert.Equal(t, []string{"https://idp.example.com/authorize?client_id=x"}, opened)
	assert.Equal(t, "idp.example.com", nav.CurrentURL().Host)
}

func TestBrowserNavigator_InternalNavigationDoesNotOpenBrowser(t *testing.T) {
	nav, err := NewBrowserNavigator("http://localhost:3000")
	require.NoError(t, err)

	nav.openBrowser = func(url string) error {
		t.Errorf("unexpected browser open for %s", url)
		return nil
	}

	require.NoError(t, nav.Navigate("http://localhost:3000/inventory"))
	assert.Equal(t, "/inventory", nav.CurrentURL().Path)

	// Relative targets have no host and stay internal.
	require.NoError(t, nav.Navigate("/settings"))
	assert.Equal(t, "/settings", nav.CurrentURL().Path)
}

func TestBrowserNavigator_SetCurrentURL(t *testing.T) {
	nav, err := NewBrowserNavigator("http://localhost:3000")
	require.NoError(t, err)

	u := mustParseURL(t, "http://localhost:3000/callback?code=abc")
	nav.SetCurrentURL(u)
	assert.Equal(t, u, nav.CurrentURL())
}

func TestBrowserNavigator_RejectsInvalidTarget(t *testing.T) {
	nav, err := NewBrowserNavigator("http://localhost:3000")
	require.NoError(t, err)

	assert.Error(t, nav.Navigate("http://bad url with spaces\x7f"))
}
