package auth

import (
	"fmt"
	"net/url"
	"sync"
)

// Navigator abstracts "where the user agent is" and full navigations away
// from it. A full navigation abandons the current page context entirely,
// which is what makes logout a hard reset: every in-memory cache downstream
// is discarded by the ensuing reload.
type Navigator interface {
	// CurrentURL returns the URL the user agent is currently on.
	CurrentURL() *url.URL

	// Navigate performs a full navigation to rawURL.
	Navigate(rawURL string) error
}

// BrowserNavigator is the CLI's Navigator. Navigations to the identity
// provider open the system browser; navigations within the application only
// move the tracked location, since the CLI has no pages of its own.
type BrowserNavigator struct {
	mu      sync.Mutex
	appHost string
	current *url.URL

	// openBrowser is swapped in tests.
	openBrowser func(url string) error
}

// NewBrowserNavigator creates a navigator rooted at the application URL.
func NewBrowserNavigator(appRoot string) (*BrowserNavigator, error) {
	u, err := url.Parse(appRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid application root %q: %w", appRoot, err)
	}

	return &BrowserNavigator{
		appHost:     u.Host,
		current:     u,
		openBrowser: OpenBrowser,
	}, nil
}

// CurrentURL returns the tracked location.
func (n *BrowserNavigator) CurrentURL() *url.URL {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// SetCurrentURL moves the tracked location without a navigation, used when
// the callback listener receives the provider's redirect.
func (n *BrowserNavigator) SetCurrentURL(u *url.URL) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = u
}

// Navigate moves to rawURL, opening the system browser when the target is
// outside the application.
func (n *BrowserNavigator) Navigate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid navigation target %q: %w", rawURL, err)
	}

	n.mu.Lock()
	n.current = u
	external := u.Host != "" && u.Host != n.appHost
	open := n.openBrowser
	n.mu.Unlock()

	if external {
		return open(rawURL)
	}
	return nil
}
