package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/opengovern/og-session/internal/session"
	"github.com/opengovern/og-session/pkg/logging"
)

// Action is the mutually exclusive decision taken on application mount.
type Action int

const (
	// ActionNone renders straight through: the session is authenticated, or
	// the user agent is already on the callback path.
	ActionNone Action = iota

	// ActionExchange hands the authorization code in the current URL to the
	// session manager.
	ActionExchange

	// ActionRedirect sends the user agent to the identity provider's
	// authorization endpoint, after recording the pre-redirect URL.
	ActionRedirect
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionExchange:
		return "exchange"
	case ActionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decide is the pure mount-time transition: given the session record, the
// wall clock, and the current URL, it picks exactly one action.
//
//   - A non-empty code parameter, with no exchange in flight, no retained
//     error, and no live session, is exchanged.
//   - Otherwise an unauthenticated user agent anywhere but the callback path
//     is redirected to the provider.
//   - Otherwise nothing happens and the application renders.
func Decide(rec session.Record, now time.Time, current *url.URL) Action {
	authenticated := recordAuthenticated(rec, now)

	code := current.Query().Get("code")
	if code != "" && !rec.IsLoading && rec.Error == "" && !authenticated {
		return ActionExchange
	}

	if !authenticated && current.Path != CallbackPath {
		return ActionRedirect
	}

	return ActionNone
}

// Bootstrapper runs once when the application shell mounts and executes the
// decision from Decide, including the callback-path completion that returns
// the user to their pre-redirect URL.
type Bootstrapper struct {
	manager    *Manager
	store      *session.Store
	returnURLs *session.ReturnURLStore
	nav        Navigator
}

// NewBootstrapper wires the bootstrapper to its collaborators.
func NewBootstrapper(manager *Manager, store *session.Store, returnURLs *session.ReturnURLStore, nav Navigator) *Bootstrapper {
	return &Bootstrapper{
		manager:    manager,
		store:      store,
		returnURLs: returnURLs,
		nav:        nav,
	}
}

// Bootstrap inspects the current URL and session and performs one action.
// Session failures surface as record data; the returned error covers only
// wiring-level problems (endpoint discovery, navigation).
func (b *Bootstrapper) Bootstrap(ctx context.Context) error {
	current := b.nav.CurrentURL()
	query := current.Query()

	// A redirect carrying error_description instead of a code means the
	// provider denied the request (e.g. the user declined consent). There
	// is nothing to retry; surface the description verbatim.
	if desc := query.Get("error_description"); desc != "" && query.Get("code") == "" {
		b.store.Write(session.Record{Error: desc})
		logging.Warn("Auth", "Identity provider denied authorization: %s", desc)
		return nil
	}

	rec := b.store.Read()
	action := Decide(rec, time.Now(), current)
	logging.Debug("Auth", "Bootstrap decision for %s: %s", current.Path, action)

	switch action {
	case ActionExchange:
		b.manager.LoginWithCode(ctx, query.Get("code"))
		return b.completeCallback(current)

	case ActionRedirect:
		authURL, err := b.AuthorizeURL(ctx)
		if err != nil {
			return fmt.Errorf("failed to build authorization URL: %w", err)
		}

		// Record where the user was so the callback can bring them back.
		b.returnURLs.Save(current.String())
		logging.Info("Auth", "Redirecting to identity provider for %s", current.Path)
		return b.nav.Navigate(authURL)

	case ActionNone:
		return b.completeCallback(current)
	}

	return nil
}

// AuthorizeURL constructs the identity provider's authorization URL for this
// application.
func (b *Bootstrapper) AuthorizeURL(ctx context.Context) (string, error) {
	endpoints, err := b.manager.provider.Endpoints(ctx)
	if err != nil {
		return "", err
	}

	authURL, err := url.Parse(endpoints.AuthorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	query := authURL.Query()
	query.Set("response_type", "code")
	query.Set("client_id", b.manager.provider.ClientID())
	query.Set("redirect_uri", b.manager.RedirectURI())
	query.Set("scope", b.manager.provider.Scope())
	query.Set("state", uuid.NewString())
	authURL.RawQuery = query.Encode()

	return authURL.String(), nil
}

// completeCallback finishes the round trip: once the callback path has
// confirmed authentication it takes the pending return URL, falling back to
// the application root, and navigates there.
func (b *Bootstrapper) completeCallback(current *url.URL) error {
	if current.Path != CallbackPath || !b.manager.IsAuthenticated() {
		return nil
	}

	target := b.returnURLs.Take()
	if target == "" {
		target = b.manager.AppRoot() + "/"
	}

	logging.Debug("Auth", "Callback complete, returning to %s", target)
	return b.nav.Navigate(target)
}
