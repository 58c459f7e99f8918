package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/opengovern/og-session/internal/claims"
	"github.com/opengovern/og-session/internal/session"
	"github.com/opengovern/og-session/pkg/logging"
)

// ErrAuthRequired is returned by token accessors when no valid session
// exists.
var ErrAuthRequired = errors.New("authentication required")

// CallbackPath is the application route the identity provider redirects back
// to. It is the only path exempt from the redirect-if-unauthenticated rule.
const CallbackPath = "/callback"

// exchangeAttempts is the total number of times a code exchange is tried
// before the session enters the Failed state. Retries are immediate, with no
// backoff, and apply to any error response from the token endpoint.
const exchangeAttempts = 3

// State names the position of the session in its lifecycle.
type State int

const (
	// StateUnauthenticated is the initial state and the state after logout.
	StateUnauthenticated State = iota

	// StateExchanging means a code exchange is in flight.
	StateExchanging

	// StateAuthenticated means a successful exchange produced a token.
	StateAuthenticated

	// StateFailed means the last exchange exhausted its retries. For gating
	// purposes it behaves like StateUnauthenticated, but the error message
	// is retained for display.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateExchanging:
		return "exchanging"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UserInfo is the display identity decoded from the bearer token.
type UserInfo struct {
	Email   string
	Name    string
	Picture string
}

// Manager owns the authorization-code exchange and logout transitions. It is
// the only writer of successful credential state.
//
// All failures are represented as data on the session record, never as
// errors escaping LoginWithCode: consumers poll the record (or subscribe to
// the store) rather than catching anything, so the gate can always render
// deterministically.
type Manager struct {
	store      *session.Store
	provider   *Provider
	nav        Navigator
	httpClient *http.Client
	appRoot    string

	// now is swapped in tests.
	now func() time.Time

	// mu guards the single-flight exchange flag.
	mu         sync.Mutex
	exchanging bool
}

// ManagerConfig configures the session manager.
type ManagerConfig struct {
	// Store is the session store the manager writes through.
	Store *session.Store

	// Provider resolves the identity provider endpoints.
	Provider *Provider

	// Navigator performs the post-logout navigation. Optional.
	Navigator Navigator

	// AppRoot is this application's own base URL; the redirect URI sent on
	// the exchange is AppRoot + CallbackPath.
	AppRoot string

	// HTTPClient overrides the client used for the token endpoint.
	HTTPClient *http.Client
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Manager{
		store:      cfg.Store,
		provider:   cfg.Provider,
		nav:        cfg.Navigator,
		httpClient: httpClient,
		appRoot:    strings.TrimSuffix(cfg.AppRoot, "/"),
		now:        time.Now,
	}
}

// RedirectURI returns the redirect_uri sent to the identity provider.
func (m *Manager) RedirectURI() string {
	return m.appRoot + CallbackPath
}

// AppRoot returns the application's base URL.
func (m *Manager) AppRoot() string {
	return m.appRoot
}

// Record returns the current session record.
func (m *Manager) Record() session.Record {
	return m.store.Read()
}

// State derives the lifecycle state from the current record.
func (m *Manager) State() State {
	rec := m.store.Read()
	switch {
	case rec.IsLoading:
		return StateExchanging
	case rec.IsSuccessful && rec.Token != "":
		return StateAuthenticated
	case rec.Error != "":
		return StateFailed
	default:
		return StateUnauthenticated
	}
}

// LoginWithCode exchanges an authorization code for a bearer token and
// writes the outcome to the session store.
//
// An empty code is a no-op, as is a call while another exchange is in
// flight: duplicate invocations (re-renders, retry races) must not trigger
// duplicate exchanges. Outcomes, including exhausted retries, land on the
// record's Error field rather than being returned.
func (m *Manager) LoginWithCode(ctx context.Context, code string) {
	if code == "" {
		return
	}

	m.mu.Lock()
	if m.exchanging {
		m.mu.Unlock()
		logging.Debug("Auth", "Code exchange already in flight, ignoring duplicate login")
		return
	}
	m.exchanging = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.exchanging = false
		m.mu.Unlock()
	}()

	m.store.Write(session.Record{IsLoading: true})

	var lastErr string
	var lastRaw map[string]interface{}

	for attempt := 1; attempt <= exchangeAttempts; attempt++ {
		payload, err := m.exchange(ctx, code)
		if err != nil {
			lastErr = fmt.Sprintf("token exchange failed: %v", err)
			logging.Warn("Auth", "Code exchange attempt %d/%d failed: %v", attempt, exchangeAttempts, err)
			continue
		}

		if errCode, ok := payload["error"].(string); ok && errCode != "" {
			lastErr = errCode
			if desc, ok := payload["error_description"].(string); ok && desc != "" {
				lastErr = desc
			}
			lastRaw = payload
			logging.Warn("Auth", "Token endpoint returned error on attempt %d/%d: %s", attempt, exchangeAttempts, errCode)
			continue
		}

		token, _ := payload["access_token"].(string)
		if token == "" {
			lastErr = "token endpoint response missing access_token"
			lastRaw = payload
			continue
		}

		m.store.Write(session.Record{
			Token:        token,
			IsSuccessful: true,
			RawResponse:  payload,
		})

		if c, err := claims.Decode(token); err == nil {
			logging.Info("Auth", "Signed in as %s (token expires %s)", c.Email, c.ExpiresAt().Format(time.RFC3339))
		} else {
			logging.Info("Auth", "Signed in (token claims undecodable: %v)", err)
		}
		return
	}

	m.store.Write(session.Record{
		Error:       lastErr,
		RawResponse: lastRaw,
	})
	logging.Warn("Auth", "Code exchange failed after %d attempts: %s", exchangeAttempts, lastErr)
}

// exchange performs one form-encoded POST against the token endpoint and
// returns the parsed response payload. The provider's error responses are
// returned as payloads, not errors, so the caller can apply its retry
// policy uniformly.
func (m *Manager) exchange(ctx context.Context, code string) (map[string]interface{}, error) {
	endpoints, err := m.provider.Endpoints(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type": {"authorization_code"},
		"client_id":  {m.provider.ClientID()},
		// Public client: no secret is held client-side.
		"client_secret": {""},
		"code":          {code},
		"redirect_uri":  {m.RedirectURI()},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoints.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unparseable token response (status %d): %w", resp.StatusCode, err)
	}

	return payload, nil
}

// Logout unconditionally resets the session to the unauthenticated record,
// overwriting the persistent slot, then performs a full navigation to the
// application root. The full navigation, rather than a soft state change,
// is what flushes every downstream in-memory cache.
func (m *Manager) Logout() {
	m.store.Write(session.Record{})
	logging.Info("Auth", "Logged out, session cleared")

	if m.nav != nil {
		if err := m.nav.Navigate(m.appRoot + "/"); err != nil {
			logging.Warn("Auth", "Post-logout navigation failed: %v", err)
		}
	}
}

// IsAuthenticated reports whether the session holds a live credential. It is
// recomputed on every call from the record and the wall clock, never cached,
// so expiry takes effect without a write.
func (m *Manager) IsAuthenticated() bool {
	return recordAuthenticated(m.store.Read(), m.now())
}

// recordAuthenticated is the authoritative authenticated check: a successful
// exchange, a present token, and a decoded expiry still in the future. A
// token whose claims cannot be decoded is never authenticated.
func recordAuthenticated(rec session.Record, now time.Time) bool {
	if !rec.IsSuccessful || rec.Token == "" {
		return false
	}
	c, err := claims.Decode(rec.Token)
	if err != nil {
		return false
	}
	return c.Expiry > now.Unix()
}

// IsLoading reports whether an exchange is in flight.
func (m *Manager) IsLoading() bool {
	return m.store.Read().IsLoading
}

// Err returns the last exchange error description, empty when none.
func (m *Manager) Err() string {
	return m.store.Read().Error
}

// GetAccessTokenSilently returns the live bearer token, or ErrAuthRequired
// when the session is absent or expired. No network round trip is made.
func (m *Manager) GetAccessTokenSilently(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec := m.store.Read()
	if !recordAuthenticated(rec, m.now()) {
		return "", ErrAuthRequired
	}
	return rec.Token, nil
}

// GetIDTokenClaims returns the claims decoded from the current token.
func (m *Manager) GetIDTokenClaims() (*claims.Claims, error) {
	rec := m.store.Read()
	if rec.Token == "" {
		return nil, ErrAuthRequired
	}
	return claims.Decode(rec.Token)
}

// User returns the display identity from the current token. The second
// return is false when no decodable credential is present.
func (m *Manager) User() (UserInfo, bool) {
	c, err := m.GetIDTokenClaims()
	if err != nil {
		return UserInfo{}, false
	}
	return UserInfo{Email: c.Email, Name: c.Name, Picture: c.Picture}, true
}

// OAuth2Token exposes the session as an oauth2.Token for collaborators built
// on golang.org/x/oauth2. Returns ErrAuthRequired when unauthenticated.
func (m *Manager) OAuth2Token() (*oauth2.Token, error) {
	rec := m.store.Read()
	if !recordAuthenticated(rec, m.now()) {
		return nil, ErrAuthRequired
	}
	c, err := claims.Decode(rec.Token)
	if err != nil {
		return nil, err
	}
	return rec.OAuth2Token(c.ExpiresAt()), nil
}
