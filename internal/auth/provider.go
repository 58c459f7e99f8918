package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/opengovern/og-session/internal/config"
	"github.com/opengovern/og-session/pkg/logging"
)

// metadataCacheTTL is the time-to-live for cached provider metadata. After
// this duration the well-known document is re-fetched.
const metadataCacheTTL = 30 * time.Minute

// defaultHTTPTimeout bounds every request to the identity provider.
const defaultHTTPTimeout = 30 * time.Second

// Endpoints are the identity provider URLs the session manager talks to.
type Endpoints struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

// Provider resolves the identity provider endpoints. When the configuration
// names explicit endpoints they are returned as-is; otherwise they are
// discovered from the issuer's well-known document and cached.
type Provider struct {
	cfg        config.ProviderConfig
	httpClient *http.Client

	mu        sync.RWMutex
	cached    *Endpoints
	fetchedAt time.Time

	// group deduplicates concurrent discovery fetches.
	group singleflight.Group
}

// NewProvider creates a provider from configuration. A nil httpClient gets a
// default with a 30 second timeout.
func NewProvider(cfg config.ProviderConfig, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Provider{
		cfg:        cfg,
		httpClient: httpClient,
	}
}

// ClientID returns the fixed public client identifier.
func (p *Provider) ClientID() string {
	return p.cfg.ClientID
}

// Scope returns the scope requested on the authorization redirect.
func (p *Provider) Scope() string {
	return p.cfg.Scope
}

// Endpoints returns the provider endpoints, discovering them when only an
// issuer is configured.
func (p *Provider) Endpoints(ctx context.Context) (*Endpoints, error) {
	if p.cfg.AuthorizationEndpoint != "" && p.cfg.TokenEndpoint != "" {
		return &Endpoints{
			Issuer:                p.cfg.Issuer,
			AuthorizationEndpoint: p.cfg.AuthorizationEndpoint,
			TokenEndpoint:         p.cfg.TokenEndpoint,
		}, nil
	}

	if p.cfg.Issuer == "" {
		return nil, fmt.Errorf("no issuer configured for endpoint discovery")
	}

	p.mu.RLock()
	if p.cached != nil && time.Since(p.fetchedAt) < metadataCacheTTL {
		cached := p.cached
		p.mu.RUnlock()
		return cached, nil
	}
	p.mu.RUnlock()

	result, err, _ := p.group.Do(p.cfg.Issuer, func() (interface{}, error) {
		// Re-check after winning the singleflight slot: a concurrent caller
		// may have refreshed the cache already.
		p.mu.RLock()
		if p.cached != nil && time.Since(p.fetchedAt) < metadataCacheTTL {
			cached := p.cached
			p.mu.RUnlock()
			return cached, nil
		}
		p.mu.RUnlock()

		return p.discover(ctx)
	})
	if err != nil {
		return nil, err
	}

	return result.(*Endpoints), nil
}

// discover fetches the issuer's well-known document. The OpenID Connect
// location is tried first, with the OAuth authorization server metadata
// location as fallback.
func (p *Provider) discover(ctx context.Context) (*Endpoints, error) {
	issuer := strings.TrimSuffix(p.cfg.Issuer, "/")

	endpoints, err := p.fetchWellKnown(ctx, issuer+"/.well-known/openid-configuration")
	if err != nil {
		endpoints, err = p.fetchWellKnown(ctx, issuer+"/.well-known/oauth-authorization-server")
		if err != nil {
			return nil, fmt.Errorf("failed to discover provider metadata: %w", err)
		}
	}

	if endpoints.AuthorizationEndpoint == "" || endpoints.TokenEndpoint == "" {
		return nil, fmt.Errorf("provider metadata for %s is missing endpoints", issuer)
	}

	p.mu.Lock()
	p.cached = endpoints
	p.fetchedAt = time.Now()
	p.mu.Unlock()

	logging.Debug("Auth", "Discovered provider metadata for issuer=%s (authorize=%s, token=%s)",
		issuer, endpoints.AuthorizationEndpoint, endpoints.TokenEndpoint)

	return endpoints, nil
}

func (p *Provider) fetchWellKnown(ctx context.Context, wellKnownURL string) (*Endpoints, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnownURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata fetch failed: status=%d", resp.StatusCode)
	}

	var endpoints Endpoints
	if err := json.NewDecoder(resp.Body).Decode(&endpoints); err != nil {
		return nil, fmt.Errorf("failed to parse provider metadata: %w", err)
	}

	return &endpoints, nil
}
