// Package gate implements the top-level render guard. It folds the session
// record, the expiry watchdog, and the external profile/authorization
// collaborators into a single deterministic view decision.
package gate

import (
	"sync"

	"github.com/opengovern/og-session/internal/session"
	"github.com/opengovern/og-session/pkg/logging"
)

// ProfileSource reports whether the current-user profile fetch, an external
// collaborator of the gate, has completed.
type ProfileSource interface {
	ProfileReady() bool
}

// Authorizer reports whether the external product-access check allows the
// current user in. A denial renders the forbidden overlay, whose only
// action is logout.
type Authorizer interface {
	Allowed() bool
}

// ExpirySource reports the watchdog's latched expired flag.
type ExpirySource interface {
	Expired() bool
}

// View is the gate's full render decision. Exactly one of Loading or the
// ready-with-overlays shape applies: overlays are never shown while
// loading.
type View struct {
	// Loading is set while bootstrap, an exchange, or the profile fetch is
	// still in progress.
	Loading bool

	// Expired overlays the application when the watchdog flag is set. The
	// only action offered is a reload, which re-runs the bootstrapper.
	Expired bool

	// Forbidden overlays the application when the external authorization
	// check denies product access. The only action offered is logout.
	Forbidden bool

	// RoleAccessDenied shows the dismissible modal raised by routed pages
	// on finer-grained authorization failures.
	RoleAccessDenied bool

	// Error is the retained exchange failure message, shown inline on the
	// pre-login view. Empty when none.
	Error string
}

// Ready reports whether the routed application renders underneath.
func (v View) Ready() bool {
	return !v.Loading
}

// Gate is the single decision point between the session subsystem and
// rendering.
type Gate struct {
	store   *session.Store
	expiry  ExpirySource
	profile ProfileSource
	authz   Authorizer

	mu            sync.Mutex
	bootstrapping bool
	roleDenied    bool
}

// Config wires the gate to its inputs. Profile and Authorizer are optional;
// a nil Profile counts as ready and a nil Authorizer as allowed.
type Config struct {
	Store      *session.Store
	Expiry     ExpirySource
	Profile    ProfileSource
	Authorizer Authorizer
}

// New creates a gate that starts in the bootstrapping state.
func New(cfg Config) *Gate {
	return &Gate{
		store:         cfg.Store,
		expiry:        cfg.Expiry,
		profile:       cfg.Profile,
		authz:         cfg.Authorizer,
		bootstrapping: true,
	}
}

// SetBootstrapping marks the mount-time bootstrap phase. The gate holds the
// loading view until this is cleared.
func (g *Gate) SetBootstrapping(active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bootstrapping = active
}

// ReportRoleAccessDenied raises the dismissible role modal on behalf of a
// routed page.
func (g *Gate) ReportRoleAccessDenied() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roleDenied = true
	logging.Debug("Gate", "Role access denial reported")
}

// DismissRoleAccessDenied clears the role modal.
func (g *Gate) DismissRoleAccessDenied() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roleDenied = false
}

// View computes the current render decision. It reads every input fresh on
// each call; nothing here is cached.
func (g *Gate) View() View {
	g.mu.Lock()
	bootstrapping := g.bootstrapping
	roleDenied := g.roleDenied
	g.mu.Unlock()

	rec := g.store.Read()

	if bootstrapping || rec.IsLoading || !g.profileReady() {
		return View{Loading: true}
	}

	return View{
		Expired:          g.expired(),
		Forbidden:        !g.allowed(),
		RoleAccessDenied: roleDenied,
		Error:            rec.Error,
	}
}

func (g *Gate) profileReady() bool {
	if g.profile == nil {
		return true
	}
	return g.profile.ProfileReady()
}

func (g *Gate) allowed() bool {
	if g.authz == nil {
		return true
	}
	return g.authz.Allowed()
}

func (g *Gate) expired() bool {
	if g.expiry == nil {
		return false
	}
	return g.expiry.Expired()
}
