package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengovern/og-session/internal/session"
)

// fakeClock is a settable time source for watchdog tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestWatchdog() (*Watchdog, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_000_000, 0)}
	w := NewWatchdog()
	w.now = clock.Now
	return w, clock
}

func TestWatchdog_SkipsWhileExpiryUnset(t *testing.T) {
	w, clock := newTestWatchdog()

	w.tick()
	assert.False(t, w.Expired())

	// Even far in the future of any plausible expiry, the sentinel keeps
	// the check off.
	clock.Set(clock.Now().Add(1000 * time.Hour))
	w.tick()
	assert.False(t, w.Expired())
}

func TestWatchdog_LatchesOnExpiry(t *testing.T) {
	w, clock := newTestWatchdog()

	w.SetExpiry(clock.Now().Add(time.Minute).Unix())
	w.tick()
	assert.False(t, w.Expired())

	clock.Set(clock.Now().Add(2 * time.Minute))
	w.tick()
	assert.True(t, w.Expired())
}

func TestWatchdog_ExpiredFlagIsMonotonic(t *testing.T) {
	w, clock := newTestWatchdog()

	expiry := clock.Now().Add(time.Minute).Unix()
	w.SetExpiry(expiry)

	clock.Set(clock.Now().Add(2 * time.Minute))
	w.tick()
	require.True(t, w.Expired())

	// Winding the clock back does not clear the flag.
	clock.Set(time.Unix(expiry-30, 0))
	w.tick()
	assert.True(t, w.Expired())

	// Re-recording the same expiry does not clear it either.
	w.SetExpiry(expiry)
	assert.True(t, w.Expired())

	// Recording the unknown sentinel does not clear it.
	w.SetExpiry(0)
	assert.True(t, w.Expired())
}

func TestWatchdog_FreshLoginClearsFlag(t *testing.T) {
	w, clock := newTestWatchdog()

	w.SetExpiry(clock.Now().Add(time.Minute).Unix())
	clock.Set(clock.Now().Add(2 * time.Minute))
	w.tick()
	require.True(t, w.Expired())

	// A new token with a future expiry is the only thing that resets.
	w.SetExpiry(clock.Now().Add(time.Hour).Unix())
	assert.False(t, w.Expired())

	w.tick()
	assert.False(t, w.Expired())
}

func TestWatchdog_PastExpiryDoesNotClearFlag(t *testing.T) {
	w, clock := newTestWatchdog()

	w.SetExpiry(clock.Now().Add(time.Minute).Unix())
	clock.Set(clock.Now().Add(2 * time.Minute))
	w.tick()
	require.True(t, w.Expired())

	// A different but already-past expiry is not a fresh login.
	w.SetExpiry(clock.Now().Add(-time.Hour).Unix())
	assert.True(t, w.Expired())
}

func TestWatchdog_Observe(t *testing.T) {
	w, clock := newTestWatchdog()

	exp := clock.Now().Add(-time.Minute).Unix()
	token := makeToken(t, map[string]interface{}{"sub": "user-1", "exp": exp})

	w.Observe(session.Record{Token: token, IsSuccessful: true})
	w.tick()
	assert.True(t, w.Expired())

	// An undecodable token maps to the unknown sentinel; the flag stays.
	w.Observe(session.Record{Token: "opaque", IsSuccessful: true})
	w.tick()
	assert.True(t, w.Expired())

	// A fresh record with a future expiry clears it.
	fresh := makeToken(t, map[string]interface{}{"sub": "user-1", "exp": clock.Now().Add(time.Hour).Unix()})
	w.Observe(session.Record{Token: fresh, IsSuccessful: true})
	assert.False(t, w.Expired())
}

func TestWatchdog_StartStopLifecycle(t *testing.T) {
	w, clock := newTestWatchdog()
	w.interval = 5 * time.Millisecond

	w.SetExpiry(clock.Now().Add(-time.Minute).Unix())
	w.Start()
	defer w.Stop()

	require.Eventually(t, w.Expired, time.Second, time.Millisecond)

	// Start on a running watchdog is a no-op; Stop twice is safe.
	w.Start()
	w.Stop()
	w.Stop()
}

func TestWatchdog_SetExpiryRestartsRunningTimer(t *testing.T) {
	w, clock := newTestWatchdog()
	w.interval = 5 * time.Millisecond

	w.Start()
	defer w.Stop()

	w.SetExpiry(clock.Now().Add(time.Hour).Unix())
	assert.False(t, w.Expired())

	w.SetExpiry(clock.Now().Add(-time.Minute).Unix())
	require.Eventually(t, w.Expired, time.Second, time.Millisecond)
}
