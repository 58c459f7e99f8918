package auth

import (
	"sync"
	"time"

	"github.com/opengovern/og-session/internal/claims"
	"github.com/opengovern/og-session/internal/session"
	"github.com/opengovern/og-session/pkg/logging"
)

// watchdogInterval is the fixed period of the expiry check.
const watchdogInterval = 5 * time.Second

// Watchdog decouples "a token is structurally present" from "the user should
// be treated as logged out". It compares the recorded token expiry against
// the wall clock on a fixed timer, with no network round trip, and latches
// an expired flag the first time the deadline passes.
//
// The flag is monotonic for the life of the process: ticks never clear it,
// only a fresh login (a new, future expiry) does. The timer is an owned
// resource; Stop must be called when the owning component unmounts, and the
// timer is restarted whenever the recorded expiry changes so runs never
// stack.
type Watchdog struct {
	mu       sync.Mutex
	interval time.Duration
	expiry   int64 // unix seconds; 0 means not set
	expired  bool
	running  bool
	stopCh   chan struct{}

	// now is swapped in tests.
	now func() time.Time
}

// NewWatchdog creates a stopped watchdog with the fixed 5 second period.
func NewWatchdog() *Watchdog {
	return &Watchdog{
		interval: watchdogInterval,
		now:      time.Now,
	}
}

// Start begins the periodic expiry check. Starting a running watchdog is a
// no-op.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.startLocked()
}

// Stop cancels the timer. The expired flag is retained.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

// SetExpiry records the token expiry the timer checks against; 0 is the
// sentinel for "unknown/not set" and makes ticks skip the comparison.
// A changed expiry restarts the timer, and a fresh, still-future expiry
// (a re-login) clears the expired flag.
func (w *Watchdog) SetExpiry(expiry int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if expiry == w.expiry {
		return
	}
	w.expiry = expiry

	if expiry != 0 && w.now().Unix() < expiry {
		w.expired = false
	}

	if w.running {
		w.stopLocked()
		w.startLocked()
	}
}

// Expired reports whether a tick has observed the expiry in the past.
func (w *Watchdog) Expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}

// Observe folds a session record change into the watchdog: the new token's
// expiry when it decodes, the unknown sentinel otherwise. Intended as a
// store subscriber:
//
//	store.Subscribe(watchdog.Observe)
func (w *Watchdog) Observe(rec session.Record) {
	if rec.Token == "" {
		w.SetExpiry(0)
		return
	}
	c, err := claims.Decode(rec.Token)
	if err != nil {
		w.SetExpiry(0)
		return
	}
	w.SetExpiry(c.Expiry)
}

func (w *Watchdog) startLocked() {
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})

	go w.loop(w.stopCh)
}

func (w *Watchdog) stopLocked() {
	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

func (w *Watchdog) loop(stopCh chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-stopCh:
			return
		}
	}
}

// tick performs one comparison. The check is skipped while no expiry has
// been recorded, and once the flag is set no tick can clear it.
func (w *Watchdog) tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.expiry == 0 || w.expired {
		return
	}

	if w.now().Unix() >= w.expiry {
		w.expired = true
		logging.Info("Auth", "Session token expired at %s", time.Unix(w.expiry, 0).Format(time.RFC3339))
	}
}
