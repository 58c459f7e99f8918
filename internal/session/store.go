package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/opengovern/og-session/pkg/logging"
)

// DefaultStorageDir is the default directory for session state, relative to
// the user's home directory.
const DefaultStorageDir = ".config/og-session"

// recordFileName is the single named slot holding the serialized Record.
const recordFileName = "session.json"

// Store is the process-wide holder of the credential Record, backed by a
// durable file slot so a restart does not lose a still-valid session.
//
// Reads seed from the persisted slot on first access. A corrupt persisted
// record is treated as "no credential": it is logged and never surfaced, so
// application start cannot be blocked by storage corruption.
type Store struct {
	mu       sync.RWMutex
	path     string
	fileMode bool
	seeded   bool
	rec      Record

	subMu   sync.Mutex
	subs    map[int]func(Record)
	nextSub int
}

// StoreConfig configures the session store.
type StoreConfig struct {
	// StorageDir is the directory holding the persisted slots.
	// Defaults to ~/.config/og-session.
	StorageDir string

	// FileMode enables durable persistence. If false, state is in-memory
	// only (used by tests and short-lived consumers).
	FileMode bool
}

// NewStore creates a session store with the given configuration.
func NewStore(cfg StoreConfig) (*Store, error) {
	storageDir := cfg.StorageDir
	if storageDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		storageDir = filepath.Join(homeDir, DefaultStorageDir)
	}

	if cfg.FileMode {
		if err := os.MkdirAll(storageDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create session storage directory: %w", err)
		}
	}

	return &Store{
		path:     filepath.Join(storageDir, recordFileName),
		fileMode: cfg.FileMode,
		subs:     make(map[int]func(Record)),
	}, nil
}

// Read returns the current record. On the first access after process start
// it seeds from the persisted slot if present and parseable, otherwise the
// empty record.
func (s *Store) Read() Record {
	s.mu.RLock()
	if s.seeded {
		rec := s.rec
		s.mu.RUnlock()
		return rec
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		s.rec = s.load()
		s.seeded = true
	}
	return s.rec
}

// Write replaces the current record and synchronously persists it to the
// durable slot, then notifies subscribers. Persistence failures are logged,
// not surfaced: the in-memory record remains authoritative for this process.
func (s *Store) Write(rec Record) {
	s.mu.Lock()
	s.rec = rec
	s.seeded = true
	if s.fileMode {
		if err := s.persist(rec); err != nil {
			logging.Warn("Session", "Failed to persist session record: %v", err)
		}
	}
	s.mu.Unlock()

	s.notify(rec)
}

// Subscribe registers fn to be called after every write. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Record)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Watch observes the backing file for writes performed by other processes of
// the same user (for example a login completed from a second terminal) and
// folds them into the in-memory record, notifying subscribers. It blocks
// until the context is cancelled. No-op when persistence is disabled.
func (s *Store) Watch(ctx context.Context) error {
	if !s.fileMode {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and atomic writers replace
	// the file, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch session directory: %w", err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != recordFileName {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Session", "Watcher error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Path returns the location of the persisted slot.
func (s *Store) Path() string {
	return s.path
}

// load reads the persisted slot. Missing or corrupt files yield the empty
// record so application start never fails on storage state.
func (s *Store) load() Record {
	if !s.fileMode {
		return Record{}
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Session", "Failed to read session record: %v", err)
		}
		return Record{}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		logging.Warn("Session", "Persisted session record unreadable, starting empty: %v", err)
		return Record{}
	}

	return rec
}

// persist writes the full serialized record with owner-only permissions.
func (s *Store) persist(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}

	return nil
}

// reload re-reads the slot after an external change and notifies subscribers
// when the content differs from the in-memory record.
func (s *Store) reload() {
	rec := s.load()

	s.mu.Lock()
	if s.seeded && rec.Equal(s.rec) {
		s.mu.Unlock()
		return
	}
	s.rec = rec
	s.seeded = true
	s.mu.Unlock()

	logging.Debug("Session", "Session record changed on disk, reloaded")
	s.notify(rec)
}

func (s *Store) notify(rec Record) {
	s.subMu.Lock()
	fns := make([]func(Record), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(rec)
	}
}
