package session

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/opengovern/og-session/pkg/logging"
)

// returnURLFileName is the ephemeral slot holding the pre-redirect URL.
// Its lifetime is one redirect round trip.
const returnURLFileName = "return_url"

// ReturnURLStore holds the URL the user was on before being sent to the
// identity provider. It is written immediately before the redirect and read
// exactly once by the callback handler.
type ReturnURLStore struct {
	mu       sync.Mutex
	path     string
	fileMode bool
	value    string
}

// NewReturnURLStore creates the ephemeral return URL slot alongside the
// session store's slot.
func NewReturnURLStore(cfg StoreConfig) (*ReturnURLStore, error) {
	storageDir := cfg.StorageDir
	if storageDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		storageDir = filepath.Join(homeDir, DefaultStorageDir)
	}

	if cfg.FileMode {
		if err := os.MkdirAll(storageDir, 0700); err != nil {
			return nil, err
		}
	}

	return &ReturnURLStore{
		path:     filepath.Join(storageDir, returnURLFileName),
		fileMode: cfg.FileMode,
	}, nil
}

// Save records the URL to return to after the redirect round trip.
func (s *ReturnURLStore) Save(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = url
	if s.fileMode {
		if err := os.WriteFile(s.path, []byte(url), 0600); err != nil {
			logging.Warn("Session", "Failed to persist return URL: %v", err)
		}
	}
}

// Take returns the saved URL and clears the slot. It returns the empty
// string when nothing was saved.
func (s *ReturnURLStore) Take() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	url := s.value
	s.value = ""

	if s.fileMode {
		if url == "" {
			if data, err := os.ReadFile(s.path); err == nil {
				url = strings.TrimSpace(string(data))
			}
		}
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			logging.Warn("Session", "Failed to clear return URL slot: %v", err)
		}
	}

	return url
}
