package secrets

import (
	"os"
	"strings"
	"sync"

	"github.com/99designs/keyring"

	"codeberg.org/codemate/server/internal/logger"
)

const serviceName = "codemate"

// resolves provider API keys: environment variables win, the OS keyring is
// the fallback. Lookup failures degrade to "no key" and never abort a turn.
type Store struct {
	mu   sync.Mutex
	ring keyring.Keyring
	// keyring.Open is attempted once; on headless machines it routinely fails
	opened bool
}

func NewStore() *Store {
	return &Store{}
}

// returns the API key for a provider identifier (e.g. "claude"), or ""
func (s *Store) APIKey(provider string) string {
	envVar := strings.ToUpper(provider) + "_API_KEY"

	if key := os.Getenv(envVar); key != "" {
		return key
	}

	ring := s.openRing()
	if ring == nil {
		return ""
	}

	item, err := ring.Get(envVar)
	if err != nil {
		if err != keyring.ErrKeyNotFound {
			logger.Debug("keyring lookup failed", "provider", provider, "error", err)
		}

		return ""
	}

	return strings.TrimSpace(string(item.Data))
}

func (s *Store) openRing() keyring.Keyring {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return s.ring
	}

	s.opened = true

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
	})
	if err != nil {
		logger.Debug("OS keyring unavailable, using environment variables only", "error", err)
		return nil
	}

	s.ring = ring

	return ring
}
