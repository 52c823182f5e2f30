// Package credstore persists the session record between runs of the client.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carrent-dev/carrent/internal/session"
)

// RecordKey is the fixed key the session record is stored under.
const RecordKey = "user"

// ErrNotFound is returned by a Backend when the key holds no value.
var ErrNotFound = errors.New("credential not found")

// Backend is raw key-value storage for serialized records.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Store saves and loads the session record on top of a Backend.
type Store struct {
	backend Backend
	logger  zerolog.Logger
}

var _ session.Store = (*Store)(nil)

// New wraps backend as a session store.
func New(backend Backend, logger zerolog.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Save writes s, replacing any previous record.
func (s *Store) Save(sess *session.Session) error {
	if sess == nil {
		return s.Clear()
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.backend.Set(RecordKey, data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the stored session, or nil when there is none. A record that
// does not decode to a complete session is erased and reported as absent.
func (s *Store) Load() (*session.Session, error) {
	data, err := s.backend.Get(RecordKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Debug().Err(err).Msg("Discarding unreadable session record")
		return nil, s.discard()
	}
	if !sess.Valid() {
		s.logger.Debug().Msg("Discarding incomplete session record")
		return nil, s.discard()
	}
	return &sess, nil
}

// Clear removes the stored session. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	if err := s.backend.Delete(RecordKey); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close releases the backend if it holds resources.
func (s *Store) Close() error {
	if c, ok := s.backend.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// discard erases a corrupt record. A failure to erase is logged only; the
// record is still treated as absent.
func (s *Store) discard() error {
	if err := s.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to erase corrupt session record")
	}
	return nil
}
