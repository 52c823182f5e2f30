package credstore

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Kind names a storage backend.
type Kind string

const (
	KindFile    Kind = "file"
	KindKeyring Kind = "keyring"
	KindSQLite  Kind = "sqlite"
	KindMemory  Kind = "memory"
)

// ParseKind validates a backend name. Empty means KindFile.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindFile, nil
	case KindFile, KindKeyring, KindSQLite, KindMemory:
		return k, nil
	default:
		return "", fmt.Errorf("unknown credential store %q, must be one of: file, keyring, sqlite, memory", s)
	}
}

// Open builds a Store on the backend of the given kind. path is the
// directory (file) or database file (sqlite); it is ignored otherwise.
func Open(kind Kind, path string, logger zerolog.Logger) (*Store, error) {
	var (
		backend Backend
		err     error
	)

	switch kind {
	case KindFile, "":
		backend, err = NewFileBackend(path)
	case KindKeyring:
		backend = NewKeyringBackend("")
	case KindSQLite:
		backend, err = NewSQLiteBackend(path)
	case KindMemory:
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown credential store %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s credential store: %w", kind, err)
	}

	logger.Debug().Str("store", string(kind)).Msg("Opened credential store")
	return New(backend, logger), nil
}
