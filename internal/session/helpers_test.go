package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// signToken mints an HS256 token with the given claims.
func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// tokenExpiringAt mints a token whose exp claim is at.
func tokenExpiringAt(t *testing.T, at time.Time) string {
	t.Helper()
	return signToken(t, jwt.MapClaims{"sub": "user-123", "exp": at.Unix()})
}

func validSession(t *testing.T, role Role, exp time.Time) *Session {
	t.Helper()
	return &Session{
		ID:    "user-123",
		Name:  "Test User",
		Email: "test@example.com",
		Role:  role,
		Token: tokenExpiringAt(t, exp),
	}
}

// mockStore is an in-memory Store that records calls.
type mockStore struct {
	mu      sync.Mutex
	session *Session
	loadErr error
	saveErr error
	saves   int
	clears  int
}

func (m *mockStore) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.session = s.Clone()
	return nil
}

func (m *mockStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.session.Clone(), nil
}

func (m *mockStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.session = nil
	return nil
}

func (m *mockStore) stored() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}

// mockAuth answers logins and registrations with canned results. When gate
// is set, calls block until it is closed, after signalling on started.
type mockAuth struct {
	session *Session
	err     error
	gate    chan struct{}
	started chan struct{}
}

func (m *mockAuth) wait(ctx context.Context) error {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.gate == nil {
		return nil
	}
	select {
	case <-m.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mockAuth) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.session.Clone(), nil
}

func (m *mockAuth) Register(ctx context.Context, reg Registration) (*Session, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.session.Clone(), nil
}

// rejection is a structured service error.
type rejection struct {
	status  int
	message string
	alt     string
}

func (r *rejection) Error() string {
	return "request failed"
}

func (r *rejection) ServiceMessage() string { return r.message }
func (r *rejection) ServiceError() string   { return r.alt }

var errTransport = errors.New("dial tcp 127.0.0.1:5000: connect: connection refused")
