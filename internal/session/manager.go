package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	loginFallback       = "Invalid email or password"
	registerFallback    = "Registration failed"
	registeredNoSession = "Registration successful, please login"
	registeredWithLogin = "Registration successful"
	loginSucceeded      = "Login successful"
)

// ErrSuperseded is returned by Login and Register when a later operation
// (usually a logout) started while the request was in flight. The late
// result has been discarded.
var ErrSuperseded = errors.New("superseded by a later session operation")

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up form.
type Registration struct {
	Name            string `json:"name" validate:"required"`
	Telephone       string `json:"telephone" validate:"required,numeric,len=10"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" form:"confirmPassword" validate:"eqfield=Password"`
	Role            Role   `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// AuthService is the remote authentication backend.
type AuthService interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
	Register(ctx context.Context, reg Registration) (*Session, error)
}

// Store persists the session between process runs.
type Store interface {
	Save(s *Session) error
	Load() (*Session, error)
	Clear() error
}

// State is the read-only view the presentation layer renders from.
type State struct {
	Session   *Session
	IsLoading bool
	IsError   bool
	IsSuccess bool
	Message   string
}

// Manager is the single owner of the current session. All mutation goes
// through its methods.
type Manager struct {
	store  Store
	auth   AuthService
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
	gen   uint64

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager seeded from the store. A persisted session
// that is expired, or cannot be loaded, is discarded.
func NewManager(store Store, auth AuthService, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		auth:   auth,
		logger: zerolog.Nop(),
		now:    time.Now,
		subs:   make(map[int]func(State)),
	}
	for _, o := range opts {
		o(m)
	}

	m.state.Session = m.restore()
	return m
}

func (m *Manager) restore() *Session {
	sess, err := m.store.Load()
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to load persisted session")
		return nil
	}
	if sess == nil {
		return nil
	}

	if IsExpiredAt(sess, m.now()) {
		m.logger.Debug().Msg("Persisted session expired, discarding")
		if err := m.store.Clear(); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to clear expired session")
		}
		return nil
	}

	m.logger.Debug().Str("user", sess.DisplayName()).Msg("Restored persisted session")
	return sess
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Current returns a copy of the current session, or nil when anonymous.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Session.Clone()
}

// Token returns the current bearer token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Session == nil {
		return ""
	}
	return m.state.Session.Token
}

// Login authenticates against the auth service. On failure the current
// session is left untouched and the failure message is both recorded in
// State and returned.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	gen := m.begin()
	sess, err := m.auth.Login(ctx, creds)

	if err == nil && !sess.Valid() {
		err = ErrIncompleteSession
	}
	if err != nil {
		return m.fail(gen, err, loginFallback)
	}
	return m.commit(gen, sess, loginSucceeded)
}

// Register creates an account. When the response carries a complete
// session the client is logged in; otherwise registration still succeeds
// and the client stays anonymous.
func (m *Manager) Register(ctx context.Context, reg Registration) error {
	gen := m.begin()
	sess, err := m.auth.Register(ctx, reg)
	if err != nil {
		return m.fail(gen, err, registerFallback)
	}

	if !sess.Valid() {
		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			m.logger.Debug().Msg("Discarding superseded registration result")
			return ErrSuperseded
		}
		m.state.IsLoading = false
		m.state.IsSuccess = true
		m.state.Message = registeredNoSession
		snap := m.snapshotLocked()
		m.mu.Unlock()

		m.logger.Info().Msg("Registered without session, login required")
		m.publish(snap)
		return nil
	}
	return m.commit(gen, sess, registeredWithLogin)
}

// Logout drops the session and clears the store. It supersedes any login
// or registration still in flight and always succeeds.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.gen++
	m.state.Session = nil
	m.state.IsLoading = false
	m.clearStoreLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Debug().Msg("Logged out")
	m.publish(snap)
}

// Reset clears the outcome flags. The session itself is not touched.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.resetLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
}

// Evict logs out and resets when token is still the current session's
// token. It reports whether a session was evicted.
func (m *Manager) Evict(token string) bool {
	m.mu.Lock()
	if m.state.Session == nil || token == "" || m.state.Session.Token != token {
		m.mu.Unlock()
		return false
	}
	m.evictLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info().Msg("Session rejected by server, logged out")
	m.publish(snap)
	return true
}

// EvictExpired logs out when the in-memory session has expired.
func (m *Manager) EvictExpired() bool {
	m.mu.Lock()
	if m.state.Session == nil || !IsExpiredAt(m.state.Session, m.now()) {
		m.mu.Unlock()
		return false
	}
	m.evictLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info().Msg("Session expired, logged out")
	m.publish(snap)
	return true
}

// Subscribe registers fn to receive every state change. The returned func
// removes the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) begin() uint64 {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.state.IsLoading = true
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
	return gen
}

func (m *Manager) commit(gen uint64, sess *Session, message string) error {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug().Msg("Discarding superseded session result")
		return ErrSuperseded
	}

	m.state.Session = sess.Clone()
	m.state.IsLoading = false
	m.state.IsError = false
	m.state.IsSuccess = true
	m.state.Message = message
	if err := m.store.Save(sess); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to persist session")
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info().Str("user", sess.DisplayName()).Str("role", string(sess.Role)).Msg("Session started")
	m.publish(snap)
	return nil
}

func (m *Manager) fail(gen uint64, err error, fallback string) error {
	message := FailureMessage(err, fallback)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug().Err(err).Msg("Discarding superseded session failure")
		return err
	}
	m.state.IsLoading = false
	m.state.IsError = true
	m.state.IsSuccess = false
	m.state.Message = message
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Debug().Err(err).Str("message", message).Msg("Session operation failed")
	m.publish(snap)
	return err
}

func (m *Manager) evictLocked() {
	m.gen++
	m.state.Session = nil
	m.clearStoreLocked()
	m.resetLocked()
}

func (m *Manager) clearStoreLocked() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to clear persisted session")
	}
}

func (m *Manager) resetLocked() {
	m.state.IsLoading = false
	m.state.IsError = false
	m.state.IsSuccess = false
	m.state.Message = ""
}

func (m *Manager) snapshotLocked() State {
	snap := m.state
	snap.Session = m.state.Session.Clone()
	return snap
}

func (m *Manager) publish(s State) {
	m.subMu.Lock()
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
