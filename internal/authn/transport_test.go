package authn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrent-dev/carrent/internal/credstore"
	"github.com/carrent-dev/carrent/internal/session"
)

func newToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// loggedIn returns a manager holding a live session, persisted in a memory store.
func loggedIn(t *testing.T) (*session.Manager, *credstore.Store, string) {
	t.Helper()

	store := credstore.New(credstore.NewMemoryBackend(), zerolog.Nop())
	token := newToken(t, "user-123")
	require.NoError(t, store.Save(&session.Session{ID: "user-123", Name: "Test User", Role: session.RoleUser, Token: token}))

	return session.NewManager(store, nil), store, token
}

// headerRecorder captures the Authorization header of each request.
type headerRecorder struct {
	mu      sync.Mutex
	headers []string
}

func (h *headerRecorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.headers = append(h.headers, r.Header.Get("Authorization"))
		h.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (h *headerRecorder) last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.headers) == 0 {
		return ""
	}
	return h.headers[len(h.headers)-1]
}

func get(t *testing.T, c *http.Client, ctx context.Context, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestTransport_AttachesBearerToken(t *testing.T) {
	mgr, _, token := loggedIn(t)
	rec := &headerRecorder{}
	server := httptest.NewServer(rec.handler(http.StatusOK))
	defer server.Close()

	c := &http.Client{Transport: NewTransport(mgr, nil, zerolog.Nop())}
	resp := get(t, c, context.Background(), server.URL+"/bookings")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer "+token, rec.last())
}

func TestTransport_NoSessionNoHeader(t *testing.T) {
	store := credstore.New(credstore.NewMemoryBackend(), zerolog.Nop())
	mgr := session.NewManager(store, nil)
	rec := &headerRecorder{}
	server := httptest.NewServer(rec.handler(http.StatusOK))
	defer server.Close()

	c := &http.Client{Transport: NewTransport(mgr, nil, zerolog.Nop())}
	get(t, c, context.Background(), server.URL+"/cars")

	assert.Empty(t, rec.last())
}

func TestTransport_AnonymousRequestsCarryNoToken(t *testing.T) {
	mgr, _, _ := loggedIn(t)
	rec := &headerRecorder{}
	server := httptest.NewServer(rec.handler(http.StatusOK))
	defer server.Close()

	c := &http.Client{Transport: NewTransport(mgr, nil, zerolog.Nop())}
	get(t, c, Anonymous(context.Background()), server.URL+"/auth/login")

	assert.Empty(t, rec.last())
}

func TestTransport_DoesNotMutateCallerRequest(t *testing.T) {
	mgr, _, _ := loggedIn(t)
	server := httptest.NewServer((&headerRecorder{}).handler(http.StatusOK))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := NewTransport(mgr, nil, zerolog.Nop()).RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestTransport_UnauthorizedEvictsSession(t *testing.T) {
	mgr, store, _ := loggedIn(t)
	server := httptest.NewServer((&headerRecorder{}).handler(http.StatusUnauthorized))
	defer server.Close()

	c := &http.Client{Transport: NewTransport(mgr, nil, zerolog.Nop())}
	resp := get(t, c, context.Background(), server.URL+"/bookings")

	// the caller still sees the 401
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Nil(t, mgr.Current())
	assert.Equal(t, session.State{}, mgr.State())
	stored, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestTransport_AnonymousUnauthorizedKeepsSession(t *testing.T) {
	mgr, _, _ := loggedIn(t)
	server := httptest.NewServer((&headerRecorder{}).handler(http.StatusUnauthorized))
	defer server.Close()

	c := &http.Client{Transport: NewTransport(mgr, nil, zerolog.Nop())}
	resp := get(t, c, Anonymous(context.Background()), server.URL+"/auth/login")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotNil(t, mgr.Current())
}

func TestTransport_ForbiddenKeepsSession(t *testing.T) {
	mgr, _, _ := loggedIn(t)
	server := httptest.NewServer((&headerRecorder{}).handler(http.StatusForbidden))
	defer server.Close()

	c := &http.Client{Transport: NewTransport(mgr, nil, zerolog.Nop())}
	get(t, c, context.Background(), server.URL+"/dashboard")

	assert.NotNil(t, mgr.Current())
}

// staleSource hands out a token that is no longer the current one.
type staleSource struct {
	evicted []string
}

func (s *staleSource) Token() string { return "stale.token.value" }

func (s *staleSource) Evict(token string) bool {
	s.evicted = append(s.evicted, token)
	return false
}

func TestTransport_EvictsWithTheTokenItSent(t *testing.T) {
	src := &staleSource{}
	server := httptest.NewServer((&headerRecorder{}).handler(http.StatusUnauthorized))
	defer server.Close()

	c := &http.Client{Transport: NewTransport(src, nil, zerolog.Nop())}
	get(t, c, context.Background(), server.URL)

	assert.Equal(t, []string{"stale.token.value"}, src.evicted)
}

func TestTransport_ExplicitAuthorizationIsKept(t *testing.T) {
	src := &staleSource{}
	rec := &headerRecorder{}
	server := httptest.NewServer(rec.handler(http.StatusUnauthorized))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer reset-link-token")

	resp, err := (&http.Client{Transport: NewTransport(src, nil, zerolog.Nop())}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer reset-link-token", rec.last())
	assert.Empty(t, src.evicted)
}

func TestIsAnonymous(t *testing.T) {
	assert.False(t, IsAnonymous(context.Background()))
	assert.True(t, IsAnonymous(Anonymous(context.Background())))
}
