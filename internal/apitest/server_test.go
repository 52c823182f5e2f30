package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, s *Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, BasePath+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	s := New()
	u := s.SeedUser("Jane", "jane@example.com", "secret1", "user")

	status, body := call(t, s, http.MethodPost, "/auth/login", "", obj{"email": "jane@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, u.ID, body["_id"])
	assert.Equal(t, "user", body["role"])

	claims, err := s.validateToken(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := New()
	s.SeedUser("Jane", "jane@example.com", "secret1", "user")

	status, body := call(t, s, http.MethodPost, "/auth/login", "", obj{"email": "jane@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])
}

func TestProtect_RejectsExpiredToken(t *testing.T) {
	s := New()
	u := s.SeedUser("Jane", "jane@example.com", "secret1", "user")
	token, err := s.IssueToken(u.ID, -time.Minute)
	require.NoError(t, err)

	status, _ := call(t, s, http.MethodGet, "/bookings", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthorize_AdminOnly(t *testing.T) {
	s := New()
	u := s.SeedUser("Jane", "jane@example.com", "secret1", "user")
	a := s.SeedUser("Root", "root@example.com", "secret1", "admin")
	userToken, _ := s.IssueToken(u.ID, time.Hour)
	adminToken, _ := s.IssueToken(a.ID, time.Hour)

	status, _ := call(t, s, http.MethodGet, "/dashboard", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := call(t, s, http.MethodGet, "/dashboard", adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
}

func TestCreateBooking_EnforcesLimit(t *testing.T) {
	s := New()
	u := s.SeedUser("Jane", "jane@example.com", "secret1", "user")
	p := s.SeedProvider("Downtown", "1 Main St")
	car := s.SeedCar(p.ID, "Civic", "Sedan", 1200)
	token, _ := s.IssueToken(u.ID, time.Hour)

	pickup := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	req := obj{
		"car":            car.ID,
		"provider":       p.ID,
		"pickupLocation": "Airport",
		"returnLocation": "Airport",
		"pickupDate":     pickup,
		"returnDate":     pickup.Add(48 * time.Hour),
	}

	for i := 0; i < MaxUserBookings; i++ {
		status, _ := call(t, s, http.MethodPost, "/bookings", token, req)
		require.Equal(t, http.StatusCreated, status)
	}
	status, body := call(t, s, http.MethodPost, "/bookings", token, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "already made 3 bookings")
	assert.Len(t, s.Bookings(), MaxUserBookings)
}

func TestForgotAndResetPassword(t *testing.T) {
	s := New()
	s.SeedUser("Jane", "jane@example.com", "secret1", "user")

	status, _ := call(t, s, http.MethodPost, "/auth/forgotpassword", "", obj{"email": "jane@example.com"})
	require.Equal(t, http.StatusOK, status)

	token, found := s.ResetTokenFor("jane@example.com")
	require.True(t, found)

	status, _ = call(t, s, http.MethodPut, "/auth/resetpassword/"+token, "", obj{"password": "newsecret"})
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, s, http.MethodPost, "/auth/login", "", obj{"email": "jane@example.com", "password": "newsecret"})
	assert.Equal(t, http.StatusOK, status)

	// tokens are single use
	status, _ = call(t, s, http.MethodPut, "/auth/resetpassword/"+token, "", obj{"password": "another1"})
	assert.Equal(t, http.StatusBadRequest, status)
}

// obj is shorthand for a JSON object body.
type obj map[string]any

// cleanups records Cleanup callbacks so a test can run them early.
type cleanups struct {
	fns []func()
}

func (c *cleanups) Helper()          {}
func (c *cleanups) Cleanup(f func()) { c.fns = append(c.fns, f) }

func TestNewTestServer_ClosesOnCleanup(t *testing.T) {
	c := &cleanups{}
	s, baseURL := NewTestServer(c)
	s.SeedProvider("Downtown Rentals", "1 Main St")

	resp, err := http.Get(baseURL + "/providers")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, c.fns, 1)
	c.fns[0]()

	_, err = http.Get(baseURL + "/providers")
	assert.Error(t, err)
}
