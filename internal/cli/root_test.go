package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrent-dev/carrent/internal/apitest"
	"github.com/carrent-dev/carrent/internal/cli/commands"
	"github.com/carrent-dev/carrent/internal/client"
	"github.com/carrent-dev/carrent/internal/credstore"
	"github.com/carrent-dev/carrent/internal/session"
)

// script answers prompts in order and ends the input with io.EOF.
type script struct {
	inputs    []string
	passwords []string
	selects   []int
}

func (s *script) Input(label string) (string, error) {
	if len(s.inputs) == 0 {
		return "", io.EOF
	}
	v := s.inputs[0]
	s.inputs = s.inputs[1:]
	return v, nil
}

func (s *script) Password(label string) (string, error) {
	if len(s.passwords) == 0 {
		return "", io.EOF
	}
	v := s.passwords[0]
	s.passwords = s.passwords[1:]
	return v, nil
}

func (s *script) Select(label string, items []string) (int, error) {
	if len(s.selects) == 0 {
		return -1, io.EOF
	}
	v := s.selects[0]
	s.selects = s.selects[1:]
	return v, nil
}

type harness struct {
	api    *apitest.Server
	env    *commands.Env
	store  *credstore.Store
	prompt *script
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T, opts ...apitest.Option) *harness {
	t.Helper()

	api, baseURL := apitest.NewTestServer(t, opts...)
	store := credstore.New(credstore.NewMemoryBackend(), zerolog.Nop())

	h := &harness{
		api:    api,
		store:  store,
		prompt: &script{},
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	h.env = commands.Wire(store, client.New(baseURL), nil, zerolog.Nop())
	h.env.Prompt = h.prompt
	h.env.Out = h.out
	h.env.Err = h.errOut
	return h
}

func (h *harness) run(args ...string) error {
	h.out.Reset()
	h.errOut.Reset()

	root := NewRootCmd("test", WithEnv(h.env))
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func (h *harness) loginAs(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, h.run("login", "--email", email, "--password", "secret1"))
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("version"))
	assert.Equal(t, "carrent version test\n", h.out.String())
}

func TestExecute_ReportsErrors(t *testing.T) {
	var stderr bytes.Buffer

	require.NoError(t, execute("test", []string{"version"}, &stderr))
	assert.Empty(t, stderr.String())

	err := execute("test", []string{"no-such-command"}, &stderr)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Error: unknown command")
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane Doe", "jane@example.com", "secret1", "admin")

	require.NoError(t, h.run("login", "--email", "jane@example.com", "--password", "secret1"))
	assert.Contains(t, h.out.String(), "✓ Login successful")
	assert.Contains(t, h.out.String(), "User: Jane Doe (jane@example.com)")
	assert.Contains(t, h.out.String(), "Role: Admin")

	stored, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "jane@example.com", stored.Email)

	// outcome flags are cleared once reported
	st := h.env.Session.State()
	assert.False(t, st.IsSuccess)
	assert.Empty(t, st.Message)
}

func TestLogin_PromptsForMissingFields(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	h.prompt.inputs = []string{"jane@example.com"}
	h.prompt.passwords = []string{"secret1"}

	require.NoError(t, h.run("login"))
	assert.NotNil(t, h.env.Session.Current())
}

func TestLogin_WrongPasswordKeepsPreviousSession(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	h.api.SeedUser("Sam", "sam@example.com", "secret1", "user")
	h.loginAs(t, "jane@example.com")

	err := h.run("login", "--email", "sam@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())

	var apiErr *client.APIError
	assert.True(t, errors.As(err, &apiErr))

	sess := h.env.Session.Current()
	require.NotNil(t, sess)
	assert.Equal(t, "jane@example.com", sess.Email)
}

func TestRegister_WithoutTokenStaysLoggedOut(t *testing.T) {
	h := newHarness(t, apitest.WithoutRegistrationToken())

	err := h.run("register",
		"--name", "Sam",
		"--telephone", "0812345678",
		"--email", "sam@example.com",
		"--password", "secret1",
	)
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Registration successful, please login")
	assert.Nil(t, h.env.Session.Current())
}

func TestRegister_PromptedPasswordsMustMatch(t *testing.T) {
	h := newHarness(t)
	h.prompt.passwords = []string{"secret1", "secret2"}

	err := h.run("register", "--name", "Sam", "--telephone", "0812345678", "--email", "sam@example.com")
	require.Error(t, err)
	assert.Equal(t, "passwords do not match", err.Error())
	assert.Empty(t, h.api.Requests())
}

func TestGuard_PrivateCommandRedirectsToLogin(t *testing.T) {
	h := newHarness(t)

	err := h.run("bookings", "ls")
	require.Error(t, err)
	assert.True(t, errors.Is(err, commands.ErrRedirect))

	var redirect *commands.RedirectError
	require.True(t, errors.As(err, &redirect))
	assert.Equal(t, "/login", redirect.To)
	assert.Equal(t, "Run 'carrent login' to sign in.", redirect.Hint())
	assert.Contains(t, h.errOut.String(), "Please login to continue")
	assert.Empty(t, h.api.Requests(), "a denied route must not reach the API")
}

func TestGuard_AdminCommandRedirectsHome(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	h.loginAs(t, "jane@example.com")

	for _, args := range [][]string{
		{"dashboard"},
		{"bookings", "ls", "--all"},
		{"manage", "cars", "delete", "c1"},
	} {
		err := h.run(args...)
		var redirect *commands.RedirectError
		require.True(t, errors.As(err, &redirect), "%v", args)
		assert.Equal(t, "/", redirect.To)
		assert.Equal(t, "Access denied: Admin only", redirect.Notice)
	}
}

func TestGuard_NoticeShownOnceWhileDisplayed(t *testing.T) {
	h := newHarness(t)

	require.Error(t, h.run("profile", "show"))
	assert.Contains(t, h.errOut.String(), "Please login to continue")

	require.Error(t, h.run("profile", "show"))
	assert.Empty(t, h.errOut.String())
}

func TestPublicCommandsNeedNoSession(t *testing.T) {
	h := newHarness(t)
	p := h.api.SeedProvider("Downtown", "99 Sukhumvit Rd")
	h.api.SeedCar(p.ID, "Civic", "Sedan", 1200)

	require.NoError(t, h.run("providers"))
	assert.Contains(t, h.out.String(), "Downtown")
	assert.Contains(t, h.out.String(), "99 Sukhumvit Rd")

	require.NoError(t, h.run("cars"))
	assert.Contains(t, h.out.String(), "Civic")
	assert.Contains(t, h.out.String(), "1200.00")

	require.NoError(t, h.run("whoami"))
	assert.Equal(t, "Not logged in.\n", h.out.String())
}

func TestBookAndManageBookings(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	p := h.api.SeedProvider("Downtown", "99 Sukhumvit Rd")
	car := h.api.SeedCar(p.ID, "Civic", "Sedan", 1200)
	h.loginAs(t, "jane@example.com")

	require.NoError(t, h.run("book", car.ID,
		"--pickup-location", "Siam",
		"--return-location", "Airport",
		"--pickup", "2026-05-01",
		"--return", "2026-05-04",
	))
	assert.Contains(t, h.out.String(), "✓ Booked Civic from 2026-05-01 to 2026-05-04")

	bookings := h.api.Bookings()
	require.Len(t, bookings, 1)
	id := bookings[0].ID

	require.NoError(t, h.run("bookings", "ls"))
	assert.Contains(t, h.out.String(), id)
	assert.Contains(t, h.out.String(), "pending")

	require.NoError(t, h.run("bookings", "edit", id,
		"--pickup-location", "Siam",
		"--return-location", "Siam",
		"--pickup", "2026-05-02",
		"--return", "2026-05-03",
	))
	assert.Equal(t, "Siam", h.api.Bookings()[0].ReturnLocation)

	require.NoError(t, h.run("bookings", "cancel", id))
	assert.Empty(t, h.api.Bookings())
}

func TestBook_InteractiveSelection(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	p := h.api.SeedProvider("Downtown", "99 Sukhumvit Rd")
	h.api.SeedCar(p.ID, "Civic", "Sedan", 1200)
	jazz := h.api.SeedCar(p.ID, "Jazz", "Hatchback", 900)
	h.loginAs(t, "jane@example.com")

	h.prompt.selects = []int{1}
	h.prompt.inputs = []string{"Siam", "Siam", "2026-05-01", "2026-05-02"}

	require.NoError(t, h.run("book"))
	bookings := h.api.Bookings()
	require.Len(t, bookings, 1)
	assert.Equal(t, jazz.ID, bookings[0].Car)
}

func TestBook_ReturnBeforePickup(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	p := h.api.SeedProvider("Downtown", "99 Sukhumvit Rd")
	car := h.api.SeedCar(p.ID, "Civic", "Sedan", 1200)
	h.loginAs(t, "jane@example.com")

	err := h.run("book", car.ID,
		"--pickup-location", "Siam",
		"--return-location", "Siam",
		"--pickup", "2026-05-04",
		"--return", "2026-05-01",
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrValidation))
	assert.Empty(t, h.api.Bookings())
}

func TestRejectedToken_LogsOut(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	h.loginAs(t, "jane@example.com")
	token := h.env.Session.Token()

	// the account disappears server-side while the client still holds a
	// token that has not expired
	require.NoError(t, h.env.API.DeleteMe(context.Background()))
	assert.Equal(t, token, h.env.Session.Token(), "a successful call keeps the session")

	err := h.run("profile", "show")
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
	assert.Nil(t, h.env.Session.Current())

	stored, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	h.loginAs(t, "jane@example.com")

	require.NoError(t, h.run("profile", "update", "--name", "Jane Roe"))
	assert.Contains(t, h.out.String(), "Profile updated for Jane Roe")

	require.NoError(t, h.run("profile", "show"))
	assert.Contains(t, h.out.String(), "Jane Roe")
	assert.Contains(t, h.out.String(), "0812345678")

	h.prompt.inputs = []string{"no"}
	require.NoError(t, h.run("profile", "delete"))
	assert.Contains(t, h.out.String(), "Cancelled.")
	assert.NotNil(t, h.env.Session.Current())

	require.NoError(t, h.run("profile", "delete", "--yes"))
	assert.Contains(t, h.out.String(), "✓ Account deleted")
	assert.Nil(t, h.env.Session.Current())
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Root", "root@example.com", "secret1", "admin")
	h.loginAs(t, "root@example.com")

	require.NoError(t, h.run("manage", "providers", "add", "--name", "Airport", "--address", "999 Bang Na"))
	require.NoError(t, h.run("providers"))
	assert.Contains(t, h.out.String(), "999 Bang Na")

	h.prompt.selects = []int{0}
	require.NoError(t, h.run("manage", "cars", "add",
		"--name", "Yaris", "--type", "Hatchback", "--plate", "2KB-1234", "--price", "900"))
	assert.Contains(t, h.out.String(), "✓ Car Yaris added")

	require.NoError(t, h.run("dashboard"))
	assert.Contains(t, h.out.String(), "Bookings:   0")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	h.loginAs(t, "jane@example.com")

	require.NoError(t, h.run("logout"))
	assert.Nil(t, h.env.Session.Current())
	stored, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)

	// logging out twice is fine
	require.NoError(t, h.run("logout"))
}

func TestWhoami_ShowsExpiry(t *testing.T) {
	h := newHarness(t, apitest.WithTokenTTL(2*time.Hour))
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	h.loginAs(t, "jane@example.com")

	require.NoError(t, h.run("whoami"))
	assert.Contains(t, h.out.String(), "User:  Jane")
	assert.Contains(t, h.out.String(), "Role:  user")
	assert.Contains(t, h.out.String(), "Token expires:")
}

func TestPasswordResetCommands(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")

	require.NoError(t, h.run("forgot-password", "--email", "jane@example.com"))
	assert.Contains(t, h.out.String(), "Password reset link sent to your email")

	token, found := h.api.ResetTokenFor("jane@example.com")
	require.True(t, found)

	h.prompt.passwords = []string{"newsecret", "newsecret"}
	require.NoError(t, h.run("reset-password", token))
	assert.Contains(t, h.out.String(), "Password reset successful")

	require.NoError(t, h.run("login", "--email", "jane@example.com", "--password", "newsecret"))
}

func TestShell_FollowsLoginRedirect(t *testing.T) {
	h := newHarness(t)
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")

	// the shell reads lines through the same prompter as the commands
	h.prompt.inputs = []string{
		"whoami",
		"bookings ls",      // redirected to login, then retried
		"jane@example.com", // login prompt
		"exit",
	}
	h.prompt.passwords = []string{"secret1"}

	require.NoError(t, h.run("shell"))
	assert.Contains(t, h.out.String(), "Not logged in.")
	assert.Contains(t, h.out.String(), "✓ Login successful")
	assert.Contains(t, h.out.String(), "No bookings found.")
	assert.Contains(t, h.errOut.String(), "Please login to continue")
	assert.NotNil(t, h.env.Session.Current())
}

func TestShell_EndsOnEOF(t *testing.T) {
	h := newHarness(t)
	h.prompt.inputs = []string{"", "shell"}

	require.NoError(t, h.run("shell"))
	assert.Contains(t, h.out.String(), "Already in the shell.")
}

func TestShell_EvictsExpiredSessionOnStart(t *testing.T) {
	h := newHarness(t, apitest.WithTokenTTL(time.Second))
	h.api.SeedUser("Jane", "jane@example.com", "secret1", "user")
	h.loginAs(t, "jane@example.com")

	exp, err := session.ExpiresAt(h.env.Session.Token())
	require.NoError(t, err)
	time.Sleep(time.Until(exp) + 1100*time.Millisecond)

	h.prompt.inputs = []string{"whoami", "exit"}
	require.NoError(t, h.run("shell"))
	assert.Contains(t, h.out.String(), "Not logged in.")
}
