package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/carrent-dev/carrent/internal/authn"
	"github.com/carrent-dev/carrent/internal/client"
	"github.com/carrent-dev/carrent/internal/config"
	"github.com/carrent-dev/carrent/internal/credstore"
	"github.com/carrent-dev/carrent/internal/guard"
	"github.com/carrent-dev/carrent/internal/session"
)

// Env is everything a command needs at run time. The root command fills it
// in once, before the first command runs.
type Env struct {
	Config  *config.Config
	Logger  zerolog.Logger
	API     *client.Client
	Session *session.Manager
	Store   *credstore.Store
	Guard   *guard.Guard
	Prompt  Prompter

	Out io.Writer
	Err io.Writer
}

// NewEnv wires the session stack from cfg: the credential store, the API
// client whose transport authenticates through the session manager, and the
// route guard.
func NewEnv(cfg *config.Config, logger zerolog.Logger) (*Env, error) {
	kind, err := credstore.ParseKind(cfg.Store.Kind)
	if err != nil {
		return nil, err
	}
	store, err := credstore.Open(kind, cfg.Store.Path, logger)
	if err != nil {
		return nil, err
	}

	env := Wire(store, client.New(cfg.API.URL, client.WithLogger(logger), client.WithTimeout(cfg.API.Timeout)), nil, logger)
	env.Config = cfg
	env.Prompt = NewTerminalPrompter(os.Stdin, os.Stdout)
	return env, nil
}

// Wire connects store, api, a session manager and the route guard. base is
// the transport the authenticator wraps; nil means http.DefaultTransport.
// Output goes to stdout and stderr until Out and Err are set.
func Wire(store *credstore.Store, api *client.Client, base http.RoundTripper, logger zerolog.Logger) *Env {
	e := &Env{
		Logger: logger,
		API:    api,
		Store:  store,
		Out:    os.Stdout,
		Err:    os.Stderr,
	}
	e.Session = session.NewManager(store, api, session.WithLogger(logger))
	api.SetHTTPClient(&http.Client{Transport: authn.NewTransport(e.Session, base, logger)})

	notices := guard.NotifierFunc(func(n guard.Notice) {
		fmt.Fprintf(e.stderr(), "! %s\n", n.Message)
	})
	e.Guard = guard.New(e.Session, guard.NewDedupNotifier(notices, guard.DefaultNoticeWindow))
	return e
}

// Close releases the credential store.
func (e *Env) Close() error {
	if e.Store == nil {
		return nil
	}
	return e.Store.Close()
}

func (e *Env) stdout() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

func (e *Env) stderr() io.Writer {
	if e.Err == nil {
		return os.Stderr
	}
	return e.Err
}
