// Package authn attaches the session's bearer token to outgoing API requests
// and logs the client out when the server rejects that token.
package authn

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

type anonymousKey struct{}

// Anonymous marks ctx so requests made with it carry no credentials and
// never evict the session. Used for login, registration and password reset.
func Anonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

// IsAnonymous reports whether ctx was marked with Anonymous.
func IsAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

// TokenSource provides the current token and drops the session when the
// server rejects it. session.Manager implements it.
type TokenSource interface {
	Token() string
	Evict(token string) bool
}

// Transport is an http.RoundTripper that authenticates requests on behalf
// of the current session.
type Transport struct {
	source TokenSource
	base   http.RoundTripper
	logger zerolog.Logger
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
func NewTransport(source TokenSource, base http.RoundTripper, logger zerolog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{source: source, base: base, logger: logger}
}

// RoundTrip sends req with "Authorization: Bearer <token>" when a session
// is present. A 401 for an authenticated request evicts the session; the
// response itself is returned unchanged. A 401 to an anonymous request
// (a rejected login, say) carried no token, so it leaves the session alone.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := ""
	if !IsAnonymous(req.Context()) && req.Header.Get("Authorization") == "" {
		token = t.source.Token()
	}

	if token != "" {
		// RoundTrippers must not modify the caller's request
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		evicted := t.source.Evict(token)
		t.logger.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Bool("evicted", evicted).
			Msg("Request unauthorized")
	}
	return resp, nil
}
