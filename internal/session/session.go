// Package session holds the client's authenticated identity and the manager
// that owns its lifecycle: load on start, login, registration, logout and
// eviction on expiry or rejection by the server.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Role is the authorization level carried by a session.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var (
	// ErrEmptyPayload is returned when an auth response carries no usable body.
	ErrEmptyPayload = errors.New("empty session payload")
	// ErrIncompleteSession is returned when an auth response lacks identity, role or token.
	ErrIncompleteSession = errors.New("incomplete session in response")
)

// Session is the authenticated identity held by the client.
// It is serialized as-is into the credential store.
type Session struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
	Token string `json:"token"`
}

// Valid reports whether the session is fully present: identity, role and token.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	hasIdentity := s.ID != "" || s.Name != "" || s.Email != ""
	hasRole := s.Role == RoleUser || s.Role == RoleAdmin
	return hasIdentity && hasRole && s.Token != ""
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// DisplayName returns the best human-readable identity for the session.
func (s *Session) DisplayName() string {
	switch {
	case s == nil:
		return ""
	case s.Name != "":
		return s.Name
	case s.Email != "":
		return s.Email
	default:
		return s.ID
	}
}

// Clone returns a copy that callers may keep without sharing state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// normalizeRole fails closed: anything that is not explicitly admin is a user.
func normalizeRole(r Role) Role {
	if r == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// payloadObject is an auth response body. Some backends answer with the
// user at the top level, others nest it under "data" next to the token.
type payloadObject struct {
	Session
	Data json.RawMessage `json:"data"`
}

// FromPayload normalizes an auth service response body into a Session.
//
// An object is decoded field by field, with a nested "data" object merged
// over the top level. A scalar payload becomes the session's name. In every
// case a missing or unknown role becomes RoleUser. The result is not
// guaranteed to be Valid: a registration response may carry no token.
func FromPayload(raw []byte) (*Session, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrEmptyPayload
	}

	switch raw[0] {
	case '{':
		var obj payloadObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode session payload: %w", err)
		}
		sess := obj.Session
		if nested := bytes.TrimSpace(obj.Data); len(nested) > 0 && nested[0] == '{' {
			var inner Session
			if err := json.Unmarshal(nested, &inner); err != nil {
				return nil, fmt.Errorf("failed to decode session data: %w", err)
			}
			sess = mergeSession(inner, sess)
		}
		sess.Role = normalizeRole(sess.Role)
		return &sess, nil

	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, fmt.Errorf("failed to decode session payload: %w", err)
		}
		return &Session{Name: name, Role: RoleUser}, nil

	case '[':
		return nil, fmt.Errorf("unsupported session payload: array")

	default:
		// numbers and booleans
		return &Session{Name: string(raw), Role: RoleUser}, nil
	}
}

// mergeSession fills empty fields of primary from fallback.
func mergeSession(primary, fallback Session) Session {
	if primary.ID == "" {
		primary.ID = fallback.ID
	}
	if primary.Name == "" {
		primary.Name = fallback.Name
	}
	if primary.Email == "" {
		primary.Email = fallback.Email
	}
	if primary.Role == "" {
		primary.Role = fallback.Role
	}
	if primary.Token == "" {
		primary.Token = fallback.Token
	}
	return primary
}
