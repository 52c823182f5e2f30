package session

import (
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpiredAt_ExpiryRelativeToNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		exp     time.Time
		expired bool
	}{
		{name: "one hour ago", exp: now.Add(-time.Hour), expired: true},
		{name: "one second ago", exp: now.Add(-time.Second), expired: true},
		{name: "exactly now", exp: now, expired: false},
		{name: "in one minute", exp: now.Add(time.Minute), expired: false},
		{name: "in one week", exp: now.Add(7 * 24 * time.Hour), expired: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := validSession(t, RoleUser, tt.exp)
			assert.Equal(t, tt.expired, IsExpiredAt(sess, now))
		})
	}

	// exp is compared in milliseconds as sent, without rounding to seconds
	halfPast := time.Unix(1700000000, 500*int64(time.Millisecond))
	raw := []struct {
		name    string
		claims  string
		expired bool
	}{
		{name: "fractional exp still ahead", claims: `{"exp":1700000000.9}`, expired: false},
		{name: "fractional exp just behind", claims: `{"exp":1700000000.1}`, expired: true},
		{name: "exp past int64 nanoseconds", claims: `{"exp":1e19}`, expired: false},
		{name: "negative exp", claims: `{"exp":-1}`, expired: true},
	}

	for _, tt := range raw {
		t.Run(tt.name, func(t *testing.T) {
			sess := &Session{Name: "Test User", Role: RoleUser, Token: unsignedToken(tt.claims)}
			assert.Equal(t, tt.expired, IsExpiredAt(sess, halfPast))
		})
	}
}

func TestIsExpired_UsesWallClock(t *testing.T) {
	assert.True(t, IsExpired(validSession(t, RoleUser, time.Now().Add(-time.Minute))))
	assert.False(t, IsExpired(validSession(t, RoleUser, time.Now().Add(time.Hour))))
}

func TestIsExpiredAt_MalformedTokensAreExpired(t *testing.T) {
	now := time.Now()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := func(s string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(s))
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "single segment", token: "abc"},
		{name: "two segments", token: header + "." + payload(`{"exp":9999999999}`)},
		{name: "four segments", token: header + "." + payload(`{"exp":9999999999}`) + ".sig.extra"},
		{name: "empty payload", token: header + "..sig"},
		{name: "not base64", token: header + ".!!!$$$.sig"},
		{name: "not json", token: header + "." + payload("not json") + ".sig"},
		{name: "json array", token: header + "." + payload(`[1,2,3]`) + ".sig"},
		{name: "json null", token: header + "." + payload(`null`) + ".sig"},
		{name: "missing exp", token: header + "." + payload(`{"sub":"user-123"}`) + ".sig"},
		{name: "string exp", token: header + "." + payload(`{"exp":"tomorrow"}`) + ".sig"},
		{name: "zero exp", token: header + "." + payload(`{"exp":0}`) + ".sig"},
		{name: "bool exp", token: header + "." + payload(`{"exp":true}`) + ".sig"},
		{name: "invalid utf-8", token: header + "." + payload("{\"exp\":1800000000,\"n\":\"\xff\"}") + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &Session{Name: "Test User", Role: RoleUser, Token: tt.token}
			assert.NotPanics(t, func() {
				assert.True(t, IsExpiredAt(sess, now))
			})
		})
	}
}

func TestIsExpiredAt_AbsentSession(t *testing.T) {
	assert.True(t, IsExpiredAt(nil, time.Now()))
}

func TestExpiresAt_URLSafeAlphabet(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	// the repeated two-byte rune forces 0x3f sextets, i.e. '_' in the URL alphabet
	claims := `{"exp":` + jwtNumber(exp) + `,"note":"ÿÿÿÿÿÿ"}`

	segment := base64.RawURLEncoding.EncodeToString([]byte(claims))
	require.True(t, strings.ContainsAny(segment, "-_"), "segment should use URL-safe characters")

	got, err := ExpiresAt("header." + segment + ".sig")
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))
}

func TestExpiresAt_PaddedStandardEncoding(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	segment := base64.StdEncoding.EncodeToString([]byte(`{"exp":` + jwtNumber(exp) + `}`))

	got, err := ExpiresAt("header." + segment + ".sig")
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))
}

func TestExpiresAt_MissingExpiry(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "user-123"})

	_, err := ExpiresAt(token)
	assert.ErrorIs(t, err, ErrMissingExpiry)
}

func TestClaims_ReadsPayloadWithoutVerifying(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "user-123", "role": "admin", "exp": 4102444800})

	claims, err := Claims(token)
	require.NoError(t, err)

	sub, err := claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "user-123", sub)
	assert.Equal(t, "admin", claims["role"])
}

func TestExpiresAt_KeepsMilliseconds(t *testing.T) {
	got, err := ExpiresAt(unsignedToken(`{"exp":1700000000.25}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000250), got.UnixMilli())

	_, err = ExpiresAt(unsignedToken(`{"exp":1e19}`))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

// unsignedToken wraps claims in a token with a placeholder header and
// signature.
func unsignedToken(claims string) string {
	return "header." + base64.RawURLEncoding.EncodeToString([]byte(claims)) + ".sig"
}

func jwtNumber(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
