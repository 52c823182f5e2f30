package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrMissingExpiry  = errors.New("token has no exp claim")
)

// segmentReplacer maps the URL-safe alphabet back onto the standard one.
var segmentReplacer = strings.NewReplacer("-", "+", "_", "/")

// Claims decodes the payload segment of a bearer token without verifying
// its signature. Signature checks belong to the server.
func Claims(token string) (jwt.MapClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, ErrMalformedToken
	}

	segment := segmentReplacer.Replace(parts[1])
	segment = strings.TrimRight(segment, "=")

	payload, err := base64.RawStdEncoding.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedToken)
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

// expiry returns the exp claim in seconds since the epoch, fractions kept.
func expiry(token string) (float64, error) {
	claims, err := Claims(token)
	if err != nil {
		return 0, err
	}

	raw, ok := claims["exp"]
	if !ok || raw == nil {
		return 0, ErrMissingExpiry
	}
	exp, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: exp is %T, not a number", ErrMalformedToken, raw)
	}
	return exp, nil
}

// ExpiresAt returns the token's exp claim.
func ExpiresAt(token string) (time.Time, error) {
	exp, err := expiry(token)
	if err != nil {
		return time.Time{}, err
	}

	ms := exp * 1000
	if ms >= math.MaxInt64 || ms <= math.MinInt64 {
		return time.Time{}, fmt.Errorf("%w: exp %g out of range", ErrMalformedToken, exp)
	}
	return time.UnixMilli(int64(ms)), nil
}

// IsExpired reports whether the session can no longer be used.
func IsExpired(s *Session) bool {
	return IsExpiredAt(s, time.Now())
}

// IsExpiredAt reports whether the session is unusable at now: exp*1000 is
// compared with now in milliseconds. An absent session and every decoding
// failure count as expired.
func IsExpiredAt(s *Session, now time.Time) bool {
	if s == nil || s.Token == "" {
		return true
	}
	exp, err := expiry(s.Token)
	if err != nil {
		return true
	}
	return exp*1000 < float64(now.UnixMilli())
}
