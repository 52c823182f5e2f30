package apitest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	bearerPrefix = "Bearer "
	userKey      = "user"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
)

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// protect rejects requests without a valid token for an existing user.
func (s *Server) protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			s.logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected request")
			fail(c, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}

		claims, err := s.validateToken(token)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected token")
			fail(c, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}

		s.mu.Lock()
		u, ok := s.users[claims.UserID]
		s.mu.Unlock()
		if !ok {
			fail(c, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}

		c.Set(userKey, u.ID)
		c.Next()
	}
}

// authorize restricts a route to the given roles.
func (s *Server) authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := s.currentUser(c)
		for _, r := range roles {
			if u != nil && u.Role == r {
				c.Next()
				return
			}
		}
		role := ""
		if u != nil {
			role = u.Role
		}
		fail(c, http.StatusForbidden, "User role "+role+" is not authorized to access this route")
	}
}

// currentUser returns a copy of the authenticated user.
func (s *Server) currentUser(c *gin.Context) *User {
	id := c.GetString(userKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// loggingMiddleware logs each request with zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			Status:        c.Writer.Status(),
			Authorization: c.GetHeader("Authorization"),
			RequestID:     c.GetHeader("X-Request-ID"),
			UserAgent:     c.GetHeader("User-Agent"),
		})
		s.mu.Unlock()

		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}
