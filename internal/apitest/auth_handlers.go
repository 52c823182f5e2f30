package apitest

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name      string `json:"name" binding:"required"`
	Telephone string `json:"telephone" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Role      string `json:"role" binding:"omitempty,oneof=user admin"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sendToken answers with the user's identity and a fresh token.
func (s *Server) sendToken(c *gin.Context, status int, u *User) {
	token, err := s.IssueToken(u.ID, s.tokenTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		fail(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(status, gin.H{
		"success": true,
		"_id":     u.ID,
		"name":    u.Name,
		"email":   u.Email,
		"role":    u.Role,
		"token":   token,
	})
}

func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		fail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	s.mu.Lock()
	if s.findUserByEmailLocked(strings.ToLower(req.Email)) != nil {
		s.mu.Unlock()
		fail(c, http.StatusBadRequest, "User already exists")
		return
	}
	u := &User{
		ID:           newID(),
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		Telephone:    req.Telephone,
		Role:         req.Role,
		PasswordHash: hash,
	}
	s.users[u.ID] = u
	cp := *u
	s.mu.Unlock()

	s.logger.Info().Str("user_id", u.ID).Str("email", u.Email).Msg("User registered")

	if !s.registerIssuesToken {
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": cp})
		return
	}
	s.sendToken(c, http.StatusOK, &cp)
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, "Please provide an email and password")
		return
	}

	s.mu.Lock()
	u := s.findUserByEmailLocked(strings.ToLower(req.Email))
	var cp User
	if u != nil {
		cp = *u
	}
	s.mu.Unlock()

	if u == nil || !checkPassword(cp.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "msg": "Invalid credentials"})
		return
	}

	s.sendToken(c, http.StatusOK, &cp)
}

func (s *Server) forgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Please provide a valid email")
		return
	}

	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		fail(c, http.StatusInternalServerError, "Email could not be sent")
		return
	}
	token := hex.EncodeToString(raw)

	s.mu.Lock()
	u := s.findUserByEmailLocked(strings.ToLower(req.Email))
	if u != nil {
		s.resetTokens[token] = u.ID
	}
	s.mu.Unlock()

	if u == nil {
		fail(c, http.StatusNotFound, "There is no user with that email")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": "Email sent", "message": "Password reset link sent to your email"})
}

func (s *Server) resetPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	s.mu.Lock()
	id, ok := s.resetTokens[c.Param("token")]
	u := s.users[id]
	if ok && u != nil {
		delete(s.resetTokens, c.Param("token"))
		u.PasswordHash = hash
	}
	s.mu.Unlock()

	if !ok || u == nil {
		fail(c, http.StatusBadRequest, "Invalid token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successful"})
}

func (s *Server) getMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.currentUser(c)})
}

func (s *Server) updateMe(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		Telephone string `json:"telephone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	id := c.GetString(userKey)
	s.mu.Lock()
	u := s.users[id]
	if other := s.findUserByEmailLocked(strings.ToLower(req.Email)); other != nil && other.ID != id {
		s.mu.Unlock()
		fail(c, http.StatusBadRequest, "Email already in use")
		return
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Email != "" {
		u.Email = strings.ToLower(req.Email)
	}
	if req.Telephone != "" {
		u.Telephone = req.Telephone
	}
	cp := *u
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "data": cp})
}

func (s *Server) deleteMe(c *gin.Context) {
	id := c.GetString(userKey)

	s.mu.Lock()
	delete(s.users, id)
	kept := s.bookings[:0]
	for _, b := range s.bookings {
		if b.User != id {
			kept = append(kept, b)
		}
	}
	s.bookings = kept
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}
