// Package apitest is an in-memory implementation of the car rental API. It
// backs the client and command tests and the carrent-devapi binary.
package apitest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// BasePath is where the API is mounted.
const BasePath = "/api/v1"

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 30 * 24 * time.Hour

// MaxUserBookings is how many bookings a non-admin may hold.
const MaxUserBookings = 3

// User is an account. PasswordHash is never serialized.
type User struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Telephone    string `json:"telephone,omitempty"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
}

// Provider is a rental branch. Address is kept as sent.
type Provider struct {
	ID        string  `json:"_id"`
	Name      string  `json:"name"`
	Address   any     `json:"address"`
	Telephone string  `json:"telephone,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Car belongs to a provider by ID.
type Car struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	PricePerDay float64 `json:"pricePerDay"`
	PlateNumber string  `json:"plateNumber"`
	Provider    string  `json:"provider"`
	Available   bool    `json:"available"`
}

// Booking references its car, provider and user by ID.
type Booking struct {
	ID             string    `json:"_id"`
	Car            string    `json:"car"`
	Provider       string    `json:"provider"`
	User           string    `json:"user"`
	PickupLocation string    `json:"pickupLocation"`
	ReturnLocation string    `json:"returnLocation"`
	PickupDate     time.Time `json:"pickupDate"`
	ReturnDate     time.Time `json:"returnDate"`
	Status         string    `json:"status"`
}

// Request is a logged request, for assertions on headers.
type Request struct {
	Method        string
	Path          string
	Status        int
	Authorization string
	RequestID     string
	UserAgent     string
}

// Server is the fake API.
type Server struct {
	router *gin.Engine
	logger zerolog.Logger
	secret []byte
	now    func() time.Time

	tokenTTL            time.Duration
	registerIssuesToken bool

	mu          sync.Mutex
	users       map[string]*User
	providers   []*Provider
	cars        []*Car
	bookings    []*Booking
	resetTokens map[string]string
	requests    []Request
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// WithoutRegistrationToken makes registration answer without a token, so
// new users must log in separately.
func WithoutRegistrationToken() Option {
	return func(s *Server) { s.registerIssuesToken = false }
}

// WithClock overrides the server's clock for token issue and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates an empty server with a random signing secret.
func New(opts ...Option) *Server {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("failed to generate JWT secret: %v", err))
	}

	s := &Server{
		logger:              zerolog.Nop(),
		secret:              []byte(hex.EncodeToString(secret)),
		now:                 time.Now,
		tokenTTL:            DefaultTokenTTL,
		registerIssuesToken: true,
		users:               make(map[string]*User),
		resetTokens:         make(map[string]string),
	}
	for _, o := range opts {
		o(s)
	}
	s.setupRouter()
	return s
}

// TB is the part of testing.TB that NewTestServer needs.
type TB interface {
	Helper()
	Cleanup(func())
}

// NewTestServer starts s on a local port for the duration of the test and
// returns it with its API base URL.
func NewTestServer(tb TB, opts ...Option) (*Server, string) {
	tb.Helper()

	s := New(opts...)
	ts := httptest.NewServer(s.Handler())
	tb.Cleanup(ts.Close)
	return s, ts.URL + BasePath
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// Allow the web front end served by the Vite dev server.
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := s.router.Group(BasePath)

	// Public endpoints
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.POST("/auth/forgotpassword", s.forgotPassword)
	api.PUT("/auth/resetpassword/:token", s.resetPassword)
	api.GET("/providers", s.listProviders)
	api.GET("/providers/:id/cars", s.listProviderCars)
	api.GET("/cars", s.listCars)
	api.GET("/cars/:id", s.getCar)

	// Authenticated endpoints
	authed := api.Group("")
	authed.Use(s.protect())
	{
		authed.GET("/users/me", s.getMe)
		authed.PUT("/users/me", s.updateMe)
		authed.DELETE("/users/me", s.deleteMe)

		authed.GET("/bookings", s.listBookings)
		authed.POST("/bookings", s.createBooking)
		authed.PUT("/bookings/:id", s.updateBooking)
		authed.DELETE("/bookings/:id", s.deleteBooking)

		admin := authed.Group("")
		admin.Use(s.authorize("admin"))
		{
			admin.POST("/providers", s.createProvider)
			admin.DELETE("/providers/:id", s.deleteProvider)
			admin.POST("/cars", s.createCar)
			admin.DELETE("/cars/:id", s.deleteCar)
			admin.GET("/dashboard", s.dashboard)
		}
	}
}

func newID() string {
	return ulid.Make().String()
}

// SeedUser adds an account directly.
func (s *Server) SeedUser(name, email, password, role string) *User {
	hash, err := hashPassword(password)
	if err != nil {
		panic(err)
	}
	u := &User{ID: newID(), Name: name, Email: email, Role: role, PasswordHash: hash, Telephone: "0812345678"}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	cp := *u
	return &cp
}

// SeedProvider adds a provider directly.
func (s *Server) SeedProvider(name string, address any) *Provider {
	p := &Provider{ID: newID(), Name: name, Address: address}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = append(s.providers, p)
	cp := *p
	return &cp
}

// SeedCar adds a car for providerID directly.
func (s *Server) SeedCar(providerID, name, carType string, pricePerDay float64) *Car {
	c := &Car{
		ID:          newID(),
		Name:        name,
		Type:        carType,
		PricePerDay: pricePerDay,
		PlateNumber: "1AB-" + newID()[20:],
		Provider:    providerID,
		Available:   true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cars = append(s.cars, c)
	cp := *c
	return &cp
}

// SeedBooking adds a booking directly, bypassing the per-user limit.
func (s *Server) SeedBooking(userID, carID string, pickup, ret time.Time) *Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	providerID := ""
	if car := s.findCarLocked(carID); car != nil {
		providerID = car.Provider
	}
	b := &Booking{
		ID:             newID(),
		Car:            carID,
		Provider:       providerID,
		User:           userID,
		PickupLocation: "Siam Paragon",
		ReturnLocation: "Suvarnabhumi Airport",
		PickupDate:     pickup,
		ReturnDate:     ret,
		Status:         "pending",
	}
	s.bookings = append(s.bookings, b)
	cp := *b
	return &cp
}

// ResetTokenFor returns the pending password reset token for email.
func (s *Server) ResetTokenFor(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, id := range s.resetTokens {
		if u, ok := s.users[id]; ok && u.Email == email {
			return token, true
		}
	}
	return "", false
}

// Requests returns every request served so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Bookings returns a snapshot of all bookings.
func (s *Server) Bookings() []Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, *b)
	}
	return out
}

func (s *Server) findCarLocked(id string) *Car {
	for _, c := range s.cars {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Server) findProviderLocked(id string) *Provider {
	for _, p := range s.providers {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Server) findBookingLocked(id string) *Booking {
	for _, b := range s.bookings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (s *Server) findUserByEmailLocked(email string) *User {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}
