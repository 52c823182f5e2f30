package apitest

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// providerShare is the part of booking income paid out to providers.
const providerShare = 0.2

// CarRequest represents a car creation request
type CarRequest struct {
	Name        string  `json:"name" binding:"required"`
	Provider    string  `json:"provider" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	PlateNumber string  `json:"plateNumber" binding:"required"`
	PricePerDay float64 `json:"pricePerDay" binding:"gt=0"`
	Available   bool    `json:"available"`
}

// ProviderRequest represents a provider creation request
type ProviderRequest struct {
	Name      string  `json:"name" binding:"required"`
	Address   any     `json:"address"`
	Telephone string  `json:"telephone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BookingRequest represents a booking creation or update request
type BookingRequest struct {
	Car            string    `json:"car"`
	Provider       string    `json:"provider"`
	PickupLocation string    `json:"pickupLocation" binding:"required"`
	ReturnLocation string    `json:"returnLocation" binding:"required"`
	PickupDate     time.Time `json:"pickupDate" binding:"required"`
	ReturnDate     time.Time `json:"returnDate" binding:"required"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func (s *Server) listProviders(c *gin.Context) {
	s.mu.Lock()
	out := make([]Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, *p)
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(out), "data": out})
}

func (s *Server) createProvider(c *gin.Context) {
	var req ProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	p := &Provider{
		ID:        newID(),
		Name:      req.Name,
		Address:   req.Address,
		Telephone: req.Telephone,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	s.mu.Lock()
	s.providers = append(s.providers, p)
	cp := *p
	s.mu.Unlock()

	respond(c, http.StatusCreated, cp)
}

func (s *Server) deleteProvider(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findProviderLocked(id) == nil {
		fail(c, http.StatusNotFound, fmt.Sprintf("Provider not found with id of %s", id))
		return
	}

	providers := s.providers[:0]
	for _, p := range s.providers {
		if p.ID != id {
			providers = append(providers, p)
		}
	}
	s.providers = providers

	// cascade to cars and bookings
	cars := s.cars[:0]
	for _, car := range s.cars {
		if car.Provider != id {
			cars = append(cars, car)
		}
	}
	s.cars = cars
	bookings := s.bookings[:0]
	for _, b := range s.bookings {
		if b.Provider != id {
			bookings = append(bookings, b)
		}
	}
	s.bookings = bookings

	respond(c, http.StatusOK, gin.H{})
}

// populateCarLocked renders a car with its provider document inline.
func (s *Server) populateCarLocked(car *Car) gin.H {
	out := gin.H{
		"_id":         car.ID,
		"name":        car.Name,
		"type":        car.Type,
		"pricePerDay": car.PricePerDay,
		"plateNumber": car.PlateNumber,
		"available":   car.Available,
		"provider":    car.Provider,
	}
	if p := s.findProviderLocked(car.Provider); p != nil {
		out["provider"] = *p
	}
	return out
}

func (s *Server) listCars(c *gin.Context) {
	s.mu.Lock()
	out := make([]gin.H, 0, len(s.cars))
	for _, car := range s.cars {
		out = append(out, s.populateCarLocked(car))
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(out), "data": out})
}

func (s *Server) listProviderCars(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	if s.findProviderLocked(id) == nil {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, fmt.Sprintf("Provider not found with id of %s", id))
		return
	}
	out := make([]Car, 0)
	for _, car := range s.cars {
		if car.Provider == id {
			out = append(out, *car)
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(out), "data": out})
}

func (s *Server) getCar(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	car := s.findCarLocked(id)
	if car == nil {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, fmt.Sprintf("Car not found with id of %s", id))
		return
	}
	out := s.populateCarLocked(car)
	s.mu.Unlock()

	respond(c, http.StatusOK, out)
}

func (s *Server) createCar(c *gin.Context) {
	var req CarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	if s.findProviderLocked(req.Provider) == nil {
		s.mu.Unlock()
		fail(c, http.StatusNotFound, fmt.Sprintf("Provider not found with id of %s", req.Provider))
		return
	}
	car := &Car{
		ID:          newID(),
		Name:        req.Name,
		Type:        req.Type,
		PricePerDay: req.PricePerDay,
		PlateNumber: req.PlateNumber,
		Provider:    req.Provider,
		Available:   req.Available,
	}
	s.cars = append(s.cars, car)
	cp := *car
	s.mu.Unlock()

	respond(c, http.StatusCreated, cp)
}

func (s *Server) deleteCar(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findCarLocked(id) == nil {
		fail(c, http.StatusNotFound, fmt.Sprintf("Car not found with id of %s", id))
		return
	}
	cars := s.cars[:0]
	for _, car := range s.cars {
		if car.ID != id {
			cars = append(cars, car)
		}
	}
	s.cars = cars

	respond(c, http.StatusOK, gin.H{})
}

// populateBookingLocked renders a booking with car, provider and user inline.
func (s *Server) populateBookingLocked(b *Booking) gin.H {
	out := gin.H{
		"_id":            b.ID,
		"car":            b.Car,
		"provider":       b.Provider,
		"user":           b.User,
		"pickupLocation": b.PickupLocation,
		"returnLocation": b.ReturnLocation,
		"pickupDate":     b.PickupDate,
		"returnDate":     b.ReturnDate,
		"status":         b.Status,
	}
	if car := s.findCarLocked(b.Car); car != nil {
		out["car"] = *car
	}
	if p := s.findProviderLocked(b.Provider); p != nil {
		out["provider"] = *p
	}
	if u, found := s.users[b.User]; found {
		out["user"] = gin.H{"_id": u.ID, "name": u.Name, "email": u.Email}
	}
	return out
}

func (s *Server) listBookings(c *gin.Context) {
	u := s.currentUser(c)

	s.mu.Lock()
	out := make([]gin.H, 0)
	for _, b := range s.bookings {
		if u.Role == "admin" || b.User == u.ID {
			out = append(out, s.populateBookingLocked(b))
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(out), "data": out})
}

func (s *Server) createBooking(c *gin.Context) {
	u := s.currentUser(c)

	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.ReturnDate.After(req.PickupDate) {
		fail(c, http.StatusBadRequest, "Return date must be after pickup date")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	car := s.findCarLocked(req.Car)
	if car == nil {
		fail(c, http.StatusNotFound, fmt.Sprintf("No car with the id of %s", req.Car))
		return
	}

	if u.Role != "admin" {
		held := 0
		for _, b := range s.bookings {
			if b.User == u.ID {
				held++
			}
		}
		if held >= MaxUserBookings {
			fail(c, http.StatusBadRequest, fmt.Sprintf("The user with ID %s has already made %d bookings", u.ID, MaxUserBookings))
			return
		}
	}

	b := &Booking{
		ID:             newID(),
		Car:            car.ID,
		Provider:       car.Provider,
		User:           u.ID,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
		PickupDate:     req.PickupDate,
		ReturnDate:     req.ReturnDate,
		Status:         "pending",
	}
	s.bookings = append(s.bookings, b)

	respond(c, http.StatusCreated, *b)
}

// ownedBookingLocked finds a booking the user may change, writing the
// error response when there is none.
func (s *Server) ownedBookingLocked(c *gin.Context, u *User) *Booking {
	id := c.Param("id")
	b := s.findBookingLocked(id)
	if b == nil {
		fail(c, http.StatusNotFound, fmt.Sprintf("No booking with the id of %s", id))
		return nil
	}
	if b.User != u.ID && u.Role != "admin" {
		fail(c, http.StatusForbidden, fmt.Sprintf("User %s is not authorized to modify this booking", u.ID))
		return nil
	}
	return b
}

func (s *Server) updateBooking(c *gin.Context) {
	u := s.currentUser(c)

	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.ReturnDate.After(req.PickupDate) {
		fail(c, http.StatusBadRequest, "Return date must be after pickup date")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.ownedBookingLocked(c, u)
	if b == nil {
		return
	}
	b.PickupLocation = req.PickupLocation
	b.ReturnLocation = req.ReturnLocation
	b.PickupDate = req.PickupDate
	b.ReturnDate = req.ReturnDate

	respond(c, http.StatusOK, *b)
}

func (s *Server) deleteBooking(c *gin.Context) {
	u := s.currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.ownedBookingLocked(c, u)
	if b == nil {
		return
	}
	kept := s.bookings[:0]
	for _, other := range s.bookings {
		if other.ID != b.ID {
			kept = append(kept, other)
		}
	}
	s.bookings = kept

	respond(c, http.StatusOK, gin.H{})
}

func (s *Server) dashboard(c *gin.Context) {
	type providerStat struct {
		ID           string `json:"_id"`
		ProviderInfo struct {
			Name string `json:"name"`
		} `json:"providerInfo"`
		TotalBooking int `json:"totalBooking"`
	}
	type carTypeStat struct {
		ID    string `json:"_id"`
		Count int    `json:"count"`
	}

	s.mu.Lock()
	income := 0.0
	byProvider := map[string]int{}
	byType := map[string]int{}
	for _, b := range s.bookings {
		byProvider[b.Provider]++
		car := s.findCarLocked(b.Car)
		if car == nil {
			continue
		}
		byType[car.Type]++
		days := math.Ceil(b.ReturnDate.Sub(b.PickupDate).Hours() / 24)
		income += days * car.PricePerDay
	}

	providers := make([]providerStat, 0, len(byProvider))
	for id, n := range byProvider {
		st := providerStat{ID: id, TotalBooking: n}
		if p := s.findProviderLocked(id); p != nil {
			st.ProviderInfo.Name = p.Name
		}
		providers = append(providers, st)
	}
	total := len(s.bookings)
	s.mu.Unlock()

	sort.Slice(providers, func(i, j int) bool {
		if providers[i].TotalBooking != providers[j].TotalBooking {
			return providers[i].TotalBooking > providers[j].TotalBooking
		}
		return providers[i].ID < providers[j].ID
	})
	types := make([]carTypeStat, 0, len(byType))
	for t, n := range byType {
		types = append(types, carTypeStat{ID: t, Count: n})
	}
	sort.Slice(types, func(i, j int) bool {
		if types[i].Count != types[j].Count {
			return types[i].Count > types[j].Count
		}
		return types[i].ID < types[j].ID
	})

	respond(c, http.StatusOK, gin.H{
		"totalBooking":    total,
		"totalIncome":     income,
		"totalOutcome":    income * providerShare,
		"popularProvider": providers,
		"popularCarType":  types,
	})
}
