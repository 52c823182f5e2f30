package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// ListProviders returns every rental provider.
func (c *Client) ListProviders(ctx context.Context) ([]Provider, error) {
	var providers []Provider
	if err := c.do(ctx, http.MethodGet, "/providers", nil, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

// ProviderRequest is the add-provider form.
type ProviderRequest struct {
	Name      string  `json:"name" validate:"required"`
	Address   Address `json:"address"`
	Telephone string  `json:"telephone,omitempty" validate:"omitempty,numeric"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// CreateProvider adds a provider. Admin only.
func (c *Client) CreateProvider(ctx context.Context, req ProviderRequest) (*Provider, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var p Provider
	if err := c.do(ctx, http.MethodPost, "/providers", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProvider removes a provider. Admin only.
func (c *Client) DeleteProvider(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/providers/"+url.PathEscape(id), nil, nil)
}

// ListProviderCars returns the cars offered by one provider.
func (c *Client) ListProviderCars(ctx context.Context, providerID string) ([]Car, error) {
	var cars []Car
	if err := c.do(ctx, http.MethodGet, "/providers/"+url.PathEscape(providerID)+"/cars", nil, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// ListCars returns every car.
func (c *Client) ListCars(ctx context.Context) ([]Car, error) {
	var cars []Car
	if err := c.do(ctx, http.MethodGet, "/cars", nil, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// GetCar returns one car.
func (c *Client) GetCar(ctx context.Context, id string) (*Car, error) {
	var car Car
	if err := c.do(ctx, http.MethodGet, "/cars/"+url.PathEscape(id), nil, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// CarRequest is the add-car form.
type CarRequest struct {
	Name        string  `json:"name" validate:"required"`
	Provider    string  `json:"provider" validate:"required"`
	Type        string  `json:"type" validate:"required"`
	PlateNumber string  `json:"plateNumber" validate:"required"`
	PricePerDay float64 `json:"pricePerDay" validate:"gt=0"`
	Available   bool    `json:"available"`
}

// CreateCar adds a car. Admin only.
func (c *Client) CreateCar(ctx context.Context, req CarRequest) (*Car, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var car Car
	if err := c.do(ctx, http.MethodPost, "/cars", req, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// DeleteCar removes a car. Admin only.
func (c *Client) DeleteCar(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/cars/"+url.PathEscape(id), nil, nil)
}

// BookingRequest is the booking form.
type BookingRequest struct {
	Car            string    `json:"car" validate:"required"`
	Provider       string    `json:"provider" validate:"required"`
	PickupLocation string    `json:"pickupLocation" validate:"required"`
	ReturnLocation string    `json:"returnLocation" validate:"required"`
	PickupDate     time.Time `json:"pickupDate" validate:"required"`
	ReturnDate     time.Time `json:"returnDate" validate:"required,gtfield=PickupDate"`
}

// BookingUpdate is the edit-booking form.
type BookingUpdate struct {
	PickupLocation string    `json:"pickupLocation" validate:"required"`
	ReturnLocation string    `json:"returnLocation" validate:"required"`
	PickupDate     time.Time `json:"pickupDate" validate:"required"`
	ReturnDate     time.Time `json:"returnDate" validate:"required,gtfield=PickupDate"`
}

// ListBookings returns the caller's bookings, or all bookings for an admin.
func (c *Client) ListBookings(ctx context.Context) ([]Booking, error) {
	var bookings []Booking
	if err := c.do(ctx, http.MethodGet, "/bookings", nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// CreateBooking books a car.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var b Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBooking changes the dates or locations of a booking.
func (c *Client) UpdateBooking(ctx context.Context, id string, req BookingUpdate) (*Booking, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var b Booking
	if err := c.do(ctx, http.MethodPut, "/bookings/"+url.PathEscape(id), req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CancelBooking deletes a booking.
func (c *Client) CancelBooking(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil, nil)
}

// ProfileUpdate is the edit-profile form.
type ProfileUpdate struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Telephone string `json:"telephone,omitempty" validate:"omitempty,numeric,len=10"`
}

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateMe updates the caller's profile.
func (c *Client) UpdateMe(ctx context.Context, req ProfileUpdate) (*User, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var u User
	if err := c.do(ctx, http.MethodPut, "/users/me", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteMe deletes the caller's account.
func (c *Client) DeleteMe(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/users/me", nil, nil)
}

// Dashboard returns the admin overview.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	if err := c.do(ctx, http.MethodGet, "/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
