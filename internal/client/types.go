package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Ref is a reference that the API sends either as a bare ID or as the
// populated document.
type Ref[T any] struct {
	ID    string
	Value *T
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = Ref[T]{}
		return nil
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref[T]{ID: id}
		return nil
	case data[0] == '{':
		var head struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return err
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*r = Ref[T]{ID: head.ID, Value: &v}
		return nil
	default:
		return fmt.Errorf("unsupported reference: %s", data)
	}
}

// MarshalJSON sends the reference as its ID.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// Populated reports whether the full document was sent.
func (r Ref[T]) Populated() bool {
	return r.Value != nil
}

// Address is a provider's location. Older records carry a single line of
// text instead of the structured fields.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`

	Text string `json:"-"`
}

type addressFields Address

func (a *Address) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Address{}
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*a = Address{Text: text}
		return nil
	}

	var f addressFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Address(f)
	return nil
}

func (a Address) MarshalJSON() ([]byte, error) {
	if a.Text != "" && a.structured() == "" {
		return json.Marshal(a.Text)
	}
	return json.Marshal(addressFields(a))
}

func (a Address) structured() string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (a Address) String() string {
	if s := a.structured(); s != "" {
		return s
	}
	return a.Text
}

// Provider is a rental branch.
type Provider struct {
	ID        string  `json:"_id"`
	Name      string  `json:"name"`
	Address   Address `json:"address"`
	Telephone string  `json:"telephone,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Rating    float64 `json:"rating,omitempty"`
}

// Car is a vehicle offered by a provider.
type Car struct {
	ID          string        `json:"_id"`
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	PricePerDay float64       `json:"pricePerDay"`
	PlateNumber string        `json:"plateNumber"`
	Provider    Ref[Provider] `json:"provider"`
	Available   bool          `json:"available"`
}

// User is an account as returned by the API.
type User struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Telephone string `json:"telephone,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Booking is a reservation of a car.
type Booking struct {
	ID             string        `json:"_id"`
	Car            Ref[Car]      `json:"car"`
	Provider       Ref[Provider] `json:"provider"`
	User           Ref[User]     `json:"user"`
	PickupLocation string        `json:"pickupLocation"`
	ReturnLocation string        `json:"returnLocation"`
	PickupDate     time.Time     `json:"pickupDate"`
	ReturnDate     time.Time     `json:"returnDate"`
	Status         string        `json:"status,omitempty"`
}

// StatusOrDefault returns the booking status, "pending" when unset.
func (b Booking) StatusOrDefault() string {
	if b.Status == "" {
		return "pending"
	}
	return strings.ToLower(b.Status)
}

// Dashboard is the admin overview.
type Dashboard struct {
	TotalBooking    int            `json:"totalBooking"`
	TotalIncome     float64        `json:"totalIncome"`
	TotalOutcome    float64        `json:"totalOutcome"`
	PopularProvider []ProviderStat `json:"popularProvider"`
	PopularCarType  []CarTypeStat  `json:"popularCarType"`
}

// NetIncome is income minus outcome.
func (d Dashboard) NetIncome() float64 {
	return d.TotalIncome - d.TotalOutcome
}

// ProviderStat counts bookings for one provider.
type ProviderStat struct {
	ID           string `json:"_id"`
	ProviderInfo struct {
		Name string `json:"name"`
	} `json:"providerInfo"`
	TotalBooking int `json:"totalBooking"`
}

// CarTypeStat counts bookings for one car type.
type CarTypeStat struct {
	Type  string `json:"_id"`
	Count int    `json:"count"`
}
