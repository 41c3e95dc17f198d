package customers

import (
	"slices"
	"sync"

	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
)

// Vehicle carries the attributes the pricing rules depend on.
type Vehicle struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"group_id,omitempty"`
	TypeID  int64  `json:"type_id,omitempty"`
	Label   string `json:"label,omitempty"`
}

// Customer is the selected buyer and the vehicles registered to them.
type Customer struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Vehicles []Vehicle `json:"vehicles,omitempty"`
}

// Change describes a context transition delivered to subscribers.
type Change struct {
	Previous CartContext
	Current  CartContext
}

// Selection holds the currently selected customer and vehicle.
type Selection struct {
	mu        sync.RWMutex
	customer  *Customer
	vehicle   *Vehicle
	listeners []func(Change)
}

func NewSelection() *Selection {
	return &Selection{}
}

// Subscribe registers fn to run after every context change. Listeners run
// outside the selection lock, in registration order.
func (s *Selection) Subscribe(fn func(Change)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SelectCustomer replaces the customer and always drops the vehicle.
// A nil customer clears the whole selection.
func (s *Selection) SelectCustomer(customer *Customer) {
	s.update(func() {
		if customer == nil {
			s.customer = nil
		} else {
			copied := *customer
			copied.Vehicles = append([]Vehicle(nil), customer.Vehicles...)
			s.customer = &copied
		}
		s.vehicle = nil
	})
}

// ToggleCustomer selects customer, or clears the selection when the same
// customer is already selected.
func (s *Selection) ToggleCustomer(customer Customer) {
	s.mu.RLock()
	same := s.customer != nil && s.customer.ID == customer.ID
	s.mu.RUnlock()
	if same {
		s.Clear()
		return
	}
	s.SelectCustomer(&customer)
}

// SelectVehicle sets the vehicle for the current customer. A nil vehicle
// deselects it.
func (s *Selection) SelectVehicle(vehicle *Vehicle) error {
	s.mu.RLock()
	hasCustomer := s.customer != nil
	s.mu.RUnlock()
	if vehicle != nil && !hasCustomer {
		return pkgerrors.New(pkgerrors.CodeValidation, "select a customer before choosing a vehicle")
	}
	s.update(func() {
		if vehicle == nil {
			s.vehicle = nil
			return
		}
		copied := *vehicle
		s.vehicle = &copied
	})
	return nil
}

// ToggleVehicle selects vehicle, or deselects it when already selected.
func (s *Selection) ToggleVehicle(vehicle Vehicle) error {
	s.mu.RLock()
	same := s.vehicle != nil && s.vehicle.ID == vehicle.ID
	s.mu.RUnlock()
	if same {
		return s.SelectVehicle(nil)
	}
	return s.SelectVehicle(&vehicle)
}

// AddVehicle appends a newly registered vehicle to the selected customer and
// selects it.
func (s *Selection) AddVehicle(vehicle Vehicle) error {
	s.mu.Lock()
	if s.customer == nil {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeValidation, "select a customer before adding a vehicle")
	}
	s.customer.Vehicles = append(s.customer.Vehicles, vehicle)
	s.mu.Unlock()
	return s.SelectVehicle(&vehicle)
}

// Clear drops both customer and vehicle.
func (s *Selection) Clear() {
	s.update(func() {
		s.customer = nil
		s.vehicle = nil
	})
}

// Context returns the ids currently selected.
func (s *Selection) Context() CartContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contextLocked()
}

// Customer returns a copy of the selected customer, if any.
func (s *Selection) Customer() *Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.customer == nil {
		return nil
	}
	copied := *s.customer
	copied.Vehicles = append([]Vehicle(nil), s.customer.Vehicles...)
	return &copied
}

// Vehicle returns a copy of the selected vehicle, if any.
func (s *Selection) Vehicle() *Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vehicle == nil {
		return nil
	}
	copied := *s.vehicle
	return &copied
}

func (s *Selection) contextLocked() CartContext {
	var ctx CartContext
	if s.customer != nil {
		ctx.CustomerID = s.customer.ID
	}
	if s.vehicle != nil {
		ctx.VehicleID = s.vehicle.ID
	}
	return ctx
}

func (s *Selection) update(mutate func()) {
	s.mu.Lock()
	prev := s.contextLocked()
	mutate()
	next := s.contextLocked()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	if prev == next {
		return
	}
	change := Change{Previous: prev, Current: next}
	for _, fn := range listeners {
		fn(change)
	}
}
