package controllers

import (
	"net/http"

	"github.com/aarluxe/pos-cart/api/responses"
	"github.com/aarluxe/pos-cart/api/validators"
	"github.com/aarluxe/pos-cart/internal/customers"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/logger"
)

// ContextSelector is the customer and vehicle selection the cart follows.
type ContextSelector interface {
	SelectCustomer(customer *customers.Customer)
	SelectVehicle(vehicle *customers.Vehicle) error
	AddVehicle(vehicle customers.Vehicle) error
	Clear()
	Context() customers.CartContext
	Customer() *customers.Customer
	Vehicle() *customers.Vehicle
}

type contextResponse struct {
	Context  customers.CartContext `json:"context"`
	Complete bool                  `json:"complete"`
	Customer *customers.Customer   `json:"customer"`
	Vehicle  *customers.Vehicle    `json:"vehicle"`
	Cart     any                   `json:"cart,omitempty"`
}

func newContextResponse(sel ContextSelector, engine CartEngine) contextResponse {
	cc := sel.Context()
	resp := contextResponse{
		Context:  cc,
		Complete: cc.Complete(),
		Customer: sel.Customer(),
		Vehicle:  sel.Vehicle(),
	}
	if engine != nil {
		resp.Cart = engine.Summary()
	}
	return resp
}

// ContextGet returns the current selection.
func ContextGet(sel ContextSelector, engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newContextResponse(sel, engine))
	}
}

type selectCustomerRequest struct {
	Customer *customerPayload `json:"customer" validate:"omitempty"`
}

type customerPayload struct {
	ID       int64            `json:"id" validate:"required,gt=0"`
	Name     string           `json:"name"`
	Phone    string           `json:"phone"`
	Vehicles []vehiclePayload `json:"vehicles" validate:"dive"`
}

type vehiclePayload struct {
	ID      int64  `json:"id" validate:"required,gt=0"`
	GroupID int64  `json:"group_id" validate:"gte=0"`
	TypeID  int64  `json:"type_id" validate:"gte=0"`
	Label   string `json:"label"`
}

func (v vehiclePayload) toVehicle() customers.Vehicle {
	return customers.Vehicle{
		ID:      v.ID,
		GroupID: v.GroupID,
		TypeID:  v.TypeID,
		Label:   validators.SanitizeString(v.Label, maxLabelLength),
	}
}

func (c customerPayload) toCustomer() *customers.Customer {
	out := &customers.Customer{
		ID:    c.ID,
		Name:  validators.SanitizeString(c.Name, maxLabelLength),
		Phone: validators.SanitizeString(c.Phone, 32),
	}
	for _, v := range c.Vehicles {
		out.Vehicles = append(out.Vehicles, v.toVehicle())
	}
	return out
}

// ContextSelectCustomer replaces the customer; the vehicle is always reset.
// A null customer clears the selection.
func ContextSelectCustomer(sel ContextSelector, engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload selectCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Customer == nil {
			sel.SelectCustomer(nil)
		} else {
			sel.SelectCustomer(payload.Customer.toCustomer())
		}
		responses.WriteSuccess(w, newContextResponse(sel, engine))
	}
}

type selectVehicleRequest struct {
	Vehicle *vehiclePayload `json:"vehicle" validate:"omitempty"`
}

// ContextSelectVehicle selects a vehicle for the current customer. The vehicle
// must be registered to the customer; a null vehicle deselects.
func ContextSelectVehicle(sel ContextSelector, engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload selectVehicleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Vehicle == nil {
			if err := sel.SelectVehicle(nil); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, newContextResponse(sel, engine))
			return
		}

		vehicle, err := registeredVehicle(sel.Customer(), payload.Vehicle.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sel.SelectVehicle(&vehicle); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newContextResponse(sel, engine))
	}
}

type addVehicleRequest struct {
	Vehicle vehiclePayload `json:"vehicle"`
}

// ContextAddVehicle registers a new vehicle on the selected customer and selects it.
func ContextAddVehicle(sel ContextSelector, engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addVehicleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sel.AddVehicle(payload.Vehicle.toVehicle()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newContextResponse(sel, engine))
	}
}

func ContextClear(sel ContextSelector, engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel.Clear()
		responses.WriteSuccess(w, newContextResponse(sel, engine))
	}
}

func registeredVehicle(customer *customers.Customer, vehicleID int64) (customers.Vehicle, error) {
	if customer == nil {
		return customers.Vehicle{}, pkgerrors.New(pkgerrors.CodeValidation, "select a customer before choosing a vehicle")
	}
	for _, v := range customer.Vehicles {
		if v.ID == vehicleID {
			return v, nil
		}
	}
	return customers.Vehicle{}, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle is not registered to the selected customer")
}
