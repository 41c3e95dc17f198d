package customers

import (
	"fmt"

	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"go.uber.org/multierr"
)

// CartContext is the pricing basis for a cart: who is buying and for which vehicle.
type CartContext struct {
	CustomerID int64 `json:"customer_id"`
	VehicleID  int64 `json:"vehicle_id"`
}

// Complete reports whether both ids are present.
func (c CartContext) Complete() bool {
	return c.CustomerID > 0 && c.VehicleID > 0
}

// Validate returns a validation error naming every missing id.
func (c CartContext) Validate() error {
	var errs error
	if c.CustomerID <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("customer_id is required"))
	}
	if c.VehicleID <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("vehicle_id is required"))
	}
	if errs == nil {
		return nil
	}
	missing := make([]string, 0, 2)
	for _, err := range multierr.Errors(errs) {
		missing = append(missing, err.Error())
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "Please select a customer and vehicle").
		WithDetails(map[string]any{"missing": missing})
}

// InvalidationReason explains why a context change invalidates a cart.
type InvalidationReason string

const (
	InvalidationNone     InvalidationReason = ""
	InvalidationCustomer InvalidationReason = "customer"
	InvalidationVehicle  InvalidationReason = "vehicle"
)

// Message is the operator-facing notice for the reason.
func (r InvalidationReason) Message() string {
	switch r {
	case InvalidationCustomer:
		return "Cart cleared due to customer change"
	case InvalidationVehicle:
		return "Cart cleared due to vehicle change"
	}
	return ""
}

// DetectInvalidation decides whether moving from prev to next invalidates cart
// contents priced against prev. Going from no selection to a selection never
// does: a restored cart keeps its items until the operator switches away.
// A customer change wins over the vehicle reset it causes.
func DetectInvalidation(prev, next CartContext) InvalidationReason {
	if prev.CustomerID > 0 && prev.CustomerID != next.CustomerID {
		return InvalidationCustomer
	}
	if next.CustomerID > 0 && prev.VehicleID > 0 && prev.VehicleID != next.VehicleID {
		return InvalidationVehicle
	}
	return InvalidationNone
}
