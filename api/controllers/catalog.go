package controllers

import (
	"net/http"

	"github.com/aarluxe/pos-cart/api/responses"
	"github.com/aarluxe/pos-cart/api/validators"
	"github.com/aarluxe/pos-cart/internal/catalog"
	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/aarluxe/pos-cart/pkg/logger"
)

type catalogPricesRequest struct {
	Items []catalog.Item `json:"items" validate:"required,max=500"`
	Lang  string         `json:"lang" validate:"omitempty,max=8"`
}

type catalogPrice struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// CatalogPrices formats catalog card prices for the selected vehicle, before
// anything is quoted.
func CatalogPrices(vehicles VehicleSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload catalogPricesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var vehicle *customers.Vehicle
		if vehicles != nil {
			vehicle = vehicles.Vehicle()
		}
		out := make([]catalogPrice, 0, len(payload.Items))
		for _, item := range payload.Items {
			out = append(out, catalogPrice{
				ID:    item.ID,
				Type:  string(item.Type),
				Name:  item.Names.Pick(payload.Lang),
				Price: item.DisplayPrice(vehicle),
			})
		}
		responses.WriteSuccess(w, map[string]any{"prices": out})
	}
}
