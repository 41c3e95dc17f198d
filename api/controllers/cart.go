package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/aarluxe/pos-cart/api/responses"
	"github.com/aarluxe/pos-cart/api/validators"
	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/catalog"
	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/aarluxe/pos-cart/internal/reconcile"
	"github.com/aarluxe/pos-cart/pkg/enums"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/logger"
)

const maxLabelLength = 200

// CartEngine is the cart surface the HTTP layer drives.
type CartEngine interface {
	Summary() reconcile.Summary
	AddItem(ctx context.Context, spec cart.AddSpec) error
	RemoveItem(ctx context.Context, key cart.Key, optionIDs []int64) bool
	UpdateQuantity(ctx context.Context, key cart.Key, optionIDs []int64, quantity int) bool
	Clear(ctx context.Context)
	Reconcile(ctx context.Context) error
}

// VehicleSource returns the vehicle currently selected, if any.
type VehicleSource interface {
	Vehicle() *customers.Vehicle
}

// CartSummary returns the cart read model.
func CartSummary(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}
		responses.WriteSuccess(w, engine.Summary())
	}
}

type optionPayload struct {
	ID    int64           `json:"id" validate:"gt=0"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type addItemRequest struct {
	PurchasableID   int64           `json:"purchasable_id" validate:"required,gt=0"`
	PurchasableType string          `json:"purchasable_type" validate:"required,oneof=service package product"`
	Quantity        int             `json:"quantity" validate:"gte=0"`
	OptionIDs       []int64         `json:"option_ids" validate:"dive,gt=0"`
	DisplayName     string          `json:"display_name"`
	Image           string          `json:"image"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Options         []optionPayload `json:"options" validate:"dive"`
}

func (p addItemRequest) toSpec() cart.AddSpec {
	spec := cart.AddSpec{
		PurchasableID:   p.PurchasableID,
		PurchasableType: enums.PurchasableType(p.PurchasableType),
		Quantity:        quantityOrDefault(p.Quantity),
		OptionIDs:       p.OptionIDs,
		DisplayName:     validators.SanitizeString(p.DisplayName, maxLabelLength),
		Image:           validators.SanitizeString(p.Image, 2048),
		UnitPrice:       p.UnitPrice,
	}
	for _, opt := range p.Options {
		spec.Options = append(spec.Options, cart.Option{
			ID:    opt.ID,
			Name:  validators.SanitizeString(opt.Name, maxLabelLength),
			Price: opt.Price,
		})
	}
	return spec
}

// CartAddItem adds a line priced by the caller and returns the updated cart.
func CartAddItem(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := engine.AddItem(r.Context(), payload.toSpec()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, engine.Summary())
	}
}

type addCatalogItemRequest struct {
	Item      catalog.Item `json:"item"`
	Quantity  int          `json:"quantity" validate:"gte=0"`
	OptionIDs []int64      `json:"option_ids" validate:"dive,gt=0"`
	Lang      string       `json:"lang" validate:"omitempty,max=8"`
}

// CartAddCatalogItem adds a catalog entry priced for the selected vehicle.
func CartAddCatalogItem(engine CartEngine, vehicles VehicleSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCatalogItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var vehicle *customers.Vehicle
		if vehicles != nil {
			vehicle = vehicles.Vehicle()
		}
		spec, err := payload.Item.AddSpec(vehicle, quantityOrDefault(payload.Quantity), payload.OptionIDs, payload.Lang)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := engine.AddItem(r.Context(), spec); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, engine.Summary())
	}
}

type lineRequest struct {
	PurchasableID   int64   `json:"purchasable_id" validate:"required,gt=0"`
	PurchasableType string  `json:"purchasable_type" validate:"required,oneof=service package product"`
	OptionIDs       []int64 `json:"option_ids" validate:"dive,gt=0"`
}

func (l lineRequest) key() cart.Key {
	return cart.Key{PurchasableID: l.PurchasableID, PurchasableType: enums.PurchasableType(l.PurchasableType)}
}

type updateQuantityRequest struct {
	lineRequest
	Quantity int `json:"quantity"`
}

// CartUpdateQuantity sets a line's quantity. Zero or less removes the line.
func CartUpdateQuantity(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !engine.UpdateQuantity(r.Context(), payload.key(), payload.OptionIDs, payload.Quantity) {
			if !lineExists(engine.Summary(), payload.key()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found"))
				return
			}
		}
		responses.WriteSuccess(w, engine.Summary())
	}
}

// CartRemoveItem removes a line, or only the listed options of it.
func CartRemoveItem(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload lineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !engine.RemoveItem(r.Context(), payload.key(), payload.OptionIDs) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart line or option not found"))
			return
		}
		responses.WriteSuccess(w, engine.Summary())
	}
}

func CartClear(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.Clear(r.Context())
		responses.WriteSuccess(w, engine.Summary())
	}
}

// CartQuote reconciles the cart with the pricing service synchronously. A
// response superseded by a newer mutation is reported as a conflict; the
// newer quote is already scheduled.
func CartQuote(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Reconcile(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Summary())
	}
}

func lineExists(s reconcile.Summary, key cart.Key) bool {
	for _, item := range s.Items {
		if item.Key() == key {
			return true
		}
	}
	return false
}

// quantityOrDefault treats an omitted quantity as a single unit.
func quantityOrDefault(q int) int {
	if q == 0 {
		return 1
	}
	return q
}
