package controllers

import (
	"net/http"

	"github.com/aarluxe/pos-cart/api/responses"
	checkoutsvc "github.com/aarluxe/pos-cart/internal/checkout"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/logger"
)

// Checkout submits the current cart as an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		result, err := svc.Submit(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
