package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aarluxe/pos-cart/api/responses"
	"github.com/aarluxe/pos-cart/internal/notifications"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/logger"
)

// ListNotifications returns the notifications that have not expired yet.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"notifications": svc.Active()})
	}
}

// DismissNotification removes a notification before it expires.
func DismissNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "notificationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id"))
			return
		}
		if !svc.Dismiss(id) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
