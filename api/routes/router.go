package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aarluxe/pos-cart/api/controllers"
	"github.com/aarluxe/pos-cart/api/middleware"
	checkoutsvc "github.com/aarluxe/pos-cart/internal/checkout"
	"github.com/aarluxe/pos-cart/internal/notifications"
	"github.com/aarluxe/pos-cart/pkg/config"
	"github.com/aarluxe/pos-cart/pkg/logger"
	"github.com/aarluxe/pos-cart/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	engine controllers.CartEngine,
	selection controllers.ContextSelector,
	checkoutService checkoutsvc.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	readiness := map[string]controllers.Pinger{}
	var idempotencyStore redis.IdempotencyStore
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartSummary(engine, logg))
			r.Delete("/", controllers.CartClear(engine, logg))
			r.Post("/items", controllers.CartAddItem(engine, logg))
			r.Patch("/items", controllers.CartUpdateQuantity(engine, logg))
			r.Delete("/items", controllers.CartRemoveItem(engine, logg))
			r.Post("/catalog-items", controllers.CartAddCatalogItem(engine, selection, logg))
			r.Post("/quote", controllers.CartQuote(engine, logg))
		})

		r.Route("/context", func(r chi.Router) {
			r.Get("/", controllers.ContextGet(selection, engine, logg))
			r.Delete("/", controllers.ContextClear(selection, engine, logg))
			r.Put("/customer", controllers.ContextSelectCustomer(selection, engine, logg))
			r.Put("/vehicle", controllers.ContextSelectVehicle(selection, engine, logg))
			r.Post("/vehicles", controllers.ContextAddVehicle(selection, engine, logg))
		})

		r.Post("/catalog/prices", controllers.CatalogPrices(selection, logg))
		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Delete("/{notificationId}", controllers.DismissNotification(notificationsService, logg))
		})
	})

	return r
}
