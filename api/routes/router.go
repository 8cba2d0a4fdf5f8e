package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nightshift/inventory-backend/api/controllers"
	"github.com/nightshift/inventory-backend/api/middleware"
	"github.com/nightshift/inventory-backend/internal/auth"
	"github.com/nightshift/inventory-backend/internal/customers"
	"github.com/nightshift/inventory-backend/internal/employees"
	"github.com/nightshift/inventory-backend/internal/items"
	"github.com/nightshift/inventory-backend/internal/orders"
	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/reconcile"
	"github.com/nightshift/inventory-backend/internal/reviews"
	"github.com/nightshift/inventory-backend/internal/vendors"
	"github.com/nightshift/inventory-backend/pkg/config"
	"github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/metrics"
	"github.com/nightshift/inventory-backend/pkg/redis"
)

// Services bundles the domain services mounted under /api/v1.
type Services struct {
	Auth          auth.Service
	Organizations organizations.Service
	Items         items.Service
	Vendors       vendors.Service
	Customers     customers.Service
	Orders        orders.Service
	Employees     employees.Service
	Reviews       reviews.Service
	Reconcile     reconcile.Service
}

// Infra carries the clients the transport layer talks to directly.
type Infra struct {
	DB       db.Pinger
	Redis    *redis.Client
	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(infra.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// nil *redis.Client must not leak into the middleware as a non-nil interface.
	var (
		rateStore        middleware.RateLimitStore
		idempotencyStore redis.IdempotencyStore
	)
	if infra.Redis != nil {
		rateStore = infra.Redis
		idempotencyStore = infra.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	readiness := map[string]controllers.Pinger{}
	if infra.DB != nil {
		readiness["db"] = infra.DB
	}
	if infra.Redis != nil {
		readiness["redis"] = infra.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	gatherer := infra.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.Idempotency(idempotencyStore, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.AuthRegister(svc.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Get("/organization", controllers.OrganizationGet(svc.Organizations, logg))
			r.Put("/organization", controllers.OrganizationUpdate(svc.Organizations, logg))

			r.Route("/items", func(r chi.Router) {
				r.Get("/", controllers.ItemList(svc.Items, logg))
				r.Post("/", controllers.ItemCreate(svc.Items, logg))
				r.Get("/low-stock", controllers.ItemLowStock(svc.Items, logg))
				r.Get("/{id}", controllers.ItemGet(svc.Items, logg))
				r.Put("/{id}", controllers.ItemUpdate(svc.Items, logg))
				r.Delete("/{id}", controllers.ItemDelete(svc.Items, logg))
				r.Patch("/{id}/quantity", controllers.ItemRestock(svc.Items, logg))
				r.Get("/{id}/history", controllers.ItemHistory(svc.Items, logg))
			})

			r.Route("/vendors", func(r chi.Router) {
				r.Get("/", controllers.VendorList(svc.Vendors, logg))
				r.Post("/", controllers.VendorCreate(svc.Vendors, logg))
				r.Get("/{id}", controllers.VendorGet(svc.Vendors, logg))
				r.Put("/{id}", controllers.VendorUpdate(svc.Vendors, logg))
				r.Delete("/{id}", controllers.VendorDelete(svc.Vendors, logg))
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", controllers.CustomerList(svc.Customers, logg))
				r.Post("/", controllers.CustomerCreate(svc.Customers, logg))
				r.Get("/{id}", controllers.CustomerGet(svc.Customers, logg))
				r.Put("/{id}", controllers.CustomerUpdate(svc.Customers, logg))
				r.Delete("/{id}", controllers.CustomerDelete(svc.Customers, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(svc.Orders, logg))
				r.Post("/", controllers.OrderCreate(svc.Orders, logg))
				r.Get("/{id}", controllers.OrderGet(svc.Orders, logg))
				r.Put("/{id}", controllers.OrderUpdate(svc.Orders, logg))
				r.Delete("/{id}", controllers.OrderDelete(svc.Orders, logg))
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", controllers.EmployeeList(svc.Employees, logg))
				r.Post("/", controllers.EmployeeCreate(svc.Employees, logg))
				r.Post("/me/password", controllers.EmployeeChangePassword(svc.Employees, logg))
				r.Get("/{id}", controllers.EmployeeGet(svc.Employees, logg))
				r.Put("/{id}", controllers.EmployeeUpdate(svc.Employees, logg))
				r.Delete("/{id}", controllers.EmployeeDelete(svc.Employees, logg))
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Get("/received/{employeeID}", controllers.ReviewsReceived(svc.Reviews, logg))
				r.Get("/given/{employeeID}", controllers.ReviewsGiven(svc.Reviews, logg))
				r.Get("/{id}", controllers.ReviewGet(svc.Reviews, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager(logg))
					r.Post("/", controllers.ReviewCreate(svc.Reviews, logg))
					r.Put("/{id}", controllers.ReviewUpdate(svc.Reviews, logg))
					r.Delete("/{id}", controllers.ReviewDelete(svc.Reviews, logg))
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/reconcile", controllers.AdminReconcile(svc.Reconcile, logg))
			})
		})
	})

	return r
}
