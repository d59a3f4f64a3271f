package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/service"
	"github.com/utafrali/CatalogGo/pkg/health"
	"github.com/utafrali/CatalogGo/pkg/httputil"
	"github.com/utafrali/CatalogGo/pkg/logger"
	"github.com/utafrali/CatalogGo/pkg/middleware"
)

const serviceName = "catalog"

// Services bundles the services bound to one storage backend.
type Services struct {
	Products   *service.ProductService
	Categories *service.CategoryService
	Sellers    *service.SellerService
}

// RouterConfig holds the HTTP-level knobs of the router.
type RouterConfig struct {
	PprofAllowedCIDRs []string
	// RateLimiter guards /api/v1; nil disables limiting.
	RateLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router serving every enabled backend under
// /api/v1/{backend}.
func NewRouter(
	backends map[domain.Backend]*Services,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	productHandler := NewProductHandler(logger)
	categoryHandler := NewCategoryHandler(logger)
	sellerHandler := NewSellerHandler(logger)

	r.Route("/api/v1/{backend}", func(r chi.Router) {
		r.Use(cfg.RateLimiter.Handler)
		r.Use(ContentTypeJSON)
		r.Use(ResolveBackend(backends))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.GetProductByName)
			r.Get("/all", productHandler.ListProducts)
			r.Post("/", productHandler.CreateProduct)
			r.Put("/", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.ListCategories)
			r.Post("/", categoryHandler.CreateCategory)
			r.Get("/{id}", categoryHandler.GetCategory)
			r.Put("/{id}", categoryHandler.RenameCategory)
			r.Delete("/{id}", categoryHandler.DeleteCategory)
		})

		r.Route("/sellers", func(r chi.Router) {
			r.Get("/", sellerHandler.ListSellers)
			r.Post("/", sellerHandler.CreateSeller)
			r.Get("/{id}", sellerHandler.GetSeller)
		})
	})

	return r
}

type servicesKey struct{}

// ResolveBackend maps the {backend} URL segment onto the services of an
// enabled backend. Unknown or disabled backends get 404 UNKNOWN_BACKEND.
func ResolveBackend(backends map[domain.Backend]*Services) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			segment := chi.URLParam(r, "backend")
			backend, ok := domain.ParseBackend(segment)
			var svcs *Services
			if ok {
				svcs, ok = backends[backend]
			}
			if !ok {
				httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNKNOWN_BACKEND",
						Message: "unknown storage backend: " + segment,
					},
				})
				return
			}

			ctx := logger.WithBackend(r.Context(), backend.String())
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("backend", backend.String())))
			ctx = context.WithValue(ctx, servicesKey{}, svcs)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// servicesFrom returns the services stored by ResolveBackend.
func servicesFrom(r *http.Request) *Services {
	return r.Context().Value(servicesKey{}).(*Services)
}
