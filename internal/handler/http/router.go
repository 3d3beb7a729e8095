// Package http exposes the REST API: auth, brand catalog, customer types,
// price calculation, quotes and analytics. Handlers decode and validate
// requests, delegate to the service layer and render the standard JSON
// envelope.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sagar7057/pharma-backend/internal/auth"
	"github.com/Sagar7057/pharma-backend/internal/service"
	"github.com/Sagar7057/pharma-backend/pkg/health"
	"github.com/Sagar7057/pharma-backend/pkg/middleware"
)

// NewRouter creates a chi router with all API routes registered.
func NewRouter(
	userService *service.UserService,
	brandService *service.BrandService,
	customerTypeService *service.CustomerTypeService,
	pricingService *service.PricingService,
	quoteService *service.QuoteService,
	analyticsService *service.AnalyticsService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.NoStore)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("pharma-backend"))
	r.Use(middleware.Tracing("pharma-backend"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	// Token validator bridging the auth middleware to the JWT manager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.Validate(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.UserID, Email: claims.Email}, nil
	}

	authHandler := NewAuthHandler(userService, logger)
	brandHandler := NewBrandHandler(brandService, logger)
	customerTypeHandler := NewCustomerTypeHandler(customerTypeService, logger)
	pricingHandler := NewPricingHandler(pricingService, logger)
	quoteHandler := NewQuoteHandler(quoteService, logger)
	analyticsHandler := NewAnalyticsHandler(analyticsService, logger)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		// The refresh handler reads the bearer token itself so it can hand
		// the raw string to the service.
		r.Post("/refresh-token", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Get("/profile", authHandler.Profile)
			r.Post("/logout", authHandler.Logout)
		})
	})

	r.Route("/api/brands", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/", brandHandler.Create)
		r.Get("/", brandHandler.List)
		r.Get("/export", brandHandler.ExportCSV)
		r.Post("/import", brandHandler.ImportCSV)
		r.Get("/{id}", brandHandler.Get)
		r.Put("/{id}", brandHandler.Update)
		r.Delete("/{id}", brandHandler.Delete)
	})

	r.Route("/api/customer-types", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/", customerTypeHandler.Create)
		r.Get("/", customerTypeHandler.List)
		r.Get("/{id}", customerTypeHandler.Get)
		r.Put("/{id}", customerTypeHandler.Update)
		r.Delete("/{id}", customerTypeHandler.Delete)
	})

	r.Route("/api/pricing", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/calculate", pricingHandler.Calculate)
		r.Post("/check-nppa", pricingHandler.CheckNPPA)
		r.Get("/nppa-data/{brandID}", pricingHandler.NPPAData)
	})

	r.Route("/api/quotes", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/", quoteHandler.Create)
		r.Get("/", quoteHandler.List)
		r.Get("/{id}", quoteHandler.Get)
		r.Put("/{id}", quoteHandler.UpdateStatus)
		r.Delete("/{id}", quoteHandler.Delete)
		r.Post("/{id}/send", quoteHandler.Send)
	})

	r.Route("/api/analytics", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/dashboard", analyticsHandler.Dashboard)
		r.Get("/revenue-trend", analyticsHandler.RevenueTrend)
		r.Get("/quotes-metrics", analyticsHandler.QuoteMetrics)
		r.Get("/brands-metrics", analyticsHandler.BrandMetrics)
		r.Get("/customers-metrics", analyticsHandler.CustomerMetrics)
	})

	return r
}
