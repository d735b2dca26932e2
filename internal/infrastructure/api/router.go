package api

import (
	"net/http"

	"bundle-app-shopify-layer/internal/application"
	"bundle-app-shopify-layer/internal/infrastructure/metrics"
	securitymiddleware "bundle-app-shopify-layer/internal/infrastructure/middleware"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Dependencies are the services the HTTP surface is built from
type Dependencies struct {
	OAuth          *application.OAuthService
	Verifier       *application.TokenVerifier
	Dispatcher     *application.WebhookDispatcher
	Relay          ports.InvalidationRelay
	Products       *application.ProductsService
	Settings       *application.SettingsService
	AllowedOrigins []string
	// SwaggerPath is the generated OpenAPI document served at /swagger/doc.json
	SwaggerPath string
}

// NewRouter builds the app's HTTP routes
func NewRouter(deps Dependencies, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(securitymiddleware.InputValidationMiddleware(logger))
	r.Use(securitymiddleware.AuditLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	swaggerPath := deps.SwaggerPath
	if swaggerPath == "" {
		swaggerPath = "./docs/swagger.json"
	}
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, swaggerPath)
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth", authHandler(deps.OAuth, logger))
		r.Get("/auth/callback", callbackHandler(deps.OAuth, logger))
		r.Post("/webhooks", webhookHandler(deps.Dispatcher, logger))
		r.Get("/cache-status", cacheStatusHandler(deps.Relay))
		r.With(sessionContext(deps.Verifier)).Get("/products", productsHandler(deps.Products, logger))
		r.Get("/shop-settings", shopSettingsHandler(deps.Verifier, deps.Settings, logger))
	})

	return r
}
