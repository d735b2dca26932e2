package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bundle-app-shopify-layer/internal/application"
	"bundle-app-shopify-layer/internal/application/webhook_handlers"
	"bundle-app-shopify-layer/internal/config"
	apiinfra "bundle-app-shopify-layer/internal/infrastructure/api"
	"bundle-app-shopify-layer/internal/infrastructure/encryption"
	"bundle-app-shopify-layer/internal/infrastructure/pubsub"
	"bundle-app-shopify-layer/internal/infrastructure/redisstore"
	"bundle-app-shopify-layer/internal/infrastructure/repository"
	shopifyinfra "bundle-app-shopify-layer/internal/infrastructure/shopify"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session storage and webhook audit log
	var sessionRepo ports.SessionRepository
	var auditLog ports.WebhookEventRepository

	switch cfg.Storage.SessionStorage {
	case config.SessionStorageMemory:
		memoryRepo := repository.NewMemoryRepository()
		sessionRepo = memoryRepo
		auditLog = memoryRepo
		logger.Warn().Msg("Using in-memory session storage, sessions are lost on restart")
	default:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Storage.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		mongoRepo := repository.NewMongoRepository(client.Database(cfg.Storage.MongoDatabase))
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
		}
		sessionRepo = mongoRepo
		auditLog = mongoRepo
	}

	if cfg.Storage.EncryptionKey != "" {
		encryptionService, err := encryption.NewService(cfg.Storage.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
		}
		sessionRepo = repository.NewEncryptedSessionRepository(sessionRepo, encryptionService)
	} else {
		logger.Warn().Msg("ENCRYPTION_KEY not set, access tokens are stored in plaintext")
	}

	// Optional Redis for OAuth nonces and webhook de-duplication
	var nonces ports.NonceStore
	var ledger ports.DeliveryLedger
	if cfg.Redis.URL != "" {
		redisClient, err := redisstore.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		nonces = redisstore.NewNonceStore(redisClient, cfg.Redis.NonceTTL)
		ledger = redisstore.NewDeliveryLedger(redisClient, cfg.Redis.DedupTTL, cfg.Redis.ClaimTTL)
		logger.Info().Msg("Redis nonce store and delivery ledger enabled")
	}

	// Shopify Admin API client with per-shop rate limiting and retry
	shopifyClient := shopifyinfra.NewClientWithOptions(
		cfg.Shopify.APIKey,
		cfg.Shopify.APISecret,
		cfg.Shopify.APIVersion,
		shopifyinfra.NewRateLimiter(logger),
		shopifyinfra.DefaultRetryConfig(),
		logger,
	)

	// Application services
	relay := pubsub.NewInvalidationRelay(logger)
	settingsService := application.NewSettingsService(shopifyClient, logger)
	productsService := application.NewProductsService(shopifyClient, logger)
	registrar := application.NewWebhookRegistrar(shopifyClient, cfg.Shopify.Host, application.DefaultWebhookTopics, logger)

	oauthService := application.NewOAuthService(
		application.OAuthConfig{
			Scopes:           cfg.Shopify.Scopes,
			Host:             cfg.Shopify.Host,
			PostAuthRedirect: cfg.Shopify.PostAuthRedirect,
		},
		shopifyClient,
		sessionRepo,
		application.NewStateSigner(cfg.Shopify.APISecret),
		nonces,
		registrar,
		logger,
	)

	verifier := application.NewTokenVerifier(cfg.Shopify.APIKey, cfg.Shopify.APISecret, sessionRepo, logger)

	// Webhook handlers
	registry := application.NewHandlerRegistry(
		webhook_handlers.NewShopUpdateHandler(logger, relay, settingsService),
		webhook_handlers.NewAppUninstalledHandler(logger, sessionRepo, relay, settingsService),
		webhook_handlers.NewComplianceHandler(logger),
	)
	dispatcher := application.NewWebhookDispatcher(shopifyClient, registry, ledger, auditLog, logger)

	router := apiinfra.NewRouter(apiinfra.Dependencies{
		OAuth:          oauthService,
		Verifier:       verifier,
		Dispatcher:     dispatcher,
		Relay:          relay,
		Products:       productsService,
		Settings:       settingsService,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("host", cfg.Shopify.Host).
			Strs("webhookTopics", registry.Topics()).
			Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
