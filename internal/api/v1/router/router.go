package router

import (
	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the entitlement store, payment provider client, and handlers into
// a single HTTP handler. The returned pool must be closed by the caller.
func New(ctx context.Context, cfg *config.Config, stripeSecretKey string, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection (connection pooling)
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if strings.Contains(dsn, "?") {
				separator = "&"
			} else {
				separator = "?"
			}
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection pool")
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		pool.Close()
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize S3 client for guide downloads
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		pool.Close()
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize Pub/Sub publisher for purchase events
	pubSubPublisher, err := pubsub.NewPublisher(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
		pool.Close()
		return nil, nil, err
	}

	// 5. Initialize repositories & services & handlers
	stripeClient := service.NewStripeClient(stripeSecretKey)

	purchaseRepo := repository.NewPurchaseRepo(pool)
	subscriptionRepo := repository.NewSubscriptionRepo(pool)
	userRepo := repository.NewUserRepo(pool)
	progressRepo := repository.NewProgressRepo(pool)

	identitySvc := service.NewIdentityService(userRepo, logger)
	checkoutSvc := service.NewCheckoutService(stripeClient, purchaseRepo, pubSubPublisher, cfg.PurchaseEventsTopic, logger)
	accessSvc := service.NewAccessService(purchaseRepo, subscriptionRepo, identitySvc, logger)
	refundSvc := service.NewRefundService(stripeClient, purchaseRepo, subscriptionRepo, logger)
	downloadSvc := service.NewDownloadService(s3Client, cfg.S3Bucket, time.Duration(cfg.DownloadURLTTLMin)*time.Minute, logger)
	progressSvc := service.NewProgressService(progressRepo, logger)
	stripeSvc := service.NewStripeService(cfg, stripeClient, checkoutSvc, refundSvc, subscriptionRepo, logger)

	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, validate, logger)
	accessHandler := handler.NewAccessHandler(accessSvc, downloadSvc, validate, logger)
	adminHandler := handler.NewAdminHandler(refundSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(refundSvc, logger)
	progressHandler := handler.NewProgressHandler(progressSvc, validate, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.AuthJWTKey, logger)
	optionalAuthMiddleware := middleware.OptionalAuthMiddleware(cfg.AuthJWTKey, logger)
	adminMiddleware := middleware.AdminAuthMiddleware(cfg.AdminAPISecret, logger)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	checkoutHandler.RegisterRoutes(apiV1Mux)
	accessHandler.RegisterRoutes(apiV1Mux, optionalAuthMiddleware)
	adminHandler.RegisterRoutes(apiV1Mux, adminMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	progressHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Provider webhooks authenticate by signature, not bearer token.
	apiV1Mux.HandleFunc("POST /webhooks/stripe", stripeSvc.HandleWebhook)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Redirect all other root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger, c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services. See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
