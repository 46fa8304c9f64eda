package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	echomw "github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"github.com/erictragoustis/vuvoregs/config"
	"github.com/erictragoustis/vuvoregs/handlers"
	"github.com/erictragoustis/vuvoregs/internal/services/viva"
	"github.com/erictragoustis/vuvoregs/monitoring"
	"github.com/erictragoustis/vuvoregs/security"
	"github.com/erictragoustis/vuvoregs/services"
	"github.com/erictragoustis/vuvoregs/storage"
	"github.com/erictragoustis/vuvoregs/utils"
)

func Start() error {
	// Load configuration
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Open storage
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PubNub
	var notifier services.Notifier = services.NoopNotifier{}
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey

		notifier = services.NewPubNubNotifier(pubnub.NewPubNub(pnConfig), logger)
	}

	// Initialize payment gateway
	vivaClient := viva.NewClient(ctx, &viva.ClientConfig{
		APIURL:       cfg.VivaConfig.APIURL,
		AccountsURL:  cfg.VivaConfig.AccountsURL,
		CheckoutURL:  cfg.VivaConfig.CheckoutURL,
		ClientID:     cfg.VivaConfig.ClientID,
		ClientSecret: cfg.VivaConfig.ClientSecret,
		SourceCode:   cfg.VivaConfig.SourceCode,
	})
	provider := viva.NewProvider(vivaClient)

	monitor := monitoring.NewMonitor(redisClient)

	// Initialize services
	registrationService := services.NewRegistrationService(store, services.NewValidator(), monitor, logger)
	paymentService := services.NewPaymentService(
		store, provider, redisClient, notifier, monitor, logger,
		cfg.PaymentStatusTTL, cfg.PublicBaseURL,
	)

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(store, logger)
	registrationHandler := handlers.NewRegistrationHandler(registrationService, logger)
	lookupHandler := handlers.NewLookupHandler(store, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg.VivaConfig.VerificationKey, handlers.WebhookAuth{
		Username:   cfg.VivaConfig.WebhookUsername,
		SecretHash: cfg.VivaConfig.WebhookSecretHash,
	}, logger)

	rateLimiter := security.NewRateLimiter(redisClient)

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(rateLimiter.AntiBotMiddleware())

	// Event endpoints
	e.GET("/api/v1/events", eventHandler.ListEvents)
	e.GET("/api/v1/events/:eventId/races", eventHandler.ListRaces)
	e.GET("/api/v1/events/:eventId/pickup-points", lookupHandler.PickUpPoints)
	e.GET("/api/v1/events/:eventId/terms", lookupHandler.Terms)

	// Registration endpoints
	e.POST("/api/v1/races/:raceId/register", registrationHandler.Register, rateLimiter.RegistrationRateLimit())
	e.POST("/api/v1/registrations/:registrationId/confirm", registrationHandler.ConfirmTerms)
	e.GET("/api/v1/registrations/:registrationId", registrationHandler.GetRegistration)

	// Lookup endpoints
	e.GET("/api/v1/packages/:packageId/options", lookupHandler.PackageOptions)
	e.GET("/api/v1/races/:raceId/special-prices", lookupHandler.SpecialPrices)

	// Payment endpoints
	e.POST("/api/v1/registrations/:registrationId/payment", paymentHandler.CreatePayment)
	e.GET("/api/v1/payments/:transactionId/status", paymentHandler.CheckStatus)

	// Viva webhook
	e.POST("/webhooks/viva", paymentHandler.Webhook)
	e.GET("/webhooks/viva", paymentHandler.WebhookVerify)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.JSON(503, map[string]string{"status": "unhealthy", "error": err.Error()})
		}
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(503, map[string]string{"status": "unhealthy", "error": err.Error()})
		}
		return c.JSON(200, map[string]string{"status": "healthy"})
	})

	if cfg.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	go handleShutdown(cancel)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	}()

	log.Printf("Server listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
