package cmd

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"

	"tickethub/config"
	"tickethub/handlers"
	"tickethub/internal/payment"
	"tickethub/internal/qrsign"
	"tickethub/internal/services"
	"tickethub/internal/store"
	"tickethub/monitoring"
	"tickethub/security"
	"tickethub/utils"

	_ "tickethub/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	var pn *pubnub.PubNub
	if cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId("tickethub-server"))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	// The QR secret is mandatory: without it no ticket can be signed and no
	// gate can verify one, so refuse to start rather than degrade.
	codec, err := qrsign.NewCodec(cfg.QRSecret)
	if err != nil {
		return err
	}

	// Initialize services
	dataStore := store.NewPocketBase(app)
	statsCache := services.NewStatsCache(redisClient)
	notifier := services.NewNotifier(pn)
	payments := payment.NewRedisProvider(redisClient, pn, cfg.PaymentChannel, cfg.PaymentSessionTTL)
	purchaseService := services.NewPurchaseService(dataStore, codec, payments, cfg.RequirePayment)
	migrationService := services.NewMigrationService(dataStore, statsCache, cfg.MigrationBatchSize)

	// Initialize handlers
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService, notifier, statsCache)
	scanHandler := handlers.NewScanHandler(cfg, codec, dataStore)
	migrationHandler := handlers.NewMigrationHandler(migrationService)
	rateLimiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	// Monitoring
	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient)
		go func() {
			log.Printf("Metrics listening on :%s", cfg.MetricsPort)
			if err := http.ListenAndServe(":"+cfg.MetricsPort, promhttp.Handler()); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	go handleShutdown()

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Purchase endpoints
		e.Router.POST("/api/v1/tickets/purchase", purchaseHandler.Purchase).
			BindFunc(rateLimiter.BlockSuspiciousAgents()).
			BindFunc(rateLimiter.Limit(cfg.PurchaseRateLimit, cfg.PurchaseRateWindow))
		e.Router.POST("/api/v1/tickets/{ticketId}/cancel", purchaseHandler.Cancel)

		// Payment session for priced events, confirmed out of band by the
		// gateway before the purchase itself
		e.Router.POST("/api/v1/payments/session", purchaseHandler.PaymentSession).
			BindFunc(rateLimiter.Limit(cfg.PurchaseRateLimit, cfg.PurchaseRateWindow))

		// Scanner endpoints
		e.Router.POST("/api/v1/scan/token", scanHandler.Token)
		e.Router.POST("/api/v1/scan/verify", scanHandler.Verify)

		// Admin migration endpoints, one run + one status check per phase
		e.Router.POST("/api/v1/admin/migrations/venues", migrationHandler.RunVenues)
		e.Router.GET("/api/v1/admin/migrations/venues/status", migrationHandler.VenuesStatus)
		e.Router.POST("/api/v1/admin/migrations/event-venues", migrationHandler.RunEventVenues)
		e.Router.GET("/api/v1/admin/migrations/event-venues/status", migrationHandler.EventVenuesStatus)
		e.Router.POST("/api/v1/admin/migrations/bookmarks", migrationHandler.RunBookmarks)
		e.Router.GET("/api/v1/admin/migrations/bookmarks/status", migrationHandler.BookmarksStatus)
		e.Router.POST("/api/v1/admin/migrations/defaults", migrationHandler.RunDefaults)
		e.Router.GET("/api/v1/admin/migrations/defaults/status", migrationHandler.DefaultsStatus)
		e.Router.POST("/api/v1/admin/migrations/event-status", migrationHandler.RunEventStatus)
		e.Router.GET("/api/v1/admin/migrations/event-status/status", migrationHandler.EventStatusStatus)
		e.Router.POST("/api/v1/admin/migrations/stats", migrationHandler.RunStats)
		e.Router.GET("/api/v1/admin/migrations/stats/status", migrationHandler.StatsStatus)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
