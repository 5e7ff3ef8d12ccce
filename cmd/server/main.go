package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/config"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/database"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/handlers"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/hub"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/identity"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/middleware"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/notify"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/routes"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/store"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/logger"
)

func main() {
	config.LoadConfig()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	logger.Info().Str("environment", env).Msg("Starting Alumni Portal messaging backend...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database.Connect()
	database.InitRedis()

	logger.Info().Msg("Running database migrations...")
	if err := database.DB.AutoMigrate(
		&models.Account{},
		&models.AlumniProfile{},
		&models.SecureMessage{},
		&models.UserPublicKey{},
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// The no-self-messaging rule is enforced in the schema too, not just in
	// the store. AutoMigrate cannot express CHECK constraints.
	database.DB.Exec(`
		DO $$ BEGIN
			ALTER TABLE messages ADD CONSTRAINT chk_messages_no_self
				CHECK (sender_profile_id <> receiver_profile_id);
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;
	`)
	logger.Info().Msg("Database migrations complete")

	// Wire the messaging core. The hub is created here and handed by
	// reference to everything that broadcasts.
	broadcastHub := hub.New()
	resolver := identity.NewResolver(database.DB)
	messageStore := store.NewMessageStore(database.DB)
	keyDirectory := store.NewKeyDirectory(database.DB)
	aggregator := store.NewConversationAggregator(database.DB)

	mailer := notify.NewHTTPMailer(config.AppConfig)
	debounce := time.Duration(config.AppConfig.MailDebounceMinutes) * time.Minute
	dispatcher := notify.NewDispatcher(broadcastHub, resolver, mailer, debounce)

	gateway := handlers.NewGateway(broadcastHub, resolver, messageStore, keyDirectory, dispatcher)
	messageHandler := handlers.NewMessageHandler(broadcastHub, resolver, messageStore, keyDirectory, aggregator, dispatcher)
	keyHandler := handlers.NewKeyHandler(keyDirectory)

	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	// Long-polling sockets would trip the general limiter.
	r.Use(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 11 && c.Request.URL.Path[:11] == "/socket.io/" {
			c.Next()
			return
		}
		middleware.GeneralRateLimit()(c)
	})

	api := r.Group("/api")
	routes.RegisterMessagingRoutes(api, messageHandler, keyHandler)

	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		redisStatus := "ok"

		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "error"
		}

		if database.Redis != nil {
			if _, err := database.Redis.Ping(context.Background()).Result(); err != nil {
				redisStatus = "error"
			}
		} else {
			redisStatus = "not configured"
		}

		status := "ok"
		if dbStatus != "ok" || (redisStatus != "ok" && redisStatus != "not configured") {
			status = "degraded"
		}

		c.JSON(200, gin.H{
			"status": status,
			"checks": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	})

	socketServer := gateway.InitSocketServer()
	r.GET("/socket.io/*any", handlers.SocketHandler(socketServer))
	r.POST("/socket.io/*any", handlers.SocketHandler(socketServer))

	port := config.AppConfig.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")

	handlers.Shutdown(socketServer, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server stopped")
}
