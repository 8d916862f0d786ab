package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridepool/internal/config"
	"ridepool/internal/handlers"
	"ridepool/internal/middleware"
	"ridepool/internal/models"
	mongorepo "ridepool/internal/repositories/mongodb"
	"ridepool/internal/services"
	"ridepool/pkg/cache"
	"ridepool/pkg/database"
	"ridepool/pkg/logger"
	"ridepool/pkg/payment"
	"ridepool/pkg/push"
	"ridepool/pkg/sms"
	"ridepool/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	audit, err := logger.NewAuditLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize audit logger: %v\n", err)
		os.Exit(1)
	}

	mongoDB, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongoDB.Close()

	if err := database.NewMigrator(mongoDB.Database).Up(); err != nil {
		log.WithError(err).Fatal("Failed to run database migrations")
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	cacheService := services.NewCacheService(redisCache, log)

	rideRepo := mongorepo.NewRideRepository(mongoDB.Database, cacheService)
	bookingRepo := mongorepo.NewBookingRepository(mongoDB.Database)
	paymentRepo := mongorepo.NewPaymentRepository(mongoDB.Database)
	payoutRepo := mongorepo.NewPayoutRepository(mongoDB.Database)

	notifier := services.NewNotificationService(
		buildPushProvider(cfg, log),
		buildSMSProvider(cfg, log),
		redisCache,
		log,
	)

	paymentService := services.NewPaymentService(
		paymentRepo,
		bookingRepo,
		rideRepo,
		buildPaymentProviders(cfg),
		notifier,
		log,
		audit,
	)
	bookingService := services.NewBookingService(
		mongoDB,
		rideRepo,
		bookingRepo,
		cacheService,
		notifier,
		paymentService,
		log,
		audit,
	)
	rideService := services.NewRideService(
		mongoDB,
		rideRepo,
		bookingRepo,
		cacheService,
		notifier,
		paymentService,
		log,
	)
	settlementService := services.NewSettlementService(
		paymentRepo,
		payoutRepo,
		cacheService,
		notifier,
		log,
		audit,
	)

	rideHandler := handlers.NewRideHandler(rideService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	settlementHandler := handlers.NewSettlementHandler(settlementService)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		log.WithError(err).Fatal("Invalid trusted proxies configuration")
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	router.Use(middleware.LoggingMiddleware(log))

	routes.Setup(router, cfg, rideHandler, bookingHandler, paymentHandler, settlementHandler)

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := mongoDB.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": cfg.App.Version,
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		log.Infof("Starting server on port %d", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
}

func buildPaymentProviders(cfg *config.Config) map[models.PaymentGateway]payment.Provider {
	providers := map[models.PaymentGateway]payment.Provider{}
	if cfg.Payment.Razorpay.KeyID != "" {
		providers[models.PaymentGatewayRazorpay] = payment.NewRazorpayProvider(
			cfg.Payment.Razorpay.KeyID,
			cfg.Payment.Razorpay.KeySecret,
			cfg.Payment.Razorpay.WebhookSecret,
		)
	}
	if cfg.Payment.Stripe.SecretKey != "" {
		providers[models.PaymentGatewayStripe] = payment.NewStripeProvider(
			cfg.Payment.Stripe.SecretKey,
			cfg.Payment.Stripe.WebhookSecret,
		)
	}
	return providers
}

func buildPushProvider(cfg *config.Config, log *logger.Logger) push.Provider {
	switch cfg.Push.Provider {
	case "apns":
		provider, err := push.NewAPNSProvider(
			cfg.Push.APNS.KeyFile,
			cfg.Push.APNS.KeyID,
			cfg.Push.APNS.TeamID,
			cfg.Push.APNS.BundleID,
			cfg.Push.APNS.Production,
		)
		if err != nil {
			log.WithError(err).Warn("APNS unavailable, push notifications disabled")
			return nil
		}
		return provider
	case "fcm":
		if cfg.Push.FCM.Credentials == "" {
			log.Warn("FCM credentials missing, push notifications disabled")
			return nil
		}
		provider, err := push.NewFCMProvider(cfg.Push.FCM.Credentials)
		if err != nil {
			log.WithError(err).Warn("FCM unavailable, push notifications disabled")
			return nil
		}
		return provider
	default:
		return nil
	}
}

func buildSMSProvider(cfg *config.Config, log *logger.Logger) sms.Provider {
	switch cfg.SMS.Provider {
	case "twilio":
		if cfg.SMS.Twilio.AccountSID == "" {
			log.Warn("Twilio credentials missing, SMS disabled")
			return nil
		}
		return sms.NewTwilioProvider(
			cfg.SMS.Twilio.AccountSID,
			cfg.SMS.Twilio.AuthToken,
			cfg.SMS.Twilio.FromNumber,
		)
	case "aws_sns":
		provider, err := sms.NewAWSSNSProvider(cfg.SMS.AWS.Region)
		if err != nil {
			log.WithError(err).Warn("AWS SNS unavailable, SMS disabled")
			return nil
		}
		return provider
	default:
		return nil
	}
}
