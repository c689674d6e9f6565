package main

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"studiobook/internal/config"
	"studiobook/internal/database"
	"studiobook/internal/gateway"
	"studiobook/internal/middleware"
	"studiobook/internal/modules/booking"
	"studiobook/internal/modules/payment"
	"studiobook/internal/pkg/events"
	"studiobook/internal/pkg/fee"
	"studiobook/internal/pkg/idempotency"
	jwtsvc "studiobook/internal/pkg/jwt"
	"studiobook/internal/repository"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.StripeAPIKey == "" {
		log.Fatal("STRIPE_API_KEY is empty")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	studioRepo := repository.NewStudioRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)

	var idemStore idempotency.Store
	if cfg.RedisAddr != "" {
		idemStore = idempotency.NewRedisStore(
			redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
			cfg.IdempotencyTTL,
		)
	} else {
		idemStore = idempotency.NewMemoryStore(cfg.IdempotencyTTL)
	}

	audit := events.NewRecorder(eventRepo, cfg.KafkaBrokers, cfg.KafkaTopic, log)
	defer audit.Close()

	gw := gateway.NewStripeGateway(cfg.StripeAPIKey)
	fees := fee.NewCalculator(cfg.PlatformFeeBPS, cfg.PlatformFeeFlatCents)

	bookingService := booking.NewService(booking.Deps{
		Bookings:       bookingRepo,
		Users:          userRepo,
		Studios:        studioRepo,
		Rooms:          roomRepo,
		Gateway:        gw,
		Fees:           fees,
		Idempotency:    idemStore,
		Audit:          audit,
		Events:         eventRepo,
		Log:            log,
		GatewayTimeout: cfg.GatewayTimeout,
	})
	bookingHandler := booking.NewHandler(bookingService)

	paymentService := payment.NewService(studioRepo, userRepo, gw, log, cfg.GatewayTimeout)
	paymentHandler := payment.NewHandler(paymentService)

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Reads stay open; only the mutating side goes behind bearer auth.
	public := r.Group("/api/v1")
	mutating := r.Group("/api/v1")
	if cfg.JWTSecret != "" {
		mutating.Use(middleware.Auth(jwtsvc.New(cfg.JWTSecret)))
	}
	bookingHandler.RegisterRoutes(public, mutating)
	paymentHandler.RegisterRoutes(mutating)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
