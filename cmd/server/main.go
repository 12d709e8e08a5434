package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/tablebook/reservation/internal/booking"
	"github.com/tablebook/reservation/internal/config"
	"github.com/tablebook/reservation/internal/database"
	"github.com/tablebook/reservation/internal/handler"
	"github.com/tablebook/reservation/internal/middleware"
	"github.com/tablebook/reservation/internal/notify"
	"github.com/tablebook/reservation/internal/queue"
	"github.com/tablebook/reservation/internal/repository"
	"github.com/tablebook/reservation/internal/router"
)

func main() {
	// Load .env when present; real deployments set the environment
	// directly and the file is absent.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables rate limiting and the
	// response cache but the API stays up.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	branches := repository.NewBranchRepo(db)
	tables := repository.NewTableRepo(db)
	slots := repository.NewTimeSlotRepo(db)
	reservations := repository.NewReservationRepo(db)

	publisher := notify.NewPublisher(cfg.RabbitURL)
	engine := booking.NewEngine(reservations, tables, slots, publisher,
		booking.NewCancellationPolicy(int64(cfg.LateCancelFeeCents)))

	// Background consumer that turns published events into the
	// notification log.  It reconnects on its own; a dead broker only
	// costs notifications.
	go func() {
		if err := queue.StartNotifyConsumer(); err != nil {
			log.Printf("notify consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	authH := handler.NewAuthHandler(cfg, users, tokens)
	customerH := handler.NewCustomerHandler(engine, branches, reservations)
	merchantResH := handler.NewMerchantReservationHandler(engine, reservations)
	merchantCfgH := handler.NewMerchantConfigHandler(branches, tables, slots)
	publicH := &handler.PublicHandler{Branches: branches, Tables: tables, Slots: slots, Engine: engine}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterCustomer(e, customerH, cfg.JWTSecret)
	router.RegisterMerchant(e, merchantCfgH, cfg.JWTSecret)
	router.RegisterMerchantReservations(e, merchantResH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
