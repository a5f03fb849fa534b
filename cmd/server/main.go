package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/campuseats/campuseats/internal/config"
	"github.com/campuseats/campuseats/internal/database"
	"github.com/campuseats/campuseats/internal/handler"
	"github.com/campuseats/campuseats/internal/logx"
	"github.com/campuseats/campuseats/internal/queue"
	"github.com/campuseats/campuseats/internal/repository"
	"github.com/campuseats/campuseats/internal/router"
	"github.com/campuseats/campuseats/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logx.New(logx.Config{
		Service: "campuseats-api",
		Level:   "info",
		Format:  "json",
	})

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and OTP login disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	colleges := repository.NewCollegeRepo(db)
	canteens := repository.NewCanteenRepo(db)
	menu := repository.NewMenuRepo(db)
	orders := repository.NewOrderRepo(db)
	otps := repository.NewOTPRepo(rdb, cfg.OTPTTL)

	pub := service.NewPublisher(cfg.AMQPURL, cfg.EventExchange, logger)
	defer pub.Close()

	authH := handler.NewAuthHandler(cfg, logger, users, tokens, otps, canteens)
	onboardingH := handler.NewOnboardingHandler(db, logger, users, colleges, canteens)
	directoryH := handler.NewDirectoryHandler(colleges, canteens, menu)
	orderH := handler.NewOrderHandler(logger, orders, menu, canteens, pub)
	ownerH := handler.NewOwnerHandler(logger, canteens, menu, pub)
	adminH := handler.NewAdminHandler(logger, users)

	// Mirror every published event into logs/orders.log.
	go queue.StartAuditConsumer(cfg.AMQPURL, cfg.EventExchange, logger)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, config.LoadRateLimitConfig(), rdb, cfg.JWTSecret)
	router.RegisterPublic(e, directoryH)
	router.RegisterPayments(e, orderH)
	router.RegisterOnboarding(e, onboardingH, cfg.JWTSecret)
	router.RegisterStudent(e, orderH, cfg.JWTSecret)
	router.RegisterOwner(e, ownerH, orderH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
