package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/logging"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/notifier"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/router"
	"github.com/iliyamo/hotel-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Env)

	mailCfg, err := config.LoadMailConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid mail config")
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, log)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.WithError(err).Fatal("ensure schema")
		}
		log.Info("schema ensured")
	}

	rdb := config.NewRedisClient(log) // nil when redis is down; cache and rate limit pass through
	roomCache := middleware.NewRoomCache(config.LoadCacheConfig(), rdb, log)

	bookings := service.NewBookingService(
		repository.NewStore(db),
		service.NewQueueNotifier(cfg.RabbitURL, log),
		log,
	)
	bookings.UseRoomCache(roomCache)

	bookingHandler := handler.NewBookingHandler(bookings, log)
	authHandler := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log)
	cardHandler := handler.NewCreditCardHandler(repository.NewCreditCardRepo(db), log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log))
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log).Middleware()

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authHandler, cardHandler, cfg.JWTSecret, limit)
	router.RegisterPublic(e, handler.NewRoomHandler(bookings, log), roomCache, limit)
	router.RegisterBookings(e, bookingHandler, cfg.JWTSecret, limit)
	router.RegisterAdmin(e, handler.NewAdminBookingHandler(bookingHandler), cfg.JWTSecret, limit)

	if cfg.ConsumerOn && mailCfg.Enabled {
		consumer := queue.NewConsumer(cfg.RabbitURL, notifier.NewMailer(mailCfg, log), log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("booking consumer stopped")
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		log.WithField("env", cfg.Env).Infof("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("server stopped")
}
