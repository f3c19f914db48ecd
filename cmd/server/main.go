package main // Entry point package

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/hiromu1018ks/official-car-app/internal/config"
	"github.com/hiromu1018ks/official-car-app/internal/database"
	"github.com/hiromu1018ks/official-car-app/internal/handler"
	"github.com/hiromu1018ks/official-car-app/internal/middleware"
	"github.com/hiromu1018ks/official-car-app/internal/queue"
	"github.com/hiromu1018ks/official-car-app/internal/repository"
	"github.com/hiromu1018ks/official-car-app/internal/router"
)

func main() {
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, config.LoadDBPoolConfig())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	vehicleRepo := repository.NewVehicleRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	drivingLogRepo := repository.NewDrivingLogRepo(db)

	vehicleHandler := handler.NewVehicleHandler(vehicleRepo, drivingLogRepo)
	reservationHandler := handler.NewReservationHandler(vehicleRepo, reservationRepo)
	tripHandler := handler.NewTripHandler(vehicleRepo, drivingLogRepo, reservationRepo)

	e := echo.New()

	// Redis backs both the token-bucket rate limiter and the response cache.
	// When Redis is unreachable the limiter fails open and the cache is
	// simply not installed, so the API keeps serving.
	rdb := config.NewRedisClient()
	var cacheMW echo.MiddlewareFunc
	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	router.RegisterRoutes(e)
	router.RegisterFleet(e, vehicleHandler, reservationHandler, cacheMW)
	router.RegisterReservations(e, reservationHandler, tripHandler, cfg.JWTSecret)

	// Drain booked-reservation events into the audit log in the background.
	go queue.StartBookedConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
