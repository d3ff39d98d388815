package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hostelhq/hostel-suite/allocation-service/internal/adapters/cache"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/adapters/handler"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/adapters/middleware"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/adapters/repository"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/config"
	"github.com/hostelhq/hostel-suite/allocation-service/internal/core/services"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	log.Println("Connected to Redis successfully")

	allocationRepo := repository.NewSQLAllocationRepository(db)
	roomChangeRepo := repository.NewSQLRoomChangeRepository(db)
	availabilityCache := cache.NewRoomAvailabilityCache(redisClient)

	allocationService := services.NewAllocationService(allocationRepo, availabilityCache)
	roomChangeService := services.NewRoomChangeService(roomChangeRepo, allocationRepo, availabilityCache)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey)

	allocationHandler := handler.NewAllocationHandler(allocationService)
	roomChangeHandler := handler.NewRoomChangeHandler(roomChangeService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	mux := http.NewServeMux()

	// Health endpoints (OpenShift compatible)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)

	mux.Handle("GET /metrics", promhttp.Handler())

	warden := authMiddleware.RequireRole(middleware.RoleWarden)
	gate := authMiddleware.RequireRole(middleware.RoleWarden, middleware.RoleGuard)
	anyone := authMiddleware.RequireRole(middleware.RoleWarden, middleware.RoleGuard, middleware.RoleStudent)
	students := authMiddleware.RequireRole(middleware.RoleWarden, middleware.RoleStudent)

	route := func(pattern string, mw func(http.Handler) http.Handler, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Metrics(pattern, mw(h)))
	}

	// Allocation endpoints
	route("POST /allocations", warden, allocationHandler.Allocate)
	route("DELETE /allocations/{id}", warden, allocationHandler.Deallocate)
	route("PUT /rooms/{id}/status", warden, allocationHandler.SetRoomStatus)
	route("GET /rooms", gate, allocationHandler.ListRooms)
	route("GET /rooms/{id}/beds", warden, allocationHandler.AvailableBeds)
	route("GET /rooms/{id}/occupants", gate, allocationHandler.RoomOccupants)
	route("GET /students/{id}/allocation", anyone, allocationHandler.StudentAllocation)
	route("GET /students/{id}/allocations", gate, allocationHandler.AllocationHistory)

	// Room change workflow endpoints
	route("POST /room-changes", students, roomChangeHandler.Submit)
	route("GET /room-changes", warden, roomChangeHandler.List)
	route("GET /room-changes/{id}", warden, roomChangeHandler.Get)
	route("POST /room-changes/{id}/approve", warden, roomChangeHandler.Approve)
	route("POST /room-changes/{id}/reject", warden, roomChangeHandler.Reject)

	root := middleware.CORSMiddleware(cfg.AllowedOrigins)(mux)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, root); err != nil {
		log.Fatalf("Could not start server: %s\n", err)
	}
}
