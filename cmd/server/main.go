package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	grpcapi "staybook-backend/internal/api/grpc"
	httpapi "staybook-backend/internal/api/http"
	"staybook-backend/internal/config"
	"staybook-backend/internal/domain"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/repository"
	"staybook-backend/internal/repository/memory"
	"staybook-backend/internal/repository/postgres"
	"staybook-backend/internal/security"
	"staybook-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Staybook Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Policy configuration", "timezone", cfg.Policy.Timezone, "minimum_stay_hours", cfg.Policy.MinimumStayHours, "tax_rate", cfg.Policy.TaxRate)

	// Initialize Store
	var (
		tx     repository.TxManager
		pinger httpapi.Pinger
	)
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		seedRooms(store)
		tx = store
	default:
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
		db, err := postgres.Open(cfg.GetDatabaseConnectionString(), postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute,
		})
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Info("Database connection established")

		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(context.Background(), db); err != nil {
				logger.Error("Failed to migrate database", "error", err)
				log.Fatalf("Failed to migrate database: %v", err)
			}
		}
		tx = postgres.NewStore(db)
		pinger = db
	}

	// Initialize Services
	policy := cfg.BookingPolicy()
	budget := service.TxBudget{LockWait: cfg.LockWait(), Timeout: cfg.TxTimeout()}
	resolver := service.NewAvailabilityResolver(tx, policy, budget)
	audit := service.NewAuditRecorder()
	ids := service.NewIdentifierGenerator(cfg.Policy.ReservationPrefix, cfg.Policy.ReservationDigits, cfg.Policy.ReferenceCodeLength)

	admissionSvc := service.NewAdmissionService(tx, resolver, ids, audit, policy, budget)
	reservationSvc := service.NewReservationService(tx, resolver, audit, policy, budget)
	roomSvc := service.NewRoomService(tx)

	// Initialize Security
	if cfg.JWT.Secret == "" {
		logger.Warn("JWT secret not set; staff endpoints will reject every request")
	}
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Set up HTTP server
	router := mux.NewRouter()
	handler := httpapi.NewHandler(admissionSvc, reservationSvc, resolver, roomSvc, pinger)
	httpapi.RegisterRoutes(router, handler, httpapi.NewAuthMiddleware(tokenManager))

	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Set up gRPC health server
	if addr := cfg.GetGRPCAddress(); addr != "" {
		var grpcPinger grpcapi.Pinger
		if pinger != nil {
			grpcPinger = pinger
		}
		monitor := grpcapi.NewHealthMonitor(grpcPinger)
		grpcServer := grpcapi.NewServer(monitor)

		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		go monitor.Run(ctx, 15*time.Second)
		go func() {
			logger.Info("gRPC health server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		defer grpcServer.GracefulStop()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

// seedRooms gives a fresh in-memory store a few rooms to book against.
func seedRooms(store *memory.Store) {
	now := time.Now()
	for i, price := range []int64{1000, 1000, 1500, 1500, 2500} {
		store.AddRoom(domain.Room{
			ID:        fmt.Sprintf("room-%d", 101+i),
			Label:     fmt.Sprintf("%d", 101+i),
			Type:      domain.RoomTypeRoom,
			Status:    domain.RoomStatusAvailable,
			BasePrice: decimal.NewFromInt(price),
			Capacity:  2,
			CreatedOn: now,
			UpdatedOn: now,
		})
	}
}
