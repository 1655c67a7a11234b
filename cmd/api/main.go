// Package main is the entry point for the Trek Booking API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pkordes/trek-booking/internal/auth"
	"github.com/pkordes/trek-booking/internal/cache"
	"github.com/pkordes/trek-booking/internal/config"
	"github.com/pkordes/trek-booking/internal/events"
	"github.com/pkordes/trek-booking/internal/handler"
	"github.com/pkordes/trek-booking/internal/middleware"
	"github.com/pkordes/trek-booking/internal/repo"
	"github.com/pkordes/trek-booking/internal/service"
	"github.com/pkordes/trek-booking/internal/storage"
	"github.com/pkordes/trek-booking/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A missing .env is normal in containers; real env vars always win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("env", cfg.Env)
	slog.SetDefault(logger)

	// Cancelled on SIGINT/SIGTERM; background consumers stop with it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.AutoMigrate {
		if err := migrate(ctx, pool); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	repos := repo.NewRepos(pool)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := bootstrapAdmin(ctx, repos.Accounts, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("admin bootstrap failed", "error", err)
			os.Exit(1)
		}
	}

	// --- Object storage ---------------------------------------------------
	store, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		slog.Error("failed to create storage client", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		slog.Error("failed to prepare bucket", "bucket", cfg.Storage.Bucket, "error", err)
		os.Exit(1)
	}

	// --- Cache and events -------------------------------------------------
	// Without a broker the local cache is the only invalidation target and
	// booking events are dropped.
	readCache := cache.New(cfg.CacheTTL)
	var (
		invalidator service.Invalidator    = readCache
		publisher   service.EventPublisher = events.NopPublisher{}
	)
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			slog.Error("failed to connect to broker", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn)
		if err != nil {
			slog.Error("failed to open publisher", "error", err)
			os.Exit(1)
		}
		defer pub.Close()

		broadcaster, err := listenForInvalidations(ctx, conn, readCache, pub)
		if err != nil {
			slog.Error("failed to start invalidation consumer", "error", err)
			os.Exit(1)
		}
		invalidator, publisher = broadcaster, pub
		slog.Info("broker connected, cache invalidation is shared")
	}

	// --- Services ---------------------------------------------------------
	provider := auth.NewProvider(repos.Accounts, auth.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.SessionTTL,
	}, nil)
	sessions := service.NewSessionVerifier(provider)

	catalogSvc := service.NewCatalogService(repos, readCache)
	tripSvc := service.NewTripService(repos, repo.NewTransactor(pool), store, sessions, invalidator,
		service.TripOptions{UploadConcurrency: cfg.UploadConcurrency})
	bookingSvc := service.NewBookingService(repos.Bookings, repos.Trips, readCache, invalidator, publisher)

	srv := handler.NewServer(catalogSvc, tripSvc, bookingSvc, provider, handler.Options{
		Cookies: auth.CookieConfig{Secure: cfg.Auth.CookieSecure, MaxAge: cfg.Auth.SessionTTL},
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit → session carrier.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxUploadBytes))
	r.Use(middleware.SessionCarrier)

	r.Mount("/", srv.Routes(middleware.RequireSession(sessions)))

	// --- HTTP Server ------------------------------------------------------
	// Writes get longer than reads because trip uploads stream to storage
	// before the response is sent.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies every pending embedded migration.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// Not closed: the connections belong to pool.
	db := stdlib.OpenDBFromPool(pool)

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "count", len(results))
	return nil
}

// bootstrapAdmin makes sure the configured admin can sign in with the
// configured password.
func bootstrapAdmin(ctx context.Context, accounts repo.AccountRepo, email, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	acc, err := accounts.Upsert(ctx, email, hash)
	if err != nil {
		return err
	}
	slog.Info("admin account ready", "account_id", acc.ID)
	return nil
}

// listenForInvalidations subscribes this instance to cache invalidations from
// its peers and returns the broadcaster local writes should go through.
func listenForInvalidations(ctx context.Context, conn *amqp.Connection, local *cache.Cache, pub events.Publisher) (*events.Broadcaster, error) {
	consumer, err := events.NewConsumer(conn, events.KeyCacheInvalidate)
	if err != nil {
		return nil, err
	}
	msgs, err := consumer.Consume()
	if err != nil {
		_ = consumer.Close()
		return nil, err
	}

	b := events.NewBroadcaster(local, pub, uuid.NewString())
	go func() {
		defer consumer.Close()
		b.Listen(ctx, msgs)
	}()
	return b, nil
}
