package main

import (
	"context"
	"errors"
	"fmt"
	"go-ws-relay/internal/auth"
	"go-ws-relay/internal/cache"
	"go-ws-relay/internal/config"
	"go-ws-relay/internal/data"
	"go-ws-relay/internal/logger"
	"go-ws-relay/internal/relay"
	"go-ws-relay/internal/resolver"
	"go-ws-relay/internal/session"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)
	log.Info(fmt.Sprintf("Enabled features: %s", strings.Join(cfg.Features, ", ")))

	// --- Database Initialization and Migration ---
	var db *sqlx.DB
	if cfg.DB.DSN != "" {
		log.Info("Applying database migrations...")
		if err := data.ApplyMigrations(cfg.DB); err != nil {
			log.Fatal(err, "Failed to apply migrations")
		}
		log.Info("Migrations applied successfully.")

		log.Info("Connecting to the database...")
		db, err = data.NewDB(cfg.DB)
		if err != nil {
			log.Fatal(err, "Failed to connect to database")
		}
		defer db.Close()
		log.Info("Database connection successful.")
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// --- Session Store ---
	// An unknown engine or a missing backend stops the process here rather
	// than on the first request.
	sessions, err := session.DefaultRegistry().Open(cfg.Session.Engine, session.Backends{DB: db, Redis: rdb})
	if err != nil {
		log.Fatal(err, fmt.Sprintf("Failed to open session engine %q", cfg.Session.Engine))
	}
	log.Info(fmt.Sprintf("Reading sessions from the %s engine.", cfg.Session.Engine))

	// --- Cache Initialization ---
	var userCache *cache.Cache
	if cfg.Cache.FilePath != "" {
		log.Info("Initializing SQLite cache...")
		userCache, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal(err, "Failed to initialize cache")
		}
		defer userCache.Close()
		log.Info("Cache initialized.")
	}

	// --- Authentication and Authorization Setup ---
	// Collaborators stay nil interfaces when disabled; a typed nil would
	// look configured to the backend.
	log.Info("Initializing authentication and authorization...")
	var (
		users    auth.UserFinder
		roles    auth.RoleSource
		verifier auth.TokenVerifier
		enforcer relay.Enforcer
	)
	if db != nil {
		users = data.NewSQLUserRepository(db)
	}
	if cfg.Casbin.Enabled {
		if cfg.DB.DSN == "" {
			log.Fatal(errors.New("casbin enabled without a database"), "Set WSRELAY_DB_DSN to store policies.")
		}
		e, err := auth.NewEnforcer(cfg.DB.Driver, cfg.DB.DSN, cfg.Casbin.ModelPath)
		if err != nil {
			log.Fatal(err, "Failed to initialize enforcer")
		}
		auth.SeedDefaultPolicies(e, log)
		roles, enforcer = e, e
	}
	if cfg.OIDC.IssuerURL != "" {
		v, err := auth.NewVerifier(context.Background(), &cfg.OIDC)
		if err != nil {
			log.Fatal(err, "Failed to initialize OIDC verifier")
		}
		verifier = v
	}
	backend := auth.NewBackend(users, roles, verifier, userCache, log)

	settings, err := resolver.NewSettings(cfg.Features, cfg.Session.CookieName, sessions, resolver.SessionLookup(backend))
	if err != nil {
		log.Fatal(err, "Invalid resolver settings")
	}
	log.Info("Auth components initialized.")

	// --- Broker ---
	var broker relay.Broker
	switch cfg.Relay.Broker {
	case "redis":
		broker = relay.NewRedisBroker(rdb)
	case "nats":
		nb, err := relay.NewNATSBroker(cfg.NATS, log)
		if err != nil {
			log.Fatal(err, "Failed to connect to NATS")
		}
		broker = nb
	default:
		log.Fatal(fmt.Errorf("unknown broker %q", cfg.Relay.Broker), "Set WSRELAY_RELAY_BROKER to redis or nats.")
	}
	defer broker.Close()

	// --- Router Setup ---
	h := relay.NewHandler(settings, broker, enforcer, cfg.Relay, log)
	router := relay.NewRouter(h)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown.
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
