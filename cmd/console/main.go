// Package main Quantara Console API
//
// @title        Quantara Console API
// @version      1.0
// @description  Marketing site and admin console backed by Supabase.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	_ "github.com/quantara/console/docs"
	"github.com/quantara/console/internal/api"
	"github.com/quantara/console/internal/api/metrics"
	"github.com/quantara/console/internal/core/service"
	"github.com/quantara/console/internal/core/session"
	"github.com/quantara/console/internal/infrastructure/config"
	"github.com/quantara/console/internal/infrastructure/db/mongo"
	"github.com/quantara/console/internal/infrastructure/db/redis"
	"github.com/quantara/console/internal/infrastructure/http"
	"github.com/quantara/console/internal/infrastructure/http/handlers"
	"github.com/quantara/console/internal/infrastructure/queue"
	"github.com/quantara/console/internal/infrastructure/supabase"
	"github.com/quantara/console/pkg/logger"
)

const (
	auditWorkers   = 4
	connectTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{Service: "console"})
		l := logger.Get()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "console",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("console stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("console stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  connectTimeout,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "console",
		Timeout:  connectTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect")
		}
	}()

	// Record store and identity provider
	sb := supabase.NewClient(supabase.Config{
		URL:            cfg.Supabase.URL,
		AnonKey:        cfg.Supabase.AnonKey,
		ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
		Timeout:        cfg.Supabase.Timeout,
	}, log, supabase.WithObserver(metrics.ObserveRemoteCall))
	profiles := supabase.NewProfileRepository(sb)
	admins := supabase.NewPrivilegedProfileRepository(sb)
	applications := supabase.NewApplicationRepository(sb)
	procs := supabase.NewProcedures(sb)

	// Redis-backed state
	sessionStore := redis.NewSessionStore(rdb, cfg.Session.TTL)
	links, err := redis.NewLinkGuard(rdb, []byte(cfg.Session.LinkKey))
	if err != nil {
		return err
	}
	limiter := redis.NewRateLimiter(rdb)

	// Audit log
	auditRepo := mongo.NewAuditRepository(db)
	if err := auditRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	dispatcher := queue.NewDispatcher(auditWorkers, auditRepo, log)
	metrics.RegisterAuditQueue(dispatcher)

	registry, err := session.NewRegistry(cfg.Session.CacheSize, sb, profiles, sessionStore, log)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(dispatcher, cfg.PublicURL, log)
	bootstrapService := service.NewBootstrapService(procs, sessionStore, dispatcher, cfg.BootstrapStrategy, cfg.PublicURL, log)
	confirmationService := service.NewConfirmationService(sb, procs, admins, sessionStore, links, dispatcher, cfg.BootstrapStrategy, log)
	promotionService := service.NewPromotionService(procs, dispatcher, log)
	applicationService := service.NewApplicationService(applications, profiles, dispatcher, log)
	adminService := service.NewAdminService(applications, profiles, auditRepo)

	health := handlers.NewHealthHandler(map[string]handlers.Check{
		"mongodb":  handlers.MongoCheck(db),
		"redis":    handlers.RedisCheck(rdb),
		"supabase": sb.Ping,
	})

	window := cfg.RateLimit.Window
	router := api.NewRouter(api.Deps{
		Log:          log,
		Production:   cfg.IsProduction(),
		SiteName:     "Quantara",
		JWTSecret:    cfg.Supabase.JWTSecret,
		Sessions:     registry,
		CookieSecure: cfg.Session.CookieSecure || cfg.IsProduction(),
		SessionTTL:   cfg.Session.TTL,
		Limiter:      limiter,
		Limits: api.Limits{
			SignUp:  redis.Limit{Requests: int64(cfg.RateLimit.SignUp), Window: window},
			Login:   redis.Limit{Requests: int64(cfg.RateLimit.Login), Window: window},
			Admin:   redis.Limit{Requests: int64(cfg.RateLimit.Admin), Window: window},
			General: redis.Limit{Requests: int64(cfg.RateLimit.General), Window: window},
		},
		Strategy:     cfg.BootstrapStrategy,
		Auth:         authService,
		Bootstrap:    bootstrapService,
		Confirmation: confirmationService,
		Promotion:    promotionService,
		Applications: applicationService,
		Admin:        adminService,
		Health:       health,
	})

	// Audit workers outlive the server so entries recorded by in-flight
	// requests are still written.
	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	dispatcher.Start(auditCtx)
	defer func() {
		stopAudit()
		dispatcher.Wait()
	}()

	server := http.NewServer(":"+cfg.Port, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})

	log.Info().
		Str("env", cfg.Env).
		Str("strategy", cfg.BootstrapStrategy).
		Msg("console started")

	return g.Wait()
}
