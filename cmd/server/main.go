package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-companion/internal/config"
	"github.com/iliyamo/conference-companion/internal/database"
	"github.com/iliyamo/conference-companion/internal/feed"
	"github.com/iliyamo/conference-companion/internal/handler"
	"github.com/iliyamo/conference-companion/internal/logging"
	"github.com/iliyamo/conference-companion/internal/middleware"
	"github.com/iliyamo/conference-companion/internal/model"
	"github.com/iliyamo/conference-companion/internal/queue"
	"github.com/iliyamo/conference-companion/internal/repository"
	"github.com/iliyamo/conference-companion/internal/router"
	queue_publisher "github.com/iliyamo/conference-companion/internal/service"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		Driver: database.Dialect(cfg.DBDriver),
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Host:   cfg.DBHost,
		Port:   cfg.DBPort,
		Name:   cfg.DBName,
		Path:   cfg.SQLitePath,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := database.CreateSchema(ctx, db, database.Dialect(cfg.DBDriver)); err != nil {
		logging.Fatal().Err(err).Msg("create schema")
	}

	users := repository.NewUserRepo(db)
	if err := ensureAdmin(ctx, users, cfg); err != nil {
		logging.Fatal().Err(err).Msg("bootstrap admin")
	}
	tokens := repository.NewTokenRepo(db)
	if n, err := tokens.PurgeExpired(ctx, time.Now()); err != nil {
		logging.Warn().Err(err).Msg("purge refresh tokens")
	} else if n > 0 {
		logging.Info().Int64("deleted", n).Msg("purged stale refresh tokens")
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	rl := config.LoadRateLimitConfig()

	var publisher feed.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue_publisher.New(cfg.RabbitURL)
		consumer := &queue.SyncConsumer{URL: cfg.RabbitURL, Cache: cache, LogDir: "logs"}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("sync consumer stopped")
			}
		}()
	} else {
		logging.Info().Msg("RABBITMQ_URL not set; sync messages disabled")
	}

	importer := feed.NewImporter(db, publisher)
	fetcher := feed.NewFetcher(feed.FetchConfig{
		Timeout:      cfg.Feed.Timeout,
		MaxBytes:     cfg.Feed.MaxBytes,
		MinRequests:  cfg.Feed.MinRequests,
		FailureRatio: cfg.Feed.FailureRatio,
		OpenTimeout:  cfg.Feed.OpenTimeout,
	}, nil)

	conferences := repository.NewConferenceRepo(db)
	events := repository.NewEventRepo(db)
	catalog := repository.NewCatalogRepo(db)
	venues := repository.NewVenueRepo(db)

	e := echo.New()
	e.HideBanner = true
	router.Use(e)
	router.RegisterRoutes(e, &handler.ReadyHandler{DB: db, Redis: rdb})
	limit := middleware.NewRateLimiter(rl, rdb).Middleware()
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret, limit)
	router.RegisterPublic(e, handler.NewConferenceHandler(conferences, events, catalog, venues, cfg.Map), cache.Middleware(), limit)
	router.RegisterAttendee(e, handler.NewAttendeeHandler(conferences, events), cfg.JWTSecret, limit)
	router.RegisterAdmin(e, handler.NewAdminHandler(conferences, importer, fetcher, cache, cfg.Feed.MaxBytes), cfg.JWTSecret, middleware.NewRateLimiter(rl.Admin(), rdb).Middleware())

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Str("db", cfg.DBDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown")
	}
}

// ensureAdmin creates the configured administrator on first start.  An
// existing account is left untouched.
func ensureAdmin(ctx context.Context, users *repository.UserRepo, cfg config.Config) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}
	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	id, err := users.Create(ctx, email, cfg.AdminPassword, model.RoleAdmin, cfg.BcryptCost)
	if err != nil {
		return err
	}
	logging.Info().Uint64("user_id", id).Str("email", email).Msg("admin account created")
	return nil
}

