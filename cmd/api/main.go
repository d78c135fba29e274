package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/coursecatalog/catalog-api/internal/api"
	"github.com/coursecatalog/catalog-api/internal/api/handler"
	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
	"github.com/coursecatalog/catalog-api/internal/core/service"
	mongodb "github.com/coursecatalog/catalog-api/internal/infrastructure/db/mongo"
	redisdb "github.com/coursecatalog/catalog-api/internal/infrastructure/db/redis"
	"github.com/coursecatalog/catalog-api/internal/infrastructure/queue"
	"github.com/coursecatalog/catalog-api/internal/infrastructure/sheet"
	"github.com/coursecatalog/catalog-api/internal/pkg/config"
	"github.com/coursecatalog/catalog-api/pkg/logger"
)

// @title Course Catalog API
// @version 1.0
// @description Per-user catalog of purchased online courses.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// 1. Load configuration
	envErr := godotenv.Load()
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "catalog-api",
	})
	if envErr != nil {
		log.Debug().Msg("no .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	courses := mongodb.NewCourseRepository(db, cfg.Mongo.Timeout)
	users := mongodb.NewUserRepository(db, cfg.Mongo.Timeout)
	if err := mongodb.EnsureIndexes(ctx, courses, users); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		ReadTimeout: cfg.Redis.ReadTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()

	var tx ports.TxRunner
	if cfg.Courses.WriteMode == config.WriteModeTransactional {
		tx = mongodb.NewTxRunner(client)
	}

	whitelist, err := domain.NewWhitelist(cfg.Courses.UpdatableFields)
	if err != nil {
		log.Fatal().Err(err).Msg("COURSE_UPDATABLE_FIELDS")
	}

	// 3. Services
	courseService := service.NewCourseService(service.CourseServiceDeps{
		Courses:   courses,
		Users:     users,
		Tx:        tx,
		Claims:    redisdb.NewClaimStore(rdb),
		Pool:      queue.NewPool(cfg.Courses.Workers, logger.Component(log, "pool")),
		Whitelist: whitelist,
		ClaimTTL:  cfg.Courses.ClaimTTL,
		Logger:    logger.Component(log, "courses"),
	})
	authService := service.NewAuthService(users, cfg.JWTSecret, cfg.TokenTTL, cfg.AllowAdminSignup)

	go courseService.Reconciler().Run(ctx, cfg.Courses.ReconcileInterval)

	// 4. HTTP server
	e := api.NewRouter(api.RouterDeps{
		Courses:      courseService,
		Auth:         authService,
		Sheets:       sheet.NewReader(cfg.Courses.ImportProvider, cfg.Courses.MaxBatchRows),
		MaxBatchRows: cfg.Courses.MaxBatchRows,
		JWTSecret:    cfg.JWTSecret,
		Checks: []handler.DependencyCheck{
			{Name: "mongodb", Ping: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		Logger: logger.Component(log, "http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("write_mode", cfg.Courses.WriteMode).
			Strs("updatable_fields", whitelist.Names()).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("listen")
			stop()
		}
	}()

	// 5. Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}
	log.Info().Msg("server shut down gracefully")
}
