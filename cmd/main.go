package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/elliesbang/class-web-app/config"
	"github.com/elliesbang/class-web-app/db"
	"github.com/elliesbang/class-web-app/internal/auth/domain"
	"github.com/elliesbang/class-web-app/internal/auth/handler"
	pgrepo "github.com/elliesbang/class-web-app/internal/auth/repository/postgres"
	sqliterepo "github.com/elliesbang/class-web-app/internal/auth/repository/sqlite"
	"github.com/elliesbang/class-web-app/internal/auth/service"
	"github.com/elliesbang/class-web-app/internal/jobs"
	"github.com/elliesbang/class-web-app/internal/logger"
	"github.com/elliesbang/class-web-app/internal/mailer"
	"github.com/elliesbang/class-web-app/internal/metrics"
	"github.com/elliesbang/class-web-app/internal/ratelimit"
	"github.com/elliesbang/class-web-app/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// uploadBodySlack leaves room for multipart framing on top of the largest image.
// JSON routes apply the tighter constant.MaxJSONBodyBytes in handler.RegisterRoutes.
const uploadBodySlack = 1 << 20

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	zerolog.DefaultContextLogger = &log

	ctx := context.Background()
	var closers []func()

	repo, closeDB, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	closers = append(closers, closeDB)

	var limiter service.RequestLimiter
	if cfg.RedisURL != "" {
		redisClient, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		closers = append(closers, func() {
			if err := redisClient.Close(); err != nil {
				log.Error().Err(err).Msg("redis close error")
			}
		})
		limiter = ratelimit.New(redisClient, "reset", cfg.ResetRequestLimit, minutes(cfg.ResetRequestWindowMin))
	} else {
		log.Warn().Msg("REDIS_URL not set, reset requests are not rate limited")
	}

	var resetMailer service.ResetMailer
	if cfg.ResendAPIKey != "" {
		resetMailer = mailer.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom, cfg.ResetURLBase)
	}

	var images handler.ImageStore
	if cfg.MinioEndpoint != "" {
		objectStore, err := storage.NewObjectStore(storage.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Msg("ensure bucket failed")
		}
		images = objectStore
	}

	m := metrics.New()
	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.AccessExpiryMin)
	issuer := service.NewTokenIssuer(repo, repo, service.RealClock{}, minutes(cfg.ResetTokenExpiryMin), minutes(cfg.SessionExpiryMin))

	userService := service.NewUserService(repo, repo, tokenService, issuer, cfg)
	resetService := service.NewResetService(repo, repo, repo, issuer, service.PasswordHasher{Cost: cfg.BcryptCost}, limiter, resetMailer)
	sessionService := service.NewSessionService(repo, repo, service.RealClock{})

	authHandler := handler.NewAuthHandler(userService, resetService, sessionService, tokenService, m)
	adminHandler := handler.NewAdminHandler(userService, images, cfg.MaxUploadBytes, m)

	janitor := jobs.NewJanitor(repo, m, log)
	if err := janitor.Start(cfg.JanitorSchedule); err != nil {
		log.Error().Err(err).Str("schedule", cfg.JanitorSchedule).Msg("janitor start failed")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handler.ErrorHandler,
		BodyLimit:             int(cfg.MaxUploadBytes) + uploadBodySlack,
		DisableStartupMessage: true,
	})
	app.Use(handler.RequestID(), handler.RequestLogger(log), recover.New())
	handler.RegisterOpsRoutes(app, m)
	handler.RegisterRoutes(app, authHandler, adminHandler)

	go func() {
		log.Info().Str("port", cfg.Port).Str("driver", cfg.DBDriver).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(log, app, janitor, closers)
}

// openRepository connects the configured backend and applies migrations when asked to.
func openRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.Repository, func(), error) {
	switch cfg.DBDriver {
	case "postgres":
		pool, err := db.NewPostgresPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.RunMigrations {
			if err := db.MigratePostgres(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			log.Info().Msg("postgres migrations applied")
		}
		return pgrepo.NewPostgresRepository(pool), pool.Close, nil

	case "sqlite":
		sqlDB, err := db.OpenSQLite(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.RunMigrations {
			if err := db.MigrateSQLite(ctx, sqlDB); err != nil {
				sqlDB.Close()
				return nil, nil, err
			}
			log.Info().Msg("sqlite migrations applied")
		}
		closeFn := func() {
			if err := sqlDB.Close(); err != nil {
				log.Error().Err(err).Msg("sqlite close error")
			}
		}
		return sqliterepo.NewSQLiteRepository(sqlDB), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

func waitForShutdown(log zerolog.Logger, app *fiber.App, janitor *jobs.Janitor, closers []func()) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-janitor.Stop().Done():
	case <-time.After(5 * time.Second):
		log.Warn().Msg("janitor did not stop in time")
	}

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	log.Info().Msg("server exited cleanly")
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
