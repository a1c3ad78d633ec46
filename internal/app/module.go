// Package app assembles the server from its components with fx.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sparked/docs"
	"sparked/internal/auth"
	"sparked/internal/cache"
	"sparked/internal/config"
	"sparked/internal/db"
	"sparked/internal/handler"
	"sparked/internal/logger"
	"sparked/internal/mail"
	"sparked/internal/migration"
	"sparked/internal/repository"
	"sparked/internal/router"
	"sparked/internal/service"
	"sparked/internal/session"
	"sparked/internal/turnstile"
	"sparked/internal/view"
)

// Module combines all application modules
func Module() fx.Option {
	return fx.Options(
		// Configuration and logging
		fx.Provide(config.Load, newLogger),

		// Storage
		fx.Provide(newDatabase, newSessionStore, newSessionManager, repository.NewUserRepository),

		// Collaborators
		fx.Provide(newTokenCodec, newPasswordHasher, newVerifier, mail.NewSender, newDispatcher),

		// Services
		fx.Provide(service.NewValidator, newVerificationService, service.NewAuthService, service.NewUserService),

		// HTTP
		fx.Provide(
			handler.NewPageHandler,
			handler.NewRegistrationHandler,
			handler.NewAuthHandler,
			handler.NewUserHandler,
			newEcho,
		),

		fx.Invoke(registerHooks),
	)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Server.Env)
}

func newDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	gormDB, err := db.Open(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Database.Migrate {
		migrator, err := migration.NewMigrator(cfg.Database.Driver, sqlDB)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := migrator.Up(ctx); err != nil {
			return nil, err
		}
		version, _ := migrator.Version(ctx)
		log.Info("database migrated", zap.Int64("version", version))
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing database connections")
			return sqlDB.Close()
		},
	})
	return gormDB, nil
}

func newSessionStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (session.Store, error) {
	if !cfg.Redis.Enabled {
		log.Warn("redis disabled, sessions are kept in memory")
		return session.NewMemoryStore(), nil
	}

	client := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log.Named("redis"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return session.NewRedisStore(client), nil
}

func newSessionManager(store session.Store, cfg *config.Config, log *zap.Logger) *session.Manager {
	return session.NewManager(store, cfg.Auth.SessionCookie, cfg.Redis.SessionTTL, cfg.Server.SecureCookie, log.Named("session"))
}

func newTokenCodec(cfg *config.Config) auth.TokenCodec {
	return auth.NewTokenCodec(cfg.Auth.SecretKey)
}

func newPasswordHasher(cfg *config.Config) auth.PasswordHasher {
	return auth.NewBcryptHasher(cfg.Auth.BcryptCost)
}

func newVerifier(cfg *config.Config, log *zap.Logger) turnstile.Verifier {
	return turnstile.NewClient(cfg.Turnstile.SecretKey, cfg.Turnstile.Endpoint, cfg.Turnstile.Timeout, log.Named("turnstile"))
}

type dispatcherResult struct {
	fx.Out

	Queue      *mail.QueueDispatcher
	Dispatcher mail.Dispatcher
}

func newDispatcher(sender mail.Sender, cfg *config.Config, log *zap.Logger) dispatcherResult {
	d := mail.NewQueueDispatcher(sender, cfg.Mail.Workers, cfg.Mail.Queue, cfg.Mail.Timeout, log.Named("mail"))
	return dispatcherResult{Queue: d, Dispatcher: d}
}

type verificationParams struct {
	fx.In

	Repo       repository.UserRepository
	Codec      auth.TokenCodec
	Hasher     auth.PasswordHasher
	Verifier   turnstile.Verifier
	Dispatcher mail.Dispatcher
	Validate   *validator.Validate
	Config     *config.Config
	Logger     *zap.Logger
}

func newVerificationService(p verificationParams) service.VerificationService {
	return service.NewVerificationService(
		p.Repo, p.Codec, p.Hasher, p.Verifier, p.Dispatcher, p.Validate,
		service.VerificationOptions{BaseURL: p.Config.BaseURL(), MaxAge: p.Config.Auth.TokenMaxAge},
		p.Logger,
	)
}

type echoParams struct {
	fx.In

	Config       *config.Config
	Logger       *zap.Logger
	Sessions     *session.Manager
	Page         *handler.PageHandler
	Registration *handler.RegistrationHandler
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
}

func newEcho(p echoParams) (*echo.Echo, error) {
	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = p.Config.IsDevelopment()
	e.Renderer = renderer

	if p.Config.Server.SwaggerHost != "" {
		docs.SwaggerInfo.Host = p.Config.Server.SwaggerHost
	}

	router.Register(e, p.Config, p.Sessions, router.Handlers{
		Page:         p.Page,
		Registration: p.Registration,
		Auth:         p.Auth,
		User:         p.User,
	}, p.Logger)
	return e, nil
}

func registerHooks(
	lifecycle fx.Lifecycle,
	e *echo.Echo,
	dispatcher *mail.QueueDispatcher,
	cfg *config.Config,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			dispatcher.Start()
			addr := ":" + cfg.Server.Port
			go func() {
				log.Info("starting http server",
					zap.String("address", addr),
					zap.String("env", cfg.Server.Env),
					zap.String("base_url", cfg.BaseURL()),
				)
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			if err := e.Shutdown(ctx); err != nil {
				log.Warn("server shutdown", zap.Error(err))
			}
			if err := dispatcher.Stop(ctx); err != nil {
				log.Warn("mail queue not drained", zap.Error(err))
			}
			_ = log.Sync()
			return nil
		},
	})
}
