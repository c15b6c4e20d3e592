package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rizus/passport/internal/config"
	"github.com/rizus/passport/internal/domain"
	"github.com/rizus/passport/internal/http/handler"
	"github.com/rizus/passport/internal/http/router"
	"github.com/rizus/passport/internal/observability"
	"github.com/rizus/passport/internal/repository"
	"github.com/rizus/passport/internal/security"
	"github.com/rizus/passport/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *gorm.DB
	Server        *http.Server
	Passport      *service.PassportService
	Tokens        repository.TokenRepository
	Observability *observability.Runtime

	redis *redis.Client
}

// New wires the whole service: storage, codecs, repositories, the passport
// service and the HTTP stack.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	runtime, err := observability.InitRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.PasswordAuth{},
		&domain.AnonymousAuth{},
		&domain.Token{},
		&domain.UserToken{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	codec := security.NewTokenCodec(
		cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	hasher := security.NewPasswordHasher(cfg.BcryptCost)

	var redisClient *redis.Client
	var loginCache service.BusyLoginCacheStore
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		loginCache = service.NewRedisBusyLoginCacheStore(redisClient, "busy_login")
		logger.Info("busy login cache backed by redis", "addr", cfg.RedisAddr)
	} else {
		loginCache = service.NewInMemoryBusyLoginCacheStore()
	}

	passport := service.NewPassportService(db, userRepo, tokenRepo, codec, hasher, loginCache, cfg.LoginCacheTTL)

	mux := router.NewRouter(router.Dependencies{
		PassportHandler: handler.NewPassportHandler(passport, cfg.SecureCookies),
		ReadyCheck: func(r *http.Request) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(r.Context())
		},
		EnableOTelHTTP: cfg.EnableOTelHTTP,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Server:        server,
		Passport:      passport,
		Tokens:        tokenRepo,
		Observability: runtime,
		redis:         redisClient,
	}, nil
}

// Run serves HTTP and the token janitor until the context is canceled, then
// shuts everything down in order.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		a.runTokenJanitor(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("http shutdown failed", "error", err)
		}
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				a.Logger.Error("redis close failed", "error", err)
			}
		}
		if err := a.Observability.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("observability shutdown failed", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// runTokenJanitor periodically drops token rows whose envelopes can no
// longer verify anyway.
func (a *App) runTokenJanitor(ctx context.Context) {
	ticker := time.NewTicker(a.Config.TokenCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			removedAccess, err := a.Tokens.CleanupExpired(domain.TokenKindAccess, now.Add(-a.Config.AccessTokenTTL))
			if err != nil {
				a.Logger.Error("access token cleanup failed", "error", err)
			}
			removedRefresh, err := a.Tokens.CleanupExpired(domain.TokenKindRefresh, now.Add(-a.Config.RefreshTokenTTL))
			if err != nil {
				a.Logger.Error("refresh token cleanup failed", "error", err)
			}
			if removedAccess+removedRefresh > 0 {
				a.Logger.Info("token janitor pass",
					"removed_access", removedAccess,
					"removed_refresh", removedRefresh,
				)
			}
		}
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	}
	return gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
}
