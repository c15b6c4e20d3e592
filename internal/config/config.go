package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every runtime knob for the passport service. All values
// come from the environment; Load applies defaults and validates the result.
type Config struct {
	Profile string

	HTTPAddr        string
	ShutdownTimeout time.Duration

	DatabaseURL string
	SQLitePath  string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	JWTIssuer          string
	JWTAudience        string

	BcryptCost    int
	SecureCookies bool

	RedisAddr     string
	LoginCacheTTL time.Duration

	TokenCleanupInterval time.Duration

	EnableOTelHTTP            bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELEnvironment           string
	OTELMetricsExportInterval time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Profile: getEnv("PASSPORT_PROFILE", "dev"),

		HTTPAddr: getEnv("PASSPORT_HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "passport.db"),

		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		JWTIssuer:          getEnv("JWT_ISSUER", "passport"),
		JWTAudience:        getEnv("JWT_AUDIENCE", "passport-clients"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "passport"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", "dev"),
	}

	var err error
	if cfg.ShutdownTimeout, err = getDuration("PASSPORT_SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 90*24*time.Hour); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.LoginCacheTTL, err = getDuration("LOGIN_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.TokenCleanupInterval, err = getDuration("TOKEN_CLEANUP_INTERVAL", time.Hour); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.OTELMetricsExportInterval, err = getDuration("OTEL_METRICS_EXPORT_INTERVAL", 30*time.Second); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.SecureCookies, err = getBool("SECURE_COOKIES", false); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.EnableOTelHTTP, err = getBool("ENABLE_OTEL_HTTP", false); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.OTELMetricsEnabled, err = getBool("OTEL_METRICS_ENABLED", false); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.OTELTracesEnabled, err = getBool("OTEL_TRACES_ENABLED", false); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.OTELLogsEnabled, err = getBool("OTEL_LOGS_ENABLED", false); err != nil {
		return nil, fail(cfg, err)
	}
	if cfg.OTELExporterOTLPInsecure, err = getBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, fail(cfg, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fail(cfg, err)
	}
	recordConfigValidationEvent(context.Background(), cfg.Profile, "success", "none")
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.AccessTokenSecret) == "" {
		return fmt.Errorf("validate config: ACCESS_TOKEN_SECRET is required")
	}
	if strings.TrimSpace(c.RefreshTokenSecret) == "" {
		return fmt.Errorf("validate config: REFRESH_TOKEN_SECRET is required")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("validate config: access and refresh secrets must differ")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("validate config: ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("validate config: REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("validate config: BCRYPT_COST must be between 4 and 31")
	}
	if c.TokenCleanupInterval <= 0 {
		return fmt.Errorf("validate config: TOKEN_CLEANUP_INTERVAL must be positive")
	}
	return nil
}

func fail(cfg *Config, err error) error {
	recordConfigValidationEvent(context.Background(), cfg.Profile, "failure", classifyConfigLoadError(err))
	return err
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
