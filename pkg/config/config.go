package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session codec identifiers.
const (
	SessionCodecJWT          = "jwt"
	SessionCodecSecureCookie = "securecookie"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	Session       SessionConfig
	CORS          CORSConfig
	Log           LogConfig
	Backend       BackendConfig
	Dashboard     DashboardConfig
	Audit         AuditConfig
	Exports       ExportsConfig
	PasswordReset PasswordResetConfig
	Menu          MenuConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls the signed session token and the cookie carrying it.
type SessionConfig struct {
	Codec         string
	Secret        string
	EncryptionKey string
	Issuer        string
	CookieName    string
	TTL           time.Duration
	Secure        bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BackendConfig points the pass-through proxy at the upstream API.
type BackendConfig struct {
	BaseURL string
}

// DashboardConfig describes where the dashboard bundle lives and which paths skip the guard.
type DashboardConfig struct {
	Dir         string
	PathPrefix  string
	LoginPath   string
	PublicPaths []string
	AssetPaths  []string
}

// AuditConfig sizes the asynchronous audit writer.
type AuditConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// ExportsConfig controls audit export storage and download links.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupSchedule string
}

// PasswordResetConfig configures the forgot-password flow.
type PasswordResetConfig struct {
	TokenTTL time.Duration
	ResetURL string
}

// MenuConfig tunes the menu cache.
type MenuConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	codec := strings.ToLower(strings.TrimSpace(v.GetString("SESSION_CODEC")))
	if codec != SessionCodecSecureCookie {
		codec = SessionCodecJWT
	}
	cfg.Session = SessionConfig{
		Codec:         codec,
		Secret:        v.GetString("SESSION_SECRET"),
		EncryptionKey: v.GetString("SESSION_ENCRYPTION_KEY"),
		Issuer:        v.GetString("SESSION_ISSUER"),
		CookieName:    v.GetString("SESSION_COOKIE_NAME"),
		TTL:           parseDuration(v.GetString("SESSION_TTL"), 7*24*time.Hour),
		Secure:        cfg.Env == EnvProduction,
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Backend = BackendConfig{BaseURL: v.GetString("BACKEND_BASE_URL")}

	cfg.Dashboard = DashboardConfig{
		Dir:         v.GetString("DASHBOARD_DIR"),
		PathPrefix:  v.GetString("DASHBOARD_PATH_PREFIX"),
		LoginPath:   v.GetString("DASHBOARD_LOGIN_PATH"),
		PublicPaths: splitAndTrim(v.GetString("DASHBOARD_PUBLIC_PATHS")),
		AssetPaths:  splitAndTrim(v.GetString("DASHBOARD_ASSET_PATHS")),
	}

	cfg.Audit = AuditConfig{
		Workers:    v.GetInt("AUDIT_WORKERS"),
		BufferSize: v.GetInt("AUDIT_BUFFER_SIZE"),
		MaxRetries: v.GetInt("AUDIT_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("AUDIT_RETRY_DELAY"), time.Second),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		CleanupSchedule: v.GetString("EXPORTS_CLEANUP_SCHEDULE"),
	}

	cfg.PasswordReset = PasswordResetConfig{
		TokenTTL: parseDuration(v.GetString("PASSWORD_RESET_TTL"), time.Hour),
		ResetURL: v.GetString("PASSWORD_RESET_URL"),
	}

	cfg.Menu = MenuConfig{
		CacheTTL: parseDuration(v.GetString("MENU_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "iqrolife")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_CODEC", SessionCodecJWT)
	v.SetDefault("SESSION_SECRET", "dev_session_secret_change_me_32b!")
	v.SetDefault("SESSION_ENCRYPTION_KEY", "")
	v.SetDefault("SESSION_ISSUER", "iqrolife")
	v.SetDefault("SESSION_COOKIE_NAME", "auth-token")
	v.SetDefault("SESSION_TTL", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:5000")

	v.SetDefault("DASHBOARD_DIR", "./web/dashboard")
	v.SetDefault("DASHBOARD_PATH_PREFIX", "/dashboard")
	v.SetDefault("DASHBOARD_LOGIN_PATH", "/dashboard/login")
	v.SetDefault("DASHBOARD_PUBLIC_PATHS", "/dashboard/login,/dashboard/forgot-password,/dashboard/reset-password")
	v.SetDefault("DASHBOARD_ASSET_PATHS", "/dashboard/assets")

	v.SetDefault("AUDIT_WORKERS", 2)
	v.SetDefault("AUDIT_BUFFER_SIZE", 256)
	v.SetDefault("AUDIT_MAX_RETRIES", 3)
	v.SetDefault("AUDIT_RETRY_DELAY", "1s")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_CLEANUP_SCHEDULE", "@hourly")

	v.SetDefault("PASSWORD_RESET_TTL", "1h")
	v.SetDefault("PASSWORD_RESET_URL", "http://localhost:3000/dashboard/reset-password")

	v.SetDefault("MENU_CACHE_TTL", "10m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
