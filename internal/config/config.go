package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/quotation-api/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Artifacts ArtifactsConfig
	Warmup    WarmupConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	// ConnectRetries is the number of connection attempts before giving up (0 = retry forever)
	ConnectRetries int
	// ConnectRetryInterval is the pause between connection attempts (seconds)
	ConnectRetryInterval int
	// AutoMigrate runs gorm auto migration on startup (development only)
	AutoMigrate bool
}

// StorageConfig selects the artifact store backend
type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
}

// RedisConfig configures the optional cross-replica rebuild lease
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	// LeaseTTL is how long a rebuild lease lives without release (seconds)
	LeaseTTL int
	// LeasePollInterval is how often a waiting replica retries the lease (milliseconds)
	LeasePollInterval int
}

// ArtifactsConfig bounds the waits of the regeneration coordinator
type ArtifactsConfig struct {
	// ReadyTimeout is how long a request waits for the database to become available (seconds)
	ReadyTimeout int
	// WaitTimeout is how long a request waits on an in-flight rebuild (seconds)
	WaitTimeout int
	// RebuildTimeout bounds a single rebuild, independent of any requester (seconds)
	RebuildTimeout int
	// CompanyName is printed in the quotation document header
	CompanyName string
	// Currency is printed next to amounts in the quotation document
	Currency string
}

// WarmupConfig configures the job that restores missing artifacts after a storage wipe
type WarmupConfig struct {
	Enabled   bool
	Cron      string
	OnStartup bool
	BatchSize int
	// Timeout bounds a whole warm-up run (seconds)
	Timeout int
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout   int
	WriteTimeout  int
	EnableSwagger bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	WhitelistIPs      []string
	WhitelistPaths    []string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ConnectRetryIntervalDuration returns the pause between connection attempts
func (d *DatabaseConfig) ConnectRetryIntervalDuration() time.Duration {
	return time.Duration(d.ConnectRetryInterval) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// LeaseTTLDuration returns the rebuild lease TTL as duration
func (r *RedisConfig) LeaseTTLDuration() time.Duration {
	return time.Duration(r.LeaseTTL) * time.Second
}

// LeasePollIntervalDuration returns the lease poll interval as duration
func (r *RedisConfig) LeasePollIntervalDuration() time.Duration {
	return time.Duration(r.LeasePollInterval) * time.Millisecond
}

// ReadyTimeoutDuration returns the readiness wait as duration
func (a *ArtifactsConfig) ReadyTimeoutDuration() time.Duration {
	return time.Duration(a.ReadyTimeout) * time.Second
}

// WaitTimeoutDuration returns the rebuild wait as duration
func (a *ArtifactsConfig) WaitTimeoutDuration() time.Duration {
	return time.Duration(a.WaitTimeout) * time.Second
}

// RebuildTimeoutDuration returns the rebuild bound as duration
func (a *ArtifactsConfig) RebuildTimeoutDuration() time.Duration {
	return time.Duration(a.RebuildTimeout) * time.Second
}

// TimeoutDuration returns the warm-up run bound as duration
func (w *WarmupConfig) TimeoutDuration() time.Duration {
	return time.Duration(w.Timeout) * time.Second
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// Key Vault is used when USE_AZURE_KEY_VAULT=true and the environment is staging or production;
// otherwise secrets stay as loaded from the environment.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	logger.Info("Loading secrets from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	if host, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-HOST", "DATABASE_HOST"); err == nil && host != "" {
		cfg.Database.Host = host
	}
	if user, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-USER", "DATABASE_USER"); err == nil && user != "" {
		cfg.Database.User = user
	}
	if password, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD"); err == nil && password != "" {
		cfg.Database.Password = password
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}
	if connStr, err := provider.GetSecretOrEnv(ctx, "storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING"); err == nil && connStr != "" {
		cfg.Storage.CloudConnectionString = connStr
	}
	if cfg.Redis.Enabled {
		if password, err := provider.GetSecretOrEnv(ctx, "redis-password", "REDIS_PASSWORD"); err == nil && password != "" {
			cfg.Redis.Password = password
		}
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Straye Quotation API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "quotation")
	v.SetDefault("database.user", "quotation_user")
	v.SetDefault("database.password", "quotation_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)
	v.SetDefault("database.connectRetries", 0)
	v.SetDefault("database.connectRetryInterval", 3)
	v.SetDefault("database.autoMigrate", false)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage/quotations")
	v.SetDefault("storage.cloudContainer", "quotations")

	// Redis defaults (lease disabled unless several replicas share one store)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.leaseTTL", 120)
	v.SetDefault("redis.leasePollInterval", 250)

	// Artifact defaults
	v.SetDefault("artifacts.readyTimeout", 10)
	v.SetDefault("artifacts.waitTimeout", 30)
	v.SetDefault("artifacts.rebuildTimeout", 60)
	v.SetDefault("artifacts.companyName", "Straye Industri AS")
	v.SetDefault("artifacts.currency", "NOK")

	// Warm-up defaults
	v.SetDefault("warmup.enabled", true)
	v.SetDefault("warmup.cron", "0 */30 * * * *") // every 30 minutes (with seconds field)
	v.SetDefault("warmup.onStartup", true)
	v.SetDefault("warmup.batchSize", 100)
	v.SetDefault("warmup.timeout", 600)

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 90) // must exceed artifacts.waitTimeout
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Content-Disposition", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", false)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "SAMEORIGIN") // inline PDFs are embedded by the web client
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})
}
