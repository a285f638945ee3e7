package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coretrack/warranty-api/internal/secrets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Backend driver names. The driver is fixed for the process lifetime;
// switching backends means restarting the process.
const (
	DriverPostgres     = "postgres"
	DriverLinkedRecord = "linkedrecord"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Backend     BackendConfig
	Database    DatabaseConfig
	RecordStore RecordStoreConfig
	Legacy      LegacyConfig
	ApiKey      ApiKeyConfig
	Storage     StorageConfig
	Secrets     SecretsConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Jobs        JobsConfig
	CORS        CORSConfig
	Security    SecurityConfig
	RateLimit   RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

// BackendConfig selects the record backend for the whole process
type BackendConfig struct {
	Driver string
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
}

// RecordStoreConfig holds the hosted linked-record store connection
type RecordStoreConfig struct {
	// BaseURL is the REST endpoint root, including the base/workspace path
	BaseURL string
	// Token is the bearer token (from secrets in staging/production)
	Token string
	// TimeoutSeconds bounds each HTTP request
	TimeoutSeconds int
	// CacheTTLSeconds is how long full-collection reads are reused
	CacheTTLSeconds int
}

// LegacyConfig holds the optional read-only MS SQL connection to the
// retired service-desk system, used to seed case code sequences above the
// historical maximum
type LegacyConfig struct {
	Enabled bool
	// URL is host:port/database
	URL             string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	QueryTimeout    int
}

type ApiKeyConfig struct {
	SecretName string
	Value      string
}

type StorageConfig struct {
	Mode             string
	LocalBasePath    string
	ConnectionString string
	Container        string
	MaxUploadSizeMB  int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment",
	// "vault", or "auto" (environment in development, vault otherwise)
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// JobsConfig holds the background job schedules
type JobsConfig struct {
	// CoverageSyncEnabled turns the nightly denormalized-coverage repair on
	CoverageSyncEnabled bool
	// CoverageSyncSchedule is a cron expression
	CoverageSyncSchedule string
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	XSSProtection         string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	BurstSize         int
	WhitelistIPs      []string
	WhitelistPaths    []string
}

// ConnectionString builds the PostgreSQL connection string
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

// TimeoutDuration returns the per-request timeout as duration
func (r *RecordStoreConfig) TimeoutDuration() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// CacheTTLDuration returns the collection cache TTL as duration
func (r *RecordStoreConfig) CacheTTLDuration() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (l *LegacyConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(l.ConnMaxLifetime) * time.Second
}

// QueryTimeoutDuration returns the default query timeout as duration
func (l *LegacyConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(l.QueryTimeout) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// Load loads configuration from file and environment variables without
// resolving vault secrets. Use LoadWithSecrets for full resolution.
func Load() (*Config, error) {
	// .env is optional
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

	switch cfg.Backend.Driver {
	case DriverPostgres, DriverLinkedRecord:
	default:
		return nil, fmt.Errorf("unknown backend driver: %q", cfg.Backend.Driver)
	}

	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("ADMIN_API_KEY")
	}
	if cfg.RecordStore.Token == "" {
		cfg.RecordStore.Token = v.GetString("RECORDSTORE_TOKEN")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if v.GetBool("LEGACY_ENABLED") {
		cfg.Legacy.Enabled = true
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the
// configured source. Vault is used when USE_AZURE_KEY_VAULT=true and the
// environment is staging or production; legacy-system credentials come
// from the vault whenever the legacy connection is enabled and a vault is
// configured, since they are never read from environment variables.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if cfg.Legacy.Enabled && cfg.Secrets.KeyVaultName != "" {
		if err := loadLegacySecrets(ctx, cfg, logger); err != nil {
			// The legacy connection is optional; start without it
			logger.Warn("failed to load legacy system secrets from key vault",
				zap.Error(err),
				zap.String("environment", cfg.App.Environment))
		}
	}

	if !useKeyVault {
		logger.Info("key vault not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment))
		return cfg, nil
	}
	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production",
			zap.String("environment", cfg.App.Environment))
		return cfg, nil
	}
	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("loading secrets from key vault",
		zap.String("environment", cfg.App.Environment),
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName))

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

	if host, err := provider.GetSecretOrEnv(ctx, "POSTGRES-MAIN-HOST", "DATABASE_HOST"); err == nil && host != "" {
		cfg.Database.Host = host
	}
	if defaultDB := os.Getenv("DEFAULT_DATABASE"); defaultDB != "" {
		cfg.Database.Name = defaultDB
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

	if token, err := provider.GetSecretOrEnv(ctx, "recordstore-token", "RECORDSTORE_TOKEN"); err == nil && token != "" {
		cfg.RecordStore.Token = token
	}
	if apiKey, err := provider.GetSecretOrEnv(ctx, "admin-api-key", "ADMIN_API_KEY"); err == nil && apiKey != "" {
		cfg.ApiKey.Value = apiKey
	}
	if connStr, err := provider.GetSecretOrEnv(ctx, "storage-connection-string", "STORAGE_CONNECTIONSTRING"); err == nil && connStr != "" {
		cfg.Storage.ConnectionString = connStr
	}

	logger.Info("secrets loaded from vault")
	return cfg, nil
}

func loadLegacySecrets(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client for legacy system: %w", err)
	}

	url, err := provider.GetSecret(ctx, "LEGACY-URL")
	if err != nil {
		return fmt.Errorf("failed to get LEGACY-URL from key vault: %w", err)
	}
	cfg.Legacy.URL = url

	user, err := provider.GetSecret(ctx, "LEGACY-USERNAME")
	if err != nil {
		return fmt.Errorf("failed to get LEGACY-USERNAME from key vault: %w", err)
	}
	cfg.Legacy.User = user

	password, err := provider.GetSecret(ctx, "LEGACY-PASSWORD")
	if err != nil {
		return fmt.Errorf("failed to get LEGACY-PASSWORD from key vault: %w", err)
	}
	cfg.Legacy.Password = password

	logger.Info("legacy system credentials loaded from key vault")
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "CoreTrack Warranty API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("backend.driver", DriverPostgres)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "warranty")
	v.SetDefault("database.user", "warranty_user")
	v.SetDefault("database.password", "warranty_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	v.SetDefault("recordStore.timeoutSeconds", 30)
	v.SetDefault("recordStore.cacheTTLSeconds", 60)

	// Legacy MS SQL connection, disabled by default
	v.SetDefault("legacy.enabled", false)
	v.SetDefault("legacy.maxOpenConns", 10)
	v.SetDefault("legacy.maxIdleConns", 2)
	v.SetDefault("legacy.connMaxLifetime", 300)
	v.SetDefault("legacy.queryTimeout", 30)

	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.container", "attachments")
	v.SetDefault("storage.maxUploadSizeMB", 50)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	v.SetDefault("jobs.coverageSyncEnabled", true)
	v.SetDefault("jobs.coverageSyncSchedule", "0 3 * * *")

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.burstSize", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})
}
