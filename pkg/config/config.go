package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Sendgrid     SendgridConfig
	Settlement   SettlementConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIFTCARD_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTCARD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIFTCARD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIFTCARD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type HTTPConfig struct {
	CORSAllowedOrigins []string      `envconfig:"GIFTCARD_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	WriteRateLimit     int           `envconfig:"GIFTCARD_WRITE_RATE_LIMIT" default:"60"`
	RateLimitWindow    time.Duration `envconfig:"GIFTCARD_RATE_LIMIT_WINDOW" default:"1m"`
	ReadHeaderTimeout  time.Duration `envconfig:"GIFTCARD_HTTP_READ_HEADER_TIMEOUT" default:"10s"`
	ShutdownTimeout    time.Duration `envconfig:"GIFTCARD_HTTP_SHUTDOWN_TIMEOUT" default:"20s"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIFTCARD_DB_DSN"`
	Driver string `envconfig:"GIFTCARD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIFTCARD_DB_HOST"`
	LegacyPort     int    `envconfig:"GIFTCARD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIFTCARD_DB_USER"`
	LegacyPassword string `envconfig:"GIFTCARD_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIFTCARD_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIFTCARD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTCARD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTCARD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTCARD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTCARD_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a transaction waits for a row lock, such as the
	// platform shop lock taken by invoice creation. Postgres only.
	LockTimeout   time.Duration `envconfig:"GIFTCARD_DB_LOCK_TIMEOUT" default:"10s"`
	SlowQueryTime time.Duration `envconfig:"GIFTCARD_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTCARD_REDIS_URL"`
	Address      string        `envconfig:"GIFTCARD_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTCARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTCARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTCARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTCARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTCARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTCARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTCARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GIFTCARD_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GIFTCARD_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"GIFTCARD_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GIFTCARD_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"GIFTCARD_GCS_BUCKET_NAME" required:"true"`
	// PublicBaseURL replaces the storage host in URLs handed to shops, e.g. a CDN domain.
	PublicBaseURL string        `envconfig:"GIFTCARD_GCS_PUBLIC_BASE_URL"`
	UploadTimeout time.Duration `envconfig:"GIFTCARD_GCS_UPLOAD_TIMEOUT" default:"30s"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"GIFTCARD_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"GIFTCARD_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"GIFTCARD_SENDGRID_FROM_NAME" default:"Gift Card Platform"`
}

// Enabled reports whether outbound mail is configured.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.DefaultFrom) != ""
}

type SettlementConfig struct {
	TaxRatePercent string        `envconfig:"GIFTCARD_SETTLEMENT_TAX_RATE" default:"19"`
	Timeout        time.Duration `envconfig:"GIFTCARD_SETTLEMENT_TIMEOUT" default:"30s"`
}

// TaxRate returns the VAT rate applied to platform fees.
func (s SettlementConfig) TaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(s.TaxRatePercent))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (s SettlementConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(s.TaxRatePercent))
	if err != nil {
		return fmt.Errorf("%s must be numeric: %w", EnvSettlementTaxRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvSettlementTaxRate)
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
