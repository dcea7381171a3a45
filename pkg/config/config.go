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
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Session   SessionConfig
	Vision    VisionConfig
	Storage   StorageConfig
	GCP       GCPConfig
	GCS       GCSConfig
	S3        S3Config
	Local     LocalStorageConfig
	Media     MediaConfig
	Valuation ValuationConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"ARCHIVE_APP_ENV" required:"true"`
	Port         string   `envconfig:"ARCHIVE_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"ARCHIVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ARCHIVE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ARCHIVE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN         string `envconfig:"ARCHIVE_DB_DSN"`
	Driver      string `envconfig:"ARCHIVE_DB_DRIVER" default:"postgres"`
	AutoMigrate bool   `envconfig:"ARCHIVE_DB_AUTO_MIGRATE" default:"true"`

	LegacyHost     string `envconfig:"ARCHIVE_DB_HOST"`
	LegacyPort     int    `envconfig:"ARCHIVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ARCHIVE_DB_USER"`
	LegacyPassword string `envconfig:"ARCHIVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ARCHIVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ARCHIVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ARCHIVE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"ARCHIVE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ARCHIVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ARCHIVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

// RedisConfig is optional; an empty URL and address selects the in-memory session store.
type RedisConfig struct {
	URL          string        `envconfig:"ARCHIVE_REDIS_URL"`
	Address      string        `envconfig:"ARCHIVE_REDIS_ADDR"`
	Password     string        `envconfig:"ARCHIVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ARCHIVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ARCHIVE_REDIS_POOL_SIZE" default:"5"`
	MinIdleConns int           `envconfig:"ARCHIVE_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"ARCHIVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARCHIVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARCHIVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type SessionConfig struct {
	Secret     string        `envconfig:"ARCHIVE_SESSION_SECRET" required:"true"`
	Issuer     string        `envconfig:"ARCHIVE_SESSION_ISSUER" default:"auction-archive"`
	TTL        time.Duration `envconfig:"ARCHIVE_SESSION_TTL" default:"12h"`
	CookieName string        `envconfig:"ARCHIVE_SESSION_COOKIE" default:"archive_session"`
	// StartRateLimitPerMinute caps session starts per client IP; 0 disables the limit.
	StartRateLimitPerMinute int `envconfig:"ARCHIVE_SESSION_START_RATE_LIMIT_PER_MINUTE" default:"30"`
}

type VisionConfig struct {
	Timeout     time.Duration `envconfig:"ARCHIVE_VISION_TIMEOUT" default:"60s"`
	MaxAttempts int           `envconfig:"ARCHIVE_VISION_MAX_ATTEMPTS" default:"2"`
	Preference  []string      `envconfig:"ARCHIVE_VISION_MODEL_PREFERENCE" default:"flash,pro"`
	BaseURL     string        `envconfig:"ARCHIVE_VISION_BASE_URL"`
	// RateLimitPerMinute caps extractions per session; 0 disables the limit.
	RateLimitPerMinute int `envconfig:"ARCHIVE_VISION_RATE_LIMIT_PER_MINUTE" default:"20"`
}

type StorageConfig struct {
	Driver  string        `envconfig:"ARCHIVE_STORAGE_DRIVER" default:"local"`
	Timeout time.Duration `envconfig:"ARCHIVE_STORAGE_TIMEOUT" default:"30s"`
}

func (s StorageConfig) validate(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverLocal:
		if cfg.Local.Dir == "" {
			return fmt.Errorf("%s is required for the local storage driver", EnvLocalDir)
		}
	case StorageDriverGCS:
		if cfg.GCS.BucketName == "" {
			return fmt.Errorf("%s is required for the gcs storage driver", EnvGCSBucket)
		}
	case StorageDriverS3:
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("%s is required for the s3 storage driver", EnvS3Bucket)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", s.Driver)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ARCHIVE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ARCHIVE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ARCHIVE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"ARCHIVE_GCS_BUCKET_NAME"`
	PublicBase string `envconfig:"ARCHIVE_GCS_PUBLIC_BASE" default:"https://storage.googleapis.com"`
}

// S3Config targets any S3-compatible endpoint (AWS, MinIO, Supabase Storage).
type S3Config struct {
	Endpoint        string `envconfig:"ARCHIVE_S3_ENDPOINT"`
	Region          string `envconfig:"ARCHIVE_S3_REGION" default:"us-east-1"`
	Bucket          string `envconfig:"ARCHIVE_S3_BUCKET"`
	AccessKeyID     string `envconfig:"ARCHIVE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"ARCHIVE_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `envconfig:"ARCHIVE_S3_USE_PATH_STYLE" default:"true"`
	PublicBase      string `envconfig:"ARCHIVE_S3_PUBLIC_BASE"`
}

type LocalStorageConfig struct {
	Dir        string `envconfig:"ARCHIVE_LOCAL_STORAGE_DIR" default:"./data/images"`
	PublicBase string `envconfig:"ARCHIVE_LOCAL_STORAGE_PUBLIC_BASE" default:"/static/images"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"ARCHIVE_MAX_UPLOAD_MB" default:"15"`
}

// MaxUploadBytes returns the per-image upload limit in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 15 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type ValuationConfig struct {
	DefaultCommissionPct string `envconfig:"ARCHIVE_DEFAULT_COMMISSION_PCT" default:"26.6"`
	DefaultAuctionHouse  string `envconfig:"ARCHIVE_DEFAULT_AUCTION_HOUSE" default:"Ansorena"`
}

// CommissionPct parses the configured default commission, falling back to 26.6.
func (v ValuationConfig) CommissionPct() decimal.Decimal {
	pct, err := decimal.NewFromString(strings.TrimSpace(v.DefaultCommissionPct))
	if err != nil || pct.IsNegative() {
		return decimal.RequireFromString(DefaultCommissionPct)
	}
	return pct
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:archive.db?_foreign_keys=on"
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
