package config

const (
	EnvPrefix = "ARCHIVE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	StorageDriverLocal = "local"
	StorageDriverGCS   = "gcs"
	StorageDriverS3    = "s3"

	DefaultCommissionPct = "26.6"
)

const (
	EnvAppEnv        = "ARCHIVE_APP_ENV"
	EnvPort          = "ARCHIVE_APP_PORT"
	EnvDBDSN         = "ARCHIVE_DB_DSN"
	EnvDBDriver      = "ARCHIVE_DB_DRIVER"
	EnvDBHost        = "ARCHIVE_DB_HOST"
	EnvDBUser        = "ARCHIVE_DB_USER"
	EnvDBName        = "ARCHIVE_DB_NAME"
	EnvRedisURL      = "ARCHIVE_REDIS_URL"
	EnvSessionSecret = "ARCHIVE_SESSION_SECRET"
	EnvSessionTTL    = "ARCHIVE_SESSION_TTL"
	EnvVisionTimeout = "ARCHIVE_VISION_TIMEOUT"
	EnvVisionPref    = "ARCHIVE_VISION_MODEL_PREFERENCE"
	EnvStorageDriver = "ARCHIVE_STORAGE_DRIVER"
	EnvLocalDir      = "ARCHIVE_LOCAL_STORAGE_DIR"
	EnvGCSBucket     = "ARCHIVE_GCS_BUCKET_NAME"
	EnvS3Bucket      = "ARCHIVE_S3_BUCKET"
	EnvCommissionPct = "ARCHIVE_DEFAULT_COMMISSION_PCT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
