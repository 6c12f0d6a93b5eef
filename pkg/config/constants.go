package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv            = "GIFTCARD_APP_ENV"
	EnvPort              = "GIFTCARD_APP_PORT"
	EnvDBDSN             = "GIFTCARD_DB_DSN"
	EnvDBHost            = "GIFTCARD_DB_HOST"
	EnvDBUser            = "GIFTCARD_DB_USER"
	EnvDBName            = "GIFTCARD_DB_NAME"
	EnvDBPassword        = "GIFTCARD_DB_PASSWORD"
	EnvDBLockTimeout     = "GIFTCARD_DB_LOCK_TIMEOUT"
	EnvRedisURL          = "GIFTCARD_REDIS_URL"
	EnvGCPProjectID      = "GIFTCARD_GCP_PROJECT_ID"
	EnvGCSBucket         = "GIFTCARD_GCS_BUCKET_NAME"
	EnvGCSPublicBaseURL  = "GIFTCARD_GCS_PUBLIC_BASE_URL"
	EnvSettlementTaxRate = "GIFTCARD_SETTLEMENT_TAX_RATE"
	EnvSettlementTimeout = "GIFTCARD_SETTLEMENT_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
