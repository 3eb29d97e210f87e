package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for fields without tags.
const EnvPrefix = "PLOTVISTA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "PLOTVISTA_APP_ENV"
	EnvPort     = "PLOTVISTA_APP_PORT"
	EnvDBDSN    = "PLOTVISTA_DB_DSN"
	EnvDBHost   = "PLOTVISTA_DB_HOST"
	EnvDBUser   = "PLOTVISTA_DB_USER"
	EnvDBName   = "PLOTVISTA_DB_NAME"
	EnvRedisURL = "PLOTVISTA_REDIS_URL"

	EnvIdentityWebhookSecret = "PLOTVISTA_IDENTITY_WEBHOOK_SECRET"
	EnvVisitQRTTL            = "PLOTVISTA_VISIT_QR_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
