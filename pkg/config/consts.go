package config

// EnvPrefix is passed to envconfig; individual fields carry full names.
const EnvPrefix = "CARESUPPLY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "CARESUPPLY_APP_ENV"
	EnvPort     = "CARESUPPLY_APP_PORT"
	EnvDBDSN    = "CARESUPPLY_DB_DSN"
	EnvDBHost   = "CARESUPPLY_DB_HOST"
	EnvDBUser   = "CARESUPPLY_DB_USER"
	EnvDBName   = "CARESUPPLY_DB_NAME"
	EnvRedisURL = "CARESUPPLY_REDIS_URL"

	EnvJWTSecret  = "CARESUPPLY_JWT_SECRET"
	EnvJWTIssuer  = "CARESUPPLY_JWT_ISSUER"
	EnvJWTExpMins = "CARESUPPLY_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID            = "CARESUPPLY_GCP_PROJECT_ID"
	EnvPubSubNotificationTopic = "CARESUPPLY_PUBSUB_NOTIFICATION_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
