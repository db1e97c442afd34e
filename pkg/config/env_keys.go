package config

// EnvPrefix namespaces every environment variable consumed by Load.
const EnvPrefix = "PIXELVAULT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "PIXELVAULT_APP_ENV"
	EnvPort     = "PIXELVAULT_APP_PORT"
	EnvDBDSN    = "PIXELVAULT_DB_DSN"
	EnvDBHost   = "PIXELVAULT_DB_HOST"
	EnvDBUser   = "PIXELVAULT_DB_USER"
	EnvDBName   = "PIXELVAULT_DB_NAME"
	EnvRedisURL = "PIXELVAULT_REDIS_URL"

	EnvJWTSecret              = "PIXELVAULT_JWT_SECRET"
	EnvJWTIssuer              = "PIXELVAULT_JWT_ISSUER"
	EnvJWTExpMins             = "PIXELVAULT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PIXELVAULT_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
