package config

const (
	EnvPrefix = "KRC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:krc.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv                 = "KRC_APP_ENV"
	EnvPort                   = "KRC_APP_PORT"
	EnvLogLevel               = "KRC_LOG_LEVEL"
	EnvDBDSN                  = "KRC_DB_DSN"
	EnvDBHost                 = "KRC_DB_HOST"
	EnvDBPort                 = "KRC_DB_PORT"
	EnvDBUser                 = "KRC_DB_USER"
	EnvDBPassword             = "KRC_DB_PASSWORD"
	EnvDBName                 = "KRC_DB_NAME"
	EnvUseSQLite              = "KRC_USE_SQLITE"
	EnvRedisURL               = "KRC_REDIS_URL"
	EnvJWTSecret              = "KRC_JWT_SECRET"
	EnvJWTIssuer              = "KRC_JWT_ISSUER"
	EnvJWTExpMins             = "KRC_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "KRC_REFRESH_TOKEN_TTL_MINUTES"
	EnvDefaultCompany         = "KRC_DEFAULT_COMPANY"
	EnvFrontendURL            = "KRC_FRONTEND_URL"
	EnvResetTokenTTL          = "KRC_RESET_TOKEN_TTL"
	EnvResendAPIKey           = "KRC_RESEND_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
