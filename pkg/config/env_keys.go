package config

// EnvPrefix is the envconfig prefix shared by every configuration struct.
const EnvPrefix = "TIFFAH"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "TIFFAH_APP_ENV"
	EnvPort   = "TIFFAH_APP_PORT"

	EnvDBDSN  = "TIFFAH_DB_DSN"
	EnvDBHost = "TIFFAH_DB_HOST"
	EnvDBUser = "TIFFAH_DB_USER"
	EnvDBName = "TIFFAH_DB_NAME"

	EnvRedisURL = "TIFFAH_REDIS_URL"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
