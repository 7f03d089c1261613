package config

// Environment variable names shared between Load and tests.
const (
	EnvAppEnv   = "CARTSIDE_APP_ENV"
	EnvAppPort  = "CARTSIDE_APP_PORT"
	EnvLogLevel = "CARTSIDE_LOG_LEVEL"

	EnvCartQuietPeriod      = "CARTSIDE_CART_QUIET_PERIOD"
	EnvCartAbandonmentAfter = "CARTSIDE_CART_ABANDONMENT_AFTER"

	EnvGatewayMode    = "CARTSIDE_GATEWAY_MODE"
	EnvGatewayBaseURL = "CARTSIDE_GATEWAY_BASE_URL"

	EnvRedisURL  = "CARTSIDE_REDIS_URL"
	EnvRedisAddr = "CARTSIDE_REDIS_ADDR"

	EnvDBDSN = "CARTSIDE_DB_DSN"

	EnvIdentityStatePath = "CARTSIDE_IDENTITY_STATE_PATH"

	EnvJWTSecret = "CARTSIDE_JWT_SECRET"
	EnvJWTIssuer = "CARTSIDE_JWT_ISSUER"
)
