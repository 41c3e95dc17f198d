package config

const EnvPrefix = "POSCART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv        = "POSCART_APP_ENV"
	EnvPort          = "POSCART_APP_PORT"
	EnvLogLevel      = "POSCART_LOG_LEVEL"
	EnvLogFormat     = "POSCART_LOG_FORMAT"
	EnvPOSBaseURL    = "POSCART_POS_API_BASE_URL"
	EnvPOSToken      = "POSCART_POS_API_TOKEN"
	EnvPOSBusiness   = "POSCART_POS_API_BUSINESS_ID"
	EnvPOSTimeout    = "POSCART_POS_API_TIMEOUT"
	EnvQuoteDebounce = "POSCART_QUOTE_DEBOUNCE"
	EnvSnapshotDrv   = "POSCART_SNAPSHOT_DRIVER"
	EnvTerminalID    = "POSCART_SNAPSHOT_TERMINAL_ID"
	EnvRedisURL      = "POSCART_REDIS_URL"
	EnvRedisAddr     = "POSCART_REDIS_ADDR"
	EnvDBDSN         = "POSCART_DB_DSN"
	EnvDBDriver      = "POSCART_DB_DRIVER"
)

const (
	SnapshotDriverNone     = "none"
	SnapshotDriverRedis    = "redis"
	SnapshotDriverSQLite   = "sqlite"
	SnapshotDriverPostgres = "postgres"
)
