package config

const EnvPrefix = "SHEETSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names, shared with tests and deploy tooling.
const (
	EnvAppEnv        = "SHEETSYNC_APP_ENV"
	EnvPort          = "SHEETSYNC_APP_PORT"
	EnvRedisURL      = "SHEETSYNC_REDIS_URL"
	EnvStripeAPIKey  = "SHEETSYNC_STRIPE_API_KEY"
	EnvStripeSecret  = "SHEETSYNC_STRIPE_SECRET"
	EnvSpreadsheetID = "SHEETSYNC_SHEETS_SPREADSHEET_ID"
)
