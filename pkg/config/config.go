// Package config holds the application configuration, loaded from
// environment variables (optionally via a .env file).
package config

// Default file locations, relative to the working directory.
const (
	// DefaultServiceAccountFile is the Google service account key.
	DefaultServiceAccountFile = "service_account.json"
	// DefaultScheduledFile is the scheduled entries collection.
	DefaultScheduledFile = "programados.json"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// BotToken is the Telegram bot API token.
	// Environment variable: BOT_TOKEN
	BotToken string `koanf:"BOT_TOKEN"`

	// AllowedUserID is the only Telegram user the bot talks to.
	// Environment variable: ALLOWED_USER_ID
	AllowedUserID int64 `koanf:"ALLOWED_USER_ID"`

	// SheetID is the ID of the spreadsheet holding the ledger.
	// Environment variable: SHEET_ID
	SheetID string `koanf:"SHEET_ID"`

	// SheetName is the tab within the spreadsheet. Defaults to the
	// ledger's standard "Transacciones" tab when empty.
	// Environment variable: SHEET_NAME
	SheetName string `koanf:"SHEET_NAME"`

	// ServiceAccountFile is the path to the Google service account key.
	// Environment variable: SERVICE_ACCOUNT_FILE
	ServiceAccountFile string `koanf:"SERVICE_ACCOUNT_FILE"`

	// ScheduledFile is the path to the scheduled entries collection.
	// Environment variable: SCHEDULED_FILE
	ScheduledFile string `koanf:"SCHEDULED_FILE"`

	// LogLevel is the minimum log level (DEBUG, INFO, WARN, ERROR).
	// Environment variable: LOG_LEVEL
	LogLevel string `koanf:"LOG_LEVEL"`
}
