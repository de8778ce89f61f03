// Package config provides centralized configuration management for the bot.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database
)

// Store backends.
const (
	BackendSheets   = "sheets"
	BackendXLSX     = "xlsx"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Telegram transport modes.
const (
	TelegramPolling = "polling"
	TelegramWebhook = "webhook"
	TelegramOff     = "off"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Sheets   SheetsConfig
	Columns  ColumnsConfig
	Options  OptionsConfig
	Telegram TelegramConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Enabled starts the HTTP API alongside the bot (default: true)
	Enabled bool `env:"SERVER_ENABLED" default:"true"`

	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// StoreConfig selects and configures the sheet store.
type StoreConfig struct {
	// Backend is one of sheets, xlsx, postgres, memory (default: sheets)
	Backend string `env:"STORE_BACKEND" default:"sheets"`

	// SpreadsheetID identifies the Google spreadsheet (sheets backend)
	SpreadsheetID string `env:"SPREADSHEET_ID"`

	// CredentialsJSON is an inline service account key; CredentialsFile a path to one.
	CredentialsJSON string `env:"GCP_SERVICE_ACCOUNT_JSON"`
	CredentialsFile string `env:"GCP_SERVICE_ACCOUNT_FILE" envAlt:"GOOGLE_APPLICATION_CREDENTIALS"`

	// XLSXPath is the workbook path (xlsx backend)
	XLSXPath string `env:"XLSX_PATH"`

	// DatabaseURL is the PostgreSQL connection string (postgres backend)
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns    int    `env:"DB_MAX_CONNS" default:"4"`

	// MaxConcurrent caps simultaneous store calls (default: 4)
	MaxConcurrent int `env:"STORE_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long a call waits for a free slot (default: 10s)
	MaxWait time.Duration `env:"STORE_MAX_WAIT" default:"10s"`

	// CallTimeout bounds a single read or append (default: 20s)
	CallTimeout time.Duration `env:"STORE_CALL_TIMEOUT" default:"20s"`
}

// SheetsConfig names the sheets and how timestamps are written.
type SheetsConfig struct {
	Ledger          string `env:"SHEET_NAME" default:"TransaksiGudang"`
	Master          string `env:"SPAREPART_SHEET" default:"Sparepart"`
	Timezone        string `env:"TIMEZONE" default:"Asia/Jakarta"`
	TimestampLayout string `env:"TIMESTAMP_LAYOUT" default:"01/02/06 15:04:05"`
}

// ColumnsConfig overrides header synonyms. Empty lists keep the defaults.
type ColumnsConfig struct {
	// SynonymsFile is an optional YAML file with master and ledger tables.
	// Lists set through the environment win over the file.
	SynonymsFile string `env:"SYNONYMS_FILE"`

	PartID          []string `env:"SPARE_COL_PARTID"`
	Name            []string `env:"SPARE_COL_NAME" envAlt:"SPAREPART_NAME_HEADERS"`
	Locations       []string `env:"SPARE_COL_LOCATIONS"`
	PrimaryLocation []string `env:"SPARE_COL_PRIMARY_LOCATION" envAlt:"SPAREPART_LOCATION_HEADERS"`
	Bin             []string `env:"SPARE_COL_BIN"`
	Visual          []string `env:"SPARE_COL_VISUAL" envAlt:"SPAREPART_VISUAL_HEADERS"`

	LedgerTimestamp []string `env:"LEDGER_COL_TIMESTAMP"`
	LedgerPartID    []string `env:"LEDGER_COL_PARTID"`
	LedgerMovement  []string `env:"LEDGER_COL_JENIS"`
	LedgerQuantity  []string `env:"LEDGER_COL_JUMLAH"`
	LedgerCondition []string `env:"LEDGER_COL_KONDISI"`
	LedgerUserID    []string `env:"LEDGER_COL_USERID"`
	LedgerPurpose   []string `env:"LEDGER_COL_TUJUAN"`
}

// OptionsConfig holds the closed choice sets offered as buttons.
type OptionsConfig struct {
	Movements  []string `env:"JENIS_OPTIONS" default:"In,Out"`
	Conditions []string `env:"KONDISI_OPTIONS" default:"Baru,Used"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	// Mode is polling, webhook or off (default: polling)
	Mode  string `env:"TELEGRAM_MODE" default:"polling"`
	Token string `env:"TELEGRAM_TOKEN"`

	// WebhookURL is registered with Telegram in webhook mode.
	WebhookURL string `env:"TELEGRAM_WEBHOOK_URL"`

	// WebhookSecret is checked against X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`

	// PollTimeout is the long-poll timeout in seconds (default: 30)
	PollTimeout int `env:"TELEGRAM_POLL_TIMEOUT" default:"30"`

	// MaxPhotoBytes caps downloaded QR photos (default: 10MB)
	MaxPhotoBytes int64 `env:"TELEGRAM_MAX_PHOTO_BYTES" default:"10485760"`

	Debug bool `env:"TELEGRAM_DEBUG" default:"false"`
}

// SessionConfig controls how long idle conversations are kept.
type SessionConfig struct {
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" default:"30m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// RateLimitConfig holds HTTP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey enforces API key auth on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text, json, or auto (text on a terminal, json otherwise)
	Format string `env:"LOG_FORMAT" default:"auto"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Location loads the configured time zone.
func (c *SheetsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Store validation
	switch c.Store.Backend {
	case BackendSheets:
		if c.Store.SpreadsheetID == "" {
			errs = append(errs, "SPREADSHEET_ID is required for the sheets backend")
		}
		if c.Store.CredentialsJSON == "" && c.Store.CredentialsFile == "" {
			errs = append(errs, "set GCP_SERVICE_ACCOUNT_JSON or GCP_SERVICE_ACCOUNT_FILE for the sheets backend")
		}
	case BackendXLSX:
		if c.Store.XLSXPath == "" {
			errs = append(errs, "XLSX_PATH is required for the xlsx backend")
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres backend")
		}
		if c.Store.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND (%q) must be one of: sheets, xlsx, postgres, memory", c.Store.Backend))
	}
	if c.Store.MaxConcurrent <= 0 {
		errs = append(errs, "STORE_MAX_CONCURRENT must be positive")
	}
	if c.Store.MaxWait <= 0 {
		errs = append(errs, "STORE_MAX_WAIT must be positive")
	}
	if c.Store.CallTimeout <= 0 {
		errs = append(errs, "STORE_CALL_TIMEOUT must be positive")
	}

	// Sheet validation
	if strings.TrimSpace(c.Sheets.Ledger) == "" {
		errs = append(errs, "SHEET_NAME must not be empty")
	}
	if strings.TrimSpace(c.Sheets.Master) == "" {
		errs = append(errs, "SPAREPART_SHEET must not be empty")
	}
	if _, err := c.Sheets.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("TIMEZONE (%q) is not a known time zone", c.Sheets.Timezone))
	}

	// Option validation
	if len(c.Options.Movements) == 0 {
		errs = append(errs, "JENIS_OPTIONS must list at least one option")
	}
	if len(c.Options.Conditions) == 0 {
		errs = append(errs, "KONDISI_OPTIONS must list at least one option")
	}

	// Telegram validation
	switch c.Telegram.Mode {
	case TelegramPolling, TelegramWebhook:
		if c.Telegram.Token == "" {
			errs = append(errs, "TELEGRAM_TOKEN is required unless TELEGRAM_MODE=off")
		}
		if c.Telegram.Mode == TelegramWebhook && !c.Server.Enabled {
			errs = append(errs, "TELEGRAM_MODE=webhook requires SERVER_ENABLED=true")
		}
		if c.Telegram.PollTimeout < 0 {
			errs = append(errs, "TELEGRAM_POLL_TIMEOUT must be non-negative")
		}
	case TelegramOff:
	default:
		errs = append(errs, fmt.Sprintf("TELEGRAM_MODE (%q) must be one of: polling, webhook, off", c.Telegram.Mode))
	}

	// Session validation
	if c.Session.IdleTTL <= 0 {
		errs = append(errs, "SESSION_IDLE_TTL must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, "SESSION_SWEEP_INTERVAL must be positive")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true, "auto": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json, auto", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Tokens, credentials and connection strings are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Enabled: %v, Addr: %q}, ", c.Server.Enabled, c.Server.Addr())
	fmt.Fprintf(&b, "Store: {Backend: %q, SpreadsheetID: %q, Credentials: %s, XLSXPath: %q, DatabaseURL: %s}, ",
		c.Store.Backend, c.Store.SpreadsheetID, mask(c.Store.CredentialsJSON+c.Store.CredentialsFile),
		c.Store.XLSXPath, mask(c.Store.DatabaseURL))
	fmt.Fprintf(&b, "Sheets: {Ledger: %q, Master: %q, Timezone: %q}, ",
		c.Sheets.Ledger, c.Sheets.Master, c.Sheets.Timezone)
	fmt.Fprintf(&b, "Telegram: {Mode: %q, Token: %s, WebhookSecret: %s}, ",
		c.Telegram.Mode, mask(c.Telegram.Token), mask(c.Telegram.WebhookSecret))
	fmt.Fprintf(&b, "Security: {APIKeys: %d, RequireAPIKey: %v}, ",
		len(c.Security.APIKeys), c.Security.RequireAPIKey)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
