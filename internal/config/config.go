package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// MinJWTSecretLength is the minimum accepted JWT_SECRET size in bytes.
const MinJWTSecretLength = 32

type Config struct {
	// HTTP Server
	Port           string
	CORSOrigins    []string
	ItemsPerPage   int
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy keys rate limiting on X-Forwarded-For instead of the peer address.
	TrustProxy bool

	// Database
	SQLiteDBPath string

	// Auth
	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	AdminEmail    string
	AdminPassword string

	// Documents
	UploadDir         string
	MaxUploadBytes    int64
	AllowedExtensions []string
	MaxImageDimension int

	// Backups
	BackupDir      string
	BackupInterval time.Duration
	BackupKeep     int

	// Ledger
	ScheduleSumCheck  string
	DashboardCacheTTL time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger mirror
	MirrorBackend            string
	GoogleSpreadsheetID      string
	GoogleLedgerSheet        string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Sync worker
	SyncBatchSize  int
	SyncInterval   time.Duration
	SyncMaxRetries int

	// Notifications
	Notifier         string
	MailgunDomain    string
	MailgunAPIKey    string
	NotifyFrom       string
	NotifyTo         []string
	ReminderInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

var defaultExtensions = []string{"pdf", "doc", "docx", "xls", "xlsx", "txt", "png", "jpg", "jpeg", "gif"}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		ItemsPerPage:   getEnvInt("ITEMS_PER_PAGE", 10),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		TrustProxy:     getEnvBool("TRUST_PROXY", false),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/lawdesk.db"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTAccessTTL:  getEnvDuration("JWT_ACCESS_TTL", time.Hour),
		JWTRefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 720*time.Hour),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@lawdesk.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		UploadDir:         getEnv("UPLOAD_DIR", "./data/uploads"),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 16<<20)),
		AllowedExtensions: normalizeExtensions(getEnvList("ALLOWED_EXTENSIONS", defaultExtensions)),
		MaxImageDimension: getEnvInt("MAX_IMAGE_DIMENSION", 2048),

		BackupDir:      getEnv("BACKUP_DIR", "./data/backups"),
		BackupInterval: getEnvDuration("BACKUP_INTERVAL", 24*time.Hour),
		BackupKeep:     getEnvInt("BACKUP_KEEP", 30),

		ScheduleSumCheck:  getEnv("SCHEDULE_SUM_CHECK", "warn"),
		DashboardCacheTTL: getEnvDuration("DASHBOARD_CACHE_TTL", time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "lawdesk"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_sync"),

		MirrorBackend:            getEnv("MIRROR_BACKEND", "memory"),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheet:        getEnv("GOOGLE_LEDGER_SHEET", "Ledger"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		SyncBatchSize:  getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:   getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		SyncMaxRetries: getEnvInt("SYNC_MAX_RETRIES", 3),

		Notifier:         getEnv("NOTIFIER", "log"),
		MailgunDomain:    getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:    getEnv("MAILGUN_API_KEY", ""),
		NotifyFrom:       getEnv("NOTIFY_FROM", ""),
		NotifyTo:         getEnvList("NOTIFY_TO", nil),
		ReminderInterval: getEnvDuration("REMINDER_INTERVAL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if len(c.JWTSecret) < MinJWTSecretLength {
		errors = append(errors, fmt.Sprintf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		errors = append(errors, "JWT token lifetimes must be positive")
	} else if c.JWTRefreshTTL < c.JWTAccessTTL {
		errors = append(errors, "JWT_REFRESH_TTL must not be shorter than JWT_ACCESS_TTL")
	}

	if c.ItemsPerPage < 1 || c.ItemsPerPage > 100 {
		errors = append(errors, fmt.Sprintf("invalid items per page %d: must be between 1 and 100", c.ItemsPerPage))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errors = append(errors, "rate limit RPS and burst must be positive")
	}

	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d", c.MaxUploadBytes))
	}
	if len(c.AllowedExtensions) == 0 {
		errors = append(errors, "ALLOWED_EXTENSIONS cannot be empty")
	}
	if c.MaxImageDimension < 1 {
		errors = append(errors, fmt.Sprintf("invalid max image dimension %d", c.MaxImageDimension))
	}

	if c.BackupKeep < 1 {
		errors = append(errors, fmt.Sprintf("invalid backup keep %d: must be at least 1", c.BackupKeep))
	}
	if c.BackupInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid backup interval %v: must be at least 1 minute", c.BackupInterval))
	}

	if !slices.Contains([]string{"off", "warn", "reject"}, strings.ToLower(c.ScheduleSumCheck)) {
		errors = append(errors, fmt.Sprintf("invalid schedule sum check '%s': must be off, warn or reject", c.ScheduleSumCheck))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.MirrorBackend {
	case "memory":
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when using the sheets mirror")
		}
		if c.GoogleLedgerSheet == "" {
			errors = append(errors, "GOOGLE_LEDGER_SHEET is required when using the sheets mirror")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the sheets mirror")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of [memory sheets]", c.MirrorBackend))
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if c.SyncMaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync max retries %d: must be at least 1", c.SyncMaxRetries))
	}

	switch c.Notifier {
	case "log":
	case "mailgun":
		if c.MailgunDomain == "" || c.MailgunAPIKey == "" {
			errors = append(errors, "MAILGUN_DOMAIN and MAILGUN_API_KEY are required when NOTIFIER=mailgun")
		}
		if c.NotifyFrom == "" || len(c.NotifyTo) == 0 {
			errors = append(errors, "NOTIFY_FROM and NOTIFY_TO are required when NOTIFIER=mailgun")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid notifier '%s': must be one of [log mailgun]", c.Notifier))
	}
	if c.DashboardCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid dashboard cache TTL %v: must be positive", c.DashboardCacheTTL))
	}
	if c.ReminderInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at least 1 second", c.ReminderInterval))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if !slices.Contains([]string{"text", "json", "tint"}, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text, json or tint", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
