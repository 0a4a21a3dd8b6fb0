package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"revdash/internal/core"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string `validate:"oneof=debug info warn error"`
	Timezone string

	// Backend selection
	DataBackend  string `validate:"oneof=memory sheets sqlite"`
	DataDir      string `validate:"required_if=DataBackend memory"`
	SQLiteDBPath string `validate:"required_if=DataBackend sqlite"`

	// Google Sheets
	GoogleSpreadsheetID      string `validate:"required_if=DataBackend sheets"`
	GoogleRecordsRange       string `validate:"required_if=DataBackend sheets"`
	GoogleBankRange          string
	GoogleAPIKey             string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Sync and notifications
	AutoRefreshInterval time.Duration
	NotificationTTL     time.Duration
	BankExcludeKeywords []string

	// AMQP (optional notification fan-out)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// loadErrors holds values Load could not parse; Validate reports them.
	loadErrors []string
}

func Load() *Config {
	var loadErrors []string
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Timezone: getEnv("TIMEZONE", "Local"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/revdash.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleRecordsRange:       getEnv("GOOGLE_RECORDS_RANGE", "Sheet1!A:D"),
		GoogleBankRange:          getEnv("GOOGLE_BANK_RANGE", ""),
		GoogleAPIKey:             getEnv("GOOGLE_API_KEY", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		AutoRefreshInterval: getEnvDuration("AUTO_REFRESH_INTERVAL", 30*time.Second, &loadErrors),
		NotificationTTL:     getEnvDuration("NOTIFICATION_TTL", 10*time.Second, &loadErrors),
		BankExcludeKeywords: getEnvList("BANK_EXCLUDE_KEYWORDS", core.DefaultBankExclusions),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "revdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "revdash_notifications"),
	}
	cfg.loadErrors = loadErrors
	return cfg
}

var validate = validator.New()

// envKeys maps struct fields to the variables that set them, for messages.
var envKeys = map[string]string{
	"LogLevel":            "LOG_LEVEL",
	"DataBackend":         "DATA_BACKEND",
	"DataDir":             "DATA_DIR",
	"SQLiteDBPath":        "SQLITE_DB_PATH",
	"GoogleSpreadsheetID": "GOOGLE_SPREADSHEET_ID",
	"GoogleRecordsRange":  "GOOGLE_RECORDS_RANGE",
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errs := append(append([]string(nil), c.loadErrors...), c.tagErrors()...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.DataBackend == "sheets" {
		hasKey := c.GoogleAPIKey != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasKey && !hasJSON && !hasFile {
			errs = append(errs, "one of GOOGLE_API_KEY, GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AutoRefreshInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid auto refresh interval %v: must be at least 1 second", c.AutoRefreshInterval))
	} else if c.AutoRefreshInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid auto refresh interval %v: must be at most 24 hours", c.AutoRefreshInterval))
	}

	if c.NotificationTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid notification ttl %v: must be at least 1 second", c.NotificationTTL))
	} else if c.NotificationTTL > time.Hour {
		errs = append(errs, fmt.Sprintf("invalid notification ttl %v: must be at most 1 hour", c.NotificationTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// tagErrors runs the struct-tag rules and renders each failure as a
// sentence naming the environment variable.
func (c *Config) tagErrors() []string {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := envKeys[fe.Field()]
		if key == "" {
			key = fe.Field()
		}
		switch fe.Tag() {
		case "oneof":
			out = append(out, fmt.Sprintf("invalid %s '%v': must be one of [%s]", key, fe.Value(), fe.Param()))
		case "required_if":
			out = append(out, fmt.Sprintf("%s is required when using %s backend", key, c.DataBackend))
		default:
			out = append(out, fmt.Sprintf("invalid %s: failed %s", key, fe.Tag()))
		}
	}
	return out
}

// Location resolves Timezone. "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses key as a time.Duration. An unparseable value
// keeps the default and is recorded in errs.
func getEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid %s '%s': must be a duration such as 30s or 5m", key, value))
		return defaultValue
	}
	return d
}

// getEnvList splits a comma separated variable. The literal "none" yields
// an empty list.
func getEnvList(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	if strings.EqualFold(value, "none") {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
