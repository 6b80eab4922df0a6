// Package config provides Viper-based hierarchical configuration management.
//
// Configuration is assembled once at startup (defaults, config file, environment)
// and handed to the components by value. Nothing below cmd/ reads the process
// environment directly.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/anapay2zaim/internal/apperrors"
	"fjacquet/anapay2zaim/internal/fileutils"
	"fjacquet/anapay2zaim/internal/logging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Match modes supported by the merchant resolver.
const (
	MatchPrefix    = "prefix"
	MatchSubstring = "substring"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MailConfig holds the IMAP mail store settings and the notification filter.
type MailConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	SSL            bool     `mapstructure:"ssl" yaml:"ssl"`
	Username       string   `mapstructure:"username" yaml:"username"`
	Password       string   `mapstructure:"password" yaml:"-"`
	Mailbox        string   `mapstructure:"mailbox" yaml:"mailbox"`
	FromAddress    string   `mapstructure:"from_address" yaml:"from_address"`
	SenderDomain   string   `mapstructure:"sender_domain" yaml:"sender_domain"`
	SubjectMarkers []string `mapstructure:"subject_markers" yaml:"subject_markers"`
	LookbackDays   int      `mapstructure:"lookback_days" yaml:"lookback_days"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// ZaimConfig holds the ledger service settings.
type ZaimConfig struct {
	ConsumerKey    string `mapstructure:"consumer_key" yaml:"-"`
	ConsumerSecret string `mapstructure:"consumer_secret" yaml:"-"`
	TokenFile      string `mapstructure:"token_file" yaml:"token_file"`
	APIBaseURL     string `mapstructure:"api_base_url" yaml:"api_base_url"`
	AuthorizeURL   string `mapstructure:"authorize_url" yaml:"authorize_url"`
	FromAccountID  int    `mapstructure:"from_account_id" yaml:"from_account_id"`
	CommentPrefix  string `mapstructure:"comment_prefix" yaml:"comment_prefix"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	// RequestsPerMinute paces API calls; zero disables pacing.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// MappingConfig holds the merchant mapping table settings.
type MappingConfig struct {
	File              string `mapstructure:"file" yaml:"file"`
	MatchMode         string `mapstructure:"match_mode" yaml:"match_mode"`
	CaseSensitive     bool   `mapstructure:"case_sensitive" yaml:"case_sensitive"`
	DefaultGenreID    int    `mapstructure:"default_genre_id" yaml:"default_genre_id"`
	DefaultCategoryID int    `mapstructure:"default_category_id" yaml:"default_category_id"`
}

// LedgerConfig holds the processed-message ledger settings.
type LedgerConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// ExtractionConfig holds settings for parsing notification bodies.
type ExtractionConfig struct {
	TimeZone string `mapstructure:"time_zone" yaml:"time_zone"`
}

// ReportConfig holds run report settings.
type ReportConfig struct {
	// Delimiter separates CSV report columns; a single character.
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

// Config represents the complete application configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Mail       MailConfig       `mapstructure:"mail" yaml:"mail"`
	Zaim       ZaimConfig       `mapstructure:"zaim" yaml:"zaim"`
	Mapping    MappingConfig    `mapstructure:"mapping" yaml:"mapping"`
	Ledger     LedgerConfig     `mapstructure:"ledger" yaml:"ledger"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Report     ReportConfig     `mapstructure:"report" yaml:"report"`
}

// legacyEnv maps configuration keys to the unprefixed variable names used by
// existing .env files.
var legacyEnv = map[string]string{
	"mail.host":            "IMAP_HOST",
	"mail.port":            "IMAP_PORT",
	"mail.ssl":             "IMAP_SSL",
	"mail.username":        "EMAIL_ADDRESS",
	"mail.password":        "EMAIL_PASSWORD",
	"zaim.consumer_key":    "ZAIM_CONSUMER_ID",
	"zaim.consumer_secret": "ZAIM_CONSUMER_SECRET",
	"zaim.from_account_id": "ZAIM_DEFAULT_FROM_ACCOUNT_ID",
}

// LoadEnv loads environment variables from a .env file in the current or parent
// directory. A missing file is not an error.
func LoadEnv() {
	envFile := ".env"
	if !fileutils.FileExists(envFile) {
		envFile = filepath.Join("..", ".env")
		if !fileutils.FileExists(envFile) {
			return
		}
	}
	_ = godotenv.Load(envFile)
}

// InitializeConfig initializes Viper configuration with hierarchical loading.
// configFile may be empty, in which case config.yaml is searched in the
// standard locations and its absence is not an error.
func InitializeConfig(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.anapay2zaim")
		v.AddConfigPath(".anapay2zaim")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ANAPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, &apperrors.ConfigurationError{Setting: "config file", Reason: "cannot read", Err: err}
		}
	}

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "ANAPAY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 993)
	v.SetDefault("mail.ssl", true)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.mailbox", "INBOX")
	v.SetDefault("mail.from_address", "payinfo@121.ana.co.jp")
	v.SetDefault("mail.sender_domain", "ana.co.jp")
	v.SetDefault("mail.subject_markers", []string{"ANA Pay", "ANAペイ"})
	v.SetDefault("mail.lookback_days", 7)
	v.SetDefault("mail.timeout_seconds", 60)

	v.SetDefault("zaim.consumer_key", "")
	v.SetDefault("zaim.consumer_secret", "")
	v.SetDefault("zaim.token_file", "zaim_tokens.json")
	v.SetDefault("zaim.api_base_url", "https://api.zaim.net")
	v.SetDefault("zaim.authorize_url", "https://auth.zaim.net/users/auth")
	v.SetDefault("zaim.from_account_id", 0)
	v.SetDefault("zaim.comment_prefix", "ANA Pay transaction: ")
	v.SetDefault("zaim.timeout_seconds", 30)
	v.SetDefault("zaim.requests_per_minute", 60)

	v.SetDefault("mapping.file", "merchant_mappings.yaml")
	v.SetDefault("mapping.match_mode", MatchPrefix)
	v.SetDefault("mapping.case_sensitive", true)
	v.SetDefault("mapping.default_genre_id", 19905)
	v.SetDefault("mapping.default_category_id", 199)

	v.SetDefault("ledger.file", "processed_emails.txt")

	v.SetDefault("extraction.time_zone", "Asia/Tokyo")

	v.SetDefault("report.delimiter", ",")
}

// Validate checks the settings every command relies on.
// Credentials are checked separately by RequireMailCredentials and
// RequireZaimCredentials so that offline commands work without them.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return &apperrors.ConfigurationError{Setting: "log.level", Reason: fmt.Sprintf("invalid log level: %s", c.Log.Level)}
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return &apperrors.ConfigurationError{Setting: "log.format", Reason: fmt.Sprintf("invalid log format: %s (must be 'text' or 'json')", c.Log.Format)}
	}

	if c.Mapping.MatchMode != MatchPrefix && c.Mapping.MatchMode != MatchSubstring {
		return &apperrors.ConfigurationError{Setting: "mapping.match_mode", Reason: fmt.Sprintf("unknown match mode: %s (must be 'prefix' or 'substring')", c.Mapping.MatchMode)}
	}

	if c.Mail.LookbackDays < 1 {
		return &apperrors.ConfigurationError{Setting: "mail.lookback_days", Reason: fmt.Sprintf("must be positive, got: %d", c.Mail.LookbackDays)}
	}

	if c.Mail.Port < 1 || c.Mail.Port > 65535 {
		return &apperrors.ConfigurationError{Setting: "mail.port", Reason: fmt.Sprintf("must be between 1 and 65535, got: %d", c.Mail.Port)}
	}

	if c.Zaim.RequestsPerMinute < 0 {
		return &apperrors.ConfigurationError{Setting: "zaim.requests_per_minute", Reason: fmt.Sprintf("must not be negative, got: %d", c.Zaim.RequestsPerMinute)}
	}

	if strings.TrimSpace(c.Ledger.File) == "" {
		return &apperrors.ConfigurationError{Setting: "ledger.file", Reason: "must not be empty"}
	}

	if d := []rune(c.Report.Delimiter); len(d) > 1 || (len(d) == 1 && strings.ContainsRune("\"\r\n", d[0])) {
		return &apperrors.ConfigurationError{Setting: "report.delimiter", Reason: fmt.Sprintf("must be a single character other than quote or newline, got: %q", c.Report.Delimiter)}
	}

	if _, err := c.Location(); err != nil {
		return &apperrors.ConfigurationError{Setting: "extraction.time_zone", Reason: "unknown time zone", Err: err}
	}

	return nil
}

// RequireMailCredentials checks the settings needed to open the mailbox.
func (c *Config) RequireMailCredentials() error {
	switch {
	case c.Mail.Host == "":
		return &apperrors.ConfigurationError{Setting: "mail.host", Reason: "IMAP credentials not configured (IMAP_HOST)"}
	case c.Mail.Username == "":
		return &apperrors.ConfigurationError{Setting: "mail.username", Reason: "IMAP credentials not configured (EMAIL_ADDRESS)"}
	case c.Mail.Password == "":
		return &apperrors.ConfigurationError{Setting: "mail.password", Reason: "IMAP credentials not configured (EMAIL_PASSWORD)"}
	}
	return nil
}

// RequireZaimCredentials checks the consumer credentials of the ledger service.
func (c *Config) RequireZaimCredentials() error {
	if c.Zaim.ConsumerKey == "" || c.Zaim.ConsumerSecret == "" {
		return &apperrors.ConfigurationError{Setting: "zaim.consumer_key", Reason: "ZAIM_CONSUMER_ID and ZAIM_CONSUMER_SECRET must be set"}
	}
	return nil
}

// Location returns the time zone used to interpret notification timestamps.
func (c *Config) Location() (*time.Location, error) {
	if c.Extraction.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Extraction.TimeZone)
}

// ReportDelimiter returns the CSV report delimiter, a comma when unset.
func (c *Config) ReportDelimiter() rune {
	if d := []rune(c.Report.Delimiter); len(d) == 1 {
		return d[0]
	}
	return ','
}

// FromAccount returns the configured source account, or nil when none is set.
func (c *Config) FromAccount() *int {
	if c.Zaim.FromAccountID <= 0 {
		return nil
	}
	id := c.Zaim.FromAccountID
	return &id
}

// NewLogger builds the application logger from the log settings.
func (c *Config) NewLogger() logging.Logger {
	return logging.NewLogrusAdapter(c.Log.Level, c.Log.Format)
}
