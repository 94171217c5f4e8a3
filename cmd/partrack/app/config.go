package app

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from the secrets
// file, environment variables, .env files, and command-line flags.
type Config struct {
	// Global flags
	Verbose  bool
	Quiet    bool
	NoColor  bool
	LogLevel string
	DryRun   bool
	Slack    bool
	Only     []string
	Limit    int

	// Config file
	ConfigFile string

	// Tracker API
	APIURI   string
	Email    string
	Password string

	// Development server
	DevHost     string
	DevUser     string
	DevPassword string

	// Mailing-list archive
	EmailArchive string
	EmailStart   string
	EmailLimit   int
	Blacklist    []string

	// File archive (basic auth)
	ArchiveUser     string
	ArchivePassword string

	// Notifications
	SlackWebhook string
}

// DefaultConfigFile is the secrets file read when --config is not given.
const DefaultConfigFile = "secrets.yml"

// LoadConfig loads configuration from all sources in order of
// precedence:
//  1. Command-line flags (applied later by cobra)
//  2. Environment variables
//  3. .env files
//  4. The secrets YAML file
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile == "" {
		configFile = DefaultConfigFile
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	// The secrets file is optional: every value can come from the
	// environment instead.
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	config := &Config{
		ConfigFile: configFile,

		APIURI:   v.GetString("api_uri"),
		Email:    v.GetString("email"),
		Password: v.GetString("password"),

		DevHost:     v.GetString("dev_host"),
		DevUser:     v.GetString("dev_user"),
		DevPassword: v.GetString("dev_pw"),

		EmailArchive: v.GetString("email_archive"),
		EmailStart:   v.GetString("email_start"),
		EmailLimit:   v.GetInt("email_limit"),
		Blacklist:    v.GetStringSlice("blacklist"),

		ArchiveUser:     v.GetString("archive_user"),
		ArchivePassword: v.GetString("archive_password"),

		SlackWebhook: v.GetString("slack_webhook"),

		LogLevel: os.Getenv("LOG_LEVEL"),
	}

	return config, nil
}

// UpdateFromFlags applies parsed persistent flag values. Flags take
// precedence over the config file and environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor, dryRun, slack bool, logLevel string, only []string, limit int) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	c.DryRun = dryRun
	c.Slack = slack
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if len(only) > 0 {
		c.Only = only
	}
	if limit > 0 {
		c.Limit = limit
	}
}

// loadEnvFiles loads environment variables from .env files;
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
