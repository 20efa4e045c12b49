package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/graphmerge/pkg/constants"
	"github.com/agentstation/graphmerge/pkg/errors"
)

// EnvPrefix is the prefix of every graphmerge environment variable.
const EnvPrefix = "GRAPHMERGE"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Resolution
	Threshold          float64
	ReferenceThreshold float64
	Workers            int
	IdentityTable      string
	SchemaFile         string
	ProvenanceFile     string

	// Graph store
	Store         string
	SQLitePath    string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// Logging configuration
	LogLevel  string // from --log-level only
	LogFormat string
	LogOutput string

	envLogLevel string // LOG_LEVEL or log_level, below -v and -q
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (GRAPHMERGE_*)
// 3. .env files
// 4. Config file (~/.graphmerge.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".graphmerge")
		}
	}

	// A missing default config file is fine, an explicit one must load
	if err := viper.ReadInConfig(); err != nil && configFile != "" {
		return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
	}

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no_color"),
		Format:  viper.GetString("format"),

		ConfigFile: viper.ConfigFileUsed(),

		Threshold:          viper.GetFloat64("threshold"),
		ReferenceThreshold: viper.GetFloat64("reference_threshold"),
		Workers:            viper.GetInt("workers"),
		IdentityTable:      viper.GetString("identity_table"),
		SchemaFile:         viper.GetString("schema_file"),
		ProvenanceFile:     viper.GetString("provenance_file"),

		Store:         viper.GetString("store"),
		SQLitePath:    viper.GetString("sqlite_path"),
		Neo4jURI:      viper.GetString("neo4j_uri"),
		Neo4jUser:     viper.GetString("neo4j_user"),
		Neo4jPassword: viper.GetString("neo4j_password"),
		Neo4jDatabase: viper.GetString("neo4j_database"),

		envLogLevel: getEnvOrDefault("LOG_LEVEL", viper.GetString("log_level")),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", viper.GetString("log_format")),
		LogOutput:   getEnvOrDefault("LOG_OUTPUT", viper.GetString("log_output")),
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("threshold", constants.DefaultThreshold)
	viper.SetDefault("workers", constants.DefaultWorkers)
	viper.SetDefault("identity_table", constants.DefaultIdentityTable)
	viper.SetDefault("store", constants.DefaultStore)
	viper.SetDefault("sqlite_path", constants.DefaultSQLitePath)
	viper.SetDefault("neo4j_uri", constants.DefaultNeo4jURI)
	viper.SetDefault("neo4j_user", constants.DefaultNeo4jUser)
	viper.SetDefault("neo4j_database", constants.DefaultNeo4jDatabase)
	viper.SetDefault("log_format", "auto")
	viper.SetDefault("log_output", "stderr")
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
