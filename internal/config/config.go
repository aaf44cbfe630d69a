// Package config provides configuration loading for explorerctl and the
// gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	// Endpoint is the control plane URL
	Endpoint string `mapstructure:"endpoint"`

	// Auth configuration
	Auth AuthConfig `mapstructure:"auth"`

	// Database configuration (for gateway)
	Database DatabaseConfig `mapstructure:"database"`

	// Engines configuration
	Engines EnginesConfig `mapstructure:"engines"`

	// Pipeline configuration (row caps, timeouts)
	Pipeline PipelineConfig `mapstructure:"pipeline"`

	// AllowList configuration
	AllowList AllowListConfig `mapstructure:"allowlist"`

	// NLSQL configures the NL-to-SQL generator's LLM provider.
	NLSQL NLSQLConfig `mapstructure:"nlsql"`

	// Discovery configures external catalog sync.
	Discovery DiscoveryConfig `mapstructure:"discovery"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Server configuration (for gateway)
	Server ServerConfig `mapstructure:"server"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// EnginesConfig holds engine configurations, one per Query Executor
// adapter.
type EnginesConfig struct {
	DuckDB    DuckDBConfig    `mapstructure:"duckdb"`
	Trino     TrinoConfig     `mapstructure:"trino"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake"`
	BigQuery  BigQueryConfig  `mapstructure:"bigquery"`
	Redshift  RedshiftConfig  `mapstructure:"redshift"`
}

// DuckDBConfig holds DuckDB configuration.
type DuckDBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database"`
}

// TrinoConfig holds Trino configuration.
type TrinoConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Catalog string `mapstructure:"catalog"`
	User    string `mapstructure:"user"`
}

// SnowflakeConfig holds Snowflake configuration.
type SnowflakeConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Account   string `mapstructure:"account"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Warehouse string `mapstructure:"warehouse"`
	Database  string `mapstructure:"database"`
	Schema    string `mapstructure:"schema"`
}

// BigQueryConfig holds BigQuery configuration.
type BigQueryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ProjectID       string `mapstructure:"projectId"`
	CredentialsFile string `mapstructure:"credentialsFile"`
}

// RedshiftConfig holds Redshift configuration.
type RedshiftConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// PipelineConfig holds the Query Safety & Execution Pipeline's row cap
// and timeout defaults, per spec §5.
type PipelineConfig struct {
	DefaultRowCap  int           `mapstructure:"defaultRowCap"`
	MaxRowCap      int           `mapstructure:"maxRowCap"`
	DefaultTimeout time.Duration `mapstructure:"defaultTimeout"`
	MaxTimeout     time.Duration `mapstructure:"maxTimeout"`
}

// AllowListConfig holds the Table Allow-List Cache's refresh interval.
type AllowListConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// NLSQLConfig configures the NL-to-SQL Generator's LLM provider.
type NLSQLConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	ProviderType        string `mapstructure:"providerType"`
	Model               string `mapstructure:"model"`
	APIKey              string `mapstructure:"apiKey"`
	BaseURL             string `mapstructure:"baseUrl"`
	AzureEndpoint       string `mapstructure:"azureEndpoint"`
	AzureDeploymentName string `mapstructure:"azureDeploymentName"`
	PromptMetadataLimit int    `mapstructure:"promptMetadataLimit"`
}

// DiscoveryConfig configures external catalog sync sources.
type DiscoveryConfig struct {
	Glue GlueDiscoveryConfig `mapstructure:"glue"`
}

// GlueDiscoveryConfig configures the AWS Glue discovery source.
type GlueDiscoveryConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Region           string        `mapstructure:"region"`
	CatalogID        string        `mapstructure:"catalogId"`
	RequestTimeout   time.Duration `mapstructure:"requestTimeout"`
	IncludeDatabases []string      `mapstructure:"includeDatabases"`
	ExcludeDatabases []string      `mapstructure:"excludeDatabases"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"readTimeout"`
	WriteTimeout string `mapstructure:"writeTimeout"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:8080",
		Auth: AuthConfig{
			Token: "",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "explorer",
			Password: "explorer_dev",
			Name:     "explorer",
			SSLMode:  "disable",
		},
		Engines: EnginesConfig{
			DuckDB: DuckDBConfig{
				Enabled:  true,
				Database: ":memory:",
			},
			Trino: TrinoConfig{
				Enabled: false,
				Host:    "localhost",
				Port:    8080,
				Catalog: "hive",
				User:    "explorer",
			},
			Snowflake: SnowflakeConfig{Enabled: false},
			BigQuery:  BigQueryConfig{Enabled: false},
			Redshift:  RedshiftConfig{Enabled: false, Port: 5439},
		},
		Pipeline: PipelineConfig{
			DefaultRowCap:  1000,
			MaxRowCap:      10000,
			DefaultTimeout: 30 * time.Second,
			MaxTimeout:     120 * time.Second,
		},
		AllowList: AllowListConfig{
			TTL: 60 * time.Second,
		},
		NLSQL: NLSQLConfig{
			Enabled:             false,
			ProviderType:        "openai",
			Model:               "gpt-4o-mini",
			PromptMetadataLimit: 50,
		},
		Discovery: DiscoveryConfig{
			Glue: GlueDiscoveryConfig{
				Enabled:        false,
				RequestTimeout: 30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  "30s",
			WriteTimeout: "30s",
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".data-explorer"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("DATA_EXPLORER")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", "http://localhost:8080")
	v.SetDefault("auth.token", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "explorer")
	v.SetDefault("database.password", "explorer_dev")
	v.SetDefault("database.name", "explorer")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("engines.duckdb.enabled", true)
	v.SetDefault("engines.duckdb.database", ":memory:")
	v.SetDefault("engines.trino.enabled", false)
	v.SetDefault("engines.snowflake.enabled", false)
	v.SetDefault("engines.bigquery.enabled", false)
	v.SetDefault("engines.redshift.enabled", false)
	v.SetDefault("engines.redshift.port", 5439)
	v.SetDefault("pipeline.defaultRowCap", 1000)
	v.SetDefault("pipeline.maxRowCap", 10000)
	v.SetDefault("pipeline.defaultTimeout", "30s")
	v.SetDefault("pipeline.maxTimeout", "120s")
	v.SetDefault("allowlist.ttl", "60s")
	v.SetDefault("nlsql.enabled", false)
	v.SetDefault("nlsql.providerType", "openai")
	v.SetDefault("nlsql.model", "gpt-4o-mini")
	v.SetDefault("nlsql.promptMetadataLimit", 50)
	v.SetDefault("discovery.glue.enabled", false)
	v.SetDefault("discovery.glue.requestTimeout", "30s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
}
