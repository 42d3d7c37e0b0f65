package domain

import "time"

// Config holds the complete Heron configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Input files and row cap
	Dataset DatasetConfig `json:"dataset" mapstructure:"dataset"`

	// Static values reported by /api/system/metadata
	Metadata MetadataConfig `json:"metadata" mapstructure:"metadata"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" mapstructure:"repository"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" mapstructure:"eventbus"`

	// Observability
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	ReadTimeout  int    `json:"readTimeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int    `json:"writeTimeout" mapstructure:"write_timeout"` // seconds
}

// DatasetConfig locates the four input files.
type DatasetConfig struct {
	TransactionsPath string `json:"transactionsPath" mapstructure:"transactions_path"`
	UsersPath        string `json:"usersPath" mapstructure:"users_path"`
	MCCPath          string `json:"mccPath" mapstructure:"mcc_path"`
	FraudLabelsPath  string `json:"fraudLabelsPath" mapstructure:"fraud_labels_path"`

	// MaxRows caps the transaction rows read; 0 means unlimited.
	MaxRows int `json:"maxRows" mapstructure:"max_rows"`
}

// MetadataConfig is reported verbatim by the metadata endpoint.
type MetadataConfig struct {
	Version    string `json:"version" mapstructure:"version"`
	LastUpdate string `json:"lastUpdate" mapstructure:"last_update"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName  string `json:"serviceName" mapstructure:"service_name"`
	ExporterType string `json:"exporterType" mapstructure:"exporter_type"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint" mapstructure:"endpoint"`
}

// DefaultConfig returns a configuration that runs with no external services:
// SQLite audit log, in-process cache and channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Dataset: DatasetConfig{
			TransactionsPath: "./data/transactions_data.csv",
			UsersPath:        "./data/users_data.csv",
			MCCPath:          "./data/mcc_codes.json",
			FraudLabelsPath:  "./data/train_fraud_labels.json",
		},
		Metadata: MetadataConfig{
			Version:    "1.0.0",
			LastUpdate: "2025-12-20T22:00:00Z",
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./heron.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     5 * time.Minute,
			StatsTTL:     10 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
			NATSQueueGroup:    "heron-audit",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "heron",
		},
	}
}
