package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every configuration failure (unreadable file, bad YAML,
// missing required keys). It is fatal at startup, before any network activity.
var ErrInvalid = errors.New("config: invalid configuration")

// Normalization modes accepted by normalize.mode.
const (
	ModeEmitAll      = "emit-all"
	ModeEmitOnChange = "emit-on-change"
)

// Config is the root configuration structure for vuedl.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Cloud     CloudConfig     `yaml:"cloud"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Archive   ArchiveConfig   `yaml:"archive"`
	State     StateConfig     `yaml:"state"`
	Database  DatabaseConfig  `yaml:"database"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	TSDB      TSDBConfig      `yaml:"tsdb"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CloudConfig contains the metering cloud account and endpoints.
type CloudConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	APIURL   string `yaml:"api_url"`
	AuthURL  string `yaml:"auth_url"`
	ClientID string `yaml:"client_id"`
}

// FetchConfig controls window planning and the usage fetch loop.
type FetchConfig struct {
	// Scales lists the sampling granularities requested per device channel.
	// Default: ["1MIN"]
	Scales []string `yaml:"scales"`

	// Lookback is the window length used when no watermark exists yet.
	// Default: 60m
	Lookback time.Duration `yaml:"lookback"`

	// SafetyOffset is subtracted from the minute-truncated current time so
	// that data the upstream has not finalised is never requested.
	// Default: 5m1s
	SafetyOffset time.Duration `yaml:"safety_offset"`

	// MinimumWindow is the smallest window worth a run. Shorter windows end
	// the run as a no-op.
	// Default: 60s
	MinimumWindow time.Duration `yaml:"minimum_window"`

	// Attempts bounds fetch and sink write attempts. Default: 3
	Attempts int `yaml:"attempts"`

	// Backoff is the fixed wait between attempts. Default: 30s
	Backoff time.Duration `yaml:"backoff"`

	// DeviceDelay is the courtesy gap between successive usage requests.
	// Default: 1s
	DeviceDelay time.Duration `yaml:"device_delay"`

	// RequestTimeout bounds a single HTTP exchange. Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ContinueOnError keeps fetching the remaining devices after one has
	// exhausted its attempts. The run still fails and the watermark stays put.
	ContinueOnError bool `yaml:"continue_on_error"`
}

// NormalizeConfig selects how raw sample arrays are expanded into points.
type NormalizeConfig struct {
	// Mode is "emit-all" (default) or "emit-on-change".
	Mode string `yaml:"mode"`
}

// ArchiveConfig contains raw response file settings.
type ArchiveConfig struct {
	DataFolder string `yaml:"data_folder"`
}

// StateConfig locates the runtime state file (token, customer id, watermark).
type StateConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL (or TimescaleDB) settings.
type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DSN      string `yaml:"dsn"`
	Table    string `yaml:"table"`
	MaxConns int    `yaml:"max_conns"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// TSDBConfig contains VictoriaMetrics settings.
type TSDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// MQTTConfig contains MQTT broker connection settings for run status events.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MetricsConfig contains Prometheus Pushgateway settings.
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`

	// File, when set, receives every record down to debug, including the
	// redacted HTTP exchange dumps, regardless of Level.
	File string `yaml:"file"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: VUEDL_SECTION_KEY
// For example: VUEDL_CLOUD_PASSWORD, VUEDL_DATABASE_PATH
//
// Every failure wraps ErrInvalid.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file: %w", ErrInvalid, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file: %w", ErrInvalid, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Cloud: CloudConfig{
			APIURL:  "https://api.emporiaenergy.com",
			AuthURL: "https://cognito-idp.us-east-2.amazonaws.com/",
		},
		Fetch: FetchConfig{
			Scales:         []string{"1MIN"},
			Lookback:       60 * time.Minute,
			SafetyOffset:   5*time.Minute + time.Second,
			MinimumWindow:  60 * time.Second,
			Attempts:       3,
			Backoff:        30 * time.Second,
			DeviceDelay:    time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Normalize: NormalizeConfig{
			Mode: ModeEmitAll,
		},
		Archive: ArchiveConfig{
			DataFolder: "/var/lib/vuedl",
		},
		State: StateConfig{
			Path: "/var/lib/vuedl/state.yaml",
		},
		Database: DatabaseConfig{
			Path:        "/var/lib/vuedl/vue.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Postgres: PostgresConfig{
			Table:    "readings",
			MaxConns: 2,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "vuedl",
			},
			QoS:         1,
			TopicPrefix: "vuedl",
		},
		Metrics: MetricsConfig{
			Job: "vuedl",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: VUEDL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Cloud account
	if v := os.Getenv("VUEDL_CLOUD_USERNAME"); v != "" {
		cfg.Cloud.Username = v
	}
	if v := os.Getenv("VUEDL_CLOUD_PASSWORD"); v != "" {
		cfg.Cloud.Password = v
	}
	if v := os.Getenv("VUEDL_CLOUD_CLIENT_ID"); v != "" {
		cfg.Cloud.ClientID = v
	}

	// Paths
	if v := os.Getenv("VUEDL_DATA_FOLDER"); v != "" {
		cfg.Archive.DataFolder = v
	}
	if v := os.Getenv("VUEDL_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("VUEDL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Sinks
	if v := os.Getenv("VUEDL_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("VUEDL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// MQTT
	if v := os.Getenv("VUEDL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("VUEDL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("VUEDL_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("VUEDL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VUEDL_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

// Validate checks the configuration for missing or inconsistent values.
//
// All problems are collected into a single error wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []string

	// Cloud account: required before any request can be made
	required := []struct {
		key   string
		value string
	}{
		{"cloud.username", c.Cloud.Username},
		{"cloud.password", c.Cloud.Password},
		{"cloud.api_url", c.Cloud.APIURL},
		{"cloud.auth_url", c.Cloud.AuthURL},
		{"cloud.client_id", c.Cloud.ClientID},
		{"archive.data_folder", c.Archive.DataFolder},
		{"state.path", c.State.Path},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.key+" is required")
		}
	}

	// Fetch policy
	if len(c.Fetch.Scales) == 0 {
		errs = append(errs, "fetch.scales must list at least one scale")
	}
	if c.Fetch.Attempts < 1 {
		errs = append(errs, "fetch.attempts must be at least 1")
	}
	if c.Fetch.Lookback <= 0 {
		errs = append(errs, "fetch.lookback must be positive")
	}
	if c.Fetch.MinimumWindow <= 0 {
		errs = append(errs, "fetch.minimum_window must be positive")
	}
	if c.Fetch.SafetyOffset < 0 || c.Fetch.Backoff < 0 || c.Fetch.DeviceDelay < 0 {
		errs = append(errs, "fetch durations must not be negative")
	}

	switch c.Normalize.Mode {
	case ModeEmitAll, ModeEmitOnChange:
	default:
		errs = append(errs, fmt.Sprintf("normalize.mode must be %q or %q", ModeEmitAll, ModeEmitOnChange))
	}

	// Sinks: at least one store must receive the points
	if !c.Database.Enabled && !c.Postgres.Enabled && !c.InfluxDB.Enabled && !c.TSDB.Enabled {
		errs = append(errs, "at least one of database, postgres, influxdb or tsdb must be enabled")
	}
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		errs = append(errs, "postgres.dsn is required (set VUEDL_POSTGRES_DSN environment variable)")
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required")
	}
	if c.TSDB.Enabled && c.TSDB.URL == "" {
		errs = append(errs, "tsdb.url is required")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Metrics.Enabled && c.Metrics.PushgatewayURL == "" {
		errs = append(errs, "metrics.pushgateway_url is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}

	return nil
}
