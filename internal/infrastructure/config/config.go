package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor HEINZELMANN_CONFIG is set.
const DefaultPath = "/etc/heinzelmann/config.yaml"

// Config is the root configuration structure for heinzelmann.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub      HubConfig      `yaml:"hub"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	REPL     REPLConfig     `yaml:"repl"`
	Console  ConsoleConfig  `yaml:"console"`
	Journal  JournalConfig  `yaml:"journal"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HubConfig points at the user automation program.
type HubConfig struct {
	Program string `yaml:"program"`
	// QueueSize is the capacity of the actor inbox.
	QueueSize int `yaml:"queue_size"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	// KeepAlive is the MQTT keep-alive interval in seconds.
	KeepAlive int `yaml:"keep_alive"`
	// IngestQueue bounds the number of received events waiting for the actor.
	IngestQueue int `yaml:"ingest_queue"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	// MaxDelay caps the reconnect backoff, in seconds.
	MaxDelay int `yaml:"max_delay"`
}

// REPLConfig contains the remote evaluation server settings.
type REPLConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	// AllowList holds the peer IPs allowed to connect.
	AllowList []string `yaml:"allow_list"`
	// ReadTimeout bounds each read attempt on a connection.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// Addr returns host:port.
func (c REPLConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ConsoleConfig controls the stdin evaluation loop.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prompt  string `yaml:"prompt"`
}

// JournalConfig controls the evaluation journal.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
	// RecordAll journals successful evaluations too, not only failures.
	RecordAll bool `yaml:"record_all"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ResolvePath picks the configuration file: the flag value if set, else
// HEINZELMANN_CONFIG, else DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("HEINZELMANN_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. A .env file in the working directory, if present
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: HEINZELMANN_SECTION_KEY
// For example: HEINZELMANN_MQTT_HOST, HEINZELMANN_REPL_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv exports the variables of a .env file without overriding the
// real environment. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			Program:   "/etc/heinzelmann/program.scm",
			QueueSize: 64,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "heinzelmann",
			},
			Reconnect: MQTTReconnectConfig{
				MaxDelay: 60,
			},
			KeepAlive:   5,
			IngestQueue: 10,
		},
		REPL: REPLConfig{
			Enabled:     true,
			Host:        "127.0.0.1",
			Port:        7888,
			AllowList:   []string{"127.0.0.1"},
			ReadTimeout: 200 * time.Millisecond,
		},
		Console: ConsoleConfig{
			Enabled: false,
			Prompt:  "> ",
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Database: DatabaseConfig{
			Path:        "/var/lib/heinzelmann/journal.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HEINZELMANN_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Hub
	if v := os.Getenv("HEINZELMANN_PROGRAM"); v != "" {
		cfg.Hub.Program = v
	}

	// MQTT
	if v := os.Getenv("HEINZELMANN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HEINZELMANN_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HEINZELMANN_MQTT_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("HEINZELMANN_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("HEINZELMANN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HEINZELMANN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// REPL
	if v := os.Getenv("HEINZELMANN_REPL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HEINZELMANN_REPL_PORT: %w", err)
		}
		cfg.REPL.Port = port
	}
	if v := os.Getenv("HEINZELMANN_REPL_ALLOW_LIST"); v != "" {
		cfg.REPL.AllowList = splitList(v)
	}

	// Database
	if v := os.Getenv("HEINZELMANN_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("HEINZELMANN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("HEINZELMANN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Hub.Program == "" {
		errs = append(errs, "hub.program is required")
	}
	if c.Hub.QueueSize < 1 {
		errs = append(errs, "hub.queue_size must be positive")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.IngestQueue < 1 {
		errs = append(errs, "mqtt.ingest_queue must be positive")
	}

	// REPL validation
	if c.REPL.Enabled {
		if c.REPL.Port < 1 || c.REPL.Port > 65535 {
			errs = append(errs, "repl.port must be between 1 and 65535")
		}
		for _, addr := range c.REPL.AllowList {
			if net.ParseIP(addr) == nil {
				errs = append(errs, fmt.Sprintf("repl.allow_list entry %q is not an IP address", addr))
			}
		}
		if c.REPL.ReadTimeout <= 0 {
			errs = append(errs, "repl.read_timeout must be positive")
		}
	}

	if c.Journal.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the journal is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetKeepAlive returns the keep-alive as a Duration, zero when unset.
func (c MQTTConfig) GetKeepAlive() time.Duration {
	if c.KeepAlive <= 0 {
		return 0
	}
	return time.Duration(c.KeepAlive) * time.Second
}
