package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pstrings "persondir/pkg/platform/strings"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// EnvConfigPath names the YAML file loaded when no --config flag is given.
const EnvConfigPath = "PERSONDIR_CONFIG"

// Config is the full process configuration.
type Config struct {
	Server   Server         `yaml:"server"`
	Storage  Storage        `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Audit    Audit          `yaml:"audit"`
	Log      Log            `yaml:"log"`
	// TestMode keeps every mutation in memory; the data source is read but
	// never written.
	TestMode bool `yaml:"test_mode"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `yaml:"addr"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
}

// Storage selects the persistence sink.
type Storage struct {
	Driver     string `yaml:"driver"`
	DataFile   string `yaml:"data_file"`
	SQLitePath string `yaml:"sqlite_path"`
	RedisKey   string `yaml:"redis_key"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PostgresConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// Audit configures where audit events go besides the log.
type Audit struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	Topic        string   `yaml:"topic"`
	BufferSize   int      `yaml:"buffer_size"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: Server{
			Addr:              ":8080",
			ShutdownTimeout:   10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      35 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Storage: Storage{
			Driver:     DriverFile,
			DataFile:   "users.json",
			SQLitePath: "persondir.db",
			RedisKey:   "persondir:records",
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Audit: Audit{
			Topic:      "persondir.audit",
			BufferSize: 256,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides, and validates
// the result.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.Audit.KafkaBrokers = pstrings.DedupeAndTrim(c.Audit.KafkaBrokers)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FromEnv builds a Config from defaults and environment variables only.
func FromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("PERSONDIR_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("PERSONDIR_STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("PERSONDIR_DATA_FILE"); ok {
		c.Storage.DataFile = v
	}
	if v, ok := getEnvStr("PERSONDIR_SQLITE_PATH"); ok {
		c.Storage.SQLitePath = v
	}
	if v, ok := getEnvStr("PERSONDIR_REDIS_KEY"); ok {
		c.Storage.RedisKey = v
	}
	if v, ok := getEnvStr("REDIS_URL"); ok {
		c.Redis.URL = v
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Postgres.URL = v
	}
	if v, ok := getEnvCSV("KAFKA_BROKERS"); ok {
		c.Audit.KafkaBrokers = v
	}
	if v, ok := getEnvStr("PERSONDIR_AUDIT_TOPIC"); ok {
		c.Audit.Topic = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_FORMAT"); ok {
		c.Log.Format = strings.ToLower(v)
	}
	if v, ok := getEnvStr("TEST_MODE"); ok {
		c.TestMode = isTruthy(v)
	}
}

// Validate rejects unknown drivers and drivers missing their connection
// setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.DataFile == "" {
			errs = append(errs, errors.New("storage.data_file is required for the file driver"))
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite driver"))
		}
	case DriverRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url (REDIS_URL) is required for the redis driver"))
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url (DATABASE_URL) is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if len(c.Audit.KafkaBrokers) > 0 && c.Audit.Topic == "" {
		errs = append(errs, errors.New("audit.topic is required when kafka brokers are set"))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// isTruthy accepts "1" and anything strconv.ParseBool reads as true.
func isTruthy(s string) bool {
	s = strings.TrimSpace(s)
	if s == "1" {
		return true
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	return pstrings.SplitList(s), true
}
