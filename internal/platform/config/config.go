package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix      = "LONGTREES"
	configFileName = "longtrees"
	configFileType = "yaml"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Event and export drivers.
const (
	EventsNone   = "none"
	EventsMemory = "memory"
	EventsKafka  = "kafka"

	ExportFS = "fs"
	ExportS3 = "s3"
)

// Config is the full service configuration.
type Config struct {
	Server Server `mapstructure:"server"`
	Log    Log    `mapstructure:"log"`
	Store  Store  `mapstructure:"store"`
	Events Events `mapstructure:"events"`
	Export Export `mapstructure:"export"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Store selects the persistence backend and bounds list calls.
type Store struct {
	Driver      string         `mapstructure:"driver"`
	PageSize    int            `mapstructure:"page_size"`
	MaxPageSize int            `mapstructure:"max_page_size"`
	ListTimeout time.Duration  `mapstructure:"list_timeout"`
	Mongo       MongoConfig    `mapstructure:"mongo"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	Redis       RedisConfig    `mapstructure:"redis"`
}

type MongoConfig struct {
	URL            string        `mapstructure:"url"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Events configures where change events go.
type Events struct {
	Driver           string        `mapstructure:"driver"`
	Brokers          []string      `mapstructure:"brokers"`
	Topic            string        `mapstructure:"topic"`
	Buffer           int           `mapstructure:"buffer"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// Export configures the blob store `longtrees export` writes to.
type Export struct {
	Driver          string `mapstructure:"driver"`
	Dir             string `mapstructure:"dir"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.page_size", 100)
	v.SetDefault("store.max_page_size", 500)
	v.SetDefault("store.list_timeout", 5*time.Second)
	v.SetDefault("store.mongo.url", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "longtrees")
	v.SetDefault("store.mongo.connect_timeout", 10*time.Second)
	v.SetDefault("store.postgres.url", "postgres://localhost:5432/longtrees?sslmode=disable")
	v.SetDefault("store.postgres.max_conns", 10)
	v.SetDefault("store.redis.url", "redis://localhost:6379/0")
	v.SetDefault("store.redis.key_prefix", "longtrees")
	v.SetDefault("store.redis.pool_size", 10)
	v.SetDefault("store.redis.min_idle_conns", 2)
	v.SetDefault("store.redis.dial_timeout", 5*time.Second)
	v.SetDefault("store.redis.read_timeout", 3*time.Second)
	v.SetDefault("store.redis.write_timeout", 3*time.Second)

	v.SetDefault("events.driver", EventsNone)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "longtrees.changes")
	v.SetDefault("events.buffer", 1024)
	v.SetDefault("events.breaker_threshold", 5)
	v.SetDefault("events.breaker_cooldown", 30*time.Second)

	v.SetDefault("export.driver", ExportFS)
	v.SetDefault("export.dir", "./export")
	v.SetDefault("export.bucket", "")
	v.SetDefault("export.prefix", "longtrees")
	v.SetDefault("export.region", "us-east-1")
	v.SetDefault("export.endpoint", "")
	v.SetDefault("export.access_key_id", "")
	v.SetDefault("export.secret_access_key", "")
	v.SetDefault("export.use_path_style", false)
}

// Load reads configuration from defaults, an optional YAML file and
// LONGTREES_* environment variables, in increasing precedence. An empty path
// looks for longtrees.yaml in the working directory; a missing file there is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown drivers and unusable limits.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{DriverMemory, DriverMongo, DriverPostgres, DriverRedis}, c.Store.Driver) {
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if c.Store.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("store.page_size must be positive"))
	}
	if c.Store.MaxPageSize < c.Store.PageSize {
		errs = append(errs, fmt.Errorf("store.max_page_size must be at least store.page_size"))
	}
	if c.Store.ListTimeout <= 0 {
		errs = append(errs, fmt.Errorf("store.list_timeout must be positive"))
	}
	if !slices.Contains([]string{EventsNone, EventsMemory, EventsKafka}, c.Events.Driver) {
		errs = append(errs, fmt.Errorf("events.driver: unknown driver %q", c.Events.Driver))
	}
	if c.Events.Driver == EventsKafka && len(c.Events.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("events.brokers is required for the kafka driver"))
	}
	if !slices.Contains([]string{ExportFS, ExportS3}, c.Export.Driver) {
		errs = append(errs, fmt.Errorf("export.driver: unknown driver %q", c.Export.Driver))
	}
	if c.Export.Driver == ExportS3 && c.Export.Bucket == "" {
		errs = append(errs, fmt.Errorf("export.bucket is required for the s3 driver"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive"))
	}
	return errors.Join(errs...)
}
