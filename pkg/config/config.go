// Package config holds the starmatrix settings: built-in defaults, an
// optional YAML file, then SM_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultChunkSize is the number of matrix rows computed per build step.
const DefaultChunkSize = 500

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Matrix   MatrixConfig   `yaml:"matrix"`
	Output   OutputConfig   `yaml:"output"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MatrixConfig controls the distance matrix builder.
type MatrixConfig struct {
	ChunkSize int `yaml:"chunkSize"`
}

// OutputConfig names the artifacts a pipeline run writes. FormattedFile and
// RawFile are fmt patterns that receive the star count.
type OutputConfig struct {
	Dir              string `yaml:"dir"`
	TSPName          string `yaml:"tspName"`
	TSPFile          string `yaml:"tspFile"`
	FormattedFile    string `yaml:"formattedFile"`
	RawFile          string `yaml:"rawFile"`
	ProcessedFile    string `yaml:"processedFile"`
	CoordinatesFile  string `yaml:"coordinatesFile"`
	WriteProcessed   bool   `yaml:"writeProcessed"`
	WriteCoordinates bool   `yaml:"writeCoordinates"`
}

// ArchiveConfig holds the TAP endpoint and the catalog query filters.
type ArchiveConfig struct {
	URL         string        `yaml:"url"`
	Table       string        `yaml:"table"`
	Timeout     time.Duration `yaml:"timeout"`
	Limit       int           `yaml:"limit"`
	MaxRelError float64       `yaml:"maxRelError"`
	MaxGMag     float64       `yaml:"maxGMag"`
}

// CacheConfig selects the record-set cache backend ("none", "memory" or
// "redis") and its TTL.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"poolSize"`
	DialTimeout time.Duration `yaml:"dialTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the run ledger.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Brokers         []string      `yaml:"brokers"`
	ConsumerGroup   string        `yaml:"consumerGroup"`
	Topics          KafkaTopics   `yaml:"topics"`
	MaxMessageBytes int           `yaml:"maxMessageBytes"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	RunEvents      string `yaml:"runEvents"`
	CatalogBatches string `yaml:"catalogBatches"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then applies SM_* environment variables and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local runs.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Matrix: MatrixConfig{
			ChunkSize: DefaultChunkSize,
		},
		Output: OutputConfig{
			Dir:              "output",
			TSPName:          "star_distance_tsp",
			TSPFile:          "best.txt",
			FormattedFile:    "stars_%d_formatted.txt",
			RawFile:          "stars_%d_raw.txt",
			ProcessedFile:    "processed_stars.json",
			CoordinatesFile:  "distance_matrix.txt",
			WriteProcessed:   true,
			WriteCoordinates: true,
		},
		Archive: ArchiveConfig{
			URL:         "https://gea.esac.esa.int/tap-server/tap/sync",
			Table:       "gaiadr3.gaia_source",
			Timeout:     120 * time.Second,
			Limit:       1000,
			MaxRelError: 0.3,
			MaxGMag:     20,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    10,
			DialTimeout: 5 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "starmatrix",
			User:            "starmatrix",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  5 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "starmatrix-group",
			Topics: KafkaTopics{
				RunEvents:      "starmatrix.run-completed",
				CatalogBatches: "starmatrix.catalog-batches",
			},
			MaxMessageBytes: 64 << 20,
			WriteTimeout:    10 * time.Second,
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Matrix.ChunkSize <= 0 {
		return fmt.Errorf("matrix.chunkSize must be positive, got %d", c.Matrix.ChunkSize)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be none, memory or redis, got %q", c.Cache.Backend)
	}
	if c.Archive.Limit < 0 {
		return fmt.Errorf("archive.limit must not be negative, got %d", c.Archive.Limit)
	}
	return nil
}

// envBindings maps SM_* environment variables onto cfg fields.
func envBindings(cfg *Config) []envBinding {
	return []envBinding{
		{"SM_LOGGING_LEVEL", setString(&cfg.Logging.Level)},
		{"SM_LOGGING_FORMAT", setString(&cfg.Logging.Format)},
		{"SM_MATRIX_CHUNK_SIZE", setInt(&cfg.Matrix.ChunkSize)},
		{"SM_OUTPUT_DIR", setString(&cfg.Output.Dir)},
		{"SM_ARCHIVE_URL", setString(&cfg.Archive.URL)},
		{"SM_ARCHIVE_LIMIT", setInt(&cfg.Archive.Limit)},
		{"SM_ARCHIVE_TIMEOUT", setDuration(&cfg.Archive.Timeout)},
		{"SM_CACHE_BACKEND", setString(&cfg.Cache.Backend)},
		{"SM_CACHE_TTL", setDuration(&cfg.Cache.TTL)},
		{"SM_REDIS_ADDR", setString(&cfg.Redis.Addr)},
		{"SM_REDIS_PASSWORD", setString(&cfg.Redis.Password)},
		{"SM_REDIS_DB", setInt(&cfg.Redis.DB)},
		{"SM_POSTGRES_ENABLED", setBool(&cfg.Postgres.Enabled)},
		{"SM_POSTGRES_HOST", setString(&cfg.Postgres.Host)},
		{"SM_POSTGRES_PORT", setInt(&cfg.Postgres.Port)},
		{"SM_POSTGRES_DATABASE", setString(&cfg.Postgres.Database)},
		{"SM_POSTGRES_USER", setString(&cfg.Postgres.User)},
		{"SM_POSTGRES_PASSWORD", setString(&cfg.Postgres.Password)},
		{"SM_KAFKA_ENABLED", setBool(&cfg.Kafka.Enabled)},
		{"SM_KAFKA_BROKERS", setList(&cfg.Kafka.Brokers)},
		{"SM_KAFKA_CONSUMER_GROUP", setString(&cfg.Kafka.ConsumerGroup)},
		{"SM_METRICS_PORT", setInt(&cfg.Metrics.Port)},
	}
}

type envBinding struct {
	name string
	set  func(string) error
}

// applyEnvOverrides applies every non-empty SM_* variable. Values that do
// not parse are reported together; the others still apply.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	for _, b := range envBindings(cfg) {
		v, ok := os.LookupEnv(b.name)
		if !ok || v == "" {
			continue
		}
		if err := b.set(v); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", b.name, v, err))
		}
	}
	return errors.Join(errs...)
}

func setString(p *string) func(string) error {
	return func(v string) error {
		*p = v
		return nil
	}
}

func setInt(p *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*p = n
		return nil
	}
}

func setBool(p *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*p = b
		return nil
	}
}

func setDuration(p *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*p = d
		return nil
	}
}

// setList splits on commas and drops empty items.
func setList(p *[]string) func(string) error {
	return func(v string) error {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*p = items
		return nil
	}
}
