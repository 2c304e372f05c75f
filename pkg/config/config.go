// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Storage, Kafka, Redis, Indexer, Search, Domains, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Storage  StorageConfig   `yaml:"storage"`
	Kafka    KafkaConfig     `yaml:"kafka"`
	Redis    RedisConfig     `yaml:"redis"`
	Indexer  IndexerConfig   `yaml:"indexer"`
	Search   SearchConfig    `yaml:"search"`
	Domains  []DomainConfig  `yaml:"domains"`
	Records  []RecordsConfig `yaml:"records"`
	Logging  LoggingConfig   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings. AllowedOrigins enables CORS
// for browser front ends.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// StorageConfig selects the relational backend holding the nodes and words
// tables. Driver is either "postgres" or "sqlite".
type StorageConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ChunkSize       int           `yaml:"chunkSize"`
}

// DSN returns a data source name for the configured driver.
func (s StorageConfig) DSN() string {
	if s.Driver == "sqlite" {
		return s.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.Database, s.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ReindexRequests string `yaml:"reindexRequests"`
	IndexActivated  string `yaml:"indexActivated"`
}

// RedisConfig holds Redis connection and lookup caching parameters.
// Namespace prefixes every cache key.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	Namespace string        `yaml:"namespace"`
}

// IndexerConfig controls the indexing queue. FilesURL is the base URL
// uploaded images are served from.
type IndexerConfig struct {
	BatchSize int    `yaml:"batchSize"`
	LoopGuard int    `yaml:"loopGuard"`
	FilesURL  string `yaml:"filesUrl"`
}

// SearchConfig controls lookup limits and result shaping.
type SearchConfig struct {
	DefaultLimit        int     `yaml:"defaultLimit"`
	MaxResults          int     `yaml:"maxResults"`
	ContentMatchLength  int     `yaml:"contentMatchLength"`
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	AutocompletePadding int     `yaml:"autocompletePadding"`
	DefaultDomain       string  `yaml:"defaultDomain"`
	DefaultSite         string  `yaml:"defaultSite"`
	DefaultLanguage     string  `yaml:"defaultLanguage"`
}

// DomainConfig declares one independently configured search domain.
type DomainConfig struct {
	Name               string              `yaml:"name"`
	Sites              []SiteConfig        `yaml:"sites"`
	Languages          []string            `yaml:"languages"`
	RecordIndexers     []string            `yaml:"recordIndexers"`
	StopWords          map[string][]string `yaml:"stopWords"`
	Phonetic           map[string]string   `yaml:"phonetic"`
	Tags               []TagConfig         `yaml:"tags"`
	ContentMatchLength int                 `yaml:"contentMatchLength"`
}

// SiteConfig is one site served by a domain. An empty Languages list
// inherits the domain languages.
type SiteConfig struct {
	ID        string   `yaml:"id"`
	BaseURL   string   `yaml:"baseUrl"`
	Languages []string `yaml:"languages"`
}

// TagConfig maps a canonical tag id to its display and input labels.
type TagConfig struct {
	ID         string `yaml:"id"`
	Label      string `yaml:"label"`
	InputLabel string `yaml:"inputLabel"`
}

// RecordsConfig declares a content source that a domain can reference by
// name. Type is "static" or "sql".
type RecordsConfig struct {
	Name          string           `yaml:"name"`
	Type          string           `yaml:"type"`
	Documents     []DocumentConfig `yaml:"documents"`
	DocumentsFile string           `yaml:"documentsFile"`
	Query         string           `yaml:"query"`
	Tag           string           `yaml:"tag"`
}

// DocumentConfig is one content record served by a static record source.
type DocumentConfig struct {
	ID          string         `yaml:"id"`
	Site        string         `yaml:"site"`
	Language    string         `yaml:"language"`
	Tag         string         `yaml:"tag"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Content     []string       `yaml:"content"`
	Keywords    []string       `yaml:"keywords"`
	Priority    *float64       `yaml:"priority"`
	Timestamp   time.Time      `yaml:"timestamp"`
	Link        string         `yaml:"link"`
	Path        string         `yaml:"path"`
	Image       string         `yaml:"image"`
	Meta        map[string]any `yaml:"meta"`
	Hidden      bool           `yaml:"hidden"`
	NoSitemap   bool           `yaml:"noSitemap"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			Database:        "sitesearch",
			User:            "sitesearch",
			Password:        "localdev",
			SSLMode:         "disable",
			Path:            "sitesearch.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ChunkSize:       50,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "sitesearch-group",
			Topics: KafkaTopics{
				ReindexRequests: "reindex-requests",
				IndexActivated:  "index-activated",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			CacheTTL:  60 * time.Second,
			Namespace: "sitesearch",
		},
		Indexer: IndexerConfig{
			BatchSize: 10,
			LoopGuard: 10000,
		},
		Search: SearchConfig{
			DefaultLimit:        10,
			MaxResults:          100,
			ContentMatchLength:  400,
			SimilarityThreshold: 0.85,
			AutocompletePadding: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("storage.driver %q: must be postgres or sqlite", c.Storage.Driver)
	}
	if c.Search.SimilarityThreshold <= 0 || c.Search.SimilarityThreshold > 1 {
		return fmt.Errorf("search.similarityThreshold %v: must be in (0, 1]", c.Search.SimilarityThreshold)
	}
	seen := make(map[string]struct{}, len(c.Domains))
	for _, d := range c.Domains {
		if d.Name == "" {
			return fmt.Errorf("domain without name")
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("domain %q declared twice", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// applyEnvOverrides reads SS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SS_SERVER_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SS_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("SS_STORAGE_HOST"); v != "" {
		cfg.Storage.Host = v
	}
	if v := os.Getenv("SS_STORAGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Port = port
		}
	}
	if v := os.Getenv("SS_STORAGE_DATABASE"); v != "" {
		cfg.Storage.Database = v
	}
	if v := os.Getenv("SS_STORAGE_USER"); v != "" {
		cfg.Storage.User = v
	}
	if v := os.Getenv("SS_STORAGE_PASSWORD"); v != "" {
		cfg.Storage.Password = v
	}
	if v := os.Getenv("SS_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("SS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("SS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SS_INDEXER_FILES_URL"); v != "" {
		cfg.Indexer.FilesURL = v
	}
	if v := os.Getenv("SS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
