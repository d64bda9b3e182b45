package model

import "time"

// Config holds the complete SnapMed configuration
type Config struct {
	Environment  string             `yaml:"environment" mapstructure:"environment"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Extract      ExtractConfig      `yaml:"extract" mapstructure:"extract"`
	DrugAPI      DrugAPIConfig      `yaml:"drug_api" mapstructure:"drug_api"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	History      HistoryConfig      `yaml:"history" mapstructure:"history"`
	Auth         AuthConfig         `yaml:"auth" mapstructure:"auth"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Address        string        `yaml:"address" mapstructure:"address"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	BodyLimit      string        `yaml:"body_limit" mapstructure:"body_limit"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	Metrics        bool          `yaml:"metrics" mapstructure:"metrics"`
}

// LLMConfig configures the vision oracle
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // gemini, openai, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds, 0 = none
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ExtractConfig configures how oracle replies are parsed
type ExtractConfig struct {
	Parser string `yaml:"parser" mapstructure:"parser"` // lines, json
	Prompt string `yaml:"prompt,omitempty" mapstructure:"prompt"`
}

// DrugAPIConfig configures the drug metadata provider
type DrugAPIConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Host    string        `yaml:"host" mapstructure:"host"`
	Key     string        `yaml:"-" mapstructure:"key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"` // 0 = none
}

// StoreConfig configures the history database
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite, mysql
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
	Debug  bool   `yaml:"debug" mapstructure:"debug"`
}

// HistoryConfig configures history behavior
type HistoryConfig struct {
	AutoSave bool   `yaml:"auto_save" mapstructure:"auto_save"`
	Query    string `yaml:"query" mapstructure:"query"` // scan, indexed
}

// AuthConfig configures the session gate
type AuthConfig struct {
	Provider  string            `yaml:"provider" mapstructure:"provider"` // appwrite, static
	Endpoint  string            `yaml:"endpoint" mapstructure:"endpoint"`
	ProjectID string            `yaml:"project_id" mapstructure:"project_id"`
	APIKey    string            `yaml:"-" mapstructure:"api_key"`
	Sessions  map[string]string `yaml:"sessions,omitempty" mapstructure:"sessions"` // static: sessionId -> userId
}

// HTTPConfig holds outbound HTTP settings shared by clients
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the drug lookup cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitingConfig configures outbound rate limiting (0 rps disables it)
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig configures the batch command
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LoggingConfig configures logrus
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Address: ":3000",
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
			},
			BodyLimit:    "10M",
			ReadTimeout:  2 * time.Minute,
			WriteTimeout: 2 * time.Minute,
			Metrics:      true,
		},
		LLM: LLMConfig{
			Provider:  "gemini",
			Model:     "gemini-2.0-flash",
			MaxTokens: 512,
		},
		Extract: ExtractConfig{
			Parser: "lines",
		},
		DrugAPI: DrugAPIConfig{
			Host: "drug-info-and-price-history.p.rapidapi.com",
			URL:  "https://drug-info-and-price-history.p.rapidapi.com/1/druginfo",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "snapmed.db",
		},
		History: HistoryConfig{
			AutoSave: true,
			Query:    "scan",
		},
		Auth: AuthConfig{
			Provider: "appwrite",
		},
		HTTP: HTTPConfig{
			UserAgent: "SnapMed/0.1 (+https://github.com/ppiankov/snapmed)",
		},
		Cache: CacheConfig{
			Enabled:   false,
			MemoryTTL: time.Hour,
			DiskDir:   ".snapmed-cache",
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 0,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// IsProduction reports whether internal error detail must be withheld
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
