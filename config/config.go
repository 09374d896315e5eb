package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for fincheck.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Verdict   VerdictConfig   `yaml:"verdict"`
	Online    OnlineConfig    `yaml:"online"`
	Chat      ChatConfig      `yaml:"chat"`
	Server    ServerConfig    `yaml:"server"`
	Keywords  KeywordsConfig  `yaml:"keywords"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CorpusConfig describes the raw evidence directory.
type CorpusConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// IndexConfig holds indexing configuration.
type IndexConfig struct {
	Path string `yaml:"path"`
	// MetadataPath is accepted for compatibility. Vectors and metadata live
	// in the single file at Path.
	MetadataPath string `yaml:"metadata_path,omitempty"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider       string  `yaml:"provider"` // "openai" or "hash"
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	Dimension      int     `yaml:"dimension"`
	BatchSize      int     `yaml:"batch_size"`
	TimeoutSeconds float64 `yaml:"timeout_s"`
	CacheSize      int     `yaml:"cache_size"`
}

// LLMConfig holds chat model configuration.
type LLMConfig struct {
	Model          string  `yaml:"model"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	Temperature    float32 `yaml:"temperature"`
	TimeoutSeconds float64 `yaml:"timeout_s"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK            int `yaml:"top_k"`
	CacheSize       int `yaml:"cache_size"`
	CacheTTLSeconds int `yaml:"cache_ttl_s"`
}

// VerdictConfig holds the confidence thresholds.
type VerdictConfig struct {
	SupportedTh float64 `yaml:"supported_th"`
	// UncertainTh is reserved. It is loaded and reported but no decision
	// reads it.
	UncertainTh float64 `yaml:"uncertain_th"`
}

// OnlineConfig holds the online fallback configuration.
type OnlineConfig struct {
	FallbackEnabled bool     `yaml:"fallback_enabled"`
	Days            int      `yaml:"days"`
	TopK            int      `yaml:"top_k"`
	TimeoutSeconds  float64  `yaml:"timeout_s"`
	AllowDomains    string   `yaml:"allow_domains"`
	NewsAPIKeyEnv   string   `yaml:"news_api_key_env"`
	NewsAPIURL      string   `yaml:"news_api_url"`
	FeedFiles       []string `yaml:"feed_files"`
	UserAgent       string   `yaml:"user_agent"`
	MinWords        int      `yaml:"min_words"`
	HostIntervalMS  int      `yaml:"host_interval_ms"`
}

// ChatConfig holds chat session configuration.
type ChatConfig struct {
	HistoryLimit      int    `yaml:"history_limit"`
	SessionStore      string `yaml:"session_store"` // "memory" or "bolt"
	SessionPath       string `yaml:"session_path"`
	MaxSessions       int    `yaml:"max_sessions"`  // memory store only
	SessionTTLSeconds int    `yaml:"session_ttl_s"` // memory store only
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	RequestTimeoutS    float64  `yaml:"request_timeout_s"`
}

// KeywordsConfig holds keyword extraction configuration.
type KeywordsConfig struct {
	SymbolsFile string `yaml:"symbols_file"`
	Max         int    `yaml:"max"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"` // "json" or "text"
	QueryLog string `yaml:"query_log"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Dir:      filepath.Join("data", "evidence_raw"),
			Includes: []string{"**/*.txt"},
			Excludes: []string{"**/.git/**"},
		},
		Index: IndexConfig{
			Path:         filepath.Join("index", "fincheck.db"),
			ChunkSize:    200,
			ChunkOverlap: 40,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      1536,
			BatchSize:      100,
			TimeoutSeconds: 60,
			CacheSize:      1000,
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    0,
			TimeoutSeconds: 60,
		},
		Retrieve: RetrieveConfig{
			TopK:            5,
			CacheSize:       256,
			CacheTTLSeconds: 300,
		},
		Verdict: VerdictConfig{
			SupportedTh: 0.55,
			UncertainTh: 0.35,
		},
		Online: OnlineConfig{
			FallbackEnabled: true,
			Days:            14,
			TopK:            3,
			TimeoutSeconds:  6,
			AllowDomains:    "reuters.com,apnews.com,wsj.com,bloomberg.com,sec.gov,investor.*",
			NewsAPIKeyEnv:   "NEWS_API_KEY",
			FeedFiles: []string{
				filepath.Join("data", "feeds", "rss_feeds.txt"),
				filepath.Join("data", "feeds", "press_releases.txt"),
			},
			UserAgent:      "fincheck/1.0",
			MinWords:       40,
			HostIntervalMS: 200,
		},
		Chat: ChatConfig{
			HistoryLimit:      12,
			SessionStore:      "memory",
			SessionPath:       filepath.Join("index", "sessions.db"),
			MaxSessions:       10000,
			SessionTTLSeconds: 86400,
		},
		Server: ServerConfig{
			Addr: ":8000",
			CORSAllowedOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
				"http://[::1]:3000",
			},
			RequestTimeoutS: 120,
		},
		Keywords: KeywordsConfig{
			SymbolsFile: filepath.Join("data", "symbols.txt"),
			Max:         6,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			QueryLog: filepath.Join("data", "logs", "queries.jsonl"),
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for fincheck.yaml,
// then .fincheck/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "fincheck.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".fincheck", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Resolve loads the file configuration (path when given, otherwise from
// dir), applies environment overrides, makes relative paths relative to dir
// and validates the result.
func Resolve(dir, path string) (*Config, error) {
	var cfg *Config
	var err error
	if path != "" {
		cfg, err = Load(path)
	} else {
		cfg, err = LoadFromDir(dir)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.ResolvePaths(dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOverrides maps the environment variables fincheck honours. Unset
// variables leave the file configuration untouched.
type envOverrides struct {
	EmbeddingModel     *string  `envconfig:"EMBEDDING_MODEL"`
	TopK               *int     `envconfig:"TOP_K"`
	IndexPath          *string  `envconfig:"INDEX_PATH"`
	MetadataPath       *string  `envconfig:"METADATA_PATH"`
	OpenAIBaseURL      *string  `envconfig:"OPENAI_BASE_URL"`
	ChatModel          *string  `envconfig:"OPENAI_CHAT_MODEL"`
	SupportedTh        *float64 `envconfig:"SUPPORTED_TH"`
	UncertainTh        *float64 `envconfig:"UNCERTAIN_TH"`
	FallbackEnabled    *bool    `envconfig:"ONLINE_FALLBACK_ENABLED"`
	OnlineDays         *int     `envconfig:"ONLINE_DAYS"`
	OnlineTopK         *int     `envconfig:"ONLINE_TOP_K"`
	OnlineTimeout      *float64 `envconfig:"ONLINE_TIMEOUT_S"`
	AllowDomains       *string  `envconfig:"ONLINE_ALLOW_DOMAINS"`
	CORSAllowedOrigins *string  `envconfig:"CORS_ALLOWED_ORIGINS"`
	UserAgent          *string  `envconfig:"NEWS_USER_AGENT"`
	LogLevel           *string  `envconfig:"LOG_LEVEL"`
}

// ApplyEnv overlays environment variables onto the configuration.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	setString(&c.Embedding.Model, env.EmbeddingModel)
	setInt(&c.Retrieve.TopK, env.TopK)
	setString(&c.Index.Path, env.IndexPath)
	setString(&c.Index.MetadataPath, env.MetadataPath)
	if env.OpenAIBaseURL != nil {
		c.Embedding.BaseURL = *env.OpenAIBaseURL
		c.LLM.BaseURL = *env.OpenAIBaseURL
	}
	setString(&c.LLM.Model, env.ChatModel)
	setFloat(&c.Verdict.SupportedTh, env.SupportedTh)
	setFloat(&c.Verdict.UncertainTh, env.UncertainTh)
	if env.FallbackEnabled != nil {
		c.Online.FallbackEnabled = *env.FallbackEnabled
	}
	setInt(&c.Online.Days, env.OnlineDays)
	setInt(&c.Online.TopK, env.OnlineTopK)
	setFloat(&c.Online.TimeoutSeconds, env.OnlineTimeout)
	setString(&c.Online.AllowDomains, env.AllowDomains)
	if env.CORSAllowedOrigins != nil {
		c.Server.CORSAllowedOrigins = SplitList(*env.CORSAllowedOrigins)
	}
	setString(&c.Online.UserAgent, env.UserAgent)
	setString(&c.Logging.Level, env.LogLevel)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// ResolvePaths makes relative file paths relative to dir.
func (c *Config) ResolvePaths(dir string) {
	for _, p := range []*string{
		&c.Corpus.Dir,
		&c.Index.Path,
		&c.Index.MetadataPath,
		&c.Chat.SessionPath,
		&c.Keywords.SymbolsFile,
		&c.Logging.QueryLog,
	} {
		*p = join(dir, *p)
	}
	for i := range c.Online.FeedFiles {
		c.Online.FeedFiles[i] = join(dir, c.Online.FeedFiles[i])
	}
}

func join(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(msg, args...))
		}
	}

	check(c.Index.Path != "", "index.path is required")
	check(c.Index.ChunkSize > 0, "index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	check(c.Index.ChunkOverlap >= 0, "index.chunk_overlap must not be negative, got %d", c.Index.ChunkOverlap)
	check(c.Embedding.Provider == "openai" || c.Embedding.Provider == "hash", "embedding.provider must be openai or hash, got %q", c.Embedding.Provider)
	check(c.Retrieve.TopK > 0, "retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	check(inUnit(c.Verdict.SupportedTh), "verdict.supported_th must be within [0,1], got %g", c.Verdict.SupportedTh)
	check(inUnit(c.Verdict.UncertainTh), "verdict.uncertain_th must be within [0,1], got %g", c.Verdict.UncertainTh)
	check(c.Online.Days > 0, "online.days must be positive, got %d", c.Online.Days)
	check(c.Online.TopK > 0, "online.top_k must be positive, got %d", c.Online.TopK)
	check(c.Online.TimeoutSeconds > 0, "online.timeout_s must be positive, got %g", c.Online.TimeoutSeconds)
	check(c.Chat.HistoryLimit > 0, "chat.history_limit must be positive, got %d", c.Chat.HistoryLimit)
	check(c.Chat.MaxSessions > 0, "chat.max_sessions must be positive, got %d", c.Chat.MaxSessions)
	check(c.Chat.SessionTTLSeconds >= 0, "chat.session_ttl_s must not be negative, got %d", c.Chat.SessionTTLSeconds)
	check(c.Chat.SessionStore == "memory" || c.Chat.SessionStore == "bolt", "chat.session_store must be memory or bolt, got %q", c.Chat.SessionStore)
	check(c.Logging.Format == "json" || c.Logging.Format == "text", "logging.format must be json or text, got %q", c.Logging.Format)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func inUnit(f float64) bool {
	return f >= 0 && f <= 1
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EmbeddingTimeout returns the per-request embedding timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return seconds(c.Embedding.TimeoutSeconds)
}

// LLMTimeout returns the per-request completion timeout.
func (c *Config) LLMTimeout() time.Duration {
	return seconds(c.LLM.TimeoutSeconds)
}

// OnlineTimeout returns the per-call online fetch timeout.
func (c *Config) OnlineTimeout() time.Duration {
	return seconds(c.Online.TimeoutSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// SplitList splits a comma-separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
