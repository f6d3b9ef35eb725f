package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/pulse/analyst"
	"github.com/spektr-org/pulse/assistant"
	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/store"
	"github.com/spektr-org/pulse/translator"
)

// ============================================================================
// CONFIG — defaults ← .env ← YAML file ← environment
// ============================================================================

const (
	DefaultAddr            = ":8000"
	DefaultRateLimit       = 5.0
	DefaultRateBurst       = 10
	DefaultRequestTimeout  = 120 * time.Second
	DefaultDataPath        = "data/sales_facts.csv"
	DefaultCacheTTL        = time.Hour
	DefaultRefreshSchedule = ""
	DefaultTranslator      = "keyword"
	DefaultLogLevel        = "info"
)

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	LLM     LLMConfig     `yaml:"llm"`
	Analyst AnalystConfig `yaml:"analyst"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RateLimit      float64       `yaml:"rateLimit"` // requests per second per client, <= 0 disables
	RateBurst      int           `yaml:"rateBurst"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	AllowOrigins   []string      `yaml:"allowOrigins"`
}

type DataConfig struct {
	Source          string   `yaml:"source"` // file, sql, s3
	Path            string   `yaml:"path"`
	Sheet           string   `yaml:"sheet"`
	DatabaseURL     string   `yaml:"databaseUrl"`
	Table           string   `yaml:"table"`
	Query           string   `yaml:"query"`
	S3              S3Config `yaml:"s3"`
	RefreshSchedule string   `yaml:"refreshSchedule"` // cron spec, "" = reload only on demand
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type LLMConfig struct {
	Provider   string        `yaml:"provider"` // perplexity, openai, gemini
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"apiKey"`
	BaseURL    string        `yaml:"baseUrl"`
	RedisURL   string        `yaml:"redisUrl"`
	CacheTTL   time.Duration `yaml:"cacheTtl"`
	MaxTries   uint          `yaml:"maxTries"`
	Translator string        `yaml:"translator"` // keyword or llm
}

type AnalystConfig struct {
	MaxRows      int   `yaml:"maxRows"`
	MaxChars     int   `yaml:"maxChars"`
	HistoryTurns int   `yaml:"historyTurns"`
	RankingLimit int   `yaml:"rankingLimit"`
	Years        []int `yaml:"years"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           DefaultAddr,
			RateLimit:      DefaultRateLimit,
			RateBurst:      DefaultRateBurst,
			RequestTimeout: DefaultRequestTimeout,
			AllowOrigins:   []string{"http://localhost:3000"},
		},
		Data: DataConfig{
			Source:          store.KindFile,
			Path:            DefaultDataPath,
			Table:           store.DefaultTable,
			RefreshSchedule: DefaultRefreshSchedule,
		},
		LLM: LLMConfig{
			Provider:   assistant.ProviderPerplexity,
			Model:      assistant.DefaultPerplexityModel,
			CacheTTL:   DefaultCacheTTL,
			MaxTries:   assistant.DefaultRetryConfig().MaxTries,
			Translator: DefaultTranslator,
		},
		Analyst: AnalystConfig{
			MaxRows:      analyst.DefaultMaxRows,
			MaxChars:     analyst.DefaultMaxChars,
			HistoryTurns: analyst.DefaultHistoryTurns,
			RankingLimit: engine.DefaultRankingLimit,
			Years:        append([]int(nil), translator.DefaultYears...),
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if path is not
// empty), then applies environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// apiKeyEnv names the key variable of each provider.
var apiKeyEnv = map[string]string{
	assistant.ProviderPerplexity: "PPLX_API_KEY",
	assistant.ProviderOpenAI:     "OPENAI_API_KEY",
	assistant.ProviderGemini:     "GEMINI_API_KEY",
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "PULSE_ADDR")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PULSE_ADDR") == "" {
		cfg.Server.Addr = ":" + port
	}

	setString(&cfg.Data.Source, "PULSE_DATA_SOURCE")
	setString(&cfg.Data.Path, "PULSE_DATA_PATH")
	setString(&cfg.Data.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Data.Table, "PULSE_DATA_TABLE")
	setString(&cfg.Data.S3.Bucket, "PULSE_S3_BUCKET")
	setString(&cfg.Data.S3.Key, "PULSE_S3_KEY")
	setString(&cfg.Data.S3.Region, "AWS_REGION")
	setString(&cfg.Data.S3.Endpoint, "PULSE_S3_ENDPOINT")
	setString(&cfg.Data.RefreshSchedule, "PULSE_REFRESH_SCHEDULE")

	if p := os.Getenv("PULSE_LLM_PROVIDER"); p != "" {
		p = strings.ToLower(p)
		if p != cfg.LLM.Provider && os.Getenv("PULSE_LLM_MODEL") == "" {
			cfg.LLM.Model = "" // provider default
		}
		cfg.LLM.Provider = p
	}
	setString(&cfg.LLM.Model, "PULSE_LLM_MODEL")
	if env, ok := apiKeyEnv[cfg.LLM.Provider]; ok {
		setString(&cfg.LLM.APIKey, env)
	}
	setString(&cfg.LLM.APIKey, "PULSE_LLM_API_KEY")
	setString(&cfg.LLM.RedisURL, "REDIS_URL")
	setString(&cfg.LLM.Translator, "PULSE_TRANSLATOR")

	if v := os.Getenv("PULSE_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyst.MaxRows = n
		}
	}
	setString(&cfg.Log.Level, "LOG_LEVEL")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	switch strings.ToLower(c.Data.Source) {
	case store.KindFile:
		if c.Data.Path == "" {
			errs = append(errs, errors.New("data.path is required for the file source"))
		} else if _, err := store.FormatFromName(c.Data.Path); err != nil {
			errs = append(errs, err)
		}
	case store.KindSQL:
		if c.Data.DatabaseURL == "" {
			errs = append(errs, errors.New("data.databaseUrl (DATABASE_URL) is required for the sql source"))
		}
	case store.KindS3:
		if c.Data.S3.Bucket == "" || c.Data.S3.Key == "" {
			errs = append(errs, errors.New("data.s3.bucket and data.s3.key are required for the s3 source"))
		}
	default:
		errs = append(errs, fmt.Errorf("data.source %q must be file, sql or s3", c.Data.Source))
	}

	if _, ok := apiKeyEnv[c.LLM.Provider]; !ok {
		errs = append(errs, fmt.Errorf("llm.provider %q must be perplexity, openai or gemini", c.LLM.Provider))
	}
	if c.LLM.Translator != "keyword" && c.LLM.Translator != "llm" {
		errs = append(errs, fmt.Errorf("llm.translator %q must be keyword or llm", c.LLM.Translator))
	}
	if c.Analyst.MaxRows < 0 || c.Analyst.MaxChars < 0 || c.Analyst.HistoryTurns < 0 {
		errs = append(errs, errors.New("analyst limits must not be negative"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// HasLLM reports whether narrative answers can be requested.
func (c *Config) HasLLM() bool { return c.LLM.APIKey != "" }

// StoreSettings maps the data section onto store.Open.
func (c *Config) StoreSettings() store.Settings {
	return store.Settings{
		Kind:        c.Data.Source,
		Path:        c.Data.Path,
		Sheet:       c.Data.Sheet,
		DatabaseURL: c.Data.DatabaseURL,
		Table:       c.Data.Table,
		Query:       c.Data.Query,
		S3: store.S3Config{
			Bucket:   c.Data.S3.Bucket,
			Key:      c.Data.S3.Key,
			Region:   c.Data.S3.Region,
			Endpoint: c.Data.S3.Endpoint,
			Sheet:    c.Data.Sheet,
		},
	}
}

// GatewaySettings maps the llm section onto assistant.Build.
func (c *Config) GatewaySettings() assistant.Settings {
	retry := assistant.DefaultRetryConfig()
	if c.LLM.MaxTries > 0 {
		retry.MaxTries = c.LLM.MaxTries
	}
	return assistant.Settings{
		Provider: c.LLM.Provider,
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
		RedisURL: c.LLM.RedisURL,
		CacheTTL: c.LLM.CacheTTL,
		Retry:    retry,
	}
}

// Logger builds a zap logger at the configured level.
func (c LogConfig) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
