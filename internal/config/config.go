// Package config loads runtime settings from .env, an optional YAML file
// and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`

	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Archive  ArchiveConfig  `yaml:"archive_store"`

	// UsageLedgerPath enables the JSON usage ledger when set.
	UsageLedgerPath string `yaml:"usage_ledger_path"`
	// DatabaseURL enables the Postgres usage ledger when set.
	DatabaseURL string `yaml:"database_url"`
}

type LLMConfig struct {
	APIKey                 string  `yaml:"api_key"`
	Model                  string  `yaml:"model"`
	RPS                    float64 `yaml:"rps"`
	Burst                  int     `yaml:"burst"`
	RetryAttempts          int     `yaml:"retry_attempts"`
	SummarizeTemperature   float64 `yaml:"summarize_temperature"`
	ReportTemperature      float64 `yaml:"report_temperature"`
	SummaryMaxOutputTokens int     `yaml:"summary_max_output_tokens"`
}

type AnalysisConfig struct {
	MaxCandidateFiles int    `yaml:"max_candidate_files"`
	MaxFileBytes      int64  `yaml:"max_file_bytes"`
	MaxTokensPerChunk int    `yaml:"max_tokens_per_chunk"`
	MaxPromptTokens   int    `yaml:"max_prompt_tokens"`
	OutputLanguage    string `yaml:"output_language"`
	Workers           int    `yaml:"workers"`
	RespectGitignore  bool   `yaml:"respect_gitignore"`
}

// ArchiveConfig points at the S3-compatible bucket archives can be read from.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (a ArchiveConfig) Enabled() bool { return strings.TrimSpace(a.Endpoint) != "" }

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port: ":8000",
		Env:  "development",
		LLM: LLMConfig{
			Model:                  "gemini-2.5-flash",
			RetryAttempts:          3,
			SummarizeTemperature:   0.1,
			ReportTemperature:      0.0,
			SummaryMaxOutputTokens: 300,
		},
		Analysis: AnalysisConfig{
			MaxCandidateFiles: 200,
			MaxFileBytes:      200_000,
			MaxTokensPerChunk: 1800,
			MaxPromptTokens:   10_000,
			OutputLanguage:    "Simplified Chinese",
			Workers:           1,
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
			Bucket: "ai-reviewer-uploads",
			UseSSL: true,
		},
	}
}

// Load reads .env (if present), overlays the YAML file at path (if
// non-empty) and finally applies environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Port = NormalizePort(cfg.Port)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	bytesize := func(key string, dst *int64) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("PORT", &cfg.Port)
	str("APP_ENV", &cfg.Env)

	str("GEMINI_API_KEY", &cfg.LLM.APIKey)
	str("LLM_MODEL", &cfg.LLM.Model)
	float("LLM_RPS", &cfg.LLM.RPS)
	integer("LLM_BURST", &cfg.LLM.Burst)
	integer("LLM_RETRY_ATTEMPTS", &cfg.LLM.RetryAttempts)
	float("SUMMARIZE_TEMPERATURE", &cfg.LLM.SummarizeTemperature)
	float("REPORT_TEMPERATURE", &cfg.LLM.ReportTemperature)
	integer("SUMMARY_MAX_OUTPUT_TOKENS", &cfg.LLM.SummaryMaxOutputTokens)

	integer("MAX_CANDIDATE_FILES", &cfg.Analysis.MaxCandidateFiles)
	bytesize("MAX_FILE_BYTES", &cfg.Analysis.MaxFileBytes)
	integer("MAX_TOKENS_PER_CHUNK", &cfg.Analysis.MaxTokensPerChunk)
	integer("MAX_PROMPT_TOKENS", &cfg.Analysis.MaxPromptTokens)
	str("OUTPUT_LANGUAGE", &cfg.Analysis.OutputLanguage)
	integer("SUMMARIZE_WORKERS", &cfg.Analysis.Workers)
	boolean("RESPECT_GITIGNORE", &cfg.Analysis.RespectGitignore)

	str("USAGE_LEDGER_PATH", &cfg.UsageLedgerPath)
	str("DATABASE_URL", &cfg.DatabaseURL)

	str("ARCHIVE_S3_ENDPOINT", &cfg.Archive.Endpoint)
	str("ARCHIVE_S3_REGION", &cfg.Archive.Region)
	cfg.Archive.AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), cfg.Archive.AccessKey)
	cfg.Archive.SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), cfg.Archive.SecretKey)
	str("ARCHIVE_S3_BUCKET", &cfg.Archive.Bucket)
	boolean("ARCHIVE_S3_USE_SSL", &cfg.Archive.UseSSL)

	return errors.Join(errs...)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v int64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("max_candidate_files", int64(c.Analysis.MaxCandidateFiles))
	positive("max_file_bytes", c.Analysis.MaxFileBytes)
	positive("max_tokens_per_chunk", int64(c.Analysis.MaxTokensPerChunk))
	positive("max_prompt_tokens", int64(c.Analysis.MaxPromptTokens))
	positive("workers", int64(c.Analysis.Workers))
	if c.LLM.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry_attempts must be at least 1, got %d", c.LLM.RetryAttempts))
	}
	if c.LLM.RPS < 0 {
		errs = append(errs, fmt.Errorf("rps must not be negative"))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, errors.New("llm model is required"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// NormalizePort turns a bare port number into a listen address.
func NormalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
