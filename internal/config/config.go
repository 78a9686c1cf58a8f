// Package config loads constellation.config.json and overlays the
// environment on top of it.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	FileName = "constellation.config.json"

	DefaultMaxContentChars   = 50000
	DefaultOutputDir         = "root"
	DefaultSummaryFileName   = "summary.md"
	DefaultDiagramFileName   = "mermaid.md"
	DefaultMaxTokens         = 2048
	DefaultTemperature       = 0.7
	DefaultRetries           = 3
	DefaultRetryDelaySeconds = 5

	// PlaceholderAPIKey is what the sample config ships with; it counts as unset.
	PlaceholderAPIKey = "YOUR_API_KEY_HERE"
)

var (
	ErrNotFound = errors.New("config: file not found")
	ErrEmpty    = errors.New("config: configuration is empty")
)

type Config struct {
	SourceFileExtensions []string     `json:"sourceFileExtensions"`
	Ignore               []string     `json:"ignore"`
	MaxContentChars      int          `json:"maxContentChars"`
	LLM                  LLMConfig    `json:"llm"`
	Output               OutputConfig `json:"output"`
	PromptLogDir         string       `json:"promptLogDir"`
}

type LLMConfig struct {
	Provider string      `json:"provider"`
	APIKey   string      `json:"apiKey"`
	Model    string      `json:"model"`
	BaseURL  string      `json:"baseURL"`
	Settings LLMSettings `json:"settings"`
	Retries  int         `json:"retries"`
	// RetryDelaySeconds is a pointer so an explicit 0 disables the wait.
	RetryDelaySeconds *float64 `json:"retryDelaySeconds"`
	RPS               float64  `json:"rps"`
	Burst             int      `json:"burst"`
}

type LLMSettings struct {
	MaxTokens   int      `json:"maxTokens"`
	Temperature *float64 `json:"temperature"`
}

type OutputConfig struct {
	Dir             string         `json:"dir"`
	Store           string         `json:"store"`
	SummaryFileName string         `json:"summaryFileName"`
	DiagramFileName string         `json:"diagramFileName"`
	S3              S3Config       `json:"s3"`
	Postgres        PostgresConfig `json:"postgres"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	UseSSL    bool   `json:"useSSL"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

// Load reads the config file at path, applies .env and environment overrides,
// fills defaults and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	if path == "" {
		path = FileName
	}
	if envFile := filepath.Join(filepath.Dir(path), ".env"); envFile != ".env" {
		_ = godotenv.Load(envFile)
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a config document, then applies environment overrides,
// defaults and validation.
func Parse(raw []byte) (*Config, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if len(probe) == 0 {
		return nil, ErrEmpty
	}
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.LLM.Provider = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_LLM_PROVIDER")), c.LLM.Provider)
	c.LLM.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_LLM_MODEL")), c.LLM.Model)
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case "", "gemini":
		c.LLM.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), c.LLM.APIKey)
	case "groq":
		c.LLM.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("GROQ_API_KEY")), c.LLM.APIKey)
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv("LLM_RPS")), 64); err == nil {
		c.LLM.RPS = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv("LLM_BURST"))); err == nil {
		c.LLM.Burst = v
	}

	c.Output.Dir = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_OUTPUT_DIR")), c.Output.Dir)
	c.Output.Store = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_STORE")), c.Output.Store)
	c.Output.Postgres.DSN = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_PG_DSN")), c.Output.Postgres.DSN)

	s3 := &c.Output.S3
	s3.Endpoint = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_S3_ENDPOINT")), s3.Endpoint)
	s3.Region = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_S3_REGION")), s3.Region)
	s3.AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), s3.AccessKey)
	s3.SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), s3.SecretKey)
	s3.Bucket = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_S3_BUCKET")), s3.Bucket)
	s3.Prefix = firstNonEmpty(strings.TrimSpace(os.Getenv("CONSTELLATION_S3_PREFIX")), s3.Prefix)
	if raw := strings.TrimSpace(os.Getenv("CONSTELLATION_S3_USE_SSL")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			s3.UseSSL = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = DefaultMaxContentChars
	}
	c.LLM.Provider = strings.ToLower(firstNonEmpty(strings.TrimSpace(c.LLM.Provider), "gemini"))
	if c.LLM.Settings.MaxTokens <= 0 {
		c.LLM.Settings.MaxTokens = DefaultMaxTokens
	}
	if c.LLM.Settings.Temperature == nil {
		v := DefaultTemperature
		c.LLM.Settings.Temperature = &v
	}
	if c.LLM.Retries <= 0 {
		c.LLM.Retries = DefaultRetries
	}
	if c.LLM.RetryDelaySeconds == nil || *c.LLM.RetryDelaySeconds < 0 {
		v := float64(DefaultRetryDelaySeconds)
		c.LLM.RetryDelaySeconds = &v
	}
	c.Output.Dir = firstNonEmpty(c.Output.Dir, DefaultOutputDir)
	c.Output.Store = strings.ToLower(firstNonEmpty(strings.TrimSpace(c.Output.Store), "fs"))
	c.Output.SummaryFileName = firstNonEmpty(strings.TrimSpace(c.Output.SummaryFileName), DefaultSummaryFileName)
	c.Output.DiagramFileName = firstNonEmpty(strings.TrimSpace(c.Output.DiagramFileName), DefaultDiagramFileName)
}

// Validate reports configuration a run cannot start with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "groq":
		if !HasAPIKey(c.LLM.APIKey) {
			return fmt.Errorf("config: llm.apiKey is not set for provider %q", c.LLM.Provider)
		}
	case "fake":
	default:
		return fmt.Errorf("config: unknown llm.provider %q (want gemini, groq or fake)", c.LLM.Provider)
	}
	switch c.Output.Store {
	case "fs", "memory", "s3", "postgres":
	default:
		return fmt.Errorf("config: unknown output.store %q (want fs, memory, s3 or postgres)", c.Output.Store)
	}
	for _, name := range []string{c.Output.SummaryFileName, c.Output.DiagramFileName} {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("config: output file name %q must not contain a path separator", name)
		}
	}
	if c.Output.SummaryFileName == c.Output.DiagramFileName {
		return fmt.Errorf("config: summary and diagram file names must differ")
	}
	return nil
}

// RetryDelay returns the fixed wait between generation attempts.
func (c *Config) RetryDelay() time.Duration {
	if c.LLM.RetryDelaySeconds == nil {
		return DefaultRetryDelaySeconds * time.Second
	}
	return time.Duration(*c.LLM.RetryDelaySeconds * float64(time.Second))
}

// Temperature returns the configured sampling temperature.
func (c *Config) Temperature() float64 {
	if c.LLM.Settings.Temperature == nil {
		return DefaultTemperature
	}
	return *c.LLM.Settings.Temperature
}

// HasAPIKey reports whether key is a usable credential.
func HasAPIKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderAPIKey
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
