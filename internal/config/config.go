// Package config loads daemon and CLI settings: defaults, then an optional
// YAML file, then CELERIX_IVR_* environment variables (a .env file is read
// first when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding the YAML config path.
const FileEnv = "CELERIX_IVR_CONFIG"

// Store backends.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendDynamo = "dynamodb"
)

type Config struct {
	HTTPPort  string `yaml:"http_port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Store      StoreConfig      `yaml:"store"`
	AWS        AWSConfig        `yaml:"aws"`
	Recordings RecordingsConfig `yaml:"recordings"`
	SQL        SQLConfig        `yaml:"sql"`
	AI         AIConfig         `yaml:"ai"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`

	// SecretSource is "env" (local) or "aws" (Secrets Manager).
	SecretSource string `yaml:"secret_source"`
}

type StoreConfig struct {
	// Backend is memory, bolt or dynamodb.
	Backend  string `yaml:"backend"`
	BoltPath string `yaml:"bolt_path"`

	CallerTable  string `yaml:"caller_table"`
	CounterTable string `yaml:"counter_table"`
	PromptTable  string `yaml:"prompt_table"`

	// Partition key attribute names, DynamoDB only.
	CallerKey  string `yaml:"caller_key"`
	CounterKey string `yaml:"counter_key"`
	PromptKey  string `yaml:"prompt_key"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
}

type RecordingsConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type SQLConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	DSNSecretID string `yaml:"dsn_secret_id"`
}

type AIConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	APIKeySecretID string `yaml:"api_key_secret_id"`
}

type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	JWTSecretID string `yaml:"jwt_secret_id"`
	Audience    string `yaml:"audience"`
	Issuer      string `yaml:"issuer"`
}

type SessionConfig struct {
	// Format is json or cbor.
	Format             string `yaml:"format"`
	SealingKey         string `yaml:"sealing_key"`
	SealingKeySecretID string `yaml:"sealing_key_secret_id"`
}

// Default returns a config that runs entirely on the local machine.
func Default() *Config {
	return &Config{
		HTTPPort:  "7002",
		LogLevel:  "info",
		LogFormat: "json",
		Store: StoreConfig{
			Backend:      BackendBolt,
			BoltPath:     "./data/ivr.db",
			CallerTable:  "caller_tokens",
			CounterTable: "job_candidate_counts",
			PromptTable:  "job_prompts",
			CallerKey:    "token",
			CounterKey:   "jobPostId",
			PromptKey:    "jobPostId",
		},
		Recordings:   RecordingsConfig{Prefix: "recordings"},
		SQL:          SQLConfig{Driver: "sqlite", DSN: "./data/results.db"},
		AI:           AIConfig{Model: "gpt-4o-mini"},
		Session:      SessionConfig{Format: "json"},
		SecretSource: "env",
	}
}

// Load reads .env (if any), then the YAML file named by CELERIX_IVR_CONFIG
// (if set), then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) envBindings() map[string]*string {
	return map[string]*string{
		"CELERIX_IVR_HTTP_PORT":             &c.HTTPPort,
		"CELERIX_IVR_LOG_LEVEL":             &c.LogLevel,
		"CELERIX_IVR_LOG_FORMAT":            &c.LogFormat,
		"CELERIX_IVR_STORE_BACKEND":         &c.Store.Backend,
		"CELERIX_IVR_BOLT_PATH":             &c.Store.BoltPath,
		"CELERIX_IVR_CALLER_TABLE":          &c.Store.CallerTable,
		"CELERIX_IVR_COUNTER_TABLE":         &c.Store.CounterTable,
		"CELERIX_IVR_PROMPT_TABLE":          &c.Store.PromptTable,
		"CELERIX_IVR_AWS_REGION":            &c.AWS.Region,
		"CELERIX_IVR_RECORDINGS_BUCKET":     &c.Recordings.Bucket,
		"CELERIX_IVR_RECORDINGS_PREFIX":     &c.Recordings.Prefix,
		"CELERIX_IVR_SQL_DRIVER":            &c.SQL.Driver,
		"CELERIX_IVR_SQL_DSN":               &c.SQL.DSN,
		"CELERIX_IVR_SQL_DSN_SECRET_ID":     &c.SQL.DSNSecretID,
		"CELERIX_IVR_AI_BASE_URL":           &c.AI.BaseURL,
		"CELERIX_IVR_AI_MODEL":              &c.AI.Model,
		"CELERIX_IVR_AI_API_KEY":            &c.AI.APIKey,
		"CELERIX_IVR_AI_API_KEY_SECRET_ID":  &c.AI.APIKeySecretID,
		"CELERIX_IVR_JWT_SECRET":            &c.Auth.JWTSecret,
		"CELERIX_IVR_JWT_SECRET_ID":         &c.Auth.JWTSecretID,
		"CELERIX_IVR_JWT_AUDIENCE":          &c.Auth.Audience,
		"CELERIX_IVR_JWT_ISSUER":            &c.Auth.Issuer,
		"CELERIX_IVR_SESSION_FORMAT":        &c.Session.Format,
		"CELERIX_IVR_SEALING_KEY":           &c.Session.SealingKey,
		"CELERIX_IVR_SEALING_KEY_SECRET_ID": &c.Session.SealingKeySecretID,
		"CELERIX_IVR_SECRET_SOURCE":         &c.SecretSource,
	}
}

func (c *Config) applyEnv() {
	for name, field := range c.envBindings() {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*field = v
		}
	}
}

// Validate rejects settings the daemon cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendBolt, BackendDynamo:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.Backend == BackendBolt && c.Store.BoltPath == "" {
		errs = append(errs, errors.New("store.bolt_path: required for the bolt backend"))
	}
	if c.Store.CallerTable == "" || c.Store.CounterTable == "" || c.Store.PromptTable == "" {
		errs = append(errs, errors.New("store: table names must not be empty"))
	}
	switch c.SecretSource {
	case "env", "aws":
	default:
		errs = append(errs, fmt.Errorf("secret_source: unknown source %q", c.SecretSource))
	}
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("http_port: required"))
	}
	return errors.Join(errs...)
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.Store.Backend == BackendDynamo || c.Recordings.Bucket != "" || c.SecretSource == "aws"
}

// TableKeys maps table names to DynamoDB partition key attributes.
func (c *Config) TableKeys() map[string]string {
	return map[string]string{
		c.Store.CallerTable:  c.Store.CallerKey,
		c.Store.CounterTable: c.Store.CounterKey,
		c.Store.PromptTable:  c.Store.PromptKey,
	}
}

// EnvNames lists every environment variable Load honours, for help output.
func EnvNames() []string {
	names := make([]string, 0, 32)
	for name := range Default().envBindings() {
		names = append(names, name)
	}
	names = append(names, FileEnv)
	sort.Strings(names)
	return names
}
