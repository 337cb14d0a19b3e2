// Package config declares the crisisd process configuration: a plain Go
// struct populated first from an optional YAML file and then overridden by
// command-line flags, following the flag-first, env-overridable convention
// of the cmd/ entrypoint this module descends from.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration for crisisd.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	AnthropicAPIKey  string        `yaml:"-"`
	DefaultModel     string        `yaml:"default_model"`
	SmallModel       string        `yaml:"small_model"`
	ModelMaxTokens   int           `yaml:"model_max_tokens"`
	ModelTemperature float64       `yaml:"model_temperature"`
	ModelTimeout     time.Duration `yaml:"model_timeout"`

	RateLimitInitialTPM float64 `yaml:"rate_limit_initial_tpm"`
	RateLimitMaxTPM     float64 `yaml:"rate_limit_max_tpm"`

	MongoURI          string        `yaml:"mongo_uri"`
	MongoDatabase     string        `yaml:"mongo_database"`
	RedisAddr         string        `yaml:"redis_addr"`
	RegistrySyncEvery time.Duration `yaml:"registry_sync_every"`

	Debug bool `yaml:"debug"`
}

// Default returns the configuration's baseline values, applied before any
// YAML file or flag override.
func Default() Config {
	return Config{
		HTTPAddr:            ":8080",
		DefaultModel:        "claude-sonnet-4-5",
		SmallModel:          "claude-haiku-4-5",
		ModelMaxTokens:      1024,
		ModelTemperature:    0.3,
		ModelTimeout:        20 * time.Second,
		RateLimitInitialTPM: 60000,
		RateLimitMaxTPM:     240000,
		MongoDatabase:       "crisis_registry",
		RegistrySyncEvery:   5 * time.Minute,
	}
}

// Load builds a Config from the baseline defaults, an optional YAML file,
// and the given command-line args. The YAML file (named by -config, or a
// file at configPath when non-empty) overrides the baseline defaults, and
// any flag the caller actually passed on the command line overrides the
// YAML file in turn, matching the layering the cmd/ entrypoints in this
// codebase use for every service.
func Load(args []string, configPath string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("crisisd", flag.ContinueOnError)
	configPathF := fs.String("config", configPath, "path to an optional YAML configuration file")
	httpAddr := fs.String("http-addr", cfg.HTTPAddr, "address to listen on for the HTTP API")
	defaultModel := fs.String("default-model", cfg.DefaultModel, "model identifier used for collaborative turns")
	smallModel := fs.String("small-model", cfg.SmallModel, "model identifier used for model.ModelClassSmall requests")
	modelMaxTokens := fs.Int("model-max-tokens", cfg.ModelMaxTokens, "default max_tokens for a completion request")
	modelTemperature := fs.Float64("model-temperature", cfg.ModelTemperature, "default sampling temperature")
	modelTimeout := fs.Duration("model-timeout", cfg.ModelTimeout, "per-call bound on a model completion")
	rateLimitInitialTPM := fs.Float64("rate-limit-initial-tpm", cfg.RateLimitInitialTPM, "starting tokens-per-minute budget")
	rateLimitMaxTPM := fs.Float64("rate-limit-max-tpm", cfg.RateLimitMaxTPM, "ceiling tokens-per-minute budget")
	mongoURI := fs.String("mongo-uri", cfg.MongoURI, "MongoDB connection URI")
	mongoDatabase := fs.String("mongo-database", cfg.MongoDatabase, "MongoDB database name")
	redisAddr := fs.String("redis-addr", cfg.RedisAddr, "Redis address for the registry snapshot cache (empty disables caching)")
	registrySyncEvery := fs.Duration("registry-sync-every", cfg.RegistrySyncEvery, "interval between background registry reloads")
	debug := fs.Bool("debug", cfg.Debug, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parse flags: %w", err)
	}

	if *configPathF != "" {
		b, err := os.ReadFile(*configPathF)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", *configPathF, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", *configPathF, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http-addr":
			cfg.HTTPAddr = *httpAddr
		case "default-model":
			cfg.DefaultModel = *defaultModel
		case "small-model":
			cfg.SmallModel = *smallModel
		case "model-max-tokens":
			cfg.ModelMaxTokens = *modelMaxTokens
		case "model-temperature":
			cfg.ModelTemperature = *modelTemperature
		case "model-timeout":
			cfg.ModelTimeout = *modelTimeout
		case "rate-limit-initial-tpm":
			cfg.RateLimitInitialTPM = *rateLimitInitialTPM
		case "rate-limit-max-tpm":
			cfg.RateLimitMaxTPM = *rateLimitMaxTPM
		case "mongo-uri":
			cfg.MongoURI = *mongoURI
		case "mongo-database":
			cfg.MongoDatabase = *mongoDatabase
		case "redis-addr":
			cfg.RedisAddr = *redisAddr
		case "registry-sync-every":
			cfg.RegistrySyncEvery = *registrySyncEvery
		case "debug":
			cfg.Debug = *debug
		}
	})

	if cfg.AnthropicAPIKey == "" {
		cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("config: http_addr is required")
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("config: default_model is required")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("config: mongo_uri is required")
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("config: ANTHROPIC_API_KEY environment variable is required")
	}
	return nil
}
