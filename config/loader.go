package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with precedence: defaults, then YAML file,
// then environment variables.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("relay.yaml").
//	    WithEnvPrefix("RELAY").
//	    Load()
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "RELAY"}
}

// WithConfigPath sets the YAML file to load. Without it only defaults and
// environment overrides apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the final configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	l.applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides configuration fields from <prefix>_* variables.
func (l *Loader) applyEnv(cfg *Config) {
	l.str("LOG_LEVEL", &cfg.Log.Level)
	l.str("LOG_FORMAT", &cfg.Log.Format)

	l.str("DATABASE_DRIVER", &cfg.Database.Driver)
	l.str("DATABASE_DSN", &cfg.Database.DSN)

	l.str("TRANSLATION_DEFAULT_ENGINE", &cfg.Translation.DefaultEngine)
	l.str("GOOGLE_API_KEY", &cfg.Translation.Google.APIKey)
	l.str("GOOGLE_PROJECT_ID", &cfg.Translation.Google.ProjectID)
	l.str("GOOGLE_LOCATION", &cfg.Translation.Google.Location)
	l.str("MODEL_API_KEY", &cfg.Translation.Model.APIKey)
	l.str("MODEL_BASE_URL", &cfg.Translation.Model.BaseURL)
	l.str("MODEL_NAME", &cfg.Translation.Model.Model)
	l.dur("MODEL_TIMEOUT", &cfg.Translation.Model.Timeout)
	l.num("CACHE_CAPACITY", &cfg.Translation.Cache.Capacity)
	l.dur("CACHE_TTL", &cfg.Translation.Cache.TTL)
	l.str("REDIS_ADDR", &cfg.Translation.Cache.Addr)
	l.str("REDIS_PASSWORD", &cfg.Translation.Cache.Password)
	l.num("REDIS_DB", &cfg.Translation.Cache.DB)

	l.str("STT_API_KEY", &cfg.Speech.STT.APIKey)
	l.str("STT_BASE_URL", &cfg.Speech.STT.BaseURL)
	l.str("STT_LANGUAGE", &cfg.Speech.STT.Language)
	l.str("TTS_API_KEY", &cfg.Speech.TTS.APIKey)
	l.str("TTS_BASE_URL", &cfg.Speech.TTS.BaseURL)
	l.str("TTS_VOICE", &cfg.Speech.TTS.Voice)
	l.str("TTS_CACHE_DIR", &cfg.Speech.TTS.CacheDir)

	l.dur("ROOM_RETENTION", &cfg.Cleanup.RoomRetention)
	l.dur("CACHE_RETENTION", &cfg.Cleanup.CacheRetention)

	l.str("METRICS_ADDR", &cfg.Metrics.Addr)
}

func (l *Loader) lookup(key string) (string, bool) {
	return os.LookupEnv(l.envPrefix + "_" + key)
}

func (l *Loader) str(key string, dst *string) {
	if v, ok := l.lookup(key); ok {
		*dst = v
	}
}

func (l *Loader) num(key string, dst *int) {
	if v, ok := l.lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (l *Loader) dur(key string, dst *time.Duration) {
	if v, ok := l.lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
