// Package config provides configuration loading for the relay:
// defaults, YAML file, then environment variable overrides, in that order.
package config

import (
	"fmt"
	"time"
)

// Config is the complete relay configuration.
type Config struct {
	// Log configures the zap logger.
	Log LogConfig `yaml:"log"`

	// Database configures the room store.
	Database DatabaseConfig `yaml:"database"`

	// Translation configures the engine registry and adapters.
	Translation TranslationConfig `yaml:"translation"`

	// Speech configures STT streaming and TTS synthesis.
	Speech SpeechConfig `yaml:"speech"`

	// Cleanup configures the scheduled eviction jobs.
	Cleanup CleanupConfig `yaml:"cleanup"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format: json or console.
	Format string `yaml:"format"`
	// OutputPaths are zap sink URLs.
	OutputPaths []string `yaml:"output_paths"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	// Driver: sqlite or postgres.
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`
}

// TranslationConfig configures the translation layer.
type TranslationConfig struct {
	// DefaultEngine is the registry-wide default engine id.
	DefaultEngine string `yaml:"default_engine"`

	Google GoogleTranslateConfig `yaml:"google"`
	Model  ModelEngineConfig     `yaml:"model"`
	Cache  ResponseCacheConfig   `yaml:"cache"`
}

// GoogleTranslateConfig configures the cloud translation adapter.
type GoogleTranslateConfig struct {
	APIKey    string `yaml:"api_key"`
	ProjectID string `yaml:"project_id"`
	// Location is the regional endpoint; validated against an allow-list.
	Location string `yaml:"location"`
	BaseURL  string `yaml:"base_url"`
}

// ModelEngineConfig configures the chat-completion translation adapter.
type ModelEngineConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ResponseCacheConfig configures the model adapter's response cache.
// The local LRU level is always on; the Redis level is enabled only when
// Addr is set.
type ResponseCacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`

	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	RedisTTL time.Duration `yaml:"redis_ttl"`
}

// SpeechConfig groups the speech provider configuration.
type SpeechConfig struct {
	STT STTConfig `yaml:"stt"`
	TTS TTSConfig `yaml:"tts"`
}

// STTConfig configures the streaming recognizer.
type STTConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// Language is the default recognition language.
	Language string `yaml:"language"`
	// Encoding: linear16 or opus.
	Encoding   string `yaml:"encoding"`
	SampleRate int    `yaml:"sample_rate"`
}

// TTSConfig configures the synthesis provider and its file cache.
type TTSConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Voice    string `yaml:"voice"`
	Language string `yaml:"language"`
	// CacheDir is the root of the content-addressed audio cache.
	CacheDir string `yaml:"cache_dir"`
}

// CleanupConfig configures the scheduled eviction jobs.
type CleanupConfig struct {
	// RoomRetention is the maximum room age before eviction.
	RoomRetention time.Duration `yaml:"room_retention"`
	// RoomInterval is the room eviction schedule.
	RoomInterval time.Duration `yaml:"room_interval"`
	// CacheRetention is the maximum TTS cache file age before eviction.
	CacheRetention time.Duration `yaml:"cache_retention"`
	// CacheInterval is the cache sweep schedule.
	CacheInterval time.Duration `yaml:"cache_interval"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns the configuration defaults applied before any YAML
// file or environment override.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "relay.db",
		},
		Translation: TranslationConfig{
			DefaultEngine: "google",
			Google: GoogleTranslateConfig{
				Location: "global",
				BaseURL:  "https://translation.googleapis.com",
			},
			Model: ModelEngineConfig{
				BaseURL: "https://api.openai.com",
				Model:   "gpt-4o-mini",
				Timeout: 10 * time.Second,
			},
			Cache: ResponseCacheConfig{
				Capacity: 500,
				TTL:      time.Hour,
				RedisTTL: time.Hour,
			},
		},
		Speech: SpeechConfig{
			STT: STTConfig{
				BaseURL:    "wss://api.deepgram.com",
				Model:      "nova-2",
				Language:   "en-US",
				Encoding:   "linear16",
				SampleRate: 16000,
			},
			TTS: TTSConfig{
				BaseURL:  "https://texttospeech.googleapis.com",
				Voice:    "en-US-Neural2-C",
				Language: "en-US",
				CacheDir: "tts-cache",
			},
		},
		Cleanup: CleanupConfig{
			RoomRetention:  24 * time.Hour,
			RoomInterval:   time.Hour,
			CacheRetention: 7 * 24 * time.Hour,
			CacheInterval:  24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	if c.Translation.DefaultEngine == "" {
		return fmt.Errorf("translation.default_engine must not be empty")
	}
	if c.Translation.Cache.Capacity <= 0 {
		return fmt.Errorf("translation.cache.capacity must be positive")
	}
	if c.Translation.Model.Timeout <= 0 {
		return fmt.Errorf("translation.model.timeout must be positive")
	}
	if c.Cleanup.RoomRetention <= 0 || c.Cleanup.CacheRetention <= 0 {
		return fmt.Errorf("cleanup retention windows must be positive")
	}
	if c.Cleanup.RoomInterval <= 0 || c.Cleanup.CacheInterval <= 0 {
		return fmt.Errorf("cleanup intervals must be positive")
	}
	if c.Speech.TTS.CacheDir == "" {
		return fmt.Errorf("speech.tts.cache_dir must not be empty")
	}
	return nil
}
