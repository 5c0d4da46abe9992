package speech

import "time"

// RecognizerConfig configures the streaming STT provider connection.
type RecognizerConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultRecognizerConfig returns the default streaming STT configuration.
func DefaultRecognizerConfig() RecognizerConfig {
	return RecognizerConfig{
		BaseURL: "wss://api.deepgram.com",
		Model:   "nova-2",
		Timeout: 30 * time.Second,
	}
}

// SynthesizerConfig configures the TTS provider and its file cache.
type SynthesizerConfig struct {
	APIKey   string        `json:"api_key" yaml:"api_key"`
	BaseURL  string        `json:"base_url" yaml:"base_url"`
	Voice    string        `json:"voice,omitempty" yaml:"voice,omitempty"`
	Language string        `json:"language,omitempty" yaml:"language,omitempty"`
	CacheDir string        `json:"cache_dir" yaml:"cache_dir"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultSynthesizerConfig returns the default TTS configuration.
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		BaseURL:  "https://texttospeech.googleapis.com",
		Voice:    "en-US-Neural2-C",
		Language: "en-US",
		CacheDir: "tts-cache",
		Timeout:  60 * time.Second,
	}
}
