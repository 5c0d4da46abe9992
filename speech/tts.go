package speech

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dawei41468/translator-sub001/internal/httputil"
	"github.com/dawei41468/translator-sub001/internal/metrics"
)

// CacheExt is the file extension of cached synthesis artifacts. The cleanup
// sweep only touches files with this extension.
const CacheExt = ".mp3"

// SynthesizeOptions are the parameters of one synthesis request. VoiceName
// and SSMLGender fall back to the synthesizer's configured defaults.
type SynthesizeOptions struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code,omitempty"`
	VoiceName    string `json:"voice_name,omitempty"`
	SSMLGender   string `json:"ssml_gender,omitempty"`
}

// CacheKey derives the content address for a synthesis request: a sha256
// digest over the normalized tuple (text, language, voice, gender). Two
// requests differing only in surrounding whitespace or letter case share
// one key and therefore one cached artifact.
func CacheKey(opts SynthesizeOptions) string {
	normalized := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(opts.Text)),
		opts.LanguageCode,
		opts.VoiceName,
		opts.SSMLGender,
	}, "|")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Synthesizer converts text to speech through the provider, fronted by a
// content-addressed file cache. Cache hits return bytes with no network
// call; misses call the provider and persist the artifact off the request's
// critical path. The cache directory is shared and unsynchronized: writes
// for the same key are idempotent, so racing writers are harmless.
type Synthesizer struct {
	cfg     SynthesizerConfig
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Collector

	flight singleflight.Group
	writes sync.WaitGroup
}

// NewSynthesizer creates a synthesizer and ensures the cache directory
// exists. A cache directory that cannot be created degrades to cache-miss
// behavior on every call rather than failing construction.
func NewSynthesizer(cfg SynthesizerConfig, logger *zap.Logger, mx *metrics.Collector) *Synthesizer {
	def := DefaultSynthesizerConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Voice == "" {
		cfg.Voice = def.Voice
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = def.CacheDir
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "synthesizer"))

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		logger.Warn("failed to create tts cache directory", zap.String("dir", cfg.CacheDir), zap.Error(err))
	}

	return &Synthesizer{
		cfg:     cfg,
		client:  httputil.Client(cfg.Timeout),
		logger:  logger,
		metrics: mx,
	}
}

// Available reports whether the synthesizer has credentials.
func (s *Synthesizer) Available() bool { return s.cfg.APIKey != "" }

// CachePath returns the cache file path for a key.
func (s *Synthesizer) CachePath(key string) string {
	return filepath.Join(s.cfg.CacheDir, key+CacheExt)
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
		SSMLGender   string `json:"ssmlGender,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
		VolumeGainDb  float64 `json:"volumeGainDb"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize returns MP3 audio for opts. Identical normalized requests
// share a cached artifact; identical concurrent requests share a single
// provider call. Absence of audio is always an explicit error, never an
// empty payload.
func (s *Synthesizer) Synthesize(ctx context.Context, opts SynthesizeOptions) ([]byte, error) {
	if strings.TrimSpace(opts.Text) == "" {
		return nil, fmt.Errorf("synthesis text is required")
	}
	if opts.LanguageCode == "" {
		opts.LanguageCode = s.cfg.Language
	}
	if opts.VoiceName == "" {
		opts.VoiceName = s.cfg.Voice
	}

	key := CacheKey(opts)
	path := s.CachePath(key)

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		if s.metrics != nil {
			s.metrics.RecordCacheHit("tts")
		}
		s.logger.Debug("tts cache hit", zap.String("key", key))
		return data, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss("tts")
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		data, err := s.callProvider(ctx, opts)
		if err != nil {
			return nil, err
		}

		s.writes.Add(1)
		go s.persist(path, data)
		return data, nil
	})
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordSynthesis(status)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// callProvider issues the synthesis call with the literal (non-normalized)
// text and neutral speaking rate, pitch, and volume.
func (s *Synthesizer) callProvider(ctx context.Context, opts SynthesizeOptions) ([]byte, error) {
	var body synthesizeRequest
	body.Input.Text = opts.Text
	body.Voice.LanguageCode = opts.LanguageCode
	body.Voice.Name = opts.VoiceName
	body.Voice.SSMLGender = opts.SSMLGender
	body.AudioConfig.AudioEncoding = "MP3"
	body.AudioConfig.SpeakingRate = 1.0

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/v1/text:synthesize"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", s.cfg.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts error: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var sResp synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sResp); err != nil {
		return nil, fmt.Errorf("failed to decode tts response: %w", err)
	}
	if sResp.AudioContent == "" {
		return nil, fmt.Errorf("tts returned empty audio")
	}

	audio, err := base64.StdEncoding.DecodeString(sResp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tts audio payload: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts returned empty audio")
	}
	return audio, nil
}

// persist writes a cached artifact off the request path. Failure is logged
// and otherwise ignored: the caller already has its audio.
func (s *Synthesizer) persist(path string, data []byte) {
	defer s.writes.Done()

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("tts cache write failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Debug("tts cache write complete", zap.String("path", path), zap.Int("bytes", len(data)))
}

// Close waits for detached cache writes to drain, bounded by ctx. Pending
// writes never block a request; this only matters for graceful shutdown.
func (s *Synthesizer) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
