package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCacheKeyNormalization(t *testing.T) {
	base := CacheKey(SynthesizeOptions{Text: "Hello", LanguageCode: "en-US"})

	assert.Equal(t, base, CacheKey(SynthesizeOptions{Text: " hello  ", LanguageCode: "en-US"}))
	assert.Equal(t, base, CacheKey(SynthesizeOptions{Text: "HELLO", LanguageCode: "en-US"}))

	assert.NotEqual(t, base, CacheKey(SynthesizeOptions{Text: "Hello", LanguageCode: "es-ES"}))
	assert.NotEqual(t, base, CacheKey(SynthesizeOptions{Text: "Hello", LanguageCode: "en-US", VoiceName: "en-US-Neural2-D"}))
	assert.NotEqual(t, base, CacheKey(SynthesizeOptions{Text: "Hello", LanguageCode: "en-US", SSMLGender: "FEMALE"}))
}

func ttsTestServer(t *testing.T, audio []byte, calls *atomic.Int32) SynthesizerConfig {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(synthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString(audio),
		})
	}))
	t.Cleanup(srv.Close)
	return SynthesizerConfig{
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		CacheDir: t.TempDir(),
		Timeout:  2 * time.Second,
	}
}

func drain(t *testing.T, s *Synthesizer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}

func TestSynthesizeMissThenHit(t *testing.T) {
	audio := []byte("mp3-bytes")
	var calls atomic.Int32
	cfg := ttsTestServer(t, audio, &calls)

	s := NewSynthesizer(cfg, zap.NewNop(), nil)
	ctx := context.Background()

	got, err := s.Synthesize(ctx, SynthesizeOptions{Text: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, audio, got)
	assert.Equal(t, int32(1), calls.Load())

	drain(t, s)

	// The artifact must now exist under its content address.
	key := CacheKey(SynthesizeOptions{Text: "Hello", LanguageCode: s.cfg.Language, VoiceName: s.cfg.Voice})
	cached, err := os.ReadFile(s.CachePath(key))
	require.NoError(t, err)
	assert.Equal(t, audio, cached)

	// Second call, differing only in whitespace and case: served from the
	// file cache with no further provider traffic, byte-identical output.
	again, err := s.Synthesize(ctx, SynthesizeOptions{Text: "  hello "})
	require.NoError(t, err)
	assert.Equal(t, audio, again)
	assert.Equal(t, int32(1), calls.Load(), "repeat request must not reach the provider")
}

func TestSynthesizePrepopulatedCacheSkipsProvider(t *testing.T) {
	cfg := SynthesizerConfig{
		APIKey:   "test-key",
		BaseURL:  "http://127.0.0.1:0", // unreachable: any network call fails the test
		CacheDir: t.TempDir(),
	}
	s := NewSynthesizer(cfg, zap.NewNop(), nil)

	opts := SynthesizeOptions{Text: "Cached", LanguageCode: s.cfg.Language, VoiceName: s.cfg.Voice}
	want := []byte("cached-audio")
	require.NoError(t, os.WriteFile(s.CachePath(CacheKey(opts)), want, 0o644))

	got, err := s.Synthesize(context.Background(), SynthesizeOptions{Text: "Cached"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSynthesizeEmptyText(t *testing.T) {
	var calls atomic.Int32
	cfg := ttsTestServer(t, []byte("x"), &calls)
	s := NewSynthesizer(cfg, zap.NewNop(), nil)

	_, err := s.Synthesize(context.Background(), SynthesizeOptions{Text: "   "})
	require.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestSynthesizeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"voice not found"}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	s := NewSynthesizer(SynthesizerConfig{APIKey: "k", BaseURL: srv.URL, CacheDir: t.TempDir()}, zap.NewNop(), nil)
	_, err := s.Synthesize(context.Background(), SynthesizeOptions{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
}

func TestSynthesizeEmptyAudioIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(synthesizeResponse{AudioContent: ""})
	}))
	t.Cleanup(srv.Close)

	s := NewSynthesizer(SynthesizerConfig{APIKey: "k", BaseURL: srv.URL, CacheDir: t.TempDir()}, zap.NewNop(), nil)
	_, err := s.Synthesize(context.Background(), SynthesizeOptions{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty audio")
}

func TestSynthesizeRequestShape(t *testing.T) {
	var got synthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(synthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString([]byte("a")),
		})
	}))
	t.Cleanup(srv.Close)

	s := NewSynthesizer(SynthesizerConfig{APIKey: "k", BaseURL: srv.URL, CacheDir: t.TempDir()}, zap.NewNop(), nil)
	_, err := s.Synthesize(context.Background(), SynthesizeOptions{
		Text: "  Hello There  ", LanguageCode: "en-GB", VoiceName: "en-GB-Neural2-A", SSMLGender: "FEMALE",
	})
	require.NoError(t, err)

	// The provider receives the literal text; normalization is only for
	// key derivation.
	assert.Equal(t, "  Hello There  ", got.Input.Text)
	assert.Equal(t, "en-GB", got.Voice.LanguageCode)
	assert.Equal(t, "en-GB-Neural2-A", got.Voice.Name)
	assert.Equal(t, "FEMALE", got.Voice.SSMLGender)
	assert.Equal(t, "MP3", got.AudioConfig.AudioEncoding)
	assert.Equal(t, 1.0, got.AudioConfig.SpeakingRate)
	assert.Zero(t, got.AudioConfig.Pitch)
	assert.Zero(t, got.AudioConfig.VolumeGainDb)
}

func TestSynthesizeCacheWriteFailureIgnored(t *testing.T) {
	audio := []byte("audio")
	var calls atomic.Int32
	cfg := ttsTestServer(t, audio, &calls)

	// Point the cache at a path occupied by a regular file: directory
	// creation and every artifact write will fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.CacheDir = blocker

	s := NewSynthesizer(cfg, zap.NewNop(), nil)
	got, err := s.Synthesize(context.Background(), SynthesizeOptions{Text: "hi"})
	require.NoError(t, err, "cache write failure must never fail the request")
	assert.Equal(t, audio, got)

	drain(t, s)
}
