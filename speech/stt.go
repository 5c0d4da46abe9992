// Package speech provides the streaming speech-to-text adapter and the
// cached text-to-speech synthesizer.
package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dawei41468/translator-sub001/internal/httputil"
	"github.com/dawei41468/translator-sub001/internal/metrics"
)

// Encoding identifies the audio encoding of a recognition stream.
type Encoding string

const (
	EncodingLinear16 Encoding = "linear16"
	EncodingOpus     Encoding = "opus"
)

// Recognition defaults applied when StreamConfig fields are zero.
const (
	defaultLanguage   = "en-US"
	defaultEncoding   = EncodingLinear16
	defaultSampleRate = 16000
)

// StreamConfig configures one recognition stream.
type StreamConfig struct {
	// Language is the recognition language code. Defaults to en-US.
	Language string
	// Encoding is the inbound audio encoding. Defaults to linear16.
	Encoding Encoding
	// SampleRate is the inbound sample rate in Hz. Defaults to 16000.
	SampleRate int
}

// DataFunc receives one transcript per usable provider event. isFinal marks
// the end of an utterance; interim results arrive with isFinal false.
type DataFunc func(transcript string, isFinal bool)

// ErrorFunc receives a stream-level error. It is invoked at most once per
// stream, after which no further callbacks fire.
type ErrorFunc func(err error)

// Recognizer opens streaming recognition sessions against the provider's
// live endpoint and normalizes its events into DataFunc/ErrorFunc callbacks.
// It holds no cross-stream state beyond the lazily-built HTTP client used to
// dial; every call to CreateStream opens an independent provider session.
type Recognizer struct {
	cfg     RecognizerConfig
	logger  *zap.Logger
	metrics *metrics.Collector

	clientOnce sync.Once
	client     *http.Client
}

// NewRecognizer creates a streaming recognizer.
func NewRecognizer(cfg RecognizerConfig, logger *zap.Logger, mx *metrics.Collector) *Recognizer {
	def := DefaultRecognizerConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recognizer{
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "recognizer")),
		metrics: mx,
	}
}

// Available reports whether the recognizer has credentials.
func (r *Recognizer) Available() bool { return r.cfg.APIKey != "" }

// listenEvent is the provider's per-message event shape. Events without a
// transcript (keep-alives, silence windows) carry an empty alternatives
// list or a blank transcript.
type listenEvent struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Stream is one live recognition session. Write feeds it audio; Close ends
// it. Callbacks stop after Close or after the first stream error.
type Stream struct {
	id     string
	conn   *websocket.Conn
	cancel context.CancelFunc
	logger *zap.Logger

	errOnce  sync.Once
	onError  ErrorFunc
	closemu  sync.Mutex
	closed   bool
	readDone chan struct{}
}

// CreateStream opens a recognition session. Establishment failures (dial,
// auth) are returned synchronously; once the session is up, transcripts
// arrive through onData in provider order and any stream error is delivered
// exactly once through onError.
func (r *Recognizer) CreateStream(ctx context.Context, cfg StreamConfig, onData DataFunc, onError ErrorFunc) (*Stream, error) {
	if onData == nil || onError == nil {
		return nil, fmt.Errorf("onData and onError callbacks are required")
	}

	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Encoding == "" {
		cfg.Encoding = defaultEncoding
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	switch cfg.Encoding {
	case EncodingLinear16, EncodingOpus:
	default:
		return nil, fmt.Errorf("unsupported audio encoding: %s", cfg.Encoding)
	}

	params := url.Values{}
	params.Set("model", r.cfg.Model)
	params.Set("language", cfg.Language)
	params.Set("encoding", string(cfg.Encoding))
	params.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	params.Set("punctuate", "true")
	params.Set("interim_results", "true")

	endpoint := fmt.Sprintf("%s/v1/listen?%s", strings.TrimRight(r.cfg.BaseURL, "/"), params.Encode())

	dialCtx, dialCancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, endpoint, &websocket.DialOptions{
		HTTPClient: r.httpClient(),
		HTTPHeader: http.Header{"Authorization": {"Token " + r.cfg.APIKey}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open recognition stream: %w", err)
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Stream{
		id:       uuid.NewString(),
		conn:     conn,
		cancel:   cancel,
		onError:  onError,
		readDone: make(chan struct{}),
	}
	s.logger = r.logger.With(zap.String("stream_id", s.id))

	if r.metrics != nil {
		r.metrics.RecordStreamOpened()
	}
	s.logger.Debug("recognition stream opened",
		zap.String("language", cfg.Language),
		zap.String("encoding", string(cfg.Encoding)),
		zap.Int("sample_rate", cfg.SampleRate),
	)

	go s.readLoop(streamCtx, onData)
	return s, nil
}

// httpClient lazily builds the shared dial client. Streams themselves are
// independent; only the dialer is shared.
func (r *Recognizer) httpClient() *http.Client {
	r.clientOnce.Do(func() {
		r.client = httputil.Client(0)
	})
	return r.client
}

// readLoop pumps provider events into the data callback until the stream
// ends. Events without a usable transcript are dropped without invoking
// either callback.
func (s *Stream) readLoop(ctx context.Context, onData DataFunc) {
	defer close(s.readDone)
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			s.deliverError(ctx, err)
			return
		}

		var ev listenEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("undecodable recognition event dropped", zap.Error(err))
			continue
		}
		if len(ev.Channel.Alternatives) == 0 {
			continue
		}
		transcript := ev.Channel.Alternatives[0].Transcript
		if transcript == "" {
			continue
		}

		onData(transcript, ev.IsFinal)
	}
}

// deliverError routes a terminal read error to the error callback exactly
// once. Local closure and a provider-initiated clean close are not errors.
func (s *Stream) deliverError(ctx context.Context, err error) {
	s.closemu.Lock()
	closed := s.closed
	s.closemu.Unlock()

	if closed || ctx.Err() != nil {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		s.logger.Debug("recognition stream closed by provider")
		return
	}

	s.errOnce.Do(func() {
		s.logger.Warn("recognition stream error", zap.Error(err))
		s.onError(err)
	})
}

// Write sends an audio chunk to the provider.
func (s *Stream) Write(ctx context.Context, audio []byte) error {
	s.closemu.Lock()
	if s.closed {
		s.closemu.Unlock()
		return fmt.Errorf("recognition stream is closed")
	}
	s.closemu.Unlock()

	if err := s.conn.Write(ctx, websocket.MessageBinary, audio); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}

// Close ends the session. It is safe to call more than once; callbacks do
// not fire after Close returns.
func (s *Stream) Close() error {
	s.closemu.Lock()
	if s.closed {
		s.closemu.Unlock()
		return nil
	}
	s.closed = true
	s.closemu.Unlock()

	err := s.conn.Close(websocket.StatusNormalClosure, "done")
	s.cancel()
	<-s.readDone
	return err
}
