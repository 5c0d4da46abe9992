package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dawei41468/translator-sub001/internal/httputil"
	"github.com/dawei41468/translator-sub001/internal/metrics"
)

// googleCharRate is the bulk translation price per character (USD).
const googleCharRate = 20.0 / 1_000_000

// supportedLocations is the allow-list of regional endpoints the cloud
// adapter accepts. Anything else falls back to "global".
var supportedLocations = map[string]bool{
	"global":       true,
	"us-central1":  true,
	"europe-west1": true,
	"asia-east1":   true,
}

// GoogleConfig configures the cloud translation adapter.
type GoogleConfig struct {
	APIKey    string        `json:"api_key" yaml:"api_key"`
	ProjectID string        `json:"project_id" yaml:"project_id"`
	Location  string        `json:"location,omitempty" yaml:"location,omitempty"`
	BaseURL   string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// GoogleEngine translates through the Google Cloud Translation v3 REST API.
// It is stateless per call aside from the lazily-built HTTP client, and it
// never retries: provider failures propagate to the caller (or to the
// fallback composite wrapping a different engine).
type GoogleEngine struct {
	cfg     GoogleConfig
	logger  *zap.Logger
	metrics *metrics.Collector

	clientOnce sync.Once
	client     *http.Client
}

// NewGoogleEngine creates the cloud adapter. An unsupported configured
// location is substituted with "global" rather than failing startup.
func NewGoogleEngine(cfg GoogleConfig, logger *zap.Logger, mx *metrics.Collector) *GoogleEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "google_translate"))

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://translation.googleapis.com"
	}
	if cfg.Location == "" {
		cfg.Location = "global"
	}
	if !supportedLocations[cfg.Location] {
		logger.Warn("unsupported translation location, using global",
			zap.String("location", cfg.Location),
		)
		cfg.Location = "global"
	}

	return &GoogleEngine{
		cfg:     cfg,
		logger:  logger,
		metrics: mx,
	}
}

func (e *GoogleEngine) Name() string { return "Google Translate" }

// Available reports whether the adapter has the credentials it needs.
func (e *GoogleEngine) Available() bool {
	return e.cfg.APIKey != "" && e.cfg.ProjectID != ""
}

func (e *GoogleEngine) SupportedLanguages() []string {
	return []string{"en", "zh", "es", "fr", "de", "ja", "ko", "pt", "ru", "ar", "hi", "it"}
}

// EstimateCost returns the bulk API cost for translating text.
func (e *GoogleEngine) EstimateCost(text string) float64 {
	return float64(len([]rune(text))) * googleCharRate
}

type googleTranslateRequest struct {
	Contents           []string `json:"contents"`
	MimeType           string   `json:"mimeType"`
	SourceLanguageCode string   `json:"sourceLanguageCode"`
	TargetLanguageCode string   `json:"targetLanguageCode"`
}

type googleTranslateResponse struct {
	Translations []struct {
		TranslatedText string `json:"translatedText"`
	} `json:"translations"`
}

// Translate converts text through the bulk translation API. Whitespace-only
// input returns the original text with no network call.
func (e *GoogleEngine) Translate(ctx context.Context, req *Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}

	start := time.Now()
	out, err := e.translate(ctx, req)
	if e.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.RecordTranslation("google", status, time.Since(start).Seconds())
	}
	return out, err
}

func (e *GoogleEngine) translate(ctx context.Context, req *Request) (string, error) {
	body := googleTranslateRequest{
		Contents:           []string{req.Text},
		MimeType:           "text/plain",
		SourceLanguageCode: req.SourceLang,
		TargetLanguageCode: req.TargetLang,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v3/projects/%s/locations/%s:translateText",
		strings.TrimRight(e.cfg.BaseURL, "/"), e.cfg.ProjectID, e.cfg.Location)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", e.cfg.APIKey)

	resp, err := e.httpClient().Do(httpReq)
	if err != nil {
		return "", &Error{
			Code: ErrCodeUpstreamError, Message: err.Error(),
			Engine: "google", Retryable: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return "", &Error{
			Code:      ErrCodeUpstreamError,
			Message:   fmt.Sprintf("google translate error: status=%d body=%s", resp.StatusCode, string(errBody)),
			Engine:    "google",
			Retryable: resp.StatusCode >= 500,
		}
	}

	var gResp googleTranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", fmt.Errorf("failed to decode google translate response: %w", err)
	}
	if len(gResp.Translations) == 0 || gResp.Translations[0].TranslatedText == "" {
		return "", &Error{
			Code:    ErrCodeUpstreamError,
			Message: "google translate returned no translation",
			Engine:  "google",
		}
	}

	return gResp.Translations[0].TranslatedText, nil
}

// httpClient lazily builds the shared client. The adapter relies on the
// provider default timeouts unless one is configured.
func (e *GoogleEngine) httpClient() *http.Client {
	e.clientOnce.Do(func() {
		e.client = httputil.Client(e.cfg.Timeout)
	})
	return e.client
}
