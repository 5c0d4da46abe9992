package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dawei41468/translator-sub001/internal/httputil"
	"github.com/dawei41468/translator-sub001/internal/metrics"
)

// modelCharRate approximates the chat-completion price per character (USD),
// derived from per-token pricing at ~4 characters per token.
const modelCharRate = 2.5 / 1_000_000 / 4

const translatorSystemPrompt = "You are a professional translator. " +
	"Translate the user's text exactly as given. " +
	"Output only the translated text, with no explanations, quotes, or extra formatting."

// ModelConfig configures the chat-completion translation adapter.
type ModelConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ModelEngine translates through a chat-completion endpoint, with a bounded
// time-expiring response cache in front of the network call. Every call
// carries a hard client-side timeout; a slow upstream surfaces as a timeout
// error rather than stalling the request.
type ModelEngine struct {
	cfg     ModelConfig
	cache   *ResponseCache
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewModelEngine creates the model-based adapter. A nil cache disables
// response caching.
func NewModelEngine(cfg ModelConfig, cache *ResponseCache, logger *zap.Logger, mx *metrics.Collector) *ModelEngine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ModelEngine{
		cfg:     cfg,
		cache:   cache,
		client:  httputil.Client(cfg.Timeout),
		logger:  logger.With(zap.String("component", "model_translate")),
		metrics: mx,
	}
}

func (e *ModelEngine) Name() string { return "GPT Translate" }

// Available reports whether the adapter has an API key.
func (e *ModelEngine) Available() bool { return e.cfg.APIKey != "" }

func (e *ModelEngine) SupportedLanguages() []string {
	return []string{"en", "zh", "es", "fr", "de", "ja", "ko", "pt", "ru", "ar", "hi", "it", "nl", "tr", "vi"}
}

// EstimateCost returns the approximate completion cost for translating text.
func (e *ModelEngine) EstimateCost(text string) float64 {
	return float64(len([]rune(text))) * modelCharRate
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Translate converts text through the chat-completion endpoint, consulting
// the response cache first. Whitespace-only input returns the original text
// with no network call.
func (e *ModelEngine) Translate(ctx context.Context, req *Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}

	key := ResponseCacheKey(req.SourceLang, req.TargetLang, req.Text)
	if e.cache != nil {
		if v, ok := e.cache.Get(ctx, key); ok {
			if e.metrics != nil {
				e.metrics.RecordCacheHit("model_response")
			}
			return v, nil
		}
		if e.metrics != nil {
			e.metrics.RecordCacheMiss("model_response")
		}
	}

	start := time.Now()
	out, err := e.complete(ctx, req)
	if e.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.RecordTranslation("gpt", status, time.Since(start).Seconds())
	}
	if err != nil {
		return "", err
	}

	if e.cache != nil {
		e.cache.Set(ctx, key, out)
	}
	return out, nil
}

func (e *ModelEngine) complete(ctx context.Context, req *Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Translate the following text from %s to %s.", req.SourceLang, req.TargetLang)
	if req.Context != "" {
		userPrompt += fmt.Sprintf(" Conversational context: %s.", req.Context)
	}
	userPrompt += "\n\n" + req.Text

	body := chatCompletionRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: translatorSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.2,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		code := ErrCodeUpstreamError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = ErrCodeUpstreamTimeout
		}
		return "", &Error{
			Code: code, Message: err.Error(),
			Engine: "gpt", Retryable: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return "", &Error{
			Code:      ErrCodeUpstreamError,
			Message:   fmt.Sprintf("model translate error: status=%d body=%s", resp.StatusCode, string(errBody)),
			Engine:    "gpt",
			Retryable: resp.StatusCode >= 500,
		}
	}

	var cResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}
	if len(cResp.Choices) == 0 || strings.TrimSpace(cResp.Choices[0].Message.Content) == "" {
		return "", &Error{
			Code:    ErrCodeUpstreamError,
			Message: "model returned no translation text",
			Engine:  "gpt",
		}
	}

	return strings.TrimSpace(cResp.Choices[0].Message.Content), nil
}
