// Package translation provides the multi-provider translation layer: a
// registry of engines with per-user selection, concrete provider adapters,
// and a fallback composite that retries a failed call on a secondary engine.
package translation

import (
	"context"
	"strings"
)

// Unified translation error codes, used to align retryability and fallback
// decisions across adapters.
type ErrorCode string

const (
	ErrCodeInvalidRequest    ErrorCode = "TRANSLATE_INVALID_REQUEST"    // bad parameters
	ErrCodeUpstreamError     ErrorCode = "TRANSLATE_UPSTREAM_ERROR"     // provider 4xx/5xx or network failure
	ErrCodeUpstreamTimeout   ErrorCode = "TRANSLATE_UPSTREAM_TIMEOUT"   // provider call exceeded its deadline
	ErrCodeEngineUnavailable ErrorCode = "TRANSLATE_ENGINE_UNAVAILABLE" // engine lacks credentials/config
	ErrCodeNoEngine          ErrorCode = "TRANSLATE_NO_ENGINE"          // registry exhausted all engines
)

// Error is the taxonomy error returned by the translation layer.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Engine    string    `json:"engine,omitempty"`
	Retryable bool      `json:"retryable"`
}

func (e *Error) Error() string { return e.Message }

// IsNoEngineAvailable reports whether err is the registry-exhausted error.
func IsNoEngineAvailable(err error) bool {
	te, ok := err.(*Error)
	return ok && te.Code == ErrCodeNoEngine
}

// Request is a single translation request. Language codes are opaque
// ISO-639-1-like strings; Context is an optional free-text hint passed to
// engines that can use one.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Context    string `json:"context,omitempty"`
}

// Engine is the capability contract every translation provider satisfies.
// Exactly one concrete engine handles a given Translate call; composition
// (fallback) happens above this interface, never inside an adapter.
type Engine interface {
	// Translate converts req.Text from the source to the target language.
	Translate(ctx context.Context, req *Request) (string, error)

	// Available reports whether the engine's required credentials and
	// configuration are present. It never performs network I/O.
	Available() bool

	// Name returns the human-readable engine name.
	Name() string

	// SupportedLanguages returns the language codes the engine accepts.
	SupportedLanguages() []string

	// EstimateCost returns the approximate cost in USD of translating text.
	EstimateCost(text string) float64
}

// NormalizeText normalizes text for cache-key derivation: surrounding
// whitespace stripped, lowercased, internal whitespace preserved.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
