package translation

import (
	"context"

	"go.uber.org/zap"

	"github.com/dawei41468/translator-sub001/internal/metrics"
)

// FallbackEngine delegates to a secondary engine when the primary's call
// fails. Its advertised identity (name, languages, cost, availability) is
// the primary's; the caller cannot tell which engine produced the result
// except through logs. The decorator is a pure value built per resolution
// by the registry, never cached, so preference changes take effect on the
// next call.
type FallbackEngine struct {
	primaryID   string
	primary     Engine
	secondaryID string
	secondary   Engine
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// NewFallbackEngine wraps primary with secondary.
func NewFallbackEngine(primaryID string, primary Engine, secondaryID string, secondary Engine, logger *zap.Logger, mx *metrics.Collector) *FallbackEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackEngine{
		primaryID:   primaryID,
		primary:     primary,
		secondaryID: secondaryID,
		secondary:   secondary,
		logger:      logger.With(zap.String("component", "fallback_engine")),
		metrics:     mx,
	}
}

// Translate tries the primary; on any failure it retries once on the
// secondary if the secondary is available, otherwise it re-raises the
// primary's error unchanged.
func (e *FallbackEngine) Translate(ctx context.Context, req *Request) (string, error) {
	out, err := e.primary.Translate(ctx, req)
	if err == nil {
		return out, nil
	}

	if !e.secondary.Available() {
		return "", err
	}

	e.logger.Warn("primary engine failed, falling back",
		zap.String("primary", e.primaryID),
		zap.String("secondary", e.secondaryID),
		zap.Error(err),
	)
	if e.metrics != nil {
		e.metrics.RecordFallback(e.primaryID)
	}

	return e.secondary.Translate(ctx, req)
}

func (e *FallbackEngine) Available() bool { return e.primary.Available() }

func (e *FallbackEngine) Name() string { return e.primary.Name() }

func (e *FallbackEngine) SupportedLanguages() []string { return e.primary.SupportedLanguages() }

func (e *FallbackEngine) EstimateCost(text string) float64 { return e.primary.EstimateCost(text) }
