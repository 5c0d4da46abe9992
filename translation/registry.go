package translation

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dawei41468/translator-sub001/internal/metrics"
)

// Distinguished engine ids. The model-based engine is the less reliable
// path, so the registry wraps it with the cloud engine as a fallback; the
// cloud engine is the trusted baseline and is never wrapped.
const (
	EngineIDCloud = "google"
	EngineIDModel = "gpt"
)

// EngineInfo describes a registered engine for listing.
type EngineInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry holds every registered engine and resolves a per-user preference
// to a concrete (possibly fallback-wrapped) engine. It is constructed once
// at process start and passed down explicitly; engine registration happens
// at startup, preference mutation is a rare administrative action, and
// resolution is the hot read path.
type Registry struct {
	mu        sync.RWMutex
	engines   map[string]Engine
	order     []string
	prefs     map[string]string
	defaultID string
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// NewRegistry creates a registry with the given process-wide default
// engine id.
func NewRegistry(defaultID string, logger *zap.Logger, mx *metrics.Collector) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		engines:   make(map[string]Engine),
		prefs:     make(map[string]string),
		defaultID: defaultID,
		logger:    logger.With(zap.String("component", "translation_registry")),
		metrics:   mx,
	}
}

// Register adds an engine under id. Registration order is the fallback
// search order; re-registering an id replaces the engine in place.
func (r *Registry) Register(id string, engine Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.engines[id]; !ok {
		r.order = append(r.order, id)
	}
	r.engines[id] = engine
	r.logger.Info("translation engine registered",
		zap.String("id", id),
		zap.String("name", engine.Name()),
		zap.Bool("available", engine.Available()),
	)
}

// SetUserPreference records userID's preferred engine id.
func (r *Registry) SetUserPreference(userID, engineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.engines[engineID]; !ok {
		return fmt.Errorf("engine %q not registered", engineID)
	}
	r.prefs[userID] = engineID
	return nil
}

// Engine resolves the engine for userID. An empty userID (or a user with no
// recorded preference) resolves to the process-wide default. The model-based
// engine comes back wrapped with the cloud engine as fallback whenever the
// cloud engine is registered; the secondary's availability is checked only
// when the fallback is actually invoked. If the resolved engine is missing
// or unavailable, the first available engine in registration order is
// returned instead; with no engine available the call fails.
func (r *Registry) Engine(userID string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := r.defaultID
	if userID != "" {
		if pref, ok := r.prefs[userID]; ok {
			id = pref
		}
	}

	if engine, ok := r.engines[id]; ok && engine.Available() {
		return r.wrap(id, engine), nil
	}

	for _, fallbackID := range r.order {
		engine := r.engines[fallbackID]
		if !engine.Available() {
			continue
		}
		r.logger.Warn("preferred engine unavailable, using first available",
			zap.String("preferred", id),
			zap.String("selected", fallbackID),
		)
		return r.wrap(fallbackID, engine), nil
	}

	return nil, &Error{
		Code:    ErrCodeNoEngine,
		Message: "no translation engine available",
	}
}

// wrap decorates the model-based engine with the cloud fallback. Callers
// must hold at least the read lock.
func (r *Registry) wrap(id string, engine Engine) Engine {
	if id != EngineIDModel {
		return engine
	}
	secondary, ok := r.engines[EngineIDCloud]
	if !ok {
		return engine
	}
	return NewFallbackEngine(id, engine, EngineIDCloud, secondary, r.logger, r.metrics)
}

// AvailableEngines lists registered engines whose credentials are present,
// in registration order.
func (r *Registry) AvailableEngines() []EngineInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]EngineInfo, 0, len(r.order))
	for _, id := range r.order {
		engine := r.engines[id]
		if !engine.Available() {
			continue
		}
		infos = append(infos, EngineInfo{ID: id, Name: engine.Name()})
	}
	return infos
}
