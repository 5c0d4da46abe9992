// Package cleanup runs the background retention sweeps: expired rooms are
// purged hourly, stale synthesis artifacts daily.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dawei41468/translator-sub001/internal/metrics"
	"github.com/dawei41468/translator-sub001/speech"
)

// RoomStore is the slice of the room persistence layer the sweeps need.
type RoomStore interface {
	DeleteRoomsOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Config configures the retention sweeps. Zero fields take the defaults
// below.
type Config struct {
	// RoomRetention is how long a room lives after creation. Default 24h.
	RoomRetention time.Duration `json:"room_retention" yaml:"room_retention"`
	// RoomInterval is how often expired rooms are swept. Default 1h.
	RoomInterval time.Duration `json:"room_interval" yaml:"room_interval"`
	// CacheRetention is how long synthesis artifacts live after their last
	// modification. Default 7 days.
	CacheRetention time.Duration `json:"cache_retention" yaml:"cache_retention"`
	// CacheInterval is how often stale artifacts are swept. Default 24h.
	CacheInterval time.Duration `json:"cache_interval" yaml:"cache_interval"`
	// CacheDir is the synthesis cache directory to sweep.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

// DefaultConfig returns the default sweep configuration.
func DefaultConfig() Config {
	return Config{
		RoomRetention:  24 * time.Hour,
		RoomInterval:   time.Hour,
		CacheRetention: 7 * 24 * time.Hour,
		CacheInterval:  24 * time.Hour,
	}
}

// Service owns the sweep schedules. Sweeps are also callable directly,
// which is how the process invokes them on demand and how tests drive them.
type Service struct {
	cfg     Config
	rooms   RoomStore
	logger  *zap.Logger
	metrics *metrics.Collector

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      sync.WaitGroup
}

// NewService creates a stopped sweep service. rooms may be nil, in which
// case the room sweep is skipped.
func NewService(cfg Config, rooms RoomStore, logger *zap.Logger, mx *metrics.Collector) *Service {
	def := DefaultConfig()
	if cfg.RoomRetention <= 0 {
		cfg.RoomRetention = def.RoomRetention
	}
	if cfg.RoomInterval <= 0 {
		cfg.RoomInterval = def.RoomInterval
	}
	if cfg.CacheRetention <= 0 {
		cfg.CacheRetention = def.CacheRetention
	}
	if cfg.CacheInterval <= 0 {
		cfg.CacheInterval = def.CacheInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:     cfg,
		rooms:   rooms,
		logger:  logger.With(zap.String("component", "cleanup")),
		metrics: mx,
		stop:    make(chan struct{}),
	}
}

// Start launches the sweep schedules. Each schedule fires on its interval;
// a sweep failure is logged and the schedule keeps running.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		if s.rooms != nil {
			s.done.Add(1)
			go s.run(s.cfg.RoomInterval, func(ctx context.Context) {
				if _, err := s.CleanupExpiredRooms(ctx); err != nil {
					s.logger.Error("room sweep failed", zap.Error(err))
				}
			})
		}
		if s.cfg.CacheDir != "" {
			s.done.Add(1)
			go s.run(s.cfg.CacheInterval, func(ctx context.Context) {
				if _, err := s.CleanupSynthCache(ctx); err != nil {
					s.logger.Error("synthesis cache sweep failed", zap.Error(err))
				}
			})
		}
		s.logger.Info("cleanup schedules started",
			zap.Duration("room_interval", s.cfg.RoomInterval),
			zap.Duration("cache_interval", s.cfg.CacheInterval),
		)
	})
}

// Stop halts the schedules. A sweep in flight finishes first.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.done.Wait()
}

func (s *Service) run(interval time.Duration, sweep func(context.Context)) {
	defer s.done.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sweep(context.Background())
		case <-s.stop:
			return
		}
	}
}

// CleanupExpiredRooms deletes rooms older than the retention window and
// returns how many were removed.
func (s *Service) CleanupExpiredRooms(ctx context.Context) (int64, error) {
	deleted, err := s.rooms.DeleteRoomsOlderThan(ctx, s.cfg.RoomRetention)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.RecordCleanup("rooms", int(deleted))
	}
	if deleted > 0 {
		s.logger.Info("expired rooms removed", zap.Int64("count", deleted))
	}
	return deleted, nil
}

// CleanupSynthCache removes synthesis artifacts whose last modification is
// older than the retention window. A missing cache directory is a no-op.
// Entries that cannot be inspected or removed are skipped; the sweep keeps
// going.
func (s *Service) CleanupSynthCache(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.cfg.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-s.cfg.CacheRetention)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != speech.CacheExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to stat cache entry", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.CacheDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove cache entry", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	if s.metrics != nil {
		s.metrics.RecordCleanup("tts_cache", removed)
	}
	if removed > 0 {
		s.logger.Info("stale synthesis artifacts removed", zap.Int("count", removed))
	}
	return removed, nil
}
