// Package store provides the relational store for conversational rooms.
// This package is internal and should not be imported by external projects.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrRoomNotFound indicates no room exists for the requested code.
var ErrRoomNotFound = errors.New("room not found")

// Room is a conversational room keyed by a short join code. Rooms are
// transient: the cleanup scheduler bulk-deletes rows past their retention
// window, so nothing here outlives CreatedAt plus the configured age.
type Room struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:8;uniqueIndex" json:"code"`
	Name      string    `gorm:"size:128" json:"name"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// RoomStore wraps the gorm handle for room persistence.
type RoomStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to the configured database. Supported drivers are "sqlite"
// (embedded, DSN is a file path or ":memory:") and "postgres".
func Open(driver, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		if dsn == "" {
			dsn = "relay.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	logger.Info("database connected", zap.String("driver", driver))
	return db, nil
}

// NewRoomStore creates a room store over an open gorm handle.
func NewRoomStore(db *gorm.DB, logger *zap.Logger) (*RoomStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomStore{
		db:     db,
		logger: logger.With(zap.String("component", "room_store")),
	}, nil
}

// Migrate ensures the rooms table exists and is up to date.
func (s *RoomStore) Migrate() error {
	if err := s.db.AutoMigrate(&Room{}); err != nil {
		return fmt.Errorf("room store migration failed: %w", err)
	}
	return nil
}

// Create persists a new room.
func (s *RoomStore) Create(ctx context.Context, room *Room) error {
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// FindByCode looks up a room by its join code.
func (s *RoomStore) FindByCode(ctx context.Context, code string) (*Room, error) {
	var room Room
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

// DeleteRoomsOlderThan bulk-deletes rooms created before now-age and returns
// the number of rows removed. One statement, no per-row iteration.
func (s *RoomStore) DeleteRoomsOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Room{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired rooms: %w", res.Error)
	}
	return res.RowsAffected, nil
}
