// Package journal persists an audit trail of the run to a local SQLite
// file, so a lost race can be reconstructed afterwards.
package journal

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Event is one recorded state transition or attempt outcome.
type Event struct {
	ID     int64     `gorm:"autoIncrement;primaryKey"`
	At     time.Time `gorm:"not null;index"`
	State  string    `gorm:"not null"`
	Detail string
}

// Journal writes run events. A nil *Journal is valid and records nothing,
// so the bot can run without a journal configured.
type Journal struct {
	db *gorm.DB
}

// Open opens (or creates) the journal database at path and migrates the
// schema.
func Open(path string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("journal automigrate failed: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends one event.
func (j *Journal) Record(ctx context.Context, state, detail string) error {
	if j == nil {
		return nil
	}
	event := Event{At: time.Now(), State: state, Detail: detail}
	if err := j.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record journal event: %w", err)
	}
	return nil
}

// Events returns all recorded events in insertion order.
func (j *Journal) Events(ctx context.Context) ([]Event, error) {
	if j == nil {
		return nil, nil
	}
	var events []Event
	if err := j.db.WithContext(ctx).Order("id").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load journal events: %w", err)
	}
	return events, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
