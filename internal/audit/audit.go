// Package audit sinks room lifecycle events (created, extended,
// destroyed) to Postgres via GORM. It never stores wallet addresses,
// labels, or swap payloads — only the fact and timing of a lifecycle
// transition, preserving the no-durable-swap-history non-goal while
// still giving operators a created/extended/destroyed trail.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/keentechcodes/swapwatch/internal/config"
)

type EventType string

const (
	EventCreated   EventType = "created"
	EventExtended  EventType = "extended"
	EventDestroyed EventType = "destroyed"
)

// RoomAuditEvent is an append-only row: one per lifecycle transition.
type RoomAuditEvent struct {
	ID         uint      `gorm:"primaryKey"`
	RoomCode   string    `gorm:"size:64;index;not null"`
	EventType  string    `gorm:"size:32;not null"`
	Detail     string    `gorm:"type:jsonb"`
	OccurredAt time.Time `gorm:"not null;index"`
}

func (RoomAuditEvent) TableName() string { return "room_audit_events" }

// Sink records room lifecycle events. Record is best-effort: a
// failed write is logged, never propagated to the caller, since the
// audit trail is observability, not a correctness dependency.
type Sink interface {
	Record(ctx context.Context, code string, eventType EventType, detail map[string]interface{})
}

// noopSink is used when Database.Host is unset — the audit trail is
// simply disabled rather than failing startup.
type noopSink struct{}

func (noopSink) Record(context.Context, string, EventType, map[string]interface{}) {}

type gormSink struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// New connects to Postgres and migrates the audit table. If
// cfg.Host is empty it returns a no-op sink instead of an error —
// the audit log is an optional ambient concern, not load-bearing.
func New(cfg config.DatabaseConfig, logger *logrus.Logger) (Sink, error) {
	if cfg.Host == "" {
		return noopSink{}, nil
	}

	dsn := buildDSN(cfg)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&RoomAuditEvent{}); err != nil {
		return nil, err
	}

	return &gormSink{db: db, logger: logger}, nil
}

func (s *gormSink) Record(ctx context.Context, code string, eventType EventType, detail map[string]interface{}) {
	raw, err := json.Marshal(detail)
	if err != nil {
		s.logger.WithError(err).Warn("failed to marshal audit event detail")
		raw = []byte("{}")
	}

	event := RoomAuditEvent{
		RoomCode:   code,
		EventType:  string(eventType),
		Detail:     string(raw),
		OccurredAt: time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		s.logger.WithError(err).WithField("room_code", code).Warn("failed to write room audit event")
	}
}

func buildDSN(cfg config.DatabaseConfig) string {
	tz := cfg.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode, tz,
	)
}
