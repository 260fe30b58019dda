package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemLog is one ERROR+ record persisted by the database log sink. Actor
// and channel columns are filled from the matching slog attributes so
// failures can be traced per rider, captain or socket.
type SystemLog struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp time.Time      `gorm:"not null;index:idx_system_logs_level_time,priority:2" json:"timestamp"`
	Level     string         `gorm:"size:10;not null;index:idx_system_logs_level_time,priority:1" json:"level"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	RequestID string         `gorm:"size:36;index" json:"request_id,omitempty"`
	ActorID   string         `gorm:"size:36;index" json:"actor_id,omitempty"`
	ActorKind ActorKind      `gorm:"size:20" json:"actor_kind,omitempty"`
	ChannelID string         `gorm:"size:64" json:"channel_id,omitempty"`
	Action    string         `gorm:"size:100" json:"action,omitempty"`
	Error     string         `gorm:"type:text" json:"error,omitempty"`
	LatencyMs int            `json:"latency_ms,omitempty"`
	Extra     datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"extra"`
}
