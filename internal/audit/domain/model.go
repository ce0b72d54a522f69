// Package domain defines the immutable audit trail. Every presentment,
// import and attempt transition appends one row here; rows are never
// updated or deleted.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActorType says who triggered an action: a back-office operator or the
// engine itself.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// AuditLog is one appended trail entry. AgencyID is nil for entries that
// cannot be pinned to an agency, such as an unmatched response row whose
// reference resolved to no attempt. Metadata carries the action-specific
// detail, including the request id when one is known.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	AgencyID   *snowflake.ID     `gorm:"index"`
	ActorType  string            `gorm:"type:text;not null"`
	ActorID    *string           `gorm:"type:text"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   *string           `gorm:"type:text"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	IPAddress  *string           `gorm:"type:text"`
	UserAgent  *string           `gorm:"type:text"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
