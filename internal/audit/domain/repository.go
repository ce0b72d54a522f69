package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Cursor points at the last entry of the previous page. Listing is keyset
// paginated on (created_at, id) descending because the trail grows without
// bound and offsets degrade.
type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// ListFilter narrows a trail read. Zero values mean "any"; StartAt is
// inclusive and EndAt exclusive so adjacent windows do not overlap.
type ListFilter struct {
	AgencyID   snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *Cursor
	Limit      int
}

// Repository persists trail entries. It holds no connection; callers pass
// the handle per call.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
