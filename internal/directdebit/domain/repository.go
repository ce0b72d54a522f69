package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BatchFilter bounds a batch listing. Both date bounds are inclusive on
// business_date; a zero Direction matches both directions.
type BatchFilter struct {
	From      time.Time
	To        time.Time
	Direction BatchDirection
	Limit     int
}

// StoredFile records where a batch's bytes ended up.
type StoredFile struct {
	StorageKey  string
	SHA256      string
	FileName    string
	ContentType string
}

// RowCounts aggregates a finished inbound batch.
type RowCounts struct {
	Total    int
	Paid     int
	Rejected int
	Errors   int
}

// ItemResultUpdate applies a response outcome to an outbound item.
type ItemResultUpdate struct {
	ItemID          snowflake.ID
	Status          ItemStatus
	ResponseCode    string
	ResponseMessage string
	PaidReference   string
	ProcessedAt     time.Time
}

// Repository persists the rows the engine exclusively owns. Callers pass
// the database handle so methods compose with surrounding transactions.
type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, batch *FileBatch) error
	FindBatch(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FileBatch, error)
	// FindInboundByDigest locates a prior inbound batch for the same
	// outbound parent and exact file digest, the duplicate-import guard.
	FindInboundByDigest(ctx context.Context, db *gorm.DB, parentID snowflake.ID, sha256 string) (*FileBatch, error)
	ListBatches(ctx context.Context, db *gorm.DB, filter BatchFilter) ([]*FileBatch, error)
	MarkBatchReady(ctx context.Context, db *gorm.DB, id snowflake.ID, stored StoredFile, now time.Time) error
	MarkBatchFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	FinalizeInbound(ctx context.Context, db *gorm.DB, id snowflake.ID, counts RowCounts, meta datatypes.JSONMap, now time.Time) error
	// MarkOutboundReconciled flips a READY outbound batch once at least
	// one of its rows collected.
	MarkOutboundReconciled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error

	InsertItems(ctx context.Context, db *gorm.DB, items []*FileBatchItem) error
	InsertItem(ctx context.Context, db *gorm.DB, item *FileBatchItem) error
	ListItemsByBatch(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]*FileBatchItem, error)
	UpdateItemResult(ctx context.Context, db *gorm.DB, update ItemResultUpdate) error
}
