package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/southtrip/caravel/internal/directdebit/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	insertChunkSize  = 500
)

type gormRepository struct{}

// Provide returns the gorm-backed engine repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (gormRepository) InsertBatch(ctx context.Context, db *gorm.DB, batch *domain.FileBatch) error {
	return db.WithContext(ctx).Create(batch).Error
}

func (gormRepository) FindBatch(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FileBatch, error) {
	var batch domain.FileBatch
	err := db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindInboundByDigest returns nil without error when no prior import of the
// same bytes exists; absence is the normal case.
func (gormRepository) FindInboundByDigest(ctx context.Context, db *gorm.DB, parentID snowflake.ID, sha256 string) (*domain.FileBatch, error) {
	var batch domain.FileBatch
	err := db.WithContext(ctx).
		Where("parent_batch_id = ? AND sha256 = ? AND direction = ?", parentID, sha256, domain.DirectionInbound).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (gormRepository) ListBatches(ctx context.Context, db *gorm.DB, filter domain.BatchFilter) ([]*domain.FileBatch, error) {
	q := db.WithContext(ctx).Model(&domain.FileBatch{})

	if !filter.From.IsZero() {
		q = q.Where("business_date >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("business_date <= ?", filter.To.UTC())
	}
	if filter.Direction != "" {
		q = q.Where("direction = ?", filter.Direction)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var batches []*domain.FileBatch
	err := q.Order("business_date DESC, id DESC").Limit(limit).Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (gormRepository) MarkBatchReady(ctx context.Context, db *gorm.DB, id snowflake.ID, stored domain.StoredFile, now time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE file_batches
		 SET status = ?, storage_key = ?, sha256 = ?, original_file_name = ?, content_type = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.BatchStatusReady,
		stored.StorageKey,
		stored.SHA256,
		stored.FileName,
		stored.ContentType,
		now.UTC(),
		id,
		domain.BatchStatusCreating,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrBatchNotFound
	}
	return nil
}

func (gormRepository) MarkBatchFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE file_batches
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.BatchStatusFailed,
		now.UTC(),
		id,
		domain.BatchStatusCreating,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrBatchNotFound
	}
	return nil
}

func (gormRepository) FinalizeInbound(ctx context.Context, db *gorm.DB, id snowflake.ID, counts domain.RowCounts, meta datatypes.JSONMap, now time.Time) error {
	if meta == nil {
		meta = datatypes.JSONMap{}
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE file_batches
		 SET status = ?, total_rows = ?, total_paid_rows = ?, total_rejected_rows = ?, total_error_rows = ?, metadata = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.BatchStatusProcessed,
		counts.Total,
		counts.Paid,
		counts.Rejected,
		counts.Errors,
		meta,
		now.UTC(),
		id,
		domain.BatchStatusProcessing,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrBatchNotFound
	}
	return nil
}

// MarkOutboundReconciled is idempotent: a batch already reconciled by an
// earlier import is left as is.
func (gormRepository) MarkOutboundReconciled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE file_batches
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND direction = ? AND status = ?`,
		domain.BatchStatusReconciled,
		now.UTC(),
		id,
		domain.DirectionOutbound,
		domain.BatchStatusReady,
	).Error
}

func (gormRepository) InsertItems(ctx context.Context, db *gorm.DB, items []*domain.FileBatchItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(items, insertChunkSize).Error
}

func (gormRepository) InsertItem(ctx context.Context, db *gorm.DB, item *domain.FileBatchItem) error {
	return db.WithContext(ctx).Create(item).Error
}

func (gormRepository) ListItemsByBatch(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]*domain.FileBatchItem, error) {
	var items []*domain.FileBatchItem
	err := db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("line_no ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (gormRepository) UpdateItemResult(ctx context.Context, db *gorm.DB, update domain.ItemResultUpdate) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE file_batch_items
		 SET status = ?, response_code = ?, response_message = ?, paid_reference = ?, processed_at = ?, updated_at = ?
		 WHERE id = ?`,
		update.Status,
		nullable(update.ResponseCode),
		nullable(update.ResponseMessage),
		nullable(update.PaidReference),
		update.ProcessedAt.UTC(),
		update.ProcessedAt.UTC(),
		update.ItemID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
