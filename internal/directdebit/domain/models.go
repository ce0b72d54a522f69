// Package domain defines the entities and contracts of the direct-debit
// presentment and reconciliation engine: outbound/inbound file batches,
// their per-row items, and the service/repository seams.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BatchDirection distinguishes files we send from files the bank answers.
type BatchDirection string

const (
	DirectionOutbound BatchDirection = "OUTBOUND"
	DirectionInbound  BatchDirection = "INBOUND"
)

// BatchStatus tracks a file batch through its lifecycle.
type BatchStatus string

const (
	// Outbound: CREATING while rows are persisted, then READY once the
	// file is stored, or EMPTY/FAILED.
	BatchStatusCreating BatchStatus = "CREATING"
	BatchStatusReady    BatchStatus = "READY"
	BatchStatusEmpty    BatchStatus = "EMPTY"
	BatchStatusFailed   BatchStatus = "FAILED"
	// Inbound: PROCESSING while rows are applied, then PROCESSED. The
	// outbound parent flips to RECONCILED once at least one row paid.
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusProcessed  BatchStatus = "PROCESSED"
	BatchStatusReconciled BatchStatus = "RECONCILED"
)

// FileType is the logical kind of file a batch carries.
type FileType string

const (
	FileTypePresentment FileType = "PRESENTMENT"
	FileTypeResponse    FileType = "RESPONSE"
)

// FileBatch is one generated or ingested bank file. Inbound batches
// reference the outbound batch they respond to via ParentBatchID; the
// (parent_batch_id, sha256) pair is unique among inbound batches, which is
// the duplicate-import guard.
type FileBatch struct {
	ID                snowflake.ID      `gorm:"primaryKey"`
	ParentBatchID     *snowflake.ID     `gorm:"index"`
	Direction         BatchDirection    `gorm:"type:text;not null;index"`
	Channel           string            `gorm:"type:text;not null"`
	FileType          FileType          `gorm:"type:text;not null"`
	Adapter           string            `gorm:"type:text;not null"`
	BusinessDate      time.Time         `gorm:"type:date;not null;index"`
	Status            BatchStatus       `gorm:"type:text;not null;index"`
	TotalRows         int               `gorm:"not null;default:0"`
	TotalAmountARS    decimal.Decimal   `gorm:"type:numeric(18,2);not null;default:0"`
	TotalPaidRows     int               `gorm:"not null;default:0"`
	TotalRejectedRows int               `gorm:"not null;default:0"`
	TotalErrorRows    int               `gorm:"not null;default:0"`
	StorageKey        *string           `gorm:"type:text"`
	SHA256            *string           `gorm:"type:text;index"`
	OriginalFileName  *string           `gorm:"type:text"`
	ContentType       *string           `gorm:"type:text"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FileBatch) TableName() string { return "file_batches" }

// ItemStatus tracks one row of a batch.
type ItemStatus string

const (
	ItemStatusPending  ItemStatus = "PENDING"
	ItemStatusPaid     ItemStatus = "PAID"
	ItemStatusRejected ItemStatus = "REJECTED"
	ItemStatusError    ItemStatus = "ERROR"
)

// FileBatchItem is one row of a batch file. Outbound items carry the
// matching keys (external reference and its raw hash); inbound items record
// every response row including unmatched ones, whose attempt/charge
// references stay nil for forensics.
type FileBatchItem struct {
	ID                snowflake.ID    `gorm:"primaryKey"`
	BatchID           snowflake.ID    `gorm:"not null;index"`
	AttemptID         *snowflake.ID   `gorm:"index"`
	ChargeID          *snowflake.ID   `gorm:"index"`
	LineNo            int             `gorm:"not null;default:0"`
	ExternalReference string          `gorm:"type:text;not null;index"`
	RawHash           string          `gorm:"type:text;not null;index"`
	AmountARS         decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	Status            ItemStatus      `gorm:"type:text;not null;index"`
	ResponseCode      *string         `gorm:"type:text"`
	ResponseMessage   *string         `gorm:"type:text"`
	PaidReference     *string         `gorm:"type:text"`
	RowPayload        *string         `gorm:"type:text"`
	ProcessedAt       *time.Time      `gorm:"column:processed_at"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FileBatchItem) TableName() string { return "file_batch_items" }
