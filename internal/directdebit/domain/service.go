package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Service is the engine's public surface. The builder and the importer are
// invoked synchronously by an external caller and run to completion within
// that call.
type Service interface {
	CreatePresentmentBatch(ctx context.Context, req CreatePresentmentRequest) (*BatchSummary, error)
	ImportResponseBatch(ctx context.Context, req ImportRequest) (*ImportResult, error)
	ListBatches(ctx context.Context, req ListBatchesRequest) (ListBatchesResponse, error)
	DownloadBatchFile(ctx context.Context, batchID string) (*BatchFile, error)
}

var (
	ErrInvalidBusinessDate = errors.New("invalid_business_date")
	ErrInvalidBatchID      = errors.New("invalid_batch_id")
	ErrBatchNotFound       = errors.New("batch_not_found")
	ErrItemNotFound        = errors.New("batch_item_not_found")
	ErrNotOutboundBatch    = errors.New("not_outbound_batch")
	ErrBatchFileMissing    = errors.New("batch_file_missing")
	ErrEmptyFile           = errors.New("empty_file")
	ErrInvalidDateRange    = errors.New("invalid_date_range")
	ErrInvalidDirection    = errors.New("invalid_direction")
	ErrAdapterNotFound     = errors.New("adapter_not_found")
)

// CreatePresentmentRequest asks the builder to present every eligible
// attempt scheduled on or before the business date.
type CreatePresentmentRequest struct {
	// BusinessDate in YYYY-MM-DD form.
	BusinessDate string
	ActorUserID  string
}

// ImportRequest carries an uploaded bank response file for reconciliation
// against the outbound batch it answers.
type ImportRequest struct {
	OutboundBatchID string
	FileName        string
	Data            []byte
	ActorUserID     string
}

// BatchSummary is the caller-facing view of a file batch.
type BatchSummary struct {
	BatchID           snowflake.ID    `json:"batch_id"`
	ParentBatchID     *snowflake.ID   `json:"parent_batch_id,omitempty"`
	Direction         BatchDirection  `json:"direction"`
	Channel           string          `json:"channel"`
	Adapter           string          `json:"adapter"`
	BusinessDate      string          `json:"business_date"`
	Status            BatchStatus     `json:"status"`
	TotalRows         int             `json:"total_rows"`
	TotalAmountARS    decimal.Decimal `json:"total_amount_ars"`
	TotalPaidRows     int             `json:"total_paid_rows"`
	TotalRejectedRows int             `json:"total_rejected_rows"`
	TotalErrorRows    int             `json:"total_error_rows"`
	DownloadFileName  string          `json:"download_file_name,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ImportSummary aggregates the per-row outcomes of one import.
type ImportSummary struct {
	MatchedRows  int `json:"matched_rows"`
	Paid         int `json:"paid"`
	Rejected     int `json:"rejected"`
	ErrorRows    int `json:"error_rows"`
	FiscalIssued int `json:"fiscal_issued"`
	FiscalFailed int `json:"fiscal_failed"`
}

// ImportResult reports one response-file import. AlreadyImported is set
// when a byte-identical file had been applied before and the stored result
// is returned instead of re-applying rows.
type ImportResult struct {
	InboundBatchID  snowflake.ID  `json:"inbound_batch_id"`
	AlreadyImported bool          `json:"already_imported,omitempty"`
	Summary         ImportSummary `json:"summary"`
}

// ListBatchesRequest filters historical batches by business date range and
// optional direction. Dates use YYYY-MM-DD form; both bounds are inclusive.
type ListBatchesRequest struct {
	From      string
	To        string
	Direction string
	Limit     int
}

// ListBatchesResponse lists batch summaries newest first.
type ListBatchesResponse struct {
	Batches []BatchSummary `json:"batches"`
}

// BatchFile is the exact stored bytes of a batch file, for operator
// download and manual reconciliation.
type BatchFile struct {
	FileName    string
	ContentType string
	Data        []byte
}
