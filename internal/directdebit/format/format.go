// Package format defines the bank file adapter seam: building outbound
// presentment files from pending charges and parsing bank response files
// into normalized records. Adapters perform no I/O and must produce
// deterministic bytes for identical input.
package format

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RecordResult is the normalized outcome of one response row.
type RecordResult string

const (
	ResultPaid     RecordResult = "PAID"
	ResultRejected RecordResult = "REJECTED"
	ResultError    RecordResult = "ERROR"
)

var (
	ErrUnknownAdapter = errors.New("unknown_adapter")
	ErrNoRows         = errors.New("no_rows")
	ErrEmptyInput     = errors.New("empty_input")
	ErrMissingHeader  = errors.New("missing_header")
)

// PresentmentRow is one pending charge to include in an outbound file.
type PresentmentRow struct {
	ExternalReference string
	AttemptID         snowflake.ID
	ChargeID          snowflake.ID
	AgencyID          snowflake.ID
	ScheduledFor      time.Time
	AmountARS         decimal.Decimal
	HolderName        string
	HolderTaxID       string
	CBULast4          string
}

// ParsedRecord is one normalized row of a bank response file. A malformed
// line still yields a record, with Result set to ERROR and the offending
// bytes preserved in Raw.
type ParsedRecord struct {
	LineNo            int
	ExternalReference string
	RawHash           string
	Result            RecordResult
	AmountARS         decimal.Decimal
	PaidReference     string
	RejectionCode     string
	RejectionReason   string
	Raw               string
}

// BuildMeta carries batch identity into the file builder so names and
// control records stay reproducible.
type BuildMeta struct {
	BatchID snowflake.ID
	Channel string
}

// Adapter serializes presentments and deserializes responses for one bank
// file grammar.
type Adapter interface {
	// Name identifies the adapter in configuration and batch records.
	Name() string
	// ContentType is the MIME type of files this adapter produces.
	ContentType() string
	// BuildPresentment renders rows into a complete outbound file. It must
	// produce identical bytes for identical input.
	BuildPresentment(businessDate time.Time, rows []PresentmentRow, meta BuildMeta) (fileName string, data []byte, err error)
	// ParseResponse normalizes raw response bytes into one record per line.
	// Byte-order marks are tolerated; malformed lines map to ERROR records
	// instead of aborting the parse.
	ParseResponse(data []byte) ([]ParsedRecord, error)
}
