package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Actions emitted by the direct-debit engine.
const (
	ActionBatchOutboundCreated  = "PD_BATCH_OUTBOUND_CREATED"
	ActionBatchInboundImported  = "PD_BATCH_INBOUND_IMPORTED"
	ActionAttemptMarkedPaid     = "ATTEMPT_MARKED_PAID"
	ActionAttemptMarkedRejected = "ATTEMPT_MARKED_REJECTED"
)

// Target types referenced by engine audit entries.
const (
	TargetTypeFileBatch         = "file_batch"
	TargetTypeCollectionAttempt = "collection_attempt"
)

var (
	ErrInvalidAction = errors.New("invalid_audit_action")
	ErrInvalidTarget = errors.New("invalid_audit_target")
)

// Service appends and reads immutable audit entries. Actor, IP and user
// agent fall back to request context values when the caller passes none.
type Service interface {
	AuditLog(ctx context.Context, agencyID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}
