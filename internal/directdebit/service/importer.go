package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/southtrip/caravel/internal/audit/domain"
	billingdomain "github.com/southtrip/caravel/internal/billing/domain"
	"github.com/southtrip/caravel/internal/directdebit/domain"
	"github.com/southtrip/caravel/internal/directdebit/format"
	"github.com/southtrip/caravel/internal/events"
	"github.com/southtrip/caravel/internal/storage"
)

// importTally accumulates per-row outcomes across one import. Rows are
// independent, so the tally survives individual row failures.
type importTally struct {
	matched  int
	paid     int
	rejected int
	errors   int

	// newlyPaid lists charges whose PAID transition happened in this
	// import, the candidates for fiscal issuance. A charge appears once
	// even if several response rows assert it.
	newlyPaid []paidCharge
	agencies  map[snowflake.ID]struct{}
}

func newImportTally() *importTally {
	return &importTally{agencies: map[snowflake.ID]struct{}{}}
}

func (t *importTally) touch(agencyID snowflake.ID) {
	t.agencies[agencyID] = struct{}{}
}

type paidCharge struct {
	chargeID snowflake.ID
	agencyID snowflake.ID
}

// lockedAttempt and lockedCharge are the row snapshots taken under lock at
// the start of each matched-row transaction.
type lockedAttempt struct {
	ID       snowflake.ID `gorm:"column:id"`
	ChargeID snowflake.ID `gorm:"column:charge_id"`
	Status   string       `gorm:"column:status"`
}

type lockedCharge struct {
	ID           snowflake.ID    `gorm:"column:id"`
	AgencyID     snowflake.ID    `gorm:"column:agency_id"`
	CycleID      *snowflake.ID   `gorm:"column:cycle_id"`
	Status       string          `gorm:"column:status"`
	AmountARSDue decimal.Decimal `gorm:"column:amount_ars_due"`
}

// ImportResponseBatch applies a bank response file against the outbound
// batch it answers. A byte-identical re-upload returns the stored result of
// the first import instead of re-applying rows. Each matched row commits in
// its own transaction, so one poisoned row never blocks the rest of the
// file.
func (s *Service) ImportResponseBatch(ctx context.Context, req domain.ImportRequest) (*domain.ImportResult, error) {
	outboundID, err := parseBatchID(req.OutboundBatchID)
	if err != nil {
		return nil, err
	}
	if len(req.Data) == 0 {
		return nil, domain.ErrEmptyFile
	}

	outBatch, err := s.repo.FindBatch(ctx, s.db, outboundID)
	if err != nil {
		return nil, err
	}
	if outBatch.Direction != domain.DirectionOutbound {
		return nil, domain.ErrNotOutboundBatch
	}

	fileDigest := storage.Digest(req.Data)
	prior, err := s.repo.FindInboundByDigest(ctx, s.db, outboundID, fileDigest)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return priorImportResult(prior), nil
	}

	adapter, err := s.adapter(outBatch.Adapter)
	if err != nil {
		return nil, err
	}

	start := s.clock.Now()
	records, err := adapter.ParseResponse(req.Data)
	if err != nil {
		if errors.Is(err, format.ErrEmptyInput) {
			return nil, domain.ErrEmptyFile
		}
		return nil, fmt.Errorf("parse response: %w", err)
	}

	outItems, err := s.repo.ListItemsByBatch(ctx, s.db, outboundID)
	if err != nil {
		return nil, err
	}
	byRef := make(map[string]*domain.FileBatchItem, len(outItems))
	byHash := make(map[string]*domain.FileBatchItem, len(outItems))
	for _, item := range outItems {
		byRef[item.ExternalReference] = item
		byHash[item.RawHash] = item
	}

	inboundID := s.genID.Generate()
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = "response.dat"
	}
	key := storage.BatchKey(string(domain.DirectionInbound), outBatch.BusinessDate, inboundID, fileName)
	if err := s.store.Upload(ctx, key, req.Data, adapter.ContentType()); err != nil {
		return nil, err
	}

	inBatch := &domain.FileBatch{
		ID:               inboundID,
		ParentBatchID:    &outboundID,
		Direction:        domain.DirectionInbound,
		Channel:          outBatch.Channel,
		FileType:         domain.FileTypeResponse,
		Adapter:          outBatch.Adapter,
		BusinessDate:     outBatch.BusinessDate,
		Status:           domain.BatchStatusProcessing,
		TotalRows:        len(records),
		StorageKey:       &key,
		SHA256:           &fileDigest,
		OriginalFileName: &fileName,
		ContentType:      ptr(adapter.ContentType()),
		Metadata:         datatypes.JSONMap{},
	}
	if err := s.repo.InsertBatch(ctx, s.db, inBatch); err != nil {
		// A concurrent import of the same bytes wins the unique
		// (parent_batch_id, sha256) race; surface its result.
		if prior, dupErr := s.repo.FindInboundByDigest(ctx, s.db, outboundID, fileDigest); dupErr == nil && prior != nil {
			return priorImportResult(prior), nil
		}
		return nil, err
	}

	actorType, actorID := auditActor(req.ActorUserID)
	tally := newImportTally()
	for _, rec := range records {
		s.applyRecord(ctx, inboundID, outboundID, rec, byRef, byHash, tally, actorType, actorID)
	}

	issued, failed := s.issueFiscal(ctx, tally.newlyPaid, req.ActorUserID)

	now := s.clock.Now()
	meta := domain.ImportMeta{
		MatchedRows:  tally.matched,
		FiscalIssued: issued,
		FiscalFailed: failed,
	}
	if err := s.repo.FinalizeInbound(ctx, s.db, inboundID, domain.RowCounts{
		Total:    len(records),
		Paid:     tally.paid,
		Rejected: tally.rejected,
		Errors:   tally.errors,
	}, meta.ToMap(), now); err != nil {
		return nil, err
	}

	if tally.paid > 0 {
		if err := s.repo.MarkOutboundReconciled(ctx, s.db, outboundID, now); err != nil {
			s.log.Warn("outbound reconcile flag failed",
				zap.Int64("batch_id", int64(outboundID)),
				zap.Error(err),
			)
		}
	}

	importMeta := map[string]any{
		"outbound_batch_id": outboundID.String(),
		"business_date":     outBatch.BusinessDate.UTC().Format("2006-01-02"),
		"adapter":           outBatch.Adapter,
		"matched_rows":      tally.matched,
		"paid":              tally.paid,
		"rejected":          tally.rejected,
		"error_rows":        tally.errors,
	}
	if len(tally.agencies) == 0 {
		s.audit(ctx, nil, actorType, actorID, auditdomain.ActionBatchInboundImported, inboundID, importMeta)
	}
	for agencyID := range tally.agencies {
		s.audit(ctx, &agencyID, actorType, actorID, auditdomain.ActionBatchInboundImported, inboundID, importMeta)
		if pubErr := s.outbox.Publish(ctx, events.Event{
			AgencyID: agencyID,
			Type:     events.EventBatchImported,
			Payload: events.BatchImportedPayload{
				InboundBatchID:  inboundID.String(),
				OutboundBatchID: outboundID.String(),
				MatchedRows:     tally.matched,
				Paid:            tally.paid,
				Rejected:        tally.rejected,
				ErrorRows:       tally.errors,
			}.ToMap(),
			DedupeKey: fmt.Sprintf("%s:%d", events.EventBatchImported, inboundID),
		}); pubErr != nil {
			s.log.Warn("outbox publish failed",
				zap.Int64("batch_id", int64(inboundID)),
				zap.Error(pubErr),
			)
		}
	}

	s.metrics.IncBatch(string(domain.DirectionInbound), string(domain.BatchStatusProcessed))
	s.metrics.AddRows(string(domain.DirectionInbound), "paid", tally.paid)
	s.metrics.AddRows(string(domain.DirectionInbound), "rejected", tally.rejected)
	s.metrics.AddRows(string(domain.DirectionInbound), "error", tally.errors)
	s.metrics.ObserveImportDuration(outBatch.Adapter, s.clock.Now().Sub(start))

	s.log.Info("response batch imported",
		zap.Int64("inbound_batch_id", int64(inboundID)),
		zap.Int64("outbound_batch_id", int64(outboundID)),
		zap.Int("rows", len(records)),
		zap.Int("matched", tally.matched),
		zap.Int("paid", tally.paid),
		zap.Int("rejected", tally.rejected),
		zap.Int("errors", tally.errors),
	)

	return &domain.ImportResult{
		InboundBatchID: inboundID,
		Summary: domain.ImportSummary{
			MatchedRows:  tally.matched,
			Paid:         tally.paid,
			Rejected:     tally.rejected,
			ErrorRows:    tally.errors,
			FiscalIssued: issued,
			FiscalFailed: failed,
		},
	}, nil
}

// applyRecord processes one response row. Unmatched and malformed rows
// persist as ERROR items and never abort the import; matched rows apply
// their state transitions in an isolated transaction.
func (s *Service) applyRecord(
	ctx context.Context,
	inboundID, outboundID snowflake.ID,
	rec format.ParsedRecord,
	byRef, byHash map[string]*domain.FileBatchItem,
	tally *importTally,
	actorType string,
	actorID *string,
) {
	if rec.Result == format.ResultError {
		s.insertErrorItem(ctx, inboundID, rec, "malformed_row")
		tally.errors++
		return
	}

	item := matchRecord(rec, byRef, byHash)
	if item == nil {
		s.insertErrorItem(ctx, inboundID, rec, "no_matching_presentment_row")
		tally.errors++
		return
	}
	tally.matched++

	outcome, err := s.applyMatchedRecord(ctx, inboundID, rec, item)
	if err != nil {
		s.log.Warn("response row failed",
			zap.Int64("inbound_batch_id", int64(inboundID)),
			zap.Int("line_no", rec.LineNo),
			zap.Error(err),
		)
		s.insertErrorItem(ctx, inboundID, rec, "row_apply_failed")
		tally.errors++
		return
	}

	tally.touch(outcome.agencyID)
	switch outcome.result {
	case domain.ItemStatusPaid:
		tally.paid++
		if outcome.newlyPaid {
			tally.newlyPaid = append(tally.newlyPaid, paidCharge{
				chargeID: outcome.chargeID,
				agencyID: outcome.agencyID,
			})
		}
		if outcome.transitioned {
			s.auditAttempt(ctx, outcome.agencyID, actorType, actorID, auditdomain.ActionAttemptMarkedPaid, outcome.attemptID, map[string]any{
				"inbound_batch_id":  inboundID.String(),
				"outbound_batch_id": outboundID.String(),
				"charge_id":         outcome.chargeID.String(),
				"amount_ars":        outcome.amount.StringFixed(2),
				"paid_reference":    rec.PaidReference,
			})
		}
	case domain.ItemStatusRejected:
		tally.rejected++
		if outcome.transitioned {
			s.auditAttempt(ctx, outcome.agencyID, actorType, actorID, auditdomain.ActionAttemptMarkedRejected, outcome.attemptID, map[string]any{
				"inbound_batch_id":  inboundID.String(),
				"outbound_batch_id": outboundID.String(),
				"charge_id":         outcome.chargeID.String(),
				"rejection_code":    rec.RejectionCode,
				"rejection_reason":  rec.RejectionReason,
			})
		}
	default:
		// A matched row the state machine refused, e.g. a PAID response
		// for a rejected attempt.
		tally.errors++
	}
}

// matchRecord resolves a response row to its outbound item: first by the
// echoed reference, then by the row hash, finally by reconstructing the
// synthetic fallback reference from a mangled echo.
func matchRecord(rec format.ParsedRecord, byRef, byHash map[string]*domain.FileBatchItem) *domain.FileBatchItem {
	if ref := format.CanonicalReference(rec.ExternalReference); ref != "" {
		if item := byRef[ref]; item != nil {
			return item
		}
	}
	if rec.RawHash != "" {
		if item := byHash[rec.RawHash]; item != nil {
			return item
		}
	}
	if fallback, ok := format.DeriveFallback(rec.ExternalReference); ok {
		if item := byRef[fallback]; item != nil {
			return item
		}
	}
	return nil
}

// rowOutcome reports what one matched row actually changed. result is the
// status mirrored onto the inbound item; transitioned is false on
// idempotent re-asserts; newlyPaid is true only when this row moved the
// charge to PAID.
type rowOutcome struct {
	attemptID    snowflake.ID
	chargeID     snowflake.ID
	agencyID     snowflake.ID
	amount       decimal.Decimal
	result       domain.ItemStatus
	transitioned bool
	newlyPaid    bool
}

func (s *Service) applyMatchedRecord(ctx context.Context, inboundID snowflake.ID, rec format.ParsedRecord, item *domain.FileBatchItem) (rowOutcome, error) {
	var outcome rowOutcome
	if item.AttemptID == nil || item.ChargeID == nil {
		return outcome, fmt.Errorf("outbound item %d has no attempt reference", item.ID)
	}

	err := s.withTx(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		var attempt lockedAttempt
		if err := tx.WithContext(txCtx).Raw(
			`SELECT id, charge_id, status FROM collection_attempts WHERE id = ?`+s.rowLockClause(false),
			*item.AttemptID,
		).Scan(&attempt).Error; err != nil {
			return err
		}
		if attempt.ID == 0 {
			return fmt.Errorf("attempt %d not found", *item.AttemptID)
		}

		var charge lockedCharge
		if err := tx.WithContext(txCtx).Raw(
			`SELECT id, agency_id, cycle_id, status, amount_ars_due FROM charges WHERE id = ?`+s.rowLockClause(false),
			attempt.ChargeID,
		).Scan(&charge).Error; err != nil {
			return err
		}
		if charge.ID == 0 {
			return fmt.Errorf("charge %d not found", attempt.ChargeID)
		}

		outcome.attemptID = attempt.ID
		outcome.chargeID = charge.ID
		outcome.agencyID = charge.AgencyID

		switch rec.Result {
		case format.ResultPaid:
			return s.applyPaidTx(txCtx, tx, inboundID, rec, item, attempt, charge, &outcome)
		case format.ResultRejected:
			return s.applyRejectedTx(txCtx, tx, inboundID, rec, item, attempt, &outcome)
		default:
			return fmt.Errorf("unexpected row result %q", rec.Result)
		}
	})
	return outcome, err
}

func (s *Service) applyPaidTx(
	ctx context.Context,
	tx *gorm.DB,
	inboundID snowflake.ID,
	rec format.ParsedRecord,
	item *domain.FileBatchItem,
	attempt lockedAttempt,
	charge lockedCharge,
	outcome *rowOutcome,
) error {
	now := s.clock.Now()
	status := billingdomain.AttemptStatus(attempt.Status)

	// A PAID attempt re-asserted by a different response file mirrors the
	// row without touching anything.
	if status == billingdomain.AttemptStatusPaid {
		outcome.amount = charge.AmountARSDue
		outcome.result = domain.ItemStatusPaid
		return s.insertMirrorItemTx(ctx, tx, inboundID, rec, item, domain.ItemStatusPaid, now)
	}
	if status.IsTerminal() {
		outcome.result = domain.ItemStatusError
		return s.insertMirrorItemTx(ctx, tx, inboundID, rec, item, domain.ItemStatusError, now)
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE collection_attempts
		 SET status = 'PAID', processed_at = ?, paid_reference = ?, updated_at = ?
		 WHERE id = ? AND status IN ('PENDING', 'PROCESSING')`,
		now,
		nullable(rec.PaidReference),
		now,
		attempt.ID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("attempt %d changed state during import", attempt.ID)
	}
	outcome.transitioned = true
	outcome.result = domain.ItemStatusPaid

	amount := rec.AmountARS
	if !amount.IsPositive() {
		amount = item.AmountARS
	}
	outcome.amount = amount

	res = tx.WithContext(ctx).Exec(
		`UPDATE charges
		 SET status = 'PAID', amount_ars_paid = ?, paid_at = ?, paid_reference = ?,
		     reconciliation_status = 'MATCHED', updated_at = ?
		 WHERE id = ? AND status <> 'PAID'`,
		amount,
		now,
		nullable(rec.PaidReference),
		now,
		charge.ID,
	)
	if res.Error != nil {
		return res.Error
	}
	outcome.newlyPaid = res.RowsAffected > 0

	if err := tx.WithContext(ctx).Exec(
		`UPDATE collection_attempts
		 SET status = 'CANCELED', updated_at = ?
		 WHERE charge_id = ? AND id <> ? AND status = 'PENDING'`,
		now,
		charge.ID,
		attempt.ID,
	).Error; err != nil {
		return err
	}

	if outcome.newlyPaid {
		if charge.CycleID != nil {
			if err := tx.WithContext(ctx).Exec(
				`UPDATE billing_cycles
				 SET status = 'PAID', paid_at = COALESCE(paid_at, ?), updated_at = ?
				 WHERE id = ? AND status <> 'PAID'`,
				now,
				now,
				*charge.CycleID,
			).Error; err != nil {
				return err
			}
		}
		if err := s.postCollectionTx(ctx, tx, charge.AgencyID, charge.ID, amount, now); err != nil {
			return err
		}
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			AgencyID: charge.AgencyID,
			Type:     events.EventChargePaid,
			Payload: events.ChargePaidPayload{
				ChargeID:      charge.ID.String(),
				AttemptID:     attempt.ID.String(),
				AmountARS:     amount.StringFixed(2),
				PaidReference: rec.PaidReference,
			}.ToMap(),
			DedupeKey: fmt.Sprintf("%s:%d", events.EventChargePaid, charge.ID),
		}); err != nil {
			return err
		}
	}

	if err := s.repo.UpdateItemResult(ctx, tx, domain.ItemResultUpdate{
		ItemID:        item.ID,
		Status:        domain.ItemStatusPaid,
		PaidReference: rec.PaidReference,
		ProcessedAt:   now,
	}); err != nil {
		return err
	}
	return s.insertMirrorItemTx(ctx, tx, inboundID, rec, item, domain.ItemStatusPaid, now)
}

func (s *Service) applyRejectedTx(
	ctx context.Context,
	tx *gorm.DB,
	inboundID snowflake.ID,
	rec format.ParsedRecord,
	item *domain.FileBatchItem,
	attempt lockedAttempt,
	outcome *rowOutcome,
) error {
	now := s.clock.Now()
	status := billingdomain.AttemptStatus(attempt.Status)

	if status.IsTerminal() {
		mirror := domain.ItemStatusRejected
		if status == billingdomain.AttemptStatusPaid {
			// A rejection after the attempt collected is a bank-side
			// contradiction; keep the money state and flag the row.
			mirror = domain.ItemStatusError
		}
		outcome.result = mirror
		return s.insertMirrorItemTx(ctx, tx, inboundID, rec, item, mirror, now)
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE collection_attempts
		 SET status = 'REJECTED', processed_at = ?, rejection_code = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ? AND status IN ('PENDING', 'PROCESSING')`,
		now,
		nullable(rec.RejectionCode),
		nullable(rec.RejectionReason),
		now,
		attempt.ID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("attempt %d changed state during import", attempt.ID)
	}
	outcome.transitioned = true
	outcome.result = domain.ItemStatusRejected

	if err := tx.WithContext(ctx).Exec(
		`UPDATE charges
		 SET status = 'PAST_DUE', reconciliation_status = 'UNMATCHED', updated_at = ?
		 WHERE id = ? AND status <> 'PAID'`,
		now,
		attempt.ChargeID,
	).Error; err != nil {
		return err
	}

	if err := s.repo.UpdateItemResult(ctx, tx, domain.ItemResultUpdate{
		ItemID:          item.ID,
		Status:          domain.ItemStatusRejected,
		ResponseCode:    rec.RejectionCode,
		ResponseMessage: rec.RejectionReason,
		ProcessedAt:     now,
	}); err != nil {
		return err
	}
	return s.insertMirrorItemTx(ctx, tx, inboundID, rec, item, domain.ItemStatusRejected, now)
}

// insertMirrorItemTx records the response row on the inbound batch, keyed
// back to the attempt and charge it matched.
func (s *Service) insertMirrorItemTx(ctx context.Context, tx *gorm.DB, inboundID snowflake.ID, rec format.ParsedRecord, item *domain.FileBatchItem, status domain.ItemStatus, now time.Time) error {
	reference := format.CanonicalReference(rec.ExternalReference)
	if reference == "" {
		reference = item.ExternalReference
	}
	mirror := &domain.FileBatchItem{
		ID:                s.genID.Generate(),
		BatchID:           inboundID,
		AttemptID:         item.AttemptID,
		ChargeID:          item.ChargeID,
		LineNo:            rec.LineNo,
		ExternalReference: reference,
		RawHash:           format.RowHash(reference),
		AmountARS:         rec.AmountARS,
		Status:            status,
		ResponseCode:      nullableStr(rec.RejectionCode),
		ResponseMessage:   nullableStr(rec.RejectionReason),
		PaidReference:     nullableStr(rec.PaidReference),
		RowPayload:        nullableStr(rec.Raw),
		ProcessedAt:       &now,
	}
	return s.repo.InsertItem(ctx, tx, mirror)
}

// insertErrorItem persists an unmatched or malformed response row with nil
// attempt/charge references, keeping the raw line for forensics. Best
// effort: a failure here is logged, not propagated.
func (s *Service) insertErrorItem(ctx context.Context, inboundID snowflake.ID, rec format.ParsedRecord, message string) {
	now := s.clock.Now()
	item := &domain.FileBatchItem{
		ID:                s.genID.Generate(),
		BatchID:           inboundID,
		LineNo:            rec.LineNo,
		ExternalReference: format.CanonicalReference(rec.ExternalReference),
		RawHash:           rec.RawHash,
		AmountARS:         rec.AmountARS,
		Status:            domain.ItemStatusError,
		ResponseMessage:   &message,
		RowPayload:        nullableStr(rec.Raw),
		ProcessedAt:       &now,
	}
	if err := s.repo.InsertItem(ctx, s.db, item); err != nil {
		s.log.Warn("error item insert failed",
			zap.Int64("inbound_batch_id", int64(inboundID)),
			zap.Int("line_no", rec.LineNo),
			zap.Error(err),
		)
	}
}

// issueFiscal requests one fiscal document per distinct newly paid charge.
// Issuance is a side effect of reconciliation: failures are tallied and
// logged, never propagated, and the import result stays committed.
func (s *Service) issueFiscal(ctx context.Context, newlyPaid []paidCharge, actorUserID string) (issued, failed int) {
	seen := map[snowflake.ID]struct{}{}
	for _, paid := range newlyPaid {
		if _, dup := seen[paid.chargeID]; dup {
			continue
		}
		seen[paid.chargeID] = struct{}{}

		if err := s.fiscal.IssueForCharge(ctx, paid.chargeID, actorUserID); err != nil {
			failed++
			s.metrics.IncFiscalIssuance("failed")
			s.log.Warn("fiscal issuance failed",
				zap.Int64("charge_id", int64(paid.chargeID)),
				zap.Int64("agency_id", int64(paid.agencyID)),
				zap.Error(err),
			)
			continue
		}
		issued++
		s.metrics.IncFiscalIssuance("issued")
	}
	return issued, failed
}

// auditAttempt records a per-attempt state change on the agency's trail.
func (s *Service) auditAttempt(ctx context.Context, agencyID snowflake.ID, actorType string, actorID *string, action string, attemptID snowflake.ID, metadata map[string]any) {
	targetID := attemptID.String()
	if err := s.auditSvc.AuditLog(ctx, &agencyID, actorType, actorID, action, auditdomain.TargetTypeCollectionAttempt, &targetID, metadata); err != nil {
		s.log.Warn("audit write failed",
			zap.String("action", action),
			zap.Int64("attempt_id", int64(attemptID)),
			zap.Error(err),
		)
	}
}

func priorImportResult(prior *domain.FileBatch) *domain.ImportResult {
	meta := domain.ImportMetaFromMap(prior.Metadata)
	return &domain.ImportResult{
		InboundBatchID:  prior.ID,
		AlreadyImported: true,
		Summary: domain.ImportSummary{
			MatchedRows:  meta.MatchedRows,
			Paid:         prior.TotalPaidRows,
			Rejected:     prior.TotalRejectedRows,
			ErrorRows:    prior.TotalErrorRows,
			FiscalIssued: meta.FiscalIssued,
			FiscalFailed: meta.FiscalFailed,
		},
	}
}

func ptr(value string) *string { return &value }

func nullable(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}

func nullableStr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
