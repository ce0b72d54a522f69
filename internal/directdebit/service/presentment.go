package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/southtrip/caravel/internal/audit/domain"
	"github.com/southtrip/caravel/internal/directdebit/domain"
	"github.com/southtrip/caravel/internal/directdebit/format"
	"github.com/southtrip/caravel/internal/events"
	"github.com/southtrip/caravel/internal/storage"
)

// eligibleAttempt is one PENDING attempt joined with its charge and the
// agency's active mandate. Mandate columns are nullable: when presentment
// does not require an active mandate, rows without one still go out with
// blank holder fields.
type eligibleAttempt struct {
	AttemptID         snowflake.ID    `gorm:"column:attempt_id"`
	ChargeID          snowflake.ID    `gorm:"column:charge_id"`
	AgencyID          snowflake.ID    `gorm:"column:agency_id"`
	ScheduledFor      time.Time       `gorm:"column:scheduled_for"`
	ExternalReference *string         `gorm:"column:external_reference"`
	AmountARSDue      decimal.Decimal `gorm:"column:amount_ars_due"`
	HolderName        *string         `gorm:"column:holder_name"`
	HolderTaxID       *string         `gorm:"column:holder_tax_id"`
	CBU               *string         `gorm:"column:cbu"`
}

// agencyTally accumulates per-agency counts for audit entries and outbox
// events once a batch is stored.
type agencyTally struct {
	rows   int
	amount decimal.Decimal
}

// CreatePresentmentBatch selects every PENDING attempt scheduled on or
// before the business date, freezes attempt and charge rows to PROCESSING,
// and renders them into one outbound bank file. Row selection and status
// flips commit in a single transaction; the file upload happens after it,
// and an upload failure rolls the rows back in a compensating transaction.
func (s *Service) CreatePresentmentBatch(ctx context.Context, req domain.CreatePresentmentRequest) (*domain.BatchSummary, error) {
	businessDate, err := parseBusinessDate(req.BusinessDate)
	if err != nil {
		return nil, err
	}

	adapter, err := s.adapter(s.adapterName)
	if err != nil {
		return nil, err
	}

	start := s.clock.Now()
	batchID := s.genID.Generate()

	var (
		rows       []format.PresentmentRow
		attemptIDs []snowflake.ID
		chargeIDs  []snowflake.ID
		total      = decimal.Zero
		byAgency   = map[snowflake.ID]*agencyTally{}
	)

	err = s.withTx(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		eligible, err := s.selectEligible(txCtx, tx, businessDate)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if len(eligible) == 0 {
			return s.repo.InsertBatch(txCtx, tx, &domain.FileBatch{
				ID:           batchID,
				Direction:    domain.DirectionOutbound,
				Channel:      s.channel,
				FileType:     domain.FileTypePresentment,
				Adapter:      s.adapterName,
				BusinessDate: businessDate,
				Status:       domain.BatchStatusEmpty,
				Metadata:     datatypes.JSONMap{},
			})
		}

		items := make([]*domain.FileBatchItem, 0, len(eligible))
		for i, row := range eligible {
			reference := ""
			if row.ExternalReference != nil {
				reference = format.CanonicalReference(*row.ExternalReference)
			}
			if reference == "" {
				reference = format.FallbackReference(row.AttemptID)
			}

			res := tx.WithContext(txCtx).Exec(
				`UPDATE collection_attempts
				 SET status = 'PROCESSING', external_reference = ?, updated_at = ?
				 WHERE id = ? AND status = 'PENDING'`,
				reference,
				now,
				row.AttemptID,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("attempt %d changed state during presentment", row.AttemptID)
			}

			attemptIDs = append(attemptIDs, row.AttemptID)
			chargeIDs = append(chargeIDs, row.ChargeID)
			total = total.Add(row.AmountARSDue)

			tally := byAgency[row.AgencyID]
			if tally == nil {
				tally = &agencyTally{amount: decimal.Zero}
				byAgency[row.AgencyID] = tally
			}
			tally.rows++
			tally.amount = tally.amount.Add(row.AmountARSDue)

			rows = append(rows, format.PresentmentRow{
				ExternalReference: reference,
				AttemptID:         row.AttemptID,
				ChargeID:          row.ChargeID,
				AgencyID:          row.AgencyID,
				ScheduledFor:      row.ScheduledFor,
				AmountARS:         row.AmountARSDue,
				HolderName:        deref(row.HolderName),
				HolderTaxID:       deref(row.HolderTaxID),
				CBULast4:          last4(deref(row.CBU)),
			})

			lineNo := i + 1
			attemptID := row.AttemptID
			chargeID := row.ChargeID
			items = append(items, &domain.FileBatchItem{
				ID:                s.genID.Generate(),
				BatchID:           batchID,
				AttemptID:         &attemptID,
				ChargeID:          &chargeID,
				LineNo:            lineNo,
				ExternalReference: reference,
				RawHash:           format.RowHash(reference),
				AmountARS:         row.AmountARSDue,
				Status:            domain.ItemStatusPending,
			})
		}

		if err := tx.WithContext(txCtx).Exec(
			`UPDATE charges
			 SET status = 'PROCESSING', updated_at = ?
			 WHERE id IN (?) AND status <> 'PAID'`,
			now,
			chargeIDs,
		).Error; err != nil {
			return err
		}

		if err := s.repo.InsertBatch(txCtx, tx, &domain.FileBatch{
			ID:             batchID,
			Direction:      domain.DirectionOutbound,
			Channel:        s.channel,
			FileType:       domain.FileTypePresentment,
			Adapter:        s.adapterName,
			BusinessDate:   businessDate,
			Status:         domain.BatchStatusCreating,
			TotalRows:      len(rows),
			TotalAmountARS: total,
			Metadata:       datatypes.JSONMap{},
		}); err != nil {
			return err
		}
		return s.repo.InsertItems(txCtx, tx, items)
	})
	if err != nil {
		return nil, err
	}

	actorType, actorID := auditActor(req.ActorUserID)

	if len(rows) == 0 {
		s.metrics.IncBatch(string(domain.DirectionOutbound), string(domain.BatchStatusEmpty))
		s.audit(ctx, nil, actorType, actorID, auditdomain.ActionBatchOutboundCreated, batchID, map[string]any{
			"business_date": businessDate.Format("2006-01-02"),
			"adapter":       s.adapterName,
			"channel":       s.channel,
			"total_rows":    0,
		})
		s.log.Info("presentment batch empty",
			zap.Int64("batch_id", int64(batchID)),
			zap.String("business_date", businessDate.Format("2006-01-02")),
		)
		return s.summaryByID(ctx, batchID)
	}

	fileName, data, err := adapter.BuildPresentment(businessDate, rows, format.BuildMeta{
		BatchID: batchID,
		Channel: s.channel,
	})
	if err == nil {
		key := storage.BatchKey(string(domain.DirectionOutbound), businessDate, batchID, fileName)
		if upErr := s.store.Upload(ctx, key, data, adapter.ContentType()); upErr != nil {
			err = upErr
		} else {
			err = s.repo.MarkBatchReady(ctx, s.db, batchID, domain.StoredFile{
				StorageKey:  key,
				SHA256:      storage.Digest(data),
				FileName:    fileName,
				ContentType: adapter.ContentType(),
			}, s.clock.Now())
		}
	}
	if err != nil {
		s.rollbackPresentment(ctx, batchID, attemptIDs, chargeIDs)
		s.metrics.IncBatch(string(domain.DirectionOutbound), string(domain.BatchStatusFailed))
		s.log.Error("presentment batch failed",
			zap.Int64("batch_id", int64(batchID)),
			zap.Error(err),
		)
		return nil, err
	}

	for agencyID, tally := range byAgency {
		s.audit(ctx, &agencyID, actorType, actorID, auditdomain.ActionBatchOutboundCreated, batchID, map[string]any{
			"business_date":     businessDate.Format("2006-01-02"),
			"adapter":           s.adapterName,
			"channel":           s.channel,
			"agency_rows":       tally.rows,
			"agency_amount_ars": tally.amount.StringFixed(2),
			"total_rows":        len(rows),
		})
		if pubErr := s.outbox.Publish(ctx, events.Event{
			AgencyID: agencyID,
			Type:     events.EventBatchCreated,
			Payload: events.BatchCreatedPayload{
				BatchID:        batchID.String(),
				BusinessDate:   businessDate.Format("2006-01-02"),
				Adapter:        s.adapterName,
				Channel:        s.channel,
				TotalRows:      tally.rows,
				TotalAmountARS: tally.amount.StringFixed(2),
			}.ToMap(),
			DedupeKey: fmt.Sprintf("%s:%d", events.EventBatchCreated, batchID),
		}); pubErr != nil {
			s.log.Warn("outbox publish failed",
				zap.Int64("batch_id", int64(batchID)),
				zap.Error(pubErr),
			)
		}
	}

	s.metrics.IncBatch(string(domain.DirectionOutbound), string(domain.BatchStatusReady))
	s.metrics.AddRows(string(domain.DirectionOutbound), "presented", len(rows))
	s.metrics.ObserveBuildDuration(s.adapterName, s.clock.Now().Sub(start))

	s.log.Info("presentment batch ready",
		zap.Int64("batch_id", int64(batchID)),
		zap.String("business_date", businessDate.Format("2006-01-02")),
		zap.Int("rows", len(rows)),
		zap.String("total_amount_ars", total.StringFixed(2)),
	)
	return s.summaryByID(ctx, batchID)
}

// selectEligible fetches the attempts to present: PENDING on this channel,
// scheduled on or before the business date, charge not already PAID. On
// postgres the attempt rows are locked, skipping rows another builder holds.
func (s *Service) selectEligible(ctx context.Context, tx *gorm.DB, businessDate time.Time) ([]eligibleAttempt, error) {
	cutoff := businessDate.Add(24 * time.Hour)

	query := `SELECT ca.id AS attempt_id,
	       ca.charge_id,
	       ca.scheduled_for,
	       ca.external_reference,
	       ch.agency_id,
	       ch.amount_ars_due,
	       dm.holder_name,
	       dm.holder_tax_id,
	       dm.cbu
	FROM collection_attempts ca
	JOIN charges ch ON ch.id = ca.charge_id
	LEFT JOIN debit_mandates dm
	       ON dm.agency_id = ch.agency_id
	      AND dm.channel = ca.channel
	      AND dm.status = 'ACTIVE'
	WHERE ca.status = 'PENDING'
	  AND ca.channel = ?
	  AND ca.scheduled_for < ?
	  AND ch.status <> 'PAID'`
	if s.requireActiveMandate {
		query += `
	  AND dm.id IS NOT NULL`
	}
	query += `
	ORDER BY ca.scheduled_for ASC, ca.id ASC
	LIMIT ?`
	if s.isPostgres() {
		query += " FOR UPDATE OF ca SKIP LOCKED"
	}

	var eligible []eligibleAttempt
	if err := tx.WithContext(ctx).Raw(query, s.channel, cutoff, s.maxBatchRows).Scan(&eligible).Error; err != nil {
		return nil, err
	}
	return eligible, nil
}

// rollbackPresentment undoes the status freeze after the file could not be
// built or stored. Assigned external references survive so a later batch
// presents the same attempt under the same reference.
func (s *Service) rollbackPresentment(ctx context.Context, batchID snowflake.ID, attemptIDs, chargeIDs []snowflake.ID) {
	err := s.withTx(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		if err := s.repo.MarkBatchFailed(txCtx, tx, batchID, s.clock.Now()); err != nil {
			return err
		}
		if err := tx.WithContext(txCtx).Exec(
			`UPDATE collection_attempts
			 SET status = 'PENDING', updated_at = ?
			 WHERE id IN (?) AND status = 'PROCESSING'`,
			s.clock.Now(),
			attemptIDs,
		).Error; err != nil {
			return err
		}
		return tx.WithContext(txCtx).Exec(
			`UPDATE charges
			 SET status = 'PENDING', updated_at = ?
			 WHERE id IN (?) AND status = 'PROCESSING'`,
			s.clock.Now(),
			chargeIDs,
		).Error
	})
	if err != nil {
		s.log.Error("presentment rollback failed",
			zap.Int64("batch_id", int64(batchID)),
			zap.Error(err),
		)
	}
}

func (s *Service) summaryByID(ctx context.Context, batchID snowflake.ID) (*domain.BatchSummary, error) {
	batch, err := s.repo.FindBatch(ctx, s.db, batchID)
	if err != nil {
		return nil, err
	}
	summary := batchSummary(batch)
	return &summary, nil
}

// audit records an engine action, logging instead of failing the operation
// when the trail write breaks.
func (s *Service) audit(ctx context.Context, agencyID *snowflake.ID, actorType string, actorID *string, action string, batchID snowflake.ID, metadata map[string]any) {
	targetID := batchID.String()
	if err := s.auditSvc.AuditLog(ctx, agencyID, actorType, actorID, action, auditdomain.TargetTypeFileBatch, &targetID, metadata); err != nil {
		s.log.Warn("audit write failed",
			zap.String("action", action),
			zap.Int64("batch_id", int64(batchID)),
			zap.Error(err),
		)
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func last4(cbu string) string {
	if len(cbu) <= 4 {
		return cbu
	}
	return cbu[len(cbu)-4:]
}
