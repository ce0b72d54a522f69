package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/southtrip/caravel/internal/ledger/domain"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

// CreateEntry posts a balanced entry in its own transaction.
func (s *Service) CreateEntry(
	ctx context.Context,
	agencyID snowflake.ID,
	sourceType string,
	sourceID snowflake.ID,
	currency string,
	occurredAt time.Time,
	lines []domain.LedgerEntryLine,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.CreateEntryTx(ctx, tx, agencyID, sourceType, sourceID, currency, occurredAt, lines)
	})
}

// CreateEntryTx posts a balanced entry within the caller's transaction.
func (s *Service) CreateEntryTx(
	ctx context.Context,
	tx *gorm.DB,
	agencyID snowflake.ID,
	sourceType string,
	sourceID snowflake.ID,
	currency string,
	occurredAt time.Time,
	lines []domain.LedgerEntryLine,
) error {
	if tx == nil {
		return domain.ErrMissingTransaction
	}
	if agencyID == 0 {
		return domain.ErrInvalidAgency
	}
	sourceType = strings.TrimSpace(sourceType)
	if sourceType == "" {
		return domain.ErrInvalidSourceType
	}
	if sourceID == 0 {
		return domain.ErrInvalidSourceID
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return domain.ErrInvalidCurrency
	}
	if occurredAt.IsZero() {
		return domain.ErrInvalidOccurredAt
	}
	if err := domain.ValidateBalanced(lines); err != nil {
		return err
	}
	for _, line := range lines {
		if line.AccountID == 0 {
			return domain.ErrInvalidAccount
		}
	}

	now := time.Now().UTC()
	entry := domain.LedgerEntry{
		ID:         s.genID.Generate(),
		AgencyID:   agencyID,
		SourceType: sourceType,
		SourceID:   sourceID,
		Currency:   currency,
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return err
	}

	for i := range lines {
		lines[i].ID = s.genID.Generate()
		lines[i].LedgerEntryID = entry.ID
		lines[i].CreatedAt = now
	}
	if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
		return err
	}

	s.log.Debug("ledger entry posted",
		zap.String("entry_id", entry.ID.String()),
		zap.String("source_type", sourceType),
		zap.String("source_id", sourceID.String()),
		zap.Int("lines", len(lines)),
	)
	return nil
}
