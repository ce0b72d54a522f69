// Package service orchestrates the direct-debit engine: building outbound
// presentment batches, importing bank response files and exposing the batch
// history. Work runs as a sequence of bounded database transactions; file
// and network I/O never happens inside one.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/southtrip/caravel/internal/audit/domain"
	"github.com/southtrip/caravel/internal/cache"
	"github.com/southtrip/caravel/internal/clock"
	"github.com/southtrip/caravel/internal/config"
	"github.com/southtrip/caravel/internal/directdebit/domain"
	"github.com/southtrip/caravel/internal/directdebit/format"
	"github.com/southtrip/caravel/internal/events"
	"github.com/southtrip/caravel/internal/fiscal"
	ledgerdomain "github.com/southtrip/caravel/internal/ledger/domain"
	"github.com/southtrip/caravel/internal/observability/metrics"
	"github.com/southtrip/caravel/internal/storage"
)

const (
	defaultMaxBatchRows = 5000
	defaultTxTimeout    = 30 * time.Second
	downloadCacheTTL    = 5 * time.Minute
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Cfg       config.Config
	Clock     clock.Clock
	Repo      domain.Repository
	Registry  *format.Registry
	Store     storage.Store
	Fiscal    fiscal.Issuer
	LedgerSvc ledgerdomain.Service
	AuditSvc  auditdomain.Service
	Outbox    *events.Outbox
	Metrics   *metrics.EngineMetrics
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	registry  *format.Registry
	store     storage.Store
	fiscal    fiscal.Issuer
	ledgerSvc ledgerdomain.Service
	auditSvc  auditdomain.Service
	outbox    *events.Outbox
	metrics   *metrics.EngineMetrics

	channel              string
	adapterName          string
	requireActiveMandate bool
	maxBatchRows         int
	txTimeout            time.Duration
	lockWait             time.Duration

	downloads cache.Cache[snowflake.ID, domain.BatchFile]
}

func NewService(p Params) (domain.Service, error) {
	adapterName := strings.ToLower(strings.TrimSpace(p.Cfg.DirectDebit.Adapter))
	if !p.Registry.Exists(adapterName) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAdapterNotFound, p.Cfg.DirectDebit.Adapter)
	}

	maxRows := p.Cfg.DirectDebit.MaxBatchRows
	if maxRows <= 0 {
		maxRows = defaultMaxBatchRows
	}
	txTimeout := p.Cfg.DirectDebit.TxTimeout
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}

	return &Service{
		db:        p.DB,
		log:       p.Log.Named("directdebit.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		registry:  p.Registry,
		store:     p.Store,
		fiscal:    p.Fiscal,
		ledgerSvc: p.LedgerSvc,
		auditSvc:  p.AuditSvc,
		outbox:    p.Outbox,
		metrics:   p.Metrics,

		channel:              p.Cfg.DirectDebit.Channel,
		adapterName:          adapterName,
		requireActiveMandate: p.Cfg.DirectDebit.RequireActiveMandate,
		maxBatchRows:         maxRows,
		txTimeout:            txTimeout,
		lockWait:             p.Cfg.DirectDebit.LockWait,

		downloads: cache.NewTTLCache[snowflake.ID, domain.BatchFile](),
	}, nil
}

// adapter resolves the named format adapter, falling back to the deployment
// default. Inbound files parse with the adapter their outbound batch was
// built with, so a config change never strands an open batch.
func (s *Service) adapter(name string) (format.Adapter, error) {
	if strings.TrimSpace(name) == "" {
		name = s.adapterName
	}
	adapter, err := s.registry.New(name, format.AdapterConfig{Channel: s.channel})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAdapterNotFound, name)
	}
	return adapter, nil
}

// withTx runs fn inside one bounded transaction. On postgres the row-lock
// wait is capped too, so a stuck lock surfaces as an error instead of
// hanging the caller.
func (s *Service) withTx(ctx context.Context, fn func(txCtx context.Context, tx *gorm.DB) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()
	return s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		if s.lockWait > 0 && s.isPostgres() {
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockWait.Milliseconds())).Error; err != nil {
				return err
			}
		}
		return fn(txCtx, tx)
	})
}

func (s *Service) isPostgres() bool {
	return s.db.Dialector.Name() == "postgres"
}

// rowLockClause returns the dialect's row-lock suffix. SQLite serializes
// writers at the database level, so the clause is empty there.
func (s *Service) rowLockClause(skipLocked bool) string {
	if !s.isPostgres() {
		return ""
	}
	if skipLocked {
		return " FOR UPDATE SKIP LOCKED"
	}
	return " FOR UPDATE"
}

func parseBusinessDate(value string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, domain.ErrInvalidBusinessDate
	}
	return date.UTC(), nil
}

func parseBatchID(value string) (snowflake.ID, error) {
	raw, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || raw <= 0 {
		return 0, domain.ErrInvalidBatchID
	}
	return snowflake.ID(raw), nil
}

func batchSummary(batch *domain.FileBatch) domain.BatchSummary {
	summary := domain.BatchSummary{
		BatchID:           batch.ID,
		ParentBatchID:     batch.ParentBatchID,
		Direction:         batch.Direction,
		Channel:           batch.Channel,
		Adapter:           batch.Adapter,
		BusinessDate:      batch.BusinessDate.UTC().Format("2006-01-02"),
		Status:            batch.Status,
		TotalRows:         batch.TotalRows,
		TotalAmountARS:    batch.TotalAmountARS,
		TotalPaidRows:     batch.TotalPaidRows,
		TotalRejectedRows: batch.TotalRejectedRows,
		TotalErrorRows:    batch.TotalErrorRows,
		CreatedAt:         batch.CreatedAt,
	}
	if batch.OriginalFileName != nil {
		summary.DownloadFileName = *batch.OriginalFileName
	}
	return summary
}

// auditActor returns the actor fields for an operation triggered by a user.
func auditActor(actorUserID string) (string, *string) {
	actorUserID = strings.TrimSpace(actorUserID)
	if actorUserID == "" {
		return string(auditdomain.ActorTypeSystem), nil
	}
	return string(auditdomain.ActorTypeUser), &actorUserID
}
