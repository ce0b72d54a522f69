package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/southtrip/caravel/internal/audit/domain"
	"github.com/southtrip/caravel/internal/auditcontext"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// AuditLog appends one entry. Actor and request attribution fall back to
// whatever the HTTP layer stashed on the context.
func (s *Service) AuditLog(ctx context.Context, agencyID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	if action == "" {
		return domain.ErrInvalidAction
	}
	if targetType == "" {
		return domain.ErrInvalidTarget
	}

	ctxActorType, ctxActorID := auditcontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = ctxActorType
	}
	if actorType == "" {
		actorType = string(domain.ActorTypeSystem)
	}
	if (actorID == nil || *actorID == "") && ctxActorID != "" {
		actorID = &ctxActorID
	}

	meta := datatypes.JSONMap{}
	for key, value := range metadata {
		if key == "" {
			continue
		}
		meta[key] = value
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		meta["request_id"] = requestID
	}

	entry := &domain.AuditLog{
		ID:         s.genID.Generate(),
		AgencyID:   agencyID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   meta,
		CreatedAt:  time.Now().UTC(),
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		entry.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		entry.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Warn("audit insert failed",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}
