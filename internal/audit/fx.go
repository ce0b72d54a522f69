package audit

import (
	"github.com/southtrip/caravel/internal/audit/repository"
	"github.com/southtrip/caravel/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
