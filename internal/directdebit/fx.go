package directdebit

import (
	"go.uber.org/fx"

	"github.com/southtrip/caravel/internal/directdebit/format"
	"github.com/southtrip/caravel/internal/directdebit/format/debugcsv"
	"github.com/southtrip/caravel/internal/directdebit/format/galicia"
	"github.com/southtrip/caravel/internal/directdebit/repository"
	"github.com/southtrip/caravel/internal/directdebit/service"
)

var Module = fx.Module("directdebit.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *format.Registry {
		return format.NewRegistry(debugcsv.Factory{}, galicia.Factory{})
	}),
	fx.Provide(service.NewService),
)
