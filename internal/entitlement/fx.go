package entitlement

import (
	"github.com/peakshop/tollgate/internal/entitlement/repository"
	"github.com/peakshop/tollgate/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
