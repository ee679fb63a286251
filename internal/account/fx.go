package account

import (
	"github.com/peakshop/tollgate/internal/account/repository"
	"github.com/peakshop/tollgate/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
