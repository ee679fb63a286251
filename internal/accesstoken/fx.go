package accesstoken

import (
	"github.com/peakshop/tollgate/internal/accesstoken/repository"
	"github.com/peakshop/tollgate/internal/accesstoken/service"
	"github.com/peakshop/tollgate/internal/accesstoken/sweeper"
	"go.uber.org/fx"
)

var Module = fx.Module("accesstoken.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(sweeper.New),
	fx.Invoke(func(*sweeper.Sweeper) {}),
)
