package settlement

import (
	"github.com/peakshop/tollgate/internal/config"
	settlementdomain "github.com/peakshop/tollgate/internal/settlement/domain"
	"github.com/peakshop/tollgate/internal/settlement/provider/nowpayments"
	"github.com/peakshop/tollgate/internal/settlement/repository"
	"github.com/peakshop/tollgate/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement.service",
	fx.Provide(provideVerifier),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

func provideVerifier(cfg config.Config) settlementdomain.Verifier {
	return nowpayments.NewVerifier(cfg.IPNSecret)
}
