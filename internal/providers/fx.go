package providers

import (
	"time"

	"github.com/peakshop/tollgate/internal/config"
	"github.com/peakshop/tollgate/internal/providers/notify"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers",
	fx.Provide(provideNotifier),
)

func provideNotifier(cfg config.Config, log *zap.Logger) notify.Provider {
	if cfg.TelegramBotToken == "" {
		log.Info("no telegram bot token configured, notifications disabled")
		return &notify.NoOpProvider{}
	}
	timeout := time.Duration(cfg.NotifyTimeoutMS) * time.Millisecond
	return notify.NewTelegramProvider(cfg.TelegramBotToken, timeout)
}
