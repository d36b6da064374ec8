package dnscache

import (
	"context"
	"time"

	"github.com/linkrail/linkrail/internal/clock"
	"github.com/linkrail/linkrail/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("dnscache",
	fx.Provide(Provide),
)

func Provide(lc fx.Lifecycle, holder *config.DomainConfigHolder, clk clock.Clock, log *zap.Logger) *Cache {
	domains := holder.Get()
	cache := New(Config{
		DefaultTTL:    time.Duration(domains.CacheTTLSeconds) * time.Second,
		SweepInterval: time.Duration(domains.SweepIntervalSeconds) * time.Second,
	}, clk, log)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			cache.Stop()
			return nil
		},
	})

	return cache
}
