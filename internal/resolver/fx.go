package resolver

import (
	"time"

	"github.com/linkrail/linkrail/internal/config"
	"github.com/linkrail/linkrail/internal/dnscache"
	obsmetrics "github.com/linkrail/linkrail/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("resolver",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	Holder  *config.DomainConfigHolder
	Cache   *dnscache.Cache
	Metrics *obsmetrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

func Provide(p Params) Resolver {
	domains := p.Holder.Get()
	return New(Config{
		Timeout:    time.Duration(domains.DNSTimeoutMs) * time.Millisecond,
		Nameserver: domains.Nameserver,
	}, p.Cache, p.Metrics, p.Log)
}
