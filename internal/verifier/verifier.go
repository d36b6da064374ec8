package verifier

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/linkrail/linkrail/internal/clock"
	"github.com/linkrail/linkrail/internal/config"
	"github.com/linkrail/linkrail/internal/customdomain/domain"
)

const defaultBatchSize = 20

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Holder  *config.DomainConfigHolder
	Domains domain.Service
}

// Verifier periodically re-checks pending domains so tenants do not have to
// poke the verify endpoint while DNS propagates.
type Verifier struct {
	log       *zap.Logger
	clock     clock.Clock
	holder    *config.DomainConfigHolder
	domains   domain.Service
	batchSize int
}

func New(p Params) *Verifier {
	return &Verifier{
		log:       p.Log.Named("verifier"),
		clock:     p.Clock,
		holder:    p.Holder,
		domains:   p.Domains,
		batchSize: defaultBatchSize,
	}
}

// Interval returns the poll interval, zero when polling is disabled.
func (v *Verifier) Interval() time.Duration {
	return time.Duration(v.holder.Get().VerifyPollSeconds) * time.Second
}

func (v *Verifier) RunOnce(ctx context.Context) error {
	verified, err := v.domains.ReverifyPending(ctx, v.batchSize)
	if err != nil {
		return err
	}
	if verified > 0 {
		v.log.Info("pending domains verified", zap.Int("count", verified))
	}
	return nil
}

func (v *Verifier) RunForever(ctx context.Context) {
	interval := v.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := v.RunOnce(ctx); err != nil {
			v.log.Warn("verification sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
