package verifier

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("verifier",
	fx.Provide(New),
	fx.Invoke(Register),
)

func Register(lc fx.Lifecycle, v *Verifier) {
	if v.Interval() <= 0 {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go v.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
