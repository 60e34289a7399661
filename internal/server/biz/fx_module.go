package biz

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("biz",
	fx.Provide(NewPolicyService),
	fx.Provide(NewEventLogService),
	fx.Provide(NewFileSearchService),
	fx.Invoke(func(lc fx.Lifecycle, svc *PolicyService) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return svc.Bootstrap(ctx)
			},
		})
	}),
)
