package dependencies

import (
	"context"

	"github.com/spf13/afero"
	"go.uber.org/fx"

	"github.com/guardpost/guardpost/internal/audit"
	"github.com/guardpost/guardpost/internal/configstore"
	"github.com/guardpost/guardpost/internal/policy"
)

// NewFilesystem is the real filesystem. Tests construct stores over
// afero.NewMemMapFs instead.
func NewFilesystem() afero.Fs {
	return afero.NewOsFs()
}

var Module = fx.Module("dependencies",
	fx.Provide(NewFilesystem),
	fx.Provide(configstore.New),
	fx.Provide(audit.NewLogger),
	fx.Provide(policy.NewEvaluator),
	fx.Invoke(func(lc fx.Lifecycle, trail *audit.Logger) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return trail.Close()
			},
		})
	}),
)
