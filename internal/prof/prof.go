package prof

import (
	"context"

	"github.com/grafana/pyroscope-go"

	"github.com/tbisgaard/bridgekit/internal/log"
	"github.com/tbisgaard/bridgekit/internal/xerrors"
)

type Options struct {
	Enabled       bool
	AppName       string
	ServerAddress string
	TenantID      string
	Tags          map[string]string
}

// Start begins pushing continuous profiles. Returns a stop func that is
// always safe to call.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)

	if !opts.Enabled {
		return func() {}, nil
	}

	if opts.ServerAddress == "" {
		err := xerrors.New("profiling enabled without a server address")
		L.Error(ctx, err, "profiler options")
		return func() {}, err
	}

	cfg := pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		TenantID:        opts.TenantID,
		Tags:            opts.Tags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	}

	profiler, err := pyroscope.Start(cfg)
	if err != nil {
		L.Error(ctx, err, "profiler start failed", "server_address", opts.ServerAddress)
		return func() {}, err
	}

	L.Info(ctx, "profiler started", "server_address", opts.ServerAddress)
	return func() {
		_ = profiler.Stop()
	}, nil
}
