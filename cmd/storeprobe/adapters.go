package main

import (
	"context"
	"time"

	"github.com/smileynet/storeprobe/internal/dashboard"
	"github.com/smileynet/storeprobe/internal/probe"
)

// probeRunnerAdapter implements dashboard.ProbeRunner by building a fresh
// probe.Runner per run with the provided statusFn callback.
type probeRunnerAdapter struct {
	svc   probe.Service
	delay time.Duration
	clock probe.Clock // nil means real timers
}

var _ dashboard.ProbeRunner = (*probeRunnerAdapter)(nil)

func (a *probeRunnerAdapter) RunProbe(ctx context.Context, statusFn func(probe.Status)) (probe.Status, error) {
	opts := []probe.Option{
		probe.WithDelay(a.delay),
		probe.WithStatusCallback(statusFn),
	}
	if a.clock != nil {
		opts = append(opts, probe.WithClock(a.clock))
	}
	return probe.New(a.svc, opts...).Run(ctx)
}

func (a *probeRunnerAdapter) ClearCache(ctx context.Context) error {
	return probe.New(a.svc).Clear(ctx)
}
