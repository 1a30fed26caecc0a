package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/guildops/timewarden/internal/clock"
	"github.com/guildops/timewarden/internal/model"
	"github.com/guildops/timewarden/internal/tracker"
)

// LifecycleConfig holds the two local wall-clock triggers and polling bounds.
type LifecycleConfig struct {
	StartHour   int
	StartMinute int
	StopHour    int
	StopMinute  int

	PollInterval time.Duration // how often each loop samples the clock
	Cooldown     time.Duration // post-fire sleep, must span the trigger minute
}

func (c *LifecycleConfig) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 70 * time.Second
	}
}

// Lifecycle runs the auto-start and auto-stop loops. Each loop fires at most
// once per matching minute: after firing it sleeps for the cooldown, which
// outlasts the minute window.
type Lifecycle struct {
	engine *tracker.Engine
	clk    clock.Clock
	cfg    LifecycleConfig
	log    zerolog.Logger
}

// NewLifecycle builds the wall-clock scheduler.
func NewLifecycle(engine *tracker.Engine, clk clock.Clock, cfg LifecycleConfig, log zerolog.Logger) *Lifecycle {
	cfg.applyDefaults()
	return &Lifecycle{engine: engine, clk: clk, cfg: cfg, log: log}
}

// Run drives both loops until ctx is canceled.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.log.Info().
		Int("start_hour", l.cfg.StartHour).Int("start_minute", l.cfg.StartMinute).
		Int("stop_hour", l.cfg.StopHour).Int("stop_minute", l.cfg.StopMinute).
		Msg("lifecycle scheduler starting")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.loop(ctx, l.cfg.StartHour, l.cfg.StartMinute, "auto-start", l.AutoStart)
	}()
	go func() {
		defer wg.Done()
		l.loop(ctx, l.cfg.StopHour, l.cfg.StopMinute, "auto-stop", l.AutoStop)
	}()
	wg.Wait()
	return ctx.Err()
}

// loop samples the clock and fires when the local wall clock matches the
// trigger minute. Errors from fire are logged and the loop continues.
func (l *Lifecycle) loop(ctx context.Context, hour, minute int, name string, fire func(context.Context) (int, error)) {
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Str("job", name).Msg("lifecycle loop stopping")
			return
		case <-time.After(l.cfg.PollInterval):
		}

		now := l.clk.Now()
		if now.Hour() != hour || now.Minute() != minute {
			continue
		}

		n, err := fire(ctx)
		if err != nil {
			l.log.Error().Err(err).Str("job", name).Msg("lifecycle trigger")
		} else {
			l.log.Info().Str("job", name).Int("entities", n).Msg("lifecycle trigger fired")
		}

		// Skip past the rest of the trigger minute.
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.cfg.Cooldown):
		}
	}
}

// AutoStart converts every PreRegistered entity to Active. Returns how many
// were started; a failure on one entity does not abort the rest.
func (l *Lifecycle) AutoStart(ctx context.Context) (int, error) {
	snapshot, err := l.engine.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	started := 0
	for id, rec := range snapshot {
		if rec.State != model.StatePreRegistered {
			continue
		}
		if err := l.engine.StartFromPreRegister(ctx, id); err != nil {
			l.log.Warn().Err(err).Str("entity", id).Msg("auto-start entity")
			continue
		}
		started++
	}
	return started, nil
}

// AutoStop force-stops every Active and Paused entity.
func (l *Lifecycle) AutoStop(ctx context.Context) (int, error) {
	return l.engine.ForceStopAll(ctx)
}
