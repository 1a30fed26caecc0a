// Package scheduler hosts the background loops that advance entities through
// time-based transitions without human action: the milestone sweep and the
// wall-clock lifecycle triggers. Both go through the serialized engine
// operations and stop cleanly on context cancellation.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/guildops/timewarden/internal/clock"
	"github.com/guildops/timewarden/internal/events"
	"github.com/guildops/timewarden/internal/model"
	"github.com/guildops/timewarden/internal/roles"
	"github.com/guildops/timewarden/internal/tracker"
)

// MilestoneConfig controls sweep cadence and bounds.
type MilestoneConfig struct {
	Interval     time.Duration // base sweep interval
	Concurrency  int           // max per-entity checks in flight
	CheckTimeout time.Duration // budget for a single entity check
	MaxBackoff   time.Duration // error backoff ceiling
}

func (c *MilestoneConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 6
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 20 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 90 * time.Second
	}
}

// Milestone periodically sweeps Active entities for hour-boundary crossings,
// force-stopping at the role cap and announcing the unlimited-role
// intermediate hour.
type Milestone struct {
	engine *tracker.Engine
	roles  roles.Resolver
	clk    clock.Clock
	bus    *events.Bus
	cfg    MilestoneConfig
	log    zerolog.Logger
}

// NewMilestone builds a sweep scheduler.
func NewMilestone(engine *tracker.Engine, res roles.Resolver, clk clock.Clock, bus *events.Bus, cfg MilestoneConfig, log zerolog.Logger) *Milestone {
	cfg.applyDefaults()
	return &Milestone{engine: engine, roles: res, clk: clk, bus: bus, cfg: cfg, log: log}
}

// Run sweeps until ctx is canceled. A failed sweep is logged and retried
// with a growing interval; the loop never exits on a single error.
func (m *Milestone) Run(ctx context.Context) error {
	m.log.Info().Dur("interval", m.cfg.Interval).Int("concurrency", m.cfg.Concurrency).Msg("milestone sweep starting")

	consecutiveErrs := 0
	for {
		interval := m.cfg.Interval
		if consecutiveErrs > 0 {
			interval = m.cfg.Interval * time.Duration(1<<consecutiveErrs)
			if interval > m.cfg.MaxBackoff {
				interval = m.cfg.MaxBackoff
			}
		}

		select {
		case <-ctx.Done():
			m.log.Info().Msg("milestone sweep stopping")
			return ctx.Err()
		case <-time.After(interval):
		}

		if err := m.Sweep(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			consecutiveErrs++
			m.log.Error().Err(err).Int("consecutive", consecutiveErrs).Msg("milestone sweep")
		} else {
			consecutiveErrs = 0
		}
	}
}

// Sweep runs one pass over all Active entities. Per-entity failures are
// logged and never abort the pass for the others.
func (m *Milestone) Sweep(ctx context.Context) error {
	snapshot, err := m.engine.Snapshot(ctx)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, m.cfg.Concurrency)
	var wg sync.WaitGroup
	for id, rec := range snapshot {
		if rec.State != model.StateActive {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(id string, rec *model.TimeRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			checkCtx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
			defer cancel()
			if err := m.checkEntity(checkCtx, id, rec); err != nil {
				m.log.Warn().Err(err).Str("entity", id).Msg("milestone check")
			}
		}(id, rec)
	}
	wg.Wait()
	return nil
}

func (m *Milestone) checkEntity(ctx context.Context, id string, rec *model.TimeRecord) error {
	role, err := m.roles.RoleType(ctx, id)
	if err != nil {
		return err
	}
	total, err := m.engine.TotalSeconds(ctx, id)
	if err != nil {
		return err
	}

	thresholds := role.Thresholds()
	capThreshold := thresholds[len(thresholds)-1]

	if total >= float64(capThreshold) && !rec.HasNotified(capThreshold) {
		res, err := m.engine.CompleteMilestone(ctx, id, capThreshold)
		if err != nil {
			// Lost the race to another caller; nothing left to announce.
			if errors.Is(err, model.ErrInvalidState) {
				return nil
			}
			return err
		}
		m.publish(events.Intent{
			Kind:         events.IntentCompleted,
			EntityID:     id,
			DisplayName:  rec.DisplayName,
			Hours:        capThreshold / 3600,
			TotalSeconds: res.TotalSeconds,
		})
		return nil
	}

	if role == model.RoleUnlimited && total >= 3600 && !rec.HasNotified(3600) {
		changed, err := m.engine.MarkIntermediateMilestone(ctx, id, 3600)
		if err != nil {
			return err
		}
		if changed {
			m.publish(events.Intent{
				Kind:         events.IntentIntermediate,
				EntityID:     id,
				DisplayName:  rec.DisplayName,
				Hours:        1,
				TotalSeconds: total,
			})
		}
	}
	return nil
}

func (m *Milestone) publish(it events.Intent) {
	if m.bus == nil {
		return
	}
	if !m.bus.Publish(it) {
		m.log.Warn().Str("entity", it.EntityID).Str("kind", string(it.Kind)).Msg("intent buffer full, notification dropped")
	}
}
