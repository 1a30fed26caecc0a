// Package tracker implements the time-tracking state machine.
//
// Every operation is a serialized read-modify-write against the store: the
// engine owns a single mutex so two concurrent calls on the same entity can
// never observe or produce torn state. Role type is an input on each call,
// never persisted.
package tracker

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guildops/timewarden/internal/clock"
	"github.com/guildops/timewarden/internal/events"
	"github.com/guildops/timewarden/internal/model"
	"github.com/guildops/timewarden/internal/store"
)

// PauseLimit is the pause count at which a capped-role entity is
// automatically cancelled.
const PauseLimit = 3

// PauseOutcome distinguishes a normal pause from the auto-cancellation a
// third pause triggers. Both are reported as success to the caller.
type PauseOutcome string

const (
	OutcomePaused        PauseOutcome = "paused"
	OutcomeAutoCancelled PauseOutcome = "autoCancelled"
)

// PauseResult carries enough projected state for the caller to format a
// message without re-reading the record.
type PauseResult struct {
	Outcome        PauseOutcome `json:"outcome"`
	TotalSeconds   float64      `json:"totalSeconds"`
	PauseCount     int          `json:"pauseCount"`
	SessionSeconds float64      `json:"sessionSeconds"`
	// SecondsLost is the fractional-hour remainder discarded when the
	// outcome is OutcomeAutoCancelled.
	SecondsLost float64 `json:"secondsLost"`
}

// StopResult reports the closed session and the new total.
type StopResult struct {
	TotalSeconds float64       `json:"totalSeconds"`
	Session      model.Session `json:"session"`
}

// CancelResult reports what an explicit whole-hour cancellation kept and lost.
type CancelResult struct {
	ConservedSeconds float64 `json:"conservedSeconds"`
	LostSeconds      float64 `json:"lostSeconds"`
}

// Engine is the tracking state machine over a shared store.
type Engine struct {
	mu  sync.Mutex
	st  store.Store
	clk clock.Clock
	bus *events.Bus
	log zerolog.Logger
}

// New builds an Engine. bus may be nil when no notification consumer exists.
func New(st store.Store, clk clock.Clock, bus *events.Bus, log zerolog.Logger) *Engine {
	return &Engine{st: st, clk: clk, bus: bus, log: log}
}

// PreRegister marks an entity for automatic start. Fails with
// ErrInvalidState unless the entity is Inactive.
func (e *Engine) PreRegister(ctx context.Context, id, name string, initiator *model.Initiator) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.getOrCreate(ctx, id, name)
	if err != nil {
		return err
	}
	if rec.State != model.StateInactive {
		return model.ErrInvalidState
	}

	now := e.clk.Now()
	rec.State = model.StatePreRegistered
	rec.PreRegisteredAt = &now
	rec.PreRegisterInitiator = initiator
	rec.DisplayName = name
	return e.st.TimeRecords().Put(ctx, rec)
}

// Start opens a session. Fails with ErrInvalidState if the entity is already
// Active, Paused, or terminally MilestoneCompleted. A PreRegistered flag is
// consumed.
func (e *Engine) Start(ctx context.Context, id, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.getOrCreate(ctx, id, name)
	if err != nil {
		return err
	}
	switch rec.State {
	case model.StateActive, model.StatePaused, model.StateMilestoneCompleted:
		return model.ErrInvalidState
	}

	e.beginSession(rec)
	rec.DisplayName = name
	return e.st.TimeRecords().Put(ctx, rec)
}

// StartFromPreRegister converts a PreRegistered entity to Active. Used by
// the lifecycle scheduler at the configured start time.
func (e *Engine) StartFromPreRegister(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.State != model.StatePreRegistered {
		return model.ErrInvalidState
	}

	e.beginSession(rec)
	return e.st.TimeRecords().Put(ctx, rec)
}

// beginSession transitions to Active, clearing any pre-registration residue.
func (e *Engine) beginSession(rec *model.TimeRecord) {
	now := e.clk.Now()
	rec.State = model.StateActive
	rec.SessionStart = &now
	rec.PauseStart = nil
	rec.PreRegisteredAt = nil
	rec.PreRegisterInitiator = nil
}

// Stop closes the open session and folds it into the total. Fails with
// ErrInvalidState if the entity is not Active.
func (e *Engine) Stop(ctx context.Context, id string) (StopResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked(ctx, id)
}

func (e *Engine) stopLocked(ctx context.Context, id string) (StopResult, error) {
	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return StopResult{}, err
	}
	if rec.State != model.StateActive {
		return StopResult{}, model.ErrInvalidState
	}

	now := e.clk.Now()
	sess := e.closeSession(rec, now)
	rec.State = model.StateInactive
	if err := e.st.TimeRecords().Put(ctx, rec); err != nil {
		return StopResult{}, err
	}
	return StopResult{TotalSeconds: rec.TotalSeconds, Session: sess}, nil
}

// closeSession folds the open session into the total and appends the closed
// record. Caller has verified State == Active.
func (e *Engine) closeSession(rec *model.TimeRecord, now time.Time) model.Session {
	sess := model.Session{ID: uuid.NewString(), End: now}
	if rec.SessionStart != nil {
		sess.Start = *rec.SessionStart
		sess.Duration = now.Sub(*rec.SessionStart).Seconds()
		rec.TotalSeconds += sess.Duration
	}
	rec.Sessions = append(rec.Sessions, sess)
	rec.SessionStart = nil
	rec.PauseStart = nil
	return sess
}

// Pause suspends an Active session. For capped roles the third pause is an
// automatic cancellation: fractional hours are discarded and the entity goes
// straight to Inactive. Callers must inspect Outcome to tell the two apart;
// both return nil error.
func (e *Engine) Pause(ctx context.Context, id string, role model.RoleType) (PauseResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return PauseResult{}, err
	}
	if rec.State != model.StateActive {
		return PauseResult{}, model.ErrInvalidState
	}

	now := e.clk.Now()
	var sessionSeconds float64
	if rec.SessionStart != nil {
		sessionSeconds = now.Sub(*rec.SessionStart).Seconds()
	}
	rec.TotalSeconds += sessionSeconds
	rec.SessionStart = nil

	if role == model.RoleUnlimited {
		// Pauses never accumulate for unlimited roles.
		rec.PauseCount = 0
		rec.State = model.StatePaused
		rec.PauseStart = &now
		if err := e.st.TimeRecords().Put(ctx, rec); err != nil {
			return PauseResult{}, err
		}
		return PauseResult{
			Outcome:        OutcomePaused,
			TotalSeconds:   rec.TotalSeconds,
			SessionSeconds: sessionSeconds,
		}, nil
	}

	rec.PauseCount++
	if rec.PauseCount >= PauseLimit {
		lost := math.Mod(rec.TotalSeconds, 3600)
		rec.TotalSeconds = math.Floor(rec.TotalSeconds/3600) * 3600
		reached := rec.PauseCount
		rec.PauseCount = 0
		rec.State = model.StateInactive
		rec.PauseStart = nil
		if err := e.st.TimeRecords().Put(ctx, rec); err != nil {
			return PauseResult{}, err
		}
		e.publish(events.Intent{
			Kind:         events.IntentAutoCancelled,
			EntityID:     rec.ID,
			DisplayName:  rec.DisplayName,
			Hours:        int(rec.TotalSeconds / 3600),
			TotalSeconds: rec.TotalSeconds,
			SecondsLost:  lost,
			PauseCount:   reached,
		})
		return PauseResult{
			Outcome:        OutcomeAutoCancelled,
			TotalSeconds:   rec.TotalSeconds,
			SessionSeconds: sessionSeconds,
			SecondsLost:    lost,
		}, nil
	}

	rec.State = model.StatePaused
	rec.PauseStart = &now
	if err := e.st.TimeRecords().Put(ctx, rec); err != nil {
		return PauseResult{}, err
	}
	return PauseResult{
		Outcome:        OutcomePaused,
		TotalSeconds:   rec.TotalSeconds,
		PauseCount:     rec.PauseCount,
		SessionSeconds: sessionSeconds,
	}, nil
}

// Resume reopens a session for a Paused entity. Truncated time is not
// restored.
func (e *Engine) Resume(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.State != model.StatePaused {
		return model.ErrInvalidState
	}

	now := e.clk.Now()
	rec.State = model.StateActive
	rec.SessionStart = &now
	rec.PauseStart = nil
	return e.st.TimeRecords().Put(ctx, rec)
}

// CancelKeepWholeHours truncates the live total down to whole hours and
// returns the entity to Inactive. Valid in any state.
func (e *Engine) CancelKeepWholeHours(ctx context.Context, id string) (CancelResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return CancelResult{}, err
	}

	total := e.liveTotal(rec)
	conserved := math.Floor(total/3600) * 3600
	rec.TotalSeconds = conserved
	rec.State = model.StateInactive
	rec.SessionStart = nil
	rec.PauseStart = nil
	rec.PauseCount = 0
	if err := e.st.TimeRecords().Put(ctx, rec); err != nil {
		return CancelResult{}, err
	}
	return CancelResult{ConservedSeconds: conserved, LostSeconds: total - conserved}, nil
}

// Remove deletes the entity's record outright.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.TimeRecords().Delete(ctx, id)
}

// ResetEntity zeroes all counters, flags and history but keeps the record.
func (e *Engine) ResetEntity(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resetLocked(ctx, id)
}

func (e *Engine) resetLocked(ctx context.Context, id string) error {
	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return err
	}
	rec.TotalSeconds = 0
	rec.State = model.StateInactive
	rec.SessionStart = nil
	rec.PauseStart = nil
	rec.PauseCount = 0
	rec.Sessions = nil
	rec.NotifiedMilestones = nil
	rec.PreRegisteredAt = nil
	rec.PreRegisterInitiator = nil
	rec.TrackingInitiator = nil
	return e.st.TimeRecords().Put(ctx, rec)
}

// ResetAll applies ResetEntity to every record and returns how many were reset.
func (e *Engine) ResetAll(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	all, err := e.st.TimeRecords().All(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for id := range all {
		if err := e.resetLocked(ctx, id); err != nil {
			e.log.Error().Err(err).Str("entity", id).Msg("reset entity")
			continue
		}
		count++
	}
	return count, nil
}

// WipeAll deletes every tracking record.
func (e *Engine) WipeAll(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.TimeRecords().DeleteAll(ctx)
}

// AddMinutes credits whole minutes onto an existing record. The record must
// already exist; minutes must be positive.
func (e *Engine) AddMinutes(ctx context.Context, id, name string, minutes int) error {
	if minutes <= 0 {
		return model.ErrInvalidArgument
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return err
	}
	rec.TotalSeconds += float64(minutes * 60)
	rec.DisplayName = name
	return e.st.TimeRecords().Put(ctx, rec)
}

// SubtractMinutes debits whole minutes, clamping the total at zero.
func (e *Engine) SubtractMinutes(ctx context.Context, id string, minutes int) error {
	if minutes <= 0 {
		return model.ErrInvalidArgument
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return err
	}
	rec.TotalSeconds = math.Max(0, rec.TotalSeconds-float64(minutes*60))
	return e.st.TimeRecords().Put(ctx, rec)
}

// TotalSeconds returns the accumulated total plus, while Active, the live
// elapsed seconds of the open session. Unknown entities project zero. Pure
// read; never mutates.
func (e *Engine) TotalSeconds(ctx context.Context, id string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		if err == model.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return e.liveTotal(rec), nil
}

func (e *Engine) liveTotal(rec *model.TimeRecord) float64 {
	total := rec.TotalSeconds
	if rec.State == model.StateActive && rec.SessionStart != nil {
		total += e.clk.Now().Sub(*rec.SessionStart).Seconds()
	}
	return total
}

// PausedDuration returns how long the entity has been in its current pause,
// or zero when not Paused.
func (e *Engine) PausedDuration(ctx context.Context, id string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		if err == model.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	if rec.State != model.StatePaused || rec.PauseStart == nil {
		return 0, nil
	}
	return e.clk.Now().Sub(*rec.PauseStart).Seconds(), nil
}

// PauseCount returns the entity's pause count, zero for unknown entities.
func (e *Engine) PauseCount(ctx context.Context, id string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		if err == model.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return rec.PauseCount, nil
}

// Record returns a copy of the entity's record.
func (e *Engine) Record(ctx context.Context, id string) (*model.TimeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.TimeRecords().Get(ctx, id)
}

// Snapshot returns copies of every tracking record, for listing and
// filtering outside the core.
func (e *Engine) Snapshot(ctx context.Context) (map[string]*model.TimeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.TimeRecords().All(ctx)
}

// SetTrackingInitiator records which administrator started the entity's time.
func (e *Engine) SetTrackingInitiator(ctx context.Context, id string, initiator model.Initiator) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return err
	}
	rec.TrackingInitiator = &initiator
	return e.st.TimeRecords().Put(ctx, rec)
}

// ClearTrackingInitiator removes the initiator metadata.
func (e *Engine) ClearTrackingInitiator(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return err
	}
	rec.TrackingInitiator = nil
	return e.st.TimeRecords().Put(ctx, rec)
}

// CompleteMilestone force-stops an Active entity that crossed its cap,
// marks it terminally completed, and records the threshold so it is never
// announced twice. Fails with ErrInvalidState if the entity is not Active or
// the threshold was already recorded.
func (e *Engine) CompleteMilestone(ctx context.Context, id string, threshold int) (StopResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return StopResult{}, err
	}
	if rec.State != model.StateActive || rec.HasNotified(threshold) {
		return StopResult{}, model.ErrInvalidState
	}

	now := e.clk.Now()
	sess := e.closeSession(rec, now)
	rec.State = model.StateMilestoneCompleted
	rec.NotifiedMilestones = append(rec.NotifiedMilestones, threshold)
	if err := e.st.TimeRecords().Put(ctx, rec); err != nil {
		return StopResult{}, err
	}
	return StopResult{TotalSeconds: rec.TotalSeconds, Session: sess}, nil
}

// MarkIntermediateMilestone records a non-terminal threshold crossing
// without stopping tracking. Returns false if already recorded.
func (e *Engine) MarkIntermediateMilestone(ctx context.Context, id string, threshold int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err != nil {
		return false, err
	}
	if rec.HasNotified(threshold) {
		return false, nil
	}
	rec.NotifiedMilestones = append(rec.NotifiedMilestones, threshold)
	if err := e.st.TimeRecords().Put(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// ForceStopAll closes out every Active and Paused entity, as the lifecycle
// scheduler does at the configured stop time. Paused entities have no open
// session to fold (pause already folded it), so they simply return to
// Inactive. Returns how many entities were stopped.
func (e *Engine) ForceStopAll(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	all, err := e.st.TimeRecords().All(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for id, rec := range all {
		switch rec.State {
		case model.StateActive:
			if _, err := e.stopLocked(ctx, id); err != nil {
				e.log.Error().Err(err).Str("entity", id).Msg("force stop")
				continue
			}
			count++
		case model.StatePaused:
			rec.State = model.StateInactive
			rec.PauseStart = nil
			if err := e.st.TimeRecords().Put(ctx, rec); err != nil {
				e.log.Error().Err(err).Str("entity", id).Msg("force stop paused")
				continue
			}
			count++
		}
	}
	return count, nil
}

// getOrCreate returns the record for id, building a fresh Inactive one on
// first contact. The new record is not persisted until the operation commits.
func (e *Engine) getOrCreate(ctx context.Context, id, name string) (*model.TimeRecord, error) {
	rec, err := e.st.TimeRecords().Get(ctx, id)
	if err == model.ErrNotFound {
		return &model.TimeRecord{ID: id, DisplayName: name, State: model.StateInactive}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (e *Engine) publish(it events.Intent) {
	if e.bus == nil {
		return
	}
	if !e.bus.Publish(it) {
		e.log.Warn().Str("entity", it.EntityID).Str("kind", string(it.Kind)).Msg("intent buffer full, notification dropped")
	}
}
