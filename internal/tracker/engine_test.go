package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/guildops/timewarden/internal/clock"
	"github.com/guildops/timewarden/internal/events"
	"github.com/guildops/timewarden/internal/model"
	"github.com/guildops/timewarden/internal/store/jsonfile"
)

func newTestEngine(t *testing.T) (*Engine, *clock.Fake, *events.Bus) {
	t.Helper()
	st, err := jsonfile.Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	clk := clock.NewFake(time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC))
	bus := events.NewBus(16)
	return New(st, clk, bus, zerolog.Nop()), clk, bus
}

func TestStartStopAccumulates(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(40 * time.Minute)

	res, err := e.Stop(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(2400), res.TotalSeconds)
	require.Equal(t, float64(2400), res.Session.Duration)

	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.StateInactive, rec.State)
	require.Nil(t, rec.SessionStart)
	require.Len(t, rec.Sessions, 1)
	require.NotEmpty(t, rec.Sessions[0].ID)
}

func TestStopTwiceSecondFailsInvalidState(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(10 * time.Minute)
	first, err := e.Stop(ctx, "u1")
	require.NoError(t, err)

	_, err = e.Stop(ctx, "u1")
	require.ErrorIs(t, err, model.ErrInvalidState)

	// First stop's effect is unchanged by the failed second attempt.
	total, err := e.TotalSeconds(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, first.TotalSeconds, total)
}

func TestStartFailsWhileActiveOrPaused(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	require.ErrorIs(t, e.Start(ctx, "u1", "Alice"), model.ErrInvalidState)

	_, err := e.Pause(ctx, "u1", model.RoleNormal)
	require.NoError(t, err)
	require.ErrorIs(t, e.Start(ctx, "u1", "Alice"), model.ErrInvalidState)
}

func TestLiveTotalGrowsWithoutDiscontinuity(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))

	total, err := e.TotalSeconds(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(0), total)

	clk.Advance(30 * time.Second)
	t1, err := e.TotalSeconds(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(30), t1)

	clk.Advance(30 * time.Second)
	t2, err := e.TotalSeconds(ctx, "u1")
	require.NoError(t, err)
	require.Greater(t, t2, t1)

	// Reading the projection must not mutate state.
	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(0), rec.TotalSeconds)
	require.Equal(t, model.StateActive, rec.State)
}

func TestTotalSecondsUnknownEntityIsZero(t *testing.T) {
	e, _, _ := newTestEngine(t)
	total, err := e.TotalSeconds(context.Background(), "ghost")
	require.NoError(t, err)
	require.Equal(t, float64(0), total)
}

func TestPauseResumeNormalRole(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(20 * time.Minute)

	res, err := e.Pause(ctx, "u1", model.RoleNormal)
	require.NoError(t, err)
	require.Equal(t, OutcomePaused, res.Outcome)
	require.Equal(t, 1, res.PauseCount)
	require.Equal(t, float64(1200), res.TotalSeconds)
	require.Equal(t, float64(1200), res.SessionSeconds)

	clk.Advance(5 * time.Minute)
	dur, err := e.PausedDuration(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(300), dur)

	count, err := e.PauseCount(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, e.Resume(ctx, "u1"))
	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.StateActive, rec.State)
	require.Nil(t, rec.PauseStart)

	// Paused time is not tracked time.
	total, err := e.TotalSeconds(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(1200), total)
}

func TestResumeFailsWhenNotPaused(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	require.ErrorIs(t, e.Resume(ctx, "u1"), model.ErrInvalidState)
}

func TestThirdPauseAutoCancelsCappedRole(t *testing.T) {
	e, clk, bus := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(50 * time.Minute)
	_, err := e.Pause(ctx, "u1", model.RoleNormal)
	require.NoError(t, err)

	require.NoError(t, e.Resume(ctx, "u1"))
	clk.Advance(20 * time.Minute)
	res2, err := e.Pause(ctx, "u1", model.RoleNormal)
	require.NoError(t, err)
	require.Equal(t, OutcomePaused, res2.Outcome)
	require.Equal(t, 2, res2.PauseCount)

	require.NoError(t, e.Resume(ctx, "u1"))
	clk.Advance(5 * time.Minute)
	// Total before third pause: 50m + 20m + 5m = 75m = 4500s.
	res3, err := e.Pause(ctx, "u1", model.RoleNormal)
	require.NoError(t, err)
	require.Equal(t, OutcomeAutoCancelled, res3.Outcome)
	require.Equal(t, float64(3600), res3.TotalSeconds)
	require.Equal(t, float64(900), res3.SecondsLost)

	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.StateInactive, rec.State)
	require.Equal(t, 0, rec.PauseCount)
	require.Nil(t, rec.SessionStart)
	require.Nil(t, rec.PauseStart)
	require.Equal(t, float64(3600), rec.TotalSeconds)

	select {
	case it := <-bus.Subscribe():
		require.Equal(t, events.IntentAutoCancelled, it.Kind)
		require.Equal(t, "u1", it.EntityID)
		require.Equal(t, 1, it.Hours)
		require.Equal(t, float64(900), it.SecondsLost)
		require.Equal(t, 3, it.PauseCount)
	default:
		t.Fatal("expected an autoCancelled intent")
	}
}

func TestUnlimitedRolePausesNeverAccumulate(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	for i := 0; i < 5; i++ {
		clk.Advance(time.Minute)
		res, err := e.Pause(ctx, "u1", model.RoleUnlimited)
		require.NoError(t, err)
		require.Equal(t, OutcomePaused, res.Outcome)
		require.Equal(t, 0, res.PauseCount)
		require.NoError(t, e.Resume(ctx, "u1"))
	}

	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 0, rec.PauseCount)
}

func TestPreRegisterFlow(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	init := &model.Initiator{AdminID: "a1", AdminName: "Root", Timestamp: time.Now()}
	require.NoError(t, e.PreRegister(ctx, "u1", "Alice", init))

	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.StatePreRegistered, rec.State)
	require.NotNil(t, rec.PreRegisteredAt)
	require.Equal(t, "a1", rec.PreRegisterInitiator.AdminID)

	// Double pre-register is rejected.
	require.ErrorIs(t, e.PreRegister(ctx, "u1", "Alice", nil), model.ErrInvalidState)

	require.NoError(t, e.StartFromPreRegister(ctx, "u1"))
	rec, err = e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.StateActive, rec.State)
	require.Nil(t, rec.PreRegisteredAt)
	require.Nil(t, rec.PreRegisterInitiator)

	// Only PreRegistered entities can be auto-started.
	require.ErrorIs(t, e.StartFromPreRegister(ctx, "u1"), model.ErrInvalidState)
}

func TestManualStartConsumesPreRegistration(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.PreRegister(ctx, "u1", "Alice", nil))
	require.NoError(t, e.Start(ctx, "u1", "Alice"))

	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.StateActive, rec.State)
	require.Nil(t, rec.PreRegisteredAt)
}

func TestMilestoneCompletedIsTerminal(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(time.Hour)

	res, err := e.CompleteMilestone(ctx, "u1", 3600)
	require.NoError(t, err)
	require.Equal(t, float64(3600), res.TotalSeconds)

	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.StateMilestoneCompleted, rec.State)
	require.True(t, rec.HasNotified(3600))

	require.ErrorIs(t, e.Start(ctx, "u1", "Alice"), model.ErrInvalidState)
	require.ErrorIs(t, e.PreRegister(ctx, "u1", "Alice", nil), model.ErrInvalidState)

	// Explicit reset clears the terminal state.
	require.NoError(t, e.ResetEntity(ctx, "u1"))
	require.NoError(t, e.Start(ctx, "u1", "Alice"))
}

func TestCompleteMilestoneNeverFiresTwice(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(time.Hour)
	_, err := e.CompleteMilestone(ctx, "u1", 3600)
	require.NoError(t, err)

	_, err = e.CompleteMilestone(ctx, "u1", 3600)
	require.ErrorIs(t, err, model.ErrInvalidState)
}

func TestMarkIntermediateMilestoneDedupes(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(time.Hour)

	changed, err := e.MarkIntermediateMilestone(ctx, "u1", 3600)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = e.MarkIntermediateMilestone(ctx, "u1", 3600)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestCancelKeepWholeHours(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(95 * time.Minute)

	res, err := e.CancelKeepWholeHours(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(3600), res.ConservedSeconds)
	require.InDelta(t, float64(2100), res.LostSeconds, 0.001)

	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, model.StateInactive, rec.State)
	require.Equal(t, 0, rec.PauseCount)
	require.Equal(t, float64(3600), rec.TotalSeconds)
}

func TestAddSubtractMinutes(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	// Add requires an existing record.
	require.ErrorIs(t, e.AddMinutes(ctx, "u1", "Alice", 10), model.ErrNotFound)
	require.ErrorIs(t, e.AddMinutes(ctx, "u1", "Alice", 0), model.ErrInvalidArgument)
	require.ErrorIs(t, e.SubtractMinutes(ctx, "u1", -5), model.ErrInvalidArgument)

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	_, err := e.Stop(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, e.AddMinutes(ctx, "u1", "Alice", 30))
	total, err := e.TotalSeconds(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(1800), total)

	// Subtract clamps at zero.
	require.NoError(t, e.SubtractMinutes(ctx, "u1", 45))
	total, err = e.TotalSeconds(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(0), total)
}

func TestResetAndRemove(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(time.Hour)
	_, err := e.Stop(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx, "u2", "Bob"))

	n, err := e.ResetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(0), rec.TotalSeconds)
	require.Empty(t, rec.Sessions)
	require.Empty(t, rec.NotifiedMilestones)

	require.NoError(t, e.Remove(ctx, "u2"))
	_, err = e.Record(ctx, "u2")
	require.ErrorIs(t, err, model.ErrNotFound)

	n, err = e.WipeAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestForceStopAllCoversActiveAndPaused(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "active", "A"))
	require.NoError(t, e.Start(ctx, "paused", "P"))
	clk.Advance(10 * time.Minute)
	_, err := e.Pause(ctx, "paused", model.RoleNormal)
	require.NoError(t, err)
	require.NoError(t, e.PreRegister(ctx, "pre", "Q", nil))

	n, err := e.ForceStopAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for _, id := range []string{"active", "paused"} {
		rec, err := e.Record(ctx, id)
		require.NoError(t, err)
		require.Equal(t, model.StateInactive, rec.State, id)
	}
	// Pre-registered entities are untouched by auto-stop.
	rec, err := e.Record(ctx, "pre")
	require.NoError(t, err)
	require.Equal(t, model.StatePreRegistered, rec.State)

	// Paused entity keeps the time folded at pause.
	total, err := e.TotalSeconds(ctx, "paused")
	require.NoError(t, err)
	require.Equal(t, float64(600), total)
}

func TestTrackingInitiatorMetadata(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	require.NoError(t, e.SetTrackingInitiator(ctx, "u1", model.Initiator{AdminID: "a9", AdminName: "Root"}))

	rec, err := e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "a9", rec.TrackingInitiator.AdminID)

	require.NoError(t, e.ClearTrackingInitiator(ctx, "u1"))
	rec, err = e.Record(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, rec.TrackingInitiator)
}

func TestTotalNeverNegative(t *testing.T) {
	e, clk, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, "u1", "Alice"))
	clk.Advance(time.Minute)
	_, err := e.Stop(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, e.SubtractMinutes(ctx, "u1", 600))

	total, err := e.TotalSeconds(ctx, "u1")
	require.NoError(t, err)
	require.GreaterOrEqual(t, total, float64(0))
}
