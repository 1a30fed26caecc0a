package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/guildops/timewarden/internal/clock"
	"github.com/guildops/timewarden/internal/model"
	"github.com/guildops/timewarden/internal/store/jsonfile"
)

// Monday 2025-03-10.
var monday = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*Ledger, *clock.Fake) {
	t.Helper()
	st, err := jsonfile.Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	clk := clock.NewFake(monday)
	return New(st, clk, zerolog.Nop()), clk
}

func TestGrantDailyRespectsDailyCap(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	granted, err := l.GrantDaily(ctx, "a1", "Alice", 1)
	require.NoError(t, err)
	require.Equal(t, 1, granted)

	// Over-asking is clipped to the remaining daily headroom.
	granted, err = l.GrantDaily(ctx, "a1", "Alice", 5)
	require.NoError(t, err)
	require.Equal(t, 2, granted)

	_, err = l.GrantDaily(ctx, "a1", "Alice", 1)
	require.ErrorIs(t, err, model.ErrQuotaExceeded)

	daily, err := l.DailyCount(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 3, daily)
}

func TestGrantDailyRespectsWeeklyCap(t *testing.T) {
	l, clk := newTestLedger(t)
	ctx := context.Background()

	// 3 per day Monday through Thursday, then 3 more on Friday would break 15.
	for day := 0; day < 4; day++ {
		granted, err := l.GrantDaily(ctx, "a1", "Alice", 3)
		require.NoError(t, err)
		require.Equal(t, 3, granted)
		clk.Advance(24 * time.Hour)
	}

	// Friday: 12 in buckets plus a bonus of 2 leaves weekly headroom of 1.
	require.NoError(t, l.GrantManual(ctx, "a1", "Alice", 2))
	granted, err := l.GrantDaily(ctx, "a1", "Alice", 3)
	require.NoError(t, err)
	require.Equal(t, 1, granted)

	weekly, err := l.WeeklyCount(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 15, weekly)

	_, err = l.GrantDaily(ctx, "a1", "Alice", 1)
	require.ErrorIs(t, err, model.ErrQuotaExceeded)
}

func TestWeeklySumCountsMonToFriPlusBonus(t *testing.T) {
	l, clk := newTestLedger(t)
	ctx := context.Background()

	// Mon: 3, Tue: 2, bonus: 1 -> weekly 6.
	_, err := l.GrantDaily(ctx, "a1", "Alice", 3)
	require.NoError(t, err)
	clk.Advance(24 * time.Hour)
	_, err = l.GrantDaily(ctx, "a1", "Alice", 2)
	require.NoError(t, err)
	require.NoError(t, l.GrantManual(ctx, "a1", "Alice", 1))

	weekly, err := l.WeeklyCount(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 6, weekly)

	info, err := l.GetInfo(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, Info{Daily: 2, Weekly: 6, Total: 6}, info)
}

func TestGrantManualBypassesDailyBucket(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.ErrorIs(t, l.GrantManual(ctx, "a1", "Alice", 0), model.ErrInvalidArgument)
	require.ErrorIs(t, l.GrantManual(ctx, "a1", "Alice", 16), model.ErrInvalidArgument)

	require.NoError(t, l.GrantManual(ctx, "a1", "Alice", 15))
	daily, err := l.DailyCount(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 0, daily)

	weekly, err := l.WeeklyCount(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 15, weekly)
}

func TestGrantDailyManualCapsAtThree(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.ErrorIs(t, l.GrantDailyManual(ctx, "a1", "Alice", 4), model.ErrInvalidArgument)
	require.NoError(t, l.GrantDailyManual(ctx, "a1", "Alice", 2))
	require.ErrorIs(t, l.GrantDailyManual(ctx, "a1", "Alice", 2), model.ErrQuotaExceeded)
	require.NoError(t, l.GrantDailyManual(ctx, "a1", "Alice", 1))

	info, err := l.GetInfo(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 3, info.Daily)
	require.Equal(t, 3, info.Total)
}

func TestTransferRequiresExactlyFullDay(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.GrantDaily(ctx, "donor", "Don", 2)
	require.NoError(t, err)

	require.ErrorIs(t, l.Transfer(ctx, "donor", "recv", "Rita", 2), model.ErrInvalidState)

	_, err = l.GrantDaily(ctx, "donor", "Don", 1)
	require.NoError(t, err)
	require.NoError(t, l.Transfer(ctx, "donor", "recv", "Rita", 2))
}

func TestTransferConservesCombinedTotal(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.GrantDaily(ctx, "donor", "Don", 3)
	require.NoError(t, err)
	_, err = l.GrantDaily(ctx, "recv", "Rita", 1)
	require.NoError(t, err)

	before := 3 + 1
	require.NoError(t, l.Transfer(ctx, "donor", "recv", "Rita", 2))

	dTotal, err := l.TotalCount(ctx, "donor")
	require.NoError(t, err)
	rTotal, err := l.TotalCount(ctx, "recv")
	require.NoError(t, err)
	require.Equal(t, before, dTotal+rTotal)
	require.Equal(t, 1, dTotal)
	require.Equal(t, 3, rTotal)
}

func TestTransferRejectedWhenReceiverLacksRoom(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.GrantDaily(ctx, "donor", "Don", 3)
	require.NoError(t, err)
	_, err = l.GrantDaily(ctx, "recv", "Rita", 2)
	require.NoError(t, err)

	require.ErrorIs(t, l.Transfer(ctx, "donor", "recv", "Rita", 2), model.ErrQuotaExceeded)

	// Rejected transfer mutates neither side.
	dInfo, err := l.GetInfo(ctx, "donor")
	require.NoError(t, err)
	require.Equal(t, Info{Daily: 3, Weekly: 3, Total: 3}, dInfo)
	rInfo, err := l.GetInfo(ctx, "recv")
	require.NoError(t, err)
	require.Equal(t, Info{Daily: 2, Weekly: 2, Total: 2}, rInfo)

	// Donor was not locked by the failed transfer.
	_, err = l.GrantDaily(ctx, "recv", "Rita", 1)
	require.NoError(t, err)
}

func TestTransferLocksDonorForTheDay(t *testing.T) {
	l, clk := newTestLedger(t)
	ctx := context.Background()

	_, err := l.GrantDaily(ctx, "donor", "Don", 3)
	require.NoError(t, err)
	require.NoError(t, l.Transfer(ctx, "donor", "recv", "Rita", 3))

	_, err = l.GrantDaily(ctx, "donor", "Don", 1)
	require.ErrorIs(t, err, model.ErrQuotaExceeded)

	// Next calendar day the lock no longer applies.
	clk.Advance(24 * time.Hour)
	granted, err := l.GrantDaily(ctx, "donor", "Don", 1)
	require.NoError(t, err)
	require.Equal(t, 1, granted)
}

func TestTransferQuantityBounds(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.GrantDaily(ctx, "donor", "Don", 3)
	require.NoError(t, err)

	require.ErrorIs(t, l.Transfer(ctx, "donor", "recv", "Rita", 0), model.ErrInvalidArgument)
	require.ErrorIs(t, l.Transfer(ctx, "donor", "recv", "Rita", 4), model.ErrInvalidArgument)
	require.ErrorIs(t, l.Transfer(ctx, "donor", "donor", "Don", 1), model.ErrInvalidArgument)
	require.ErrorIs(t, l.Transfer(ctx, "ghost", "recv", "Rita", 1), model.ErrNotFound)
}

func TestResetsAreIdempotentAndScoped(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.GrantDaily(ctx, "donor", "Don", 3)
	require.NoError(t, err)
	require.NoError(t, l.GrantManual(ctx, "donor", "Don", 5))
	require.NoError(t, l.Transfer(ctx, "donor", "recv", "Rita", 3))

	require.NoError(t, l.ResetWeeklyBonuses(ctx))
	require.NoError(t, l.ResetWeeklyBonuses(ctx))

	// Bonus cleared, daily history retained.
	weekly, err := l.WeeklyCount(ctx, "recv")
	require.NoError(t, err)
	require.Equal(t, 3, weekly)

	require.NoError(t, l.ResetTransferLocks(ctx))
	granted, err := l.GrantDaily(ctx, "donor", "Don", 1)
	require.NoError(t, err)
	require.Equal(t, 1, granted)

	n, err := l.ResetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
