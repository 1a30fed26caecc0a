// Package attendance implements the bounded daily/weekly attendance quota
// engine: 3 per local calendar day, 15 per Monday-Friday week, manual grants
// outside the daily buckets, and a one-way full-day transfer between
// entities.
package attendance

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/guildops/timewarden/internal/clock"
	"github.com/guildops/timewarden/internal/model"
	"github.com/guildops/timewarden/internal/store"
)

const (
	// DailyCap is the most attendance a daily bucket may hold.
	DailyCap = 3
	// WeeklyCap bounds the Mon-Fri bucket sum plus the manual bonus.
	WeeklyCap = 15
	// ManualGrantMax bounds a single manual weekly grant.
	ManualGrantMax = 15
)

// Info is the per-entity aggregate served to listing consumers.
type Info struct {
	Daily  int `json:"daily"`
	Weekly int `json:"weekly"`
	Total  int `json:"total"`
}

// Ledger is the attendance quota engine over a shared store.
type Ledger struct {
	mu  sync.Mutex
	st  store.Store
	clk clock.Clock
	log zerolog.Logger
}

// New builds a Ledger.
func New(st store.Store, clk clock.Clock, log zerolog.Logger) *Ledger {
	return &Ledger{st: st, clk: clk, log: log}
}

// GrantManual adds qty directly to the weekly bonus and the running total,
// bypassing the daily buckets. qty must be in [1, ManualGrantMax].
func (l *Ledger) GrantManual(ctx context.Context, id, name string, qty int) error {
	if qty < 1 || qty > ManualGrantMax {
		return model.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.getOrCreate(ctx, id, name)
	if err != nil {
		return err
	}
	rec.ManualWeeklyBonus += qty
	rec.TotalAttendance += qty
	return l.st.AttendanceRecords().Put(ctx, rec)
}

// GrantDailyManual adds qty to today's bucket, rejecting any grant that
// would push the bucket above DailyCap. qty must be in [1, DailyCap].
func (l *Ledger) GrantDailyManual(ctx context.Context, id, name string, qty int) error {
	if qty < 1 || qty > DailyCap {
		return model.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.getOrCreate(ctx, id, name)
	if err != nil {
		return err
	}
	today := l.today()
	if rec.DailyCounts[today]+qty > DailyCap {
		return model.ErrQuotaExceeded
	}
	rec.DailyCounts[today] += qty
	rec.TotalAttendance += qty
	return l.st.AttendanceRecords().Put(ctx, rec)
}

// GrantDaily awards up to qty attendance for today, clipped to the remaining
// daily and weekly headroom. It returns the quantity actually granted.
// Rejected with ErrQuotaExceeded when the entity transferred earlier today,
// when today's bucket is full, or when the weekly cap leaves no headroom.
func (l *Ledger) GrantDaily(ctx context.Context, id, name string, qty int) (int, error) {
	if qty < 1 {
		return 0, model.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.getOrCreate(ctx, id, name)
	if err != nil {
		return 0, err
	}
	today := l.today()
	if rec.TransferredOn == today {
		return 0, model.ErrQuotaExceeded
	}
	daily := rec.DailyCounts[today]
	if daily >= DailyCap {
		return 0, model.ErrQuotaExceeded
	}
	weekly := l.weeklyOf(rec)
	if weekly >= WeeklyCap {
		return 0, model.ErrQuotaExceeded
	}

	if daily+qty > DailyCap {
		qty = DailyCap - daily
	}
	if weekly+qty > WeeklyCap {
		qty = WeeklyCap - weekly
	}
	if qty <= 0 {
		return 0, model.ErrQuotaExceeded
	}

	rec.DailyCounts[today] += qty
	rec.TotalAttendance += qty
	if err := l.st.AttendanceRecords().Put(ctx, rec); err != nil {
		return 0, err
	}
	return qty, nil
}

// Transfer moves qty of today's attendance from one entity to another. The
// donor must hold a full day (today's bucket exactly DailyCap); the receiver
// is subject to the normal daily and weekly caps. All constraints are
// validated before either side mutates, so a rejected transfer changes
// nothing and a committed one conserves the combined total. The donor is
// blocked from daily grants for the rest of the day.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID, toName string, qty int) error {
	if qty < 1 || qty > DailyCap {
		return model.ErrInvalidArgument
	}
	if fromID == toID {
		return model.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	from, err := l.st.AttendanceRecords().Get(ctx, fromID)
	if err != nil {
		return err
	}
	today := l.today()
	if from.DailyCounts[today] != DailyCap {
		return model.ErrInvalidState
	}

	to, err := l.getOrCreate(ctx, toID, toName)
	if err != nil {
		return err
	}
	if to.DailyCounts[today]+qty > DailyCap {
		return model.ErrQuotaExceeded
	}
	if l.weeklyOf(to)+qty > WeeklyCap {
		return model.ErrQuotaExceeded
	}

	// All checks passed; commit both sides.
	from.DailyCounts[today] -= qty
	from.TotalAttendance -= qty
	if from.TotalAttendance < 0 {
		from.TotalAttendance = 0
	}
	from.TransferredOn = today

	to.DailyCounts[today] += qty
	to.TotalAttendance += qty

	if err := l.st.AttendanceRecords().Put(ctx, from); err != nil {
		return err
	}
	return l.st.AttendanceRecords().Put(ctx, to)
}

// DailyCount returns today's bucket for the entity.
func (l *Ledger) DailyCount(ctx context.Context, id string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.st.AttendanceRecords().Get(ctx, id)
	if err != nil {
		if err == model.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return rec.DailyCounts[l.today()], nil
}

// WeeklyCount returns the Mon-Fri bucket sum plus the manual bonus.
func (l *Ledger) WeeklyCount(ctx context.Context, id string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.st.AttendanceRecords().Get(ctx, id)
	if err != nil {
		if err == model.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return l.weeklyOf(rec), nil
}

// TotalCount returns the running total.
func (l *Ledger) TotalCount(ctx context.Context, id string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.st.AttendanceRecords().Get(ctx, id)
	if err != nil {
		if err == model.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return rec.TotalAttendance, nil
}

// GetInfo returns the daily/weekly/total aggregate in one read.
func (l *Ledger) GetInfo(ctx context.Context, id string) (Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.st.AttendanceRecords().Get(ctx, id)
	if err != nil {
		if err == model.ErrNotFound {
			return Info{}, nil
		}
		return Info{}, err
	}
	return Info{
		Daily:  rec.DailyCounts[l.today()],
		Weekly: l.weeklyOf(rec),
		Total:  rec.TotalAttendance,
	}, nil
}

// ResetWeeklyBonuses clears every manual weekly bonus. Idempotent; daily
// bucket history is untouched.
func (l *Ledger) ResetWeeklyBonuses(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.st.AttendanceRecords().All(ctx)
	if err != nil {
		return err
	}
	for _, rec := range all {
		if rec.ManualWeeklyBonus == 0 {
			continue
		}
		rec.ManualWeeklyBonus = 0
		if err := l.st.AttendanceRecords().Put(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ResetTransferLocks clears every transfer block. Idempotent.
func (l *Ledger) ResetTransferLocks(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.st.AttendanceRecords().All(ctx)
	if err != nil {
		return err
	}
	for _, rec := range all {
		if rec.TransferredOn == "" {
			continue
		}
		rec.TransferredOn = ""
		if err := l.st.AttendanceRecords().Put(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ResetAll wipes every attendance record.
func (l *Ledger) ResetAll(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.AttendanceRecords().DeleteAll(ctx)
}

// Snapshot returns copies of every attendance record.
func (l *Ledger) Snapshot(ctx context.Context) (map[string]*model.AttendanceRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.AttendanceRecords().All(ctx)
}

func (l *Ledger) getOrCreate(ctx context.Context, id, name string) (*model.AttendanceRecord, error) {
	rec, err := l.st.AttendanceRecords().Get(ctx, id)
	if err == model.ErrNotFound {
		return &model.AttendanceRecord{
			ID:          id,
			DisplayName: name,
			DailyCounts: make(map[string]int),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if name != "" {
		rec.DisplayName = name
	}
	if rec.DailyCounts == nil {
		rec.DailyCounts = make(map[string]int)
	}
	return rec, nil
}

func (l *Ledger) today() string {
	return l.clk.Now().Format(model.DateKey)
}

// weeklyOf sums the current week's Monday-Friday buckets plus the manual
// bonus.
func (l *Ledger) weeklyOf(rec *model.AttendanceRecord) int {
	now := l.clk.Now()
	// time.Weekday counts from Sunday; shift so Monday is day zero.
	offset := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -offset)

	sum := rec.ManualWeeklyBonus
	for i := 0; i < 5; i++ {
		day := monday.AddDate(0, 0, i).Format(model.DateKey)
		sum += rec.DailyCounts[day]
	}
	return sum
}
