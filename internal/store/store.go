package store

import (
	"context"

	"github.com/guildops/timewarden/internal/model"
)

// Store exposes persistence for the two record families. Implementations
// live under internal/store/<driver>/.
//
// Readers receive copies; the store is the only owner of record state.
// Mutations apply to the in-memory authority first and flush to disk
// best-effort; a failed flush is logged, never rolled back.
type Store interface {
	TimeRecords() TimeRecords
	AttendanceRecords() AttendanceRecords
}

// TimeRecords is keyed by entity ID.
type TimeRecords interface {
	Get(ctx context.Context, id string) (*model.TimeRecord, error)
	Put(ctx context.Context, rec *model.TimeRecord) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) (map[string]*model.TimeRecord, error)
	// DeleteAll removes every record and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)
}

// AttendanceRecords is keyed by entity ID.
type AttendanceRecords interface {
	Get(ctx context.Context, id string) (*model.AttendanceRecord, error)
	Put(ctx context.Context, rec *model.AttendanceRecord) error
	All(ctx context.Context) (map[string]*model.AttendanceRecord, error)
	DeleteAll(ctx context.Context) (int, error)
}
