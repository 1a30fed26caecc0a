// Package jsonfile persists each record family as a single JSON document
// overwritten in full on every save. The in-memory maps stay authoritative:
// a failed flush is logged and the mutation is kept.
package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/guildops/timewarden/internal/model"
	"github.com/guildops/timewarden/internal/store"
)

const (
	timeRecordsFile = "time_records.json"
	attendanceFile  = "attendance.json"
)

// Store implements store.Store on two JSON snapshot files under a base dir.
type Store struct {
	mu  sync.Mutex
	dir string
	log zerolog.Logger

	times      map[string]*model.TimeRecord
	attendance map[string]*model.AttendanceRecord
}

// Open loads both documents from dir, creating the directory if needed.
// Missing files start empty; unreadable files are an error so corrupt state
// is never silently discarded.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{
		dir:        dir,
		log:        log,
		times:      make(map[string]*model.TimeRecord),
		attendance: make(map[string]*model.AttendanceRecord),
	}
	if err := loadFile(filepath.Join(dir, timeRecordsFile), &s.times); err != nil {
		return nil, err
	}
	if err := loadFile(filepath.Join(dir, attendanceFile), &s.attendance); err != nil {
		return nil, err
	}
	return s, nil
}

func loadFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// flush writes one document in full. Called with the mutex held; the write
// itself is the only disk work done under the lock.
func (s *Store) flush(name string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("marshal snapshot")
		return
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("write snapshot; in-memory state remains authoritative")
	}
}

func (s *Store) TimeRecords() store.TimeRecords             { return timeRecords{s} }
func (s *Store) AttendanceRecords() store.AttendanceRecords { return attendanceRecords{s} }

type timeRecords struct{ s *Store }

func (t timeRecords) Get(_ context.Context, id string) (*model.TimeRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	rec, ok := t.s.times[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return rec.Clone(), nil
}

func (t timeRecords) Put(_ context.Context, rec *model.TimeRecord) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.times[rec.ID] = rec.Clone()
	t.s.flush(timeRecordsFile, t.s.times)
	return nil
}

func (t timeRecords) Delete(_ context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.times[id]; !ok {
		return model.ErrNotFound
	}
	delete(t.s.times, id)
	t.s.flush(timeRecordsFile, t.s.times)
	return nil
}

func (t timeRecords) All(_ context.Context) (map[string]*model.TimeRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	out := make(map[string]*model.TimeRecord, len(t.s.times))
	for id, rec := range t.s.times {
		out[id] = rec.Clone()
	}
	return out, nil
}

func (t timeRecords) DeleteAll(_ context.Context) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	n := len(t.s.times)
	t.s.times = make(map[string]*model.TimeRecord)
	t.s.flush(timeRecordsFile, t.s.times)
	return n, nil
}

type attendanceRecords struct{ s *Store }

func (a attendanceRecords) Get(_ context.Context, id string) (*model.AttendanceRecord, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	rec, ok := a.s.attendance[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return rec.Clone(), nil
}

func (a attendanceRecords) Put(_ context.Context, rec *model.AttendanceRecord) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.attendance[rec.ID] = rec.Clone()
	a.s.flush(attendanceFile, a.s.attendance)
	return nil
}

func (a attendanceRecords) All(_ context.Context) (map[string]*model.AttendanceRecord, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	out := make(map[string]*model.AttendanceRecord, len(a.s.attendance))
	for id, rec := range a.s.attendance {
		out[id] = rec.Clone()
	}
	return out, nil
}

func (a attendanceRecords) DeleteAll(_ context.Context) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	n := len(a.s.attendance)
	a.s.attendance = make(map[string]*model.AttendanceRecord)
	a.s.flush(attendanceFile, a.s.attendance)
	return n, nil
}
