package model

import "time"

// TrackingState is the single authoritative position of an entity in the
// tracking state machine. Exactly one state holds at a time.
type TrackingState string

const (
	StateInactive           TrackingState = "inactive"
	StatePreRegistered      TrackingState = "pre_registered"
	StateActive             TrackingState = "active"
	StatePaused             TrackingState = "paused"
	StateMilestoneCompleted TrackingState = "milestone_completed"
)

// RoleType classifies an entity for cap and pause policy. It is supplied by
// the caller on every operation and never cached on the record.
type RoleType string

const (
	RoleNormal    RoleType = "normal"
	RoleUnlimited RoleType = "unlimited"
)

// Cap returns the maximum accumulated session time for the role.
func (r RoleType) Cap() time.Duration {
	if r == RoleUnlimited {
		return 2 * time.Hour
	}
	return time.Hour
}

// Thresholds returns the hour-boundary milestones for the role, in seconds,
// ascending. The last threshold is the cap.
func (r RoleType) Thresholds() []int {
	if r == RoleUnlimited {
		return []int{3600, 7200}
	}
	return []int{3600}
}

// Initiator records which administrator triggered an operation on behalf of
// an entity. Opaque metadata; the state machine itself never reads it.
type Initiator struct {
	AdminID   string    `json:"adminId"`
	AdminName string    `json:"adminName"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one closed tracking interval. Append-only, never mutated after
// being written.
type Session struct {
	ID       string    `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration float64   `json:"durationSeconds"`
}

// TimeRecord is the persisted tracking state for one entity.
type TimeRecord struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"displayName"`
	State       TrackingState `json:"state"`

	// TotalSeconds is accumulated closed-session time. Never negative.
	TotalSeconds float64 `json:"totalSeconds"`

	// SessionStart is set iff State == StateActive.
	SessionStart *time.Time `json:"sessionStart,omitempty"`
	// PauseStart is set iff State == StatePaused.
	PauseStart *time.Time `json:"pauseStart,omitempty"`

	// PauseCount is pauses since the last reset or auto-cancellation.
	// Always 0 for unlimited roles.
	PauseCount int `json:"pauseCount"`

	// NotifiedMilestones holds second-thresholds already reported, so a
	// milestone is never announced twice.
	NotifiedMilestones []int `json:"notifiedMilestones,omitempty"`

	Sessions []Session `json:"sessions,omitempty"`

	PreRegisteredAt      *time.Time `json:"preRegisteredAt,omitempty"`
	PreRegisterInitiator *Initiator `json:"preRegisterInitiator,omitempty"`
	TrackingInitiator    *Initiator `json:"trackingInitiator,omitempty"`
}

// HasNotified reports whether the given second-threshold was already announced.
func (r *TimeRecord) HasNotified(threshold int) bool {
	for _, m := range r.NotifiedMilestones {
		if m == threshold {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so store readers never alias store-owned state.
func (r *TimeRecord) Clone() *TimeRecord {
	cp := *r
	if r.SessionStart != nil {
		t := *r.SessionStart
		cp.SessionStart = &t
	}
	if r.PauseStart != nil {
		t := *r.PauseStart
		cp.PauseStart = &t
	}
	if r.PreRegisteredAt != nil {
		t := *r.PreRegisteredAt
		cp.PreRegisteredAt = &t
	}
	if r.PreRegisterInitiator != nil {
		i := *r.PreRegisterInitiator
		cp.PreRegisterInitiator = &i
	}
	if r.TrackingInitiator != nil {
		i := *r.TrackingInitiator
		cp.TrackingInitiator = &i
	}
	cp.NotifiedMilestones = append([]int(nil), r.NotifiedMilestones...)
	cp.Sessions = append([]Session(nil), r.Sessions...)
	return &cp
}

// DateKey is the calendar-date format used for attendance buckets.
const DateKey = "2006-01-02"

// AttendanceRecord is the persisted attendance state for one entity.
type AttendanceRecord struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`

	// DailyCounts maps local calendar date (DateKey format) to the count
	// granted that day, each in [0,3]. History is retained for the weekly sum.
	DailyCounts map[string]int `json:"dailyCounts"`

	// ManualWeeklyBonus is extra weekly count outside the daily buckets,
	// cleared on the weekly boundary.
	ManualWeeklyBonus int `json:"manualWeeklyBonus"`

	// TotalAttendance only decreases via a transfer debit.
	TotalAttendance int `json:"totalAttendance"`

	// TransferredOn is the local date the entity last donated via transfer,
	// blocking daily grants for that date. Empty when no block is in effect.
	TransferredOn string `json:"transferredOn,omitempty"`
}

// Clone returns a deep copy so store readers never alias store-owned state.
func (a *AttendanceRecord) Clone() *AttendanceRecord {
	cp := *a
	cp.DailyCounts = make(map[string]int, len(a.DailyCounts))
	for k, v := range a.DailyCounts {
		cp.DailyCounts[k] = v
	}
	return &cp
}
