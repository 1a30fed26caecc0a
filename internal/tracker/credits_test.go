package tracker

import (
	"testing"

	"github.com/guildops/timewarden/internal/model"
)

func TestCredits(t *testing.T) {
	cases := []struct {
		seconds float64
		role    model.RoleType
		want    int
	}{
		{0, model.RoleNormal, 0},
		{3599, model.RoleNormal, 0},
		{3600, model.RoleNormal, 3},
		{7200, model.RoleNormal, 3},
		{0, model.RoleUnlimited, 0},
		{3599, model.RoleUnlimited, 0},
		{3600, model.RoleUnlimited, 5},
		{7199, model.RoleUnlimited, 5},
		{7200, model.RoleUnlimited, 10},
		{10000, model.RoleUnlimited, 10},
		{-5, model.RoleNormal, 0},
	}
	for _, tc := range cases {
		if got := Credits(tc.seconds, tc.role); got != tc.want {
			t.Errorf("Credits(%v, %s) = %d, want %d", tc.seconds, tc.role, got, tc.want)
		}
	}
}

func TestFinished(t *testing.T) {
	rec := &model.TimeRecord{State: model.StateActive}
	if Finished(rec, 3599, model.RoleNormal) {
		t.Error("normal entity below 1h should not be finished")
	}
	if !Finished(rec, 3600, model.RoleNormal) {
		t.Error("normal entity at 1h cap should be finished")
	}
	if Finished(rec, 3600, model.RoleUnlimited) {
		t.Error("unlimited entity at 1h should not be finished")
	}
	if !Finished(rec, 7200, model.RoleUnlimited) {
		t.Error("unlimited entity at 2h cap should be finished")
	}

	done := &model.TimeRecord{State: model.StateMilestoneCompleted}
	if !Finished(done, 0, model.RoleNormal) {
		t.Error("milestone-completed entity is finished regardless of total")
	}
}
