package tracker

import "github.com/guildops/timewarden/internal/model"

// Credits converts accumulated seconds into the credit reward for the role.
// No partial credit between thresholds.
//
//	normal:    >=1h -> 3, else 0
//	unlimited: >=2h -> 10, >=1h -> 5, else 0
func Credits(totalSeconds float64, role model.RoleType) int {
	if totalSeconds < 0 {
		return 0
	}
	hours := totalSeconds / 3600
	if role == model.RoleUnlimited {
		switch {
		case hours >= 2.0:
			return 10
		case hours >= 1.0:
			return 5
		default:
			return 0
		}
	}
	if hours >= 1.0 {
		return 3
	}
	return 0
}

// Finished reports whether the entity has reached its role cap or was
// terminally completed by the milestone sweep.
func Finished(rec *model.TimeRecord, liveTotalSeconds float64, role model.RoleType) bool {
	if rec.State == model.StateMilestoneCompleted {
		return true
	}
	return liveTotalSeconds >= role.Cap().Seconds()
}
