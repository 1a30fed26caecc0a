// Package roles stands in for the external identity collaborator that owns
// role membership. Role type is resolved per call and never cached on a
// record, so a membership change applies to the very next operation.
package roles

import (
	"context"

	"github.com/guildops/timewarden/internal/model"
)

// Resolver maps an entity to its current role type.
type Resolver interface {
	RoleType(ctx context.Context, entityID string) (model.RoleType, error)
}

// Static resolves from a fixed set of unlimited-role entity IDs; everyone
// else is a capped ("normal") entity. Used when no live identity service is
// wired in.
type Static struct {
	unlimited map[string]struct{}
}

// NewStatic builds a Static resolver from the given unlimited-role IDs.
func NewStatic(unlimitedIDs []string) *Static {
	set := make(map[string]struct{}, len(unlimitedIDs))
	for _, id := range unlimitedIDs {
		set[id] = struct{}{}
	}
	return &Static{unlimited: set}
}

func (s *Static) RoleType(_ context.Context, entityID string) (model.RoleType, error) {
	if _, ok := s.unlimited[entityID]; ok {
		return model.RoleUnlimited, nil
	}
	return model.RoleNormal, nil
}
