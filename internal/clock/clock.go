// Package clock abstracts "now" so schedulers and the engine are testable
// against a controlled time source.
package clock

import "time"

// Clock supplies the current instant in the service's configured zone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// NewSystem returns a Clock backed by the wall clock in the named zone.
func NewSystem(zone string) (Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &systemClock{loc: loc}, nil
}

func (c *systemClock) Now() time.Time            { return time.Now().In(c.loc) }
func (c *systemClock) Location() *time.Location  { return c.loc }
