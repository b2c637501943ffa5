package arming

import "fmt"

// ReactiveState is the controlled state of a proevent.
// Values match the integers stored by the inventory system.
type ReactiveState int

const (
	// Disarmed means the proevent does not react to events.
	Disarmed ReactiveState = 0
	// Armed means the proevent reacts to events.
	Armed ReactiveState = 1
)

// String returns the lowercase name used in logs, history rows and API payloads.
func (s ReactiveState) String() string {
	switch s {
	case Armed:
		return "armed"
	case Disarmed:
		return "disarmed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseReactiveState normalizes a raw inventory value: 1 is armed, anything else is disarmed.
func ParseReactiveState(raw int64) ReactiveState {
	if raw == int64(Armed) {
		return Armed
	}

	return Disarmed
}

// Point is a proevent owned by exactly one building.
type Point struct {
	// ID is unique across the whole inventory.
	ID int64
	// BuildingID is the owning building.
	BuildingID int64
	// DeviceID references the device the proevent is attached to.
	DeviceID int64
	// Name is the display alias of the proevent.
	Name string
	// State is the current reactive state as read from the inventory.
	State ReactiveState
}

// PointFilter narrows a point listing.
type PointFilter struct {
	// Search matches the point name case-insensitively when non-empty.
	Search string
	// Limit caps the number of returned points.
	Limit int
	// Offset skips the first points in id order.
	Offset int
}

const (
	// DefaultPointLimit is used when a filter does not set a limit.
	DefaultPointLimit = 100
	// MaxPointLimit is the largest page size accepted from API callers.
	MaxPointLimit = 1000
	// UnboundedPointLimit is used by reconciliation to read a whole building.
	UnboundedPointLimit = 10000
)
