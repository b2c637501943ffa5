package arming

import (
	"strconv"
	"strings"
)

// NotificationKind names the transition reported to the monitoring endpoint.
type NotificationKind string

const (
	// KindDisarmed reports a point disarmed by the schedule.
	KindDisarmed NotificationKind = "disarmed"
	// KindNotArmed reports a building that is scheduled but left disarmed
	// because the global panel is disarmed.
	KindNotArmed NotificationKind = "notarmed"
	// KindPlain carries no status word.
	KindPlain NotificationKind = ""
)

// Notification is one message for the external monitoring system.
type Notification struct {
	// BuildingID identifies the building in structured sinks.
	BuildingID int64
	// Building is the building name.
	Building string
	// PointID is the proevent the message is about; zero when none.
	PointID int64
	// Kind is the reported transition.
	Kind NotificationKind
	// PointScoped drops the building name from the wire message. Structured
	// sinks still receive Building.
	PointScoped bool
}

// Wire renders the ProServer text message "<tag>,<context>@", where context is
// the non-empty parts of building name (unless point scoped), point id and
// status word joined by "_".
func (n Notification) Wire(tag string) string {
	parts := make([]string, 0, 3)

	if n.Building != "" && !n.PointScoped {
		parts = append(parts, n.Building)
	}

	if n.PointID != 0 {
		parts = append(parts, strconv.FormatInt(n.PointID, 10))
	}

	if n.Kind != KindPlain {
		parts = append(parts, string(n.Kind))
	}

	return tag + "," + strings.Join(parts, "_") + "@"
}
