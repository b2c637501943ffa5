package arming

// Action is what reconciliation decided for a building.
type Action string

const (
	// ActionNone means nothing was required.
	ActionNone Action = "none"
	// ActionArm drives non-excluded points to Armed.
	ActionArm Action = "arm"
	// ActionDisarm drives non-excluded points to Disarmed.
	ActionDisarm Action = "disarm"
	// ActionNotArmed raises the "not armed while scheduled" condition without writing.
	ActionNotArmed Action = "notarmed"
)

// SkipReason explains why a building was not evaluated.
type SkipReason string

const (
	// SkipNone marks an evaluated building.
	SkipNone SkipReason = ""
	// SkipNoSchedule marks a building without a usable window.
	SkipNoSchedule SkipReason = "no_schedule"
	// SkipBusy marks a building already being reconciled by another caller.
	SkipBusy SkipReason = "busy"
)

// Result describes one building's reconciliation.
type Result struct {
	// BuildingID is the reconciled building.
	BuildingID int64
	// Building is the building name.
	Building string
	// Action is the branch taken.
	Action Action
	// Target is the state written for ActionArm and ActionDisarm.
	Target ReactiveState
	// Affected counts points whose state actually changed.
	Affected int64
	// Notified counts notifications handed to the dispatcher.
	Notified int
	// Skipped is set when the building was not evaluated.
	Skipped SkipReason
	// Err is a storage failure isolated to this building.
	Err error
}

// Writes reports whether the action mutates point state.
func (r *Result) Writes() bool {
	return r.Action == ActionArm || r.Action == ActionDisarm
}
