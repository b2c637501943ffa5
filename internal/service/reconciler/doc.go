// Package reconciler decides and applies the arm/disarm state of every
// building's proevents from the global panel flag, the building's schedule
// window and the per-point exception rules.
//
// Reconciliation of one building is serialized by a per-building lock shared
// by the periodic pass and on-demand callers. The periodic pass never waits:
// a building that is already being reconciled is skipped until the next tick.
package reconciler
